// Package server exposes the pipeline as a small JSON service:
// POST /ingest, POST /query, DELETE /documents and GET /health.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"docqa/internal/models"
	"docqa/internal/rag"
)

// Server wires the ingestion, answering and deletion orchestrators to
// HTTP handlers.
type Server struct {
	answerer *rag.Answerer
	ingestor *rag.Ingestor
	deleter  *rag.Deleter
	addr     string
}

func NewServer(answerer *rag.Answerer, ingestor *rag.Ingestor, deleter *rag.Deleter, addr string) *Server {
	return &Server{answerer: answerer, ingestor: ingestor, deleter: deleter, addr: addr}
}

type queryRequest struct {
	Question    string            `json:"question"`
	SourceURL   string            `json:"sourceUrl"`
	ChatHistory []models.ChatTurn `json:"chatHistory,omitempty"`
}

type ingestRequest struct {
	Text      string `json:"text"`
	SourceURL string `json:"sourceUrl"`
}

type apiResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /query", s.handleQuery)
	mux.HandleFunc("POST /ingest", s.handleIngest)
	mux.HandleFunc("DELETE /documents", s.handleDelete)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

// Start runs the server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", s.addr).Msg("server starting")
	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: "invalid request body", Kind: string(models.BadRequestError)})
		return
	}
	resp, err := s.answerer.Answer(r.Context(), req.Question, req.SourceURL, req.ChatHistory)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: resp})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: "invalid request body", Kind: string(models.BadRequestError)})
		return
	}
	if req.SourceURL == "" {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: "sourceUrl is required", Kind: string(models.BadRequestError)})
		return
	}
	res, err := s.ingestor.Ingest(r.Context(), req.Text, req.SourceURL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: res})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	sourceURL := r.URL.Query().Get("sourceUrl")
	if sourceURL == "" {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: "sourceUrl is required", Kind: string(models.BadRequestError)})
		return
	}
	report := s.deleter.Delete(r.Context(), sourceURL)
	writeJSON(w, http.StatusOK, apiResponse{Success: report.AllSucceeded(), Data: report})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, apiResponse{Success: true})
}

// writeError maps the error taxonomy onto HTTP statuses while keeping the
// kind visible to the caller.
func writeError(w http.ResponseWriter, err error) {
	kind := models.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case models.NoRelevantContext, models.InsufficientContext:
		status = http.StatusNotFound
	case models.BadRequestError, models.EmbeddingFailure:
		status = http.StatusBadRequest
	case models.AuthError:
		status = http.StatusUnauthorized
	case models.RateLimitError:
		status = http.StatusTooManyRequests
	case models.ConfigurationError, models.CollectionUnavailable:
		status = http.StatusServiceUnavailable
	case models.TimeoutError:
		status = http.StatusGatewayTimeout
	}
	writeJSON(w, status, apiResponse{Error: err.Error(), Kind: string(kind)})
}

func writeJSON(w http.ResponseWriter, status int, body apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
