package qdrant

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/models"
)

// fakeQdrant simulates a deployment whose filter support can be degraded
// rung by rung.
type fakeQdrant struct {
	rejectValueMatch bool
	rejectAnyMatch   bool
	rejectUnfiltered bool
	rejectCount      bool
	rejectFilterDel  bool

	searchCalls  int
	deletedIDs   []string
	storedPoints []map[string]any
}

func (f *fakeQdrant) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/collections/docs/points/search", func(w http.ResponseWriter, r *http.Request) {
		f.searchCalls++
		body, _ := io.ReadAll(r.Body)
		s := string(body)
		switch {
		case strings.Contains(s, `"value"`) && f.rejectValueMatch:
			http.Error(w, "unsupported filter", http.StatusBadRequest)
		case strings.Contains(s, `"any"`) && f.rejectAnyMatch:
			http.Error(w, "unsupported filter", http.StatusBadRequest)
		case !strings.Contains(s, `"filter"`) && f.rejectUnfiltered:
			http.Error(w, "down", http.StatusInternalServerError)
		default:
			json.NewEncoder(w).Encode(map[string]any{
				"result": []map[string]any{
					{"id": "p1", "score": 0.9, "payload": map[string]any{"text": "hit one", "sourceUrl": "doc1"}},
					{"id": "p2", "score": 0.7, "payload": map[string]any{"text": "hit two", "sourceUrl": "doc1"}},
				},
			})
		}
	})
	mux.HandleFunc("/collections/docs/points/count", func(w http.ResponseWriter, r *http.Request) {
		if f.rejectCount {
			http.Error(w, "no count", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"count": len(f.storedPoints)}})
	})
	mux.HandleFunc("/collections/docs/points/scroll", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{"points": f.storedPoints, "next_page_offset": nil},
		})
	})
	mux.HandleFunc("/collections/docs/points/delete", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Points []string       `json:"points"`
			Filter map[string]any `json:"filter"`
		}
		json.Unmarshal(body, &req)
		if req.Filter != nil && f.rejectFilterDel {
			http.Error(w, "filtered delete unsupported", http.StatusBadRequest)
			return
		}
		f.deletedIDs = append(f.deletedIDs, req.Points...)
		json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"status": "acknowledged"}})
	})
	mux.HandleFunc("/collections/docs/index", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{}})
	})
	mux.HandleFunc("/collections/docs/points", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"status": "acknowledged"}})
	})
	mux.HandleFunc("/collections/docs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"status": "green"}})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"result": true})
	})
	return mux
}

func newTestStorage(t *testing.T, f *fakeQdrant) *Storage {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return NewStorage(Config{URL: srv.URL, Collection: "docs"})
}

func TestSearchExactFilterFirst(t *testing.T) {
	f := &fakeQdrant{}
	s := newTestStorage(t, f)

	hits, err := s.Search(context.Background(), []float32{0.1, 0.2}, "doc1", 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "hit one", hits[0].Payload.Text)
	assert.Equal(t, 0.9, hits[0].Score)
	assert.Equal(t, 1, f.searchCalls)
}

func TestSearchFallsBackToAnyMatch(t *testing.T) {
	f := &fakeQdrant{rejectValueMatch: true}
	s := newTestStorage(t, f)

	hits, err := s.Search(context.Background(), []float32{0.1, 0.2}, "doc1", 5)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
	assert.Equal(t, 2, f.searchCalls)
}

func TestSearchFallsBackToUnfiltered(t *testing.T) {
	f := &fakeQdrant{rejectValueMatch: true, rejectAnyMatch: true}
	s := newTestStorage(t, f)

	hits, err := s.Search(context.Background(), []float32{0.1, 0.2}, "doc1", 5)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
	assert.Equal(t, 3, f.searchCalls)
}

func TestSearchAllRungsExhausted(t *testing.T) {
	f := &fakeQdrant{rejectValueMatch: true, rejectAnyMatch: true, rejectUnfiltered: true}
	s := newTestStorage(t, f)

	_, err := s.Search(context.Background(), []float32{0.1, 0.2}, "doc1", 5)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.CollectionUnavailable))
}

func TestDeleteBySourceFilteredPath(t *testing.T) {
	f := &fakeQdrant{storedPoints: []map[string]any{
		{"id": "a", "payload": map[string]any{"sourceUrl": "doc1"}},
		{"id": "b", "payload": map[string]any{"sourceUrl": "doc1"}},
	}}
	s := newTestStorage(t, f)

	n, err := s.DeleteBySource(context.Background(), "doc1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDeleteBySourceScrollFallback(t *testing.T) {
	f := &fakeQdrant{
		rejectFilterDel: true,
		storedPoints: []map[string]any{
			{"id": "a", "payload": map[string]any{"sourceUrl": "doc1"}},
			{"id": "b", "payload": map[string]any{"sourceUrl": "doc2"}},
			{"id": "c", "payload": map[string]any{"sourceUrl": "doc1"}},
		},
	}
	s := newTestStorage(t, f)

	n, err := s.DeleteBySource(context.Background(), "doc1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []string{"a", "c"}, f.deletedIDs)
}

func TestDeleteBySourceIdempotentWhenEmpty(t *testing.T) {
	f := &fakeQdrant{}
	s := newTestStorage(t, f)

	n, err := s.DeleteBySource(context.Background(), "never-ingested")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEnsureCollectionExisting(t *testing.T) {
	f := &fakeQdrant{}
	s := newTestStorage(t, f)
	require.NoError(t, s.EnsureCollection(context.Background(), 1024))
}

func TestEnsureCollectionUnreachable(t *testing.T) {
	s := NewStorage(Config{URL: "http://127.0.0.1:1", Collection: "docs"})
	err := s.EnsureCollection(context.Background(), 1024)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.CollectionUnavailable))
}
