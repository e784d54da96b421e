package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"docqa/internal/config"
	"docqa/internal/embedding"
	"docqa/internal/helper"
	"docqa/internal/llmservice"
	"docqa/internal/models"
	"docqa/internal/parser"
	"docqa/internal/rag"
	"docqa/internal/server"
	"docqa/internal/vectorstore"
	"docqa/internal/vectorstore/chromem"
	"docqa/internal/vectorstore/memory"
	"docqa/internal/vectorstore/pgvector"
	"docqa/internal/vectorstore/qdrant"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	_ = godotenv.Load()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	filePath := flag.String("file", "", "Path to a document file to ingest")
	source := flag.String("source", "", "Source URL identifying the document")
	query := flag.String("query", "", "Question to be answered")
	deleteSource := flag.String("delete", "", "Source URL of a document to delete")
	serve := flag.Bool("serve", false, "Run the HTTP service")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	store, err := newStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating vector store")
	}

	provider, err := embedding.NewProvider(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	embedClient := embedding.NewClient(provider, cfg.RAG.Dimension, time.Duration(cfg.RAG.EmbedDelayMs)*time.Millisecond)
	generator := llmservice.NewClient(&cfg.GenLLM, cfg.RAG.Temperature, cfg.RAG.MaxTokens)

	ingestor := rag.NewIngestor(cfg, embedClient, store)
	answerer := rag.NewAnswerer(cfg, embedClient, store, generator)
	deleter := rag.NewDeleter(store)

	ctx := context.Background()

	switch {
	case *serve:
		runServer(answerer, ingestor, deleter, cfg.Listen)
	case *filePath != "":
		ingestFile(ctx, ingestor, *filePath, *source)
	case *query != "":
		askQuestion(ctx, answerer, *query, *source)
	case *deleteSource != "":
		report := deleter.Delete(ctx, *deleteSource)
		helper.PrettyPrint(report)
	default:
		log.Fatal().Msg("Provide -file to ingest, -query to ask, -delete to remove a document, or -serve to run the service")
	}
}

func newStore(cfg *config.Config) (vectorstore.Store, error) {
	switch cfg.Store.Type {
	case "qdrant":
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Store.Qdrant.URL,
			APIKey:     cfg.Store.Qdrant.APIKey,
			Collection: cfg.Store.Collection,
		}), nil
	case "chromem":
		if !cfg.Store.Chromem.InMemory {
			if err := helper.CreateFolder(cfg.Store.Chromem.Path); err != nil {
				return nil, err
			}
		}
		return chromem.NewStore(cfg.Store.Chromem.Path, cfg.Store.Collection, cfg.Store.Chromem.InMemory)
	case "pgvector":
		return pgvector.NewStore(&cfg.Store.Postgres)
	case "memory":
		return memory.NewStore(), nil
	default:
		return nil, models.NewError(models.ConfigurationError, fmt.Sprintf("unknown store type %q", cfg.Store.Type), nil)
	}
}

func ingestFile(ctx context.Context, ingestor *rag.Ingestor, filePath, source string) {
	if source == "" {
		source = filePath
	}

	text, err := parser.Parse(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error parsing document")
	}

	res, err := ingestor.Ingest(ctx, text, source)
	if err != nil {
		log.Fatal().Err(err).Msg("Error ingesting document")
	}

	log.Info().Str("title", res.Title).Int("points", res.PointsWritten).Msg("Document ingested")
}

func askQuestion(ctx context.Context, answerer *rag.Answerer, query, source string) {
	if source == "" {
		log.Fatal().Msg("Provide -source to identify the document to query")
	}

	resp, err := answerer.Answer(ctx, query, source, nil)
	if err != nil {
		log.Fatal().Err(err).Str("kind", string(models.KindOf(err))).Msg("Error querying")
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", query)

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", resp.Answer)

	log.Info().Msg("Sources: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	helper.PrettyPrint(resp.Sources)
}

func runServer(answerer *rag.Answerer, ingestor *rag.Ingestor, deleter *rag.Deleter, addr string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(answerer, ingestor, deleter, addr)
	if err := srv.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}
