// Package api exposes the ingestion and retrieval pipeline over HTTP:
// health checks, vector search, collection listing, and per-document
// ingest status.
package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/ragify/pkg/embeddings"
	"github.com/papercomputeco/ragify/pkg/eventstream"
	"github.com/papercomputeco/ragify/pkg/retriever"
	"github.com/papercomputeco/ragify/pkg/vector"
)

// ErrorResponse is the JSON shape of every error the API returns.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server is the API server for querying and monitoring the ragify system.
type Server struct {
	config    Config
	store     vector.Store
	chain     *embeddings.Chain
	retriever *retriever.Retriever
	statuses  *StatusTracker
	logger    *zap.Logger
	app       *fiber.App
}

// NewServer creates a new API server. The store and chain are injected so
// they can be shared with the ingestion pipeline.
func NewServer(config Config, store vector.Store, chain *embeddings.Chain, retr *retriever.Retriever, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:    config,
		store:     store,
		chain:     chain,
		retriever: retr,
		statuses:  NewStatusTracker(),
		logger:    logger,
		app:       app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/health", s.handleHealth)
	app.Get("/v1/search", s.handleSearch)
	app.Get("/v1/collections", s.handleListCollections)
	app.Get("/v1/collections/:name", s.handleGetCollection)
	app.Get("/v1/documents", s.handleListDocuments)
	app.Get("/v1/documents/:id", s.handleGetDocument)

	return s
}

// WatchEvents consumes ingest progress events until the channel closes,
// keeping the document status endpoints current. Run it in its own
// goroutine with the subscriber side of a channel publisher.
func (s *Server) WatchEvents(events <-chan eventstream.IngestEvent) {
	for event := range events {
		s.statuses.Apply(&event)
	}
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
