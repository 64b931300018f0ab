package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// HealthComponent reports the reachability of one dependency.
type HealthComponent struct {
	OK       bool   `json:"ok"`
	Provider string `json:"provider,omitempty"`
	Error    string `json:"error,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string          `json:"status"`
	VectorStore HealthComponent `json:"vector_store"`
	Embedder    HealthComponent `json:"embedder"`
}

// CollectionResponse describes one collection.
type CollectionResponse struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Embedder  string `json:"embedder"`
}

// handlePing returns a simple liveness response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleHealth probes the vector store and the embedding chain. The store
// probe is a collection listing; the embedder probe embeds a single short
// text through the chain, so fallback providers count as healthy.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	ctx := c.Context()

	health := HealthResponse{Status: "ok"}

	if _, err := s.store.List(ctx); err != nil {
		health.VectorStore = HealthComponent{OK: false, Error: err.Error()}
		health.Status = "degraded"
	} else {
		health.VectorStore = HealthComponent{OK: true}
	}

	_, identity, err := s.chain.EmbedBatch(ctx, []string{"ping"}, 0)
	if err != nil {
		health.Embedder = HealthComponent{OK: false, Provider: s.chain.Primary(), Error: err.Error()}
		health.Status = "degraded"
	} else {
		health.Embedder = HealthComponent{OK: true, Provider: identity}
	}

	if health.Status != "ok" {
		s.logger.Warn("health check degraded",
			zap.Bool("vector_store", health.VectorStore.OK),
			zap.Bool("embedder", health.Embedder.OK),
		)
		return c.Status(fiber.StatusServiceUnavailable).JSON(health)
	}

	return c.JSON(health)
}

// handleListCollections returns every collection with its recorded meta.
func (s *Server) handleListCollections(c *fiber.Ctx) error {
	colls, err := s.store.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list collections"})
	}

	out := make([]CollectionResponse, 0, len(colls))
	for _, coll := range colls {
		out = append(out, CollectionResponse{
			Name:      coll.Name,
			Dimension: coll.Meta.Dimension,
			Embedder:  coll.Meta.Embedder,
		})
	}

	return c.JSON(map[string]any{
		"count":       len(out),
		"collections": out,
	})
}

// handleGetCollection returns the recorded meta of one collection.
func (s *Server) handleGetCollection(c *fiber.Ctx) error {
	name := c.Params("name")
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "name parameter required"})
	}

	meta, err := s.store.Meta(c.Context(), name)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "collection not found"})
	}

	return c.JSON(CollectionResponse{
		Name:      name,
		Dimension: meta.Dimension,
		Embedder:  meta.Embedder,
	})
}

// handleListDocuments returns the ingestion status of every tracked document.
func (s *Server) handleListDocuments(c *fiber.Ctx) error {
	documents := s.statuses.List()
	return c.JSON(map[string]any{
		"count":     len(documents),
		"documents": documents,
	})
}

// handleGetDocument returns the ingestion status of one document.
func (s *Server) handleGetDocument(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "id parameter required"})
	}

	status, ok := s.statuses.Get(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "document not found"})
	}

	return c.JSON(status)
}
