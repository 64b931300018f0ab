package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/ragify/pkg/retriever"
	"github.com/papercomputeco/ragify/pkg/vector"
)

// SearchResult is one ranked hit in a search response.
type SearchResult struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Seq        int     `json:"seq"`
	Text       string  `json:"text"`
	Score      float32 `json:"score"`
	Rank       int     `json:"rank"`
}

// SearchResponse is the body of GET /v1/search.
type SearchResponse struct {
	Query      string         `json:"query"`
	Collection string         `json:"collection"`
	Count      int            `json:"count"`
	Results    []SearchResult `json:"results"`
}

// handleSearch handles GET /v1/search requests.
// Query parameters:
//   - query (required): the search query text
//   - collection (required): the collection to search
//   - top_k (optional, default 5): number of results to return
//   - rerank (optional, default false): lexical rerank of an over-fetched set
func (s *Server) handleSearch(c *fiber.Ctx) error {
	query := c.Query("query")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "query parameter is required",
		})
	}

	collection := c.Query("collection")
	if collection == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "collection parameter is required",
		})
	}

	topK := 5
	if topKStr := c.Query("top_k"); topKStr != "" {
		parsed, err := strconv.Atoi(topKStr)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "top_k must be a positive integer",
			})
		}
		topK = parsed
	}

	rerank := c.QueryBool("rerank")

	results, err := s.retriever.Retrieve(c.Context(), query, collection, topK, retriever.Options{
		Rerank: rerank,
	})
	if err != nil {
		switch {
		case errors.Is(err, vector.ErrCollectionNotFound):
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: err.Error()})
		case errors.Is(err, vector.ErrEmbedderMismatch):
			return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: err.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
		}
	}

	out := SearchResponse{
		Query:      query,
		Collection: collection,
		Count:      len(results),
		Results:    make([]SearchResult, 0, len(results)),
	}
	for _, res := range results {
		out.Results = append(out.Results, SearchResult{
			ChunkID:    res.ChunkID,
			DocumentID: res.DocumentID,
			Seq:        res.Seq,
			Text:       res.Text,
			Score:      res.Score,
			Rank:       res.Rank,
		})
	}

	return c.JSON(out)
}
