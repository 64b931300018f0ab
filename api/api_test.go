package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/ragify/pkg/embeddings"
	"github.com/papercomputeco/ragify/pkg/eventstream"
	"github.com/papercomputeco/ragify/pkg/retriever"
	testutils "github.com/papercomputeco/ragify/pkg/utils/test"
	"github.com/papercomputeco/ragify/pkg/vector"
	"github.com/papercomputeco/ragify/pkg/vector/memory"
)

var _ = Describe("Server", func() {
	var (
		ctx      context.Context
		server   *Server
		store    *memory.Store
		provider *testutils.MockProvider
		chain    *embeddings.Chain
	)

	const dim = 8

	BeforeEach(func() {
		ctx = context.Background()
		store = memory.NewStore()
		provider = testutils.NewMockProvider("mock/primary", dim)

		var err error
		chain, err = embeddings.NewChain(embeddings.ChainConfig{
			Providers: []embeddings.Provider{provider},
			Logger:    zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())

		retr := retriever.New(chain, store, nil, zap.NewNop())
		server = NewServer(Config{ListenAddr: ":0"}, store, chain, retr, zap.NewNop())
	})

	get := func(path string) *http.Response {
		req, err := http.NewRequest(http.MethodGet, path, nil)
		Expect(err).NotTo(HaveOccurred())
		resp, err := server.app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	decode := func(resp *http.Response, out any) {
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal(body, out)).To(Succeed())
	}

	seed := func(collection string, texts map[string]string) {
		Expect(store.Ensure(ctx, collection, vector.Meta{
			Dimension: dim,
			Embedder:  "mock/primary",
		})).To(Succeed())

		seq := 0
		for chunkID, text := range texts {
			vectors, _, err := chain.EmbedBatch(ctx, []string{text}, dim)
			Expect(err).NotTo(HaveOccurred())
			Expect(store.Upsert(ctx, collection, []vector.Record{{
				ChunkID:    chunkID,
				DocumentID: "doc-1",
				Seq:        seq,
				Text:       text,
				TokenCount: 5,
				Vector:     vectors[0],
			}})).To(Succeed())
			seq++
		}
	}

	Describe("GET /ping", func() {
		It("returns pong", func() {
			resp := get("/ping")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("pong"))
		})
	})

	Describe("GET /health", func() {
		It("reports ok when both dependencies respond", func() {
			resp := get("/health")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var health HealthResponse
			decode(resp, &health)
			Expect(health.Status).To(Equal("ok"))
			Expect(health.VectorStore.OK).To(BeTrue())
			Expect(health.Embedder.OK).To(BeTrue())
			Expect(health.Embedder.Provider).To(Equal("mock/primary"))
		})

		It("reports degraded when the embedder is down", func() {
			provider.FailAll = true

			resp := get("/health")
			Expect(resp.StatusCode).To(Equal(fiber.StatusServiceUnavailable))

			var health HealthResponse
			decode(resp, &health)
			Expect(health.Status).To(Equal("degraded"))
			Expect(health.VectorStore.OK).To(BeTrue())
			Expect(health.Embedder.OK).To(BeFalse())
			Expect(health.Embedder.Error).NotTo(BeEmpty())
		})
	})

	Describe("GET /v1/search", func() {
		BeforeEach(func() {
			seed("docs", map[string]string{
				"doc-1:0": "the quick brown fox",
				"doc-1:1": "jumps over the lazy dog",
			})
		})

		It("returns 400 when query is missing", func() {
			resp := get("/v1/search?collection=docs")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("returns 400 when collection is missing", func() {
			resp := get("/v1/search?query=fox")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("returns 400 for a non-positive top_k", func() {
			resp := get("/v1/search?query=fox&collection=docs&top_k=0")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("returns 404 for an unknown collection", func() {
			resp := get("/v1/search?query=fox&collection=missing")
			Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
		})

		It("returns 409 when the collection was indexed by another embedder", func() {
			Expect(store.Ensure(ctx, "alien", vector.Meta{
				Dimension: dim,
				Embedder:  "mock/unknown",
			})).To(Succeed())

			resp := get("/v1/search?query=fox&collection=alien")
			Expect(resp.StatusCode).To(Equal(fiber.StatusConflict))
		})

		It("returns ranked results with chunk payloads", func() {
			resp := get("/v1/search?query=" + "the+quick+brown+fox" + "&collection=docs&top_k=2")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var out SearchResponse
			decode(resp, &out)
			Expect(out.Collection).To(Equal("docs"))
			Expect(out.Count).To(Equal(2))
			Expect(out.Results[0].ChunkID).To(Equal("doc-1:0"))
			Expect(out.Results[0].Text).To(Equal("the quick brown fox"))
			Expect(out.Results[0].Rank).To(Equal(0))
		})
	})

	Describe("GET /v1/collections", func() {
		It("lists collections with their meta", func() {
			seed("docs", map[string]string{"doc-1:0": "hello"})

			resp := get("/v1/collections")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var out struct {
				Count       int                  `json:"count"`
				Collections []CollectionResponse `json:"collections"`
			}
			decode(resp, &out)
			Expect(out.Count).To(Equal(1))
			Expect(out.Collections[0].Name).To(Equal("docs"))
			Expect(out.Collections[0].Dimension).To(Equal(dim))
			Expect(out.Collections[0].Embedder).To(Equal("mock/primary"))
		})

		It("returns a single collection by name", func() {
			seed("docs", map[string]string{"doc-1:0": "hello"})

			resp := get("/v1/collections/docs")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var out CollectionResponse
			decode(resp, &out)
			Expect(out.Dimension).To(Equal(dim))
		})

		It("returns 404 for an unknown collection", func() {
			resp := get("/v1/collections/missing")
			Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
		})
	})

	Describe("document status", func() {
		event := func(stage eventstream.Stage, at time.Time) *eventstream.IngestEvent {
			return &eventstream.IngestEvent{
				EmittedAt:  at,
				Collection: "docs",
				DocumentID: "doc-1",
				Filename:   "report.pdf",
				Stage:      stage,
			}
		}

		It("tracks the latest stage per document", func() {
			now := time.Now()
			server.statuses.Apply(event(eventstream.StagePending, now))
			server.statuses.Apply(event(eventstream.StageEmbedding, now.Add(time.Second)))

			resp := get("/v1/documents/doc-1")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var status DocumentStatus
			decode(resp, &status)
			Expect(status.Stage).To(Equal(eventstream.StageEmbedding))
			Expect(status.Filename).To(Equal("report.pdf"))
		})

		It("keeps the chunk count from the success event", func() {
			now := time.Now()
			done := event(eventstream.StageSucceeded, now)
			done.Chunks = 12
			server.statuses.Apply(done)

			resp := get("/v1/documents/doc-1")
			var status DocumentStatus
			decode(resp, &status)
			Expect(status.Chunks).To(Equal(12))
		})

		It("lists documents most recently updated first", func() {
			now := time.Now()
			first := event(eventstream.StageSucceeded, now)
			second := event(eventstream.StagePending, now.Add(time.Minute))
			second.DocumentID = "doc-2"
			server.statuses.Apply(first)
			server.statuses.Apply(second)

			resp := get("/v1/documents")
			var out struct {
				Count     int              `json:"count"`
				Documents []DocumentStatus `json:"documents"`
			}
			decode(resp, &out)
			Expect(out.Count).To(Equal(2))
			Expect(out.Documents[0].DocumentID).To(Equal("doc-2"))
		})

		It("returns 404 for an untracked document", func() {
			resp := get("/v1/documents/nope")
			Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
		})
	})
})
