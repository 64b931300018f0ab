package qdrant_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/ragify/pkg/vector"
	"github.com/papercomputeco/ragify/pkg/vector/memory"
	"github.com/papercomputeco/ragify/pkg/vector/qdrant"
)

// fakeQdrant implements just enough of the Qdrant REST API to exercise the
// store: collection create/info/delete, point upsert/retrieve/search, and
// filtered deletes.
type fakeQdrant struct {
	mu          sync.Mutex
	collections map[string]*fakeCollection
}

type fakeCollection struct {
	size   int
	points map[string]fakePoint
}

type fakePoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

func newFakeQdrant() *fakeQdrant {
	return &fakeQdrant{collections: map[string]*fakeCollection{}}
}

func (f *fakeQdrant) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) < 1 || parts[0] != "collections" {
			http.NotFound(w, r)
			return
		}

		if len(parts) == 1 {
			if r.Method != http.MethodGet {
				http.NotFound(w, r)
				return
			}
			names := make([]string, 0, len(f.collections))
			for n := range f.collections {
				names = append(names, n)
			}
			sort.Strings(names)
			colls := make([]map[string]any, 0, len(names))
			for _, n := range names {
				colls = append(colls, map[string]any{"name": n})
			}
			json.NewEncoder(w).Encode(map[string]any{
				"result": map[string]any{"collections": colls},
			})
			return
		}
		name := parts[1]

		switch {
		case len(parts) == 2 && r.Method == http.MethodGet:
			coll, ok := f.collections[name]
			if !ok {
				http.NotFound(w, r)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"result": map[string]any{
					"config": map[string]any{
						"params": map[string]any{
							"vectors": map[string]any{"size": coll.size, "distance": "Cosine"},
						},
					},
				},
				"status": "ok",
			})

		case len(parts) == 2 && r.Method == http.MethodPut:
			var req struct {
				Vectors struct {
					Size int `json:"size"`
				} `json:"vectors"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			f.collections[name] = &fakeCollection{
				size:   req.Vectors.Size,
				points: map[string]fakePoint{},
			}
			json.NewEncoder(w).Encode(map[string]any{"result": true, "status": "ok"})

		case len(parts) == 2 && r.Method == http.MethodDelete:
			delete(f.collections, name)
			json.NewEncoder(w).Encode(map[string]any{"result": true, "status": "ok"})

		case len(parts) == 3 && parts[2] == "points" && r.Method == http.MethodPut:
			coll, ok := f.collections[name]
			if !ok {
				http.NotFound(w, r)
				return
			}
			var req struct {
				Points []fakePoint `json:"points"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			for _, p := range req.Points {
				coll.points[p.ID] = p
			}
			json.NewEncoder(w).Encode(map[string]any{"result": true, "status": "ok"})

		case len(parts) == 3 && parts[2] == "points" && r.Method == http.MethodPost:
			coll, ok := f.collections[name]
			if !ok {
				http.NotFound(w, r)
				return
			}
			var req struct {
				IDs []string `json:"ids"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			result := []fakePoint{}
			for _, id := range req.IDs {
				if p, ok := coll.points[id]; ok {
					result = append(result, p)
				}
			}
			json.NewEncoder(w).Encode(map[string]any{"result": result})

		case len(parts) == 4 && parts[3] == "search":
			coll, ok := f.collections[name]
			if !ok {
				http.NotFound(w, r)
				return
			}
			var req struct {
				Vector []float32 `json:"vector"`
				Limit  int       `json:"limit"`
				Filter *struct {
					MustNot []struct {
						Key   string `json:"key"`
						Match struct {
							Value any `json:"value"`
						} `json:"match"`
					} `json:"must_not"`
				} `json:"filter"`
			}
			json.NewDecoder(r.Body).Decode(&req)

			type scored struct {
				fakePoint
				Score float32 `json:"score"`
			}
			var hits []scored
			for _, p := range coll.points {
				if req.Filter != nil {
					skip := false
					for _, cond := range req.Filter.MustNot {
						if v, ok := p.Payload[cond.Key]; ok && v == cond.Match.Value {
							skip = true
						}
					}
					if skip {
						continue
					}
				}
				hits = append(hits, scored{
					fakePoint: p,
					Score:     memory.Cosine(req.Vector, p.Vector),
				})
			}
			sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
			if len(hits) > req.Limit {
				hits = hits[:req.Limit]
			}
			json.NewEncoder(w).Encode(map[string]any{"result": hits})

		case len(parts) == 4 && parts[3] == "delete":
			coll, ok := f.collections[name]
			if !ok {
				http.NotFound(w, r)
				return
			}
			var req struct {
				Filter struct {
					Must []struct {
						Key   string `json:"key"`
						Match struct {
							Value any `json:"value"`
						} `json:"match"`
					} `json:"must"`
				} `json:"filter"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			for id, p := range coll.points {
				match := true
				for _, cond := range req.Filter.Must {
					if p.Payload[cond.Key] != cond.Match.Value {
						match = false
					}
				}
				if match {
					delete(coll.points, id)
				}
			}
			json.NewEncoder(w).Encode(map[string]any{"result": true, "status": "ok"})

		default:
			http.NotFound(w, r)
		}
	})
}

var _ = Describe("Qdrant Store", func() {
	var (
		ctx    context.Context
		server *httptest.Server
		store  *qdrant.Store
		meta   vector.Meta
	)

	BeforeEach(func() {
		ctx = context.Background()
		server = httptest.NewServer(newFakeQdrant().handler())
		meta = vector.Meta{Dimension: 3, Embedder: "mock/primary"}

		var err error
		store, err = qdrant.NewStore(qdrant.Config{URL: server.URL}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(store.Close()).To(Succeed())
		server.Close()
	})

	record := func(chunkID, docID string, seq int, vec []float32) vector.Record {
		return vector.Record{
			ChunkID:    chunkID,
			DocumentID: docID,
			Seq:        seq,
			Text:       "chunk " + chunkID,
			TokenCount: 10,
			Vector:     vec,
		}
	}

	Describe("NewStore", func() {
		It("should return an error when URL is empty", func() {
			_, err := qdrant.NewStore(qdrant.Config{URL: ""}, zap.NewNop())
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("qdrant URL is required"))
		})
	})

	Describe("Interface compliance", func() {
		It("should implement vector.Store interface", func() {
			var _ vector.Store = (*qdrant.Store)(nil)
		})
	})

	Describe("Ensure", func() {
		It("should create a collection and record its meta", func() {
			Expect(store.Ensure(ctx, "docs", meta)).To(Succeed())

			got, err := store.Meta(ctx, "docs")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(meta))
		})

		It("should be idempotent for matching meta", func() {
			Expect(store.Ensure(ctx, "docs", meta)).To(Succeed())
			Expect(store.Ensure(ctx, "docs", meta)).To(Succeed())
		})

		It("should reject a dimension disagreement", func() {
			Expect(store.Ensure(ctx, "docs", meta)).To(Succeed())

			err := store.Ensure(ctx, "docs", vector.Meta{Dimension: 8, Embedder: "mock/primary"})
			Expect(err).To(MatchError(vector.ErrDimensionMismatch))
		})

		It("should reject an embedder disagreement", func() {
			Expect(store.Ensure(ctx, "docs", meta)).To(Succeed())

			err := store.Ensure(ctx, "docs", vector.Meta{Dimension: 3, Embedder: "mock/other"})
			Expect(err).To(MatchError(vector.ErrEmbedderMismatch))
		})
	})

	Describe("Meta", func() {
		It("should fail for an unknown collection", func() {
			_, err := store.Meta(ctx, "missing")
			Expect(err).To(MatchError(vector.ErrCollectionNotFound))
		})
	})

	Describe("Query", func() {
		BeforeEach(func() {
			Expect(store.Ensure(ctx, "docs", meta)).To(Succeed())
			Expect(store.Upsert(ctx, "docs", []vector.Record{
				record("a:0", "a", 0, []float32{1, 0, 0}),
				record("a:1", "a", 1, []float32{0.9, 0.1, 0}),
				record("b:0", "b", 0, []float32{0, 1, 0}),
			})).To(Succeed())
		})

		It("should return the closest chunks first with payload intact", func() {
			results, err := store.Query(ctx, "docs", []float32{1, 0, 0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].ChunkID).To(Equal("a:0"))
			Expect(results[0].DocumentID).To(Equal("a"))
			Expect(results[0].Text).To(Equal("chunk a:0"))
			Expect(results[0].TokenCount).To(Equal(10))
		})

		It("should never surface the meta point", func() {
			results, err := store.Query(ctx, "docs", []float32{0, 0, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			for _, res := range results {
				Expect(res.ChunkID).NotTo(BeEmpty())
			}
		})

		It("should replace chunks upserted twice", func() {
			updated := record("a:0", "a", 0, []float32{0, 0, 1})
			updated.Text = "updated"
			Expect(store.Upsert(ctx, "docs", []vector.Record{updated})).To(Succeed())

			results, err := store.Query(ctx, "docs", []float32{0, 0, 1}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Text).To(Equal("updated"))
		})

		It("should reject a query vector of the wrong dimension", func() {
			_, err := store.Query(ctx, "docs", []float32{1, 0}, 5)
			Expect(err).To(MatchError(vector.ErrDimensionMismatch))
		})
	})

	Describe("DeleteDocument", func() {
		BeforeEach(func() {
			Expect(store.Ensure(ctx, "docs", meta)).To(Succeed())
			Expect(store.Upsert(ctx, "docs", []vector.Record{
				record("a:0", "a", 0, []float32{1, 0, 0}),
				record("a:1", "a", 1, []float32{0.9, 0.1, 0}),
				record("b:0", "b", 0, []float32{0, 1, 0}),
			})).To(Succeed())
		})

		It("should remove every chunk of the document", func() {
			Expect(store.DeleteDocument(ctx, "docs", "a")).To(Succeed())

			results, err := store.Query(ctx, "docs", []float32{1, 0, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].DocumentID).To(Equal("b"))
		})

		It("should be idempotent when retried", func() {
			Expect(store.DeleteDocument(ctx, "docs", "a")).To(Succeed())
			Expect(store.DeleteDocument(ctx, "docs", "a")).To(Succeed())
		})
	})

	Describe("List", func() {
		It("should return collections sorted by name with their meta", func() {
			Expect(store.Ensure(ctx, "zebra", meta)).To(Succeed())
			Expect(store.Ensure(ctx, "alpha", meta)).To(Succeed())

			colls, err := store.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(colls).To(HaveLen(2))
			Expect(colls[0].Name).To(Equal("alpha"))
			Expect(colls[1].Name).To(Equal("zebra"))
			Expect(colls[0].Meta).To(Equal(meta))
		})

		It("should return an empty slice with no collections", func() {
			colls, err := store.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(colls).To(BeEmpty())
		})
	})

	Describe("Drop", func() {
		It("should remove the collection entirely", func() {
			Expect(store.Ensure(ctx, "docs", meta)).To(Succeed())
			Expect(store.Drop(ctx, "docs")).To(Succeed())

			_, err := store.Meta(ctx, "docs")
			Expect(err).To(MatchError(vector.ErrCollectionNotFound))
		})
	})
})
