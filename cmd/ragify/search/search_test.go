package searchcmder_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/ragify/api"
	searchcmder "github.com/papercomputeco/ragify/cmd/ragify/search"
)

var _ = Describe("NewSearchCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := searchcmder.NewSearchCmd()
		Expect(cmd.Use).To(Equal("search <query>"))
	})

	It("requires exactly one argument", func() {
		cmd := searchcmder.NewSearchCmd()
		Expect(cmd.Args(cmd, []string{})).To(HaveOccurred())
		Expect(cmd.Args(cmd, []string{"q"})).NotTo(HaveOccurred())
	})

	It("marks --collection as required", func() {
		cmd := searchcmder.NewSearchCmd()
		f := cmd.Flags().Lookup("collection")
		Expect(f).NotTo(BeNil())
		Expect(f.Annotations).To(HaveKey(cobra.BashCompOneRequiredFlag))
	})
})

var _ = Describe("SearchAPI", func() {
	It("sends the query parameters and parses the response", func() {
		var gotPath, gotQuery, gotCollection, gotTopK, gotRerank string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotQuery = r.URL.Query().Get("query")
			gotCollection = r.URL.Query().Get("collection")
			gotTopK = r.URL.Query().Get("top_k")
			gotRerank = r.URL.Query().Get("rerank")

			resp := api.SearchResponse{
				Query:      gotQuery,
				Collection: gotCollection,
				Count:      1,
				Results: []api.SearchResult{
					{ChunkID: "doc-1:0", DocumentID: "doc-1", Seq: 0, Text: "hello", Score: 0.93, Rank: 1},
				},
			}
			w.Header().Set("Content-Type", "application/json")
			Expect(json.NewEncoder(w).Encode(resp)).To(Succeed())
		}))
		defer server.Close()

		output, err := searchcmder.SearchAPI(context.Background(), server.URL, "greeting", "docs", 3, true)
		Expect(err).NotTo(HaveOccurred())

		Expect(gotPath).To(Equal("/v1/search"))
		Expect(gotQuery).To(Equal("greeting"))
		Expect(gotCollection).To(Equal("docs"))
		Expect(gotTopK).To(Equal("3"))
		Expect(gotRerank).To(Equal("true"))

		Expect(output.Count).To(Equal(1))
		Expect(output.Results[0].ChunkID).To(Equal("doc-1:0"))
	})

	It("surfaces the API error body on non-200 responses", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			Expect(json.NewEncoder(w).Encode(api.ErrorResponse{Error: "collection not found: docs"})).To(Succeed())
		}))
		defer server.Close()

		_, err := searchcmder.SearchAPI(context.Background(), server.URL, "q", "docs", 5, false)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("collection not found"))
	})

	It("fails cleanly when the server is unreachable", func() {
		_, err := searchcmder.SearchAPI(context.Background(), "http://127.0.0.1:1", "q", "docs", 5, false)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("failed to connect"))
	})
})
