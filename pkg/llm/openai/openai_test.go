package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragify/pkg/llm"
	"github.com/papercomputeco/ragify/pkg/llm/openai"
)

var _ = Describe("Provider", func() {
	It("uses defaults when config is empty", func() {
		p, err := openai.NewProvider(openai.Config{})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Name()).To(Equal("openai/" + openai.DefaultModel))
	})

	It("implements llm.Provider", func() {
		var _ llm.Provider = (*openai.Provider)(nil)
	})

	It("sends a chat request with the bearer token and returns the first choice", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/v1/chat/completions"))
			Expect(r.Header.Get("Authorization")).To(Equal("Bearer sk-test"))

			var req map[string]any
			Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
			Expect(req["model"]).To(Equal("gpt-4o-mini"))

			json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{
					{"message": map[string]any{"role": "assistant", "content": "the answer"}},
				},
			})
		}))
		defer server.Close()

		p, err := openai.NewProvider(openai.Config{BaseURL: server.URL, APIKey: "sk-test"})
		Expect(err).NotTo(HaveOccurred())

		text, err := p.Complete(context.Background(), "question", llm.Params{MaxTokens: 128})
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("the answer"))
	})

	It("errors when the response carries no choices", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
		}))
		defer server.Close()

		p, err := openai.NewProvider(openai.Config{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		_, err = p.Complete(context.Background(), "question", llm.Params{})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("no choices"))
	})

	It("surfaces non-200 responses as errors", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		defer server.Close()

		p, err := openai.NewProvider(openai.Config{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		_, err = p.Complete(context.Background(), "question", llm.Params{})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("status 429"))
	})
})
