package ingestcmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	ingestcmder "github.com/papercomputeco/ragify/cmd/ragify/ingest"
)

var _ = Describe("NewIngestCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := ingestcmder.NewIngestCmd()
		Expect(cmd.Use).To(Equal("ingest <path>..."))
	})

	It("requires at least one path argument", func() {
		cmd := ingestcmder.NewIngestCmd()
		err := cmd.Args(cmd, []string{})
		Expect(err).To(HaveOccurred())
	})

	It("accepts multiple path arguments", func() {
		cmd := ingestcmder.NewIngestCmd()
		err := cmd.Args(cmd, []string{"a.pdf", "b.md", "c.txt"})
		Expect(err).NotTo(HaveOccurred())
	})

	It("marks --collection as required", func() {
		cmd := ingestcmder.NewIngestCmd()
		f := cmd.Flags().Lookup("collection")
		Expect(f).NotTo(BeNil())
		Expect(f.Annotations).To(HaveKey(cobra.BashCompOneRequiredFlag))
	})

	It("exposes chunking and embedding flags with config defaults", func() {
		cmd := ingestcmder.NewIngestCmd()

		maxTokens := cmd.Flags().Lookup("chunk-max-tokens")
		Expect(maxTokens).NotTo(BeNil())
		Expect(maxTokens.DefValue).To(Equal("512"))

		model := cmd.Flags().Lookup("embedding-model")
		Expect(model).NotTo(BeNil())
		Expect(model.DefValue).To(Equal("nomic-embed-text"))

		workers := cmd.Flags().Lookup("workers")
		Expect(workers).NotTo(BeNil())
		Expect(workers.DefValue).To(Equal("3"))
	})
})
