package pgvector_test

import (
	"context"
	"errors"
	"fmt"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/ragify/pkg/vector"
	"github.com/papercomputeco/ragify/pkg/vector/pgvector"
)

var _ = Describe("Pgvector Store", func() {
	Describe("NewStore", func() {
		It("should return an error when the connection string is empty", func() {
			_, err := pgvector.NewStore(context.Background(), pgvector.Config{}, zap.NewNop())
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("connection string is required"))
		})

		It("should create the schema on connect", func() {
			// Covered by integration tests against a real Postgres with
			// the pgvector extension installed.
			Skip("Requires running Postgres instance")
		})
	})

	Describe("Ensure", func() {
		It("surfaces a meta mismatch to a racing creator", func() {
			connString := os.Getenv("RAGIFY_TEST_POSTGRES")
			if connString == "" {
				Skip("Set RAGIFY_TEST_POSTGRES to run against a live Postgres")
			}

			ctx := context.Background()
			store, err := pgvector.NewStore(ctx, pgvector.Config{ConnString: connString}, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())
			defer store.Close()

			name := fmt.Sprintf("race-%d", GinkgoRandomSeed())
			defer func() {
				_ = store.Drop(ctx, name)
			}()

			metaA := vector.Meta{Dimension: 4, Embedder: "mock/a"}
			metaB := vector.Meta{Dimension: 8, Embedder: "mock/b"}

			errs := make(chan error, 2)
			go func() { errs <- store.Ensure(ctx, name, metaA) }()
			go func() { errs <- store.Ensure(ctx, name, metaB) }()

			// Exactly one creator wins; the other must see the mismatch
			// on its own call, not on some later one.
			var failures int
			for i := 0; i < 2; i++ {
				if err := <-errs; err != nil {
					failures++
					mismatch := errors.Is(err, vector.ErrDimensionMismatch) ||
						errors.Is(err, vector.ErrEmbedderMismatch)
					Expect(mismatch).To(BeTrue(), err.Error())
				}
			}
			Expect(failures).To(Equal(1))
		})
	})

	Describe("Interface compliance", func() {
		It("should implement vector.Store interface", func() {
			var _ vector.Store = (*pgvector.Store)(nil)
		})
	})
})
