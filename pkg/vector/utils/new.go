package vectorutils

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/ragify/pkg/vector"
	"github.com/papercomputeco/ragify/pkg/vector/memory"
	"github.com/papercomputeco/ragify/pkg/vector/pgvector"
	"github.com/papercomputeco/ragify/pkg/vector/qdrant"
	"github.com/papercomputeco/ragify/pkg/vector/sqlitevec"
)

type NewStoreOpts struct {
	// ProviderType selects the backend: "memory", "sqlite", "qdrant",
	// or "pgvector".
	ProviderType string

	// TargetURL is the server URL for qdrant, the connection string for
	// pgvector, or the database path for sqlite.
	TargetURL string

	Logger *zap.Logger
}

func NewStore(ctx context.Context, o *NewStoreOpts) (vector.Store, error) {
	switch o.ProviderType {
	case "memory":
		return memory.NewStore(), nil
	case "sqlite":
		return sqlitevec.NewStore(sqlitevec.Config{
			DBPath: o.TargetURL,
		}, o.Logger)
	case "qdrant":
		return qdrant.NewStore(qdrant.Config{
			URL: o.TargetURL,
		}, o.Logger)
	case "pgvector":
		return pgvector.NewStore(ctx, pgvector.Config{
			ConnString: o.TargetURL,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
