// Package sqlitepath resolves the sqlite-vec database path for commands
// that were not given an explicit vector store target.
package sqlitepath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/ragify/pkg/dotdir"
)

// dbName is the default database filename inside a .ragify/ directory.
const dbName = "ragify.db"

// Resolve returns the database path for a sqlite vector store target.
// Non-sqlite providers and explicit targets pass through unchanged.
// Order of precedence for an empty target:
//  1. RAGIFY_SQLITE environment variable
//  2. First existing candidate (./ragify.db, ./.ragify/ragify.db,
//     $XDG_DATA_HOME/ragify/ragify.db, ~/.ragify/ragify.db)
//  3. A fresh <dotdir>/ragify.db, creating the directory if needed
func Resolve(provider, target, configDir string) (string, error) {
	if provider != "sqlite" || target != "" {
		return target, nil
	}

	if envPath := strings.TrimSpace(os.Getenv("RAGIFY_SQLITE")); envPath != "" {
		return envPath, nil
	}

	for _, candidate := range sqliteCandidates(configDir) {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	// No existing database anywhere; place a fresh one in the dot dir so
	// the default config works without a configured target.
	dir, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return "", fmt.Errorf("resolving database directory: %w", err)
	}

	return filepath.Join(dir, dbName), nil
}

func sqliteCandidates(configDir string) []string {
	var candidates []string

	if configDir != "" {
		candidates = append(candidates, filepath.Join(configDir, dbName))
	}

	candidates = append(candidates,
		dbName,
		filepath.Join(".ragify", dbName),
	)

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		candidates = append(candidates, filepath.Join(xdgHome, "ragify", dbName))
	}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".ragify", dbName))
	}

	return candidates
}
