// Package searchcmder provides the `ragify search` CLI command, a thin
// client for the search endpoint of a running ragify API server.
package searchcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ragify/api"
	"github.com/papercomputeco/ragify/pkg/config"
)

const searchLongDesc string = `Search a collection via the ragify API.

Unlike "ragify query", which opens the vector store directly and answers
with the completion model, search talks to a running API server and prints
the raw ranked chunks. Requires "ragify serve" running somewhere reachable.

Use --quiet to output only chunk IDs, one per line, for piping.

Example:
  ragify search "how to configure logging" --collection docs
  ragify search "error handling" --collection docs --top 10 --rerank
  ragify search "rotation policy" --collection docs --api-target http://indexer:8081`

const searchShortDesc string = "Search a collection via the ragify API"

type searchCommander struct {
	query      string
	collection string
	topK       int
	rerank     bool
	quiet      bool
	apiTarget  string
}

// NewSearchCmd creates the search cobra command.
func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("api-target") {
				cmder.apiTarget = cfg.Client.APITarget
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]
			return cmder.run(cmd.Context())
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&cmder.collection, "collection", "c", "", "Collection to search (required)")
	_ = cmd.MarkFlagRequired("collection")
	cmd.Flags().IntVarP(&cmder.topK, "top", "k", 5, "Number of results to return")
	cmd.Flags().BoolVar(&cmder.rerank, "rerank", false, "Rerank results with a lexical scorer")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only chunk IDs, one per line (for piping)")
	cmd.Flags().StringVar(&cmder.apiTarget, "api-target", defaults.Client.APITarget, "Ragify API server URL")

	return cmd
}

func (c *searchCommander) run(ctx context.Context) error {
	output, err := SearchAPI(ctx, c.apiTarget, c.query, c.collection, c.topK, c.rerank)
	if err != nil {
		return err
	}

	if output.Count == 0 {
		if !c.quiet {
			fmt.Println("No results found.")
		}
		return nil
	}

	if c.quiet {
		for _, result := range output.Results {
			fmt.Println(result.ChunkID)
		}
		return nil
	}

	fmt.Printf("\nSearch results for %q in %s\n\n", output.Query, output.Collection)

	for _, result := range output.Results {
		printResult(result)
	}

	return nil
}

func printResult(result api.SearchResult) {
	preview := strings.ReplaceAll(result.Text, "\n", " ")
	if len(preview) > 80 {
		preview = preview[:77] + "..."
	}

	fmt.Printf("  #%d  score: %.4f  %s#%d\n", result.Rank, result.Score, result.DocumentID, result.Seq)
	fmt.Printf("      %s\n\n", preview)
}

// SearchAPI calls the ragify search API and returns the parsed response.
func SearchAPI(ctx context.Context, apiTarget, query, collection string, topK int, rerank bool) (*api.SearchResponse, error) {
	searchURL, err := url.Parse(apiTarget)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	searchURL.Path = "/v1/search"
	q := searchURL.Query()
	q.Set("query", query)
	q.Set("collection", collection)
	q.Set("top_k", strconv.Itoa(topK))
	if rerank {
		q.Set("rerank", "true")
	}
	searchURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ragify API at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp api.ErrorResponse
		if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil && errResp.Error != "" {
			return nil, fmt.Errorf("search failed: %s", errResp.Error)
		}
		return nil, fmt.Errorf("search failed: HTTP %d", resp.StatusCode)
	}

	var output api.SearchResponse
	if err := json.Unmarshal(body, &output); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	return &output, nil
}
