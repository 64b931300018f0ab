// Package querycmder provides the `ragify query` CLI command.
package querycmder

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/papercomputeco/ragify/cmd/ragify/sqlitepath"
	"github.com/papercomputeco/ragify/pkg/config"
	"github.com/papercomputeco/ragify/pkg/contextwin"
	embeddingutils "github.com/papercomputeco/ragify/pkg/embeddings/utils"
	"github.com/papercomputeco/ragify/pkg/llm"
	llmutils "github.com/papercomputeco/ragify/pkg/llm/utils"
	"github.com/papercomputeco/ragify/pkg/logger"
	"github.com/papercomputeco/ragify/pkg/retriever"
	"github.com/papercomputeco/ragify/pkg/tokenizer"
	vectorutils "github.com/papercomputeco/ragify/pkg/vector/utils"
)

// DefaultContextBudget bounds the assembled context in tokens.
const DefaultContextBudget = 2048

const queryLongDesc string = `Ask a question against a collection.

The question is embedded, the most similar chunks are retrieved from the
collection, assembled into a token-bounded context, and handed to the
configured completion model. The answer is printed with source citations.

Use --context-only to print the assembled context instead of calling the
completion model, e.g. to pipe it into another tool.

Examples:
  ragify query "how do I rotate credentials" --collection docs
  ragify query "error handling patterns" --collection docs --top 10 --rerank
  ragify query "deployment steps" --collection runbooks --context-only`

const queryShortDesc string = "Ask a question against a collection"

type queryCommander struct {
	question    string
	collection  string
	topK        int
	rerank      bool
	budget      int
	contextOnly bool

	embProvider   string
	embTarget     string
	embModel      string
	embDims       uint
	storeProvider string
	storeTarget   string
	llmProvider   string
	llmTarget     string
	llmModel      string
	encoding      string

	configDir string
	debug     bool
	logger    *zap.Logger
	v         *viper.Viper
}

// NewQueryCmd creates the query cobra command.
func NewQueryCmd() *cobra.Command {
	cmder := &queryCommander{}

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: queryShortDesc,
		Long:  queryLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, []string{
				config.FlagEncoding,
				config.FlagEmbeddingProv,
				config.FlagEmbeddingTgt,
				config.FlagEmbeddingModel,
				config.FlagEmbeddingDims,
				config.FlagVectorStoreProv,
				config.FlagVectorStoreTgt,
				config.FlagLLMProv,
				config.FlagLLMTgt,
				config.FlagLLMModel,
			})

			cmder.v = v
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.question = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.collection, "collection", "c", "", "Collection to query (required)")
	_ = cmd.MarkFlagRequired("collection")
	cmd.Flags().IntVarP(&cmder.topK, "top", "k", 5, "Number of chunks to retrieve")
	cmd.Flags().BoolVar(&cmder.rerank, "rerank", false, "Rerank results with a lexical scorer")
	cmd.Flags().IntVar(&cmder.budget, "budget", DefaultContextBudget, "Context budget in tokens")
	cmd.Flags().BoolVar(&cmder.contextOnly, "context-only", false, "Print the assembled context instead of answering")

	config.AddStringFlag(cmd, config.Flags, config.FlagEncoding, &cmder.encoding)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.embProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &cmder.embTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.embModel)
	config.AddUintFlag(cmd, config.Flags, config.FlagEmbeddingDims, &cmder.embDims)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreProv, &cmder.storeProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreTgt, &cmder.storeTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMProv, &cmder.llmProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMTgt, &cmder.llmTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMModel, &cmder.llmModel)

	return cmd
}

func (c *queryCommander) run(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	v := c.v

	chain, err := embeddingutils.NewChainFromViper(v, c.configDir, c.logger)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	storeTarget, err := sqlitepath.Resolve(
		v.GetString("vector_store.provider"), v.GetString("vector_store.target"), c.configDir)
	if err != nil {
		return fmt.Errorf("resolving store target: %w", err)
	}

	store, err := vectorutils.NewStore(ctx, &vectorutils.NewStoreOpts{
		ProviderType: v.GetString("vector_store.provider"),
		TargetURL:    storeTarget,
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating vector store: %w", err)
	}
	defer store.Close()

	retr := retriever.New(chain, store, nil, c.logger)

	results, err := retr.Retrieve(ctx, c.question, c.collection, c.topK, retriever.Options{
		Rerank: c.rerank,
	})
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No matching chunks found.")
		return nil
	}

	tok, err := tokenizer.New(v.GetString("tokenizer.encoding"))
	if err != nil {
		return fmt.Errorf("creating tokenizer: %w", err)
	}

	contextText, citations := contextwin.New(tok).Assemble(results, c.budget)

	if c.contextOnly {
		fmt.Println(contextText)
		printCitations(citations)
		return nil
	}

	provider, err := llmutils.NewProvider(&llmutils.NewProviderOpts{
		ProviderType: v.GetString("llm.provider"),
		TargetURL:    v.GetString("llm.target"),
		Model:        v.GetString("llm.model"),
		APIKey:       v.GetString("llm.api_key"),
	})
	if err != nil {
		return fmt.Errorf("creating completion provider: %w", err)
	}

	answer, err := provider.Complete(ctx, buildPrompt(c.question, contextText), llm.Params{})
	if err != nil {
		return fmt.Errorf("completing: %w", err)
	}

	fmt.Println(strings.TrimSpace(answer))
	printCitations(citations)
	return nil
}

// buildPrompt frames the retrieved context so the model answers from it
// rather than from its own priors.
func buildPrompt(question, contextText string) string {
	var b strings.Builder
	b.WriteString("Answer the question using only the context below. ")
	b.WriteString("If the context does not contain the answer, say so.\n\n")
	b.WriteString("Context:\n")
	b.WriteString(contextText)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\nAnswer:")
	return b.String()
}

func printCitations(citations []contextwin.Citation) {
	if len(citations) == 0 {
		return
	}

	fmt.Println("\nSources:")
	for _, cit := range citations {
		fmt.Printf("  %s#%d\n", cit.DocumentID, cit.Seq)
	}
}
