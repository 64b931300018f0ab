// Package ingestcmder provides the `ragify ingest` CLI command.
package ingestcmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/papercomputeco/ragify/cmd/ragify/sqlitepath"
	"github.com/papercomputeco/ragify/pkg/chunker"
	"github.com/papercomputeco/ragify/pkg/config"
	"github.com/papercomputeco/ragify/pkg/document"
	embeddingutils "github.com/papercomputeco/ragify/pkg/embeddings/utils"
	"github.com/papercomputeco/ragify/pkg/eventstream"
	"github.com/papercomputeco/ragify/pkg/eventstream/channel"
	eventstreamutils "github.com/papercomputeco/ragify/pkg/eventstream/utils"
	"github.com/papercomputeco/ragify/pkg/ingest"
	"github.com/papercomputeco/ragify/pkg/logger"
	"github.com/papercomputeco/ragify/pkg/tokenizer"
	vectorutils "github.com/papercomputeco/ragify/pkg/vector/utils"
)

const ingestLongDesc string = `Ingest documents into a collection.

Each file is loaded, split into token-bounded chunks, embedded, and stored
in the collection's vector index. Documents are processed concurrently and
one document's failure never aborts its siblings. Supported formats:
PDF, DOCX, Markdown, and plain text.

A collection is created on first ingest and pins the embedder identity and
vector dimension it was created with; later ingests into the same
collection must use a compatible embedder.

Examples:
  ragify ingest ./docs/guide.pdf --collection docs
  ragify ingest ./notes/*.md --collection notes --verbose
  ragify ingest report.docx --collection docs --embedding-model all-minilm`

const ingestShortDesc string = "Ingest documents into a collection"

type ingestCommander struct {
	collection string
	verbose    bool

	encoding      string
	chunkMax      int
	chunkOverlap  int
	chunkMin      int
	workers       uint
	embProvider   string
	embTarget     string
	embModel      string
	embDims       uint
	storeProvider string
	storeTarget   string
	eventsBackend string
	eventsBrokers string
	eventsTopic   string

	configDir string
	debug     bool
	logger    *zap.Logger
	v         *viper.Viper
}

// NewIngestCmd creates the ingest cobra command.
func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest <path>...",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, []string{
				config.FlagEncoding,
				config.FlagChunkMaxTokens,
				config.FlagChunkOverlap,
				config.FlagChunkMinTokens,
				config.FlagWorkers,
				config.FlagEmbeddingProv,
				config.FlagEmbeddingTgt,
				config.FlagEmbeddingModel,
				config.FlagEmbeddingDims,
				config.FlagVectorStoreProv,
				config.FlagVectorStoreTgt,
				config.FlagEventsBackend,
				config.FlagEventsBrokers,
				config.FlagEventsTopic,
			})

			cmder.v = v
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context(), args)
		},
	}

	cmd.Flags().StringVarP(&cmder.collection, "collection", "c", "", "Target collection (required)")
	_ = cmd.MarkFlagRequired("collection")
	cmd.Flags().BoolVarP(&cmder.verbose, "verbose", "v", false, "Show per-document stage transitions")

	config.AddStringFlag(cmd, config.Flags, config.FlagEncoding, &cmder.encoding)
	config.AddIntFlag(cmd, config.Flags, config.FlagChunkMaxTokens, &cmder.chunkMax)
	config.AddIntFlag(cmd, config.Flags, config.FlagChunkOverlap, &cmder.chunkOverlap)
	config.AddIntFlag(cmd, config.Flags, config.FlagChunkMinTokens, &cmder.chunkMin)
	config.AddUintFlag(cmd, config.Flags, config.FlagWorkers, &cmder.workers)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.embProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &cmder.embTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.embModel)
	config.AddUintFlag(cmd, config.Flags, config.FlagEmbeddingDims, &cmder.embDims)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreProv, &cmder.storeProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreTgt, &cmder.storeTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsBackend, &cmder.eventsBackend)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsBrokers, &cmder.eventsBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsTopic, &cmder.eventsTopic)

	return cmd
}

func (c *ingestCommander) run(ctx context.Context, paths []string) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	v := c.v

	chunkCfg, err := config.ChunkingFromViper(v)
	if err != nil {
		return err
	}

	tok, err := tokenizer.New(v.GetString("tokenizer.encoding"))
	if err != nil {
		return fmt.Errorf("creating tokenizer: %w", err)
	}

	chk, err := chunker.New(tok, chunkCfg.ChunkerConfig())
	if err != nil {
		return fmt.Errorf("creating chunker: %w", err)
	}

	chain, err := embeddingutils.NewChainFromViper(v, c.configDir, c.logger)
	if err != nil {
		return err
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

	publisher, progress, err := c.buildPublisher(v)
	if err != nil {
		return err
	}

	pipeline, err := ingest.NewPipeline(&ingest.Config{
		Loader:     document.NewLoader(c.logger),
		Chunker:    chk,
		Chain:      chain,
		Store:      store,
		Publisher:  publisher,
		NumWorkers: v.GetUint("ingest.workers"),
		Logger:     c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}

	reports, runErr := pipeline.Run(ctx, c.collection, paths)

	// Closing the publisher ends the progress stream; wait for the
	// printer to drain before summarizing.
	_ = publisher.Close()
	if progress != nil {
		<-progress
	}
	if runErr != nil {
		return runErr
	}

	return printReports(reports)
}

// buildPublisher wires the configured events backend. With --verbose the
// channel backend is forced so stage transitions stream to stdout; the
// returned done channel closes once the printer drains.
func (c *ingestCommander) buildPublisher(v *viper.Viper) (eventstream.Publisher, <-chan struct{}, error) {
	backend := v.GetString("events.backend")

	if c.verbose || backend == "channel" {
		pub := channel.NewPublisher(channel.DefaultBuffer)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for event := range pub.Events() {
				line := fmt.Sprintf("%s %s [%s]", event.Stage, event.Filename, event.Collection)
				if event.Error != "" {
					line += " error: " + event.Error
				}
				fmt.Println(line)
			}
		}()
		return pub, done, nil
	}

	pub, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		Backend: backend,
		Brokers: config.BrokersFromViper(v),
		Topic:   v.GetString("events.topic"),
		Logger:  c.logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return pub, nil, nil
}

func printReports(reports []ingest.Report) error {
	failed := 0
	for _, r := range reports {
		if r.Err != nil {
			failed++
			fmt.Printf("failed    %s: %v\n", r.Path, r.Err)
			continue
		}
		fmt.Printf("ingested  %s (%d chunks, id %s)\n", r.Filename, r.Chunks, r.DocumentID)
	}

	fmt.Printf("\n%d ingested, %d failed\n", len(reports)-failed, failed)

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(reports))
	}
	return nil
}
