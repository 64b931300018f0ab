// Package servecmder provides the serve command for running the ragify API
// server and upload watcher.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/papercomputeco/ragify/api"
	"github.com/papercomputeco/ragify/cmd/ragify/sqlitepath"
	"github.com/papercomputeco/ragify/pkg/chunker"
	"github.com/papercomputeco/ragify/pkg/config"
	"github.com/papercomputeco/ragify/pkg/document"
	"github.com/papercomputeco/ragify/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/ragify/pkg/embeddings/utils"
	"github.com/papercomputeco/ragify/pkg/eventstream"
	"github.com/papercomputeco/ragify/pkg/eventstream/channel"
	eventstreamutils "github.com/papercomputeco/ragify/pkg/eventstream/utils"
	"github.com/papercomputeco/ragify/pkg/ingest"
	"github.com/papercomputeco/ragify/pkg/logger"
	"github.com/papercomputeco/ragify/pkg/retriever"
	"github.com/papercomputeco/ragify/pkg/tokenizer"
	"github.com/papercomputeco/ragify/pkg/vector"
	vectorutils "github.com/papercomputeco/ragify/pkg/vector/utils"
	"github.com/papercomputeco/ragify/watcher"
)

const serveLongDesc string = `Run the ragify API server.

Serves search, collection listing, health, and per-document ingest status
over HTTP. With --upload-dir, also watches that directory and ingests any
file dropped into it once writes settle.

Examples:
  ragify serve
  ragify serve --listen :9090
  ragify serve --upload-dir ./uploads --upload-collection uploads
  ragify serve --events-backend kafka --events-brokers kafka-1:9092`

const serveShortDesc string = "Run the ragify API server"

type ServeCommander struct {
	listen           string
	uploadCollection string

	encoding      string
	chunkMax      int
	chunkOverlap  int
	chunkMin      int
	workers       uint
	uploadDir     string
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

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, []string{
				config.FlagAPIListen,
				config.FlagEncoding,
				config.FlagChunkMaxTokens,
				config.FlagChunkOverlap,
				config.FlagChunkMinTokens,
				config.FlagWorkers,
				config.FlagUploadDir,
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
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			return cmder.run()
		},
	}

	cmd.Flags().StringVar(&cmder.uploadCollection, "upload-collection", "uploads", "Collection dropped files are ingested into")

	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagEncoding, &cmder.encoding)
	config.AddIntFlag(cmd, config.Flags, config.FlagChunkMaxTokens, &cmder.chunkMax)
	config.AddIntFlag(cmd, config.Flags, config.FlagChunkOverlap, &cmder.chunkOverlap)
	config.AddIntFlag(cmd, config.Flags, config.FlagChunkMinTokens, &cmder.chunkMin)
	config.AddUintFlag(cmd, config.Flags, config.FlagWorkers, &cmder.workers)
	config.AddStringFlag(cmd, config.Flags, config.FlagUploadDir, &cmder.uploadDir)
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

func (c *ServeCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	v := c.v

	// Create shared store and embedding chain
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

	chain, err := embeddingutils.NewChainFromViper(v, c.configDir, c.logger)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	retr := retriever.New(chain, store, nil, c.logger)

	// The channel publisher feeds the document status endpoints; the
	// configured backend (kafka or nop) additionally gets every event.
	statusPub := channel.NewPublisher(channel.DefaultBuffer)

	backendPub, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		Backend: v.GetString("events.backend"),
		Brokers: config.BrokersFromViper(v),
		Topic:   v.GetString("events.topic"),
		Logger:  c.logger,
	})
	if err != nil {
		return err
	}

	publisher := eventstream.Multi{statusPub, backendPub}
	defer publisher.Close()

	// Create API server
	apiConfig := api.Config{
		ListenAddr: v.GetString("api.listen"),
	}
	apiServer := api.NewServer(apiConfig, store, chain, retr, c.logger)

	go apiServer.WatchEvents(statusPub.Events())

	// Channel to capture errors from goroutines
	errChan := make(chan error, 2)

	// Start API server in goroutine
	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Start upload watcher if configured
	if uploadDir := v.GetString("ingest.upload_dir"); uploadDir != "" {
		w, err := c.createWatcher(v, uploadDir, store, chain, publisher)
		if err != nil {
			return err
		}

		go func() {
			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				errChan <- fmt.Errorf("watcher error: %w", err)
			}
		}()
	}

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
		return apiServer.Shutdown()
	}
}

// createWatcher builds the ingestion pipeline for the upload directory.
// It shares the server's store and chain so uploads land in the same index
// the search endpoints read.
func (c *ServeCommander) createWatcher(
	v *viper.Viper,
	uploadDir string,
	store vector.Store,
	chain *embeddings.Chain,
	publisher eventstream.Publisher,
) (*watcher.Watcher, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}

	chunkCfg, err := config.ChunkingFromViper(v)
	if err != nil {
		return nil, err
	}

	tok, err := tokenizer.New(v.GetString("tokenizer.encoding"))
	if err != nil {
		return nil, fmt.Errorf("creating tokenizer: %w", err)
	}

	chk, err := chunker.New(tok, chunkCfg.ChunkerConfig())
	if err != nil {
		return nil, fmt.Errorf("creating chunker: %w", err)
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
		return nil, fmt.Errorf("creating pipeline: %w", err)
	}

	c.logger.Info("watching upload directory",
		zap.String("dir", uploadDir),
		zap.String("collection", c.uploadCollection),
	)

	return watcher.New(watcher.Config{
		Dir:        uploadDir,
		Collection: c.uploadCollection,
	}, pipeline, c.logger)
}
