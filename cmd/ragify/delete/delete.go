// Package deletecmder provides the `ragify delete` CLI command.
package deletecmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/papercomputeco/ragify/cmd/ragify/sqlitepath"
	"github.com/papercomputeco/ragify/pkg/config"
	"github.com/papercomputeco/ragify/pkg/logger"
	vectorutils "github.com/papercomputeco/ragify/pkg/vector/utils"
)

const deleteLongDesc string = `Delete a document or an entire collection.

With --doc, removes every chunk of that document from the collection.
Without --doc, drops the whole collection including its metadata.
Deleting a document that is already gone succeeds; dropping a collection
that does not exist is an error.

Examples:
  ragify delete --collection docs --doc 4f2c1a9e-8b3d-4e7f-9c5a-1d2e3f4a5b6c
  ragify delete --collection docs`

const deleteShortDesc string = "Delete a document or an entire collection"

type deleteCommander struct {
	collection string
	documentID string

	storeProvider string
	storeTarget   string

	configDir string
	debug     bool
	logger    *zap.Logger
	v         *viper.Viper
}

// NewDeleteCmd creates the delete cobra command.
func NewDeleteCmd() *cobra.Command {
	cmder := &deleteCommander{}

	cmd := &cobra.Command{
		Use:   "delete",
		Short: deleteShortDesc,
		Long:  deleteLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, []string{
				config.FlagVectorStoreProv,
				config.FlagVectorStoreTgt,
			})

			cmder.v = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.collection, "collection", "c", "", "Target collection (required)")
	_ = cmd.MarkFlagRequired("collection")
	cmd.Flags().StringVar(&cmder.documentID, "doc", "", "Document ID to delete; omit to drop the collection")

	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreProv, &cmder.storeProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreTgt, &cmder.storeTarget)

	return cmd
}

func (c *deleteCommander) run(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	storeTarget, err := sqlitepath.Resolve(
		c.v.GetString("vector_store.provider"), c.v.GetString("vector_store.target"), c.configDir)
	if err != nil {
		return fmt.Errorf("resolving store target: %w", err)
	}

	store, err := vectorutils.NewStore(ctx, &vectorutils.NewStoreOpts{
		ProviderType: c.v.GetString("vector_store.provider"),
		TargetURL:    storeTarget,
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating vector store: %w", err)
	}
	defer store.Close()

	if c.documentID != "" {
		if err := store.DeleteDocument(ctx, c.collection, c.documentID); err != nil {
			return fmt.Errorf("deleting document: %w", err)
		}
		fmt.Printf("Deleted document %s from %s\n", c.documentID, c.collection)
		return nil
	}

	if err := store.Drop(ctx, c.collection); err != nil {
		return fmt.Errorf("dropping collection: %w", err)
	}
	fmt.Printf("Dropped collection %s\n", c.collection)
	return nil
}
