// Package ragifycmder
package ragifycmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/ragify/cmd/ragify/config"
	deletecmder "github.com/papercomputeco/ragify/cmd/ragify/delete"
	ingestcmder "github.com/papercomputeco/ragify/cmd/ragify/ingest"
	initcmder "github.com/papercomputeco/ragify/cmd/ragify/init"
	querycmder "github.com/papercomputeco/ragify/cmd/ragify/query"
	searchcmder "github.com/papercomputeco/ragify/cmd/ragify/search"
	servecmder "github.com/papercomputeco/ragify/cmd/ragify/serve"
	versioncmder "github.com/papercomputeco/ragify/cmd/ragify/version"
)

const ragifyLongDesc string = `Ragify indexes your documents and answers questions about them.

Ingest documents into a collection, then query them:
  ragify ingest ./docs/*.pdf --collection docs
  ragify query "how do I rotate credentials" --collection docs

Run the HTTP API with a drop directory:
  ragify serve --upload-dir ./uploads`

const ragifyShortDesc string = "Ragify - Document Retrieval"

func NewRagifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ragify",
		Short: ragifyShortDesc,
		Long:  ragifyLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .ragify/ config directory")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(querycmder.NewQueryCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(deletecmder.NewDeleteCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
