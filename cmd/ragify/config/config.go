// Package configcmder provides the config command for managing persistent
// ragify configuration stored in the .ragify/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent ragify configuration.

Configuration is stored as config.toml in the .ragify/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values, and RAGIFY_* environment variables take precedence over
the file.

Keys use dotted notation matching the TOML section structure:
  tokenizer.encoding,
  chunking.max_tokens, chunking.overlap_tokens, chunking.min_tokens,
  embedding.provider, embedding.target, embedding.model,
  embedding.dimensions, embedding.api_key,
  vector_store.provider, vector_store.target,
  llm.provider, llm.target, llm.model, llm.api_key,
  ingest.workers, ingest.upload_dir,
  events.backend, events.brokers, events.topic,
  api.listen, client.api_target

Use subcommands to get, set, or list configuration values:
  ragify config set <key> <value>    Set a configuration value
  ragify config get <key>            Get a configuration value
  ragify config list                 List all configuration values

Examples:
  ragify config set embedding.model nomic-embed-text
  ragify config set vector_store.provider qdrant
  ragify config get chunking.max_tokens
  ragify config list`

const configShortDesc string = "Manage persistent ragify configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
