// Package initcmder provides the init command for initializing a local
// .ragify directory in the current working directory.
package initcmder

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ragify/pkg/config"
)

const (
	dirName = ".ragify"

	remoteFetchTimeout = 10 * time.Second
)

const initLongDesc string = `Initialize a new .ragify/ directory in the current working directory.

Creates a local .ragify/ directory that takes precedence over the default
~/.ragify/ directory for configuration and other ragify operations.

With --preset, also writes a config.toml. The preset is either a named
provider preset (ollama, openai) or an HTTP(S) URL serving a config.toml
to copy, which lets a team share one index configuration.

Examples:
  ragify init
  ragify init --preset ollama
  ragify init --preset https://config.example.com/ragify/config.toml`

const initShortDesc string = "Initialize a local .ragify/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInit(preset)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", "Provider preset name or config.toml URL")

	return cmd
}

func runInit(preset string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		fmt.Printf("Already initialized: %s\n", dir)
	default:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .ragify directory: %w", err)
		}
		fmt.Printf("Initialized .ragify directory: %s\n", dir)
	}

	cfgPath := filepath.Join(dir, "config.toml")
	if preset == "" {
		// A plain re-init never clobbers an existing config.
		if _, err := os.Stat(cfgPath); err == nil {
			return nil
		}
	}

	cfg, err := resolvePreset(preset)
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Wrote config: %s\n", cfgPath)
	return nil
}

// resolvePreset turns the --preset value into a Config. Empty means the
// defaults, a URL is fetched and parsed, anything else is a named preset.
func resolvePreset(preset string) (*config.Config, error) {
	if preset == "" {
		return config.NewDefaultConfig(), nil
	}

	if strings.HasPrefix(preset, "http://") || strings.HasPrefix(preset, "https://") {
		return fetchRemoteConfig(preset)
	}

	return config.PresetConfig(preset)
}

func fetchRemoteConfig(url string) (*config.Config, error) {
	client := &http.Client{Timeout: remoteFetchTimeout}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d from %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	cfg, err := config.ParseConfigTOML(data)
	if err != nil {
		return nil, fmt.Errorf("parsing remote config: %w", err)
	}

	return cfg, nil
}
