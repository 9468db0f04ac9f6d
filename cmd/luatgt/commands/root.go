// Package commands defines all Cobra CLI commands for the luatgt binary.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/luatgt/luatgt-go/internal/audit"
	"github.com/luatgt/luatgt-go/internal/config"
	"github.com/luatgt/luatgt-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "luatgt",
		Short: "luatgt — semantic search over Vietnamese traffic law",
		Long: `luatgt is a retrieval engine for Vietnamese road-traffic legislation.

It chunks legal documents along sentence boundaries, embeds them with a
multilingual model, and serves similarity search with article-level
citations (e.g. "Điều 5, Nghị định 100/2019/NĐ-CP"). An optional chat
model turns retrieved passages into grounded Vietnamese answers.

Embedding and answer providers are selected via environment variables
or a YAML config file (~/.luatgt/config.yaml).
See 'luatgt --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// A local .env is a convenience for development; absence is fine.
			_ = godotenv.Load()

			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			loadedPath, err := config.Load(configPath, log)
			if err != nil {
				return err
			}

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.luatgt/config.yaml)")

	root.AddCommand(
		NewIndexCmd(),
		NewSearchCmd(),
		NewAskCmd(),
		NewStatsCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return root
}
