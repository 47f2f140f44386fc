// Package cli provides the docsync command-line interface.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seconds-0/slack-support-bot/internal/logger"
)

// version is set at build time.
var version = "dev"

var (
	configPath string
	envFile    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "docsync",
	Short: "Sync a document corpus into a vector index",
	Long: `docsync lists documents in a Google Drive folder (or a local directory),
extracts their text, splits it into overlapping chunks, embeds every chunk
and upserts the vectors into the configured index.

Configuration is read from docsync.toml, a .env file and DOCSYNC_*
environment variables.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./docsync.toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file (default ./.env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context, so a running pass stops cooperatively.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
