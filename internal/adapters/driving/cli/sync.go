package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
)

var syncJSON bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one synchronisation pass",
	Long: `Runs one full pass: list the corpus, extract and chunk every supported
document, embed the chunks and upsert them into the index.

The command exits non-zero only when the run failed (the listing could not be
completed or the run was cancelled). Per-document and per-batch failures are
reported in the summary and still exit zero.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncJSON, "json", false, "print the run summary as JSON")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	app, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.close()

	ctx := cmd.Context()
	if app.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, app.RunTimeout)
		defer cancel()
	}

	summary, runErr := app.Sync.Run(ctx)
	if summary == nil {
		if runErr == nil {
			runErr = errors.New("no summary")
		}
		return fmt.Errorf("sync failed: %w", runErr)
	}

	if syncJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return err
		}
	} else {
		printSummary(cmd, summary)
	}

	if summary.Failed() {
		if runErr == nil {
			runErr = errors.New("run failed")
		}
		return fmt.Errorf("sync failed: %w", runErr)
	}
	return nil
}

func printSummary(cmd *cobra.Command, s *domain.RunSummary) {
	cmd.Printf("Run %s: %s\n", s.RunID, s.Status)
	cmd.Printf("  Documents: %d discovered, %d processed, %d skipped\n",
		s.DocumentsDiscovered, s.DocumentsProcessed, len(s.DocumentsSkipped))
	cmd.Printf("  Chunks:    %d generated, %d embedded\n", s.ChunksGenerated, s.ChunksEmbedded)
	cmd.Printf("  Records:   %d upserted, %d deleted\n", s.RecordsUpserted, s.RecordsDeleted)
	if !s.FinishedAt.IsZero() {
		cmd.Printf("  Duration:  %s\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	}
	for _, skipped := range s.DocumentsSkipped {
		name := skipped.Name
		if name == "" {
			name = skipped.ID
		}
		cmd.Printf("  skipped %s (%s)\n", name, skipped.Reason)
	}
	if len(s.Errors) > 0 {
		cmd.Printf("Errors (%d):\n", len(s.Errors))
		for _, e := range s.Errors {
			cmd.Printf("  [%s] %s\n", e.Kind, e.Message)
		}
	}
}
