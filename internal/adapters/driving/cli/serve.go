package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	httptrigger "github.com/seconds-0/slack-support-bot/internal/adapters/driving/http"
	"github.com/seconds-0/slack-support-bot/internal/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP sync trigger",
	Long: `Starts an HTTP server exposing the sync trigger:

  POST /sync     run one pass and return the summary (GET is also accepted)
  GET  /status   the pass in progress and the last finished one
  GET  /healthz  liveness

When sync.interval is set, passes are also triggered on that interval. When
corpus.watch is set, local changes below the corpus root trigger a pass. A
trigger arriving while a pass is running gets 409 Conflict.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.close()

	addr := app.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	for name, s := range map[string]Scheduler{"scheduler": app.Scheduler, "watcher": app.Watcher} {
		if s == nil {
			continue
		}
		startBackground(ctx, name, s)
		defer func() { _ = s.Stop() }()
	}

	handler := httptrigger.NewRouter(&httptrigger.Deps{Sync: app.Sync, RunTimeout: app.RunTimeout})
	cmd.Printf("docsync listening on %s\n", addr)
	return httptrigger.Serve(ctx, addr, handler)
}

// startBackground runs s until ctx is done or it is stopped.
func startBackground(ctx context.Context, name string, s Scheduler) {
	go func() {
		if err := s.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error(name+" stopped", "error", err)
		}
	}()
}
