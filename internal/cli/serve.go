package cli

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/maltedev/fidget-scraper/internal/api"
	"github.com/maltedev/fidget-scraper/internal/jobs"
	"github.com/maltedev/fidget-scraper/internal/queue"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the catalog HTTP API",
		Long: `Serves the catalog groups, manual entry and scrape runs over HTTP.

Submitted runs are queued and executed one at a time by a background worker.`,
		Example: `  # Start on SERVER_PORT (default 8080)
  fidget-scraper serve

  # Start on a custom port
  fidget-scraper serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if port != "" {
				a.cfg.Server.Port = port
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			p, err := a.scrapePipeline(ctx)
			if err != nil {
				return err
			}

			q := queue.NewInMemoryQueue()
			manager := jobs.NewManager(q, p, a.logger)
			workerDone := make(chan struct{})
			go func() {
				manager.StartWorker(ctx)
				close(workerDone)
			}()

			handlers := api.NewHandlers(a.store, p, manager, a.logger)
			server := &http.Server{
				Addr: net.JoinHostPort(a.cfg.Server.Host, a.cfg.Server.Port),
				Handler: api.NewRouter(handlers, api.RouterOptions{
					AllowedOrigins: a.cfg.Server.AllowedOrigins,
				}),
				ReadTimeout:  a.cfg.Server.ReadTimeout,
				WriteTimeout: a.cfg.Server.WriteTimeout,
			}

			serverErr := make(chan error, 1)
			go func() {
				a.logger.Info("server starting", "addr", server.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			select {
			case <-ctx.Done():
			case err = <-serverErr:
			}

			a.logger.Info("shutting down server...")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer shutdownCancel()
			if serr := server.Shutdown(shutdownCtx); serr != nil {
				a.logger.Error("server shutdown failed", "error", serr)
			}

			_ = q.Close()
			cancel()
			<-workerDone

			a.logger.Info("server stopped")
			return err
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides SERVER_PORT)")

	return cmd
}
