package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pivot/internal/api"
	"github.com/matzehuels/pivot/pkg/lp"
	"github.com/matzehuels/pivot/pkg/milp"
)

// shutdownGrace is how long in-flight requests get to finish on shutdown.
const shutdownGrace = 10 * time.Second

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP solve API",
		Long: `Serve starts an HTTP server exposing the solver over JSON:

  POST /solve          solve a model (engine, caps and save flag in the body)
  POST /analyze        classify a model and report sensitivity data
  GET  /sessions       list saved runs
  GET  /sessions/{id}  fetch one saved run
  GET  /healthz        liveness and version

The server shares the CLI's cache and session backends.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)

			store := c.newCache(ctx, false)
			defer store.Close()

			sessions, err := c.newStore(ctx)
			if err != nil {
				c.Logger.Warn("session store unavailable, session endpoints disabled", "err", err)
				sessions = nil
			} else {
				defer sessions.Close()
			}

			cfg := c.Config.Solver
			srv := api.NewServer(api.Options{
				Logger: c.Logger,
				Cache:  store,
				Store:  sessions,
				Solver: lp.SolverOptions{MaxIterations: cfg.MaxIterations, Tolerance: cfg.Tolerance},
				Search: milp.Options{MaxDepth: cfg.MaxDepth, MaxNodes: cfg.MaxNodes, MaxCuts: cfg.MaxCuts},
			})

			httpSrv := &http.Server{
				Addr:              addr,
				Handler:           srv.Router(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- httpSrv.ListenAndServe()
			}()

			printInfo("listening on %s", addr)
			printDetail("POST /solve, POST /analyze, GET /sessions")

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				c.Logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
				defer cancel()
				return httpSrv.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")

	return cmd
}
