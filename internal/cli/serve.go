package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/latticelab/subcell/pkg/api"
)

// serveCommand creates the serve command exposing a run directory over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		dir  string
		addr string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a finished run directory over HTTP",
		Long: `Serve exposes the artifacts of a finished run (CONFGL, CONFGD and the
per-orbit structures) as a small read-only HTTP API:

  GET /api/orbits             list every orbit
  GET /api/orbits/{id}        one orbit
  GET /api/orbits/{id}/poscar the orbit's structure file`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			server := api.NewServer(dir, c.Logger)
			httpServer := &http.Server{
				Addr:              addr,
				Handler:           server.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			go func() {
				<-cmd.Context().Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = httpServer.Shutdown(shutdownCtx)
			}()

			c.Logger.Info("serving run directory", "dir", dir, "addr", addr)
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "run directory with CONFGL/CONFGD")
	cmd.Flags().StringVarP(&addr, "addr", "a", "127.0.0.1:8411", "listen address")

	return cmd
}
