package cli

import (
	"github.com/spf13/cobra"

	"github.com/reqlint/reqlint/internal/server"
	"github.com/reqlint/reqlint/pkg/lint"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr     string
		noChecks bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an HTTP server exposing lint and check",
		Long: `Run an HTTP server exposing lint and check.

Endpoints:
  GET  /healthz    liveness and version
  POST /v1/lint    lint the manifest in the request body
  POST /v1/check   verify the manifest against the registry (?refresh=1 bypasses the cache)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := c.loadConfig("")
			if err != nil {
				return err
			}

			srv := server.New(lint.New(cfg), nil, c.Logger)
			if !noChecks {
				checker, err := c.newChecker(ctx, cfg)
				if err != nil {
					return err
				}
				srv = server.New(lint.New(cfg), checker, c.Logger)
			}

			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&noChecks, "no-registry-checks", false, "disable /v1/check (no registry access)")

	return cmd
}
