package diag

import (
	"github.com/spf13/cobra"

	serverrun "github.com/delimatsuo/headhunter-sub005/internal/cmd/server"
	pebblestore "github.com/delimatsuo/headhunter-sub005/internal/storage/pebble"
)

// newServeCommand constructs the `serve` command.
func newServeCommand(a *app) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the checks over HTTP and gRPC health",
		Long: `Runs the checks behind an HTTP API (POST /v1/checks/<check>, GET /v1/history)
and a gRPC health endpoint that reflects the local state. Stops on SIGINT or SIGTERM.`,
		RunE: a.runNoState(func(cmd *cobra.Command, _ []string) error {
			httpAddr, _ := cmd.Flags().GetString("http")
			grpcAddr, _ := cmd.Flags().GetString("grpc")
			if httpAddr == "" {
				httpAddr = a.cfg.Server.HTTPAddr
			}
			if grpcAddr == "" {
				grpcAddr = a.cfg.Server.GRPCAddr
			}
			return serverrun.Run(cmd.Context(), serverrun.Options{
				DataDir:        a.cfg.DataDir,
				HTTPAddr:       httpAddr,
				GRPCAddr:       grpcAddr,
				Fsync:          pebblestore.ParseFsyncMode(a.cfg.Fsync),
				Config:         a.cfg,
				Logger:         a.logger,
				ServiceOptions: a.opts,
			})
		}),
	}
	serveCmd.Flags().String("http", "", "HTTP listen address (default from config)")
	serveCmd.Flags().String("grpc", "", "gRPC listen address (default from config)")
	return serveCmd
}
