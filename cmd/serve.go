package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/paleobytes/gheval/internal/mapserver"
	"github.com/paleobytes/gheval/pkg/osrm"
	"github.com/paleobytes/gheval/pkg/wayback"
	"github.com/paleobytes/gheval/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local map server",
	Long:  "Serves the embedded map UI, the REST API, the WebSocket bridge, and the tile proxy on the configured address.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		dirs, st, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		road := osrm.NewClient(cfg.OSRM.BaseURL, osrm.WithRateLimit(cfg.OSRM.RatePerSec))

		var imagery wayback.Client
		if cfg.Wayback.ConfigURL != "" {
			imagery = wayback.NewClient(cfg.Wayback.ConfigURL)
		} else {
			zap.L().Warn("serve: wayback.config_url not set, historical imagery disabled")
		}

		srv := mapserver.New(cfg, dirs, st, road, imagery, web.Handler())
		return srv.Run(ctx)
	},
}

var servePort int

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "override server.port")
	rootCmd.AddCommand(serveCmd)
}
