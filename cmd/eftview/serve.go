package main

import (
	"os/signal"
	"syscall"

	"github.com/danmuck/eftview/internal/config"
	"github.com/danmuck/eftview/internal/eft"
	"github.com/danmuck/eftview/internal/observability"
	"github.com/danmuck/eftview/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveOptions struct {
	configFile string
	addr       string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP inspection API.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := observability.InitLogger("eftview")

		cfg := defaultServiceConfig()
		if serveOptions.configFile != "" {
			loaded, err := loadServiceConfig(serveOptions.configFile)
			if err != nil {
				return err
			}
			cfg = loaded
		}
		if serveOptions.addr != "" {
			cfg.Addr = serveOptions.addr
		}

		profile, err := config.LoadProfile(cfg.ProfilePath)
		if err != nil {
			return err
		}
		gin.SetMode(gin.ReleaseMode)
		srv := server.New(cfg.server(), eft.NewService(cfg.orchestrator(), profile))

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		logger.Info().
			Str("addr", cfg.Addr).
			Str("profile", profile.Name()).
			Dur("decode_timeout", cfg.DecodeTimeout).
			Int("decode_concurrency", cfg.DecodeConcurrency).
			Msg("eftview serve")
		return srv.Serve(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveOptions.configFile, "config", "c", "", "service config file path")
	serveCmd.Flags().StringVarP(&serveOptions.addr, "addr", "a", "", "listen address, overrides the config file")
}
