package main

import (
	"flag"

	"github.com/danmuck/binlens/internal/config"
	"github.com/danmuck/binlens/internal/logging"
	"github.com/danmuck/binlens/internal/observability"
	"github.com/danmuck/binlens/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "cmd/binlensd/config.toml", "binlensd TOML config")
	flag.Parse()

	observability.InitLogger("binlensd")
	cfg, err := config.LoadServerConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load binlensd config")
	}
	if lvl, ok := logging.ParseLevel(cfg.LogLevel); ok {
		zerolog.SetGlobalLevel(lvl)
	}
	log.Info().Str("path", *configPath).Msg("loaded binlensd config")

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(cfg)
	if err := srv.Serve(); err != nil {
		log.Fatal().Err(err).Msg("binlensd stopped")
	}
}
