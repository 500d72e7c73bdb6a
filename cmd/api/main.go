package main

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hamed0406/shameotron/internal/config"
	"github.com/hamed0406/shameotron/internal/httpapi"
	"github.com/hamed0406/shameotron/internal/logging"
	"github.com/hamed0406/shameotron/internal/notify"
	"github.com/hamed0406/shameotron/internal/pipeline"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	runner := pipeline.FromConfig(cfg, logger)

	api := httpapi.NewServer(logger, runner, runner.Renderer, notify.FromURLs(cfg.NotifyWebhooks))

	logger.Info("api_listen",
		zap.String("addr", cfg.Addr),
		zap.String("federation_tester", cfg.FederationTester),
		zap.Strings("dead_servers", cfg.DeadServers),
		zap.Int("rate_per_min", cfg.RatePerMin),
	)
	if err := http.ListenAndServe(cfg.Addr, api.Router(cfg.PublicAPIKeys, cfg.AllowedOrigins, cfg.RatePerMin, cfg.RateBurst)); err != nil {
		log.Fatal(err)
	}
}
