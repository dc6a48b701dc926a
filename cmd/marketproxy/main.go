package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"github.com/shanehull/annrelay/internal/ai"
	"github.com/shanehull/annrelay/internal/config"
	"github.com/shanehull/annrelay/internal/logging"
	"github.com/shanehull/annrelay/internal/market"
	"github.com/shanehull/annrelay/internal/server"
)

var (
	configPath = flag.String("config", config.DefaultPath, "(-c) Path to the YAML config file")
	envFile    = flag.String("env-file", ".env", "Path to a .env file loaded before environment overrides")
	port       = flag.Int("port", 0, "Listen port (overrides market.port)")
)

func init() {
	flag.StringVar(configPath, "c", config.DefaultPath, "(-c) Path to the YAML config file (shorthand)")
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error loading config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Market.Port = *port
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error setting up logging: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enhancer, err := ai.NewEnhancer(ctx, cfg.AI.APIKey, cfg.AI.Model, logger.Named("ai"), ai.WithTimeout(cfg.AI.Timeout))
	if err != nil {
		logger.Error("failed to set up ai client", zap.Error(err))
		os.Exit(1)
	}

	svc := market.NewService(market.Config{
		Keys:          cfg.Market.Keys,
		Timeout:       cfg.Market.Timeout,
		AlpacaDataURL: cfg.Market.AlpacaDataURL,
	}, logger.Named("market"))

	for name, ok := range svc.Providers() {
		if !ok {
			logger.Info("provider not configured, skipping", zap.String("provider", name))
		}
	}

	limiter := server.NewRateLimiter(ctx, cfg.Server.RateLimitPerMin)
	h := market.NewRouter(market.NewHandler(svc, enhancer, logger.Named("http")), limiter, logger.Named("http"))

	if err := server.Run(ctx, ":"+strconv.Itoa(cfg.Market.Port), h, logger); err != nil {
		logger.Error("market proxy exited", zap.Error(err))
		os.Exit(1)
	}
}
