package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/redis/go-redis/v9"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"github.com/shanehull/annrelay/internal/ai"
	"github.com/shanehull/annrelay/internal/channel"
	"github.com/shanehull/annrelay/internal/channel/whatsapp"
	"github.com/shanehull/annrelay/internal/config"
	"github.com/shanehull/annrelay/internal/history"
	"github.com/shanehull/annrelay/internal/logging"
	"github.com/shanehull/annrelay/internal/notify"
	"github.com/shanehull/annrelay/internal/relay"
	"github.com/shanehull/annrelay/internal/render"
	"github.com/shanehull/annrelay/internal/server"
	"github.com/shanehull/annrelay/internal/shortlink"
)

var (
	configPath = flag.String("config", config.DefaultPath, "(-c) Path to the YAML config file")
	envFile    = flag.String("env-file", ".env", "Path to a .env file loaded before environment overrides")
	port       = flag.Int("port", 0, "Listen port (overrides PORT and server.port)")
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
		cfg.Server.Port = *port
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error setting up logging: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("relay exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	enhancer, err := ai.NewEnhancer(ctx, cfg.AI.APIKey, cfg.AI.Model, logger.Named("ai"), ai.WithTimeout(cfg.AI.Timeout))
	if err != nil {
		return fmt.Errorf("failed to set up ai enhancer: %w", err)
	}
	if !enhancer.Enabled() {
		logger.Warn("GEMINI_API_KEY not set, announcements use rule-based fallback")
	}

	store, closeStore, err := linkStore(ctx, cfg.ShortLink.RedisURL, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	hist, err := history.NewManager(cfg.History.Dir, cfg.History.Timezone, logger.Named("history"))
	if err != nil {
		return fmt.Errorf("failed to set up delivery history: %w", err)
	}
	logger.Info("delivery history loaded",
		zap.String("path", hist.HistoryFilePath()),
		zap.Int("entries", hist.Len()),
		zap.Bool("dedupe", cfg.Relay.Dedupe),
	)

	mgr := channel.NewManager(
		whatsapp.NewDialer(cfg.WhatsApp.AuthDir, logger.Named("whatsapp")),
		logger.Named("channel"),
		channel.WithReconnectDelay(cfg.WhatsApp.ReconnectDelay),
	)
	defer func() {
		if err := mgr.Close(); err != nil {
			logger.Warn("failed to close channel", zap.Error(err))
		}
	}()

	// establish the session in the background; sends wait for it
	go func() {
		if err := mgr.Connect(ctx); err != nil {
			logger.Warn("initial channel connect failed, retrying in background", zap.Error(err))
		}
	}()

	r := relay.New(relay.Deps{
		Enhancer: enhancer,
		Renderer: render.New(),
		Channel:  mgr,
		Links:    shortlink.NewService(store, cfg.ShortLink.BaseURL, logger.Named("shortlink")),
		History:  hist,
		Hub:      relay.NewHub(cfg.Relay.StreamBuffer, logger.Named("hub")),
		Mirror:   notify.NewMirror(cfg.SMTP, logger.Named("notify")),
	}, relay.Config{
		ReadyTimeout: cfg.WhatsApp.ReadyTimeout,
		Dedupe:       cfg.Relay.Dedupe,
	}, logger.Named("relay"))

	limiter := server.NewRateLimiter(ctx, cfg.Server.RateLimitPerMin)
	h := relay.NewRouter(relay.NewHandler(r, logger.Named("http")), limiter, logger.Named("http"))

	return server.Run(ctx, ":"+strconv.Itoa(cfg.Server.Port), h, logger)
}

// linkStore picks the Redis store when a URL is configured, else memory.
func linkStore(ctx context.Context, redisURL string, logger *zap.Logger) (shortlink.Store, func(), error) {
	if redisURL == "" {
		logger.Info("short links kept in memory")
		return shortlink.NewMemoryStore(), func() {}, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("short links stored in redis", zap.String("addr", opts.Addr))
	return shortlink.NewRedisStore(rdb), func() { _ = rdb.Close() }, nil
}
