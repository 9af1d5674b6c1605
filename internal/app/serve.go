package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"factflow.app/backend/internal/cli"
	"factflow.app/backend/internal/db"
	"factflow.app/backend/internal/engagement"
	"factflow.app/backend/internal/feed"
	"factflow.app/backend/internal/generator"
	"factflow.app/backend/internal/httpapi"
	"factflow.app/backend/internal/ledger"
	"factflow.app/backend/internal/logging"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	host := fs.String("host", "0.0.0.0", "Host interface to bind")
	port := fs.Int("port", 8080, "HTTP port")
	readTimeout := fs.Duration("read-timeout", 10*time.Second, "HTTP read timeout")
	writeTimeout := fs.Duration("write-timeout", 30*time.Second, "HTTP write timeout")
	shutdownTimeout := fs.Duration("shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *port <= 0 || *port > 65535 {
		fmt.Fprintln(os.Stderr, "--port must be between 1 and 65535")
		return 2
	}

	cfg, err := loadConfigWithEnv(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	pool, err := db.NewPool(dbCtx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("serve failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	var gen feed.Generator
	if strings.TrimSpace(cfg.GeneratorAPIKey) != "" || strings.TrimSpace(cfg.GeneratorEndpoint) != "" {
		client := generator.NewClient(cfg.GeneratorEndpoint, cfg.GeneratorModel, cfg.GeneratorAPIKey, logger)
		gen = client
		logger.Info().Str("model", client.ModelName()).Msg("fact generation enabled")
	} else {
		logger.Warn().Msg("no generator configured, serving pool and fallback facts only")
	}

	tuning := ledger.DefaultTuning()
	tuning.JaccardThreshold = cfg.SimilarityThreshold

	assembler := feed.NewAssembler(pool, pool, gen, logger, feed.Options{
		PageSize:    cfg.PageSize,
		AdInterval:  cfg.AdInterval,
		MinUnseen:   cfg.MinUnseen,
		FetchLimit:  cfg.FetchLimit,
		TopicTarget: cfg.TopicTarget,
	})
	registry := feed.NewRegistry(pool, assembler, tuning, logger)
	recorder := engagement.NewRecorder(pool, pool, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		cancel()
	}()

	srv := httpapi.NewServer(pool, registry, recorder, logger, httpapi.Options{
		Host:            *host,
		Port:            *port,
		ReadTimeout:     *readTimeout,
		WriteTimeout:    *writeTimeout,
		ShutdownTimeout: *shutdownTimeout,
		AllowedOrigins:  cfg.CORSAllowedOriginsList(),
	})

	if err := srv.Start(ctx); err != nil {
		logger.Error().Err(err).Str("host", *host).Int("port", *port).Msg("server failed")
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		return 1
	}

	return 0
}
