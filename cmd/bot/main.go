package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lara-bot/internal/bot"
	"lara-bot/internal/common/config"
	"lara-bot/internal/common/logger"
	attendance "lara-bot/internal/features/attendance/service"
	"lara-bot/internal/features/audit"
	"lara-bot/internal/features/catalog"
	"lara-bot/internal/features/interaction"
	apphttp "lara-bot/internal/http"
	"lara-bot/internal/platform/discord"
	"lara-bot/internal/platform/forte"
	"lara-bot/internal/platform/redis"
)

const serviceName = "lara"

func main() {
	startedAt := time.Now()

	cfg, err := config.Load()
	if err != nil {
		logger.Init(serviceName, false)
		logger.Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Init(serviceName, cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	boxes, err := catalog.NewStore(cfg.Catalog.Path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Catalog.Path).Msg("Failed to load box catalog")
	}

	forteClient := forte.NewClient(forte.Options{
		BaseURL:   cfg.Forte.BaseURL,
		Token:     cfg.Forte.Token,
		Timeout:   cfg.Forte.Timeout,
		RateLimit: cfg.Forte.RateLimit,
		RateBurst: cfg.Forte.RateBurst,
	})

	probes := map[string]apphttp.Probe{}

	// Receipts always go to the log; the stream is added when Redis is configured.
	receipts := audit.NewRecorder(nil, cfg.Redis.ReceiptStream)
	if cfg.Redis.Addr != "" {
		rdb, err := redis.Open(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		receipts = audit.NewRecorder(rdb, cfg.Redis.ReceiptStream)
		probes["redis"] = rdb.Ready
		logger.Info().Str("addr", cfg.Redis.Addr).Str("stream", cfg.Redis.ReceiptStream).Msg("Receipt stream enabled")
	}

	coord := interaction.NewCoordinator()
	session, err := discord.New(cfg.Discord.Token, coord)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Discord session")
	}
	probes["discord"] = func(context.Context) error {
		if !session.Connected() {
			return errors.New("gateway not connected")
		}
		return nil
	}

	registry, err := bot.NewRegistryFromDeps(&bot.Deps{
		Config:     cfg,
		Messenger:  session,
		Prompter:   interaction.NewPrompter(coord, session, cfg.Interaction.Timeout),
		Forte:      forteClient,
		Attendance: attendance.NewAttendanceService(forteClient, boxes),
		Catalog:    boxes,
		Receipts:   receipts,
		StartedAt:  startedAt,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build command registry")
	}

	health := apphttp.NewServer(apphttp.Options{
		Addr:      cfg.HTTP.Addr,
		Service:   serviceName,
		StartedAt: startedAt,
		Probes:    probes,
		Debug:     cfg.Debug,
	})
	go func() {
		if err := health.Start(); err != nil {
			logger.Error().Err(err).Msg("Health server stopped")
			stop()
		}
	}()

	if err := session.Start(ctx, registry); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Discord")
	}
	logger.Info().Strs("prefixes", cfg.Discord.Prefixes).Int("commands", len(registry.Commands())).Msg("Bot is running")

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := health.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Health server shutdown failed")
	}
	if err := session.Close(); err != nil {
		logger.Warn().Err(err).Msg("Discord session close failed")
	}
	logger.Info().Msg("Bot stopped")
}
