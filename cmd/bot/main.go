package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"campaign-bot-backend/internal/bot"
	"campaign-bot-backend/internal/common/config"
	"campaign-bot-backend/internal/common/logger"
	"campaign-bot-backend/internal/features/broadcast"
	campaignredis "campaign-bot-backend/internal/features/campaign/repository/redis"
	fulfillredis "campaign-bot-backend/internal/features/fulfillment/repository/redis"
	fulfillment "campaign-bot-backend/internal/features/fulfillment/service"
	userredis "campaign-bot-backend/internal/features/user/repository/redis"
	withdrawal "campaign-bot-backend/internal/features/withdrawal/service"
	httpserver "campaign-bot-backend/internal/http"
	redisplatform "campaign-bot-backend/internal/platform/redis"
	"campaign-bot-backend/internal/platform/telegram"
	tonplatform "campaign-bot-backend/internal/platform/ton"
	"campaign-bot-backend/internal/platform/twitter"
)

func main() {
	cfg := config.Load()
	logger.Init("campaign-bot", cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := redisplatform.Open(ctx, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rdb.Close()

	tonClient, err := tonplatform.Connect(ctx, cfg.Ton.ConfigURL, cfg.Ton.WalletSeed, cfg.Ton.JettonMaster)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to TON")
	}

	tgClient := telegram.NewClient(cfg.Telegram.BotToken)
	twitterClient := twitter.NewClient(
		cfg.Twitter.ConsumerKey,
		cfg.Twitter.ConsumerSecret,
		cfg.Server.PublicBaseURL+"/auth/callback",
	)

	userRepo := userredis.NewUserRepository(rdb)
	itemRepo := campaignredis.NewItemRepository(rdb)
	fulfillRepo := fulfillredis.NewFulfillmentRepository(rdb)

	grantTTL := time.Duration(cfg.Fulfillment.GrantTTLMinutes) * time.Minute

	policy, err := fulfillment.ParseRateLimitPolicy(cfg.Fulfillment.RateLimitPolicy)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid rate limit policy")
	}

	handshake := fulfillment.NewHandshake(fulfillRepo, twitterClient, grantTTL)
	executor := fulfillment.NewExecutor(twitterClient, policy, grantTTL)
	notifier := bot.NewNotifier(tgClient)
	orchestrator := fulfillment.NewOrchestrator(itemRepo, userRepo, fulfillRepo, handshake, executor, notifier)

	withdrawals := withdrawal.NewProcessor(userRepo, tonClient)

	redisOpt := asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()
	publisher := broadcast.NewPublisher(asynqClient)

	conversations := bot.NewConversationStore(rdb, grantTTL)
	botRouter := bot.NewRouter(cfg, tgClient, userRepo, itemRepo, orchestrator, withdrawals, publisher, conversations)

	// Broadcast worker. Fan-out is serialized; the per-message ceiling
	// is enforced inside the handler.
	asynqServer := asynq.NewServer(redisOpt, asynq.Config{Concurrency: 1})
	mux := asynq.NewServeMux()
	mux.Handle(broadcast.TypeAnnounceItem, broadcast.NewHandler(itemRepo, userRepo, tgClient, cfg.Broadcast.MessagesPerSecond))
	go func() {
		if err := asynqServer.Run(mux); err != nil {
			logger.Fatal().Err(err).Msg("broadcast worker stopped")
		}
	}()

	engine := httpserver.NewRouter(cfg, botRouter, orchestrator)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: engine,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	if err := tgClient.SetWebhook(ctx, cfg.Server.PublicBaseURL+"/telegram/webhook"); err != nil {
		logger.Fatal().Err(err).Msg("failed to register telegram webhook")
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
	asynqServer.Shutdown()
}
