package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang-crypto-trader/internal/trader/config"
	"golang-crypto-trader/internal/trader/repository"
	"golang-crypto-trader/internal/trader/service"
	"golang-crypto-trader/pkg/logger"
	"golang-crypto-trader/pkg/postgres"
	"golang-crypto-trader/pkg/redis"
	"golang-crypto-trader/pkg/storage"
	"golang-crypto-trader/pkg/telegram"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the scheduled trading service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Trade Service", logger.Field("name", cfg.App.Name))

	// Initialize database
	postgresCfg := postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
	db, err := postgres.NewDB(postgresCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Initialize Redis
	redisCfg := redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}
	redisClient, err := redis.NewClient(redisCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize Redis", logger.ErrorField(err))
	}
	defer redisClient.Close()

	// Initialize object storage and Telegram notifier
	store := storage.NewRedisClient(redisClient.Client, cfg.Storage.KeyPrefix)
	notifier, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	if err != nil {
		appLogger.Fatal("Failed to initialize Telegram client", logger.ErrorField(err))
	}

	// Load trading parameters
	tradingCfg, err := config.LoadTradingConfig(ctx, store)
	if err != nil {
		appLogger.Fatal("Failed to load trading config", logger.ErrorField(err))
	}

	// Initialize repositories and services
	ohlcvRepo := repository.NewBinanceOHLCVRepository(cfg, appLogger)
	exchangeRepo := repository.NewCoincheckRepository(cfg, appLogger)
	decisionRepo := repository.NewTradeDecisionRepository(db.DB)

	datasetSvc := service.NewDatasetService(tradingCfg, appLogger, store, ohlcvRepo)
	pipelineSvc := service.NewMlPipelineService(tradingCfg, appLogger, store, datasetSvc, notifier)
	autoTradeSvc := service.NewAutoTradeService(tradingCfg, appLogger, store, datasetSvc, exchangeRepo, decisionRepo, notifier)

	// Schedule the jobs
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Scheduler.AutoTradeCron, func() {
		appLogger.Info("Auto trade job triggered")
		if _, err := autoTradeSvc.Run(ctx); err != nil {
			appLogger.Error("Auto trade job failed", logger.ErrorField(err))
		}
	}); err != nil {
		appLogger.Fatal("Invalid auto trade cron expression", logger.ErrorField(err))
	}
	if _, err := scheduler.AddFunc(cfg.Scheduler.RetrainCron, func() {
		appLogger.Info("Retrain job triggered")
		if err := pipelineSvc.RunPipeline(ctx); err != nil {
			appLogger.Error("Retrain job failed", logger.ErrorField(err))
		}
	}); err != nil {
		appLogger.Fatal("Invalid retrain cron expression", logger.ErrorField(err))
	}

	scheduler.Start()
	appLogger.Info("Scheduler started",
		logger.StringField("auto_trade_cron", cfg.Scheduler.AutoTradeCron),
		logger.StringField("retrain_cron", cfg.Scheduler.RetrainCron))

	// Wait for shutdown signal
	<-ctx.Done()

	appLogger.Info("Shutting down scheduler...")
	<-scheduler.Stop().Done()
	appLogger.Info("Scheduler exiting")
}

func main() {
	rootCmd := &cobra.Command{Use: "trade-service"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-trade.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing trade-service CLI: %s\n", err)
		os.Exit(1)
	}
}
