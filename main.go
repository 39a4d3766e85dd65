package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"equity-trading-bot/config"
	"equity-trading-bot/internal/ai/llm"
	"equity-trading-bot/internal/ai/sentiment"
	"equity-trading-bot/internal/api"
	"equity-trading-bot/internal/cache"
	"equity-trading-bot/internal/database"
	"equity-trading-bot/internal/engine"
	"equity-trading-bot/internal/events"
	"equity-trading-bot/internal/ledger"
	"equity-trading-bot/internal/logging"
	"equity-trading-bot/internal/market"
	"equity-trading-bot/internal/notification"
	"equity-trading-bot/internal/risk"
	"equity-trading-bot/internal/strategy"
	"equity-trading-bot/internal/vault"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(&logging.Config{
		Level:       cfg.LoggingConfig.Level,
		Output:      cfg.LoggingConfig.Output,
		JSONFormat:  cfg.LoggingConfig.JSONFormat,
		IncludeFile: cfg.LoggingConfig.IncludeFile,
		Component:   "main",
	})
	logging.SetDefault(logger)
	logger.Info("Configuration loaded",
		"watchlist", len(cfg.TradingConfig.Watchlist),
		"live_mode", cfg.TradingConfig.LiveMode,
		"mock_market", cfg.MarketConfig.MockMode)

	// Secrets from Vault override whatever the config carries.
	if cfg.VaultConfig.Enabled {
		vaultClient, err := vault.NewClient(cfg.VaultConfig)
		if err != nil {
			logger.Fatal("Vault client init failed", "error", err.Error())
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		creds, err := vaultClient.LoadCredentials(ctx)
		cancel()
		if err != nil {
			logger.Fatal("Vault credential load failed", "error", err.Error())
		}
		if creds.BrokerToken != "" {
			cfg.MarketConfig.AccessToken = creds.BrokerToken
		}
		if creds.LLMAPIKey != "" {
			cfg.AIConfig.GeminiAPIKey = creds.LLMAPIKey
		}
		logger.Info("Credentials loaded from Vault")
	}

	eventBus := events.NewEventBus()

	var marketClient market.Client
	if cfg.MarketConfig.MockMode {
		marketClient = market.NewMockClient()
		logger.Warn("Mock market client active, no real orders will be placed")
	} else {
		marketClient = market.NewTradierClient(
			cfg.MarketConfig.AccessToken,
			cfg.MarketConfig.AccountID,
			cfg.MarketConfig.BaseURL,
		)
	}

	// Redis cache in front of the market client, when configured.
	if cfg.RedisConfig.Enabled {
		cacheService, err := cache.NewCacheService(cfg.RedisConfig, logger)
		if err != nil {
			logger.Warn("Cache disabled", "error", err.Error())
		} else {
			defer cacheService.Close()
			marketClient = cache.NewCachedClient(marketClient, cacheService)
		}
	}

	auditLogger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	var book ledger.Ledger
	if cfg.TradingConfig.LiveMode {
		book = ledger.NewLiveLedger(marketClient, auditLogger)
		logger.Info("Live ledger active, orders go to the brokerage")
	} else {
		paperBook, err := ledger.NewPaperLedger(
			cfg.TradingConfig.LedgerPath,
			cfg.TradingConfig.InitialCapital,
			auditLogger,
		)
		if err != nil {
			logger.Fatal("Paper ledger init failed", "error", err.Error())
		}
		book = paperBook
	}

	var scorer strategy.SentimentScorer
	if cfg.AIConfig.Enabled {
		llmClient := llm.NewClient(&llm.ClientConfig{
			Provider:    llm.Provider(cfg.AIConfig.LLMProvider),
			APIKey:      cfg.APIKeyForProvider(),
			Model:       cfg.AIConfig.LLMModel,
			MaxTokens:   cfg.AIConfig.MaxTokens,
			Temperature: cfg.AIConfig.Temperature,
		})
		scorer = sentiment.NewAnalyzer(&sentiment.AnalyzerConfig{
			MaxNewsItems:    5,
			CacheDuration:   time.Duration(cfg.AIConfig.CacheMinutes) * time.Minute,
			RateLimitPerMin: cfg.AIConfig.RateLimitPerMin,
		}, llmClient, logger.WithComponent("sentiment"))
	} else {
		scorer = sentiment.Disabled{}
		logger.Warn("Sentiment analysis disabled, new entries are blocked until re-enabled")
	}

	fuser := strategy.NewFuser(strategy.FuserConfig{
		RSILower:      cfg.IndicatorConfig.RSILower,
		RSIUpper:      cfg.IndicatorConfig.RSIUpper,
		MinConfidence: cfg.AIConfig.MinConfidence,
	}, scorer)

	sizer, err := risk.NewSizer(
		cfg.TradingConfig.SizingMethod,
		cfg.TradingConfig.MaxPositionNotional,
		cfg.TradingConfig.MaxPositionSizePct,
	)
	if err != nil {
		logger.Fatal("Sizer init failed", "error", err.Error())
	}

	eng := engine.New(engine.Config{
		Watchlist:     cfg.TradingConfig.Watchlist,
		SMAPeriod:     cfg.IndicatorConfig.SMAPeriod,
		RSIPeriod:     cfg.IndicatorConfig.RSIPeriod,
		HistoryDays:   cfg.TradingConfig.HistoryDays,
		StopLossPct:   cfg.TradingConfig.StopLossPct,
		TakeProfitPct: cfg.TradingConfig.TakeProfitPct,
		CycleInterval: cfg.CycleInterval(),
		WorkerCount:   cfg.TradingConfig.WorkerCount,
	}, marketClient, book, fuser, sizer, eventBus, logger)

	// Optional Postgres journal for cycles, decisions and trades.
	if cfg.DatabaseConfig.Enabled {
		db, err := database.NewDB(database.Config{
			Host:     cfg.DatabaseConfig.Host,
			Port:     cfg.DatabaseConfig.Port,
			User:     cfg.DatabaseConfig.User,
			Password: cfg.DatabaseConfig.Password,
			Database: cfg.DatabaseConfig.Database,
			SSLMode:  cfg.DatabaseConfig.SSLMode,
		})
		if err != nil {
			logger.Warn("Journal database unavailable, continuing without it", "error", err.Error())
		} else {
			defer db.Close()
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err = db.RunMigrations(ctx)
			cancel()
			if err != nil {
				logger.Warn("Journal migrations failed", "error", err.Error())
			} else {
				eng.SetRecorder(database.NewJournal(database.NewRepository(db), logger))
				logger.Info("Journal database connected")
			}
		}
	}

	if cfg.NotificationConfig.Enabled {
		notifyManager := notification.NewManager(cfg.NotificationConfig, logger)
		notifyManager.AttachBus(eventBus)
		logger.Info("Notifications enabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var server *api.Server
	if cfg.ServerConfig.Enabled {
		server = api.NewServer(
			cfg.ServerConfig,
			book,
			eng,
			marketClient,
			eventBus,
			logger,
			cfg.TradingConfig.LiveMode,
		)
		server.Start()
	}

	eng.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())

	cancel()
	eng.Stop()

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(
			context.Background(),
			time.Duration(cfg.ServerConfig.ShutdownTimeout)*time.Second,
		)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("API server shutdown failed", "error", err.Error())
		}
	}

	logger.Info("Shutdown complete")
}
