package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xaenox/comproclick-bot/internal/bot"
	"github.com/xaenox/comproclick-bot/internal/catalog"
	"github.com/xaenox/comproclick-bot/internal/pocket"
	"github.com/xaenox/comproclick-bot/internal/refiner"
	"github.com/xaenox/comproclick-bot/internal/storage"
	"github.com/xaenox/comproclick-bot/pkg/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required (set TELEGRAM_TOKEN)")
	}

	store, err := openStorage(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	cat, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		return err
	}

	assistant, err := newAssistant(ctx, cfg, logger)
	if err != nil {
		return err
	}

	b, err := bot.New(cfg.Telegram.Token, bot.Options{
		Storage:     store,
		Catalog:     cat,
		Destination: destination(cfg),
		Assistant:   assistant,
		AutoRefine:  cfg.Refiner.Auto,
		QuietPeriod: cfg.Refiner.Debounce,
	}, logger)
	if err != nil {
		return err
	}

	return b.Start(ctx)
}

func openStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	switch cfg.Storage.Driver {
	case "memory":
		logger.Info("Using in-memory storage")
		return storage.NewMemoryStorage(), nil
	case "postgres":
		logger.Info("Using PostgreSQL storage", zap.String("host", cfg.Database.Host))
		return storage.NewPostgresStorage(storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		}, logger)
	case "badger":
		logger.Info("Using Badger storage", zap.String("path", cfg.Storage.Path))
		return storage.NewBadgerStorage(cfg.Storage.Path, logger)
	default:
		logger.Info("Using SQLite storage", zap.String("path", cfg.Storage.Path))
		return storage.NewSQLiteStorage(cfg.Storage.Path, logger)
	}
}

// newAssistant returns nil when refinement is disabled or has no credentials.
func newAssistant(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*refiner.Assistant, error) {
	var r refiner.Refiner
	switch cfg.Refiner.Provider {
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			logger.Warn("OPENAI_API_KEY is not set, idea refinement disabled")
			return nil, nil
		}
		clientConfig := openai.DefaultConfig(cfg.OpenAI.APIKey)
		if cfg.OpenAI.BaseURL != "" {
			clientConfig.BaseURL = cfg.OpenAI.BaseURL
		}
		r = refiner.NewOpenAIRefinerWithConfig(clientConfig, cfg.OpenAI.Model, cfg.OpenAI.MaxTokens, cfg.OpenAI.Temperature, logger)
	case "gemini":
		if cfg.Gemini.APIKey == "" {
			logger.Warn("GEMINI_API_KEY is not set, idea refinement disabled")
			return nil, nil
		}
		gemini, err := refiner.NewGeminiRefiner(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.MaxTokens, cfg.Gemini.Temperature, logger)
		if err != nil {
			return nil, err
		}
		r = gemini
	default:
		logger.Info("Idea refinement disabled")
		return nil, nil
	}

	logger.Info("Idea refinement enabled",
		zap.String("provider", cfg.Refiner.Provider),
		zap.Bool("auto", cfg.Refiner.Auto))
	return refiner.NewAssistant(r, cfg.Refiner.Timeout, logger), nil
}

func destination(cfg *config.Config) pocket.Destination {
	return pocket.Destination{Host: cfg.WhatsApp.Host, Recipient: cfg.WhatsApp.Number}
}
