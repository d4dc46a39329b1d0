package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bhonepyisone/cliick-assistant/internal/assistant"
	"github.com/bhonepyisone/cliick-assistant/internal/bus"
	"github.com/bhonepyisone/cliick-assistant/internal/channel"
	"github.com/bhonepyisone/cliick-assistant/internal/config"
	"github.com/bhonepyisone/cliick-assistant/internal/provider"
	"github.com/bhonepyisone/cliick-assistant/internal/shop"
	"github.com/bhonepyisone/cliick-assistant/internal/state"
	"github.com/bhonepyisone/cliick-assistant/internal/store"
)

var (
	version    = "0.3.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "cliickbot",
		Short: "Storefront chat assistant daemon",
		Long:  "cliickbot answers a storefront's customer chats: browsing, orders, bookings, and FAQs across webhook, web widget, Telegram, and CLI channels.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.cliickbot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config and shop directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			shopDir := config.ExpandPath(cfg.General.ShopDir)
			if err := os.MkdirAll(shopDir, 0o755); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath, "shop_dir", shopDir)
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon with all enabled channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}
}

func chatCmd() *cobra.Command {
	var shopID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with a shop's assistant in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				logger.Warn("config not found, using defaults", "err", err)
				cfg = config.Defaults()
				cfg.General.ShopDir = config.ExpandPath(cfg.General.ShopDir)
				cfg.Store.DBPath = config.ExpandPath(cfg.Store.DBPath)
			}
			if shopID != "" {
				cfg.General.DefaultShopID = shopID
			}
			// Chat mode forces the CLI channel only.
			cfg.Channels = config.ChannelsConfig{CLI: config.CLIConfig{Enabled: true}}
			return runServe(cfg)
		},
	}
	cmd.Flags().StringVar(&shopID, "shop", "", "shop ID to chat with (default from config)")
	return cmd
}

func runServe(cfg *config.Config) error {
	setLogLevel(cfg.General.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	messageBus := bus.New(100, logger)
	defer messageBus.Close()

	shopSource := shop.NewSource(cfg.General.ShopDir, logger)
	shops := shop.NewCache(shopSource, time.Duration(cfg.General.ShopCacheTTLSeconds)*time.Second, logger)
	shops.StartRefresh(ctx, 0)

	commerce, err := store.NewSQLiteStore(cfg.Store.DBPath, logger)
	if err != nil {
		return fmt.Errorf("open commerce store: %w", err)
	}
	defer commerce.Close()

	states, err := state.NewStore(state.Driver(cfg.State.Driver), state.Options{
		RedisAddr:     cfg.State.RedisAddr,
		RedisPassword: cfg.State.RedisPassword,
		RedisDB:       cfg.State.RedisDB,
		TTL:           time.Duration(cfg.State.TTLHours) * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}

	responder := provider.NewOpenAI(provider.OpenAIConfig{
		APIKey:  cfg.Provider.APIKey,
		APIBase: cfg.Provider.APIBase,
		Model:   cfg.Provider.Model,
		Logger:  logger,
	})

	orch := assistant.New(assistant.Config{
		Shops:        shops,
		Store:        commerce,
		States:       states,
		Responder:    responder,
		Bus:          messageBus,
		HistoryLimit: cfg.Engine.HistoryLimit,
		Logger:       logger,
	})

	engine := assistant.NewEngine(assistant.EngineConfig{
		Orchestrator: orch,
		Bus:          messageBus,
		Logger:       logger,
		Concurrency:  cfg.Engine.MaxConcurrentTurns,
	})
	go engine.Run(ctx)

	channels := buildChannels(cfg)
	if len(channels) == 0 {
		return fmt.Errorf("no channels enabled")
	}

	errCh := make(chan error, len(channels))
	for _, ch := range channels {
		ch := ch
		logger.Info("starting channel", "name", ch.Name())
		go func() {
			if err := ch.Start(ctx, messageBus); err != nil {
				errCh <- fmt.Errorf("channel %s: %w", ch.Name(), err)
			} else {
				errCh <- nil
			}
		}()
	}

	// The daemon lives until a channel fails or a signal arrives. A clean
	// CLI exit (user typed /quit) also ends the run.
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return nil
	case err := <-errCh:
		return err
	}
}

func buildChannels(cfg *config.Config) []channel.Channel {
	var channels []channel.Channel
	if cfg.Channels.Webhook.Enabled {
		channels = append(channels, channel.NewWebhook(channel.WebhookConfig{
			Host:          cfg.Channels.Webhook.Host,
			Port:          cfg.Channels.Webhook.Port,
			Path:          cfg.Channels.Webhook.Path,
			Secret:        cfg.Channels.Webhook.Secret,
			DefaultShopID: cfg.General.DefaultShopID,
			Logger:        logger,
		}))
	}
	if cfg.Channels.Web.Enabled {
		channels = append(channels, channel.NewWeb(channel.WebConfig{
			Host:          cfg.Channels.Web.Host,
			Port:          cfg.Channels.Web.Port,
			DefaultShopID: cfg.General.DefaultShopID,
			Logger:        logger,
		}))
	}
	if cfg.Channels.Telegram.Enabled {
		channels = append(channels, channel.NewTelegram(channel.TelegramChannelConfig{
			Token:  cfg.Channels.Telegram.Token,
			ShopID: cfg.General.DefaultShopID,
			Logger: logger,
		}))
	}
	if cfg.Channels.CLI.Enabled {
		channels = append(channels, channel.NewCLI(channel.CLIChannelConfig{
			ShopID: cfg.General.DefaultShopID,
			Logger: logger,
		}))
	}
	return channels
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon configuration and provider health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				logger.Info("config", "path", cfgPath, "loaded", false)
				return nil
			}
			logger.Info("config", "path", cfgPath, "loaded", true)
			logger.Info("version", "version", version)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			responder := provider.NewOpenAI(provider.OpenAIConfig{
				APIKey:  cfg.Provider.APIKey,
				APIBase: cfg.Provider.APIBase,
				Model:   cfg.Provider.Model,
				Logger:  logger,
			})
			if err := responder.Healthy(ctx); err != nil {
				logger.Warn("provider", "name", responder.Name(), "healthy", false, "err", err)
			} else {
				logger.Info("provider", "name", responder.Name(), "healthy", true)
			}

			src := shop.NewSource(cfg.General.ShopDir, logger)
			if _, err := src.Load(ctx, cfg.General.DefaultShopID); err != nil {
				logger.Warn("default shop snapshot", "shop_id", cfg.General.DefaultShopID, "ok", false, "err", err)
			} else {
				logger.Info("default shop snapshot", "shop_id", cfg.General.DefaultShopID, "ok", true)
			}
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. channels.webhook.port)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. engine.maxConcurrentTurns 16)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	return cmd
}

func setLogLevel(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
}
