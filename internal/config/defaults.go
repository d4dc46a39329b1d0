package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:            "info",
			ShopDir:             "~/.cliickbot/shops",
			DefaultShopID:       "default",
			ShopCacheTTLSeconds: 300,
		},
		Provider: ProviderConfig{
			APIBase: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
		State: StateConfig{
			Driver:   "memory",
			TTLHours: 24,
		},
		Store: StoreConfig{
			DBPath: "~/.cliickbot/assistant.db",
		},
		Channels: ChannelsConfig{
			Webhook: WebhookConfig{
				Enabled: false,
				Host:    "127.0.0.1",
				Port:    8090,
				Path:    "/webhook/messages",
			},
			Web: WebConfig{
				Enabled: false,
				Host:    "127.0.0.1",
				Port:    8080,
			},
			Telegram: TelegramConfig{
				Enabled: false,
			},
			CLI: CLIConfig{
				Enabled: true,
			},
		},
		Engine: EngineConfig{
			MaxConcurrentTurns: 8,
			HistoryLimit:       20,
		},
	}
}
