package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	MarketConfig       MarketConfig       `json:"market"`
	TradingConfig      TradingConfig      `json:"trading"`
	IndicatorConfig    IndicatorConfig    `json:"indicators"`
	AIConfig           AIConfig           `json:"ai"`
	NotificationConfig NotificationConfig `json:"notification"`
	LoggingConfig      LoggingConfig      `json:"logging"`
	ServerConfig       ServerConfig       `json:"server"`
	DatabaseConfig     DatabaseConfig     `json:"database"`
	RedisConfig        RedisConfig        `json:"redis"`
	VaultConfig        VaultConfig        `json:"vault"`
}

// MarketConfig holds market-data / brokerage API configuration (Tradier)
type MarketConfig struct {
	AccessToken string `json:"access_token"`
	BaseURL     string `json:"base_url"`
	AccountID   string `json:"account_id"`
	Sandbox     bool   `json:"sandbox"`
	MockMode    bool   `json:"mock_mode"` // Use simulated data when the API is unavailable
}

type TradingConfig struct {
	Watchlist           []string `json:"watchlist"`
	InitialCapital      float64  `json:"initial_capital"`
	MaxPositionNotional float64  `json:"max_position_notional"` // Flat dollar cap per entry
	MaxPositionSizePct  float64  `json:"max_position_size_pct"` // Used by the percent-of-equity sizer
	SizingMethod        string   `json:"sizing_method"`         // "fixed" or "percent"
	StopLossPct         float64  `json:"stop_loss_pct"`
	TakeProfitPct       float64  `json:"take_profit_pct"`
	HistoryDays         int      `json:"history_days"` // Lookback window for the entry scan
	CycleIntervalSecs   int      `json:"cycle_interval_secs"`
	WorkerCount         int      `json:"worker_count"` // Concurrent ticker workers per scan
	LiveMode            bool     `json:"live_mode"`    // false = paper ledger, true = brokerage-backed
	LedgerPath          string   `json:"ledger_path"`  // Paper ledger snapshot file
}

type IndicatorConfig struct {
	SMAPeriod int     `json:"sma_period"`
	RSIPeriod int     `json:"rsi_period"`
	RSILower  float64 `json:"rsi_lower"`
	RSIUpper  float64 `json:"rsi_upper"`
}

// AIConfig holds LLM sentiment configuration
type AIConfig struct {
	Enabled         bool    `json:"enabled"`
	LLMProvider     string  `json:"llm_provider"` // "claude", "openai", "deepseek", or "gemini"
	ClaudeAPIKey    string  `json:"claude_api_key"`
	OpenAIAPIKey    string  `json:"openai_api_key"`
	DeepSeekAPIKey  string  `json:"deepseek_api_key"`
	GeminiAPIKey    string  `json:"gemini_api_key"`
	LLMModel        string  `json:"llm_model"`
	MaxTokens       int     `json:"max_tokens"`
	Temperature     float64 `json:"temperature"`
	MinConfidence   float64 `json:"min_confidence"` // BUY requires confidence strictly above this
	CacheMinutes    int     `json:"cache_minutes"`
	RateLimitPerMin int     `json:"rate_limit_per_min"`
}

type NotificationConfig struct {
	Enabled  bool           `json:"enabled"`
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
}

type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

type DiscordConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhook_url"`
}

type LoggingConfig struct {
	Level       string `json:"level"`        // DEBUG, INFO, WARN, ERROR
	Output      string `json:"output"`       // stdout, stderr, or file path
	JSONFormat  bool   `json:"json_format"`  // Output as JSON
	IncludeFile bool   `json:"include_file"` // Include file and line number
}

type ServerConfig struct {
	Enabled         bool   `json:"enabled"`
	Port            int    `json:"port"`
	Host            string `json:"host"`
	AllowedOrigins  string `json:"allowed_origins"`
	ReadTimeout     int    `json:"read_timeout"`
	WriteTimeout    int    `json:"write_timeout"`
	ShutdownTimeout int    `json:"shutdown_timeout"`
}

// DatabaseConfig holds the optional Postgres trade-journal configuration
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig holds the optional quote-cache configuration
type RedisConfig struct {
	Enabled    bool   `json:"enabled"`
	Addr       string `json:"addr"`
	Password   string `json:"password"`
	DB         int    `json:"db"`
	TTLSeconds int    `json:"ttl_seconds"`
}

type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`
	SecretPath string `json:"secret_path"`
	TLSEnabled bool   `json:"tls_enabled"`
	CACert     string `json:"ca_cert"`
}

// DefaultWatchlist is the set of liquid tech tickers scanned when no
// watchlist is configured.
var DefaultWatchlist = []string{
	"AAPL", "NVDA", "TSLA", "AMD", "MSFT",
	"AMZN", "GOOGL", "META", "NFLX", "INTC",
	"QCOM", "TXN", "AVGO", "MU", "CSCO",
	"ADBE", "CRM", "PYPL", "UBER", "ABNB",
}

// Default returns a configuration with the baseline trading parameters.
func Default() *Config {
	return &Config{
		MarketConfig: MarketConfig{
			Sandbox: true,
		},
		TradingConfig: TradingConfig{
			Watchlist:           append([]string(nil), DefaultWatchlist...),
			InitialCapital:      100000.0,
			MaxPositionNotional: 5000.0,
			MaxPositionSizePct:  0.05,
			SizingMethod:        "fixed",
			StopLossPct:         0.02,
			TakeProfitPct:       0.04,
			HistoryDays:         50,
			CycleIntervalSecs:   900,
			WorkerCount:         4,
			LedgerPath:          "portfolio.json",
		},
		IndicatorConfig: IndicatorConfig{
			SMAPeriod: 20,
			RSIPeriod: 14,
			RSILower:  50,
			RSIUpper:  70,
		},
		AIConfig: AIConfig{
			Enabled:         true,
			LLMProvider:     "gemini",
			LLMModel:        "gemini-2.5-flash-lite",
			MaxTokens:       1024,
			Temperature:     0.3,
			MinConfidence:   0.6,
			CacheMinutes:    15,
			RateLimitPerMin: 10,
		},
		LoggingConfig: LoggingConfig{
			Level:      "INFO",
			Output:     "stdout",
			JSONFormat: true,
		},
		ServerConfig: ServerConfig{
			Enabled:         true,
			Port:            8080,
			Host:            "0.0.0.0",
			AllowedOrigins:  "*",
			ReadTimeout:     30,
			WriteTimeout:    30,
			ShutdownTimeout: 10,
		},
		DatabaseConfig: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "trading_bot",
			Database: "trading_bot",
			SSLMode:  "disable",
		},
		RedisConfig: RedisConfig{
			Addr:       "localhost:6379",
			TTLSeconds: 60,
		},
		VaultConfig: VaultConfig{
			Address:    "http://localhost:8200",
			MountPath:  "secret",
			SecretPath: "trading-bot/api-keys",
		},
	}
}

// Load reads config.json (if present), layers .env on top of the process
// environment, and applies environment overrides on top of the file values.
// A missing config file falls back to the defaults; a malformed one is an
// error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := loadFromFile("config.json")
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default()
	} else if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations the engine cannot safely run with.
func (c *Config) Validate() error {
	if c.TradingConfig.InitialCapital <= 0 {
		return fmt.Errorf("initial_capital must be positive, got %f", c.TradingConfig.InitialCapital)
	}
	if c.TradingConfig.StopLossPct <= 0 || c.TradingConfig.TakeProfitPct <= 0 {
		return fmt.Errorf("stop_loss_pct and take_profit_pct must be positive")
	}
	if c.IndicatorConfig.SMAPeriod <= 0 || c.IndicatorConfig.RSIPeriod <= 0 {
		return fmt.Errorf("indicator periods must be positive")
	}
	if c.IndicatorConfig.RSILower >= c.IndicatorConfig.RSIUpper {
		return fmt.Errorf("rsi_lower (%f) must be below rsi_upper (%f)",
			c.IndicatorConfig.RSILower, c.IndicatorConfig.RSIUpper)
	}
	if c.TradingConfig.LiveMode && c.MarketConfig.AccessToken == "" && !c.VaultConfig.Enabled {
		return fmt.Errorf("live mode requires a brokerage access token (or Vault)")
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	// Market config
	cfg.MarketConfig.AccessToken = getEnvOrDefault("TRADIER_ACCESS_TOKEN", cfg.MarketConfig.AccessToken)
	cfg.MarketConfig.AccountID = getEnvOrDefault("TRADIER_ACCOUNT_ID", cfg.MarketConfig.AccountID)
	cfg.MarketConfig.BaseURL = getEnvOrDefault("TRADIER_BASE_URL", cfg.MarketConfig.BaseURL)
	cfg.MarketConfig.Sandbox = getEnvOrDefault("TRADIER_SANDBOX", boolString(cfg.MarketConfig.Sandbox)) == "true"
	cfg.MarketConfig.MockMode = getEnvOrDefault("MOCK_MODE", boolString(cfg.MarketConfig.MockMode)) == "true"
	// An explicit base URL wins; otherwise the sandbox flag picks the
	// environment.
	if cfg.MarketConfig.BaseURL == "" {
		if cfg.MarketConfig.Sandbox {
			cfg.MarketConfig.BaseURL = "https://sandbox.tradier.com/v1"
		} else {
			cfg.MarketConfig.BaseURL = "https://api.tradier.com/v1"
		}
	}

	// Trading config
	cfg.TradingConfig.LiveMode = getEnvOrDefault("TRADING_LIVE_MODE", boolString(cfg.TradingConfig.LiveMode)) == "true"
	cfg.TradingConfig.InitialCapital = getEnvFloatOrDefault("TRADING_INITIAL_CAPITAL", cfg.TradingConfig.InitialCapital)
	cfg.TradingConfig.MaxPositionNotional = getEnvFloatOrDefault("TRADING_MAX_POSITION_NOTIONAL", cfg.TradingConfig.MaxPositionNotional)
	cfg.TradingConfig.StopLossPct = getEnvFloatOrDefault("TRADING_STOP_LOSS_PCT", cfg.TradingConfig.StopLossPct)
	cfg.TradingConfig.TakeProfitPct = getEnvFloatOrDefault("TRADING_TAKE_PROFIT_PCT", cfg.TradingConfig.TakeProfitPct)
	cfg.TradingConfig.SizingMethod = getEnvOrDefault("TRADING_SIZING_METHOD", cfg.TradingConfig.SizingMethod)
	cfg.TradingConfig.CycleIntervalSecs = getEnvIntOrDefault("TRADING_CYCLE_INTERVAL_SECS", cfg.TradingConfig.CycleIntervalSecs)
	cfg.TradingConfig.WorkerCount = getEnvIntOrDefault("TRADING_WORKER_COUNT", cfg.TradingConfig.WorkerCount)
	cfg.TradingConfig.LedgerPath = getEnvOrDefault("TRADING_LEDGER_PATH", cfg.TradingConfig.LedgerPath)

	// AI config
	cfg.AIConfig.Enabled = getEnvOrDefault("AI_ENABLED", boolString(cfg.AIConfig.Enabled)) == "true"
	cfg.AIConfig.LLMProvider = getEnvOrDefault("AI_LLM_PROVIDER", cfg.AIConfig.LLMProvider)
	cfg.AIConfig.ClaudeAPIKey = getEnvOrDefault("ANTHROPIC_API_KEY", cfg.AIConfig.ClaudeAPIKey)
	cfg.AIConfig.OpenAIAPIKey = getEnvOrDefault("OPENAI_API_KEY", cfg.AIConfig.OpenAIAPIKey)
	cfg.AIConfig.DeepSeekAPIKey = getEnvOrDefault("DEEPSEEK_API_KEY", cfg.AIConfig.DeepSeekAPIKey)
	cfg.AIConfig.GeminiAPIKey = getEnvOrDefault("GEMINI_API_KEY", cfg.AIConfig.GeminiAPIKey)
	cfg.AIConfig.LLMModel = getEnvOrDefault("AI_LLM_MODEL", cfg.AIConfig.LLMModel)

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", cfg.LoggingConfig.Output)
	cfg.LoggingConfig.JSONFormat = getEnvOrDefault("LOG_JSON", boolString(cfg.LoggingConfig.JSONFormat)) == "true"
	cfg.LoggingConfig.IncludeFile = getEnvOrDefault("LOG_INCLUDE_FILE", boolString(cfg.LoggingConfig.IncludeFile)) == "true"

	// Server config
	cfg.ServerConfig.Enabled = getEnvOrDefault("WEB_ENABLED", boolString(cfg.ServerConfig.Enabled)) == "true"
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", cfg.ServerConfig.Port)
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", cfg.ServerConfig.Host)
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", cfg.ServerConfig.AllowedOrigins)

	// Database config
	cfg.DatabaseConfig.Enabled = getEnvOrDefault("DB_ENABLED", boolString(cfg.DatabaseConfig.Enabled)) == "true"
	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", cfg.DatabaseConfig.Host)
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", cfg.DatabaseConfig.Port)
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", cfg.DatabaseConfig.User)
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", cfg.DatabaseConfig.Database)
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", cfg.DatabaseConfig.SSLMode)

	// Redis config
	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", boolString(cfg.RedisConfig.Enabled)) == "true"
	cfg.RedisConfig.Addr = getEnvOrDefault("REDIS_ADDR", cfg.RedisConfig.Addr)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)
	cfg.RedisConfig.TTLSeconds = getEnvIntOrDefault("REDIS_TTL_SECONDS", cfg.RedisConfig.TTLSeconds)

	// Vault config
	cfg.VaultConfig.Enabled = getEnvOrDefault("VAULT_ENABLED", boolString(cfg.VaultConfig.Enabled)) == "true"
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", cfg.VaultConfig.Address)
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", cfg.VaultConfig.MountPath)
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", cfg.VaultConfig.SecretPath)
	cfg.VaultConfig.TLSEnabled = getEnvOrDefault("VAULT_TLS_ENABLED", boolString(cfg.VaultConfig.TLSEnabled)) == "true"

	// Notification config
	cfg.NotificationConfig.Enabled = getEnvOrDefault("NOTIFICATIONS_ENABLED", boolString(cfg.NotificationConfig.Enabled)) == "true"
	cfg.NotificationConfig.Telegram.Enabled = getEnvOrDefault("TELEGRAM_ENABLED", boolString(cfg.NotificationConfig.Telegram.Enabled)) == "true"
	cfg.NotificationConfig.Telegram.BotToken = getEnvOrDefault("TELEGRAM_BOT_TOKEN", cfg.NotificationConfig.Telegram.BotToken)
	cfg.NotificationConfig.Telegram.ChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", cfg.NotificationConfig.Telegram.ChatID)
	cfg.NotificationConfig.Discord.Enabled = getEnvOrDefault("DISCORD_ENABLED", boolString(cfg.NotificationConfig.Discord.Enabled)) == "true"
	cfg.NotificationConfig.Discord.WebhookURL = getEnvOrDefault("DISCORD_WEBHOOK_URL", cfg.NotificationConfig.Discord.WebhookURL)
}

// APIKeyForProvider returns the API key matching the configured LLM
// provider.
func (c *Config) APIKeyForProvider() string {
	switch c.AIConfig.LLMProvider {
	case "claude":
		return c.AIConfig.ClaudeAPIKey
	case "openai":
		return c.AIConfig.OpenAIAPIKey
	case "deepseek":
		return c.AIConfig.DeepSeekAPIKey
	default:
		return c.AIConfig.GeminiAPIKey
	}
}

// CycleInterval returns the scheduler cadence as a duration.
func (c *Config) CycleInterval() time.Duration {
	if c.TradingConfig.CycleIntervalSecs <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.TradingConfig.CycleIntervalSecs) * time.Second
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(file, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
