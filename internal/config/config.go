package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Status server configuration
	Server ServerConfig

	// OWS remote service configuration
	OWS OWSConfig

	// Browser / chat surface configuration
	Browser BrowserConfig

	// Polling engine configuration
	Bot BotConfig

	// Local journal configuration
	Journal JournalConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds status-server-specific configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	WebhookSecret   string   // Secret for /webhook/notice signature validation
	APIKeys         []string // Valid API keys; empty disables authentication
}

// OWSConfig holds remote-service-specific configuration
type OWSConfig struct {
	DirectoryURL    string // paged group/contact directory endpoint
	SubmitURL       string // captured-message submission endpoint
	NoticesURL      string // outbound group-info feed endpoint
	VerifyURL       string // credential verification endpoint (optional)
	CredentialsFile string // two lines: username, password
	PageSize        int
	RequestTimeout  time.Duration
	InsecureTLS     bool // skip certificate verification (legacy OWS deployments)
}

// BrowserConfig holds chat surface configuration
type BrowserConfig struct {
	Headless     bool
	ChromePath   string
	UserDataDir  string // Chrome profile dir; keeps the WhatsApp Web session across restarts
	LoginTimeout time.Duration
	TerminalQR   bool // render the login QR code in the terminal (useful headless)
}

// BotConfig holds polling engine configuration
type BotConfig struct {
	PollInterval      time.Duration
	MaxScrollAttempts int
	WatermarkFile     string
}

// JournalConfig holds local journal configuration
type JournalConfig struct {
	Path string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

// Load loads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	// Try to load .env file (ignore errors - it's optional)
	_ = godotenv.Load(".env")

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", ""),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			WebhookSecret:   getEnv("NOTICE_WEBHOOK_SECRET", ""),
			APIKeys:         getEnvAsSlice("SERVER_API_KEYS", []string{}),
		},
		OWS: OWSConfig{
			DirectoryURL:    getEnv("OWS_DIRECTORY_URL", ""),
			SubmitURL:       getEnv("OWS_SUBMIT_URL", ""),
			NoticesURL:      getEnv("OWS_NOTICES_URL", ""),
			VerifyURL:       getEnv("OWS_VERIFY_URL", ""),
			CredentialsFile: getEnv("OWS_CREDENTIALS_FILE", "ows-credentials.txt"),
			PageSize:        getEnvAsInt("OWS_PAGE_SIZE", 20),
			RequestTimeout:  getEnvAsDuration("OWS_REQUEST_TIMEOUT", 30*time.Second),
			InsecureTLS:     getEnvAsBool("OWS_INSECURE_TLS", false),
		},
		Browser: BrowserConfig{
			Headless:     getEnvAsBool("BROWSER_HEADLESS", false),
			ChromePath:   getEnv("BROWSER_CHROME_PATH", ""),
			UserDataDir:  getEnv("BROWSER_USER_DATA_DIR", "./chrome-data"),
			LoginTimeout: getEnvAsDuration("BROWSER_LOGIN_TIMEOUT", 120*time.Second),
			TerminalQR:   getEnvAsBool("BROWSER_TERMINAL_QR", true),
		},
		Bot: BotConfig{
			PollInterval:      getEnvAsDuration("BOT_POLL_INTERVAL", 10*time.Second),
			MaxScrollAttempts: getEnvAsInt("BOT_MAX_SCROLL_ATTEMPTS", 200),
			WatermarkFile:     getEnv("BOT_WATERMARK_FILE", "./last-message-data-ids.json"),
		},
		Journal: JournalConfig{
			Path: getEnv("JOURNAL_DB_PATH", "file:bridge-journal.db?_foreign_keys=on"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.OWS.DirectoryURL == "" {
		return fmt.Errorf("OWS directory URL is required")
	}

	if c.OWS.SubmitURL == "" {
		return fmt.Errorf("OWS submit URL is required")
	}

	if c.OWS.CredentialsFile == "" {
		return fmt.Errorf("OWS credentials file is required")
	}

	if c.OWS.PageSize < 1 {
		return fmt.Errorf("invalid OWS page size: %d", c.OWS.PageSize)
	}

	if c.Bot.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}

	if c.Bot.MaxScrollAttempts < 1 {
		return fmt.Errorf("max scroll attempts must be at least 1")
	}

	if c.Bot.WatermarkFile == "" {
		return fmt.Errorf("watermark file path is required")
	}

	return nil
}

// Address returns the server address in the format host:port
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Helper functions to get environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	values := make([]string, 0)
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			values = append(values, trimmed)
		}
	}

	return values
}
