package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	StoreDriver string
	JWT         JWTConfig
	Email       EmailConfig
	CORS        CORSConfig
	RateLimit   RateLimitConfig
	App         AppConfig
	Log         LogConfig
	Scheduler   SchedulerConfig
	Vault       VaultConfig
	Event       EventConfig
	Evaluators  EvaluatorsConfig
	Admin       AdminConfig
	Storage     StorageConfig
	Telegram    TelegramConfig
	Sheets      SheetsConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host         string
	Port         string
	TimeoutRead  time.Duration
	TimeoutWrite time.Duration
	TimeoutIdle  time.Duration
	DrainDelay   time.Duration
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsDir   string
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

// EmailConfig holds email-related configuration
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	PortalURL    string
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Duration time.Duration
	// TeamRequests is the tighter budget for access-code endpoints
	TeamRequests int
	// TrustedProxies lists the proxy IPs or CIDRs whose forwarding headers are honored
	TrustedProxies []string
}

// AppConfig holds general application configuration
type AppConfig struct {
	Env     string
	Name    string
	Version string
	// WipeConfirmation must be echoed back to run an emergency wipe
	WipeConfirmation string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	Enabled                   bool
	BackfillInterval          time.Duration
	LeaderboardExportInterval time.Duration
}

// VaultConfig holds Vault-related configuration
type VaultConfig struct {
	Address      string
	Token        string
	TransitMount string
	KeyName      string
	Enabled      bool
}

// EventConfig holds the competition rules
type EventConfig struct {
	UniqueIDPrefix     string
	UniqueIDAlphabet   string
	UniqueIDLength     int
	AccessCodeAlphabet string
	AccessCodeLength   int
	MaxAttempts        int
	Phases             []string
	TrackMatchMode     string // phrase or regex
	TrackPhrase        string
	TrackPattern       string
	MaxSubScore        float64
	LeaderboardDefault int
	LeaderboardMax     int
}

// EvaluatorsConfig holds the judge roster seeded at startup
type EvaluatorsConfig struct {
	Roster []RosterEntry
}

// RosterEntry is one configured judge
type RosterEntry struct {
	Email string
	Name  string
}

// AdminConfig holds the bootstrap admin account
type AdminConfig struct {
	Email    string
	Password string
	Name     string
}

// StorageConfig holds pass archive configuration
type StorageConfig struct {
	Backend    string // s3, file or empty to disable
	FileDir    string
	S3Bucket   string
	S3Region   string
	S3Prefix   string
	S3Endpoint string
}

// TelegramConfig holds admin alert configuration
type TelegramConfig struct {
	Enabled  bool
	BotToken string
	ChatID   int64
}

// SheetsConfig holds leaderboard export configuration
type SheetsConfig struct {
	Enabled         bool
	CredentialsFile string
	SpreadsheetID   string
	SheetName       string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// godotenv doesn't override already-set variables, so order matters
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "localhost"),
			Port:         getEnv("SERVER_PORT", "8080"),
			TimeoutRead:  getDurationEnv("SERVER_TIMEOUT_READ", 15*time.Second),
			TimeoutWrite: getDurationEnv("SERVER_TIMEOUT_WRITE", 15*time.Second),
			TimeoutIdle:  getDurationEnv("SERVER_TIMEOUT_IDLE", 60*time.Second),
			DrainDelay:   getDurationEnv("SERVER_DRAIN_DELAY", 0),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "techverse"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "techverse_db"),
			SSLMode:         getEnv("DB_SSLMODE", "prefer"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			MigrationsDir:   getEnv("DB_MIGRATIONS_DIR", "./migrations"),
		},
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", "postgres")),
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", ""),
			Expiration: getDurationEnv("JWT_EXPIRATION", 12*time.Hour),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
			PortalURL:    getEnv("PORTAL_URL", "http://localhost:3000/portal"),
		},
		CORS: CORSConfig{
			AllowedOrigins:   getSliceEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AllowedMethods:   getSliceEnv("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders:   getSliceEnv("CORS_ALLOWED_HEADERS", []string{"Accept", "Authorization", "Content-Type"}),
			ExposedHeaders:   getSliceEnv("CORS_EXPOSED_HEADERS", []string{"Link"}),
			AllowCredentials: getBoolEnv("CORS_ALLOW_CREDENTIALS", true),
			MaxAge:           getIntEnv("CORS_MAX_AGE", 300),
		},
		RateLimit: RateLimitConfig{
			Enabled:        getBoolEnv("RATE_LIMIT_ENABLED", true),
			Requests:       getIntEnv("RATE_LIMIT_REQUESTS", 100),
			Duration:       getDurationEnv("RATE_LIMIT_DURATION", 1*time.Minute),
			TeamRequests:   getIntEnv("RATE_LIMIT_TEAM_REQUESTS", 10),
			TrustedProxies: getSliceEnv("RATE_LIMIT_TRUSTED_PROXIES", nil),
		},
		App: AppConfig{
			Env:              getEnv("APP_ENV", "development"),
			Name:             getEnv("APP_NAME", "Techverse"),
			Version:          getEnv("APP_VERSION", "1.0.0"),
			WipeConfirmation: getEnv("WIPE_CONFIRMATION", "DELETE ALL DATA"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Scheduler: SchedulerConfig{
			Enabled:                   getBoolEnv("SCHEDULER_ENABLED", true),
			BackfillInterval:          getDurationEnv("SCHEDULER_BACKFILL_INTERVAL", 1*time.Hour),
			LeaderboardExportInterval: getDurationEnv("SCHEDULER_LEADERBOARD_EXPORT_INTERVAL", 15*time.Minute),
		},
		Vault: VaultConfig{
			Address:      getEnv("VAULT_ADDR", "http://localhost:8200"),
			Token:        getEnv("VAULT_TOKEN", ""),
			TransitMount: getEnv("VAULT_TRANSIT_MOUNT", "transit"),
			KeyName:      getEnv("VAULT_TRANSIT_KEY", "registration-pii"),
			Enabled:      getBoolEnv("VAULT_ENABLED", false),
		},
		Event: EventConfig{
			UniqueIDPrefix:     getEnv("UNIQUE_ID_PREFIX", "TV"),
			UniqueIDAlphabet:   getEnv("UNIQUE_ID_ALPHABET", "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"),
			UniqueIDLength:     getIntEnv("UNIQUE_ID_LENGTH", 6),
			AccessCodeAlphabet: getEnv("ACCESS_CODE_ALPHABET", "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"),
			AccessCodeLength:   getIntEnv("ACCESS_CODE_LENGTH", 8),
			MaxAttempts:        getIntEnv("ID_MAX_ATTEMPTS", 50),
			Phases:             getSliceEnv("EVENT_PHASES", []string{"idea", "design", "prototype", "final"}),
			TrackMatchMode:     getEnv("TRACK_MATCH_MODE", "phrase"),
			TrackPhrase:        getEnv("TRACK_PHRASE", "innovation challenge"),
			TrackPattern:       getEnv("TRACK_PATTERN", ""),
			MaxSubScore:        getFloatEnv("EVAL_MAX_SUB_SCORE", 20),
			LeaderboardDefault: getIntEnv("LEADERBOARD_DEFAULT_LIMIT", 50),
			LeaderboardMax:     getIntEnv("LEADERBOARD_MAX_LIMIT", 500),
		},
		Evaluators: EvaluatorsConfig{
			Roster: parseRoster(getEnv("EVALUATOR_ROSTER", "")),
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
			Name:     getEnv("ADMIN_NAME", "Administrator"),
		},
		Storage: StorageConfig{
			Backend:    strings.ToLower(getEnv("PASS_STORAGE_BACKEND", "")),
			FileDir:    getEnv("PASS_STORAGE_DIR", "./passes"),
			S3Bucket:   getEnv("PASS_S3_BUCKET", ""),
			S3Region:   getEnv("PASS_S3_REGION", "us-east-1"),
			S3Prefix:   getEnv("PASS_S3_PREFIX", "passes/"),
			S3Endpoint: getEnv("PASS_S3_ENDPOINT", ""),
		},
		Telegram: TelegramConfig{
			Enabled:  getBoolEnv("TELEGRAM_ENABLED", false),
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   getInt64Env("TELEGRAM_CHAT_ID", 0),
		},
		Sheets: SheetsConfig{
			Enabled:         getBoolEnv("SHEETS_ENABLED", false),
			CredentialsFile: getEnv("SHEETS_CREDENTIALS_FILE", "credentials.json"),
			SpreadsheetID:   getEnv("SHEETS_SPREADSHEET_ID", ""),
			SheetName:       getEnv("SHEETS_SHEET_NAME", "Leaderboard"),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseRoster parses the evaluator roster
// Format: "judge1@example.com:Judge One,judge2@example.com:Judge Two"
func parseRoster(rosterStr string) []RosterEntry {
	var roster []RosterEntry
	if rosterStr == "" {
		return roster
	}

	for _, pair := range strings.Split(rosterStr, ",") {
		email, name, _ := strings.Cut(strings.TrimSpace(pair), ":")
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			name = email
		}
		roster = append(roster, RosterEntry{Email: email, Name: name})
	}

	return roster
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Database.Password == "" && c.App.Env == "production" && c.StoreDriver == "postgres" {
		return fmt.Errorf("DB_PASSWORD is required in production")
	}
	switch c.StoreDriver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.Event.UniqueIDLength <= 0 || c.Event.AccessCodeLength <= 0 {
		return fmt.Errorf("identifier lengths must be positive")
	}
	if c.Event.MaxSubScore <= 0 {
		return fmt.Errorf("EVAL_MAX_SUB_SCORE must be positive")
	}
	if c.Event.LeaderboardDefault <= 0 || c.Event.LeaderboardMax < c.Event.LeaderboardDefault {
		return fmt.Errorf("invalid leaderboard limits")
	}
	switch c.Storage.Backend {
	case "", "file":
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("PASS_S3_BUCKET is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown PASS_STORAGE_BACKEND %q", c.Storage.Backend)
	}
	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == 0) {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are required when Telegram is enabled")
	}
	if c.Sheets.Enabled && c.Sheets.SpreadsheetID == "" {
		return fmt.Errorf("SHEETS_SPREADSHEET_ID is required when Sheets export is enabled")
	}
	for _, proxy := range c.RateLimit.TrustedProxies {
		if net.ParseIP(proxy) == nil {
			if _, _, err := net.ParseCIDR(proxy); err != nil {
				return fmt.Errorf("invalid RATE_LIMIT_TRUSTED_PROXIES entry %q", proxy)
			}
		}
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, v := range parts {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
