package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DatabaseMemory     = "memory"
	DatabaseMongoDB    = "mongodb"
	DatabasePostgreSQL = "postgresql"

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

type Config struct {
	// Server
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	Database DatabaseConfig
	AI       AIConfig
	WhatsApp WhatsAppConfig
	NATS     NATSConfig
	Clinic   ClinicConfig
	Security SecurityConfig

	// Metrics
	MetricsSchedule string `env:"METRICS_REPORT_SCHEDULE" envDefault:"@every 5m"`
}

type DatabaseConfig struct {
	Type     string `env:"DB_TYPE" envDefault:"memory"`
	URI      string `env:"DATABASE_URL"`
	Name     string `env:"DB_NAME" envDefault:"health_assistant"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT"`
	Username string `env:"DB_USERNAME"`
	Password string `env:"DB_PASSWORD"`

	// Connection pool settings
	MaxConnections int           `env:"DB_MAX_CONNECTIONS" envDefault:"100"`
	MinConnections int           `env:"DB_MIN_CONNECTIONS" envDefault:"10"`
	MaxIdleTime    time.Duration `env:"DB_MAX_IDLE_TIME" envDefault:"30m"`
}

type AIConfig struct {
	Provider string        `env:"AI_PROVIDER" envDefault:"gemini"`
	APIKey   string        `env:"AI_API_KEY"`
	Model    string        `env:"AI_MODEL"`
	BaseURL  string        `env:"AI_BASE_URL"`
	Timeout  time.Duration `env:"AI_TIMEOUT" envDefault:"8s"`

	// provider specific keys, used when AI_API_KEY is empty
	GoogleAPIKey string `env:"GOOGLE_API_KEY"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
}

type WhatsAppConfig struct {
	AccessToken   string `env:"WHATSAPP_ACCESS_TOKEN"`
	PhoneNumberID string `env:"WHATSAPP_PHONE_NUMBER_ID"`
	VerifyToken   string `env:"WHATSAPP_VERIFY_TOKEN"`
	AppSecret     string `env:"WHATSAPP_APP_SECRET"`
	APIVersion    string `env:"WHATSAPP_API_VERSION" envDefault:"v18.0"`
}

type NATSConfig struct {
	URL   string `env:"NATS_URL"`
	Token string `env:"NATS_TOKEN"`
}

type ClinicConfig struct {
	Name           string `env:"CLINIC_NAME" envDefault:"HealthCare Clinic"`
	Address        string `env:"CLINIC_ADDRESS" envDefault:"123 Medical Center, Downtown"`
	Phone          string `env:"CLINIC_PHONE" envDefault:"+1-234-567-8900"`
	EmergencyPhone string `env:"CLINIC_EMERGENCY_PHONE" envDefault:"911"`
	Hours          string `env:"CLINIC_HOURS" envDefault:"Mon-Fri: 9AM-6PM, Sat: 9AM-2PM"`
	Services       string `env:"CLINIC_SERVICES" envDefault:"General Medicine, Pediatrics, Cardiology, Dermatology"`
}

type SecurityConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

var cfg *Config

// Load reads .env when present, then the process environment.
func Load() error {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	c, err := Parse()
	if err != nil {
		return err
	}
	cfg = c
	return nil
}

// Parse builds and validates a Config from the current environment without
// touching the package level copy.
func Parse() (*Config, error) {
	c := &Config{}
	if err := env.Parse(c); err != nil {
		return nil, goerr.Wrap(err, "failed to parse configuration")
	}
	c.normalize()
	if err := c.validate(); err != nil {
		return nil, goerr.Wrap(err, "configuration validation failed")
	}
	return c, nil
}

// Get returns the loaded configuration. It panics if Load has not run.
func Get() *Config {
	if cfg == nil {
		panic("configuration not loaded, call Load() first")
	}
	return cfg
}

func (c *Config) normalize() {
	c.Database.Type = strings.ToLower(strings.TrimSpace(c.Database.Type))
	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))

	if c.Database.Port == "" {
		switch c.Database.Type {
		case DatabaseMongoDB:
			c.Database.Port = "27017"
		case DatabasePostgreSQL:
			c.Database.Port = "5432"
		}
	}

	if c.AI.APIKey == "" {
		switch c.AI.Provider {
		case ProviderGemini:
			c.AI.APIKey = c.AI.GoogleAPIKey
		case ProviderOpenAI:
			c.AI.APIKey = c.AI.OpenAIAPIKey
		}
	}
	if c.AI.Model == "" {
		switch c.AI.Provider {
		case ProviderGemini:
			c.AI.Model = "gemini-1.5-flash"
		case ProviderOpenAI:
			c.AI.Model = "gpt-4o-mini"
		}
	}
}

func (c *Config) validate() error {
	switch c.Database.Type {
	case DatabaseMemory:
	case DatabaseMongoDB, DatabasePostgreSQL:
		if c.Database.URI == "" && c.Database.Host == "" {
			return goerr.New("database URI or host must be provided", goerr.V("type", c.Database.Type))
		}
	default:
		return goerr.New("unsupported database type", goerr.V("type", c.Database.Type))
	}

	switch c.AI.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderNone:
	default:
		return goerr.New("unsupported AI provider", goerr.V("provider", c.AI.Provider))
	}

	if c.AI.Timeout <= 0 {
		return goerr.New("AI_TIMEOUT must be positive", goerr.V("timeout", c.AI.Timeout))
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AIEnabled reports whether a generator should be constructed. A missing key
// is not an error: the assistant runs on templates alone.
func (c *Config) AIEnabled() bool {
	return c.AI.Provider != ProviderNone && c.AI.APIKey != ""
}

func (c *Config) WhatsAppEnabled() bool {
	return c.WhatsApp.AccessToken != "" && c.WhatsApp.PhoneNumberID != ""
}

func (c *Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// BuildDatabaseURI constructs the database URI if not provided
func (c *Config) BuildDatabaseURI() string {
	if c.Database.URI != "" {
		return c.Database.URI
	}

	switch c.Database.Type {
	case DatabaseMongoDB:
		if c.Database.Username != "" && c.Database.Password != "" {
			return fmt.Sprintf("mongodb://%s:%s@%s:%s/%s",
				c.Database.Username,
				c.Database.Password,
				c.Database.Host,
				c.Database.Port,
				c.Database.Name,
			)
		}
		return fmt.Sprintf("mongodb://%s:%s/%s",
			c.Database.Host,
			c.Database.Port,
			c.Database.Name,
		)
	case DatabasePostgreSQL:
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			c.Database.Username,
			c.Database.Password,
			c.Database.Host,
			c.Database.Port,
			c.Database.Name,
		)
	default:
		return ""
	}
}
