package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const appName = "comproclick"

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Refiner  RefinerConfig  `mapstructure:"refiner"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Gemini   GeminiConfig   `mapstructure:"gemini"`
	WhatsApp WhatsAppConfig `mapstructure:"whatsapp"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

// StorageConfig selects the persistent-state backend: memory, postgres,
// sqlite or badger. Path is the file or directory of the embedded backends.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RefinerConfig chooses the idea-refinement provider: openai, gemini or none.
type RefinerConfig struct {
	Provider string        `mapstructure:"provider"`
	Auto     bool          `mapstructure:"auto"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Debounce time.Duration `mapstructure:"debounce"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

type WhatsAppConfig struct {
	Host   string `mapstructure:"host"`
	Number string `mapstructure:"number"`
}

// CatalogConfig points at a YAML file replacing the built-in designer options.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		if _, err := fmt.Sscanf(u.Port(), "%d", &port); err != nil {
			return DatabaseConfig{}, fmt.Errorf("invalid port %q: %w", u.Port(), err)
		}
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  sslMode,
	}, nil
}

// DefaultStoragePath is where embedded backends keep their data when no
// path is configured.
func DefaultStoragePath(driver string) string {
	switch driver {
	case "sqlite":
		return filepath.Join(xdg.DataHome, appName, "state.db")
	case "badger":
		return filepath.Join(xdg.DataHome, appName, "badger")
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", appName)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("refiner.provider", "openai")
	v.SetDefault("refiner.auto", false)
	v.SetDefault("refiner.timeout", 20*time.Second)
	v.SetDefault("refiner.debounce", time.Second)
	v.SetDefault("openai.model", "gpt-3.5-turbo")
	v.SetDefault("openai.max_tokens", 400)
	v.SetDefault("openai.temperature", 0.7)
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.max_tokens", 400)
	v.SetDefault("gemini.temperature", 0.7)
	v.SetDefault("whatsapp.host", "wa.me")
	v.SetDefault("whatsapp.number", "+573153042476")
}

// LoadConfig reads the YAML file at path, if any, then applies the
// environment. A .env file in the working directory is loaded first.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// COMPROCLICK_STORAGE_DRIVER overrides storage.driver, and so on.
	v.SetEnvPrefix(appName)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// These have no default: DATABASE_URL can pick the driver, the storage
	// path depends on it and an empty catalog path means the built-in one.
	for _, key := range []string{"storage.driver", "storage.path", "catalog.path"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Conventional variables win over the file.
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		config.Database = dbConfig
		if config.Storage.Driver == "" {
			config.Storage.Driver = "postgres"
		}
	}
	if config.Storage.Driver == "" {
		config.Storage.Driver = "sqlite"
	}
	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}

	if config.Storage.Path == "" {
		config.Storage.Path = DefaultStoragePath(config.Storage.Driver)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the settings that have a fixed set of values.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "postgres", "sqlite", "badger":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Refiner.Provider {
	case "openai", "gemini", "none":
	default:
		return fmt.Errorf("unknown refiner provider %q", c.Refiner.Provider)
	}
	if c.WhatsApp.Number == "" {
		return errors.New("whatsapp.number is required")
	}
	return nil
}
