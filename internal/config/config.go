package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

var (
	ErrEmptyBotToken   = errors.New("telegram bot token is required")
	ErrEmptyDBPassword = errors.New("database password is required")
	ErrInvalidCapacity = errors.New("history capacity must be positive")
)

const DefaultConfigPath = "configs/config.prod.yaml"

type Config struct {
	App      AppConfig      `yaml:"app" env-prefix:"APP_"`
	JokeAPI  JokeAPIConfig  `yaml:"joke_api" env-prefix:"JOKE_API_"`
	History  HistoryConfig  `yaml:"history" env-prefix:"HISTORY_"`
	Database DatabaseConfig `yaml:"database" env-prefix:"DB_"`
	Bot      BotConfig      `yaml:"bot" env-prefix:"BOT_"`
	NATS     NATSConfig     `yaml:"nats" env-prefix:"NATS_"`
	Health   HealthConfig   `yaml:"health" env-prefix:"HEALTH_"`
}

type AppConfig struct {
	Name        string `yaml:"name" env:"NAME" env-default:"joke-plugin"`
	Environment string `yaml:"environment" env:"ENVIRONMENT" env-default:"production"`
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat   string `yaml:"log_format" env:"LOG_FORMAT" env-default:"json"`
}

type JokeAPIConfig struct {
	URL       string        `yaml:"url" env:"URL" env-default:"https://v2.jokeapi.dev/joke/Any?type=single&safe-mode"`
	Timeout   time.Duration `yaml:"timeout" env:"TIMEOUT" env-default:"10s"`
	UserAgent string        `yaml:"user_agent" env:"USER_AGENT" env-default:"joke-plugin/1.0"`
	Fallback  string        `yaml:"fallback" env:"FALLBACK" env-default:"Why don't scientists trust atoms? Because they make up everything!"`
}

type HistoryConfig struct {
	Capacity int `yaml:"capacity" env:"CAPACITY" env-default:"10"`
}

type DatabaseConfig struct {
	Host           string `yaml:"host" env:"HOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PORT" env-default:"5432"`
	User           string `yaml:"user" env:"USER" env-default:"jokeplugin"`
	Password       string `yaml:"password" env:"PASSWORD"`
	Name           string `yaml:"name" env:"NAME" env-default:"jokeplugin"`
	MaxConnections int    `yaml:"max_connections" env:"MAX_CONNECTIONS" env-default:"10"`
	MinConnections int    `yaml:"min_connections" env:"MIN_CONNECTIONS" env-default:"2"`
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

type BotConfig struct {
	Token       string        `yaml:"token" env:"TOKEN"`
	PollTimeout time.Duration `yaml:"poll_timeout" env:"POLL_TIMEOUT" env-default:"10s"`
	MaxRetries  int           `yaml:"max_retries" env:"MAX_RETRIES" env-default:"3"`
}

type NATSConfig struct {
	Enabled    bool   `yaml:"enabled" env:"ENABLED" env-default:"true"`
	URL        string `yaml:"url" env:"URL" env-default:"nats://localhost:4222"`
	StreamName string `yaml:"stream_name" env:"STREAM_NAME" env-default:"JOKES"`
}

type HealthConfig struct {
	Port     int    `yaml:"port" env:"PORT" env-default:"8080"`
	Endpoint string `yaml:"endpoint" env:"ENDPOINT" env-default:"/healthz"`
}

// Load reads .env (if any), the YAML file at CONFIG_PATH and then the
// environment, in that order of precedence from lowest to highest.
func Load() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadClient is Load without the bot and database requirements, for tools
// that only talk to the joke API or run migrations.
func LoadClient() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}

	if cfg.History.Capacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	return cfg, nil
}

func read() (*Config, error) {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	var cfg Config

	if _, err := os.Stat(configPath); err == nil {
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from %s: %w", configPath, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from environment: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return ErrEmptyBotToken
	}

	if c.Database.Password == "" {
		return ErrEmptyDBPassword
	}

	if c.History.Capacity <= 0 {
		return ErrInvalidCapacity
	}

	return nil
}
