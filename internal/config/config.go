package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	MongoDB  MongoDBConfig
	JWT      JWTConfig
	Engine   EngineConfig
	Lock     LockConfig
	Redis    RedisConfig
	SMS      SMSConfig
	LogLevel string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port           string
	AllowedHosts   []string
	RequestTimeout time.Duration
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string
	Database string
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret string
	Issuer string
}

// EngineConfig holds the allocation engine settings
type EngineConfig struct {
	ClaimWindow   time.Duration
	SweepSchedule string
	SweepEnabled  bool
	Timezone      string
	LockTTL       time.Duration
	LockWait      time.Duration
}

// LockConfig selects the prize lock backend: "mongo" or "redis"
type LockConfig struct {
	Driver string
}

// RedisConfig holds Redis connection settings, used when Lock.Driver is "redis"
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SMSConfig holds SMS gateway-specific configuration
type SMSConfig struct {
	Gateway  string // "mock" or "http"
	BaseURL  string
	APIKey   string
	SenderID string
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects settings the engine cannot run with
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.Engine.ClaimWindow <= 0 {
		return fmt.Errorf("engine.claimwindow must be positive, got %s", c.Engine.ClaimWindow)
	}
	if c.Engine.LockTTL <= 0 || c.Engine.LockWait < 0 {
		return errors.New("engine lock settings must be positive")
	}
	switch c.Lock.Driver {
	case "mongo", "redis":
	default:
		return fmt.Errorf("unknown lock driver %q", c.Lock.Driver)
	}
	switch c.SMS.Gateway {
	case "mock":
	case "http":
		if c.SMS.BaseURL == "" {
			return errors.New("sms.baseurl is required for the http gateway")
		}
	default:
		return fmt.Errorf("unknown sms gateway %q", c.SMS.Gateway)
	}
	if _, err := time.LoadLocation(c.Engine.Timezone); err != nil {
		return fmt.Errorf("invalid engine.timezone: %w", err)
	}
	return nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("Server.Port", "4000")
	v.SetDefault("Server.AllowedHosts", []string{"localhost:3000"})
	v.SetDefault("Server.RequestTimeout", 30*time.Second)
	v.SetDefault("MongoDB.URI", "mongodb://localhost:27017")
	v.SetDefault("MongoDB.Database", "prizedraw")
	v.SetDefault("JWT.Secret", "")
	v.SetDefault("JWT.Issuer", "prizedraw")
	v.SetDefault("Engine.ClaimWindow", 14*24*time.Hour)
	v.SetDefault("Engine.SweepSchedule", "@hourly")
	v.SetDefault("Engine.SweepEnabled", true)
	v.SetDefault("Engine.Timezone", "UTC")
	v.SetDefault("Engine.LockTTL", 30*time.Second)
	v.SetDefault("Engine.LockWait", 5*time.Second)
	v.SetDefault("Lock.Driver", "mongo")
	v.SetDefault("Redis.Addr", "localhost:6379")
	v.SetDefault("Redis.Password", "")
	v.SetDefault("Redis.DB", 0)
	v.SetDefault("SMS.Gateway", "mock")
	v.SetDefault("SMS.BaseURL", "")
	v.SetDefault("SMS.APIKey", "")
	v.SetDefault("SMS.SenderID", "PRIZEDRAW")
	v.SetDefault("LogLevel", "info")
}
