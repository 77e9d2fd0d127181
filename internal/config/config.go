package config

import (
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL string `mapstructure:"database_url"`
	RedisURL    string `mapstructure:"redis_url"`
	Port        string `mapstructure:"port"`

	// Cleartext left empty means secret-bearing values are base64 encoded.
	Cleartext string `mapstructure:"cleartext"`

	// Timezone the business hours are expressed in (IANA name).
	Timezone string `mapstructure:"timezone"`

	TLS      TLSConfig      `mapstructure:"tls"`
	Log      LogConfig      `mapstructure:"log"`
	AMI      AMIConfig      `mapstructure:"ami"`
	Notifier NotifierConfig `mapstructure:"notifier"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Compat   CompatConfig   `mapstructure:"compat"`
	Workers  WorkersConfig  `mapstructure:"workers"`
}

type TLSConfig struct {
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AMIConfig locates the Asterisk Manager Interface.
type AMIConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// NotifierConfig selects where business-hours facts are mirrored:
// "ami", "redis", "both" or "none".
type NotifierConfig struct {
	Driver         string        `mapstructure:"driver"`
	RedisPrefix    string        `mapstructure:"redis_prefix"`
	ResyncInterval time.Duration `mapstructure:"resync_interval"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type CompatConfig struct {
	LegacyStatusCodes bool `mapstructure:"legacy_status_codes"`
}

type WorkersConfig struct {
	KeepaliveInterval time.Duration `mapstructure:"keepalive_interval"`
}

// App holds the global config instance
var App Config

// LoadConfig loads configuration from file and environment variables
func LoadConfig(path string) error {
	// Auto-load .env file if present (local development)
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env file")
	}

	v := viper.New()

	v.SetDefault("port", "8080")
	v.SetDefault("cleartext", "true")
	v.SetDefault("timezone", "Local")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("ami.port", 5038)
	v.SetDefault("ami.timeout", "10s")
	v.SetDefault("notifier.driver", "ami")
	v.SetDefault("notifier.redis_prefix", "astdb:")
	v.SetDefault("notifier.resync_interval", "5m")
	v.SetDefault("auth.token_ttl", "12h")
	v.SetDefault("compat.legacy_status_codes", true)
	v.SetDefault("workers.keepalive_interval", "60s")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Bind standard environment variables (Docker/deploy compatibility)
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("redis_url", "REDIS_URL")
	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("cleartext", "CLEARTEXT")
	_ = v.BindEnv("timezone", "TIMEZONE")

	_ = v.BindEnv("tls.cert_file", "TLS_CERT_FILE")
	_ = v.BindEnv("tls.key_file", "TLS_KEY_FILE")

	_ = v.BindEnv("log.level", "LOG_LEVEL")
	_ = v.BindEnv("log.format", "LOG_FORMAT")

	_ = v.BindEnv("ami.host", "AMI_HOST")
	_ = v.BindEnv("ami.port", "AMI_PORT")
	_ = v.BindEnv("ami.username", "AMI_USERNAME")
	_ = v.BindEnv("ami.password", "AMI_PASSWORD")

	_ = v.BindEnv("notifier.driver", "NOTIFIER_DRIVER")
	_ = v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("compat.legacy_status_codes", "LEGACY_STATUS_CODES")

	v.AutomaticEnv()

	// 1. Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and environment variables")
		} else {
			return err
		}
	} else {
		log.Printf("Loaded config from: %s", v.ConfigFileUsed())
	}

	// 2. Unmarshal into struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return err
	}

	// 3. Decode secrets that were written base64 encoded
	if err := cfg.decodeSecrets(); err != nil {
		return err
	}

	App = cfg
	return nil
}

// decodeSecrets base64-decodes the secret-bearing values unless Cleartext is set.
func (c *Config) decodeSecrets() error {
	if c.Cleartext != "" {
		return nil
	}

	fields := []struct {
		name  string
		value *string
	}{
		{"database_url", &c.DatabaseURL},
		{"redis_url", &c.RedisURL},
		{"ami.username", &c.AMI.Username},
		{"ami.password", &c.AMI.Password},
		{"auth.jwt_secret", &c.Auth.JWTSecret},
	}
	for _, f := range fields {
		if *f.value == "" {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(*f.value)
		if err != nil {
			return fmt.Errorf("config %s is not valid base64: %w", f.name, err)
		}
		*f.value = string(decoded)
	}
	return nil
}

// Location resolves Timezone, falling back to the process zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}
