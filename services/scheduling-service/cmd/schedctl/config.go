package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sitefolio/scheduling/libs/runtime"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/app"
)

// cliConfig is read from flags first, then the environment, then an optional .env file.
type cliConfig struct {
	Backend       string `mapstructure:"STORAGE_BACKEND"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`
	Timezone      string `mapstructure:"BUSINESS_TIMEZONE"`
	GRPCAddr      string `mapstructure:"GRPC_ADDR"`
	KafkaBrokers  string `mapstructure:"KAFKA_BROKERS"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`
}

var flagKeys = map[string]string{
	"backend":        "STORAGE_BACKEND",
	"database-url":   "DATABASE_URL",
	"mongo-uri":      "MONGO_URI",
	"mongo-database": "MONGO_DATABASE",
	"timezone":       "BUSINESS_TIMEZONE",
	"grpc-addr":      "GRPC_ADDR",
	"kafka-brokers":  "KAFKA_BROKERS",
	"log-level":      "LOG_LEVEL",
}

func newViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	envFile := ".env"
	if f := flags.Lookup("env-file"); f != nil {
		envFile = f.Value.String()
	}

	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("STORAGE_BACKEND", app.BackendPostgres)
	v.SetDefault("MONGO_DATABASE", "scheduling")
	v.SetDefault("GRPC_ADDR", "localhost:9094")
	v.SetDefault("LOG_LEVEL", "warn")

	for _, key := range []string{"DATABASE_URL", "MONGO_URI", "BUSINESS_TIMEZONE"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}
	for flag, key := range flagKeys {
		if f := flags.Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind --%s: %w", flag, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil && !missingConfig(err) {
		return nil, fmt.Errorf("read %s: %w", envFile, err)
	}
	return v, nil
}

// missingConfig reports whether err only says the optional dotenv file is absent.
func missingConfig(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

func loadConfig(v *viper.Viper) (cliConfig, error) {
	var cfg cliConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cliConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	return cfg, nil
}

// backendConfig maps the CLI settings onto the shared backend config. Commands
// never run migrations implicitly; that is what `schedctl migrate` is for.
func (c cliConfig) backendConfig() app.Config {
	return app.Config{
		Backend:       c.Backend,
		DatabaseURL:   c.DatabaseURL,
		DBMaxConns:    2,
		MongoURI:      c.MongoURI,
		MongoDatabase: c.MongoDatabase,
	}
}

func (c cliConfig) location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func (c cliConfig) logLevel() slog.Level {
	return runtime.ParseLevel(c.LogLevel)
}
