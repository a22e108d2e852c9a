package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/sitefolio/scheduling/libs/config"
)

const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Config selects and addresses the persistence backend.
type Config struct {
	Backend       string
	DatabaseURL   string
	DBMaxConns    int
	AutoMigrate   bool
	MongoURI      string
	MongoDatabase string
	KafkaBrokers  string
	CacheTTL      time.Duration
}

// ConfigFromEnv reads the backend settings shared by every binary.
func ConfigFromEnv() Config {
	return Config{
		Backend:       config.String("STORAGE_BACKEND", BackendPostgres),
		DatabaseURL:   config.String("DATABASE_URL", ""),
		DBMaxConns:    config.Int("DB_MAX_CONNS", 10),
		AutoMigrate:   config.Bool("AUTO_MIGRATE", true),
		MongoURI:      config.String("MONGO_URI", ""),
		MongoDatabase: config.String("MONGO_DATABASE", "scheduling"),
		KafkaBrokers:  config.String("KAFKA_BROKERS", ""),
		CacheTTL:      config.Seconds("AVAILABILITY_CACHE_TTL_SECONDS", 5*time.Minute),
	}
}

func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Backend)) {
	case BackendPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s backend", BackendPostgres)
		}
	case BackendMongo:
		if strings.TrimSpace(c.MongoURI) == "" {
			return fmt.Errorf("MONGO_URI is required for the %s backend", BackendMongo)
		}
		if strings.TrimSpace(c.MongoDatabase) == "" {
			return fmt.Errorf("MONGO_DATABASE is required for the %s backend", BackendMongo)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Backend)
	}
	return nil
}
