// Package config loads application settings from the environment and
// validates them before anything connects anywhere.
package config

import (
	"os"
	"strconv"
	"time"
)

// Backend names a storage implementation choice.
const (
	BackendMemory = "memory"
	BackendPG     = "pg"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// EventStore configures where events and their embeddings live.
type EventStore struct {
	Backend   string // memory | pg
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	SSLMode   string
	Dimension int
	TableName string
}

// Memcheck configures the repeated-question checker.
type Memcheck struct {
	Backend  string // memory | redis
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// History configures the planning-run audit store.
type History struct {
	Backend    string // memory | mongo
	URI        string
	Database   string
	Collection string
}

// Retrieval configures the Self-RAG loop.
type Retrieval struct {
	Limit               int
	MaxIterations       int
	SimilarityThreshold float64
}

// Planning configures the planner/critic loop.
type Planning struct {
	MaxIterations  int
	ToolIterations int
}

// Config is the full application configuration.
type Config struct {
	EventStore EventStore
	Memcheck   Memcheck
	History    History
	Retrieval  Retrieval
	Planning   Planning

	DisableTelemetry bool
}

// FromEnv builds a Config from DAYTRIP_* environment variables, falling back
// to local-development defaults.
func FromEnv() *Config {
	return &Config{
		EventStore: EventStore{
			Backend:   envString("DAYTRIP_EVENT_STORE", BackendMemory),
			Host:      envString("DAYTRIP_PG_HOST", "127.0.0.1"),
			Port:      envInt("DAYTRIP_PG_PORT", 5432),
			User:      envString("DAYTRIP_PG_USER", "postgres"),
			Password:  envString("DAYTRIP_PG_PASSWORD", "postgres"),
			DBName:    envString("DAYTRIP_PG_DBNAME", "daytrip"),
			SSLMode:   envString("DAYTRIP_PG_SSLMODE", "disable"),
			Dimension: envInt("DAYTRIP_EMBEDDING_DIMENSION", 1536),
			TableName: envString("DAYTRIP_PG_TABLE", "events"),
		},
		Memcheck: Memcheck{
			Backend:  envString("DAYTRIP_MEMCHECK", BackendMemory),
			Addr:     envString("DAYTRIP_REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("DAYTRIP_REDIS_PASSWORD"),
			DB:       envInt("DAYTRIP_REDIS_DB", 0),
			Prefix:   envString("DAYTRIP_REDIS_PREFIX", "daytrip:memcheck:"),
			TTL:      envDuration("DAYTRIP_MEMCHECK_TTL", 24*time.Hour),
		},
		History: History{
			Backend:    envString("DAYTRIP_HISTORY", BackendMemory),
			URI:        envString("DAYTRIP_MONGO_URI", "mongodb://localhost:27017"),
			Database:   envString("DAYTRIP_MONGO_DB", "daytrip"),
			Collection: envString("DAYTRIP_MONGO_COLLECTION", "planning_runs"),
		},
		Retrieval: Retrieval{
			Limit:               envInt("DAYTRIP_RETRIEVE_LIMIT", 5),
			MaxIterations:       envInt("DAYTRIP_SELFRAG_MAX_ITERATIONS", 3),
			SimilarityThreshold: envFloat("DAYTRIP_SIMILARITY_THRESHOLD", 0.4),
		},
		Planning: Planning{
			MaxIterations:  envInt("DAYTRIP_PLANNING_MAX_ITERATIONS", 1),
			ToolIterations: envInt("DAYTRIP_TOOL_MAX_ITERATIONS", 10),
		},
		DisableTelemetry: envBool("DAYTRIP_TELEMETRY_DISABLE", false),
	}
}

// Validate checks the configuration, skipping sections whose backend keeps
// everything in memory.
func (c *Config) Validate() error {
	v := NewValidator()
	v.ValidateOneOf("eventStore.backend", c.EventStore.Backend, BackendMemory, BackendPG)
	v.ValidateOneOf("memcheck.backend", c.Memcheck.Backend, BackendMemory, BackendRedis)
	v.ValidateOneOf("history.backend", c.History.Backend, BackendMemory, BackendMongo)
	if err := v.Error(); err != nil {
		return err
	}

	if c.EventStore.Backend == BackendPG {
		if err := ValidateEventStoreConfig(
			c.EventStore.Host, c.EventStore.Port, c.EventStore.User,
			c.EventStore.Password, c.EventStore.DBName, c.EventStore.SSLMode,
			c.EventStore.Dimension,
		); err != nil {
			return err
		}
	}
	if c.Memcheck.Backend == BackendRedis {
		if err := ValidateMemcheckConfig(c.Memcheck.Addr, c.Memcheck.DB, c.Memcheck.Prefix); err != nil {
			return err
		}
	}
	if c.History.Backend == BackendMongo {
		if err := ValidateHistoryConfig(c.History.URI, c.History.Database, c.History.Collection); err != nil {
			return err
		}
	}
	if err := ValidateRetrievalConfig(
		c.Retrieval.Limit, c.Retrieval.MaxIterations, c.Retrieval.SimilarityThreshold,
	); err != nil {
		return err
	}
	return ValidatePlanningConfig(c.Planning.MaxIterations, c.Planning.ToolIterations)
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
