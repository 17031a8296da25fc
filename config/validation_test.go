package config

import (
	"testing"
)

func TestValidatorRequireNonEmpty(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		wantError bool
	}{
		{
			name:      "non-empty value",
			value:     "valid",
			wantError: false,
		},
		{
			name:      "empty value",
			value:     "",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			v.RequireNonEmpty("test_field", tt.value)
			hasError := v.HasErrors()
			if hasError != tt.wantError {
				t.Errorf("HasErrors() = %v, want %v", hasError, tt.wantError)
			}
		})
	}
}

func TestValidatorValidateFloatRange(t *testing.T) {
	tests := []struct {
		name      string
		value     float64
		wantError bool
	}{
		{
			name:      "inside range",
			value:     0.4,
			wantError: false,
		},
		{
			name:      "lower bound",
			value:     0.0,
			wantError: false,
		},
		{
			name:      "above range",
			value:     2.5,
			wantError: true,
		},
		{
			name:      "below range",
			value:     -0.1,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			v.ValidateFloatRange("test_field", tt.value, 0.0, 2.0)
			hasError := v.HasErrors()
			if hasError != tt.wantError {
				t.Errorf("HasErrors() = %v, want %v", hasError, tt.wantError)
			}
		})
	}
}

func TestValidateEventStoreConfig(t *testing.T) {
	tests := []struct {
		name      string
		host      string
		port      int
		user      string
		password  string
		dbName    string
		sslMode   string
		dimension int
		wantError bool
	}{
		{
			name:      "valid config",
			host:      "localhost",
			port:      5432,
			user:      "postgres",
			password:  "secret",
			dbName:    "daytrip",
			sslMode:   "disable",
			dimension: 1536,
			wantError: false,
		},
		{
			name:      "missing host",
			host:      "",
			port:      5432,
			user:      "postgres",
			password:  "secret",
			dbName:    "daytrip",
			sslMode:   "disable",
			dimension: 1536,
			wantError: true,
		},
		{
			name:      "bad ssl mode",
			host:      "localhost",
			port:      5432,
			user:      "postgres",
			password:  "secret",
			dbName:    "daytrip",
			sslMode:   "maybe",
			dimension: 1536,
			wantError: true,
		},
		{
			name:      "zero dimension",
			host:      "localhost",
			port:      5432,
			user:      "postgres",
			password:  "secret",
			dbName:    "daytrip",
			sslMode:   "disable",
			dimension: 0,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEventStoreConfig(tt.host, tt.port, tt.user, tt.password, tt.dbName, tt.sslMode, tt.dimension)
			if (err != nil) != tt.wantError {
				t.Errorf("error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestValidateRetrievalConfig(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		iters     int
		threshold float64
		wantError bool
	}{
		{
			name:      "valid config",
			limit:     5,
			iters:     3,
			threshold: 0.4,
			wantError: false,
		},
		{
			name:      "zero limit",
			limit:     0,
			iters:     3,
			threshold: 0.4,
			wantError: true,
		},
		{
			name:      "threshold out of range",
			limit:     5,
			iters:     3,
			threshold: 3.0,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRetrievalConfig(tt.limit, tt.iters, tt.threshold)
			if (err != nil) != tt.wantError {
				t.Errorf("error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestValidatePlanningConfig(t *testing.T) {
	if err := ValidatePlanningConfig(1, 10); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
	if err := ValidatePlanningConfig(0, 10); err == nil {
		t.Errorf("zero planning iterations accepted")
	}
	if err := ValidatePlanningConfig(1, 0); err == nil {
		t.Errorf("zero tool iterations accepted")
	}
}

func TestConfigFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	if cfg.EventStore.Backend != BackendMemory {
		t.Errorf("event store backend = %q, want memory", cfg.EventStore.Backend)
	}
	if cfg.Retrieval.Limit != 5 || cfg.Retrieval.MaxIterations != 3 {
		t.Errorf("retrieval defaults drifted: %+v", cfg.Retrieval)
	}
	if cfg.Planning.MaxIterations != 1 || cfg.Planning.ToolIterations != 10 {
		t.Errorf("planning defaults drifted: %+v", cfg.Planning)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("DAYTRIP_EVENT_STORE", "pg")
	t.Setenv("DAYTRIP_PG_HOST", "db.internal")
	t.Setenv("DAYTRIP_RETRIEVE_LIMIT", "8")
	t.Setenv("DAYTRIP_SIMILARITY_THRESHOLD", "0.7")

	cfg := FromEnv()
	if cfg.EventStore.Backend != BackendPG || cfg.EventStore.Host != "db.internal" {
		t.Errorf("event store overrides lost: %+v", cfg.EventStore)
	}
	if cfg.Retrieval.Limit != 8 || cfg.Retrieval.SimilarityThreshold != 0.7 {
		t.Errorf("retrieval overrides lost: %+v", cfg.Retrieval)
	}
}

func TestConfigValidateRejectsUnknownBackend(t *testing.T) {
	cfg := FromEnv()
	cfg.Memcheck.Backend = "cassandra"
	if err := cfg.Validate(); err == nil {
		t.Errorf("unknown memcheck backend accepted")
	}
}

func TestConfigValidateSkipsMemoryBackends(t *testing.T) {
	cfg := FromEnv()
	// Empty connection details must not matter while everything is in memory.
	cfg.EventStore.Host = ""
	cfg.History.URI = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("memory backends should skip connection validation: %v", err)
	}
}
