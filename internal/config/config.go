// Package config provides configuration management for Conline.
// It loads settings from environment variables with the CONLINE_ prefix
// and provides sensible defaults for all configuration options.
//
// An optional YAML config file can be layered on top of the environment:
// LoadConfigFile reads the file and overrides any value it sets.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the Conline backend.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Inference InferenceConfig
	Capture   CaptureConfig
	Security  SecurityConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    // Server port (default: 7373)
	Host string // Server host (default: 127.0.0.1)
}

// StorageConfig contains database and storage configuration.
type StorageConfig struct {
	StorageEngine string // Storage engine type: sqlite, postgres (default: sqlite)
	DataPath      string // Path to data directory for sqlite (default: ./data)
	PostgresDSN   string // Connection string when StorageEngine is postgres
}

// InferenceConfig contains emotion-classifier endpoint configuration.
type InferenceConfig struct {
	BaseURL string        // Classifier base URL (default: http://127.0.0.1:5000)
	Timeout time.Duration // Per-call timeout (default: 5s)
}

// CaptureConfig contains frame-capture pipeline configuration.
type CaptureConfig struct {
	// Cadence is the fixed interval between scheduled frame captures.
	// It is also the de facto retry interval: a failed capture or
	// classification is simply retried by the next tick.
	Cadence time.Duration // default: 3s

	StreamURL    string // MJPEG stream URL for zero-copy frame grabs
	SnapshotURL  string // Still-image snapshot URL (first fallback)
	TransportURL string // RTC transport frame endpoint (last fallback)
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	SecurityMode string // Security mode: development, production (default: development)
	APIToken     string // API authentication token
}

// fileConfig mirrors Config with optional fields for the YAML overlay.
// Only values present in the file override the environment.
type fileConfig struct {
	Server struct {
		Port *int    `yaml:"port"`
		Host *string `yaml:"host"`
	} `yaml:"server"`
	Storage struct {
		StorageEngine *string `yaml:"engine"`
		DataPath      *string `yaml:"data_path"`
		PostgresDSN   *string `yaml:"postgres_dsn"`
	} `yaml:"storage"`
	Inference struct {
		BaseURL *string `yaml:"base_url"`
		Timeout *string `yaml:"timeout"`
	} `yaml:"inference"`
	Capture struct {
		Cadence      *string `yaml:"cadence"`
		StreamURL    *string `yaml:"stream_url"`
		SnapshotURL  *string `yaml:"snapshot_url"`
		TransportURL *string `yaml:"transport_url"`
	} `yaml:"capture"`
	Security struct {
		SecurityMode *string `yaml:"mode"`
		APIToken     *string `yaml:"api_token"`
	} `yaml:"security"`
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. All environment variables use the CONLINE_ prefix.
func LoadConfig() (*Config, error) {
	return buildBaseConfig(), nil
}

// LoadConfigFile loads configuration from the environment and then applies
// the YAML file at path on top. Values absent from the file keep their
// environment (or default) values.
func LoadConfigFile(path string) (*Config, error) {
	cfg := buildBaseConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	if fc.Server.Port != nil {
		cfg.Server.Port = *fc.Server.Port
	}
	if fc.Server.Host != nil {
		cfg.Server.Host = *fc.Server.Host
	}
	if fc.Storage.StorageEngine != nil {
		cfg.Storage.StorageEngine = *fc.Storage.StorageEngine
	}
	if fc.Storage.DataPath != nil {
		cfg.Storage.DataPath = *fc.Storage.DataPath
	}
	if fc.Storage.PostgresDSN != nil {
		cfg.Storage.PostgresDSN = *fc.Storage.PostgresDSN
	}
	if fc.Inference.BaseURL != nil {
		cfg.Inference.BaseURL = *fc.Inference.BaseURL
	}
	if fc.Inference.Timeout != nil {
		d, err := time.ParseDuration(*fc.Inference.Timeout)
		if err != nil {
			return nil, fmt.Errorf("config: invalid inference timeout: %w", err)
		}
		cfg.Inference.Timeout = d
	}
	if fc.Capture.Cadence != nil {
		d, err := time.ParseDuration(*fc.Capture.Cadence)
		if err != nil {
			return nil, fmt.Errorf("config: invalid capture cadence: %w", err)
		}
		cfg.Capture.Cadence = d
	}
	if fc.Capture.StreamURL != nil {
		cfg.Capture.StreamURL = *fc.Capture.StreamURL
	}
	if fc.Capture.SnapshotURL != nil {
		cfg.Capture.SnapshotURL = *fc.Capture.SnapshotURL
	}
	if fc.Capture.TransportURL != nil {
		cfg.Capture.TransportURL = *fc.Capture.TransportURL
	}
	if fc.Security.SecurityMode != nil {
		cfg.Security.SecurityMode = *fc.Security.SecurityMode
	}
	if fc.Security.APIToken != nil {
		cfg.Security.APIToken = *fc.Security.APIToken
	}

	return cfg, nil
}

// buildBaseConfig constructs a Config with values from environment variables
// and defaults.
func buildBaseConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("CONLINE_PORT", 7373),
			Host: getEnv("CONLINE_HOST", "127.0.0.1"),
		},
		Storage: StorageConfig{
			StorageEngine: getEnv("CONLINE_STORAGE_ENGINE", "sqlite"),
			DataPath:      getEnv("CONLINE_DATA_PATH", "./data"),
			PostgresDSN:   getEnv("CONLINE_POSTGRES_DSN", ""),
		},
		Inference: InferenceConfig{
			BaseURL: getEnv("CONLINE_INFERENCE_URL", "http://127.0.0.1:5000"),
			Timeout: getEnvDuration("CONLINE_INFERENCE_TIMEOUT", 5*time.Second),
		},
		Capture: CaptureConfig{
			Cadence:      getEnvDuration("CONLINE_CAPTURE_CADENCE", 3*time.Second),
			StreamURL:    getEnv("CONLINE_CAPTURE_STREAM_URL", ""),
			SnapshotURL:  getEnv("CONLINE_CAPTURE_SNAPSHOT_URL", ""),
			TransportURL: getEnv("CONLINE_CAPTURE_TRANSPORT_URL", ""),
		},
		Security: SecurityConfig{
			SecurityMode: getEnv("CONLINE_SECURITY_MODE", "development"),
			APIToken:     getEnv("CONLINE_API_TOKEN", ""),
		},
	}
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. If the environment variable exists but cannot be parsed as an
// integer, it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable ("3s", "500ms")
// or returns a default value when absent or unparseable.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
