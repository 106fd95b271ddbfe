package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed thresholds.yaml
var thresholdsYAML []byte

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Extractor  ExtractorConfig
	Matcher    MatcherConfig
	Location   LocationConfig
	Thresholds ThresholdsConfig
}

type ServerConfig struct {
	Addr            string        // listen address (default :8080)
	ShutdownTimeout time.Duration // grace period for in-flight requests
}

type DatabaseConfig struct {
	Driver       string // postgres, mysql or sqlite (default postgres)
	URL          string // connection URL / DSN
	MaxOpenConns int    // maximum open connections (default 25)
	MaxIdleConns int    // maximum idle connections (default 5)
}

type ExtractorConfig struct {
	URL          string        // embedding server base URL (default http://localhost:8000)
	Dim          int           // embedding dimension (default 128)
	Model        string        // model name used to pick a default threshold
	Timeout      time.Duration // per-request timeout
	MaxImageSize int           // longer-edge cap before upload
}

type MatcherConfig struct {
	Strategy  string  // linear, hnsw or pgvector (default linear)
	Threshold float64 // acceptance distance; 0 means use the model default
}

type LocationConfig struct {
	URL     string // IP geolocation endpoint (empty disables lookups)
	Timeout time.Duration
}

type ThresholdsConfig struct {
	Models map[string]float64 `yaml:"models"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envStr(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var thresholds ThresholdsConfig
	if err := yaml.Unmarshal(thresholdsYAML, &thresholds); err != nil {
		// Embedded file, malformed content is a build defect.
		panic("failed to unmarshal embedded thresholds.yaml: " + err.Error())
	}

	return &Config{
		Server: ServerConfig{
			Addr:            envStr("SERVER_ADDR", ":8080"),
			ShutdownTimeout: time.Duration(envInt("SERVER_SHUTDOWN_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Database: DatabaseConfig{
			Driver:       envStr("DATABASE_DRIVER", "postgres"),
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Extractor: ExtractorConfig{
			URL:          envStr("EXTRACTOR_URL", "http://localhost:8000"),
			Dim:          envInt("EXTRACTOR_DIM", 128),
			Model:        envStr("EXTRACTOR_MODEL", "face_recognition"),
			Timeout:      time.Duration(envInt("EXTRACTOR_TIMEOUT_SECONDS", 30)) * time.Second,
			MaxImageSize: envInt("EXTRACTOR_MAX_IMAGE_SIZE", 1280),
		},
		Matcher: MatcherConfig{
			Strategy:  envStr("MATCHER_STRATEGY", "linear"),
			Threshold: envFloat("MATCH_THRESHOLD", 0),
		},
		Location: LocationConfig{
			URL:     os.Getenv("LOCATION_URL"),
			Timeout: time.Duration(envInt("LOCATION_TIMEOUT_SECONDS", 3)) * time.Second,
		},
		Thresholds: thresholds,
	}
}

// MatchThreshold resolves the acceptance threshold: an explicit
// MATCH_THRESHOLD wins, otherwise the embedded default for the
// configured model, otherwise the face_recognition default.
func (c *Config) MatchThreshold() float64 {
	if c.Matcher.Threshold > 0 {
		return c.Matcher.Threshold
	}
	if t, ok := c.Thresholds.Models[c.Extractor.Model]; ok {
		return t
	}
	return c.Thresholds.Models["face_recognition"]
}
