package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/nidhogg/nuka-embed/internal/embedding"
	"go.uber.org/zap/zapcore"
)

// Config is the top-level configuration structure.
type Config struct {
	Server    ServerConfig       `json:"server"`
	Embedding embedding.Settings `json:"embedding"`
	Qdrant    QdrantConfig       `json:"qdrant"`
}

type ServerConfig struct {
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`
}

// QdrantConfig enables the retrieval endpoints when Host is set.
type QdrantConfig struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Collection string `json:"collection"`
}

// Enabled reports whether a vector store is configured.
func (q QdrantConfig) Enabled() bool { return q.Host != "" }

// Environment variables read by FromEnv.
const (
	EnvServerPort       = "EMBED_SERVER_PORT"
	EnvLogLevel         = "EMBED_LOG_LEVEL"
	EnvQdrantHost       = "QDRANT_HOST"
	EnvQdrantPort       = "QDRANT_PORT"
	EnvQdrantCollection = "QDRANT_COLLECTION"
)

const (
	defaultPort       = 8080
	defaultLogLevel   = "info"
	defaultQdrantPort = 6334
	defaultCollection = "documents"
)

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load returns the process configuration. With an empty path everything
// comes from the environment; otherwise the JSON file at path is read and
// ${VAR} references in it are substituted first.
func Load(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	if path == "" {
		cfg, err = FromEnv(os.LookupEnv)
	} else {
		cfg, err = loadFile(path)
	}
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config through lookup, usually os.LookupEnv.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}
	port, err := envInt(EnvServerPort, get(EnvServerPort))
	if err != nil {
		return nil, err
	}
	qdrantPort, err := envInt(EnvQdrantPort, get(EnvQdrantPort))
	if err != nil {
		return nil, err
	}
	return &Config{
		Server: ServerConfig{
			Port:     port,
			LogLevel: get(EnvLogLevel),
		},
		Embedding: embedding.SettingsFromEnv(lookup),
		Qdrant: QdrantConfig{
			Host:       get(EnvQdrantHost),
			Port:       qdrantPort,
			Collection: get(EnvQdrantCollection),
		},
	}, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// Substitute ${VAR} and ${VAR:default} with environment values.
	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

func envInt(name, literal string) (int, error) {
	if literal == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(literal)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got: %s", name, literal)
	}
	return v, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = defaultLogLevel
	}
	if c.Qdrant.Port == 0 {
		c.Qdrant.Port = defaultQdrantPort
	}
	if c.Qdrant.Collection == "" {
		c.Qdrant.Collection = defaultCollection
	}
}

// Validate checks the server and vector store sections. Embedding settings
// are validated by embedding.New.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", c.Server.Port)
	}
	if _, err := zapcore.ParseLevel(c.Server.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Server.LogLevel, err)
	}
	if c.Qdrant.Enabled() && (c.Qdrant.Port < 1 || c.Qdrant.Port > 65535) {
		return fmt.Errorf("qdrant port out of range: %d", c.Qdrant.Port)
	}
	return nil
}

// Level returns the parsed log level; call after Validate.
func (c *Config) Level() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.Server.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
