package config

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

func mapLookup(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestLoadDefaultsFromEnv(t *testing.T) {
	for _, k := range []string{EnvServerPort, EnvLogLevel, EnvQdrantHost, EnvQdrantPort, EnvQdrantCollection} {
		t.Setenv(k, "")
	}
	t.Setenv("EMBEDDING_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "dummy")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("got port %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.LogLevel != "info" || cfg.Level() != zapcore.InfoLevel {
		t.Errorf("got log level %q, want info", cfg.Server.LogLevel)
	}
	if cfg.Qdrant.Enabled() {
		t.Error("qdrant should be disabled without a host")
	}
	if cfg.Qdrant.Port != 6334 || cfg.Qdrant.Collection != "documents" {
		t.Errorf("unexpected qdrant defaults: %+v", cfg.Qdrant)
	}
	if cfg.Embedding.Provider != "gemini" || cfg.Embedding.Gemini.APIKey != "dummy" {
		t.Errorf("embedding settings not read from env: %+v", cfg.Embedding)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(mapLookup(map[string]string{
		EnvServerPort:       "9090",
		EnvLogLevel:         "debug",
		EnvQdrantHost:       "qdrant",
		EnvQdrantPort:       "6335",
		EnvQdrantCollection: "books",
		"OLLAMA_HOST":       "http://ollama:11434",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Server.LogLevel != "debug" {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if !cfg.Qdrant.Enabled() || cfg.Qdrant.Port != 6335 || cfg.Qdrant.Collection != "books" {
		t.Errorf("unexpected qdrant config: %+v", cfg.Qdrant)
	}
	if cfg.Embedding.Ollama.Host != "http://ollama:11434" {
		t.Errorf("unexpected ollama host: %s", cfg.Embedding.Ollama.Host)
	}
}

func TestFromEnvInvalidInt(t *testing.T) {
	if _, err := FromEnv(mapLookup(map[string]string{EnvServerPort: "eighty"})); err == nil {
		t.Error("expected error for non-integer port")
	}
	if _, err := FromEnv(mapLookup(map[string]string{EnvQdrantPort: "x"})); err == nil {
		t.Error("expected error for non-integer qdrant port")
	}
}

func TestLoadFileSubstitutesEnv(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "from-env")
	t.Setenv("TEST_UNSET_DIM", "")

	path := filepath.Join(t.TempDir(), "embed.json")
	body := `{
  "server": {"port": 3211, "log_level": "${TEST_LOG_LEVEL:warn}"},
  "embedding": {
    "provider": "gemini",
    "gemini": {"api_key": "${TEST_GEMINI_KEY}", "dimension": "${TEST_UNSET_DIM:1536}"}
  },
  "qdrant": {"host": "localhost"}
}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 3211 || cfg.Level() != zapcore.WarnLevel {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Embedding.Gemini.APIKey != "from-env" {
		t.Errorf("got api key %q, want from-env", cfg.Embedding.Gemini.APIKey)
	}
	if cfg.Embedding.Gemini.Dimension != "1536" {
		t.Errorf("got dimension %q, want default 1536", cfg.Embedding.Gemini.Dimension)
	}
	if !cfg.Qdrant.Enabled() || cfg.Qdrant.Port != 6334 {
		t.Errorf("unexpected qdrant config: %+v", cfg.Qdrant)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"ok", Config{Server: ServerConfig{Port: 8080, LogLevel: "info"}}, false},
		{"port too large", Config{Server: ServerConfig{Port: 70000, LogLevel: "info"}}, true},
		{"bad level", Config{Server: ServerConfig{Port: 8080, LogLevel: "loud"}}, true},
		{"bad qdrant port", Config{Server: ServerConfig{Port: 8080, LogLevel: "info"}, Qdrant: QdrantConfig{Host: "q", Port: -1}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("got error %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
