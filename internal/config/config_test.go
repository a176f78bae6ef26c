package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  vector_dir: "/var/lib/ruiji/vectors"
embedding:
  provider: mock
  dimensions: 256
retrieval:
  default_k: 10
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.VectorDir != "/var/lib/ruiji/vectors" {
		t.Errorf("vector_dir = %s", cfg.Storage.VectorDir)
	}
	if cfg.Embedding.Provider != ProviderMock || cfg.Embedding.Dimensions != 256 {
		t.Errorf("embedding = %+v", cfg.Embedding)
	}
	if cfg.Retrieval.DefaultK != 10 || cfg.Retrieval.MaxK != 200 {
		t.Errorf("retrieval = %+v", cfg.Retrieval)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	cfg, err := Load(writeConfig(t, "debug: true\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  vector_dir: "./data/vectors"
  database_path: "./data/db/events.db"
images:
  root: "./images"
watch:
  directories: ["./images/uploads"]
`)
	dir := filepath.Dir(path)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "data", "vectors"); cfg.Storage.VectorDir != want {
		t.Errorf("vector_dir = %s, want %s", cfg.Storage.VectorDir, want)
	}
	if want := filepath.Join(dir, "data", "db", "events.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, want)
	}
	if want := filepath.Join(dir, "images"); cfg.Images.Root != want {
		t.Errorf("images.root = %s, want %s", cfg.Images.Root, want)
	}
	if len(cfg.Watch.Directories) != 1 {
		t.Fatalf("watch directories: got %d", len(cfg.Watch.Directories))
	}
	if want := filepath.Join(dir, "images", "uploads"); cfg.Watch.Directories[0] != want {
		t.Errorf("watch directory = %s, want %s", cfg.Watch.Directories[0], want)
	}
}

func TestLoad_homeRelative(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfg, err := Load(writeConfig(t, "storage:\n  vector_dir: \"ruiji/vectors\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, "ruiji", "vectors"); cfg.Storage.VectorDir != want {
		t.Errorf("vector_dir = %s, want %s", cfg.Storage.VectorDir, want)
	}
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "server: [unclosed"},
		{"unknown provider", "embedding:\n  provider: torch\n"},
		{"unknown resolver", "images:\n  resolver: ftp\n"},
		{"s3 without bucket", "images:\n  resolver: s3\n"},
		{"default_k above max_k", "retrieval:\n  default_k: 50\n  max_k: 10\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Embedding.Dimensions != 512 || cfg.Embedding.ImageSize != 224 {
		t.Errorf("embedding defaults: %+v", cfg.Embedding)
	}
	if cfg.Embedding.CacheSize != 2048 || cfg.Embedding.Workers != 4 {
		t.Errorf("cache/workers defaults: %+v", cfg.Embedding)
	}
	if cfg.Retrieval.DefaultK != 24 || cfg.Retrieval.MaxK != 200 || cfg.Retrieval.MaxCandidates != 20000 {
		t.Errorf("retrieval defaults: %+v", cfg.Retrieval)
	}
	if cfg.Images.Resolver != ResolverFile || cfg.Embedding.Provider != ProviderONNX {
		t.Errorf("resolver/provider defaults: %s, %s", cfg.Images.Resolver, cfg.Embedding.Provider)
	}
	if len(cfg.Images.Extensions) != 6 || cfg.Images.Extensions[0] != ".jpg" {
		t.Errorf("image extensions: got %v", cfg.Images.Extensions)
	}
	cfg.Images.Extensions[0] = ".tiff"
	if DefaultExtensions[0] != ".jpg" {
		t.Error("ApplyDefaults must not share the DefaultExtensions slice")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestApplyDefaults_WatchRecursiveWhenDirectoriesSet(t *testing.T) {
	cfg := &Config{Watch: WatchConfig{Directories: []string{"/tmp/images"}}}
	ApplyDefaults(cfg)
	if cfg.Watch.Recursive == nil || !*cfg.Watch.Recursive {
		t.Error("recursive should default to true when directories are set")
	}
}

func TestWatchConfig_RecursiveOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		w := &WatchConfig{}
		if got := w.RecursiveOrDefault(); !got {
			t.Errorf("RecursiveOrDefault() = %v, want true", got)
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		w := &WatchConfig{Recursive: &f}
		if got := w.RecursiveOrDefault(); got {
			t.Errorf("RecursiveOrDefault() = %v, want false", got)
		}
	})
}

func TestEmbeddingConfig_TimeoutDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"30s", 30 * time.Second},
		{"garbage", 0},
		{"-5s", 0},
	}
	for _, tt := range tests {
		e := EmbeddingConfig{Timeout: tt.in}
		if got := e.TimeoutDuration(); got != tt.want {
			t.Errorf("TimeoutDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{VectorDir: "/tmp/vectors", DatabasePath: "/tmp/db"},
		Watch:   WatchConfig{Directories: []string{"/tmp/images"}},
	}
	ApplyDefaults(cfg)
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if len(loaded.Watch.Directories) != 1 || loaded.Watch.Directories[0] != "/tmp/images" {
		t.Errorf("loaded watch directories: %v", loaded.Watch.Directories)
	}
}
