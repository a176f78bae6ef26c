// Package config provides configuration loading and structs for the ruiji server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Images    ImagesConfig    `yaml:"images"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Watch     WatchConfig     `yaml:"watch"`
}

// WatchConfig holds directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the embedding artifacts and the audit database.
type StorageConfig struct {
	// VectorDir holds embeddings.f32 and keys.json.
	VectorDir    string `yaml:"vector_dir"`
	DatabasePath string `yaml:"database_path"`
}

// EmbeddingConfig holds ONNX image embedder settings.
type EmbeddingConfig struct {
	// Provider is "onnx" or "mock". The mock provider hashes image bytes and
	// needs no model.
	Provider          string `yaml:"provider"`
	ModelPath         string `yaml:"model_path"`
	SharedLibraryPath string `yaml:"shared_library_path"`
	Dimensions        int    `yaml:"dimensions"`
	ImageSize         int    `yaml:"image_size"`
	InputName         string `yaml:"input_name"`
	OutputName        string `yaml:"output_name"`
	CacheSize         int    `yaml:"cache_size"`
	Workers           int    `yaml:"workers"`
	// Timeout bounds resolve plus embed for one image, e.g. "30s". Empty means no limit.
	Timeout string `yaml:"timeout"`
}

// TimeoutDuration parses Timeout; invalid or empty values yield 0.
func (e *EmbeddingConfig) TimeoutDuration() time.Duration {
	if e.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(e.Timeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// ImagesConfig says where images live and how keys map to bytes.
type ImagesConfig struct {
	// Root resolves relative image keys and is the pool scanned for candidates.
	Root       string   `yaml:"root"`
	Extensions []string `yaml:"extensions"`
	// Resolver is "file" or "s3".
	Resolver string   `yaml:"resolver"`
	S3       S3Config `yaml:"s3"`
}

// S3Config holds S3-compatible object storage settings for the s3 resolver.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// RetrievalConfig bounds similarity requests.
type RetrievalConfig struct {
	DefaultK      int `yaml:"default_k"`
	MaxK          int `yaml:"max_k"`
	MaxCandidates int `yaml:"max_candidates"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed, or if it is invalid.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.VectorDir = expandPath(cfg.Storage.VectorDir, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	if cfg.Embedding.SharedLibraryPath != "" {
		cfg.Embedding.SharedLibraryPath = expandPath(cfg.Embedding.SharedLibraryPath, configDir)
	}
	if cfg.Images.Root != "" {
		cfg.Images.Root = expandPath(cfg.Images.Root, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case ProviderONNX, ProviderMock:
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	switch c.Images.Resolver {
	case ResolverFile:
	case ResolverS3:
		if c.Images.S3.Bucket == "" {
			return fmt.Errorf("images.s3.bucket is required for the s3 resolver")
		}
	default:
		return fmt.Errorf("unknown image resolver %q", c.Images.Resolver)
	}
	if c.Retrieval.DefaultK > c.Retrieval.MaxK {
		return fmt.Errorf("retrieval.default_k (%d) exceeds retrieval.max_k (%d)", c.Retrieval.DefaultK, c.Retrieval.MaxK)
	}
	return nil
}

// Save writes the config to path. Used for persisting watch directory add/remove.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
