package config

const (
	ProviderONNX = "onnx"
	ProviderMock = "mock"

	ResolverFile = "file"
	ResolverS3   = "s3"
)

// DefaultExtensions are the image formats the embedder can decode.
var DefaultExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp"}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.VectorDir == "" {
		cfg.Storage.VectorDir = "/usr/local/var/ruiji/data/vectors"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/ruiji/data/db/events.db"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderONNX
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/ruiji/data/models/clip-vit-b32-vision.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 512
	}
	if cfg.Embedding.ImageSize == 0 {
		cfg.Embedding.ImageSize = 224
	}
	if cfg.Embedding.InputName == "" {
		cfg.Embedding.InputName = "pixel_values"
	}
	if cfg.Embedding.OutputName == "" {
		cfg.Embedding.OutputName = "image_embeds"
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 2048
	}
	if cfg.Embedding.Workers == 0 {
		cfg.Embedding.Workers = 4
	}
	if cfg.Images.Extensions == nil {
		cfg.Images.Extensions = append([]string(nil), DefaultExtensions...)
	}
	if cfg.Images.Resolver == "" {
		cfg.Images.Resolver = ResolverFile
	}
	if cfg.Retrieval.DefaultK == 0 {
		cfg.Retrieval.DefaultK = 24
	}
	if cfg.Retrieval.MaxK == 0 {
		cfg.Retrieval.MaxK = 200
	}
	if cfg.Retrieval.MaxCandidates == 0 {
		cfg.Retrieval.MaxCandidates = 20000
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
