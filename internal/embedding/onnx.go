//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/ruiji/pkg/utils"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXEmbedder runs an image encoder (CLIP/ResNet style, input NCHW float32)
// with ONNX Runtime. It requires CGO and the onnxruntime shared library.
type ONNXEmbedder struct {
	session    *ort.AdvancedSession
	dimensions int
	imageSize  int
	norm       Normalization
	cache      *EmbeddingCache
	// Pre-allocated tensors for Run(); we update input data and read output.
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	mu           sync.Mutex
}

// NewONNXEmbedder creates an ONNX image embedder. The runtime environment is
// initialized on first use.
func NewONNXEmbedder(opts ONNXOptions) (*ONNXEmbedder, error) {
	opts.setDefaults()
	if opts.Dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if !ort.IsInitialized() {
		if opts.SharedLibraryPath != "" {
			ort.SetSharedLibraryPath(opts.SharedLibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	size := int64(opts.ImageSize)
	inputTensor, err := ort.NewTensor(ort.NewShape(1, 3, size, size), make([]float32, 3*size*size))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	outputTensor, err := ort.NewTensor(ort.NewShape(1, int64(opts.Dimensions)), make([]float32, opts.Dimensions))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		opts.ModelPath,
		[]string{opts.InputName},
		[]string{opts.OutputName},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXEmbedder{
		session:      session,
		dimensions:   opts.Dimensions,
		imageSize:    opts.ImageSize,
		norm:         opts.Normalization,
		cache:        NewEmbeddingCache(opts.CacheSize),
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Embed returns the embedding for image, using the content cache when available.
func (e *ONNXEmbedder) Embed(ctx context.Context, image []byte) ([]float32, error) {
	digest := Digest(image)
	if cached, ok := e.cache.Get(digest); ok {
		return cached, nil
	}
	pixels, err := Preprocess(image, e.imageSize, e.norm)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, fmt.Errorf("embedder is closed")
	}

	copy(e.inputTensor.GetData(), pixels)
	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	embedding := make([]float32, e.dimensions)
	copy(embedding, e.outputTensor.GetData())
	if utils.HasNonFinite(embedding) {
		return nil, fmt.Errorf("inference produced non-finite values")
	}
	utils.NormalizeL2(embedding)
	e.cache.Set(digest, embedding)
	return embedding, nil
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close destroys the session and tensors.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	if e.inputTensor != nil {
		_ = e.inputTensor.Destroy()
		e.inputTensor = nil
	}
	if e.outputTensor != nil {
		_ = e.outputTensor.Destroy()
		e.outputTensor = nil
	}
	return err
}
