package embedding

// ONNXOptions configures an ONNXEmbedder.
type ONNXOptions struct {
	ModelPath string
	// SharedLibraryPath points at libonnxruntime; empty uses the runtime default.
	SharedLibraryPath string
	Dimensions        int
	// ImageSize is the square input resolution expected by the model.
	ImageSize     int
	InputName     string
	OutputName    string
	CacheSize     int
	Normalization Normalization
}

func (o *ONNXOptions) setDefaults() {
	if o.ImageSize <= 0 {
		o.ImageSize = 224
	}
	if o.InputName == "" {
		o.InputName = "pixel_values"
	}
	if o.OutputName == "" {
		o.OutputName = "image_embeds"
	}
	if o.Normalization == (Normalization{}) {
		o.Normalization = ImageNetNormalization
	}
}
