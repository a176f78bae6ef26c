package embedding

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Normalization holds per-channel mean and standard deviation applied after
// scaling pixel values to [0, 1].
type Normalization struct {
	Mean [3]float32
	Std  [3]float32
}

// ImageNetNormalization is the RGB normalization used by most vision backbones.
var ImageNetNormalization = Normalization{
	Mean: [3]float32{0.485, 0.456, 0.406},
	Std:  [3]float32{0.229, 0.224, 0.225},
}

// DecodeImage decodes PNG, JPEG, GIF, BMP or WebP bytes.
func DecodeImage(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyImage
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

// Preprocess decodes data, resizes it to size x size with bilinear
// interpolation and returns a normalized float32 tensor in CHW order
// (3 * size * size values, R plane first).
func Preprocess(data []byte, size int, norm Normalization) ([]float32, error) {
	if size <= 0 {
		return nil, fmt.Errorf("image size must be positive")
	}
	src, _, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	if b := src.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("decode image: empty bounds %v", b)
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	plane := size * size
	out := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		row := dst.Pix[y*dst.Stride:]
		for x := 0; x < size; x++ {
			px := row[x*4:]
			i := y*size + x
			for c := 0; c < 3; c++ {
				v := float32(px[c]) / 255
				out[c*plane+i] = (v - norm.Mean[c]) / norm.Std[c]
			}
		}
	}
	return out, nil
}
