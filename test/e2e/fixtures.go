// Package e2e provides end-to-end tests; this file encodes small images in the supported formats.
package e2e

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"
)

// EncodableExtensions are the image formats fixtures can be written in.
// WebP is decode-only in golang.org/x/image, so it is not generated here.
var EncodableExtensions = []string{".png", ".jpg", ".gif", ".bmp"}

// FixtureSize is the width and height of generated images.
const FixtureSize = 16

// SolidImage returns a FixtureSize square image filled with c, with a faint
// checker pattern so encoders cannot collapse it to a single color.
func SolidImage(c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, FixtureSize, FixtureSize))
	for y := 0; y < FixtureSize; y++ {
		for x := 0; x < FixtureSize; x++ {
			px := c
			if (x+y)%2 == 0 {
				px.R = shade(px.R, 6)
				px.G = shade(px.G, 6)
				px.B = shade(px.B, 6)
			}
			img.SetRGBA(x, y, px)
		}
	}
	return img
}

func shade(v uint8, d uint8) uint8 {
	if v >= d {
		return v - d
	}
	return v + d
}

// EncodeImage encodes img in the format named by ext.
func EncodeImage(ext string, img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch ext {
	case ".png":
		err = png.Encode(&buf, img)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95})
	case ".gif":
		err = gif.Encode(&buf, img, nil)
	case ".bmp":
		err = bmp.Encode(&buf, img)
	default:
		return nil, fmt.Errorf("unsupported fixture extension %q", ext)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
