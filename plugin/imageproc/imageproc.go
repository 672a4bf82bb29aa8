// Package imageproc normalizes user-supplied images before they are stored
// and handed to the model. Inputs in any format the imaging library decodes
// (JPEG, PNG, GIF, BMP, TIFF) are re-encoded to a predictable format so
// downstream consumers never see exotic encodings.
package imageproc

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// maxDimension bounds the longest edge of a normalized image. Larger inputs
// are scaled down preserving aspect ratio.
const maxDimension = 1568

// jpegQuality for re-encoded photos.
const jpegQuality = 85

// Normalized is a decoded and re-encoded image ready for persistence.
type Normalized struct {
	Data      []byte
	MediaType string
}

// Normalize decodes raw image bytes, downsizes them if needed and re-encodes
// them. Images with transparency keep it and come back as PNG; everything
// else becomes JPEG.
func Normalize(data []byte) (*Normalized, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode image")
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxDimension || bounds.Dy() > maxDimension {
		img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if hasAlpha(img) {
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, errors.Wrap(err, "failed to encode png")
		}
		return &Normalized{Data: buf.Bytes(), MediaType: "image/png"}, nil
	}

	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, errors.Wrap(err, "failed to encode jpeg")
	}
	return &Normalized{Data: buf.Bytes(), MediaType: "image/jpeg"}, nil
}

// hasAlpha reports whether any pixel is not fully opaque.
func hasAlpha(img image.Image) bool {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return true
			}
		}
	}
	return false
}
