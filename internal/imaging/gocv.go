//go:build gocv

package imaging

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// GoCVTransformer resizes with OpenCV bicubic interpolation. Normalisation
// and cropping share the pure Go implementation so that bounds semantics
// are identical across engines.
type GoCVTransformer struct{}

// NewGoCVTransformer returns an OpenCV backed transformer.
func NewGoCVTransformer() (Transformer, error) {
	return &GoCVTransformer{}, nil
}

// Transform implements Transformer.
func (t *GoCVTransformer) Transform(img image.Image, box BoundingBox, size int, normalise bool) (*image.NRGBA, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid target size %d", size)
	}
	if normalise {
		img = Normalise(img)
	}

	cropped, err := Crop(img, box)
	if err != nil {
		return nil, err
	}

	src, err := gocv.ImageToMatRGB(cropped)
	if err != nil {
		return nil, fmt.Errorf("converting crop to mat: %w", err)
	}
	defer src.Close()

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(src, &resized, image.Pt(size, size), 0, 0, gocv.InterpolationCubic)

	out, err := resized.ToImage()
	if err != nil {
		return nil, fmt.Errorf("converting mat to image: %w", err)
	}

	dst := toNRGBA(out)
	opaque(dst)
	return dst, nil
}

// Name implements Transformer.
func (t *GoCVTransformer) Name() string { return "gocv" }
