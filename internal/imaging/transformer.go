package imaging

import (
	"fmt"
	"image"
)

// Transformer performs the geometric transform of Extract. Implementations
// differ only in the resampling backend.
type Transformer interface {
	Transform(img image.Image, box BoundingBox, size int, normalise bool) (*image.NRGBA, error)
	Name() string
}

// DrawTransformer is the pure Go transformer built on golang.org/x/image/draw.
type DrawTransformer struct{}

// Transform implements Transformer.
func (DrawTransformer) Transform(img image.Image, box BoundingBox, size int, normalise bool) (*image.NRGBA, error) {
	return Extract(img, box, size, normalise)
}

// Name implements Transformer.
func (DrawTransformer) Name() string { return "draw" }

// NewTransformer returns the transformer for the named engine, "draw" or
// "gocv". The gocv engine requires a build with the gocv tag.
func NewTransformer(engine string) (Transformer, error) {
	switch engine {
	case "", "draw":
		return DrawTransformer{}, nil
	case "gocv":
		return NewGoCVTransformer()
	default:
		return nil, fmt.Errorf("unknown crop engine %q", engine)
	}
}
