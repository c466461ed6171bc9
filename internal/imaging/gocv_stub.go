//go:build !gocv

package imaging

import "errors"

// ErrGoCVUnavailable is returned when the binary was built without the gocv tag.
var ErrGoCVUnavailable = errors.New("gocv build tag is not enabled")

// NewGoCVTransformer reports that OpenCV support is not compiled in.
func NewGoCVTransformer() (Transformer, error) {
	return nil, ErrGoCVUnavailable
}
