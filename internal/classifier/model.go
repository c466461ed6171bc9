package classifier

import "context"

// Layout is the memory order of the model's input tensor.
type Layout int

const (
	// NHWC stores pixels interleaved: [1, H, W, 3].
	NHWC Layout = iota
	// NCHW stores channel planes: [1, 3, H, W].
	NCHW
)

func (l Layout) String() string {
	switch l {
	case NHWC:
		return "NHWC"
	case NCHW:
		return "NCHW"
	default:
		return "unknown"
	}
}

// Model is the opaque classification capability: it maps a preprocessed
// input tensor to one raw score per category.
type Model interface {
	// Infer runs the model once on a flattened float32 input tensor.
	Infer(ctx context.Context, input []float32) ([]float32, error)
	// InputLayout reports the expected input memory order.
	InputLayout() Layout
	Close() error
}
