package classifier

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/tphakala/go-tflite"

	"github.com/qualitylab/partclass/internal/cpuspec"
	"github.com/qualitylab/partclass/internal/errors"
	"github.com/qualitylab/partclass/internal/logger"
)

// TFLiteModel runs a TensorFlow Lite image classifier. The interpreter is
// not safe for concurrent use, so every call holds mu.
type TFLiteModel struct {
	mu          sync.Mutex
	path        string
	model       *tflite.Model
	interpreter *tflite.Interpreter
	layout      Layout
	inputLen    int
}

// LoadTFLiteModel loads the model at path and checks that its tensors match
// schema: a float32 [1,H,W,3] or [1,3,H,W] input with H = W = InputSize and
// an output whose last dimension equals the category count. Any failure is
// reported as a classifier-unavailable error.
func LoadTFLiteModel(path string, schema Schema, threads int) (*TFLiteModel, error) {
	start := time.Now()
	unavailable := func(err error) error {
		return errors.New(err).
			Category(errors.CategoryClassifierUnavailable).
			ModelContext(path, schema.Name).
			Timing("model-load", time.Since(start)).
			Build()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, unavailable(fmt.Errorf("reading model file: %w", err))
	}

	model := tflite.NewModel(data)
	if model == nil {
		return nil, unavailable(fmt.Errorf("cannot load TensorFlow Lite model from %s", path))
	}

	numThreads := cpuspec.ThreadCount(threads)
	options := tflite.NewInterpreterOptions()
	defer options.Delete()
	options.SetNumThread(numThreads)
	options.SetErrorReporter(func(msg string, _ any) {
		GetLogger().Error("TFLite error", logger.String("message", msg))
	}, nil)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		model.Delete()
		return nil, unavailable(fmt.Errorf("cannot create interpreter"))
	}

	m := &TFLiteModel{path: path, model: model, interpreter: interpreter}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		m.release()
		return nil, unavailable(fmt.Errorf("tensor allocation failed: %v", status))
	}

	if err := m.validate(schema); err != nil {
		m.release()
		return nil, unavailable(err)
	}

	GetLogger().Info("Classifier model loaded",
		logger.String("path", path),
		logger.String("schema", schema.Name),
		logger.String("layout", m.layout.String()),
		logger.Int("threads", numThreads),
		logger.Duration("elapsed", time.Since(start)))
	return m, nil
}

// validate detects the input layout and compares tensor shapes to schema.
func (m *TFLiteModel) validate(schema Schema) error {
	input := m.interpreter.GetInputTensor(0)
	if input == nil {
		return fmt.Errorf("cannot get input tensor")
	}
	if input.Type() != tflite.Float32 {
		return fmt.Errorf("input tensor type %v, want float32", input.Type())
	}
	if input.NumDims() != 4 {
		return fmt.Errorf("input tensor has %d dimensions, want 4", input.NumDims())
	}

	size := schema.InputSize
	switch {
	case input.Dim(3) == 3 && input.Dim(1) == size && input.Dim(2) == size:
		m.layout = NHWC
	case input.Dim(1) == 3 && input.Dim(2) == size && input.Dim(3) == size:
		m.layout = NCHW
	default:
		return fmt.Errorf("input tensor shape [%d %d %d %d] does not match %dx%d RGB input of schema %s",
			input.Dim(0), input.Dim(1), input.Dim(2), input.Dim(3), size, size, schema.Name)
	}
	m.inputLen = 3 * size * size

	output := m.interpreter.GetOutputTensor(0)
	if output == nil {
		return fmt.Errorf("cannot get output tensor")
	}
	if n := output.Dim(output.NumDims() - 1); n != schema.Len() {
		return fmt.Errorf("model output size %d does not match %d categories of schema %s",
			n, schema.Len(), schema.Name)
	}
	return nil
}

// Infer implements Model.
func (m *TFLiteModel) Infer(ctx context.Context, input []float32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(input) != m.inputLen {
		return nil, fmt.Errorf("input has %d values, model expects %d", len(input), m.inputLen)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.interpreter == nil {
		return nil, fmt.Errorf("model %s is closed", m.path)
	}

	inputTensor := m.interpreter.GetInputTensor(0)
	if inputTensor == nil {
		return nil, fmt.Errorf("cannot get input tensor")
	}
	copy(inputTensor.Float32s(), input)

	if status := m.interpreter.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("tensor invoke failed: %v", status)
	}

	outputTensor := m.interpreter.GetOutputTensor(0)
	size := outputTensor.Dim(outputTensor.NumDims() - 1)
	scores := make([]float32, size)
	copy(scores, outputTensor.Float32s())
	return scores, nil
}

// InputLayout implements Model.
func (m *TFLiteModel) InputLayout() Layout {
	return m.layout
}

// Close releases the interpreter and model.
func (m *TFLiteModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
	return nil
}

func (m *TFLiteModel) release() {
	if m.interpreter != nil {
		m.interpreter.Delete()
		m.interpreter = nil
	}
	if m.model != nil {
		m.model.Delete()
		m.model = nil
	}
}
