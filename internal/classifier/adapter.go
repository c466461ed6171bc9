package classifier

import (
	"context"
	"image"
	"slices"
	"time"

	"github.com/qualitylab/partclass/internal/errors"
	"github.com/qualitylab/partclass/internal/imaging"
	"github.com/qualitylab/partclass/internal/logger"
)

// Prediction is a categorical distribution over a schema's categories,
// each probability rounded to 4 decimal digits.
type Prediction struct {
	Categories    []string
	Probabilities []float64
	Elapsed       time.Duration // model invocation time
}

// Top returns the most probable category and its probability. Ties resolve
// to the category declared first.
func (p Prediction) Top() (string, float64) {
	best := -1
	for i, v := range p.Probabilities {
		if best < 0 || v > p.Probabilities[best] {
			best = i
		}
	}
	if best < 0 {
		return "", 0
	}
	return p.Categories[best], p.Probabilities[best]
}

// Map returns the probabilities keyed by category.
func (p Prediction) Map() map[string]float64 {
	m := make(map[string]float64, len(p.Categories))
	for i, c := range p.Categories {
		m[c] = p.Probabilities[i]
	}
	return m
}

// Adapter wraps a Model behind the classify(image) contract of a Schema.
// It holds no mutable state; images are classified one at a time.
type Adapter struct {
	model  Model
	schema Schema
}

// NewAdapter binds model to schema.
func NewAdapter(model Model, schema Schema) (*Adapter, error) {
	if model == nil {
		return nil, errors.Newf("classifier model is nil").
			Category(errors.CategoryClassifierUnavailable).
			Context("schema", schema.Name).
			Build()
	}
	if err := schema.Validate(); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryValidation).
			Context("schema", schema.Name).
			Build()
	}
	return &Adapter{model: model, schema: schema.clone()}, nil
}

// Schema returns the active category schema.
func (a *Adapter) Schema() Schema {
	return a.schema.clone()
}

// Classify decodes the image at path and classifies it.
func (a *Adapter) Classify(ctx context.Context, path string) (Prediction, error) {
	img, err := imaging.DecodeFile(path)
	if err != nil {
		return Prediction{}, err
	}

	pred, err := a.ClassifyImage(ctx, img)
	if err != nil {
		return Prediction{}, errors.New(err).
			Context("path", path).
			Build()
	}

	top, p := pred.Top()
	GetLogger().Debug("Image classified",
		logger.String("path", path),
		logger.String("top", top),
		logger.Float64("probability", p),
		logger.Duration("elapsed", pred.Elapsed))
	return pred, nil
}

// ClassifyImage preprocesses img, invokes the model exactly once and turns
// the raw scores into rounded softmax probabilities.
func (a *Adapter) ClassifyImage(ctx context.Context, img image.Image) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, errors.New(err).
			Category(errors.CategoryCancellation).
			Build()
	}

	input := Preprocess(img, a.schema, a.model.InputLayout())

	start := time.Now()
	scores, err := a.model.Infer(ctx, input)
	elapsed := time.Since(start)
	if err != nil {
		return Prediction{}, errors.New(err).
			Category(errors.CategoryClassification).
			Context("schema", a.schema.Name).
			Timing("inference", elapsed).
			Build()
	}

	if len(scores) != a.schema.Len() {
		return Prediction{}, errors.Newf("model returned %d scores, schema %s has %d categories",
			len(scores), a.schema.Name, a.schema.Len()).
			Category(errors.CategoryClassification).
			Context("schema", a.schema.Name).
			Build()
	}

	probs := Softmax(scores)
	for i := range probs {
		probs[i] = Round4(probs[i])
	}

	return Prediction{
		Categories:    slices.Clone(a.schema.Categories),
		Probabilities: probs,
		Elapsed:       elapsed,
	}, nil
}

// Close releases the underlying model.
func (a *Adapter) Close() error {
	return a.model.Close()
}
