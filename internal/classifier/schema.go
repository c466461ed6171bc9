// Package classifier turns part images into named probability vectors using an
// opaque classification model.
package classifier

import (
	"fmt"
	"slices"

	"github.com/qualitylab/partclass/internal/errors"
)

// Schema is an ordered set of mutually exclusive quality categories together
// with the input geometry and pixel statistics its model was trained with.
type Schema struct {
	Name       string
	Categories []string
	InputSize  int        // square input edge in pixels
	Mean       [3]float32 // per-channel mean of the training data, RGB
	Std        [3]float32 // per-channel standard deviation, RGB
}

var (
	imagenetMean = [3]float32{0.485, 0.456, 0.406}
	imagenetStd  = [3]float32{0.229, 0.224, 0.225}
)

// ThreeClass is the original good/porous/bulging schema.
var ThreeClass = Schema{
	Name:       "3class",
	Categories: []string{"good", "porous", "bulging"},
	InputSize:  224,
	Mean:       imagenetMean,
	Std:        imagenetStd,
}

// FiveClass adds edge and powder defects.
var FiveClass = Schema{
	Name:       "5class",
	Categories: []string{"bulging", "edges", "good", "porous", "powder"},
	InputSize:  196,
	Mean:       imagenetMean,
	Std:        imagenetStd,
}

// Schemas lists every known schema.
var Schemas = []Schema{ThreeClass, FiveClass}

// LookupSchema returns the schema with the given name.
func LookupSchema(name string) (Schema, error) {
	for _, s := range Schemas {
		if s.Name == name {
			return s.clone(), nil
		}
	}
	return Schema{}, errors.Newf("unknown category schema %q", name).
		Category(errors.CategoryValidation).
		Context("schema", name).
		Build()
}

// Header returns the ledger column names: image_path followed by the
// categories in schema order.
func (s Schema) Header() []string {
	return append([]string{"image_path"}, s.Categories...)
}

// Len returns the number of categories.
func (s Schema) Len() int {
	return len(s.Categories)
}

// Validate checks that the schema can be used for classification.
func (s Schema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("schema name is empty")
	}
	if len(s.Categories) == 0 {
		return fmt.Errorf("schema %s has no categories", s.Name)
	}
	if s.InputSize <= 0 {
		return fmt.Errorf("schema %s has invalid input size %d", s.Name, s.InputSize)
	}
	for i, std := range s.Std {
		if std == 0 {
			return fmt.Errorf("schema %s has zero std for channel %d", s.Name, i)
		}
	}
	seen := make(map[string]bool, len(s.Categories))
	for _, c := range s.Categories {
		if c == "" || c == "image_path" || seen[c] {
			return fmt.Errorf("schema %s has invalid or duplicate category %q", s.Name, c)
		}
		seen[c] = true
	}
	return nil
}

func (s Schema) clone() Schema {
	s.Categories = slices.Clone(s.Categories)
	return s
}
