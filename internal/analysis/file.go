package analysis

import (
	"context"
	"os"

	"github.com/qualitylab/partclass/internal/classifier"
	"github.com/qualitylab/partclass/internal/conf"
	"github.com/qualitylab/partclass/internal/errors"
	"github.com/qualitylab/partclass/internal/imaging"
	"github.com/qualitylab/partclass/internal/ledger"
	"github.com/qualitylab/partclass/internal/logger"
)

// CropFile crops the single image src into dst using the crop settings.
func CropFile(ctx context.Context, settings *conf.CropSettings, src, dst string, size int) error {
	if err := checkCancelled(ctx); err != nil {
		return err
	}
	if err := validateImageFile(src); err != nil {
		return err
	}

	box, err := CropBox(settings)
	if err != nil {
		return err
	}
	t, err := imaging.NewTransformer(settings.Engine)
	if err != nil {
		return err
	}
	if err := imaging.ExtractFile(src, dst, box, size, settings.Normalise, t); err != nil {
		return err
	}

	runLogger(ctx).Info("Image cropped",
		logger.String("image_path", src),
		logger.String("output_path", dst),
		logger.String("box", box.String()),
		logger.Int("size", size))
	return nil
}

// ClassifyFile classifies the single image at path. When ledgerPath is not
// empty the prediction is appended to that ledger.
func ClassifyFile(ctx context.Context, adapter *classifier.Adapter, path, ledgerPath string) (classifier.Prediction, error) {
	if err := validateImageFile(path); err != nil {
		return classifier.Prediction{}, err
	}

	pred, err := adapter.Classify(ctx, path)
	if err != nil {
		return classifier.Prediction{}, err
	}

	if ledgerPath != "" {
		ldg, err := ledger.Open(ledgerPath, adapter.Schema().Header())
		if err != nil {
			return pred, err
		}
		if err := ldg.Append(ledger.Row{ImagePath: path, Probabilities: pred.Probabilities}); err != nil {
			return pred, err
		}
	}

	top, prob := pred.Top()
	runLogger(ctx).Info("Image classified",
		logger.String("image_path", path),
		logger.String("top_category", top),
		logger.Float64("probability", prob))
	return pred, nil
}

// validateImageFile checks that path is a non-empty regular file.
func validateImageFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryMissingSource).
			Context("path", path).
			Build()
	}
	if info.IsDir() {
		return errors.Newf("%s is a directory, not an image file", path).
			Category(errors.CategoryValidation).
			Context("path", path).
			Build()
	}
	if info.Size() == 0 {
		return errors.Newf("image file %s is empty", path).
			Category(errors.CategoryValidation).
			FileContext(path, 0).
			Build()
	}
	return nil
}
