package analysis

import (
	"context"
	"path/filepath"
	"time"

	"github.com/qualitylab/partclass/internal/conf"
	"github.com/qualitylab/partclass/internal/errors"
	"github.com/qualitylab/partclass/internal/imaging"
	"github.com/qualitylab/partclass/internal/logger"
)

// Stages at which a single image can fail.
const (
	StagePrepare  = "prepare"
	StageClassify = "classify"
)

// ImageHandle is an enumerated source image and the file that is actually
// classified: the source itself, or its cropped copy.
type ImageHandle struct {
	Source string
	Input  string
}

// Failure is a per-image error collected during a run.
type Failure struct {
	Path  string
	Stage string
	Err   error
}

// ProgressFunc is told how many of total images a stage has handled.
type ProgressFunc func(stage string, done, total int)

// PrepareOptions tune Prepare.
type PrepareOptions struct {
	Size        int                 // side of the square crop
	Transformer imaging.Transformer // nil selects the engine of the settings
	FailFast    bool
	Progress    ProgressFunc
}

// CropBox parses the crop corners of settings.
func CropBox(settings *conf.CropSettings) (imaging.BoundingBox, error) {
	leftUp, err := conf.ParsePoint(settings.LeftUp)
	if err != nil {
		return imaging.BoundingBox{}, errors.New(err).
			Category(errors.CategoryValidation).
			Context("setting", "crop.leftup").
			Build()
	}
	rightDown, err := conf.ParsePoint(settings.RightDown)
	if err != nil {
		return imaging.BoundingBox{}, errors.New(err).
			Category(errors.CategoryValidation).
			Context("setting", "crop.rightdown").
			Build()
	}
	return imaging.NewBoundingBox(leftUp, rightDown), nil
}

// CroppedPath returns where the cropped copy of src is written.
func CroppedPath(processingFolder, src string) string {
	return filepath.Join(processingFolder, filepath.Base(src))
}

// Prepare maps enumerated paths to image handles. With cropping disabled
// every source is classified as is. Otherwise each source is cropped to
// opts.Size squared into the processing folder and the copy becomes the
// classification input. Images that fail are reported as failures and left
// out of the handles; with opts.FailFast the first failure is also returned
// as the error. Order is preserved.
func Prepare(ctx context.Context, settings *conf.CropSettings, paths []string, opts PrepareOptions) ([]ImageHandle, []Failure, error) {
	handles := make([]ImageHandle, 0, len(paths))
	if !settings.Enabled {
		for _, p := range paths {
			handles = append(handles, ImageHandle{Source: p, Input: p})
		}
		return handles, nil, nil
	}

	box, err := CropBox(settings)
	if err != nil {
		return nil, nil, err
	}
	t := opts.Transformer
	if t == nil {
		if t, err = imaging.NewTransformer(settings.Engine); err != nil {
			return nil, nil, err
		}
	}

	log := runLogger(ctx)
	log.Info("Cropping images",
		logger.Int("images", len(paths)),
		logger.String("box", box.String()),
		logger.String("processing_folder", settings.ProcessingFolder),
		logger.Bool("normalise", settings.Normalise),
		logger.String("engine", t.Name()))

	var failures []Failure
	for i, src := range paths {
		if err := checkCancelled(ctx); err != nil {
			return handles, failures, err
		}
		if opts.Progress != nil {
			opts.Progress(StagePrepare, i, len(paths))
		}

		dst := CroppedPath(settings.ProcessingFolder, src)
		start := time.Now()
		if err := imaging.ExtractFile(src, dst, box, opts.Size, settings.Normalise, t); err != nil {
			log.Warn("Failed to crop image",
				logger.String("image_path", src),
				logger.String("category", string(errors.CategoryOf(err))),
				logger.Error(err))
			failures = append(failures, Failure{Path: src, Stage: StagePrepare, Err: err})
			if opts.FailFast {
				return handles, failures, err
			}
			continue
		}

		log.Debug("Image cropped",
			logger.String("image_path", src),
			logger.String("output_path", dst),
			logger.Duration("elapsed", time.Since(start)))
		handles = append(handles, ImageHandle{Source: src, Input: dst})
	}
	if opts.Progress != nil {
		opts.Progress(StagePrepare, len(paths), len(paths))
	}
	return handles, failures, nil
}

func checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.New(err).
			Category(errors.CategoryCancellation).
			Build()
	}
	return nil
}
