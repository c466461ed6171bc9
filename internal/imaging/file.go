package imaging

import (
	"bufio"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/qualitylab/partclass/internal/errors"
	"github.com/qualitylab/partclass/internal/logger"
)

// JPEGQuality is the encoder quality used for cropped JPEG copies.
const JPEGQuality = 95

// DecodeFile opens and decodes a JPEG or PNG image.
func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(err).
				Category(errors.CategoryMissingSource).
				Context("path", path).
				Build()
		}
		return nil, errors.New(err).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Context("operation", "open_image").
			Build()
	}
	defer f.Close()

	img, _, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Newf("decoding %s: %w", path, err).
			Category(errors.CategoryImageDecode).
			Context("path", path).
			Build()
	}
	return img, nil
}

// EncodeFile writes img to path, choosing PNG for a .png extension and JPEG
// otherwise. Parent directories are created as needed.
func EncodeFile(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("path", filepath.Dir(path)).
			Context("operation", "create_directory").
			Build()
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Context("operation", "create_image").
			Build()
	}

	w := bufio.NewWriter(f)
	if strings.EqualFold(filepath.Ext(path), ".png") {
		err = png.Encode(w, img)
	} else {
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality})
	}
	if err == nil {
		err = w.Flush()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return errors.Newf("encoding %s: %w", path, err).
			Category(errors.CategoryImageEncode).
			Context("path", path).
			Build()
	}
	return nil
}

// ExtractFile decodes src, applies t and writes the result to dst.
func ExtractFile(src, dst string, box BoundingBox, size int, normalise bool, t Transformer) error {
	if t == nil {
		t = DrawTransformer{}
	}

	img, err := DecodeFile(src)
	if err != nil {
		return err
	}

	out, err := t.Transform(img, box, size, normalise)
	if err != nil {
		if errors.IsCategory(err, errors.CategoryGeometry) {
			return errors.New(err).
				Category(errors.CategoryGeometry).
				Context("path", src).
				Context("box", box.String()).
				Build()
		}
		return err
	}

	if err := EncodeFile(dst, out); err != nil {
		return err
	}

	GetLogger().Debug("Cropped image written",
		logger.String("source", src),
		logger.String("destination", dst),
		logger.String("box", box.String()),
		logger.String("engine", t.Name()),
		logger.Int("size", size))
	return nil
}
