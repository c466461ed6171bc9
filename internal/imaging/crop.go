package imaging

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Crop cuts the half-open rectangle [LeftUp, RightDown) out of img and drops
// the alpha channel. Parts of the rectangle outside the source are black.
// Bounds are validated by CheckBounds; a violation returns *OutOfBoundsError.
func Crop(img image.Image, box BoundingBox) (*image.NRGBA, error) {
	b := img.Bounds()
	if err := CheckBounds(box, b.Dx(), b.Dy()); err != nil {
		return nil, err
	}

	size := box.Size()
	dst := image.NewNRGBA(image.Rect(0, 0, size.X, size.Y))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)
	if src, ok := img.(*image.NRGBA); ok {
		copyNRGBA(dst, src, b.Min.Add(box.LeftUp))
	} else {
		draw.Draw(dst, dst.Bounds(), img, b.Min.Add(box.LeftUp), draw.Src)
	}

	opaque(dst)
	return dst, nil
}

// Resize scales img to a size x size square using Catmull-Rom resampling.
// The result is deterministic for identical input.
func Resize(img image.Image, size int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// Extract runs the full geometric transform: optional normalisation of the
// whole source, crop to box, conversion to three colour channels and resize
// to a size x size square.
func Extract(img image.Image, box BoundingBox, size int, normalise bool) (*image.NRGBA, error) {
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

	return Resize(cropped, size), nil
}

// copyNRGBA copies the part of src under dst placed at origin row by row.
// Colour values of transparent pixels survive, which a premultiplied draw
// would zero.
func copyNRGBA(dst, src *image.NRGBA, origin image.Point) {
	r := dst.Bounds().Add(origin).Intersect(src.Bounds())
	if r.Empty() {
		return
	}
	rowLen := r.Dx() * 4
	for y := r.Min.Y; y < r.Max.Y; y++ {
		si := src.PixOffset(r.Min.X, y)
		di := dst.PixOffset(r.Min.X-origin.X, y-origin.Y)
		copy(dst.Pix[di:di+rowLen], src.Pix[si:si+rowLen])
	}
}

// opaque sets every alpha value to 255, leaving colour values untouched.
func opaque(img *image.NRGBA) {
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
}
