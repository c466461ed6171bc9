package imaging

import (
	"image"

	"golang.org/x/image/draw"
)

// Normalise stretches each of the R, G and B channels independently so that
// its minimum maps to 0 and its maximum to 255. A constant channel is left
// unchanged. Alpha is never modified. The source image is not altered.
//
// Integer arithmetic makes the transform idempotent: a stretched channel
// spans exactly [0,255] and maps onto itself.
func Normalise(img image.Image) *image.NRGBA {
	dst := toNRGBA(img)
	pix := dst.Pix

	var lo, hi [3]uint8
	for c := range 3 {
		lo[c], hi[c] = 255, 0
	}
	for i := 0; i < len(pix); i += 4 {
		for c := range 3 {
			v := pix[i+c]
			lo[c] = min(lo[c], v)
			hi[c] = max(hi[c], v)
		}
	}

	for c := range 3 {
		if lo[c] >= hi[c] {
			continue
		}
		span := int(hi[c]) - int(lo[c])
		base := int(lo[c])
		for i := c; i < len(pix); i += 4 {
			pix[i] = uint8((int(pix[i]) - base) * 255 / span)
		}
	}

	return dst
}

// toNRGBA returns a copy of img as a zero-origin *image.NRGBA.
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	// Row copy keeps non-premultiplied values exact
	if src, ok := img.(*image.NRGBA); ok {
		rowLen := b.Dx() * 4
		for y := range b.Dy() {
			i := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+rowLen], src.Pix[i:i+rowLen])
		}
		return dst
	}

	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
