package classifier

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Preprocess resizes img to the schema's square input size with bilinear
// interpolation, scales channels to [0,1], standardises them with the
// schema's mean and std and lays the values out in the requested order.
func Preprocess(img image.Image, s Schema, layout Layout) []float32 {
	size := s.InputSize
	rgb := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(rgb, rgb.Bounds(), img, img.Bounds(), draw.Src, nil)

	plane := size * size
	out := make([]float32, 3*plane)
	for y := range size {
		for x := range size {
			i := rgb.PixOffset(x, y)
			p := y*size + x
			for c := range 3 {
				v := (float32(rgb.Pix[i+c])/255 - s.Mean[c]) / s.Std[c]
				if layout == NCHW {
					out[c*plane+p] = v
				} else {
					out[p*3+c] = v
				}
			}
		}
	}
	return out
}

// Softmax converts raw scores into a categorical distribution. The maximum
// score is subtracted first so large logits do not overflow.
func Softmax(scores []float32) []float64 {
	if len(scores) == 0 {
		return nil
	}

	hi := math.Inf(-1)
	for _, s := range scores {
		hi = max(hi, float64(s))
	}

	out := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(float64(s) - hi)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Round4 rounds v to 4 decimal digits, half away from zero.
func Round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
