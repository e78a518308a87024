package ocr

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// monoEps is the minimum intensity spread for a crop to count as carrying
// glyphs at all. Below it the crop is flat background.
const monoEps = 0.02

// preprocess converts a field crop into the model's 32x384 float input:
// grayscale, scale to height 32 preserving aspect, right-pad to width 384,
// min-max normalize, and flip polarity so glyphs are bright. Returns
// ok=false for a monochrome crop, which decodes to the empty string
// without running the model.
func preprocess(src image.Image) (pixels []float64, ok bool) {
	scaled := scaleToInput(src)

	pixels = make([]float64, InputHeight*InputWidth)
	minV, maxV := 1.0, 0.0
	for y := 0; y < InputHeight; y++ {
		for x := 0; x < scaled.Bounds().Dx(); x++ {
			g := color.GrayModel.Convert(scaled.At(x, y)).(color.Gray)
			v := float64(g.Y) / 255
			pixels[y*InputWidth+x] = v
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
		}
	}
	if maxV-minV < monoEps {
		return nil, false
	}

	// Normalize the written region to [0,1]; padding stays zero.
	w := scaled.Bounds().Dx()
	span := maxV - minV
	var sum float64
	for y := 0; y < InputHeight; y++ {
		for x := 0; x < w; x++ {
			v := (pixels[y*InputWidth+x] - minV) / span
			pixels[y*InputWidth+x] = v
			sum += v
		}
	}
	// Text pixels are the minority. A bright mean means dark-on-light, so
	// invert to match the training polarity (bright glyphs on dark).
	if sum/float64(InputHeight*w) > 0.5 {
		for y := 0; y < InputHeight; y++ {
			for x := 0; x < w; x++ {
				pixels[y*InputWidth+x] = 1 - pixels[y*InputWidth+x]
			}
		}
	}
	return pixels, true
}

// scaleToInput resizes to height 32 preserving aspect ratio, clamping the
// width at the model's maximum.
func scaleToInput(src image.Image) *image.Gray {
	sb := src.Bounds()
	w := sb.Dx() * InputHeight / max(sb.Dy(), 1)
	if w < 1 {
		w = 1
	}
	if w > InputWidth {
		w = InputWidth
	}
	dst := image.NewGray(image.Rect(0, 0, w, InputHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, draw.Src, nil)
	return dst
}
