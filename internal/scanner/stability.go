package scanner

import (
	"image"
	"image/color"
	"time"

	"artiscan/internal/layout"
)

// awaitStable polls the detail-panel region until K consecutive frame
// pairs show no perceptual change. This absorbs the selection transition
// animation without a fixed fragile delay. The poll count is bounded;
// exceeding it is ErrStabilityTimeout.
func (c *Controller) awaitStable() error {
	rect, err := c.profile.RectFor(layout.FieldPanel)
	if err != nil {
		return err
	}
	prev, err := c.captureRegion(rect)
	if err != nil {
		return err
	}
	quiet := 0
	for attempt := 0; attempt < c.cfg.StabilityAttempts; attempt++ {
		time.Sleep(c.cfg.StabilityPoll)
		cur, err := c.captureRegion(rect)
		if err != nil {
			return err
		}
		if meanAbsDiff(prev.Image, cur.Image) <= c.cfg.PixelDiffLimit {
			quiet++
			if quiet >= c.cfg.StabilityFrames {
				return nil
			}
		} else {
			quiet = 0
		}
		prev = cur
	}
	return ErrStabilityTimeout
}

// meanAbsDiff is the mean absolute grayscale difference per pixel between
// two same-sized frames, on the 0..255 scale. Sampling every other pixel
// in both axes is plenty for animation detection and quarters the cost.
func meanAbsDiff(a, b image.Image) float64 {
	ab, bb := a.Bounds(), b.Bounds()
	w, h := ab.Dx(), ab.Dy()
	if bb.Dx() < w {
		w = bb.Dx()
	}
	if bb.Dy() < h {
		h = bb.Dy()
	}
	if w == 0 || h == 0 {
		return 0
	}
	var sum float64
	var n int
	for y := 0; y < h; y += 2 {
		for x := 0; x < w; x += 2 {
			ga := color.GrayModel.Convert(a.At(ab.Min.X+x, ab.Min.Y+y)).(color.Gray).Y
			gb := color.GrayModel.Convert(b.At(bb.Min.X+x, bb.Min.Y+y)).(color.Gray).Y
			d := int(ga) - int(gb)
			if d < 0 {
				d = -d
			}
			sum += float64(d)
			n++
		}
	}
	return sum / float64(n)
}
