// Package capture supplies on-demand screen bitmaps to the scan loop.
package capture

import (
	"errors"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"github.com/kbinani/screenshot"
)

// ErrCaptureUnavailable means the screen could not be grabbed. The caller
// decides whether to retry; this package never retries internally.
var ErrCaptureUnavailable = errors.New("capture: screen unavailable")

// Frame is one captured bitmap. It belongs to the current scan iteration
// only and must not be retained past it.
type Frame struct {
	Image image.Image
	Size  image.Point // full-screen resolution the frame was taken at
	Seq   uint64
	Taken time.Time
}

// SubImage crops a region out of the frame without copying pixels.
func (f *Frame) SubImage(r image.Rectangle) image.Image {
	type subImager interface {
		SubImage(r image.Rectangle) image.Image
	}
	if si, ok := f.Image.(subImager); ok {
		return si.SubImage(r)
	}
	return f.Image
}

// Adapter is the capture collaborator the scanner depends on.
type Adapter interface {
	CaptureScreen() (*Frame, error)
	CaptureRegion(r image.Rectangle) (*Frame, error)
}

// ScreenAdapter grabs the primary display.
type ScreenAdapter struct {
	bounds image.Rectangle
	seq    atomic.Uint64
}

// NewScreenAdapter checks the primary display. Fails when no display is
// attached (headless session, remote desktop torn down).
func NewScreenAdapter() (*ScreenAdapter, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return nil, fmt.Errorf("%w: no active displays", ErrCaptureUnavailable)
	}
	return &ScreenAdapter{bounds: screenshot.GetDisplayBounds(0)}, nil
}

// Resolution returns the primary display size.
func (a *ScreenAdapter) Resolution() image.Point {
	return image.Point{X: a.bounds.Dx(), Y: a.bounds.Dy()}
}

func (a *ScreenAdapter) CaptureScreen() (*Frame, error) {
	return a.CaptureRegion(a.bounds)
}

func (a *ScreenAdapter) CaptureRegion(r image.Rectangle) (*Frame, error) {
	img, err := screenshot.CaptureRect(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	return &Frame{
		Image: img,
		Size:  a.Resolution(),
		Seq:   a.seq.Add(1),
		Taken: time.Now(),
	}, nil
}
