package scanner

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"artiscan/internal/artifact"
	"artiscan/internal/capture"
	"artiscan/internal/layout"
	"artiscan/internal/ocr"
	"artiscan/internal/parse"
)

// optional fields may legitimately decode empty: a fresh artifact has no
// substats past the first, and an unequipped one has no equip line.
var optionalFields = map[layout.Field]bool{
	layout.FieldSubStat1: true,
	layout.FieldSubStat2: true,
	layout.FieldSubStat3: true,
	layout.FieldSubStat4: true,
	layout.FieldEquipped: true,
}

// readDetail captures the screen once and turns the detail panel into a
// candidate record. The per-field crop/recognize work is independent, so
// it fans out over a bounded worker pool and joins before assembly.
func (c *Controller) readDetail() (*artifact.Record, error) {
	frame, err := c.captureFull()
	if err != nil {
		return nil, err
	}

	texts := make(map[layout.Field]string, len(layout.TextFields))
	var mu sync.Mutex
	var firstErr error
	var wg sync.WaitGroup
	sem := make(chan struct{}, c.cfg.Workers)

	for _, field := range layout.TextFields {
		rect, rerr := c.profile.RectFor(field)
		if rerr != nil {
			return nil, rerr
		}
		wg.Add(1)
		go func(field layout.Field, rect image.Rectangle) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			decoded, rerr := c.reco.Recognize(frame.SubImage(rect))
			mu.Lock()
			defer mu.Unlock()
			if rerr != nil {
				if errors.Is(rerr, ocr.ErrEmptyRecognition) && optionalFields[field] {
					texts[field] = ""
					return
				}
				if firstErr == nil {
					firstErr = fmt.Errorf("field %s: %w", field, rerr)
				}
				return
			}
			texts[field] = decoded.Text
		}(field, rect)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	return c.assemble(frame, texts)
}

// assemble parses the decoded texts plus the non-text regions (star band,
// lock icon) into a record. Pure except for reading frame pixels.
func (c *Controller) assemble(frame *capture.Frame, texts map[layout.Field]string) (*artifact.Record, error) {
	setName, err := parse.SetName(texts[layout.FieldSetName])
	if err != nil {
		return nil, err
	}
	slot, err := parse.Slot(texts[layout.FieldSlot])
	if err != nil {
		return nil, err
	}
	level, err := parse.Level(texts[layout.FieldLevel])
	if err != nil {
		return nil, err
	}
	main, err := parse.MainStat(texts[layout.FieldMainStatName], texts[layout.FieldMainStatValue])
	if err != nil {
		return nil, err
	}

	var subs []artifact.StatValue
	for _, f := range layout.SubStatFields {
		raw := texts[f]
		if raw == "" {
			break // substat lines are contiguous from the top
		}
		sv, err := parse.StatLine(string(f), raw)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sv)
	}

	starsRect, err := c.profile.RectFor(layout.FieldStars)
	if err != nil {
		return nil, err
	}
	rarity, err := countStars(frame.SubImage(starsRect))
	if err != nil {
		return nil, err
	}

	lockRect, err := c.profile.RectFor(layout.FieldLock)
	if err != nil {
		return nil, err
	}

	return &artifact.Record{
		Title:      texts[layout.FieldTitle],
		SetName:    setName,
		Slot:       slot,
		Rarity:     rarity,
		Level:      level,
		MainStat:   main,
		SubStats:   subs,
		Locked:     lockClosed(frame.SubImage(lockRect)),
		EquippedBy: parse.EquippedBy(texts[layout.FieldEquipped]),
	}, nil
}

// captureFull grabs the whole screen with the retry bound, so field rects
// can be cropped in absolute coordinates.
func (c *Controller) captureFull() (*capture.Frame, error) {
	var last error
	for attempt := 0; attempt < c.cfg.CaptureRetries; attempt++ {
		f, cerr := c.capture.CaptureScreen()
		if cerr == nil {
			return f, nil
		}
		last = cerr
	}
	if last == nil {
		last = fmt.Errorf("%w: no capture attempts", capture.ErrCaptureUnavailable)
	}
	return nil, last
}

// countStars derives rarity from the star band: each rendered star glyph
// is one contiguous run of gold pixels along the band's middle line. The
// rarity indicator is graphical, so free-text recognition never sees it.
func countStars(band image.Image) (int, error) {
	b := band.Bounds()
	y := b.Min.Y + b.Dy()/2
	runs := 0
	inRun := false
	for x := b.Min.X; x < b.Max.X; x++ {
		if isStarGold(band.At(x, y)) {
			if !inRun {
				runs++
				inRun = true
			}
		} else {
			inRun = false
		}
	}
	if runs < 1 || runs > 5 {
		return 0, fmt.Errorf("star band: %d runs", runs)
	}
	return runs, nil
}

func isStarGold(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r>>8 > 200 && g>>8 > 140 && b>>8 < 110
}

// lockClosed classifies the lock icon. A closed padlock renders as a
// filled glyph, an open one as a thin outline, so the lit-pixel ratio
// separates them cleanly.
func lockClosed(icon image.Image) bool {
	b := icon.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return false
	}
	lit, total := 0, 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(icon.At(x, y)).(color.Gray)
			if g.Y > 180 {
				lit++
			}
			total++
		}
	}
	return float64(lit)/float64(total) > 0.25
}
