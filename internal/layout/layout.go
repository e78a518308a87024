// Package layout holds the static screen geometry of the inventory view.
// Geometry is data, not behavior: supporting a new resolution means adding
// a profile, never touching the recognition pipeline.
package layout

import (
	"errors"
	"fmt"
	"image"
)

// Field names one recognizable region of the detail panel.
type Field string

const (
	FieldTitle         Field = "title"
	FieldSlot          Field = "slot"
	FieldMainStatName  Field = "main_stat_name"
	FieldMainStatValue Field = "main_stat_value"
	FieldLevel         Field = "level"
	FieldSubStat1      Field = "sub_stat_1"
	FieldSubStat2      Field = "sub_stat_2"
	FieldSubStat3      Field = "sub_stat_3"
	FieldSubStat4      Field = "sub_stat_4"
	FieldSetName       Field = "set_name"
	FieldEquipped      Field = "equipped"
	FieldCounter       Field = "counter"
	FieldStars         Field = "stars"
	FieldLock          Field = "lock"
	FieldPanel         Field = "panel"
)

// TextFields lists the fields that go through the recognizer. Star band,
// lock icon and the whole-panel rect are pixel regions, not text.
var TextFields = []Field{
	FieldTitle, FieldSlot, FieldMainStatName, FieldMainStatValue,
	FieldLevel, FieldSubStat1, FieldSubStat2, FieldSubStat3, FieldSubStat4,
	FieldSetName, FieldEquipped,
}

// SubStatFields indexes the four substat line rects in panel order.
var SubStatFields = [4]Field{FieldSubStat1, FieldSubStat2, FieldSubStat3, FieldSubStat4}

// ErrUnsupportedResolution means no profile matches the screen size.
var ErrUnsupportedResolution = errors.New("layout: unsupported resolution")

// Grid describes the inventory grid on the left of the detail panel.
type Grid struct {
	Origin      image.Point // center of the top-left cell
	Cols        int
	VisibleRows int
	StrideX     int // distance between cell centers
	StrideY     int
	ScrollStep  int // scroll amount that advances exactly one row
}

// Profile is the full geometry for one resolution. Immutable after load.
type Profile struct {
	Width, Height int
	Fields        map[Field]image.Rectangle
	Grid          Grid
}

// RectFor returns the pixel rectangle of a named field.
func (p *Profile) RectFor(f Field) (image.Rectangle, error) {
	r, ok := p.Fields[f]
	if !ok {
		return image.Rectangle{}, fmt.Errorf("layout: no rect for field %s at %dx%d", f, p.Width, p.Height)
	}
	return r, nil
}

// CellCenter returns the click point for grid position (row, col). The row
// is relative to the currently visible window, not the absolute list row.
func (p *Profile) CellCenter(row, col int) image.Point {
	return image.Point{
		X: p.Grid.Origin.X + col*p.Grid.StrideX,
		Y: p.Grid.Origin.Y + row*p.Grid.StrideY,
	}
}

// ProfileFor looks up the profile matching a screen size.
func ProfileFor(width, height int) (*Profile, error) {
	for _, p := range profiles {
		if p.Width == width && p.Height == height {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %dx%d", ErrUnsupportedResolution, width, height)
}

// Supported returns every resolution with a builtin profile.
func Supported() []image.Point {
	out := make([]image.Point, len(profiles))
	for i, p := range profiles {
		out[i] = image.Point{X: p.Width, Y: p.Height}
	}
	return out
}
