package layout

import "image"

// Reference geometry was measured on the 1920x1080 client. The 16:9
// profiles at higher resolutions are uniform scalings of it; the client
// scales its whole UI linearly between these sizes.
var base = &Profile{
	Width:  1920,
	Height: 1080,
	Fields: map[Field]image.Rectangle{
		FieldTitle:         image.Rect(1400, 110, 1870, 150),
		FieldSlot:          image.Rect(1400, 160, 1700, 192),
		FieldMainStatName:  image.Rect(1400, 278, 1700, 310),
		FieldMainStatValue: image.Rect(1400, 310, 1700, 356),
		FieldStars:         image.Rect(1400, 360, 1640, 396),
		FieldLevel:         image.Rect(1406, 414, 1478, 446),
		FieldSubStat1:      image.Rect(1430, 460, 1830, 492),
		FieldSubStat2:      image.Rect(1430, 496, 1830, 528),
		FieldSubStat3:      image.Rect(1430, 532, 1830, 564),
		FieldSubStat4:      image.Rect(1430, 568, 1830, 600),
		FieldSetName:       image.Rect(1400, 610, 1830, 644),
		FieldEquipped:      image.Rect(1440, 980, 1830, 1012),
		FieldLock:          image.Rect(1804, 414, 1836, 446),
		FieldCounter:       image.Rect(1170, 30, 1350, 60),
		FieldPanel:         image.Rect(1370, 100, 1880, 1020),
	},
	Grid: Grid{
		Origin:      image.Point{X: 150, Y: 180},
		Cols:        8,
		VisibleRows: 5,
		StrideX:     146,
		StrideY:     176,
		ScrollStep:  176,
	},
}

var profiles = []*Profile{
	base,
	scaled(base, 2560, 1440),
	scaled(base, 3840, 2160),
}

func scaled(p *Profile, width, height int) *Profile {
	sx := width
	sy := height
	mul := func(v, s, d int) int { return v * s / d }
	out := &Profile{
		Width:  width,
		Height: height,
		Fields: make(map[Field]image.Rectangle, len(p.Fields)),
		Grid: Grid{
			Origin: image.Point{
				X: mul(p.Grid.Origin.X, sx, p.Width),
				Y: mul(p.Grid.Origin.Y, sy, p.Height),
			},
			Cols:        p.Grid.Cols,
			VisibleRows: p.Grid.VisibleRows,
			StrideX:     mul(p.Grid.StrideX, sx, p.Width),
			StrideY:     mul(p.Grid.StrideY, sy, p.Height),
			ScrollStep:  mul(p.Grid.ScrollStep, sy, p.Height),
		},
	}
	for f, r := range p.Fields {
		out.Fields[f] = image.Rect(
			mul(r.Min.X, sx, p.Width),
			mul(r.Min.Y, sy, p.Height),
			mul(r.Max.X, sx, p.Width),
			mul(r.Max.Y, sy, p.Height),
		)
	}
	return out
}
