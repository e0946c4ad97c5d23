package capture

import (
	"math"

	"github.com/takeda-juku/tensaku/internal/schema"
)

// Viewport describes how the current page is rendered on screen: the
// zoom factor applied to page points and the pixel offset of the page
// image inside the canvas.
type Viewport struct {
	Page    int
	Zoom    float64
	OffsetX float64
	OffsetY float64
}

// Drag is a press-to-release gesture in canvas pixel coordinates.
type Drag struct {
	StartX, StartY float64
	EndX, EndY     float64
}

// Rect converts a drag to a page-point rectangle: subtract the render
// offset, divide by zoom, clamp negatives to zero, normalize the corner
// order, round to the nearest integer.
func (v Viewport) Rect(d Drag) schema.FieldRect {
	toPage := func(px, off float64) float64 {
		p := (px - off) / v.Zoom
		if p < 0 {
			return 0
		}
		return p
	}
	x0 := toPage(math.Min(d.StartX, d.EndX), v.OffsetX)
	y0 := toPage(math.Min(d.StartY, d.EndY), v.OffsetY)
	x1 := toPage(math.Max(d.StartX, d.EndX), v.OffsetX)
	y1 := toPage(math.Max(d.StartY, d.EndY), v.OffsetY)
	return schema.FieldRect{
		Page: v.Page,
		X0:   math.Round(x0),
		Y0:   math.Round(y0),
		X1:   math.Round(x1),
		Y1:   math.Round(y1),
	}
}
