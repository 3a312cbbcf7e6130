package geom

import "math"

// CoordSpace is the pixel grid a shape or bounding box is expressed in,
// identified by its width and height. Video may be processed at different
// resolutions over time, so coordinates carry their space with them and
// are rescaled at the boundaries.
type CoordSpace struct {
	Width  int
	Height int
}

// ScalePoint maps a coordinate from one space to another. The scale factor
// is (to-1)/(from-1) so that the last pixel of one grid maps to the last
// pixel of the other (319 in a 320-wide grid lands on 639 in a 640-wide
// grid), with rounding half away from zero.
func ScalePoint(x, y int, from, to CoordSpace) (int, int) {
	sx := float64(to.Width-1) / float64(from.Width-1)
	sy := float64(to.Height-1) / float64(from.Height-1)
	return int(math.Round(float64(x) * sx)), int(math.Round(float64(y) * sy))
}

// ScalePoints maps a list of points from one space to another. Returns a
// new slice; the input is not modified.
func ScalePoints(pts []Point, from, to CoordSpace) []Point {
	sx := float64(to.Width-1) / float64(from.Width-1)
	sy := float64(to.Height-1) / float64(from.Height-1)
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = Point{
			X: int(math.Round(float64(p.X) * sx)),
			Y: int(math.Round(float64(p.Y) * sy)),
		}
	}
	return out
}

// ScaleSegment maps both endpoints of a segment from one space to another.
func ScaleSegment(seg Segment, from, to CoordSpace) Segment {
	x1, y1 := ScalePoint(seg.X1, seg.Y1, from, to)
	x2, y2 := ScalePoint(seg.X2, seg.Y2, from, to)
	return Segment{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// ScaleBBox maps all four corners of a bounding box from one space to
// another.
func ScaleBBox(box BBox, from, to CoordSpace) BBox {
	x1, y1 := ScalePoint(box.X1, box.Y1, from, to)
	x2, y2 := ScalePoint(box.X2, box.Y2, from, to)
	return BBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}
