// Package geom provides the integer pixel-space geometry used by the trigger
// engine: bounding boxes, tracking points, segment crossing tests and the
// ray-cast point-in-polygon test. These run once per object per frame per
// trigger, so everything here is branch-light and allocation-free.
package geom

import "fmt"

// rayLimit is the x coordinate treated as "infinity" for the horizontal
// ray cast in PointInPolygon. Coordinate spaces are pixel grids, so any
// value beyond the largest supported frame width works.
const rayLimit = 10000

// Point is a pixel coordinate. Origin is the top-left corner of the frame,
// y grows downward (screen convention).
type Point struct {
	X int
	Y int
}

// BBox is an axis-aligned bounding box. (X1, Y1) is the top-left pixel of
// the object; (X2, Y2) is exclusive, i.e. one pixel outside the object on
// both axes. This matches the detector output format.
type BBox struct {
	X1 int
	Y1 int
	X2 int
	Y2 int
}

// Segment is a directed line segment from (X1, Y1) to (X2, Y2).
type Segment struct {
	X1 int
	Y1 int
	X2 int
	Y2 int
}

// TrackPoint selects the representative point of a bounding box used for
// geometric tests.
type TrackPoint int

const (
	TrackCenter TrackPoint = iota
	TrackTop
	TrackBottom
	TrackLeft
	TrackRight
)

// ParseTrackPoint converts the serialized name of a track point.
func ParseTrackPoint(s string) (TrackPoint, error) {
	switch s {
	case "center":
		return TrackCenter, nil
	case "top":
		return TrackTop, nil
	case "bottom":
		return TrackBottom, nil
	case "left":
		return TrackLeft, nil
	case "right":
		return TrackRight, nil
	}
	return 0, fmt.Errorf("unknown track point %q", s)
}

func (tp TrackPoint) String() string {
	switch tp {
	case TrackCenter:
		return "center"
	case TrackTop:
		return "top"
	case TrackBottom:
		return "bottom"
	case TrackLeft:
		return "left"
	case TrackRight:
		return "right"
	}
	return fmt.Sprintf("TrackPoint(%d)", int(tp))
}

// Direction is the rotational sense a crossing must have to count, relative
// to the orientation of the boundary segment.
type Direction int

const (
	DirAny Direction = iota
	DirLeft
	DirRight
)

// ParseDirection converts the serialized name of a crossing direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "any":
		return DirAny, nil
	case "left":
		return DirLeft, nil
	case "right":
		return DirRight, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

func (d Direction) String() string {
	switch d {
	case DirAny:
		return "any"
	case DirLeft:
		return "left"
	case DirRight:
		return "right"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// Side is the position of a point relative to the infinite line through a
// segment, looking along the segment from its first point to its second.
type Side int

const (
	SideLeft Side = iota
	SideRight
	SideOn
)

// TrackingPoint returns the requested representative point of a bounding
// box. The exclusive (X2, Y2) corner is pulled back inside the object
// before any midpoint math.
func TrackingPoint(box BBox, tp TrackPoint) Point {
	x2 := box.X2 - 1
	y2 := box.Y2 - 1

	switch tp {
	case TrackTop:
		return Point{(box.X1 + x2) / 2, box.Y1}
	case TrackBottom:
		return Point{(box.X1 + x2) / 2, y2}
	case TrackLeft:
		return Point{box.X1, (box.Y1 + y2) / 2}
	case TrackRight:
		return Point{x2, (box.Y1 + y2) / 2}
	default: // TrackCenter
		return Point{(box.X1 + x2) / 2, (box.Y1 + y2) / 2}
	}
}

// SideOfLine reports which side of the infinite line through seg the point
// p lies on, using the sign of the 2D cross product. A zero cross product
// means p is collinear with the line.
func SideOfLine(seg Segment, p Point) Side {
	a := (seg.X2 - seg.X1) * (p.Y - seg.Y1)
	b := (seg.Y2 - seg.Y1) * (p.X - seg.X1)
	switch {
	case a > b:
		return SideLeft
	case a < b:
		return SideRight
	}
	return SideOn
}

// CrossesLine reports whether the tracking point of an object moved across
// the boundary segment between two consecutive bounding box observations,
// in the required direction. DirAny matches any crossing whose start point
// is strictly off the line; DirLeft and DirRight require the start point
// to have been on that side. A start point exactly on the boundary never
// counts as a crossing.
func CrossesLine(prev, cur BBox, boundary Segment, tp TrackPoint, dir Direction) bool {
	prevPt := TrackingPoint(prev, tp)
	curPt := TrackingPoint(cur, tp)

	prevSide := SideOfLine(boundary, prevPt)
	curSide := SideOfLine(boundary, curPt)

	// Same side of the line: no crossing.
	if prevSide == curSide {
		return false
	}

	objXs := prevPt.X - curPt.X
	objYs := prevPt.Y - curPt.Y
	segXs := boundary.X1 - boundary.X2
	segYs := boundary.Y1 - boundary.Y2

	denom := objXs*segYs - segXs*objYs
	if denom == 0 {
		// Segments are parallel, couldn't have crossed.
		return false
	}

	objCp := prevPt.X*curPt.Y - curPt.X*prevPt.Y
	segCp := boundary.X1*boundary.Y2 - boundary.X2*boundary.Y1

	// Intersection of the two segments treated as infinite lines.
	intX := float64(objCp*segXs-segCp*objXs) / float64(denom)
	intY := float64(objCp*segYs-segCp*objYs) / float64(denom)

	// Check that the intersection lands on both actual segments, not just
	// their extensions.
	if !betweenX(intX, prevPt.X, curPt.X) || !betweenX(intX, boundary.X1, boundary.X2) {
		return false
	}

	// Vertical segments collapse the x range to a single value, so the y
	// coordinate needs its own bounds check.
	if boundary.X1 == boundary.X2 && !betweenX(intY, boundary.Y1, boundary.Y2) {
		return false
	}
	if prevPt.X == curPt.X && !betweenX(intY, prevPt.Y, curPt.Y) {
		return false
	}

	switch dir {
	case DirAny:
		return prevSide != SideOn
	case DirLeft:
		return prevSide == SideLeft
	case DirRight:
		return prevSide == SideRight
	}
	return false
}

// PointInPolygon reports whether p lies inside the polygon described by
// edges, using the ray casting algorithm: a horizontal ray from p toward
// +x infinity is intersected with every edge, and odd parity means inside.
// An intersection exactly at a vertex is counted only when the other
// endpoint of the edge lies above the scanline, so a vertex shared by two
// edges is not counted twice. Boundary points follow the scanline
// convention of this exact formulation rather than a strictly inclusive
// rule; stored search results depend on it staying that way.
//
// The polygon must have at least three edges; behaviour is unspecified
// otherwise.
func PointInPolygon(edges []Segment, p Point) bool {
	tX1 := p.X
	tY1 := p.Y
	tX2 := -1

	tXs := tX1 - tX2
	tCp := tXs * tY1

	intersections := 0

	for i := range edges {
		x1 := edges[i].X1
		y1 := edges[i].Y1
		x2 := edges[i].X2
		y2 := edges[i].Y2

		xs := x1 - x2
		ys := y1 - y2
		denom := tXs * ys
		if denom == 0 {
			// Edge is parallel to the scanline.
			continue
		}

		cp := x1*y2 - x2*y1
		intX := float64(tCp*xs-cp*tXs) / float64(denom)
		intY := float64(tCp*ys) / float64(denom)

		if !betweenX(intX, tX1, rayLimit) || !betweenX(intX, x1, x2) {
			continue
		}
		if x1 == x2 && !betweenX(intY, y1, y2) {
			continue
		}

		// Vertex rule: a vertex hit counts only when the edge continues
		// above the scanline; edges heading below are skipped.
		if (intX == float64(x1) && intY == float64(y1) && float64(y2) > intY) ||
			(intX == float64(x2) && intY == float64(y2) && float64(y1) > intY) {
			continue
		}

		intersections++
	}

	return intersections%2 == 1
}

// ObjectInPolygon is PointInPolygon applied to the tracking point of a
// bounding box.
func ObjectInPolygon(edges []Segment, box BBox, tp TrackPoint) bool {
	return PointInPolygon(edges, TrackingPoint(box, tp))
}

// betweenX reports whether v lies within [a, b] or [b, a].
func betweenX(v float64, a, b int) bool {
	return (float64(a) <= v && v <= float64(b)) || (float64(b) <= v && v <= float64(a))
}
