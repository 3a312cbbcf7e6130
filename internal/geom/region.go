package geom

import "fmt"

// RegionDef is a user-editable polygonal zone: a committed vertex list, an
// optional pending proposal and the coordinate space the committed vertices
// live in. Vertices must form a simple polygon wound clockwise in screen
// coordinates (origin top-left, y down); the constructor enforces both.
type RegionDef struct {
	points   []Point
	proposed []Point
	space    *CoordSpace

	listeners []func(key string)
}

// NewRegionDef creates a region definition. space may be nil. At least
// three vertices are required and they must be clockwise.
func NewRegionDef(points []Point, space *CoordSpace) (*RegionDef, error) {
	if len(points) < 3 {
		return nil, fmt.Errorf("region needs at least 3 points, got %d", len(points))
	}
	if !Clockwise(points) {
		return nil, fmt.Errorf("region points must be clockwise")
	}

	r := &RegionDef{points: append([]Point(nil), points...)}
	if space != nil {
		cs := *space
		r.space = &cs
	}
	return r, nil
}

// Subscribe registers a listener that is called with a change key whenever
// the definition is modified.
func (r *RegionDef) Subscribe(fn func(key string)) {
	r.listeners = append(r.listeners, fn)
}

func (r *RegionDef) notify(key string) {
	for _, fn := range r.listeners {
		fn(key)
	}
}

// CoordSpace returns the space the committed vertices live in, or nil if
// one was never set.
func (r *RegionDef) CoordSpace() *CoordSpace {
	return r.space
}

// SetCoordSpace sets the coordinate space of the region. If a space was
// already set, the committed vertices are rescaled into the new space;
// otherwise they are adopted as-is.
func (r *RegionDef) SetCoordSpace(space CoordSpace) {
	if r.space == nil {
		r.space = &space
		return
	}
	old := *r.space
	r.space = &space
	r.points = ScalePoints(r.points, old, space)
}

func (r *RegionDef) canScale(other *CoordSpace) bool {
	return r.space != nil && other != nil
}

// Points returns a copy of the committed vertices, ignoring any proposal,
// scaled to the given space when possible.
func (r *RegionDef) Points(to *CoordSpace) []Point {
	if r.canScale(to) {
		return ScalePoints(r.points, *r.space, *to)
	}
	return append([]Point(nil), r.points...)
}

// ProposedPoints returns a copy of the proposed vertices if a proposal is
// pending, the committed vertices otherwise, scaled to the given space when
// possible.
func (r *RegionDef) ProposedPoints(to *CoordSpace) []Point {
	pts := r.points
	if r.proposed != nil {
		pts = r.proposed
	}
	if r.canScale(to) {
		return ScalePoints(pts, *r.space, *to)
	}
	return append([]Point(nil), pts...)
}

// SetPoints replaces the committed vertices, discards any proposal and
// notifies listeners. The caller is responsible for keeping the polygon
// simple and clockwise.
func (r *RegionDef) SetPoints(points []Point, from *CoordSpace) {
	if r.canScale(from) {
		r.points = ScalePoints(points, *from, *r.space)
	} else {
		r.points = append([]Point(nil), points...)
	}
	r.proposed = nil
	r.notify(ChangePoints)
}

// ProposePointChange proposes moving vertex i to (x, y). The proposal is
// accepted only if the moved vertex keeps the polygon simple and clockwise;
// an invalid move leaves any earlier proposal untouched.
func (r *RegionDef) ProposePointChange(i, x, y int, from *CoordSpace) {
	if r.canScale(from) {
		x, y = ScalePoint(x, y, *from, *r.space)
	}

	n := len(r.points)
	proposed := append([]Point(nil), r.points...)
	proposed[i] = Point{x, y}

	// The polygon was simple before, so only the two edges touching the
	// moved vertex can introduce a crossing. Test them against every edge
	// they aren't adjacent to.
	leftI := (i - 1 + n) % n
	leftSeg := Segment{x, y, r.points[leftI].X, r.points[leftI].Y}

	rightI := (i + 1) % n
	rightSeg := Segment{x, y, r.points[rightI].X, r.points[rightI].Y}

	for pt := 0; pt < n; pt++ {
		prev := (pt - 1 + n) % n
		if prev == i || pt == i {
			continue
		}
		edge := Segment{
			r.points[prev].X, r.points[prev].Y,
			r.points[pt].X, r.points[pt].Y,
		}
		if pt != leftI {
			if _, _, ok := SegmentIntersection(edge, leftSeg); ok {
				return
			}
		}
		if prev != rightI {
			if _, _, ok := SegmentIntersection(edge, rightSeg); ok {
				return
			}
		}
	}

	if !Clockwise(proposed) {
		return
	}

	if !pointsEqual(proposed, r.proposed) {
		r.proposed = proposed
		r.notify(ChangeProposed)
	}
}

// ProposeOffset proposes translating the whole region by (dx, dy), cropping
// the offset so the region's bounding box stays within [0, maxWidth) x
// [0, maxHeight).
func (r *RegionDef) ProposeOffset(dx, dy, maxWidth, maxHeight int, from *CoordSpace) {
	if r.canScale(from) {
		dx, dy = ScalePoint(dx, dy, *from, *r.space)
		maxWidth, maxHeight = ScalePoint(maxWidth, maxHeight, *from, *r.space)
	}

	tlX, tlY := r.points[0].X, r.points[0].Y
	brX, brY := tlX, tlY
	for _, p := range r.points[1:] {
		tlX = min(tlX, p.X)
		tlY = min(tlY, p.Y)
		brX = max(brX, p.X)
		brY = max(brY, p.Y)
	}

	dx, dy = cropOffset(dx, dy, tlX, tlY, brX-tlX+1, brY-tlY+1, maxWidth, maxHeight)

	proposed := make([]Point, len(r.points))
	for i, p := range r.points {
		proposed[i] = Point{p.X + dx, p.Y + dy}
	}

	if !pointsEqual(proposed, r.proposed) {
		r.proposed = proposed
		r.notify(ChangeProposed)
	}
}

// RejectProposal discards a pending proposal, if any, and notifies
// listeners of the change.
func (r *RegionDef) RejectProposal() {
	if r.proposed != nil {
		r.proposed = nil
		r.notify(ChangeProposed)
	}
}

// Edges returns the boundary of the region as segments, vertex i to vertex
// i+1 with the last vertex closing back to the first, scaled to the given
// space when possible.
func (r *RegionDef) Edges(to *CoordSpace) []Segment {
	pts := r.Points(to)
	edges := make([]Segment, len(pts))
	for i := range pts {
		next := pts[(i+1)%len(pts)]
		edges[i] = Segment{pts[i].X, pts[i].Y, next.X, next.Y}
	}
	return edges
}

// DebugLines implements Shape.
func (r *RegionDef) DebugLines(to *CoordSpace) []Segment {
	return r.Edges(to)
}

func pointsEqual(a, b []Point) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Clockwise reports whether the polygon winds clockwise in screen
// coordinates (origin top-left, y growing downward). Uses the sign of the
// doubled signed area; in a y-up cartesian system the result would be
// reversed.
func Clockwise(points []Point) bool {
	doubledArea := 0
	n := len(points)
	for i := 0; i < n; i++ {
		prev := points[(i-2+n)%n]
		cur := points[(i-1+n)%n]
		next := points[i]
		doubledArea += cur.X * (next.Y - prev.Y)
	}
	return doubledArea > 0
}

// SegmentIntersection returns the point where two segments cross, or
// ok=false when they are parallel or meet only on their extensions. The
// endpoints count as part of each segment.
func SegmentIntersection(a, b Segment) (x, y float64, ok bool) {
	aXs := float64(a.X1 - a.X2)
	aYs := float64(a.Y1 - a.Y2)
	bXs := float64(b.X1 - b.X2)
	bYs := float64(b.Y1 - b.Y2)

	denom := bXs*aYs - aXs*bYs
	if denom == 0 {
		return -1, -1, false
	}

	aCp := float64(a.X1*a.Y2 - a.X2*a.Y1)
	bCp := float64(b.X1*b.Y2 - b.X2*b.Y1)

	x = (bCp*aXs - aCp*bXs) / denom
	y = (bCp*aYs - aCp*bYs) / denom

	if !betweenX(x, a.X1, a.X2) || !betweenX(x, b.X1, b.X2) {
		return -1, -1, false
	}

	// Vertical segments collapse the x range; check y explicitly.
	for _, seg := range [2]Segment{a, b} {
		if seg.X1 == seg.X2 && !betweenX(y, seg.Y1, seg.Y2) {
			return -1, -1, false
		}
	}

	return x, y, true
}
