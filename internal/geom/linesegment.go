package geom

// Change notification keys passed to shape listeners.
const (
	ChangePoints    = "points"
	ChangeProposed  = "proposed"
	ChangeDirection = "direction"
)

// Shape is a piece of editable trigger geometry that can be drawn as an
// overlay. DebugLines returns the committed geometry as segments, scaled to
// the requested space when both spaces are known.
type Shape interface {
	DebugLines(to *CoordSpace) []Segment
}

// LineSegmentDef is a user-editable boundary line: a committed segment, an
// optional pending proposal (used while the user drags an endpoint in an
// editor), a crossing direction and the coordinate space the committed
// points live in.
//
// A nil coordinate space means the points are not tied to any particular
// resolution yet; scaling on input or output is skipped until one is set.
type LineSegmentDef struct {
	seg      Segment
	proposed *Segment
	dir      Direction
	space    *CoordSpace

	listeners []func(key string)
}

// NewLineSegmentDef creates a boundary line definition. space may be nil.
func NewLineSegmentDef(seg Segment, dir Direction, space *CoordSpace) *LineSegmentDef {
	d := &LineSegmentDef{seg: seg, dir: dir}
	if space != nil {
		cs := *space
		d.space = &cs
	}
	return d
}

// Subscribe registers a listener that is called with a change key whenever
// the definition is modified.
func (d *LineSegmentDef) Subscribe(fn func(key string)) {
	d.listeners = append(d.listeners, fn)
}

func (d *LineSegmentDef) notify(key string) {
	for _, fn := range d.listeners {
		fn(key)
	}
}

// CoordSpace returns the space the committed points live in, or nil if one
// was never set.
func (d *LineSegmentDef) CoordSpace() *CoordSpace {
	return d.space
}

// SetCoordSpace sets the coordinate space of the definition. If a space was
// already set, the committed points are rescaled into the new space so the
// line stays in the same place on screen; otherwise the points are adopted
// as-is.
func (d *LineSegmentDef) SetCoordSpace(space CoordSpace) {
	if d.space == nil {
		d.space = &space
		return
	}
	old := *d.space
	d.space = &space
	d.seg = ScaleSegment(d.seg, old, space)
}

// canScale reports whether scaling against other is possible: both our own
// space and the other one must be known.
func (d *LineSegmentDef) canScale(other *CoordSpace) bool {
	return d.space != nil && other != nil
}

// Direction returns the crossing direction of the line.
func (d *LineSegmentDef) Direction() Direction {
	return d.dir
}

// SetDirection changes the crossing direction and notifies listeners.
func (d *LineSegmentDef) SetDirection(dir Direction) {
	d.dir = dir
	d.notify(ChangeDirection)
}

// Points returns the committed segment, ignoring any proposal, scaled to
// the given space when possible.
func (d *LineSegmentDef) Points(to *CoordSpace) Segment {
	if d.canScale(to) {
		return ScaleSegment(d.seg, *d.space, *to)
	}
	return d.seg
}

// ProposedPoints returns the proposed segment if a proposal is pending,
// the committed segment otherwise, scaled to the given space when possible.
func (d *LineSegmentDef) ProposedPoints(to *CoordSpace) Segment {
	seg := d.seg
	if d.proposed != nil {
		seg = *d.proposed
	}
	if d.canScale(to) {
		return ScaleSegment(seg, *d.space, *to)
	}
	return seg
}

// SetPoints replaces the committed segment, discards any proposal and
// notifies listeners.
func (d *LineSegmentDef) SetPoints(seg Segment, from *CoordSpace) {
	if d.canScale(from) {
		seg = ScaleSegment(seg, *from, *d.space)
	}
	d.seg = seg
	d.proposed = nil
	d.notify(ChangePoints)
}

// ProposePointChange proposes moving endpoint i (0 or 1) to (x, y) while
// the other endpoint keeps its committed position.
func (d *LineSegmentDef) ProposePointChange(i, x, y int, from *CoordSpace) {
	if d.canScale(from) {
		x, y = ScalePoint(x, y, *from, *d.space)
	}

	proposed := d.seg
	if i == 0 {
		proposed.X1, proposed.Y1 = x, y
	} else {
		proposed.X2, proposed.Y2 = x, y
	}
	d.proposed = &proposed
	d.notify(ChangeProposed)
}

// ProposeOffset proposes translating the whole segment by (dx, dy),
// cropping the offset so the segment stays within [0, maxWidth) x
// [0, maxHeight).
func (d *LineSegmentDef) ProposeOffset(dx, dy, maxWidth, maxHeight int, from *CoordSpace) {
	if d.canScale(from) {
		dx, dy = ScalePoint(dx, dy, *from, *d.space)
		maxWidth, maxHeight = ScalePoint(maxWidth, maxHeight, *from, *d.space)
	}

	tlX := min(d.seg.X1, d.seg.X2)
	tlY := min(d.seg.Y1, d.seg.Y2)
	width := max(d.seg.X1, d.seg.X2) - tlX + 1
	height := max(d.seg.Y1, d.seg.Y2) - tlY + 1

	dx, dy = cropOffset(dx, dy, tlX, tlY, width, height, maxWidth, maxHeight)

	proposed := Segment{
		X1: d.seg.X1 + dx, Y1: d.seg.Y1 + dy,
		X2: d.seg.X2 + dx, Y2: d.seg.Y2 + dy,
	}
	if d.proposed == nil || proposed != *d.proposed {
		d.proposed = &proposed
		d.notify(ChangeProposed)
	}
}

// RejectProposal discards a pending proposal, if any, and notifies
// listeners of the change.
func (d *LineSegmentDef) RejectProposal() {
	if d.proposed != nil {
		d.proposed = nil
		d.notify(ChangeProposed)
	}
}

// DebugLines implements Shape.
func (d *LineSegmentDef) DebugLines(to *CoordSpace) []Segment {
	return []Segment{d.Points(to)}
}

// cropOffset limits a translation so the shape's bounding box, currently at
// (tlX, tlY) with the given size, stays inside the max bounds.
func cropOffset(dx, dy, tlX, tlY, width, height, maxWidth, maxHeight int) (int, int) {
	if dx < 0 {
		if tlX+dx < 0 {
			dx = -tlX
		}
	} else if tlX+width+dx > maxWidth {
		dx = maxWidth - (tlX + width)
	}
	if dy < 0 {
		if tlY+dy < 0 {
			dy = -tlY
		}
	} else if tlY+height+dy > maxHeight {
		dy = maxHeight - (tlY + height)
	}
	return dx, dy
}
