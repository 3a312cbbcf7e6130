package trigger

import (
	"fmt"

	"github.com/banshee-data/tripline/internal/geom"
)

// BinaryOp is the joining operation of a BinaryTrigger.
type BinaryOp int

const (
	OpAnd BinaryOp = iota
	OpOr
)

// ParseBinaryOp converts the serialized name of a binary operation.
func ParseBinaryOp(s string) (BinaryOp, error) {
	switch s {
	case "and":
		return OpAnd, nil
	case "or":
		return OpOr, nil
	}
	return 0, fmt.Errorf("unknown binary op %q", s)
}

// BinaryTrigger joins the fires of several child triggers with AND or OR.
//
// For AND, sameObject requires the identical (object, frame, time) fire
// from every child; diffObject requires every child to fire at the same
// frame with a distinct object per child; with neither set, any fire at a
// frame where all children fired counts. Results are deduplicated and
// unordered.
type BinaryTrigger struct {
	baseTrigger

	op         BinaryOp
	children   []Trigger
	sameObject bool
	diffObject bool

	msOffset       int64
	preserveOffset bool
}

// NewBinaryTrigger creates a binary combinator over the children. The
// play-time offset is aggregated from the children once, up front.
func NewBinaryTrigger(op BinaryOp, children []Trigger, sameObject, diffObject bool) (*BinaryTrigger, error) {
	if op != OpAnd && op != OpOr {
		return nil, fmt.Errorf("unknown binary op %d", op)
	}
	if sameObject && diffObject {
		return nil, fmt.Errorf("sameObject and diffObject are mutually exclusive")
	}

	t := &BinaryTrigger{
		op:         op,
		children:   append([]Trigger(nil), children...),
		sameObject: sameObject,
		diffObject: diffObject,
	}
	for _, child := range t.children {
		ms, preserve := child.PlayTimeOffset()
		t.msOffset = max(t.msOffset, ms)
		t.preserveOffset = t.preserveOffset || preserve
	}
	return t, nil
}

// AddChild appends another child trigger to the combination.
func (t *BinaryTrigger) AddChild(child Trigger) {
	t.children = append(t.children, child)
}

// Search implements Trigger.
func (t *BinaryTrigger) Search(start, stop int64, mode Mode, procSizes []ProcSizeSpan) ([]Match, error) {
	if len(t.children) == 0 {
		return nil, nil
	}

	results := make([][]Match, 0, len(t.children))
	for _, child := range t.children {
		r, err := child.Search(start, stop, mode, procSizes)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}

	return t.combine(results), nil
}

// Finalize implements Trigger.
func (t *BinaryTrigger) Finalize(objIDs []int64, procSizes []ProcSizeSpan) ([]Match, error) {
	if len(t.children) == 0 {
		return nil, nil
	}

	results := make([][]Match, 0, len(t.children))
	for _, child := range t.children {
		r, err := child.Finalize(objIDs, procSizes)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}

	return t.combine(results), nil
}

func (t *BinaryTrigger) combine(results [][]Match) []Match {
	if t.op == OpAnd {
		return t.combineAnd(results)
	}
	return t.combineOr(results)
}

func (t *BinaryTrigger) combineAnd(results [][]Match) []Match {
	if t.sameObject {
		// Same object per fire: a straight set intersection.
		triggered := matchSet(results[0])
		for _, result := range results[1:] {
			other := matchSet(result)
			for m := range triggered {
				if !other[m] {
					delete(triggered, m)
				}
			}
		}
		return setToSlice(triggered)
	}

	// Frames at which every child fired.
	frames := frameSet(results[0])
	for _, result := range results[1:] {
		other := frameSet(result)
		for f := range frames {
			if !other[f] {
				delete(frames, f)
			}
		}
	}

	triggered := make(map[Match]bool)

	if t.diffObject {
		// Build, frame by frame, every way of picking one fire per child;
		// a picked set keeps its full size only when the children's
		// objects were all distinct (identical fires collapse).
		perFrame := make(map[int64][]map[Match]bool, len(frames))
		for f := range frames {
			perFrame[f] = []map[Match]bool{{}}
		}

		for _, result := range results {
			atFrame := make(map[int64][]Match, len(frames))
			for f := range frames {
				atFrame[f] = nil
			}
			for _, m := range result {
				if _, ok := atFrame[m.Frame]; ok {
					atFrame[m.Frame] = append(atFrame[m.Frame], m)
				}
			}

			for f, fires := range atFrame {
				existing := perFrame[f]
				perFrame[f] = nil
				for _, m := range fires {
					for _, set := range existing {
						grown := make(map[Match]bool, len(set)+1)
						for k := range set {
							grown[k] = true
						}
						grown[m] = true
						perFrame[f] = append(perFrame[f], grown)
					}
				}
			}
		}

		for _, sets := range perFrame {
			for _, set := range sets {
				if len(set) == len(results) {
					for m := range set {
						triggered[m] = true
					}
				}
			}
		}
	} else {
		// Any object combination: every fire at a shared frame counts.
		for _, result := range results {
			for _, m := range result {
				if frames[m.Frame] {
					triggered[m] = true
				}
			}
		}
	}

	return setToSlice(triggered)
}

func (t *BinaryTrigger) combineOr(results [][]Match) []Match {
	triggered := make(map[Match]bool)
	for _, result := range results {
		for _, m := range result {
			triggered[m] = true
		}
	}
	return setToSlice(triggered)
}

// SearchForRanges implements Trigger.
func (t *BinaryTrigger) SearchForRanges(start, stop int64, procSizes []ProcSizeSpan) ([]Range, error) {
	return searchRanges(t, start, stop, procSizes)
}

// Reset implements Trigger.
func (t *BinaryTrigger) Reset() {
	for _, child := range t.children {
		child.Reset()
	}
}

// SetDataManager implements Trigger.
func (t *BinaryTrigger) SetDataManager(dm DataManager) {
	for _, child := range t.children {
		child.SetDataManager(dm)
	}
}

// SetProcessingCoordSpace implements Trigger.
func (t *BinaryTrigger) SetProcessingCoordSpace(space geom.CoordSpace) {
	for _, child := range t.children {
		child.SetProcessingCoordSpace(space)
	}
}

// PlayTimeOffset implements Trigger.
func (t *BinaryTrigger) PlayTimeOffset() (int64, bool) {
	return t.msOffset, t.preserveOffset
}

// VideoDebugShapes implements Trigger.
func (t *BinaryTrigger) VideoDebugShapes() []geom.Shape {
	var shapes []geom.Shape
	for _, child := range t.children {
		shapes = append(shapes, child.VideoDebugShapes()...)
	}
	return shapes
}

// SpatiallyAware implements Trigger.
func (t *BinaryTrigger) SpatiallyAware() bool {
	for _, child := range t.children {
		if child.SpatiallyAware() {
			return true
		}
	}
	return false
}

func matchSet(ms []Match) map[Match]bool {
	set := make(map[Match]bool, len(ms))
	for _, m := range ms {
		set[m] = true
	}
	return set
}

func frameSet(ms []Match) map[int64]bool {
	set := make(map[int64]bool, len(ms))
	for _, m := range ms {
		set[m.Frame] = true
	}
	return set
}

func setToSlice(set map[Match]bool) []Match {
	out := make([]Match, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	return out
}
