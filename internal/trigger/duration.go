package trigger

import (
	"sort"

	"github.com/banshee-data/tripline/internal/geom"
)

// DurationTrigger fires based on how long its child has been continuously
// active for an object. With moreThan set it fires once the child has been
// active longer than the threshold; otherwise it fires from the first
// child fire until the threshold is reached. A gap in the child's fires
// (a skipped frame) restarts the object's activity window.
type DurationTrigger struct {
	baseTrigger

	child      Trigger
	durationMs int64
	moreThan   bool

	playOffset int64

	// active tracks, per object, when the current unbroken run of child
	// fires started and the last frame it covered.
	active map[int64]activitySpan
}

type activitySpan struct {
	firstTimeMs int64
	lastFrame   int64
}

// NewDurationTrigger creates a duration combinator over the child.
func NewDurationTrigger(child Trigger, durationMs int64, moreThan bool) *DurationTrigger {
	t := &DurationTrigger{
		child:      child,
		durationMs: durationMs,
		moreThan:   moreThan,
		active:     make(map[int64]activitySpan),
	}
	if moreThan {
		t.playOffset = durationMs
	}
	return t
}

// Search implements Trigger.
func (t *DurationTrigger) Search(start, stop int64, mode Mode, procSizes []ProcSizeSpan) ([]Match, error) {
	if mode == ModeSingle {
		t.Reset()
	}

	results, err := t.child.Search(start, stop, mode, procSizes)
	if err != nil {
		return nil, err
	}
	return t.measure(results, false), nil
}

// Finalize implements Trigger.
func (t *DurationTrigger) Finalize(objIDs []int64, procSizes []ProcSizeSpan) ([]Match, error) {
	results, err := t.child.Finalize(objIDs, procSizes)
	if err != nil {
		return nil, err
	}
	return t.measure(results, true), nil
}

// measure walks the child's fires in time order, extending or restarting
// each object's activity window, and emits according to the threshold.
// Objects with no fire this call are dropped from the active map, except
// during finalize where more data for other objects may still arrive.
func (t *DurationTrigger) measure(results []Match, isFinalize bool) []Match {
	sorted := append([]Match(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TimeMs < sorted[j].TimeMs
	})

	var triggered []Match
	curActive := make(map[int64]bool, len(sorted))

	for _, m := range sorted {
		curActive[m.ObjectID] = true

		span, known := t.active[m.ObjectID]
		if known {
			// A skipped frame breaks the run.
			firstTime := span.firstTimeMs
			if span.lastFrame < m.Frame-1 {
				firstTime = m.TimeMs
			}
			t.active[m.ObjectID] = activitySpan{firstTime, m.Frame}

			diff := m.TimeMs - firstTime
			if t.moreThan {
				if diff > t.durationMs {
					triggered = append(triggered, m)
				}
			} else if diff < t.durationMs {
				triggered = append(triggered, m)
			}
		} else {
			t.active[m.ObjectID] = activitySpan{m.TimeMs, m.Frame}

			if !t.moreThan {
				// A first fire has trivially been active for less than
				// any threshold.
				triggered = append(triggered, m)
			}
		}
	}

	if !isFinalize {
		for id := range t.active {
			if !curActive[id] {
				delete(t.active, id)
			}
		}
	}

	return triggered
}

// SearchForRanges implements Trigger.
func (t *DurationTrigger) SearchForRanges(start, stop int64, procSizes []ProcSizeSpan) ([]Range, error) {
	return searchRanges(t, start, stop, procSizes)
}

// Reset implements Trigger.
func (t *DurationTrigger) Reset() {
	t.active = make(map[int64]activitySpan)
	t.child.Reset()
}

// SetDataManager implements Trigger.
func (t *DurationTrigger) SetDataManager(dm DataManager) {
	t.child.SetDataManager(dm)
}

// SetProcessingCoordSpace implements Trigger.
func (t *DurationTrigger) SetProcessingCoordSpace(space geom.CoordSpace) {
	t.child.SetProcessingCoordSpace(space)
}

// PlayTimeOffset implements Trigger. With moreThan, the interesting video
// started a full threshold before the first fire; clips should keep that
// lead-in when they can.
func (t *DurationTrigger) PlayTimeOffset() (int64, bool) {
	return t.playOffset, true
}

// ShouldCombineClips implements Trigger.
func (t *DurationTrigger) ShouldCombineClips() bool {
	return t.child.ShouldCombineClips()
}

// VideoDebugShapes implements Trigger.
func (t *DurationTrigger) VideoDebugShapes() []geom.Shape {
	return t.child.VideoDebugShapes()
}

// SpatiallyAware implements Trigger.
func (t *DurationTrigger) SpatiallyAware() bool {
	return t.child.SpatiallyAware()
}
