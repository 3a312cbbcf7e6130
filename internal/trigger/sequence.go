package trigger

import (
	"github.com/banshee-data/tripline/internal/geom"
)

// SequenceTrigger fires when its second trigger fires within a time window
// after the first: a second-trigger fire at time t counts when some
// first-trigger fire happened at t1 with t-windowMs <= t1 < t. With
// sameObject the two fires must come from the same object; otherwise any
// first-trigger fire opens the window.
type SequenceTrigger struct {
	baseTrigger

	first    Trigger
	second   Trigger
	windowMs int64

	sameObject bool

	// Retained first-trigger fire times: per object when sameObject,
	// pooled otherwise. Finalize prunes times too old to ever open a
	// window again.
	perObjectTimes map[int64][]int64
	pooledTimes    map[int64]bool

	latestStop int64
}

// NewSequenceTrigger creates a sequence combinator: second following first
// within windowMs.
func NewSequenceTrigger(first, second Trigger, windowMs int64, sameObject bool) *SequenceTrigger {
	t := &SequenceTrigger{
		first:      first,
		second:     second,
		windowMs:   windowMs,
		sameObject: sameObject,
	}
	t.clearTimes()
	return t
}

func (t *SequenceTrigger) clearTimes() {
	if t.sameObject {
		t.perObjectTimes = make(map[int64][]int64)
		t.pooledTimes = nil
	} else {
		t.perObjectTimes = nil
		t.pooledTimes = make(map[int64]bool)
	}
}

// Search implements Trigger.
func (t *SequenceTrigger) Search(start, stop int64, mode Mode, procSizes []ProcSizeSpan) ([]Match, error) {
	t.latestStop = stop

	firstResults, err := t.first.Search(start, stop, mode, procSizes)
	if err != nil {
		return nil, err
	}
	secondResults, err := t.second.Search(start, stop, mode, procSizes)
	if err != nil {
		return nil, err
	}

	triggered := t.combine(firstResults, secondResults)

	if mode == ModeSingle {
		t.Reset()
	}

	return triggered, nil
}

// combine records the first trigger's fire times and emits every second
// fire with an open window.
func (t *SequenceTrigger) combine(firstResults, secondResults []Match) []Match {
	for _, m := range firstResults {
		if t.sameObject {
			t.perObjectTimes[m.ObjectID] = append(t.perObjectTimes[m.ObjectID], m.TimeMs)
		} else {
			t.pooledTimes[m.TimeMs] = true
		}
	}

	triggered := make(map[Match]bool)
	for _, m := range secondResults {
		earliest := m.TimeMs - t.windowMs

		if t.sameObject {
			for _, tm := range t.perObjectTimes[m.ObjectID] {
				if tm >= earliest && tm < m.TimeMs {
					triggered[m] = true
					break
				}
			}
		} else {
			for tm := range t.pooledTimes {
				if tm >= earliest && tm < m.TimeMs {
					triggered[m] = true
					break
				}
			}
		}
	}

	return setToSlice(triggered)
}

// Finalize implements Trigger. Besides combining the children's finalize
// results, retained first-trigger times of completed objects are dropped
// and times too old to open any future window are pruned.
func (t *SequenceTrigger) Finalize(objIDs []int64, procSizes []ProcSizeSpan) ([]Match, error) {
	firstResults, err := t.first.Finalize(objIDs, procSizes)
	if err != nil {
		return nil, err
	}
	secondResults, err := t.second.Finalize(objIDs, procSizes)
	if err != nil {
		return nil, err
	}
	triggered := t.combine(firstResults, secondResults)

	// A zero or unbounded stop carries no cutoff; the newest retained
	// opener supplies one below.
	var minTime int64
	haveMin := false
	if t.latestStop > 0 {
		minTime = t.latestStop - t.windowMs
		haveMin = true
	}

	if t.sameObject {
		for _, id := range objIDs {
			times := t.perObjectTimes[id]
			if !haveMin && len(times) > 0 {
				latest := times[0]
				for _, tm := range times[1:] {
					latest = max(latest, tm)
				}
				minTime = latest - t.windowMs
				haveMin = true
			}
			delete(t.perObjectTimes, id)
		}
		if haveMin {
			for id, times := range t.perObjectTimes {
				kept := times[:0]
				for _, tm := range times {
					if tm > minTime {
						kept = append(kept, tm)
					}
				}
				t.perObjectTimes[id] = kept
			}
		}
	} else {
		if !haveMin && len(t.pooledTimes) > 0 {
			first := true
			var latest int64
			for tm := range t.pooledTimes {
				if first || tm > latest {
					latest = tm
					first = false
				}
			}
			minTime = latest - t.windowMs
			haveMin = true
		}
		if haveMin {
			for tm := range t.pooledTimes {
				if tm <= minTime {
					delete(t.pooledTimes, tm)
				}
			}
		}
	}

	return triggered, nil
}

// SearchForRanges implements Trigger.
func (t *SequenceTrigger) SearchForRanges(start, stop int64, procSizes []ProcSizeSpan) ([]Range, error) {
	return searchRanges(t, start, stop, procSizes)
}

// Reset implements Trigger.
func (t *SequenceTrigger) Reset() {
	t.clearTimes()
	t.first.Reset()
	t.second.Reset()
}

// SetDataManager implements Trigger.
func (t *SequenceTrigger) SetDataManager(dm DataManager) {
	t.first.SetDataManager(dm)
	t.second.SetDataManager(dm)
}

// SetProcessingCoordSpace implements Trigger.
func (t *SequenceTrigger) SetProcessingCoordSpace(space geom.CoordSpace) {
	t.first.SetProcessingCoordSpace(space)
	t.second.SetProcessingCoordSpace(space)
}

// VideoDebugShapes implements Trigger.
func (t *SequenceTrigger) VideoDebugShapes() []geom.Shape {
	return append(t.first.VideoDebugShapes(), t.second.VideoDebugShapes()...)
}

// SpatiallyAware implements Trigger.
func (t *SequenceTrigger) SpatiallyAware() bool {
	return t.first.SpatiallyAware() || t.second.SpatiallyAware()
}
