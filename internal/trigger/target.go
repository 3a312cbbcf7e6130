package trigger

import "github.com/banshee-data/tripline/internal/geom"

// TargetTrigger restricts a child trigger to objects of particular classes
// (person, vehicle, ...) by installing the store's target filter for the
// duration of the call. Works the same way as MinSizeTrigger: decorate and
// delegate, clearing the filter on every return path.
type TargetTrigger struct {
	baseTrigger

	dm      DataManager
	targets []Target
	child   Trigger
}

// NewTargetTrigger creates a target trigger. child may be nil.
func NewTargetTrigger(dm DataManager, targets []Target, child Trigger) *TargetTrigger {
	return &TargetTrigger{dm: dm, targets: targets, child: child}
}

// Search implements Trigger.
func (t *TargetTrigger) Search(start, stop int64, mode Mode, procSizes []ProcSizeSpan) (matches []Match, err error) {
	if err := t.dm.SetTargetFilter(t.targets, start, stop); err != nil {
		return nil, err
	}
	defer func() {
		if cerr := t.dm.SetTargetFilter(nil, 0, 0); cerr != nil && err == nil {
			matches, err = nil, cerr
		}
	}()

	if t.child != nil {
		return t.child.Search(start, stop, mode, procSizes)
	}

	objIDs, err := t.dm.GetObjectsBetweenTimes(start, stop)
	if err != nil {
		return nil, err
	}
	boxes, err := t.dm.GetObjectBboxesBetweenTimes(objIDs, start, stop)
	if err != nil {
		return nil, err
	}
	for _, obs := range boxes {
		matches = append(matches, Match{obs.ObjectID, obs.Frame, obs.TimeMs})
	}
	return matches, nil
}

// SearchForRanges implements Trigger. Without a child the store can
// produce the per-object ranges directly.
func (t *TargetTrigger) SearchForRanges(start, stop int64, procSizes []ProcSizeSpan) (ranges []Range, err error) {
	if err := t.dm.SetTargetFilter(t.targets, start, stop); err != nil {
		return nil, err
	}
	defer func() {
		if cerr := t.dm.SetTargetFilter(nil, 0, 0); cerr != nil && err == nil {
			ranges, err = nil, cerr
		}
	}()

	if t.child != nil {
		return t.child.SearchForRanges(start, stop, procSizes)
	}
	return t.dm.GetObjectRangesBetweenTimes(start, stop)
}

// Finalize implements Trigger. The ids were vetted by the search that
// retained them, so the filter is not reinstalled here.
func (t *TargetTrigger) Finalize(objIDs []int64, procSizes []ProcSizeSpan) ([]Match, error) {
	if t.child != nil {
		return t.child.Finalize(objIDs, procSizes)
	}
	return nil, nil
}

// Reset implements Trigger.
func (t *TargetTrigger) Reset() {
	if t.child != nil {
		t.child.Reset()
	}
}

// SetDataManager implements Trigger.
func (t *TargetTrigger) SetDataManager(dm DataManager) {
	t.dm = dm
	if t.child != nil {
		t.child.SetDataManager(dm)
	}
}

// SetProcessingCoordSpace implements Trigger.
func (t *TargetTrigger) SetProcessingCoordSpace(space geom.CoordSpace) {
	if t.child != nil {
		t.child.SetProcessingCoordSpace(space)
	}
}

// PlayTimeOffset implements Trigger.
func (t *TargetTrigger) PlayTimeOffset() (int64, bool) {
	if t.child != nil {
		return t.child.PlayTimeOffset()
	}
	return 0, false
}

// ShouldCombineClips implements Trigger.
func (t *TargetTrigger) ShouldCombineClips() bool {
	if t.child != nil {
		return t.child.ShouldCombineClips()
	}
	return true
}

// VideoDebugShapes implements Trigger.
func (t *TargetTrigger) VideoDebugShapes() []geom.Shape {
	if t.child != nil {
		return t.child.VideoDebugShapes()
	}
	return nil
}

// SpatiallyAware implements Trigger.
func (t *TargetTrigger) SpatiallyAware() bool {
	if t.child != nil {
		return t.child.SpatiallyAware()
	}
	return false
}
