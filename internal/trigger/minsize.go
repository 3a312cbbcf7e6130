package trigger

import "github.com/banshee-data/tripline/internal/geom"

// MinSizeTrigger restricts a child trigger to objects that grew to at
// least a minimum height: it installs the store's min-size filter for the
// duration of the call and delegates. Without a child, every observation
// of a qualifying object fires. The filter is store-wide shared state, so
// it is cleared on every return path.
type MinSizeTrigger struct {
	baseTrigger

	dm        DataManager
	minHeight int
	child     Trigger
}

// NewMinSizeTrigger creates a min-size trigger. child may be nil.
func NewMinSizeTrigger(dm DataManager, minHeight int, child Trigger) *MinSizeTrigger {
	return &MinSizeTrigger{dm: dm, minHeight: minHeight, child: child}
}

// Search implements Trigger.
func (t *MinSizeTrigger) Search(start, stop int64, mode Mode, procSizes []ProcSizeSpan) (matches []Match, err error) {
	if err := t.dm.SetMinSizeFilter(t.minHeight); err != nil {
		return nil, err
	}
	defer func() {
		if cerr := t.dm.SetMinSizeFilter(0); cerr != nil && err == nil {
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
func (t *MinSizeTrigger) SearchForRanges(start, stop int64, procSizes []ProcSizeSpan) (ranges []Range, err error) {
	if err := t.dm.SetMinSizeFilter(t.minHeight); err != nil {
		return nil, err
	}
	defer func() {
		if cerr := t.dm.SetMinSizeFilter(0); cerr != nil && err == nil {
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
func (t *MinSizeTrigger) Finalize(objIDs []int64, procSizes []ProcSizeSpan) ([]Match, error) {
	if t.child != nil {
		return t.child.Finalize(objIDs, procSizes)
	}
	return nil, nil
}

// Reset implements Trigger.
func (t *MinSizeTrigger) Reset() {
	if t.child != nil {
		t.child.Reset()
	}
}

// SetDataManager implements Trigger.
func (t *MinSizeTrigger) SetDataManager(dm DataManager) {
	t.dm = dm
	if t.child != nil {
		t.child.SetDataManager(dm)
	}
}

// SetProcessingCoordSpace implements Trigger.
func (t *MinSizeTrigger) SetProcessingCoordSpace(space geom.CoordSpace) {
	if t.child != nil {
		t.child.SetProcessingCoordSpace(space)
	}
}

// PlayTimeOffset implements Trigger.
func (t *MinSizeTrigger) PlayTimeOffset() (int64, bool) {
	if t.child != nil {
		return t.child.PlayTimeOffset()
	}
	return 0, false
}

// ShouldCombineClips implements Trigger.
func (t *MinSizeTrigger) ShouldCombineClips() bool {
	if t.child != nil {
		return t.child.ShouldCombineClips()
	}
	return true
}

// VideoDebugShapes implements Trigger.
func (t *MinSizeTrigger) VideoDebugShapes() []geom.Shape {
	if t.child != nil {
		return t.child.VideoDebugShapes()
	}
	return nil
}

// SpatiallyAware implements Trigger. The size threshold is resolution
// dependent, so the trigger counts as spatial even without a child.
func (t *MinSizeTrigger) SpatiallyAware() bool {
	return true
}
