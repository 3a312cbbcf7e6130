package trigger

import "fmt"

// EnterExitKind selects whether scene entries, exits or both fire.
type EnterExitKind int

const (
	EnterExitBoth EnterExitKind = iota
	EnterExitEnter
	EnterExitExit
)

// ParseEnterExitKind converts the serialized name of an enter/exit kind.
func ParseEnterExitKind(s string) (EnterExitKind, error) {
	switch s {
	case "both":
		return EnterExitBoth, nil
	case "enter":
		return EnterExitEnter, nil
	case "exit":
		return EnterExitExit, nil
	}
	return 0, fmt.Errorf("unknown enter/exit kind %q", s)
}

// EnterExitTrigger fires when an object appears in or disappears from the
// scene. Entries are reported at the object's true first observation,
// clamped to the query start; exits need complete data, so they are
// reported only by a ModeSingle search or by Finalize.
type EnterExitTrigger struct {
	baseTrigger

	dm   DataManager
	kind EnterExitKind

	// activeObjects carries the set of objects seen by the previous
	// realtime search, so only genuinely new objects report entries.
	activeObjects map[int64]bool
}

// NewEnterExitTrigger creates an enter/exit trigger.
func NewEnterExitTrigger(dm DataManager, kind EnterExitKind) *EnterExitTrigger {
	return &EnterExitTrigger{
		dm:            dm,
		kind:          kind,
		activeObjects: make(map[int64]bool),
	}
}

// Search implements Trigger.
func (t *EnterExitTrigger) Search(start, stop int64, mode Mode, procSizes []ProcSizeSpan) ([]Match, error) {
	var triggered []Match

	objIDs, err := t.dm.GetObjectsBetweenTimes(start, stop)
	if err != nil {
		return nil, err
	}
	curActive := make(map[int64]bool, len(objIDs))
	for _, id := range objIDs {
		curActive[id] = true
	}

	if t.kind != EnterExitExit {
		for _, id := range objIDs {
			if t.activeObjects[id] {
				continue
			}
			// Report the object's true start, not the first sample in
			// this window, but never a start before the query range.
			startTime, err := t.dm.GetObjectStartTime(id)
			if err != nil {
				return nil, err
			}
			if !afterStart(startTime, start) {
				continue
			}
			frame, err := t.dm.GetFrameAtTime(id, startTime)
			if err != nil {
				return nil, err
			}
			triggered = append(triggered, Match{id, frame, startTime})
		}
	}

	if mode == ModeSingle && t.kind != EnterExitEnter {
		// With complete data, every object's last observation in range
		// is an exit.
		for _, id := range objIDs {
			frame, endTime, err := t.dm.GetObjectFinalTime(id)
			if err != nil {
				return nil, err
			}
			if beforeStop(endTime, stop) {
				triggered = append(triggered, Match{id, frame, endTime})
			}
		}
	}

	if mode != ModeSingle {
		t.activeObjects = curActive
	}

	return triggered, nil
}

// Finalize implements Trigger: every completed object exited.
func (t *EnterExitTrigger) Finalize(objIDs []int64, _ []ProcSizeSpan) ([]Match, error) {
	if t.kind == EnterExitEnter {
		return nil, nil
	}

	var triggered []Match
	for _, id := range objIDs {
		frame, endTime, err := t.dm.GetObjectFinalTime(id)
		if err != nil {
			return nil, err
		}
		triggered = append(triggered, Match{id, frame, endTime})
	}
	return triggered, nil
}

// SearchForRanges implements Trigger.
func (t *EnterExitTrigger) SearchForRanges(start, stop int64, procSizes []ProcSizeSpan) ([]Range, error) {
	return searchRanges(t, start, stop, procSizes)
}

// Reset implements Trigger.
func (t *EnterExitTrigger) Reset() {
	t.activeObjects = make(map[int64]bool)
}

// SetDataManager implements Trigger.
func (t *EnterExitTrigger) SetDataManager(dm DataManager) {
	t.dm = dm
}
