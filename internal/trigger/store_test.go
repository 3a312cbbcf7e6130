package trigger

import (
	"sort"

	"github.com/banshee-data/tripline/internal/geom"
)

// fakeStore is an in-memory DataManager for trigger tests. Query semantics
// mirror the sqlite store: object visibility honors the min-size and
// target filters, boxes come back ordered by object id then time.
type fakeStore struct {
	tracks map[int64]*fakeTrack

	minSize int
	targets []Target
}

type fakeTrack struct {
	id        int64
	class     string
	maxHeight int
	boxes     []BoxObservation
}

func newFakeStore() *fakeStore {
	return &fakeStore{tracks: make(map[int64]*fakeTrack)}
}

// addBox appends an observation to an object's trajectory. Boxes must be
// added in time order.
func (s *fakeStore) addBox(id, frame, timeMs int64, box geom.BBox) {
	tr := s.tracks[id]
	if tr == nil {
		tr = &fakeTrack{id: id, class: "object"}
		s.tracks[id] = tr
	}
	if h := box.Y2 - box.Y1; h > tr.maxHeight {
		tr.maxHeight = h
	}
	tr.boxes = append(tr.boxes, BoxObservation{Box: box, Frame: frame, TimeMs: timeMs, ObjectID: id})
}

func (s *fakeStore) setClass(id int64, class string) {
	s.tracks[id].class = class
}

func (s *fakeStore) visible(tr *fakeTrack) bool {
	if s.minSize > 0 && tr.maxHeight < s.minSize {
		return false
	}
	if len(s.targets) > 0 {
		ok := false
		for _, t := range s.targets {
			if t.Class == tr.class {
				ok = true
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func (s *fakeStore) sortedIDs() []int64 {
	ids := make([]int64, 0, len(s.tracks))
	for id := range s.tracks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *fakeStore) GetObjectsBetweenTimes(start, stop int64) ([]int64, error) {
	var out []int64
	for _, id := range s.sortedIDs() {
		tr := s.tracks[id]
		if !s.visible(tr) || len(tr.boxes) == 0 {
			continue
		}
		first := tr.boxes[0].TimeMs
		last := tr.boxes[len(tr.boxes)-1].TimeMs
		if afterStart(last, start) && beforeStop(first, stop) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *fakeStore) GetObjectBboxesBetweenTimes(objIDs []int64, start, stop int64) ([]BoxObservation, error) {
	ids := append([]int64(nil), objIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []BoxObservation
	for _, id := range ids {
		tr := s.tracks[id]
		if tr == nil {
			continue
		}
		for _, b := range tr.boxes {
			if afterStart(b.TimeMs, start) && beforeStop(b.TimeMs, stop) {
				out = append(out, b)
			}
		}
	}
	return out, nil
}

func (s *fakeStore) GetFirstObjectBbox(objID int64) (geom.BBox, int64, int64, bool, error) {
	tr := s.tracks[objID]
	if tr == nil || len(tr.boxes) == 0 {
		return geom.BBox{}, -1, -1, false, nil
	}
	b := tr.boxes[0]
	return b.Box, b.Frame, b.TimeMs, true, nil
}

func (s *fakeStore) GetObjectFinalTime(objID int64) (int64, int64, error) {
	tr := s.tracks[objID]
	if tr == nil || len(tr.boxes) == 0 {
		return -1, -1, nil
	}
	b := tr.boxes[len(tr.boxes)-1]
	return b.Frame, b.TimeMs, nil
}

func (s *fakeStore) GetBboxAtFrame(objID, frame int64) (geom.BBox, bool, error) {
	tr := s.tracks[objID]
	if tr == nil {
		return geom.BBox{}, false, nil
	}
	for _, b := range tr.boxes {
		if b.Frame == frame {
			return b.Box, true, nil
		}
	}
	return geom.BBox{}, false, nil
}

func (s *fakeStore) GetObjectStartTime(objID int64) (int64, error) {
	tr := s.tracks[objID]
	if tr == nil || len(tr.boxes) == 0 {
		return -1, nil
	}
	return tr.boxes[0].TimeMs, nil
}

func (s *fakeStore) GetFrameAtTime(objID, timeMs int64) (int64, error) {
	tr := s.tracks[objID]
	if tr == nil {
		return -1, nil
	}
	for _, b := range tr.boxes {
		if b.TimeMs >= timeMs-10 && b.TimeMs <= timeMs+10 {
			return b.Frame, nil
		}
	}
	return -1, nil
}

func (s *fakeStore) GetObjectRangesBetweenTimes(start, stop int64) ([]Range, error) {
	var out []Range
	for _, id := range s.sortedIDs() {
		tr := s.tracks[id]
		if !s.visible(tr) {
			continue
		}
		var first, last *BoxObservation
		for i := range tr.boxes {
			b := &tr.boxes[i]
			if !afterStart(b.TimeMs, start) || !beforeStop(b.TimeMs, stop) {
				continue
			}
			if first == nil {
				first = b
			}
			last = b
		}
		if first != nil {
			out = append(out, Range{
				ObjectID: id,
				First:    MarkPoint{first.TimeMs, first.Frame},
				Last:     MarkPoint{last.TimeMs, last.Frame},
			})
		}
	}
	return out, nil
}

func (s *fakeStore) SetMinSizeFilter(minHeight int) error {
	s.minSize = minHeight
	return nil
}

func (s *fakeStore) SetTargetFilter(targets []Target, start, stop int64) error {
	s.targets = targets
	return nil
}

// boxAround returns an 11x11 box whose center tracking point is (cx, cy).
func boxAround(cx, cy int) geom.BBox {
	return geom.BBox{X1: cx - 5, Y1: cy - 5, X2: cx + 6, Y2: cy + 6}
}

// matchesEqual compares two match lists ignoring order.
func matchesEqual(a, b []Match) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[Match]int, len(a))
	for _, m := range a {
		counts[m]++
	}
	for _, m := range b {
		counts[m]--
		if counts[m] < 0 {
			return false
		}
	}
	return true
}
