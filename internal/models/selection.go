package models

import "fmt"

// Selection is the set of checked track ids for a fetched playlist.
//
// Ids that were not part of the last Reset are ignored, so the selected set is
// always a subset of the fetched tracks. Not safe for concurrent use.
type Selection struct {
	order    []string
	known    map[string]struct{}
	selected map[string]struct{}
}

// NewSelection returns a Selection over tracks with every track selected.
func NewSelection(tracks []Track) *Selection {
	s := &Selection{}
	s.Reset(tracks)
	return s
}

// Reset replaces the fetched tracks and selects all of them.
func (s *Selection) Reset(tracks []Track) {
	s.order = make([]string, 0, len(tracks))
	s.known = make(map[string]struct{}, len(tracks))
	s.selected = make(map[string]struct{}, len(tracks))

	for _, t := range tracks {
		if _, dup := s.known[t.ID]; dup {
			continue
		}
		s.order = append(s.order, t.ID)
		s.known[t.ID] = struct{}{}
		s.selected[t.ID] = struct{}{}
	}
}

// Set checks or unchecks id. Unknown ids are ignored.
func (s *Selection) Set(id string, checked bool) {
	if _, ok := s.known[id]; !ok {
		return
	}
	if checked {
		s.selected[id] = struct{}{}
	} else {
		delete(s.selected, id)
	}
}

// Toggle flips id and returns its new state.
func (s *Selection) Toggle(id string) bool {
	checked := !s.IsSelected(id)
	s.Set(id, checked)
	return s.IsSelected(id)
}

// IsSelected reports whether id is checked.
func (s *Selection) IsSelected(id string) bool {
	_, ok := s.selected[id]
	return ok
}

// SelectAll checks every fetched track.
func (s *Selection) SelectAll() {
	for _, id := range s.order {
		s.selected[id] = struct{}{}
	}
}

// DeselectAll clears the selection.
func (s *Selection) DeselectAll() {
	clear(s.selected)
}

// Selected returns the checked ids in fetch order.
func (s *Selection) Selected() []string {
	ids := make([]string, 0, len(s.selected))
	for _, id := range s.order {
		if _, ok := s.selected[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Count returns the number of checked tracks.
func (s *Selection) Count() int { return len(s.selected) }

// Total returns the number of fetched tracks.
func (s *Selection) Total() int { return len(s.order) }

// Summary renders the counter shown next to the checklist.
func (s *Selection) Summary() string {
	return fmt.Sprintf("%d / %d selected", s.Count(), s.Total())
}
