package service

import "sort"

// SelectionSet is a set of entity IDs picked for a bulk action. Membership
// is by exact ID; IDs from pages the user navigated away from stay selected.
// It is not safe for concurrent use; its owner serializes access.
type SelectionSet struct {
	ids map[int64]struct{}
}

func NewSelectionSet() *SelectionSet {
	return &SelectionSet{ids: make(map[int64]struct{})}
}

// Toggle flips the membership of id.
func (s *SelectionSet) Toggle(id int64) {
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return
	}
	s.ids[id] = struct{}{}
}

func (s *SelectionSet) Has(id int64) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *SelectionSet) Len() int {
	return len(s.ids)
}

// IDs returns the selected IDs in ascending order.
func (s *SelectionSet) IDs() []int64 {
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *SelectionSet) Clear() {
	clear(s.ids)
}

// AllSelected reports whether every id in ids is selected. An empty ids
// slice is never "all selected".
func (s *SelectionSet) AllSelected(ids []int64) bool {
	if len(ids) == 0 {
		return false
	}
	for _, id := range ids {
		if !s.Has(id) {
			return false
		}
	}
	return true
}

// ToggleAll removes exactly ids when all of them are selected, otherwise
// adds the missing ones. IDs outside ids are never touched.
func (s *SelectionSet) ToggleAll(ids []int64) {
	if s.AllSelected(ids) {
		for _, id := range ids {
			delete(s.ids, id)
		}
		return
	}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
}
