package model

// State is a point-in-time view of a CRUD-managed collection.
type State[T any] struct {
	SelectedItem *T   `json:"selectedItem"`
	Items        []T  `json:"items"`
	Loading      bool `json:"loading"`
}

// NewState returns the initial state: no selection, no items, not loading.
func NewState[T any]() State[T] {
	return State[T]{Items: []T{}}
}

// Clone returns a deep copy of the slice and selection so the result can be
// handed to callers without sharing backing arrays.
func (s State[T]) Clone() State[T] {
	out := State[T]{Loading: s.Loading}
	out.Items = make([]T, len(s.Items))
	copy(out.Items, s.Items)
	if s.SelectedItem != nil {
		sel := *s.SelectedItem
		out.SelectedItem = &sel
	}
	return out
}
