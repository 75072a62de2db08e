package ast

import "fmt"

// Slot is a write-once annotation attached to a node during analysis.
type Slot[T any] struct {
	value T
	set   bool
}

// Set stores v. A second Set fails and leaves the first value in place.
func (s *Slot[T]) Set(v T) error {
	if s.set {
		return fmt.Errorf("annotation already set")
	}
	s.value = v
	s.set = true
	return nil
}

// Get returns the stored value and whether one was set.
func (s *Slot[T]) Get() (T, bool) {
	return s.value, s.set
}

// Value returns the stored value, or the zero value when unset.
func (s *Slot[T]) Value() T {
	return s.value
}

func (s *Slot[T]) IsSet() bool {
	return s.set
}
