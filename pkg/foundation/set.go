package foundation

import (
	"fmt"

	"huta_go/pkg/memory"
)

// Set is an unordered identity set. A member is retained exactly once no
// matter how often it is added.
type Set struct {
	memory.Object
	members map[memory.Ref]struct{}
}

// NewSet returns an empty set owned by the caller.
func NewSet(opts ...memory.Option) *Set {
	s := &Set{members: make(map[memory.Ref]struct{})}
	s.Init(s, opts...)
	return s
}

// Len returns the number of members.
func (s *Set) Len() int {
	return len(s.members)
}

// AddObject adds r, retaining it only if it was absent.
func (s *Set) AddObject(r memory.Ref) {
	mustObject("Set.AddObject", r)
	if _, ok := s.members[r]; ok {
		return
	}
	s.members[r.Retain()] = struct{}{}
}

// RemoveObject removes r, releasing it only if it was present.
func (s *Set) RemoveObject(r memory.Ref) bool {
	if memory.IsNil(r) {
		return false
	}
	if _, ok := s.members[r]; !ok {
		return false
	}
	delete(s.members, r)
	r.Release()
	return true
}

// RemoveAllObjects releases every member once.
func (s *Set) RemoveAllObjects() {
	members := s.members
	s.members = make(map[memory.Ref]struct{})
	for r := range members {
		r.Release()
	}
}

// Contains reports whether r is a member.
func (s *Set) Contains(r memory.Ref) bool {
	if memory.IsNil(r) {
		return false
	}
	_, ok := s.members[r]
	return ok
}

// AllObjects returns a caller-owned array of the members in unspecified order.
func (s *Set) AllObjects() *Array {
	out := NewArrayWithCapacity(len(s.members), s.ManagerOption())
	for r := range s.members {
		out.AddObject(r)
	}
	return out
}

// Dealloc releases every member.
func (s *Set) Dealloc() {
	s.RemoveAllObjects()
}

func (s *Set) String() string {
	return fmt.Sprintf("Set(len=%d)", len(s.members))
}
