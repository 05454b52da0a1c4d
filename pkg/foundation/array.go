package foundation

import (
	"fmt"

	"huta_go/pkg/memory"
)

// NotFound is returned by IndexOf when the object is absent.
const NotFound = -1

// Array is an ordered, growable sequence of retained objects.
// Elements are compared by identity; the array owns one reference per slot,
// so an object stored twice is retained twice.
type Array struct {
	memory.Object
	objects []memory.Ref
}

// NewArray returns an empty array owned by the caller.
func NewArray(opts ...memory.Option) *Array {
	return NewArrayWithCapacity(0, opts...)
}

// NewArrayWithCapacity returns an empty array with room for n elements.
func NewArrayWithCapacity(n int, opts ...memory.Option) *Array {
	if n < 0 {
		n = 0
	}
	a := &Array{objects: make([]memory.Ref, 0, n)}
	a.Init(a, opts...)
	return a
}

// NewArrayWithObjects returns an array holding objs in order, retaining each.
func NewArrayWithObjects(objs []memory.Ref, opts ...memory.Option) *Array {
	a := NewArrayWithCapacity(len(objs), opts...)
	for _, r := range objs {
		a.AddObject(r)
	}
	return a
}

// NewArrayWithArray returns a shallow copy of other. Shared elements are
// retained once more.
func NewArrayWithArray(other *Array, opts ...memory.Option) *Array {
	if other == nil {
		return NewArray(opts...)
	}
	return NewArrayWithObjects(other.objects, opts...)
}

// Len returns the number of elements.
func (a *Array) Len() int {
	return len(a.objects)
}

// Cap returns the capacity of the backing storage.
func (a *Array) Cap() int {
	return cap(a.objects)
}

// IndexOf returns the first position holding r, or NotFound.
func (a *Array) IndexOf(r memory.Ref) int {
	for i, obj := range a.objects {
		if memory.Same(obj, r) {
			return i
		}
	}
	return NotFound
}

// ObjectAt returns the element at i. The array keeps ownership.
func (a *Array) ObjectAt(i int) (memory.Ref, error) {
	if err := a.checkIndex("ObjectAt", i, len(a.objects)); err != nil {
		return nil, err
	}
	return a.objects[i], nil
}

// LastObject returns the final element.
func (a *Array) LastObject() (memory.Ref, error) {
	if len(a.objects) == 0 {
		return nil, &IndexError{Op: "LastObject", Index: 0, Bound: 0}
	}
	return a.objects[len(a.objects)-1], nil
}

// Contains reports whether r is an element, by identity.
func (a *Array) Contains(r memory.Ref) bool {
	return a.IndexOf(r) != NotFound
}

// IsEqualToArray reports whether both arrays hold the same objects in the same order.
func (a *Array) IsEqualToArray(o *Array) bool {
	if o == nil || len(a.objects) != len(o.objects) {
		return false
	}
	for i := range a.objects {
		if !memory.Same(a.objects[i], o.objects[i]) {
			return false
		}
	}
	return true
}

// IsEqual compares with another array element by element.
func (a *Array) IsEqual(other memory.Ref) bool {
	o, ok := other.(*Array)
	return ok && a.IsEqualToArray(o)
}

// AddObject appends r and retains it.
func (a *Array) AddObject(r memory.Ref) {
	mustObject("Array.AddObject", r)
	a.objects = append(a.objects, r.Retain())
}

// AddObjectsFromArray appends every element of other, retaining each.
func (a *Array) AddObjectsFromArray(other *Array) {
	if other == nil {
		return
	}
	// Snapshot first so appending an array to itself terminates.
	for _, r := range other.Objects() {
		a.AddObject(r)
	}
}

// InsertObject inserts r at i, shifting later elements. i may equal Len.
func (a *Array) InsertObject(r memory.Ref, i int) error {
	mustObject("Array.InsertObject", r)
	if err := a.checkIndex("InsertObject", i, len(a.objects)+1); err != nil {
		return err
	}
	a.objects = append(a.objects, nil)
	copy(a.objects[i+1:], a.objects[i:])
	a.objects[i] = r.Retain()
	return nil
}

// SetObject replaces the element at i, retaining r before releasing the old element.
func (a *Array) SetObject(r memory.Ref, i int) error {
	mustObject("Array.SetObject", r)
	if err := a.checkIndex("SetObject", i, len(a.objects)); err != nil {
		return err
	}
	old := a.objects[i]
	a.objects[i] = r.Retain()
	old.Release()
	return nil
}

// RemoveObject removes every slot holding r and returns how many were removed.
// Each removed slot releases once.
func (a *Array) RemoveObject(r memory.Ref) int {
	kept := a.objects[:0]
	var removed []memory.Ref
	for _, obj := range a.objects {
		if memory.Same(obj, r) {
			removed = append(removed, obj)
			continue
		}
		kept = append(kept, obj)
	}
	clear(a.objects[len(kept):])
	a.objects = kept
	for _, obj := range removed {
		obj.Release()
	}
	return len(removed)
}

// RemoveObjectAtIndex removes and releases the element at i.
func (a *Array) RemoveObjectAtIndex(i int) error {
	if err := a.checkIndex("RemoveObjectAtIndex", i, len(a.objects)); err != nil {
		return err
	}
	old := a.objects[i]
	copy(a.objects[i:], a.objects[i+1:])
	a.objects[len(a.objects)-1] = nil
	a.objects = a.objects[:len(a.objects)-1]
	old.Release()
	return nil
}

// RemoveLastObject removes and releases the final element.
func (a *Array) RemoveLastObject() error {
	if len(a.objects) == 0 {
		return &IndexError{Op: "RemoveLastObject", Index: 0, Bound: 0}
	}
	return a.RemoveObjectAtIndex(len(a.objects) - 1)
}

// RemoveAllObjects releases every element once and empties the array.
func (a *Array) RemoveAllObjects() {
	objs := a.objects
	a.objects = a.objects[:0]
	for i, obj := range objs {
		objs[i] = nil
		obj.Release()
	}
}

// Swap exchanges the elements at i and j.
func (a *Array) Swap(i, j int) error {
	if err := a.checkIndex("Swap", i, len(a.objects)); err != nil {
		return err
	}
	if err := a.checkIndex("Swap", j, len(a.objects)); err != nil {
		return err
	}
	a.objects[i], a.objects[j] = a.objects[j], a.objects[i]
	return nil
}

// Objects returns a snapshot of the elements. The array keeps ownership.
func (a *Array) Objects() []memory.Ref {
	out := make([]memory.Ref, len(a.objects))
	copy(out, a.objects)
	return out
}

// Each calls fn for every element in order until fn returns false.
func (a *Array) Each(fn func(i int, r memory.Ref) bool) {
	for i, r := range a.Objects() {
		if !fn(i, r) {
			return
		}
	}
}

// Clone deep-copies the array; see CloneArray.
func (a *Array) Clone() (memory.Ref, error) {
	c, err := a.CloneArray()
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CloneArray returns a new caller-owned array holding a clone of every
// element. Every element must be memory.Clonable; the first one that is not
// (or whose Clone fails) aborts the copy and nothing is leaked.
func (a *Array) CloneArray() (*Array, error) {
	clones := make([]memory.Ref, 0, len(a.objects))
	abort := func(i int, obj memory.Ref, err error) (*Array, error) {
		for _, c := range clones {
			c.Release()
		}
		return nil, &CloneError{Index: i, Type: fmt.Sprintf("%T", obj), Err: err}
	}
	for i, obj := range a.objects {
		c, ok := obj.(memory.Clonable)
		if !ok {
			return abort(i, obj, memory.ErrNotClonable)
		}
		dup, err := c.Clone()
		if err != nil {
			return abort(i, obj, err)
		}
		clones = append(clones, dup)
	}

	out := &Array{objects: clones}
	out.Init(out, a.ManagerOption())
	return out, nil
}

// Dealloc releases every element.
func (a *Array) Dealloc() {
	a.RemoveAllObjects()
}

func (a *Array) String() string {
	return fmt.Sprintf("Array(len=%d)", len(a.objects))
}

func (a *Array) checkIndex(op string, i, n int) error {
	if i < 0 || i >= n {
		return &IndexError{Op: "Array." + op, Index: i, Bound: n}
	}
	return nil
}

func mustObject(op string, r memory.Ref) {
	if memory.IsNil(r) {
		panic(&memory.LifetimeError{Op: op, Kind: memory.KindNilObject, Object: "<nil>"})
	}
}
