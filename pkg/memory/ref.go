package memory

import (
	"fmt"
	"reflect"
)

// Manual Reference Counting
//
// Every managed object carries its own count of strong owners:
// - Retain adds an owner
// - Release drops one; the last Release deallocates synchronously
// - Autorelease hands one pending Release to the innermost pool
//
// Nothing here is safe for concurrent use. A single object's count must only
// be touched from one goroutine at a time.

// Ref is the capability every managed object implements.
type Ref interface {
	// Retain increments the reference count and returns the receiver
	Retain() Ref
	// Release decrements the reference count, deallocating at zero
	Release()
	// Autorelease defers one Release to the current pool
	Autorelease() Ref
	// ReferenceCount reports the number of outstanding strong owners
	ReferenceCount() uint32
}

// Clonable is implemented by objects with value-semantics duplication.
// The returned object is owned by the caller (reference count 1).
type Clonable interface {
	Ref
	Clone() (Ref, error)
}

// Equaler overrides identity equality with value equality.
type Equaler interface {
	IsEqual(other Ref) bool
}

// Deallocator is called exactly once, when the last owner releases the object.
// Implementations release whatever the object owns.
type Deallocator interface {
	Dealloc()
}

// Retain retains r and returns it with its static type intact.
func Retain[T Ref](r T) T {
	r.Retain()
	return r
}

// Autorelease registers r with its manager's current pool and returns it.
func Autorelease[T Ref](r T) T {
	r.Autorelease()
	return r
}

// SafeRelease releases r unless it is nil.
func SafeRelease(r Ref) {
	if !IsNil(r) {
		r.Release()
	}
}

// IsNil reports whether r is a nil interface or a typed nil pointer.
func IsNil(r Ref) bool {
	if r == nil {
		return true
	}
	v := reflect.ValueOf(r)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return v.IsNil()
	}
	return false
}

// Same is identity equality. Two nils are the same.
func Same(a, b Ref) bool {
	an, bn := IsNil(a), IsNil(b)
	if an || bn {
		return an && bn
	}
	return a == b
}

// Equal uses the value equality of a when it has one, identity otherwise.
func Equal(a, b Ref) bool {
	if e, ok := a.(Equaler); ok && !IsNil(a) {
		return e.IsEqual(b)
	}
	return Same(a, b)
}

// Addr returns the address r points at, or 0 for nil and non-pointer refs.
func Addr(r Ref) uintptr {
	if IsNil(r) {
		return 0
	}
	v := reflect.ValueOf(r)
	if v.Kind() != reflect.Ptr {
		return 0
	}
	return v.Pointer()
}

func describe(r Ref) string {
	if IsNil(r) {
		return "<nil>"
	}
	return fmt.Sprintf("%T@%#x", r, Addr(r))
}

func typeName(r Ref) string {
	if IsNil(r) {
		return "<nil>"
	}
	return fmt.Sprintf("%T", r)
}
