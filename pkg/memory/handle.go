package memory

import (
	"cmp"
	"fmt"
	"reflect"
)

// Owning Handles
//
// A Handle owns one strong reference to its referent:
// - NewHandle / Set / Assign retain the new referent before releasing the old
// - Move / Take transfer ownership without touching the count
// - Reset gives the reference back
//
// Go copies structs silently, so copying a Handle value does NOT retain. Use
// Copy to obtain a second owner. A Handle must be Reset when its owner is done
// with it; there is no destructor to do it implicitly.

type deallocatedReporter interface {
	Deallocated() bool
}

// Handle is an owning reference to a T.
type Handle[T Ref] struct {
	ptr  T
	ok   bool
	weak bool
}

// NewHandle returns a handle owning r. A nil r yields a null handle.
func NewHandle[T Ref](r T) Handle[T] {
	var h Handle[T]
	h.Set(r)
	return h
}

// Adopt wraps an object the caller already owns without retaining it again.
// This consumes the caller's reference, typically the one returned by a constructor.
func Adopt[T Ref](r T) Handle[T] {
	if IsNil(r) {
		return Handle[T]{}
	}
	return Handle[T]{ptr: r, ok: true}
}

// Get returns the raw referent without transferring ownership.
// Panics if the referent was deallocated while this handle still pointed at it,
// which can only happen through WeakAssign or an unbalanced Release.
func (h Handle[T]) Get() T {
	if !h.ok {
		var zero T
		return zero
	}
	if d, ok := any(h.ptr).(deallocatedReporter); ok && d.Deallocated() {
		violation("Handle.Get", KindUseAfterFree, h.ptr, 0, "referent was deallocated")
	}
	return h.ptr
}

// Valid reports whether the handle points at an object.
func (h Handle[T]) Valid() bool {
	return h.ok
}

// IsWeak reports whether the handle is a non-owning alias made by WeakAssign.
func (h Handle[T]) IsWeak() bool {
	return h.ok && h.weak
}

// Set points the handle at r, retaining r before releasing the previous referent.
func (h *Handle[T]) Set(r T) {
	if IsNil(r) {
		h.Reset()
		return
	}
	if h.ok && Same(h.ptr, r) {
		if h.weak {
			// A weak alias becomes an owner of the same referent.
			r.Retain()
			h.weak = false
		}
		return
	}
	r.Retain()
	h.dropOwned()
	h.ptr, h.ok, h.weak = r, true, false
}

// Assign is copy-assignment: h shares o's referent.
func (h *Handle[T]) Assign(o Handle[T]) {
	if !o.ok {
		h.Reset()
		return
	}
	h.Set(o.ptr)
}

// Copy returns a second owning handle on the same referent.
func (h *Handle[T]) Copy() Handle[T] {
	if !h.ok {
		return Handle[T]{}
	}
	h.ptr.Retain()
	return Handle[T]{ptr: h.ptr, ok: true}
}

// Move transfers ownership to the returned handle and nulls h.
func (h *Handle[T]) Move() Handle[T] {
	out := *h
	*h = Handle[T]{}
	return out
}

// Take is move-assignment: h releases its referent and steals o's.
func (h *Handle[T]) Take(o *Handle[T]) {
	if o == h {
		return
	}
	h.dropOwned()
	*h = *o
	*o = Handle[T]{}
}

// Reset releases the referent (unless weak) and nulls the handle.
func (h *Handle[T]) Reset() {
	h.dropOwned()
	*h = Handle[T]{}
}

// Swap exchanges referents without retain/release traffic.
func (h *Handle[T]) Swap(o *Handle[T]) {
	*h, *o = *o, *h
}

// WeakAssign releases the previous referent and aliases o's referent without
// retaining it. The caller guarantees the referent outlives the alias; Reset on
// a weak alias does not release.
func (h *Handle[T]) WeakAssign(o Handle[T]) {
	h.dropOwned()
	if !o.ok {
		*h = Handle[T]{}
		return
	}
	*h = Handle[T]{ptr: o.ptr, ok: true, weak: true}
}

// Equal compares referents by identity.
func (h Handle[T]) Equal(o Handle[T]) bool {
	if !h.ok || !o.ok {
		return h.ok == o.ok
	}
	return Same(h.ptr, o.ptr)
}

// Is reports whether h points at r.
func (h Handle[T]) Is(r T) bool {
	if !h.ok {
		return IsNil(r)
	}
	return Same(h.ptr, r)
}

// Compare orders handles by referent address. Null sorts first.
func (h Handle[T]) Compare(o Handle[T]) int {
	return cmp.Compare(h.addr(), o.addr())
}

func (h Handle[T]) String() string {
	if !h.ok {
		return "Handle(nil)"
	}
	if h.weak {
		return fmt.Sprintf("Handle(weak %s)", describe(h.ptr))
	}
	return fmt.Sprintf("Handle(%s)", describe(h.ptr))
}

func (h Handle[T]) addr() uintptr {
	if !h.ok {
		return 0
	}
	return Addr(h.ptr)
}

func (h *Handle[T]) dropOwned() {
	if h.ok && !h.weak {
		h.ptr.Release()
	}
}

// StaticCast converts a handle whose referent the caller knows to be a T.
// A wrong guess is a programming error and panics with KindBadCast.
func StaticCast[T Ref, U Ref](h Handle[U]) Handle[T] {
	if !h.ok {
		return Handle[T]{}
	}
	t, ok := any(h.Get()).(T)
	if !ok {
		violation("StaticCast", KindBadCast, h.ptr, h.ptr.ReferenceCount(),
			fmt.Sprintf("referent is not a %s", reflect.TypeOf((*T)(nil)).Elem()))
	}
	return NewHandle(t)
}

// DynamicCast converts a handle when its referent is a T and yields a null
// handle otherwise.
func DynamicCast[T Ref, U Ref](h Handle[U]) Handle[T] {
	if !h.ok {
		return Handle[T]{}
	}
	t, ok := any(h.Get()).(T)
	if !ok {
		return Handle[T]{}
	}
	return NewHandle(t)
}
