package memory

import (
	"errors"
	"fmt"
)

var (
	// ErrNotClonable is returned when a deep copy meets an object without Clone.
	ErrNotClonable = errors.New("object is not clonable")
	// ErrNilObject is returned when a nil reference is stored where an object is required.
	ErrNilObject = errors.New("nil object")
)

// Kind identifies the category of a lifetime contract violation.
type Kind int

const (
	// KindUnknown indicates a violation of unknown type.
	KindUnknown Kind = iota
	// KindOverRelease indicates a Release past zero.
	KindOverRelease
	// KindUseAfterFree indicates use of a deallocated object.
	KindUseAfterFree
	// KindUninitialized indicates use of an object whose Init never ran.
	KindUninitialized
	// KindPoolOrder indicates pools closed out of creation order.
	KindPoolOrder
	// KindNilObject indicates a nil reference where an object is required.
	KindNilObject
	// KindManagerClosed indicates use of a manager after Close.
	KindManagerClosed
	// KindBadCast indicates a static cast between incompatible types.
	KindBadCast
	// KindDoubleInit indicates Init called on an already initialized object.
	KindDoubleInit
)

func (k Kind) String() string {
	switch k {
	case KindOverRelease:
		return "over-release"
	case KindUseAfterFree:
		return "use-after-free"
	case KindUninitialized:
		return "uninitialized"
	case KindPoolOrder:
		return "pool-order"
	case KindNilObject:
		return "nil-object"
	case KindManagerClosed:
		return "manager-closed"
	case KindBadCast:
		return "bad-cast"
	case KindDoubleInit:
		return "double-init"
	default:
		return "unknown"
	}
}

// LifetimeError describes a broken ownership contract. These are programming
// errors: the runtime panics with a *LifetimeError instead of returning it.
type LifetimeError struct {
	// Op is the operation that detected the violation (e.g. "Object.Release").
	Op string
	// Kind categorizes the violation.
	Kind Kind
	// Object describes the offending object as type@address.
	Object string
	// Count is the reference count observed at detection time.
	Count uint32
	// Detail carries extra context, if any.
	Detail string

	// counted is set when Object is a managed object and Count was observed.
	counted bool
}

func (e *LifetimeError) Error() string {
	msg := fmt.Sprintf("%s [%s] %s", e.Op, e.Kind, e.Object)
	if e.counted {
		msg += fmt.Sprintf(" (reference count %d)", e.Count)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Unwrap maps nil-object violations onto ErrNilObject.
func (e *LifetimeError) Unwrap() error {
	if e.Kind == KindNilObject {
		return ErrNilObject
	}
	return nil
}

// AsLifetimeError extracts a *LifetimeError from a recovered panic value.
func AsLifetimeError(recovered any) (*LifetimeError, bool) {
	switch v := recovered.(type) {
	case *LifetimeError:
		return v, true
	case error:
		var le *LifetimeError
		if errors.As(v, &le) {
			return le, true
		}
	}
	return nil, false
}

func violation(op string, kind Kind, r Ref, count uint32, detail string) {
	panic(&LifetimeError{
		Op:      op,
		Kind:    kind,
		Object:  describe(r),
		Count:   count,
		Detail:  detail,
		counted: !IsNil(r),
	})
}
