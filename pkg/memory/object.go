package memory

import "fmt"

// Option configures a managed object at Init time.
type Option func(*objectOptions)

type objectOptions struct {
	manager *Manager
}

// WithManager binds the object to m instead of the default manager.
// Autorelease registers with m's current pool and m's tracker records the object.
func WithManager(m *Manager) Option {
	return func(o *objectOptions) {
		o.manager = m
	}
}

// Object is the managed object base. Domain types embed it and call Init
// from their constructor:
//
//	a := &Array{}
//	a.Init(a, opts...)
//
// The constructor's caller owns the single reference Init creates.
type Object struct {
	self        Ref
	manager     *Manager
	count       uint32
	deallocated bool
}

// Init sets the reference count to 1 and binds self, the outermost value
// embedding this Object, so pools and trackers see the domain object.
func (o *Object) Init(self Ref, opts ...Option) {
	if IsNil(self) {
		violation("Object.Init", KindNilObject, nil, 0, "self must be the embedding object")
	}
	if o.self != nil {
		violation("Object.Init", KindDoubleInit, self, o.count, "object initialized twice")
	}
	var oo objectOptions
	for _, opt := range opts {
		opt(&oo)
	}
	if oo.manager == nil {
		oo.manager = Default()
	}
	o.self = self
	o.manager = oo.manager
	o.count = 1
	if t := o.manager.Tracker(); t != nil {
		t.Track(self)
	}
}

// Retain increments the reference count.
func (o *Object) Retain() Ref {
	o.checkLive("Object.Retain")
	o.count++
	return o.self
}

// Release decrements the reference count. At zero the embedding object's
// Dealloc runs and the object must not be used again.
func (o *Object) Release() {
	if o.deallocated {
		violation("Object.Release", KindOverRelease, o.self, 0, "object was already deallocated")
	}
	o.checkLive("Object.Release")
	o.count--
	if o.count > 0 {
		return
	}
	o.deallocated = true
	if d, ok := o.self.(Deallocator); ok {
		d.Dealloc()
	}
	if t := o.manager.Tracker(); t != nil {
		t.Untrack(o.self)
	}
}

// Autorelease hands one pending Release to the current pool of the bound manager.
func (o *Object) Autorelease() Ref {
	o.checkLive("Object.Autorelease")
	o.manager.Autorelease(o.self)
	return o.self
}

// ReferenceCount returns the number of strong owners.
func (o *Object) ReferenceCount() uint32 {
	return o.count
}

// IsEqual defaults to identity.
func (o *Object) IsEqual(other Ref) bool {
	return !IsNil(other) && Same(o.self, other)
}

// Deallocated reports whether the last owner has released the object.
func (o *Object) Deallocated() bool {
	return o.deallocated
}

// Manager returns the manager the object was bound to at Init.
func (o *Object) Manager() *Manager {
	return o.manager
}

// ManagerOption returns an Option binding new objects to the same manager,
// so values derived from this object (clones, snapshots) share its pools.
func (o *Object) ManagerOption() Option {
	return WithManager(o.manager)
}

func (o *Object) String() string {
	if o.self == nil {
		return "<uninitialized object>"
	}
	return fmt.Sprintf("<%s>", describe(o.self))
}

func (o *Object) checkLive(op string) {
	switch {
	case o.self == nil:
		violation(op, KindUninitialized, nil, 0, "Init was never called")
	case o.deallocated:
		violation(op, KindUseAfterFree, o.self, 0, "object was deallocated")
	case o.count == 0:
		violation(op, KindOverRelease, o.self, 0, "")
	}
}
