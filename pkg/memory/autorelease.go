package memory

import "fmt"

// Autorelease Pools
//
// A pool buffers objects whose Release is deferred. Each registration matches
// exactly one Autorelease call and receives exactly one Release when the pool
// clears. Pools nest: the manager's innermost pool receives new registrations,
// and pools must close in the reverse order of creation.

// Pool is a stack-scoped buffer of deferred releases.
type Pool struct {
	name     string
	manager  *Manager
	objects  []Ref
	clearing bool
	closed   bool
	depth    int
}

// AddObject registers r for one deferred Release. It does not retain r.
func (p *Pool) AddObject(r Ref) {
	if p.closed {
		violation("Pool.AddObject", KindManagerClosed, r, r.ReferenceCount(),
			fmt.Sprintf("pool %q is closed", p.name))
	}
	p.objects = append(p.objects, r)
}

// Clear releases every registered object once, in registration order, and
// empties the pool. Objects autoreleased into this pool while it clears are
// drained in a further round before Clear returns.
func (p *Pool) Clear() {
	p.clearing = true
	defer func() { p.clearing = false }()

	for len(p.objects) > 0 {
		batch := p.objects
		p.objects = nil
		for _, r := range batch {
			r.Release()
			p.manager.stats.ObjectsDrained++
		}
		clear(batch)
		if p.objects == nil {
			p.objects = batch[:0]
		}
	}
}

// Contains reports whether r is registered, by identity.
func (p *Pool) Contains(r Ref) bool {
	for _, obj := range p.objects {
		if Same(obj, r) {
			return true
		}
	}
	return false
}

// Count returns how many times r is registered.
func (p *Pool) Count(r Ref) int {
	n := 0
	for _, obj := range p.objects {
		if Same(obj, r) {
			n++
		}
	}
	return n
}

// Len returns the number of pending releases.
func (p *Pool) Len() int {
	return len(p.objects)
}

// Name returns the pool's diagnostic name.
func (p *Pool) Name() string {
	return p.name
}

// Depth returns the pool's position in its manager's stack (0 = bootstrap).
func (p *Pool) Depth() int {
	return p.depth
}

// IsClearing reports whether Clear is running.
func (p *Pool) IsClearing() bool {
	return p.clearing
}

// IsClosed reports whether Close has run.
func (p *Pool) IsClosed() bool {
	return p.closed
}

// Manager returns the manager whose stack holds the pool.
func (p *Pool) Manager() *Manager {
	return p.manager
}

// Close drains the pool and pops it off its manager's stack. The pool must be
// the innermost one; closing an outer pool first panics with KindPoolOrder.
// Closing twice is a no-op.
func (p *Pool) Close() {
	if p.closed {
		return
	}
	if p.depth == 0 && !p.manager.closing {
		panic(&LifetimeError{
			Op:     "Pool.Close",
			Kind:   KindPoolOrder,
			Object: fmt.Sprintf("pool %q", p.name),
			Detail: "the bootstrap pool is closed by Manager.Close",
		})
	}
	p.manager.checkTop(p)
	p.Clear()
	p.manager.pop(p)
	p.closed = true
}

func (p *Pool) String() string {
	return fmt.Sprintf("Pool(%q, depth=%d, pending=%d)", p.name, p.depth, len(p.objects))
}

// CurrentPool returns the innermost pool of the default manager.
func CurrentPool() *Pool {
	return Default().Current()
}

// Scope runs fn inside a new pool on the default manager.
func Scope(name string, fn func(p *Pool)) {
	Default().Scope(name, fn)
}
