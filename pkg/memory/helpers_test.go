package memory

import (
	"bytes"
	"io"
	"log"
	"testing"
)

// probe is a managed object that records its deallocation.
type probe struct {
	Object
	name  string
	freed *[]string
}

func newProbe(m *Manager, name string, freed *[]string) *probe {
	p := &probe{name: name, freed: freed}
	p.Init(p, WithManager(m))
	return p
}

func (p *probe) Dealloc() {
	if p.freed != nil {
		*p.freed = append(*p.freed, p.name)
	}
}

// otherProbe is a second managed type for cast tests.
type otherProbe struct {
	Object
}

func newOtherProbe(m *Manager) *otherProbe {
	o := &otherProbe{}
	o.Init(o, WithManager(m))
	return o
}

func quietManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(Config{Logger: log.New(io.Discard, "", 0)})
	t.Cleanup(m.Close)
	return m
}

func bufferedManager(t *testing.T, cfg Config) (*Manager, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cfg.Logger = log.New(&buf, "", 0)
	m := NewManager(cfg)
	t.Cleanup(m.Close)
	return m, &buf
}

func expectViolation(t *testing.T, kind Kind, fn func()) *LifetimeError {
	t.Helper()
	var got *LifetimeError
	func() {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			le, ok := AsLifetimeError(r)
			if !ok {
				panic(r)
			}
			got = le
		}()
		fn()
	}()
	if got == nil {
		t.Fatalf("expected %s violation, got none", kind)
	}
	if got.Kind != kind {
		t.Fatalf("expected %s violation, got %s: %v", kind, got.Kind, got)
	}
	return got
}
