package foundation

import (
	"io"
	"log"
	"sort"
	"testing"

	"huta_go/pkg/memory"
)

// item is a managed object that counts its deallocations.
type item struct {
	memory.Object
	name  string
	freed *int
}

func newItem(m *memory.Manager, name string, freed *int) *item {
	it := &item{name: name, freed: freed}
	it.Init(it, memory.WithManager(m))
	return it
}

func (it *item) Dealloc() {
	if it.freed != nil {
		*it.freed++
	}
}

func testManager(t *testing.T) *memory.Manager {
	t.Helper()
	m := memory.NewManager(memory.Config{TrackLeaks: true, Logger: log.New(io.Discard, "", 0)})
	t.Cleanup(m.Close)
	return m
}

func values(a *Array) []string {
	var out []string
	a.Each(func(_ int, r memory.Ref) bool {
		switch v := r.(type) {
		case *String:
			out = append(out, v.Value())
		case *item:
			out = append(out, v.name)
		}
		return true
	})
	return out
}

func sortedValues(a *Array) []string {
	out := values(a)
	sort.Strings(out)
	return out
}

func expectNilObject(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		le, ok := memory.AsLifetimeError(recover())
		if !ok || le.Kind != memory.KindNilObject {
			t.Errorf("expected nil-object violation, got %v", le)
		}
	}()
	fn()
}
