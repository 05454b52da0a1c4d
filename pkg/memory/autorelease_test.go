package memory

import (
	"io"
	"log"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// holder owns one child and hands it to the pool when it goes away.
type holder struct {
	Object
	child Ref
}

func (h *holder) Dealloc() {
	h.child.Autorelease()
}

func TestPool_ReleaseOrder(t *testing.T) {
	m := quietManager(t)
	var freed []string

	for _, name := range []string{"a", "b", "c"} {
		Autorelease(newProbe(m, name, &freed))
	}
	if m.Current().Len() != 3 {
		t.Fatalf("expected 3 pending, got %d", m.Current().Len())
	}
	m.Current().Clear()

	if diff := cmp.Diff([]string{"a", "b", "c"}, freed); diff != "" {
		t.Errorf("release order mismatch (-want +got):\n%s", diff)
	}
	if m.Current().Len() != 0 {
		t.Error("pool should be empty after Clear")
	}
}

func TestPool_OneReleasePerRegistration(t *testing.T) {
	m := quietManager(t)
	var freed []string
	p := newProbe(m, "a", &freed)
	p.Retain()
	p.Autorelease()
	p.Autorelease()

	if got := m.Current().Count(p); got != 2 {
		t.Fatalf("expected 2 registrations, got %d", got)
	}
	if p.ReferenceCount() != 2 {
		t.Fatal("autorelease must not change the count")
	}
	m.Current().Clear()
	if len(freed) != 1 {
		t.Error("two registrations should have dropped both owners")
	}
}

func TestPool_ClearTwice(t *testing.T) {
	m := quietManager(t)
	p := newProbe(m, "a", nil)
	p.Retain()
	p.Autorelease()

	m.Current().Clear()
	m.Current().Clear()
	if p.ReferenceCount() != 1 {
		t.Errorf("second Clear should be a no-op, count=%d", p.ReferenceCount())
	}
	p.Release()
}

func TestPool_AutoreleaseDuringClear(t *testing.T) {
	m := quietManager(t)
	var freed []string

	child := newProbe(m, "child", &freed)
	h := &holder{child: child}
	h.Init(h, WithManager(m))
	h.Autorelease()

	m.Current().Clear()
	if diff := cmp.Diff([]string{"child"}, freed); diff != "" {
		t.Errorf("child autoreleased during Clear should drain in the same Clear (-want +got):\n%s", diff)
	}
	if m.Current().Len() != 0 {
		t.Error("pool should be empty")
	}
}

func TestPool_NestedScopes(t *testing.T) {
	m := quietManager(t)
	var freed []string

	outer := Autorelease(newProbe(m, "outer", &freed))
	m.Scope("inner", func(p *Pool) {
		if p.Depth() != 1 || m.Current() != p {
			t.Fatal("inner pool should be current at depth 1")
		}
		Autorelease(newProbe(m, "inner", &freed))
		if m.Current().Contains(outer) {
			t.Error("outer object registered in the wrong pool")
		}
	})

	if diff := cmp.Diff([]string{"inner"}, freed); diff != "" {
		t.Errorf("only the inner object should be freed at scope exit (-want +got):\n%s", diff)
	}
	if m.Depth() != 1 {
		t.Errorf("expected bootstrap only, depth=%d", m.Depth())
	}
	if !m.Contains(outer) {
		t.Error("outer object should still be pending in the bootstrap pool")
	}
}

func TestPool_ScopeClosesOnPanic(t *testing.T) {
	m := quietManager(t)
	var freed []string

	func() {
		defer func() {
			if r := recover(); r != "boom" {
				t.Fatalf("unexpected recover value %v", r)
			}
		}()
		m.Scope("panicky", func(p *Pool) {
			Autorelease(newProbe(m, "a", &freed))
			panic("boom")
		})
	}()

	if m.Depth() != 1 {
		t.Errorf("pool should be popped after panic, depth=%d", m.Depth())
	}
	if len(freed) != 1 {
		t.Error("pending objects should drain when the scope unwinds")
	}
}

func TestPool_CloseOutOfOrder(t *testing.T) {
	m := quietManager(t)
	first := m.NewPool("first")
	second := m.NewPool("second")

	le := expectViolation(t, KindPoolOrder, first.Close)
	if !strings.Contains(le.Detail, "second") {
		t.Errorf("detail should name the pool on top: %q", le.Detail)
	}
	if first.IsClosed() || m.Depth() != 3 {
		t.Error("failed close must leave the stack untouched")
	}

	second.Close()
	first.Close()
	first.Close()
	if m.Depth() != 1 {
		t.Errorf("expected depth 1, got %d", m.Depth())
	}
}

func TestPool_BootstrapClose(t *testing.T) {
	m := quietManager(t)
	expectViolation(t, KindPoolOrder, m.Current().Close)
	if m.Depth() != 1 {
		t.Error("bootstrap pool must survive")
	}
}

func TestPool_AddToClosedPool(t *testing.T) {
	m := quietManager(t)
	p := m.NewPool("short")
	p.Close()

	obj := newProbe(m, "a", nil)
	defer obj.Release()
	expectViolation(t, KindManagerClosed, func() { p.AddObject(obj) })
}

func TestManager_BootstrapPool(t *testing.T) {
	m := quietManager(t)
	if m.Depth() != 1 {
		t.Fatalf("new manager should hold the bootstrap pool, depth=%d", m.Depth())
	}
	if m.Current().Name() != DefaultBootstrapName {
		t.Errorf("unexpected bootstrap name %q", m.Current().Name())
	}
	if cap(m.Current().objects) != 0 {
		t.Errorf("zero config capacity should not preallocate, cap=%d", cap(m.Current().objects))
	}

	sized := NewManager(Config{PoolCapacity: DefaultPoolCapacity, BootstrapName: "custom", Logger: log.New(io.Discard, "", 0)})
	defer sized.Close()
	if cap(sized.Current().objects) != DefaultPoolCapacity || sized.Current().Name() != "custom" {
		t.Error("config should size and name the bootstrap pool")
	}
}

func TestManager_CloseDrainsInnermostFirst(t *testing.T) {
	m := quietManager(t)
	var freed []string

	Autorelease(newProbe(m, "bootstrap", &freed))
	m.NewPool("outer")
	Autorelease(newProbe(m, "outer", &freed))
	m.NewPool("inner")
	Autorelease(newProbe(m, "inner", &freed))

	m.Close()
	if diff := cmp.Diff([]string{"inner", "outer", "bootstrap"}, freed); diff != "" {
		t.Errorf("close order mismatch (-want +got):\n%s", diff)
	}
	if !m.Closed() || m.Depth() != 0 {
		t.Error("manager should be closed with an empty stack")
	}

	expectViolation(t, KindManagerClosed, func() { m.NewPool("late") })
	expectViolation(t, KindManagerClosed, func() { m.Current() })
	m.Close()
}

func TestManager_AutoreleaseNil(t *testing.T) {
	m := quietManager(t)
	expectViolation(t, KindNilObject, func() { m.Autorelease(nil) })
}

func TestManager_DoubleAutoreleaseWarning(t *testing.T) {
	m, buf := bufferedManager(t, Config{Debug: true})
	p := newProbe(m, "a", nil)

	p.Autorelease()
	if buf.Len() != 0 {
		t.Fatalf("single autorelease should not warn: %s", buf.String())
	}
	p.Autorelease()
	if !strings.Contains(buf.String(), "[memory] WARNING") {
		t.Errorf("expected a double-autorelease warning, got %q", buf.String())
	}
	if m.Stats().DoubleAutoreleases != 1 {
		t.Errorf("expected 1 double autorelease, got %d", m.Stats().DoubleAutoreleases)
	}

	// Balance it so the drain does not over-release.
	p.Retain()
	m.Current().Clear()
	if !p.Deallocated() {
		t.Error("p should be freed")
	}
}

func TestManager_Stats(t *testing.T) {
	m := quietManager(t)
	m.Scope("a", func(*Pool) {
		m.Scope("b", func(*Pool) {
			Autorelease(newProbe(m, "x", nil))
			Autorelease(newProbe(m, "y", nil))
		})
	})

	want := Stats{
		PoolsPushed:         3,
		PoolsPopped:         2,
		MaxDepth:            3,
		ObjectsAutoreleased: 2,
		ObjectsDrained:      2,
	}
	if diff := cmp.Diff(want, m.Stats()); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_LeakReport(t *testing.T) {
	m, buf := bufferedManager(t, Config{TrackLeaks: true})

	leaked := newProbe(m, "leaked", nil)
	leaked.Retain()
	newProbe(m, "freed", nil).Release()
	Autorelease(newProbe(m, "pooled", nil))

	if m.Tracker().Len() != 2 {
		t.Fatalf("expected 2 live objects, got %d", m.Tracker().Len())
	}
	m.Close()

	want := "[memory] WARNING: 1 Ref objects still active in memory.\n" +
		"[memory] LEAK: Ref object '*memory.probe' still active with reference count 2.\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("leak report mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_CleanReport(t *testing.T) {
	m, buf := bufferedManager(t, Config{TrackLeaks: true})
	Autorelease(newProbe(m, "a", nil))
	m.Close()

	if !strings.Contains(buf.String(), "no leaks detected") {
		t.Errorf("expected clean report, got %q", buf.String())
	}
}

func TestManager_ColorReport(t *testing.T) {
	m, buf := bufferedManager(t, Config{TrackLeaks: true, ReportColor: true})
	newProbe(m, "leaked", nil)
	m.Close()

	if !strings.Contains(buf.String(), colorRed+"LEAK"+colorReset) {
		t.Errorf("expected highlighted leak label, got %q", buf.String())
	}
}

func TestTracker_LiveOrderAndAlignment(t *testing.T) {
	m := quietManager(t)
	tr := NewTracker(nil)

	a := newProbe(m, "a", nil)
	o := newOtherProbe(m)
	defer a.Release()
	defer o.Release()
	tr.Track(a)
	tr.Track(o)

	got := tr.Live()
	if len(got) != 2 || got[0].Type != "*memory.probe" || got[1].Type != "*memory.otherProbe" {
		t.Fatalf("unexpected live records %+v", got)
	}

	var b strings.Builder
	if err := tr.Report(&b, false); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two leak lines, got %q", b.String())
	}
	// Type columns are padded to the same width.
	if strings.Index(lines[1], " still") != strings.Index(lines[2], " still") {
		t.Errorf("leak lines are not aligned:\n%s", b.String())
	}

	tr.Untrack(a)
	tr.Untrack(o)
	if tr.Len() != 0 || tr.IsTracked(a) {
		t.Error("untracked objects should be gone")
	}
}

func TestTracker_Corruption(t *testing.T) {
	m := quietManager(t)
	var buf strings.Builder
	tr := NewTracker(log.New(&buf, "", 0))

	p := newProbe(m, "a", nil)
	defer p.Release()
	tr.Untrack(p)
	if !strings.Contains(buf.String(), "CORRUPTION") {
		t.Errorf("expected corruption notice, got %q", buf.String())
	}
}

func TestDefaultManager(t *testing.T) {
	SetDefault(Config{Logger: log.New(io.Discard, "", 0)})
	t.Cleanup(func() { SetDefault(DefaultConfig()) })

	d := Default()
	if Default() != d {
		t.Fatal("Default should return the same manager")
	}

	var freed []string
	p := &probe{name: "a", freed: &freed}
	p.Init(p)
	if p.Manager() != d {
		t.Fatal("objects bind to the default manager without an option")
	}

	Scope("scoped", func(pool *Pool) {
		if CurrentPool() != pool {
			t.Error("Scope pool should be current")
		}
		Autorelease(newProbe(d, "scoped", &freed))
	})
	p.Autorelease()
	Shutdown()

	if diff := cmp.Diff([]string{"scoped", "a"}, freed); diff != "" {
		t.Errorf("freed mismatch (-want +got):\n%s", diff)
	}
	if !d.Closed() {
		t.Error("Shutdown should close the default manager")
	}
	if Default() == d {
		t.Error("Default after Shutdown should create a fresh manager")
	}
}
