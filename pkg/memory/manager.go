package memory

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// DefaultBootstrapName names the pool every manager starts with.
const DefaultBootstrapName = "huta autorelease pool"

// DefaultPoolCapacity is the initial registry capacity of a new pool.
const DefaultPoolCapacity = 150

// Config controls a Manager.
type Config struct {
	// BootstrapName names the bottom pool of the stack.
	BootstrapName string
	// PoolCapacity preallocates each pool's registry.
	PoolCapacity int
	// TrackLeaks records every live object bound to the manager.
	TrackLeaks bool
	// Debug enables double-autorelease diagnostics.
	Debug bool
	// ReportColor highlights leak lines in the report written on Close.
	ReportColor bool
	// Logger receives diagnostics and the leak report. Defaults to stderr.
	Logger *log.Logger
}

// DefaultConfig returns the configuration used by Default.
func DefaultConfig() Config {
	return Config{
		BootstrapName: DefaultBootstrapName,
		PoolCapacity:  DefaultPoolCapacity,
	}
}

// Stats tracks pool activity of a manager.
type Stats struct {
	PoolsPushed         int
	PoolsPopped         int
	MaxDepth            int
	ObjectsAutoreleased int
	ObjectsDrained      int
	DoubleAutoreleases  int
}

// Manager owns one stack of autorelease pools. It is an explicit context:
// every goroutine that autoreleases should use its own Manager, since the
// stack is not synchronized.
type Manager struct {
	cfg     Config
	stack   []*Pool
	tracker *Tracker
	logger  *log.Logger
	stats   Stats
	closing bool
	closed  bool
}

// NewManager creates a manager and pushes its bootstrap pool, so Current
// never sees an empty stack.
func NewManager(cfg Config) *Manager {
	if cfg.BootstrapName == "" {
		cfg.BootstrapName = DefaultBootstrapName
	}
	if cfg.PoolCapacity < 0 {
		cfg.PoolCapacity = 0
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	m := &Manager{
		cfg:    cfg,
		stack:  make([]*Pool, 0, 10),
		logger: logger,
	}
	if cfg.TrackLeaks {
		m.tracker = NewTracker(logger)
	}
	m.NewPool(cfg.BootstrapName)
	return m
}

// NewPool pushes a new innermost pool. The caller must Close it, typically
// with defer, before closing any pool created earlier.
func (m *Manager) NewPool(name string) *Pool {
	if m.closed || m.closing {
		panic(&LifetimeError{
			Op:     "Manager.NewPool",
			Kind:   KindManagerClosed,
			Object: fmt.Sprintf("pool %q", name),
		})
	}
	p := &Pool{
		name:    name,
		manager: m,
		objects: make([]Ref, 0, m.cfg.PoolCapacity),
		depth:   len(m.stack),
	}
	m.push(p)
	return p
}

// Scope runs fn inside a new pool and closes the pool when fn returns or panics.
func (m *Manager) Scope(name string, fn func(p *Pool)) {
	p := m.NewPool(name)
	defer p.Close()
	fn(p)
}

// Current returns the innermost pool.
func (m *Manager) Current() *Pool {
	if len(m.stack) == 0 {
		panic(&LifetimeError{
			Op:     "Manager.Current",
			Kind:   KindManagerClosed,
			Object: "pool stack",
			Detail: "no active pool",
		})
	}
	return m.stack[len(m.stack)-1]
}

// Autorelease registers r with the innermost pool.
func (m *Manager) Autorelease(r Ref) {
	if IsNil(r) {
		violation("Manager.Autorelease", KindNilObject, r, 0, "")
	}
	if m.cfg.Debug {
		if pending := m.pendingCount(r); r.ReferenceCount() <= uint32(pending) {
			m.stats.DoubleAutoreleases++
			m.logger.Printf("[memory] WARNING: %s autoreleased %d times with reference count %d; its pools will over-release it",
				describe(r), pending+1, r.ReferenceCount())
		}
	}
	m.Current().AddObject(r)
	m.stats.ObjectsAutoreleased++
}

// Contains reports whether any pool on the stack holds r.
func (m *Manager) Contains(r Ref) bool {
	for _, p := range m.stack {
		if p.Contains(r) {
			return true
		}
	}
	return false
}

// Depth returns the number of pools on the stack, the bootstrap pool included.
func (m *Manager) Depth() int {
	return len(m.stack)
}

// Stats returns a snapshot of pool activity.
func (m *Manager) Stats() Stats {
	return m.stats
}

// Tracker returns the leak tracker, or nil when tracking is off.
func (m *Manager) Tracker() *Tracker {
	return m.tracker
}

// Logger returns the diagnostics logger.
func (m *Manager) Logger() *log.Logger {
	return m.logger
}

// Closed reports whether Close has run.
func (m *Manager) Closed() bool {
	return m.closed
}

// Close drains every pool from the innermost to the bootstrap pool, then
// writes the leak report when tracking is on. Closing twice is a no-op.
func (m *Manager) Close() {
	if m.closed || m.closing {
		return
	}
	m.closing = true
	for len(m.stack) > 0 {
		m.stack[len(m.stack)-1].Close()
	}
	m.closing = false
	m.closed = true
	if m.tracker != nil {
		if err := m.tracker.Report(m.logger.Writer(), m.cfg.ReportColor); err != nil {
			m.logger.Printf("[memory] failed to write leak report: %v", err)
		}
	}
}

func (m *Manager) pendingCount(r Ref) int {
	n := 0
	for _, p := range m.stack {
		n += p.Count(r)
	}
	return n
}

func (m *Manager) push(p *Pool) {
	m.stack = append(m.stack, p)
	m.stats.PoolsPushed++
	if len(m.stack) > m.stats.MaxDepth {
		m.stats.MaxDepth = len(m.stack)
	}
}

func (m *Manager) checkTop(p *Pool) {
	if len(m.stack) == 0 || m.stack[len(m.stack)-1] != p {
		top := "<empty>"
		if len(m.stack) > 0 {
			top = m.stack[len(m.stack)-1].name
		}
		panic(&LifetimeError{
			Op:     "Pool.Close",
			Kind:   KindPoolOrder,
			Object: fmt.Sprintf("pool %q", p.name),
			Detail: fmt.Sprintf("pool %q is still on top of the stack", top),
		})
	}
}

func (m *Manager) pop(p *Pool) {
	m.checkTop(p)
	m.stack[len(m.stack)-1] = nil
	m.stack = m.stack[:len(m.stack)-1]
	m.stats.PoolsPopped++
}

// Process-wide default manager

var (
	defaultMu      sync.Mutex
	defaultConfig  = DefaultConfig()
	defaultManager *Manager
)

// Default returns the process-wide manager, creating it (and its bootstrap
// pool) on first use. The mutex only guards creation; the returned manager's
// stack is still single-goroutine.
func Default() *Manager {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultManager == nil {
		defaultManager = NewManager(defaultConfig)
	}
	return defaultManager
}

// SetDefault installs cfg for the default manager. An existing default
// manager is closed first; the next Default call creates a fresh one.
func SetDefault(cfg Config) {
	defaultMu.Lock()
	old := defaultManager
	defaultManager = nil
	defaultConfig = cfg
	defaultMu.Unlock()
	if old != nil {
		old.Close()
	}
}

// Shutdown closes the default manager, draining its pools. Call it before
// the process exits.
func Shutdown() {
	defaultMu.Lock()
	old := defaultManager
	defaultManager = nil
	defaultMu.Unlock()
	if old != nil {
		old.Close()
	}
}
