// Package core implements the routing core: sources, source outputs, their
// registries and the operations connecting them. Core objects are confined
// to a single owner goroutine; other goroutines reach them through the
// core's dispatch loop.
package core

import (
	"context"

	"go.uber.org/zap"

	"github.com/audioroute/audioroute/internal/events"
	"github.com/audioroute/audioroute/internal/idxset"
	"github.com/audioroute/audioroute/pkg/resample"
)

// DefaultMaxOutputsPerSource bounds how many outputs one source carries
// unless configured otherwise.
const DefaultMaxOutputsPerSource = 32

// Config carries the process-wide knobs of a core.
type Config struct {
	Logger                *zap.Logger
	DefaultResampleMethod resample.Method
	MaxOutputsPerSource   int
}

// Core owns the global registries, the notification bus and the defaults
// shared by every source and source output in the process.
type Core struct {
	log           *zap.Logger
	bus           *events.Bus
	sources       *idxset.Set[*Source]
	sourceOutputs *idxset.Set[*SourceOutput]
	defaultMethod resample.Method
	maxOutputs    int
	calls         chan func()
}

// New builds an empty core.
func New(cfg Config) *Core {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	method := cfg.DefaultResampleMethod
	if !method.Valid() {
		method = resample.MethodHigh
	}
	maxOutputs := cfg.MaxOutputsPerSource
	if maxOutputs <= 0 {
		maxOutputs = DefaultMaxOutputsPerSource
	}
	return &Core{
		log:           log,
		bus:           events.NewBus(),
		sources:       idxset.New[*Source](),
		sourceOutputs: idxset.New[*SourceOutput](),
		defaultMethod: method,
		maxOutputs:    maxOutputs,
		calls:         make(chan func(), 256),
	}
}

// Bus returns the core's notification bus.
func (c *Core) Bus() *events.Bus {
	return c.bus
}

// DefaultResampleMethod returns the method substituted when a creation
// request leaves the choice open.
func (c *Core) DefaultResampleMethod() resample.Method {
	return c.defaultMethod
}

// MaxOutputsPerSource returns the per-source output capacity.
func (c *Core) MaxOutputsPerSource() int {
	return c.maxOutputs
}

// SourceByIndex looks up a source in the global registry.
func (c *Core) SourceByIndex(idx uint32) (*Source, bool) {
	return c.sources.Get(idx)
}

// SourceOutputByIndex looks up a source output in the global registry.
func (c *Core) SourceOutputByIndex(idx uint32) (*SourceOutput, bool) {
	return c.sourceOutputs.Get(idx)
}

// EachSource visits all sources in index order.
func (c *Core) EachSource(f func(*Source) bool) {
	c.sources.Each(func(_ uint32, s *Source) bool { return f(s) })
}

// EachSourceOutput visits all source outputs in index order.
func (c *Core) EachSourceOutput(f func(*SourceOutput) bool) {
	c.sourceOutputs.Each(func(_ uint32, o *SourceOutput) bool { return f(o) })
}

// Run services dispatched calls until ctx is cancelled. Everything touching
// core objects from other goroutines must run through Dispatch or Call.
func (c *Core) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-c.calls:
			fn()
		}
	}
}

// Dispatch queues fn for execution on the core's loop.
func (c *Core) Dispatch(fn func()) {
	c.calls <- fn
}

// Call runs fn on the core's loop and waits for it to finish.
func (c *Core) Call(fn func()) {
	done := make(chan struct{})
	c.calls <- func() {
		defer close(done)
		fn()
	}
	<-done
}
