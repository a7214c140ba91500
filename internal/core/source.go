package core

import (
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/audioroute/audioroute/internal/events"
	"github.com/audioroute/audioroute/internal/idxset"
	"github.com/audioroute/audioroute/pkg/audio"
)

// SourceState tracks a capture endpoint's operational state.
type SourceState int

const (
	SourceRunning SourceState = iota
	SourceSuspended
	SourceDisconnected
)

func (s SourceState) String() string {
	switch s {
	case SourceRunning:
		return "running"
	case SourceSuspended:
		return "suspended"
	case SourceDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Source is a capture endpoint: a native format, a bounded set of attached
// outputs and a wake hook for its driver.
type Source struct {
	core    *Core
	index   uint32
	name    string
	driver  string
	spec    audio.SampleSpec
	cmap    audio.ChannelMap
	state   SourceState
	outputs *idxset.Set[*SourceOutput]
	notify  func()
}

// NewSource registers a capture endpoint with the core. A nil channel map
// derives the default layout for the spec's channel count. The source
// starts in the running state.
func NewSource(c *Core, driver, name string, spec audio.SampleSpec, cmap *audio.ChannelMap) (*Source, error) {
	if !spec.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFormat, spec)
	}
	m, err := resolveChannelMap(spec, cmap)
	if err != nil {
		return nil, err
	}
	if !utf8.ValidString(name) || !utf8.ValidString(driver) {
		return nil, fmt.Errorf("%w: source name/driver", ErrInvalidEncoding)
	}

	s := &Source{
		core:    c,
		name:    name,
		driver:  driver,
		spec:    spec,
		cmap:    m,
		state:   SourceRunning,
		outputs: idxset.New[*SourceOutput](),
	}
	s.index = c.sources.Put(s)

	c.log.Info("created source",
		zap.Uint32("index", s.index),
		zap.String("name", name),
		zap.String("spec", spec.String()),
	)
	c.bus.Post(events.Event{Facility: events.FacilitySource, Action: events.ActionNew, Index: s.index})
	return s, nil
}

func resolveChannelMap(spec audio.SampleSpec, cmap *audio.ChannelMap) (audio.ChannelMap, error) {
	if cmap == nil {
		m, err := audio.DefaultChannelMap(spec.Channels)
		if err != nil {
			return audio.ChannelMap{}, fmt.Errorf("%w: %v", ErrInvalidChannelMap, err)
		}
		return m, nil
	}
	if !cmap.Valid() {
		return audio.ChannelMap{}, fmt.Errorf("%w: %s", ErrInvalidChannelMap, cmap)
	}
	if cmap.Channels() != spec.Channels {
		return audio.ChannelMap{}, fmt.Errorf("%w: map has %d channels, spec has %d",
			ErrInvalidChannelMap, cmap.Channels(), spec.Channels)
	}
	return cmap.Clone(), nil
}

// Index returns the source's registry index.
func (s *Source) Index() uint32 { return s.index }

// Name returns the display name.
func (s *Source) Name() string { return s.name }

// Driver returns the owning driver's identifier.
func (s *Source) Driver() string { return s.driver }

// SampleSpec returns the native format.
func (s *Source) SampleSpec() audio.SampleSpec { return s.spec }

// ChannelMap returns the native channel layout.
func (s *Source) ChannelMap() audio.ChannelMap { return s.cmap }

// State returns the current operational state.
func (s *Source) State() SourceState { return s.state }

// SetState moves the source between running and suspended and posts a
// change event. Transitions on a disconnected source are ignored.
func (s *Source) SetState(state SourceState) {
	if s.state == SourceDisconnected || state == s.state {
		return
	}
	s.state = state
	s.core.bus.Post(events.Event{Facility: events.FacilitySource, Action: events.ActionChange, Index: s.index})
}

// SetNotify installs the driver's wake hook.
func (s *Source) SetNotify(fn func()) {
	s.notify = fn
}

// Notify wakes the driver for scheduling, typically after an output was
// uncorked or moved here.
func (s *Source) Notify() {
	if s.notify != nil {
		s.notify()
	}
}

// OutputCount returns the number of attached outputs.
func (s *Source) OutputCount() int {
	return s.outputs.Size()
}

// EachOutput visits the attached outputs in index order.
func (s *Source) EachOutput(f func(*SourceOutput) bool) {
	s.outputs.Each(func(_ uint32, o *SourceOutput) bool { return f(o) })
}

// Post fans one captured chunk out to every attached output. Called by the
// driver on the core's loop for each frame of captured audio.
func (s *Source) Post(chunk audio.Chunk) {
	s.outputs.Each(func(_ uint32, o *SourceOutput) bool {
		o.Push(chunk)
		return true
	})
}

// Disconnect kills the attached outputs, removes the source from the
// registry and marks it terminal. Calling it twice is a caller bug.
func (s *Source) Disconnect() {
	if s.state == SourceDisconnected {
		panic("core: source disconnected twice")
	}

	s.outputs.Each(func(_ uint32, o *SourceOutput) bool {
		o.Kill()
		return true
	})

	s.core.sources.RemoveByValue(s)
	s.core.bus.Post(events.Event{Facility: events.FacilitySource, Action: events.ActionRemove, Index: s.index})
	s.notify = nil
	s.state = SourceDisconnected
}
