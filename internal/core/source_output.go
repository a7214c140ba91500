package core

import (
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/audioroute/audioroute/internal/events"
	"github.com/audioroute/audioroute/pkg/audio"
	"github.com/audioroute/audioroute/pkg/resample"
)

// SourceOutputState tracks one capture connection's lifecycle.
type SourceOutputState int

const (
	SourceOutputRunning SourceOutputState = iota
	SourceOutputCorked
	SourceOutputDisconnected
)

func (s SourceOutputState) String() string {
	switch s {
	case SourceOutputRunning:
		return "running"
	case SourceOutputCorked:
		return "corked"
	case SourceOutputDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Handler supplies the behavior of one source output: where pushed chunks
// go, how the producing side is torn down, and what latency the consumer
// adds. The surrounding system attaches it right after creation; a handler
// must be attached before data flows.
type Handler interface {
	// HandleChunk receives one non-empty chunk in the output's own format.
	// The chunk's memory is valid for the duration of the call; retain it
	// with chunk.Acquire if needed afterwards.
	HandleChunk(o *SourceOutput, chunk audio.Chunk)

	// HandleKill tears down the producing side. The handler's owner is
	// expected to release its reference eventually; kill itself neither
	// disconnects nor frees.
	HandleKill(o *SourceOutput)

	// Latency reports the consumer-side latency.
	Latency(o *SourceOutput) time.Duration
}

// NopHandler provides no-op kill and zero latency for handlers that only
// care about data.
type NopHandler struct{}

func (NopHandler) HandleKill(*SourceOutput) {}

func (NopHandler) Latency(*SourceOutput) time.Duration { return 0 }

// SourceOutput is one consumer's connection to a source: its own target
// format, an optional conversion pipeline, and membership in the global
// and per-source registries.
type SourceOutput struct {
	core   *Core
	index  uint32
	state  SourceOutputState
	name   string
	driver string

	source *Source
	client any
	owner  any

	spec audio.SampleSpec
	cmap audio.ChannelMap

	// res converts source-native chunks to the output's format; nil while
	// the two formats match.
	res    *resample.Resampler
	method resample.Method

	handler Handler
	refs    int
}

// newResampler builds conversion pipelines; swapped in tests to exercise
// construction failures.
var newResampler = resample.New

// NewSourceOutput connects a new consumer to a source. The spec and map fix
// the output's own format; a nil map derives the default layout. A zero
// method selects the core default. When the output's format differs from
// the source's native format a resampler is built; creation is
// all-or-nothing.
func NewSourceOutput(s *Source, driver, name string, spec audio.SampleSpec, cmap *audio.ChannelMap, method resample.Method) (*SourceOutput, error) {
	if s.state != SourceRunning {
		panic("core: source output created on a source that is not running")
	}

	if !spec.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFormat, spec)
	}
	m, err := resolveChannelMap(spec, cmap)
	if err != nil {
		return nil, err
	}
	if !utf8.ValidString(driver) || !utf8.ValidString(name) {
		return nil, fmt.Errorf("%w: source output name/driver", ErrInvalidEncoding)
	}
	if s.outputs.Size() >= s.core.maxOutputs {
		return nil, fmt.Errorf("%w: source %d is at capacity (%d)", ErrTooManyOutputs, s.index, s.core.maxOutputs)
	}

	if !method.Valid() {
		method = s.core.defaultMethod
	}

	var res *resample.Resampler
	if !s.spec.Equal(spec) || !s.cmap.Equal(m) {
		res, err = newResampler(s.spec, s.cmap, spec, m, method)
		if err != nil {
			s.core.log.Warn("unsupported resampling operation",
				zap.String("from", s.spec.String()),
				zap.String("to", spec.String()),
				zap.Error(err),
			)
			return nil, fmt.Errorf("%w: %s -> %s", ErrUnsupportedConversion, s.spec, spec)
		}
	}

	o := &SourceOutput{
		core:   s.core,
		state:  SourceOutputRunning,
		name:   name,
		driver: driver,
		source: s,
		spec:   spec,
		cmap:   m,
		res:    res,
		method: method,
		refs:   1,
	}
	o.index = s.core.sourceOutputs.Put(o)
	s.outputs.Put(o)

	s.core.log.Info("created source output",
		zap.Uint32("index", o.index),
		zap.String("name", name),
		zap.Uint32("source", s.index),
		zap.String("spec", spec.String()),
	)
	s.core.bus.Post(events.Event{Facility: events.FacilitySourceOutput, Action: events.ActionNew, Index: o.index})

	// The handler is not attached yet, so the source is not notified here;
	// the caller wires behavior and wakes the source itself if needed.
	return o, nil
}

// Disconnect severs the connection: the output leaves both registries, the
// handler is detached and the state becomes terminal. Disconnecting twice
// is a caller bug and panics; release references with Unref instead of
// calling this defensively.
func (o *SourceOutput) Disconnect() {
	if o.state == SourceOutputDisconnected {
		panic("core: source output disconnected twice")
	}

	o.core.sourceOutputs.RemoveByValue(o)
	o.source.outputs.RemoveByValue(o)

	o.core.bus.Post(events.Event{Facility: events.FacilitySourceOutput, Action: events.ActionRemove, Index: o.index})
	o.source = nil
	o.handler = nil
	o.state = SourceOutputDisconnected
}

func (o *SourceOutput) free() {
	if o.state != SourceOutputDisconnected {
		o.Disconnect()
	}

	o.core.log.Info("freed source output",
		zap.Uint32("index", o.index),
		zap.String("name", o.name),
	)

	if o.res != nil {
		o.res.Close()
		o.res = nil
	}
}

// Ref takes a strong reference and returns the same output.
func (o *SourceOutput) Ref() *SourceOutput {
	if o.refs < 1 {
		panic("core: ref of freed source output")
	}
	o.refs++
	return o
}

// Unref drops one reference. Exactly when the count reaches zero the
// output is torn down: disconnected first if still attached, then its
// resampler released. No data-path call can observe the teardown because
// disconnect already detached the handler.
func (o *SourceOutput) Unref() {
	if o.refs < 1 {
		panic("core: unref of freed source output")
	}
	o.refs--
	if o.refs == 0 {
		o.free()
	}
}

// Kill asks the handler to tear down the producing side. Without a handler
// it does nothing; the surrounding system owns actual teardown and is
// expected to release its reference in response.
func (o *SourceOutput) Kill() {
	if o.handler != nil {
		o.handler.HandleKill(o)
	}
}

// Push delivers one captured chunk down the connection. This is the
// real-time hot path: corked outputs drop the chunk silently, a bound
// resampler converts it (possibly yielding nothing while it buffers), and
// anything else is forwarded to the handler unchanged and in order.
func (o *SourceOutput) Push(chunk audio.Chunk) {
	if chunk.Empty() {
		panic("core: push of empty chunk")
	}
	if o.handler == nil {
		panic("core: push without an attached handler")
	}

	if o.state == SourceOutputCorked {
		return
	}

	if o.res == nil {
		o.handler.HandleChunk(o, chunk)
		return
	}

	out, err := o.res.Run(chunk)
	if err != nil {
		o.core.log.Warn("resampler failed on push",
			zap.Uint32("index", o.index),
			zap.Error(err),
		)
		return
	}
	if out.Empty() {
		return
	}
	o.handler.HandleChunk(o, out)
	out.Release()
}

// SetName replaces the display name and posts a change event.
func (o *SourceOutput) SetName(name string) error {
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: source output name", ErrInvalidEncoding)
	}
	o.name = name
	o.core.bus.Post(events.Event{Facility: events.FacilitySourceOutput, Action: events.ActionChange, Index: o.index})
	return nil
}

// Latency reports the consumer-side latency, zero without a handler.
func (o *SourceOutput) Latency() time.Duration {
	if o.handler != nil {
		return o.handler.Latency(o)
	}
	return 0
}

// Cork mutes (true) or resumes (false) delivery. Only the corked-to-running
// edge wakes the attached source; repeated corks and uncorks stay silent.
// Corking a disconnected output is a no-op.
func (o *SourceOutput) Cork(corked bool) {
	if o.state == SourceOutputDisconnected {
		return
	}

	wake := o.state == SourceOutputCorked && !corked

	if corked {
		o.state = SourceOutputCorked
	} else {
		o.state = SourceOutputRunning
	}

	if wake {
		o.source.Notify()
	}
}

// ResampleMethod reports the operating conversion method: the resampler's
// own answer while one is bound, the nominal request otherwise.
func (o *SourceOutput) ResampleMethod() resample.Method {
	if o.res == nil {
		return o.method
	}
	return o.res.Method()
}

// MoveTo reattaches the output to dest without recreating it. The existing
// resampler is reused when the two sources share a format, rebuilt when the
// output's format differs from dest's, and dropped when dest's native
// format already matches the output. A failed move leaves the output fully
// attached to its origin.
func (o *SourceOutput) MoveTo(dest *Source) error {
	if o.state == SourceOutputDisconnected {
		panic("core: move of a disconnected source output")
	}

	origin := o.source
	if dest == origin {
		return nil
	}

	if dest.outputs.Size() >= o.core.maxOutputs {
		return fmt.Errorf("%w: source %d is at capacity (%d)", ErrTooManyOutputs, dest.index, o.core.maxOutputs)
	}

	var newRes *resample.Resampler
	switch {
	case o.res != nil && origin.spec.Equal(dest.spec) && origin.cmap.Equal(dest.cmap):
		// Both sources produce the same format; the bound pipeline still
		// converts it to the output's format and can be kept as is.
		newRes = o.res

	case !o.spec.Equal(dest.spec) || !o.cmap.Equal(dest.cmap):
		var err error
		newRes, err = newResampler(dest.spec, dest.cmap, o.spec, o.cmap, o.method)
		if err != nil {
			o.core.log.Warn("unsupported resampling operation",
				zap.String("from", dest.spec.String()),
				zap.String("to", o.spec.String()),
				zap.Error(err),
			)
			return fmt.Errorf("%w: %s -> %s", ErrUnsupportedConversion, dest.spec, o.spec)
		}

	default:
		// dest's native format matches the output exactly: pass-through.
		// Any pipeline still bound from the previous attachment is stale
		// and must go.
		newRes = nil
	}

	origin.outputs.RemoveByValue(o)
	dest.outputs.Put(o)
	o.source = dest

	if newRes != o.res {
		if o.res != nil {
			o.res.Close()
		}
		o.res = newRes
	}

	o.core.bus.Post(events.Event{Facility: events.FacilitySourceOutput, Action: events.ActionChange, Index: o.index})
	dest.Notify()

	return nil
}

// SetHandler attaches the behavior of this connection.
func (o *SourceOutput) SetHandler(h Handler) {
	o.handler = h
}

// Index returns the output's global registry index.
func (o *SourceOutput) Index() uint32 { return o.index }

// Name returns the display name.
func (o *SourceOutput) Name() string { return o.name }

// Driver returns the creating driver's identifier.
func (o *SourceOutput) Driver() string { return o.driver }

// State returns the current lifecycle state.
func (o *SourceOutput) State() SourceOutputState { return o.state }

// Source returns the attached source, nil once disconnected.
func (o *SourceOutput) Source() *Source { return o.source }

// SampleSpec returns the output's own format.
func (o *SourceOutput) SampleSpec() audio.SampleSpec { return o.spec }

// ChannelMap returns the output's own channel layout.
func (o *SourceOutput) ChannelMap() audio.ChannelMap { return o.cmap }

// HasResampler reports whether a conversion pipeline is bound.
func (o *SourceOutput) HasResampler() bool { return o.res != nil }

// Client returns the opaque client reference.
func (o *SourceOutput) Client() any { return o.client }

// SetClient stores an opaque client reference for the surrounding system.
func (o *SourceOutput) SetClient(client any) { o.client = client }

// Owner returns the opaque owner reference.
func (o *SourceOutput) Owner() any { return o.owner }

// SetOwner stores an opaque owner reference for the surrounding system.
func (o *SourceOutput) SetOwner(owner any) { o.owner = owner }
