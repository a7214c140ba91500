package ws

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/audioroute/audioroute/internal/core"
	"github.com/audioroute/audioroute/internal/transport/wire"
	"github.com/audioroute/audioroute/pkg/audio"
	"github.com/audioroute/audioroute/pkg/resample"
)

// tapSession owns one websocket tap: a source output attached to the tapped
// source plus the opus encoder feeding the connection. The session is the
// output's handler; captured audio crosses from the core loop to the
// session goroutine through the pcm channel.
type tapSession struct {
	id     string
	conn   *websocket.Conn
	logger *zap.Logger
	core   *core.Core

	spec   audio.SampleSpec
	output *core.SourceOutput
	enc    *audio.OpusEncoder

	pcm    chan []byte
	killed chan struct{}

	killOnce sync.Once
	endOnce  sync.Once

	format  int
	seq     uint32
	pending []byte
	scratch []int16
}

func (h *Handler) openTap(conn *websocket.Conn, sourceIdx uint32, format int) (*tapSession, error) {
	enc, err := audio.NewOpusEncoder(h.tap.SampleRate, h.tap.Channels, h.tap.FrameDurationMs)
	if err != nil {
		return nil, fmt.Errorf("opus encoder: %w", err)
	}
	if h.tap.Bitrate > 0 {
		if err := enc.SetBitrate(h.tap.Bitrate); err != nil {
			enc.Close()
			return nil, fmt.Errorf("opus bitrate: %w", err)
		}
	}

	s := &tapSession{
		id:     uuid.NewString(),
		conn:   conn,
		logger: h.logger,
		core:   h.core,
		spec: audio.SampleSpec{
			Format:   audio.SampleS16LE,
			Rate:     h.tap.SampleRate,
			Channels: h.tap.Channels,
		},
		enc:     enc,
		format:  wire.NormalizeFormat(format),
		pcm:     make(chan []byte, 32),
		killed:  make(chan struct{}),
		scratch: audio.AcquireInt16(h.tap.SampleRate * h.tap.FrameDurationMs / 1000 * h.tap.Channels),
	}

	var createErr error
	h.core.Call(func() {
		src, ok := h.core.SourceByIndex(sourceIdx)
		if !ok {
			createErr = fmt.Errorf("no source with index %d", sourceIdx)
			return
		}
		s.output, createErr = core.NewSourceOutput(src, "ws-tap", "tap-"+s.id, s.spec, nil, resample.MethodInvalid)
		if createErr != nil {
			return
		}
		s.output.SetHandler(s)
		s.output.SetClient(s.id)
	})
	if createErr != nil {
		enc.Close()
		return nil, createErr
	}

	h.logger.Info("tap opened",
		zap.String("session_id", s.id),
		zap.Uint32("source", sourceIdx),
		zap.Uint32("output", s.output.Index()),
		zap.String("spec", s.spec.String()),
	)
	return s, nil
}

// HandleChunk runs on the core loop. The chunk's memory is only valid for
// the call, so the bytes are copied before crossing goroutines; a full
// channel drops the frame rather than stalling the loop.
func (s *tapSession) HandleChunk(_ *core.SourceOutput, chunk audio.Chunk) {
	buf := make([]byte, chunk.Length)
	copy(buf, chunk.Bytes())
	select {
	case s.pcm <- buf:
	default:
	}
}

// HandleKill runs on the core loop; it only signals the session goroutine,
// which owns the actual teardown and the final unref.
func (s *tapSession) HandleKill(*core.SourceOutput) {
	s.killOnce.Do(func() { close(s.killed) })
}

// Latency reports the audio queued between capture and the socket.
func (s *tapSession) Latency(*core.SourceOutput) time.Duration {
	queued := len(s.pcm) + 1
	return time.Duration(queued) * time.Duration(s.enc.FrameDuration()) * time.Millisecond
}

func (s *tapSession) run() {
	defer s.teardown()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := s.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case buf := <-s.pcm:
			if err := s.writeFrames(buf); err != nil {
				s.logger.Debug("tap write failed",
					zap.String("session_id", s.id),
					zap.Error(err),
				)
				return
			}
		case <-s.killed:
			s.logger.Info("tap killed", zap.String("session_id", s.id))
			return
		case <-done:
			s.logger.Info("tap closed", zap.String("session_id", s.id))
			return
		}
	}
}

// writeFrames appends buf to the partial frame and sends every complete
// opus packet it yields.
func (s *tapSession) writeFrames(buf []byte) error {
	s.pending = append(s.pending, buf...)
	frameBytes := s.enc.FrameBytes()

	for len(s.pending) >= frameBytes {
		packet, err := s.enc.Encode(s.pending[:frameBytes], s.scratch)
		if err != nil {
			return err
		}
		s.pending = s.pending[frameBytes:]
		msg := wire.Pack(s.format, s.seq, packet)
		s.seq++
		if err := s.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
			return err
		}
	}
	return nil
}

func (s *tapSession) teardown() {
	s.endOnce.Do(func() {
		s.conn.Close()
		s.core.Call(func() { s.output.Unref() })
		s.enc.Close()
		audio.ReleaseInt16(s.scratch)
		s.scratch = nil
	})
}
