package ws

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/audioroute/audioroute/internal/config"
	"github.com/audioroute/audioroute/internal/core"
	"github.com/audioroute/audioroute/internal/events"
	"github.com/audioroute/audioroute/internal/transport/wire"
)

// Handler serves the two websocket surfaces: the event feed and the audio
// tap. All routing-core access happens through the core's call loop; the
// websocket goroutines never touch core objects directly.
type Handler struct {
	logger   *zap.Logger
	core     *core.Core
	tap      config.TapConfig
	upgrader websocket.Upgrader

	mu   sync.Mutex
	taps map[string]*tapSession
}

// NewHandler builds the websocket surface, filling unset tap defaults.
func NewHandler(logger *zap.Logger, c *core.Core, tap config.TapConfig) *Handler {
	if tap.SampleRate == 0 {
		tap.SampleRate = 48000
	}
	if tap.Channels == 0 {
		tap.Channels = 1
	}
	if tap.FrameDurationMs == 0 {
		tap.FrameDurationMs = 20
	}
	return &Handler{
		logger: logger,
		core:   c,
		tap:    tap,
		taps:   make(map[string]*tapSession),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleEvents streams routing change notifications as JSON messages until
// the client disconnects.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Buffered so a slow client stalls its own feed, not the core loop.
	feed := make(chan events.Event, 64)
	var cancel func()
	h.core.Call(func() {
		cancel = h.core.Bus().Subscribe(func(ev events.Event) {
			select {
			case feed <- ev:
			default:
			}
		})
	})
	defer h.core.Call(func() { cancel() })

	h.logger.Info("event feed opened", zap.String("remote", r.RemoteAddr))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var sendMu sync.Mutex
	for {
		select {
		case ev := <-feed:
			sendMu.Lock()
			err := conn.WriteJSON(Message{Type: "event", Payload: ev})
			sendMu.Unlock()
			if err != nil {
				return
			}
		case <-done:
			h.logger.Info("event feed closed", zap.String("remote", r.RemoteAddr))
			return
		}
	}
}

// HandleTap attaches a capture connection to the source named by the
// ?source=N query parameter and streams its audio as opus binary frames.
func (h *Handler) HandleTap(w http.ResponseWriter, r *http.Request) {
	rawIdx := r.URL.Query().Get("source")
	idx, err := strconv.ParseUint(rawIdx, 10, 32)
	if err != nil {
		http.Error(w, "missing or malformed source index", http.StatusBadRequest)
		return
	}

	conn, upgradeErr := h.upgrader.Upgrade(w, r, nil)
	if upgradeErr != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(upgradeErr))
		return
	}

	format := wire.ParseFormat(r.URL.Query().Get("framing"))
	sess, err := h.openTap(conn, uint32(idx), format)
	if err != nil {
		h.logger.Warn("tap rejected",
			zap.Uint64("source", idx),
			zap.Error(err),
		)
		conn.WriteJSON(Message{Type: "error", Payload: err.Error()})
		conn.Close()
		return
	}

	h.mu.Lock()
	h.taps[sess.id] = sess
	h.mu.Unlock()

	sess.run()

	h.mu.Lock()
	delete(h.taps, sess.id)
	h.mu.Unlock()
}

// TapCount reports the number of live tap sessions.
func (h *Handler) TapCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.taps)
}
