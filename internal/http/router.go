package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/audioroute/audioroute/internal/core"
	"github.com/audioroute/audioroute/internal/storage"
	"github.com/audioroute/audioroute/internal/ws"
)

// NewRouter builds the REST and websocket surface over the routing core.
// Every handler marshals onto the core's call loop; nothing here touches
// core objects from the request goroutine.
func NewRouter(c *core.Core, wsHandler *ws.Handler, journal *storage.Journal, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	router.GET("/health", func(gc *gin.Context) {
		gc.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/ws/events", func(gc *gin.Context) {
		wsHandler.HandleEvents(gc.Writer, gc.Request)
	})
	router.GET("/ws/tap", func(gc *gin.Context) {
		wsHandler.HandleTap(gc.Writer, gc.Request)
	})

	api := router.Group("/api")
	api.GET("/sources", listSources(c))
	api.GET("/sources/:index", getSource(c))
	api.GET("/source-outputs", listOutputs(c))
	api.GET("/source-outputs/:index", getOutput(c))
	api.POST("/source-outputs/:index/cork", corkOutput(c, true))
	api.POST("/source-outputs/:index/uncork", corkOutput(c, false))
	api.POST("/source-outputs/:index/move", moveOutput(c))
	api.POST("/source-outputs/:index/rename", renameOutput(c))
	api.POST("/source-outputs/:index/kill", killOutput(c))
	api.GET("/journals", listJournals(journal))
	api.GET("/journals/:uid", getJournal(journal))

	return router
}

func listJournals(journal *storage.Journal) gin.HandlerFunc {
	return func(gc *gin.Context) {
		if journal == nil {
			gc.JSON(http.StatusOK, []storage.JournalInfo{})
			return
		}
		gc.JSON(http.StatusOK, journal.List())
	}
}

func getJournal(journal *storage.Journal) gin.HandlerFunc {
	return func(gc *gin.Context) {
		if journal == nil {
			gc.JSON(http.StatusNotFound, gin.H{"error": "journaling is disabled"})
			return
		}
		records, err := journal.Read(gc.Param("uid"))
		if err != nil {
			gc.JSON(http.StatusNotFound, gin.H{"error": "no such journal"})
			return
		}
		gc.JSON(http.StatusOK, records)
	}
}

type sourceView struct {
	Index    uint32 `json:"index"`
	Name     string `json:"name"`
	Driver   string `json:"driver"`
	Spec     string `json:"spec"`
	Channels string `json:"channels"`
	State    string `json:"state"`
	Outputs  int    `json:"outputs"`
}

type outputView struct {
	Index          uint32 `json:"index"`
	Name           string `json:"name"`
	Driver         string `json:"driver"`
	Source         uint32 `json:"source"`
	Spec           string `json:"spec"`
	Channels       string `json:"channels"`
	State          string `json:"state"`
	ResampleMethod string `json:"resample_method"`
	Resampled      bool   `json:"resampled"`
	LatencyMs      int64  `json:"latency_ms"`
}

func viewOfSource(s *core.Source) sourceView {
	return sourceView{
		Index:    s.Index(),
		Name:     s.Name(),
		Driver:   s.Driver(),
		Spec:     s.SampleSpec().String(),
		Channels: s.ChannelMap().String(),
		State:    s.State().String(),
		Outputs:  s.OutputCount(),
	}
}

func viewOfOutput(o *core.SourceOutput) outputView {
	v := outputView{
		Index:          o.Index(),
		Name:           o.Name(),
		Driver:         o.Driver(),
		Spec:           o.SampleSpec().String(),
		Channels:       o.ChannelMap().String(),
		State:          o.State().String(),
		ResampleMethod: o.ResampleMethod().String(),
		Resampled:      o.HasResampler(),
		LatencyMs:      o.Latency().Milliseconds(),
	}
	if src := o.Source(); src != nil {
		v.Source = src.Index()
	}
	return v
}

func listSources(c *core.Core) gin.HandlerFunc {
	return func(gc *gin.Context) {
		views := []sourceView{}
		c.Call(func() {
			c.EachSource(func(s *core.Source) bool {
				views = append(views, viewOfSource(s))
				return true
			})
		})
		gc.JSON(http.StatusOK, views)
	}
}

func getSource(c *core.Core) gin.HandlerFunc {
	return func(gc *gin.Context) {
		idx, ok := parseIndex(gc)
		if !ok {
			return
		}
		var view sourceView
		found := false
		c.Call(func() {
			if s, ok := c.SourceByIndex(idx); ok {
				view = viewOfSource(s)
				found = true
			}
		})
		if !found {
			gc.JSON(http.StatusNotFound, gin.H{"error": "no such source"})
			return
		}
		gc.JSON(http.StatusOK, view)
	}
}

func listOutputs(c *core.Core) gin.HandlerFunc {
	return func(gc *gin.Context) {
		views := []outputView{}
		c.Call(func() {
			c.EachSourceOutput(func(o *core.SourceOutput) bool {
				views = append(views, viewOfOutput(o))
				return true
			})
		})
		gc.JSON(http.StatusOK, views)
	}
}

func getOutput(c *core.Core) gin.HandlerFunc {
	return func(gc *gin.Context) {
		idx, ok := parseIndex(gc)
		if !ok {
			return
		}
		var view outputView
		found := false
		c.Call(func() {
			if o, ok := c.SourceOutputByIndex(idx); ok {
				view = viewOfOutput(o)
				found = true
			}
		})
		if !found {
			gc.JSON(http.StatusNotFound, gin.H{"error": "no such source output"})
			return
		}
		gc.JSON(http.StatusOK, view)
	}
}

func corkOutput(c *core.Core, corked bool) gin.HandlerFunc {
	return func(gc *gin.Context) {
		withOutput(c, gc, func(o *core.SourceOutput) error {
			o.Cork(corked)
			return nil
		})
	}
}

type moveRequest struct {
	Source uint32 `json:"source"`
}

func moveOutput(c *core.Core) gin.HandlerFunc {
	return func(gc *gin.Context) {
		var req moveRequest
		if err := gc.ShouldBindJSON(&req); err != nil {
			gc.JSON(http.StatusBadRequest, gin.H{"error": "malformed move request"})
			return
		}
		withOutput(c, gc, func(o *core.SourceOutput) error {
			dest, ok := c.SourceByIndex(req.Source)
			if !ok {
				return errNoSuchSource
			}
			return o.MoveTo(dest)
		})
	}
}

type renameRequest struct {
	Name string `json:"name"`
}

func renameOutput(c *core.Core) gin.HandlerFunc {
	return func(gc *gin.Context) {
		var req renameRequest
		if err := gc.ShouldBindJSON(&req); err != nil {
			gc.JSON(http.StatusBadRequest, gin.H{"error": "malformed rename request"})
			return
		}
		withOutput(c, gc, func(o *core.SourceOutput) error {
			return o.SetName(req.Name)
		})
	}
}

func killOutput(c *core.Core) gin.HandlerFunc {
	return func(gc *gin.Context) {
		withOutput(c, gc, func(o *core.SourceOutput) error {
			o.Kill()
			return nil
		})
	}
}

var errNoSuchSource = errors.New("no such source")

// withOutput resolves the :index parameter on the core loop, runs fn there
// and maps its error onto an HTTP status.
func withOutput(c *core.Core, gc *gin.Context, fn func(*core.SourceOutput) error) {
	idx, ok := parseIndex(gc)
	if !ok {
		return
	}

	var opErr error
	found := false
	c.Call(func() {
		o, ok := c.SourceOutputByIndex(idx)
		if !ok {
			return
		}
		found = true
		opErr = fn(o)
	})

	switch {
	case !found:
		gc.JSON(http.StatusNotFound, gin.H{"error": "no such source output"})
	case errors.Is(opErr, errNoSuchSource):
		gc.JSON(http.StatusNotFound, gin.H{"error": opErr.Error()})
	case errors.Is(opErr, core.ErrTooManyOutputs),
		errors.Is(opErr, core.ErrUnsupportedConversion),
		errors.Is(opErr, core.ErrInvalidEncoding):
		gc.JSON(http.StatusConflict, gin.H{"error": opErr.Error()})
	case opErr != nil:
		gc.JSON(http.StatusInternalServerError, gin.H{"error": opErr.Error()})
	default:
		gc.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func parseIndex(gc *gin.Context) (uint32, bool) {
	idx, err := strconv.ParseUint(gc.Param("index"), 10, 32)
	if err != nil {
		gc.JSON(http.StatusBadRequest, gin.H{"error": "malformed index"})
		return 0, false
	}
	return uint32(idx), true
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		if logger == nil {
			return
		}
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("status", c.Writer.Status()),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("latency", latency),
			zap.String("user_agent", c.Request.UserAgent()),
		)
	}
}
