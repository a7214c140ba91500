// Package runtime assembles the daemon: configuration, logging, the
// routing core, the tone drivers and the HTTP surface.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	appconfig "github.com/audioroute/audioroute/internal/config"
	"github.com/audioroute/audioroute/internal/core"
	"github.com/audioroute/audioroute/internal/driver"
	"github.com/audioroute/audioroute/internal/events"
	apphttp "github.com/audioroute/audioroute/internal/http"
	applogger "github.com/audioroute/audioroute/internal/logger"
	"github.com/audioroute/audioroute/internal/storage"
	"github.com/audioroute/audioroute/internal/ws"
	"github.com/audioroute/audioroute/pkg/resample"
)

// Server represents one assembled daemon instance.
type Server struct {
	cfg     appconfig.Config
	logger  *zap.Logger
	core    *core.Core
	server  *http.Server
	journal *storage.Journal

	coreCancel   context.CancelFunc
	driverCancel context.CancelFunc
	coreWg       sync.WaitGroup
	driverWg     sync.WaitGroup
}

// New loads the configuration and wires the daemon together. Sources are
// created later, in Run, once the core loop is turning.
func New(configPath string) (*Server, error) {
	cfg, err := appconfig.LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := applogger.New(cfg.Log)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	logger.Info("logger configured",
		zap.String("level", cfg.Log.Level),
		zap.Bool("stdout", cfg.Log.Stdout),
		zap.Bool("file_enabled", cfg.Log.File.Enabled),
	)
	logger.Info("config loaded",
		zap.String("config_path", configPath),
		zap.String("root_dir", cfg.RootDir),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("sources_dir", cfg.SourcesDir),
	)

	method, err := resample.ParseMethod(cfg.DefaultResampleMethod)
	if err != nil {
		return nil, fmt.Errorf("default_resample_method: %w", err)
	}

	c := core.New(core.Config{
		Logger:                logger,
		DefaultResampleMethod: method,
		MaxOutputsPerSource:   cfg.MaxOutputsPerSource,
	})

	var journal *storage.Journal
	if cfg.JournalDir != "" {
		journal, err = storage.OpenJournal(cfg.JournalDir)
		if err != nil {
			logger.Warn("event journal disabled", zap.Error(err))
			journal = nil
		}
	}

	wsHandler := ws.NewHandler(logger, c, cfg.Tap)
	router := apphttp.NewRouter(c, wsHandler, journal, logger)

	return &Server{
		cfg:     cfg,
		logger:  logger,
		core:    c,
		journal: journal,
		server: &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: router,
		},
	}, nil
}

// Run starts the core loop, the configured tone sources and the HTTP
// server, then blocks until the server stops.
func (s *Server) Run() error {
	if s == nil || s.server == nil {
		return nil
	}

	coreCtx, coreCancel := context.WithCancel(context.Background())
	s.coreCancel = coreCancel
	s.coreWg.Add(1)
	go func() {
		defer s.coreWg.Done()
		s.core.Run(coreCtx)
	}()

	if s.journal != nil {
		go s.journal.Run()
		s.core.Call(func() {
			s.core.Bus().Subscribe(func(ev events.Event) {
				s.journal.Append(storage.Record{
					Facility: ev.Facility.String(),
					Action:   ev.Action.String(),
					Index:    ev.Index,
				})
			})
		})
		s.logger.Info("event journal opened", zap.String("uid", s.journal.UID()))
	}

	driverCtx, driverCancel := context.WithCancel(context.Background())
	s.driverCancel = driverCancel
	if err := s.startDrivers(driverCtx); err != nil {
		s.stopBackground()
		return err
	}

	s.logger.Info("starting http server", zap.String("addr", s.cfg.HTTPAddr))
	err := s.server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) startDrivers(ctx context.Context) error {
	profiles, err := appconfig.ScanSourceProfiles(s.cfg.SourcesDir)
	if err != nil {
		return fmt.Errorf("scan source profiles: %w", err)
	}
	if len(profiles) == 0 {
		// Always bring up at least one source so taps have something to
		// attach to.
		profiles = append(profiles, appconfig.SourceProfile{
			Name:     "tone",
			Format:   "s16le",
			Rate:     48000,
			Channels: 2,
			Tone:     appconfig.ToneConfig{FrequencyHz: 440, Amplitude: 0.3},
		})
	}

	for _, profile := range profiles {
		tone, err := driver.NewTone(s.core, s.logger, profile)
		if err != nil {
			s.logger.Warn("skipping source", zap.String("name", profile.Name), zap.Error(err))
			continue
		}
		s.driverWg.Add(1)
		go func() {
			defer s.driverWg.Done()
			tone.Run(ctx)
		}()
	}
	return nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	if s == nil || s.server == nil {
		return ""
	}
	return s.server.Addr
}

// Shutdown stops the HTTP server, then the drivers, then the core loop.
// The drivers must go before the loop because their teardown runs on it.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	s.stopBackground()
	return err
}

func (s *Server) stopBackground() {
	if s.driverCancel != nil {
		s.driverCancel()
		s.driverWg.Wait()
	}
	if s.coreCancel != nil {
		s.coreCancel()
		s.coreWg.Wait()
	}
	if s.journal != nil {
		s.journal.Close()
		s.journal = nil
	}
}
