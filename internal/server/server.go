// Package server is the host adapter: it accepts request envelopes over HTTP
// and WebSocket and streams every kernel event to connected sessions.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zeusync/hexkernel/internal/core/errs"
	"github.com/zeusync/hexkernel/internal/core/message"
	"github.com/zeusync/hexkernel/internal/core/observability/log"
	"github.com/zeusync/hexkernel/internal/core/queue"
	"github.com/zeusync/hexkernel/internal/core/storage"
	"github.com/zeusync/hexkernel/internal/core/terrain"
)

// Kernel is the part of the simulation the adapter drives.
type Kernel interface {
	Submit(req message.Request) error
	Events() *queue.Unbounded[message.Event]
	Running() bool
	StoreStats(ctx context.Context) (storage.Statistics, bool)
}

// Terrain is the part of the chunk cache exposed for health, warm-up and
// host edits.
type Terrain interface {
	Stats() terrain.Stats
	Preload(ctx context.Context, cc terrain.ChunkCoord) error
	Set(ctx context.Context, x, y int, t terrain.Type) error
}

type Config struct {
	Listen string `yaml:"listen" toml:"listen"`
	// AuthToken, when set, is required on /v1 and /ws as a bearer token or a
	// token query parameter.
	AuthToken string `yaml:"auth_token" toml:"auth_token"`

	ReadTimeout     time.Duration `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" toml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`

	// SessionBuffer is the number of events queued per WebSocket session
	// before further events are dropped for it.
	SessionBuffer  int   `yaml:"session_buffer" toml:"session_buffer"`
	MaxMessageSize int64 `yaml:"max_message_size" toml:"max_message_size"`
}

func DefaultConfig() Config {
	return Config{
		Listen:          "127.0.0.1:8080",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		SessionBuffer:   256,
		MaxMessageSize:  64 * 1024,
	}
}

type Server struct {
	config  Config
	kernel  Kernel
	terrain Terrain
	logger  log.Log

	engine *gin.Engine
	hub    *hub
	http   *http.Server
	addr   atomic.Value // net.Addr

	running atomic.Bool
	closed  atomic.Bool
	cancel  context.CancelFunc
	workers sync.WaitGroup
}

func NewServer(config Config, k Kernel, tr Terrain, logger log.Log) *Server {
	defaults := DefaultConfig()
	if config.SessionBuffer <= 0 {
		config.SessionBuffer = defaults.SessionBuffer
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = defaults.MaxMessageSize
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if logger == nil {
		logger = log.NewNop()
	}

	s := &Server{
		config:  config,
		kernel:  k,
		terrain: tr,
		logger:  logger.With(log.String("component", "server")),
	}
	s.hub = newHub(s.logger)
	s.engine = s.routes()
	return s
}

// Handler exposes the routes without a listener.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start binds the listener and begins serving and pumping events. It returns
// once the listener is bound.
func (s *Server) Start(ctx context.Context) error {
	if s.closed.Load() {
		return ErrServerClosed
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrServerAlreadyRunning
	}

	ln, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("listen on %s: %w", s.config.Listen, err)
	}
	s.addr.Store(ln.Addr())
	s.http = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
	}

	pumpCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.workers.Add(2)
	go func() {
		defer s.workers.Done()
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server failed", log.Error(err))
		}
	}()
	go func() {
		defer s.workers.Done()
		s.pump(pumpCtx)
	}()

	s.logger.Info("server listening", log.String("addr", ln.Addr().String()))
	return nil
}

// Addr is the bound listener address, valid after Start.
func (s *Server) Addr() net.Addr {
	addr, _ := s.addr.Load().(net.Addr)
	return addr
}

func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return ErrServerNotRunning
	}
	s.closed.Store(true)
	s.logger.Info("stopping server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	err := s.http.Shutdown(shutdownCtx)
	s.cancel()
	s.hub.closeAll()
	s.workers.Wait()

	s.logger.Info("server stopped", log.Uint64("events_dropped", s.hub.dropped.Load()))
	if err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// pump is the single consumer of the kernel event queue. Events with no
// connected session are discarded.
func (s *Server) pump(ctx context.Context) {
	events := s.kernel.Events()
	for {
		ev, err := events.Recv(ctx)
		if err != nil {
			if errors.Is(err, errs.ErrChannelClosed) {
				s.logger.Info("event queue closed, pump exiting")
			}
			return
		}
		frame, err := message.EncodeEvent(ev)
		if err != nil {
			s.logger.Error("event encoding failed", log.String("kind", ev.Kind()), log.Error(err))
			continue
		}
		s.hub.broadcast(frame)
	}
}
