package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zeusync/hexkernel/internal/core/errs"
	"github.com/zeusync/hexkernel/internal/core/message"
	"github.com/zeusync/hexkernel/internal/core/observability/log"
	"github.com/zeusync/hexkernel/internal/core/storage"
	"github.com/zeusync/hexkernel/internal/core/terrain"
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.handleHealth)

	auth := TokenAuth(s.config.AuthToken)
	v1 := r.Group("/v1", auth)
	v1.POST("/requests", s.handleRequest)
	v1.POST("/terrain/preload", s.handlePreload)
	v1.POST("/terrain/tiles", s.handleTiles)

	r.GET("/ws", auth, s.handleWebSocket)
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			log.String("method", c.Request.Method),
			log.String("path", c.FullPath()),
			log.Int("status", c.Writer.Status()),
			log.Duration("latency", time.Since(start)))
	}
}

type healthResponse struct {
	Status   string              `json:"status"`
	Sessions int                 `json:"sessions"`
	Dropped  uint64              `json:"events_dropped"`
	Terrain  *terrain.Stats      `json:"terrain,omitempty"`
	Store    *storage.Statistics `json:"store,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	resp := healthResponse{
		Status:   "ok",
		Sessions: s.hub.len(),
		Dropped:  s.hub.dropped.Load(),
	}
	if s.terrain != nil {
		st := s.terrain.Stats()
		resp.Terrain = &st
	}
	if st, ok := s.kernel.StoreStats(c.Request.Context()); ok {
		resp.Store = &st
	}

	code := http.StatusOK
	if !s.kernel.Running() {
		resp.Status = "stopped"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}

func (s *Server) handleRequest(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, s.config.MaxMessageSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if int64(len(body)) > s.config.MaxMessageSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request too large"})
		return
	}

	req, err := message.DecodeRequest(body)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	if err := s.kernel.Submit(req); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"kind": req.Kind()})
}

type preloadRequest struct {
	Min terrain.ChunkCoord `json:"min"`
	Max terrain.ChunkCoord `json:"max"`
}

// handlePreload warms an inclusive rectangle of chunks. The rectangle may not
// exceed the hot capacity, since later chunks would evict earlier ones.
func (s *Server) handlePreload(c *gin.Context) {
	if s.terrain == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "terrain unavailable"})
		return
	}
	var req preloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Min.InBounds() || !req.Max.InBounds() || req.Min.X > req.Max.X || req.Min.Y > req.Max.Y {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid chunk rectangle %s..%s", req.Min, req.Max)})
		return
	}
	area := (req.Max.X - req.Min.X + 1) * (req.Max.Y - req.Min.Y + 1)
	if capacity := s.terrain.Stats().Capacity; area > capacity {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%d chunks exceed hot capacity %d", area, capacity)})
		return
	}

	loaded := 0
	for y := req.Min.Y; y <= req.Max.Y; y++ {
		for x := req.Min.X; x <= req.Max.X; x++ {
			if err := s.terrain.Preload(c.Request.Context(), terrain.ChunkCoord{X: x, Y: y}); err != nil {
				s.logger.Warn("terrain preload failed", log.Int("x", x), log.Int("y", y), log.Error(err))
				c.JSON(statusFor(err), gin.H{"error": err.Error(), "loaded": loaded})
				return
			}
			loaded++
		}
	}
	c.JSON(http.StatusOK, gin.H{"loaded": loaded})
}

// maxTileBatch bounds one tile write request.
const maxTileBatch = 4096

type tileWrite struct {
	Q       *int          `json:"q" binding:"required"`
	R       *int          `json:"r" binding:"required"`
	Terrain *terrain.Type `json:"terrain" binding:"required"`
}

type tilesRequest struct {
	Tiles []tileWrite `json:"tiles" binding:"required,min=1,dive"`
}

// handleTiles writes a batch of tiles in order. Writes before a failing tile
// stay applied; the response reports how many landed.
func (s *Server) handleTiles(c *gin.Context) {
	if s.terrain == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "terrain unavailable"})
		return
	}
	var req tilesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Tiles) > maxTileBatch {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%d tiles exceed batch limit %d", len(req.Tiles), maxTileBatch)})
		return
	}

	written := 0
	for _, t := range req.Tiles {
		if err := s.terrain.Set(c.Request.Context(), *t.Q, *t.R, *t.Terrain); err != nil {
			s.logger.Warn("terrain write failed", log.Int("q", *t.Q), log.Int("r", *t.R), log.Error(err))
			c.JSON(statusFor(err), gin.H{"error": err.Error(), "written": written})
			return
		}
		written++
	}
	c.JSON(http.StatusOK, gin.H{"written": written})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidation), errors.Is(err, errs.ErrSerialization):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrChannelClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrResourceExhausted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
