package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/speaking-backend/internal/config"
	"github.com/stemsi/speaking-backend/internal/repository"
	"github.com/stemsi/speaking-backend/internal/response"
	"github.com/stemsi/speaking-backend/internal/service"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // prevent slow queries from blocking the SSE loop
)

type MonitorHandler struct {
	rdb            *redis.Client
	monitorService *service.MonitorService
	log            zerolog.Logger
}

func NewMonitorHandler(rdb *redis.Client, monitorService *service.MonitorService, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		rdb:            rdb,
		monitorService: monitorService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// ListLive godoc
// GET /api/v1/admin/monitor/live
// Returns the attempts currently running on any instance.
func (h *MonitorHandler) ListLive(c *gin.Context) {
	live, err := h.monitorService.ListLive(c.Request.Context())
	if err != nil {
		failWith(c, err)
		return
	}
	if live == nil {
		live = []repository.LiveAttempt{}
	}
	response.Success(c, http.StatusOK, gin.H{"attempts": live})
}

// MonitorSSE godoc
// GET /api/v1/admin/monitor/stream
// Streams a snapshot of live attempts, then every phase, upload and end
// event published by exam sessions.
func (h *MonitorHandler) MonitorSSE(c *gin.Context) {
	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	// Subscribe before the snapshot so no event falls in between.
	pubsub := h.rdb.Subscribe(reqCtx, config.CacheKey.ExamMonitorChannel())
	defer pubsub.Close()
	ch := pubsub.Channel()

	h.sendLive(c, reqCtx, "snapshot")

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	h.log.Info().Msg("Admin attached to live monitor SSE")

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Msg("Admin disconnected from live monitor SSE")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Events are already JSON; forward as-is.
			writeSSE(c, []byte(msg.Payload))

		case <-refreshTicker.C:
			h.sendLive(c, reqCtx, "refresh")

		case <-keepAliveTicker.C:
			writeSSE(c, pingPayload)
		}
	}
}

// sendLive writes the current live attempt list as a typed SSE event.
func (h *MonitorHandler) sendLive(c *gin.Context, parentCtx context.Context, kind string) {
	ctx, cancel := context.WithTimeout(parentCtx, refreshTimeout)
	defer cancel()

	live, err := h.monitorService.ListLive(ctx)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to fetch live attempts for monitor")
		return
	}
	if live == nil {
		live = []repository.LiveAttempt{}
	}

	payload, err := json.Marshal(map[string]interface{}{
		"type":     kind,
		"attempts": live,
	})
	if err != nil {
		return
	}
	writeSSE(c, payload)
}

func writeSSE(c *gin.Context, payload []byte) {
	c.Writer.Write([]byte("data: "))
	c.Writer.Write(payload)
	c.Writer.Write([]byte("\n\n"))
	c.Writer.Flush()
}
