package http

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"parkwatch-service/internal/config"
	"parkwatch-service/internal/domain/parking"
	"parkwatch-service/internal/metrics"
	"parkwatch-service/internal/service"
	"parkwatch-service/internal/ws"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Handler struct {
	alertService *service.AlertService
	config       *config.Config
	hub          *ws.Hub
	metrics      *metrics.Metrics
	log          zerolog.Logger
}

func NewHandler(
	alertService *service.AlertService,
	cfg *config.Config,
	hub *ws.Hub,
	m *metrics.Metrics,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		alertService: alertService,
		config:       cfg,
		hub:          hub,
		metrics:      m,
		log:          log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	r.GET("/healthz", h.healthz)
	r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	r.GET("/ws", h.serveWebSocket)

	// Public endpoints
	public := r.Group("/api/v1")
	{
		public.GET("/videos", h.listVideos)
		public.GET("/video/:name", h.serveVideo)
		public.GET("/violations", h.listViolations)
		public.POST("/violations", h.createViolation)
	}

	// Operator endpoints
	protected := r.Group("/api/v1")
	protected.Use(authMiddleware)
	{
		protected.POST("/reset-alerts", h.resetAlerts)
	}
}

func (h *Handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) listVideos(c *gin.Context) {
	feeds := h.config.Videos.Feeds
	c.JSON(http.StatusOK, gin.H{
		"videos": feeds,
		"total":  len(feeds),
	})
}

func (h *Handler) serveVideo(c *gin.Context) {
	name := c.Param("name")
	rel, ok := h.config.Videos.Feeds[name]
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse("video not found"))
		return
	}
	c.File(filepath.Join(h.config.Videos.Dir, filepath.Base(rel)))
}

func (h *Handler) listViolations(c *gin.Context) {
	query := parking.AlertQuery{
		Filter: parking.TimeFilter(strings.TrimSpace(c.Query("filter"))),
		Sort:   parking.SortOrder(strings.TrimSpace(c.Query("sort"))),
	}
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			query.Limit = parsed
		}
	}

	records, err := h.alertService.List(c.Request.Context(), query)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if records == nil {
		records = []parking.AlertRecord{}
	}

	c.JSON(http.StatusOK, successResponse(records))
}

func (h *Handler) createViolation(c *gin.Context) {
	var candidate parking.AlertCandidate
	if err := c.ShouldBindJSON(&candidate); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	record, err := h.alertService.Append(c.Request.Context(), candidate)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.hub.BroadcastViolation(*record)
	c.JSON(http.StatusCreated, successResponse(record))
}

func (h *Handler) resetAlerts(c *gin.Context) {
	removed, err := h.alertService.ResetAll(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.hub.BroadcastReset()
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (h *Handler) serveWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	h.hub.Register(conn)

	// Drain client messages; the hub owns writes.
	go func() {
		defer h.hub.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}
