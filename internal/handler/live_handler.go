package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/council-portal-api/internal/models"
	"github.com/noah-isme/council-portal-api/internal/service"
	appErrors "github.com/noah-isme/council-portal-api/pkg/errors"
	"github.com/noah-isme/council-portal-api/pkg/realtime"
	"github.com/noah-isme/council-portal-api/pkg/response"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = (livePongWait * 9) / 10
	liveMaxMessage = 512
)

type changeFeed interface {
	Subscribe(table string) (<-chan realtime.Change, func())
}

// LiveHandler streams content changes to browsers over websocket.
type LiveHandler struct {
	feed     changeFeed
	metrics  *service.MetricsService
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewLiveHandler constructs the handler. allowedOrigins follows the CORS list; "*" accepts any origin.
func NewLiveHandler(feed changeFeed, metrics *service.MetricsService, allowedOrigins []string, logger *zap.Logger) *LiveHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := make(map[string]struct{}, len(allowedOrigins))
	anyOrigin := len(allowedOrigins) == 0
	for _, origin := range allowedOrigins {
		if origin == "*" {
			anyOrigin = true
		}
		origins[strings.TrimRight(origin, "/")] = struct{}{}
	}
	return &LiveHandler{
		feed:    feed,
		metrics: metrics,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if anyOrigin || origin == "" {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
	}
}

// Stream godoc
// @Summary Live change feed
// @Description Upgrades to a websocket that emits one JSON message per row change
// @Tags Portal
// @Param table query string false "notices, events, or members (all when empty)"
// @Success 101
// @Failure 400 {object} response.Envelope
// @Router /live [get]
func (h *LiveHandler) Stream(c *gin.Context) {
	table := strings.TrimSpace(c.Query("table"))
	if table != "" {
		if _, ok := models.ParseContentTable(table); !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "table must be notices, events, or members"))
			return
		}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	changes, cancel := h.feed.Subscribe(table)
	h.metrics.LiveSubscribers(1)
	defer func() {
		cancel()
		h.metrics.LiveSubscribers(-1)
		_ = conn.Close()
	}()

	closed := make(chan struct{})
	go h.readPump(conn, closed)
	h.writePump(conn, changes, closed)
}

// readPump drains client frames so pongs and close frames are processed.
func (h *LiveHandler) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(liveMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("live connection closed", zap.Error(err))
			}
			return
		}
	}
}

func (h *LiveHandler) writePump(conn *websocket.Conn, changes <-chan realtime.Change, closed <-chan struct{}) {
	ticker := time.NewTicker(livePingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case change, ok := <-changes:
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return
			}
			if err := conn.WriteJSON(change); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
