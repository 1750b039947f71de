package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/certivox/certivox-backend/internal/config"
	"github.com/certivox/certivox-backend/internal/response"
	"github.com/certivox/certivox-backend/internal/service"
	ws "github.com/certivox/certivox-backend/internal/websocket"
)

const monitorPingInterval = 30 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowlist permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// MonitorHandler streams live certification progress to admins over WebSocket.
// Events published on the module's Redis channel are forwarded as-is.
type MonitorHandler struct {
	rdb           *redis.Client
	moduleService *service.ModuleService
	log           zerolog.Logger
	upgrader      websocket.Upgrader
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(rdb *redis.Client, moduleService *service.ModuleService, log zerolog.Logger, allowedOrigins []string) *MonitorHandler {
	return &MonitorHandler{
		rdb:           rdb,
		moduleService: moduleService,
		log:           log.With().Str("component", "monitor_handler").Logger(),
		upgrader:      buildUpgrader(allowedOrigins),
	}
}

// MonitorModule godoc
// WS /ws/monitor/:module_id?token=...
// Upgrades to WebSocket and forwards live certification events for a module.
func (h *MonitorHandler) MonitorModule(c *gin.Context) {
	moduleID, err := uuid.Parse(c.Param("module_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	module, _, _, err := h.moduleService.GetModule(c.Request.Context(), moduleID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("module_id", moduleID.String()).Logger()
	wsLog.Info().Msg("Admin attached to live monitor")

	if err := ws.WriteTyped(conn, ws.SnapshotMessage{
		Event:    ws.EventSnapshot,
		ModuleID: moduleID.String(),
		Sessions: gin.H{"module_title": module.Title},
	}); err != nil {
		return
	}

	reqCtx := c.Request.Context()
	pubsub := h.rdb.Subscribe(reqCtx, config.CacheKey.CertMonitorChannel(moduleID.String()))
	defer pubsub.Close()

	h.pump(reqCtx, conn, pubsub.Channel(), wsLog)
}

// pump forwards progress events to the admin until either side disconnects.
// The reader goroutine never writes to the connection; gorilla permits at most
// one concurrent writer, so client requests are relayed through a channel and
// answered from the select loop alongside progress events and protocol pings.
func (h *MonitorHandler) pump(ctx context.Context, conn *websocket.Conn, ch <-chan *redis.Message, log zerolog.Logger) {
	done := make(chan struct{})
	requests := make(chan ws.Action, 4)
	go func() {
		defer close(done)
		for {
			var req ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &req); err != nil {
				return
			}
			select {
			case requests <- req.Action:
			default:
				// Client is flooding; drop the request.
			}
		}
	}()

	pingTicker := time.NewTicker(monitorPingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Admin disconnected from live monitor")
			return

		case <-done:
			log.Debug().Msg("Monitor connection closed by client")
			return

		case action := <-requests:
			var err error
			if action == ws.ActionPing {
				err = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
			} else {
				err = ws.WriteError(conn, "unknown action")
			}
			if err != nil {
				return
			}

		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := ws.WriteTyped(conn, ws.ProgressMessage{
				Event:   ws.EventProgress,
				Payload: []byte(msg.Payload),
			}); err != nil {
				log.Warn().Err(err).Msg("Failed to forward monitor event")
				return
			}

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
