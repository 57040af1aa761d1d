package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cettopper/exam-portal/internal/config"
	"github.com/cettopper/exam-portal/internal/model"
	"github.com/cettopper/exam-portal/internal/response"
	ws "github.com/cettopper/exam-portal/internal/websocket"
)

const keepAliveInterval = 30 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
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

// WSHandler streams freshly scored results to admins.
type WSHandler struct {
	rdb      *redis.Client
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(rdb *redis.Client, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		rdb:      rdb,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// ResultsStream godoc
// WS /ws/v1/admin/results/stream?token=...&test_id=...
// Forwards every scored attempt, optionally only those of one test.
func (h *WSHandler) ResultsStream(c *gin.Context) {
	var filter uuid.UUID
	if raw := c.Query("test_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		filter = id
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := h.rdb.Subscribe(ctx, config.CacheKey.ResultsChannel())
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		h.log.Error().Err(err).Msg("Results subscribe failed")
		ws.WriteError(conn, "stream unavailable")
		return
	}

	ready := ws.ReadyMessage{Event: ws.EventReady}
	if filter != uuid.Nil {
		ready.Filter = filter.String()
	}
	if err := ws.WriteTyped(conn, ready); err != nil {
		return
	}

	h.log.Info().Str("filter", ready.Filter).Msg("Admin results stream opened")

	pings := make(chan struct{}, 1)
	go h.readLoop(conn, cancel, pings)

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			h.log.Debug().Msg("Admin results stream closed")
			return
		case <-pings:
			if err := ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong}); err != nil {
				return
			}
		case <-keepAlive.C:
			if err := ws.WritePing(conn); err != nil {
				return
			}
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var ev model.ResultEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				h.log.Warn().Err(err).Msg("Dropping undecodable result event")
				continue
			}
			if filter != uuid.Nil && ev.TestID != filter {
				continue
			}
			if err := ws.WriteTyped(conn, ws.ResultMessage{Event: ws.EventResult, Result: ev}); err != nil {
				return
			}
		}
	}
}

// readLoop is the only reader on conn. It answers pings through the writer
// loop and cancels the stream when the client goes away.
func (h *WSHandler) readLoop(conn *websocket.Conn, cancel context.CancelFunc, pings chan<- struct{}) {
	defer cancel()

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(ws.ReadWait))
	})

	for {
		var env ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn().Err(err).Msg("Unexpected close")
			}
			return
		}
		if env.Action == ws.ActionPing {
			select {
			case pings <- struct{}{}:
			default:
			}
		}
	}
}
