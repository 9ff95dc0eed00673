package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"controlling_shade/internal/notify"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMsgSize       = 1 << 12 // 4 KB
	defaultInterval  = 1 * time.Second
	maxInterval      = 10 * time.Second
	maxIntervalMilli = 10_000

	// notifications beyond this backlog are dropped for a slow client
	notifyBacklog = 64
	commandWait   = 5 * time.Second
)

// wsEnvelope is every server to client frame. Type is "state",
// "notification", "result" or "error".
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// wsRequest is a client frame. Command names a shade command (homing, open,
// close, stop, apply_offset); Property with Value writes a setting.
type wsRequest struct {
	ID       string   `json:"id,omitempty"`
	Command  string   `json:"command,omitempty"`
	Property string   `json:"property,omitempty"`
	Value    string   `json:"value,omitempty"`
	Position *float64 `json:"position,omitempty"`
}

type wsResult struct {
	ID     string `json:"id,omitempty"`
	Status string `json:"status"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origins once the panel is served from this host
}

func (h *Handler) wsConnect(c *gin.Context) {
	interval := h.parseInterval(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx := c.Request.Context()

	// Published on the control goroutine; never block it.
	notes := make(chan notify.Notification, notifyBacklog)
	sub := h.services.Monitoring.Subscribe("ws-"+uuid.NewString(), func(n notify.Notification) {
		select {
		case notes <- n:
		default:
		}
	})
	defer sub.Close()

	replies := make(chan wsEnvelope, 8)
	done := make(chan struct{})
	go h.startReader(ctx, conn, replies, done)

	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	if err := h.sendState(ctx, conn); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "err", err)
		}
		return
	}

	for {
		var werr error
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			werr = conn.WriteMessage(websocket.PingMessage, nil)
		case n := <-notes:
			werr = h.write(conn, wsEnvelope{Type: "notification", Data: n})
		case env := <-replies:
			werr = h.write(conn, env)
		case <-ticker.C:
			werr = h.sendState(ctx, conn)
		}
		if werr != nil {
			if h.log != nil {
				h.log.Infow("ws_write_failed", "err", werr)
			}
			return
		}
	}
}

// parseInterval reads ?interval=2s or ?interval_ms=2000 with bounds.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxInterval {
			return d
		}
	}
	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 && v <= maxIntervalMilli {
			return time.Duration(v) * time.Millisecond
		}
	}
	return defaultInterval
}

// startReader runs client requests and detects closure. Replies go back
// through out so only the writer loop touches the connection.
func (h *Handler) startReader(ctx context.Context, conn *websocket.Conn, out chan<- wsEnvelope, done chan<- struct{}) {
	defer close(done)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
		env := h.handleRequest(ctx, msg)
		select {
		case out <- env:
		case <-ctx.Done():
			return
		}
	}
}

func (h *Handler) handleRequest(ctx context.Context, msg []byte) wsEnvelope {
	var req wsRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		return wsEnvelope{Type: "error", Error: errInvalidBody + err.Error()}
	}
	ctx, cancel := context.WithTimeout(ctx, commandWait)
	defer cancel()

	var err error
	switch {
	case req.Property != "":
		err = h.services.Properties.SetProperty(ctx, req.Property, req.Value)
	case req.Command == "homing":
		err = h.services.Shade.Homing(ctx)
	case req.Command == "open":
		err = h.services.Shade.Open(ctx)
	case req.Command == "close":
		err = h.services.Shade.Close(ctx)
	case req.Command == "stop":
		err = h.services.Shade.Stop(ctx)
	case req.Command == "apply_offset":
		err = h.services.Shade.ApplyOffset(ctx)
	case req.Command == "move" && req.Position != nil:
		err = h.services.Shade.MoveTo(ctx, *req.Position)
	default:
		return wsEnvelope{Type: "error", Data: wsResult{ID: req.ID, Status: "rejected"}, Error: "unknown request"}
	}
	if err != nil {
		return wsEnvelope{Type: "error", Data: wsResult{ID: req.ID, Status: "rejected"}, Error: err.Error()}
	}
	return wsEnvelope{Type: "result", Data: wsResult{ID: req.ID, Status: statusOK}}
}

// sendState fetches and writes the current state with a write deadline.
func (h *Handler) sendState(ctx context.Context, conn *websocket.Conn) error {
	st, err := h.services.Monitoring.GetState(ctx)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_get_state_failed", "err", err)
		}
		return err
	}
	return h.write(conn, wsEnvelope{Type: "state", Data: st})
}

func (h *Handler) write(conn *websocket.Conn, env wsEnvelope) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(env)
}
