package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	models "DemandCast/internal/domain/models"
	domsvc "DemandCast/internal/domain/service"
	xhttp "DemandCast/pkg/http"
	xlogger "DemandCast/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	wsReadTimeout  = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

func newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
}

// streamConn serialises writes from concurrent progress callbacks.
type streamConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *streamConn) send(msg models.StreamMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return s.conn.WriteJSON(msg)
}

func (s *streamConn) close(code int, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
	_ = s.conn.Close()
}

// Stream runs one forecast over a websocket. The client sends a
// ForecastConfig as its first message and receives a progress frame per
// finished combination, then a result or error frame.
func (h *ForecastEchoHandler) Stream(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	done := h.metrics.StreamOpened()
	defer done()
	conn := &streamConn{conn: ws}

	_ = ws.SetReadDeadline(time.Now().Add(wsReadTimeout))
	_, raw, err := ws.ReadMessage()
	if err != nil {
		conn.close(websocket.CloseNormalClosure, "")
		return nil
	}

	cfg := &models.ForecastConfig{}
	if err := json.Unmarshal(raw, cfg); err != nil {
		_ = conn.send(models.StreamMessage{Type: "error", Error: xhttp.BadRequestError("Invalid forecast configuration")})
		conn.close(websocket.CloseUnsupportedData, "invalid json")
		return nil
	}
	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	if verr := xhttp.ValidateRequest(ctx, cfg); verr != nil {
		_ = conn.send(models.StreamMessage{Type: "error", Error: verr})
		conn.close(websocket.ClosePolicyViolation, "invalid config")
		return nil
	}

	// The client only ever closes from here on.
	_ = ws.SetReadDeadline(time.Time{})
	go func() {
		for {
			if _, _, err := ws.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	obs := domsvc.ProgressFunc(func(ev models.ProgressEvent) {
		if err := conn.send(models.StreamMessage{Type: "progress", Progress: &ev}); err != nil {
			cancel()
		}
	})
	start := time.Now()
	out, err := h.svc.ForecastWithProgress(ctx, *cfg, obs)
	h.metrics.Observe("forecast_stream", start)
	if err != nil {
		h.metrics.Error("forecast_stream", errorKind(err))
		var frame interface{} = xhttp.InternalError("Something went wrong")
		if appErr := toAppError(err); appErr != nil {
			frame = appErr
		} else {
			h.logger.Error("stream forecast failed", xlogger.Error(err))
		}
		_ = conn.send(models.StreamMessage{Type: "error", Error: frame})
		conn.close(websocket.CloseNormalClosure, "")
		return nil
	}

	if err := conn.send(models.StreamMessage{Type: "result", Result: out.Payload()}); err != nil {
		h.logger.Warn("stream result not delivered", xlogger.Error(err))
	}
	conn.close(websocket.CloseNormalClosure, "")
	return nil
}
