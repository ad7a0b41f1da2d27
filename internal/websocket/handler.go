package websocket

import (
	"context"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/wfunc/serial-console/internal/middleware"
	"github.com/wfunc/serial-console/internal/models"
	"github.com/wfunc/serial-console/internal/service"
	"go.uber.org/zap"
)

// Handler 升级HTTP连接并挂到Hub上
type Handler struct {
	hub      *Hub
	invoker  *Invoker
	upgrader websocket.Upgrader
}

// NewHandler 创建WebSocket处理器
//
// allowedOrigins 之外的跨站页面无法完成握手。
func NewHandler(hub *Hub, serial service.SerialService, allowedOrigins []string) *Handler {
	h := &Handler{
		hub:     hub,
		invoker: NewInvoker(serial),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  hub.cfg.ReadBufferSize,
		WriteBufferSize: hub.cfg.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			if middleware.OriginAllowed(r, allowedOrigins) {
				return true
			}
			h.hub.log.Warn("拒绝跨站WebSocket连接", zap.String("origin", r.Header.Get("Origin")))
			return false
		},
	}
	return h
}

// ServeHTTP 实现http.Handler，读循环在当前goroutine中运行
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.log.Warn("WebSocket升级失败", zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn, r.RemoteAddr)
	if err := h.hub.Register(client); err != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = service.WithCaller(ctx, service.Caller{
		Source:    models.SourceWebSocket,
		RequestID: client.ID,
		ClientIP:  remoteIP(r),
	})

	go client.WritePump()
	client.ReadPump(ctx, h.invoker)
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
