package handler

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/automentor/backend/internal/infrastructure/config"
	"github.com/automentor/backend/internal/infrastructure/log"
	appWS "github.com/automentor/backend/internal/infrastructure/websocket"
)

const (
	// wsWriteTimeout 单条消息的写超时
	wsWriteTimeout = 10 * time.Second
	// wsPingInterval 服务端心跳间隔
	wsPingInterval = 30 * time.Second
)

// WSHandler WebSocket 事件流处理器
// 客户端连接后收到摄取进度和助手状态变更的 JSON 通知
type WSHandler struct {
	hub      *appWS.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWSHandler 创建 WebSocket 处理器
func NewWSHandler(cfg *config.Config, hub *appWS.Hub) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
			WriteBufferSize: cfg.WebSocket.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true // 本机/局域网服务，允许所有来源
			},
		},
		logger: log.NewModuleLogger("websocket", "handler"),
	}
}

// Serve 升级连接并订阅事件广播
// @Summary 事件流
// @Description 升级为 WebSocket，推送 ingest.*/assistant.* 事件通知
// @Tags 系统
// @Router /ws [get]
func (h *WSHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", "error", err)
		return
	}

	client := appWS.NewConnection()
	h.hub.Register(client)

	go h.writeLoop(conn, client)
	go h.readLoop(conn, client)
}

// writeLoop 把 Hub 广播的消息写给客户端
// Send 通道被 Hub 关闭或写失败时结束
func (h *WSHandler) writeLoop(conn *websocket.Conn, client *appWS.Connection) {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case data, ok := <-client.Send:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(wsWriteTimeout))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}

// readLoop 消费客户端消息以探测断开
// 事件流是单向的，收到的内容被丢弃
func (h *WSHandler) readLoop(conn *websocket.Conn, client *appWS.Connection) {
	defer func() {
		h.hub.Unregister(client)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
