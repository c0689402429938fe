package handler

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"support_chat/internal/config"
	"support_chat/internal/delivery"
	"support_chat/internal/domain"
	"support_chat/internal/middleware"
	"support_chat/internal/service"
	"support_chat/pkg/logger"
)

const (
	maxClientFrameSize = 4096
	replyBufferSize    = 8
)

// ClientFrame - команда клиента: подписка на комнату или отписка
type ClientFrame struct {
	Action string    `json:"action"`
	RoomID uuid.UUID `json:"room_id"`
}

// ServerReply - ответ на команду клиента
type ServerReply struct {
	Type   string    `json:"type"`
	Action string    `json:"action,omitempty"`
	RoomID uuid.UUID `json:"room_id,omitempty"`
	Error  string    `json:"error,omitempty"`
}

type WebSocketHandler struct {
	hub         *delivery.Hub
	chatService service.ChatService
	upgrader    websocket.Upgrader
	writeWait   time.Duration
	pongWait    time.Duration
	log         logger.Logger
}

func NewWebSocketHandler(hub *delivery.Hub, chatService service.ChatService, cfg *config.Config, log logger.Logger) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:         hub,
		chatService: chatService,
		writeWait:   cfg.Delivery.WriteWait,
		pongWait:    cfg.Delivery.PongWait,
		log:         log,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.Server.AllowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set[origin]; ok {
			return true
		}
		// Тот же хост, что и у запроса
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}

// Handle подключает клиента к хабу. Пользователь подписывается на свой топик и системные
// объявления, администратор еще и на очередь ожидания. Комнаты добавляются командами клиента.
func (h *WebSocketHandler) Handle(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		fail(c, err)
		return
	}
	role := middleware.UserRole(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("Failed to upgrade connection", "error", err, "user_id", userID)
		return
	}

	sub := h.hub.Register(userID.String())
	h.hub.Subscribe(sub, delivery.UserTopic(userID))
	h.hub.Subscribe(sub, delivery.TopicSystem)
	if role == domain.RoleAdmin {
		h.hub.Subscribe(sub, delivery.TopicAdmin)
	}

	h.log.Info("WebSocket connected", "user_id", userID, "role", string(role))

	replies := make(chan []byte, replyBufferSize)
	done := make(chan struct{})

	go h.writePump(conn, sub, replies, done)
	h.readPump(c, conn, sub, userID, replies)

	h.hub.Unregister(sub)
	<-done
	h.log.Info("WebSocket disconnected", "user_id", userID, "dropped", sub.Dropped())
}

func (h *WebSocketHandler) readPump(c *gin.Context, conn *websocket.Conn, sub *delivery.Subscriber, userID uuid.UUID, replies chan<- []byte) {
	conn.SetReadLimit(maxClientFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("WebSocket read failed", "error", err, "user_id", userID)
			}
			return
		}

		reply := h.handleFrame(c, sub, userID, data)
		payload, err := json.Marshal(reply)
		if err != nil {
			continue
		}
		select {
		case replies <- payload:
		default:
			// Клиент не читает ответы - ответ теряется так же, как события
		}
	}
}

func (h *WebSocketHandler) handleFrame(c *gin.Context, sub *delivery.Subscriber, userID uuid.UUID, data []byte) ServerReply {
	var frame ClientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return ServerReply{Type: "error", Error: "invalid frame"}
	}

	switch frame.Action {
	case "subscribe":
		denied := ServerReply{Type: "error", Action: frame.Action, RoomID: frame.RoomID, Error: "access denied"}
		if !h.chatService.HasAccess(c.Request.Context(), frame.RoomID, userID) {
			return denied
		}
		// Переназначение могло зафиксироваться между проверкой и Subscribe
		topic := delivery.RoomTopic(frame.RoomID)
		h.hub.Subscribe(sub, topic)
		if !h.chatService.HasAccess(c.Request.Context(), frame.RoomID, userID) {
			h.hub.Unsubscribe(sub, topic)
			return denied
		}
	case "unsubscribe":
		h.hub.Unsubscribe(sub, delivery.RoomTopic(frame.RoomID))
	case "ping":
		return ServerReply{Type: "pong"}
	default:
		return ServerReply{Type: "error", Action: frame.Action, Error: "unknown action"}
	}
	return ServerReply{Type: "ack", Action: frame.Action, RoomID: frame.RoomID}
}

// writePump - единственный писатель в соединение
func (h *WebSocketHandler) writePump(conn *websocket.Conn, sub *delivery.Subscriber, replies <-chan []byte, done chan<- struct{}) {
	ticker := time.NewTicker(h.pongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		conn.Close()
		close(done)
	}()

	write := func(messageType int, data []byte) error {
		_ = conn.SetWriteDeadline(time.Now().Add(h.writeWait))
		return conn.WriteMessage(messageType, data)
	}

	for {
		select {
		case data, ok := <-sub.Send():
			if !ok {
				_ = write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := write(websocket.TextMessage, data); err != nil {
				h.hub.Unregister(sub)
				return
			}
		case data := <-replies:
			if err := write(websocket.TextMessage, data); err != nil {
				h.hub.Unregister(sub)
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				h.hub.Unregister(sub)
				return
			}
		}
	}
}
