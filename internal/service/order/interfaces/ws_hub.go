// internal/service/order/interfaces/ws_hub.go
package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"stockflow/internal/pkg/logger"
	"stockflow/internal/service/order/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 演示用途放开跨域，生产要按来源白名单收紧
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub 维护所有在线的 websocket 连接，把消费到的库存变更实时广播出去。
// 纯推送：不读业务消息，客户端只收。
type Hub struct {
	clients    map[*wsClient]struct{}
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan []byte
	lock       sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*wsClient]struct{}),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan []byte, 64),
	}
}

// Run 作为 bootstrap.Runner 挂载，ctx 结束时关闭所有连接。
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.lock.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.lock.Unlock()
			return nil
		case client := <-h.register:
			h.lock.Lock()
			h.clients[client] = struct{}{}
			h.lock.Unlock()
		case client := <-h.unregister:
			h.lock.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.lock.Unlock()
		case message := <-h.broadcast:
			h.lock.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// 写不进去说明客户端太慢，丢这条消息保住 hub
				}
			}
			h.lock.RUnlock()
		}
	}
}

// BroadcastStockUpdate 实现 port.Broadcaster。
func (h *Hub) BroadcastStockUpdate(log *domain.StockLog) {
	payload, err := json.Marshal(map[string]interface{}{
		"event":    log.Event,
		"itemId":   log.ItemID,
		"quantity": log.Quantity,
		"loggedAt": log.CreatedAt,
	})
	if err != nil {
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		logger.Logger().Warn().Msg("stock update broadcast buffer full, dropping")
	}
}

// ServeWS 升级连接并挂到 hub 上。
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Logger().Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &wsClient{hub: h, conn: conn, send: make(chan []byte, 16)}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func (c *wsClient) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump 只为感知断连，收到的内容全部丢弃。
func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
