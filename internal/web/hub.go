package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/GuidoJeuken-6512/HAminiEMS/internal/view"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 64
)

// Hub streams dashboard patches to connected browsers. Every client gets
// the full snapshot on connect and then each patch as it is applied.
type Hub struct {
	doc      *view.Document
	logger   *logrus.Logger
	upgrader websocket.Upgrader

	clients    map[*client]bool
	broadcast  chan view.Patch
	register   chan *client
	unregister chan *client
	mutex      sync.RWMutex
	stopCh     chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func NewHub(doc *view.Document, logger *logrus.Logger) *Hub {
	return &Hub{
		doc:    doc,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients:    make(map[*client]bool),
		broadcast:  make(chan view.Patch, 16),
		register:   make(chan *client),
		unregister: make(chan *client),
		stopCh:     make(chan struct{}),
	}
}

func (h *Hub) Start() {
	h.wg.Add(2)
	go h.run()
	go h.subscribeLoop()
	h.logger.Info("WebSocket hub started")
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		h.wg.Wait()
		h.logger.Info("WebSocket hub stopped")
	})
}

func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) run() {
	defer h.wg.Done()

	for {
		select {
		case <-h.stopCh:
			h.mutex.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mutex.Unlock()
			return

		case c := <-h.register:
			h.mutex.Lock()
			h.clients[c] = true
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Debugf("WebSocket client connected (total: %d)", count)

		case c := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Debugf("WebSocket client disconnected (total: %d)", count)

		case p := <-h.broadcast:
			data, err := json.Marshal([]view.Patch{p})
			if err != nil {
				h.logger.Errorf("Failed to encode patch for %s: %v", p.ID, err)
				continue
			}

			h.mutex.RLock()
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					h.logger.Warn("WebSocket client buffer full, dropping patch")
				}
			}
			h.mutex.RUnlock()
		}
	}
}

func (h *Hub) subscribeLoop() {
	defer h.wg.Done()

	patches, unsubscribe := h.doc.Subscribe(32)
	defer unsubscribe()

	for {
		select {
		case <-h.stopCh:
			return
		case p, ok := <-patches:
			if !ok {
				return
			}
			select {
			case h.broadcast <- p:
			case <-h.stopCh:
				return
			}
		}
	}
}

// ServeWS upgrades the request and registers the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	snapshot, err := json.Marshal(h.doc.Patches())
	if err != nil {
		h.logger.Errorf("Failed to encode snapshot: %v", err)
		conn.Close()
		return
	}
	c.send <- snapshot

	select {
	case h.register <- c:
	case <-h.stopCh:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stopCh:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warnf("WebSocket read error: %v", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
