package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"servidor_ocr/internal/domain"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	feedEventBuffer  = 64
	clientSendBuffer = 16
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type feedClient struct {
	conn  *websocket.Conn
	send  chan []byte
	plate string // empty follows every reading
}

func (fc *feedClient) wants(event domain.PlateReadNotification) bool {
	return fc.plate == "" || fc.plate == event.Plate
}

// PlateFeed streams plate reading notifications to WebSocket clients.
// The client set is owned by the Run goroutine.
type PlateFeed struct {
	clients map[*feedClient]struct{}
	join    chan *feedClient
	leave   chan *feedClient
	events  chan domain.PlateReadNotification
	done    chan struct{}
	count   atomic.Int64
}

func NewPlateFeed() *PlateFeed {
	return &PlateFeed{
		clients: make(map[*feedClient]struct{}),
		join:    make(chan *feedClient),
		leave:   make(chan *feedClient),
		events:  make(chan domain.PlateReadNotification, feedEventBuffer),
		done:    make(chan struct{}),
	}
}

func (f *PlateFeed) Run(ctx context.Context) {
	defer func() {
		close(f.done)
		for fc := range f.clients {
			f.drop(fc)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case fc := <-f.join:
			f.clients[fc] = struct{}{}
			f.count.Store(int64(len(f.clients)))
			log.Printf("PlateFeed: client connected (plate filter %q). Total: %d", fc.plate, len(f.clients))

		case fc := <-f.leave:
			if _, ok := f.clients[fc]; ok {
				f.drop(fc)
				log.Printf("PlateFeed: client disconnected. Total: %d", len(f.clients))
			}

		case event := <-f.events:
			message, err := json.Marshal(event)
			if err != nil {
				log.Printf("PlateFeed: could not marshal reading %s: %v", event.ReadingID, err)
				continue
			}
			for fc := range f.clients {
				if !fc.wants(event) {
					continue
				}
				select {
				case fc.send <- message:
				default:
					log.Println("PlateFeed: client too slow, disconnecting")
					f.drop(fc)
				}
			}
		}
	}
}

func (f *PlateFeed) drop(fc *feedClient) {
	delete(f.clients, fc)
	close(fc.send)
	f.count.Store(int64(len(f.clients)))
}

// ClientCount returns the number of connected clients.
func (f *PlateFeed) ClientCount() int {
	return int(f.count.Load())
}

// BroadcastPlateRead queues an event without blocking; events are dropped
// when the feed is saturated or stopped.
func (f *PlateFeed) BroadcastPlateRead(event domain.PlateReadNotification) {
	select {
	case f.events <- event:
	case <-f.done:
	default:
		log.Printf("PlateFeed: event queue full, dropping reading %s", event.ReadingID)
	}
}

type WebSocketHandler struct {
	feed *PlateFeed
}

func NewWebSocketHandler(feed *PlateFeed) *WebSocketHandler {
	return &WebSocketHandler{feed: feed}
}

// GET /ws?plate=ABC1D23
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocketHandler: upgrade failed: %v", err)
		return
	}

	fc := &feedClient{
		conn:  conn,
		send:  make(chan []byte, clientSendBuffer),
		plate: strings.ToUpper(strings.TrimSpace(c.Query("plate"))),
	}
	select {
	case h.feed.join <- fc:
	case <-h.feed.done:
		conn.Close()
		return
	}

	go h.writePump(fc)
	go h.readPump(fc)
}

// readPump only watches for the disconnect and pong frames.
func (h *WebSocketHandler) readPump(fc *feedClient) {
	defer func() {
		select {
		case h.feed.leave <- fc:
		case <-h.feed.done:
		}
	}()

	fc.conn.SetReadLimit(512)
	fc.conn.SetReadDeadline(time.Now().Add(pongWait))
	fc.conn.SetPongHandler(func(string) error {
		return fc.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := fc.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocketHandler: read error: %v", err)
			}
			return
		}
	}
}

func (h *WebSocketHandler) writePump(fc *feedClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		fc.conn.Close()
	}()

	for {
		select {
		case message, ok := <-fc.send:
			fc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				fc.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := fc.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			fc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := fc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
