package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"nhooyr.io/websocket"

	"github.com/JustinTDCT/CineLog/internal/catalog"
	"github.com/JustinTDCT/CineLog/internal/debounce"
	"github.com/JustinTDCT/CineLog/internal/models"
)

const EventSearchResults = "search:results"

// ──────────────────── WebSocket Hub ────────────────────

// WSHub fans collection events out to every connected client. It satisfies
// collection.Notifier and jobs.EventNotifier.
type WSHub struct {
	mu      sync.RWMutex
	clients map[*WSClient]bool
}

type WSClient struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
	send   chan []byte
}

type WSMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// wsRequest is what clients send; only "search" is understood.
type wsRequest struct {
	Type  string `json:"type"`
	Query string `json:"query"`
}

type searchResults struct {
	Query   string                `json:"query"`
	Results []models.CatalogEntry `json:"results"`
	Total   int                   `json:"total"`
}

func NewWSHub() *WSHub {
	return &WSHub{clients: make(map[*WSClient]bool)}
}

func (h *WSHub) Broadcast(event string, data interface{}) {
	msg, err := json.Marshal(WSMessage{Event: event, Data: data})
	if err != nil {
		log.Printf("[ws] marshal %s: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		client.deliver(msg)
	}
}

func (h *WSHub) addClient(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *WSHub) removeClient(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		c.close()
		delete(h.clients, c)
	}
}

func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// deliver drops the message when the client is slow or gone.
func (c *WSClient) deliver(msg []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (c *WSClient) sendEvent(event string, data interface{}) {
	msg, err := json.Marshal(WSMessage{Event: event, Data: data})
	if err != nil {
		return
	}
	c.deliver(msg)
}

func (c *WSClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ──────────────────── WebSocket Handler ────────────────────

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("[ws] accept error: %v", err)
		return
	}

	client := &WSClient{
		conn: conn,
		send: make(chan []byte, 64),
	}
	live := catalog.NewLiveSearch(s.catalog, debounce.New(s.config.SearchDebounce, debounce.System),
		func(query string, results []models.CatalogEntry) {
			if results == nil {
				results = []models.CatalogEntry{}
			}
			client.sendEvent(EventSearchResults, searchResults{Query: query, Results: results, Total: len(results)})
		})

	s.wsHub.addClient(client)
	log.Printf("[ws] client connected (%d total)", s.wsHub.ClientCount())

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Writer goroutine
	go func() {
		defer conn.Close(websocket.StatusNormalClosure, "")
		for msg := range client.send {
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			break
		}
		var req wsRequest
		if err := json.Unmarshal(data, &req); err != nil {
			continue
		}
		if req.Type == "search" {
			live.Input(req.Query)
		}
	}

	live.Close()
	s.wsHub.removeClient(client)
	log.Printf("[ws] client disconnected (%d total)", s.wsHub.ClientCount())
}
