package stream

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"minibot.dev/countdown/state"
)

const wsPushInterval = time.Second

// Hub pushes countdown snapshots to websocket clients once a second. A
// client that cannot keep up is dropped instead of buffering.
type Hub struct {
	store    *state.Store
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*wsClient
}

type wsClient struct {
	conn *websocket.Conn
	// writeMu serializes writes; gorilla allows one concurrent writer.
	writeMu sync.Mutex
}

func NewHub(store *state.Store, log zerolog.Logger) *Hub {
	return &Hub{
		store: store,
		log:   log.With().Str("component", "ws").Logger(),
		upgrader: websocket.Upgrader{
			// The UI is served on a LAN; origins vary by hostname.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*wsClient),
	}
}

func (h *Hub) Handle(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	id := uuid.NewString()[:8]
	client := &wsClient{conn: conn}
	h.mu.Lock()
	h.clients[id] = client
	h.mu.Unlock()
	h.log.Info().Str("client", id).Msg("websocket client connected")

	// Reader loop only detects disconnects; clients never send commands.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(id)
				return
			}
		}
	}()
	return nil
}

// Run broadcasts until ctx is cancelled, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(wsPushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			h.broadcast(snapshotJSON(h.store.Read()))
		}
	}
}

func (h *Hub) broadcast(payload countdownResponse) {
	h.mu.RLock()
	clients := make(map[string]*wsClient, len(h.clients))
	for id, client := range h.clients {
		clients[id] = client
	}
	h.mu.RUnlock()

	for id, client := range clients {
		client.writeMu.Lock()
		client.conn.SetWriteDeadline(time.Now().Add(wsPushInterval))
		err := client.conn.WriteJSON(payload)
		client.writeMu.Unlock()
		if err != nil {
			h.log.Debug().Str("client", id).Err(err).Msg("dropping slow websocket client")
			h.drop(id)
		}
	}
}

func (h *Hub) drop(id string) {
	h.mu.Lock()
	client, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	h.mu.Unlock()
	if ok {
		client.conn.Close()
		h.log.Info().Str("client", id).Msg("websocket client disconnected")
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		client.conn.Close()
		delete(h.clients, id)
	}
}
