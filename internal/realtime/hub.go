package realtime

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"messaging-service/internal/docstore"
	"messaging-service/internal/observability"
)

// Hub fans document change events out to websocket clients and in-process
// subscribers, keyed by channel string.
type Hub struct {
	rooms       map[string]map[*websocket.Conn]bool
	connInfo    map[string]map[*websocket.Conn]ConnInfo
	writeLocks  map[*websocket.Conn]*sync.Mutex
	subscribers map[string]map[int]func(Event)
	nextSubID   int
	mu          sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:       make(map[string]map[*websocket.Conn]bool),
		connInfo:    make(map[string]map[*websocket.Conn]ConnInfo),
		writeLocks:  make(map[*websocket.Conn]*sync.Mutex),
		subscribers: make(map[string]map[int]func(Event)),
	}
}

// AddClient registers a websocket connection on a channel.
func (h *Hub) AddClient(channel string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[channel]; !ok {
		h.rooms[channel] = make(map[*websocket.Conn]bool)
	}
	h.rooms[channel][conn] = true
	if _, ok := h.connInfo[channel]; !ok {
		h.connInfo[channel] = make(map[*websocket.Conn]ConnInfo)
	}
	h.connInfo[channel][conn] = info
	if _, ok := h.writeLocks[conn]; !ok {
		h.writeLocks[conn] = &sync.Mutex{}
	}
}

// RemoveClient removes a websocket connection from a channel.
func (h *Hub) RemoveClient(channel string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[channel]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, channel)
		}
	}
	if infos, ok := h.connInfo[channel]; ok {
		delete(infos, conn)
		if len(infos) == 0 {
			delete(h.connInfo, channel)
		}
	}
	for _, conns := range h.rooms {
		if conns[conn] {
			return
		}
	}
	delete(h.writeLocks, conn)
}

// Subscribe registers an in-process handler for the channels and returns the
// function that cancels the subscription.
func (h *Hub) Subscribe(channels []string, handler func(Event)) func() {
	h.mu.Lock()
	h.nextSubID++
	id := h.nextSubID
	for _, channel := range channels {
		if _, ok := h.subscribers[channel]; !ok {
			h.subscribers[channel] = make(map[int]func(Event))
		}
		h.subscribers[channel][id] = handler
	}
	h.mu.Unlock()

	subscribed := make([]string, len(channels))
	copy(subscribed, channels)
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for _, channel := range subscribed {
			if handlers, ok := h.subscribers[channel]; ok {
				delete(handlers, id)
				if len(handlers) == 0 {
					delete(h.subscribers, channel)
				}
			}
		}
	}
}

type wsClient struct {
	conn  *websocket.Conn
	write *sync.Mutex
}

// Broadcast delivers an event to every subscriber and websocket client of the
// event's channels. Events arrive in write order; no deduplication happens here.
func (h *Hub) Broadcast(ev Event) {
	for _, channel := range ev.Channels {
		h.mu.RLock()
		handlers := make([]func(Event), 0, len(h.subscribers[channel]))
		for _, handler := range h.subscribers[channel] {
			handlers = append(handlers, handler)
		}
		clients := make([]wsClient, 0, len(h.rooms[channel]))
		for conn := range h.rooms[channel] {
			clients = append(clients, wsClient{conn: conn, write: h.writeLocks[conn]})
		}
		h.mu.RUnlock()

		for _, handler := range handlers {
			handler(ev)
		}

		if len(clients) == 0 {
			continue
		}
		payload, _ := json.Marshal(ev)
		for _, client := range clients {
			// gorilla/websocket allows one concurrent writer per conn.
			client.write.Lock()
			err := client.conn.WriteMessage(websocket.TextMessage, payload)
			client.write.Unlock()
			if err != nil {
				log.Printf("websocket write error: %v", err)
				client.conn.Close()
				h.publishWSError(channel, client.conn, err)
				h.RemoveClient(channel, client.conn)
			}
		}
	}

	for _, name := range ev.Events {
		observability.IncRealtimeEvent(actionOf(name))
	}
}

// DocumentChanged implements docstore.Notifier.
func (h *Hub) DocumentChanged(kind docstore.ChangeKind, doc docstore.Document) {
	h.Broadcast(EventForDocument(kind, doc))
}

func (h *Hub) publishWSError(channel string, conn *websocket.Conn, err error) {
	info, ok := h.getConnInfo(channel, conn)
	if !ok {
		return
	}

	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"channel":     channel,
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.realtime", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("realtime", "ws_error")
}

func (h *Hub) getConnInfo(channel string, conn *websocket.Conn) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if infos, ok := h.connInfo[channel]; ok {
		info, exists := infos[conn]
		return info, exists
	}
	return ConnInfo{}, false
}

func actionOf(event string) string {
	for _, action := range []string{ActionCreate, ActionUpdate, ActionDelete} {
		if strings.HasSuffix(event, "."+action) {
			return action
		}
	}
	return "unknown"
}

var _ docstore.Notifier = (*Hub)(nil)
