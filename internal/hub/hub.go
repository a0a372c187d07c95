package hub

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// roomGroups holds a room's two subscriber sets. A session appears here iff
// its socket is open and bound to the room.
type roomGroups struct {
	messages map[*Client]bool
	presence map[*Client]bool
}

func newRoomGroups() *roomGroups {
	return &roomGroups{
		messages: make(map[*Client]bool),
		presence: make(map[*Client]bool),
	}
}

func (g *roomGroups) group(kind Group) map[*Client]bool {
	if kind == GroupPresence {
		return g.presence
	}
	return g.messages
}

func (g *roomGroups) empty() bool {
	return len(g.messages) == 0 && len(g.presence) == 0
}

// Hub is the room connection registry. It maintains session
// registration/unregistration per room and fans events out to room groups.
// A single Run loop serializes broadcasts, so events submitted for one room
// are delivered in submission order.
type Hub struct {
	rooms      map[string]*roomGroups
	broadcast  chan BroadcastMessage
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	log        *slog.Logger
}

// NewHub creates an empty hub ready to manage room subscriptions.
func NewHub(log *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		rooms:      make(map[string]*roomGroups),
		broadcast:  make(chan BroadcastMessage, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		log:        log,
	}
}

// Register subscribes the client to both of its room's groups and starts its
// read/write pumps. A client arriving after shutdown has its connection
// closed instead; no pumps ever run for it.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
		if client != nil && client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				h.log.Warn("close unregistered connection", "addr", client.addr, "err", err)
			}
		}
	}
}

// Unregister removes the client from its room's groups and closes its send
// channel. Unregistering an unknown client is a no-op.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// Broadcast submits an event for delivery to a room group.
func (h *Hub) Broadcast(msg BroadcastMessage) {
	select {
	case h.broadcast <- msg:
	case <-h.ctx.Done():
	}
}

// RoomSize reports how many sessions are subscribed to a room group.
func (h *Hub) RoomSize(roomID string, kind Group) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	groups := h.rooms[roomID]
	if groups == nil {
		return 0
	}
	return len(groups.group(kind))
}

// Run starts the hub's main event loop, handling registration,
// unregistration, and room broadcasts. Call it in its own goroutine; it runs
// until Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.log.Warn("nil client registration skipped")
				continue
			}
			h.addClient(client)

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				client.writePump()
			}()
			go func() {
				defer h.wg.Done()
				client.readPump()
			}()

		case client := <-h.unregister:
			h.removeClients([]*Client{client}, "disconnected")

		case msg := <-h.broadcast:
			h.handleBroadcast(msg)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mutex.Lock()
	groups := h.rooms[client.roomID]
	if groups == nil {
		groups = newRoomGroups()
		h.rooms[client.roomID] = groups
	}
	client.closed = false
	groups.messages[client] = true
	groups.presence[client] = true
	size := len(groups.messages)
	h.mutex.Unlock()

	h.log.Info("session registered",
		"room_id", client.roomID, "session_id", client.id, "addr", client.addr, "room_sessions", size)
}

// removeClients drops the clients from their room groups and closes their
// send channels. Rooms left with no subscribers are deleted.
func (h *Hub) removeClients(clients []*Client, reason string) {
	h.mutex.Lock()
	var channelsToClose []chan []byte
	for _, client := range clients {
		groups := h.rooms[client.roomID]
		if groups == nil {
			continue
		}
		if !groups.messages[client] && !groups.presence[client] {
			continue
		}
		delete(groups.messages, client)
		delete(groups.presence, client)
		client.closed = true
		channelsToClose = append(channelsToClose, client.send)
		if groups.empty() {
			delete(h.rooms, client.roomID)
		}
		h.log.Info("session unregistered",
			"room_id", client.roomID, "session_id", client.id, "reason", reason)
	}
	h.mutex.Unlock()

	// Close channels after releasing the lock.
	for _, ch := range channelsToClose {
		close(ch)
	}
}

// handleBroadcast delivers the event to every subscriber of the target
// group. Each delivery is independent: a failed subscriber is collected for
// removal and never stalls the others.
func (h *Hub) handleBroadcast(msg BroadcastMessage) {
	subscribers := h.groupSnapshot(msg.RoomID, msg.Group)
	if len(subscribers) == 0 {
		return
	}

	var failed []*Client
	for _, client := range subscribers {
		if !h.safeSend(client, msg.Payload) {
			failed = append(failed, client)
		}
	}
	if len(failed) > 0 {
		h.removeClients(failed, "send buffer full")
	}
}

// groupSnapshot returns the current subscribers of a room group.
func (h *Hub) groupSnapshot(roomID string, kind Group) []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	groups := h.rooms[roomID]
	if groups == nil {
		return nil
	}
	members := groups.group(kind)
	subscribers := make([]*Client, 0, len(members))
	for client := range members {
		subscribers = append(subscribers, client)
	}
	return subscribers
}

func (h *Hub) safeSend(client *Client, payload []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			h.log.Warn("recovered from panic in safeSend", "panic", r)
		}
	}()

	// Hold the lock for the whole send so the channel cannot be closed
	// between the registration check and the send.
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	groups := h.rooms[client.roomID]
	if groups == nil || client.closed {
		return false
	}
	if !groups.messages[client] && !groups.presence[client] {
		return false
	}

	select {
	case client.send <- payload:
		return true
	default:
		return false
	}
}

// shutdownClients closes every active connection and send channel so both
// pumps of each session exit promptly.
func (h *Hub) shutdownClients() {
	h.mutex.Lock()
	var clients []*Client
	for _, groups := range h.rooms {
		for client := range groups.messages {
			clients = append(clients, client)
		}
		for client := range groups.presence {
			if !groups.messages[client] {
				clients = append(clients, client)
			}
		}
	}
	for _, client := range clients {
		client.closed = true
	}
	h.rooms = make(map[string]*roomGroups)
	h.mutex.Unlock()

	for _, client := range clients {
		close(client.send)
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				h.log.Warn("error closing client connection", "addr", client.addr, "err", err)
			}
		}
	}
	h.log.Info("closed client connections", "count", len(clients))
}

// Shutdown stops the hub and waits for all client goroutines to finish, or
// until the timeout elapses.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.cancel()
	<-h.done

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		h.log.Info("hub shutdown complete")
		return nil
	case <-time.After(timeout):
		h.log.Warn("hub shutdown timed out")
		return context.DeadlineExceeded
	}
}
