package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/ImHoppy/excalidraw/internal/presence"
)

// Hub is the room coordinator: one event loop owns every membership
// mutation and relay, so room state never races. Delivery is best-effort
// and fire-and-forget; convergence is the sync client's job, not the hub's.
type Hub struct {
	registry *presence.Registry

	// All connected clients, in a room or not
	clients map[*Client]bool
	byID    map[string]*Client

	register   chan *Client
	unregister chan *Client
	join       chan joinRequest
	relay      chan relayMessage
	follow     chan followMessage

	mu sync.RWMutex
}

type joinRequest struct {
	client *Client
	roomID string
}

type relayMessage struct {
	sender   *Client
	data     json.RawMessage
	volatile bool
}

type followMessage struct {
	sender *Client
	data   json.RawMessage
}

func NewHub() *Hub {
	return &Hub{
		registry:   presence.NewRegistry(),
		clients:    make(map[*Client]bool),
		byID:       make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan joinRequest),
		relay:      make(chan relayMessage),
		follow:     make(chan followMessage),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.byID[client.id] = client
			h.sendReliable(client, encode(Envelope{Type: MsgInitRoom}))
			clientCount := len(h.clients)
			h.mu.Unlock()

			log.Printf("Connection %s opened (total: %d)", client.id, clientCount)

		case client := <-h.unregister:
			h.mu.Lock()
			if h.clients[client] {
				h.drop(client)
			}
			h.mu.Unlock()

		case req := <-h.join:
			h.mu.Lock()
			if h.clients[req.client] {
				h.handleJoin(req.client, req.roomID)
			}
			h.mu.Unlock()

		case msg := <-h.relay:
			h.mu.Lock()
			if h.clients[msg.sender] && msg.sender.room != "" {
				h.handleRelay(msg)
			}
			h.mu.Unlock()

		case msg := <-h.follow:
			h.mu.Lock()
			if h.clients[msg.sender] {
				h.handleFollow(msg)
			}
			h.mu.Unlock()
		}
	}
}

// handleJoin moves a client into a room, leaving its previous room first.
// Everyone in the new room gets the full roster; only the pre-existing
// members get the lighter new-user signal that triggers the direct
// introduction handshake between collaborators.
func (h *Hub) handleJoin(client *Client, roomID string) {
	if client.room == roomID {
		// Rejoining the current room just refreshes the joiner's roster.
		roster := h.registry.MembersOf(roomID)
		h.sendReliable(client, encode(Envelope{Type: MsgRoomUserChange, RoomID: roomID, Members: roster}))
		return
	}
	if client.room != "" {
		h.leaveRoom(client)
	}

	members := h.registry.Join(roomID, client.id)
	client.room = roomID

	roster := encode(Envelope{Type: MsgRoomUserChange, RoomID: roomID, Members: members})
	newUser := encode(Envelope{Type: MsgNewUser, ConnectionID: client.id})
	for _, id := range members {
		peer, ok := h.byID[id]
		if !ok {
			continue
		}
		h.sendReliable(peer, roster)
		// The roster send may have evicted the peer.
		if peer != client && h.clients[peer] {
			h.sendReliable(peer, newUser)
		}
	}

	name := client.name
	if name == "" {
		name = "anonymous"
	}
	log.Printf("Connection %s (%s) joined room %s (members: %d)", client.id, name, roomID, len(members))
}

// leaveRoom removes a client from its current room and notifies whoever
// remains. Used for explicit room switches and on disconnect.
func (h *Hub) leaveRoom(client *Client) {
	if client.room == "" {
		return
	}
	roomID := client.room
	client.room = ""

	remaining := h.registry.Leave(roomID, client.id)
	if len(remaining) == 0 {
		log.Printf("Room %s closed (empty)", roomID)
		return
	}

	roster := encode(Envelope{Type: MsgRoomUserChange, RoomID: roomID, Members: remaining})
	for _, id := range remaining {
		if peer, ok := h.byID[id]; ok {
			h.sendReliable(peer, roster)
		}
	}
}

func (h *Hub) handleRelay(msg relayMessage) {
	roomID := msg.sender.room
	msgType := MsgServerBroadcast
	if msg.volatile {
		msgType = MsgServerVolatile
	}
	data := encode(Envelope{Type: msgType, RoomID: roomID, Data: msg.data})
	if data == nil {
		return
	}

	for _, id := range h.registry.MembersOf(roomID) {
		peer, ok := h.byID[id]
		if !ok || peer == msg.sender {
			continue
		}
		if msg.volatile {
			// Droppable by contract: a slow consumer just misses it.
			select {
			case peer.send <- data:
			default:
			}
		} else {
			h.sendReliable(peer, data)
		}
	}
}

// handleFollow relays a follow-state change to every connected client
// process-wide, not just the sender's room.
func (h *Hub) handleFollow(msg followMessage) {
	data := encode(Envelope{Type: MsgUserFollowChange, Data: msg.data})
	for peer := range h.clients {
		if peer != msg.sender {
			h.sendReliable(peer, data)
		}
	}
}

// sendReliable queues a message for a client. A client whose send buffer is
// full is beyond catching up and gets dropped, same as a disconnect.
func (h *Hub) sendReliable(client *Client, data []byte) {
	if data == nil {
		return
	}
	select {
	case client.send <- data:
	default:
		log.Printf("Connection %s too slow, dropping", client.id)
		h.drop(client)
	}
}

// drop tears a client down: leave its room (with notifications), forget it,
// and close its send channel so the write pump exits.
func (h *Hub) drop(client *Client) {
	h.leaveRoom(client)
	delete(h.clients, client)
	delete(h.byID, client.id)
	close(client.send)

	log.Printf("Connection %s closed (remaining: %d)", client.id, len(h.clients))
}

// Stats accessors for the HTTP layer.

func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.registry.RoomCount()
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) ActiveRooms() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.registry.RoomSizes()
}
