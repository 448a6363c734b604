package services

import (
	"encoding/json"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"arcadia/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Hub fans session events out to every websocket client watching a session
// code. Each broadcast message carries its sequence number so clients can
// reconcile order and detect gaps.
type Hub struct {
	clients        map[*Client]bool
	broadcast      chan []byte
	register       chan *Client
	unregister     chan *Client
	mutex          sync.RWMutex
	sessionService *SessionService
}

type Client struct {
	hub         *Hub
	id          string
	socket      *websocket.Conn
	send        chan []byte
	sessionCode string
	userID      uint
	displayName string
	closed      atomic.Bool
}

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

func NewHub(sessionService *SessionService) *Hub {
	return &Hub{
		clients:        make(map[*Client]bool),
		broadcast:      make(chan []byte),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		sessionService: sessionService,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			log.Printf("Client registered: %s for session %s (player %d: %s) - Total clients: %d", client.id, client.sessionCode, client.userID, client.displayName, h.clientCount())

			if h.sessionService != nil {
				if err := h.sessionService.UpdateConnectionStatus(client.sessionCode, client.userID, models.ConnectionConnected, h); err != nil {
					log.Printf("Error recording connect for player %d in session %s: %v", client.userID, client.sessionCode, err)
				}
			}

		case client := <-h.unregister:
			h.mutex.Lock()
			_, ok := h.clients[client]
			if ok {
				delete(h.clients, client)
				client.closeSend()
			}
			h.mutex.Unlock()

			if ok {
				log.Printf("Client unregistered: %s for session %s (player %d: %s) - Total clients: %d", client.id, client.sessionCode, client.userID, client.displayName, h.clientCount())

				// Mark the seat disconnected only if no other socket from the
				// same player is still attached (multi-tab case).
				if h.sessionService != nil && !h.IsPlayerConnected(client.sessionCode, client.userID) {
					if err := h.sessionService.UpdateConnectionStatus(client.sessionCode, client.userID, models.ConnectionDisconnected, h); err != nil {
						log.Printf("Error recording disconnect for player %d in session %s: %v", client.userID, client.sessionCode, err)
					}
				}
			}

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					client.closeSend()
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// BroadcastEvent sends one sequenced session event to every client in the
// session.
func (h *Hub) BroadcastEvent(sessionCode string, event *models.SessionEvent) {
	payload, err := event.DecodePayload()
	if err != nil {
		log.Printf("Error decoding payload for event %d in session %s: %v", event.Sequence, sessionCode, err)
		payload = nil
	}

	h.broadcastToSession(sessionCode, Message{
		Type: "session_event",
		Payload: map[string]interface{}{
			"sequence":   event.Sequence,
			"event_type": event.EventType,
			"player_id":  event.PlayerID,
			"timestamp":  event.Timestamp,
			"payload":    payload,
		},
	})
}

func (h *Hub) broadcastToSession(sessionCode string, message Message) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	h.mutex.Lock()
	sent := 0
	for client := range h.clients {
		if strings.EqualFold(client.sessionCode, sessionCode) {
			select {
			case client.send <- data:
				sent++
			default:
				log.Printf("Client %s (player %d) send buffer full, closing connection", client.id, client.userID)
				client.closeSend()
				delete(h.clients, client)
			}
		}
	}
	h.mutex.Unlock()

	log.Printf("Broadcast %s to %d clients in session %s", message.Type, sent, sessionCode)
}

// SendStateSync pushes the authoritative snapshot to a single client. Used
// on connect and whenever a client reports a sequence gap.
func (h *Hub) SendStateSync(client *Client) {
	if h.sessionService == nil {
		return
	}

	state, err := h.sessionService.GetCurrentSessionState(client.sessionCode)
	if err != nil {
		log.Printf("Error getting session state for client %s: %v", client.id, err)
		return
	}

	message := Message{
		Type:    "state_sync",
		Payload: state,
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling state sync message: %v", err)
		return
	}

	log.Printf("Sending state sync to client %s: session %s at sequence %d", client.id, client.sessionCode, state.LastSequence)

	h.mutex.Lock()
	select {
	case client.send <- data:
	default:
		client.closeSend()
		delete(h.clients, client)
	}
	h.mutex.Unlock()
}

func (h *Hub) GetConnectedPlayers(sessionCode string) []uint {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	seen := make(map[uint]bool)
	var playerIDs []uint
	for client := range h.clients {
		if strings.EqualFold(client.sessionCode, sessionCode) && !seen[client.userID] {
			seen[client.userID] = true
			playerIDs = append(playerIDs, client.userID)
		}
	}
	return playerIDs
}

func (h *Hub) IsPlayerConnected(sessionCode string, userID uint) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range h.clients {
		if strings.EqualFold(client.sessionCode, sessionCode) && client.userID == userID {
			return true
		}
	}
	return false
}

func (h *Hub) clientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) RegisterClient(conn *websocket.Conn, sessionCode string, userID uint, displayName string) *Client {
	client := &Client{
		hub:         h,
		id:          uuid.NewString(),
		socket:      conn,
		send:        make(chan []byte, 256),
		sessionCode: strings.ToLower(sessionCode),
		userID:      userID,
		displayName: displayName,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()

	return client
}

func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

func (c *Client) closeSend() {
	if c.closed.CompareAndSwap(false, true) {
		close(c.send)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		c.socket.Close()
	}()

	for {
		_, message, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Error unmarshaling message: %v", err)
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	defer func() {
		c.socket.Close()
	}()

	for message := range c.send {
		w, err := c.socket.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}

		w.Write(message)

		if err := w.Close(); err != nil {
			return
		}
	}
	c.socket.WriteMessage(websocket.CloseMessage, []byte{})
}

func (c *Client) handleMessage(msg Message) {
	switch msg.Type {
	case "ping":
		response := Message{
			Type:    "pong",
			Payload: "pong",
		}
		data, _ := json.Marshal(response)
		c.send <- data

	case "request_state_sync":
		// Client detected a sequence gap or just connected; resend the full
		// snapshot.
		log.Printf("Player %d (%s) requesting state sync for session %s", c.userID, c.displayName, c.sessionCode)
		c.hub.SendStateSync(c)

	default:
		log.Printf("Unknown message type: %s from player %d (%s) in session %s", msg.Type, c.userID, c.displayName, c.sessionCode)
	}
}
