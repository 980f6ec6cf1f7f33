package chatws

import (
	"context"
	"log"

	websocket "github.com/gofiber/contrib/websocket"

	"github.com/armin-rsh/FitLinkApp/internal/services"
	"github.com/armin-rsh/FitLinkApp/pkg/model"
)

type Hub struct {
	clients    map[int64]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan delivery
	presence   *services.PresenceService
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID int64
	send   chan []byte
}

// sender is the slice of the chat service the read pump needs.
type sender interface {
	SendMessage(ctx context.Context, actorID int64, msg model.Message) (*model.Message, error)
}

type delivery struct {
	targets []int64
	payload []byte
}

func NewHub(presence *services.PresenceService) *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan delivery, 64),
		presence:   presence,
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID int64) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, 32),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
				if err := h.presence.SetOnline(context.Background(), client.userID); err != nil {
					log.Printf("chat hub set online: %v", err)
				}
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			set, ok := h.clients[client.userID]
			if !ok {
				continue
			}
			if _, exists := set[client]; exists {
				delete(set, client)
				close(client.send)
			}
			if len(set) == 0 {
				delete(h.clients, client.userID)
				if err := h.presence.SetOffline(context.Background(), client.userID); err != nil {
					log.Printf("chat hub set offline: %v", err)
				}
			}
		case d := <-h.broadcast:
			for _, target := range d.targets {
				h.sendToUser(target, d.payload)
			}
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Broadcast fans an event out to every connection of the target users.
// Duplicate targets collapse to one send per connection.
func (h *Hub) Broadcast(ev model.Event, targets ...int64) {
	payload, err := model.EncodeEvent(ev)
	if err != nil {
		log.Printf("chat hub encode event: %v", err)
		return
	}
	h.broadcast <- delivery{targets: dedupe(targets), payload: payload}
}

func (h *Hub) sendToUser(userID int64, payload []byte) {
	set, ok := h.clients[userID]
	if !ok {
		return
	}

	for client := range set {
		select {
		case client.send <- payload:
		default:
			delete(set, client)
			close(client.send)
		}
	}
	if len(set) == 0 {
		delete(h.clients, userID)
	}
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ReadPump consumes inbound events until the connection drops. sendMessage
// is persisted and echoed to both parties as newMessage; updateMessage and
// deleteMessage are relayed, since the REST handlers already made the
// authoritative change.
func (c *Client) ReadPump(service sender) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		ev, err := model.DecodeEvent(payload)
		if err != nil {
			writeError(c, "invalid event payload")
			continue
		}

		switch ev.Event {
		case model.EventSendMessage:
			if ev.Message == nil {
				writeError(c, "missing message")
				continue
			}
			canonical, err := service.SendMessage(context.Background(), c.userID, *ev.Message)
			if err != nil {
				writeError(c, "failed to send message")
				continue
			}
			c.hub.Broadcast(
				model.Event{Event: model.EventNewMessage, Message: canonical},
				canonical.SenderID, canonical.ReceiverID,
			)
		case model.EventUpdateMessage:
			if ev.Message == nil || ev.Message.SenderID != c.userID {
				writeError(c, "invalid update event")
				continue
			}
			c.hub.Broadcast(ev, ev.Message.SenderID, ev.Message.ReceiverID)
		case model.EventDeleteMessage:
			if ev.MessageID <= 0 || ev.ReceiverID <= 0 {
				writeError(c, "invalid delete event")
				continue
			}
			c.hub.Broadcast(ev, c.userID, ev.ReceiverID)
		default:
			writeError(c, "unsupported event")
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func writeError(client *Client, message string) {
	payload, err := model.EncodeEvent(model.Event{Event: model.EventError, Error: message})
	if err != nil {
		return
	}
	select {
	case client.send <- payload:
	default:
		client.hub.Unregister(client)
	}
}
