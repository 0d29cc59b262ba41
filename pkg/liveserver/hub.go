// Package liveserver fans out market updates to browser WebSocket clients
package liveserver

import (
	"context"
	"sync"

	"dex_trader/internal/core"
	"dex_trader/pkg/telemetry"
)

const clientBuffer = 256

// Client is one connected WebSocket client
type Client struct {
	id       string
	send     chan Message
	marketID string
	mu       sync.Mutex
	closed   bool
}

func NewClient(id string) *Client {
	return &Client{
		id:   id,
		send: make(chan Message, clientBuffer),
	}
}

func (c *Client) ID() string {
	return c.id
}

// Watch sets the market the client receives scoped messages for; empty stops them
func (c *Client) Watch(marketID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.marketID = marketID
}

// Watching returns the watched market
func (c *Client) Watching() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.marketID
}

func (c *Client) wants(msg Message) bool {
	return msg.MarketID == "" || msg.MarketID == c.Watching()
}

// Send queues msg without blocking and reports false when the client is slow or closed
func (c *Client) Send(msg Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// GetSendChan returns the send channel for reading
func (c *Client) GetSendChan() <-chan Message {
	return c.send
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub tracks clients and broadcasts messages to them
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex

	// onRegister builds the messages a new client receives first
	onRegister func() []Message

	logger core.ILogger
}

func NewHub(logger core.ILogger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, clientBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.WithField("component", "live_hub"),
	}
}

// SetOnRegister sets the snapshot source for new clients
func (h *Hub) SetOnRegister(fn func() []Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onRegister = fn
}

// Run is the hub loop; it closes every client when ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			telemetry.GetGlobalMetrics().SetHubClients(0)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			onRegister := h.onRegister
			h.mu.Unlock()
			telemetry.GetGlobalMetrics().SetHubClients(int64(total))
			h.logger.Info("Client registered", "client_id", client.id, "total_clients", total)

			if onRegister != nil {
				for _, msg := range onRegister() {
					client.Send(msg)
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			total := len(h.clients)
			h.mu.Unlock()
			telemetry.GetGlobalMetrics().SetHubClients(int64(total))
			h.logger.Info("Client unregistered", "client_id", client.id, "total_clients", total)

		case message := <-h.broadcast:
			h.mu.RLock()
			clientList := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clientList = append(clientList, client)
			}
			h.mu.RUnlock()

			var slow []*Client
			for _, client := range clientList {
				if client.wants(message) && !client.Send(message) {
					slow = append(slow, client)
				}
			}
			if len(slow) > 0 {
				h.drop(slow)
			}
		}
	}
}

// drop removes clients whose send buffer is full
func (h *Hub) drop(clients []*Client) {
	h.mu.Lock()
	for _, client := range clients {
		if _, ok := h.clients[client]; ok {
			delete(h.clients, client)
			client.Close()
			h.logger.Warn("Dropped slow client", "client_id", client.id)
		}
	}
	total := len(h.clients)
	h.mu.Unlock()
	telemetry.GetGlobalMetrics().SetHubClients(int64(total))
}

// Register adds client; after the hub stopped the client is closed instead
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues msg for delivery, dropping it when the hub is saturated
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("Broadcast channel full, dropping message", "type", msg.Type, "market_id", msg.MarketID)
	}
}

// ClientCount returns the current number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
