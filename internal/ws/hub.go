package ws

import (
	"sync"
)

// Hub 维护活跃的客户端连接并按频道广播事件
type Hub struct {
	// 注册的客户端
	clients map[*Client]bool

	// 频道对应的客户端集合 ChannelID -> Client -> bool
	rooms map[uint]map[*Client]bool

	mu sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
}

// BroadcastMessage 广播消息结构
type BroadcastMessage struct {
	ChannelID uint   `json:"channel_id"`
	Event     string `json:"event"`
	Payload   any    `json:"payload"`
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan *BroadcastMessage),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		rooms:      make(map[uint]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			for _, channelID := range client.channelIDs {
				if _, ok := h.rooms[channelID]; !ok {
					h.rooms[channelID] = make(map[*Client]bool)
				}
				h.rooms[channelID][client] = true
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				for _, channelID := range client.channelIDs {
					if room, ok := h.rooms[channelID]; ok {
						delete(room, client)
						if len(room) == 0 {
							delete(h.rooms, channelID)
						}
					}
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			if clients, ok := h.rooms[msg.ChannelID]; ok {
				for client := range clients {
					select {
					case client.send <- msg:
					default:
						// Slow consumer; drop the event rather than block
						// the hub. The connection's own pump will clean up.
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastToChannel queues an event for every client subscribed to the
// channel. Best effort; callers get no delivery guarantee.
func (h *Hub) BroadcastToChannel(channelID uint, event string, payload any) {
	h.broadcast <- &BroadcastMessage{
		ChannelID: channelID,
		Event:     event,
		Payload:   payload,
	}
}

// Subscribe adds an already-registered client to one more channel room.
func (h *Hub) Subscribe(client *Client, channelID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[channelID]; !ok {
		h.rooms[channelID] = make(map[*Client]bool)
	}
	h.rooms[channelID][client] = true
	client.channelIDs = append(client.channelIDs, channelID)
}
