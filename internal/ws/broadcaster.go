package ws

import (
	"context"

	"github.com/hikarin/chatcore/internal/models"
)

const (
	eventChannelJoin = "chat.channel.join"
	eventChannelPart = "chat.channel.part"
)

// Broadcaster adapts the hub to the chat core's EventBroadcaster interface.
// Handing an event to the hub always succeeds; per-connection delivery is
// best effort.
type Broadcaster struct {
	hub *Hub
}

func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub}
}

type channelEvent struct {
	ChannelID       uint               `json:"channel_id"`
	ChannelType     models.ChannelType `json:"channel_type"`
	ChannelName     string             `json:"channel_name"`
	UserID          uint               `json:"user_id"`
	BacklogEligible bool               `json:"backlog_eligible"`
}

func (b *Broadcaster) BroadcastJoin(ctx context.Context, channel *models.Channel, user *models.User, backlogEligible bool) error {
	b.hub.BroadcastToChannel(channel.ID, eventChannelJoin, channelEvent{
		ChannelID:       channel.ID,
		ChannelType:     channel.Type,
		ChannelName:     channel.Name,
		UserID:          user.ID,
		BacklogEligible: backlogEligible,
	})
	return nil
}

func (b *Broadcaster) BroadcastPart(ctx context.Context, channel *models.Channel, user *models.User, backlogEligible bool) error {
	b.hub.BroadcastToChannel(channel.ID, eventChannelPart, channelEvent{
		ChannelID:       channel.ID,
		ChannelType:     channel.Type,
		ChannelName:     channel.Name,
		UserID:          user.ID,
		BacklogEligible: backlogEligible,
	})
	return nil
}
