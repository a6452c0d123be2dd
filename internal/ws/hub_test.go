package ws

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hikarin/chatcore/internal/models"
)

func newTestClient(channelIDs ...uint) *Client {
	return &Client{
		send:       make(chan *BroadcastMessage, 8),
		channelIDs: channelIDs,
	}
}

func recvEvent(t *testing.T, c *Client) *BroadcastMessage {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
		return nil
	}
}

func TestHub_BroadcastToChannel(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	subscriber := newTestClient(1)
	bystander := newTestClient(2)
	hub.register <- subscriber
	hub.register <- bystander

	hub.BroadcastToChannel(1, "chat.message.new", map[string]any{"id": 42})

	msg := recvEvent(t, subscriber)
	assert.Equal(t, uint(1), msg.ChannelID)
	assert.Equal(t, "chat.message.new", msg.Event)

	select {
	case msg := <-bystander.send:
		t.Fatalf("client on another channel received %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := newTestClient(1)
	hub.register <- client
	hub.unregister <- client

	// The send channel is closed on unregister.
	select {
	case _, ok := <-client.send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed")
	}
}

func TestHub_Subscribe(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := newTestClient()
	hub.register <- client

	hub.Subscribe(client, 7)
	hub.BroadcastToChannel(7, "chat.message.new", nil)

	msg := recvEvent(t, client)
	assert.Equal(t, uint(7), msg.ChannelID)
}

func TestBroadcaster(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := newTestClient(3)
	hub.register <- client

	b := NewBroadcaster(hub)
	channel := &models.Channel{ID: 3, Type: models.ChannelTypePublic, Name: "#osu"}
	user := &models.User{ID: 9, UserName: "alice"}

	require.NoError(t, b.BroadcastJoin(context.Background(), channel, user, true))
	msg := recvEvent(t, client)
	assert.Equal(t, eventChannelJoin, msg.Event)

	payload, ok := msg.Payload.(channelEvent)
	require.True(t, ok)
	assert.Equal(t, uint(3), payload.ChannelID)
	assert.Equal(t, uint(9), payload.UserID)
	assert.True(t, payload.BacklogEligible)

	require.NoError(t, b.BroadcastPart(context.Background(), channel, user, false))
	msg = recvEvent(t, client)
	assert.Equal(t, eventChannelPart, msg.Event)
}
