package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hikarin/chatcore/internal/chat"
	"github.com/hikarin/chatcore/internal/models"
)

func TestMemory(t *testing.T) {
	m := NewMemory()

	m.Incr(chat.EventSend, models.ChannelTypePublic)
	m.Incr(chat.EventSend, models.ChannelTypePublic)
	m.Incr(chat.EventSend, models.ChannelTypePM)
	m.Incr(chat.EventJoin, models.ChannelTypePublic)

	assert.Equal(t, int64(2), m.Count(chat.EventSend, models.ChannelTypePublic))
	assert.Equal(t, int64(1), m.Count(chat.EventSend, models.ChannelTypePM))
	assert.Equal(t, int64(1), m.Count(chat.EventJoin, models.ChannelTypePublic))
	assert.Zero(t, m.Count(chat.EventPart, models.ChannelTypePublic))
}

func TestZapRecorder(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := NewZapRecorder(zap.New(core))

	r.Incr(chat.EventCreate, models.ChannelTypeAnnounce)

	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "chat counter", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "create", fields["event"])
	assert.Equal(t, "announce", fields["channel_type"])
}
