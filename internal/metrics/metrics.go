package metrics

import (
	"sync"

	"go.uber.org/zap"

	"github.com/hikarin/chatcore/internal/chat"
	"github.com/hikarin/chatcore/internal/models"
)

// ZapRecorder emits every counter increment as a structured log line for an
// external metrics pipeline to consume.
type ZapRecorder struct {
	logger *zap.Logger
}

func NewZapRecorder(logger *zap.Logger) *ZapRecorder {
	return &ZapRecorder{logger: logger}
}

func (r *ZapRecorder) Incr(event chat.Event, channelType models.ChannelType) {
	r.logger.Info("chat counter",
		zap.String("event", string(event)),
		zap.String("channel_type", string(channelType)),
	)
}

// Memory accumulates counts in process. Useful for debugging endpoints and
// local runs.
type Memory struct {
	mu     sync.Mutex
	counts map[string]int64
}

func NewMemory() *Memory {
	return &Memory{counts: make(map[string]int64)}
}

func (m *Memory) Incr(event chat.Event, channelType models.ChannelType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[string(event)+":"+string(channelType)]++
}

// Count returns the accumulated count for one event/type pair.
func (m *Memory) Count(event chat.Event, channelType models.ChannelType) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[string(event)+":"+string(channelType)]
}
