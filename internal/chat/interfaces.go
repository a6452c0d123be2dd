package chat

import (
	"context"

	"github.com/hikarin/chatcore/internal/models"
)

// NotificationDispatcher fans committed messages out to notification jobs.
// Implementations are fire-and-forget; the service invokes them strictly
// after the owning transaction has committed.
type NotificationDispatcher interface {
	DispatchDirectMessage(ctx context.Context, message *models.Message, sender *models.User) error
	DispatchAnnouncement(ctx context.Context, message *models.Message, sender *models.User) error
	DispatchRelay(ctx context.Context, message *models.Message) error
}

// EventBroadcaster delivers join/part events to live listeners. Calls made
// inside a transaction must complete for the transaction to commit; delivery
// to any individual listener stays best-effort.
type EventBroadcaster interface {
	BroadcastJoin(ctx context.Context, channel *models.Channel, user *models.User, backlogEligible bool) error
	BroadcastPart(ctx context.Context, channel *models.Channel, user *models.User, backlogEligible bool) error
}

// Event is the kind tag on counter increments.
type Event string

const (
	EventCreate Event = "create"
	EventSend   Event = "send"
	EventJoin   Event = "join"
	EventPart   Event = "part"
)

// Recorder counts channel events tagged by type. Fire-and-forget; the core
// never consumes a return value.
type Recorder interface {
	Incr(event Event, channelType models.ChannelType)
}

// RelationChecker answers whether one user has blocked another.
type RelationChecker interface {
	IsBlocking(ctx context.Context, userID, targetID uint) (bool, error)
}

// Authorizer is the capability check consumed by callers before they hand a
// message to the core. The core itself only enforces the PM visibility rule.
type Authorizer interface {
	CanMessage(user *models.User, channel *models.Channel) bool
	CanAnnounce(user *models.User, channel *models.Channel) bool
}
