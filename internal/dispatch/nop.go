package dispatch

import (
	"context"

	"github.com/hikarin/chatcore/internal/models"
)

// Nop discards every notification job. Used when no broker is configured.
type Nop struct{}

func (Nop) DispatchDirectMessage(context.Context, *models.Message, *models.User) error { return nil }
func (Nop) DispatchAnnouncement(context.Context, *models.Message, *models.User) error  { return nil }
func (Nop) DispatchRelay(context.Context, *models.Message) error                       { return nil }
