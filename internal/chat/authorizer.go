package chat

import (
	"slices"

	"github.com/hikarin/chatcore/internal/models"
)

// defaultAuthorizer implements the capability checks callers run before
// handing a message to the core. Moderated channels only accept messages
// from privileged users; announcement rights additionally honor the
// channel's allowed-group list.
type defaultAuthorizer struct{}

func NewAuthorizer() Authorizer {
	return defaultAuthorizer{}
}

func (defaultAuthorizer) CanMessage(user *models.User, channel *models.Channel) bool {
	if channel.Type == models.ChannelTypeAnnounce {
		return defaultAuthorizer{}.CanAnnounce(user, channel)
	}
	if channel.Moderated {
		return user.Privileged()
	}
	return true
}

func (defaultAuthorizer) CanAnnounce(user *models.User, channel *models.Channel) bool {
	if user.Privileged() {
		return true
	}
	return slices.Contains(channel.AllowedGroupIDs(), user.GroupID)
}
