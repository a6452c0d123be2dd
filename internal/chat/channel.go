package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/hikarin/chatcore/internal/models"
	"github.com/hikarin/chatcore/internal/presence"
)

// Channel binds one channel row to the service for the duration of a single
// request. Membership lookups are memoized on the instance; any mutation
// drops the whole cache rather than one entry, trading cache granularity for
// correctness. Instances are request-scoped and never shared, so no locking.
type Channel struct {
	*models.Channel

	svc *Service

	// memberships maps userID to its membership row; a nil value means the
	// lookup ran and found nothing. A nil map means nothing is cached yet.
	memberships map[uint]*models.UserChannel

	// users holds pre-attached User entities (the two PM parties) so
	// counterpart lookups skip a query.
	users map[uint]*models.User
}

func (c *Channel) cacheUsers(users ...*models.User) {
	if c.users == nil {
		c.users = make(map[uint]*models.User, len(users))
	}
	for _, user := range users {
		c.users[user.ID] = user
	}
}

// invalidate drops the membership cache after any membership mutation.
func (c *Channel) invalidate() {
	c.memberships = nil
}

func (c *Channel) membership(ctx context.Context, userID uint) (*models.UserChannel, error) {
	if c.memberships == nil {
		c.memberships = make(map[uint]*models.UserChannel)
	}
	if uc, ok := c.memberships[userID]; ok {
		return uc, nil
	}

	var uc models.UserChannel
	err := c.svc.db.WithContext(ctx).
		Where("channel_id = ? AND user_id = ?", c.ID, userID).
		First(&uc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.memberships[userID] = nil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}
	c.memberships[userID] = &uc
	return &uc, nil
}

// AddUser joins a user to the channel. Joining twice is idempotent: an
// existing visible membership only re-broadcasts the join. A hidden
// membership is un-hidden instead of duplicated.
func (c *Channel) AddUser(ctx context.Context, user *models.User) error {
	uc, err := c.membership(ctx, user.ID)
	if err != nil {
		return err
	}

	switch {
	case uc != nil && !uc.Hidden:
		// Already a visible member; nothing to write.
	case uc != nil:
		err = c.svc.db.WithContext(ctx).
			Model(&models.UserChannel{}).
			Where("id = ?", uc.ID).
			Update("hidden", false).Error
		if err != nil {
			return fmt.Errorf("failed to unhide membership: %w", err)
		}
		c.invalidate()
	default:
		uc = &models.UserChannel{ChannelID: c.ID, UserID: user.ID}
		if err := c.svc.db.WithContext(ctx).Create(uc).Error; err != nil {
			return fmt.Errorf("failed to create membership: %w", err)
		}
		c.invalidate()
	}

	if err := c.svc.broadcaster.BroadcastJoin(ctx, c.Channel, user, true); err != nil {
		return fmt.Errorf("failed to broadcast join: %w", err)
	}
	c.svc.metrics.Incr(EventJoin, c.Type)
	return nil
}

// RemoveUser removes a user from the channel. Hideable channel types keep
// the membership row and set hidden, preserving read state; anything else
// hard-deletes the row. Removing a non-member is a no-op.
func (c *Channel) RemoveUser(ctx context.Context, user *models.User) error {
	uc, err := c.membership(ctx, user.ID)
	if err != nil {
		return err
	}
	if uc == nil {
		return nil
	}

	if c.Hideable() {
		if uc.Hidden {
			return nil
		}
		err = c.svc.db.WithContext(ctx).
			Model(&models.UserChannel{}).
			Where("id = ?", uc.ID).
			Update("hidden", true).Error
		if err != nil {
			return fmt.Errorf("failed to hide membership: %w", err)
		}
	} else {
		err = c.svc.db.WithContext(ctx).
			Where("channel_id = ? AND user_id = ?", c.ID, user.ID).
			Delete(&models.UserChannel{}).Error
		if err != nil {
			return fmt.Errorf("failed to delete membership: %w", err)
		}
	}

	c.invalidate()
	if err := c.svc.broadcaster.BroadcastPart(ctx, c.Channel, user, true); err != nil {
		return fmt.Errorf("failed to broadcast part: %w", err)
	}
	c.svc.metrics.Incr(EventPart, c.Type)
	return nil
}

// HasUser reports whether a membership row exists, hidden or not.
func (c *Channel) HasUser(ctx context.Context, user *models.User) (bool, error) {
	uc, err := c.membership(ctx, user.ID)
	if err != nil {
		return false, err
	}
	return uc != nil, nil
}

// IsVisibleFor reports whether the viewing user can see this channel.
// Non-PM channels are always visible. A PM channel is hidden when the
// counterpart cannot be determined, or when the viewer has blocked the
// counterpart and the counterpart holds no privileged role.
func (c *Channel) IsVisibleFor(ctx context.Context, user *models.User) (bool, error) {
	if c.Type != models.ChannelTypePM {
		return true, nil
	}

	other, err := c.pmCounterpart(ctx, user)
	if err != nil {
		return false, err
	}
	if other == nil {
		return false, nil
	}

	blocked, err := c.svc.relations.IsBlocking(ctx, user.ID, other.ID)
	if err != nil {
		return false, err
	}
	if blocked && !other.Privileged() {
		return false, nil
	}
	return true, nil
}

// UserIDs returns the channel's member ids. PM channels parse them from the
// deterministic name; everything else queries membership rows.
func (c *Channel) UserIDs(ctx context.Context) ([]uint, error) {
	if c.Type == models.ChannelTypePM {
		return c.PMUserIDs(), nil
	}

	var ids []uint
	err := c.svc.db.WithContext(ctx).
		Model(&models.UserChannel{}).
		Where("channel_id = ?", c.ID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list channel user ids: %w", err)
	}
	return ids, nil
}

// ActiveUserIDs returns who counts as present. Public channels read the
// activity store over the fixed activity window; all other types fall back
// to the member list.
func (c *Channel) ActiveUserIDs(ctx context.Context) ([]uint, error) {
	if c.Type == models.ChannelTypePublic {
		return c.svc.presence.ActiveUserIDs(ctx, c.ID, presence.ActivityTimeout)
	}
	return c.UserIDs(ctx)
}

// Messages returns up to limit messages with id greater than sinceID in id
// order. Public channels only serve the configured backlog window.
func (c *Channel) Messages(ctx context.Context, sinceID int64, limit int) ([]models.Message, error) {
	query := c.svc.db.WithContext(ctx).
		Where("channel_id = ? AND id > ?", c.ID, sinceID).
		Order("id ASC").
		Limit(limit)
	if c.Type == models.ChannelTypePublic {
		cutoff := time.Now().Add(-c.svc.cfg.PublicBacklog())
		query = query.Where("timestamp >= ?", cutoff)
	}

	var messages []models.Message
	if err := query.Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	return messages, nil
}

// MarkAsRead advances the user's read marker to messageID. The marker never
// moves backwards. Missing membership is a no-op.
func (c *Channel) MarkAsRead(ctx context.Context, user *models.User, messageID int64) error {
	err := c.svc.db.WithContext(ctx).
		Model(&models.UserChannel{}).
		Where("channel_id = ? AND user_id = ?", c.ID, user.ID).
		Update("last_read_id", gorm.Expr("GREATEST(COALESCE(last_read_id, 0), ?)", messageID)).Error
	if err != nil {
		return fmt.Errorf("failed to mark as read: %w", err)
	}
	c.invalidate()
	return nil
}

// UnreadCount derives the unread message count from the channel's last
// message id and the user's read marker.
func (c *Channel) UnreadCount(ctx context.Context, user *models.User) (int64, error) {
	uc, err := c.membership(ctx, user.ID)
	if err != nil {
		return 0, err
	}
	if uc == nil || c.LastMessageID == nil {
		return 0, nil
	}

	var lastRead int64
	if uc.LastReadID != nil {
		lastRead = *uc.LastReadID
	}

	var count int64
	err = c.svc.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("channel_id = ? AND id > ?", c.ID, lastRead).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

// pmCounterpart resolves the other party of a PM channel relative to user,
// preferring users pre-attached at construction time. Returns nil when the
// name does not encode two participants or the counterpart row is gone.
func (c *Channel) pmCounterpart(ctx context.Context, user *models.User) (*models.User, error) {
	ids := c.PMUserIDs()
	if len(ids) != 2 {
		return nil, nil
	}

	otherID := ids[0]
	if otherID == user.ID {
		otherID = ids[1]
	}

	if other, ok := c.users[otherID]; ok {
		return other, nil
	}

	var other models.User
	err := c.svc.db.WithContext(ctx).First(&other, otherID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pm counterpart: %w", err)
	}
	c.cacheUsers(&other)
	return &other, nil
}
