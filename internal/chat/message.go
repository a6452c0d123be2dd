package chat

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hikarin/chatcore/internal/models"
	"github.com/hikarin/chatcore/internal/ratelimit"
)

// ReceiveMessage validates, filters, persists, and fans out one message.
//
// Validation and the rate-limit check run before any mutation, so a
// rejection never leaves partial state. The message insert, last-message
// pointer, sender read marker, and PM un-hiding are one transaction;
// notification dispatch runs only after that transaction commits.
// relayID is an optional caller-supplied idempotency token carried on the
// stored message for delivery dedup.
func (c *Channel) ReceiveMessage(ctx context.Context, sender *models.User, content string, isAction bool, relayID string) (*models.Message, error) {
	if c.Type == models.ChannelTypeAnnounce {
		// Announcements keep their formatting; only reject blank bodies.
		if strings.TrimSpace(content) == "" {
			return nil, &EmptyMessageError{}
		}
	} else {
		content = normalizeContent(content)
		if content == "" {
			return nil, &EmptyMessageError{}
		}
	}

	limit := c.svc.cfg.PublicMessageLengthLimit
	if c.Type == models.ChannelTypeAnnounce {
		limit = c.svc.cfg.AnnounceMessageLengthLimit
	}
	if utf8.RuneCountInString(content) > limit {
		return nil, &MessageTooLongError{Limit: limit}
	}

	class := ratelimit.ClassPublic
	if c.Type == models.ChannelTypePM {
		class = ratelimit.ClassPM
	}
	allowed, err := c.svc.limiter.Allow(ctx, sender.ID, class)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, &RateLimitExceededError{Class: string(class)}
	}

	content = c.svc.filter.Apply(content)

	message := &models.Message{
		ChannelID: c.ID,
		SenderID:  sender.ID,
		Content:   content,
		IsAction:  isAction,
		UUID:      relayID,
		Timestamp: time.Now(),
	}

	err = c.svc.transact(ctx, func(tx *gorm.DB, after *postCommit) error {
		if err := tx.Create(message).Error; err != nil {
			return fmt.Errorf("failed to persist message: %w", err)
		}

		err := tx.Model(&models.Channel{}).
			Where("id = ?", c.ID).
			Update("last_message_id", message.ID).Error
		if err != nil {
			return fmt.Errorf("failed to update last message id: %w", err)
		}

		// Advance the sender's read marker; skipped silently when the
		// sender has no membership row.
		err = tx.Model(&models.UserChannel{}).
			Where("channel_id = ? AND user_id = ?", c.ID, sender.ID).
			Update("last_read_id", message.ID).Error
		if err != nil {
			return fmt.Errorf("failed to update read marker: %w", err)
		}

		if c.Type == models.ChannelTypePM {
			if err := c.unhideMemberships(ctx, tx, sender); err != nil {
				return err
			}
		}

		switch c.Type {
		case models.ChannelTypePM:
			after.add(func() {
				if err := c.svc.dispatcher.DispatchDirectMessage(ctx, message, sender); err != nil {
					c.svc.logger.Error("direct message dispatch failed",
						zap.Int64("message_id", message.ID), zap.Error(err))
				}
			})
		case models.ChannelTypeAnnounce:
			after.add(func() {
				if err := c.svc.dispatcher.DispatchAnnouncement(ctx, message, sender); err != nil {
					c.svc.logger.Error("announcement dispatch failed",
						zap.Int64("message_id", message.ID), zap.Error(err))
				}
			})
		}

		// The relay task is registered in a nested commit scope so it can
		// only fire once the outer transaction is durable.
		return tx.Transaction(func(nested *gorm.DB) error {
			after.add(func() {
				if err := c.svc.dispatcher.DispatchRelay(ctx, message); err != nil {
					c.svc.logger.Error("message relay dispatch failed",
						zap.Int64("message_id", message.ID), zap.Error(err))
				}
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	c.invalidate()
	c.LastMessageID = &message.ID

	if c.Type == models.ChannelTypePublic {
		if err := c.svc.presence.Touch(ctx, c.ID, sender.ID); err != nil {
			c.svc.logger.Warn("presence touch failed",
				zap.Uint("channel_id", c.ID), zap.Error(err))
		}
	}

	c.svc.metrics.Incr(EventSend, c.Type)
	return message, nil
}

// unhideMemberships restores every hidden membership on a PM channel when a
// message arrives and notifies the non-sender party once if anything was
// actually un-hidden. Runs inside the message transaction so a crash cannot
// separate the message from the un-hide.
func (c *Channel) unhideMemberships(ctx context.Context, tx *gorm.DB, sender *models.User) error {
	res := tx.Model(&models.UserChannel{}).
		Where("channel_id = ? AND hidden = ?", c.ID, true).
		Update("hidden", false)
	if res.Error != nil {
		return fmt.Errorf("failed to unhide pm memberships: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil
	}

	other, err := c.pmCounterpart(ctx, sender)
	if err != nil {
		return err
	}
	if other == nil {
		return nil
	}
	if err := c.svc.broadcaster.BroadcastJoin(ctx, c.Channel, other, true); err != nil {
		return fmt.Errorf("failed to broadcast pm join: %w", err)
	}
	return nil
}

// normalizeContent collapses CR and LF into single spaces and trims the
// result. Announcement channels bypass this.
func normalizeContent(content string) string {
	content = strings.NewReplacer("\r", " ", "\n", " ").Replace(content)
	return strings.TrimSpace(content)
}
