package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hikarin/chatcore/config"
	"github.com/hikarin/chatcore/internal/models"
	"github.com/hikarin/chatcore/internal/presence"
	"github.com/hikarin/chatcore/internal/ratelimit"
)

// Service 频道消息服务
// The aggregate root for channels: construction, message ingestion,
// membership, and visibility. Every multi-write operation runs inside one
// transaction; notification fan-out runs post-commit only.
type Service struct {
	db          *gorm.DB
	cfg         config.ChatConfig
	limiter     *ratelimit.Limiter
	filter      *ContentFilter
	presence    *presence.Store
	dispatcher  NotificationDispatcher
	broadcaster EventBroadcaster
	relations   RelationChecker
	metrics     Recorder
	logger      *zap.Logger
}

func NewService(
	db *gorm.DB,
	cfg config.ChatConfig,
	limiter *ratelimit.Limiter,
	filter *ContentFilter,
	presenceStore *presence.Store,
	dispatcher NotificationDispatcher,
	broadcaster EventBroadcaster,
	relations RelationChecker,
	metrics Recorder,
	logger *zap.Logger,
) *Service {
	return &Service{
		db:          db,
		cfg:         cfg,
		limiter:     limiter,
		filter:      filter,
		presence:    presenceStore,
		dispatcher:  dispatcher,
		broadcaster: broadcaster,
		relations:   relations,
		metrics:     metrics,
		logger:      logger,
	}
}

// Create persists a channel of any non-PM type after validating its name and
// description. No memberships are created; callers add users afterwards.
func (s *Service) Create(ctx context.Context, channel *models.Channel) (*Channel, error) {
	channel.Name = strings.TrimSpace(channel.Name)
	channel.Description = strings.TrimSpace(channel.Description)
	if channel.Name == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if channel.Description == "" {
		return nil, &ValidationError{Field: "description", Reason: "must not be empty"}
	}

	err := s.transact(ctx, func(tx *gorm.DB, after *postCommit) error {
		if err := tx.Create(channel).Error; err != nil {
			return fmt.Errorf("failed to create channel: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Incr(EventCreate, channel.Type)
	return s.wrap(channel), nil
}

// CreateAnnouncement creates a moderated announcement channel with the given
// members. externalID is an optional caller-side reference carried on the
// channel row. Channel row, membership rows, and the per-member join
// broadcasts are one atomic unit; a failed broadcast rolls everything back.
func (s *Service) CreateAnnouncement(ctx context.Context, users []*models.User, name, description, externalID string) (*Channel, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if description == "" {
		return nil, &ValidationError{Field: "description", Reason: "must not be empty"}
	}

	channel := &models.Channel{
		Type:        models.ChannelTypeAnnounce,
		Name:        name,
		Description: description,
		Moderated:   true,
		ExternalID:  externalID,
	}

	err := s.transact(ctx, func(tx *gorm.DB, after *postCommit) error {
		if err := tx.Create(channel).Error; err != nil {
			return fmt.Errorf("failed to create announcement channel: %w", err)
		}
		memberships := make([]*models.UserChannel, 0, len(users))
		for _, user := range users {
			memberships = append(memberships, &models.UserChannel{
				ChannelID: channel.ID,
				UserID:    user.ID,
			})
		}
		if len(memberships) > 0 {
			if err := tx.Create(&memberships).Error; err != nil {
				return fmt.Errorf("failed to create announcement memberships: %w", err)
			}
		}
		for _, user := range users {
			if err := s.broadcaster.BroadcastJoin(ctx, channel, user, true); err != nil {
				return fmt.Errorf("failed to broadcast join: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Incr(EventCreate, channel.Type)
	return s.wrap(channel), nil
}

// CreateMultiplayer creates the chat channel backing a multiplayer room.
// The room must already be persisted; calling this with an unsaved room is a
// bug in the caller, guarded before any write happens.
func (s *Service) CreateMultiplayer(ctx context.Context, room *models.Room) (*Channel, error) {
	if room == nil || room.ID == 0 {
		return nil, &InvariantViolation{Reason: "room must be persisted before creating its channel"}
	}

	channel := &models.Channel{
		Type:        models.ChannelTypeMultiplayer,
		Name:        models.MultiplayerChannelName(room.ID),
		Description: room.Name,
	}

	err := s.transact(ctx, func(tx *gorm.DB, after *postCommit) error {
		if err := tx.Create(channel).Error; err != nil {
			return fmt.Errorf("failed to create multiplayer channel: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Incr(EventCreate, channel.Type)
	return s.wrap(channel), nil
}

// CreatePM creates the PM channel between two users and adds both as
// members in the same transaction. The description is forced to the empty
// string; PM channels never carry one but the column stays non-null.
func (s *Service) CreatePM(ctx context.Context, userA, userB *models.User) (*Channel, error) {
	channel := &models.Channel{
		Type:        models.ChannelTypePM,
		Name:        models.GetPMChannelName(userA.ID, userB.ID),
		Description: "",
	}

	err := s.transact(ctx, func(tx *gorm.DB, after *postCommit) error {
		if err := tx.Create(channel).Error; err != nil {
			return fmt.Errorf("failed to create pm channel: %w", err)
		}
		memberships := []*models.UserChannel{
			{ChannelID: channel.ID, UserID: userA.ID},
			{ChannelID: channel.ID, UserID: userB.ID},
		}
		if err := tx.Create(&memberships).Error; err != nil {
			return fmt.Errorf("failed to create pm memberships: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Incr(EventCreate, channel.Type)

	ch := s.wrap(channel)
	ch.cacheUsers(userA, userB)
	return ch, nil
}

// FindPM looks up the PM channel between two users by its deterministic
// name. Absence is a valid outcome: both return values are nil when no such
// channel exists.
func (s *Service) FindPM(ctx context.Context, userA, userB *models.User) (*Channel, error) {
	var channel models.Channel
	err := s.db.WithContext(ctx).
		Where("name = ? AND type = ?", models.GetPMChannelName(userA.ID, userB.ID), models.ChannelTypePM).
		First(&channel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up pm channel: %w", err)
	}

	ch := s.wrap(&channel)
	ch.cacheUsers(userA, userB)
	return ch, nil
}

// FindByID loads a channel row and binds it to this service.
func (s *Service) FindByID(ctx context.Context, id uint) (*Channel, error) {
	var channel models.Channel
	if err := s.db.WithContext(ctx).First(&channel, id).Error; err != nil {
		return nil, fmt.Errorf("failed to load channel %d: %w", id, err)
	}
	return s.wrap(&channel), nil
}

// wrap binds a channel row to the service for the lifetime of one request.
// The returned instance owns a private membership cache; it must not be
// shared across requests.
func (s *Service) wrap(channel *models.Channel) *Channel {
	return &Channel{
		Channel: channel,
		svc:     s,
	}
}
