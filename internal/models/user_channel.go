package models

import (
	"time"
)

// UserChannel 频道成员模型
// One row per user per channel. For hideable channel types the row survives
// a leave with Hidden set, so read state is kept when the user comes back.
type UserChannel struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	ChannelID  uint   `gorm:"not null;uniqueIndex:idx_channel_user" json:"channel_id"`
	UserID     uint   `gorm:"not null;uniqueIndex:idx_channel_user;index" json:"user_id"`
	Hidden     bool   `gorm:"not null;default:false" json:"hidden"`
	LastReadID *int64 `json:"last_read_id"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`

	Channel *Channel `gorm:"foreignKey:ChannelID" json:"-"`
	User    *User    `gorm:"foreignKey:UserID" json:"-"`
}

func (UserChannel) TableName() string {
	return "user_channels"
}
