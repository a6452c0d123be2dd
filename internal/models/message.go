package models

import (
	"time"
)

// Message 消息模型
// Immutable once created. The id is assigned by the database at commit time
// and is the total order for messages within a channel.
type Message struct {
	ID        int64  `gorm:"primaryKey" json:"id"`
	ChannelID uint   `gorm:"not null;index" json:"channel_id"`
	SenderID  uint   `gorm:"not null;index" json:"sender_id"`
	Content   string `gorm:"type:text;not null" json:"content"`
	IsAction  bool   `gorm:"not null;default:false" json:"is_action"`
	UUID      string `gorm:"type:varchar(64)" json:"uuid,omitempty"` // client relay id for delivery dedup

	Timestamp time.Time `gorm:"not null" json:"timestamp"`

	Sender *User `gorm:"foreignKey:SenderID" json:"-"`
}

func (Message) TableName() string {
	return "messages"
}
