package models

import (
	"time"
)

// Room 多人游戏房间模型
// External entity as far as chat is concerned; a multiplayer channel can only
// be created for a room that has already been persisted.
type Room struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"not null;type:varchar(255)" json:"name"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Room) TableName() string {
	return "rooms"
}
