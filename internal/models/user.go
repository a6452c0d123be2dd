package models

import (
	"time"
)

// User 用户模型
type User struct {
	ID uint `gorm:"primaryKey" json:"id"`

	UserName    string `gorm:"column:username;uniqueIndex;not null;type:varchar(255)" json:"username"`
	GroupID     uint   `gorm:"index" json:"group_id"`
	IsBot       bool   `gorm:"not null;default:false" json:"is_bot"`
	IsModerator bool   `gorm:"not null;default:false" json:"is_moderator"`
	IsAdmin     bool   `gorm:"not null;default:false" json:"is_admin"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Privileged reports whether the user holds a role that exempts them from
// block-based visibility rules.
func (u *User) Privileged() bool {
	return u.IsBot || u.IsModerator || u.IsAdmin
}

// UserRelation 用户关系模型
// Directed: UserID's stance toward TargetID.
type UserRelation struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	UserID   uint `gorm:"not null;uniqueIndex:idx_user_target" json:"user_id"`
	TargetID uint `gorm:"not null;uniqueIndex:idx_user_target" json:"target_id"`
	Blocked  bool `gorm:"not null;default:false" json:"blocked"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (UserRelation) TableName() string {
	return "user_relations"
}
