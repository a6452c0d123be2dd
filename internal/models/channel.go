package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ChannelType classifies a channel's behavior: who can see it, how leaving
// works, and which message limits apply.
type ChannelType string

const (
	ChannelTypeAnnounce    ChannelType = "announce"
	ChannelTypePublic      ChannelType = "public"
	ChannelTypePrivate     ChannelType = "private"
	ChannelTypeMultiplayer ChannelType = "multiplayer"
	ChannelTypeSpectator   ChannelType = "spectator"
	ChannelTypeTemporary   ChannelType = "temporary"
	ChannelTypePM          ChannelType = "pm"
	ChannelTypeGroup       ChannelType = "group"
)

// Hideable reports whether leaving a channel of this type soft-hides the
// membership instead of deleting it.
func (t ChannelType) Hideable() bool {
	return t == ChannelTypePM || t == ChannelTypeAnnounce
}

// Channel 频道模型
type Channel struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	Type          ChannelType `gorm:"not null;index;type:varchar(16)" json:"type"`
	Name          string      `gorm:"uniqueIndex;not null;type:varchar(255)" json:"name"`
	Description   string      `gorm:"not null;default:''" json:"description"`
	Moderated     bool        `gorm:"not null;default:false" json:"moderated"`
	AllowedGroups string      `gorm:"type:varchar(255)" json:"-"` // comma-delimited group ids
	ExternalID    string      `gorm:"type:varchar(64);index" json:"external_id,omitempty"`
	LastMessageID *int64      `json:"last_message_id"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Channel) TableName() string {
	return "channels"
}

const (
	pmNamePrefix          = "#pm_"
	multiplayerNamePrefix = "#lazermp_"
	banchoMatchNamePrefix = "#mp_"
)

// GetPMChannelName derives the canonical PM channel name for two users.
// The smaller id always comes first, so both call orders yield the same name.
func GetPMChannelName(a, b uint) string {
	return fmt.Sprintf("%s%d-%d", pmNamePrefix, min(a, b), max(a, b))
}

// MultiplayerChannelName derives the channel name backing a multiplayer room.
func MultiplayerChannelName(roomID uint) string {
	return fmt.Sprintf("%s%d", multiplayerNamePrefix, roomID)
}

// PMUserIDs parses the two participant ids encoded in a PM channel name.
// The name is the single source of truth for PM participants; membership
// rows are never consulted. Returns nil for non-PM or malformed names.
func (c *Channel) PMUserIDs() []uint {
	if c.Type != ChannelTypePM || !strings.HasPrefix(c.Name, pmNamePrefix) {
		return nil
	}
	parts := strings.SplitN(strings.TrimPrefix(c.Name, pmNamePrefix), "-", 2)
	if len(parts) != 2 {
		return nil
	}
	lo, err1 := strconv.ParseUint(parts[0], 10, 64)
	hi, err2 := strconv.ParseUint(parts[1], 10, 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	return []uint{uint(lo), uint(hi)}
}

// RoomID parses the multiplayer room id encoded in a "#lazermp_{id}" name.
func (c *Channel) RoomID() (uint, bool) {
	if c.Type != ChannelTypeMultiplayer {
		return 0, false
	}
	return parseNameSuffix(c.Name, multiplayerNamePrefix)
}

// MatchID parses the legacy bancho match id encoded in a "#mp_{id}" name.
// These channels carry type temporary rather than multiplayer.
func (c *Channel) MatchID() (uint, bool) {
	if c.Type != ChannelTypeTemporary {
		return 0, false
	}
	return parseNameSuffix(c.Name, banchoMatchNamePrefix)
}

// AllowedGroupIDs parses the stored delimited group id string. The stored
// string stays the single source of truth; nothing caches the parsed form.
func (c *Channel) AllowedGroupIDs() []uint {
	if c.AllowedGroups == "" {
		return nil
	}
	var ids []uint
	for _, part := range strings.Split(c.AllowedGroups, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids
}

// Hideable reports whether leaving this channel hides the membership
// instead of deleting it.
func (c *Channel) Hideable() bool {
	return c.Type.Hideable()
}

func parseNameSuffix(name, prefix string) (uint, bool) {
	if !strings.HasPrefix(name, prefix) {
		return 0, false
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(name, prefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
