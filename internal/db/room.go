package db

import (
	"time"

	"gorm.io/datatypes"
)

// Room is the directory record consumed by the lobby listing. The room
// server mirrors {status, players} into it as a side effect; the host
// client maintains words/usedWords through the PATCH surface.
type Room struct {
	ID            uint           `gorm:"primaryKey"`
	RoomID        string         `gorm:"size:12;uniqueIndex;not null"`
	GameType      string         `gorm:"size:32;index;not null"`
	HostID        string         `gorm:"size:64;not null"`
	HostName      string         `gorm:"size:64;not null"`
	Players       datatypes.JSON `gorm:"type:jsonb"`
	ImposterCount int            `gorm:"not null;default:1"`
	Language      string         `gorm:"size:32;not null;default:''"`
	Category      string         `gorm:"size:64;not null;default:''"`
	Status        string         `gorm:"size:16;index;not null;default:'waiting'"`
	CurrentWord   string         `gorm:"size:128"`
	Words         datatypes.JSON `gorm:"type:jsonb"`
	UsedWords     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt     time.Time      `gorm:"index;not null"`
	UpdatedAt     time.Time      `gorm:"not null"`
}
