package db

import (
	"time"

	"gorm.io/datatypes"
)

// RoomState is the durable copy of one room's full in-memory state,
// replaced wholesale after every accepted command so a restarted process
// can resurrect the room.
type RoomState struct {
	RoomID    string         `gorm:"primaryKey;size:12"`
	State     datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}
