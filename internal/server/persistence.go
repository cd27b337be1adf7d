package server

import (
	"encoding/json"
	"errors"
	"sync"

	"imposter-party/internal/db"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoomStore is the durable home of one room's full state. Save replaces
// the whole object; there are no partial writes.
type RoomStore interface {
	Load(roomID string) (*RoomState, error)
	Save(roomID string, state *RoomState) error
}

type gormRoomStore struct {
	db *gorm.DB
}

func newGormRoomStore(conn *gorm.DB) *gormRoomStore {
	return &gormRoomStore{db: conn}
}

func (s *gormRoomStore) Load(roomID string) (*RoomState, error) {
	var record db.RoomState
	if err := s.db.Where("room_id = ?", roomID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var state RoomState
	if err := json.Unmarshal(record.State, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *gormRoomStore) Save(roomID string, state *RoomState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	record := db.RoomState{
		RoomID: roomID,
		State:  datatypes.JSON(data),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "updated_at"}),
	}).Create(&record).Error
}

// memoryRoomStore backs tests and DB-less runs. It stores the marshaled
// form so Load always hands back an independent copy, the same way the
// database store does.
type memoryRoomStore struct {
	mu     sync.Mutex
	states map[string][]byte
}

func newMemoryRoomStore() *memoryRoomStore {
	return &memoryRoomStore{states: make(map[string][]byte)}
}

func (s *memoryRoomStore) Load(roomID string) (*RoomState, error) {
	s.mu.Lock()
	data, ok := s.states[roomID]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	var state RoomState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *memoryRoomStore) Save(roomID string, state *RoomState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.states[roomID] = data
	s.mu.Unlock()
	return nil
}
