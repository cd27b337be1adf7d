package server

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"imposter-party/internal/db"

	"github.com/jackc/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrRoomNotFound is returned by directory lookups and patches for
// unknown room identifiers.
var ErrRoomNotFound = errors.New("room not found")

// DirectoryPlayer is the lobby's view of a seated player.
type DirectoryPlayer struct {
	PlayerID    string    `json:"playerId"`
	DisplayName string    `json:"displayName"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// RoomRecord is the directory listing consumed by the lobby UI.
type RoomRecord struct {
	RoomID      string            `json:"roomId"`
	GameType    string            `json:"gameType"`
	HostID      string            `json:"hostId"`
	HostName    string            `json:"hostName"`
	Players     []DirectoryPlayer `json:"players"`
	Settings    GameSettings      `json:"settings"`
	Status      string            `json:"status"`
	CurrentWord string            `json:"currentWord,omitempty"`
	Words       []string          `json:"words"`
	UsedWords   []string          `json:"usedWords"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// RoomPatch carries a partial directory update; nil fields are left
// untouched.
type RoomPatch struct {
	Settings    *GameSettings      `json:"settings"`
	Status      *string            `json:"status"`
	CurrentWord *string            `json:"currentWord"`
	Words       *[]string          `json:"words"`
	UsedWords   *[]string          `json:"usedWords"`
	Players     *[]DirectoryPlayer `json:"players"`
}

// DirectoryStore holds the room listings. The room actor only patches and
// deletes; the HTTP surface uses the rest.
type DirectoryStore interface {
	List(gameType string, limit int) ([]RoomRecord, error)
	Get(roomID string) (*RoomRecord, error)
	Create(gameType, hostID, hostName string) (*RoomRecord, error)
	Patch(roomID string, patch RoomPatch) (*RoomRecord, error)
	Delete(roomID string) error
	Purge(olderThan time.Time) (int64, error)
}

func directoryPlayers(players []Player) []DirectoryPlayer {
	now := time.Now().UTC()
	list := make([]DirectoryPlayer, 0, len(players))
	for _, player := range players {
		list = append(list, DirectoryPlayer{
			PlayerID:    player.PlayerID,
			DisplayName: player.DisplayName,
			JoinedAt:    now,
		})
	}
	return list
}

const roomCodeAttempts = 5

type gormDirectory struct {
	db *gorm.DB
}

func newGormDirectory(conn *gorm.DB) *gormDirectory {
	return &gormDirectory{db: conn}
}

func (d *gormDirectory) List(gameType string, limit int) ([]RoomRecord, error) {
	var records []db.Room
	err := d.db.
		Where("game_type = ? AND status IN ?", gameType, []string{statusWaiting, statusPlaying}).
		Order("created_at desc").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	rooms := make([]RoomRecord, 0, len(records))
	for i := range records {
		rooms = append(rooms, recordFromRow(&records[i]))
	}
	return rooms, nil
}

func (d *gormDirectory) Get(roomID string) (*RoomRecord, error) {
	var row db.Room
	if err := d.db.Where("room_id = ?", roomID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	record := recordFromRow(&row)
	return &record, nil
}

func (d *gormDirectory) Create(gameType, hostID, hostName string) (*RoomRecord, error) {
	for attempt := 0; attempt < roomCodeAttempts; attempt++ {
		row := db.Room{
			RoomID:        newRoomCode(),
			GameType:      gameType,
			HostID:        hostID,
			HostName:      hostName,
			Players:       mustJSON(directoryPlayers([]Player{{PlayerID: hostID, DisplayName: hostName}})),
			ImposterCount: 1,
			Status:        statusWaiting,
			Words:         mustJSON([]string{}),
			UsedWords:     mustJSON([]string{}),
		}
		err := d.db.Create(&row).Error
		if err == nil {
			record := recordFromRow(&row)
			return &record, nil
		}
		if isUniqueViolation(err) {
			continue
		}
		return nil, err
	}
	return nil, errors.New("could not allocate room code")
}

func (d *gormDirectory) Patch(roomID string, patch RoomPatch) (*RoomRecord, error) {
	updates := map[string]any{}
	if patch.Settings != nil {
		updates["imposter_count"] = patch.Settings.ImposterCount
		updates["language"] = patch.Settings.Language
		updates["category"] = patch.Settings.Category
	}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	if patch.CurrentWord != nil {
		updates["current_word"] = *patch.CurrentWord
	}
	if patch.Words != nil {
		updates["words"] = mustJSON(*patch.Words)
	}
	if patch.UsedWords != nil {
		updates["used_words"] = mustJSON(*patch.UsedWords)
	}
	if patch.Players != nil {
		updates["players"] = mustJSON(*patch.Players)
	}
	if len(updates) > 0 {
		result := d.db.Model(&db.Room{}).Where("room_id = ?", roomID).Updates(updates)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, ErrRoomNotFound
		}
	}
	return d.Get(roomID)
}

func (d *gormDirectory) Delete(roomID string) error {
	return d.db.Where("room_id = ?", roomID).Delete(&db.Room{}).Error
}

func (d *gormDirectory) Purge(olderThan time.Time) (int64, error) {
	result := d.db.Where("created_at < ?", olderThan).Delete(&db.Room{})
	return result.RowsAffected, result.Error
}

func recordFromRow(row *db.Room) RoomRecord {
	record := RoomRecord{
		RoomID:   row.RoomID,
		GameType: row.GameType,
		HostID:   row.HostID,
		HostName: row.HostName,
		Settings: GameSettings{
			ImposterCount: row.ImposterCount,
			Language:      row.Language,
			Category:      row.Category,
		},
		Status:      row.Status,
		CurrentWord: row.CurrentWord,
		Players:     []DirectoryPlayer{},
		Words:       []string{},
		UsedWords:   []string{},
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if len(row.Players) > 0 {
		_ = json.Unmarshal(row.Players, &record.Players)
	}
	if len(row.Words) > 0 {
		_ = json.Unmarshal(row.Words, &record.Words)
	}
	if len(row.UsedWords) > 0 {
		_ = json.Unmarshal(row.UsedWords, &record.UsedWords)
	}
	return record
}

func mustJSON(value any) datatypes.JSON {
	data, err := json.Marshal(value)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(data)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// memoryDirectory backs tests and DB-less runs.
type memoryDirectory struct {
	mu    sync.Mutex
	rooms map[string]*RoomRecord
}

func newMemoryDirectory() *memoryDirectory {
	return &memoryDirectory{rooms: make(map[string]*RoomRecord)}
}

func (d *memoryDirectory) List(gameType string, limit int) ([]RoomRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := make([]RoomRecord, 0, len(d.rooms))
	for _, record := range d.rooms {
		if record.GameType != gameType {
			continue
		}
		if record.Status != statusWaiting && record.Status != statusPlaying {
			continue
		}
		list = append(list, *record)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (d *memoryDirectory) Get(roomID string) (*RoomRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	record, ok := d.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	copied := *record
	return &copied, nil
}

func (d *memoryDirectory) Create(gameType, hostID, hostName string) (*RoomRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for attempt := 0; attempt < roomCodeAttempts; attempt++ {
		code := newRoomCode()
		if _, exists := d.rooms[code]; exists {
			continue
		}
		now := time.Now().UTC()
		record := &RoomRecord{
			RoomID:   code,
			GameType: gameType,
			HostID:   hostID,
			HostName: hostName,
			Players:  directoryPlayers([]Player{{PlayerID: hostID, DisplayName: hostName}}),
			Settings: GameSettings{
				ImposterCount: 1,
			},
			Status:    statusWaiting,
			Words:     []string{},
			UsedWords: []string{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		d.rooms[code] = record
		copied := *record
		return &copied, nil
	}
	return nil, errors.New("could not allocate room code")
}

func (d *memoryDirectory) Patch(roomID string, patch RoomPatch) (*RoomRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	record, ok := d.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if patch.Settings != nil {
		record.Settings = *patch.Settings
	}
	if patch.Status != nil {
		record.Status = *patch.Status
	}
	if patch.CurrentWord != nil {
		record.CurrentWord = *patch.CurrentWord
	}
	if patch.Words != nil {
		record.Words = *patch.Words
	}
	if patch.UsedWords != nil {
		record.UsedWords = *patch.UsedWords
	}
	if patch.Players != nil {
		record.Players = *patch.Players
	}
	record.UpdatedAt = time.Now().UTC()
	copied := *record
	return &copied, nil
}

func (d *memoryDirectory) Delete(roomID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.rooms, roomID)
	return nil
}

func (d *memoryDirectory) Purge(olderThan time.Time) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var purged int64
	for id, record := range d.rooms {
		if record.CreatedAt.Before(olderThan) {
			delete(d.rooms, id)
			purged++
		}
	}
	return purged, nil
}
