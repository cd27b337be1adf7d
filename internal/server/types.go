package server

const (
	statusWaiting = "waiting"
	statusPlaying = "playing"
	// statusFinished is part of the room status enum but no transition
	// sets it today.
	statusFinished = "finished"
)

const (
	msgJoin           = "join"
	msgLeave          = "leave"
	msgSettingsUpdate = "settings-update"
	msgStartGame      = "start-game"
	msgNewRound       = "new-round"
	msgResetGame      = "reset-game"
)

const minPlayersToStart = 3

type GameSettings struct {
	ImposterCount int    `json:"imposterCount"`
	Language      string `json:"language"`
	Category      string `json:"category"`
}

type Player struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	IsHost      bool   `json:"isHost"`
	IsReady     bool   `json:"isReady"`
}

// PlayerCard is a point-in-time projection made at deal time; cards are
// discarded and regenerated on every deal. Word is nil iff the player is
// an imposter.
type PlayerCard struct {
	PlayerID    string  `json:"playerId"`
	DisplayName string  `json:"displayName"`
	IsImposter  bool    `json:"isImposter"`
	Word        *string `json:"word"`
}

type RoomState struct {
	RoomID      string       `json:"roomId"`
	HostID      string       `json:"hostId"`
	Players     []Player     `json:"players"`
	Settings    GameSettings `json:"settings"`
	Status      string       `json:"status"`
	CurrentWord string       `json:"currentWord,omitempty"`
	Cards       []PlayerCard `json:"cards,omitempty"`
	GameKey     int          `json:"gameKey"`
}

func newRoomState(roomID string) *RoomState {
	return &RoomState{
		RoomID:  roomID,
		Players: []Player{},
		Settings: GameSettings{
			ImposterCount: 1,
		},
		Status: statusWaiting,
	}
}

type clientMessage struct {
	Type        string         `json:"type"`
	PlayerID    string         `json:"playerId"`
	DisplayName string         `json:"displayName"`
	Word        string         `json:"word"`
	Settings    *settingsPatch `json:"settings"`
}

// settingsPatch distinguishes absent fields from zero values so a partial
// settings-update only overwrites what the host actually sent.
type settingsPatch struct {
	ImposterCount *int    `json:"imposterCount"`
	Language      *string `json:"language"`
	Category      *string `json:"category"`
}

type syncMessage struct {
	Type  string     `json:"type"`
	State *RoomState `json:"state"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
