package server

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/gorilla/websocket"
)

const (
	rejectedNotHost       = "not host"
	rejectedNotWaiting    = "room not in waiting status"
	rejectedTooFewPlayers = "not enough players"
	rejectedUnknownPlayer = "player not in room"
)

// applyResult reports what a command did. Rejections are silent on the
// wire; the reason exists for logging and tests.
type applyResult struct {
	applied         bool
	reason          string
	deleteDirectory bool
}

func applied() applyResult {
	return applyResult{applied: true}
}

func rejected(reason string) applyResult {
	return applyResult{reason: reason}
}

const (
	eventConnect = iota
	eventMessage
)

type roomEvent struct {
	kind    int
	conn    *websocket.Conn
	payload []byte
}

// Room owns the authoritative state for one room identifier. All
// mutations flow through its inbox and are applied by a single goroutine,
// so no locking is needed around the state itself.
type Room struct {
	id        string
	state     *RoomState
	store     RoomStore
	directory DirectoryStore
	hub       *wsHub
	inbox     chan roomEvent
}

func newRoom(id string, state *RoomState, store RoomStore, directory DirectoryStore, hub *wsHub) *Room {
	if state == nil {
		state = newRoomState(id)
	}
	return &Room{
		id:        id,
		state:     state,
		store:     store,
		directory: directory,
		hub:       hub,
		inbox:     make(chan roomEvent, 64),
	}
}

func (r *Room) run() {
	for event := range r.inbox {
		switch event.kind {
		case eventConnect:
			r.hub.Send(event.conn, syncMessage{Type: "sync", State: r.state})
		case eventMessage:
			r.handleMessage(event.payload, event.conn)
		}
	}
}

// Connect queues the snapshot unicast for a new connection. It runs ahead
// of any command from that connection, so a late joiner can render the
// room before sending its own join.
func (r *Room) Connect(conn *websocket.Conn) {
	r.inbox <- roomEvent{kind: eventConnect, conn: conn}
}

// Deliver queues one raw client message for processing.
func (r *Room) Deliver(payload []byte, conn *websocket.Conn) {
	r.inbox <- roomEvent{kind: eventMessage, conn: conn, payload: payload}
}

func (r *Room) handleMessage(payload []byte, conn *websocket.Conn) {
	msg, err := decodeClientMessage(payload)
	if err != nil {
		if conn != nil {
			r.hub.Send(conn, errorMessage{Type: "error", Message: "Invalid message format"})
		}
		return
	}

	result := r.apply(msg)
	if !result.applied {
		log.Printf("command rejected room_id=%s type=%s player_id=%s reason=%q", r.id, msg.Type, msg.PlayerID, result.reason)
	}

	// Persist before broadcasting so clients never render state that
	// would be lost by a crash.
	if err := r.store.Save(r.id, r.state); err != nil {
		log.Printf("room state save failed room_id=%s error=%v", r.id, err)
	}
	r.hub.Broadcast(r.id, syncMessage{Type: "sync", State: r.state})

	// Detached: the in-room transition never blocks on, or is rolled
	// back by, the lobby mirror.
	switch msg.Type {
	case msgJoin, msgLeave, msgStartGame, msgResetGame:
		if r.directory != nil {
			if result.deleteDirectory {
				go r.directoryDelete()
			} else {
				status := r.state.Status
				players := directoryPlayers(r.state.Players)
				go r.directoryUpsert(status, players)
			}
		}
	}
}

// directoryUpsert mirrors {status, players} into the lobby directory.
// Best effort: failures are logged and never retried or surfaced to
// players.
func (r *Room) directoryUpsert(status string, players []DirectoryPlayer) {
	patch := RoomPatch{Status: &status, Players: &players}
	if _, err := r.directory.Patch(r.id, patch); err != nil {
		log.Printf("directory sync failed room_id=%s error=%v", r.id, err)
	}
}

// directoryDelete drops the lobby listing once the room has emptied. The
// persisted room state is kept, so a reconnecting player can resurrect
// the room until storage eviction.
func (r *Room) directoryDelete() {
	if err := r.directory.Delete(r.id); err != nil {
		log.Printf("directory delete failed room_id=%s error=%v", r.id, err)
	}
}

func decodeClientMessage(payload []byte) (clientMessage, error) {
	var msg clientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	switch msg.Type {
	case msgJoin, msgLeave, msgSettingsUpdate, msgStartGame, msgNewRound, msgResetGame:
		return msg, nil
	default:
		return msg, fmt.Errorf("unknown message type %q", msg.Type)
	}
}

func (r *Room) apply(msg clientMessage) applyResult {
	switch msg.Type {
	case msgJoin:
		return r.handleJoin(msg.PlayerID, msg.DisplayName)
	case msgLeave:
		return r.handleLeave(msg.PlayerID)
	case msgSettingsUpdate:
		return r.handleSettingsUpdate(msg.PlayerID, msg.Settings)
	case msgStartGame:
		return r.handleStartGame(msg.PlayerID, msg.Word)
	case msgNewRound:
		return r.handleNewRound(msg.PlayerID, msg.Word)
	case msgResetGame:
		return r.handleResetGame(msg.PlayerID)
	}
	return rejected("unknown command")
}

func (r *Room) handleJoin(playerID, displayName string) applyResult {
	for i := range r.state.Players {
		if r.state.Players[i].PlayerID == playerID {
			r.state.Players[i].DisplayName = displayName
			return applied()
		}
	}

	isHost := len(r.state.Players) == 0
	if isHost {
		r.state.HostID = playerID
	}
	r.state.Players = append(r.state.Players, Player{
		PlayerID:    playerID,
		DisplayName: displayName,
		IsHost:      isHost,
	})
	log.Printf("player joined room_id=%s player_id=%s host=%t", r.id, playerID, isHost)
	return applied()
}

func (r *Room) handleLeave(playerID string) applyResult {
	found := false
	players := r.state.Players[:0]
	for _, player := range r.state.Players {
		if player.PlayerID == playerID {
			found = true
			continue
		}
		players = append(players, player)
	}
	r.state.Players = players
	if !found {
		return rejected(rejectedUnknownPlayer)
	}

	// Host migration: the earliest-joined remaining player inherits.
	if r.state.HostID == playerID && len(r.state.Players) > 0 {
		r.state.HostID = r.state.Players[0].PlayerID
		r.state.Players[0].IsHost = true
	}

	if r.state.Cards != nil {
		cards := r.state.Cards[:0]
		for _, card := range r.state.Cards {
			if card.PlayerID == playerID {
				continue
			}
			cards = append(cards, card)
		}
		r.state.Cards = cards
	}

	log.Printf("player left room_id=%s player_id=%s remaining=%d", r.id, playerID, len(r.state.Players))
	if len(r.state.Players) == 0 {
		r.state.HostID = ""
		result := applied()
		result.deleteDirectory = true
		return result
	}
	return applied()
}

func (r *Room) handleSettingsUpdate(playerID string, patch *settingsPatch) applyResult {
	if playerID != r.state.HostID {
		return rejected(rejectedNotHost)
	}
	if r.state.Status != statusWaiting {
		return rejected(rejectedNotWaiting)
	}
	if patch == nil {
		return applied()
	}
	if patch.ImposterCount != nil {
		r.state.Settings.ImposterCount = *patch.ImposterCount
	}
	if patch.Language != nil {
		r.state.Settings.Language = *patch.Language
	}
	if patch.Category != nil {
		r.state.Settings.Category = *patch.Category
	}
	return applied()
}

func (r *Room) handleStartGame(playerID, word string) applyResult {
	if playerID != r.state.HostID {
		return rejected(rejectedNotHost)
	}
	if len(r.state.Players) < minPlayersToStart {
		return rejected(rejectedTooFewPlayers)
	}

	r.state.Status = statusPlaying
	r.deal(word)
	log.Printf("game started room_id=%s game_key=%d players=%d", r.id, r.state.GameKey, len(r.state.Players))
	return applied()
}

// handleNewRound redeals without re-entering playing or re-checking the
// player count; a round can continue after players drop below the start
// threshold.
func (r *Room) handleNewRound(playerID, word string) applyResult {
	if playerID != r.state.HostID {
		return rejected(rejectedNotHost)
	}
	r.deal(word)
	return applied()
}

func (r *Room) handleResetGame(playerID string) applyResult {
	if playerID != r.state.HostID {
		return rejected(rejectedNotHost)
	}
	r.state.Status = statusWaiting
	r.state.CurrentWord = ""
	r.state.Cards = nil
	log.Printf("game reset room_id=%s", r.id)
	return applied()
}

func (r *Room) deal(word string) {
	imposterCount := r.state.Settings.ImposterCount
	if imposterCount < 1 {
		imposterCount = 1
	}
	r.state.CurrentWord = word
	r.state.GameKey++
	r.state.Cards = dealCards(r.state.Players, imposterCount, word)
}
