package server

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialRoom(t *testing.T, tsURL, roomID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(tsURL, "http") + "/ws/rooms/" + roomID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readServerMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read websocket message: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("decode websocket message: %v", err)
	}
	return decoded
}

func readSyncState(t *testing.T, conn *websocket.Conn, timeout time.Duration) map[string]any {
	t.Helper()
	msg := readServerMessage(t, conn, timeout)
	if msg["type"] != "sync" {
		t.Fatalf("expected sync message, got %v", msg)
	}
	state, ok := msg["state"].(map[string]any)
	if !ok {
		t.Fatalf("sync without state: %v", msg)
	}
	return state
}

func sendMessage(t *testing.T, conn *websocket.Conn, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal client message: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write websocket message: %v", err)
	}
}

func TestWebsocketSnapshotOnConnect(t *testing.T) {
	_, ts := newMemoryServer(t)
	conn := dialRoom(t, ts.URL, "ABC123")

	state := readSyncState(t, conn, 5*time.Second)
	if state["roomId"] != "ABC123" {
		t.Fatalf("expected roomId ABC123, got %v", state["roomId"])
	}
	if state["status"] != "waiting" {
		t.Fatalf("expected waiting room, got %v", state["status"])
	}
	if players, ok := state["players"].([]any); !ok || len(players) != 0 {
		t.Fatalf("expected empty players, got %v", state["players"])
	}
}

func TestWebsocketJoinBroadcastsToAll(t *testing.T) {
	_, ts := newMemoryServer(t)
	first := dialRoom(t, ts.URL, "ABC123")
	second := dialRoom(t, ts.URL, "ABC123")
	readSyncState(t, first, 5*time.Second)
	readSyncState(t, second, 5*time.Second)

	sendMessage(t, first, map[string]any{
		"type":        "join",
		"playerId":    "p1",
		"displayName": "Ada",
	})

	for _, conn := range []*websocket.Conn{first, second} {
		state := readSyncState(t, conn, 5*time.Second)
		players, ok := state["players"].([]any)
		if !ok || len(players) != 1 {
			t.Fatalf("expected 1 player in broadcast, got %v", state["players"])
		}
		player := players[0].(map[string]any)
		if player["playerId"] != "p1" || player["isHost"] != true {
			t.Fatalf("expected p1 as host, got %v", player)
		}
		if state["hostId"] != "p1" {
			t.Fatalf("expected hostId p1, got %v", state["hostId"])
		}
	}
}

func TestWebsocketLateJoinerSeesCurrentState(t *testing.T) {
	_, ts := newMemoryServer(t)
	first := dialRoom(t, ts.URL, "ABC123")
	readSyncState(t, first, 5*time.Second)
	sendMessage(t, first, map[string]any{
		"type":        "join",
		"playerId":    "p1",
		"displayName": "Ada",
	})
	readSyncState(t, first, 5*time.Second)

	late := dialRoom(t, ts.URL, "ABC123")
	state := readSyncState(t, late, 5*time.Second)
	if players, ok := state["players"].([]any); !ok || len(players) != 1 {
		t.Fatalf("late joiner must see current players, got %v", state["players"])
	}
}

func TestWebsocketMalformedInputErrorsSenderOnly(t *testing.T) {
	_, ts := newMemoryServer(t)
	offender := dialRoom(t, ts.URL, "ABC123")
	bystander := dialRoom(t, ts.URL, "ABC123")
	readSyncState(t, offender, 5*time.Second)
	readSyncState(t, bystander, 5*time.Second)

	if err := offender.WriteMessage(websocket.TextMessage, []byte(`{"type":`)); err != nil {
		t.Fatalf("write malformed message: %v", err)
	}

	msg := readServerMessage(t, offender, 5*time.Second)
	if msg["type"] != "error" {
		t.Fatalf("expected error reply, got %v", msg)
	}
	if msg["message"] != "Invalid message format" {
		t.Fatalf("unexpected error message %v", msg["message"])
	}

	_ = bystander.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, _, err := bystander.ReadMessage(); err == nil {
		t.Fatalf("bystander must not receive anything for malformed input")
	}
}

func TestWebsocketFullGameFlow(t *testing.T) {
	_, ts := newMemoryServer(t)
	conn := dialRoom(t, ts.URL, "ABC123")
	readSyncState(t, conn, 5*time.Second)

	for _, player := range []struct{ id, name string }{
		{"p1", "Ada"}, {"p2", "Ben"}, {"p3", "Cam"},
	} {
		sendMessage(t, conn, map[string]any{
			"type":        "join",
			"playerId":    player.id,
			"displayName": player.name,
		})
		readSyncState(t, conn, 5*time.Second)
	}

	sendMessage(t, conn, map[string]any{
		"type":     "start-game",
		"playerId": "p1",
		"word":     "tiger",
	})
	state := readSyncState(t, conn, 5*time.Second)
	if state["status"] != "playing" {
		t.Fatalf("expected playing, got %v", state["status"])
	}
	if state["gameKey"] != float64(1) {
		t.Fatalf("expected gameKey 1, got %v", state["gameKey"])
	}
	cards, ok := state["cards"].([]any)
	if !ok || len(cards) != 3 {
		t.Fatalf("expected 3 cards, got %v", state["cards"])
	}
	nullWords := 0
	for _, raw := range cards {
		card := raw.(map[string]any)
		if card["word"] == nil {
			nullWords++
			if card["isImposter"] != true {
				t.Fatalf("nil word on non-imposter card: %v", card)
			}
		} else if card["word"] != "tiger" {
			t.Fatalf("unexpected word on card: %v", card)
		}
	}
	if nullWords != 1 {
		t.Fatalf("expected exactly 1 imposter card, got %d", nullWords)
	}

	sendMessage(t, conn, map[string]any{
		"type":     "reset-game",
		"playerId": "p1",
	})
	state = readSyncState(t, conn, 5*time.Second)
	if state["status"] != "waiting" {
		t.Fatalf("expected waiting after reset, got %v", state["status"])
	}
	if _, present := state["cards"]; present {
		t.Fatalf("expected cards omitted after reset, got %v", state["cards"])
	}
}

func TestWebsocketRoomStateSurvivesReconnect(t *testing.T) {
	_, ts := newMemoryServer(t)
	conn := dialRoom(t, ts.URL, "ABC123")
	readSyncState(t, conn, 5*time.Second)
	sendMessage(t, conn, map[string]any{
		"type":        "join",
		"playerId":    "p1",
		"displayName": "Ada",
	})
	readSyncState(t, conn, 5*time.Second)

	// Drop without a leave: the seat must still be there on reconnect.
	_ = conn.Close()

	again := dialRoom(t, ts.URL, "ABC123")
	state := readSyncState(t, again, 5*time.Second)
	players, ok := state["players"].([]any)
	if !ok || len(players) != 1 {
		t.Fatalf("expected stale seat preserved, got %v", state["players"])
	}
}
