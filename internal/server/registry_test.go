package server

import "testing"

func TestRegistryLazyConstruction(t *testing.T) {
	store := newMemoryRoomStore()
	registry := newRegistry(store, nil, newWSHub())

	if _, ok := registry.Lookup("ABC123"); ok {
		t.Fatalf("room must not exist before first lookup")
	}
	room := registry.GetOrCreate("ABC123")
	if room == nil {
		t.Fatalf("expected a room")
	}
	if again := registry.GetOrCreate("ABC123"); again != room {
		t.Fatalf("expected the same actor instance on repeat lookup")
	}
	if other := registry.GetOrCreate("XYZ789"); other == room {
		t.Fatalf("rooms must be isolated per identifier")
	}
	if room.state.Status != statusWaiting || len(room.state.Players) != 0 {
		t.Fatalf("fresh room must start waiting and empty, got %+v", room.state)
	}
}

func TestRegistryResurrectsPersistedRoom(t *testing.T) {
	store := newMemoryRoomStore()
	state := newRoomState("ABC123")
	state.Players = []Player{
		{PlayerID: "p1", DisplayName: "Ada", IsHost: true},
		{PlayerID: "p2", DisplayName: "Ben"},
	}
	state.HostID = "p1"
	state.Status = statusPlaying
	state.GameKey = 3
	if err := store.Save("ABC123", state); err != nil {
		t.Fatalf("save: %v", err)
	}

	// A fresh registry stands in for a restarted process.
	registry := newRegistry(store, nil, newWSHub())
	room := registry.GetOrCreate("ABC123")
	if len(room.state.Players) != 2 || room.state.HostID != "p1" {
		t.Fatalf("expected restored players, got %+v", room.state)
	}
	if room.state.Status != statusPlaying || room.state.GameKey != 3 {
		t.Fatalf("expected restored game state, got %+v", room.state)
	}
}

func TestMemoryRoomStoreRoundTrip(t *testing.T) {
	store := newMemoryRoomStore()

	loaded, err := store.Load("NOPE42")
	if err != nil || loaded != nil {
		t.Fatalf("absent room must load as nil, got %+v err=%v", loaded, err)
	}

	state := newRoomState("ABC123")
	state.Players = []Player{{PlayerID: "p1", DisplayName: "Ada", IsHost: true}}
	word := "tiger"
	state.Cards = []PlayerCard{{PlayerID: "p1", DisplayName: "Ada", Word: &word}}
	if err := store.Save("ABC123", state); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Mutating the original must not leak into the stored copy.
	state.Players[0].DisplayName = "changed"

	loaded, err = store.Load("ABC123")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Players[0].DisplayName != "Ada" {
		t.Fatalf("store must hold an independent copy, got %q", loaded.Players[0].DisplayName)
	}
	if loaded.Cards[0].Word == nil || *loaded.Cards[0].Word != "tiger" {
		t.Fatalf("card word lost in round trip: %+v", loaded.Cards[0])
	}
}

func TestDirectorySyncOnLastLeave(t *testing.T) {
	directory := newMemoryDirectory()
	record, err := directory.Create("imposters", "p1", "Ada")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	room := newRoom(record.RoomID, nil, newMemoryRoomStore(), directory, newWSHub())
	join(room, "p1", "Ada")
	room.directoryUpsert(room.state.Status, directoryPlayers(room.state.Players))

	listed, err := directory.List("imposters", 50)
	if err != nil || len(listed) != 1 {
		t.Fatalf("expected 1 listing, got %d err=%v", len(listed), err)
	}

	result := room.apply(clientMessage{Type: msgLeave, PlayerID: "p1"})
	if !result.deleteDirectory {
		t.Fatalf("last leave must request directory deletion")
	}
	room.directoryDelete()

	listed, err = directory.List("imposters", 50)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("listing not deleted: %+v", listed)
	}
}
