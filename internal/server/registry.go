package server

import (
	"log"
	"sync"
)

// Registry maps room identifiers to their exclusively-owned actors.
// Rooms are constructed lazily on first lookup; a persisted room is
// resurrected from its last saved state.
type Registry struct {
	mu        sync.Mutex
	rooms     map[string]*Room
	store     RoomStore
	directory DirectoryStore
	hub       *wsHub
}

func newRegistry(store RoomStore, directory DirectoryStore, hub *wsHub) *Registry {
	return &Registry{
		rooms:     make(map[string]*Room),
		store:     store,
		directory: directory,
		hub:       hub,
	}
}

func (g *Registry) GetOrCreate(roomID string) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()
	if room, ok := g.rooms[roomID]; ok {
		return room
	}

	state, err := g.store.Load(roomID)
	if err != nil {
		log.Printf("room state load failed room_id=%s error=%v", roomID, err)
		state = nil
	}
	if state != nil {
		log.Printf("room restored room_id=%s players=%d status=%s", roomID, len(state.Players), state.Status)
	}

	room := newRoom(roomID, state, g.store, g.directory, g.hub)
	g.rooms[roomID] = room
	go room.run()
	return room
}

// Lookup returns the live actor without constructing one.
func (g *Registry) Lookup(roomID string) (*Room, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	room, ok := g.rooms[roomID]
	return room, ok
}
