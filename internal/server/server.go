package server

import (
	"net/http"

	"imposter-party/internal/config"

	"gorm.io/gorm"
)

type Server struct {
	cfg       config.Config
	db        *gorm.DB
	hub       *wsHub
	store     RoomStore
	directory DirectoryStore
	registry  *Registry
	limiter   *rateLimiter
}

// New wires the server. Without a database connection the in-memory
// store and directory are used; room state then only survives as long as
// the process.
func New(conn *gorm.DB, cfg config.Config) *Server {
	var store RoomStore
	var directory DirectoryStore
	if conn != nil {
		store = newGormRoomStore(conn)
		directory = newGormDirectory(conn)
	} else {
		store = newMemoryRoomStore()
		directory = newMemoryDirectory()
	}
	hub := newWSHub()
	return &Server{
		cfg:       cfg,
		db:        conn,
		hub:       hub,
		store:     store,
		directory: directory,
		registry:  newRegistry(store, directory, hub),
		limiter:   newRateLimiter(),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/rooms", s.handleListRooms)
	mux.HandleFunc("POST /api/rooms", s.handleCreateRoom)
	mux.HandleFunc("GET /api/rooms/{roomID}", s.handleGetRoom)
	mux.HandleFunc("PATCH /api/rooms/{roomID}", s.handlePatchRoom)
	mux.HandleFunc("DELETE /api/rooms/{roomID}", s.handleDeleteRoom)
	mux.HandleFunc("POST /api/cron/purge", s.handleCronPurge)
	mux.HandleFunc("GET /ws/rooms/{roomID}", s.handleRoomWebsocket)
	return mux
}
