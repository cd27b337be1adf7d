package server

import (
	"errors"
	"log"
	"net/http"
	"time"
)

type createRoomRequest struct {
	GameType string `json:"gameType"`
	HostID   string `json:"hostId"`
	HostName string `json:"hostName"`
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	gameType := r.URL.Query().Get("gameType")
	if gameType == "" {
		writeError(w, http.StatusBadRequest, "gameType is required")
		return
	}
	rooms, err := s.directory.List(gameType, s.cfg.RoomListLimit)
	if err != nil {
		log.Printf("room list failed game_type=%s error=%v", gameType, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch rooms")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	if !s.enforceRateLimit(w, r) {
		return
	}
	var req createRoomRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.GameType == "" || req.HostID == "" || req.HostName == "" {
		writeError(w, http.StatusBadRequest, "gameType, hostId, and hostName are required")
		return
	}
	record, err := s.directory.Create(req.GameType, req.HostID, req.HostName)
	if err != nil {
		log.Printf("room create failed game_type=%s error=%v", req.GameType, err)
		writeError(w, http.StatusInternalServerError, "failed to create room")
		return
	}
	log.Printf("room created room_id=%s game_type=%s host=%s", record.RoomID, record.GameType, record.HostID)
	writeJSON(w, http.StatusOK, map[string]any{"room": record})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomID")
	record, err := s.directory.Get(roomID)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			writeError(w, http.StatusNotFound, "Room not found")
			return
		}
		log.Printf("room fetch failed room_id=%s error=%v", roomID, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch room")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"room": record})
}

func (s *Server) handlePatchRoom(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomID")
	var patch RoomPatch
	if err := readJSON(r.Body, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	record, err := s.directory.Patch(roomID, patch)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			writeError(w, http.StatusNotFound, "Room not found")
			return
		}
		log.Printf("room update failed room_id=%s error=%v", roomID, err)
		writeError(w, http.StatusInternalServerError, "failed to update room")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"room": record})
}

func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomID")
	if err := s.directory.Delete(roomID); err != nil {
		log.Printf("room delete failed room_id=%s error=%v", roomID, err)
		writeError(w, http.StatusInternalServerError, "failed to delete room")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleCronPurge drops directory listings past their TTL. The schedule
// itself lives outside this process; callers present the shared cron
// secret when one is configured.
func (s *Server) handleCronPurge(w http.ResponseWriter, r *http.Request) {
	if s.cfg.CronSecret != "" && r.Header.Get("Authorization") != "Bearer "+s.cfg.CronSecret {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	cutoff := time.Now().UTC().Add(-time.Duration(s.cfg.RoomTTLHours) * time.Hour)
	purged, err := s.directory.Purge(cutoff)
	if err != nil {
		log.Printf("room purge failed error=%v", err)
		writeError(w, http.StatusInternalServerError, "purge failed")
		return
	}
	log.Printf("rooms purged count=%d cutoff=%s", purged, cutoff.Format(time.RFC3339))
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"roomsDeleted": purged,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
