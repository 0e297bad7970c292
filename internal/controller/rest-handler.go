package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tosync/server/pkg/rest"
)

func (c *controller) getRoom(w http.ResponseWriter, r *http.Request) {
	roomCode := chi.URLParam(r, "room-code")

	info, err := c.roomService.GetRoomInfo(r.Context(), roomCode)
	if err != nil {
		c.logger.DebugContext(r.Context(), "room probe miss", "room_code", roomCode, "error", err)
		rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "room not found"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": info})
}

type createRoomCodeResponse struct {
	RoomCode string `json:"room_code"`
}

func (c *controller) createRoomCode(w http.ResponseWriter, r *http.Request) {
	roomCode, err := c.roomService.GenerateRoomCode(r.Context())
	if err != nil {
		c.logger.ErrorContext(r.Context(), "failed to generate room code", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "failed to generate room code"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": createRoomCodeResponse{RoomCode: roomCode}})
}

// authorizeStream is the membership fact the media server consults before
// serving room-scoped bytes.
func (c *controller) authorizeStream(w http.ResponseWriter, r *http.Request) {
	roomCode := chi.URLParam(r, "room-code")
	connectionId := r.URL.Query().Get("connection-id")
	if connectionId == "" {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": "connection-id is required"})
		return
	}

	ok, err := c.roomService.IsRoomMember(r.Context(), roomCode, connectionId)
	if err != nil || !ok {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c *controller) getStats(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": c.roomService.Stats(r.Context())})
}
