package controller

import (
	"context"
	"errors"

	"github.com/gorilla/websocket"
	"github.com/tosync/server/internal/service/room"
	"github.com/tosync/server/pkg/wsrouter"
)

func (c *controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	mux.Use(c.wsRequestIdWSMw())
	mux.Use(c.loggerWSMw())

	// session
	wsrouter.Handle(mux, "ALIVE", c.handleAlive)
	wsrouter.Handle(mux, "JOIN_ROOM", c.handleJoinRoom)
	wsrouter.Handle(mux, "VALIDATE_ROOM", c.handleValidateRoom)
	wsrouter.Handle(mux, "GET_STATE", c.handleGetState)

	// playback
	wsrouter.Handle(mux, "VIDEO_ACTION", c.handleVideoAction)
	wsrouter.Handle(mux, "FORCE_SYNC", c.handleForceSync)

	// media
	wsrouter.Handle(mux, "MEDIA_ACTION", c.handleMediaAction)
	wsrouter.Handle(mux, "SUBTITLE_UPLOAD", c.handleSubtitleUpload)
	wsrouter.Handle(mux, "SUBTITLE_SELECT", c.handleSubtitleSelect)

	// membership
	wsrouter.Handle(mux, "TRANSFER_ADMIN", c.handleTransferAdmin)
	wsrouter.Handle(mux, "KICK_USER", c.handleKickUser)

	mux.OnError(c.handleWSError)

	return mux
}

// handleWSError turns a handler error into a typed frame for the originating
// connection. Room state is never touched here; the read loop keeps going.
func (c *controller) handleWSError(ctx context.Context, conn *websocket.Conn, err error) {
	messageType := wsrouter.GetMessageTypeFromCtx(ctx)

	c.logger.DebugContext(ctx, "websocket handler error",
		"message_type", messageType,
		"error", err,
	)

	var out *Output
	switch {
	case messageType == "JOIN_ROOM" && (errors.Is(err, room.ErrRoomNotFound) || errors.Is(err, room.ErrInvalidRoomCode)):
		out = &Output{Type: "ROOM_NOT_FOUND", Payload: nil}
	case messageType == "TRANSFER_ADMIN":
		out = &Output{Type: "TRANSFER_ADMIN_ERROR", Payload: errorPayload{Message: err.Error()}}
	case messageType == "KICK_USER":
		out = &Output{Type: "KICK_USER_ERROR", Payload: errorPayload{Message: err.Error()}}
	default:
		out = &Output{Type: "ERROR", Payload: errorPayload{Message: err.Error()}}
	}

	if err := c.sender.Send(conn, out); err != nil {
		c.logger.DebugContext(ctx, "failed to send error frame", "error", err)
	}
}
