package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/tosync/server/internal/service/room"
	"github.com/tosync/server/pkg/ctxlogger"
)

// serveWS upgrades the connection and runs its read loop. Joining happens
// over the open socket via JOIN_ROOM; one transport connection maps to at
// most one room membership at a time.
func (c *controller) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}

	connectionId := uuid.NewString()

	ctx := context.WithValue(r.Context(), connectionIdCtxKey, connectionId)
	ctx = ctxlogger.AppendCtx(ctx, slog.String("connection_id", connectionId))

	c.sender.Register(conn)
	defer func() {
		if err := c.roomService.DisconnectMember(ctx, &room.DisconnectMemberParams{
			ConnectionId: connectionId,
		}); err != nil {
			c.logger.WarnContext(ctx, "failed to disconnect member", "error", err)
		}
		c.clearVideoActionState(connectionId)
		c.sender.Unregister(conn)
		conn.Close()
	}()

	c.logger.InfoContext(ctx, "websocket connected", "remote_addr", r.RemoteAddr)

	if err := c.wsRouter.ServeConn(ctx, conn); err != nil {
		c.logger.DebugContext(ctx, "websocket closed", "error", err)
	}
}
