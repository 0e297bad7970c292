package controller

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tosync/server/internal/service/room"
	"github.com/tosync/server/pkg/validator"
	"github.com/tosync/server/pkg/wsrouter"
)

type iRoomService interface {
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	DisconnectMember(context.Context, *room.DisconnectMemberParams) error
	VideoAction(context.Context, *room.VideoActionParams) error
	MediaAction(context.Context, *room.MediaActionParams) error
	ForceSync(context.Context, *room.ForceSyncParams) error
	TransferAdmin(context.Context, *room.TransferAdminParams) error
	KickUser(context.Context, *room.KickUserParams) error
	AddSubtitle(context.Context, *room.AddSubtitleParams) (room.AddSubtitleResponse, error)
	SelectSubtitle(context.Context, *room.SelectSubtitleParams) error
	ValidateRoom(ctx context.Context, roomCode string) (bool, error)
	GenerateRoomCode(ctx context.Context) (string, error)
	GetRoomState(ctx context.Context, connectionId string) (room.RoomState, error)
	GetRoomInfo(ctx context.Context, roomCode string) (room.RoomStats, error)
	IsRoomMember(ctx context.Context, roomCode, connectionId string) (bool, error)
	Stats(ctx context.Context) room.Stats
}

type iWSSender interface {
	Register(conn *websocket.Conn)
	Unregister(conn *websocket.Conn)
	Send(conn *websocket.Conn, msg any) error
}

type Config struct {
	VideoActionInterval time.Duration
}

type controller struct {
	roomService iRoomService
	sender      iWSSender
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	wsRouter    *wsrouter.WSRouter
	logger      *slog.Logger

	videoActionInterval time.Duration
	lastVideoAction     map[string]time.Time
	videoActionMu       sync.Mutex
}

func NewController(roomService iRoomService, sender iWSSender, cfg *Config, logger *slog.Logger) *controller {
	c := controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService:         roomService,
		sender:              sender,
		validate:            validator.NewValidator(),
		logger:              logger,
		videoActionInterval: cfg.VideoActionInterval,
		lastVideoAction:     make(map[string]time.Time),
	}
	c.wsRouter = c.getWSRouter()

	return &c
}
