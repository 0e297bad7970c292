package room

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tosync/server/internal/repository/room"
	"github.com/tosync/server/pkg/randstr"
)

type iRoomRepo interface {
	// room
	CreateRoom(ctx context.Context, roomCode string, now time.Time) error
	RoomExists(ctx context.Context, roomCode string) bool
	RemoveRoom(ctx context.Context, roomCode string) error
	TouchRoom(ctx context.Context, roomCode string, now time.Time) error
	InactiveRooms(ctx context.Context, now time.Time, timeout time.Duration) []string
	IsRoomInactive(ctx context.Context, roomCode string, now time.Time, timeout time.Duration) bool
	GetRoomInfo(ctx context.Context, roomCode string) (room.RoomInfo, error)
	ListRooms(ctx context.Context) []room.RoomInfo
	// member
	SetMember(ctx context.Context, params *room.SetMemberParams) error
	RemoveMember(ctx context.Context, params *room.RemoveMemberParams) error
	GetMember(ctx context.Context, params *room.GetMemberParams) (room.Member, error)
	GetMemberByName(ctx context.Context, roomCode, name string) (room.Member, error)
	GetMembers(ctx context.Context, roomCode string) ([]room.Member, error)
	MemberCount(ctx context.Context, roomCode string) (int, error)
	SetMemberRole(ctx context.Context, params *room.SetMemberRoleParams) error
	GetAdminId(ctx context.Context, roomCode string) (string, error)
	SetAdmin(ctx context.Context, params *room.SetAdminParams) error
	// player
	GetPlayer(ctx context.Context, roomCode string) (room.Player, error)
	SetPlayer(ctx context.Context, params *room.SetPlayerParams) error
	// media
	GetMedia(ctx context.Context, roomCode string) (*room.Media, error)
	SetMedia(ctx context.Context, params *room.SetMediaParams) error
	MediaInfoHashInUse(ctx context.Context, infoHash, excludeRoomCode string) bool
	GetLastMediaAction(ctx context.Context, roomCode string) (uint64, time.Time, error)
	SetLastMediaAction(ctx context.Context, params *room.SetLastMediaActionParams) error
	// subtitles
	GetSubtitles(ctx context.Context, roomCode string) ([]room.Subtitle, error)
	AddSubtitle(ctx context.Context, params *room.AddSubtitleParams) error
}

type iConnRepo interface {
	Add(conn *websocket.Conn, connectionId, roomCode string) error
	RemoveByConnectionId(connectionId string) error
	GetConn(connectionId string) (*websocket.Conn, error)
	GetRoomCode(connectionId string) (string, error)
	Count() int
}

type iSender interface {
	Send(conn *websocket.Conn, msg any) error
	SendClose(conn *websocket.Conn, code int, reason string) error
}

type iTorrentReleaser interface {
	Release(ctx context.Context, infoHash string) error
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

type Config struct {
	RoomCodeLength        int
	MembersLimit          int
	RoomInactivityTimeout time.Duration
	MediaDedupWindow      time.Duration
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

type service struct {
	roomRepo  iRoomRepo
	connRepo  iConnRepo
	sender    iSender
	torrents  iTorrentReleaser
	generator iGenerator
	logger    *slog.Logger

	roomCodeLength        int
	membersLimit          int
	roomInactivityTimeout time.Duration
	mediaDedupWindow      time.Duration

	roomLocks map[string]*roomLock
	locksMu   sync.Mutex
}

func NewService(roomRepo iRoomRepo, connRepo iConnRepo, sender iSender, torrents iTorrentReleaser, cfg *Config, logger *slog.Logger) *service {
	s := service{
		roomRepo:              roomRepo,
		connRepo:              connRepo,
		sender:                sender,
		torrents:              torrents,
		logger:                logger,
		roomCodeLength:        cfg.RoomCodeLength,
		membersLimit:          cfg.MembersLimit,
		roomInactivityTimeout: cfg.RoomInactivityTimeout,
		mediaDedupWindow:      cfg.MediaDedupWindow,
		roomLocks:             make(map[string]*roomLock),
	}

	letterBytes := []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
	s.generator = randstr.New(letterBytes)

	return &s
}
