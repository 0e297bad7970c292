package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/tosync/server/internal/repository/room"
)

type roomState struct {
	members       map[string]room.Member
	adminId       string
	player        room.Player
	media         *room.Media
	subtitles     []room.Subtitle
	createdAt     time.Time
	lastActivity  time.Time
	lastMediaHash uint64
	lastMediaAt   time.Time
}

// repo is the authoritative in-memory room store. The mutex guards the rooms
// map and every room's fields; callers serialize whole room transitions with
// their own per-room exclusion on top of it.
type repo struct {
	rooms map[string]*roomState
	mu    sync.RWMutex
}

func NewRepo() *repo {
	return &repo{
		rooms: make(map[string]*roomState),
	}
}

func (r *repo) CreateRoom(_ context.Context, roomCode string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[roomCode]; ok {
		return room.ErrRoomAlreadyExists
	}

	r.rooms[roomCode] = &roomState{
		members: make(map[string]room.Member),
		player: room.Player{
			IsPlaying:    false,
			CurrentTime:  0,
			PlaybackRate: 1,
		},
		subtitles:    []room.Subtitle{},
		createdAt:    now,
		lastActivity: now,
	}

	return nil
}

func (r *repo) RoomExists(_ context.Context, roomCode string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms[roomCode]
	return ok
}

func (r *repo) RemoveRoom(_ context.Context, roomCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[roomCode]; !ok {
		return room.ErrRoomNotFound
	}

	delete(r.rooms, roomCode)
	return nil
}

func (r *repo) TouchRoom(_ context.Context, roomCode string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[roomCode]
	if !ok {
		return room.ErrRoomNotFound
	}

	state.lastActivity = now
	return nil
}

// InactiveRooms returns the codes of rooms with zero members whose last
// activity is older than timeout.
func (r *repo) InactiveRooms(_ context.Context, now time.Time, timeout time.Duration) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var codes []string
	for code, state := range r.rooms {
		if len(state.members) == 0 && now.Sub(state.lastActivity) > timeout {
			codes = append(codes, code)
		}
	}

	return codes
}

func (r *repo) IsRoomInactive(_ context.Context, roomCode string, now time.Time, timeout time.Duration) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[roomCode]
	if !ok {
		return false
	}

	return len(state.members) == 0 && now.Sub(state.lastActivity) > timeout
}

func (r *repo) SetMember(_ context.Context, params *room.SetMemberParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[params.RoomCode]
	if !ok {
		return room.ErrRoomNotFound
	}

	state.members[params.Member.ConnectionId] = params.Member
	return nil
}

func (r *repo) RemoveMember(_ context.Context, params *room.RemoveMemberParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[params.RoomCode]
	if !ok {
		return room.ErrRoomNotFound
	}

	if _, ok := state.members[params.ConnectionId]; !ok {
		return room.ErrMemberNotFound
	}

	delete(state.members, params.ConnectionId)
	return nil
}

func (r *repo) GetMember(_ context.Context, params *room.GetMemberParams) (room.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[params.RoomCode]
	if !ok {
		return room.Member{}, room.ErrRoomNotFound
	}

	member, ok := state.members[params.ConnectionId]
	if !ok {
		return room.Member{}, room.ErrMemberNotFound
	}

	return member, nil
}

func (r *repo) GetMemberByName(_ context.Context, roomCode, name string) (room.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[roomCode]
	if !ok {
		return room.Member{}, room.ErrRoomNotFound
	}

	for _, member := range state.members {
		if member.Name == name {
			return member, nil
		}
	}

	return room.Member{}, room.ErrMemberNotFound
}

func (r *repo) GetMembers(_ context.Context, roomCode string) ([]room.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[roomCode]
	if !ok {
		return nil, room.ErrRoomNotFound
	}

	members := make([]room.Member, 0, len(state.members))
	for _, member := range state.members {
		members = append(members, member)
	}

	return members, nil
}

func (r *repo) MemberCount(_ context.Context, roomCode string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[roomCode]
	if !ok {
		return 0, room.ErrRoomNotFound
	}

	return len(state.members), nil
}

func (r *repo) SetMemberRole(_ context.Context, params *room.SetMemberRoleParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[params.RoomCode]
	if !ok {
		return room.ErrRoomNotFound
	}

	member, ok := state.members[params.ConnectionId]
	if !ok {
		return room.ErrMemberNotFound
	}

	member.Role = params.Role
	state.members[params.ConnectionId] = member
	return nil
}

func (r *repo) GetAdminId(_ context.Context, roomCode string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[roomCode]
	if !ok {
		return "", room.ErrRoomNotFound
	}

	return state.adminId, nil
}

func (r *repo) SetAdmin(_ context.Context, params *room.SetAdminParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[params.RoomCode]
	if !ok {
		return room.ErrRoomNotFound
	}

	state.adminId = params.AdminId
	return nil
}

func (r *repo) GetPlayer(_ context.Context, roomCode string) (room.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[roomCode]
	if !ok {
		return room.Player{}, room.ErrRoomNotFound
	}

	return state.player, nil
}

func (r *repo) SetPlayer(_ context.Context, params *room.SetPlayerParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[params.RoomCode]
	if !ok {
		return room.ErrRoomNotFound
	}

	state.player = params.Player
	return nil
}

func (r *repo) GetMedia(_ context.Context, roomCode string) (*room.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[roomCode]
	if !ok {
		return nil, room.ErrRoomNotFound
	}

	return state.media, nil
}

func (r *repo) SetMedia(_ context.Context, params *room.SetMediaParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[params.RoomCode]
	if !ok {
		return room.ErrRoomNotFound
	}

	state.media = params.Media
	return nil
}

// MediaInfoHashInUse reports whether any room other than excludeRoomCode has
// a torrent with the given info hash loaded.
func (r *repo) MediaInfoHashInUse(_ context.Context, infoHash, excludeRoomCode string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for code, state := range r.rooms {
		if code == excludeRoomCode {
			continue
		}
		if state.media != nil && state.media.Torrent != nil && state.media.Torrent.InfoHash == infoHash {
			return true
		}
	}

	return false
}

func (r *repo) GetSubtitles(_ context.Context, roomCode string) ([]room.Subtitle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[roomCode]
	if !ok {
		return nil, room.ErrRoomNotFound
	}

	subtitles := make([]room.Subtitle, len(state.subtitles))
	copy(subtitles, state.subtitles)
	return subtitles, nil
}

func (r *repo) AddSubtitle(_ context.Context, params *room.AddSubtitleParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[params.RoomCode]
	if !ok {
		return room.ErrRoomNotFound
	}

	state.subtitles = append(state.subtitles, params.Subtitle)
	return nil
}

func (r *repo) GetLastMediaAction(_ context.Context, roomCode string) (uint64, time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[roomCode]
	if !ok {
		return 0, time.Time{}, room.ErrRoomNotFound
	}

	return state.lastMediaHash, state.lastMediaAt, nil
}

func (r *repo) SetLastMediaAction(_ context.Context, params *room.SetLastMediaActionParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[params.RoomCode]
	if !ok {
		return room.ErrRoomNotFound
	}

	state.lastMediaHash = params.Hash
	state.lastMediaAt = params.At
	return nil
}

func (r *repo) GetRoomInfo(_ context.Context, roomCode string) (room.RoomInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[roomCode]
	if !ok {
		return room.RoomInfo{}, room.ErrRoomNotFound
	}

	return r.roomInfo(roomCode, state), nil
}

func (r *repo) ListRooms(_ context.Context) []room.RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]room.RoomInfo, 0, len(r.rooms))
	for code, state := range r.rooms {
		infos = append(infos, r.roomInfo(code, state))
	}

	return infos
}

func (r *repo) roomInfo(code string, state *roomState) room.RoomInfo {
	return room.RoomInfo{
		Code:         code,
		MemberCount:  len(state.members),
		AdminId:      state.adminId,
		HasMedia:     state.media != nil,
		CreatedAt:    state.createdAt,
		LastActivity: state.lastActivity,
	}
}
