package room

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/tosync/server/internal/repository/room"
)

// lockRoom serializes every state-mutating operation on one room. Operations
// on different rooms proceed in parallel. The returned func releases the lock
// and drops the map entry once no other operation holds or awaits it.
func (s *service) lockRoom(roomCode string) func() {
	s.locksMu.Lock()
	l, ok := s.roomLocks[roomCode]
	if !ok {
		l = &roomLock{}
		s.roomLocks[roomCode] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.roomLocks, roomCode)
		}
		s.locksMu.Unlock()
	}
}

func (s *service) normalizeRoomCode(roomCode string) (string, error) {
	if len(roomCode) != s.roomCodeLength {
		return "", ErrInvalidRoomCode
	}

	for _, r := range roomCode {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", ErrInvalidRoomCode
		}
	}

	return strings.ToUpper(roomCode), nil
}

// uniqueName appends " (n)" until the requested name collides with no current
// member of the room.
func uniqueName(baseName string, members []room.Member) string {
	taken := make(map[string]struct{}, len(members))
	for _, member := range members {
		taken[member.Name] = struct{}{}
	}

	if _, ok := taken[baseName]; !ok {
		return baseName
	}

	for counter := 1; ; counter++ {
		name := fmt.Sprintf("%s (%d)", baseName, counter)
		if _, ok := taken[name]; !ok {
			return name
		}
	}
}

func toMemberDTO(member room.Member) Member {
	return Member{
		Id:       member.ConnectionId,
		Name:     member.Name,
		Role:     member.Role,
		JoinedAt: member.JoinedAt,
	}
}

func toPlayerDTO(player room.Player) Player {
	return Player{
		IsPlaying:    player.IsPlaying,
		CurrentTime:  player.CurrentTime,
		PlaybackRate: player.PlaybackRate,
	}
}

func toMediaDTO(media *room.Media) *Media {
	if media == nil {
		return nil
	}

	dto := Media{
		Type:     media.Type,
		LoadedBy: media.LoadedBy,
		LoadedAt: media.LoadedAt,
	}
	if media.File != nil {
		dto.File = &FileMedia{URL: media.File.URL, Name: media.File.Name, Size: media.File.Size}
	}
	if media.Torrent != nil {
		dto.Torrent = &TorrentMedia{
			InfoHash:  media.Torrent.InfoHash,
			Name:      media.Torrent.Name,
			Size:      media.Torrent.Size,
			StreamURL: media.Torrent.StreamURL,
		}
	}
	if media.Stream != nil {
		dto.Stream = &StreamMedia{RelayURL: media.Stream.RelayURL, Name: media.Stream.Name}
	}

	return &dto
}

func toSubtitleDTO(subtitle room.Subtitle) Subtitle {
	return Subtitle{
		Id:       subtitle.Id,
		Filename: subtitle.Filename,
		Label:    subtitle.Label,
		Language: subtitle.Language,
		URL:      subtitle.URL,
	}
}

// getMembers returns the room's member list ordered by join time, ties broken
// by connection id, so every frame carrying the list shows the same order.
func (s *service) getMembers(ctx context.Context, roomCode string) ([]Member, error) {
	members, err := s.roomRepo.GetMembers(ctx, roomCode)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}

	slices.SortFunc(members, func(a, b room.Member) int {
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Compare(b.JoinedAt)
		}
		return strings.Compare(a.ConnectionId, b.ConnectionId)
	})

	list := make([]Member, 0, len(members))
	for _, member := range members {
		list = append(list, toMemberDTO(member))
	}

	return list, nil
}

// sendToMembers enqueues an event for every member of the room except the
// given connection ids. Enqueueing happens under the caller's room lock, so
// all members observe the same event order.
func (s *service) sendToMembers(ctx context.Context, roomCode string, event *Event, excludeIds ...string) {
	members, err := s.roomRepo.GetMembers(ctx, roomCode)
	if err != nil {
		s.logger.DebugContext(ctx, "failed to get members for fan-out", "error", err)
		return
	}

	for _, member := range members {
		if slices.Contains(excludeIds, member.ConnectionId) {
			continue
		}
		s.sendToConnectionId(ctx, member.ConnectionId, event)
	}
}

func (s *service) sendToConnectionId(ctx context.Context, connectionId string, event *Event) {
	conn, err := s.connRepo.GetConn(connectionId)
	if err != nil {
		s.logger.DebugContext(ctx, "failed to get conn for fan-out", "connection_id", connectionId, "error", err)
		return
	}

	if err := s.sender.Send(conn, event); err != nil {
		s.logger.DebugContext(ctx, "failed to enqueue event", "connection_id", connectionId, "error", err)
	}
}

func (s *service) roomState(ctx context.Context, roomCode, connectionId string) (RoomState, error) {
	members, err := s.getMembers(ctx, roomCode)
	if err != nil {
		return RoomState{}, err
	}

	player, err := s.roomRepo.GetPlayer(ctx, roomCode)
	if err != nil {
		return RoomState{}, fmt.Errorf("failed to get player: %w", err)
	}

	media, err := s.roomRepo.GetMedia(ctx, roomCode)
	if err != nil {
		return RoomState{}, fmt.Errorf("failed to get media: %w", err)
	}

	subtitles, err := s.roomRepo.GetSubtitles(ctx, roomCode)
	if err != nil {
		return RoomState{}, fmt.Errorf("failed to get subtitles: %w", err)
	}

	adminId, err := s.roomRepo.GetAdminId(ctx, roomCode)
	if err != nil {
		return RoomState{}, fmt.Errorf("failed to get admin id: %w", err)
	}

	subtitleList := make([]Subtitle, 0, len(subtitles))
	for _, subtitle := range subtitles {
		subtitleList = append(subtitleList, toSubtitleDTO(subtitle))
	}

	return RoomState{
		RoomCode:  roomCode,
		Users:     members,
		UserCount: len(members),
		Player:    toPlayerDTO(player),
		Media:     toMediaDTO(media),
		Subtitles: subtitleList,
		IsAdmin:   adminId == connectionId,
	}, nil
}
