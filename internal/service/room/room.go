package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tosync/server/internal/repository/room"
)

// GenerateRoomCode produces an unused room code. With 36^length codes and
// rooms evicted on inactivity, collisions are short-lived; the retry loop
// covers them.
func (s *service) GenerateRoomCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 16; attempt++ {
		code := s.generator.GenerateRandomString(s.roomCodeLength)
		if !s.roomRepo.RoomExists(ctx, code) {
			return code, nil
		}
	}

	return "", errors.New("failed to generate unused room code")
}

// ValidateRoom reports whether the given code refers to a live room.
func (s *service) ValidateRoom(ctx context.Context, roomCode string) (bool, error) {
	code, err := s.normalizeRoomCode(roomCode)
	if err != nil {
		return false, err
	}

	return s.roomRepo.RoomExists(ctx, code), nil
}

// IsRoomMember reports whether the connection currently belongs to the given
// room. Used by the stream authorization probe.
func (s *service) IsRoomMember(ctx context.Context, roomCode, connectionId string) (bool, error) {
	code, err := s.normalizeRoomCode(roomCode)
	if err != nil {
		return false, err
	}

	memberRoomCode, err := s.connRepo.GetRoomCode(connectionId)
	if err != nil {
		return false, nil
	}

	return memberRoomCode == code, nil
}

// GetRoomState returns the current room snapshot from the requester's point
// of view.
func (s *service) GetRoomState(ctx context.Context, connectionId string) (RoomState, error) {
	roomCode, err := s.connRepo.GetRoomCode(connectionId)
	if err != nil {
		return RoomState{}, ErrMemberNotFound
	}

	unlock := s.lockRoom(roomCode)
	defer unlock()

	return s.roomState(ctx, roomCode, connectionId)
}

// GetRoomInfo returns public room metadata for the REST probe without
// touching the activity clock.
func (s *service) GetRoomInfo(ctx context.Context, roomCode string) (RoomStats, error) {
	code, err := s.normalizeRoomCode(roomCode)
	if err != nil {
		return RoomStats{}, err
	}

	info, err := s.roomRepo.GetRoomInfo(ctx, code)
	if err != nil {
		return RoomStats{}, ErrRoomNotFound
	}

	stats := RoomStats{
		RoomCode:     info.Code,
		UserCount:    info.MemberCount,
		HasMedia:     info.HasMedia,
		AdminPresent: info.AdminId != "",
		CreatedAt:    info.CreatedAt,
		LastActivity: info.LastActivity,
	}
	if info.AdminId != "" {
		if admin, err := s.roomRepo.GetMember(ctx, &room.GetMemberParams{RoomCode: code, ConnectionId: info.AdminId}); err == nil {
			stats.CurrentAdmin = admin.Name
		}
	}

	return stats, nil
}

// EvictInactiveRooms removes rooms idle past the inactivity timeout. Each
// candidate is re-checked under its room lock so a join racing the sweep
// keeps its room.
func (s *service) EvictInactiveRooms(ctx context.Context) int {
	now := time.Now()
	evicted := 0

	for _, roomCode := range s.roomRepo.InactiveRooms(ctx, now, s.roomInactivityTimeout) {
		if err := s.evictRoom(ctx, roomCode, now); err != nil {
			s.logger.WarnContext(ctx, "failed to evict room", "room_code", roomCode, "error", err)
			continue
		}
		evicted++
	}

	if evicted > 0 {
		s.logger.InfoContext(ctx, "inactive rooms evicted", "count", evicted)
	}

	return evicted
}

func (s *service) evictRoom(ctx context.Context, roomCode string, now time.Time) error {
	unlock := s.lockRoom(roomCode)
	defer unlock()

	if !s.roomRepo.IsRoomInactive(ctx, roomCode, now, s.roomInactivityTimeout) {
		return nil
	}

	media, err := s.roomRepo.GetMedia(ctx, roomCode)
	if err != nil {
		return fmt.Errorf("failed to get media: %w", err)
	}

	if err := s.roomRepo.RemoveRoom(ctx, roomCode); err != nil {
		return fmt.Errorf("failed to remove room: %w", err)
	}

	if media != nil && media.Torrent != nil {
		if !s.roomRepo.MediaInfoHashInUse(ctx, media.Torrent.InfoHash, roomCode) {
			if err := s.torrents.Release(ctx, media.Torrent.InfoHash); err != nil {
				s.logger.WarnContext(ctx, "failed to release torrent", "info_hash", media.Torrent.InfoHash, "error", err)
			}
		}
	}

	s.logger.InfoContext(ctx, "room evicted", "room_code", roomCode)

	return nil
}

// Stats aggregates a point-in-time view over every live room.
func (s *service) Stats(ctx context.Context) Stats {
	rooms := s.roomRepo.ListRooms(ctx)

	stats := Stats{
		TotalUsers: s.connRepo.Count(),
		TotalRooms: len(rooms),
		Rooms:      make([]RoomStats, 0, len(rooms)),
	}
	for _, info := range rooms {
		if info.MemberCount > 0 {
			stats.ActiveRooms++
		}

		roomStats := RoomStats{
			RoomCode:     info.Code,
			UserCount:    info.MemberCount,
			HasMedia:     info.HasMedia,
			AdminPresent: info.AdminId != "",
			CreatedAt:    info.CreatedAt,
			LastActivity: info.LastActivity,
		}
		if info.AdminId != "" {
			if admin, err := s.roomRepo.GetMember(ctx, &room.GetMemberParams{RoomCode: info.Code, ConnectionId: info.AdminId}); err == nil {
				roomStats.CurrentAdmin = admin.Name
			}
		}

		stats.Rooms = append(stats.Rooms, roomStats)
	}

	return stats
}
