package room

import (
	"context"
	"fmt"
	"time"

	"github.com/tosync/server/internal/repository/room"
)

type VideoActionParams struct {
	ConnectionId string
	Action       string
	Time         float64
	PlaybackRate float64
}

// VideoAction applies a playback transition to the room's shared player and
// relays it to everyone except the originator. Any member may drive
// playback.
func (s *service) VideoAction(ctx context.Context, params *VideoActionParams) error {
	roomCode, err := s.connRepo.GetRoomCode(params.ConnectionId)
	if err != nil {
		return ErrMemberNotFound
	}

	unlock := s.lockRoom(roomCode)
	defer unlock()

	member, err := s.roomRepo.GetMember(ctx, &room.GetMemberParams{RoomCode: roomCode, ConnectionId: params.ConnectionId})
	if err != nil {
		return ErrMemberNotFound
	}

	player, err := s.roomRepo.GetPlayer(ctx, roomCode)
	if err != nil {
		return fmt.Errorf("failed to get player: %w", err)
	}

	switch params.Action {
	case VideoActionPlay:
		player.IsPlaying = true
		player.CurrentTime = params.Time
	case VideoActionPause:
		player.IsPlaying = false
		player.CurrentTime = params.Time
	case VideoActionSeek:
		player.CurrentTime = params.Time
	case VideoActionPlaybackRate:
		player.PlaybackRate = params.PlaybackRate
		player.CurrentTime = params.Time
	default:
		return ErrUnknownAction
	}

	if err := s.roomRepo.SetPlayer(ctx, &room.SetPlayerParams{RoomCode: roomCode, Player: player}); err != nil {
		return fmt.Errorf("failed to set player: %w", err)
	}

	if err := s.roomRepo.TouchRoom(ctx, roomCode, time.Now()); err != nil {
		return fmt.Errorf("failed to touch room: %w", err)
	}

	s.sendToMembers(ctx, roomCode, &Event{
		Type: EventSyncVideo,
		Payload: SyncVideoPayload{
			Action:       params.Action,
			Time:         player.CurrentTime,
			PlaybackRate: player.PlaybackRate,
			User:         member.Name,
			Timestamp:    time.Now().UnixMilli(),
		},
	}, params.ConnectionId)

	return nil
}

type ForceSyncParams struct {
	ConnectionId string
	Time         float64
	IsPlaying    bool
}

// ForceSync lets the admin snap every other player to an exact position,
// overriding whatever drift the regular action relay has accumulated.
func (s *service) ForceSync(ctx context.Context, params *ForceSyncParams) error {
	roomCode, err := s.connRepo.GetRoomCode(params.ConnectionId)
	if err != nil {
		return ErrMemberNotFound
	}

	unlock := s.lockRoom(roomCode)
	defer unlock()

	member, err := s.roomRepo.GetMember(ctx, &room.GetMemberParams{RoomCode: roomCode, ConnectionId: params.ConnectionId})
	if err != nil {
		return ErrMemberNotFound
	}
	if member.Role != RoleAdmin {
		return ErrNotAuthorized
	}

	player, err := s.roomRepo.GetPlayer(ctx, roomCode)
	if err != nil {
		return fmt.Errorf("failed to get player: %w", err)
	}
	player.CurrentTime = params.Time
	player.IsPlaying = params.IsPlaying

	if err := s.roomRepo.SetPlayer(ctx, &room.SetPlayerParams{RoomCode: roomCode, Player: player}); err != nil {
		return fmt.Errorf("failed to set player: %w", err)
	}

	if err := s.roomRepo.TouchRoom(ctx, roomCode, time.Now()); err != nil {
		return fmt.Errorf("failed to touch room: %w", err)
	}

	s.sendToMembers(ctx, roomCode, &Event{
		Type: EventForceSync,
		Payload: ForceSyncPayload{
			Time:      player.CurrentTime,
			IsPlaying: player.IsPlaying,
			User:      member.Name,
		},
	}, params.ConnectionId)

	return nil
}
