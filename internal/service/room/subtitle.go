package room

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tosync/server/internal/repository/room"
)

type AddSubtitleParams struct {
	ConnectionId string
	Filename     string
	Label        string
	Language     string
	URL          string
}

type AddSubtitleResponse struct {
	Subtitle Subtitle
}

// AddSubtitle registers a subtitle track for the room's current media and
// announces it to everyone, uploader included, so all clients render the same
// track list.
func (s *service) AddSubtitle(ctx context.Context, params *AddSubtitleParams) (AddSubtitleResponse, error) {
	roomCode, err := s.connRepo.GetRoomCode(params.ConnectionId)
	if err != nil {
		return AddSubtitleResponse{}, ErrMemberNotFound
	}

	unlock := s.lockRoom(roomCode)
	defer unlock()

	member, err := s.roomRepo.GetMember(ctx, &room.GetMemberParams{RoomCode: roomCode, ConnectionId: params.ConnectionId})
	if err != nil {
		return AddSubtitleResponse{}, ErrMemberNotFound
	}
	if member.Role != RoleAdmin {
		return AddSubtitleResponse{}, ErrNotAuthorized
	}

	subtitle := room.Subtitle{
		Id:       uuid.NewString(),
		Filename: params.Filename,
		Label:    params.Label,
		Language: params.Language,
		URL:      params.URL,
	}
	if err := s.roomRepo.AddSubtitle(ctx, &room.AddSubtitleParams{RoomCode: roomCode, Subtitle: subtitle}); err != nil {
		return AddSubtitleResponse{}, fmt.Errorf("failed to add subtitle: %w", err)
	}

	if err := s.roomRepo.TouchRoom(ctx, roomCode, time.Now()); err != nil {
		return AddSubtitleResponse{}, fmt.Errorf("failed to touch room: %w", err)
	}

	dto := toSubtitleDTO(subtitle)
	s.sendToMembers(ctx, roomCode, &Event{
		Type: EventSubtitleAdded,
		Payload: SubtitleAddedPayload{
			Subtitle: dto,
			User:     member.Name,
		},
	})

	s.logger.InfoContext(ctx, "subtitle added",
		"room_code", roomCode,
		"subtitle_id", subtitle.Id,
		"label", subtitle.Label,
	)

	return AddSubtitleResponse{Subtitle: dto}, nil
}

type SelectSubtitleParams struct {
	ConnectionId string
	SubtitleId   string
}

// SelectSubtitle relays the sender's track choice to the other members. The
// selection is advisory and not persisted; clients apply it locally.
func (s *service) SelectSubtitle(ctx context.Context, params *SelectSubtitleParams) error {
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

	subtitles, err := s.roomRepo.GetSubtitles(ctx, roomCode)
	if err != nil {
		return fmt.Errorf("failed to get subtitles: %w", err)
	}
	found := false
	for _, subtitle := range subtitles {
		if subtitle.Id == params.SubtitleId {
			found = true
			break
		}
	}
	if !found {
		return ErrTargetNotFound
	}

	if err := s.roomRepo.TouchRoom(ctx, roomCode, time.Now()); err != nil {
		return fmt.Errorf("failed to touch room: %w", err)
	}

	s.sendToMembers(ctx, roomCode, &Event{
		Type: EventSubtitleSelected,
		Payload: SubtitleSelectedPayload{
			SubtitleId: params.SubtitleId,
			User:       member.Name,
		},
	}, params.ConnectionId)

	return nil
}
