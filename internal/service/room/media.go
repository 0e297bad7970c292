package room

import (
	"context"
	"fmt"
	"time"

	"github.com/mitchellh/hashstructure/v2"
	"github.com/tosync/server/internal/repository/room"
)

type MediaActionParams struct {
	ConnectionId string
	Action       string
	File         *FileMedia
	Torrent      *TorrentMedia
	Stream       *StreamMedia
}

// MediaAction replaces or clears the room's loaded media. Admin only. A
// duplicate of the previous action arriving within the dedup window is
// swallowed so double-clicked load buttons do not restart playback for the
// whole room.
func (s *service) MediaAction(ctx context.Context, params *MediaActionParams) error {
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

	now := time.Now()

	hash, err := hashstructure.Hash(params, hashstructure.FormatV2, nil)
	if err != nil {
		return fmt.Errorf("failed to hash media action: %w", err)
	}
	lastHash, lastAt, err := s.roomRepo.GetLastMediaAction(ctx, roomCode)
	if err != nil {
		return fmt.Errorf("failed to get last media action: %w", err)
	}
	if hash == lastHash && now.Sub(lastAt) < s.mediaDedupWindow {
		s.logger.DebugContext(ctx, "duplicate media action suppressed",
			"room_code", roomCode,
			"action", params.Action,
		)
		return nil
	}
	var media *room.Media
	switch params.Action {
	case MediaActionLoadFile:
		if params.File == nil {
			return ErrUnknownAction
		}
		media = &room.Media{
			Type:     MediaTypeFile,
			File:     &room.FileMedia{URL: params.File.URL, Name: params.File.Name, Size: params.File.Size},
			LoadedBy: member.Name,
			LoadedAt: now,
		}
	case MediaActionLoadTorrent:
		if params.Torrent == nil {
			return ErrUnknownAction
		}
		media = &room.Media{
			Type: MediaTypeTorrent,
			Torrent: &room.TorrentMedia{
				InfoHash:  params.Torrent.InfoHash,
				Name:      params.Torrent.Name,
				Size:      params.Torrent.Size,
				StreamURL: params.Torrent.StreamURL,
			},
			LoadedBy: member.Name,
			LoadedAt: now,
		}
	case MediaActionLoadStream:
		if params.Stream == nil {
			return ErrUnknownAction
		}
		media = &room.Media{
			Type:     MediaTypeStream,
			Stream:   &room.StreamMedia{RelayURL: params.Stream.RelayURL, Name: params.Stream.Name},
			LoadedBy: member.Name,
			LoadedAt: now,
		}
	case MediaActionClearMedia:
		media = nil
	default:
		return ErrUnknownAction
	}

	// only a validated action opens the dedup window
	if err := s.roomRepo.SetLastMediaAction(ctx, &room.SetLastMediaActionParams{
		RoomCode: roomCode,
		Hash:     hash,
		At:       now,
	}); err != nil {
		return fmt.Errorf("failed to set last media action: %w", err)
	}

	// a torrent no longer referenced anywhere may be released by the engine
	previous, err := s.roomRepo.GetMedia(ctx, roomCode)
	if err != nil {
		return fmt.Errorf("failed to get media: %w", err)
	}

	if err := s.roomRepo.SetMedia(ctx, &room.SetMediaParams{RoomCode: roomCode, Media: media}); err != nil {
		return fmt.Errorf("failed to set media: %w", err)
	}

	// playback state always restarts from scratch when the media changes
	if err := s.roomRepo.SetPlayer(ctx, &room.SetPlayerParams{
		RoomCode: roomCode,
		Player:   room.Player{IsPlaying: false, CurrentTime: 0, PlaybackRate: 1},
	}); err != nil {
		return fmt.Errorf("failed to reset player: %w", err)
	}

	if err := s.roomRepo.TouchRoom(ctx, roomCode, now); err != nil {
		return fmt.Errorf("failed to touch room: %w", err)
	}

	if previous != nil && previous.Torrent != nil {
		if !s.roomRepo.MediaInfoHashInUse(ctx, previous.Torrent.InfoHash, roomCode) {
			if err := s.torrents.Release(ctx, previous.Torrent.InfoHash); err != nil {
				s.logger.WarnContext(ctx, "failed to release torrent", "info_hash", previous.Torrent.InfoHash, "error", err)
			}
		}
	}

	s.sendToMembers(ctx, roomCode, &Event{
		Type: EventMediaUpdate,
		Payload: MediaUpdatePayload{
			Action: params.Action,
			Media:  toMediaDTO(media),
			User:   member.Name,
		},
	})

	s.logger.InfoContext(ctx, "media action",
		"room_code", roomCode,
		"action", params.Action,
		"user", member.Name,
	)

	return nil
}
