package controller

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/tosync/server/internal/service/room"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type EmptyInput struct{}

func (c *controller) handleAlive(_ context.Context, _ *websocket.Conn, _ EmptyInput) error {
	return nil
}

type JoinRoomInput struct {
	RoomCode  string `json:"room_code" validate:"required"`
	Name      string `json:"name" validate:"required,min=1,max=32"`
	Role      string `json:"role" validate:"omitempty,oneof=admin guest"`
	IsCreator bool   `json:"is_creator"`
}

func (c *controller) handleJoinRoom(ctx context.Context, conn *websocket.Conn, input JoinRoomInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("invalid payload: %v", validationErrors)
	}

	role := input.Role
	if role == "" {
		role = room.RoleGuest
	}

	if _, err := c.roomService.JoinRoom(ctx, &room.JoinRoomParams{
		RoomCode:     input.RoomCode,
		Name:         input.Name,
		Role:         role,
		IsCreator:    input.IsCreator,
		ConnectionId: c.getConnectionIdFromCtx(ctx),
		Conn:         conn,
	}); err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	return nil
}

type ValidateRoomInput struct {
	RoomCode string `json:"room_code" validate:"required"`
}

func (c *controller) handleValidateRoom(ctx context.Context, conn *websocket.Conn, input ValidateRoomInput) error {
	exists, err := c.roomService.ValidateRoom(ctx, input.RoomCode)
	if err != nil || !exists {
		return c.sender.Send(conn, &Output{
			Type:    "ROOM_NOT_FOUND",
			Payload: map[string]any{"room_code": input.RoomCode},
		})
	}

	return c.sender.Send(conn, &Output{
		Type:    "ROOM_EXISTS",
		Payload: map[string]any{"room_code": input.RoomCode},
	})
}

func (c *controller) handleGetState(ctx context.Context, conn *websocket.Conn, _ EmptyInput) error {
	state, err := c.roomService.GetRoomState(ctx, c.getConnectionIdFromCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to get room state: %w", err)
	}

	return c.sender.Send(conn, &Output{Type: "ROOM_STATE", Payload: state})
}

type VideoActionInput struct {
	Action       string  `json:"action" validate:"required,oneof=play pause seek playback-rate"`
	Time         float64 `json:"time"`
	PlaybackRate float64 `json:"playback_rate"`
}

func (c *controller) handleVideoAction(ctx context.Context, _ *websocket.Conn, input VideoActionInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("invalid payload: %v", validationErrors)
	}

	connectionId := c.getConnectionIdFromCtx(ctx)

	if !c.allowVideoAction(connectionId) {
		return nil
	}

	if err := c.roomService.VideoAction(ctx, &room.VideoActionParams{
		ConnectionId: connectionId,
		Action:       input.Action,
		Time:         input.Time,
		PlaybackRate: input.PlaybackRate,
	}); err != nil {
		return fmt.Errorf("failed to apply video action: %w", err)
	}

	return nil
}

type ForceSyncInput struct {
	Time      float64 `json:"time"`
	IsPlaying bool    `json:"is_playing"`
}

func (c *controller) handleForceSync(ctx context.Context, _ *websocket.Conn, input ForceSyncInput) error {
	if err := c.roomService.ForceSync(ctx, &room.ForceSyncParams{
		ConnectionId: c.getConnectionIdFromCtx(ctx),
		Time:         input.Time,
		IsPlaying:    input.IsPlaying,
	}); err != nil {
		return fmt.Errorf("failed to force sync: %w", err)
	}

	return nil
}

type MediaActionInput struct {
	Action  string             `json:"action" validate:"required,oneof=load-file load-torrent load-stream clear-media"`
	File    *room.FileMedia    `json:"file"`
	Torrent *room.TorrentMedia `json:"torrent"`
	Stream  *room.StreamMedia  `json:"stream"`
}

func (c *controller) handleMediaAction(ctx context.Context, _ *websocket.Conn, input MediaActionInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("invalid payload: %v", validationErrors)
	}

	if err := c.roomService.MediaAction(ctx, &room.MediaActionParams{
		ConnectionId: c.getConnectionIdFromCtx(ctx),
		Action:       input.Action,
		File:         input.File,
		Torrent:      input.Torrent,
		Stream:       input.Stream,
	}); err != nil {
		return fmt.Errorf("failed to apply media action: %w", err)
	}

	return nil
}

type TransferAdminInput struct {
	TargetName string `json:"target_name" validate:"required"`
}

func (c *controller) handleTransferAdmin(ctx context.Context, _ *websocket.Conn, input TransferAdminInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("invalid payload: %v", validationErrors)
	}

	if err := c.roomService.TransferAdmin(ctx, &room.TransferAdminParams{
		ConnectionId: c.getConnectionIdFromCtx(ctx),
		TargetName:   input.TargetName,
	}); err != nil {
		return fmt.Errorf("failed to transfer admin: %w", err)
	}

	return nil
}

type KickUserInput struct {
	TargetName string `json:"target_name" validate:"required"`
}

func (c *controller) handleKickUser(ctx context.Context, _ *websocket.Conn, input KickUserInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("invalid payload: %v", validationErrors)
	}

	if err := c.roomService.KickUser(ctx, &room.KickUserParams{
		ConnectionId: c.getConnectionIdFromCtx(ctx),
		TargetName:   input.TargetName,
	}); err != nil {
		return fmt.Errorf("failed to kick user: %w", err)
	}

	return nil
}

type SubtitleUploadInput struct {
	Filename string `json:"filename" validate:"required"`
	Label    string `json:"label"`
	Language string `json:"language"`
	URL      string `json:"url" validate:"required"`
}

func (c *controller) handleSubtitleUpload(ctx context.Context, _ *websocket.Conn, input SubtitleUploadInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("invalid payload: %v", validationErrors)
	}

	if _, err := c.roomService.AddSubtitle(ctx, &room.AddSubtitleParams{
		ConnectionId: c.getConnectionIdFromCtx(ctx),
		Filename:     input.Filename,
		Label:        input.Label,
		Language:     input.Language,
		URL:          input.URL,
	}); err != nil {
		return fmt.Errorf("failed to add subtitle: %w", err)
	}

	return nil
}

type SubtitleSelectInput struct {
	SubtitleId string `json:"subtitle_id" validate:"required"`
}

func (c *controller) handleSubtitleSelect(ctx context.Context, _ *websocket.Conn, input SubtitleSelectInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("invalid payload: %v", validationErrors)
	}

	if err := c.roomService.SelectSubtitle(ctx, &room.SelectSubtitleParams{
		ConnectionId: c.getConnectionIdFromCtx(ctx),
		SubtitleId:   input.SubtitleId,
	}); err != nil {
		return fmt.Errorf("failed to select subtitle: %w", err)
	}

	return nil
}
