package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tosync/server/internal/repository/room"
)

type JoinRoomParams struct {
	RoomCode     string
	Name         string
	Role         string
	IsCreator    bool
	ConnectionId string
	Conn         *websocket.Conn
}

type JoinRoomResponse struct {
	RoomCode   string
	MemberName string
	IsAdmin    bool
}

// JoinRoom runs the join handshake: code validation, room creation for
// creators, stale-membership cleanup, name de-duplication and role
// assignment. The joiner receives the full room snapshot; everyone else is
// notified.
func (s *service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	roomCode, err := s.normalizeRoomCode(params.RoomCode)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	// a reconnect race can leave this connection registered in another room
	// without a clean leave; detach it there first
	if oldRoomCode, err := s.connRepo.GetRoomCode(params.ConnectionId); err == nil && oldRoomCode != roomCode {
		if err := s.leaveRoom(ctx, oldRoomCode, params.ConnectionId); err != nil && !errors.Is(err, ErrMemberNotFound) {
			s.logger.WarnContext(ctx, "failed to detach stale membership", "room_code", oldRoomCode, "error", err)
		}
	}

	unlock := s.lockRoom(roomCode)
	defer unlock()

	// a retried join for the room this connection already belongs to must not
	// cycle the membership; just resend the snapshot
	if existing, err := s.roomRepo.GetMember(ctx, &room.GetMemberParams{RoomCode: roomCode, ConnectionId: params.ConnectionId}); err == nil {
		state, err := s.roomState(ctx, roomCode, params.ConnectionId)
		if err != nil {
			return JoinRoomResponse{}, fmt.Errorf("failed to build room state: %w", err)
		}
		if err := s.sender.Send(params.Conn, &Event{Type: EventRoomState, Payload: state}); err != nil {
			s.logger.DebugContext(ctx, "failed to send room state", "error", err)
		}
		return JoinRoomResponse{
			RoomCode:   roomCode,
			MemberName: existing.Name,
			IsAdmin:    existing.Role == RoleAdmin,
		}, nil
	}

	now := time.Now()

	if !s.roomRepo.RoomExists(ctx, roomCode) {
		if !params.IsCreator || params.Role != RoleAdmin {
			return JoinRoomResponse{}, ErrRoomNotFound
		}

		if err := s.roomRepo.CreateRoom(ctx, roomCode, now); err != nil {
			return JoinRoomResponse{}, fmt.Errorf("failed to create room: %w", err)
		}
		s.logger.InfoContext(ctx, "room created", "room_code", roomCode)
	}

	members, err := s.roomRepo.GetMembers(ctx, roomCode)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to get members: %w", err)
	}
	if len(members) >= s.membersLimit {
		return JoinRoomResponse{}, ErrMembersLimitReached
	}

	name := uniqueName(params.Name, members)

	// a room must never be left without an admin while someone is present,
	// and it must never hold two
	role := params.Role
	if len(members) == 0 {
		role = RoleAdmin
	}
	adminId, err := s.roomRepo.GetAdminId(ctx, roomCode)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to get admin id: %w", err)
	}
	if role == RoleAdmin && adminId != "" {
		role = RoleGuest
	}

	member := room.Member{
		ConnectionId: params.ConnectionId,
		Name:         name,
		Role:         role,
		JoinedAt:     now,
	}
	if err := s.roomRepo.SetMember(ctx, &room.SetMemberParams{RoomCode: roomCode, Member: member}); err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to set member: %w", err)
	}
	if role == RoleAdmin {
		if err := s.roomRepo.SetAdmin(ctx, &room.SetAdminParams{RoomCode: roomCode, AdminId: params.ConnectionId}); err != nil {
			return JoinRoomResponse{}, fmt.Errorf("failed to set admin: %w", err)
		}
	}

	if err := s.connRepo.Add(params.Conn, params.ConnectionId, roomCode); err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to register connection: %w", err)
	}

	if err := s.roomRepo.TouchRoom(ctx, roomCode, now); err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to touch room: %w", err)
	}

	state, err := s.roomState(ctx, roomCode, params.ConnectionId)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to build room state: %w", err)
	}

	if err := s.sender.Send(params.Conn, &Event{Type: EventRoomState, Payload: state}); err != nil {
		s.logger.DebugContext(ctx, "failed to send room state", "error", err)
	}

	s.sendToMembers(ctx, roomCode, &Event{
		Type: EventUserJoined,
		Payload: UserJoinedPayload{
			User:      toMemberDTO(member),
			UserCount: state.UserCount,
		},
	}, params.ConnectionId)
	// the joiner already holds the list via the snapshot
	s.sendToMembers(ctx, roomCode, &Event{
		Type: EventUsersUpdate,
		Payload: UsersUpdatePayload{
			Users:     state.Users,
			UserCount: state.UserCount,
		},
	}, params.ConnectionId)

	s.logger.InfoContext(ctx, "member joined",
		"room_code", roomCode,
		"connection_id", params.ConnectionId,
		"name", name,
		"role", role,
	)

	return JoinRoomResponse{
		RoomCode:   roomCode,
		MemberName: name,
		IsAdmin:    role == RoleAdmin,
	}, nil
}

type DisconnectMemberParams struct {
	ConnectionId string
}

// DisconnectMember runs leave processing for a transport-level disconnect.
// A connection that never joined, or was already removed by a kick, is a
// no-op.
func (s *service) DisconnectMember(ctx context.Context, params *DisconnectMemberParams) error {
	roomCode, err := s.connRepo.GetRoomCode(params.ConnectionId)
	if err != nil {
		return nil
	}

	if err := s.leaveRoom(ctx, roomCode, params.ConnectionId); err != nil && !errors.Is(err, ErrMemberNotFound) {
		return err
	}

	return nil
}

func (s *service) leaveRoom(ctx context.Context, roomCode, connectionId string) error {
	unlock := s.lockRoom(roomCode)
	defer unlock()

	member, err := s.roomRepo.GetMember(ctx, &room.GetMemberParams{RoomCode: roomCode, ConnectionId: connectionId})
	if err != nil {
		s.connRepo.RemoveByConnectionId(connectionId)
		if errors.Is(err, room.ErrRoomNotFound) || errors.Is(err, room.ErrMemberNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to get member: %w", err)
	}

	adminId, err := s.roomRepo.GetAdminId(ctx, roomCode)
	if err != nil {
		return fmt.Errorf("failed to get admin id: %w", err)
	}

	if err := s.roomRepo.RemoveMember(ctx, &room.RemoveMemberParams{RoomCode: roomCode, ConnectionId: connectionId}); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	s.connRepo.RemoveByConnectionId(connectionId)

	if err := s.roomRepo.TouchRoom(ctx, roomCode, time.Now()); err != nil {
		return fmt.Errorf("failed to touch room: %w", err)
	}

	remaining, err := s.roomRepo.GetMembers(ctx, roomCode)
	if err != nil {
		return fmt.Errorf("failed to get members: %w", err)
	}

	if adminId == connectionId {
		if next, ok := nextAdmin(remaining); ok {
			if err := s.promoteSuccessor(ctx, roomCode, next, member.Name); err != nil {
				return err
			}
		} else {
			if err := s.roomRepo.SetAdmin(ctx, &room.SetAdminParams{RoomCode: roomCode, AdminId: ""}); err != nil {
				return fmt.Errorf("failed to clear admin: %w", err)
			}
		}
	}

	if len(remaining) > 0 {
		s.sendToMembers(ctx, roomCode, &Event{
			Type: EventUserLeft,
			Payload: UserLeftPayload{
				User:      toMemberDTO(member),
				UserCount: len(remaining),
			},
		})

		memberList, err := s.getMembers(ctx, roomCode)
		if err != nil {
			return err
		}
		s.sendToMembers(ctx, roomCode, &Event{
			Type: EventUsersUpdate,
			Payload: UsersUpdatePayload{
				Users:     memberList,
				UserCount: len(memberList),
			},
		})
	}

	s.logger.InfoContext(ctx, "member left",
		"room_code", roomCode,
		"connection_id", connectionId,
		"name", member.Name,
	)

	return nil
}

func (s *service) promoteSuccessor(ctx context.Context, roomCode string, next room.Member, formerAdminName string) error {
	if err := s.roomRepo.SetMemberRole(ctx, &room.SetMemberRoleParams{
		RoomCode:     roomCode,
		ConnectionId: next.ConnectionId,
		Role:         RoleAdmin,
	}); err != nil {
		return fmt.Errorf("failed to promote successor: %w", err)
	}
	if err := s.roomRepo.SetAdmin(ctx, &room.SetAdminParams{RoomCode: roomCode, AdminId: next.ConnectionId}); err != nil {
		return fmt.Errorf("failed to set admin: %w", err)
	}

	s.sendToConnectionId(ctx, next.ConnectionId, &Event{
		Type: EventAdminTransferred,
		Payload: AdminTransferredPayload{
			NewAdminName:    next.Name,
			FormerAdminName: formerAdminName,
			IsYouNewAdmin:   true,
			Reason:          "admin-left",
		},
	})
	s.sendToMembers(ctx, roomCode, &Event{
		Type: EventAdminTransferred,
		Payload: AdminTransferredPayload{
			NewAdminName:    next.Name,
			FormerAdminName: formerAdminName,
			Reason:          "admin-left",
		},
	}, next.ConnectionId)

	s.logger.InfoContext(ctx, "admin succession",
		"room_code", roomCode,
		"new_admin", next.Name,
		"former_admin", formerAdminName,
	)

	return nil
}

type TransferAdminParams struct {
	ConnectionId string
	TargetName   string
}

// TransferAdmin swaps the admin role to the named guest. The former admin,
// the new admin and the observers each receive a distinctly framed
// notification.
func (s *service) TransferAdmin(ctx context.Context, params *TransferAdminParams) error {
	roomCode, err := s.connRepo.GetRoomCode(params.ConnectionId)
	if err != nil {
		return ErrMemberNotFound
	}

	unlock := s.lockRoom(roomCode)
	defer unlock()

	sender, err := s.roomRepo.GetMember(ctx, &room.GetMemberParams{RoomCode: roomCode, ConnectionId: params.ConnectionId})
	if err != nil {
		return ErrMemberNotFound
	}
	if sender.Role != RoleAdmin {
		return ErrNotAuthorized
	}

	target, err := s.roomRepo.GetMemberByName(ctx, roomCode, params.TargetName)
	if err != nil || target.Role != RoleGuest {
		return ErrTargetNotFound
	}

	if err := s.roomRepo.SetMemberRole(ctx, &room.SetMemberRoleParams{
		RoomCode:     roomCode,
		ConnectionId: sender.ConnectionId,
		Role:         RoleGuest,
	}); err != nil {
		return fmt.Errorf("failed to demote former admin: %w", err)
	}
	if err := s.roomRepo.SetMemberRole(ctx, &room.SetMemberRoleParams{
		RoomCode:     roomCode,
		ConnectionId: target.ConnectionId,
		Role:         RoleAdmin,
	}); err != nil {
		return fmt.Errorf("failed to promote new admin: %w", err)
	}
	if err := s.roomRepo.SetAdmin(ctx, &room.SetAdminParams{RoomCode: roomCode, AdminId: target.ConnectionId}); err != nil {
		return fmt.Errorf("failed to set admin: %w", err)
	}

	if err := s.roomRepo.TouchRoom(ctx, roomCode, time.Now()); err != nil {
		return fmt.Errorf("failed to touch room: %w", err)
	}

	s.sendToConnectionId(ctx, sender.ConnectionId, &Event{
		Type: EventAdminTransferred,
		Payload: AdminTransferredPayload{
			NewAdminName:     target.Name,
			FormerAdminName:  sender.Name,
			IsYouFormerAdmin: true,
			Reason:           "manual-transfer",
		},
	})
	s.sendToConnectionId(ctx, target.ConnectionId, &Event{
		Type: EventAdminTransferred,
		Payload: AdminTransferredPayload{
			NewAdminName:    target.Name,
			FormerAdminName: sender.Name,
			IsYouNewAdmin:   true,
			Reason:          "manual-transfer",
		},
	})
	s.sendToMembers(ctx, roomCode, &Event{
		Type: EventAdminTransferred,
		Payload: AdminTransferredPayload{
			NewAdminName:    target.Name,
			FormerAdminName: sender.Name,
			Reason:          "manual-transfer",
		},
	}, sender.ConnectionId, target.ConnectionId)

	memberList, err := s.getMembers(ctx, roomCode)
	if err != nil {
		return err
	}
	s.sendToMembers(ctx, roomCode, &Event{
		Type: EventUsersUpdate,
		Payload: UsersUpdatePayload{
			Users:     memberList,
			UserCount: len(memberList),
		},
	})

	s.logger.InfoContext(ctx, "admin transferred",
		"room_code", roomCode,
		"former_admin", sender.Name,
		"new_admin", target.Name,
	)

	return nil
}

type KickUserParams struct {
	ConnectionId string
	TargetName   string
}

// KickUser removes the named member from the room, then forces their
// connection closed. The room-side removal happens first so the target's
// disconnect handler finds nothing left to leave.
func (s *service) KickUser(ctx context.Context, params *KickUserParams) error {
	roomCode, err := s.connRepo.GetRoomCode(params.ConnectionId)
	if err != nil {
		return ErrMemberNotFound
	}

	unlock := s.lockRoom(roomCode)
	defer unlock()

	admin, err := s.roomRepo.GetMember(ctx, &room.GetMemberParams{RoomCode: roomCode, ConnectionId: params.ConnectionId})
	if err != nil {
		return ErrMemberNotFound
	}
	if admin.Role != RoleAdmin {
		return ErrNotAuthorized
	}

	target, err := s.roomRepo.GetMemberByName(ctx, roomCode, params.TargetName)
	if err != nil {
		return ErrTargetNotFound
	}
	if target.ConnectionId == admin.ConnectionId {
		return ErrSelfKick
	}

	targetConn, connErr := s.connRepo.GetConn(target.ConnectionId)

	if err := s.roomRepo.RemoveMember(ctx, &room.RemoveMemberParams{RoomCode: roomCode, ConnectionId: target.ConnectionId}); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	s.connRepo.RemoveByConnectionId(target.ConnectionId)

	if err := s.roomRepo.TouchRoom(ctx, roomCode, time.Now()); err != nil {
		return fmt.Errorf("failed to touch room: %w", err)
	}

	// the kicked connection is told why before the transport closes
	if connErr == nil {
		s.sender.Send(targetConn, &Event{
			Type: EventUserKicked,
			Payload: UserKickedPayload{
				KickedUserName: target.Name,
				KickedByAdmin:  admin.Name,
				IsYouKicked:    true,
			},
		})
		s.sender.SendClose(targetConn, 4001, "kicked")
	}

	s.sendToMembers(ctx, roomCode, &Event{
		Type: EventUserKicked,
		Payload: UserKickedPayload{
			KickedUserName: target.Name,
			KickedByAdmin:  admin.Name,
		},
	})

	memberList, err := s.getMembers(ctx, roomCode)
	if err != nil {
		return err
	}
	s.sendToMembers(ctx, roomCode, &Event{
		Type: EventUsersUpdate,
		Payload: UsersUpdatePayload{
			Users:     memberList,
			UserCount: len(memberList),
		},
	})

	s.logger.InfoContext(ctx, "member kicked",
		"room_code", roomCode,
		"kicked", target.Name,
		"by", admin.Name,
	)

	return nil
}
