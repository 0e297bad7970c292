package room

import "time"

type SetMemberParams struct {
	RoomCode string
	Member   Member
}

type RemoveMemberParams struct {
	RoomCode     string
	ConnectionId string
}

type GetMemberParams struct {
	RoomCode     string
	ConnectionId string
}

type SetMemberRoleParams struct {
	RoomCode     string
	ConnectionId string
	Role         string
}

type SetAdminParams struct {
	RoomCode string
	AdminId  string
}

type SetPlayerParams struct {
	RoomCode string
	Player   Player
}

type SetMediaParams struct {
	RoomCode string
	Media    *Media
}

type AddSubtitleParams struct {
	RoomCode string
	Subtitle Subtitle
}

type SetLastMediaActionParams struct {
	RoomCode string
	Hash     uint64
	At       time.Time
}
