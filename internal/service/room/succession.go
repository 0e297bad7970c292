package room

import (
	"strings"

	"github.com/tosync/server/internal/repository/room"
)

// nextAdmin picks the successor when the admin departs: the earliest-joined
// remaining member, ties broken by connection id lexical order so the choice
// is deterministic.
func nextAdmin(members []room.Member) (room.Member, bool) {
	if len(members) == 0 {
		return room.Member{}, false
	}

	next := members[0]
	for _, member := range members[1:] {
		if member.JoinedAt.Before(next.JoinedAt) {
			next = member
			continue
		}
		if member.JoinedAt.Equal(next.JoinedAt) && strings.Compare(member.ConnectionId, next.ConnectionId) < 0 {
			next = member
		}
	}

	return next, true
}
