package room

import "time"

const (
	RoleAdmin = "admin"
	RoleGuest = "guest"
)

const (
	VideoActionPlay         = "play"
	VideoActionPause        = "pause"
	VideoActionSeek         = "seek"
	VideoActionPlaybackRate = "playback-rate"
)

const (
	MediaActionLoadFile    = "load-file"
	MediaActionLoadTorrent = "load-torrent"
	MediaActionLoadStream  = "load-stream"
	MediaActionClearMedia  = "clear-media"
)

const (
	MediaTypeFile    = "file"
	MediaTypeTorrent = "torrent"
	MediaTypeStream  = "stream"
)

const (
	EventRoomState        = "ROOM_STATE"
	EventUserJoined       = "USER_JOINED"
	EventUserLeft         = "USER_LEFT"
	EventUsersUpdate      = "USERS_UPDATE"
	EventSyncVideo        = "SYNC_VIDEO"
	EventMediaUpdate      = "MEDIA_UPDATE"
	EventForceSync        = "FORCE_SYNC"
	EventAdminTransferred = "ADMIN_TRANSFERRED"
	EventUserKicked       = "USER_KICKED"
	EventSubtitleAdded    = "SUBTITLE_ADDED"
	EventSubtitleSelected = "SUBTITLE_SELECTED"
)

type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type Member struct {
	Id       string    `json:"id"`
	Name     string    `json:"name"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

type Player struct {
	IsPlaying    bool    `json:"is_playing"`
	CurrentTime  float64 `json:"current_time"`
	PlaybackRate float64 `json:"playback_rate"`
}

type FileMedia struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type TorrentMedia struct {
	InfoHash  string `json:"info_hash"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	StreamURL string `json:"stream_url"`
}

type StreamMedia struct {
	RelayURL string `json:"relay_url"`
	Name     string `json:"name"`
}

type Media struct {
	Type     string        `json:"type"`
	File     *FileMedia    `json:"file,omitempty"`
	Torrent  *TorrentMedia `json:"torrent,omitempty"`
	Stream   *StreamMedia  `json:"stream,omitempty"`
	LoadedBy string        `json:"loaded_by"`
	LoadedAt time.Time     `json:"loaded_at"`
}

type Subtitle struct {
	Id       string `json:"id"`
	Filename string `json:"filename"`
	Label    string `json:"label"`
	Language string `json:"language"`
	URL      string `json:"url"`
}

// RoomState is the full snapshot a joining client receives. It must let the
// client reach the same visible state as existing members with no further
// round trips.
type RoomState struct {
	RoomCode  string     `json:"room_code"`
	Users     []Member   `json:"users"`
	UserCount int        `json:"user_count"`
	Player    Player     `json:"player"`
	Media     *Media     `json:"media"`
	Subtitles []Subtitle `json:"subtitles"`
	IsAdmin   bool       `json:"is_admin"`
}

type UserJoinedPayload struct {
	User      Member `json:"user"`
	UserCount int    `json:"user_count"`
}

type UserLeftPayload struct {
	User      Member `json:"user"`
	UserCount int    `json:"user_count"`
}

type UsersUpdatePayload struct {
	Users     []Member `json:"users"`
	UserCount int      `json:"user_count"`
}

type SyncVideoPayload struct {
	Action       string  `json:"action"`
	Time         float64 `json:"time"`
	PlaybackRate float64 `json:"playback_rate"`
	User         string  `json:"user"`
	Timestamp    int64   `json:"timestamp"`
}

type MediaUpdatePayload struct {
	Action string `json:"action"`
	Media  *Media `json:"media"`
	User   string `json:"user"`
}

type ForceSyncPayload struct {
	Time      float64 `json:"time"`
	IsPlaying bool    `json:"is_playing"`
	User      string  `json:"user"`
}

type AdminTransferredPayload struct {
	NewAdminName     string `json:"new_admin_name"`
	FormerAdminName  string `json:"former_admin_name"`
	IsYouNewAdmin    bool   `json:"is_you_new_admin"`
	IsYouFormerAdmin bool   `json:"is_you_former_admin"`
	Reason           string `json:"reason"`
}

type UserKickedPayload struct {
	KickedUserName string `json:"kicked_user_name"`
	KickedByAdmin  string `json:"kicked_by_admin"`
	IsYouKicked    bool   `json:"is_you_kicked"`
}

type SubtitleAddedPayload struct {
	Subtitle Subtitle `json:"subtitle"`
	User     string   `json:"user"`
}

type SubtitleSelectedPayload struct {
	SubtitleId string `json:"subtitle_id"`
	User       string `json:"user"`
}

type RoomStats struct {
	RoomCode     string    `json:"room_code"`
	UserCount    int       `json:"user_count"`
	HasMedia     bool      `json:"has_media"`
	AdminPresent bool      `json:"admin_present"`
	CurrentAdmin string    `json:"current_admin,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

type Stats struct {
	TotalUsers  int         `json:"total_users"`
	TotalRooms  int         `json:"total_rooms"`
	ActiveRooms int         `json:"active_rooms"`
	Rooms       []RoomStats `json:"rooms"`
}
