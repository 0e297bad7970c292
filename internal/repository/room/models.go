package room

import "time"

type Member struct {
	ConnectionId string
	Name         string
	Role         string
	JoinedAt     time.Time
}

type Player struct {
	IsPlaying    bool
	CurrentTime  float64
	PlaybackRate float64
}

type FileMedia struct {
	URL  string
	Name string
	Size int64
}

type TorrentMedia struct {
	InfoHash  string
	Name      string
	Size      int64
	StreamURL string
}

type StreamMedia struct {
	RelayURL string
	Name     string
}

// Media is a tagged descriptor of what is currently loaded in a room. Exactly
// one of File, Torrent or Stream is non-nil, matching Type.
type Media struct {
	Type     string
	File     *FileMedia
	Torrent  *TorrentMedia
	Stream   *StreamMedia
	LoadedBy string
	LoadedAt time.Time
}

type Subtitle struct {
	Id       string
	Filename string
	Label    string
	Language string
	URL      string
}

type RoomInfo struct {
	Code         string
	MemberCount  int
	AdminId      string
	HasMedia     bool
	CreatedAt    time.Time
	LastActivity time.Time
}
