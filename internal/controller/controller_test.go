package controller

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	connectioninmemory "github.com/tosync/server/internal/repository/connection/inmemory"
	roominmemory "github.com/tosync/server/internal/repository/room/inmemory"
	"github.com/tosync/server/internal/repository/torrent"
	"github.com/tosync/server/internal/repository/wssender"
	"github.com/tosync/server/internal/service/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	// a zero interval disables the throttle so rapid-fire tests stay deterministic
	return newTestServerWithInterval(t, 0)
}

func newTestServerWithInterval(t *testing.T, videoActionInterval time.Duration) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sender := wssender.NewRepo(32)
	roomService := room.NewService(
		roominmemory.NewRepo(),
		connectioninmemory.NewRepo(),
		sender,
		torrent.NewRepo(""),
		&room.Config{
			RoomCodeLength:        6,
			MembersLimit:          9,
			RoomInactivityTimeout: 5 * time.Minute,
			MediaDedupWindow:      2 * time.Second,
		},
		logger,
	)
	ctrl := NewController(roomService, sender, &Config{VideoActionInterval: videoActionInterval}, logger)

	server := httptest.NewServer(ctrl.GetMux())
	t.Cleanup(server.Close)
	return server
}

func dialWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func sendMessage(t *testing.T, conn *websocket.Conn, messageType string, payload any) {
	t.Helper()

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    messageType,
		"payload": payload,
	}))
}

func TestJoinRoomOverWS(t *testing.T) {
	server := newTestServer(t)

	// creator
	alex := dialWS(t, server)
	sendMessage(t, alex, "JOIN_ROOM", map[string]any{
		"room_code":  "AB12CD",
		"name":       "Alex",
		"role":       "admin",
		"is_creator": true,
	})

	f := readFrame(t, alex)
	require.Equal(t, "ROOM_STATE", f.Type)
	var alexState room.RoomState
	require.NoError(t, json.Unmarshal(f.Payload, &alexState))
	assert.Equal(t, "AB12CD", alexState.RoomCode)
	assert.True(t, alexState.IsAdmin)
	require.Len(t, alexState.Users, 1)

	// guest
	sam := dialWS(t, server)
	sendMessage(t, sam, "JOIN_ROOM", map[string]any{
		"room_code": "AB12CD",
		"name":      "Sam",
	})

	f = readFrame(t, sam)
	require.Equal(t, "ROOM_STATE", f.Type)
	var samState room.RoomState
	require.NoError(t, json.Unmarshal(f.Payload, &samState))
	assert.False(t, samState.IsAdmin)
	require.Len(t, samState.Users, 2)

	f = readFrame(t, alex)
	require.Equal(t, "USER_JOINED", f.Type)
	var joined room.UserJoinedPayload
	require.NoError(t, json.Unmarshal(f.Payload, &joined))
	assert.Equal(t, "Sam", joined.User.Name)

	f = readFrame(t, alex)
	require.Equal(t, "USERS_UPDATE", f.Type)

	// guest plays, only the admin sees the relay
	sendMessage(t, sam, "VIDEO_ACTION", map[string]any{
		"action": "play",
		"time":   0,
	})

	f = readFrame(t, alex)
	require.Equal(t, "SYNC_VIDEO", f.Type)
	var sync room.SyncVideoPayload
	require.NoError(t, json.Unmarshal(f.Payload, &sync))
	assert.Equal(t, "play", sync.Action)
	assert.Equal(t, "Sam", sync.User)
}

func TestJoinNonexistentRoomOverWS(t *testing.T) {
	server := newTestServer(t)

	conn := dialWS(t, server)
	sendMessage(t, conn, "JOIN_ROOM", map[string]any{
		"room_code": "ZZ99ZZ",
		"name":      "Sam",
	})

	f := readFrame(t, conn)
	assert.Equal(t, "ROOM_NOT_FOUND", f.Type)
}

func TestValidateRoomOverWS(t *testing.T) {
	server := newTestServer(t)

	alex := dialWS(t, server)
	sendMessage(t, alex, "JOIN_ROOM", map[string]any{
		"room_code":  "AB12CD",
		"name":       "Alex",
		"role":       "admin",
		"is_creator": true,
	})
	readFrame(t, alex)

	probe := dialWS(t, server)
	sendMessage(t, probe, "VALIDATE_ROOM", map[string]any{"room_code": "ab12cd"})
	f := readFrame(t, probe)
	assert.Equal(t, "ROOM_EXISTS", f.Type)

	sendMessage(t, probe, "VALIDATE_ROOM", map[string]any{"room_code": "ZZ99ZZ"})
	f = readFrame(t, probe)
	assert.Equal(t, "ROOM_NOT_FOUND", f.Type)
}

func TestKickOverWS(t *testing.T) {
	server := newTestServer(t)

	alex := dialWS(t, server)
	sendMessage(t, alex, "JOIN_ROOM", map[string]any{
		"room_code":  "AB12CD",
		"name":       "Alex",
		"role":       "admin",
		"is_creator": true,
	})
	readFrame(t, alex)

	sam := dialWS(t, server)
	sendMessage(t, sam, "JOIN_ROOM", map[string]any{
		"room_code": "AB12CD",
		"name":      "Sam",
	})
	readFrame(t, sam)
	readFrame(t, alex) // USER_JOINED
	readFrame(t, alex) // USERS_UPDATE

	sendMessage(t, alex, "KICK_USER", map[string]any{"target_name": "Sam"})

	f := readFrame(t, sam)
	require.Equal(t, "USER_KICKED", f.Type)
	var kicked room.UserKickedPayload
	require.NoError(t, json.Unmarshal(f.Payload, &kicked))
	assert.True(t, kicked.IsYouKicked)

	// the close frame follows the kick notification
	sam.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := sam.ReadMessage()
	require.Error(t, err)
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, 4001, closeErr.Code)

	f = readFrame(t, alex)
	require.Equal(t, "USER_KICKED", f.Type)
}

func TestGuestMediaActionRejectedOverWS(t *testing.T) {
	server := newTestServer(t)

	alex := dialWS(t, server)
	sendMessage(t, alex, "JOIN_ROOM", map[string]any{
		"room_code":  "AB12CD",
		"name":       "Alex",
		"role":       "admin",
		"is_creator": true,
	})
	readFrame(t, alex)

	sam := dialWS(t, server)
	sendMessage(t, sam, "JOIN_ROOM", map[string]any{
		"room_code": "AB12CD",
		"name":      "Sam",
	})
	readFrame(t, sam)

	sendMessage(t, sam, "MEDIA_ACTION", map[string]any{
		"action": "load-file",
		"file":   map[string]any{"url": "/x.mp4", "name": "x.mp4"},
	})

	f := readFrame(t, sam)
	assert.Equal(t, "ERROR", f.Type)
}

func TestVideoActionThrottleOverWS(t *testing.T) {
	server := newTestServerWithInterval(t, 100*time.Millisecond)

	alex := dialWS(t, server)
	sendMessage(t, alex, "JOIN_ROOM", map[string]any{
		"room_code":  "AB12CD",
		"name":       "Alex",
		"role":       "admin",
		"is_creator": true,
	})
	readFrame(t, alex)

	sam := dialWS(t, server)
	sendMessage(t, sam, "JOIN_ROOM", map[string]any{
		"room_code": "AB12CD",
		"name":      "Sam",
	})
	readFrame(t, sam)
	readFrame(t, alex) // USER_JOINED
	readFrame(t, alex) // USERS_UPDATE

	// the first action relays, an immediate second one is silently dropped
	sendMessage(t, sam, "VIDEO_ACTION", map[string]any{"action": "play", "time": 10})
	sendMessage(t, sam, "VIDEO_ACTION", map[string]any{"action": "pause", "time": 11})

	f := readFrame(t, alex)
	require.Equal(t, "SYNC_VIDEO", f.Type)
	var sync room.SyncVideoPayload
	require.NoError(t, json.Unmarshal(f.Payload, &sync))
	assert.Equal(t, "play", sync.Action)

	// past the interval the next action relays again
	time.Sleep(150 * time.Millisecond)
	sendMessage(t, sam, "VIDEO_ACTION", map[string]any{"action": "seek", "time": 30})

	f = readFrame(t, alex)
	require.Equal(t, "SYNC_VIDEO", f.Type)
	require.NoError(t, json.Unmarshal(f.Payload, &sync))
	assert.Equal(t, "seek", sync.Action, "the dropped action must not surface later")
	assert.Equal(t, float64(30), sync.Time)
}

func TestTransferAdminErrorOverWS(t *testing.T) {
	server := newTestServer(t)

	alex := dialWS(t, server)
	sendMessage(t, alex, "JOIN_ROOM", map[string]any{
		"room_code":  "AB12CD",
		"name":       "Alex",
		"role":       "admin",
		"is_creator": true,
	})
	readFrame(t, alex)

	sendMessage(t, alex, "TRANSFER_ADMIN", map[string]any{"target_name": "Nobody"})
	f := readFrame(t, alex)
	assert.Equal(t, "TRANSFER_ADMIN_ERROR", f.Type)
}

func TestRESTEndpoints(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/v1/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// fresh room code
	resp, err = http.Post(server.URL+"/api/v1/room/code", "application/json", nil)
	require.NoError(t, err)
	var codeBody struct {
		Data struct {
			RoomCode string `json:"room_code"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&codeBody))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, codeBody.Data.RoomCode, 6)

	// probe for a room that does not exist yet
	resp, err = http.Get(server.URL + "/api/v1/room/" + codeBody.Data.RoomCode)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// create it over ws, then the probe hits
	conn := dialWS(t, server)
	sendMessage(t, conn, "JOIN_ROOM", map[string]any{
		"room_code":  codeBody.Data.RoomCode,
		"name":       "Alex",
		"role":       "admin",
		"is_creator": true,
	})
	f := readFrame(t, conn)
	require.Equal(t, "ROOM_STATE", f.Type)

	resp, err = http.Get(server.URL + "/api/v1/room/" + codeBody.Data.RoomCode)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// stats reflect the live room
	resp, err = http.Get(server.URL + "/api/v1/stats")
	require.NoError(t, err)
	var statsBody struct {
		Data room.Stats `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&statsBody))
	resp.Body.Close()
	assert.Equal(t, 1, statsBody.Data.TotalRooms)
	assert.Equal(t, 1, statsBody.Data.TotalUsers)

	// authorization probe
	var state room.RoomState
	require.NoError(t, json.Unmarshal(f.Payload, &state))
	require.Len(t, state.Users, 1)
	connectionId := state.Users[0].Id

	url := fmt.Sprintf("%s/api/v1/room/%s/authorize?connection-id=%s", server.URL, codeBody.Data.RoomCode, connectionId)
	resp, err = http.Get(url)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	url = fmt.Sprintf("%s/api/v1/room/%s/authorize?connection-id=stranger", server.URL, codeBody.Data.RoomCode)
	resp, err = http.Get(url)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
