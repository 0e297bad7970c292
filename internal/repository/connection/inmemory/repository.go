package inmemory

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// repo maps a live connection to the (room, connection id) it currently
// belongs to. An entry exists exactly while the connection is a member of a
// room; a connection is a member of at most one room at any instant.
type repo struct {
	connList map[*websocket.Conn]string
	idList   map[string]*websocket.Conn
	roomList map[string]string
	mu       sync.RWMutex
}

func NewRepo() *repo {
	return &repo{
		connList: make(map[*websocket.Conn]string),
		idList:   make(map[string]*websocket.Conn),
		roomList: make(map[string]string),
	}
}

func (r *repo) Add(conn *websocket.Conn, connectionId, roomCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.connList[conn] != "" || r.idList[connectionId] != nil {
		return ErrAlreadyExists
	}

	r.connList[conn] = connectionId
	r.idList[connectionId] = conn
	r.roomList[connectionId] = roomCode

	return nil
}

func (r *repo) RemoveByConnectionId(connectionId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.idList[connectionId]
	if !ok {
		return ErrNotFound
	}

	delete(r.connList, conn)
	delete(r.idList, connectionId)
	delete(r.roomList, connectionId)

	return nil
}

func (r *repo) GetConn(connectionId string) (*websocket.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.idList[connectionId]
	if !ok {
		return nil, ErrNotFound
	}

	return conn, nil
}

func (r *repo) GetConnectionId(conn *websocket.Conn) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connectionId, ok := r.connList[conn]
	if !ok {
		return "", ErrNotFound
	}

	return connectionId, nil
}

func (r *repo) GetRoomCode(connectionId string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roomCode, ok := r.roomList[connectionId]
	if !ok {
		return "", ErrNotFound
	}

	return roomCode, nil
}

func (r *repo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.idList)
}
