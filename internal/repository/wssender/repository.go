package wssender

import (
	"errors"
	"time"

	"sync"

	"github.com/gorilla/websocket"
)

var ErrNotFound = errors.New("not found")

const closeWriteWait = 5 * time.Second

type closeFrame struct {
	code   int
	reason string
}

// Repo owns one buffered outbound queue and one writer goroutine per
// registered connection. Enqueueing never blocks: a full queue drops the
// frame, so one slow client cannot stall a room's fan-out. The order frames
// are enqueued in is the order they reach the socket.
type Repo struct {
	queues    map[*websocket.Conn]chan any
	queueSize int
	mu        sync.Mutex
}

func NewRepo(queueSize int) *Repo {
	return &Repo{
		queues:    make(map[*websocket.Conn]chan any),
		queueSize: queueSize,
	}
}

func (r *Repo) Register(conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.queues[conn]; ok {
		return
	}

	queue := make(chan any, r.queueSize)
	r.queues[conn] = queue

	go writePump(conn, queue)
}

func (r *Repo) Unregister(conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	queue, ok := r.queues[conn]
	if !ok {
		return
	}

	delete(r.queues, conn)
	close(queue)
}

func (r *Repo) Send(conn *websocket.Conn, msg any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	queue, ok := r.queues[conn]
	if !ok {
		return ErrNotFound
	}

	select {
	case queue <- msg:
	default:
		// queue full, drop the frame
	}

	return nil
}

// SendClose enqueues a close frame so it is written after every frame queued
// before it, then the connection is closed by the writer.
func (r *Repo) SendClose(conn *websocket.Conn, code int, reason string) error {
	return r.Send(conn, closeFrame{code: code, reason: reason})
}

func writePump(conn *websocket.Conn, queue chan any) {
	for msg := range queue {
		if frame, ok := msg.(closeFrame); ok {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(frame.code, frame.reason),
				time.Now().Add(closeWriteWait))
			conn.Close()
			drain(queue)
			return
		}

		if err := conn.WriteJSON(msg); err != nil {
			drain(queue)
			return
		}
	}
}

func drain(queue chan any) {
	for range queue {
	}
}
