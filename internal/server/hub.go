package server

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nmlab/attractor/internal/attractor"
)

// writeWait bounds a single subscriber write so a wedged peer cannot pin
// its serve goroutine once the kernel send buffer fills.
const writeWait = 5 * time.Second

// forceMessage is the egress wire format, one message per published tick.
type forceMessage struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
	Tick uint64  `json:"tick"`
}

// Hub fans force commands out to websocket subscribers. It implements
// attractor.ForceSink; Publish never blocks the sample loop — a subscriber
// that falls behind has commands dropped instead.
type Hub struct {
	logger *slog.Logger

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	conn *websocket.Conn
	out  chan []byte
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		subs:   make(map[*subscriber]struct{}),
	}
}

// Publish implements attractor.ForceSink.
func (h *Hub) Publish(cmd attractor.ForceCommand) error {
	msg, err := json.Marshal(forceMessage{
		X:    cmd.Force.X(),
		Y:    cmd.Force.Y(),
		Z:    cmd.Force.Z(),
		Tick: cmd.Tick,
	})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.out <- msg:
		default:
			// Slow consumer: drop rather than stall the tick.
		}
	}
	return nil
}

// Subscribers reports the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) add(conn *websocket.Conn) *subscriber {
	sub := &subscriber{conn: conn, out: make(chan []byte, 64)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
	close(sub.out)
}

// serve pumps queued messages to one subscriber until the connection drops.
func (h *Hub) serve(sub *subscriber) {
	defer sub.conn.Close()
	for msg := range sub.out {
		_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := sub.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debug("force subscriber dropped", "err", err)
			return
		}
	}
}
