package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// PredictionEvent is pushed to feed subscribers for every served prediction.
type PredictionEvent struct {
	Type                string    `json:"type"`
	QuestionText        string    `json:"question_text,omitempty"`
	PredictedDifficulty *int      `json:"predicted_difficulty,omitempty"` // nil on non-prediction events
	RequestID           string    `json:"request_id,omitempty"`
	Timestamp           time.Time `json:"timestamp"`
}

const (
	eventConnected  = "connected"
	eventPrediction = "prediction"
	writeWait       = 5 * time.Second
)

// Feed streams prediction events to WebSocket clients.
type Feed struct {
	upgrader    websocket.Upgrader
	clients     map[*websocket.Conn]*sync.Mutex // per-connection write lock
	clientsMu   sync.RWMutex
	broadcast   chan PredictionEvent
	stopChannel chan struct{}
	stopOnce    sync.Once
}

// NewFeed creates a feed; Run must be started before events are delivered.
func NewFeed() *Feed {
	return &Feed{
		upgrader:    websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:     make(map[*websocket.Conn]*sync.Mutex),
		broadcast:   make(chan PredictionEvent, 100),
		stopChannel: make(chan struct{}),
	}
}

// Publish queues an event. It never blocks; events are dropped when the
// queue is full.
func (f *Feed) Publish(ev PredictionEvent) {
	select {
	case f.broadcast <- ev:
	default:
		log.Warn().Msg("prediction feed queue full, dropping event")
	}
}

// Run delivers queued events until Stop is called.
func (f *Feed) Run() {
	for {
		select {
		case ev := <-f.broadcast:
			f.send(ev)
		case <-f.stopChannel:
			return
		}
	}
}

// Stop ends Run and closes every client connection.
func (f *Feed) Stop() {
	f.stopOnce.Do(func() {
		close(f.stopChannel)

		f.clientsMu.Lock()
		for conn := range f.clients {
			conn.Close()
		}
		f.clients = make(map[*websocket.Conn]*sync.Mutex)
		f.clientsMu.Unlock()
	})
}

// Clients returns the number of connected subscribers.
func (f *Feed) Clients() int {
	f.clientsMu.RLock()
	defer f.clientsMu.RUnlock()
	return len(f.clients)
}

func (f *Feed) send(ev PredictionEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal prediction event")
		return
	}

	f.clientsMu.RLock()
	defer f.clientsMu.RUnlock()
	for conn, mu := range f.clients {
		mu.Lock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Debug().Err(err).Msg("failed to write to feed client")
		}
		mu.Unlock()
	}
}

// ServeHTTP upgrades the connection and keeps it registered until the client
// goes away.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	mu := &sync.Mutex{}
	f.clientsMu.Lock()
	f.clients[conn] = mu
	f.clientsMu.Unlock()

	hello, _ := json.Marshal(PredictionEvent{Type: eventConnected, Timestamp: time.Now().UTC()})
	mu.Lock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.TextMessage, hello)
	mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	f.clientsMu.Lock()
	delete(f.clients, conn)
	f.clientsMu.Unlock()
}
