package web

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/rbright/interpret/internal/fault"
	"github.com/rbright/interpret/internal/fsm"
	"github.com/rbright/interpret/internal/languages"
	"github.com/rbright/interpret/internal/pipeline"
)

const clientBuffer = 32

// Event is one websocket message.
type Event struct {
	Type   string              `json:"type"`
	Text   string              `json:"text,omitempty"`
	Kind   fault.Kind          `json:"kind,omitempty"`
	Detail string              `json:"detail,omitempty"`
	Active *bool               `json:"active,omitempty"`
	State  fsm.State           `json:"state,omitempty"`
	Source *languages.Language `json:"source,omitempty"`
	Target *languages.Language `json:"target,omitempty"`
}

// Hub fans pipeline events out to websocket clients. Slow clients lose
// events instead of blocking the pipeline goroutine.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[chan []byte]struct{}
	dropped uint64
}

var _ pipeline.Listener = (*Hub)(nil)

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Hub{logger: logger, clients: make(map[chan []byte]struct{})}
}

// Subscribe registers a client. The returned cancel func closes the channel.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, clientBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.clients, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

func (h *Hub) Publish(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("encode websocket event", "type", ev.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- payload:
		default:
			h.dropped++
		}
	}
}

func (h *Hub) OnTranscript(text string) {
	h.Publish(Event{Type: "transcript", Text: text})
}

func (h *Hub) OnTranslation(text string) {
	h.Publish(Event{Type: "translation", Text: text})
}

func (h *Hub) OnError(kind fault.Kind, detail string) {
	h.Publish(Event{Type: "error", Kind: kind, Detail: detail})
}

func (h *Hub) OnTranslating(active bool) {
	h.Publish(Event{Type: "translating", Active: &active})
}

func (h *Hub) OnStatus(state fsm.State) {
	h.Publish(Event{Type: "status", State: state})
}

func (h *Hub) OnLanguages(source, target languages.Language) {
	h.Publish(Event{Type: "languages", Source: &source, Target: &target})
}
