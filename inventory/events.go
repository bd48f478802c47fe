package inventory

import (
	"sync"
	"time"
)

type EventType string

const (
	MaterialCreated EventType = "material.created"
	MaterialUpdated EventType = "material.updated"
	MaterialDeleted EventType = "material.deleted"
	LoanCreated     EventType = "loan.created"
	LoanReturned    EventType = "loan.returned"
	LoanDeleted     EventType = "loan.deleted"
)

type Event struct {
	Type EventType `json:"type"`
	ID   string    `json:"id"`
	At   time.Time `json:"at"`
}

// Hub 把变更事件分发给订阅者；nil Hub 直接丢弃
type Hub struct {
	mu   sync.RWMutex
	subs []func(Event)
}

func NewHub() *Hub { return &Hub{} }

func (h *Hub) Subscribe(fn func(Event)) {
	if h == nil || fn == nil {
		return
	}
	h.mu.Lock()
	h.subs = append(h.subs, fn)
	h.mu.Unlock()
}

func (h *Hub) Publish(t EventType, id string) {
	if h == nil {
		return
	}
	ev := Event{Type: t, ID: id, At: time.Now().UTC()}
	h.mu.RLock()
	subs := append([]func(Event){}, h.subs...)
	h.mu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}
