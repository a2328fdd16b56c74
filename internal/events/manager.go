package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType represents different event types
type EventType string

const (
	OrderCreated   EventType = "ORDER_CREATED"
	OrderFilled    EventType = "ORDER_FILLED"
	OrderRejected  EventType = "ORDER_REJECTED"
	OrderCancelled EventType = "ORDER_CANCELLED"

	PositionOpened  EventType = "POSITION_OPENED"
	PositionReduced EventType = "POSITION_REDUCED"
	PositionClosed  EventType = "POSITION_CLOSED"

	PriceRefreshFailed EventType = "PRICE_REFRESH_FAILED"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Module    string                 `json:"module"`
	Data      map[string]interface{} `json:"data"`
}

// Manager records events in a bounded in-memory ring and logs them
type Manager struct {
	mu      sync.Mutex
	recent  []Event
	maxSize int
	log     zerolog.Logger
}

// NewManager creates an event manager keeping up to maxSize recent events
func NewManager(maxSize int, log zerolog.Logger) *Manager {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &Manager{
		maxSize: maxSize,
		log:     log.With().Str("component", "events").Logger(),
	}
}

// Emit records an event
func (m *Manager) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Module:    module,
		Data:      data,
	}

	m.mu.Lock()
	m.recent = append(m.recent, event)
	if len(m.recent) > m.maxSize {
		m.recent = m.recent[len(m.recent)-m.maxSize:]
	}
	m.mu.Unlock()

	m.log.Info().
		Str("event", string(eventType)).
		Str("module", module).
		Fields(data).
		Msg("Event emitted")
}

// Recent returns the most recent events, newest last
func (m *Manager) Recent() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Event, len(m.recent))
	copy(out, m.recent)
	return out
}
