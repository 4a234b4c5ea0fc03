package repository

import (
	"sync"

	"assetgraph/internal/domain"
)

// EventLog is an ordered, drainable buffer of domain events. It is owned
// by the caller and handed to the repository via WithEvents; the
// repository appends, the caller drains.
type EventLog struct {
	mu     sync.Mutex
	events []domain.Event
}

// NewEventLog returns an empty event log.
func NewEventLog() *EventLog {
	return &EventLog{}
}

// Append records an event at the end of the log.
func (l *EventLog) Append(ev domain.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

// Flush returns all buffered events in order and clears the log.
func (l *EventLog) Flush() []domain.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	events := l.events
	l.events = nil
	return events
}

// Len reports the number of buffered events.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}
