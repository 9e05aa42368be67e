// Copyright 2026 The Nobody Authors
// SPDX-License-Identifier: MIT

// Package event implements the append-only game event log.
package event

import "sort"

// Importance classifies how much an event matters to the story.
type Importance string

const (
	Normal    Importance = "normal"
	Important Importance = "important"
)

// Event is a single recorded game event.
type Event struct {
	ID          uint64     `json:"id"`
	Timestamp   uint64     `json:"timestamp"`
	Type        string     `json:"event_type"`
	Description string     `json:"description"`
	Importance  Importance `json:"importance"`
}

// Filter selects a subset of events. Nil fields match everything.
type Filter struct {
	Importance    *Importance
	Type          *string
	FromTimestamp *uint64
	ToTimestamp   *uint64
}

// Log is an append-only event log with monotonically increasing ids.
// Not safe for concurrent use.
type Log struct {
	events []Event
	nextID uint64
}

// NewLog returns an empty log whose first event gets id 1.
func NewLog() *Log {
	return &Log{nextID: 1}
}

// FromEvents rebuilds a log from previously recorded events, sorted by
// timestamp then id, with the id counter restored past the highest seen.
func FromEvents(events []Event) *Log {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Timestamp != sorted[j].Timestamp {
			return sorted[i].Timestamp < sorted[j].Timestamp
		}
		return sorted[i].ID < sorted[j].ID
	})

	var maxID uint64
	for _, e := range sorted {
		if e.ID > maxID {
			maxID = e.ID
		}
	}
	return &Log{events: sorted, nextID: maxID + 1}
}

// Record appends a new event and returns it.
func (l *Log) Record(timestamp uint64, eventType, description string, importance Importance) Event {
	e := Event{
		ID:          l.nextID,
		Timestamp:   timestamp,
		Type:        eventType,
		Description: description,
		Importance:  importance,
	}
	l.nextID++
	l.events = append(l.events, e)
	return e
}

// All returns every recorded event in insertion order.
func (l *Log) All() []Event {
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Query returns the events matching every set filter field.
func (l *Log) Query(f Filter) []Event {
	var out []Event
	for _, e := range l.events {
		if f.Importance != nil && e.Importance != *f.Importance {
			continue
		}
		if f.Type != nil && e.Type != *f.Type {
			continue
		}
		if f.FromTimestamp != nil && e.Timestamp < *f.FromTimestamp {
			continue
		}
		if f.ToTimestamp != nil && e.Timestamp > *f.ToTimestamp {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Important returns every event recorded with Important importance.
func (l *Log) Important() []Event {
	imp := Important
	return l.Query(Filter{Importance: &imp})
}

// Len reports the number of recorded events.
func (l *Log) Len() int {
	return len(l.events)
}
