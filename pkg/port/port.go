// Package port holds the edge events of a physical input line.
package port

import "time"

// EventType indicates the type of change to the line level.
type EventType int

const (
	_ EventType = iota
	// RisingEdge indicates a low to high transition.
	RisingEdge
	// FallingEdge indicates a high to low transition.
	FallingEdge
)

func (t EventType) String() string {
	switch t {
	case RisingEdge:
		return "rising"
	case FallingEdge:
		return "falling"
	}
	return "invalid"
}

// Event is one edge of an input line.
type Event struct {
	// Timestamp is the monotonic time the edge was detected.
	Timestamp time.Duration
	// Type is the kind of edge.
	Type EventType
}

// Level returns the line level after the edge.
func (e Event) Level() bool {
	return e.Type == RisingEdge
}

// Handler consumes edge events. It is called from the event goroutine of the
// line and must return quickly.
type Handler func(Event)
