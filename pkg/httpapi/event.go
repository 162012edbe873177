package httpapi

import (
	"time"
)

// EventType tags an observable request outcome.
type EventType string

// The fixed event enumeration. Validation failures (400 responses)
// deliberately emit EventNotFound rather than EventError: downstream
// consumers already key on that tag, so the naming stays as-is for
// compatibility.
const (
	EventIndexRequested EventType = "INDEX_REQUESTED"
	EventSkillRequested EventType = "SKILL_REQUESTED"
	EventFileRequested  EventType = "FILE_REQUESTED"
	EventNotFound       EventType = "NOT_FOUND"
	EventError          EventType = "ERROR"
)

// Event is an immutable record of one request outcome. Events are
// fire-and-forget: they never influence the response, and a sink that
// panics is contained at the dispatch boundary.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Time       time.Time `json:"time"`
	Path       string    `json:"path"`
	SkillCount int       `json:"skillCount,omitempty"`
	SkillName  string    `json:"skillName,omitempty"`
	FilePath   string    `json:"filePath,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// EventSink receives request outcome events. It is invoked synchronously
// after the outcome is known and before the response is written; wrap
// slow work in your own goroutine or channel send.
type EventSink func(Event)
