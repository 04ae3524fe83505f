// Package session holds the shared data model for generation runs: an
// append-only list of Sessions, each owning a fixed set of Artifacts that
// generation tasks fill in concurrently.
//
// Ownership: the Store owns all Sessions and Artifacts. Writers never hold
// references into the Store; every mutation goes through
// Store.UpdateArtifact, which applies a pure transform to exactly one
// artifact. Reads return snapshots.
package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is an artifact's lifecycle state.
//
// Transitions are one-way: StatusStreaming → StatusComplete or
// StatusStreaming → StatusError. The Store rejects anything else.
type Status string

const (
	StatusStreaming Status = "streaming"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// Artifact is one generated UI variant. Content grows monotonically while
// streaming and is finalized exactly once by the task that owns it.
type Artifact struct {
	// ID is derived from the owning session ID and ordinal position,
	// stable for the artifact's lifetime.
	ID string `json:"id"`

	// Style is the human-readable direction label. Starts as a
	// placeholder, filled by the orchestrator after planning.
	Style string `json:"style"`

	// Content is the generated HTML body.
	Content string `json:"content"`

	Status Status `json:"status"`
}

// ArtifactID derives the stable artifact identifier for a session ordinal.
func ArtifactID(sessionID uuid.UUID, ordinal int) string {
	return fmt.Sprintf("%s-%d", sessionID, ordinal)
}

// Session is one full request cycle: the prompt, any clarification
// answers, and the artifacts generated for it. Immutable once created
// except for its artifacts' contents.
type Session struct {
	ID        uuid.UUID         `json:"id"`
	Prompt    string            `json:"prompt"`
	Answers   map[string]string `json:"answers,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Artifacts []Artifact        `json:"artifacts"`
}

// ClarifyingQuestion is one question offered to the user before
// generation. Ephemeral: it lives between the clarification request and
// the user's decision to proceed, and is not stored on the Session beyond
// the answers map.
type ClarifyingQuestion struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// Variation is one decoded variant record from the secondary variation
// flow. It targets an ephemeral side panel, not the Store.
type Variation struct {
	Name string `json:"name"`
	HTML string `json:"html"`
}
