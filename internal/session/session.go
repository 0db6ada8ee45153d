// Package session holds the in-memory state of one conversational QA
// session: the selected index, the id-to-name registry for citations, the
// transcript, and the last response id. Nothing here is persisted; closing
// the program discards the session.
package session

import (
	"github.com/google/uuid"

	"github.com/mgalkin/filechat/internal/docstore"
)

// Transcript roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one transcript entry. Assistant turns always carry the fully
// reconciled, citation-annotated text, never partial stream output.
type Turn struct {
	Role string
	Text string
}

// Session is the complete mutable state of one QA conversation.
type Session struct {
	ID             string
	ActiveIndex    *docstore.Index
	Registry       *Registry
	Turns          []Turn
	LastResponseID string
}

// New creates a fresh session with an empty registry and no active index.
func New() *Session {
	return &Session{
		ID:       uuid.NewString(),
		Registry: NewRegistry(),
	}
}

// SetActiveIndex selects the index that queries and uploads operate on.
func (s *Session) SetActiveIndex(idx docstore.Index) {
	s.ActiveIndex = &idx
}

// HasActiveIndex reports whether an index has been selected.
func (s *Session) HasActiveIndex() bool {
	return s.ActiveIndex != nil && s.ActiveIndex.ID != ""
}

// Append adds one turn to the transcript.
func (s *Session) Append(role, text string) {
	s.Turns = append(s.Turns, Turn{Role: role, Text: text})
}

// Clear resets the session to its freshly created state: new id, empty
// registry and transcript, no active index. The registry is flushed rather
// than replaced so the ingestion pipeline's handle to it stays valid; it
// re-seeds when the user selects an index again.
func (s *Session) Clear() {
	s.ID = uuid.NewString()
	s.ActiveIndex = nil
	s.Registry.Reset()
	s.Turns = nil
	s.LastResponseID = ""
}
