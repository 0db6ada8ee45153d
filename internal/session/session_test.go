package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgalkin/filechat/internal/docstore"
)

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry()
	reg.Register("file_1", "paper.pdf")

	assert.Equal(t, "paper.pdf", reg.Resolve("file_1"))
	assert.Equal(t, "file_unknown", reg.Resolve("file_unknown"), "unknown ids resolve to themselves")
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryRegisterDocuments(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterDocuments([]docstore.IndexedDocument{
		{FileID: "file_1", Filename: "paper.pdf"},
		{FileID: "file_2", Filename: "notes.md"},
		{FileID: "", Filename: "ghost.txt"},
	})

	assert.Equal(t, 2, reg.Len(), "documents without ids are skipped")
	assert.Equal(t, "notes.md", reg.Resolve("file_2"))
}

func TestRegistryEmptyNameFallsBack(t *testing.T) {
	reg := NewRegistry()
	reg.Register("file_1", "")

	assert.Equal(t, "file_1", reg.Resolve("file_1"))
}

func TestSessionAppendKeepsOrder(t *testing.T) {
	sess := New()
	sess.Append(RoleUser, "what is the method?")
	sess.Append(RoleAssistant, "Contrastive learning.")

	require.Len(t, sess.Turns, 2)
	assert.Equal(t, Turn{Role: RoleUser, Text: "what is the method?"}, sess.Turns[0])
	assert.Equal(t, Turn{Role: RoleAssistant, Text: "Contrastive learning."}, sess.Turns[1])
}

func TestSessionActiveIndex(t *testing.T) {
	sess := New()
	assert.False(t, sess.HasActiveIndex())

	sess.SetActiveIndex(docstore.Index{ID: "vs_1", Name: "research"})
	require.True(t, sess.HasActiveIndex())
	assert.Equal(t, "research", sess.ActiveIndex.Name)
}

func TestSessionClear(t *testing.T) {
	sess := New()
	oldID := sess.ID
	sess.SetActiveIndex(docstore.Index{ID: "vs_1", Name: "research"})
	sess.Registry.Register("file_1", "paper.pdf")
	sess.Append(RoleUser, "hello")
	sess.LastResponseID = "resp_1"

	sess.Clear()

	assert.NotEqual(t, oldID, sess.ID, "clear mints a new session id")
	assert.False(t, sess.HasActiveIndex())
	assert.Equal(t, 0, sess.Registry.Len())
	assert.Empty(t, sess.Turns)
	assert.Empty(t, sess.LastResponseID)
}

func TestClearKeepsRegistryHandleValid(t *testing.T) {
	sess := New()
	reg := sess.Registry
	reg.Register("file_1", "paper.pdf")

	sess.Clear()

	assert.Same(t, reg, sess.Registry, "collaborators keep their registry handle across a clear")
	assert.Equal(t, 0, reg.Len())
	reg.Register("file_2", "fresh.md")
	assert.Equal(t, "fresh.md", sess.Registry.Resolve("file_2"))
}
