package session

import (
	cache "github.com/patrickmn/go-cache"

	"github.com/mgalkin/filechat/internal/docstore"
)

// Registry maps opaque remote file ids to the display names the user knows
// the documents by. It is append-only for the life of a session and safe for
// concurrent use, so ingestion workers can register while the UI resolves.
type Registry struct {
	names *cache.Cache
}

// NewRegistry returns an empty registry. Entries never expire; the registry
// lives and dies with its session.
func NewRegistry() *Registry {
	return &Registry{names: cache.New(cache.NoExpiration, 0)}
}

// Register records a file id to filename mapping. Empty ids are ignored.
func (r *Registry) Register(fileID, filename string) {
	if fileID == "" {
		return
	}
	r.names.Set(fileID, filename, cache.NoExpiration)
}

// RegisterDocuments seeds the registry from an index enumeration, so
// citations resolve even for documents uploaded in earlier sessions.
func (r *Registry) RegisterDocuments(docs []docstore.IndexedDocument) {
	for _, doc := range docs {
		r.Register(doc.FileID, doc.Filename)
	}
}

// Resolve returns the display name for a file id, or the raw id when the
// registry has never seen it. It never fails: an unknown citation is still a
// citation.
func (r *Registry) Resolve(fileID string) string {
	if v, ok := r.names.Get(fileID); ok {
		if name, ok := v.(string); ok && name != "" {
			return name
		}
	}
	return fileID
}

// Len reports how many documents the registry knows about.
func (r *Registry) Len() int {
	return r.names.ItemCount()
}

// Reset drops every entry but keeps the registry instance itself valid, so
// collaborators holding a handle across a session clear keep working.
func (r *Registry) Reset() {
	r.names.Flush()
}
