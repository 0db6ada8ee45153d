package docstore

import "errors"

// Sentinel errors for the failure modes callers are expected to branch on.
// Wrapped errors keep the operation and remote detail; match with errors.Is.
var (
	// ErrRemote is a generic transport or service failure.
	ErrRemote = errors.New("docstore: remote failure")
	// ErrUpload indicates the file never made it to the remote store.
	ErrUpload = errors.New("docstore: upload failed")
	// ErrIndexingFailed means the remote reported a terminal failed state for an attachment.
	ErrIndexingFailed = errors.New("docstore: indexing failed")
	// ErrIndexingTimeout means the attachment never reached a terminal state within the poll budget.
	ErrIndexingTimeout = errors.New("docstore: indexing timed out")
	// ErrListFailed is recoverable: listings degrade to an empty result, never block manual entry.
	ErrListFailed = errors.New("docstore: listing unavailable")
	// ErrStreamAborted means the event stream ended without a terminal response.
	ErrStreamAborted = errors.New("docstore: stream ended without a completed response")
)
