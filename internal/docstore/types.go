package docstore

import "encoding/json"

// Index identifies a remote document index. The client references indexes,
// it never owns them; lifetime is the remote service's concern.
type Index struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IndexStatus is the remote-assigned indexing state of an attached file.
type IndexStatus string

const (
	StatusPending IndexStatus = "pending"
	StatusIndexed IndexStatus = "indexed"
	StatusFailed  IndexStatus = "failed"
)

// Terminal reports whether the status will no longer change.
func (s IndexStatus) Terminal() bool {
	return s == StatusIndexed || s == StatusFailed
}

// IndexedDocument is one file attached to an index. A document is usable for
// retrieval only once Status is StatusIndexed.
type IndexedDocument struct {
	FileID    string
	Filename  string
	SizeBytes int64
	Status    IndexStatus
}

// QueryRequest describes one retrieval-augmented question. The file_search
// tool binding is fixed; only the index, question, and result budget vary.
type QueryRequest struct {
	Model      string
	IndexID    string
	Input      string
	MaxResults int
}

// Response is the terminal answer object for one query. OutputText is a
// convenience field the service may omit depending on response shape; the
// structured Output always carries the content.
type Response struct {
	ID         string       `json:"id"`
	OutputText string       `json:"output_text,omitempty"`
	Output     []OutputItem `json:"output,omitempty"`
}

// Output item and content part types that carry answer text. Responses can
// include other kinds (tool call records and the like); consumers skip them.
const (
	OutputTypeMessage     = "message"
	ContentTypeOutputText = "output_text"
)

// OutputItem is one entry of a response's structured output.
type OutputItem struct {
	Type    string        `json:"type"`
	Content []ContentPart `json:"content,omitempty"`
}

// ContentPart is one segment of an output item's content.
type ContentPart struct {
	Type        string       `json:"type"`
	Text        string       `json:"text,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Annotation is the canonical form of a source marker attached to generated
// text. Remote services emit several shapes for the same fact (a flat
// {type, file_id} object or the id nested under a key named after the type);
// all of them collapse to {Kind, FileID} here, before any resolver logic
// touches them.
type Annotation struct {
	Kind   string
	FileID string
}

const (
	// AnnotationFileCitation marks a passage grounded in an uploaded file.
	AnnotationFileCitation = "file_citation"
	// AnnotationVectorStoreCitation marks a passage grounded in an index entry.
	AnnotationVectorStoreCitation = "vector_store_citation"
)

// Cites reports whether the annotation points at a source document.
func (a Annotation) Cites() bool {
	if a.FileID == "" {
		return false
	}
	return a.Kind == AnnotationFileCitation || a.Kind == AnnotationVectorStoreCitation
}

type annotationWire struct {
	Type                string           `json:"type"`
	FileID              string           `json:"file_id"`
	FileCitation        *annotationInner `json:"file_citation"`
	VectorStoreCitation *annotationInner `json:"vector_store_citation"`
}

type annotationInner struct {
	FileID string `json:"file_id"`
}

// UnmarshalJSON folds the heterogeneous wire shapes into the canonical form.
func (a *Annotation) UnmarshalJSON(data []byte) error {
	var wire annotationWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	a.Kind = wire.Type
	a.FileID = wire.FileID
	if a.FileID == "" && wire.FileCitation != nil {
		a.FileID = wire.FileCitation.FileID
	}
	if a.FileID == "" && wire.VectorStoreCitation != nil {
		a.FileID = wire.VectorStoreCitation.FileID
	}
	return nil
}

// MarshalJSON writes the flat canonical shape.
func (a Annotation) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string `json:"type"`
		FileID string `json:"file_id,omitempty"`
	}{Type: a.Kind, FileID: a.FileID})
}
