package chat

import (
	"strings"
	"unicode"

	"github.com/mgalkin/filechat/internal/docstore"
)

// Placeholder recorded when a terminal response carries no usable text. An
// assistant turn is never empty.
const noTextPlaceholder = "(no text)"

const sourcesPrefix = "\n\n— Sources: "

// NameResolver resolves opaque file ids to display names. Unknown ids come
// back unchanged; resolution never fails.
type NameResolver interface {
	Resolve(fileID string) string
}

// ExtractText pulls the answer text out of a terminal response. It prefers
// the aggregate OutputText verbatim when present; otherwise it joins the
// output_text segments of message items in order and trims the result. A
// response with neither yields the placeholder, never an empty string.
func ExtractText(resp *docstore.Response) string {
	if resp == nil {
		return noTextPlaceholder
	}
	if resp.OutputText != "" {
		return resp.OutputText
	}
	var chunks []string
	for _, item := range resp.Output {
		if item.Type != docstore.OutputTypeMessage {
			continue
		}
		for _, part := range item.Content {
			if part.Type == docstore.ContentTypeOutputText {
				chunks = append(chunks, part.Text)
			}
		}
	}
	text := strings.TrimSpace(strings.Join(chunks, "\n"))
	if text == "" {
		return noTextPlaceholder
	}
	return text
}

// SourceNames collects the documents a response cites, resolved to display
// names, deduplicated by first occurrence. Two ids resolving to the same
// name count as one source. The response is never mutated.
func SourceNames(resp *docstore.Response, names NameResolver) []string {
	if resp == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, item := range resp.Output {
		if item.Type != docstore.OutputTypeMessage {
			continue
		}
		for _, part := range item.Content {
			for _, ann := range part.Annotations {
				if !ann.Cites() {
					continue
				}
				name := ann.FileID
				if names != nil {
					name = names.Resolve(ann.FileID)
				}
				if _, ok := seen[name]; ok {
					continue
				}
				seen[name] = struct{}{}
				out = append(out, name)
			}
		}
	}
	return out
}

// Annotate appends the resolved source list to an answer. A response citing
// nothing leaves the text untouched.
func Annotate(text string, resp *docstore.Response, names NameResolver) string {
	sources := SourceNames(resp, names)
	if len(sources) == 0 {
		return text
	}
	return strings.TrimRightFunc(text, unicode.IsSpace) + sourcesPrefix + strings.Join(sources, "; ")
}
