package docstore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Event types the gateway emits that callers act on. Anything else that
// arrives on the wire is passed through and typically ignored.
const (
	EventOutputTextDelta = "response.output_text.delta"
	EventCompleted       = "response.completed"
)

// StreamEvent is one server-sent event from a streaming query. Delta is set
// for output-text deltas; Response is set for the completed event.
type StreamEvent struct {
	Type     string    `json:"type"`
	Delta    string    `json:"delta"`
	Response *Response `json:"response"`
}

// Stream is an open streaming query. Recv returns events until the server
// finishes (io.EOF) or the transport dies (ErrStreamAborted). Close releases
// the connection and is safe to call at any point.
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

// StreamQuery issues a streaming retrieval-augmented query. The returned
// Stream must be closed by the caller.
func (c *Client) StreamQuery(ctx context.Context, q QueryRequest) (*Stream, error) {
	buf, err := json.Marshal(c.queryPayload(q, true))
	if err != nil {
		return nil, fmt.Errorf("stream query: %w: %v", ErrRemote, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("stream query: %w: %v", ErrRemote, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stream query: %w: %v", ErrRemote, err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, fmt.Errorf("stream query: %w: %v", ErrRemote, statusError(resp))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Stream{body: resp.Body, scanner: scanner}, nil
}

// Recv blocks until the next event arrives. A clean end of stream returns
// io.EOF; a broken transport returns an error wrapping ErrStreamAborted.
// Callers cannot tell from Recv alone whether the stream ended before the
// terminal event; they must track whether a completed event was seen.
func (s *Stream) Recv() (StreamEvent, error) {
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}
		var ev StreamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return StreamEvent{}, fmt.Errorf("stream: %w: bad event payload: %v", ErrStreamAborted, err)
		}
		return ev, nil
	}
	if err := s.scanner.Err(); err != nil {
		return StreamEvent{}, fmt.Errorf("stream: %w: %v", ErrStreamAborted, err)
	}
	return StreamEvent{}, io.EOF
}

// Close releases the underlying connection.
func (s *Stream) Close() error {
	return s.body.Close()
}
