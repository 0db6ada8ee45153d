package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultHTTPTimeout = 2 * time.Minute

	// Uploads are tagged with the one purpose the retrieval tool accepts.
	uploadPurpose  = "assistants"
	fileSearchTool = "file_search"
)

// PollConfig bounds the attach-and-wait loop. The loop sleeps Initial, then
// doubles up to MaxInterval, and gives up once Budget has elapsed without a
// terminal state.
type PollConfig struct {
	Initial     time.Duration
	MaxInterval time.Duration
	Budget      time.Duration
}

func (p PollConfig) withDefaults() PollConfig {
	if p.Initial <= 0 {
		p.Initial = 500 * time.Millisecond
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = 5 * time.Second
	}
	if p.Budget <= 0 {
		p.Budget = 5 * time.Minute
	}
	return p
}

func (p PollConfig) next(current time.Duration) time.Duration {
	doubled := current * 2
	if doubled > p.MaxInterval {
		return p.MaxInterval
	}
	return doubled
}

// Config describes how to build a gateway client. The API key arrives here
// already resolved; reading credentials is the caller's concern.
type Config struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Poll       PollConfig
}

// Client is the transport to the remote indexing/retrieval service. All
// methods block on network I/O and honor the passed context.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	poll    PollConfig
}

// New builds a Client, filling unset options with conservative defaults.
func New(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{
		baseURL: base,
		apiKey:  cfg.APIKey,
		client:  httpClient,
		poll:    cfg.Poll.withDefaults(),
	}
}

// CreateIndex creates a named index and returns its handle.
func (c *Client) CreateIndex(ctx context.Context, name string) (Index, error) {
	var out Index
	payload := map[string]any{"name": name}
	if err := c.postJSON(ctx, "/vector_stores", payload, &out); err != nil {
		return Index{}, fmt.Errorf("create index: %w: %v", ErrRemote, err)
	}
	return out, nil
}

// ListIndexes enumerates existing indexes, best effort. Failures come back
// wrapped in ErrListFailed and an empty slice; callers are expected to
// degrade to manual identifier entry rather than treat this as fatal.
func (c *Client) ListIndexes(ctx context.Context, limit int) ([]Index, error) {
	var out struct {
		Data []Index `json:"data"`
	}
	if err := c.getJSON(ctx, "/vector_stores?limit="+strconv.Itoa(limit), &out); err != nil {
		return nil, fmt.Errorf("list indexes: %w: %v", ErrListFailed, err)
	}
	return out.Data, nil
}

// ListIndexFiles enumerates the documents attached to an index, best effort
// with the same recoverable-empty policy as ListIndexes.
func (c *Client) ListIndexFiles(ctx context.Context, indexID string, limit int) ([]IndexedDocument, error) {
	var out struct {
		Data []struct {
			ID          string      `json:"id"`
			Filename    string      `json:"filename"`
			DisplayName string      `json:"display_name"`
			UsageBytes  int64       `json:"usage_bytes"`
			Status      IndexStatus `json:"status"`
		} `json:"data"`
	}
	path := "/vector_stores/" + indexID + "/files?limit=" + strconv.Itoa(limit)
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, fmt.Errorf("list files for %s: %w: %v", indexID, ErrListFailed, err)
	}
	docs := make([]IndexedDocument, 0, len(out.Data))
	for _, f := range out.Data {
		name := f.Filename
		if name == "" {
			name = f.DisplayName
		}
		if name == "" {
			name = f.ID
		}
		docs = append(docs, IndexedDocument{
			FileID:    f.ID,
			Filename:  name,
			SizeBytes: f.UsageBytes,
			Status:    f.Status,
		})
	}
	return docs, nil
}

// UploadFile pushes raw file bytes to the remote store and returns the
// assigned file id. The file is not yet searchable; AttachAndWait makes it so.
func (c *Client) UploadFile(ctx context.Context, filename string, data []byte) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("purpose", uploadPurpose); err != nil {
		return "", fmt.Errorf("upload %s: %w: %v", filename, ErrUpload, err)
	}
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w: %v", filename, ErrUpload, err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("upload %s: %w: %v", filename, ErrUpload, err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("upload %s: %w: %v", filename, ErrUpload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", &body)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w: %v", filename, ErrUpload, err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w: %v", filename, ErrUpload, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("upload %s: %w: %v", filename, ErrUpload, statusError(resp))
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("upload %s: %w: %v", filename, ErrUpload, err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("upload %s: %w: no file id in response", filename, ErrUpload)
	}
	return out.ID, nil
}

// AttachAndWait attaches an uploaded file to an index and polls until the
// attachment reaches a terminal state. The poll is an explicit bounded loop:
// pending -> indexed | failed | timeout. It returns StatusIndexed on success,
// ErrIndexingFailed when the remote reports failed, and ErrIndexingTimeout
// when the budget elapses with the file still pending.
func (c *Client) AttachAndWait(ctx context.Context, indexID, fileID string) (IndexStatus, error) {
	status, err := c.attach(ctx, indexID, fileID)
	if err != nil {
		return "", err
	}

	deadline := time.Now().Add(c.poll.Budget)
	interval := c.poll.Initial
	for !status.Terminal() {
		if time.Now().After(deadline) {
			return status, fmt.Errorf("attach %s: %w after %s", fileID, ErrIndexingTimeout, c.poll.Budget)
		}
		if err := sleepCtx(ctx, interval); err != nil {
			return status, err
		}
		interval = c.poll.next(interval)

		status, err = c.attachmentStatus(ctx, indexID, fileID)
		if err != nil {
			return "", err
		}
	}
	if status == StatusFailed {
		return status, fmt.Errorf("attach %s: %w", fileID, ErrIndexingFailed)
	}
	return status, nil
}

func (c *Client) attach(ctx context.Context, indexID, fileID string) (IndexStatus, error) {
	var out struct {
		Status IndexStatus `json:"status"`
	}
	payload := map[string]any{"file_id": fileID}
	if err := c.postJSON(ctx, "/vector_stores/"+indexID+"/files", payload, &out); err != nil {
		return "", fmt.Errorf("attach %s: %w: %v", fileID, ErrRemote, err)
	}
	if out.Status == "" {
		out.Status = StatusPending
	}
	return out.Status, nil
}

func (c *Client) attachmentStatus(ctx context.Context, indexID, fileID string) (IndexStatus, error) {
	var out struct {
		Status IndexStatus `json:"status"`
	}
	path := "/vector_stores/" + indexID + "/files/" + fileID
	if err := c.getJSON(ctx, path, &out); err != nil {
		return "", fmt.Errorf("poll %s: %w: %v", fileID, ErrRemote, err)
	}
	if out.Status == "" {
		out.Status = StatusPending
	}
	return out.Status, nil
}

// Query issues a non-streaming retrieval-augmented query and returns the
// terminal response.
func (c *Client) Query(ctx context.Context, q QueryRequest) (*Response, error) {
	var out Response
	if err := c.postJSON(ctx, "/responses", c.queryPayload(q, false), &out); err != nil {
		return nil, fmt.Errorf("query: %w: %v", ErrRemote, err)
	}
	return &out, nil
}

func (c *Client) queryPayload(q QueryRequest, stream bool) map[string]any {
	return map[string]any{
		"model": q.Model,
		"input": q.Input,
		"tools": []map[string]any{{
			"type":             fileSearchTool,
			"vector_store_ids": []string{q.IndexID},
			"max_num_results":  q.MaxResults,
		}},
		"stream": stream,
	}
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	buf, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)
	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	c.authorize(req)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("document store API error: %s (%s)", resp.Status, string(body))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
