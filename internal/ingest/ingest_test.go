package ingest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgalkin/filechat/internal/docstore"
	"github.com/mgalkin/filechat/internal/session"
)

type fakeStore struct {
	mu      sync.Mutex
	next    int
	uploads []string

	uploadErr map[string]error
	attachErr map[string]error
	delay     map[string]time.Duration
}

func (f *fakeStore) UploadFile(ctx context.Context, filename string, data []byte) (string, error) {
	f.mu.Lock()
	f.uploads = append(f.uploads, filename)
	f.next++
	id := fmt.Sprintf("file_%d", f.next)
	delay := f.delay[filename]
	err := f.uploadErr[filename]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

func (f *fakeStore) AttachAndWait(ctx context.Context, indexID, fileID string) (docstore.IndexStatus, error) {
	f.mu.Lock()
	err := f.attachErr[fileID]
	f.mu.Unlock()
	if err != nil {
		return docstore.StatusFailed, err
	}
	return docstore.StatusIndexed, nil
}

func docsOf(names ...string) []Document {
	docs := make([]Document, 0, len(names))
	for _, n := range names {
		docs = append(docs, Document{Name: n, Data: []byte("content of " + n)})
	}
	return docs
}

func TestRunRegistersSuccesses(t *testing.T) {
	store := &fakeStore{}
	reg := session.NewRegistry()
	pipe := New(store, reg, nil, 1)

	report := pipe.Run(context.Background(), "vs_1", docsOf("a.pdf", "b.md"))

	require.Len(t, report.Results, 2)
	require.Empty(t, report.Failures)
	assert.Equal(t, "a.pdf", report.Results[0].Filename)
	assert.Equal(t, "b.md", report.Results[1].Filename)
	assert.Equal(t, int64(len("content of a.pdf")), report.Results[0].SizeBytes)

	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, "a.pdf", reg.Resolve(report.Results[0].FileID))
}

func TestRunPartialFailureContinues(t *testing.T) {
	store := &fakeStore{
		uploadErr: map[string]error{"b.md": fmt.Errorf("too big: %w", docstore.ErrUpload)},
	}
	reg := session.NewRegistry()
	pipe := New(store, reg, nil, 1)

	report := pipe.Run(context.Background(), "vs_1", docsOf("a.pdf", "b.md", "c.txt"))

	require.Len(t, report.Results, 2)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "a.pdf", report.Results[0].Filename)
	assert.Equal(t, "c.txt", report.Results[1].Filename, "batch continues past the failure")
	assert.Equal(t, "b.md", report.Failures[0].Filename)
	assert.ErrorIs(t, report.Failures[0].Err, docstore.ErrUpload)

	assert.Equal(t, 2, reg.Len(), "only successes are registered")
}

func TestRunIndexingFailureIsPerFile(t *testing.T) {
	store := &fakeStore{
		attachErr: map[string]error{"file_1": docstore.ErrIndexingFailed},
	}
	reg := session.NewRegistry()
	pipe := New(store, reg, nil, 1)

	report := pipe.Run(context.Background(), "vs_1", docsOf("a.pdf", "b.md"))

	require.Len(t, report.Failures, 1)
	assert.ErrorIs(t, report.Failures[0].Err, docstore.ErrIndexingFailed)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "b.md", report.Results[0].Filename)
	assert.Equal(t, 1, reg.Len())
}

func TestRunParallelKeepsSubmissionOrder(t *testing.T) {
	store := &fakeStore{
		delay: map[string]time.Duration{
			"a.pdf": 30 * time.Millisecond,
			"b.md":  15 * time.Millisecond,
			"c.txt": 0,
		},
	}
	reg := session.NewRegistry()
	pipe := New(store, reg, nil, 3)

	report := pipe.Run(context.Background(), "vs_1", docsOf("a.pdf", "b.md", "c.txt"))

	require.Len(t, report.Results, 3)
	assert.Equal(t, "a.pdf", report.Results[0].Filename, "slowest upload still reports first")
	assert.Equal(t, "b.md", report.Results[1].Filename)
	assert.Equal(t, "c.txt", report.Results[2].Filename)
}

func TestReportSummary(t *testing.T) {
	assert.Equal(t, "nothing to ingest", Report{}.Summary())
	assert.Equal(t, "2 indexed", Report{Results: make([]Result, 2)}.Summary())
	assert.Equal(t, "2 indexed, 1 failed", Report{
		Results:  make([]Result, 2),
		Failures: make([]Failure, 1),
	}.Summary())
}
