// Package ingest drives documents into a remote index: each file is
// uploaded, attached, and synchronously waited on until the service reports
// a terminal indexing state. Batches tolerate per-file failures.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mgalkin/filechat/internal/docstore"
	"github.com/mgalkin/filechat/internal/session"
)

// Uploader is the slice of the gateway the pipeline needs.
type Uploader interface {
	UploadFile(ctx context.Context, filename string, data []byte) (string, error)
	AttachAndWait(ctx context.Context, indexID, fileID string) (docstore.IndexStatus, error)
}

// Document is a local file staged for ingestion.
type Document struct {
	Name string
	Data []byte
}

// Result is one successfully indexed document.
type Result struct {
	FileID    string
	Filename  string
	SizeBytes int64
}

// Failure is one document the batch could not index. The batch keeps going.
type Failure struct {
	Filename string
	Err      error
}

// Report is the outcome of one batch. Results appear in submission order
// regardless of which uploads finished first.
type Report struct {
	Results  []Result
	Failures []Failure
}

// Summary renders a one-line outcome for status displays.
func (r Report) Summary() string {
	var parts []string
	if len(r.Results) > 0 {
		parts = append(parts, fmt.Sprintf("%d indexed", len(r.Results)))
	}
	if len(r.Failures) > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", len(r.Failures)))
	}
	if len(parts) == 0 {
		return "nothing to ingest"
	}
	return strings.Join(parts, ", ")
}

// Pipeline ingests batches of documents into an index and records successes
// in the session registry so later citations resolve to filenames.
type Pipeline struct {
	store    Uploader
	reg      *session.Registry
	log      *zap.Logger
	parallel int
}

// New builds a pipeline. parallel bounds concurrent uploads; values below 1
// mean sequential.
func New(store Uploader, reg *session.Registry, log *zap.Logger, parallel int) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	if parallel < 1 {
		parallel = 1
	}
	return &Pipeline{store: store, reg: reg, log: log, parallel: parallel}
}

type outcome struct {
	result  *Result
	failure *Failure
}

// Run ingests every document independently: one file failing to upload or
// index never aborts the rest of the batch. Only successes enter the
// registry.
func (p *Pipeline) Run(ctx context.Context, indexID string, docs []Document) Report {
	outcomes := make([]outcome, len(docs))

	var wg sync.WaitGroup
	sem := make(chan struct{}, p.parallel)
	for i, doc := range docs {
		wg.Add(1)
		go func(i int, doc Document) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes[i] = p.ingestOne(ctx, indexID, doc)
		}(i, doc)
	}
	wg.Wait()

	var report Report
	for _, out := range outcomes {
		if out.result != nil {
			report.Results = append(report.Results, *out.result)
		}
		if out.failure != nil {
			report.Failures = append(report.Failures, *out.failure)
		}
	}
	p.log.Info("ingest batch finished",
		zap.String("index_id", indexID),
		zap.Int("indexed", len(report.Results)),
		zap.Int("failed", len(report.Failures)),
	)
	return report
}

func (p *Pipeline) ingestOne(ctx context.Context, indexID string, doc Document) outcome {
	fileID, err := p.store.UploadFile(ctx, doc.Name, doc.Data)
	if err != nil {
		p.log.Warn("upload rejected", zap.String("file", doc.Name), zap.Error(err))
		return outcome{failure: &Failure{Filename: doc.Name, Err: err}}
	}

	if _, err := p.store.AttachAndWait(ctx, indexID, fileID); err != nil {
		p.log.Warn("indexing failed", zap.String("file", doc.Name),
			zap.String("file_id", fileID), zap.Error(err))
		return outcome{failure: &Failure{Filename: doc.Name, Err: err}}
	}

	p.reg.Register(fileID, doc.Name)
	p.log.Info("document indexed", zap.String("file", doc.Name),
		zap.String("file_id", fileID), zap.Int("bytes", len(doc.Data)))
	return outcome{result: &Result{
		FileID:    fileID,
		Filename:  doc.Name,
		SizeBytes: int64(len(doc.Data)),
	}}
}
