package tui

import (
	"context"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mgalkin/filechat/internal/files"
	"github.com/mgalkin/filechat/internal/ingest"
)

func (m *model) refreshIndexesCmd() tea.Cmd {
	m.listLoading = true
	return m.jobs.Start(jobIndexList, m.runListIndexes)
}

func (m *model) runListIndexes(parent context.Context) (tea.Msg, error) {
	ctx, cancel := context.WithTimeout(parent, lookupTimeout)
	defer cancel()
	indexes, err := m.config.Store.ListIndexes(ctx, indexListLimit)
	return indexListMsg{indexes: indexes, err: err}, err
}

func (m *model) createIndexCmd(name string) tea.Cmd {
	return m.jobs.Start(jobIndexCreate, func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, lookupTimeout)
		defer cancel()
		index, err := m.config.Store.CreateIndex(ctx, name)
		return indexCreatedMsg{index: index, err: err}, err
	})
}

func (m *model) listFilesCmd(indexID string) tea.Cmd {
	return m.jobs.Start(jobFileList, func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, lookupTimeout)
		defer cancel()
		docs, err := m.config.Store.ListIndexFiles(ctx, indexID, indexListLimit)
		return indexFilesMsg{indexID: indexID, docs: docs, err: err}, err
	})
}

func (m *model) ingestUploadsCmd(indexID string) tea.Cmd {
	return m.jobs.Start(jobIngest, func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, ingestTimeout)
		defer cancel()
		return m.runIngest(ctx, indexID)
	})
}

// runIngest scans the uploads directory, reads every supported file, and
// pushes the batch through the ingestion pipeline. Files that cannot be
// read from disk are reported alongside the pipeline's own failures.
func (m *model) runIngest(ctx context.Context, indexID string) (tea.Msg, error) {
	entries, err := files.Scan(m.config.UploadsDir)
	if err != nil {
		return ingestReportMsg{indexID: indexID, err: err}, err
	}
	docs := make([]ingest.Document, 0, len(entries))
	var unreadable []ingest.Failure
	for _, entry := range entries {
		doc, err := files.Read(entry.Path)
		if err != nil {
			unreadable = append(unreadable, ingest.Failure{Filename: entry.Name, Err: err})
			continue
		}
		docs = append(docs, doc)
	}
	report := m.config.Ingest.Run(ctx, indexID, docs)
	report.Failures = append(report.Failures, unreadable...)
	return ingestReportMsg{indexID: indexID, report: report}, nil
}

func (m *model) previewCmd(name string) tea.Cmd {
	return m.jobs.Start(jobPreview, func(context.Context) (tea.Msg, error) {
		return m.runPreview(name)
	})
}

// runPreview extracts the head of one uploaded file. The name is reduced to
// its base so the lookup can never leave the uploads directory.
func (m *model) runPreview(name string) (tea.Msg, error) {
	base := filepath.Base(strings.TrimSpace(name))
	text, err := files.Preview(filepath.Join(m.config.UploadsDir, base), previewRunes)
	return previewMsg{name: base, text: text, err: err}, err
}

// waitForAskEvent blocks until the in-flight question produces either the
// next streamed fragment or its final outcome. The handler for the stream
// message re-arms this command, so exactly one of these is pending while a
// question runs.
func waitForAskEvent(id int, updates <-chan string, outcome <-chan askResultMsg) tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case delta, ok := <-updates:
				if !ok {
					updates = nil
					continue
				}
				return askStreamMsg{id: id, delta: delta, updates: updates, outcome: outcome}
			case result := <-outcome:
				return result
			}
		}
	}
}
