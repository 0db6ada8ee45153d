package tui

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mgalkin/filechat/internal/docstore"
)

func TestWaitForAskEventReturnsDeltaFirst(t *testing.T) {
	updates := make(chan string, 2)
	outcome := make(chan askResultMsg, 1)
	updates <- "Hel"

	msg := waitForAskEvent(7, updates, outcome)()
	stream, ok := msg.(askStreamMsg)
	if !ok {
		t.Fatalf("expected askStreamMsg, got %T", msg)
	}
	if stream.id != 7 || stream.delta != "Hel" {
		t.Fatalf("unexpected stream msg: %+v", stream)
	}
}

func TestWaitForAskEventDrainsClosedChannel(t *testing.T) {
	updates := make(chan string, 1)
	outcome := make(chan askResultMsg, 1)
	close(updates)
	outcome <- askResultMsg{id: 7}

	msg := waitForAskEvent(7, updates, outcome)()
	result, ok := msg.(askResultMsg)
	if !ok {
		t.Fatalf("expected askResultMsg, got %T", msg)
	}
	if result.id != 7 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestRunIngestScansAndSubmitsBatch(t *testing.T) {
	m := newTestModel(t)
	dir := m.config.UploadsDir
	writeFile(t, filepath.Join(dir, "beta.txt"), "second")
	writeFile(t, filepath.Join(dir, "alpha.txt"), "first")
	writeFile(t, filepath.Join(dir, "tool.exe"), "skipped")

	msg, err := m.runIngest(context.Background(), "vs_1")
	if err != nil {
		t.Fatalf("runIngest: %v", err)
	}
	report, ok := msg.(ingestReportMsg)
	if !ok {
		t.Fatalf("expected ingestReportMsg, got %T", msg)
	}
	if report.indexID != "vs_1" {
		t.Fatalf("index id = %q", report.indexID)
	}

	ingester := m.config.Ingest.(*fakeIngester)
	if len(ingester.docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(ingester.docs))
	}
	if ingester.docs[0].Name != "alpha.txt" || ingester.docs[1].Name != "beta.txt" {
		t.Fatalf("unexpected batch order: %+v", ingester.docs)
	}
}

func TestRunIngestReportsMissingDir(t *testing.T) {
	m := newTestModel(t)
	m.config.UploadsDir = filepath.Join(m.config.UploadsDir, "does-not-exist")

	msg, err := m.runIngest(context.Background(), "vs_1")
	if err == nil {
		t.Fatal("expected a scan error")
	}
	report, ok := msg.(ingestReportMsg)
	if !ok {
		t.Fatalf("expected ingestReportMsg, got %T", msg)
	}
	if report.err == nil {
		t.Fatal("the message should carry the scan error")
	}
}

func TestRunPreviewStaysInUploadsDir(t *testing.T) {
	m := newTestModel(t)
	writeFile(t, filepath.Join(m.config.UploadsDir, "note.txt"), "hello preview")

	msg, err := m.runPreview("nested/dir/note.txt")
	if err != nil {
		t.Fatalf("runPreview: %v", err)
	}
	preview, ok := msg.(previewMsg)
	if !ok {
		t.Fatalf("expected previewMsg, got %T", msg)
	}
	if preview.name != "note.txt" {
		t.Fatalf("preview name = %q", preview.name)
	}
	if preview.text != "hello preview" {
		t.Fatalf("preview text = %q", preview.text)
	}
}

func TestRunListIndexesWrapsResult(t *testing.T) {
	m := newTestModel(t)
	store := m.config.Store.(*fakeStore)
	store.indexes = []docstore.Index{{ID: "vs_1", Name: "papers"}}

	msg, err := m.runListIndexes(context.Background())
	if err != nil {
		t.Fatalf("runListIndexes: %v", err)
	}
	list, ok := msg.(indexListMsg)
	if !ok {
		t.Fatalf("expected indexListMsg, got %T", msg)
	}
	if len(list.indexes) != 1 || list.indexes[0].ID != "vs_1" {
		t.Fatalf("unexpected listing: %+v", list.indexes)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
