// Package files stages local documents for upload: discovering uploadable
// files in a directory, loading them, and extracting short text previews so
// the user can check a file before it ships to the remote index.
package files

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/mgalkin/filechat/internal/ingest"
)

// uploadableExts are the formats worth sending to the remote indexer.
var uploadableExts = map[string]bool{
	".pdf":  true,
	".txt":  true,
	".md":   true,
	".csv":  true,
	".docx": true,
}

var extraneousWhitespace = regexp.MustCompile(`\s+`)

// Entry is one uploadable file found by Scan.
type Entry struct {
	Name string
	Path string
	Size int64
}

// Scan lists uploadable files directly under dir, in name order. Dotfiles,
// subdirectories, and unsupported extensions are skipped.
func Scan(dir string) ([]Entry, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, de := range dirents {
		if de.IsDir() || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		if !uploadableExts[strings.ToLower(filepath.Ext(de.Name()))] {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name: de.Name(),
			Path: filepath.Join(dir, de.Name()),
			Size: info.Size(),
		})
	}
	return entries, nil
}

// Read loads one file as an ingestion document.
func Read(path string) (ingest.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ingest.Document{}, err
	}
	return ingest.Document{Name: filepath.Base(path), Data: data}, nil
}

// Preview returns up to limit runes of the file's text: extracted plain text
// for PDFs, raw contents for text-like files, and a placeholder for other
// binary formats.
func Preview(path string, limit int) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err := pdfText(path)
		if err != nil {
			return "", err
		}
		return clip(text, limit), nil
	case ".txt", ".md", ".csv":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return clip(strings.TrimSpace(string(data)), limit), nil
	default:
		return "(binary document, no preview)", nil
	}
}

func pdfText(path string) (string, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer file.Close()

	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}

	var builder strings.Builder
	if _, err := io.Copy(&builder, content); err != nil {
		return "", err
	}
	return strings.TrimSpace(extraneousWhitespace.ReplaceAllString(builder.String(), " ")), nil
}

// clip cuts at rune boundaries so multibyte text never splits mid-character.
func clip(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}
