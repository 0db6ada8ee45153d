package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filechat.log")
	log := New(path, "info")

	log.Info("document indexed", zap.String("file", "paper.pdf"))
	log.Debug("this stays below the configured level")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"document indexed"`)
	assert.Contains(t, string(data), `"paper.pdf"`)
	assert.NotContains(t, string(data), "below the configured level")
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filechat.log")
	log := New(path, "chatty")

	log.Info("visible")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "visible")
}
