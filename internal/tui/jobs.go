package tui

import (
	"context"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// Job kinds shown as badges in the status line while the work runs.
const (
	jobIndexList   = "list indexes"
	jobIndexCreate = "create index"
	jobFileList    = "list documents"
	jobIngest      = "upload"
	jobPreview     = "preview"
)

// jobRunner performs gateway or disk work off the update loop and returns
// the message that should be delivered back to it.
type jobRunner func(ctx context.Context) (tea.Msg, error)

// jobSnapshot is the identity of one in-flight job.
type jobSnapshot struct {
	ID      uint64
	Kind    string
	Started time.Time
}

// jobSignalMsg announces that a job has started.
type jobSignalMsg struct {
	Snapshot jobSnapshot
}

// jobResultEnvelope wraps a finished job's payload so the update loop can
// retire the badge before dispatching the payload itself.
type jobResultEnvelope struct {
	Snapshot jobSnapshot
	Payload  tea.Msg
	Err      error
	Elapsed  time.Duration
}

// jobBus hands out job ids and wraps runners into bubbletea commands.
type jobBus struct {
	counter atomic.Uint64
	log     *zap.Logger
}

func newJobBus(log *zap.Logger) *jobBus {
	if log == nil {
		log = zap.NewNop()
	}
	return &jobBus{log: log}
}

// Start schedules a runner. The returned command first signals the job so
// the UI can show a badge, then executes the runner and delivers its
// payload inside an envelope.
func (b *jobBus) Start(kind string, run jobRunner) tea.Cmd {
	snap := jobSnapshot{
		ID:      b.counter.Add(1),
		Kind:    kind,
		Started: time.Now(),
	}
	signal := func() tea.Msg {
		return jobSignalMsg{Snapshot: snap}
	}
	execute := func() tea.Msg {
		payload, err := run(context.Background())
		elapsed := time.Since(snap.Started)
		if err != nil {
			b.log.Warn("job failed",
				zap.Uint64("job", snap.ID),
				zap.String("kind", snap.Kind),
				zap.Duration("elapsed", elapsed),
				zap.Error(err))
		} else {
			b.log.Debug("job finished",
				zap.Uint64("job", snap.ID),
				zap.String("kind", snap.Kind),
				zap.Duration("elapsed", elapsed))
		}
		return jobResultEnvelope{Snapshot: snap, Payload: payload, Err: err, Elapsed: elapsed}
	}
	return tea.Sequence(signal, execute)
}
