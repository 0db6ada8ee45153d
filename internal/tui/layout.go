package tui

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"github.com/mgalkin/filechat/internal/session"
)

// contentBuilder accumulates styled lines for the transcript viewport.
type contentBuilder struct {
	b strings.Builder
}

func (cb *contentBuilder) writeLine(line string) {
	cb.b.WriteString(line)
	cb.b.WriteString("\n")
}

func (cb *contentBuilder) blank() {
	cb.b.WriteString("\n")
}

// writeIndented writes a possibly multi-line block with every line prefixed.
func (cb *contentBuilder) writeIndented(block, prefix string) {
	cb.writeLine(indentMultiline(block, prefix))
}

func (cb *contentBuilder) String() string {
	return strings.TrimRight(cb.b.String(), "\n")
}

func indentMultiline(block, prefix string) string {
	lines := strings.Split(block, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

// wrapWidth is the usable text width inside the viewport after the given
// reserve, floored so wrapping stays sane on tiny terminals.
func (m *model) wrapWidth(reserve int) int {
	width := m.viewport.Width - reserve
	if width < minViewportWidth {
		width = minViewportWidth
	}
	return width
}

func transcriptLabel(role string) string {
	if role == session.RoleUser {
		return youLabelStyle.Render("You")
	}
	return botLabelStyle.Render("filechat")
}

// buildTranscript renders the conversation: the committed turns, then the
// in-flight question with whatever has streamed in so far.
func (m *model) buildTranscript() string {
	cb := &contentBuilder{}
	width := m.wrapWidth(4)
	turns := m.config.Session.Turns

	if len(turns) == 0 && !m.askLoading {
		cb.writeLine(helperStyle.Render("No questions yet. Type below and press enter."))
		return cb.String()
	}

	for i, turn := range turns {
		if i > 0 {
			cb.blank()
		}
		cb.writeLine(transcriptLabel(turn.Role))
		cb.writeIndented(wordwrap.String(turn.Text, width), "  ")
	}

	if m.askLoading {
		if len(turns) > 0 {
			cb.blank()
		}
		cb.writeLine(transcriptLabel(session.RoleUser))
		cb.writeIndented(wordwrap.String(m.pendingQuestion, width), "  ")
		cb.blank()
		cb.writeLine(transcriptLabel(session.RoleAssistant))
		live := m.liveAnswer
		if live == "" {
			live = "Thinking…"
		}
		cb.writeIndented(wordwrap.String(live, width), "  ")
	}

	return cb.String()
}

// uploadReportLines lists each file of the last batch with its outcome.
func (m *model) uploadReportLines() []string {
	if m.lastReport == nil {
		return nil
	}
	lines := make([]string, 0, len(m.lastReport.Results)+len(m.lastReport.Failures))
	for _, res := range m.lastReport.Results {
		lines = append(lines, fmt.Sprintf("%s indexed (%d bytes)", res.Filename, res.SizeBytes))
	}
	for _, fail := range m.lastReport.Failures {
		lines = append(lines, errorStyle.Render(fmt.Sprintf("%s failed: %v", fail.Filename, fail.Err)))
	}
	return lines
}

func questionCount(turns []session.Turn) int {
	count := 0
	for _, turn := range turns {
		if turn.Role == session.RoleUser {
			count++
		}
	}
	return count
}
