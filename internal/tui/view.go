package tui

import (
	"fmt"
	"strings"
)

func (m *model) View() string {
	if m.stage == stagePicker {
		return m.viewPicker()
	}
	return m.viewChat()
}

func (m *model) viewPicker() string {
	parts := []string{
		m.heroView(),
		sectionHeaderStyle.Render("Indexes"),
		m.indexListView(),
		m.pickerFieldView(),
		m.messageLines(),
		helperStyle.Render("↑/↓ move · enter select · n new · i by id · r refresh · q quit"),
	}
	return joinNonEmpty(parts) + "\n"
}

func (m *model) indexListView() string {
	if m.listLoading {
		return helperStyle.Render(m.spinner.View() + " Fetching indexes…")
	}
	if len(m.indexes) == 0 {
		if m.listFailed {
			return helperStyle.Render("The listing failed. You can still type an index id with i.")
		}
		return helperStyle.Render("No indexes yet. Press n to create one.")
	}
	lines := make([]string, 0, len(m.indexes))
	for i, idx := range m.indexes {
		line := fmt.Sprintf("  %s %s", indexLabel(idx), dimStyle.Render(idx.ID))
		if i == m.cursor {
			line = cursorLineStyle.Render(fmt.Sprintf("▸ %s", indexLabel(idx))) + " " + dimStyle.Render(idx.ID)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m *model) pickerFieldView() string {
	switch m.pickerMode {
	case pickerNaming:
		return sectionHeaderStyle.Render("New index") + "\n" + m.field.View()
	case pickerTyping:
		return sectionHeaderStyle.Render("Index id") + "\n" + m.field.View()
	}
	return ""
}

func (m *model) viewChat() string {
	m.refreshViewportIfDirty()

	transcript := helperStyle.Render("measuring terminal…")
	if m.viewportReady {
		transcript = m.viewport.View()
	}

	parts := []string{
		m.heroView(),
		transcript,
		m.uploadReportView(),
		m.previewView(),
		m.statusLine(),
		composerBoxStyle.Width(m.composerWidth()).Render(m.composer.View()),
		m.messageLines(),
		helperStyle.Render("enter ask · /upload /files /preview <file> · esc cancel/back · ctrl+l clear · ctrl+c quit"),
		m.helpView(),
	}
	return joinNonEmpty(parts) + "\n"
}

func (m *model) heroView() string {
	title := titleStyle.Render("filechat")
	if m.stage == stageChat {
		if idx := m.config.Session.ActiveIndex; idx != nil {
			title += " " + dimStyle.Render(indexLabel(*idx))
		}
	}
	return title + "\n" + taglineStyle.Render(heroTagline)
}

func (m *model) statusLine() string {
	sess := m.config.Session
	segments := []string{}
	if idx := sess.ActiveIndex; idx != nil {
		segments = append(segments, "index "+indexLabel(*idx))
	}
	segments = append(segments,
		fmt.Sprintf("%d documents", sess.Registry.Len()),
		fmt.Sprintf("%d questions", questionCount(sess.Turns)),
	)
	if m.config.Streaming {
		segments = append(segments, "streaming on")
	} else {
		segments = append(segments, "streaming off")
	}
	line := statusBarStyle.Render(strings.Join(segments, " · "))
	if badges := m.jobBadges(); len(badges) > 0 {
		line += " " + strings.Join(badges, " ")
	}
	if m.busy() {
		line += " " + m.spinner.View()
	}
	return line
}

func (m *model) uploadReportView() string {
	lines := m.uploadReportLines()
	if len(lines) == 0 {
		return ""
	}
	return sectionHeaderStyle.Render("Last upload") + "\n" + indentMultiline(strings.Join(lines, "\n"), "  ")
}

func (m *model) previewView() string {
	if m.preview == "" {
		return ""
	}
	header := sectionHeaderStyle.Render("Preview: " + m.previewName)
	return header + "\n" + previewBoxStyle.Width(m.composerWidth()).Render(m.preview)
}

func (m *model) messageLines() string {
	parts := []string{}
	if m.errorMessage != "" {
		parts = append(parts, errorStyle.Render(m.errorMessage))
	}
	if m.infoMessage != "" {
		parts = append(parts, infoStyle.Render(m.infoMessage))
	}
	return strings.Join(parts, "\n")
}

func (m *model) helpView() string {
	if !m.helpVisible {
		return ""
	}
	help := strings.Join([]string{
		"/upload            index every supported file in " + m.config.UploadsDir,
		"/files             re-list the index documents (refreshes citation names)",
		"/preview <file>    show the head of an uploaded file",
		"/clear             reset the session and return to the picker (also ctrl+l)",
		"/help              toggle this box",
		"",
		"esc cancels a running question, clears the composer, or returns to the picker.",
	}, "\n")
	return helpBoxStyle.Render(help)
}

func (m *model) composerWidth() int {
	width := m.width - 4
	if width < minViewportWidth {
		width = minViewportWidth
	}
	return width
}

// joinNonEmpty joins the non-empty sections with newlines so hidden panels
// leave no blank gaps behind.
func joinNonEmpty(parts []string) string {
	kept := parts[:0]
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, "\n")
}
