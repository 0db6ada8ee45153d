// Package tui is the terminal front end: an index picker stage followed by
// a chat stage with a transcript viewport, live streamed answers, and slash
// commands for uploading and previewing local documents. All session
// mutation happens inside the update loop; gateway work runs on the job bus
// and comes back as messages.
package tui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/mgalkin/filechat/internal/chat"
	"github.com/mgalkin/filechat/internal/docstore"
	"github.com/mgalkin/filechat/internal/ingest"
	"github.com/mgalkin/filechat/internal/session"
)

// Store is the slice of the document store gateway the UI drives directly.
// Uploads go through the Ingester and questions through the Asker.
type Store interface {
	CreateIndex(ctx context.Context, name string) (docstore.Index, error)
	ListIndexes(ctx context.Context, limit int) ([]docstore.Index, error)
	ListIndexFiles(ctx context.Context, indexID string, limit int) ([]docstore.IndexedDocument, error)
}

// Asker answers one question against the session's active index.
type Asker interface {
	Ask(ctx context.Context, sess *session.Session, opts chat.AskOptions) (chat.Exchange, error)
}

// Ingester uploads a batch of documents into an index.
type Ingester interface {
	Run(ctx context.Context, indexID string, docs []ingest.Document) ingest.Report
}

// Config wires the runtime collaborators into the program.
type Config struct {
	Store      Store
	Chat       Asker
	Ingest     Ingester
	Session    *session.Session
	UploadsDir string
	Model      string
	MaxResults int
	Streaming  bool
	Log        *zap.Logger
}

// Messages delivered back to the update loop.
type (
	indexListMsg struct {
		indexes []docstore.Index
		err     error
	}

	indexCreatedMsg struct {
		index docstore.Index
		err   error
	}

	indexFilesMsg struct {
		indexID string
		docs    []docstore.IndexedDocument
		err     error
	}

	ingestReportMsg struct {
		indexID string
		report  ingest.Report
		err     error
	}

	previewMsg struct {
		name string
		text string
		err  error
	}

	// askStreamMsg carries one streamed answer fragment plus the channels
	// needed to wait for the next one.
	askStreamMsg struct {
		id      int
		delta   string
		updates <-chan string
		outcome <-chan askResultMsg
	}

	// askResultMsg is the final outcome of one question.
	askResultMsg struct {
		id       int
		exchange chat.Exchange
		err      error
	}
)

type model struct {
	config Config
	log    *zap.Logger

	stage      stage
	pickerMode pickerMode

	spinner  spinner.Model
	composer textinput.Model
	field    textinput.Model
	viewport viewport.Model

	jobs        *jobBus
	runningJobs map[uint64]jobSnapshot

	indexes     []docstore.Index
	cursor      int
	listLoading bool
	listFailed  bool

	askSeq          int
	askLoading      bool
	cancelAsk       context.CancelFunc
	pendingQuestion string
	liveAnswer      string

	ingesting  bool
	lastReport *ingest.Report

	preview     string
	previewName string
	helpVisible bool

	infoMessage  string
	errorMessage string

	width         int
	height        int
	viewportReady bool
	viewportDirty bool
}

// New builds the program model. A nil session or logger is replaced so the
// model is always safe to drive.
func New(config Config) tea.Model {
	if config.Session == nil {
		config.Session = session.New()
	}
	if config.Log == nil {
		config.Log = zap.NewNop()
	}

	composer := textinput.New()
	composer.Placeholder = composerPlaceholder
	composer.CharLimit = composerCharLimit
	composer.Prompt = "> "

	field := textinput.New()
	field.CharLimit = fieldCharLimit
	field.Prompt = "> "

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return &model{
		config:      config,
		log:         config.Log,
		stage:       stagePicker,
		pickerMode:  pickerBrowsing,
		spinner:     sp,
		composer:    composer,
		field:       field,
		jobs:        newJobBus(config.Log),
		runningJobs: make(map[uint64]jobSnapshot),
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.refreshIndexesCmd())
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeViewport()
		return m, nil
	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	case jobSignalMsg:
		m.runningJobs[msg.Snapshot.ID] = msg.Snapshot
		return m, m.spinner.Tick
	case jobResultEnvelope:
		delete(m.runningJobs, msg.Snapshot.ID)
		if msg.Payload == nil {
			return m, nil
		}
		return m.Update(msg.Payload)
	case indexListMsg:
		return m, m.handleIndexList(msg)
	case indexCreatedMsg:
		return m, m.handleIndexCreated(msg)
	case indexFilesMsg:
		return m, m.handleIndexFiles(msg)
	case ingestReportMsg:
		return m, m.handleIngestReport(msg)
	case previewMsg:
		return m, m.handlePreview(msg)
	case askStreamMsg:
		return m, m.handleAskStream(msg)
	case askResultMsg:
		return m, m.handleAskResult(msg)
	}
	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.stage == stagePicker {
		return m.handlePickerKey(msg)
	}
	return m.handleChatKey(msg)
}

func (m *model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.pickerMode != pickerBrowsing {
		switch msg.Type {
		case tea.KeyEsc:
			m.pickerMode = pickerBrowsing
			m.field.Blur()
			m.field.Reset()
			return m, nil
		case tea.KeyEnter:
			return m.submitPickerField()
		}
		var cmd tea.Cmd
		m.field, cmd = m.field.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.indexes)-1 {
			m.cursor++
		}
		return m, nil
	case "enter":
		if len(m.indexes) == 0 {
			m.infoMessage = "No indexes listed. Press n to create one or i to type an id."
			return m, nil
		}
		return m, m.selectIndex(m.indexes[m.cursor])
	case "r":
		m.errorMessage = ""
		return m, tea.Batch(m.spinner.Tick, m.refreshIndexesCmd())
	case "n":
		m.pickerMode = pickerNaming
		m.field.Placeholder = namePlaceholder
		m.field.Reset()
		m.field.Focus()
		return m, textinput.Blink
	case "i":
		m.pickerMode = pickerTyping
		m.field.Placeholder = idPlaceholder
		m.field.Reset()
		m.field.Focus()
		return m, textinput.Blink
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m *model) submitPickerField() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.field.Value())
	if value == "" {
		return m, nil
	}
	switch m.pickerMode {
	case pickerNaming:
		m.pickerMode = pickerBrowsing
		m.field.Blur()
		m.field.Reset()
		m.infoMessage = fmt.Sprintf("Creating index %q…", value)
		return m, tea.Batch(m.spinner.Tick, m.createIndexCmd(value))
	case pickerTyping:
		return m, m.selectIndex(docstore.Index{ID: value})
	}
	return m, nil
}

func (m *model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlL:
		return m, m.clearSession()
	case tea.KeyEsc:
		return m.handleChatEsc()
	case tea.KeyEnter:
		return m.submitComposer()
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

func (m *model) handleChatEsc() (tea.Model, tea.Cmd) {
	if m.askLoading {
		if m.cancelAsk != nil {
			m.cancelAsk()
		}
		m.infoMessage = "Canceling…"
		return m, nil
	}
	if m.composer.Value() != "" {
		m.composer.Reset()
		return m, nil
	}
	m.stage = stagePicker
	m.pickerMode = pickerBrowsing
	m.infoMessage = "Back to the index picker. The conversation is kept."
	return m, tea.Batch(m.spinner.Tick, m.refreshIndexesCmd())
}

func (m *model) submitComposer() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.composer.Value())
	if text == "" {
		return m, nil
	}
	if strings.HasPrefix(text, "/") {
		return m.runSlashCommand(text)
	}
	if m.askLoading {
		m.infoMessage = "Still answering. Esc cancels the running question."
		return m, nil
	}
	m.composer.Reset()
	return m, m.submitQuestion(text)
}

func (m *model) runSlashCommand(text string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(text)
	switch parts[0] {
	case "/help":
		m.helpVisible = !m.helpVisible
		m.composer.Reset()
		return m, nil
	case "/upload":
		if m.ingesting {
			m.infoMessage = "An upload batch is already running."
			return m, nil
		}
		idx := m.config.Session.ActiveIndex
		if idx == nil {
			m.errorMessage = "No active index."
			return m, nil
		}
		m.ingesting = true
		m.lastReport = nil
		m.composer.Reset()
		m.infoMessage = fmt.Sprintf("Indexing files from %s…", m.config.UploadsDir)
		return m, tea.Batch(m.spinner.Tick, m.ingestUploadsCmd(idx.ID))
	case "/files":
		idx := m.config.Session.ActiveIndex
		if idx == nil {
			m.errorMessage = "No active index."
			return m, nil
		}
		m.composer.Reset()
		return m, tea.Batch(m.spinner.Tick, m.listFilesCmd(idx.ID))
	case "/preview":
		if len(parts) < 2 {
			m.infoMessage = "Usage: /preview <file name>"
			return m, nil
		}
		m.composer.Reset()
		return m, tea.Batch(m.spinner.Tick, m.previewCmd(strings.Join(parts[1:], " ")))
	case "/clear":
		return m, m.clearSession()
	}
	m.infoMessage = fmt.Sprintf("Unknown command %s. /help lists the commands.", parts[0])
	return m, nil
}

// submitQuestion launches one question. The ask runs on its own goroutine
// feeding a delta channel; a single waitForAskEvent command pumps those
// channels back into the update loop.
func (m *model) submitQuestion(question string) tea.Cmd {
	m.askSeq++
	id := m.askSeq

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelAsk = cancel
	m.askLoading = true
	m.pendingQuestion = question
	m.liveAnswer = ""
	m.preview = ""
	m.previewName = ""
	m.errorMessage = ""
	m.infoMessage = ""
	m.markViewportDirty()

	updates := make(chan string, 32)
	outcome := make(chan askResultMsg, 1)
	opts := chat.AskOptions{
		Question:   question,
		Model:      m.config.Model,
		MaxResults: m.config.MaxResults,
		Streaming:  m.config.Streaming,
		OnDelta: func(delta string) {
			select {
			case updates <- delta:
			case <-ctx.Done():
			}
		},
	}
	svc := m.config.Chat
	sess := m.config.Session
	go func() {
		defer cancel()
		exchange, err := svc.Ask(ctx, sess, opts)
		close(updates)
		outcome <- askResultMsg{id: id, exchange: exchange, err: err}
	}()

	return tea.Batch(m.spinner.Tick, waitForAskEvent(id, updates, outcome))
}

func (m *model) handleAskStream(msg askStreamMsg) tea.Cmd {
	if msg.id != m.askSeq {
		return nil
	}
	m.liveAnswer += msg.delta
	m.markViewportDirty()
	return waitForAskEvent(msg.id, msg.updates, msg.outcome)
}

func (m *model) handleAskResult(msg askResultMsg) tea.Cmd {
	if msg.id != m.askSeq {
		return nil
	}
	m.askLoading = false
	m.cancelAsk = nil
	m.pendingQuestion = ""
	m.liveAnswer = ""

	switch {
	case msg.err == nil:
		m.applyExchange(msg.exchange)
		m.errorMessage = ""
		m.infoMessage = "Answer ready."
	case errors.Is(msg.err, context.Canceled):
		m.infoMessage = "Question canceled. Nothing was recorded."
	case errors.Is(msg.err, chat.ErrNoActiveIndex):
		m.applyExchange(msg.exchange)
		m.infoMessage = "Pick an index first. Esc returns to the picker."
	default:
		m.applyExchange(msg.exchange)
		m.errorMessage = msg.err.Error()
		m.infoMessage = "The session is still usable. Ask again."
	}
	m.markViewportDirty()
	return nil
}

// applyExchange commits one question's transcript effect in a single step.
func (m *model) applyExchange(exchange chat.Exchange) {
	sess := m.config.Session
	if exchange.Question != "" {
		sess.Append(session.RoleUser, exchange.Question)
	}
	if exchange.Answer != "" {
		sess.Append(session.RoleAssistant, exchange.Answer)
	}
	if exchange.ResponseID != "" {
		sess.LastResponseID = exchange.ResponseID
	}
}

func (m *model) handleIndexList(msg indexListMsg) tea.Cmd {
	m.listLoading = false
	if msg.err != nil {
		m.listFailed = true
		m.indexes = nil
		m.cursor = 0
		m.errorMessage = "Couldn't list indexes. Press i to type an id, or r to retry."
		return nil
	}
	m.listFailed = false
	m.indexes = msg.indexes
	if m.cursor >= len(m.indexes) {
		m.cursor = 0
	}
	m.errorMessage = ""
	return nil
}

func (m *model) handleIndexCreated(msg indexCreatedMsg) tea.Cmd {
	if msg.err != nil {
		m.errorMessage = msg.err.Error()
		m.infoMessage = ""
		return nil
	}
	m.indexes = append(m.indexes, msg.index)
	return m.selectIndex(msg.index)
}

func (m *model) handleIndexFiles(msg indexFilesMsg) tea.Cmd {
	active := m.config.Session.ActiveIndex
	if active == nil || active.ID != msg.indexID {
		return nil
	}
	if msg.err != nil {
		m.infoMessage = "Couldn't list the index documents. Citations may show raw file ids."
		return nil
	}
	m.config.Session.Registry.RegisterDocuments(msg.docs)
	m.infoMessage = fmt.Sprintf("%d documents in this index.", len(msg.docs))
	return nil
}

func (m *model) handleIngestReport(msg ingestReportMsg) tea.Cmd {
	m.ingesting = false
	if msg.err != nil {
		m.errorMessage = fmt.Sprintf("scan %s: %v", m.config.UploadsDir, msg.err)
		return nil
	}
	report := msg.report
	m.lastReport = &report
	m.infoMessage = report.Summary()
	m.markViewportDirty()
	return nil
}

func (m *model) handlePreview(msg previewMsg) tea.Cmd {
	if msg.err != nil {
		m.errorMessage = fmt.Sprintf("preview %s: %v", msg.name, msg.err)
		return nil
	}
	m.preview = msg.text
	m.previewName = msg.name
	m.errorMessage = ""
	return nil
}

// selectIndex makes one index active and moves to the chat stage. Listing
// the index's documents re-seeds the citation registry; the listing is best
// effort and a failure leaves the session usable.
func (m *model) selectIndex(idx docstore.Index) tea.Cmd {
	if idx.ID == "" {
		m.errorMessage = "The index id is empty."
		return nil
	}
	m.config.Session.SetActiveIndex(idx)
	m.stage = stageChat
	m.pickerMode = pickerBrowsing
	m.field.Blur()
	m.field.Reset()
	m.composer.Focus()
	m.errorMessage = ""
	m.infoMessage = fmt.Sprintf("Using %s. Put files in %s and /upload to index them.", indexLabel(idx), m.config.UploadsDir)
	m.markViewportDirty()
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.listFilesCmd(idx.ID))
}

// clearSession resets every piece of conversation state and returns to the
// picker. Refused while a question is in flight so the in-flight goroutine
// never races the reset.
func (m *model) clearSession() tea.Cmd {
	if m.askLoading {
		m.infoMessage = "Cancel the running question first (Esc)."
		return nil
	}
	m.config.Session.Clear()
	m.stage = stagePicker
	m.pickerMode = pickerBrowsing
	m.composer.Reset()
	m.field.Blur()
	m.field.Reset()
	m.liveAnswer = ""
	m.pendingQuestion = ""
	m.preview = ""
	m.previewName = ""
	m.lastReport = nil
	m.helpVisible = false
	m.errorMessage = ""
	m.infoMessage = "Session cleared."
	m.markViewportDirty()
	return tea.Batch(m.spinner.Tick, m.refreshIndexesCmd())
}

func (m *model) busy() bool {
	return m.askLoading || m.ingesting || m.listLoading || len(m.runningJobs) > 0
}

func (m *model) jobBadges() []string {
	if len(m.runningJobs) == 0 {
		return nil
	}
	snaps := make([]jobSnapshot, 0, len(m.runningJobs))
	for _, snap := range m.runningJobs {
		snaps = append(snaps, snap)
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].ID < snaps[j].ID })
	badges := make([]string, 0, len(snaps))
	for _, snap := range snaps {
		badges = append(badges, badgeStyle.Render(snap.Kind))
	}
	return badges
}

func (m *model) resizeViewport() {
	width := m.width - 4
	if width < minViewportWidth {
		width = minViewportWidth
	}
	height := m.height - chromeLines
	if height < minViewportHeight {
		height = minViewportHeight
	}
	if !m.viewportReady {
		m.viewport = viewport.New(width, height)
		m.viewportReady = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = height
	}
	m.markViewportDirty()
}

func (m *model) markViewportDirty() {
	m.viewportDirty = true
}

func (m *model) refreshViewportIfDirty() {
	if !m.viewportDirty || !m.viewportReady {
		return
	}
	m.viewport.SetContent(m.buildTranscript())
	m.viewport.GotoBottom()
	m.viewportDirty = false
}

// chromeLines is the vertical space the chat stage spends outside the
// transcript viewport: hero, status, composer, helper, and message lines.
const chromeLines = 11

func indexLabel(idx docstore.Index) string {
	if idx.Name != "" {
		return idx.Name
	}
	return idx.ID
}

var (
	titleStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	taglineStyle       = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245"))
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	cursorLineStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	dimStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	youLabelStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	botLabelStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	statusBarStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236")).Padding(0, 1)
	badgeStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("60")).Padding(0, 1)
	composerBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
	previewBoxStyle    = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	helpBoxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("99")).Padding(0, 1)
	helperStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	infoStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
	spinnerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
)
