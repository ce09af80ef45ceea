// Package tui is the terminal front end of the coach. It renders session snapshots and forwards user input to the
// session; it never blocks on the AI gateway.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"github.com/cchalm/smart-coach/internal/registration"
	"github.com/cchalm/smart-coach/internal/session"
	"github.com/cchalm/smart-coach/internal/view"
)

const (
	fieldFirstName = iota
	fieldLastName
	fieldMobile
	fieldCount
)

const (
	headerHeight = 3
	inputHeight  = 3
	footerHeight = 2
)

// Options configures the front end
type Options struct {
	// CredentialEnvVar is named in the configuration error screen
	CredentialEnvVar string
	// TranscriptDir is where Ctrl+S saves the conversation
	TranscriptDir string
	Logger        *zap.Logger
	Now           func() time.Time
}

// Model is the bubbletea model of the coach
type Model struct {
	ctx         context.Context
	session     *session.Session
	updates     <-chan session.Snapshot
	unsubscribe func()
	opts        Options

	screen view.Screen
	scroll *view.AutoScroll

	width  int
	height int

	// Onboarding form
	inputs     []textinput.Model
	focus      int
	formError  string
	submitting bool

	// Chat
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	status   string
}

type snapshotMsg session.Snapshot

type registeredMsg struct {
	err error
}

type transcriptSavedMsg struct {
	path string
	err  error
}

// New creates the model and subscribes it to the session. Call Close when the program exits
func New(ctx context.Context, s *session.Session, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	updates, unsubscribe := s.Subscribe()

	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		ti := textinput.New()
		ti.CharLimit = 64
		ti.Width = 32
		inputs[i] = ti
	}
	inputs[fieldFirstName].Prompt = "First name:    "
	inputs[fieldFirstName].Placeholder = "e.g. Amir"
	inputs[fieldLastName].Prompt = "Last name:     "
	inputs[fieldLastName].Placeholder = "e.g. Mirzaei"
	inputs[fieldMobile].Prompt = "Mobile number: "
	inputs[fieldMobile].Placeholder = "09123456789"
	inputs[fieldMobile].CharLimit = 11
	inputs[fieldFirstName].Focus()

	ta := textarea.New()
	ta.Placeholder = "Type your message here..."
	ta.ShowLineNumbers = false
	ta.SetHeight(inputHeight - 1)
	ta.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	m := Model{
		ctx:         ctx,
		session:     s,
		updates:     updates,
		unsubscribe: unsubscribe,
		opts:        opts,
		scroll:      &view.AutoScroll{},
		width:       80,
		height:      24,
		inputs:      inputs,
		viewport:    viewport.New(80, 24-headerHeight-inputHeight-footerHeight),
		textarea:    ta,
		spinner:     sp,
	}
	m.renderer = newRenderer(markdownStyle, m.width, opts.Logger)
	m.applySnapshot(s.Snapshot())
	return m
}

// Close ends the model's subscription to the session
func (m Model) Close() {
	m.unsubscribe()
}

const markdownStyle = "dark"

// newRenderer returns nil when the renderer cannot be built; replies are then shown as plain text
func newRenderer(style string, width int, logger *zap.Logger) *glamour.TermRenderer {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(max(width-4, 20)),
	)
	if err != nil {
		logger.Warn("failed to create markdown renderer, showing plain text", zap.String("style", style), zap.Error(err))
		return nil
	}
	return renderer
}

func waitForSnapshot(updates <-chan session.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return nil
		}
		return snapshotMsg(snap)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForSnapshot(m.updates), textinput.Blink, m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case snapshotMsg:
		m.applySnapshot(session.Snapshot(msg))
		return m, waitForSnapshot(m.updates)

	case registeredMsg:
		m.submitting = false
		if msg.err != nil {
			m.formError = msg.err.Error()
		}
		return m, nil

	case transcriptSavedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Could not save the conversation: %v", msg.err)
		} else {
			m.status = fmt.Sprintf("Conversation saved to %s", msg.path)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.screen.Kind {
		case view.KindOnboarding:
			return m.updateOnboarding(msg)
		case view.KindActiveChat:
			return m.updateChat(msg)
		default:
			if msg.Type == tea.KeyEsc || msg.String() == "q" {
				return m, tea.Quit
			}
			return m, nil
		}
	}

	return m, nil
}

func (m *Model) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = max(height-headerHeight-inputHeight-footerHeight, 1)
	m.textarea.SetWidth(max(width-2, 10))
	m.renderer = newRenderer(markdownStyle, width, m.opts.Logger)
	m.refreshHistory(true)
}

func (m *Model) applySnapshot(snap session.Snapshot) {
	m.screen = view.Render(snap)
	grew := m.scroll.Observe(m.screen)
	m.refreshHistory(grew)
}

func (m *Model) refreshHistory(gotoBottom bool) {
	if m.screen.Kind != view.KindActiveChat {
		return
	}
	m.viewport.SetContent(m.renderHistory())
	if gotoBottom {
		m.viewport.GotoBottom()
	}
}

func (m Model) updateOnboarding(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyTab, tea.KeyDown:
		m.setFocus((m.focus + 1) % fieldCount)
		return m, nil
	case tea.KeyShiftTab, tea.KeyUp:
		m.setFocus((m.focus + fieldCount - 1) % fieldCount)
		return m, nil
	case tea.KeyEnter:
		if m.focus < fieldCount-1 {
			m.setFocus(m.focus + 1)
			return m, nil
		}
		return m.submitRegistration()
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) setFocus(i int) {
	m.inputs[m.focus].Blur()
	m.focus = i
	m.inputs[m.focus].Focus()
}

func (m Model) submitRegistration() (tea.Model, tea.Cmd) {
	if m.submitting {
		return m, nil
	}
	record := registration.Record{
		FirstName: m.inputs[fieldFirstName].Value(),
		LastName:  m.inputs[fieldLastName].Value(),
		Mobile:    m.inputs[fieldMobile].Value(),
	}
	if err := registration.Validate(record); err != nil {
		m.formError = formErrorText(err)
		return m, nil
	}
	m.formError = ""
	m.submitting = true

	ctx, s := m.ctx, m.session
	return m, func() tea.Msg {
		// Registering may initialize the gateway session, so it runs off the update loop
		_, err := s.Register(ctx, record)
		return registeredMsg{err: err}
	}
}

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		if msg.Alt {
			break
		}
		if !m.screen.InputEnabled {
			return m, nil
		}
		text := m.textarea.Value()
		turn, err := m.session.Submit(m.ctx, text)
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		if turn != nil {
			m.textarea.Reset()
			m.status = ""
		}
		return m, nil
	case tea.KeyEsc:
		m.session.DismissError()
		m.status = ""
		return m, nil
	case tea.KeyCtrlS:
		return m, m.saveTranscript()
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m Model) saveTranscript() tea.Cmd {
	snap := m.session.Snapshot()
	dir := m.opts.TranscriptDir
	now := m.opts.Now()
	logger := m.opts.Logger
	return func() tea.Msg {
		md, err := session.RenderTranscript(snap, now)
		if err != nil {
			return transcriptSavedMsg{err: err}
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return transcriptSavedMsg{err: err}
		}
		path := filepath.Join(dir, fmt.Sprintf("coach-%s.md", now.Format("20060102-150405")))
		if err := os.WriteFile(path, []byte(md), 0o600); err != nil {
			return transcriptSavedMsg{err: err}
		}
		logger.Info("saved transcript", zap.String("path", path), zap.Int("messages", len(snap.Messages)))
		return transcriptSavedMsg{path: path}
	}
}

func formErrorText(err error) string {
	var ve *registration.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	switch ve.Field {
	case "firstName", "lastName":
		return "Please fill in all fields."
	case "mobile":
		if ve.Reason == "must not be empty" {
			return "Please fill in all fields."
		}
		return "The mobile number is not valid. (Example: 09123456789)"
	}
	return ve.Error()
}
