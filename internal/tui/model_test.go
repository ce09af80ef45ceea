package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cchalm/smart-coach/internal/ai"
	"github.com/cchalm/smart-coach/internal/registration"
	"github.com/cchalm/smart-coach/internal/session"
	"github.com/cchalm/smart-coach/internal/view"
)

type echoRemote struct{}

func (echoRemote) SendTurn(_ context.Context, text string) (string, error) {
	return "**Great question** about " + text, nil
}

type echoGateway struct{}

func (echoGateway) InitializeSession(context.Context, string) (ai.Session, error) {
	return echoRemote{}, nil
}

func newTestModel(t *testing.T, credential string) (Model, *session.Session, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := session.New(session.Options{
		Store:      registration.NewFileStore(dir, nil),
		Gateway:    echoGateway{},
		Credential: credential,
	})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	m := New(context.Background(), s, Options{
		CredentialEnvVar: "API_KEY",
		TranscriptDir:    filepath.Join(dir, "transcripts"),
		Now:              func() time.Time { return time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC) },
	})
	t.Cleanup(m.Close)
	return m, s, dir
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	result, ok := next.(Model)
	require.True(t, ok)
	return result, cmd
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func register(t *testing.T, m Model, s *session.Session) Model {
	t.Helper()
	m = typeText(t, m, "Amir")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = typeText(t, m, "Mirzaei")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = typeText(t, m, "09123456789")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	m, _ = update(t, m, cmd())
	m, _ = update(t, m, snapshotMsg(s.Snapshot()))
	return m
}

func TestModel_MissingCredentialShowsConfigurationError(t *testing.T) {
	m, _, _ := newTestModel(t, "")

	assert.Equal(t, view.KindConfigurationError, m.screen.Kind)
	out := m.View()
	assert.Contains(t, out, "The coach is unavailable")
	assert.Contains(t, out, "API_KEY")

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_OnboardingRejectsEmptyFields(t *testing.T) {
	m, s, _ := newTestModel(t, "test-key")
	require.Equal(t, view.KindOnboarding, m.screen.Kind)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Equal(t, "Please fill in all fields.", m.formError)
	assert.Contains(t, m.View(), "Please fill in all fields.")
	assert.False(t, s.Snapshot().Registered)
}

func TestModel_OnboardingRejectsMalformedMobile(t *testing.T) {
	m, _, _ := newTestModel(t, "test-key")

	m = typeText(t, m, "Amir")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "Mirzaei")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "9123456789")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Contains(t, m.formError, "09123456789")
}

func TestModel_FocusWraps(t *testing.T) {
	m, _, _ := newTestModel(t, "test-key")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, fieldMobile, m.focus)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, fieldFirstName, m.focus)
}

func TestModel_RegistrationOpensChatWithGreeting(t *testing.T) {
	m, s, _ := newTestModel(t, "test-key")

	m = register(t, m, s)

	assert.Equal(t, view.KindActiveChat, m.screen.Kind)
	require.Len(t, m.screen.Messages, 1)
	assert.True(t, strings.HasPrefix(m.screen.Messages[0].Text, "Hello, Amir!"))
	assert.Contains(t, m.View(), "dear Amir")
}

func TestModel_SendShowsReply(t *testing.T) {
	m, s, _ := newTestModel(t, "test-key")
	m = register(t, m, s)

	m = typeText(t, m, "How do I recruit?")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, m.textarea.Value())

	require.Eventually(t, func() bool {
		return !s.Snapshot().AwaitingResponse
	}, 2*time.Second, 5*time.Millisecond)

	m, _ = update(t, m, snapshotMsg(s.Snapshot()))
	require.Len(t, m.screen.Messages, 3)
	assert.Equal(t, session.SenderUser, m.screen.Messages[1].Sender)
	assert.Equal(t, "How do I recruit?", m.screen.Messages[1].Text)
	assert.Contains(t, m.renderHistory(), "Great question")
}

func TestModel_ThinkingIndicator(t *testing.T) {
	m, s, _ := newTestModel(t, "test-key")
	m = register(t, m, s)

	snap := s.Snapshot()
	snap.AwaitingResponse = true
	m, _ = update(t, m, snapshotMsg(snap))

	assert.True(t, m.screen.Thinking)
	assert.Contains(t, m.View(), "Your coach is thinking...")

	// Input is disabled while the coach is thinking
	m = typeText(t, m, "again")
	_, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Len(t, s.Snapshot().Messages, 1)
}

func TestModel_BlankInputIsIgnored(t *testing.T) {
	m, s, _ := newTestModel(t, "test-key")
	m = register(t, m, s)

	m = typeText(t, m, "   ")
	_, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Len(t, s.Snapshot().Messages, 1)
	assert.False(t, s.Snapshot().AwaitingResponse)
}

func TestModel_WindowResize(t *testing.T) {
	m, _, _ := newTestModel(t, "test-key")

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	assert.Equal(t, 120, m.width)
	assert.Equal(t, 40, m.height)
	assert.Equal(t, 120, m.viewport.Width)
	assert.Equal(t, 40-headerHeight-inputHeight-footerHeight, m.viewport.Height)
}

func TestModel_SaveTranscript(t *testing.T) {
	m, s, dir := newTestModel(t, "test-key")
	m = register(t, m, s)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())

	path := filepath.Join(dir, "transcripts", "coach-20250501-093000.md")
	assert.Equal(t, "Conversation saved to "+path, m.status)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Hello, Amir!")
}

func TestModel_CtrlCQuits(t *testing.T) {
	m, _, _ := newTestModel(t, "test-key")

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestNewRenderer_FailureIsLoggedAndFallsBackToPlainText(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	renderer := newRenderer("no-such-style", 80, zap.New(core))

	assert.Nil(t, renderer)
	entries := logs.FilterMessage("failed to create markdown renderer, showing plain text").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "no-such-style", entries[0].ContextMap()["style"])

	m, s, _ := newTestModel(t, "test-key")
	m = register(t, m, s)
	m.renderer = renderer
	assert.Contains(t, m.renderHistory(), s.Snapshot().Messages[0].Text)
}

func TestNewRenderer_DefaultStyle(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	assert.NotNil(t, newRenderer(markdownStyle, 80, zap.New(core)))
	assert.Zero(t, logs.Len())
}
