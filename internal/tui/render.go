package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cchalm/smart-coach/internal/session"
	"github.com/cchalm/smart-coach/internal/view"
)

var (
	accent = lipgloss.Color("#7D56F4")
	muted  = lipgloss.Color("#6C6C6C")
	danger = lipgloss.Color("#E06C75")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(accent)
	subtitleStyle = lipgloss.NewStyle().Italic(true).Foreground(muted)
	userStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#61AFEF"))
	coachStyle    = lipgloss.NewStyle().Bold(true).Foreground(accent)
	errorStyle    = lipgloss.NewStyle().Foreground(danger)
	bannerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(danger).Padding(0, 1)
	hintStyle     = lipgloss.NewStyle().Foreground(muted)
	spinnerStyle  = lipgloss.NewStyle().Foreground(accent)
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(1, 2)
	errorPanel    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(danger).Padding(1, 2)
)

func (m Model) View() string {
	switch m.screen.Kind {
	case view.KindOnboarding:
		return m.viewOnboarding()
	case view.KindConfigurationError:
		return m.viewConfigurationError()
	default:
		return m.viewChat()
	}
}

func (m Model) viewOnboarding() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Welcome to your smart coach"))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render("Tell us a little about yourself to get started."))
	b.WriteString("\n\n")
	for _, in := range m.inputs {
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if m.formError != "" {
		b.WriteString(errorStyle.Render(m.formError))
		b.WriteString("\n")
	}
	if m.submitting {
		b.WriteString(hintStyle.Render("Saving..."))
	} else {
		b.WriteString(hintStyle.Render("tab: next field • enter: continue • ctrl+c: quit"))
	}
	return panelStyle.Render(b.String())
}

func (m Model) viewConfigurationError() string {
	var b strings.Builder
	b.WriteString(errorStyle.Bold(true).Render("The coach is unavailable"))
	b.WriteString("\n\n")
	b.WriteString(m.screen.ConfigurationError)
	b.WriteString("\n\n")
	if m.opts.CredentialEnvVar != "" {
		b.WriteString(fmt.Sprintf("Set %s in your environment or in a .env file, then restart.", m.opts.CredentialEnvVar))
		b.WriteString("\n\n")
	}
	b.WriteString(hintStyle.Render("q: quit"))
	return errorPanel.Render(b.String())
}

func (m Model) viewChat() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Your smart coach"))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("Your guide to success in network marketing, dear %s", m.screen.FirstName)))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	switch {
	case m.screen.Thinking:
		b.WriteString(m.spinner.View() + " Your coach is thinking...")
	case m.screen.ErrorBanner != "":
		b.WriteString(bannerStyle.Render(m.screen.ErrorBanner) + hintStyle.Render("  esc: dismiss"))
	case m.status != "":
		b.WriteString(hintStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(m.textarea.View())
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("enter: send • alt+enter: new line • ctrl+s: save conversation • ctrl+c: quit"))
	return b.String()
}

func (m Model) renderHistory() string {
	var b strings.Builder
	for i, msg := range m.screen.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg))
	}
	return b.String()
}

func (m Model) renderMessage(msg session.Message) string {
	stamp := hintStyle.Render(msg.Timestamp.Format("15:04"))
	if msg.Sender == session.SenderUser {
		return fmt.Sprintf("%s %s\n%s\n", userStyle.Render("You"), stamp, msg.Text)
	}

	body := msg.Text
	if m.renderer != nil {
		if rendered, err := m.renderer.Render(msg.Text); err == nil {
			body = strings.TrimRight(rendered, "\n")
		}
	}
	return fmt.Sprintf("%s %s\n%s\n", coachStyle.Render("Coach"), stamp, body)
}
