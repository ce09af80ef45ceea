package session

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"time"
)

//go:embed transcript_template.tmpl
var transcriptTemplate string

type transcriptData struct {
	Name       string
	ExportedAt string
	Messages   []transcriptMessage
}

type transcriptMessage struct {
	Author string
	Time   string
	Text   string
}

// RenderTranscript renders the conversation in a snapshot as markdown
func RenderTranscript(snap Snapshot, exportedAt time.Time) (string, error) {
	tmpl, err := template.New("transcript").Funcs(template.FuncMap{
		"quote": func(text string) string {
			return "> " + strings.ReplaceAll(text, "\n", "\n> ")
		},
	}).Parse(transcriptTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse transcript template: %w", err)
	}

	data := transcriptData{
		ExportedAt: exportedAt.Format("2006-01-02 15:04:05 MST"),
	}
	userName := "You"
	if snap.Registration != nil {
		data.Name = snap.Registration.FirstName + " " + snap.Registration.LastName
		userName = snap.Registration.FirstName
	}
	for _, m := range snap.Messages {
		author := "Coach"
		if m.Sender == SenderUser {
			author = userName
		}
		data.Messages = append(data.Messages, transcriptMessage{
			Author: author,
			Time:   m.Timestamp.Format("15:04"),
			Text:   m.Text,
		})
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute transcript template: %w", err)
	}
	return buf.String(), nil
}
