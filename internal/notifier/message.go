package notifier

import (
	"strings"
	"time"
)

const maxMessageLen = 3800

// Section is one titled block of a message.
type Section struct {
	Title string
	Lines []string
}

// Message is a run summary rendered as Telegram Markdown.
type Message struct {
	Title     string
	Sections  []Section
	Footer    string
	Timestamp time.Time
}

// RenderMarkdown renders the message, truncating overly long bodies.
func (m Message) RenderMarkdown() string {
	var b strings.Builder
	if title := strings.TrimSpace(m.Title); title != "" {
		b.WriteString("*" + escape(title) + "*\n\n")
	}
	if block := renderSections(m.Sections); block != "" {
		b.WriteString(block)
	}
	if footer := strings.TrimSpace(m.Footer); footer != "" {
		b.WriteString(escape(footer))
		b.WriteString("\n")
	}
	if !m.Timestamp.IsZero() {
		b.WriteString("time: " + m.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	body := strings.TrimSpace(b.String())
	if len(body) > maxMessageLen {
		body = body[:maxMessageLen] + "..."
	}
	return body
}

func renderSections(secs []Section) string {
	var b strings.Builder
	for _, sec := range secs {
		lines := nonEmpty(sec.Lines)
		if len(lines) == 0 {
			continue
		}
		if title := strings.TrimSpace(sec.Title); title != "" {
			b.WriteString(escape(title) + "\n")
		}
		b.WriteString("```\n")
		for _, line := range lines {
			b.WriteString(escape(line) + "\n")
		}
		b.WriteString("```\n\n")
	}
	return b.String()
}

func nonEmpty(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if text := strings.TrimSpace(line); text != "" {
			out = append(out, text)
		}
	}
	return out
}

func escape(s string) string {
	return strings.ReplaceAll(s, "```", "'''")
}
