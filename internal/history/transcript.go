// internal/history/transcript.go
package history

import (
	"strings"
	"time"
)

const (
	DefaultDateFormat = "January 2, 2006"
	DefaultTimeFormat = "3:04 PM"
)

type TranscriptOptions struct {
	Title      string
	DateFormat string
	TimeFormat string
	// Location renders timestamps in a zone other than UTC.
	Location *time.Location
}

// Transcript renders messages as markdown, one "### {date}" group per calendar day.
func Transcript(msgs []Message, opts TranscriptOptions) string {
	if opts.DateFormat == "" {
		opts.DateFormat = DefaultDateFormat
	}
	if opts.TimeFormat == "" {
		opts.TimeFormat = DefaultTimeFormat
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	var b strings.Builder
	if opts.Title != "" {
		b.WriteString("## ")
		b.WriteString(opts.Title)
		b.WriteString("\n\n")
	}

	currentDay := ""
	for _, m := range msgs {
		ts := m.Timestamp.In(opts.Location)
		if day := ts.Format("2006-01-02"); day != currentDay {
			currentDay = day
			b.WriteString("### ")
			b.WriteString(ts.Format(opts.DateFormat))
			b.WriteString("\n\n")
		}

		b.WriteString("**")
		b.WriteString(speaker(m))
		b.WriteString("** (")
		b.WriteString(ts.Format(opts.TimeFormat))
		b.WriteString("): ")
		switch m.Kind {
		case KindStatus:
			b.WriteString("_")
			b.WriteString(m.Text)
			b.WriteString("_")
		default:
			b.WriteString(m.Text)
		}
		b.WriteString("\n\n")
	}

	out := strings.TrimRight(b.String(), "\n")
	if out == "" {
		return ""
	}
	return out + "\n"
}

func speaker(m Message) string {
	switch {
	case m.Role == RoleUser:
		return "You"
	case m.Kind == KindError:
		return "Assistant (error)"
	default:
		return "Assistant"
	}
}
