package core

import (
	"strings"

	"github.com/dkeye/meetsync/internal/domain"
)

const rosterHeader = "Team Members and Roles:"

// Transcript is an append-only log kept in arrival order, not timestamp order.
type Transcript struct {
	entries []domain.TranscriptEntry
}

func NewTranscript() *Transcript { return &Transcript{} }

func (t *Transcript) Append(speaker, text string, timestamp int64) {
	t.entries = append(t.entries, domain.TranscriptEntry{
		Speaker:   speaker,
		Text:      text,
		Timestamp: timestamp,
	})
}

func (t *Transcript) Len() int { return len(t.entries) }

// Entries returns a copy of the log.
func (t *Transcript) Entries() []domain.TranscriptEntry {
	out := make([]domain.TranscriptEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// RenderForExtraction produces the text handed to the task extractor.
func (t *Transcript) RenderForExtraction(roster []domain.RosterEntry) string {
	return RenderTranscript(t.entries, roster)
}

// RenderTranscript writes one "speaker: text" line per entry followed by the
// roster section.
func RenderTranscript(entries []domain.TranscriptEntry, roster []domain.RosterEntry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(e.Speaker)
		b.WriteString(": ")
		b.WriteString(e.Text)
	}
	b.WriteString("\n\n")
	b.WriteString(rosterHeader)
	b.WriteByte('\n')
	for _, m := range roster {
		role := m.Role
		if role == "" {
			role = domain.RoleMember
		}
		b.WriteString("- ")
		b.WriteString(m.Username)
		b.WriteString(": ")
		b.WriteString(string(role))
		b.WriteByte('\n')
	}
	return b.String()
}
