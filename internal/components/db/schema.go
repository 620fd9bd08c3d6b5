package db

import (
	_ "embed"
	"strings"
	"time"
)

//go:embed schema.sql
var Schema string

// Statements splits Schema into its individual statements, dropping comments.
func Statements() []string {
	var out []string
	var current strings.Builder
	for _, line := range strings.Split(Schema, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
		if strings.HasSuffix(trimmed, ";") {
			out = append(out, strings.TrimSuffix(strings.TrimSpace(current.String()), ";"))
			current.Reset()
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		out = append(out, strings.TrimSpace(current.String()))
	}
	return out
}

// FormatDate is the on-disk representation of a calendar date.
func FormatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

func ParseDate(date string) (time.Time, error) {
	return time.Parse(time.DateOnly, date)
}

// FormatTimestamp is used for columns that record an instant rather than a day.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
