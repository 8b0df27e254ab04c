package model

import (
	"fmt"
	"strings"
)

// Period is one of the two semesters a trend compares.
type Period int

const (
	PeriodUnknown Period = iota
	PeriodFirst
	PeriodSecond
)

func (p Period) String() string {
	switch p {
	case PeriodFirst:
		return "first"
	case PeriodSecond:
		return "second"
	default:
		return "unknown"
	}
}

// Default raw semester labels found in school exports.
const (
	DefaultFirstLabel  = "א"
	DefaultSecondLabel = "ב"
)

// PeriodLabels translates raw semester labels into a Period.
type PeriodLabels struct {
	First  string
	Second string
}

// DefaultPeriodLabels returns the labels used when none are configured.
func DefaultPeriodLabels() PeriodLabels {
	return PeriodLabels{First: DefaultFirstLabel, Second: DefaultSecondLabel}
}

// Validate rejects empty or identical labels.
func (l PeriodLabels) Validate() error {
	first, second := strings.TrimSpace(l.First), strings.TrimSpace(l.Second)
	if first == "" || second == "" {
		return fmt.Errorf("semester labels must not be empty")
	}
	if strings.EqualFold(first, second) {
		return fmt.Errorf("semester labels must differ: %q", first)
	}
	return nil
}

// Parse maps a raw cell value to a Period. Matching is case-insensitive on
// the trimmed text; anything else is PeriodUnknown.
func (l PeriodLabels) Parse(raw any) Period {
	s, ok := Text(raw)
	if !ok {
		return PeriodUnknown
	}
	switch {
	case strings.EqualFold(s, strings.TrimSpace(l.First)):
		return PeriodFirst
	case strings.EqualFold(s, strings.TrimSpace(l.Second)):
		return PeriodSecond
	default:
		return PeriodUnknown
	}
}

// Label returns the raw label of p.
func (l PeriodLabels) Label(p Period) string {
	switch p {
	case PeriodFirst:
		return l.First
	case PeriodSecond:
		return l.Second
	default:
		return ""
	}
}
