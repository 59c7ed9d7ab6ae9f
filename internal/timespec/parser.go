// Package timespec parses the date specifications accepted by the CLI.
package timespec

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dyluth/nextpost/internal/knowledge"
	"github.com/dyluth/nextpost/pkg/postindex"
)

// Parse parses a date specification into a calendar date (UTC midnight).
// Supported forms:
//   - calendar dates: "2024-01-05"
//   - days ago, relative to now: "0d", "7d", "30d"
//   - "today" and "yesterday"
//   - RFC3339 timestamps, reduced to their date: "2024-01-05T13:00:00Z"
func Parse(spec string, now time.Time) (time.Time, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return time.Time{}, fmt.Errorf("empty date specification")
	}

	switch strings.ToLower(spec) {
	case "today":
		return knowledge.Date(now), nil
	case "yesterday":
		return DaysAgo(1, now), nil
	}

	if t, err := time.Parse(postindex.DateLayout, spec); err == nil {
		return t, nil
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return knowledge.Date(t), nil
	}

	if strings.HasSuffix(spec, "d") {
		if n, err := strconv.Atoi(strings.TrimSuffix(spec, "d")); err == nil && n >= 0 {
			return DaysAgo(n, now), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid date specification: %s (use a date like '2024-01-05' or days ago like '7d')", spec)
}

// DaysAgo returns the calendar date n days before now.
func DaysAgo(n int, now time.Time) time.Time {
	return knowledge.Date(now).AddDate(0, 0, -n)
}

// ParseRange parses both --since and --until flags into an inclusive date range.
// Zero values indicate "no bound" for that end of the range.
func ParseRange(since, until string, now time.Time) (time.Time, time.Time, error) {
	var sinceDate, untilDate time.Time
	var err error

	if since != "" {
		sinceDate, err = Parse(since, now)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --since: %w", err)
		}
	}

	if until != "" {
		untilDate, err = Parse(until, now)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --until: %w", err)
		}
	}

	if !sinceDate.IsZero() && !untilDate.IsZero() && sinceDate.After(untilDate) {
		return time.Time{}, time.Time{}, fmt.Errorf("--since must not be after --until")
	}

	return sinceDate, untilDate, nil
}
