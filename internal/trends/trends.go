// Package trends derives content-gap and posting-rhythm reports from recent posts.
// All functions are pure; "not enough data" is reported as a value, never as an error.
package trends

import (
	"sort"
	"time"

	"github.com/dyluth/nextpost/internal/knowledge"
)

const (
	// DefaultWindow is how many of the most recent posts ContentGaps looks at.
	DefaultWindow = 7
	// OverusedThreshold is the in-window count at which a category is overused.
	OverusedThreshold = 3
	// OverdueFactor is the multiple of the average gap after which posting is overdue.
	OverdueFactor = 1.5
)

// RhythmStatus classifies the time since the last post.
type RhythmStatus string

const (
	StatusOverdue    RhythmStatus = "overdue"
	StatusOnSchedule RhythmStatus = "on_schedule"
)

// DefaultCategories is the category set used when none is configured.
var DefaultCategories = []string{"satisfying_video", "promotion", "educational", "behind_scenes"}

// GapReport describes which categories the recent window lacks or overuses.
type GapReport struct {
	Insufficient bool
	Note         string

	Window   int
	Counts   map[string]int
	Missing  []string
	Overused []string
}

// RhythmReport describes how regularly the account posts.
type RhythmReport struct {
	Insufficient bool
	Note         string

	DaysSinceLast int
	AverageGap    float64
	Status        RhythmStatus
}

// ContentGaps inspects the first window records of recent, which the caller supplies
// most-recent-first. Missing keeps the order of categories; Overused is sorted by name.
// A non-positive window falls back to DefaultWindow.
func ContentGaps(recent []knowledge.Record, window int, categories []string) GapReport {
	if len(recent) == 0 {
		return GapReport{Insufficient: true, Note: "no posts yet"}
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if len(recent) > window {
		recent = recent[:window]
	}

	report := GapReport{
		Window:   len(recent),
		Counts:   map[string]int{},
		Missing:  []string{},
		Overused: []string{},
	}

	for _, r := range recent {
		report.Counts[r.Category]++
	}

	for _, cat := range categories {
		if report.Counts[cat] == 0 {
			report.Missing = append(report.Missing, cat)
		}
	}

	for cat, n := range report.Counts {
		if n >= OverusedThreshold {
			report.Overused = append(report.Overused, cat)
		}
	}
	sort.Strings(report.Overused)

	return report
}

// PostingRhythm compares the days since the newest post against the average gap
// between consecutive posts. It needs at least two records.
func PostingRhythm(recent []knowledge.Record, today time.Time) RhythmReport {
	if len(recent) < 2 {
		return RhythmReport{Insufficient: true, Note: "need at least 2 posts"}
	}

	dates := make([]time.Time, len(recent))
	for i, r := range recent {
		dates[i] = knowledge.Date(r.PostedOn)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })

	total := 0
	for i := 0; i < len(dates)-1; i++ {
		total += knowledge.DaysBetween(dates[i+1], dates[i])
	}

	report := RhythmReport{
		DaysSinceLast: knowledge.DaysBetween(dates[0], today),
		AverageGap:    float64(total) / float64(len(dates)-1),
		Status:        StatusOnSchedule,
	}
	if float64(report.DaysSinceLast) > OverdueFactor*report.AverageGap {
		report.Status = StatusOverdue
	}
	return report
}
