package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dyluth/nextpost/internal/knowledge"
	"github.com/dyluth/nextpost/internal/textutil"
	"github.com/dyluth/nextpost/internal/trends"
	"github.com/dyluth/nextpost/pkg/postindex"
)

// recordJSON is the wire form of a record for jsonl and get output.
type recordJSON struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Category   string   `json:"category"`
	Engagement int      `json:"engagement"`
	Tags       []string `json:"tags"`
	PostedOn   string   `json:"posted_on"`
}

func toJSON(r knowledge.Record) recordJSON {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return recordJSON{
		ID:         r.ID,
		Text:       r.Text,
		Category:   r.Category,
		Engagement: r.Engagement,
		Tags:       tags,
		PostedOn:   r.PostedOn.Format(postindex.DateLayout),
	}
}

// FormatTable writes records as a table and returns how many were written.
func FormatTable(w io.Writer, records []knowledge.Record, namespace string) int {
	if len(records) == 0 {
		fmt.Fprintf(w, "No posts found in namespace '%s'\n", namespace)
		return 0
	}

	fmt.Fprintf(w, "Posts in namespace '%s':\n\n", namespace)

	fmt.Fprintf(w, "%-8s %-10s %-16s %6s %-24s %s\n",
		"ID", "POSTED", "CATEGORY", "ENG", "TAGS", "TEXT")
	fmt.Fprintf(w, "%-8s %-10s %-16s %6s %-24s %s\n",
		"--------", "----------", "----------------", "------", "------------------------", "----------------------------------------")

	for _, r := range records {
		fmt.Fprintf(w, "%-8s %-10s %-16s %6d %-24s %s\n",
			formatID(r.ID),
			r.PostedOn.Format(postindex.DateLayout),
			textutil.Fit(r.Category, 16),
			r.Engagement,
			formatTags(r.Tags, 24),
			formatText(r.Text),
		)
	}

	noun := "post"
	if len(records) != 1 {
		noun = "posts"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(records), noun)

	return len(records)
}

// FormatJSONL writes one JSON object per record per line.
func FormatJSONL(w io.Writer, records []knowledge.Record) error {
	for _, r := range records {
		data, err := json.Marshal(toJSON(r))
		if err != nil {
			return fmt.Errorf("failed to marshal record to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// FormatSingleJSON writes one record as indented JSON.
func FormatSingleJSON(w io.Writer, r knowledge.Record) error {
	data, err := json.MarshalIndent(toJSON(r), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record to JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	fmt.Fprintln(w)
	return nil
}

// FormatMatches writes similarity results, most similar first.
func FormatMatches(w io.Writer, query string, matches []knowledge.Match) {
	if len(matches) == 0 {
		fmt.Fprintf(w, "No posts similar to %q\n", query)
		return
	}

	fmt.Fprintf(w, "Posts similar to %q:\n\n", query)
	fmt.Fprintf(w, "%-6s %-8s %-16s %6s %s\n", "SCORE", "ID", "CATEGORY", "ENG", "TEXT")
	fmt.Fprintf(w, "%-6s %-8s %-16s %6s %s\n", "------", "--------", "----------------", "------", "----------------------------------------")
	for _, m := range matches {
		fmt.Fprintf(w, "%6.3f %-8s %-16s %6d %s\n",
			m.Score,
			formatID(m.Record.ID),
			textutil.Fit(m.Record.Category, 16),
			m.Record.Engagement,
			formatText(m.Record.Text),
		)
	}
}

// FormatAnalysis writes the aggregate analysis of a namespace.
func FormatAnalysis(w io.Writer, a *knowledge.Analysis) {
	if a.IsEmpty() {
		fmt.Fprintf(w, "No posts yet. Add posts with 'nextpost add' or 'nextpost seed'.\n")
		return
	}

	fmt.Fprintf(w, "Total posts:     %d\n", a.Total)
	fmt.Fprintf(w, "Avg engagement:  %.1f\n", a.MeanEngagement)
	if top, ok := a.TopCategory(); ok {
		fmt.Fprintf(w, "Top category:    %s\n", top)
	}

	fmt.Fprintf(w, "\nCategories:\n")
	for _, cat := range sortedKeys(a.CategoryCounts) {
		fmt.Fprintf(w, "  %-18s %3d posts  avg %.1f\n", cat, a.CategoryCounts[cat], a.CategoryMeanEngagement[cat])
	}

	fmt.Fprintf(w, "\nMost used tags:\n")
	writeTagStats(w, a.TopTags)

	fmt.Fprintf(w, "\nBest performing tags (used on %d+ posts):\n", knowledge.MinTagUses)
	writeTagStats(w, a.BestTags)
}

// FormatTrends writes the content gap and posting rhythm reports.
func FormatTrends(w io.Writer, gaps trends.GapReport, rhythm trends.RhythmReport) {
	fmt.Fprintf(w, "Content gaps (last %d posts):\n", gaps.Window)
	if gaps.Insufficient {
		fmt.Fprintf(w, "  %s\n", gaps.Note)
	} else {
		fmt.Fprintf(w, "  Missing:  %s\n", listOrDash(gaps.Missing))
		fmt.Fprintf(w, "  Overused: %s\n", listOrDash(gaps.Overused))
	}

	fmt.Fprintf(w, "\nPosting rhythm:\n")
	if rhythm.Insufficient {
		fmt.Fprintf(w, "  %s\n", rhythm.Note)
		return
	}
	fmt.Fprintf(w, "  Last post:   %d days ago\n", rhythm.DaysSinceLast)
	fmt.Fprintf(w, "  Average gap: every %.1f days\n", rhythm.AverageGap)
	fmt.Fprintf(w, "  Status:      %s\n", rhythm.Status)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func listOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func writeTagStats(w io.Writer, stats []knowledge.TagStat) {
	if len(stats) == 0 {
		fmt.Fprintf(w, "  -\n")
		return
	}
	for _, st := range stats {
		fmt.Fprintf(w, "  %-24s %3d posts  avg %.1f\n", st.Tag, st.Count, st.MeanEngagement)
	}
}

// formatID truncates a record ID to its first 8 characters.
func formatID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatText returns the first non-empty line of text, at most 40 characters.
func formatText(text string) string {
	var firstLine string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			firstLine = trimmed
			break
		}
	}
	if firstLine == "" {
		return "-"
	}
	return textutil.Fit(firstLine, 40)
}

func formatTags(tags []string, max int) string {
	if len(tags) == 0 {
		return "-"
	}
	return textutil.Fit(strings.Join(tags, ","), max)
}
