package briefing

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/dyluth/nextpost/internal/trends"
)

const header = "NEXT POST RECOMMENDATION BRIEFING"

// Render formats the briefing as the opening message of a deliberation.
func Render(b *Briefing) (string, error) {
	data, err := json.MarshalIndent(b.accountData(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode briefing: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(header + "\n")
	sb.WriteString(strings.Repeat("=", len(header)) + "\n\n")
	fmt.Fprintf(&sb, "Context: %s\n\n", b.Context)
	sb.WriteString("ACCOUNT DATA:\n")
	sb.Write(data)
	sb.WriteString("\n\n")
	sb.WriteString("TASK: Recommend the NEXT specific story and feed post to maximize engagement.\n\n")
	sb.WriteString("Story Specialist: Review recent story patterns and recommend the next story\n")
	sb.WriteString("Feed Specialist: Review feed performance and recommend the next feed post\n")
	sb.WriteString("Coordinator: Make both recommendations work together\n\n")
	sb.WriteString("Focus on:\n")
	sb.WriteString("1. What specific content to post next (not general strategy)\n")
	sb.WriteString("2. Timing based on posting rhythm\n")
	sb.WriteString("3. How story and feed can work together\n")
	sb.WriteString("4. Actionable creative direction\n")
	return sb.String(), nil
}

type accountData struct {
	AccountOverview Overview               `json:"account_overview"`
	RecentActivity  []Activity             `json:"recent_activity"`
	TopPerformers   []Performer            `json:"top_performers"`
	ContentGaps     map[string]interface{} `json:"content_gaps"`
	PostingRhythm   map[string]interface{} `json:"posting_rhythm"`
	BestHashtags    []string               `json:"best_hashtags"`
}

func (b *Briefing) accountData() accountData {
	overview := b.Overview
	overview.AvgEngagement = math.Round(overview.AvgEngagement*10) / 10

	return accountData{
		AccountOverview: overview,
		RecentActivity:  b.RecentActivity,
		TopPerformers:   b.TopPerformers,
		ContentGaps:     gapsData(b.Gaps),
		PostingRhythm:   rhythmData(b.Rhythm),
		BestHashtags:    b.BestTags,
	}
}

func gapsData(g trends.GapReport) map[string]interface{} {
	if g.Insufficient {
		return map[string]interface{}{"gap_analysis": g.Note}
	}
	return map[string]interface{}{
		"recent_content_mix":    g.Counts,
		"missing_content_types": g.Missing,
		"overused_types":        g.Overused,
	}
}

func rhythmData(r trends.RhythmReport) map[string]interface{} {
	if r.Insufficient {
		return map[string]interface{}{"rhythm": r.Note}
	}
	return map[string]interface{}{
		"days_since_last_post":      r.DaysSinceLast,
		"average_posting_frequency": fmt.Sprintf("Every %.1f days", r.AverageGap),
		"posting_status":            string(r.Status),
	}
}
