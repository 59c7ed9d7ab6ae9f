// Package briefing assembles the account snapshot that opens a deliberation and
// renders it as the opening message.
package briefing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dyluth/nextpost/internal/knowledge"
	"github.com/dyluth/nextpost/internal/textutil"
	"github.com/dyluth/nextpost/internal/trends"
)

// ErrNoContent is returned by Build when the store holds no posts yet.
var ErrNoContent = errors.New("no posts in the knowledge store")

const (
	DefaultHighEngagementThreshold = 1000
	DefaultRecentLimit             = 10
	// FallbackTopCategory is reported when no category has engagement data.
	FallbackTopCategory = "satisfying_video"
	// DefaultContext is used when the operator gives no context note.
	DefaultContext = "Regular content planning"

	recentShown     = 5
	performersShown = 3
	bestTagsShown   = 5
	tagsPerPost     = 3

	recentPreviewLength    = 80
	performerPreviewLength = 60
)

// Source is the read side of the knowledge store a briefing needs.
type Source interface {
	Analysis(ctx context.Context) (*knowledge.Analysis, error)
	Recent(ctx context.Context, limit int) ([]knowledge.Record, error)
	HighEngagement(ctx context.Context, threshold int) ([]knowledge.Record, error)
}

// Settings controls what goes into a briefing. Zero fields take defaults.
type Settings struct {
	Categories              []string
	HighEngagementThreshold int
	RecentLimit             int
	GapWindow               int
	Today                   time.Time
	Context                 string
}

func (s Settings) withDefaults() Settings {
	if len(s.Categories) == 0 {
		s.Categories = trends.DefaultCategories
	}
	if s.HighEngagementThreshold <= 0 {
		s.HighEngagementThreshold = DefaultHighEngagementThreshold
	}
	if s.RecentLimit <= 0 {
		s.RecentLimit = DefaultRecentLimit
	}
	if s.GapWindow <= 0 {
		s.GapWindow = trends.DefaultWindow
	}
	if s.Today.IsZero() {
		s.Today = time.Now()
	}
	if strings.TrimSpace(s.Context) == "" {
		s.Context = DefaultContext
	}
	return s
}

// Overview is the account-level summary.
type Overview struct {
	TotalPosts        int            `json:"total_posts"`
	AvgEngagement     float64        `json:"avg_engagement"`
	ContentTypes      map[string]int `json:"content_types"`
	TopPerformingType string         `json:"top_performing_type"`
}

// Activity is one recent post.
type Activity struct {
	Category       string `json:"type"`
	Engagement     int    `json:"engagement"`
	DaysAgo        int    `json:"days_ago"`
	CaptionPreview string `json:"caption_preview"`
}

// Performer is one high-engagement post.
type Performer struct {
	Category       string   `json:"type"`
	Engagement     int      `json:"engagement"`
	Tags           []string `json:"hashtags"`
	CaptionPreview string   `json:"caption_preview"`
}

// Briefing is an ephemeral snapshot of the account. It is never persisted.
type Briefing struct {
	Context        string
	Overview       Overview
	RecentActivity []Activity
	TopPerformers  []Performer
	Gaps           trends.GapReport
	Rhythm         trends.RhythmReport
	BestTags       []string
}

// Build gathers analytics, recent posts and top performers from src.
// It returns ErrNoContent when the store is empty.
func Build(ctx context.Context, src Source, s Settings) (*Briefing, error) {
	s = s.withDefaults()

	analysis, err := src.Analysis(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to analyse content: %w", err)
	}
	if analysis.IsEmpty() {
		return nil, ErrNoContent
	}

	recent, err := src.Recent(ctx, s.RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent posts: %w", err)
	}

	performers, err := src.HighEngagement(ctx, s.HighEngagementThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to load high engagement posts: %w", err)
	}

	top, ok := analysis.TopCategory()
	if !ok {
		top = FallbackTopCategory
	}

	b := &Briefing{
		Context: s.Context,
		Overview: Overview{
			TotalPosts:        analysis.Total,
			AvgEngagement:     analysis.MeanEngagement,
			ContentTypes:      analysis.CategoryCounts,
			TopPerformingType: top,
		},
		RecentActivity: []Activity{},
		TopPerformers:  []Performer{},
		Gaps:           trends.ContentGaps(recent, s.GapWindow, s.Categories),
		Rhythm:         trends.PostingRhythm(recent, s.Today),
		BestTags:       []string{},
	}

	for i, r := range recent {
		if i == recentShown {
			break
		}
		b.RecentActivity = append(b.RecentActivity, Activity{
			Category:       r.Category,
			Engagement:     r.Engagement,
			DaysAgo:        knowledge.DaysBetween(r.PostedOn, s.Today),
			CaptionPreview: textutil.Preview(r.Text, recentPreviewLength),
		})
	}

	for i, r := range performers {
		if i == performersShown {
			break
		}
		tags := r.Tags
		if len(tags) > tagsPerPost {
			tags = tags[:tagsPerPost]
		}
		b.TopPerformers = append(b.TopPerformers, Performer{
			Category:       r.Category,
			Engagement:     r.Engagement,
			Tags:           append([]string{}, tags...),
			CaptionPreview: textutil.Preview(r.Text, performerPreviewLength),
		})
	}

	for i, st := range analysis.BestTags {
		if i == bestTagsShown {
			break
		}
		b.BestTags = append(b.BestTags, st.Tag)
	}

	return b, nil
}
