package briefing

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dyluth/nextpost/internal/knowledge"
	"github.com/dyluth/nextpost/internal/testutil"
	"github.com/dyluth/nextpost/internal/trends"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)

func setupStore(t *testing.T) *knowledge.Store {
	return testutil.NewStore(t, "briefing-test")
}

func add(t *testing.T, s *knowledge.Store, text, category string, engagement, daysAgo int, tags ...string) {
	t.Helper()
	_, err := s.Add(context.Background(), knowledge.NewRecord{
		Text:       text,
		Category:   category,
		Engagement: engagement,
		Tags:       tags,
		PostedOn:   today.AddDate(0, 0, -daysAgo),
	})
	require.NoError(t, err)
}

func seededStore(t *testing.T) *knowledge.Store {
	s := setupStore(t)
	add(t, s, "Epic storefront transformation! Three hours of work for this amazing result, and the owner was thrilled", "satisfying_video", 3200, 2, "#windowcleaning", "#satisfying", "#transformation", "#commercial")
	add(t, s, "Pro tip Tuesday: always start from the top and work your way down", "educational", 1800, 5, "#protip", "#windowcleaning")
	add(t, s, "March special: 25% off first-time residential customers", "promotion", 950, 7, "#deal", "#windowcleaning")
	add(t, s, "5 AM start at the downtown office complex", "behind_scenes", 2100, 10, "#earlybird", "#commercial")
	add(t, s, "Before and after: this restaurant window hadn't been cleaned in 6 months", "satisfying_video", 4100, 12, "#beforeafter", "#satisfying")
	add(t, s, "Why we use distilled water", "educational", 1400, 15, "#education", "#windowcleaning")
	return s
}

func TestBuild_EmptyStore(t *testing.T) {
	_, err := Build(context.Background(), setupStore(t), Settings{Today: today})
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestBuild(t *testing.T) {
	s := seededStore(t)

	b, err := Build(context.Background(), s, Settings{Today: today, Context: "launching gutter service"})
	require.NoError(t, err)

	assert.Equal(t, "launching gutter service", b.Context)
	assert.Equal(t, 6, b.Overview.TotalPosts)
	assert.InDelta(t, 13550.0/6, b.Overview.AvgEngagement, 1e-9)
	assert.Equal(t, 2, b.Overview.ContentTypes["satisfying_video"])
	assert.Equal(t, "satisfying_video", b.Overview.TopPerformingType)

	require.Len(t, b.RecentActivity, 5)
	assert.Equal(t, 2, b.RecentActivity[0].DaysAgo)
	assert.Equal(t, "satisfying_video", b.RecentActivity[0].Category)
	assert.True(t, strings.HasSuffix(b.RecentActivity[0].CaptionPreview, "..."))
	assert.Len(t, []rune(strings.TrimSuffix(b.RecentActivity[0].CaptionPreview, "...")), 80)
	assert.Equal(t, 12, b.RecentActivity[4].DaysAgo)

	require.Len(t, b.TopPerformers, 3)
	assert.Equal(t, 4100, b.TopPerformers[0].Engagement)
	assert.Equal(t, 3200, b.TopPerformers[1].Engagement)
	assert.Equal(t, []string{"#windowcleaning", "#satisfying", "#transformation"}, b.TopPerformers[1].Tags)

	assert.False(t, b.Gaps.Insufficient)
	assert.Empty(t, b.Gaps.Missing)

	assert.False(t, b.Rhythm.Insufficient)
	assert.Equal(t, 2, b.Rhythm.DaysSinceLast)
	assert.InDelta(t, 2.6, b.Rhythm.AverageGap, 1e-9)
	assert.Equal(t, trends.StatusOnSchedule, b.Rhythm.Status)

	require.NotEmpty(t, b.BestTags)
	assert.LessOrEqual(t, len(b.BestTags), 5)
	assert.Equal(t, "#satisfying", b.BestTags[0])
}

func TestBuild_Defaults(t *testing.T) {
	s := setupStore(t)
	add(t, s, "only post", "promotion", 10, 0)

	b, err := Build(context.Background(), s, Settings{})
	require.NoError(t, err)

	assert.Equal(t, DefaultContext, b.Context)
	assert.True(t, b.Rhythm.Insufficient)
	assert.Empty(t, b.TopPerformers)
	assert.Equal(t, []string{"satisfying_video", "educational", "behind_scenes"}, b.Gaps.Missing)
}

type failingSource struct{ err error }

func (f failingSource) Analysis(context.Context) (*knowledge.Analysis, error) { return nil, f.err }
func (f failingSource) Recent(context.Context, int) ([]knowledge.Record, error) {
	return nil, f.err
}
func (f failingSource) HighEngagement(context.Context, int) ([]knowledge.Record, error) {
	return nil, f.err
}

func TestBuild_SourceError(t *testing.T) {
	boom := errors.New("redis down")
	_, err := Build(context.Background(), failingSource{err: boom}, Settings{})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNoContent)
}

func TestRender(t *testing.T) {
	b, err := Build(context.Background(), seededStore(t), Settings{Today: today})
	require.NoError(t, err)

	text, err := Render(b)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(text, "NEXT POST RECOMMENDATION BRIEFING\n"))
	assert.Contains(t, text, "Context: Regular content planning")
	assert.Contains(t, text, "Story Specialist:")
	assert.Contains(t, text, "Feed Specialist:")
	assert.Contains(t, text, "Coordinator:")

	start := strings.Index(text, "ACCOUNT DATA:\n") + len("ACCOUNT DATA:\n")
	end := strings.Index(text, "\n\nTASK:")
	require.Greater(t, end, start)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text[start:end]), &data))
	for _, key := range []string{"account_overview", "recent_activity", "top_performers", "content_gaps", "posting_rhythm", "best_hashtags"} {
		assert.Contains(t, data, key)
	}

	rhythm := data["posting_rhythm"].(map[string]interface{})
	assert.Equal(t, "Every 2.6 days", rhythm["average_posting_frequency"])
	assert.Equal(t, "on_schedule", rhythm["posting_status"])
}

func TestRender_InsufficientData(t *testing.T) {
	b := &Briefing{
		Context: DefaultContext,
		Gaps:    trends.GapReport{Insufficient: true, Note: "no posts yet"},
		Rhythm:  trends.RhythmReport{Insufficient: true, Note: "need at least 2 posts"},
	}

	text, err := Render(b)
	require.NoError(t, err)
	assert.Contains(t, text, `"gap_analysis": "no posts yet"`)
	assert.Contains(t, text, `"rhythm": "need at least 2 posts"`)
}
