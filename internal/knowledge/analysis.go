package knowledge

import "sort"

const (
	// TagStatLimit caps TopTags and BestTags.
	TagStatLimit = 10
	// MinTagUses is how many records a tag must appear on to be ranked in BestTags.
	MinTagUses = 2
)

// TagStat summarises one tag. Count is the number of records carrying it.
type TagStat struct {
	Tag            string
	Count          int
	MeanEngagement float64
}

// Analysis is the aggregate view of the store used for briefings.
type Analysis struct {
	Total                  int
	MeanEngagement         float64
	CategoryCounts         map[string]int
	CategoryMeanEngagement map[string]float64
	TopTags                []TagStat
	BestTags               []TagStat
}

// IsEmpty reports whether the analysis was computed over no records.
func (a *Analysis) IsEmpty() bool {
	return a == nil || a.Total == 0
}

// TopCategory returns the category with the highest mean engagement, ties broken by name.
// ok is false when there is no data.
func (a *Analysis) TopCategory() (category string, ok bool) {
	if a.IsEmpty() {
		return "", false
	}
	best := -1.0
	for cat, mean := range a.CategoryMeanEngagement {
		if mean > best || (mean == best && cat < category) {
			category, best = cat, mean
		}
	}
	return category, category != ""
}

// Analyze computes an Analysis over records.
// Tags repeated on a single record count once for that record.
func Analyze(records []Record) *Analysis {
	a := &Analysis{
		CategoryCounts:         map[string]int{},
		CategoryMeanEngagement: map[string]float64{},
		TopTags:                []TagStat{},
		BestTags:               []TagStat{},
	}
	if len(records) == 0 {
		return a
	}

	categoryTotals := map[string]int{}
	tagCounts := map[string]int{}
	tagTotals := map[string]int{}
	total := 0

	for _, r := range records {
		total += r.Engagement
		a.CategoryCounts[r.Category]++
		categoryTotals[r.Category] += r.Engagement

		seen := make(map[string]bool, len(r.Tags))
		for _, tag := range r.Tags {
			if seen[tag] {
				continue
			}
			seen[tag] = true
			tagCounts[tag]++
			tagTotals[tag] += r.Engagement
		}
	}

	a.Total = len(records)
	a.MeanEngagement = float64(total) / float64(len(records))
	for cat, n := range a.CategoryCounts {
		a.CategoryMeanEngagement[cat] = float64(categoryTotals[cat]) / float64(n)
	}

	stats := make([]TagStat, 0, len(tagCounts))
	for tag, n := range tagCounts {
		stats = append(stats, TagStat{
			Tag:            tag,
			Count:          n,
			MeanEngagement: float64(tagTotals[tag]) / float64(n),
		})
	}

	top := append([]TagStat(nil), stats...)
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Tag < top[j].Tag
	})
	a.TopTags = limitTags(top)

	best := make([]TagStat, 0, len(stats))
	for _, st := range stats {
		if st.Count >= MinTagUses {
			best = append(best, st)
		}
	}
	sort.Slice(best, func(i, j int) bool {
		if best[i].MeanEngagement != best[j].MeanEngagement {
			return best[i].MeanEngagement > best[j].MeanEngagement
		}
		return best[i].Tag < best[j].Tag
	})
	a.BestTags = limitTags(best)

	return a
}

func limitTags(stats []TagStat) []TagStat {
	if len(stats) > TagStatLimit {
		return stats[:TagStatLimit]
	}
	return stats
}
