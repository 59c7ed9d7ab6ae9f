package report

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dyluth/nextpost/internal/knowledge"
)

// OutputFormat specifies how to format the post list output.
type OutputFormat string

const (
	// OutputFormatDefault uses a table with truncated text
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete records as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// Source is the part of the knowledge store the list and get commands read from.
type Source interface {
	All(ctx context.Context) ([]knowledge.Record, error)
	ByCategory(ctx context.Context, category string) ([]knowledge.Record, error)
	HighEngagement(ctx context.Context, threshold int) ([]knowledge.Record, error)
	Get(ctx context.Context, id string) (knowledge.Record, error)
}

// FilterCriteria defines filtering options for the list command.
// All filters are ANDed together. Zero values mean "no filter".
type FilterCriteria struct {
	Since         time.Time
	Until         time.Time
	Category      string
	MinEngagement *int
}

// matchesFilter returns true if the record matches all filter criteria.
func (fc *FilterCriteria) matchesFilter(r knowledge.Record) bool {
	if !fc.Since.IsZero() && r.PostedOn.Before(fc.Since) {
		return false
	}
	if !fc.Until.IsZero() && r.PostedOn.After(fc.Until) {
		return false
	}
	if fc.Category != "" && r.Category != fc.Category {
		return false
	}
	if fc.MinEngagement != nil && r.Engagement < *fc.MinEngagement {
		return false
	}
	return true
}

// ListRecords writes the records matching filters, oldest post first.
// Category and engagement filters are answered by the index; dates are filtered here.
func ListRecords(ctx context.Context, src Source, namespace string, format OutputFormat, filters *FilterCriteria, w io.Writer) error {
	if filters == nil {
		filters = &FilterCriteria{}
	}

	var records []knowledge.Record
	var err error
	switch {
	case filters.Category != "":
		records, err = src.ByCategory(ctx, filters.Category)
	case filters.MinEngagement != nil:
		records, err = src.HighEngagement(ctx, *filters.MinEngagement)
	default:
		records, err = src.All(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to list posts: %w", err)
	}

	matched := make([]knowledge.Record, 0, len(records))
	for _, r := range records {
		if filters.matchesFilter(r) {
			matched = append(matched, r)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].PostedOn.Before(matched[j].PostedOn)
	})

	switch format {
	case OutputFormatDefault:
		FormatTable(w, matched, namespace)
	case OutputFormatJSONL:
		if err := FormatJSONL(w, matched); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	return nil
}
