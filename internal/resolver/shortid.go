package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dyluth/nextpost/internal/knowledge"
)

// MinShortIDLength is the minimum required length for short ID prefixes.
const MinShortIDLength = 6

// IDSource is the part of the knowledge store needed to resolve post IDs.
type IDSource interface {
	IDs(ctx context.Context) ([]string, error)
	Get(ctx context.Context, id string) (knowledge.Record, error)
}

// ResolveRecordID resolves a short ID prefix to a full post ID.
//
// A full UUID is checked for existence and returned as-is. Anything shorter than
// MinShortIDLength is rejected. Otherwise the prefix must match exactly one ID.
func ResolveRecordID(ctx context.Context, src IDSource, shortID string) (string, error) {
	shortID = strings.ToLower(strings.TrimSpace(shortID))

	if len(shortID) == 36 && strings.Count(shortID, "-") == 4 {
		if _, err := src.Get(ctx, shortID); err != nil {
			if errors.Is(err, knowledge.ErrNotFound) {
				return "", &NotFoundError{ShortID: shortID}
			}
			return "", fmt.Errorf("failed to verify post existence: %w", err)
		}
		return shortID, nil
	}

	if len(shortID) < MinShortIDLength {
		return "", fmt.Errorf("short ID must be at least %d characters (got %d)", MinShortIDLength, len(shortID))
	}

	ids, err := src.IDs(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to search for post: %w", err)
	}

	var matches []string
	for _, id := range ids {
		if strings.HasPrefix(id, shortID) {
			matches = append(matches, id)
		}
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{ShortID: shortID}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{ShortID: shortID, Matches: matches}
	}
}

// NotFoundError indicates no posts matched the short ID.
type NotFoundError struct {
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no posts found matching '%s'", e.ShortID)
}

// AmbiguousError indicates multiple posts matched the short ID.
type AmbiguousError struct {
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d posts", e.ShortID, len(e.Matches))
}

// FormatAmbiguousError lists the matching IDs (up to 10, then "...and N more").
func FormatAmbiguousError(err *AmbiguousError) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "ambiguous short ID '%s' matches %d posts:\n", err.ShortID, len(err.Matches))

	displayCount := len(err.Matches)
	if displayCount > 10 {
		displayCount = 10
	}
	for _, id := range err.Matches[:displayCount] {
		fmt.Fprintf(&sb, "  %s\n", id)
	}
	if len(err.Matches) > 10 {
		fmt.Fprintf(&sb, "  ...and %d more\n", len(err.Matches)-10)
	}

	sb.WriteString("\nUse a longer prefix to uniquely identify the post.")
	return sb.String()
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	var ae *AmbiguousError
	return errors.As(err, &ae)
}
