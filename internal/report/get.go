package report

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dyluth/nextpost/internal/knowledge"
	"github.com/google/uuid"
)

// GetRecord retrieves a single record by full ID and writes it as indented JSON.
func GetRecord(ctx context.Context, src Source, id string, w io.Writer) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid post ID format: must be a valid UUID")
	}

	record, err := src.Get(ctx, id)
	if err != nil {
		if errors.Is(err, knowledge.ErrNotFound) {
			return &RecordNotFoundError{ID: id}
		}
		return fmt.Errorf("failed to fetch post: %w", err)
	}

	if err := FormatSingleJSON(w, record); err != nil {
		return fmt.Errorf("failed to format post: %w", err)
	}
	return nil
}

// RecordNotFoundError represents a specific "post not found" error.
type RecordNotFoundError struct {
	ID string
}

func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("post with ID '%s' not found", e.ID)
}

// IsNotFound returns true if the error is a RecordNotFoundError.
func IsNotFound(err error) bool {
	var nf *RecordNotFoundError
	return errors.As(err, &nf)
}
