package lexigo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/lexigo/analysis"
	"github.com/hupe1980/lexigo/codec"
	"github.com/hupe1980/lexigo/internal/compress"
	"github.com/hupe1980/lexigo/internal/fields"
	"github.com/hupe1980/lexigo/internal/keys"
	"github.com/hupe1980/lexigo/query"
)

var (
	// ErrClosed is returned when using a closed index, indexer or searcher.
	ErrClosed = errors.New("lexigo: closed")
	// ErrInvalidArgument is returned for malformed input.
	ErrInvalidArgument = errors.New("lexigo: invalid argument")
	// ErrNoEntry is returned by AddField when no entry has been started.
	ErrNoEntry = errors.New("lexigo: no current entry")
	// ErrNotFound is returned when a document has no stored data.
	ErrNotFound = errors.New("lexigo: not found")
	// ErrCorrupt is returned when persisted data fails validation.
	ErrCorrupt = errors.New("lexigo: corrupt data")
)

// FieldError reports an invalid field name.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type FieldError struct {
	Field string
	cause error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("lexigo: invalid field %q: %v", e.Field, e.cause)
}

func (e *FieldError) Unwrap() []error { return []error{ErrInvalidArgument, e.cause} }

// TermTooLongError reports a term exceeding analysis.MaxTermSize bytes.
type TermTooLongError struct {
	Field string
	Size  int
}

func (e *TermTooLongError) Error() string {
	return fmt.Sprintf("lexigo: term in field %q is %d bytes, limit is %d", e.Field, e.Size, analysis.MaxTermSize)
}

func (e *TermTooLongError) Unwrap() error { return ErrInvalidArgument }

// FlushError reports a failed commit. The indexer keeps the pending batch, so
// a later Flush retries it; Close discards it.
type FlushError struct {
	Operations int
	cause      error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("lexigo: flush of %d operations failed: %v", e.Operations, e.cause)
}

func (e *FlushError) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, fields.ErrInvalidName):
		var fe *FieldError
		if errors.As(err, &fe) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	case errors.Is(err, query.ErrInvalidQuery):
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	case errors.Is(err, keys.ErrMalformed),
		errors.Is(err, compress.ErrCorrupt),
		errors.Is(err, codec.ErrTruncated):
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return err
}
