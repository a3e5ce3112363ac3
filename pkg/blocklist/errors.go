package blocklist

import (
	"errors"
	"fmt"
)

// Sentinel errors for the generation taxonomy. The typed errors below match
// them through errors.Is.
var (
	ErrUnmappedCategory  = errors.New("unmapped category")
	ErrMissingSourceData = errors.New("missing source data")
	ErrMalformedRecord   = errors.New("malformed record")
	ErrWriteFailure      = errors.New("write failure")
)

// UnmappedCategoryError reports a raw category with no rule table entry.
type UnmappedCategoryError struct {
	Source   string
	Category string
}

func (e *UnmappedCategoryError) Error() string {
	return fmt.Sprintf("unmapped category: source=%s category=%q", e.Source, e.Category)
}

func (e *UnmappedCategoryError) Is(target error) bool {
	return target == ErrUnmappedCategory
}

// MissingSourceError reports an absent or unreadable source input.
type MissingSourceError struct {
	Source string
	Path   string
	Err    error
}

func (e *MissingSourceError) Error() string {
	return fmt.Sprintf("missing source data: source=%s path=%s: %v", e.Source, e.Path, e.Err)
}

func (e *MissingSourceError) Is(target error) bool {
	return target == ErrMissingSourceData
}

func (e *MissingSourceError) Unwrap() error {
	return e.Err
}

// MalformedRecordError reports a record whose URL failed normalization.
type MalformedRecordError struct {
	Source string
	URL    string
	Reason error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record: source=%s url=%q: %v", e.Source, e.URL, e.Reason)
}

func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Reason
}

// WriteError reports a failure to persist output.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Is(target error) bool {
	return target == ErrWriteFailure
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
