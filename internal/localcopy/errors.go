package localcopy

import (
	"errors"
	"fmt"
)

// ExtractionError means the readable content of a page could not be extracted.
// The article is left without a local copy.
type ExtractionError struct {
	Title string
	Cause error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction error for %q: %v", e.Title, e.Cause)
	}
	return fmt.Sprintf("extraction error for %q", e.Title)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// WriteError means writing the cache file failed after it was opened. The
// article attribute is still set to the file's relative path.
type WriteError struct {
	Title string
	Path  string
	Cause error
}

func (e *WriteError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("write error for %q at %s: %v", e.Title, e.Path, e.Cause)
	}
	return fmt.Sprintf("write error for %q at %s", e.Title, e.Path)
}

func (e *WriteError) Unwrap() error {
	return e.Cause
}

// recoverable reports whether err is handled inside the hooks. Both typed
// errors have already been logged by DownloadArticle.
func recoverable(err error) bool {
	var extractErr *ExtractionError
	var writeErr *WriteError
	return errors.As(err, &extractErr) || errors.As(err, &writeErr)
}
