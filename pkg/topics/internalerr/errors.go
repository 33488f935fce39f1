package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")

	// Missing data: the affected dialog is skipped, the batch continues.
	ErrNoDialogs   = errors.New("no dialogs found")
	ErrNoMessages  = errors.New("no messages for dialog")
	ErrNoDocuments = errors.New("no documents left after filtering")

	// Precondition violations: the corpus run is aborted.
	ErrEmptyCorpus = errors.New("empty corpus")
	ErrUnstemmed   = errors.New("vocabulary is not fully stemmed")
)

// IsMissingData reports whether err marks a unit that should be skipped
// rather than failed.
func IsMissingData(err error) bool {
	return errors.Is(err, ErrNoMessages) || errors.Is(err, ErrNoDocuments) || errors.Is(err, ErrNoDialogs)
}
