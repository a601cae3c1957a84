package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrLocked        = errors.New("state file locked by another process")
	ErrEmptyCorpus   = errors.New("empty corpus")
	ErrNoTerms       = errors.New("no terms survived document-frequency filtering")
	ErrInvalidConfig = errors.New("invalid configuration")
)
