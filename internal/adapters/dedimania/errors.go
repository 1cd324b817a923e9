package dedimania

import "errors"

// Sentinel kinds for scraper errors.
var (
	// ErrFetch means the page could not be retrieved.
	ErrFetch = errors.New("dedimania fetch failed")
	// ErrParse means the page did not have the expected layout.
	ErrParse = errors.New("dedimania page not understood")
	// ErrChallengeNotFound means no challenge link matched the name.
	ErrChallengeNotFound = errors.New("challenge not found")
)
