package service

import "errors"

// Sentinel kinds for service errors.
var (
	// ErrIngestRunning is returned when a run is already in progress.
	ErrIngestRunning = errors.New("ingestion already running")
	// ErrNoScraper is returned by Ingest when no scraper is configured.
	ErrNoScraper = errors.New("no scraper configured")
	// ErrEmptyRoster is returned by Ingest for an empty roster.
	ErrEmptyRoster = errors.New("roster is empty")
)
