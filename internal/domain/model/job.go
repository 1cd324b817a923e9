// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/dedidash/internal/domain/types"
)

// FetchJob asks a worker to scrape one player's records page.
type FetchJob struct {
	RunID    string    // ingestion run the job belongs to
	Player   string    // Dedimania login
	Seq      int       // position in the roster, for stable reporting
	QueuedAt time.Time // when the job was enqueued
}

// FetchResult is what a worker reports back for a FetchJob.
type FetchResult struct {
	Job      FetchJob
	Records  []types.Record
	Err      error
	Duration time.Duration
}

// Failed reports whether the fetch did not produce records.
func (r FetchResult) Failed() bool { //nolint:gocritic // hugeParam: result is passed by value through channels
	return r.Err != nil
}
