package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/dedidash/internal/adapters/dedimania"
	"github.com/okian/dedidash/internal/adapters/mq/queue"
	"github.com/okian/dedidash/internal/adapters/mq/worker"
	"github.com/okian/dedidash/internal/adapters/repository"
	"github.com/okian/dedidash/internal/domain/dedupe"
	"github.com/okian/dedidash/internal/domain/model"
	"github.com/okian/dedidash/internal/domain/roster"
	"github.com/okian/dedidash/internal/domain/types"
	"github.com/okian/dedidash/pkg/logger"
	"github.com/okian/dedidash/pkg/metrics"
)

// collector gathers worker results for one run.
type collector struct {
	mu      sync.Mutex
	results []model.FetchResult
}

func (c *collector) Deliver(_ context.Context, res model.FetchResult) {
	c.mu.Lock()
	c.results = append(c.results, res)
	c.mu.Unlock()
}

func (c *collector) sorted() []model.FetchResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := append([]model.FetchResult(nil), c.results...)
	sort.Slice(out, func(i, j int) bool { return out[i].Job.Seq < out[j].Job.Seq })
	return out
}

// Ingest fetches every roster player and commits the run as one
// transaction. Player failures are listed in the run and do not stop it.
// Cancellation or a store error leaves the database untouched.
func (s *Service) Ingest(ctx context.Context, r roster.Roster) (types.IngestRun, error) {
	if s.scraper == nil {
		return types.IngestRun{}, ErrNoScraper
	}
	if r.Empty() {
		return types.IngestRun{}, ErrEmptyRoster
	}
	if !s.ingestMu.TryLock() {
		return types.IngestRun{}, ErrIngestRunning
	}
	defer s.ingestMu.Unlock()

	run := types.IngestRun{
		ID:        uuid.NewString(),
		StartedAt: s.now().UTC(),
		Players:   r.Len(),
	}
	log := s.logger.With(logger.String("run_id", run.ID))
	log.Info(ctx, "ingestion started", logger.Int("players", run.Players), logger.Int("workers", s.workerCount))

	results, err := s.fetchAll(ctx, run.ID, r)
	if err != nil {
		s.recordRunError(ctx, log, run, "fetch", err)
		return run, err
	}

	records := s.collect(ctx, &run, results)

	var challenges []types.Challenge
	if s.challengeInfo || s.serverLookup {
		challenges, err = s.enrich(ctx, records)
		if err != nil {
			s.recordRunError(ctx, log, run, "enrich", err)
			return run, err
		}
	}

	switch {
	case len(run.Failures) == run.Players:
		run.Status = types.RunFailed
	case len(run.Failures) > 0:
		run.Status = types.RunPartial
	default:
		run.Status = types.RunOK
	}
	run.FinishedAt = s.now().UTC()

	written, err := s.store.WriteRun(ctx, repository.Batch{Run: run, Records: records, Challenges: challenges})
	if err != nil {
		s.recordRunError(ctx, log, run, "write", err)
		return run, fmt.Errorf("write run %s: %w", run.ID, err)
	}

	elapsed := written.FinishedAt.Sub(written.StartedAt)
	metrics.RecordIngestRun(written.Status, elapsed.Seconds())
	metrics.RecordIngestedRecords(written.Written)
	if written.Status != types.RunFailed {
		metrics.SetIngestLastSuccess(written.FinishedAt.Unix())
	}
	log.Info(ctx, "ingestion finished",
		logger.String("status", written.Status),
		logger.Int("fetched", written.Fetched),
		logger.Int("written", written.Written),
		logger.Int("duplicates", written.Duplicates),
		logger.Int("invalid", written.Invalid),
		logger.Int("challenges", written.Challenges),
		logger.Int("failures", len(written.Failures)),
		logger.Duration("elapsed", elapsed),
	)
	return written, nil
}

func (s *Service) recordRunError(ctx context.Context, log logger.Logger, run types.IngestRun, stage string, err error) {
	metrics.RecordIngestRun(types.RunFailed, s.now().Sub(run.StartedAt).Seconds())
	metrics.RecordErrorByComponent("ingest", stage)
	log.Error(ctx, "ingestion aborted, nothing written", logger.String("stage", stage), logger.Error(err))
}

// fetchAll queues one job per player and waits for the pool to drain.
func (s *Service) fetchAll(ctx context.Context, runID string, r roster.Roster) ([]model.FetchResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logins := r.Sorted()
	jobs := make([]queue.Job, len(logins))
	now := s.now()
	for i, login := range logins {
		jobs[i] = queue.Job{RunID: runID, Player: login, Seq: i, QueuedAt: now}
	}

	q := queue.NewInMemoryQueue(queue.WithCapacity(max(s.queueSize, len(jobs))))
	sink := &collector{}
	fetch := worker.FetcherFunc(func(ctx context.Context, job worker.Job) ([]types.Record, error) {
		return s.scraper.PlayerRecords(ctx, job.Player)
	})
	pool := worker.NewPool(s.workerCount, q, fetch, sink,
		worker.WithDelay(s.requestDelay),
		worker.WithLogger(s.logger.Named("worker")),
	)
	pool.Start(ctx)

	if err := queue.Fill(ctx, q, jobs); err != nil {
		_ = pool.Shutdown(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("queue roster: %w", err)
	}
	if err := pool.Wait(ctx); err != nil {
		_ = pool.Shutdown(context.WithoutCancel(ctx))
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return sink.sorted(), nil
}

// collect turns fetch results into the rows to write, counting failures,
// duplicates and invalid rows on run.
func (s *Service) collect(ctx context.Context, run *types.IngestRun, results []model.FetchResult) []types.Record {
	seen := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	var out []types.Record

	for _, res := range results {
		if res.Failed() {
			metrics.RecordIngestPlayerFailure()
			run.Failures = append(run.Failures, types.PlayerFailure{Player: res.Job.Player, Error: res.Err.Error()})
			continue
		}
		run.Fetched += len(res.Records)
		for _, rec := range res.Records {
			rec.Normalize()
			key := dedupe.RowKey(rec)
			if seen.SeenAndRecord(ctx, key) {
				run.Duplicates++
				continue
			}
			if err := rec.Validate(); err != nil {
				seen.Unrecord(ctx, key)
				run.Invalid++
				s.logger.Debug(ctx, "dropping invalid record", logger.String("player", res.Job.Player), logger.Error(err))
				continue
			}
			out = append(out, rec)
		}
	}
	return out
}

// enrich looks up challenge metadata for tracks the store does not know
// yet and, when enabled, the server of records that have none.
func (s *Service) enrich(ctx context.Context, records []types.Record) ([]types.Challenge, error) {
	known, err := s.store.Challenges(ctx)
	if err != nil {
		return nil, fmt.Errorf("load challenges: %w", err)
	}

	uids := make(map[string]string, len(known))
	for name, c := range known {
		if c.UID != "" {
			uids[name] = c.UID
		}
	}

	var (
		fresh []types.Challenge
		envs  = make(map[string]string)
		order []string
	)
	for _, rec := range records {
		if _, ok := envs[rec.Track]; !ok {
			order = append(order, rec.Track)
		}
		if rec.Environment != "" || envs[rec.Track] == "" {
			envs[rec.Track] = rec.Environment
		}
	}

	for _, track := range order {
		if _, ok := uids[track]; ok {
			continue
		}
		uid, err := s.scraper.ChallengeUID(ctx, track)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if !errors.Is(err, dedimania.ErrChallengeNotFound) {
				s.logger.Warn(ctx, "challenge lookup failed", logger.String("track", track), logger.Error(err))
			}
			continue
		}
		uids[track] = uid
		if !s.challengeInfo {
			continue
		}
		total, err := s.scraper.ChallengeRecordCount(ctx, uid)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.logger.Warn(ctx, "challenge record count failed", logger.String("track", track), logger.Error(err))
			continue
		}
		fresh = append(fresh, types.Challenge{
			Name:         track,
			UID:          uid,
			Environment:  envs[track],
			TotalRecords: total,
			LastUpdated:  s.now().UTC(),
		})
	}

	if s.serverLookup {
		if err := s.lookupServers(ctx, records, uids); err != nil {
			return nil, err
		}
	}
	return fresh, nil
}

// lookupServers fills Server on records without one. Servers already
// stored for the same row are reused instead of fetched again.
func (s *Service) lookupServers(ctx context.Context, records []types.Record, uids map[string]string) error {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("load stored servers: %w", err)
	}
	stored := make(map[string]string, len(snap.History))
	for _, h := range snap.History {
		if h.Server != "" {
			stored[dedupe.RowKey(h)] = h.Server
		}
	}

	for i := range records {
		rec := &records[i]
		if rec.Server != "" {
			continue
		}
		if server, ok := stored[dedupe.RowKey(*rec)]; ok {
			rec.Server = server
			continue
		}
		uid, ok := uids[rec.Track]
		if !ok {
			continue
		}
		server, err := s.scraper.RecordServer(ctx, rec.Player, uid)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			s.logger.Warn(ctx, "server lookup failed",
				logger.String("player", rec.Player), logger.String("track", rec.Track), logger.Error(err))
			continue
		}
		rec.Server = server
	}
	return nil
}
