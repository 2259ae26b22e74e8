package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/corpustools/reddit-author-collector/internal/config"
	"github.com/corpustools/reddit-author-collector/internal/models"
	"github.com/corpustools/reddit-author-collector/internal/pullpush"
)

// cursorWeekStep is how far the backfill cursor skips forward when a window
// yields no usable submissions.
const cursorWeekStep = int64(7 * 24 * 60 * 60)

// sentinelAuthors are placeholder accounts that never enter the author pool.
var sentinelAuthors = map[string]bool{
	"[deleted]":     true,
	"AutoModerator": true,
}

// Fetcher is the page-fetch dependency; in production it is the PullPush
// client. A fetch that yields nothing returns an empty slice, never an error.
type Fetcher interface {
	Search(ctx context.Context, q pullpush.Query) []pullpush.Record
}

// RowWriter persists normalized rows to the output sink.
type RowWriter interface {
	Append(post models.Post) error
}

// SinkFactory opens the output sink for one run. Run calls it only after the
// run has been admitted, so a rejected overlapping run can never truncate the
// file an active run is writing to.
type SinkFactory func() (RowWriter, error)

// Cursor bounds the next page query during per-author backfill.
type Cursor struct {
	After  int64
	Before int64
}

// DiscoveryState accumulates the author pool across sampling iterations.
type DiscoveryState struct {
	Authors  map[string]struct{}
	Attempts int
	Rows     int
}

// Service runs the two-phase collection: randomized author discovery across
// (year, subreddit) windows, then cursor-paged backfill of each author's
// history. Execution is sequential; discovery fully completes before backfill
// begins.
type Service struct {
	config  *config.Config
	fetcher Fetcher
	rng     *rand.Rand
	sleep   func(time.Duration)

	metrics *Metrics
	mu      sync.RWMutex
	running bool
}

// Metrics holds collection progress counters
type Metrics struct {
	Phase             string    `json:"phase"`
	DiscoveryAttempts int       `json:"discovery_attempts"`
	AuthorsDiscovered int       `json:"authors_discovered"`
	AuthorsBackfilled int       `json:"authors_backfilled"`
	RowsWritten       int       `json:"rows_written"`
	LastRun           time.Time `json:"last_run"`
	LastRunDuration   string    `json:"last_run_duration"`
}

// NewService creates a new collection service
func NewService(cfg *config.Config, fetcher Fetcher, rng *rand.Rand) *Service {
	return &Service{
		config:  cfg,
		fetcher: fetcher,
		rng:     rng,
		sleep:   time.Sleep,
		metrics: &Metrics{Phase: "idle"},
	}
}

// Run performs one full collection run, writing rows to the sink opened via
// open. A partial corpus is a normal outcome and still produces a report; the
// only hard failures are an empty author pool after discovery, a sink error,
// and cancellation. When the sink implements io.Closer, Run closes it.
func (s *Service) Run(ctx context.Context, open SinkFactory) (*models.RunReport, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, fmt.Errorf("a collection run is already in progress")
	}
	s.running = true
	s.metrics = &Metrics{Phase: "discovery"}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	w, err := open()
	if err != nil {
		s.setPhase("failed")
		return nil, fmt.Errorf("failed to open output sink: %w", err)
	}
	defer func() {
		if closer, ok := w.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				logrus.Errorf("Failed to close output sink: %v", err)
			}
		}
	}()

	start := time.Now()
	logrus.Infof("Starting collection run: target %d unique authors, sampling years %d-%d",
		s.config.TargetUniqueAuthors, s.config.StartYear, s.config.EndYear)
	logrus.Infof("Subreddits: %s", strings.Join(s.config.Subreddits, ", "))

	state, err := s.discoverAuthors(ctx, w)
	if err != nil {
		return nil, err
	}

	stopReason := "attempts exhausted"
	if len(state.Authors) >= s.config.TargetUniqueAuthors {
		stopReason = "target reached"
		logrus.Infof("Discovery completed: %d authors in %d attempts", len(state.Authors), state.Attempts)
	} else {
		logrus.Infof("Discovery stopped after %d attempts with %d authors (target %d)",
			state.Attempts, len(state.Authors), s.config.TargetUniqueAuthors)
	}

	if len(state.Authors) == 0 {
		s.setPhase("failed")
		return nil, fmt.Errorf("no authors discovered after %d attempts", state.Attempts)
	}

	s.setPhase("backfill")
	backfillRows, err := s.backfillAuthors(ctx, w, state.Authors)
	if err != nil {
		return nil, err
	}

	report := &models.RunReport{
		StartedAt:         start,
		Duration:          time.Since(start).String(),
		AuthorsDiscovered: len(state.Authors),
		AuthorTarget:      s.config.TargetUniqueAuthors,
		DiscoveryAttempts: state.Attempts,
		DiscoveryRows:     state.Rows,
		BackfillRows:      backfillRows,
		TotalRows:         state.Rows + backfillRows,
		OutputFile:        s.config.OutputCSV,
		StopReason:        stopReason,
	}

	s.mu.Lock()
	s.metrics.Phase = "done"
	s.metrics.LastRun = time.Now()
	s.metrics.LastRunDuration = report.Duration
	s.mu.Unlock()

	logrus.Infof("Collection run completed in %v: %d rows (%d discovery, %d backfill)",
		time.Since(start), report.TotalRows, report.DiscoveryRows, report.BackfillRows)
	return report, nil
}

// discoverAuthors samples random (year, subreddit) windows until the target
// author count is reached or the attempt budget runs out. Sampling is
// randomized rather than exhaustive: the goal is a diverse author pool, not
// coverage, and a fixed scan order would overweight whichever windows come
// first.
func (s *Service) discoverAuthors(ctx context.Context, w RowWriter) (*DiscoveryState, error) {
	years := s.config.Years()
	state := &DiscoveryState{Authors: make(map[string]struct{})}

	for len(state.Authors) < s.config.TargetUniqueAuthors && state.Attempts < s.config.MaxDiscoveryAttempts {
		if err := ctx.Err(); err != nil {
			return state, err
		}
		state.Attempts++

		year := years[s.rng.Intn(len(years))]
		subreddit := s.config.Subreddits[s.rng.Intn(len(s.config.Subreddits))]

		if state.Attempts%100 == 0 {
			logrus.Infof("Discovery attempt %d, collected %d authors so far", state.Attempts, len(state.Authors))
		}

		records := s.fetchWithFallback(ctx, pullpush.Query{
			Subreddit: subreddit,
			After:     yearStart(year),
			Before:    yearEnd(year),
		})
		logrus.Debugf("Discovery window year=%d subreddit=%s returned %d records", year, subreddit, len(records))

		for _, rec := range submissionsOnly(records) {
			author := rec.Author()
			if author == "" || sentinelAuthors[author] {
				continue
			}
			if _, seen := state.Authors[author]; seen {
				continue
			}
			if err := w.Append(Extract(rec)); err != nil {
				return state, fmt.Errorf("failed to persist row: %w", err)
			}
			state.Authors[author] = struct{}{}
			state.Rows++
			if len(state.Authors)%50 == 0 {
				logrus.Infof("Collected %d unique authors", len(state.Authors))
			}
			if len(state.Authors) >= s.config.TargetUniqueAuthors {
				break
			}
		}

		s.mu.Lock()
		s.metrics.DiscoveryAttempts = state.Attempts
		s.metrics.AuthorsDiscovered = len(state.Authors)
		s.metrics.RowsWritten = state.Rows
		s.mu.Unlock()

		s.sleep(s.config.RequestDelay)
	}

	return state, nil
}

// backfillAuthors collects a randomized number of historical submissions for
// each discovered author. The author set is read-only here; iteration order
// is whatever the map yields.
func (s *Service) backfillAuthors(ctx context.Context, w RowWriter, authors map[string]struct{}) (int, error) {
	logrus.Infof("Starting per-author backfill for %d authors (%d-%d posts each)",
		len(authors), s.config.MinPostsPerAuthor, s.config.MaxPostsPerAuthor)

	total := 0
	index := 0
	for author := range authors {
		index++
		collected, err := s.backfillAuthor(ctx, w, author)
		total += collected

		s.mu.Lock()
		s.metrics.AuthorsBackfilled = index
		s.metrics.RowsWritten += collected
		s.mu.Unlock()

		if err != nil {
			return total, err
		}
		logrus.Infof("[%d/%d] Collected %d posts for author %s", index, len(authors), collected, author)
	}
	return total, nil
}

// backfillAuthor pages forward through one author's history. Termination:
// target reached, attempt budget exhausted, an empty response (history
// exhausted), or a cursor that cannot advance. Collecting fewer than the
// target is fine.
func (s *Service) backfillAuthor(ctx context.Context, w RowWriter, author string) (int, error) {
	target := s.config.MinPostsPerAuthor +
		s.rng.Intn(s.config.MaxPostsPerAuthor-s.config.MinPostsPerAuthor+1)
	cursor := Cursor{
		After:  yearStart(s.config.StartYear),
		Before: yearEnd(s.config.EndYear),
	}

	collected := 0
	for attempts := 0; collected < target && attempts < s.config.MaxAuthorAttempts; attempts++ {
		if err := ctx.Err(); err != nil {
			return collected, err
		}

		records := s.fetchWithFallback(ctx, pullpush.Query{
			Author: author,
			After:  cursor.After,
			Before: cursor.Before,
		})
		if len(records) == 0 {
			break
		}

		page := submissionsOnly(records)
		if len(page) == 0 {
			// Possibly a sparse window of comments only; skip ahead a week.
			cursor.After += cursorWeekStep
			s.sleep(s.config.RequestDelay)
			continue
		}

		// The cursor advances from the last record in page order; capture it
		// before shuffling.
		lastCreated, canAdvance := page[len(page)-1].CreatedUnix()

		shuffled := make([]pullpush.Record, len(page))
		copy(shuffled, page)
		s.rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		for _, rec := range shuffled {
			if collected >= target {
				break
			}
			if err := w.Append(Extract(rec)); err != nil {
				return collected, fmt.Errorf("failed to persist row: %w", err)
			}
			collected++
		}

		if !canAdvance {
			// Without a numeric creation time there is no safe way to page
			// forward, and re-querying the same window would loop forever.
			logrus.Warnf("Stopping backfill for author %s: last record has no numeric creation time", author)
			break
		}
		cursor.After = lastCreated + 1

		s.sleep(s.config.RequestDelay)
	}

	return collected, nil
}

// fetchWithFallback queries with the link-type filter first and retries the
// same window without it when nothing comes back. The filter parameter is not
// authoritative on every PullPush mirror.
func (s *Service) fetchWithFallback(ctx context.Context, q pullpush.Query) []pullpush.Record {
	q.LinkFilter = true
	records := s.fetcher.Search(ctx, q)
	if len(records) == 0 {
		q.LinkFilter = false
		records = s.fetcher.Search(ctx, q)
	}
	return records
}

// submissionsOnly keeps records that look like submissions. The server-side
// link filter should already guarantee this; the title check stays as a
// safety net against comments and malformed records.
func submissionsOnly(records []pullpush.Record) []pullpush.Record {
	var submissions []pullpush.Record
	for _, rec := range records {
		if rec.HasTitle() {
			submissions = append(submissions, rec)
		}
	}
	return submissions
}

func (s *Service) setPhase(phase string) {
	s.mu.Lock()
	s.metrics.Phase = phase
	s.mu.Unlock()
}

// GetMetrics returns current progress counters as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}

func yearStart(year int) int64 {
	return time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
}

func yearEnd(year int) int64 {
	return time.Date(year, 12, 31, 23, 59, 59, 0, time.UTC).Unix()
}
