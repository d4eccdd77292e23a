package ics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"trustcal/internal/config"
	appLog "trustcal/internal/log"
	"trustcal/internal/metrics"
	"trustcal/internal/model"
)

const (
	// Non-yearly series are materialized this far back and ahead.
	defaultLookback  = 365 * 24 * time.Hour
	defaultLookahead = 2 * 365 * 24 * time.Hour

	syncTimeout = 4 * time.Minute
)

// FestivalWriter stores feed festivals idempotently by ExternalUID.
type FestivalWriter interface {
	UpsertFestivalByUID(ctx context.Context, f model.Festival) error
}

// Syncer imports festival feeds into the store.
type Syncer struct {
	fetcher *Fetcher
	store   FestivalWriter
	feeds   []Feed
	metrics *metrics.Metrics
	now     func() time.Time
}

// FeedsFromConfig converts configured feeds, defaulting IDs to their index.
func FeedsFromConfig(cfgs []config.FeedConfig) []Feed {
	out := make([]Feed, 0, len(cfgs))
	for i, c := range cfgs {
		id := c.ID
		if id == "" {
			id = fmt.Sprintf("feed-%d", i+1)
		}
		out = append(out, Feed{ID: id, Name: c.Name, URL: c.URL})
	}
	return out
}

func NewSyncer(fetcher *Fetcher, store FestivalWriter, feeds []Feed, m *metrics.Metrics) *Syncer {
	return &Syncer{
		fetcher: fetcher,
		store:   store,
		feeds:   feeds,
		metrics: m,
		now:     time.Now,
	}
}

// SyncAll fetches, parses and upserts every feed. A failing feed does not
// stop the others; all failures are joined into the returned error.
func (s *Syncer) SyncAll(ctx context.Context) (int, error) {
	if len(s.feeds) == 0 {
		return 0, nil
	}
	now := s.now()
	window := ExpandConfig{
		RangeStart: model.DateOf(now.Add(-defaultLookback)),
		RangeEnd:   model.DateOf(now.Add(defaultLookahead)),
	}

	results, errs := s.fetcher.FetchAll(ctx, s.feeds)
	fetched := make(map[string]bool, len(results))
	for _, res := range results {
		fetched[res.Feed.ID] = true
	}
	for _, f := range s.feeds {
		if !fetched[f.ID] {
			s.metrics.FeedSynced(f.ID, 0, errors.New("fetch failed"))
		}
	}

	total := 0
	for _, res := range results {
		n, err := s.syncOne(ctx, res, window)
		s.metrics.FeedSynced(res.Feed.ID, n, err)
		total += n
		if err != nil {
			appLog.Error("festival feed sync failed", err, "feed", res.Feed.ID)
			errs = append(errs, fmt.Errorf("feed %s: %w", res.Feed.ID, err))
			continue
		}
		appLog.Info("festival feed synced", "feed", res.Feed.ID, "festivals", n, "from_cache", res.FromCache)
	}
	return total, errors.Join(errs...)
}

func (s *Syncer) syncOne(ctx context.Context, res FetchResult, window ExpandConfig) (int, error) {
	events, err := ParseICS(res.Feed, res.Body)
	if err != nil {
		return 0, err
	}
	festivals, err := Festivals(events, window)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, f := range festivals {
		if err := s.store.UpsertFestivalByUID(ctx, f); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Schedule runs SyncAll on the cron spec until ctx is done. Overlapping
// runs are skipped. The returned function stops the scheduler and waits for
// a running sync to finish.
func (s *Syncer) Schedule(ctx context.Context, spec string) (func(), error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(spec, func() {
		rctx, cancel := context.WithTimeout(ctx, syncTimeout)
		defer cancel()
		if _, err := s.SyncAll(rctx); err != nil {
			appLog.Warn("scheduled festival sync finished with errors", "err", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", spec, err)
	}
	c.Start()
	appLog.Info("festival sync scheduled", "cron", spec, "feeds", len(s.feeds))
	return func() { <-c.Stop().Done() }, nil
}
