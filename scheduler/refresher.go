package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"eshopscout/models"
	"eshopscout/repository"
)

type PriceRefresher interface {
	MatchTitle(ctx context.Context, name string) (*models.MatchedTitle, error)
	Refresh(ctx context.Context, title *models.MatchedTitle) *models.PriceQuoteSet
}

// PopularTitles lists the most requested titles. Optional.
type PopularTitles interface {
	MostLookedUp(ctx context.Context, limit int) ([]repository.PopularTitle, error)
}

type RunRecorder interface {
	Refresh(job string, err error)
}

type RefresherOptions struct {
	Spec          string
	PopularLimit  int
	DefaultTitles []string
	RunTimeout    time.Duration
}

// Refresher keeps the price sets of popular titles warm by re-aggregating
// them on a cron schedule.
type Refresher struct {
	cron     *cron.Cron
	prices   PriceRefresher
	popular  PopularTitles
	recorder RunRecorder
	opts     RefresherOptions
	logger   *slog.Logger

	mu       sync.Mutex
	defaults []*models.MatchedTitle
	running  bool
}

func NewRefresher(prices PriceRefresher, popular PopularTitles, recorder RunRecorder, opts RefresherOptions, logger *slog.Logger) *Refresher {
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = 10 * time.Minute
	}
	return &Refresher{
		cron:     cron.New(cron.WithSeconds()),
		prices:   prices,
		popular:  popular,
		recorder: recorder,
		opts:     opts,
		logger:   logger,
	}
}

// Start schedules the refresh job.
func (r *Refresher) Start() error {
	if _, err := r.cron.AddFunc(r.opts.Spec, r.runScheduled); err != nil {
		return err
	}
	r.cron.Start()
	r.logger.Info("Price refresher scheduled", "spec", r.opts.Spec)
	return nil
}

// Stop stops the schedule and waits for a running job to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}

func (r *Refresher) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), r.opts.RunTimeout)
	defer cancel()
	_, err := r.RunOnce(ctx)
	if r.recorder != nil {
		r.recorder.Refresh("prices", err)
	}
}

// RunOnce refreshes every popular title once and returns how many sets were
// rebuilt. Overlapping runs are skipped.
func (r *Refresher) RunOnce(ctx context.Context) (int, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		r.logger.Warn("Previous refresh still running, skipping")
		return 0, nil
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	titles, err := r.collect(ctx)
	if err != nil {
		return 0, err
	}
	if len(titles) == 0 {
		r.logger.Info("No titles to refresh")
		return 0, nil
	}

	refreshed := 0
	for _, t := range titles {
		if ctx.Err() != nil {
			return refreshed, ctx.Err()
		}
		set := r.prices.Refresh(ctx, t)
		refreshed++
		r.logger.Debug("Refreshed price set", "title", t.CanonicalTitle, "quotes", len(set.Quotes))
	}
	r.logger.Info("✅ Popular price sets refreshed", "titles", refreshed)
	return refreshed, nil
}

// collect merges the most looked-up titles with the configured defaults,
// dropping duplicate home ids.
func (r *Refresher) collect(ctx context.Context) ([]*models.MatchedTitle, error) {
	var titles []*models.MatchedTitle
	seen := make(map[string]struct{})
	add := func(t *models.MatchedTitle) {
		if t == nil {
			return
		}
		if _, dup := seen[t.HomeID()]; dup {
			return
		}
		seen[t.HomeID()] = struct{}{}
		titles = append(titles, t)
	}

	if r.popular != nil {
		popular, err := r.popular.MostLookedUp(ctx, r.opts.PopularLimit)
		if err != nil {
			r.logger.Warn("Failed to load popular titles", "error", err)
		}
		for _, p := range popular {
			add(p.Title)
		}
	}

	defaults, err := r.defaultTitles(ctx)
	if err != nil && len(titles) == 0 {
		return nil, err
	}
	for _, t := range defaults {
		add(t)
	}
	return titles, nil
}

// defaultTitles matches the configured names once and remembers them.
func (r *Refresher) defaultTitles(ctx context.Context) ([]*models.MatchedTitle, error) {
	r.mu.Lock()
	cached := r.defaults
	r.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	var (
		matched []*models.MatchedTitle
		lastErr error
	)
	for _, name := range r.opts.DefaultTitles {
		t, err := r.prices.MatchTitle(ctx, name)
		if err != nil {
			lastErr = err
			r.logger.Warn("Failed to match default title", "title", name, "error", err)
			continue
		}
		if t == nil {
			r.logger.Warn("Default title has no single match", "title", name)
			continue
		}
		matched = append(matched, t)
	}

	if lastErr == nil {
		r.mu.Lock()
		r.defaults = matched
		r.mu.Unlock()
	}
	return matched, lastErr
}
