package daemon

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/drawsense/drawsense/internal/brain"
	"github.com/drawsense/drawsense/internal/domain"
	"github.com/drawsense/drawsense/internal/history"
	"github.com/drawsense/drawsense/internal/infra/observability"
	"github.com/drawsense/drawsense/internal/infra/scraper"
)

// DrawWriter persists scraped draws. InsertDraw reports whether the
// row was new.
type DrawWriter interface {
	UpsertDrawType(name, category string) (int64, error)
	InsertDraw(d domain.Draw) (int64, bool, error)
	LatestDrawDate() (time.Time, error)
	CountDraws() (int, error)
}

// Invalidator drops caches after new draws land.
type Invalidator interface {
	Invalidate()
}

// PatternDetector recomputes stored pattern strengths from history.
type PatternDetector interface {
	Run(drawTypeID int64, draws []domain.Draw) (int, error)
}

// RefreshStatus is a snapshot of the loop's last cycle.
type RefreshStatus struct {
	Running     bool       `json:"running"`
	LastRun     *time.Time `json:"lastRun,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
	NewDraws    int        `json:"newDraws"`
	TotalCycles int        `json:"totalCycles"`
}

// RefresherConfig carries the refresh loop dependencies. Fetcher may
// be nil when no upstream is configured; the cycle then skips the
// scrape stage and only verifies and trains.
type RefresherConfig struct {
	Fetcher     scraper.Fetcher
	Writer      DrawWriter
	Source      domain.DrawSource
	Caches      []Invalidator
	Patterns    PatternDetector
	Verifier    *history.Verifier
	Winning     *brain.Brain
	Machine     *brain.Brain
	RunAnalysis bool
	Interval    time.Duration
	Now         func() time.Time
}

// InvalidatorFunc adapts a plain function to Invalidator.
type InvalidatorFunc func()

func (f InvalidatorFunc) Invalidate() { f() }

// Refresher owns the periodic refresh cycle. Cycles never overlap; a
// trigger during a running cycle is rejected.
type Refresher struct {
	cfg     RefresherConfig
	running atomic.Bool

	mu     sync.Mutex
	status RefreshStatus
}

func NewRefresher(cfg RefresherConfig) *Refresher {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Refresher{cfg: cfg}
}

// Status returns the last cycle's outcome.
func (r *Refresher) Status() RefreshStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.status
	st.Running = r.running.Load()
	return st
}

// Trigger starts a cycle in the background. Returns
// domain.ErrRefreshRunning when one is already in flight.
func (r *Refresher) Trigger(forceTrain bool) error {
	if !r.running.CompareAndSwap(false, true) {
		return domain.ErrRefreshRunning
	}
	go func() {
		defer r.running.Store(false)
		r.cycle(context.Background(), forceTrain)
	}()
	return nil
}

// Run drives the loop until the context is cancelled. A zero interval
// disables the ticker; manual triggers still work.
func (r *Refresher) Run(ctx context.Context) {
	if r.cfg.Interval <= 0 {
		log.Printf("[refresh] periodic refresh disabled")
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	log.Printf("[refresh] loop started, interval %s", r.cfg.Interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !r.running.CompareAndSwap(false, true) {
				log.Printf("[refresh] previous cycle still running, skipping tick")
				continue
			}
			r.cycle(ctx, false)
			r.running.Store(false)
		}
	}
}

// cycle runs one refresh pass: scrape, invalidate caches, verify
// served predictions, train the brains per draw type. A scrape failure
// terminates the cycle before any downstream stage.
func (r *Refresher) cycle(ctx context.Context, forceTrain bool) {
	started := r.cfg.Now()
	newDraws, err := r.scrape(ctx)
	if err != nil {
		log.Printf("[refresh] scrape failed, cycle aborted: %v", err)
		r.finish(started, "error", err.Error(), 0)
		return
	}

	if newDraws > 0 {
		for _, c := range r.cfg.Caches {
			c.Invalidate()
		}
		observability.DrawCacheInvalidations.Inc()
	}

	if r.cfg.Patterns != nil && r.cfg.Source != nil && (newDraws > 0 || forceTrain) {
		r.detectPatterns(ctx)
	}

	if r.cfg.Verifier != nil {
		if n, verr := r.cfg.Verifier.Run(ctx, newDraws > 0); verr != nil {
			log.Printf("[refresh] verification failed: %v", verr)
		} else if n > 0 {
			observability.VerifiedPredictions.Add(float64(n))
		}
	}

	if r.cfg.RunAnalysis && (newDraws > 0 || forceTrain) {
		r.train(ctx)
	}

	r.finish(started, "ok", "", newDraws)
}

// finish records the cycle's metrics and status snapshot.
func (r *Refresher) finish(started time.Time, result, errMsg string, newDraws int) {
	elapsed := r.cfg.Now().Sub(started)
	observability.RefreshRuns.WithLabelValues(result).Inc()
	observability.RefreshNewDraws.Add(float64(newDraws))
	observability.RefreshDuration.Observe(elapsed.Seconds())

	now := r.cfg.Now()
	r.mu.Lock()
	r.status.LastRun = &now
	r.status.LastError = errMsg
	r.status.NewDraws = newDraws
	r.status.TotalCycles++
	r.mu.Unlock()

	log.Printf("[refresh] cycle done in %s, %d new draws", elapsed.Round(time.Millisecond), newDraws)
}

// scrape pulls draws newer than the stored watermark and persists
// them. Partial failures keep the rows that did land.
func (r *Refresher) scrape(ctx context.Context) (int, error) {
	if r.cfg.Fetcher == nil || r.cfg.Writer == nil {
		return 0, nil
	}

	since := time.Time{}
	if latest, err := r.cfg.Writer.LatestDrawDate(); err == nil {
		since = latest
	}

	raws, err := r.cfg.Fetcher.Fetch(ctx, since)
	if err != nil {
		return 0, err
	}

	inserted := 0
	typeIDs := map[string]int64{}
	for _, raw := range raws {
		typeID, ok := typeIDs[raw.DrawType]
		if !ok {
			id, err := r.cfg.Writer.UpsertDrawType(raw.DrawType, "")
			if err != nil {
				log.Printf("[refresh] draw type %q: %v", raw.DrawType, err)
				continue
			}
			typeID, typeIDs[raw.DrawType] = id, id
		}

		draw, err := scraper.Normalize(raw, typeID)
		if err != nil {
			log.Printf("[refresh] skipping draw %q %s: %v", raw.DrawType, raw.Date, err)
			continue
		}
		_, fresh, err := r.cfg.Writer.InsertDraw(draw)
		if err != nil {
			log.Printf("[refresh] insert draw: %v", err)
			continue
		}
		if fresh {
			inserted++
		}
	}

	if total, err := r.cfg.Writer.CountDraws(); err == nil {
		observability.DrawsArchived.Set(float64(total))
	}
	return inserted, nil
}

// detectPatterns refreshes stored pattern strengths per draw type.
func (r *Refresher) detectPatterns(ctx context.Context) {
	for _, dt := range r.cfg.Source.GetDrawTypes(ctx) {
		id := dt.ID
		draws := r.cfg.Source.GetDraws(ctx, &id)
		if len(draws) == 0 {
			continue
		}
		if _, err := r.cfg.Patterns.Run(id, draws); err != nil {
			log.Printf("[refresh] pattern detection for type %d: %v", id, err)
		}
	}
}

// train walks the draw types and feeds each type's newest outcome to
// both brains. Without a type catalog it falls back to the single
// globally-latest draw.
func (r *Refresher) train(ctx context.Context) {
	if r.cfg.Source == nil || r.cfg.Winning == nil {
		return
	}
	types := r.cfg.Source.GetDrawTypes(ctx)
	if len(types) == 0 {
		r.trainScope(ctx, nil)
		return
	}
	for _, dt := range types {
		id := dt.ID
		r.trainScope(ctx, &id)
	}
}

// trainScope learns the scope's latest unanalyzed outcome.
func (r *Refresher) trainScope(ctx context.Context, drawTypeID *int64) {
	draws := r.cfg.Source.GetDraws(ctx, drawTypeID)
	if len(draws) == 0 {
		return
	}
	latest := draws[len(draws)-1]

	if !r.cfg.Winning.Analyzed(latest.DrawTypeID, latest.Winning) {
		if _, err := r.cfg.Winning.Learn(ctx, latest.Winning, draws, latest.DrawTypeID); err != nil {
			log.Printf("[refresh] winning train type %d: %v", latest.DrawTypeID, err)
		} else {
			observability.LearnPasses.WithLabelValues(string(domain.StreamWinning)).Inc()
		}
	}
	if r.cfg.Machine != nil && latest.HasMachine() {
		if !r.cfg.Machine.Analyzed(latest.DrawTypeID, latest.Machine) {
			if _, err := r.cfg.Machine.Learn(ctx, latest.Machine, draws, latest.DrawTypeID); err != nil {
				log.Printf("[refresh] machine train type %d: %v", latest.DrawTypeID, err)
			} else {
				observability.LearnPasses.WithLabelValues(string(domain.StreamMachine)).Inc()
			}
		}
	}
}
