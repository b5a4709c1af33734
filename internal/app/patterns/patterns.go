// Package patterns detects recurring structure in draw history and
// persists per-pattern strength scores. A pattern seen for the first
// time is seeded at the neutral baseline; recurring patterns gain
// strength each cycle, capped by the storage clamp.
package patterns

import (
	"fmt"
	"log"
	"sync"

	"github.com/drawsense/drawsense/internal/analysis"
	"github.com/drawsense/drawsense/internal/domain"
	"github.com/drawsense/drawsense/internal/infra/sqlite"
)

// Kind labels for persisted patterns.
const (
	KindPair   = "pair"
	KindDecade = "decade"
	KindFinale = "finale"
)

// Config configures the detector.
type Config struct {
	// MaxPairs caps how many retained pairs are persisted per cycle.
	MaxPairs int

	// ReinforceStep is added to a pattern's strength each cycle it
	// recurs.
	ReinforceStep float64
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MaxPairs:      25,
		ReinforceStep: 5,
	}
}

// Store is the persistence surface the detector needs.
type Store interface {
	UpsertPattern(drawTypeID int64, kind, payload string, strength float64) error
	PatternStrength(drawTypeID int64, kind, payload string) (float64, bool, error)
}

// Detector recomputes pattern strengths from the latest history.
type Detector struct {
	mu    sync.Mutex
	cfg   Config
	store Store
}

func NewDetector(cfg Config, store Store) *Detector {
	if cfg.MaxPairs <= 0 {
		cfg.MaxPairs = DefaultConfig().MaxPairs
	}
	if cfg.ReinforceStep <= 0 {
		cfg.ReinforceStep = DefaultConfig().ReinforceStep
	}
	return &Detector{cfg: cfg, store: store}
}

// Run recomputes and persists pattern strengths for one draw type
// window. Returns how many patterns were written.
func (d *Detector) Run(drawTypeID int64, draws []domain.Draw) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(draws) == 0 {
		return 0, nil
	}

	written := 0

	pairs := analysis.TopPairs(draws, domain.StreamWinning)
	if len(pairs) > d.cfg.MaxPairs {
		pairs = pairs[:d.cfg.MaxPairs]
	}
	for _, p := range pairs {
		payload := fmt.Sprintf("%d-%d", p.A, p.B)
		if err := d.reinforce(drawTypeID, KindPair, payload); err != nil {
			return written, err
		}
		written++
	}

	// The dominant per-draw decade shape of the window.
	if shape := dominantShape(analysis.Decades(draws, domain.StreamWinning)); shape != "" {
		if err := d.reinforce(drawTypeID, KindDecade, shape); err != nil {
			return written, err
		}
		written++
	}

	for _, f := range topFinales(draws, 3) {
		payload := fmt.Sprintf("%d", f.Finale)
		if err := d.reinforce(drawTypeID, KindFinale, payload); err != nil {
			return written, err
		}
		written++
	}

	log.Printf("[patterns] persisted %d patterns for type %d", written, drawTypeID)
	return written, nil
}

// reinforce bumps an existing strength or seeds a new pattern at the
// neutral default.
func (d *Detector) reinforce(drawTypeID int64, kind, payload string) error {
	strength, found, err := d.store.PatternStrength(drawTypeID, kind, payload)
	if err != nil {
		return err
	}
	if !found {
		strength = sqlite.DefaultStrength
	} else {
		strength += d.cfg.ReinforceStep
	}
	return d.store.UpsertPattern(drawTypeID, kind, payload, sqlite.ClampStrength(strength))
}

// dominantShape returns the most frequent per-draw decade shape, ties
// broken lexicographically for determinism.
func dominantShape(stats analysis.DecadeStats) string {
	best, bestCount := "", 0
	for shape, count := range stats.Patterns {
		if count > bestCount || (count == bestCount && (best == "" || shape < best)) {
			best, bestCount = shape, count
		}
	}
	return best
}

func topFinales(draws []domain.Draw, k int) []analysis.FinaleStats {
	ranked := analysis.RankFinales(analysis.Finales(draws, domain.StreamWinning))
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}
