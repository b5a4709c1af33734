package history

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/drawsense/drawsense/internal/domain"
)

// ─── Verification Loop ──────────────────────────────────────────────────────

// Verification timing. Lookback bounds how far back unverified entries
// are considered; the attribution window accepts a draw landing from a
// day before the prediction up to three days after it.
const (
	Throttle = 60 * time.Second
	Lookback = 7 * 24 * time.Hour

	windowBefore = 24 * time.Hour
	windowAfter  = 72 * time.Hour
)

// Verifier attributes logged predictions to actual draws. It runs
// lazily on demand and is throttled; a forced run skips the throttle.
type Verifier struct {
	log    Log
	source domain.DrawSource
	now    func() time.Time

	mu      sync.Mutex
	lastRun time.Time
}

// NewVerifier wires a verifier. now defaults to time.Now.
func NewVerifier(l Log, source domain.DrawSource, now func() time.Time) *Verifier {
	if now == nil {
		now = time.Now
	}
	return &Verifier{log: l, source: source, now: now}
}

// Run walks unverified entries inside the lookback window and matches
// each against the earliest draw of the same type at or after the
// prediction date. It returns how many entries it verified. Throttled
// calls return zero without touching the log.
func (v *Verifier) Run(ctx context.Context, force bool) (int, error) {
	v.mu.Lock()
	now := v.now()
	if !force && !v.lastRun.IsZero() && now.Sub(v.lastRun) < Throttle {
		v.mu.Unlock()
		return 0, nil
	}
	v.lastRun = now
	v.mu.Unlock()

	entries, err := v.log.All()
	if err != nil {
		return 0, err
	}

	cutoff := now.Add(-Lookback)
	var recent []domain.Draw
	for _, d := range v.source.GetDraws(ctx, nil) {
		if !d.Date.Before(cutoff) {
			recent = append(recent, d)
		}
	}

	var updated []Entry
	for _, e := range entries {
		if e.Verified || e.Timestamp.Before(cutoff) {
			continue
		}
		draw, ok := attribute(e, recent)
		if !ok {
			continue
		}
		e.Result = outcome(e.Numbers, draw.Winning, draw.Date)
		if draw.HasMachine() {
			if len(e.MachineNumbers) > 0 {
				e.MachineResult = outcome(e.MachineNumbers, draw.Machine, draw.Date)
			}
			if len(e.HybridNumbers) > 0 {
				e.HybridResult = outcome(e.HybridNumbers, draw.Winning, draw.Date)
			}
		} else if len(e.HybridNumbers) > 0 {
			e.HybridResult = outcome(e.HybridNumbers, draw.Winning, draw.Date)
		}
		e.Verified = true
		updated = append(updated, e)
	}

	if len(updated) > 0 {
		if err := v.log.Update(updated); err != nil {
			return 0, err
		}
		log.Printf("[verify] attributed %d prediction(s)", len(updated))
	}
	return len(updated), nil
}

// attribute finds the earliest draw matching the entry's type whose
// date falls within the attribution window. A zero DrawTypeID matches
// any type.
func attribute(e Entry, draws []domain.Draw) (domain.Draw, bool) {
	for _, d := range draws {
		if e.DrawTypeID != 0 && d.DrawTypeID != e.DrawTypeID {
			continue
		}
		delta := d.Date.Sub(e.Timestamp)
		if delta < -windowBefore || delta >= windowAfter {
			continue
		}
		return d, true
	}
	return domain.Draw{}, false
}

// outcome compares a predicted set against the actual numbers.
func outcome(predicted, actual []int, drawDate time.Time) *Outcome {
	inActual := make(map[int]bool, len(actual))
	for _, n := range actual {
		inActual[n] = true
	}
	out := &Outcome{
		DrawDate: drawDate,
		Actual:   append([]int(nil), actual...),
	}
	for _, n := range predicted {
		switch {
		case inActual[n]:
			out.Matches = append(out.Matches, n)
		case inActual[n-1] || inActual[n+1]:
			out.NearMisses = append(out.NearMisses, n)
		}
	}
	out.MatchCount = len(out.Matches)
	return out
}
