// Package brain holds the per-stream adaptive weight state of the
// prediction engine. Each stream (winning, machine) owns one Brain; a
// Brain is mutated only by Learn and persisted through a MemoryStore.
package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/drawsense/drawsense/internal/domain"
	"github.com/drawsense/drawsense/internal/ensemble"
)

// ─── State ──────────────────────────────────────────────────────────────────

// CurrentVersion tags freshly created or migrated brain blobs.
const CurrentVersion = 3

// Stats accumulates prediction accuracy over learned draws.
type Stats struct {
	TotalDraws     int     `json:"totalDraws"`
	TotalHits      int     `json:"totalHits"`
	GlobalAccuracy float64 `json:"globalAccuracy"`
}

func (s *Stats) record(matches int) {
	s.TotalDraws++
	s.TotalHits += matches
	s.GlobalAccuracy = float64(s.TotalHits) / float64(s.TotalDraws*domain.DrawSize)
}

// HistoryEntry records one learning pass.
type HistoryEntry struct {
	Date        time.Time          `json:"date"`
	Draw        []int              `json:"draw"`
	StratScores map[string]float64 `json:"stratScores"`
	GlobalMatch int                `json:"globalMatch"`
	NewWeights  map[string]float64 `json:"newWeights"`
}

// StatsBlock groups global and per-type accuracy.
type StatsBlock struct {
	Global Stats           `json:"global"`
	ByType map[int64]Stats `json:"byType"`
}

// State is the full mutable content of one stream's brain.
// LastAnalyzedByType watermarks the newest learned outcome per scope;
// key zero is the all-types scope. LastAnalyzedDraw keeps the newest
// outcome overall.
type State struct {
	Version            int             `json:"version"`
	LastTuned          *time.Time      `json:"lastTuned"`
	Weights            domain.Weights  `json:"weights"`
	Stats              StatsBlock      `json:"stats"`
	History            []HistoryEntry  `json:"history"`
	LastAnalyzedDraw   []int           `json:"lastAnalyzedDraw"`
	LastAnalyzedByType map[int64][]int `json:"lastAnalyzedByType"`
}

func defaultState() State {
	return State{
		Version:            CurrentVersion,
		Weights:            domain.DefaultWeights(),
		Stats:              StatsBlock{ByType: make(map[int64]Stats)},
		LastAnalyzedByType: make(map[int64][]int),
	}
}

// clone produces a deep copy safe to hand out.
func (s State) clone() State {
	out := s
	if s.LastTuned != nil {
		t := *s.LastTuned
		out.LastTuned = &t
	}
	out.Stats.ByType = make(map[int64]Stats, len(s.Stats.ByType))
	for k, v := range s.Stats.ByType {
		out.Stats.ByType[k] = v
	}
	out.History = make([]HistoryEntry, len(s.History))
	for i, h := range s.History {
		hc := h
		hc.Draw = append([]int(nil), h.Draw...)
		hc.StratScores = copyMap(h.StratScores)
		hc.NewWeights = copyMap(h.NewWeights)
		out.History[i] = hc
	}
	out.LastAnalyzedDraw = append([]int(nil), s.LastAnalyzedDraw...)
	out.LastAnalyzedByType = make(map[int64][]int, len(s.LastAnalyzedByType))
	for k, v := range s.LastAnalyzedByType {
		out.LastAnalyzedByType[k] = append([]int(nil), v...)
	}
	return out
}

func copyMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ─── Brain ──────────────────────────────────────────────────────────────────

// Config carries Brain dependencies. Now is injectable for tests.
type Config struct {
	Stream domain.Stream
	Store  domain.MemoryStore
	Now    func() time.Time
}

// Brain guards one stream's state. Learn is serialized by the lock;
// readers take deep-copy snapshots.
type Brain struct {
	mu     sync.RWMutex
	stream domain.Stream
	store  domain.MemoryStore
	now    func() time.Time
	state  State
}

// New loads the stream's persisted brain, migrating the blob where
// necessary. A missing or corrupt blob falls back to defaults.
func New(ctx context.Context, cfg Config) *Brain {
	b := &Brain{
		stream: cfg.Stream,
		store:  cfg.Store,
		now:    cfg.Now,
		state:  defaultState(),
	}
	if b.now == nil {
		b.now = time.Now
	}
	if cfg.Store == nil {
		return b
	}

	blob, err := cfg.Store.LoadMemory(ctx, cfg.Stream)
	if err != nil || len(blob) == 0 {
		if err != nil {
			log.Printf("[brain] %s: load failed, starting fresh: %v", cfg.Stream, err)
		}
		return b
	}
	state, err := decodeState(blob)
	if err != nil {
		log.Printf("[brain] %s: corrupt memory, starting fresh: %v", cfg.Stream, err)
		return b
	}
	b.state = state
	return b
}

// Status returns a deep copy of the current state.
func (b *Brain) Status() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state.clone()
}

// Weights returns the current weight snapshot.
func (b *Brain) Weights() domain.Weights {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state.Weights
}

// Analyzed reports whether the scope's newest learned outcome equals
// the given numbers. drawTypeID zero is the all-types scope.
func (b *Brain) Analyzed(drawTypeID int64, numbers []int) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return domain.SameNumbers(b.state.LastAnalyzedByType[drawTypeID], numbers)
}

// Score runs the ensemble scorer with the brain's current weights.
func (b *Brain) Score(draws []domain.Draw, external []int) ensemble.Result {
	return ensemble.ComputeScores(draws, b.Weights(), b.stream, external)
}

// persist writes the state through the memory store. Failure keeps the
// in-memory copy authoritative and only logs.
func (b *Brain) persist(ctx context.Context) {
	if b.store == nil {
		return
	}
	blob, err := json.Marshal(b.state)
	if err != nil {
		log.Printf("[brain] %s: encode failed: %v", b.stream, err)
		return
	}
	if err := b.store.SaveMemory(ctx, b.stream, blob); err != nil {
		log.Printf("[brain] %s: persist failed, keeping in-memory state: %v", b.stream, err)
	}
}

// ─── Blob migration ─────────────────────────────────────────────────────────

type persistedState struct {
	Version            int                `json:"version"`
	LastTuned          *time.Time         `json:"lastTuned"`
	Weights            map[string]float64 `json:"weights"`
	Stats              StatsBlock         `json:"stats"`
	History            []HistoryEntry     `json:"history"`
	LastAnalyzedDraw   []int              `json:"lastAnalyzedDraw"`
	LastAnalyzedByType map[int64][]int    `json:"lastAnalyzedByType"`
}

// decodeState parses a persisted blob. Unknown weight keys reject the
// blob; missing keys are injected from defaults and the weight vector
// is renormalized, rounded to two decimals.
func decodeState(blob []byte) (State, error) {
	var p persistedState
	if err := json.Unmarshal(blob, &p); err != nil {
		return State{}, fmt.Errorf("%w: %v", domain.ErrCorruptMemory, err)
	}

	known := make(map[string]bool, len(domain.WeightKeys))
	for _, k := range domain.WeightKeys {
		known[k] = true
	}
	for k := range p.Weights {
		if !known[k] {
			return State{}, fmt.Errorf("%w: unknown weight key %q", domain.ErrCorruptMemory, k)
		}
	}

	var w domain.Weights
	defaults := domain.DefaultWeights()
	injected := false
	for _, k := range domain.WeightKeys {
		v, ok := p.Weights[k]
		if !ok {
			v = defaults.Get(k)
			injected = true
		}
		w.Set(k, v)
	}
	if injected {
		w.Clamp()
		w.Normalize()
		for _, k := range domain.WeightKeys {
			w.Set(k, math.Round(w.Get(k)*100)/100)
		}
	}

	st := State{
		Version:            CurrentVersion,
		LastTuned:          p.LastTuned,
		Weights:            w,
		Stats:              p.Stats,
		History:            p.History,
		LastAnalyzedDraw:   p.LastAnalyzedDraw,
		LastAnalyzedByType: p.LastAnalyzedByType,
	}
	if st.Stats.ByType == nil {
		st.Stats.ByType = make(map[int64]Stats)
	}
	if st.LastAnalyzedByType == nil {
		st.LastAnalyzedByType = make(map[int64][]int)
	}
	if len(st.History) > HistoryLimit {
		st.History = st.History[len(st.History)-HistoryLimit:]
	}
	return st, nil
}
