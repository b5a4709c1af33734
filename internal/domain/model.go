// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture — it depends on nothing.
package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ─── Number Constants ───────────────────────────────────────────────────────

const (
	// MinNumber and MaxNumber bound the drawable universe.
	MinNumber = 1
	MaxNumber = 90

	// DrawSize is how many numbers a single draw yields per stream.
	DrawSize = 5

	// DecadeCount is the number of decade buckets. Bucket 0 covers 1..9,
	// buckets 1..7 cover 10..79 in tens, bucket 8 covers 81..90.
	DecadeCount = 9
)

// Decade returns the decade bucket of a number: ⌊(n−1)/10⌋.
// Numbers 81..90 all fall in bucket 8.
func Decade(n int) int {
	return (n - 1) / 10
}

// Finale returns the last decimal digit of a number, 0..9.
func Finale(n int) int {
	return n % 10
}

// InRange reports whether n is a drawable number.
func InRange(n int) bool {
	return n >= MinNumber && n <= MaxNumber
}

// ─── Stream ─────────────────────────────────────────────────────────────────

// Stream identifies one of the two independently predicted number sets.
type Stream string

const (
	StreamWinning Stream = "winning"
	StreamMachine Stream = "machine"
)

// Valid reports whether the stream is one of the two known streams.
func (s Stream) Valid() bool {
	return s == StreamWinning || s == StreamMachine
}

// ─── Draw Types ─────────────────────────────────────────────────────────────

// DrawType is a catalog entry for a scheduled lottery draw.
type DrawType struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Draw is a single lottery event: 5 winning numbers and optionally
// 5 machine numbers, all in 1..90. Numbers are stored in insertion
// order; callers sort when positional semantics matter.
type Draw struct {
	ID         int64     `json:"id"`
	DrawTypeID int64     `json:"draw_type_id"`
	Date       time.Time `json:"date"`
	DayOfWeek  int       `json:"day_of_week"` // 0=Sunday .. 6=Saturday
	Winning    []int     `json:"winning"`
	Machine    []int     `json:"machine,omitempty"` // nil when incomplete
}

// HasMachine reports whether the draw carries a complete machine set.
func (d Draw) HasMachine() bool {
	return len(d.Machine) == DrawSize
}

// Numbers returns the draw's number set for the given stream.
// Returns nil for the machine stream when the machine set is incomplete.
func (d Draw) Numbers(stream Stream) []int {
	if stream == StreamMachine {
		if !d.HasMachine() {
			return nil
		}
		return d.Machine
	}
	return d.Winning
}

// Key returns a canonical identity string for the draw's winning set,
// independent of stored order. Used for leakage guards and dedup.
func (d Draw) Key() string {
	sorted := append([]int(nil), d.Winning...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, n := range sorted {
		parts[i] = fmt.Sprintf("%02d", n)
	}
	return fmt.Sprintf("%d:%s", d.DrawTypeID, strings.Join(parts, "-"))
}

// SameNumbers reports whether two number sets are equal ignoring order.
func SameNumbers(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]int(nil), a...)
	bs := append([]int(nil), b...)
	sort.Ints(as)
	sort.Ints(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// ValidateSet checks that a played set is exactly DrawSize distinct
// numbers within 1..90. Returns ErrInvalidNumbers with detail otherwise.
func ValidateSet(numbers []int) error {
	if len(numbers) != DrawSize {
		return fmt.Errorf("%w: expected %d numbers, got %d", ErrInvalidNumbers, DrawSize, len(numbers))
	}
	seen := make(map[int]bool, DrawSize)
	for _, n := range numbers {
		if !InRange(n) {
			return fmt.Errorf("%w: %d is outside %d..%d", ErrInvalidNumbers, n, MinNumber, MaxNumber)
		}
		if seen[n] {
			return fmt.Errorf("%w: duplicate number %d", ErrInvalidNumbers, n)
		}
		seen[n] = true
	}
	return nil
}

// ─── Weights ────────────────────────────────────────────────────────────────

// Strategy keys recognized by the ensemble and the brain. The lstm key
// is reserved for the external ML feature source and is never tuned by
// the learner.
const (
	KeyHot         = "hot"
	KeyDue         = "due"
	KeyCorrelation = "correlation"
	KeyPosition    = "position"
	KeyBalanced    = "balanced"
	KeyStatistical = "statistical"
	KeyFinales     = "finales"
	KeyLSTM        = "lstm"
)

// WeightKeys lists all recognized keys in the canonical ensemble order.
var WeightKeys = []string{
	KeyHot, KeyDue, KeyCorrelation, KeyPosition,
	KeyBalanced, KeyStatistical, KeyFinales, KeyLSTM,
}

// Weight bounds: every weight is clamped into [MinWeight, MaxWeight]
// before L1 normalization.
const (
	MinWeight = 0.05
	MaxWeight = 0.60
)

// Weights is the fixed-key record of strategy weights for one stream.
// All weights sum to 1 after normalization.
type Weights struct {
	Hot         float64 `json:"hot"`
	Due         float64 `json:"due"`
	Correlation float64 `json:"correlation"`
	Position    float64 `json:"position"`
	Balanced    float64 `json:"balanced"`
	Statistical float64 `json:"statistical"`
	Finales     float64 `json:"finales"`
	LSTM        float64 `json:"lstm"`
}

// DefaultWeights returns the initial weight distribution for a fresh brain.
func DefaultWeights() Weights {
	return Weights{
		Hot:         0.20,
		Due:         0.15,
		Correlation: 0.15,
		Position:    0.10,
		Balanced:    0.10,
		Statistical: 0.15,
		Finales:     0.10,
		LSTM:        0.05,
	}
}

// Get returns the weight for a strategy key, or 0 for unknown keys.
func (w Weights) Get(key string) float64 {
	switch key {
	case KeyHot:
		return w.Hot
	case KeyDue:
		return w.Due
	case KeyCorrelation:
		return w.Correlation
	case KeyPosition:
		return w.Position
	case KeyBalanced:
		return w.Balanced
	case KeyStatistical:
		return w.Statistical
	case KeyFinales:
		return w.Finales
	case KeyLSTM:
		return w.LSTM
	}
	return 0
}

// Set assigns the weight for a strategy key. Unknown keys are ignored.
func (w *Weights) Set(key string, v float64) {
	switch key {
	case KeyHot:
		w.Hot = v
	case KeyDue:
		w.Due = v
	case KeyCorrelation:
		w.Correlation = v
	case KeyPosition:
		w.Position = v
	case KeyBalanced:
		w.Balanced = v
	case KeyStatistical:
		w.Statistical = v
	case KeyFinales:
		w.Finales = v
	case KeyLSTM:
		w.LSTM = v
	}
}

// Map returns the weights as a key → value map.
func (w Weights) Map() map[string]float64 {
	m := make(map[string]float64, len(WeightKeys))
	for _, k := range WeightKeys {
		m[k] = w.Get(k)
	}
	return m
}

// Sum returns the L1 mass of the weights.
func (w Weights) Sum() float64 {
	var s float64
	for _, k := range WeightKeys {
		s += w.Get(k)
	}
	return s
}

// Clamp bounds every weight into [MinWeight, MaxWeight].
func (w *Weights) Clamp() {
	for _, k := range WeightKeys {
		v := w.Get(k)
		if v < MinWeight {
			v = MinWeight
		}
		if v > MaxWeight {
			v = MaxWeight
		}
		w.Set(k, v)
	}
}

// Normalize scales the weights so they sum to 1. A zero-mass record is
// reset to defaults first.
func (w *Weights) Normalize() {
	sum := w.Sum()
	if sum <= 0 {
		*w = DefaultWeights()
		sum = w.Sum()
	}
	for _, k := range WeightKeys {
		w.Set(k, w.Get(k)/sum)
	}
}
