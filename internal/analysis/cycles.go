// Package analysis provides pure, stateless statistical functions over
// a chronologically ordered draw sequence. Analyzers own no state and
// never retain the slices they are given.
package analysis

import (
	"math"
	"sort"

	"github.com/drawsense/drawsense/internal/domain"
)

// ─── Cycle / Due Analysis ───────────────────────────────────────────────────

// MaxDueScore caps the due score; a number that has never appeared
// scores the full cap.
const MaxDueScore = 200

// ReliableCycleCount is the minimum completed cycles before a number
// qualifies as a reliable due candidate.
const ReliableCycleCount = 5

// CycleStats summarizes the appearance rhythm of a single number.
type CycleStats struct {
	Number      int     `json:"number"`
	AvgCycle    float64 `json:"avg_cycle"`
	MedianCycle float64 `json:"median_cycle"`
	MinCycle    int     `json:"min_cycle"`
	MaxCycle    int     `json:"max_cycle"`
	StdDev      float64 `json:"std_dev"`
	CurrentGap  int     `json:"current_gap"`
	DueScore    float64 `json:"due_score"` // 0..200
	CycleCount  int     `json:"cycle_count"`
	IsOverdue   bool    `json:"is_overdue"`
	OverdueBy   float64 `json:"overdue_by"`
}

// Cycles computes per-number cycle statistics for the given stream.
// The returned map always holds an entry for every number 1..90; a
// number that never appeared has CycleCount 0 and DueScore 200.
func Cycles(draws []domain.Draw, stream domain.Stream) map[int]CycleStats {
	lastSeen := make(map[int]int, domain.MaxNumber)
	gaps := make(map[int][]int, domain.MaxNumber)

	idx := 0
	for _, d := range draws {
		nums := d.Numbers(stream)
		if nums == nil {
			continue
		}
		for _, n := range nums {
			if !domain.InRange(n) {
				continue
			}
			if prev, seen := lastSeen[n]; seen {
				gaps[n] = append(gaps[n], idx-prev)
			}
			lastSeen[n] = idx
		}
		idx++
	}

	out := make(map[int]CycleStats, domain.MaxNumber)
	for n := domain.MinNumber; n <= domain.MaxNumber; n++ {
		cs := CycleStats{Number: n, DueScore: MaxDueScore}
		last, seen := lastSeen[n]
		if seen {
			cs.CurrentGap = idx - 1 - last
		} else {
			cs.CurrentGap = idx
		}

		g := gaps[n]
		cs.CycleCount = len(g)
		if len(g) > 0 {
			cs.AvgCycle, cs.StdDev = meanStdDev(g)
			cs.MedianCycle = median(g)
			cs.MinCycle, cs.MaxCycle = minMax(g)
		}
		if cs.AvgCycle > 0 {
			cs.DueScore = math.Min(MaxDueScore, 100*float64(cs.CurrentGap)/cs.AvgCycle)
			if float64(cs.CurrentGap) > cs.AvgCycle {
				cs.IsOverdue = true
				cs.OverdueBy = float64(cs.CurrentGap) - cs.AvgCycle
			}
		}
		out[n] = cs
	}
	return out
}

// MostDue returns numbers with at least minCycles completed cycles,
// ordered by due score descending, ties broken by ascending number.
func MostDue(stats map[int]CycleStats, minCycles, limit int) []CycleStats {
	var due []CycleStats
	for n := domain.MinNumber; n <= domain.MaxNumber; n++ {
		cs := stats[n]
		if cs.CycleCount >= minCycles {
			due = append(due, cs)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		if due[i].DueScore != due[j].DueScore {
			return due[i].DueScore > due[j].DueScore
		}
		return due[i].Number < due[j].Number
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due
}

// ─── Small numeric helpers ──────────────────────────────────────────────────

func meanStdDev(xs []int) (mean, stddev float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += float64(x)
	}
	mean = sum / float64(len(xs))
	var variance float64
	for _, x := range xs {
		d := float64(x) - mean
		variance += d * d
	}
	stddev = math.Sqrt(variance / float64(len(xs)))
	return mean, stddev
}

func median(xs []int) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]int(nil), xs...)
	sort.Ints(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return float64(sorted[mid-1]+sorted[mid]) / 2
}

func minMax(xs []int) (lo, hi int) {
	lo, hi = xs[0], xs[0]
	for _, x := range xs[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return lo, hi
}
