// Package ensemble combines the strategy pool into a single score map
// per stream, selects a decade-balanced set of numbers from it, and
// applies the machine-to-winning correlation boost that produces the
// hybrid selection.
package ensemble

import (
	"math"
	"sort"

	"github.com/drawsense/drawsense/internal/analysis"
	"github.com/drawsense/drawsense/internal/domain"
	"github.com/drawsense/drawsense/internal/strategy"
)

// ─── Ensemble Scorer ────────────────────────────────────────────────────────

// ListLength bounds each strategy's ranked contribution.
const ListLength = 15

// Scoring constants. Redistribution shifts a share of a high scorer to
// its immediate neighbors; the synergy multipliers reward consensus
// across strategies and discount isolated high scores.
const (
	redistributionShare = 0.15
	redistributionTopN  = 15

	synergyStrong     = 1.20
	synergyModerate   = 1.10
	loneWolfPenalty   = 0.85
	loneWolfThreshold = 2.0

	dueScoreCeiling = 150.0
)

// Result holds ensemble scores and vote counts for numbers 1..90.
// Index 0 is unused.
type Result struct {
	Scores [domain.MaxNumber + 1]float64
	Votes  [domain.MaxNumber + 1]int
}

// Candidate is one ranked entry of a Result.
type Candidate struct {
	Number int     `json:"number"`
	Score  float64 `json:"score"`
	Votes  int     `json:"votes"`
}

// weightedStrategies is the fixed evaluation order. Mixed stays out of
// the ensemble; it only serves the alternatives list.
var weightedStrategies = []string{
	domain.KeyHot,
	domain.KeyDue,
	domain.KeyPosition,
	domain.KeyCorrelation,
	domain.KeyBalanced,
	domain.KeyStatistical,
	domain.KeyFinales,
}

// ComputeScores runs every weighted strategy over the draw history and
// folds the ranked lists into one score map. The external list, when
// non-empty, contributes under the lstm weight. Votes count top-5
// appearances across strategies.
func ComputeScores(draws []domain.Draw, w domain.Weights, stream domain.Stream, external []int) Result {
	var res Result
	if len(draws) == 0 {
		return res
	}

	pool := strategy.Pool()
	var dueStats map[int]analysis.CycleStats

	for _, name := range weightedStrategies {
		weight := w.Get(name)
		if weight <= 0 {
			continue
		}
		list := pool[name](draws, ListLength, stream)
		if name == domain.KeyDue && dueStats == nil {
			dueStats = analysis.Cycles(draws, stream)
		}
		for i, n := range list {
			if !domain.InRange(n) {
				continue
			}
			res.Scores[n] += contribution(name, weight, i, n, dueStats)
			if i < domain.DrawSize {
				res.Votes[n]++
			}
		}
	}

	if len(external) > 0 {
		weight := w.Get(domain.KeyLSTM)
		for i, n := range external {
			if i >= ListLength || !domain.InRange(n) {
				continue
			}
			res.Scores[n] += weight * float64(ListLength-i) / ListLength
			if i < domain.DrawSize {
				res.Votes[n]++
			}
		}
	}

	redistributeToNeighbors(&res)
	amplifySynergy(&res)

	for n := domain.MinNumber; n <= domain.MaxNumber; n++ {
		if res.Scores[n] < 0 || math.IsNaN(res.Scores[n]) {
			res.Scores[n] = 0
		}
	}
	return res
}

// contribution computes one ranked entry's score share. Rank decay is
// linear over the list; a few strategies override it.
func contribution(name string, weight float64, rank, number int, dueStats map[int]analysis.CycleStats) float64 {
	decay := float64(ListLength-rank) / ListLength
	switch name {
	case domain.KeyDue:
		due := 0.0
		if cs, ok := dueStats[number]; ok {
			due = math.Min(cs.DueScore, dueScoreCeiling)
		}
		return weight * decay * (due / dueScoreCeiling)
	case domain.KeyPosition:
		return weight * 2.0
	case domain.KeyBalanced:
		if rank < domain.DrawSize {
			return weight * 3.0
		}
		return weight * (1.0 + 2.0*float64(ListLength-rank)/10.0)
	default:
		return weight * decay
	}
}

// redistributeToNeighbors shifts a fixed share of the strongest scores
// to their in-range neighbors. The donor set is snapshotted before any
// mutation so the pass never cascades.
func redistributeToNeighbors(res *Result) {
	top := RankedCandidates(*res, redistributionTopN)
	for _, c := range top {
		share := redistributionShare * c.Score
		if lo := c.Number - 1; domain.InRange(lo) {
			res.Scores[lo] += share
		}
		if hi := c.Number + 1; domain.InRange(hi) {
			res.Scores[hi] += share
		}
	}
}

func amplifySynergy(res *Result) {
	for n := domain.MinNumber; n <= domain.MaxNumber; n++ {
		switch {
		case res.Votes[n] >= 5:
			res.Scores[n] *= synergyStrong
		case res.Votes[n] >= 3:
			res.Scores[n] *= synergyModerate
		case res.Votes[n] == 0 && res.Scores[n] > loneWolfThreshold:
			res.Scores[n] *= loneWolfPenalty
		}
	}
}

// RankedCandidates returns the top-k positive scorers, ties broken by
// ascending number.
func RankedCandidates(res Result, k int) []Candidate {
	ranked := make([]Candidate, 0, k)
	for n := domain.MinNumber; n <= domain.MaxNumber; n++ {
		if res.Scores[n] > 0 {
			ranked = append(ranked, Candidate{Number: n, Score: res.Scores[n], Votes: res.Votes[n]})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Number < ranked[j].Number
	})
	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}
