// Package strategy implements the deterministic scoring strategies of
// the prediction engine. Every strategy takes a chronological draw
// sequence, a target count k, and a stream, and returns up to k
// distinct numbers, best first. Ties always resolve to the ascending
// number so identical inputs yield identical outputs.
//
// Strategies never propagate errors: on thin or empty data they return
// a short or empty list and the ensemble contributes nothing for them.
package strategy

import (
	"sort"

	"github.com/drawsense/drawsense/internal/analysis"
	"github.com/drawsense/drawsense/internal/domain"
)

// Names of the pool strategies. Mixed is served as an alternative list
// only; it carries no ensemble weight of its own.
const (
	NameHot         = domain.KeyHot
	NameDue         = domain.KeyDue
	NamePosition    = domain.KeyPosition
	NameMixed       = "mixed"
	NameCorrelation = domain.KeyCorrelation
	NameBalanced    = domain.KeyBalanced
	NameStatistical = domain.KeyStatistical
	NameFinales     = domain.KeyFinales
)

// Func is the common strategy shape.
type Func func(draws []domain.Draw, k int, stream domain.Stream) []int

// Pool returns the named strategies in canonical order.
func Pool() map[string]Func {
	return map[string]Func{
		NameHot:         Hot,
		NameDue:         Due,
		NamePosition:    Position,
		NameMixed:       Mixed,
		NameCorrelation: Correlation,
		NameBalanced:    Balanced,
		NameStatistical: Statistical,
		NameFinales:     Finales,
	}
}

// ─── hot ────────────────────────────────────────────────────────────────────

// Hot returns the top-k numbers by raw frequency.
func Hot(draws []domain.Draw, k int, stream domain.Stream) []int {
	top := analysis.TopByFrequency(draws, stream, k)
	out := make([]int, 0, len(top))
	for _, nc := range top {
		out = append(out, nc.Number)
	}
	return out
}

// ─── due ────────────────────────────────────────────────────────────────────

// minDueCycles is the floor for a number to be considered by the due
// strategy; looser than the reliable-candidate threshold used for
// overdue alerts.
const minDueCycles = 3

// Due returns numbers with at least three completed cycles, sorted by
// due score descending.
func Due(draws []domain.Draw, k int, stream domain.Stream) []int {
	stats := analysis.Cycles(draws, stream)
	due := analysis.MostDue(stats, minDueCycles, k)
	out := make([]int, 0, len(due))
	for _, cs := range due {
		out = append(out, cs.Number)
	}
	return out
}

// ─── position ───────────────────────────────────────────────────────────────

// Position picks the most frequent number for each sorted position
// 1..5, skipping numbers already chosen, then pads with hot numbers.
func Position(draws []domain.Draw, k int, stream domain.Stream) []int {
	positions := analysis.Positions(draws, stream)
	chosen := make([]int, 0, k)
	seen := make(map[int]bool, k)

	for _, pt := range positions {
		for _, nc := range pt.Top {
			if !seen[nc.Number] {
				chosen = append(chosen, nc.Number)
				seen[nc.Number] = true
				break
			}
		}
		if len(chosen) >= k {
			return chosen[:k]
		}
	}

	// Pad with hot numbers not already selected.
	for _, n := range Hot(draws, k+domain.DrawSize, stream) {
		if len(chosen) >= k {
			break
		}
		if !seen[n] {
			chosen = append(chosen, n)
			seen[n] = true
		}
	}
	return chosen
}

// ─── mixed ──────────────────────────────────────────────────────────────────

// Mixed interleaves hot and due candidates.
func Mixed(draws []domain.Draw, k int, stream domain.Stream) []int {
	hot := Hot(draws, k, stream)
	due := Due(draws, k, stream)

	out := make([]int, 0, k)
	seen := make(map[int]bool, k)
	for i := 0; len(out) < k && (i < len(hot) || i < len(due)); i++ {
		if i < len(hot) && !seen[hot[i]] {
			out = append(out, hot[i])
			seen[hot[i]] = true
		}
		if len(out) >= k {
			break
		}
		if i < len(due) && !seen[due[i]] {
			out = append(out, due[i])
			seen[due[i]] = true
		}
	}
	return out
}

// ─── correlation ────────────────────────────────────────────────────────────

// Correlation walks the retained pairs in lift order, adding both
// members until k numbers are collected. If the lift filter leaves the
// walk short it continues over the count-ranked pairs, which keeps the
// strategy productive on histories of near-fixed combinations.
func Correlation(draws []domain.Draw, k int, stream domain.Stream) []int {
	out := make([]int, 0, k)
	seen := make(map[int]bool, k)
	walk := func(pairs []analysis.Pair) bool {
		for _, p := range pairs {
			for _, n := range []int{p.A, p.B} {
				if len(out) >= k {
					return true
				}
				if !seen[n] {
					out = append(out, n)
					seen[n] = true
				}
			}
		}
		return len(out) >= k
	}
	if !walk(analysis.TopPairs(draws, stream)) {
		walk(analysis.FrequentPairs(draws, stream))
	}
	return out
}

// ─── balanced ───────────────────────────────────────────────────────────────

// decadeVisitOrder is the fixed traversal used by the balanced
// strategy: the middle range first, extremes last.
var decadeVisitOrder = []int{2, 3, 4, 5, 1, 6, 7, 0, 8}

// Balanced picks the most frequent number from each decade, visiting
// decades in the fixed order. Decades without any drawn number are
// skipped.
func Balanced(draws []domain.Draw, k int, stream domain.Stream) []int {
	best := analysis.TopPerDecade(draws, stream)
	out := make([]int, 0, k)
	for _, dec := range decadeVisitOrder {
		if len(out) >= k {
			break
		}
		if best[dec] != 0 {
			out = append(out, best[dec])
		}
	}
	return out
}

// ─── statistical ────────────────────────────────────────────────────────────

// Statistical scores every number against the most recent draw: pair
// lift against last-draw members contributes (lift−1)·2, and follower
// probability from last-draw anchors contributes probability·5.
func Statistical(draws []domain.Draw, k int, stream domain.Stream) []int {
	if len(draws) == 0 {
		return nil
	}
	var last []int
	for i := len(draws) - 1; i >= 0; i-- {
		if nums := draws[i].Numbers(stream); nums != nil {
			last = nums
			break
		}
	}
	if last == nil {
		return nil
	}
	inLast := make(map[int]bool, len(last))
	for _, n := range last {
		inLast[n] = true
	}

	var scores [domain.MaxNumber + 1]float64
	for _, p := range analysis.TopPairs(draws, stream) {
		if inLast[p.A] && !inLast[p.B] {
			scores[p.B] += (p.Lift - 1) * 2
		}
		if inLast[p.B] && !inLast[p.A] {
			scores[p.A] += (p.Lift - 1) * 2
		}
	}
	followers := analysis.Followers(draws, stream)
	for _, anchor := range last {
		for _, f := range followers[anchor] {
			scores[f.Number] += f.Probability * 5
		}
	}

	type scored struct {
		number int
		score  float64
	}
	ranked := make([]scored, 0, domain.MaxNumber)
	for n := domain.MinNumber; n <= domain.MaxNumber; n++ {
		if scores[n] > 0 {
			ranked = append(ranked, scored{n, scores[n]})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].number < ranked[j].number
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	out := make([]int, len(ranked))
	for i, s := range ranked {
		out[i] = s.number
	}
	return out
}

// ─── finales ────────────────────────────────────────────────────────────────

// Finales picks the top-3 finales by the 0.6·dueScore + 0.4·percentage
// blend, collects every number whose last digit matches, and ranks the
// pool by global frequency.
func Finales(draws []domain.Draw, k int, stream domain.Stream) []int {
	if len(draws) == 0 {
		return nil
	}
	ranked := analysis.RankFinales(analysis.Finales(draws, stream))
	wanted := make(map[int]bool, 3)
	for i := 0; i < 3 && i < len(ranked); i++ {
		wanted[ranked[i].Finale] = true
	}

	freq := analysis.Frequencies(draws, stream)
	type scored struct {
		number int
		count  int
	}
	var pool []scored
	for n := domain.MinNumber; n <= domain.MaxNumber; n++ {
		if wanted[domain.Finale(n)] {
			pool = append(pool, scored{n, freq[n]})
		}
	}
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].count != pool[j].count {
			return pool[i].count > pool[j].count
		}
		return pool[i].number < pool[j].number
	})
	if len(pool) > k {
		pool = pool[:k]
	}
	out := make([]int, len(pool))
	for i, s := range pool {
		out[i] = s.number
	}
	return out
}
