package ensemble

import (
	"sort"

	"github.com/drawsense/drawsense/internal/domain"
)

// ─── Machine→Winning Correlation Booster ────────────────────────────────────

// BoostFactor multiplies the score of a winning number correlated with
// the predicted machine set. Applied at most once per number.
const BoostFactor = 1.30

// correlatedPerMachine caps how many winning numbers each machine
// number recommends.
const correlatedPerMachine = 10

// Matrix counts machine/winning co-occurrences: Matrix[m][w] is the
// number of draws where machine number m and winning number w appeared
// together. Draws without a complete machine set are skipped.
type Matrix struct {
	Counts map[int]map[int]int
	Draws  int // draws contributing to the matrix
}

// BuildMatrix scans the history for complete draws.
func BuildMatrix(draws []domain.Draw) Matrix {
	m := Matrix{Counts: make(map[int]map[int]int)}
	for _, d := range draws {
		if !d.HasMachine() {
			continue
		}
		m.Draws++
		for _, mn := range d.Machine {
			row := m.Counts[mn]
			if row == nil {
				row = make(map[int]int)
				m.Counts[mn] = row
			}
			for _, wn := range d.Winning {
				row[wn]++
			}
		}
	}
	return m
}

// corrEntry pairs a winning number with its co-occurrence count.
type corrEntry struct {
	number int
	count  int
}

// topCorrelated returns the strongest winning partners of one machine
// number, count descending, ties ascending.
func (m Matrix) topCorrelated(machine, k int) []corrEntry {
	row := m.Counts[machine]
	if len(row) == 0 {
		return nil
	}
	entries := make([]corrEntry, 0, len(row))
	for wn, count := range row {
		entries = append(entries, corrEntry{number: wn, count: count})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].number < entries[j].number
	})
	if len(entries) > k {
		entries = entries[:k]
	}
	return entries
}

// BoostResult is the outcome of applying the booster to a score map.
type BoostResult struct {
	Scores              [domain.MaxNumber + 1]float64
	BoostedCount        int
	CorrelationStrength float64
}

// Boost multiplies the main scores of winning numbers recommended by
// the predicted machine set. Each number is boosted once even when
// several machine numbers recommend it. CorrelationStrength summarizes
// how connected the machine prediction is: the average of the top
// co-occurrence counts, normalized by the matrix depth.
func (m Matrix) Boost(scores [domain.MaxNumber + 1]float64, machinePred []int) BoostResult {
	res := BoostResult{Scores: scores}
	if m.Draws == 0 || len(machinePred) == 0 {
		return res
	}

	boosted := make(map[int]bool)
	countSum, countN := 0, 0
	for _, mn := range machinePred {
		for _, e := range m.topCorrelated(mn, correlatedPerMachine) {
			countSum += e.count
			countN++
			if boosted[e.number] || !domain.InRange(e.number) || res.Scores[e.number] <= 0 {
				continue
			}
			res.Scores[e.number] *= BoostFactor
			boosted[e.number] = true
		}
	}
	res.BoostedCount = len(boosted)

	if countN > 0 {
		strength := float64(countSum) / float64(countN) / float64(m.Draws)
		if strength > 1 {
			strength = 1
		}
		res.CorrelationStrength = strength
	}
	return res
}
