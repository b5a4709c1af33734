package analysis

import (
	"fmt"
	"strings"

	"github.com/drawsense/drawsense/internal/domain"
)

// ─── Decade Distribution ────────────────────────────────────────────────────

// DecadeStats summarizes how draws spread across the nine decade
// buckets (1..9, 10..19, …, 80..90 — the last bucket holds 11 numbers).
type DecadeStats struct {
	Counts   [domain.DecadeCount]int `json:"counts"`
	Patterns map[string]int          `json:"patterns"` // per-draw shape → occurrences
}

// Decades buckets every drawn number and records the per-draw pattern
// string (counts per decade joined by dashes, e.g. "0-2-1-1-1-0-0-0-0").
func Decades(draws []domain.Draw, stream domain.Stream) DecadeStats {
	stats := DecadeStats{Patterns: make(map[string]int)}
	for _, d := range draws {
		nums := d.Numbers(stream)
		if nums == nil {
			continue
		}
		var perDraw [domain.DecadeCount]int
		for _, n := range nums {
			if !domain.InRange(n) {
				continue
			}
			dec := domain.Decade(n)
			stats.Counts[dec]++
			perDraw[dec]++
		}
		stats.Patterns[patternString(perDraw)]++
	}
	return stats
}

func patternString(counts [domain.DecadeCount]int) string {
	parts := make([]string, domain.DecadeCount)
	for i, c := range counts {
		parts[i] = fmt.Sprintf("%d", c)
	}
	return strings.Join(parts, "-")
}

// TopPerDecade returns the most frequent number inside each decade
// bucket, skipping buckets where nothing was drawn. Ties resolve to
// the lowest number.
func TopPerDecade(draws []domain.Draw, stream domain.Stream) [domain.DecadeCount]int {
	freq := Frequencies(draws, stream)
	var best [domain.DecadeCount]int
	var bestCount [domain.DecadeCount]int
	for n := domain.MinNumber; n <= domain.MaxNumber; n++ {
		dec := domain.Decade(n)
		if freq[n] > bestCount[dec] {
			bestCount[dec] = freq[n]
			best[dec] = n
		}
	}
	return best
}
