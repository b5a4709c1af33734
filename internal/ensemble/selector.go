package ensemble

import (
	"math"
	"sort"

	"github.com/drawsense/drawsense/internal/domain"
)

// ─── Decade-Balanced Selector ───────────────────────────────────────────────

// MaxPerDecade caps how many selected numbers may share a decade.
const MaxPerDecade = 2

// Confidence bounds. The hybrid path starts slightly higher and may
// climb slightly further than the main path.
const (
	ConfidenceBase = 40.0
	ConfidenceCap  = 95.0
	HybridBase     = 42.0
	HybridCap      = 97.0
)

// Select picks DrawSize numbers from the score map, greedily in
// descending score order while holding each decade to MaxPerDecade. A
// second pass fills any remainder ignoring decades. The result is
// sorted ascending; an all-zero score map yields nil.
func Select(scores [domain.MaxNumber + 1]float64) []int {
	ranked := make([]int, 0, domain.MaxNumber)
	for n := domain.MinNumber; n <= domain.MaxNumber; n++ {
		if scores[n] > 0 {
			ranked = append(ranked, n)
		}
	}
	if len(ranked) == 0 {
		return nil
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if scores[ranked[i]] != scores[ranked[j]] {
			return scores[ranked[i]] > scores[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	selected := make([]int, 0, domain.DrawSize)
	taken := make(map[int]bool, domain.DrawSize)
	var perDecade [domain.DecadeCount]int

	for _, n := range ranked {
		if len(selected) >= domain.DrawSize {
			break
		}
		if perDecade[domain.Decade(n)] >= MaxPerDecade {
			continue
		}
		selected = append(selected, n)
		taken[n] = true
		perDecade[domain.Decade(n)]++
	}
	if len(selected) < domain.DrawSize {
		for _, n := range ranked {
			if len(selected) >= domain.DrawSize {
				break
			}
			if !taken[n] {
				selected = append(selected, n)
				taken[n] = true
			}
		}
	}

	sort.Ints(selected)
	return selected
}

// Confidence maps the average selected score to a percentage between
// base and cap. An empty selection reports zero.
func Confidence(scores [domain.MaxNumber + 1]float64, selected []int, base, ceiling float64) float64 {
	if len(selected) == 0 {
		return 0
	}
	sum := 0.0
	for _, n := range selected {
		if domain.InRange(n) {
			sum += scores[n]
		}
	}
	avg := sum / float64(len(selected))
	return math.Min(ceiling, avg*100+base)
}
