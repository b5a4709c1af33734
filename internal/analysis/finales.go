package analysis

import (
	"math"
	"sort"

	"github.com/drawsense/drawsense/internal/domain"
)

// ─── Finales (last-digit groups) ────────────────────────────────────────────

// FinaleStats summarizes one last-digit group 0..9.
type FinaleStats struct {
	Finale      int     `json:"finale"`
	Count       int     `json:"count"`       // total numbers drawn with this finale
	Appearances int     `json:"appearances"` // distinct draws containing the finale
	Percentage  float64 `json:"percentage"`  // share of all drawn numbers
	CurrentGap  int     `json:"current_gap"` // draws since the finale last appeared
	DueScore    float64 `json:"due_score"`   // 0..200, analogous to cycle due score
}

// Finales groups drawn numbers by n mod 10 and computes per-finale
// frequency and due statistics.
func Finales(draws []domain.Draw, stream domain.Stream) []FinaleStats {
	var counts [10]int
	var appearances [10]int
	lastSeen := [10]int{}
	for f := range lastSeen {
		lastSeen[f] = -1
	}

	total := 0
	idx := 0
	for _, d := range draws {
		nums := d.Numbers(stream)
		if nums == nil {
			continue
		}
		var present [10]bool
		for _, n := range nums {
			if !domain.InRange(n) {
				continue
			}
			f := domain.Finale(n)
			counts[f]++
			present[f] = true
			total++
		}
		for f, p := range present {
			if p {
				appearances[f]++
				lastSeen[f] = idx
			}
		}
		idx++
	}

	out := make([]FinaleStats, 10)
	for f := 0; f < 10; f++ {
		fs := FinaleStats{Finale: f, Count: counts[f], Appearances: appearances[f]}
		if total > 0 {
			fs.Percentage = 100 * float64(counts[f]) / float64(total)
		}
		if lastSeen[f] >= 0 {
			fs.CurrentGap = idx - 1 - lastSeen[f]
		} else {
			fs.CurrentGap = idx
		}
		if appearances[f] > 0 && idx > 0 {
			avgCycle := float64(idx) / float64(appearances[f])
			fs.DueScore = math.Min(MaxDueScore, 100*float64(fs.CurrentGap)/avgCycle)
		} else {
			fs.DueScore = MaxDueScore
		}
		out[f] = fs
	}
	return out
}

// RankFinales orders finales by the weighted blend
// 0.6·dueScore + 0.4·percentage, descending; ties by ascending finale.
func RankFinales(stats []FinaleStats) []FinaleStats {
	ranked := append([]FinaleStats(nil), stats...)
	sort.SliceStable(ranked, func(i, j int) bool {
		si := 0.6*ranked[i].DueScore + 0.4*ranked[i].Percentage
		sj := 0.6*ranked[j].DueScore + 0.4*ranked[j].Percentage
		if si != sj {
			return si > sj
		}
		return ranked[i].Finale < ranked[j].Finale
	})
	return ranked
}
