package analysis

import (
	"sort"

	"github.com/drawsense/drawsense/internal/domain"
)

// ─── Frequency & Position Analysis ──────────────────────────────────────────

// NumberCount pairs a number with an occurrence count.
type NumberCount struct {
	Number int `json:"number"`
	Count  int `json:"count"`
}

// Frequencies counts how often each number appeared in the stream.
// Index 0 is unused; indices 1..90 hold counts.
func Frequencies(draws []domain.Draw, stream domain.Stream) [domain.MaxNumber + 1]int {
	var freq [domain.MaxNumber + 1]int
	for _, d := range draws {
		for _, n := range d.Numbers(stream) {
			if domain.InRange(n) {
				freq[n]++
			}
		}
	}
	return freq
}

// TopByFrequency returns the k most frequent numbers, ties broken by
// ascending number for determinism.
func TopByFrequency(draws []domain.Draw, stream domain.Stream, k int) []NumberCount {
	freq := Frequencies(draws, stream)
	return rankCounts(freq, k)
}

func rankCounts(freq [domain.MaxNumber + 1]int, k int) []NumberCount {
	ranked := make([]NumberCount, 0, domain.MaxNumber)
	for n := domain.MinNumber; n <= domain.MaxNumber; n++ {
		if freq[n] > 0 {
			ranked = append(ranked, NumberCount{Number: n, Count: freq[n]})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Number < ranked[j].Number
	})
	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// PositionTop holds the most frequent numbers for one sorted position.
type PositionTop struct {
	Position int           `json:"position"` // 1..5
	Top      []NumberCount `json:"top"`
}

// Positions sorts each draw ascending and accumulates per-position
// counts, returning the top 10 numbers for each of the 5 positions.
func Positions(draws []domain.Draw, stream domain.Stream) []PositionTop {
	var counts [domain.DrawSize][domain.MaxNumber + 1]int
	for _, d := range draws {
		nums := d.Numbers(stream)
		if len(nums) != domain.DrawSize {
			continue
		}
		sorted := append([]int(nil), nums...)
		sort.Ints(sorted)
		for pos, n := range sorted {
			if domain.InRange(n) {
				counts[pos][n]++
			}
		}
	}

	out := make([]PositionTop, domain.DrawSize)
	for pos := 0; pos < domain.DrawSize; pos++ {
		out[pos] = PositionTop{
			Position: pos + 1,
			Top:      rankCounts(counts[pos], 10),
		}
	}
	return out
}
