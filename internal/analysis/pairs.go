package analysis

import (
	"sort"

	"github.com/drawsense/drawsense/internal/domain"
)

// ─── Pairwise Correlation (lift) ────────────────────────────────────────────

// Pair-retention thresholds: a pair must co-occur at least MinPairCount
// times with a lift above MinPairLift to be considered associated.
const (
	MinPairCount = 3
	MinPairLift  = 1.2
)

// Pair is an unordered number pair with its co-occurrence strength.
// Lift > 1 indicates positive association relative to independence.
type Pair struct {
	A     int     `json:"a"`
	B     int     `json:"b"`
	Count int     `json:"count"`
	Lift  float64 `json:"lift"`
}

// Triple is a co-occurring number triple, kept for reporting only.
type Triple struct {
	A     int `json:"a"`
	B     int `json:"b"`
	C     int `json:"c"`
	Count int `json:"count"`
}

func countPairs(draws []domain.Draw, stream domain.Stream) (map[[2]int]int, int) {
	pairCounts := make(map[[2]int]int)
	n := 0
	for _, d := range draws {
		nums := d.Numbers(stream)
		if nums == nil {
			continue
		}
		n++
		sorted := append([]int(nil), nums...)
		sort.Ints(sorted)
		for i := 0; i < len(sorted); i++ {
			for j := i + 1; j < len(sorted); j++ {
				pairCounts[[2]int{sorted[i], sorted[j]}]++
			}
		}
	}
	return pairCounts, n
}

// TopPairs computes retained pairs sorted by lift descending, ties by
// count descending then ascending (a, b).
func TopPairs(draws []domain.Draw, stream domain.Stream) []Pair {
	freq := Frequencies(draws, stream)
	pairCounts, n := countPairs(draws, stream)
	if n == 0 {
		return nil
	}

	var pairs []Pair
	for key, count := range pairCounts {
		if count < MinPairCount {
			continue
		}
		a, b := key[0], key[1]
		denom := float64(freq[a]) * float64(freq[b])
		if denom == 0 {
			continue
		}
		lift := float64(count) * float64(n) / denom
		if lift > MinPairLift {
			pairs = append(pairs, Pair{A: a, B: b, Count: count, Lift: lift})
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].Lift != pairs[j].Lift {
			return pairs[i].Lift > pairs[j].Lift
		}
		if pairs[i].Count != pairs[j].Count {
			return pairs[i].Count > pairs[j].Count
		}
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
	return pairs
}

// FrequentPairs returns pairs meeting the count floor regardless of
// lift, sorted by count descending then ascending (a, b). In a history
// dominated by a few fixed combinations the lift of those pairs sits
// near 1 and TopPairs retains nothing; the correlation strategy falls
// back to this ranking.
func FrequentPairs(draws []domain.Draw, stream domain.Stream) []Pair {
	pairCounts, n := countPairs(draws, stream)
	if n == 0 {
		return nil
	}
	freq := Frequencies(draws, stream)

	var pairs []Pair
	for key, count := range pairCounts {
		if count < MinPairCount {
			continue
		}
		a, b := key[0], key[1]
		lift := 0.0
		if denom := float64(freq[a]) * float64(freq[b]); denom > 0 {
			lift = float64(count) * float64(n) / denom
		}
		pairs = append(pairs, Pair{A: a, B: b, Count: count, Lift: lift})
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].Count != pairs[j].Count {
			return pairs[i].Count > pairs[j].Count
		}
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
	return pairs
}

// TopTriples computes the most frequent triples (count ≥ MinPairCount),
// sorted by count descending. Reporting only — the strategies never
// consume triples.
func TopTriples(draws []domain.Draw, stream domain.Stream, limit int) []Triple {
	counts := make(map[[3]int]int)
	for _, d := range draws {
		nums := d.Numbers(stream)
		if nums == nil {
			continue
		}
		sorted := append([]int(nil), nums...)
		sort.Ints(sorted)
		for i := 0; i < len(sorted); i++ {
			for j := i + 1; j < len(sorted); j++ {
				for k := j + 1; k < len(sorted); k++ {
					counts[[3]int{sorted[i], sorted[j], sorted[k]}]++
				}
			}
		}
	}

	var triples []Triple
	for key, count := range counts {
		if count >= MinPairCount {
			triples = append(triples, Triple{A: key[0], B: key[1], C: key[2], Count: count})
		}
	}
	sort.SliceStable(triples, func(i, j int) bool {
		if triples[i].Count != triples[j].Count {
			return triples[i].Count > triples[j].Count
		}
		if triples[i].A != triples[j].A {
			return triples[i].A < triples[j].A
		}
		if triples[i].B != triples[j].B {
			return triples[i].B < triples[j].B
		}
		return triples[i].C < triples[j].C
	})
	if limit > 0 && len(triples) > limit {
		triples = triples[:limit]
	}
	return triples
}
