package analysis

import (
	"sort"

	"github.com/drawsense/drawsense/internal/domain"
)

// ─── Co-occurrence Followers ────────────────────────────────────────────────

// Follower-retention thresholds: an (anchor → follower) transition must
// be observed at least MinFollowerCount times with conditional
// probability above MinFollowerProb.
const (
	MinFollowerCount = 3
	MinFollowerProb  = 0.10
)

// Follower describes a number that tends to appear in the draw after
// its anchor.
type Follower struct {
	Number      int     `json:"number"`
	Count       int     `json:"count"`
	Probability float64 `json:"probability"` // P(follower | anchor)
}

// Followers accumulates ordered (draw_i anchor → draw_{i+1} follower)
// transitions and returns, per anchor, the top 10 retained followers
// sorted by probability descending.
func Followers(draws []domain.Draw, stream domain.Stream) map[int][]Follower {
	// Collect the per-draw sets for the stream, skipping absent ones,
	// so consecutive indices really are consecutive events.
	var seqs [][]int
	for _, d := range draws {
		if nums := d.Numbers(stream); nums != nil {
			seqs = append(seqs, nums)
		}
	}
	if len(seqs) < 2 {
		return nil
	}

	anchorFreq := make(map[int]int)
	transitions := make(map[int]map[int]int)
	for i := 0; i < len(seqs)-1; i++ {
		for _, anchor := range seqs[i] {
			anchorFreq[anchor]++
			followers := transitions[anchor]
			if followers == nil {
				followers = make(map[int]int)
				transitions[anchor] = followers
			}
			for _, next := range seqs[i+1] {
				followers[next]++
			}
		}
	}

	out := make(map[int][]Follower)
	for anchor, followers := range transitions {
		freq := anchorFreq[anchor]
		if freq == 0 {
			continue
		}
		var kept []Follower
		for n, count := range followers {
			p := float64(count) / float64(freq)
			if count >= MinFollowerCount && p > MinFollowerProb {
				kept = append(kept, Follower{Number: n, Count: count, Probability: p})
			}
		}
		if len(kept) == 0 {
			continue
		}
		sort.SliceStable(kept, func(i, j int) bool {
			if kept[i].Probability != kept[j].Probability {
				return kept[i].Probability > kept[j].Probability
			}
			return kept[i].Number < kept[j].Number
		})
		if len(kept) > 10 {
			kept = kept[:10]
		}
		out[anchor] = kept
	}
	return out
}
