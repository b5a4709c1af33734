package brain

import (
	"context"
	"log"

	"github.com/drawsense/drawsense/internal/domain"
	"github.com/drawsense/drawsense/internal/ensemble"
	"github.com/drawsense/drawsense/internal/strategy"
)

// ─── Online Learning ────────────────────────────────────────────────────────

// Learning constants. A strategy that placed three or more of the
// actual numbers in its top candidates gains twice the learning rate;
// one or two matches gain the rate; a blank round loses half of it.
const (
	LearnRate = 0.05

	HistoryLimit = 50

	stratCandidates = 10
	strongScore     = 3.0
	nearMissCredit  = 0.25
)

// tunedStrategies are the keys adjusted by Learn. The lstm weight is
// governed by the external feature source, never tuned here.
var tunedStrategies = []string{
	domain.KeyHot,
	domain.KeyDue,
	domain.KeyPosition,
	domain.KeyCorrelation,
	domain.KeyBalanced,
	domain.KeyStatistical,
	domain.KeyFinales,
}

// LearnResult summarizes one learning pass.
type LearnResult struct {
	GlobalMatch int                `json:"globalMatch"`
	StratScores map[string]float64 `json:"stratScores"`
	NewWeights  map[string]float64 `json:"newWeights"`
}

// Learn folds one actual draw outcome into the brain: it replays the
// ensemble on the history without the outcome, scores every strategy
// against the actual numbers, and nudges the weights accordingly.
// drawTypeID scopes the per-type stats when non-zero.
func (b *Brain) Learn(ctx context.Context, actualDraw []int, allDraws []domain.Draw, drawTypeID int64) (LearnResult, error) {
	if err := domain.ValidateSet(actualDraw); err != nil {
		return LearnResult{}, err
	}

	// The outcome draw must not train on itself: drop every draw whose
	// stream set equals the actual numbers.
	filtered := make([]domain.Draw, 0, len(allDraws))
	for _, d := range allDraws {
		if nums := d.Numbers(b.stream); nums != nil && domain.SameNumbers(nums, actualDraw) {
			continue
		}
		filtered = append(filtered, d)
	}

	actual := make(map[int]bool, len(actualDraw))
	for _, n := range actualDraw {
		actual[n] = true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	res := ensemble.ComputeScores(filtered, b.state.Weights, b.stream, nil)
	globalMatch := 0
	for _, c := range ensemble.RankedCandidates(res, domain.DrawSize) {
		if actual[c.Number] {
			globalMatch++
		}
	}

	b.state.Stats.Global.record(globalMatch)
	if drawTypeID != 0 {
		byType := b.state.Stats.ByType[drawTypeID]
		byType.record(globalMatch)
		b.state.Stats.ByType[drawTypeID] = byType
	}

	pool := strategy.Pool()
	stratScores := make(map[string]float64, len(tunedStrategies))
	for _, name := range tunedStrategies {
		list := pool[name](filtered, stratCandidates, b.stream)
		stratScores[name] = scoreStrategy(list, actual)
	}

	for _, name := range tunedStrategies {
		w := b.state.Weights.Get(name)
		switch score := stratScores[name]; {
		case score >= strongScore:
			w += 2 * LearnRate
		case score >= 1:
			w += LearnRate
		default:
			w -= 0.5 * LearnRate
		}
		b.state.Weights.Set(name, w)
	}
	b.state.Weights.Clamp()
	b.state.Weights.Normalize()

	now := b.now()
	b.state.LastTuned = &now
	b.state.LastAnalyzedDraw = append([]int(nil), actualDraw...)
	b.state.LastAnalyzedByType[drawTypeID] = append([]int(nil), actualDraw...)
	b.state.History = append(b.state.History, HistoryEntry{
		Date:        now,
		Draw:        append([]int(nil), actualDraw...),
		StratScores: copyMap(stratScores),
		GlobalMatch: globalMatch,
		NewWeights:  b.state.Weights.Map(),
	})
	if len(b.state.History) > HistoryLimit {
		b.state.History = b.state.History[len(b.state.History)-HistoryLimit:]
	}

	b.persist(ctx)
	log.Printf("[brain] %s: learned draw %v, match=%d", b.stream, actualDraw, globalMatch)

	return LearnResult{
		GlobalMatch: globalMatch,
		StratScores: copyMap(stratScores),
		NewWeights:  b.state.Weights.Map(),
	}, nil
}

// scoreStrategy credits a candidate list against the actual numbers:
// one point per exact match, a quarter point per neighbor of an actual
// number that was not itself drawn.
func scoreStrategy(candidates []int, actual map[int]bool) float64 {
	score := 0.0
	for _, n := range candidates {
		switch {
		case actual[n]:
			score += 1.0
		case actual[n-1] || actual[n+1]:
			score += nearMissCredit
		}
	}
	return score
}
