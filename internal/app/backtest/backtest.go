// Package backtest replays draw history against the strategy pool and
// reports per-strategy hit rates. Replay points run on a bounded
// worker pool since each point rescans its full history prefix.
package backtest

import (
	"context"
	"sort"
	"sync"

	"github.com/drawsense/drawsense/internal/domain"
	"github.com/drawsense/drawsense/internal/ensemble"
	"github.com/drawsense/drawsense/internal/strategy"
)

// Config controls the replay.
type Config struct {
	// MinHistory is the smallest prefix a replay point may score on.
	MinHistory int

	// Workers bounds concurrent replay points.
	Workers int

	// Weights are the ensemble weights to replay with. Zero value
	// replays with the defaults.
	Weights domain.Weights
}

// DefaultConfig returns safe replay defaults.
func DefaultConfig() Config {
	return Config{
		MinHistory: 30,
		Workers:    4,
		Weights:    domain.DefaultWeights(),
	}
}

// StrategyResult is one strategy's tally over the replay.
type StrategyResult struct {
	Strategy string  `json:"strategy"`
	Points   int     `json:"points"`
	Hits     int     `json:"hits"`
	HitRate  float64 `json:"hitRate"`
}

// Result is the full replay report.
type Result struct {
	Points     int              `json:"points"`
	Strategies []StrategyResult `json:"strategies"`
	Ensemble   StrategyResult   `json:"ensemble"`
}

// pointTally is one replay point's hit counts.
type pointTally struct {
	strategyHits map[string]int
	ensembleHits int
}

// Run replays every eligible point of the history. Each point scores
// the strategies on the draws strictly before it and counts overlaps
// with the point's actual winning set.
func Run(ctx context.Context, cfg Config, draws []domain.Draw) (Result, error) {
	if cfg.MinHistory <= 0 {
		cfg.MinHistory = DefaultConfig().MinHistory
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.Weights.Sum() == 0 {
		cfg.Weights = domain.DefaultWeights()
	}

	names := strategyNames()
	res := Result{}
	if len(draws) <= cfg.MinHistory {
		return res, nil
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		sem     = make(chan struct{}, cfg.Workers)
		total   = map[string]int{}
		ensHits = 0
		points  = 0
	)

	for t := cfg.MinHistory; t < len(draws); t++ {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(t int) {
			defer wg.Done()
			defer func() { <-sem }()

			tally := replayPoint(cfg, draws[:t], draws[t].Winning)

			mu.Lock()
			points++
			for name, hits := range tally.strategyHits {
				total[name] += hits
			}
			ensHits += tally.ensembleHits
			mu.Unlock()
		}(t)
	}
	wg.Wait()

	res.Points = points
	for _, name := range names {
		res.Strategies = append(res.Strategies, StrategyResult{
			Strategy: name,
			Points:   points,
			Hits:     total[name],
			HitRate:  rate(total[name], points),
		})
	}
	res.Ensemble = StrategyResult{
		Strategy: "ensemble",
		Points:   points,
		Hits:     ensHits,
		HitRate:  rate(ensHits, points),
	}
	return res, nil
}

// replayPoint scores one history prefix against the actual outcome.
func replayPoint(cfg Config, prefix []domain.Draw, actual []int) pointTally {
	actualSet := make(map[int]bool, len(actual))
	for _, n := range actual {
		actualSet[n] = true
	}

	tally := pointTally{strategyHits: map[string]int{}}
	for name, fn := range strategy.Pool() {
		for _, n := range fn(prefix, domain.DrawSize, domain.StreamWinning) {
			if actualSet[n] {
				tally.strategyHits[name]++
			}
		}
	}

	scores := ensemble.ComputeScores(prefix, cfg.Weights, domain.StreamWinning, nil)
	for _, n := range ensemble.Select(scores.Scores) {
		if actualSet[n] {
			tally.ensembleHits++
		}
	}
	return tally
}

func strategyNames() []string {
	names := make([]string, 0, len(strategy.Pool()))
	for name := range strategy.Pool() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// rate is average hits per replay point.
func rate(hits, points int) float64 {
	if points == 0 {
		return 0
	}
	return float64(hits) / float64(points)
}
