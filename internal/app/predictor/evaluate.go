package predictor

import (
	"context"

	"github.com/drawsense/drawsense/internal/analysis"
	"github.com/drawsense/drawsense/internal/domain"
	"github.com/drawsense/drawsense/internal/ensemble"
	"github.com/drawsense/drawsense/internal/infra/observability"
	"github.com/drawsense/drawsense/internal/strategy"
)

// Evaluation grades recommendations.
const (
	GradeExcellent = "Excellent"
	GradeGood      = "Bon"
	GradeAverage   = "Moyen"
	GradeRisky     = "Risqué"
)

// hot/warm cut lines on the engine score scale.
const (
	hotScore  = 3.0
	warmScore = 1.0
)

// NumberEvaluation is one played number against the engine's view.
type NumberEvaluation struct {
	Number int     `json:"number"`
	Score  float64 `json:"score"`
	IsHot  bool    `json:"isHot"`
	IsWarm bool    `json:"isWarm"`
}

// Evaluation is the full verdict on a played set.
type Evaluation struct {
	Numbers        []NumberEvaluation   `json:"numbers"`
	TotalScore     float64              `json:"totalScore"`
	Confidence     float64              `json:"confidence"`
	Matches        int                  `json:"matches"`
	StrongMatches  int                  `json:"strongMatches"`
	SynergyBonus   float64              `json:"synergyBonus"`
	Recommendation string               `json:"recommendation"`
	TopCandidates  []ensemble.Candidate `json:"topCandidates"`
	Analysis       AnalysisSummary      `json:"analysis"`
	Context        RequestContext       `json:"context"`
}

// Evaluate grades a user-supplied set against the current ensemble
// scores for the requested scope. Invalid sets return
// domain.ErrInvalidNumbers.
func (s *Service) Evaluate(ctx context.Context, numbers []int, drawTypeID int64, dayOfWeek *int) (*Evaluation, error) {
	if err := domain.ValidateSet(numbers); err != nil {
		return nil, err
	}
	defer observability.EvaluationsServed.Inc()

	var filter *int64
	if drawTypeID != 0 {
		filter = &drawTypeID
	}
	allDraws := s.source.GetDraws(ctx, filter)

	reqCtx := RequestContext{
		DrawTypeID:   drawTypeID,
		DrawTypeName: s.typeName(ctx, drawTypeID),
		DayOfWeek:    dayOfWeek,
	}
	draws := allDraws
	if dayOfWeek != nil {
		dayDraws := filterByDay(allDraws, *dayOfWeek)
		if len(dayDraws) >= MinDayDraws {
			draws = dayDraws
		} else {
			reqCtx.DayFallback = true
		}
	}
	reqCtx.DrawCount = len(draws)

	ev := &Evaluation{
		Numbers: make([]NumberEvaluation, 0, len(numbers)),
		Context: reqCtx,
	}
	if len(draws) == 0 {
		for _, n := range numbers {
			ev.Numbers = append(ev.Numbers, NumberEvaluation{Number: n})
		}
		ev.Recommendation = GradeRisky
		return ev, nil
	}

	var external []int
	if s.features != nil {
		external = s.features.Rank(ctx, draws, ensemble.ListLength)
	}
	res := s.winning.Score(draws, external)
	picks := ensemble.Select(res.Scores)
	picked := make(map[int]bool, len(picks))
	for _, n := range picks {
		picked[n] = true
	}

	hot := make(map[int]bool, ensemble.ListLength)
	for _, n := range strategy.Hot(draws, ensemble.ListLength, domain.StreamWinning) {
		hot[n] = true
	}
	freqs := analysis.Frequencies(draws, domain.StreamWinning)

	for _, n := range numbers {
		score := res.Scores[n]
		ne := NumberEvaluation{
			Number: n,
			Score:  score,
			IsHot:  hot[n] || score >= hotScore,
			IsWarm: score >= warmScore && score < hotScore && freqs[n] > 0,
		}
		ev.TotalScore += score
		if picked[n] {
			ev.Matches++
			if score >= hotScore {
				ev.StrongMatches++
			}
		}
		ev.Numbers = append(ev.Numbers, ne)
	}

	// Played pairs the history retains score a synergy bonus.
	retained := make(map[[2]int]bool)
	for _, p := range analysis.TopPairs(draws, domain.StreamWinning) {
		retained[[2]int{p.A, p.B}] = true
	}
	for i := 0; i < len(numbers); i++ {
		for j := i + 1; j < len(numbers); j++ {
			a, b := numbers[i], numbers[j]
			if a > b {
				a, b = b, a
			}
			if retained[[2]int{a, b}] {
				ev.SynergyBonus += 0.5
			}
		}
	}
	ev.TotalScore += ev.SynergyBonus

	ev.Confidence = ensemble.Confidence(res.Scores, numbers, ensemble.ConfidenceBase, ensemble.ConfidenceCap)
	ev.Recommendation = grade(ev.Matches, ev.TotalScore)
	ev.TopCandidates = ensemble.RankedCandidates(res, 10)
	ev.Analysis = summarize(draws)
	return ev, nil
}

// grade maps overlap with the engine's own pick onto a verdict.
func grade(matches int, total float64) string {
	switch {
	case matches >= 4 || (matches >= 3 && total >= 15):
		return GradeExcellent
	case matches >= 2 || total >= 10:
		return GradeGood
	case matches >= 1 || total >= 5:
		return GradeAverage
	default:
		return GradeRisky
	}
}
