// Package predictor orchestrates the prediction pipeline: draws in,
// ensemble scores, decade-balanced selections, the machine-correlation
// hybrid, and the served-prediction log.
package predictor

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/drawsense/drawsense/internal/analysis"
	"github.com/drawsense/drawsense/internal/brain"
	"github.com/drawsense/drawsense/internal/domain"
	"github.com/drawsense/drawsense/internal/ensemble"
	"github.com/drawsense/drawsense/internal/history"
	"github.com/drawsense/drawsense/internal/infra/observability"
	"github.com/drawsense/drawsense/internal/strategy"
)

// MinDayDraws is the floor under which a day-of-week filter falls back
// to the full history. The fallback is surfaced in the response
// context rather than silent.
const MinDayDraws = 10

// alternativeStrategies are the canonical alternative lists served
// alongside the main selection.
var alternativeStrategies = []string{
	strategy.NameHot,
	strategy.NameDue,
	strategy.NameBalanced,
	strategy.NameStatistical,
}

// ─── Response types ─────────────────────────────────────────────────────────

// Selection is one predicted set with its per-number scores.
type Selection struct {
	Numbers    []int     `json:"numbers"`
	Sum        int       `json:"sum"`
	Confidence float64   `json:"confidence"`
	Scores     []float64 `json:"scores"`
}

// HybridSelection is the boosted winning selection.
type HybridSelection struct {
	Selection
	Method              string  `json:"method"`
	CorrelationStrength float64 `json:"correlationStrength"`
	BoostedCount        int     `json:"boostedCount"`
}

// Alternative is one strategy's standalone pick list.
type Alternative struct {
	Strategy string `json:"strategy"`
	Numbers  []int  `json:"numbers"`
}

// Alert flags a reliably overdue number.
type Alert struct {
	Number    int     `json:"number"`
	OverdueBy float64 `json:"overdueBy"`
	DueScore  float64 `json:"dueScore"`
}

// RequestContext echoes the resolved request scope.
type RequestContext struct {
	DrawTypeID   int64  `json:"drawTypeId,omitempty"`
	DrawTypeName string `json:"drawTypeName,omitempty"`
	DayOfWeek    *int   `json:"dayOfWeek,omitempty"`
	DayFallback  bool   `json:"dayFallback,omitempty"`
	DrawCount    int    `json:"drawCount"`
}

// AnalysisSummary is the statistical digest attached to a prediction.
type AnalysisSummary struct {
	TotalDraws   int                     `json:"totalDraws"`
	DecadeCounts [domain.DecadeCount]int `json:"decadeCounts"`
	TopPairs     []analysis.Pair         `json:"topPairs"`
	TopFinales   []analysis.FinaleStats  `json:"topFinales"`
}

// Performance summarizes the latest verified prediction.
type Performance struct {
	Date       time.Time `json:"date"`
	MatchCount int       `json:"matchCount"`
	Matches    []int     `json:"matches"`
}

// Prediction is the full /predict payload.
type Prediction struct {
	Context         RequestContext       `json:"context"`
	Main            Selection            `json:"main"`
	Machine         *Selection           `json:"machine,omitempty"`
	Hybrid          *HybridSelection     `json:"hybrid,omitempty"`
	Alternatives    []Alternative        `json:"alternatives"`
	Alerts          []Alert              `json:"alerts"`
	TopCandidates   []ensemble.Candidate `json:"topCandidates"`
	Analysis        AnalysisSummary      `json:"analysis"`
	GeneratedAt     time.Time            `json:"generatedAt"`
	LastPerformance *Performance         `json:"lastPerformance,omitempty"`
	Cached          bool                 `json:"cached"`
	CacheAgeSeconds float64              `json:"cacheAgeSeconds"`
}

// ─── Service ────────────────────────────────────────────────────────────────

// Archiver persists served predictions for offline analysis. Archival
// failures never fail a request.
type Archiver interface {
	ArchivePrediction(drawTypeID int64, dayOfWeek int, numbers string, confidence float64, machineNumbers, hybridNumbers string, at time.Time) error
}

// Config carries Service dependencies. Features and Archive may be
// nil; Now is injectable for tests.
type Config struct {
	Source   domain.DrawSource
	Winning  *brain.Brain
	Machine  *brain.Brain
	Features domain.FeatureSource
	Log      history.Log
	Verifier *history.Verifier
	Archive  Archiver
	Now      func() time.Time
}

// Service is the prediction orchestrator.
type Service struct {
	source   domain.DrawSource
	winning  *brain.Brain
	machine  *brain.Brain
	features domain.FeatureSource
	plog     history.Log
	verifier *history.Verifier
	archive  Archiver
	cache    *Cache
	now      func() time.Time
}

func New(cfg Config) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		source:   cfg.Source,
		winning:  cfg.Winning,
		machine:  cfg.Machine,
		features: cfg.Features,
		plog:     cfg.Log,
		verifier: cfg.Verifier,
		archive:  cfg.Archive,
		cache:    NewCache(cfg.Now),
		now:      cfg.Now,
	}
}

// InvalidateCache drops the prediction cache on the new-data signal.
func (s *Service) InvalidateCache() {
	s.cache.Invalidate()
}

// Predict serves a full prediction for the requested scope. A zero
// drawTypeID means the global window; a nil dayOfWeek means no day
// filter. An empty archive yields an empty selection with zero
// confidence rather than an error.
func (s *Service) Predict(ctx context.Context, drawTypeID int64, dayOfWeek *int) (*Prediction, error) {
	started := s.now()
	defer func() {
		observability.PredictionLatency.Observe(s.now().Sub(started).Seconds())
	}()

	if cached, age, ok := s.cache.Get(drawTypeID, dayOfWeek); ok {
		observability.PredictionCacheHits.WithLabelValues("hit").Inc()
		served := *cached
		served.Cached = true
		served.CacheAgeSeconds = age.Seconds()
		return &served, nil
	}
	observability.PredictionCacheHits.WithLabelValues("miss").Inc()

	// Outcome attribution before learning, so new ground truth feeds
	// the same request's weights.
	if s.verifier != nil {
		if n, err := s.verifier.Run(ctx, false); err != nil {
			log.Printf("[predict] verification pass failed: %v", err)
		} else if n > 0 {
			observability.VerifiedPredictions.Add(float64(n))
		}
	}

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

	p := &Prediction{
		Context:      reqCtx,
		Alternatives: []Alternative{},
		Alerts:       []Alert{},
		GeneratedAt:  s.now(),
	}
	if len(draws) == 0 {
		return p, nil
	}

	s.learnIfNewOutcome(ctx, draws, drawTypeID)

	var external []int
	if s.features != nil {
		external = s.features.Rank(ctx, draws, ensemble.ListLength)
	}

	mainRes := s.winning.Score(draws, external)
	mainSel := ensemble.Select(mainRes.Scores)
	p.Main = makeSelection(mainSel, mainRes.Scores, ensemble.ConfidenceBase, ensemble.ConfidenceCap)
	p.TopCandidates = ensemble.RankedCandidates(mainRes, 10)

	machineSel := s.predictMachine(draws, p)
	if len(machineSel) > 0 {
		s.predictHybrid(draws, mainRes, machineSel, p)
	}

	for _, name := range alternativeStrategies {
		p.Alternatives = append(p.Alternatives, Alternative{
			Strategy: name,
			Numbers:  strategy.Pool()[name](draws, domain.DrawSize, domain.StreamWinning),
		})
	}
	p.Alerts = overdueAlerts(draws)
	p.Analysis = summarize(draws)
	p.LastPerformance = s.lastPerformance()

	s.record(p, drawTypeID, dayOfWeek)
	s.cache.Put(drawTypeID, dayOfWeek, p)
	observability.PredictionsServed.WithLabelValues(reqCtx.DrawTypeName).Inc()
	return p, nil
}

// predictMachine fills the machine selection when the history carries
// machine sets, returning the selected numbers for the hybrid step.
func (s *Service) predictMachine(draws []domain.Draw, p *Prediction) []int {
	hasMachine := false
	for _, d := range draws {
		if d.HasMachine() {
			hasMachine = true
			break
		}
	}
	if !hasMachine || s.machine == nil {
		return nil
	}

	res := s.machine.Score(draws, nil)
	sel := ensemble.Select(res.Scores)
	if len(sel) == 0 {
		return nil
	}
	machineSel := makeSelection(sel, res.Scores, ensemble.ConfidenceBase, ensemble.ConfidenceCap)
	p.Machine = &machineSel
	return sel
}

// predictHybrid boosts the main scores by machine correlation and
// re-selects.
func (s *Service) predictHybrid(draws []domain.Draw, mainRes ensemble.Result, machineSel []int, p *Prediction) {
	matrix := ensemble.BuildMatrix(draws)
	boost := matrix.Boost(mainRes.Scores, machineSel)
	sel := ensemble.Select(boost.Scores)
	if len(sel) == 0 {
		return
	}
	p.Hybrid = &HybridSelection{
		Selection:           makeSelection(sel, boost.Scores, ensemble.HybridBase, ensemble.HybridCap),
		Method:              "machine-correlation-boost",
		CorrelationStrength: boost.CorrelationStrength,
		BoostedCount:        boost.BoostedCount,
	}
}

// learnIfNewOutcome feeds the scope's latest draw to each brain when
// that scope has not analyzed it yet. The watermark is per scope, so
// alternating scoped requests never re-credit the same outcome.
func (s *Service) learnIfNewOutcome(ctx context.Context, draws []domain.Draw, drawTypeID int64) {
	latest := draws[len(draws)-1]

	if !s.winning.Analyzed(drawTypeID, latest.Winning) {
		if _, err := s.winning.Learn(ctx, latest.Winning, draws, drawTypeID); err != nil {
			log.Printf("[predict] winning learn failed: %v", err)
		} else {
			s.observeLearn(domain.StreamWinning, s.winning)
		}
	}
	if s.machine != nil && latest.HasMachine() {
		if !s.machine.Analyzed(drawTypeID, latest.Machine) {
			if _, err := s.machine.Learn(ctx, latest.Machine, draws, drawTypeID); err != nil {
				log.Printf("[predict] machine learn failed: %v", err)
			} else {
				s.observeLearn(domain.StreamMachine, s.machine)
			}
		}
	}
}

func (s *Service) observeLearn(stream domain.Stream, b *brain.Brain) {
	observability.LearnPasses.WithLabelValues(string(stream)).Inc()
	observability.BrainAccuracy.WithLabelValues(string(stream)).Set(b.Status().Stats.Global.GlobalAccuracy)
}

// record appends the prediction to the log and the archive.
func (s *Service) record(p *Prediction, drawTypeID int64, dayOfWeek *int) {
	entry := history.Entry{
		ID:         history.NewID(),
		Timestamp:  p.GeneratedAt,
		DrawTypeID: drawTypeID,
		DayOfWeek:  dayOfWeek,
		Numbers:    p.Main.Numbers,
		Confidence: p.Main.Confidence,
	}
	if p.Machine != nil {
		entry.MachineNumbers = p.Machine.Numbers
		entry.MachineConfidence = p.Machine.Confidence
	}
	if p.Hybrid != nil {
		entry.HybridNumbers = p.Hybrid.Numbers
		entry.HybridConfidence = p.Hybrid.Confidence
	}
	if s.plog != nil {
		if err := s.plog.Append(entry); err != nil {
			log.Printf("[predict] history append failed: %v", err)
		}
	}
	if s.archive != nil {
		day := -1
		if dayOfWeek != nil {
			day = *dayOfWeek
		}
		machineStr, hybridStr := "", ""
		if p.Machine != nil {
			machineStr = joinInts(p.Machine.Numbers)
		}
		if p.Hybrid != nil {
			hybridStr = joinInts(p.Hybrid.Numbers)
		}
		if err := s.archive.ArchivePrediction(drawTypeID, day, joinInts(p.Main.Numbers), p.Main.Confidence, machineStr, hybridStr, p.GeneratedAt); err != nil {
			log.Printf("[predict] archive failed: %v", err)
		}
	}
}

// lastPerformance digs the newest verified entry out of the log.
func (s *Service) lastPerformance() *Performance {
	if s.plog == nil {
		return nil
	}
	entries, err := s.plog.All()
	if err != nil {
		return nil
	}
	for _, e := range entries {
		if e.Verified && e.Result != nil {
			return &Performance{
				Date:       e.Result.DrawDate,
				MatchCount: e.Result.MatchCount,
				Matches:    e.Result.Matches,
			}
		}
	}
	return nil
}

// RealPerformance aggregates verified outcomes from the served log,
// as opposed to the brain's own training statistics.
type RealPerformance struct {
	VerifiedCount int     `json:"verifiedCount"`
	TotalMatches  int     `json:"totalMatches"`
	AvgMatches    float64 `json:"avgMatches"`
	BestMatch     int     `json:"bestMatch"`
}

// BrainReport is the /api/brain payload for one stream.
type BrainReport struct {
	Stream          domain.Stream   `json:"stream"`
	State           brain.State     `json:"state"`
	RealPerformance RealPerformance `json:"realPerformance"`
}

// BrainReport returns the learning state plus log-derived performance
// for the requested stream.
func (s *Service) BrainReport(stream domain.Stream) (*BrainReport, error) {
	var b *brain.Brain
	switch stream {
	case domain.StreamWinning:
		b = s.winning
	case domain.StreamMachine:
		b = s.machine
	default:
		return nil, fmt.Errorf("%w: unknown stream %q", domain.ErrUnknownStream, stream)
	}
	if b == nil {
		return nil, fmt.Errorf("%w: stream %q not configured", domain.ErrUnknownStream, stream)
	}

	report := &BrainReport{Stream: stream, State: b.Status()}
	if s.plog == nil {
		return report, nil
	}
	entries, err := s.plog.All()
	if err != nil {
		return report, nil
	}
	perf := &report.RealPerformance
	for _, e := range entries {
		outcome := e.Result
		if stream == domain.StreamMachine {
			outcome = e.MachineResult
		}
		if !e.Verified || outcome == nil {
			continue
		}
		perf.VerifiedCount++
		perf.TotalMatches += outcome.MatchCount
		if outcome.MatchCount > perf.BestMatch {
			perf.BestMatch = outcome.MatchCount
		}
	}
	if perf.VerifiedCount > 0 {
		perf.AvgMatches = float64(perf.TotalMatches) / float64(perf.VerifiedCount)
	}
	return report, nil
}

func (s *Service) typeName(ctx context.Context, drawTypeID int64) string {
	if drawTypeID == 0 {
		return "all"
	}
	for _, dt := range s.source.GetDrawTypes(ctx) {
		if dt.ID == drawTypeID {
			return dt.Name
		}
	}
	return "all"
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func makeSelection(numbers []int, scores [domain.MaxNumber + 1]float64, base, ceiling float64) Selection {
	sel := Selection{
		Numbers:    numbers,
		Confidence: ensemble.Confidence(scores, numbers, base, ceiling),
		Scores:     make([]float64, len(numbers)),
	}
	for i, n := range numbers {
		sel.Sum += n
		sel.Scores[i] = scores[n]
	}
	return sel
}

func filterByDay(draws []domain.Draw, day int) []domain.Draw {
	var out []domain.Draw
	for _, d := range draws {
		if d.DayOfWeek == day {
			out = append(out, d)
		}
	}
	return out
}

// alertDueScore is the floor a reliable number's due score must reach
// before it is surfaced as an alert.
const alertDueScore = 150

// overdueAlerts surfaces reliably overdue numbers, strongest first.
func overdueAlerts(draws []domain.Draw) []Alert {
	stats := analysis.Cycles(draws, domain.StreamWinning)
	due := analysis.MostDue(stats, analysis.ReliableCycleCount, 5)
	alerts := make([]Alert, 0, len(due))
	for _, cs := range due {
		if cs.DueScore >= alertDueScore {
			alerts = append(alerts, Alert{
				Number:    cs.Number,
				OverdueBy: cs.OverdueBy,
				DueScore:  cs.DueScore,
			})
		}
	}
	return alerts
}

func summarize(draws []domain.Draw) AnalysisSummary {
	pairs := analysis.TopPairs(draws, domain.StreamWinning)
	if len(pairs) > 5 {
		pairs = pairs[:5]
	}
	finales := analysis.RankFinales(analysis.Finales(draws, domain.StreamWinning))
	if len(finales) > 3 {
		finales = finales[:3]
	}
	return AnalysisSummary{
		TotalDraws:   len(draws),
		DecadeCounts: analysis.Decades(draws, domain.StreamWinning).Counts,
		TopPairs:     pairs,
		TopFinales:   finales,
	}
}

func joinInts(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, "-")
}
