package brain

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/drawsense/drawsense/internal/domain"
)

type memStore struct {
	blobs   map[domain.Stream][]byte
	loadErr error
	saveErr error
	saves   int
}

func newMemStore() *memStore {
	return &memStore{blobs: map[domain.Stream][]byte{}}
}

func (m *memStore) LoadMemory(_ context.Context, s domain.Stream) ([]byte, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.blobs[s], nil
}

func (m *memStore) SaveMemory(_ context.Context, s domain.Stream, blob []byte) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.blobs[s] = append([]byte(nil), blob...)
	return nil
}

func fixedNow() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func mkDraws(sets ...[]int) []domain.Draw {
	base := time.Date(2025, 1, 1, 19, 0, 0, 0, time.UTC)
	draws := make([]domain.Draw, len(sets))
	for i, s := range sets {
		date := base.AddDate(0, 0, i)
		draws[i] = domain.Draw{
			ID:         int64(i + 1),
			DrawTypeID: 1,
			Date:       date,
			DayOfWeek:  int(date.Weekday()),
			Winning:    s,
		}
	}
	return draws
}

func trainingDraws() []domain.Draw {
	sets := make([][]int, 60)
	for i := range sets {
		b := 1 + (i%17)*5
		sets[i] = []int{b, b + 1, b + 2, b + 3, b + 4}
	}
	return mkDraws(sets...)
}

func newTestBrain(t *testing.T, store domain.MemoryStore) *Brain {
	t.Helper()
	return New(context.Background(), Config{
		Stream: domain.StreamWinning,
		Store:  store,
		Now:    fixedNow,
	})
}

func TestNew_FreshDefaults(t *testing.T) {
	b := newTestBrain(t, newMemStore())
	st := b.Status()

	if st.Version != CurrentVersion {
		t.Errorf("version = %d, want %d", st.Version, CurrentVersion)
	}
	if st.Weights != domain.DefaultWeights() {
		t.Errorf("weights = %+v, want defaults", st.Weights)
	}
	if st.LastTuned != nil || len(st.History) != 0 {
		t.Errorf("fresh brain carries history: %+v", st)
	}
}

func TestLearn_UpdatesStatsAndWeights(t *testing.T) {
	store := newMemStore()
	b := newTestBrain(t, store)
	draws := trainingDraws()

	before := b.Weights()
	res, err := b.Learn(context.Background(), []int{7, 15, 23, 42, 71}, draws, 1)
	if err != nil {
		t.Fatalf("Learn: %v", err)
	}

	st := b.Status()
	if st.Stats.Global.TotalDraws != 1 {
		t.Errorf("totalDraws = %d, want 1", st.Stats.Global.TotalDraws)
	}
	if st.Stats.Global.TotalHits != res.GlobalMatch {
		t.Errorf("totalHits = %d, want %d", st.Stats.Global.TotalHits, res.GlobalMatch)
	}
	wantAcc := float64(res.GlobalMatch) / float64(domain.DrawSize)
	if math.Abs(st.Stats.Global.GlobalAccuracy-wantAcc) > 1e-9 {
		t.Errorf("accuracy = %v, want %v", st.Stats.Global.GlobalAccuracy, wantAcc)
	}
	if st.Stats.ByType[1].TotalDraws != 1 {
		t.Errorf("byType[1].totalDraws = %d, want 1", st.Stats.ByType[1].TotalDraws)
	}
	if st.Weights == before {
		t.Error("weights unchanged after Learn")
	}
	if st.LastTuned == nil || !st.LastTuned.Equal(fixedNow()) {
		t.Errorf("lastTuned = %v, want %v", st.LastTuned, fixedNow())
	}
	if store.saves != 1 {
		t.Errorf("saves = %d, want 1", store.saves)
	}
}

func TestLearn_WeightsStayNormalized(t *testing.T) {
	b := newTestBrain(t, newMemStore())
	draws := trainingDraws()

	for i := 0; i < 10; i++ {
		if _, err := b.Learn(context.Background(), []int{7, 15, 23, 42, 71}, draws, 0); err != nil {
			t.Fatalf("Learn #%d: %v", i, err)
		}
		w := b.Weights()
		if math.Abs(w.Sum()-1.0) > 1e-6 {
			t.Fatalf("pass %d: weight sum = %v, want 1", i, w.Sum())
		}
		for _, k := range domain.WeightKeys {
			if v := w.Get(k); v <= 0 {
				t.Fatalf("pass %d: weight %s = %v, want positive", i, k, v)
			}
		}
	}
}

func TestLearn_StrongStrategyGainsDoubleRate(t *testing.T) {
	// A history where hot's top candidates are exactly the repeating
	// numbers, three of which come up again.
	sets := make([][]int, 40)
	for i := range sets {
		sets[i] = []int{7, 15, 23, 60 + i%10, 75 + i%10}
	}
	draws := mkDraws(sets...)
	b := newTestBrain(t, newMemStore())

	res, err := b.Learn(context.Background(), []int{7, 15, 23, 42, 50}, draws, 0)
	if err != nil {
		t.Fatalf("Learn: %v", err)
	}
	if res.StratScores[domain.KeyHot] < 3 {
		t.Fatalf("hot score = %v, want >= 3", res.StratScores[domain.KeyHot])
	}
	if res.StratScores[domain.KeyDue] >= 1 {
		t.Fatalf("due score = %v, want blank round", res.StratScores[domain.KeyDue])
	}
	// Hot gained twice the rate while due lost half of it; after
	// normalization hot must sit clearly above due.
	w := b.Weights()
	if w.Hot <= w.Due {
		t.Errorf("hot = %v, due = %v, want hot above due", w.Hot, w.Due)
	}
	if w.Due >= domain.DefaultWeights().Due {
		t.Errorf("due = %v, want below default %v", w.Due, domain.DefaultWeights().Due)
	}
}

func TestLearn_LeakageGuard(t *testing.T) {
	actual := []int{7, 15, 23, 42, 71}
	draws := trainingDraws()
	// Plant the outcome into the history; Learn must ignore it.
	draws = append(draws, mkDraws(actual)...)

	b := newTestBrain(t, newMemStore())
	withLeak, err := b.Learn(context.Background(), actual, draws, 0)
	if err != nil {
		t.Fatalf("Learn: %v", err)
	}

	b2 := newTestBrain(t, newMemStore())
	withoutLeak, err := b2.Learn(context.Background(), actual, trainingDraws(), 0)
	if err != nil {
		t.Fatalf("Learn: %v", err)
	}
	if withLeak.GlobalMatch != withoutLeak.GlobalMatch {
		t.Errorf("globalMatch with leak = %d, without = %d; filter not applied",
			withLeak.GlobalMatch, withoutLeak.GlobalMatch)
	}
}

func TestAnalyzed_PerScopeWatermark(t *testing.T) {
	store := newMemStore()
	b := newTestBrain(t, store)
	outcome := []int{7, 15, 23, 42, 71}

	if b.Analyzed(1, outcome) {
		t.Fatal("fresh brain reports outcome analyzed")
	}
	if _, err := b.Learn(context.Background(), outcome, trainingDraws(), 1); err != nil {
		t.Fatalf("Learn: %v", err)
	}
	if !b.Analyzed(1, outcome) {
		t.Error("learned outcome not watermarked for its scope")
	}
	if b.Analyzed(2, outcome) {
		t.Error("watermark leaked into another scope")
	}
	if b.Analyzed(0, outcome) {
		t.Error("watermark leaked into the all-types scope")
	}

	// The watermark survives a reload.
	reloaded := newTestBrain(t, store)
	if !reloaded.Analyzed(1, outcome) {
		t.Error("watermark lost across persistence")
	}
}

func TestLearn_InvalidDraw(t *testing.T) {
	b := newTestBrain(t, newMemStore())
	_, err := b.Learn(context.Background(), []int{1, 2, 3}, trainingDraws(), 0)
	if !errors.Is(err, domain.ErrInvalidNumbers) {
		t.Fatalf("err = %v, want ErrInvalidNumbers", err)
	}
}

func TestLearn_HistoryBounded(t *testing.T) {
	b := newTestBrain(t, newMemStore())
	draws := trainingDraws()

	for i := 0; i < HistoryLimit+10; i++ {
		if _, err := b.Learn(context.Background(), []int{7, 15, 23, 42, 71}, draws, 0); err != nil {
			t.Fatalf("Learn #%d: %v", i, err)
		}
	}
	if got := len(b.Status().History); got != HistoryLimit {
		t.Errorf("history length = %d, want %d", got, HistoryLimit)
	}
}

func TestLearn_PersistFailureNonFatal(t *testing.T) {
	store := newMemStore()
	store.saveErr = errors.New("disk full")
	b := newTestBrain(t, store)

	res, err := b.Learn(context.Background(), []int{7, 15, 23, 42, 71}, trainingDraws(), 0)
	if err != nil {
		t.Fatalf("Learn: %v", err)
	}
	if b.Status().Stats.Global.TotalDraws != 1 {
		t.Error("in-memory state lost after persist failure")
	}
	_ = res
}

func TestStatus_DeepCopy(t *testing.T) {
	b := newTestBrain(t, newMemStore())
	if _, err := b.Learn(context.Background(), []int{7, 15, 23, 42, 71}, trainingDraws(), 1); err != nil {
		t.Fatalf("Learn: %v", err)
	}

	st := b.Status()
	st.History[0].Draw[0] = 99
	st.Stats.ByType[1] = Stats{TotalDraws: 777}

	fresh := b.Status()
	if fresh.History[0].Draw[0] == 99 {
		t.Error("history mutation leaked into the brain")
	}
	if fresh.Stats.ByType[1].TotalDraws == 777 {
		t.Error("stats mutation leaked into the brain")
	}
}

func TestRoundtrip_Persisted(t *testing.T) {
	store := newMemStore()
	b := newTestBrain(t, store)
	if _, err := b.Learn(context.Background(), []int{7, 15, 23, 42, 71}, trainingDraws(), 2); err != nil {
		t.Fatalf("Learn: %v", err)
	}

	reloaded := newTestBrain(t, store)
	got, want := reloaded.Status(), b.Status()
	if got.Weights != want.Weights {
		t.Errorf("weights = %+v, want %+v", got.Weights, want.Weights)
	}
	if got.Stats.Global != want.Stats.Global {
		t.Errorf("global stats = %+v, want %+v", got.Stats.Global, want.Stats.Global)
	}
	if len(got.History) != len(want.History) {
		t.Errorf("history length = %d, want %d", len(got.History), len(want.History))
	}
}

func TestDecodeState_UnknownKeyRejected(t *testing.T) {
	blob := []byte(`{"version":3,"weights":{"hot":0.5,"quantum":0.5}}`)
	_, err := decodeState(blob)
	if !errors.Is(err, domain.ErrCorruptMemory) {
		t.Fatalf("err = %v, want ErrCorruptMemory", err)
	}
}

func TestDecodeState_InjectsMissingKeys(t *testing.T) {
	blob := []byte(`{"version":2,"weights":{"hot":0.6,"due":0.4}}`)
	st, err := decodeState(blob)
	if err != nil {
		t.Fatalf("decodeState: %v", err)
	}
	for _, k := range domain.WeightKeys {
		if st.Weights.Get(k) <= 0 {
			t.Errorf("weight %s = %v, want injected positive value", k, st.Weights.Get(k))
		}
	}
	if sum := st.Weights.Sum(); math.Abs(sum-1.0) > 0.05 {
		t.Errorf("weight sum after migration = %v, want ≈ 1", sum)
	}
}

func TestDecodeState_Garbage(t *testing.T) {
	if _, err := decodeState([]byte("not json")); !errors.Is(err, domain.ErrCorruptMemory) {
		t.Fatalf("err = %v, want ErrCorruptMemory", err)
	}
}

func TestNew_CorruptBlobFallsBack(t *testing.T) {
	store := newMemStore()
	store.blobs[domain.StreamWinning] = []byte("{broken")
	b := newTestBrain(t, store)
	if b.Status().Weights != domain.DefaultWeights() {
		t.Error("corrupt blob did not fall back to defaults")
	}
}

func TestStreamsIsolated(t *testing.T) {
	store := newMemStore()
	winning := newTestBrain(t, store)
	machine := New(context.Background(), Config{
		Stream: domain.StreamMachine,
		Store:  store,
		Now:    fixedNow,
	})

	if _, err := winning.Learn(context.Background(), []int{7, 15, 23, 42, 71}, trainingDraws(), 0); err != nil {
		t.Fatalf("Learn: %v", err)
	}
	if machine.Status().Stats.Global.TotalDraws != 0 {
		t.Error("learning on winning touched the machine brain")
	}
	if _, ok := store.blobs[domain.StreamMachine]; ok {
		t.Error("machine blob written by winning-stream Learn")
	}
}

func TestHistoryEntry_JSONShape(t *testing.T) {
	entry := HistoryEntry{
		Date:        fixedNow(),
		Draw:        []int{7, 15, 23, 42, 71},
		StratScores: map[string]float64{"hot": 2.25},
		GlobalMatch: 2,
		NewWeights:  domain.DefaultWeights().Map(),
	}
	blob, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back HistoryEntry
	if err := json.Unmarshal(blob, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.GlobalMatch != 2 || back.StratScores["hot"] != 2.25 {
		t.Errorf("roundtrip = %+v", back)
	}
}
