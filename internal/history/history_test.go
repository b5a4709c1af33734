package history

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/drawsense/drawsense/internal/domain"
)

// ─── Log ────────────────────────────────────────────────────────────────────

func TestFileLog_AppendNewestFirst(t *testing.T) {
	l := NewFileLog(filepath.Join(t.TempDir(), "predictions.json"))

	for i := 0; i < 3; i++ {
		e := Entry{
			ID:        NewID(),
			Timestamp: time.Date(2025, 6, 1, 10+i, 0, 0, 0, time.UTC),
			Numbers:   []int{1 + i, 10, 20, 30, 40},
		}
		if err := l.Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	entries, err := l.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Numbers[0] != 3 || entries[2].Numbers[0] != 1 {
		t.Errorf("entries not newest-first: %v, %v", entries[0].Numbers, entries[2].Numbers)
	}
}

func TestFileLog_Bounded(t *testing.T) {
	l := NewFileLog(filepath.Join(t.TempDir(), "predictions.json"))
	for i := 0; i < MaxEntries+5; i++ {
		if err := l.Append(Entry{ID: NewID(), Numbers: []int{1, 2, 3, 4, 5}}); err != nil {
			t.Fatalf("Append #%d: %v", i, err)
		}
	}
	entries, err := l.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(entries) != MaxEntries {
		t.Errorf("got %d entries, want %d", len(entries), MaxEntries)
	}
}

func TestFileLog_Update(t *testing.T) {
	l := NewFileLog(filepath.Join(t.TempDir(), "predictions.json"))
	e := Entry{ID: NewID(), Numbers: []int{1, 2, 3, 4, 5}}
	if err := l.Append(e); err != nil {
		t.Fatalf("Append: %v", err)
	}

	e.Verified = true
	e.Result = &Outcome{MatchCount: 2, Matches: []int{1, 2}}
	if err := l.Update([]Entry{e}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	entries, _ := l.All()
	if !entries[0].Verified || entries[0].Result.MatchCount != 2 {
		t.Errorf("update not persisted: %+v", entries[0])
	}
}

func TestFileLog_MissingFile(t *testing.T) {
	l := NewFileLog(filepath.Join(t.TempDir(), "absent.json"))
	entries, err := l.All()
	if err != nil || entries != nil {
		t.Errorf("All on missing file = %v, %v; want nil, nil", entries, err)
	}
}

// ─── Verifier ───────────────────────────────────────────────────────────────

type stubSource struct {
	draws []domain.Draw
}

func (s *stubSource) GetDraws(context.Context, *int64) []domain.Draw { return s.draws }
func (s *stubSource) GetDrawTypes(context.Context) []domain.DrawType { return nil }

func verifierAt(t *testing.T, l Log, draws []domain.Draw, now time.Time) *Verifier {
	t.Helper()
	return NewVerifier(l, &stubSource{draws: draws}, func() time.Time { return now })
}

func TestVerifier_AttributesWithinWindow(t *testing.T) {
	predAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := predAt.Add(60 * time.Hour)

	l := NewMemLog()
	entry := Entry{
		ID:         NewID(),
		Timestamp:  predAt,
		DrawTypeID: 1,
		Numbers:    []int{7, 15, 23, 42, 71},
	}
	if err := l.Append(entry); err != nil {
		t.Fatalf("Append: %v", err)
	}

	draws := []domain.Draw{{
		ID:         1,
		DrawTypeID: 1,
		Date:       predAt.Add(48 * time.Hour),
		Winning:    []int{7, 16, 23, 50, 60},
	}}

	v := verifierAt(t, l, draws, now)
	n, err := v.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 1 {
		t.Fatalf("verified %d entries, want 1", n)
	}

	entries, _ := l.All()
	got := entries[0]
	if !got.Verified || got.Result == nil {
		t.Fatalf("entry not verified: %+v", got)
	}
	if !reflect.DeepEqual(got.Result.Matches, []int{7, 23}) {
		t.Errorf("matches = %v, want [7 23]", got.Result.Matches)
	}
	// 15 neighbors actual 16; 42 and 71 miss entirely.
	if !reflect.DeepEqual(got.Result.NearMisses, []int{15}) {
		t.Errorf("nearMisses = %v, want [15]", got.Result.NearMisses)
	}
	if got.Result.MatchCount != 2 {
		t.Errorf("matchCount = %d, want 2", got.Result.MatchCount)
	}
}

func TestVerifier_DrawPastWindow(t *testing.T) {
	predAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemLog()
	if err := l.Append(Entry{ID: NewID(), Timestamp: predAt, DrawTypeID: 1, Numbers: []int{1, 2, 3, 4, 5}}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	draws := []domain.Draw{{
		ID: 1, DrawTypeID: 1,
		Date:    predAt.Add(96 * time.Hour),
		Winning: []int{1, 2, 3, 4, 5},
	}}

	v := verifierAt(t, l, draws, predAt.Add(100*time.Hour))
	n, err := v.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 0 {
		t.Fatalf("verified %d entries, want 0 for a draw past the window", n)
	}
	entries, _ := l.All()
	if entries[0].Verified {
		t.Error("entry verified by an out-of-window draw")
	}
}

func TestVerifier_TypeMismatch(t *testing.T) {
	predAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemLog()
	if err := l.Append(Entry{ID: NewID(), Timestamp: predAt, DrawTypeID: 1, Numbers: []int{1, 2, 3, 4, 5}}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	draws := []domain.Draw{{
		ID: 1, DrawTypeID: 2,
		Date:    predAt.Add(24 * time.Hour),
		Winning: []int{1, 2, 3, 4, 5},
	}}

	v := verifierAt(t, l, draws, predAt.Add(48*time.Hour))
	if n, _ := v.Run(context.Background(), false); n != 0 {
		t.Fatalf("verified %d entries across draw types, want 0", n)
	}
}

func TestVerifier_Throttled(t *testing.T) {
	predAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemLog()
	if err := l.Append(Entry{ID: NewID(), Timestamp: predAt, DrawTypeID: 1, Numbers: []int{1, 2, 3, 4, 5}}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	draws := []domain.Draw{{
		ID: 1, DrawTypeID: 1,
		Date:    predAt.Add(12 * time.Hour),
		Winning: []int{1, 2, 3, 4, 5},
	}}

	current := predAt.Add(24 * time.Hour)
	v := NewVerifier(l, &stubSource{draws: draws}, func() time.Time { return current })

	// Consume the throttle budget with an empty first run.
	empty := NewMemLog()
	v.log = empty
	if _, err := v.Run(context.Background(), false); err != nil {
		t.Fatalf("Run: %v", err)
	}

	v.log = l
	current = current.Add(10 * time.Second)
	if n, _ := v.Run(context.Background(), false); n != 0 {
		t.Fatalf("throttled run verified %d entries, want 0", n)
	}

	// A forced run ignores the throttle.
	if n, _ := v.Run(context.Background(), true); n != 1 {
		t.Fatalf("forced run verified %d entries, want 1", n)
	}
}

func TestVerifier_VerifiedEntryImmutable(t *testing.T) {
	predAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemLog()
	sealed := Entry{
		ID: NewID(), Timestamp: predAt, DrawTypeID: 1,
		Numbers:  []int{1, 2, 3, 4, 5},
		Verified: true,
		Result:   &Outcome{MatchCount: 5, Matches: []int{1, 2, 3, 4, 5}},
	}
	if err := l.Append(sealed); err != nil {
		t.Fatalf("Append: %v", err)
	}
	draws := []domain.Draw{{
		ID: 1, DrawTypeID: 1,
		Date:    predAt.Add(12 * time.Hour),
		Winning: []int{80, 81, 82, 83, 84},
	}}

	v := verifierAt(t, l, draws, predAt.Add(24*time.Hour))
	if n, _ := v.Run(context.Background(), true); n != 0 {
		t.Fatalf("re-verified %d sealed entries, want 0", n)
	}
	entries, _ := l.All()
	if entries[0].Result.MatchCount != 5 {
		t.Error("sealed result rewritten")
	}
}

func TestVerifier_MachineAndHybridResults(t *testing.T) {
	predAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemLog()
	entry := Entry{
		ID: NewID(), Timestamp: predAt, DrawTypeID: 1,
		Numbers:        []int{7, 15, 23, 42, 71},
		MachineNumbers: []int{3, 18, 33, 48, 63},
		HybridNumbers:  []int{7, 16, 23, 42, 80},
	}
	if err := l.Append(entry); err != nil {
		t.Fatalf("Append: %v", err)
	}
	draws := []domain.Draw{{
		ID: 1, DrawTypeID: 1,
		Date:    predAt.Add(6 * time.Hour),
		Winning: []int{7, 16, 23, 50, 60},
		Machine: []int{3, 18, 40, 50, 60},
	}}

	v := verifierAt(t, l, draws, predAt.Add(24*time.Hour))
	if n, _ := v.Run(context.Background(), true); n != 1 {
		t.Fatal("entry not verified")
	}
	entries, _ := l.All()
	got := entries[0]
	if got.MachineResult == nil || got.MachineResult.MatchCount != 2 {
		t.Errorf("machineResult = %+v, want 2 matches", got.MachineResult)
	}
	if got.HybridResult == nil || got.HybridResult.MatchCount != 3 {
		t.Errorf("hybridResult = %+v, want 3 matches", got.HybridResult)
	}
}
