package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/drawsense/drawsense/internal/app/predictor"
	"github.com/drawsense/drawsense/internal/brain"
	"github.com/drawsense/drawsense/internal/domain"
	"github.com/drawsense/drawsense/internal/history"
)

type stubSource struct {
	draws []domain.Draw
}

func (s *stubSource) GetDraws(_ context.Context, filter *int64) []domain.Draw {
	if filter == nil {
		return s.draws
	}
	var out []domain.Draw
	for _, d := range s.draws {
		if d.DrawTypeID == *filter {
			out = append(out, d)
		}
	}
	return out
}

func (s *stubSource) GetDrawTypes(context.Context) []domain.DrawType {
	return []domain.DrawType{{ID: 1, Name: "fortune"}}
}

type memStore struct {
	blobs map[domain.Stream][]byte
}

func (m *memStore) LoadMemory(_ context.Context, stream domain.Stream) ([]byte, error) {
	return m.blobs[stream], nil
}

func (m *memStore) SaveMemory(_ context.Context, stream domain.Stream, blob []byte) error {
	if m.blobs == nil {
		m.blobs = map[domain.Stream][]byte{}
	}
	m.blobs[stream] = blob
	return nil
}

type stubRefresher struct {
	err     error
	calls   int
	trained bool
}

func (r *stubRefresher) Trigger(forceTrain bool) error {
	r.calls++
	r.trained = forceTrain
	return r.err
}

func testDraws(n int) []domain.Draw {
	base := time.Date(2026, 1, 5, 19, 0, 0, 0, time.UTC)
	draws := make([]domain.Draw, 0, n)
	for i := 0; i < n; i++ {
		date := base.AddDate(0, 0, i)
		b := 1 + (i%17)*5
		draws = append(draws, domain.Draw{
			ID:         int64(i + 1),
			DrawTypeID: 1,
			Date:       date,
			DayOfWeek:  int(date.Weekday()),
			Winning:    []int{b, b + 1, b + 2, b + 3, b + 4},
		})
	}
	return draws
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	ctx := context.Background()
	store := &memStore{}
	svc := predictor.New(predictor.Config{
		Source:  &stubSource{draws: testDraws(60)},
		Winning: brain.New(ctx, brain.Config{Stream: domain.StreamWinning, Store: store}),
		Machine: brain.New(ctx, brain.Config{Stream: domain.StreamMachine, Store: store}),
		Log:     history.NewMemLog(),
	})
	return NewServer(svc)
}

func doRequest(t *testing.T, h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndVersion(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := doRequest(t, h, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("/health status = %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodGet, "/api/version", nil)
	var v map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v["version"] != Version {
		t.Errorf("version = %q, want %q", v["version"], Version)
	}
}

func TestPredictEndpoint(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := doRequest(t, h, http.MethodGet, "/predict?type=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var p predictor.Prediction
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(p.Main.Numbers) != domain.DrawSize {
		t.Errorf("main numbers = %v", p.Main.Numbers)
	}
	if p.Context.DrawTypeName != "fortune" {
		t.Errorf("drawTypeName = %q", p.Context.DrawTypeName)
	}
}

func TestPredictEndpoint_BadParams(t *testing.T) {
	h := newTestServer(t).Handler()

	if rec := doRequest(t, h, http.MethodGet, "/predict?type=fortune", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("non-numeric type status = %d", rec.Code)
	}
	if rec := doRequest(t, h, http.MethodGet, "/predict?day=9", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("day out of range status = %d", rec.Code)
	}
}

func TestEvaluateEndpoint(t *testing.T) {
	h := newTestServer(t).Handler()

	body, _ := json.Marshal(map[string]interface{}{
		"numbers": []int{5, 17, 33, 61, 80},
	})
	rec := doRequest(t, h, http.MethodPost, "/evaluate", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var ev predictor.Evaluation
	if err := json.Unmarshal(rec.Body.Bytes(), &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ev.Numbers) != domain.DrawSize {
		t.Errorf("evaluated %d numbers", len(ev.Numbers))
	}
	if ev.Recommendation == "" {
		t.Error("missing recommendation")
	}
}

func TestEvaluateEndpoint_InvalidSet(t *testing.T) {
	h := newTestServer(t).Handler()

	body, _ := json.Marshal(map[string]interface{}{
		"numbers": []int{5, 5, 33, 61, 80},
	})
	if rec := doRequest(t, h, http.MethodPost, "/evaluate", body); rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate numbers status = %d", rec.Code)
	}
	if rec := doRequest(t, h, http.MethodPost, "/evaluate", []byte("{not json")); rec.Code != http.StatusBadRequest {
		t.Errorf("bad body status = %d", rec.Code)
	}
}

func TestBrainEndpoint(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := doRequest(t, h, http.MethodGet, "/api/brain", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var report predictor.BrainReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Stream != domain.StreamWinning {
		t.Errorf("default stream = %q", report.Stream)
	}
	sum := 0.0
	for _, w := range report.State.Weights.Map() {
		sum += w
	}
	if sum < 0.99 || sum > 1.01 {
		t.Errorf("weights sum = %v", sum)
	}

	if rec := doRequest(t, h, http.MethodGet, "/api/brain?stream=bogus", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bogus stream status = %d", rec.Code)
	}
}

func TestRefreshEndpoint(t *testing.T) {
	srv := newTestServer(t)
	ref := &stubRefresher{}
	srv.SetRefresher(ref)
	h := srv.Handler()

	rec := doRequest(t, h, http.MethodPost, "/refresh?force_train=true", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["success"] != true {
		t.Errorf("success = %v", resp["success"])
	}
	if ref.calls != 1 || !ref.trained {
		t.Errorf("trigger calls = %d, forceTrain = %v", ref.calls, ref.trained)
	}
}

func TestRefreshEndpoint_AlreadyRunning(t *testing.T) {
	srv := newTestServer(t)
	srv.SetRefresher(&stubRefresher{err: domain.ErrRefreshRunning})
	h := srv.Handler()

	rec := doRequest(t, h, http.MethodPost, "/refresh", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["success"] != false {
		t.Errorf("success = %v, want false while a cycle is in flight", resp["success"])
	}
}
