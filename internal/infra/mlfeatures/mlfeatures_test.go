package mlfeatures

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/drawsense/drawsense/internal/domain"
)

func someDraws(n int) []domain.Draw {
	base := time.Date(2026, 1, 5, 19, 0, 0, 0, time.UTC)
	draws := make([]domain.Draw, 0, n)
	for i := 0; i < n; i++ {
		b := 1 + (i%17)*5
		draws = append(draws, domain.Draw{
			ID:      int64(i + 1),
			Date:    base.AddDate(0, 0, i),
			Winning: []int{b, b + 1, b + 2, b + 3, b + 4},
		})
	}
	return draws
}

func TestRank_RoundTrip(t *testing.T) {
	var gotReq rankRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rank" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(rankResponse{Numbers: []int{25, 7, 61, 33, 80}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	ranked := c.Rank(context.Background(), someDraws(20), 5)

	if len(ranked) != 5 || ranked[0] != 25 {
		t.Errorf("ranked = %v", ranked)
	}
	if gotReq.K != 5 {
		t.Errorf("request k = %d", gotReq.K)
	}
	if len(gotReq.Draws) != 20 {
		t.Errorf("shipped %d draws, want 20", len(gotReq.Draws))
	}
}

func TestRank_WindowCapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rankRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Draws) != recentWindow {
			t.Errorf("shipped %d draws, want %d", len(req.Draws), recentWindow)
		}
		json.NewEncoder(w).Encode(rankResponse{Numbers: []int{1}})
	}))
	defer srv.Close()

	NewClient(srv.URL, srv.Client()).Rank(context.Background(), someDraws(250), 5)
}

func TestRank_FiltersBadNumbers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(rankResponse{Numbers: []int{0, 91, 25, 25, 7, -3, 61}})
	}))
	defer srv.Close()

	ranked := NewClient(srv.URL, srv.Client()).Rank(context.Background(), someDraws(20), 5)
	want := []int{25, 7, 61}
	if len(ranked) != len(want) {
		t.Fatalf("ranked = %v, want %v", ranked, want)
	}
	for i := range want {
		if ranked[i] != want[i] {
			t.Errorf("ranked = %v, want %v", ranked, want)
		}
	}
}

func TestRank_UpstreamErrorDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	if ranked := NewClient(srv.URL, srv.Client()).Rank(context.Background(), someDraws(20), 5); ranked != nil {
		t.Errorf("ranked = %v, want nil on upstream failure", ranked)
	}
}
