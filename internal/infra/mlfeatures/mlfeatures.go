// Package mlfeatures is the client for the external ML ranking
// service. The service trains its own sequence model offline; the
// engine only consumes its ranked candidate list, weighted under the
// lstm key. Any failure degrades to no external list.
package mlfeatures

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/drawsense/drawsense/internal/domain"
)

// recentWindow caps how much history is shipped per request.
const recentWindow = 100

// Client implements domain.FeatureSource over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: baseURL, client: client}
}

type rankRequest struct {
	Draws [][]int `json:"draws"`
	K     int     `json:"k"`
}

type rankResponse struct {
	Numbers []int `json:"numbers"`
}

// Rank asks the service for its top-k candidates given the recent
// history. Returns nil on any failure; the ensemble treats a missing
// external list as an absent strategy.
func (c *Client) Rank(ctx context.Context, draws []domain.Draw, k int) []int {
	if len(draws) > recentWindow {
		draws = draws[len(draws)-recentWindow:]
	}
	req := rankRequest{K: k, Draws: make([][]int, 0, len(draws))}
	for _, d := range draws {
		req.Draws = append(req.Draws, d.Winning)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rank", bytes.NewReader(body))
	if err != nil {
		return nil
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		log.Printf("[mlfeatures] rank request failed: %v", err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Printf("[mlfeatures] rank request failed: %v", fmt.Errorf("status %d", resp.StatusCode))
		return nil
	}

	var out rankResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Printf("[mlfeatures] decode rank response: %v", err)
		return nil
	}

	// Drop out-of-range or duplicate entries rather than failing.
	seen := make(map[int]bool, len(out.Numbers))
	ranked := make([]int, 0, len(out.Numbers))
	for _, n := range out.Numbers {
		if n < domain.MinNumber || n > domain.MaxNumber || seen[n] {
			continue
		}
		seen[n] = true
		ranked = append(ranked, n)
		if len(ranked) == k {
			break
		}
	}
	return ranked
}
