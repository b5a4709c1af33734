// Package history keeps the served-prediction log and verifies logged
// predictions against draws as outcomes arrive.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ─── Prediction Log ─────────────────────────────────────────────────────────

// MaxEntries bounds the log to the most recent predictions.
const MaxEntries = 1000

// Outcome records how a prediction fared against one actual draw.
// Matches and NearMisses are disjoint: a predicted number that hit
// exactly never also counts as a near miss.
type Outcome struct {
	DrawDate   time.Time `json:"drawDate"`
	Actual     []int     `json:"actual"`
	MatchCount int       `json:"matchCount"`
	Matches    []int     `json:"matches"`
	NearMisses []int     `json:"nearMisses"`
}

// Entry is one logged prediction. Entries are appended when served and
// mutated exactly once, when verification attributes a draw.
type Entry struct {
	ID                string    `json:"id"`
	Timestamp         time.Time `json:"timestamp"`
	DrawTypeID        int64     `json:"drawTypeId,omitempty"`
	DayOfWeek         *int      `json:"dayOfWeek,omitempty"`
	Numbers           []int     `json:"numbers"`
	Confidence        float64   `json:"confidence"`
	MachineNumbers    []int     `json:"machineNumbers,omitempty"`
	MachineConfidence float64   `json:"machineConfidence,omitempty"`
	HybridNumbers     []int     `json:"hybridNumbers,omitempty"`
	HybridConfidence  float64   `json:"hybridConfidence,omitempty"`
	Verified          bool      `json:"verified"`
	Result            *Outcome  `json:"result,omitempty"`
	MachineResult     *Outcome  `json:"machineResult,omitempty"`
	HybridResult      *Outcome  `json:"hybridResult,omitempty"`
}

// NewID mints a log entry identifier.
func NewID() string {
	return uuid.NewString()
}

// Log stores prediction entries newest-first.
type Log interface {
	// Append inserts a new entry at the head, trimming the tail past
	// MaxEntries.
	Append(e Entry) error

	// All returns a snapshot of every entry, newest first.
	All() ([]Entry, error)

	// Update replaces the entries whose IDs match, leaving the rest
	// untouched.
	Update(entries []Entry) error
}

// ─── File-backed log ────────────────────────────────────────────────────────

// FileLog persists the log as one JSON array. Writes go through a
// temp file and rename so a crash never leaves a torn file.
type FileLog struct {
	mu   sync.Mutex
	path string
}

func NewFileLog(path string) *FileLog {
	return &FileLog{path: path}
}

func (l *FileLog) Append(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return err
	}
	entries = append([]Entry{e}, entries...)
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	return l.save(entries)
}

func (l *FileLog) All() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

func (l *FileLog) Update(updated []Entry) error {
	if len(updated) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return err
	}
	byID := make(map[string]Entry, len(updated))
	for _, e := range updated {
		byID[e.ID] = e
	}
	for i, e := range entries {
		if repl, ok := byID[e.ID]; ok {
			entries[i] = repl
		}
	}
	return l.save(entries)
}

func (l *FileLog) load() ([]Entry, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prediction log: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse prediction log: %w", err)
	}
	return entries, nil
}

func (l *FileLog) save(entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	tmp := l.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, l.path)
}

// ─── In-memory log ──────────────────────────────────────────────────────────

// MemLog is a Log kept entirely in memory, used in tests and as a
// degraded fallback when the log file is not writable.
type MemLog struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemLog() *MemLog {
	return &MemLog{}
}

func (l *MemLog) Append(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append([]Entry{e}, l.entries...)
	if len(l.entries) > MaxEntries {
		l.entries = l.entries[:MaxEntries]
	}
	return nil
}

func (l *MemLog) All() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...), nil
}

func (l *MemLog) Update(updated []Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	byID := make(map[string]Entry, len(updated))
	for _, e := range updated {
		byID[e.ID] = e
	}
	for i, e := range l.entries {
		if repl, ok := byID[e.ID]; ok {
			l.entries[i] = repl
		}
	}
	return nil
}
