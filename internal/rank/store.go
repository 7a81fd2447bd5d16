// Package rank keeps the capped local leaderboard cache. Each client owns
// its own copy; no cross-client coordination ever happens here.
package rank

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/maiarasalmaso/ecoplay-duelo/internal/models"
)

const (
	winDelta  = 25
	lossDelta = -10

	minRating     = 500
	maxRating     = 2000
	initialRating = 1000

	// maxEntries caps the cache to the top entries by rating.
	maxEntries = 50

	// maxProcessed bounds the processed-match markers kept for score
	// idempotency.
	maxProcessed = 100
)

type storeFile struct {
	Entries   []models.RankEntry `json:"entries"`
	Processed []string           `json:"processed,omitempty"`
}

// Store is the JSON-file-backed leaderboard cache. It also remembers which
// match ids already had their final score reported, so a re-entered final
// screen never double-awards.
type Store struct {
	path string

	mu        sync.Mutex
	entries   map[string]models.RankEntry
	processed []string
}

// Open loads the cache at path. Corrupt or missing data resets to empty
// defaults rather than failing.
func Open(path string) *Store {
	s := &Store{path: path, entries: make(map[string]models.RankEntry)}
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var file storeFile
	if err := json.Unmarshal(data, &file); err != nil {
		log.Debug().Err(err).Str("path", path).Msg("resetting corrupt rank cache")
		return s
	}
	for _, e := range file.Entries {
		if e.UserID == "" {
			continue
		}
		s.entries[e.UserID] = e
	}
	s.processed = file.Processed
	return s
}

// Record applies one match outcome to a player's entry and returns it.
func (s *Store) Record(userID, name string, won bool) models.RankEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[userID]
	if !ok {
		entry = models.RankEntry{UserID: userID, Name: name, Rating: initialRating}
	}
	if name != "" {
		entry.Name = name
	}
	entry.Matches++
	if won {
		entry.Wins++
		entry.Rating += winDelta
	} else {
		entry.Rating += lossDelta
	}
	if entry.Rating < minRating {
		entry.Rating = minRating
	}
	if entry.Rating > maxRating {
		entry.Rating = maxRating
	}
	s.entries[userID] = entry
	return entry
}

// Top returns up to n entries ordered by rating, best first.
func (s *Store) Top(n int) []models.RankEntry {
	s.mu.Lock()
	entries := make([]models.RankEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Rating != entries[j].Rating {
			return entries[i].Rating > entries[j].Rating
		}
		return entries[i].UserID < entries[j].UserID
	})
	if n > 0 && n < len(entries) {
		entries = entries[:n]
	}
	return entries
}

// Processed reports whether matchID already had its score reported.
func (s *Store) Processed(matchID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.processed {
		if id == matchID {
			return true
		}
	}
	return false
}

// MarkProcessed records the idempotency marker for matchID.
func (s *Store) MarkProcessed(matchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.processed {
		if id == matchID {
			return
		}
	}
	s.processed = append(s.processed, matchID)
	if len(s.processed) > maxProcessed {
		s.processed = s.processed[len(s.processed)-maxProcessed:]
	}
}

// Save writes the cache back to disk, keeping only the top entries.
func (s *Store) Save() error {
	s.mu.Lock()
	file := storeFile{Entries: nil, Processed: append([]string(nil), s.processed...)}
	s.mu.Unlock()
	file.Entries = s.Top(maxEntries)

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal rank cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create rank cache dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write rank cache: %w", err)
	}
	return nil
}
