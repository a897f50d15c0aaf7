// Package store persists the per-match snapshot time series. Each store
// owns one JSON file holding the full series mapping and rewrites it
// whole on every change. A process-wide mutex plus an advisory file lock
// serialize the load-mutate-save cycle, so request handlers, the polling
// loop and other processes sharing the data directory cannot lose writes.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/itbasis/go-clock"
	"github.com/rs/zerolog"

	"github.com/captainlinky/gw2dash/model"
	"github.com/captainlinky/gw2dash/timeline"
)

// Retention is how long snapshots are kept, matching the length of one
// WvW matchup.
const Retention = 7 * 24 * time.Hour

// MatchSource fetches current match state. The gw2 client satisfies this.
type MatchSource interface {
	MatchByWorld(ctx context.Context, worldID int) (*model.Match, error)
}

// Store is a retention-bounded snapshot store for one metric family.
type Store[T timeline.Snapshot] struct {
	path   string
	mu     sync.Mutex
	flk    *flock.Flock
	source MatchSource
	clock  clock.Clock
	log    zerolog.Logger
	build  func(now time.Time, m *model.Match) T
}

// NewKDR creates the kill/death snapshot store backed by the given file.
func NewKDR(path string, source MatchSource, clk clock.Clock, log zerolog.Logger) *Store[model.KDRSnapshot] {
	return newStore(path, source, clk, log.With().Str("store", "kdr").Logger(),
		func(now time.Time, m *model.Match) model.KDRSnapshot {
			return model.NewKDRSnapshot(now, m.Kills, m.Deaths)
		})
}

// NewActivity creates the objective-ownership snapshot store.
func NewActivity(path string, source MatchSource, clk clock.Clock, log zerolog.Logger) *Store[model.ActivitySnapshot] {
	return newStore(path, source, clk, log.With().Str("store", "activity").Logger(),
		func(now time.Time, m *model.Match) model.ActivitySnapshot {
			return model.NewActivitySnapshot(now, m.Maps)
		})
}

func newStore[T timeline.Snapshot](path string, source MatchSource, clk clock.Clock, log zerolog.Logger, build func(time.Time, *model.Match) T) *Store[T] {
	return &Store[T]{
		path:   path,
		flk:    flock.New(path),
		source: source,
		clock:  clk,
		log:    log,
		build:  build,
	}
}

// Record fetches current match state for the world and appends a snapshot
// to the match's series, pruning anything older than the retention window
// before saving. A failed or empty fetch is a no-op, not an error; storage
// failures are returned.
func (s *Store[T]) Record(ctx context.Context, matchID string, worldID int) error {
	m, err := s.source.MatchByWorld(ctx, worldID)
	if err != nil {
		s.log.Warn().Err(err).Int("world", worldID).Msg("skipping snapshot, fetch failed")
		return nil
	}

	now := s.clock.Now().UTC()
	snap := s.build(now, m)

	unlock, err := s.lockExclusive()
	if err != nil {
		return err
	}
	defer unlock()

	series := s.read()
	kept := append(series[matchID], snap)
	cutoff := now.Add(-Retention)
	pruned := kept[:0]
	for _, old := range kept {
		if old.At().After(cutoff) {
			pruned = append(pruned, old)
		}
	}
	series[matchID] = pruned

	if err := s.write(series); err != nil {
		return err
	}
	s.log.Info().Str("match", matchID).Int("series_len", len(pruned)).Msg("recorded snapshot")
	return nil
}

// Load reads the full series mapping under a shared lock. A missing or
// corrupt file is an empty mapping, never an error. Readers use a fresh
// lock handle so concurrent reads cannot release each other's lock.
func (s *Store[T]) Load() map[string][]T {
	shared := flock.New(s.path)
	if err := shared.RLock(); err != nil {
		s.log.Warn().Err(err).Msg("could not acquire shared lock")
		return map[string][]T{}
	}
	defer func() {
		if err := shared.Unlock(); err != nil {
			s.log.Error().Err(err).Msg("releasing shared lock")
		}
	}()
	return s.read()
}

// Snapshots returns the persisted series for one match, oldest first.
func (s *Store[T]) Snapshots(matchID string) []T {
	return s.Load()[matchID]
}

// Save rewrites the whole series mapping under the exclusive lock.
func (s *Store[T]) Save(series map[string][]T) error {
	unlock, err := s.lockExclusive()
	if err != nil {
		return err
	}
	defer unlock()
	return s.write(series)
}

// lockExclusive takes the in-process mutex and then the advisory file
// lock, covering the full read-modify-write cycle.
func (s *Store[T]) lockExclusive() (func(), error) {
	s.mu.Lock()
	if err := s.flk.Lock(); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("locking %s: %w", s.path, err)
	}
	return func() {
		if err := s.flk.Unlock(); err != nil {
			s.log.Error().Err(err).Msg("releasing file lock")
		}
		s.mu.Unlock()
	}, nil
}

// read assumes the caller holds at least a shared lock.
func (s *Store[T]) read() map[string][]T {
	series := make(map[string][]T)
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn().Err(err).Msg("error loading history")
		}
		return series
	}
	if err := json.Unmarshal(b, &series); err != nil {
		s.log.Warn().Err(err).Msg("corrupt history file, starting empty")
		return make(map[string][]T)
	}
	return series
}

// write assumes the caller holds the exclusive lock. The file is truncated
// only after the lock is held and synced before the lock is released.
func (s *Store[T]) write(series map[string][]T) error {
	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", s.path, err)
	}
	defer f.Close()

	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncating %s: %w", s.path, err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(series); err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", s.path, err)
	}
	return nil
}
