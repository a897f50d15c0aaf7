// Package tracker is the durable ledger of which guilds have claimed which
// objectives over a matchup. The ledger is one JSON document shared across
// threads and processes: readers take a shared advisory lock, writers hold
// the exclusive lock for the whole load-modify-save cycle, and the file is
// never truncated before the lock is held nor left unsynced when it is
// released.
package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/itbasis/go-clock"
	"github.com/rs/zerolog"

	"github.com/captainlinky/gw2dash/model"
)

const ledgerFile = "current_match.json"

// DefaultGraceDays is how long an ended match is kept before cleanup,
// matching the matchup duration.
const DefaultGraceDays = 7

// cleanupThreshold is the tracked-match count above which UpdateMatch runs
// an opportunistic cleanup to bound file growth.
const cleanupThreshold = 2

// Ledger is the persisted mapping from match ID to its tracked aggregate.
type Ledger map[string]*model.TrackedMatch

type Tracker struct {
	path string
	// mu serializes in-process writers, which share flk. Readers take a
	// fresh shared lock per read (flock state is per open file), so they
	// coordinate with writers through the kernel alone, in this process
	// or any other.
	mu    sync.Mutex
	flk   *flock.Flock
	clock clock.Clock
	log   zerolog.Logger
}

// New creates a tracker storing its ledger under dataDir, creating the
// directory if needed.
func New(dataDir string, clk clock.Clock, log zerolog.Logger) (*Tracker, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	path := filepath.Join(dataDir, ledgerFile)
	return &Tracker{
		path:  path,
		flk:   flock.New(path),
		clock: clk,
		log:   log.With().Str("component", "tracker").Logger(),
	}, nil
}

// UpdateMatch merges enriched match data into the ledger: team metadata is
// overwritten with the latest values, guild claims are unioned. The upsert
// is idempotent per match ID. worldID may be 0 when no specific world is
// being tracked.
func (t *Tracker) UpdateMatch(m *model.Match, worldID int) (*model.TrackedMatch, error) {
	now := t.clock.Now().UTC()

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.flk.Lock(); err != nil {
		return nil, fmt.Errorf("locking ledger: %w", err)
	}
	defer t.unlock()

	ledger := t.read()

	// Bound file growth across matchup rollovers.
	if len(ledger) > cleanupThreshold {
		if n := t.prune(ledger, now, DefaultGraceDays); n > 0 {
			t.log.Info().Int("removed", n).Msg("cleaned up expired matches")
		}
	}

	tracked, ok := ledger[m.ID]
	if !ok {
		tracked = model.NewTrackedMatch(m.ID, now)
		ledger[m.ID] = tracked
	}
	tracked.LastUpdated = now
	if worldID != 0 {
		tracked.WorldID = worldID
	}
	if !m.StartTime.IsZero() {
		start := m.StartTime
		tracked.StartTime = &start
	}
	if !m.EndTime.IsZero() {
		end := m.EndTime
		tracked.EndTime = &end
	}

	for color, tw := range m.Worlds {
		team, ok := tracked.Teams[color]
		if !ok {
			continue
		}
		team.MainWorld = tw.MainWorldName
		team.MainWorldID = tw.MainWorldID
		team.DisplayName = tw.DisplayName
		if team.DisplayName == "" {
			team.DisplayName = tw.MainWorldName
		}
		team.LinkedWorlds = append([]model.World{}, tw.LinkedWorlds...)
	}

	for _, mp := range m.Maps {
		for _, obj := range mp.Objectives {
			if obj.ClaimedBy == "" || obj.GuildName == "" {
				continue
			}
			owner, ok := model.ParseTeamColor(obj.Owner)
			if !ok {
				continue
			}
			guilds := tracked.Teams[owner].Guilds
			claim, ok := guilds[obj.ClaimedBy]
			if !ok {
				claim = &model.GuildClaim{
					ID:             obj.ClaimedBy,
					Name:           obj.GuildName,
					Tag:            obj.GuildTag,
					FirstSeen:      now,
					LastSeen:       now,
					ObjectiveTypes: []model.ObjectiveType{},
					MapsSeen:       []string{},
				}
				guilds[obj.ClaimedBy] = claim
			}
			claim.RecordSighting(now, obj.Type, mp.Type)
		}
	}

	if err := t.write(ledger); err != nil {
		return nil, err
	}
	return tracked, nil
}

// MatchSummary returns the tracked aggregate for a match, or false if the
// match has never been seen.
func (t *Tracker) MatchSummary(matchID string) (*model.TrackedMatch, bool) {
	ledger := t.load()
	tracked, ok := ledger[matchID]
	return tracked, ok
}

// GuildsByTeam lists one team's guild claims sorted case-insensitively by
// guild name.
func (t *Tracker) GuildsByTeam(matchID string, color model.TeamColor) []model.GuildClaim {
	tracked, ok := t.MatchSummary(matchID)
	if !ok {
		return []model.GuildClaim{}
	}
	team, ok := tracked.Teams[color]
	if !ok {
		return []model.GuildClaim{}
	}
	return team.SortedGuilds()
}

// AllGuildsSorted fans GuildsByTeam out across the three teams.
func (t *Tracker) AllGuildsSorted(matchID string) map[model.TeamColor][]model.GuildClaim {
	out := make(map[model.TeamColor][]model.GuildClaim, 3)
	tracked, ok := t.MatchSummary(matchID)
	if !ok {
		for _, color := range model.TeamColors() {
			out[color] = []model.GuildClaim{}
		}
		return out
	}
	for _, color := range model.TeamColors() {
		if team, ok := tracked.Teams[color]; ok {
			out[color] = team.SortedGuilds()
		} else {
			out[color] = []model.GuildClaim{}
		}
	}
	return out
}

// CleanupOldMatches removes every match whose end time is more than
// graceDays in the past and persists the pruned ledger. Matches without a
// parsable end time are never removed. Returns the number removed.
func (t *Tracker) CleanupOldMatches(graceDays int) (int, error) {
	now := t.clock.Now().UTC()

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.flk.Lock(); err != nil {
		return 0, fmt.Errorf("locking ledger: %w", err)
	}
	defer t.unlock()

	ledger := t.read()
	removed := t.prune(ledger, now, graceDays)
	if err := t.write(ledger); err != nil {
		return 0, err
	}
	return removed, nil
}

func (t *Tracker) prune(ledger Ledger, now time.Time, graceDays int) int {
	grace := time.Duration(graceDays) * 24 * time.Hour
	removed := 0
	for id, tracked := range ledger {
		if tracked.Expired(now, grace) {
			delete(ledger, id)
			removed++
		}
	}
	return removed
}

// ActiveMatches lists tracked match IDs, sorted for stable output.
func (t *Tracker) ActiveMatches() []string {
	ledger := t.load()
	ids := make([]string, 0, len(ledger))
	for id := range ledger {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsMatchCurrent reports whether a tracked match has not yet ended.
func (t *Tracker) IsMatchCurrent(matchID string) bool {
	tracked, ok := t.MatchSummary(matchID)
	return ok && tracked.Current(t.clock.Now().UTC())
}

// CurrentMatchID returns the tracked match whose end time is still in the
// future. When several qualify the most recently updated wins, with match
// ID as the final tie-break, so the result is deterministic.
func (t *Tracker) CurrentMatchID() (string, bool) {
	now := t.clock.Now().UTC()
	ledger := t.load()

	var best *model.TrackedMatch
	for _, tracked := range ledger {
		if !tracked.Current(now) {
			continue
		}
		if best == nil ||
			tracked.LastUpdated.After(best.LastUpdated) ||
			(tracked.LastUpdated.Equal(best.LastUpdated) && tracked.MatchID < best.MatchID) {
			best = tracked
		}
	}
	if best == nil {
		return "", false
	}
	return best.MatchID, true
}

func (t *Tracker) unlock() {
	if err := t.flk.Unlock(); err != nil {
		t.log.Error().Err(err).Msg("releasing ledger lock")
	}
}

// load takes a shared lock for the duration of the read.
func (t *Tracker) load() Ledger {
	shared := flock.New(t.path)
	if err := shared.RLock(); err != nil {
		t.log.Warn().Err(err).Msg("could not acquire shared ledger lock")
		return Ledger{}
	}
	defer func() {
		if err := shared.Unlock(); err != nil {
			t.log.Error().Err(err).Msg("releasing shared ledger lock")
		}
	}()
	return t.read()
}

// read assumes the caller holds at least a shared lock. A missing or
// corrupt ledger is an empty one; the next successful write replaces it.
func (t *Tracker) read() Ledger {
	b, err := os.ReadFile(t.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			t.log.Warn().Err(err).Msg("error loading ledger")
		}
		return Ledger{}
	}
	var ledger Ledger
	if err := json.Unmarshal(b, &ledger); err != nil {
		t.log.Warn().Err(err).Msg("corrupt ledger file, starting empty")
		return Ledger{}
	}
	if ledger == nil {
		ledger = Ledger{}
	}
	for id, tracked := range ledger {
		if tracked == nil {
			delete(ledger, id)
			continue
		}
		tracked.Normalize()
	}
	return ledger
}

// write assumes the caller holds the exclusive lock. Truncation happens
// under the lock and the file is synced before the lock is released.
func (t *Tracker) write(ledger Ledger) error {
	f, err := os.OpenFile(t.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	defer f.Close()

	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncating ledger: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ledger); err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing ledger: %w", err)
	}
	return nil
}
