package controller

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/captainlinky/gw2dash/model"
	"github.com/captainlinky/gw2dash/timeline"
)

// Caps on how many claiming guilds get their names resolved, to bound the
// fan-out against the rate-limited guild endpoint.
const (
	guildLookupCapSingle = 30
	guildLookupCapAll    = 50
)

func (c *controller) MatchForWorld(ctx context.Context, worldID int) (*model.Match, error) {
	m, err := c.gw2.MatchByWorld(ctx, worldID)
	if err != nil {
		// The by-world lookup is flaky for linked worlds; scan all matches
		// before giving up, re-raising the primary error if that fails too.
		all, scanErr := c.gw2.Matches(ctx)
		if scanErr != nil {
			return nil, err
		}
		for i := range all {
			if all[i].ContainsWorld(worldID) {
				m = &all[i]
				break
			}
		}
		if m == nil {
			return nil, err
		}
	}

	if err := c.enrich(ctx, m, guildLookupCapSingle); err != nil {
		return nil, err
	}
	if _, err := c.tracker.UpdateMatch(m, worldID); err != nil {
		return nil, fmt.Errorf("updating guild ledger: %w", err)
	}
	return m, nil
}

func (c *controller) Matches(ctx context.Context) ([]model.Match, error) {
	matches, err := c.gw2.Matches(ctx)
	if err != nil {
		return nil, err
	}
	for i := range matches {
		if err := c.enrich(ctx, &matches[i], guildLookupCapAll); err != nil {
			return nil, err
		}
		if _, err := c.tracker.UpdateMatch(&matches[i], 0); err != nil {
			return nil, fmt.Errorf("updating guild ledger: %w", err)
		}
	}
	return matches, nil
}

// enrich resolves world display names and claiming-guild names on a raw
// match. Guild resolution is best-effort: a failed fan-out leaves the
// claims anonymous rather than failing the match.
func (c *controller) enrich(ctx context.Context, m *model.Match, guildCap int) error {
	worlds, err := c.gw2.Worlds(ctx)
	if err != nil {
		return fmt.Errorf("resolving world names: %w", err)
	}
	worldNames := make(map[int]string, len(worlds))
	for _, w := range worlds {
		worldNames[w.ID] = w.Name
	}
	worldName := func(id int) string {
		if name, ok := worldNames[id]; ok {
			return name
		}
		return fmt.Sprintf("World %d", id)
	}

	m.Worlds = make(map[model.TeamColor]model.TeamWorlds, 3)
	for _, color := range model.TeamColors() {
		mainID, ok := m.MainWorlds[string(color)]
		if !ok {
			continue
		}
		tw := model.TeamWorlds{
			MainWorldID:   mainID,
			MainWorldName: worldName(mainID),
			DisplayName:   worldName(mainID),
			LinkedWorlds:  []model.World{},
			AllWorldIDs:   m.AllWorlds[string(color)],
		}
		for _, wid := range m.AllWorlds[string(color)] {
			if wid != mainID {
				tw.LinkedWorlds = append(tw.LinkedWorlds, model.World{ID: wid, Name: worldName(wid)})
			}
		}
		m.Worlds[color] = tw
	}

	guildIDs := claimedGuildIDs(m, guildCap)
	if len(guildIDs) == 0 {
		return nil
	}
	guilds, err := c.gw2.Guilds(ctx, guildIDs)
	if err != nil {
		c.log.Warn().Err(err).Str("match", m.ID).Msg("could not resolve guilds")
		return nil
	}
	names := make(map[string]int, len(guilds))
	for i, g := range guilds {
		names[g.ID] = i
	}
	for mi := range m.Maps {
		objs := m.Maps[mi].Objectives
		for oi := range objs {
			if objs[oi].ClaimedBy == "" {
				continue
			}
			if gi, ok := names[objs[oi].ClaimedBy]; ok {
				objs[oi].GuildName = guilds[gi].Name
				objs[oi].GuildTag = guilds[gi].Tag
			}
		}
	}
	return nil
}

// claimedGuildIDs collects distinct claiming guild IDs in first-seen order,
// capped.
func claimedGuildIDs(m *model.Match, limit int) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, mp := range m.Maps {
		for _, obj := range mp.Objectives {
			if obj.ClaimedBy == "" || seen[obj.ClaimedBy] {
				continue
			}
			seen[obj.ClaimedBy] = true
			ids = append(ids, obj.ClaimedBy)
			if len(ids) >= limit {
				return ids
			}
		}
	}
	return ids
}

func (c *controller) KDRTimeline(ctx context.Context, worldID int, window string) (*model.KDRTimeline, error) {
	m, err := c.MatchForWorld(ctx, worldID)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now().UTC()
	current := model.NewKDRSnapshot(now, m.Kills, m.Deaths)
	snaps := c.kdr.Snapshots(m.ID)

	_, spec := timeline.SpecFor(window)
	rows := make([]model.KDRBucket, 0, spec.Buckets)
	for _, b := range timeline.Build(now, snaps, current, spec) {
		row := model.KDRBucket{KDRSnapshot: b.Value, MinutesAgo: b.MinutesAgo}
		row.Timestamp = b.Timestamp
		rows = append(rows, row)
	}

	return &model.KDRTimeline{
		MatchID:   m.ID,
		TeamNames: m.TeamNames(),
		Timeline:  rows,
		CurrentKDR: map[model.TeamColor]float64{
			model.TeamRed:   current.RedKDR,
			model.TeamGreen: current.GreenKDR,
			model.TeamBlue:  current.BlueKDR,
		},
		CurrentKills: map[model.TeamColor]int{
			model.TeamRed:   current.RedKills,
			model.TeamGreen: current.GreenKills,
			model.TeamBlue:  current.BlueKills,
		},
		CurrentDeaths: map[model.TeamColor]int{
			model.TeamRed:   current.RedDeaths,
			model.TeamGreen: current.GreenDeaths,
			model.TeamBlue:  current.BlueDeaths,
		},
		SnapshotsAvailable: len(snaps),
	}, nil
}

func (c *controller) ActivityTimeline(ctx context.Context, worldID int, window string) (*model.ActivityTimeline, error) {
	m, err := c.MatchForWorld(ctx, worldID)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now().UTC()
	current := model.NewActivitySnapshot(now, m.Maps)
	snaps := c.activity.Snapshots(m.ID)

	_, spec := timeline.SpecFor(window)
	rows := make([]model.ActivityBucket, 0, spec.Buckets)
	for _, b := range timeline.Build(now, snaps, current, spec) {
		rows = append(rows, model.ActivityBucket{
			TimeLabel:  b.Label(),
			MinutesAgo: b.MinutesAgo,
			Red:        b.Value.RedObjectives,
			Green:      b.Value.GreenObjectives,
			Blue:       b.Value.BlueObjectives,
			RedTypes:   b.Value.RedTypes,
			GreenTypes: b.Value.GreenTypes,
			BlueTypes:  b.Value.BlueTypes,
			Total:      b.Value.Total(),
		})
	}

	events := captureEvents(now, m)
	recent := make([]model.CaptureEvent, 0, len(events))
	for _, e := range events {
		if e.MinutesAgo <= 24*60 {
			recent = append(recent, e)
		}
		if len(recent) == 100 {
			break
		}
	}

	return &model.ActivityTimeline{
		MatchID:            m.ID,
		RecentEvents:       recent,
		Timeline:           rows,
		TeamNames:          m.TeamNames(),
		TotalCaptures:      len(events),
		SnapshotsAvailable: len(snaps),
	}, nil
}

// captureEvents derives capture events from claimed_at timestamps on owned
// objectives, newest first.
func captureEvents(now time.Time, m *model.Match) []model.CaptureEvent {
	var events []model.CaptureEvent
	for _, mp := range m.Maps {
		for _, obj := range mp.Objectives {
			if obj.ClaimedAt.IsZero() || obj.Owner == "Neutral" {
				continue
			}
			minutes := now.Sub(obj.ClaimedAt).Minutes()
			events = append(events, model.CaptureEvent{
				Timestamp:     obj.ClaimedAt,
				Team:          obj.Owner,
				Map:           mp.Type,
				ObjectiveType: obj.Type,
				ObjectiveID:   obj.ID,
				MinutesAgo:    math.Round(minutes*10) / 10,
				CurrentOwner:  true,
			})
		}
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	return events
}

func (c *controller) TrackedGuilds(matchID string) *model.TrackedGuilds {
	info := model.MatchInfo{
		MatchID: matchID,
		Teams:   make(map[model.TeamColor]model.TeamInfo, 3),
	}
	if tracked, ok := c.tracker.MatchSummary(matchID); ok {
		info.StartTime = tracked.StartTime
		info.EndTime = tracked.EndTime
		firstSeen, lastUpdated := tracked.FirstSeen, tracked.LastUpdated
		info.FirstSeen = &firstSeen
		info.LastUpdated = &lastUpdated
		for color, team := range tracked.Teams {
			info.Teams[color] = model.TeamInfo{
				MainWorld:    team.MainWorld,
				MainWorldID:  team.MainWorldID,
				DisplayName:  team.DisplayName,
				LinkedWorlds: team.LinkedWorlds,
			}
		}
	}
	return &model.TrackedGuilds{
		MatchInfo: info,
		Guilds:    c.tracker.AllGuildsSorted(matchID),
	}
}

func (c *controller) ActiveMatches() *model.ActiveMatches {
	currentID, _ := c.tracker.CurrentMatchID()
	out := &model.ActiveMatches{
		Matches:        make(map[string]model.TrackedMatchStatus),
		CurrentMatchID: currentID,
	}
	for _, id := range c.tracker.ActiveMatches() {
		tracked, ok := c.tracker.MatchSummary(id)
		if !ok {
			continue
		}
		out.Matches[id] = model.TrackedMatchStatus{
			TrackedMatch: *tracked,
			IsCurrent:    id == currentID,
		}
	}
	return out
}

func (c *controller) TrackWorld(ctx context.Context, worldID int) error {
	m, err := c.gw2.MatchByWorld(ctx, worldID)
	if err != nil {
		return err
	}

	// Each stage runs even when an earlier one fails, so one bad file does
	// not stop the other series from advancing.
	var errs []error
	if err := c.kdr.Record(ctx, m.ID, worldID); err != nil {
		errs = append(errs, fmt.Errorf("recording kdr snapshot: %w", err))
	}
	if err := c.activity.Record(ctx, m.ID, worldID); err != nil {
		errs = append(errs, fmt.Errorf("recording activity snapshot: %w", err))
	}

	// MatchForWorld enriches and updates the guild ledger.
	if _, err := c.MatchForWorld(ctx, worldID); err != nil {
		errs = append(errs, fmt.Errorf("updating guild tracking: %w", err))
	}
	return errors.Join(errs...)
}

func (c *controller) RunPeriodicTracking(frequency time.Duration, shutdown chan bool, wg *sync.WaitGroup) {
	ticker := time.NewTicker(frequency)
	defer wg.Done()
	defer ticker.Stop()

	c.log.Info().Dur("frequency", frequency).Int("world", c.homeWorld).Msg("starting WvW tracking loop")

	// Run one cycle up front so a fresh install has data before the
	// first tick.
	c.trackOnce()

	for {
		select {
		case <-shutdown:
			return
		case <-ticker.C:
			c.trackOnce()
		}
	}
}

func (c *controller) trackOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := c.TrackWorld(ctx, c.homeWorld); err != nil {
		c.log.Error().Err(err).Int("world", c.homeWorld).Msg("tracking cycle failed")
	}
}
