package model

import (
	"sort"
	"strings"
	"time"
)

// GuildClaim records that a guild has been observed holding objectives for
// one team in one tracked match. The objective-type and map sets are
// distinct sightings, not counters.
type GuildClaim struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Tag            string          `json:"tag"`
	FirstSeen      time.Time       `json:"first_seen"`
	LastSeen       time.Time       `json:"last_seen"`
	ObjectiveTypes []ObjectiveType `json:"objective_types"`
	MapsSeen       []string        `json:"maps_seen"`
}

// RecordSighting updates the claim for another observation of the guild
// holding an objective. FirstSeen is never touched.
func (g *GuildClaim) RecordSighting(now time.Time, objType ObjectiveType, mapType string) {
	g.LastSeen = now
	if !containsType(g.ObjectiveTypes, objType) {
		g.ObjectiveTypes = append(g.ObjectiveTypes, objType)
	}
	if !containsString(g.MapsSeen, mapType) {
		g.MapsSeen = append(g.MapsSeen, mapType)
	}
}

func containsType(list []ObjectiveType, t ObjectiveType) bool {
	for _, v := range list {
		if v == t {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// TeamRecord is one side of a tracked match: the resolved world roster plus
// every guild seen claiming for the team.
type TeamRecord struct {
	MainWorld    string                 `json:"main_world"`
	MainWorldID  int                    `json:"main_world_id"`
	DisplayName  string                 `json:"display_name"`
	LinkedWorlds []World                `json:"linked_worlds"`
	Guilds       map[string]*GuildClaim `json:"guilds"`
}

// SortedGuilds returns the team's guild claims ordered case-insensitively
// by guild name.
func (t *TeamRecord) SortedGuilds() []GuildClaim {
	guilds := make([]GuildClaim, 0, len(t.Guilds))
	for _, g := range t.Guilds {
		guilds = append(guilds, *g)
	}
	sort.Slice(guilds, func(i, j int) bool {
		a := strings.ToLower(guilds[i].Name)
		b := strings.ToLower(guilds[j].Name)
		if a == b {
			return guilds[i].ID < guilds[j].ID
		}
		return a < b
	})
	return guilds
}

// TrackedMatch is the ledger aggregate for one match ID. StartTime and
// EndTime come from the remote source and may be absent; bookkeeping
// timestamps are set by the tracker.
type TrackedMatch struct {
	MatchID     string                    `json:"match_id"`
	StartTime   *time.Time                `json:"start_time"`
	EndTime     *time.Time                `json:"end_time"`
	FirstSeen   time.Time                 `json:"first_seen"`
	LastUpdated time.Time                 `json:"last_updated"`
	WorldID     int                       `json:"world_id,omitempty"`
	Teams       map[TeamColor]*TeamRecord `json:"teams"`
}

// NewTrackedMatch initializes the aggregate for a match seen for the first
// time, with empty rosters and guild sets for all three teams.
func NewTrackedMatch(matchID string, now time.Time) *TrackedMatch {
	teams := make(map[TeamColor]*TeamRecord, 3)
	for _, color := range TeamColors() {
		teams[color] = &TeamRecord{
			LinkedWorlds: []World{},
			Guilds:       make(map[string]*GuildClaim),
		}
	}
	return &TrackedMatch{
		MatchID:     matchID,
		FirstSeen:   now,
		LastUpdated: now,
		Teams:       teams,
	}
}

// Normalize backfills missing team records and nil collections. The ledger
// file is shared with other processes, so a decoded aggregate cannot be
// trusted to carry all three teams or non-nil guild maps.
func (t *TrackedMatch) Normalize() {
	if t.Teams == nil {
		t.Teams = make(map[TeamColor]*TeamRecord, 3)
	}
	for _, color := range TeamColors() {
		team := t.Teams[color]
		if team == nil {
			team = &TeamRecord{}
			t.Teams[color] = team
		}
		if team.LinkedWorlds == nil {
			team.LinkedWorlds = []World{}
		}
		if team.Guilds == nil {
			team.Guilds = make(map[string]*GuildClaim)
		}
	}
}

// Expired reports whether the match ended more than grace before now.
// Matches without a known end time never expire.
func (t *TrackedMatch) Expired(now time.Time, grace time.Duration) bool {
	if t.EndTime == nil {
		return false
	}
	return t.EndTime.Before(now.Add(-grace))
}

// Current reports whether the match's end time is still in the future.
func (t *TrackedMatch) Current(now time.Time) bool {
	return t.EndTime != nil && now.Before(*t.EndTime)
}
