package model

import "time"

// ObjectiveType is the capturable structure class of a WvW objective.
type ObjectiveType string

const (
	ObjectiveCamp   ObjectiveType = "Camp"
	ObjectiveTower  ObjectiveType = "Tower"
	ObjectiveKeep   ObjectiveType = "Keep"
	ObjectiveCastle ObjectiveType = "Castle"
)

// World is a game server, or a WvW team entry merged in from the
// configured team-name lookup data.
type World struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// TeamWorlds describes one side of a match after world names have been
// resolved: the main world plus any linked worlds for this matchup cycle.
type TeamWorlds struct {
	MainWorldID   int     `json:"main_world_id"`
	MainWorldName string  `json:"main_world_name"`
	DisplayName   string  `json:"display_name"`
	LinkedWorlds  []World `json:"linked_worlds"`
	AllWorldIDs   []int   `json:"all_world_ids"`
}

// Objective is one capturable structure on a match map. GuildName and
// GuildTag are filled during enrichment when the claiming guild could be
// resolved; ClaimedBy alone only carries the opaque guild ID.
type Objective struct {
	ID            string        `json:"id"`
	Type          ObjectiveType `json:"type"`
	Owner         string        `json:"owner"`
	ClaimedBy     string        `json:"claimed_by,omitempty"`
	ClaimedAt     time.Time     `json:"claimed_at,omitempty"`
	PointsTick    int           `json:"points_tick"`
	PointsCapture int           `json:"points_capture"`
	YaksDelivered int           `json:"yaks_delivered"`
	GuildName     string        `json:"guild_name,omitempty"`
	GuildTag      string        `json:"guild_tag,omitempty"`
}

// MatchMap is one of the four battleground maps in a match.
type MatchMap struct {
	ID         int            `json:"id"`
	Type       string         `json:"type"`
	Scores     map[string]int `json:"scores,omitempty"`
	Objectives []Objective    `json:"objectives"`
}

// Skirmish is one fixed 2-hour scoring sub-period.
type Skirmish struct {
	ID     int            `json:"id"`
	Scores map[string]int `json:"scores"`
}

// Match is a WvW match, identified by "<region>-<tier>". Kills, Deaths and
// the other per-team maps keep the raw key casing from the API; use
// TeamCount to read them. Worlds is only populated after enrichment;
// MainWorlds and AllWorlds always carry the raw roster.
type Match struct {
	ID            string                   `json:"id"`
	StartTime     time.Time                `json:"start_time"`
	EndTime       time.Time                `json:"end_time"`
	Scores        map[string]int           `json:"scores,omitempty"`
	Kills         map[string]int           `json:"kills"`
	Deaths        map[string]int           `json:"deaths"`
	VictoryPoints map[string]int           `json:"victory_points,omitempty"`
	MainWorlds    map[string]int           `json:"-"`
	AllWorlds     map[string][]int         `json:"all_worlds"`
	Worlds        map[TeamColor]TeamWorlds `json:"worlds,omitempty"`
	Skirmishes    []Skirmish               `json:"skirmishes,omitempty"`
	Maps          []MatchMap               `json:"maps"`
}

// ContainsWorld reports whether the given world plays in this match on any
// team, main or linked.
func (m *Match) ContainsWorld(worldID int) bool {
	for _, ids := range m.AllWorlds {
		for _, id := range ids {
			if id == worldID {
				return true
			}
		}
	}
	return false
}

// TeamNames returns the display name per color, defaulting to "Red Team"
// style placeholders when enrichment has not resolved a name.
func (m *Match) TeamNames() map[TeamColor]string {
	names := map[TeamColor]string{
		TeamRed:   "Red Team",
		TeamGreen: "Green Team",
		TeamBlue:  "Blue Team",
	}
	for color, tw := range m.Worlds {
		if tw.DisplayName != "" {
			names[color] = tw.DisplayName
		} else if tw.MainWorldName != "" {
			names[color] = tw.MainWorldName
		}
	}
	return names
}
