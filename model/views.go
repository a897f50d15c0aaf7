package model

import "time"

// KDRBucket is one charting row of the K/D timeline: the chosen snapshot's
// metrics flattened alongside the bucket's age.
type KDRBucket struct {
	KDRSnapshot
	MinutesAgo int `json:"minutes_ago"`
}

// KDRTimeline is the K/D chart payload for one match.
type KDRTimeline struct {
	MatchID            string                `json:"match_id"`
	TeamNames          map[TeamColor]string  `json:"team_names"`
	Timeline           []KDRBucket           `json:"timeline"`
	CurrentKDR         map[TeamColor]float64 `json:"current_kdr"`
	CurrentKills       map[TeamColor]int     `json:"current_kills"`
	CurrentDeaths      map[TeamColor]int     `json:"current_deaths"`
	SnapshotsAvailable int                   `json:"snapshots_available"`
}

// ActivityBucket is one charting row of the objective-ownership timeline.
type ActivityBucket struct {
	TimeLabel  string     `json:"time_label"`
	MinutesAgo int        `json:"minutes_ago"`
	Red        int        `json:"red"`
	Green      int        `json:"green"`
	Blue       int        `json:"blue"`
	RedTypes   TypeCounts `json:"red_types"`
	GreenTypes TypeCounts `json:"green_types"`
	BlueTypes  TypeCounts `json:"blue_types"`
	Total      int        `json:"total"`
}

// CaptureEvent is a recent objective capture derived from claimed_at
// timestamps on currently owned objectives.
type CaptureEvent struct {
	Timestamp     time.Time     `json:"timestamp"`
	Team          string        `json:"team"`
	Map           string        `json:"map"`
	ObjectiveType ObjectiveType `json:"objective_type"`
	ObjectiveID   string        `json:"objective_id"`
	MinutesAgo    float64       `json:"minutes_ago"`
	CurrentOwner  bool          `json:"current_owner"`
}

// ActivityTimeline is the activity chart payload for one match.
type ActivityTimeline struct {
	MatchID            string               `json:"match_id"`
	RecentEvents       []CaptureEvent       `json:"recent_events"`
	Timeline           []ActivityBucket     `json:"timeline"`
	TeamNames          map[TeamColor]string `json:"team_names"`
	TotalCaptures      int                  `json:"total_captures"`
	SnapshotsAvailable int                  `json:"snapshots_available"`
}

// TeamInfo is the roster block of a tracked team, without its guild map.
type TeamInfo struct {
	MainWorld    string  `json:"main_world"`
	MainWorldID  int     `json:"main_world_id"`
	DisplayName  string  `json:"display_name"`
	LinkedWorlds []World `json:"linked_worlds"`
}

// MatchInfo is the header block of the tracked-guilds payload. All
// timestamps are pointers so an unseen match renders as explicit nulls
// rather than zero times.
type MatchInfo struct {
	MatchID     string                 `json:"match_id"`
	StartTime   *time.Time             `json:"start_time"`
	EndTime     *time.Time             `json:"end_time"`
	FirstSeen   *time.Time             `json:"first_seen"`
	LastUpdated *time.Time             `json:"last_updated"`
	Teams       map[TeamColor]TeamInfo `json:"teams"`
}

// TrackedGuilds is the ledger view for one match: header plus the guilds
// per team, sorted by name.
type TrackedGuilds struct {
	MatchInfo MatchInfo                  `json:"match_info"`
	Guilds    map[TeamColor][]GuildClaim `json:"guilds"`
}

// TrackedMatchStatus decorates a tracked match with whether it is the
// currently running one.
type TrackedMatchStatus struct {
	TrackedMatch
	IsCurrent bool `json:"is_current"`
}

// ActiveMatches is the overview of everything in the ledger.
type ActiveMatches struct {
	Matches        map[string]TrackedMatchStatus `json:"matches"`
	CurrentMatchID string                        `json:"current_match_id,omitempty"`
}

// Status is the dashboard health view.
type Status struct {
	UpstreamOK     bool `json:"upstream_ok"`
	BuildID        int  `json:"build_id,omitempty"`
	KeyPresent     bool `json:"key_present"`
	TrackedMatches int  `json:"tracked_matches"`
}
