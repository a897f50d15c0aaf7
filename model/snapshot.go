package model

import (
	"math"
	"time"
)

// KDRSnapshot is one point in the kill/death time series for a match.
// Deaths are floored at 1 when recorded so the ratio is always defined.
type KDRSnapshot struct {
	Timestamp   time.Time `json:"timestamp"`
	RedKDR      float64   `json:"red_kdr"`
	GreenKDR    float64   `json:"green_kdr"`
	BlueKDR     float64   `json:"blue_kdr"`
	RedKills    int       `json:"red_kills"`
	GreenKills  int       `json:"green_kills"`
	BlueKills   int       `json:"blue_kills"`
	RedDeaths   int       `json:"red_deaths"`
	GreenDeaths int       `json:"green_deaths"`
	BlueDeaths  int       `json:"blue_deaths"`
}

func (s KDRSnapshot) At() time.Time { return s.Timestamp }

// NewKDRSnapshot computes per-team kill/death ratios from the raw kills and
// deaths maps, which may use either key casing.
func NewKDRSnapshot(now time.Time, kills, deaths map[string]int) KDRSnapshot {
	s := KDRSnapshot{Timestamp: now.UTC()}

	s.RedKills = TeamCount(kills, TeamRed)
	s.GreenKills = TeamCount(kills, TeamGreen)
	s.BlueKills = TeamCount(kills, TeamBlue)

	s.RedDeaths = max(TeamCount(deaths, TeamRed), 1)
	s.GreenDeaths = max(TeamCount(deaths, TeamGreen), 1)
	s.BlueDeaths = max(TeamCount(deaths, TeamBlue), 1)

	s.RedKDR = Ratio(s.RedKills, s.RedDeaths)
	s.GreenKDR = Ratio(s.GreenKills, s.GreenDeaths)
	s.BlueKDR = Ratio(s.BlueKills, s.BlueDeaths)
	return s
}

// Ratio is kills/deaths rounded to 2 decimals, with deaths floored at 1.
func Ratio(kills, deaths int) float64 {
	if deaths < 1 {
		deaths = 1
	}
	return math.Round(float64(kills)/float64(deaths)*100) / 100
}

// TypeCounts tallies owned objectives by structure class.
type TypeCounts struct {
	Keep   int `json:"Keep"`
	Tower  int `json:"Tower"`
	Camp   int `json:"Camp"`
	Castle int `json:"Castle"`
}

func (t *TypeCounts) add(objType ObjectiveType) {
	switch objType {
	case ObjectiveKeep:
		t.Keep++
	case ObjectiveTower:
		t.Tower++
	case ObjectiveCamp:
		t.Camp++
	case ObjectiveCastle:
		t.Castle++
	}
}

// ActivitySnapshot is one point in the objective-ownership time series.
type ActivitySnapshot struct {
	Timestamp       time.Time  `json:"timestamp"`
	RedObjectives   int        `json:"red_objectives"`
	GreenObjectives int        `json:"green_objectives"`
	BlueObjectives  int        `json:"blue_objectives"`
	RedTypes        TypeCounts `json:"red_types"`
	GreenTypes      TypeCounts `json:"green_types"`
	BlueTypes       TypeCounts `json:"blue_types"`
}

func (s ActivitySnapshot) At() time.Time { return s.Timestamp }

// Total is the number of objectives owned by any team.
func (s ActivitySnapshot) Total() int {
	return s.RedObjectives + s.GreenObjectives + s.BlueObjectives
}

// AddObjective counts an owned objective toward the owning team. Neutral or
// unknown owners are ignored by the caller via ParseTeamColor.
func (s *ActivitySnapshot) AddObjective(color TeamColor, objType ObjectiveType) {
	switch color {
	case TeamRed:
		s.RedObjectives++
		s.RedTypes.add(objType)
	case TeamGreen:
		s.GreenObjectives++
		s.GreenTypes.add(objType)
	case TeamBlue:
		s.BlueObjectives++
		s.BlueTypes.add(objType)
	}
}

// NewActivitySnapshot counts current objective ownership across all maps of
// a match.
func NewActivitySnapshot(now time.Time, maps []MatchMap) ActivitySnapshot {
	s := ActivitySnapshot{Timestamp: now.UTC()}
	for _, mp := range maps {
		for _, obj := range mp.Objectives {
			color, ok := ParseTeamColor(obj.Owner)
			if !ok {
				continue
			}
			s.AddObjective(color, obj.Type)
		}
	}
	return s
}
