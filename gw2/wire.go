package gw2

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/captainlinky/gw2dash/model"
)

// wvwMatch is the wire form of a WvW match. Per-team maps keep whatever key
// casing the API used; model.TeamCount handles both.
type wvwMatch struct {
	ID            string           `json:"id"`
	StartTime     string           `json:"start_time"`
	EndTime       string           `json:"end_time"`
	Scores        map[string]int   `json:"scores"`
	Worlds        map[string]int   `json:"worlds"`
	AllWorlds     map[string][]int `json:"all_worlds"`
	Deaths        map[string]int   `json:"deaths"`
	Kills         map[string]int   `json:"kills"`
	VictoryPoints map[string]int   `json:"victory_points"`
	Skirmishes    []wvwSkirmish    `json:"skirmishes"`
	Maps          []wvwMap         `json:"maps"`
}

type wvwSkirmish struct {
	ID     int            `json:"id"`
	Scores map[string]int `json:"scores"`
}

type wvwMap struct {
	ID         int            `json:"id"`
	Type       string         `json:"type"`
	Scores     map[string]int `json:"scores"`
	Objectives []wvwObjective `json:"objectives"`
}

type wvwObjective struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	Owner         string `json:"owner"`
	ClaimedBy     string `json:"claimed_by"`
	ClaimedAt     string `json:"claimed_at"`
	PointsTick    int    `json:"points_tick"`
	PointsCapture int    `json:"points_capture"`
	YaksDelivered int    `json:"yaks_delivered"`
}

func (m *wvwMatch) toMatch() *model.Match {
	out := &model.Match{
		ID:            m.ID,
		StartTime:     parseTime(m.StartTime),
		EndTime:       parseTime(m.EndTime),
		Scores:        m.Scores,
		Kills:         m.Kills,
		Deaths:        m.Deaths,
		VictoryPoints: m.VictoryPoints,
		MainWorlds:    m.Worlds,
		AllWorlds:     m.AllWorlds,
		Maps:          make([]model.MatchMap, 0, len(m.Maps)),
	}
	for _, s := range m.Skirmishes {
		out.Skirmishes = append(out.Skirmishes, model.Skirmish{ID: s.ID, Scores: s.Scores})
	}
	for _, mp := range m.Maps {
		mm := model.MatchMap{
			ID:         mp.ID,
			Type:       mp.Type,
			Scores:     mp.Scores,
			Objectives: make([]model.Objective, 0, len(mp.Objectives)),
		}
		for _, obj := range mp.Objectives {
			owner := obj.Owner
			if owner == "" {
				owner = "Neutral"
			}
			objType := obj.Type
			if objType == "" {
				objType = "Unknown"
			}
			mm.Objectives = append(mm.Objectives, model.Objective{
				ID:            obj.ID,
				Type:          model.ObjectiveType(objType),
				Owner:         owner,
				ClaimedBy:     obj.ClaimedBy,
				ClaimedAt:     parseTime(obj.ClaimedAt),
				PointsTick:    obj.PointsTick,
				PointsCapture: obj.PointsCapture,
				YaksDelivered: obj.YaksDelivered,
			})
		}
		out.Maps = append(out.Maps, mm)
	}
	return out
}

// parseTime returns the zero time for absent or malformed timestamps;
// downstream code treats zero as unknown.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// Guild is public guild info.
type Guild struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Tag  string `json:"tag"`
}

// ObjectiveInfo is static objective metadata from the objectives endpoint.
type ObjectiveInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	MapType  string `json:"map_type"`
	MapID    int    `json:"map_id"`
	SectorID int    `json:"sector_id"`
}

// WalletEntry is one raw wallet line; currency names are joined in the
// controller.
type WalletEntry struct {
	ID    int `json:"id"`
	Value int `json:"value"`
}

// Currency is display metadata for a wallet currency.
type Currency struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// LoadTeamNames reads the optional WvW team-name lookup file, a JSON
// document with a "team_names" object mapping team IDs to display names.
// These IDs are battleground identifiers the worlds endpoint does not know.
func LoadTeamNames(path string) (map[int]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		TeamNames map[string]string `json:"team_names"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	names := make(map[int]string, len(doc.TeamNames))
	for k, v := range doc.TeamNames {
		id, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		names[id] = v
	}
	return names, nil
}
