package model

import (
	"testing"
	"time"
)

var snapTime = time.Date(2024, 8, 12, 12, 0, 0, 0, time.UTC)

func TestNewKDRSnapshot(t *testing.T) {
	kills := map[string]int{"red": 10, "green": 5, "blue": 0}
	deaths := map[string]int{"red": 2, "green": 0, "blue": 3}

	s := NewKDRSnapshot(snapTime, kills, deaths)

	if s.Timestamp != snapTime {
		t.Errorf("timestamp was not expected value: %v", s.Timestamp)
	}
	if s.RedKills != 10 || s.GreenKills != 5 || s.BlueKills != 0 {
		t.Errorf("kills were not expected values: %d/%d/%d", s.RedKills, s.GreenKills, s.BlueKills)
	}
	// Zero deaths are floored at 1 so the ratio is always defined.
	if s.RedDeaths != 2 || s.GreenDeaths != 1 || s.BlueDeaths != 3 {
		t.Errorf("deaths were not expected values: %d/%d/%d", s.RedDeaths, s.GreenDeaths, s.BlueDeaths)
	}
	if s.RedKDR != 5.0 || s.GreenKDR != 5.0 || s.BlueKDR != 0.0 {
		t.Errorf("ratios were not expected values: %v/%v/%v", s.RedKDR, s.GreenKDR, s.BlueKDR)
	}
}

func TestNewKDRSnapshotCapitalizedKeys(t *testing.T) {
	kills := map[string]int{"Red": 7, "Green": 3, "Blue": 1}
	deaths := map[string]int{"Red": 2, "Green": 2, "Blue": 2}

	s := NewKDRSnapshot(snapTime, kills, deaths)
	if s.RedKills != 7 || s.GreenKills != 3 || s.BlueKills != 1 {
		t.Errorf("capitalized keys were not counted: %d/%d/%d", s.RedKills, s.GreenKills, s.BlueKills)
	}
	if s.RedKDR != 3.5 {
		t.Errorf("red ratio was not expected value: %v", s.RedKDR)
	}
}

func TestRatioRounding(t *testing.T) {
	if r := Ratio(1, 3); r != 0.33 {
		t.Errorf("1/3 was not rounded to 0.33: %v", r)
	}
	if r := Ratio(2, 3); r != 0.67 {
		t.Errorf("2/3 was not rounded to 0.67: %v", r)
	}
	if r := Ratio(5, 0); r != 5.0 {
		t.Errorf("zero deaths were not floored: %v", r)
	}
}

func TestNewActivitySnapshot(t *testing.T) {
	maps := []MatchMap{
		{
			Type: "Center",
			Objectives: []Objective{
				{ID: "38-9", Type: ObjectiveCastle, Owner: "Red"},
				{ID: "38-11", Type: ObjectiveTower, Owner: "Green"},
				{ID: "38-15", Type: ObjectiveCamp, Owner: "Blue"},
				{ID: "38-124", Type: "Spawn", Owner: "Neutral"},
			},
		},
		{
			Type: "RedHome",
			Objectives: []Objective{
				{ID: "1099-113", Type: ObjectiveKeep, Owner: "Red"},
				{ID: "1099-105", Type: ObjectiveCamp, Owner: "red"},
			},
		},
	}

	s := NewActivitySnapshot(snapTime, maps)

	if s.RedObjectives != 3 || s.GreenObjectives != 1 || s.BlueObjectives != 1 {
		t.Errorf("counts were not expected values: %d/%d/%d", s.RedObjectives, s.GreenObjectives, s.BlueObjectives)
	}
	if s.Total() != 5 {
		t.Errorf("total was not 5: %d", s.Total())
	}
	if s.RedTypes.Castle != 1 || s.RedTypes.Keep != 1 || s.RedTypes.Camp != 1 {
		t.Errorf("red types were not expected values: %+v", s.RedTypes)
	}
	if s.GreenTypes.Tower != 1 || s.BlueTypes.Camp != 1 {
		t.Errorf("green/blue types were not expected values: %+v %+v", s.GreenTypes, s.BlueTypes)
	}
}

func TestParseTeamColor(t *testing.T) {
	if c, ok := ParseTeamColor("Red"); !ok || c != TeamRed {
		t.Errorf("Red was not parsed: %v %v", c, ok)
	}
	if c, ok := ParseTeamColor("blue"); !ok || c != TeamBlue {
		t.Errorf("blue was not parsed: %v %v", c, ok)
	}
	if _, ok := ParseTeamColor("Neutral"); ok {
		t.Error("Neutral should not parse as a team")
	}
	if _, ok := ParseTeamColor(""); ok {
		t.Error("empty owner should not parse as a team")
	}
}

func TestTeamCountCasingFallback(t *testing.T) {
	m := map[string]int{"Red": 4, "green": 9}
	if n := TeamCount(m, TeamRed); n != 4 {
		t.Errorf("capitalized fallback failed: %d", n)
	}
	if n := TeamCount(m, TeamGreen); n != 9 {
		t.Errorf("lowercase lookup failed: %d", n)
	}
	if n := TeamCount(m, TeamBlue); n != 0 {
		t.Errorf("missing team was not zero: %d", n)
	}
}
