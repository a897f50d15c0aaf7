package model

import "strings"

// TeamColor identifies one of the three sides in a WvW match.
type TeamColor string

const (
	TeamRed   TeamColor = "red"
	TeamGreen TeamColor = "green"
	TeamBlue  TeamColor = "blue"
)

// TeamColors returns the three colors in the order used for display.
func TeamColors() []TeamColor {
	return []TeamColor{TeamRed, TeamGreen, TeamBlue}
}

// ParseTeamColor normalizes an owner string from the API into a TeamColor.
// The API is inconsistent about casing ("red" vs "Red"), and objectives can
// be owned by "Neutral" which is not a team.
func ParseTeamColor(s string) (TeamColor, bool) {
	switch strings.ToLower(s) {
	case "red":
		return TeamRed, true
	case "green":
		return TeamGreen, true
	case "blue":
		return TeamBlue, true
	}
	return "", false
}

// TeamCount looks up a per-team counter in a kills/deaths style map,
// accepting both lowercase and capitalized keys.
func TeamCount(m map[string]int, color TeamColor) int {
	if v, ok := m[string(color)]; ok {
		return v
	}
	title := strings.ToUpper(string(color[:1])) + string(color[1:])
	return m[title]
}
