package controller_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/itbasis/go-clock"
	"github.com/rs/zerolog"

	"github.com/captainlinky/gw2dash/controller"
	"github.com/captainlinky/gw2dash/gw2"
	"github.com/captainlinky/gw2dash/model"
	"github.com/captainlinky/gw2dash/store"
	"github.com/captainlinky/gw2dash/testutils"
	"github.com/captainlinky/gw2dash/tracker"
)

func TestMatchForWorldEnriches(t *testing.T) {
	tc := testutils.NewTestController(t.TempDir())
	defer tc.Close()

	m, err := tc.Ctrl.MatchForWorld(context.Background(), testutils.HomeWorldID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.ID != "1-3" {
		t.Fatalf("match id was not expected value: %s", m.ID)
	}

	red, ok := m.Worlds[model.TeamRed]
	if !ok {
		t.Fatal("red team worlds missing after enrichment")
	}
	if red.MainWorldName != "Jade Quarry" {
		t.Errorf("red main world was not resolved: %s", red.MainWorldName)
	}
	if len(red.LinkedWorlds) != 1 || red.LinkedWorlds[0].Name != "Devona's Rest" {
		t.Errorf("linked worlds were not resolved: %+v", red.LinkedWorlds)
	}

	castle := m.Maps[0].Objectives[0]
	if castle.GuildName != "Edge of the Mists" || castle.GuildTag != "EotM" {
		t.Errorf("claiming guild was not resolved: %+v", castle)
	}

	// The lookup also feeds the guild ledger.
	tracked, ok := tc.Tracker.MatchSummary("1-3")
	if !ok {
		t.Fatal("match was not recorded in the ledger")
	}
	if len(tracked.Teams[model.TeamRed].Guilds) != 1 {
		t.Errorf("red guild claims were not recorded: %+v", tracked.Teams[model.TeamRed].Guilds)
	}
}

func TestMatchForWorldFallbackScan(t *testing.T) {
	tc := testutils.NewTestController(t.TempDir())
	defer tc.Close()

	// 2012 is a linked world the by-world endpoint does not resolve; the
	// scan over all matches finds it on blue in 2-1.
	m, err := tc.Ctrl.MatchForWorld(context.Background(), 2012)
	if err != nil {
		t.Fatalf("expected fallback scan to find the match: %v", err)
	}
	if m.ID != "2-1" {
		t.Errorf("match id was not expected value: %s", m.ID)
	}
}

func TestMatchForWorldUnknownWorld(t *testing.T) {
	tc := testutils.NewTestController(t.TempDir())
	defer tc.Close()

	_, err := tc.Ctrl.MatchForWorld(context.Background(), 9999)
	if !errors.Is(err, gw2.ErrNoMatch) {
		t.Errorf("expected ErrNoMatch, got %v", err)
	}
}

func TestTrackWorld(t *testing.T) {
	tc := testutils.NewTestController(t.TempDir())
	defer tc.Close()

	if err := tc.Ctrl.TrackWorld(context.Background(), testutils.HomeWorldID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := len(tc.KDR.Snapshots("1-3")); got != 1 {
		t.Errorf("expected 1 kdr snapshot, got %d", got)
	}
	if got := len(tc.Activity.Snapshots("1-3")); got != 1 {
		t.Errorf("expected 1 activity snapshot, got %d", got)
	}
	if _, ok := tc.Tracker.MatchSummary("1-3"); !ok {
		t.Error("tracked match missing after tracking cycle")
	}
}

// customController builds a controller over the fake upstream with its own
// kdr store path and home world, for tests that need a broken store or a
// world with no match.
func customController(t *testing.T, kdrPath string, homeWorld int) (controller.C, *testutils.FakeGW2Server, *store.Store[model.KDRSnapshot], *store.Store[model.ActivitySnapshot], *tracker.Tracker) {
	t.Helper()
	fake := testutils.NewFakeGW2Server()
	t.Cleanup(fake.Close)

	mock := clock.NewMock()
	mock.Set(testutils.FixtureTime)
	client := gw2.NewForTest(fake.URL(), mock)

	dir := t.TempDir()
	kdr := store.NewKDR(kdrPath, client, mock, zerolog.Nop())
	activity := store.NewActivity(filepath.Join(dir, "activity_history.json"), client, mock, zerolog.Nop())
	trk, err := tracker.New(dir, mock, zerolog.Nop())
	if err != nil {
		t.Fatalf("error creating tracker: %v", err)
	}
	ctrl, err := controller.New(mock, client, kdr, activity, trk, homeWorld, zerolog.Nop())
	if err != nil {
		t.Fatalf("error creating controller: %v", err)
	}
	return ctrl, fake, kdr, activity, trk
}

func TestTrackWorldStagesAreIndependent(t *testing.T) {
	// A directory where the kdr store expects a file makes every kdr save
	// fail while the other stages keep working.
	badPath := filepath.Join(t.TempDir(), "kdr_history.json")
	if err := os.MkdirAll(badPath, 0o755); err != nil {
		t.Fatalf("error creating directory: %v", err)
	}
	ctrl, _, kdr, activity, trk := customController(t, badPath, testutils.HomeWorldID)

	err := ctrl.TrackWorld(context.Background(), testutils.HomeWorldID)
	if err == nil {
		t.Fatal("expected the kdr storage failure to be reported")
	}

	if got := len(kdr.Snapshots("1-3")); got != 0 {
		t.Errorf("expected no kdr snapshots, got %d", got)
	}
	if got := len(activity.Snapshots("1-3")); got != 1 {
		t.Errorf("activity snapshot should still be recorded, got %d", got)
	}
	if _, ok := trk.MatchSummary("1-3"); !ok {
		t.Error("guild ledger should still be updated")
	}
}

func TestRunPeriodicTracking(t *testing.T) {
	tc := testutils.NewTestController(t.TempDir())
	defer tc.Close()

	shutdown := make(chan bool)
	go func() {
		time.Sleep(130 * time.Millisecond) // the immediate cycle plus two ticks
		close(shutdown)
	}()
	var wg sync.WaitGroup

	wg.Add(1)
	tc.Ctrl.RunPeriodicTracking(50*time.Millisecond, shutdown, &wg)
	wg.Wait()

	// One snapshot per cycle: the immediate one plus at least one tick.
	snaps := tc.KDR.Snapshots("1-3")
	if len(snaps) < 2 {
		t.Errorf("expected at least 2 snapshots from the loop, got %d", len(snaps))
	}
	if got := len(tc.Activity.Snapshots("1-3")); got < 2 {
		t.Errorf("expected at least 2 activity snapshots from the loop, got %d", got)
	}
	if _, ok := tc.Tracker.MatchSummary("1-3"); !ok {
		t.Error("loop did not update the guild ledger")
	}
}

func TestRunPeriodicTrackingSurvivesFailures(t *testing.T) {
	// 9999 plays in no match, so every cycle fails.
	dir := t.TempDir()
	ctrl, fake, kdr, _, _ := customController(t, filepath.Join(dir, "kdr_history.json"), 9999)

	shutdown := make(chan bool)
	go func() {
		time.Sleep(130 * time.Millisecond)
		close(shutdown)
	}()
	var wg sync.WaitGroup

	wg.Add(1)
	ctrl.RunPeriodicTracking(50*time.Millisecond, shutdown, &wg)
	wg.Wait()

	// Failed lookups are not cached, so each surviving cycle reaches the
	// server again. More than one request means the first failure did not
	// kill the loop.
	if fake.RequestCount() < 2 {
		t.Errorf("loop should keep cycling after failures, got %d requests", fake.RequestCount())
	}
	if got := len(kdr.Snapshots("1-3")); got != 0 {
		t.Errorf("expected no snapshots for a world with no match, got %d", got)
	}
}

func TestKDRTimeline(t *testing.T) {
	tc := testutils.NewTestController(t.TempDir())
	defer tc.Close()

	// Record two snapshots 15 minutes apart, then build the chart.
	if err := tc.Ctrl.TrackWorld(context.Background(), testutils.HomeWorldID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tc.Clock.Add(15 * time.Minute)
	if err := tc.Ctrl.TrackWorld(context.Background(), testutils.HomeWorldID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tl, err := tc.Ctrl.KDRTimeline(context.Background(), testutils.HomeWorldID, "6h")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tl.MatchID != "1-3" {
		t.Errorf("match id was not expected value: %s", tl.MatchID)
	}
	if len(tl.Timeline) != 24 {
		t.Fatalf("expected 24 buckets, got %d", len(tl.Timeline))
	}
	if tl.SnapshotsAvailable != 2 {
		t.Errorf("expected 2 snapshots available, got %d", tl.SnapshotsAvailable)
	}
	if tl.TeamNames[model.TeamRed] != "Jade Quarry" {
		t.Errorf("red team name was not resolved: %s", tl.TeamNames[model.TeamRed])
	}
	// 8041 kills over 6490 deaths.
	if tl.CurrentKDR[model.TeamRed] != 1.24 {
		t.Errorf("current red ratio was not expected value: %v", tl.CurrentKDR[model.TeamRed])
	}

	// The two persisted snapshots land in the two newest buckets; the rest
	// are fallbacks carrying the current values.
	newest := tl.Timeline[23]
	if newest.RedKills != 8041 || newest.MinutesAgo != 0 {
		t.Errorf("newest bucket was not expected value: %+v", newest)
	}
	oldest := tl.Timeline[0]
	if oldest.MinutesAgo != 345 {
		t.Errorf("oldest bucket age was not expected value: %d", oldest.MinutesAgo)
	}
}

func TestActivityTimeline(t *testing.T) {
	tc := testutils.NewTestController(t.TempDir())
	defer tc.Close()

	tl, err := tc.Ctrl.ActivityTimeline(context.Background(), testutils.HomeWorldID, "24h")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tl.Timeline) != 24 {
		t.Fatalf("expected 24 buckets, got %d", len(tl.Timeline))
	}

	// No persisted history: every bucket falls back to current ownership.
	newest := tl.Timeline[23]
	if newest.Red != 2 || newest.Green != 2 || newest.Blue != 1 {
		t.Errorf("ownership counts were not expected values: %+v", newest)
	}
	if newest.Total != 5 {
		t.Errorf("total was not expected value: %d", newest.Total)
	}
	if newest.TimeLabel != "0h 0m ago" {
		t.Errorf("time label was not expected value: %s", newest.TimeLabel)
	}

	// The three claimed_at stamps inside the last day become events,
	// newest first.
	if tl.TotalCaptures != 3 {
		t.Fatalf("expected 3 capture events, got %d", tl.TotalCaptures)
	}
	if len(tl.RecentEvents) != 3 {
		t.Fatalf("expected 3 recent events, got %d", len(tl.RecentEvents))
	}
	first := tl.RecentEvents[0]
	if first.ObjectiveID != "38-11" || first.MinutesAgo != 90.0 {
		t.Errorf("newest event was not expected value: %+v", first)
	}
	last := tl.RecentEvents[2]
	if last.ObjectiveID != "1099-113" {
		t.Errorf("oldest event was not expected value: %+v", last)
	}
}

func TestTrackedGuilds(t *testing.T) {
	tc := testutils.NewTestController(t.TempDir())
	defer tc.Close()

	if _, err := tc.Ctrl.MatchForWorld(context.Background(), testutils.HomeWorldID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tg := tc.Ctrl.TrackedGuilds("1-3")
	if tg.MatchInfo.MatchID != "1-3" {
		t.Errorf("match id was not expected value: %s", tg.MatchInfo.MatchID)
	}
	if tg.MatchInfo.FirstSeen == nil || tg.MatchInfo.EndTime == nil {
		t.Error("match info timestamps missing for a tracked match")
	}
	if tg.MatchInfo.Teams[model.TeamRed].MainWorld != "Jade Quarry" {
		t.Errorf("red roster was not recorded: %+v", tg.MatchInfo.Teams[model.TeamRed])
	}

	red := tg.Guilds[model.TeamRed]
	if len(red) != 1 || red[0].Name != "Edge of the Mists" {
		t.Errorf("red guilds were not expected values: %+v", red)
	}
	green := tg.Guilds[model.TeamGreen]
	if len(green) != 1 || green[0].Name != "Crimson Warband" {
		t.Errorf("green guilds were not expected values: %+v", green)
	}

	// An unseen match still renders with empty guild lists and no times.
	unseen := tc.Ctrl.TrackedGuilds("9-9")
	if unseen.MatchInfo.FirstSeen != nil {
		t.Error("unseen match should have no first seen time")
	}
	if len(unseen.Guilds[model.TeamRed]) != 0 {
		t.Errorf("unseen match should have empty guilds: %+v", unseen.Guilds)
	}
}

func TestActiveMatches(t *testing.T) {
	tc := testutils.NewTestController(t.TempDir())
	defer tc.Close()

	if got := tc.Ctrl.ActiveMatches(); len(got.Matches) != 0 || got.CurrentMatchID != "" {
		t.Errorf("fresh controller should have no active matches: %+v", got)
	}

	if _, err := tc.Ctrl.MatchForWorld(context.Background(), testutils.HomeWorldID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	active := tc.Ctrl.ActiveMatches()
	if len(active.Matches) != 1 {
		t.Fatalf("expected 1 active match, got %d", len(active.Matches))
	}
	if active.CurrentMatchID != "1-3" {
		t.Errorf("current match id was not expected value: %s", active.CurrentMatchID)
	}
	status := active.Matches["1-3"]
	if !status.IsCurrent {
		t.Error("the ongoing match should be current")
	}
}

func TestStatus(t *testing.T) {
	tc := testutils.NewTestController(t.TempDir())
	defer tc.Close()

	s := tc.Ctrl.Status(context.Background())
	if !s.UpstreamOK {
		t.Error("upstream should be reachable")
	}
	if s.BuildID != 115267 {
		t.Errorf("build id was not expected value: %d", s.BuildID)
	}
	if s.KeyPresent {
		t.Error("test client has no API key")
	}
	if s.TrackedMatches != 0 {
		t.Errorf("expected no tracked matches yet, got %d", s.TrackedMatches)
	}
}

func TestWallet(t *testing.T) {
	tc := testutils.NewTestController(t.TempDir())
	defer tc.Close()

	items, err := tc.Ctrl.Wallet(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("expected 4 wallet items, got %d", len(items))
	}
	if items[0].Name != "Coin" || items[0].Formatted != "125g 3s 42c" {
		t.Errorf("coin entry was not expected value: %+v", items[0])
	}
	if items[1].Name != "Karma" || items[1].Formatted != "" {
		t.Errorf("karma entry was not expected value: %+v", items[1])
	}
}

func TestAccount(t *testing.T) {
	tc := testutils.NewTestController(t.TempDir())
	defer tc.Close()

	a, err := tc.Ctrl.Account(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Name != "Commander.1234" {
		t.Errorf("account name was not expected value: %s", a.Name)
	}
	if a.WorldName != "Jade Quarry" {
		t.Errorf("world name was not joined: %s", a.WorldName)
	}
}
