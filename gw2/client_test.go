package gw2_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/itbasis/go-clock"

	"github.com/captainlinky/gw2dash/gw2"
	"github.com/captainlinky/gw2dash/model"
	"github.com/captainlinky/gw2dash/testutils"
)

func newTestClient(t *testing.T) (gw2.Client, *testutils.FakeGW2Server) {
	t.Helper()
	fake := testutils.NewFakeGW2Server()
	t.Cleanup(fake.Close)
	return gw2.NewForTest(fake.URL(), clock.NewMock()), fake
}

func TestMatchByWorld(t *testing.T) {
	client, _ := newTestClient(t)

	m, err := client.MatchByWorld(context.Background(), 1008)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.ID != "1-3" {
		t.Errorf("match id was not expected value: %s", m.ID)
	}
	if m.StartTime != time.Date(2024, 8, 9, 18, 0, 0, 0, time.UTC) {
		t.Errorf("start time was not parsed: %v", m.StartTime)
	}
	if got := model.TeamCount(m.Kills, model.TeamRed); got != 8041 {
		t.Errorf("red kills were not expected value: %d", got)
	}
	if len(m.Maps) != 2 {
		t.Fatalf("expected 2 maps, got %d", len(m.Maps))
	}

	castle := m.Maps[0].Objectives[0]
	if castle.Type != model.ObjectiveCastle || castle.Owner != "Red" {
		t.Errorf("objective was not converted: %+v", castle)
	}
	if castle.ClaimedBy == "" || castle.ClaimedAt.IsZero() {
		t.Errorf("claim fields were not converted: %+v", castle)
	}

	// Unclaimed objective keeps a zero claim time, neutral owner survives.
	spawn := m.Maps[0].Objectives[3]
	if spawn.Owner != "Neutral" || !spawn.ClaimedAt.IsZero() {
		t.Errorf("neutral objective was not converted: %+v", spawn)
	}
}

func TestMatchByWorldNoMatch(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.MatchByWorld(context.Background(), 9999)
	if !errors.Is(err, gw2.ErrNoMatch) {
		t.Errorf("expected ErrNoMatch, got %v", err)
	}
}

func TestMatches(t *testing.T) {
	client, _ := newTestClient(t)

	matches, err := client.Matches(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != "1-3" || matches[1].ID != "2-1" {
		t.Errorf("match ids were not expected values: %s, %s", matches[0].ID, matches[1].ID)
	}
}

func TestWorldsAreCached(t *testing.T) {
	client, fake := newTestClient(t)

	worlds, err := client.Worlds(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(worlds) != 9 {
		t.Errorf("expected 9 worlds, got %d", len(worlds))
	}

	before := fake.RequestCount()
	if _, err := client.Worlds(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.RequestCount() != before {
		t.Errorf("second fetch inside the TTL should be served from cache")
	}
}

func TestCacheExpires(t *testing.T) {
	fake := testutils.NewFakeGW2Server()
	t.Cleanup(fake.Close)
	mock := clock.NewMock()
	client := gw2.NewForTest(fake.URL(), mock)

	if _, err := client.Worlds(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mock.Add(6 * time.Minute)

	before := fake.RequestCount()
	if _, err := client.Worlds(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.RequestCount() == before {
		t.Error("fetch after the TTL should hit the server again")
	}
}

func TestGuilds(t *testing.T) {
	client, _ := newTestClient(t)

	ids := []string{
		"4BBB52AA-D768-4FC6-8EDE-C299F2822F0F",
		"00000000-0000-0000-0000-000000000000", // unknown, skipped
		"116E12D4-4B4B-4E32-93BA-E1A7C350AAE6",
	}
	guilds, err := client.Guilds(context.Background(), ids)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(guilds) != 2 {
		t.Fatalf("expected 2 guilds, got %d", len(guilds))
	}
	if guilds[0].Name != "Edge of the Mists" || guilds[0].Tag != "EotM" {
		t.Errorf("guild was not expected value: %+v", guilds[0])
	}
	if guilds[1].Name != "Crimson Warband" {
		t.Errorf("guild order did not follow input order: %+v", guilds[1])
	}
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int64
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"id": 115267}`))
	}))
	t.Cleanup(s.Close)

	client := gw2.NewForTest(s.URL, clock.NewMock())
	build, err := client.Build(context.Background())
	if err != nil {
		t.Fatalf("expected retries to recover, got %v", err)
	}
	if build != 115267 {
		t.Errorf("build id was not expected value: %d", build)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestNotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int64
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(s.Close)

	client := gw2.NewForTest(s.URL, clock.NewMock())
	_, err := client.Build(context.Background())
	if !errors.Is(err, gw2.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("404 should not be retried, got %d attempts", calls.Load())
	}
}

func TestAccountAndWallet(t *testing.T) {
	client, _ := newTestClient(t)

	a, err := client.Account(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Name != "Commander.1234" || a.World != 1008 {
		t.Errorf("account was not expected value: %+v", a)
	}

	entries, err := client.Wallet(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 4 || entries[0].ID != 1 || entries[0].Value != 1250342 {
		t.Errorf("wallet entries were not expected values: %+v", entries)
	}
}

func TestPrices(t *testing.T) {
	client, _ := newTestClient(t)

	prices, err := client.Prices(context.Background(), []int{19684, 24295})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prices) != 2 {
		t.Fatalf("expected 2 prices, got %d", len(prices))
	}
	if prices[0].Sells.UnitPrice != 9805 {
		t.Errorf("sell price was not expected value: %d", prices[0].Sells.UnitPrice)
	}
}

func TestLoadTeamNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "team_names.json")
	doc := `{"team_names": {"11001": "Moogooloo", "12002": "Grekvelnn Burrows", "bogus": "ignored"}}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("error writing team names file: %v", err)
	}

	names, err := gw2.LoadTeamNames(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 names, got %d", len(names))
	}
	if names[11001] != "Moogooloo" {
		t.Errorf("name was not expected value: %s", names[11001])
	}

	if _, err := gw2.LoadTeamNames(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file should be an error")
	}
}
