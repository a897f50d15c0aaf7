package controller

import (
	"context"
	"sync"
	"time"

	"github.com/itbasis/go-clock"
	"github.com/rs/zerolog"

	"github.com/captainlinky/gw2dash/gw2"
	"github.com/captainlinky/gw2dash/model"
	"github.com/captainlinky/gw2dash/store"
	"github.com/captainlinky/gw2dash/tracker"
)

// C encapsulates business logic without worrying about any web layers
type C interface {
	// MatchForWorld returns the enriched WvW match a world plays in,
	// falling back to scanning all matches when the direct lookup fails,
	// and records the result in the guild ledger.
	MatchForWorld(ctx context.Context, worldID int) (*model.Match, error)
	// Matches returns all current matches, enriched, updating the ledger
	// for each.
	Matches(ctx context.Context) ([]model.Match, error)

	KDRTimeline(ctx context.Context, worldID int, window string) (*model.KDRTimeline, error)
	ActivityTimeline(ctx context.Context, worldID int, window string) (*model.ActivityTimeline, error)

	TrackedGuilds(matchID string) *model.TrackedGuilds
	ActiveMatches() *model.ActiveMatches

	// TrackWorld runs one full tracking cycle for a world: snapshot both
	// metric families, then update the guild ledger from enriched data.
	// The stages are independent; failures are joined into one error.
	TrackWorld(ctx context.Context, worldID int) error
	RunPeriodicTracking(frequency time.Duration, shutdown chan bool, wg *sync.WaitGroup)

	Objectives(ctx context.Context) ([]gw2.ObjectiveInfo, error)
	Account(ctx context.Context) (*model.Account, error)
	Wallet(ctx context.Context) ([]model.WalletItem, error)
	Prices(ctx context.Context, itemIDs []int) ([]model.ItemPrice, error)
	Status(ctx context.Context) *model.Status
}

type controller struct {
	clock     clock.Clock
	gw2       gw2.Client
	kdr       *store.Store[model.KDRSnapshot]
	activity  *store.Store[model.ActivitySnapshot]
	tracker   *tracker.Tracker
	homeWorld int
	log       zerolog.Logger
}

func New(clk clock.Clock, client gw2.Client, kdr *store.Store[model.KDRSnapshot], activity *store.Store[model.ActivitySnapshot], trk *tracker.Tracker, homeWorld int, log zerolog.Logger) (C, error) {
	c := &controller{
		clock:     clk,
		gw2:       client,
		kdr:       kdr,
		activity:  activity,
		tracker:   trk,
		homeWorld: homeWorld,
		log:       log,
	}
	return c, nil
}
