package mockcontroller

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/captainlinky/gw2dash/gw2"
	"github.com/captainlinky/gw2dash/model"
)

type C struct {
	mock.Mock
}

func (c *C) MatchForWorld(ctx context.Context, worldID int) (*model.Match, error) {
	args := c.Called(ctx, worldID)

	var m *model.Match
	if args.Get(0) != nil {
		m = args.Get(0).(*model.Match)
	}
	return m, args.Error(1)
}

func (c *C) Matches(ctx context.Context) ([]model.Match, error) {
	args := c.Called(ctx)

	var res []model.Match
	if args.Get(0) != nil {
		res = args.Get(0).([]model.Match)
	}
	return res, args.Error(1)
}

func (c *C) KDRTimeline(ctx context.Context, worldID int, window string) (*model.KDRTimeline, error) {
	args := c.Called(ctx, worldID, window)

	var t *model.KDRTimeline
	if args.Get(0) != nil {
		t = args.Get(0).(*model.KDRTimeline)
	}
	return t, args.Error(1)
}

func (c *C) ActivityTimeline(ctx context.Context, worldID int, window string) (*model.ActivityTimeline, error) {
	args := c.Called(ctx, worldID, window)

	var t *model.ActivityTimeline
	if args.Get(0) != nil {
		t = args.Get(0).(*model.ActivityTimeline)
	}
	return t, args.Error(1)
}

func (c *C) TrackedGuilds(matchID string) *model.TrackedGuilds {
	args := c.Called(matchID)

	var t *model.TrackedGuilds
	if args.Get(0) != nil {
		t = args.Get(0).(*model.TrackedGuilds)
	}
	return t
}

func (c *C) ActiveMatches() *model.ActiveMatches {
	args := c.Called()

	var a *model.ActiveMatches
	if args.Get(0) != nil {
		a = args.Get(0).(*model.ActiveMatches)
	}
	return a
}

func (c *C) TrackWorld(ctx context.Context, worldID int) error {
	args := c.Called(ctx, worldID)
	return args.Error(0)
}

func (c *C) RunPeriodicTracking(frequency time.Duration, shutdown chan bool, wg *sync.WaitGroup) {
	c.Called(frequency, shutdown, wg)
}

func (c *C) Objectives(ctx context.Context) ([]gw2.ObjectiveInfo, error) {
	args := c.Called(ctx)

	var objs []gw2.ObjectiveInfo
	if args.Get(0) != nil {
		objs = args.Get(0).([]gw2.ObjectiveInfo)
	}
	return objs, args.Error(1)
}

func (c *C) Account(ctx context.Context) (*model.Account, error) {
	args := c.Called(ctx)

	var a *model.Account
	if args.Get(0) != nil {
		a = args.Get(0).(*model.Account)
	}
	return a, args.Error(1)
}

func (c *C) Wallet(ctx context.Context) ([]model.WalletItem, error) {
	args := c.Called(ctx)

	var items []model.WalletItem
	if args.Get(0) != nil {
		items = args.Get(0).([]model.WalletItem)
	}
	return items, args.Error(1)
}

func (c *C) Prices(ctx context.Context, itemIDs []int) ([]model.ItemPrice, error) {
	args := c.Called(ctx, itemIDs)

	var prices []model.ItemPrice
	if args.Get(0) != nil {
		prices = args.Get(0).([]model.ItemPrice)
	}
	return prices, args.Error(1)
}

func (c *C) Status(ctx context.Context) *model.Status {
	args := c.Called(ctx)

	var s *model.Status
	if args.Get(0) != nil {
		s = args.Get(0).(*model.Status)
	}
	return s
}
