package controller

import (
	"context"
	"sort"

	"github.com/captainlinky/gw2dash/gw2"
	"github.com/captainlinky/gw2dash/model"
)

// coinCurrencyID is the wallet entry measured in copper.
const coinCurrencyID = 1

func (c *controller) Objectives(ctx context.Context) ([]gw2.ObjectiveInfo, error) {
	return c.gw2.Objectives(ctx)
}

func (c *controller) Account(ctx context.Context) (*model.Account, error) {
	account, err := c.gw2.Account(ctx)
	if err != nil {
		return nil, err
	}
	worlds, err := c.gw2.Worlds(ctx)
	if err == nil {
		for _, w := range worlds {
			if w.ID == account.World {
				account.WorldName = w.Name
				break
			}
		}
	}
	return account, nil
}

// Wallet joins raw wallet entries with currency metadata, ordered the way
// the game orders them, with the coin balance formatted as g/s/c.
func (c *controller) Wallet(ctx context.Context) ([]model.WalletItem, error) {
	entries, err := c.gw2.Wallet(ctx)
	if err != nil {
		return nil, err
	}
	currencies, err := c.gw2.Currencies(ctx)
	if err != nil {
		return nil, err
	}

	meta := make(map[int]gw2.Currency, len(currencies))
	for _, cur := range currencies {
		meta[cur.ID] = cur
	}

	items := make([]model.WalletItem, 0, len(entries))
	for _, e := range entries {
		item := model.WalletItem{ID: e.ID, Value: e.Value}
		if cur, ok := meta[e.ID]; ok {
			item.Name = cur.Name
		}
		if e.ID == coinCurrencyID {
			item.Formatted = model.FormatCoins(e.Value)
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return meta[items[i].ID].Order < meta[items[j].ID].Order
	})
	return items, nil
}

func (c *controller) Prices(ctx context.Context, itemIDs []int) ([]model.ItemPrice, error) {
	return c.gw2.Prices(ctx, itemIDs)
}

func (c *controller) Status(ctx context.Context) *model.Status {
	s := &model.Status{
		KeyPresent:     c.gw2.HasKey(),
		TrackedMatches: len(c.tracker.ActiveMatches()),
	}
	if build, err := c.gw2.Build(ctx); err == nil {
		s.UpstreamOK = true
		s.BuildID = build
	}
	return s
}
