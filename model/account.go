package model

import (
	"fmt"
	"time"
)

// Account is the subset of upstream account data the dashboard shows.
type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	World     int       `json:"world"`
	WorldName string    `json:"world_name,omitempty"`
	Created   time.Time `json:"created"`
	WvWRank   int       `json:"wvw_rank"`
	Access    []string  `json:"access,omitempty"`
}

// WalletItem is one wallet currency joined with its display metadata.
type WalletItem struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Value     int    `json:"value"`
	Formatted string `json:"formatted,omitempty"`
}

// ItemPrice is a trading post price quote for one item.
type ItemPrice struct {
	ID    int        `json:"id"`
	Buys  PriceQuote `json:"buys"`
	Sells PriceQuote `json:"sells"`
}

// PriceQuote is one side of the trading post order book for an item.
type PriceQuote struct {
	Quantity  int `json:"quantity"`
	UnitPrice int `json:"unit_price"`
}

// FormatCoins renders a copper amount as gold/silver/copper.
func FormatCoins(copper int) string {
	gold := copper / 10000
	silver := (copper % 10000) / 100
	return fmt.Sprintf("%dg %ds %dc", gold, silver, copper%100)
}
