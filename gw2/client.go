// Package gw2 is the client for the Guild Wars 2 public REST API. It owns
// request timeouts, bounded retries with exponential backoff for transient
// failures, and a short-lived response cache so dashboard refreshes do not
// hammer the rate-limited upstream.
package gw2

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/itbasis/go-clock"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/captainlinky/gw2dash/model"
)

const APIURL = "https://api.guildwars2.com/v2"

var (
	// ErrNotFound is returned for upstream 404s, including unknown guilds.
	ErrNotFound = errors.New("gw2: not found")
	// ErrNoMatch is returned when no WvW match exists for a world.
	ErrNoMatch = errors.New("gw2: no match for world")
)

type Client interface {
	// MatchByWorld returns the current WvW match a world plays in.
	// The result is unenriched: world names and guild names are not resolved.
	MatchByWorld(ctx context.Context, worldID int) (*model.Match, error)
	// Matches returns all current WvW matches.
	Matches(ctx context.Context) ([]model.Match, error)
	// Worlds returns all game worlds plus any configured WvW team names.
	Worlds(ctx context.Context) ([]model.World, error)
	// Guild fetches public guild info (name, tag) without authentication.
	Guild(ctx context.Context, guildID string) (*Guild, error)
	// Guilds fetches many guilds in parallel, skipping the ones that fail.
	Guilds(ctx context.Context, guildIDs []string) ([]Guild, error)
	Objectives(ctx context.Context) ([]ObjectiveInfo, error)

	Account(ctx context.Context) (*model.Account, error)
	Wallet(ctx context.Context) ([]WalletEntry, error)
	Currencies(ctx context.Context) ([]Currency, error)
	Prices(ctx context.Context, itemIDs []int) ([]model.ItemPrice, error)

	// Build returns the current game build ID; used as a reachability probe.
	Build(ctx context.Context) (int, error)
	HasKey() bool
}

type client struct {
	url        string
	apiKey     string
	teamNames  map[int]string
	httpClient *http.Client
	cache      *ttlCache
	clock      clock.Clock
	log        zerolog.Logger
}

// New creates a client for the live API. apiKey may be empty; all WvW
// endpoints are public. teamNames maps WvW team IDs (11xxx/12xxx) to
// display names, since those IDs are absent from the worlds endpoint.
func New(apiKey string, teamNames map[int]string, clk clock.Clock, log zerolog.Logger) (Client, error) {
	return newClient(APIURL, apiKey, teamNames, clk, log), nil
}

func NewForTest(url string, clk clock.Clock) Client {
	return newClient(url, "", nil, clk, zerolog.Nop())
}

func newClient(url, apiKey string, teamNames map[int]string, clk clock.Clock, log zerolog.Logger) *client {
	return &client{
		url:       url,
		apiKey:    apiKey,
		teamNames: teamNames,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		cache: newTTLCache(5*time.Minute, clk),
		clock: clk,
		log:   log,
	}
}

func (c *client) HasKey() bool { return c.apiKey != "" }

// get performs a GET with retry and caching. Transient failures (transport
// errors, 5xx) are retried twice with exponential backoff; 4xx responses
// are permanent. Successful bodies are cached for the cache TTL.
func (c *client) get(ctx context.Context, endpoint string, params url.Values, auth bool, out any) error {
	cacheKey := endpoint
	if len(params) > 0 {
		cacheKey += "?" + params.Encode()
	}
	if body, ok := c.cache.get(cacheKey); ok {
		return json.Unmarshal(body, out)
	}

	u := fmt.Sprintf("%s/%s", c.url, endpoint)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var body []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		if auth && c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		start := c.clock.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.log.Warn().Err(err).Str("endpoint", endpoint).Msg("request failed")
			return err
		}
		defer resp.Body.Close()
		c.log.Debug().Str("endpoint", endpoint).Dur("took", c.clock.Now().Sub(start)).Int("status", resp.StatusCode).Send()

		switch {
		case resp.StatusCode == http.StatusOK ||
			resp.StatusCode == http.StatusPartialContent:
			body, err = io.ReadAll(resp.Body)
			return err
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(fmt.Errorf("%s: %w", endpoint, ErrNotFound))
		case resp.StatusCode >= 500:
			return fmt.Errorf("%s: unexpected status code: %d", endpoint, resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("%s: unexpected status code: %d", endpoint, resp.StatusCode))
		}
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return err
	}

	c.cache.set(cacheKey, body)
	return json.Unmarshal(body, out)
}

func (c *client) Build(ctx context.Context) (int, error) {
	var b struct {
		ID int `json:"id"`
	}
	if err := c.get(ctx, "build", nil, false, &b); err != nil {
		return 0, err
	}
	return b.ID, nil
}

func (c *client) Worlds(ctx context.Context) ([]model.World, error) {
	var worlds []model.World
	params := url.Values{"ids": {"all"}}
	if err := c.get(ctx, "worlds", params, false, &worlds); err != nil {
		return nil, err
	}
	for id, name := range c.teamNames {
		worlds = append(worlds, model.World{ID: id, Name: name})
	}
	return worlds, nil
}

func (c *client) MatchByWorld(ctx context.Context, worldID int) (*model.Match, error) {
	var m wvwMatch
	params := url.Values{"world": {strconv.Itoa(worldID)}}
	if err := c.get(ctx, "wvw/matches", params, false, &m); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("world %d: %w", worldID, ErrNoMatch)
		}
		return nil, err
	}
	if m.ID == "" {
		return nil, fmt.Errorf("world %d: %w", worldID, ErrNoMatch)
	}
	return m.toMatch(), nil
}

func (c *client) Matches(ctx context.Context) ([]model.Match, error) {
	var raw []wvwMatch
	params := url.Values{"ids": {"all"}}
	if err := c.get(ctx, "wvw/matches", params, false, &raw); err != nil {
		return nil, err
	}
	matches := make([]model.Match, 0, len(raw))
	for _, m := range raw {
		matches = append(matches, *m.toMatch())
	}
	return matches, nil
}

func (c *client) Objectives(ctx context.Context) ([]ObjectiveInfo, error) {
	var objs []ObjectiveInfo
	params := url.Values{"ids": {"all"}}
	if err := c.get(ctx, "wvw/objectives", params, false, &objs); err != nil {
		return nil, err
	}
	return objs, nil
}

// Guild is fetched without auth so only public fields come back. A short
// per-call timeout keeps a slow guild lookup from stalling enrichment.
func (c *client) Guild(ctx context.Context, guildID string) (*Guild, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var g Guild
	if err := c.get(ctx, "guild/"+guildID, nil, false, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

const guildFetchWorkers = 10

// Guilds fans out individual lookups because the guild endpoint has no bulk
// form. Failures are skipped; only non-404s are worth a log line.
func (c *client) Guilds(ctx context.Context, guildIDs []string) ([]Guild, error) {
	results := make([]*Guild, len(guildIDs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(guildFetchWorkers)
	for i, id := range guildIDs {
		i, id := i, id
		g.Go(func() error {
			guild, err := c.Guild(ctx, id)
			if err != nil {
				if !errors.Is(err, ErrNotFound) {
					c.log.Warn().Err(err).Str("guild", shortID(id)).Msg("could not fetch guild")
				}
				return nil
			}
			results[i] = guild
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	guilds := make([]Guild, 0, len(guildIDs))
	for _, r := range results {
		if r != nil {
			guilds = append(guilds, *r)
		}
	}
	return guilds, nil
}

func (c *client) Account(ctx context.Context) (*model.Account, error) {
	var a struct {
		ID      string    `json:"id"`
		Name    string    `json:"name"`
		World   int       `json:"world"`
		Created time.Time `json:"created"`
		WvWRank int       `json:"wvw_rank"`
		Access  []string  `json:"access"`
	}
	if err := c.get(ctx, "account", nil, true, &a); err != nil {
		return nil, err
	}
	return &model.Account{
		ID:      a.ID,
		Name:    a.Name,
		World:   a.World,
		Created: a.Created,
		WvWRank: a.WvWRank,
		Access:  a.Access,
	}, nil
}

func (c *client) Wallet(ctx context.Context) ([]WalletEntry, error) {
	var entries []WalletEntry
	if err := c.get(ctx, "account/wallet", nil, true, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *client) Currencies(ctx context.Context) ([]Currency, error) {
	var currencies []Currency
	params := url.Values{"ids": {"all"}}
	if err := c.get(ctx, "currencies", params, false, &currencies); err != nil {
		return nil, err
	}
	return currencies, nil
}

func (c *client) Prices(ctx context.Context, itemIDs []int) ([]model.ItemPrice, error) {
	ids := make([]string, len(itemIDs))
	for i, id := range itemIDs {
		ids[i] = strconv.Itoa(id)
	}
	var prices []model.ItemPrice
	params := url.Values{"ids": {strings.Join(ids, ",")}}
	if err := c.get(ctx, "commerce/prices", params, false, &prices); err != nil {
		return nil, err
	}
	return prices, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
