package testutils

import (
	"embed"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
)

//go:embed gw2data
var gw2data embed.FS

// Worlds that appear in the NA match fixture. Lookups for any of them
// return the same match, the way the live API resolves any linked world
// to its current matchup.
var naMatchWorlds = map[string]bool{
	"1001": true,
	"1002": true,
	"1008": true,
	"1014": true,
	"1021": true,
}

var guildFixtures = map[string]string{
	"4BBB52AA-D768-4FC6-8EDE-C299F2822F0F": "guild_firebrand.json",
	"116E12D4-4B4B-4E32-93BA-E1A7C350AAE6": "guild_warband.json",
}

type FakeGW2Server struct {
	s        *httptest.Server
	requests atomic.Int64
}

func NewFakeGW2Server() *FakeGW2Server {
	f := &FakeGW2Server{}

	r := chi.NewRouter()
	r.Use(f.countRequests)

	r.Get("/build", buildHandler)
	r.Get("/worlds", worldsHandler)
	r.Get("/wvw/matches", wvwMatchesHandler)
	r.Get("/wvw/objectives", objectivesHandler)
	r.Get("/guild/{guildID}", guildHandler)
	r.Get("/account", accountHandler)
	r.Get("/account/wallet", walletHandler)
	r.Get("/currencies", currenciesHandler)
	r.Get("/commerce/prices", pricesHandler)

	f.s = httptest.NewServer(r)
	return f
}

func (f *FakeGW2Server) Close() {
	f.s.Close()
}

func (f *FakeGW2Server) URL() string {
	return f.s.URL
}

// RequestCount reports how many requests actually reached the server,
// which is how tests tell a cache hit from a refetch.
func (f *FakeGW2Server) RequestCount() int {
	return int(f.requests.Load())
}

func (f *FakeGW2Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		next.ServeHTTP(w, r)
	})
}

func buildHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"id": 115267}`))
}

func worldsHandler(w http.ResponseWriter, r *http.Request) {
	serveFile(w, "worlds.json")
}

func wvwMatchesHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("ids") == "all" {
		serveFile(w, "matches.json")
		return
	}

	world := r.URL.Query().Get("world")
	if naMatchWorlds[world] {
		serveFile(w, "match.json")
	} else {
		// the live API 404s for worlds without a current matchup
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"text": "no match"}`))
	}
}

func objectivesHandler(w http.ResponseWriter, r *http.Request) {
	serveFile(w, "objectives.json")
}

func guildHandler(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	if name, ok := guildFixtures[guildID]; ok {
		serveFile(w, name)
	} else {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"text": "no such id"}`))
	}
}

func accountHandler(w http.ResponseWriter, r *http.Request) {
	serveFile(w, "account.json")
}

func walletHandler(w http.ResponseWriter, r *http.Request) {
	serveFile(w, "wallet.json")
}

func currenciesHandler(w http.ResponseWriter, r *http.Request) {
	serveFile(w, "currencies.json")
}

func pricesHandler(w http.ResponseWriter, r *http.Request) {
	serveFile(w, "prices.json")
}

func serveFile(w http.ResponseWriter, name string) {
	b, err := gw2data.ReadFile(fmt.Sprintf("gw2data/%s", name))
	if err != nil {
		log.Printf("error reading gw2data/%s: %v", name, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
