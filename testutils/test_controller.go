package testutils

import (
	"log"
	"path/filepath"
	"time"

	"github.com/itbasis/go-clock"
	"github.com/rs/zerolog"

	"github.com/captainlinky/gw2dash/controller"
	"github.com/captainlinky/gw2dash/gw2"
	"github.com/captainlinky/gw2dash/model"
	"github.com/captainlinky/gw2dash/store"
	"github.com/captainlinky/gw2dash/tracker"
)

// HomeWorldID is the red main world in the NA match fixture.
const HomeWorldID = 1008

// FixtureTime falls inside the fixture match window so snapshots recorded
// against it land in charting buckets.
var FixtureTime = time.Date(2024, 8, 12, 12, 0, 0, 0, time.UTC)

// TestController wires a controller against the fake upstream and a temp
// data dir. Callers own the dir lifetime, typically via t.TempDir().
type TestController struct {
	Clock    *clock.Mock
	Ctrl     controller.C
	GW2      gw2.Client
	KDR      *store.Store[model.KDRSnapshot]
	Activity *store.Store[model.ActivitySnapshot]
	Tracker  *tracker.Tracker
	fakeGW2  *FakeGW2Server
}

func (c *TestController) Close() {
	c.fakeGW2.Close()
}

func (c *TestController) GW2URL() string {
	return c.fakeGW2.URL()
}

func (c *TestController) RequestCount() int {
	return c.fakeGW2.RequestCount()
}

func NewTestController(dataDir string) *TestController {
	mock := clock.NewMock()
	mock.Set(FixtureTime)

	fake := NewFakeGW2Server()
	client := gw2.NewForTest(fake.URL(), mock)

	kdr := store.NewKDR(filepath.Join(dataDir, "kdr_history.json"), client, mock, zerolog.Nop())
	activity := store.NewActivity(filepath.Join(dataDir, "activity_history.json"), client, mock, zerolog.Nop())

	trk, err := tracker.New(dataDir, mock, zerolog.Nop())
	if err != nil {
		log.Fatalf("error creating tracker in %s: %v", dataDir, err)
	}

	ctrl, err := controller.New(mock, client, kdr, activity, trk, HomeWorldID, zerolog.Nop())
	if err != nil {
		log.Fatalf("error creating controller: %v", err)
	}

	return &TestController{
		Clock:    mock,
		Ctrl:     ctrl,
		GW2:      client,
		KDR:      kdr,
		Activity: activity,
		Tracker:  trk,
		fakeGW2:  fake,
	}
}
