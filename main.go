package main

import (
	"errors"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"time"

	"github.com/itbasis/go-clock"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/captainlinky/gw2dash/controller"
	"github.com/captainlinky/gw2dash/gw2"
	"github.com/captainlinky/gw2dash/store"
	"github.com/captainlinky/gw2dash/tracker"
	"github.com/captainlinky/gw2dash/web"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		log.Fatal().Err(err).Msg("error loading .env file")
	}

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		level, err := zerolog.ParseLevel(lvl)
		if err != nil {
			log.Fatal().Err(err).Msg("error parsing LOG_LEVEL")
		}
		log = log.Level(level)
	}

	portNum := 3000 // 3000 is the default
	if port := os.Getenv("PORT"); port != "" {
		portNum, err = strconv.Atoi(port)
		if err != nil {
			log.Fatal().Err(err).Msg("error parsing port number")
		}
	}

	homeWorld := 0
	if w := os.Getenv("HOME_WORLD_ID"); w != "" {
		homeWorld, err = strconv.Atoi(w)
		if err != nil {
			log.Fatal().Err(err).Msg("error parsing HOME_WORLD_ID")
		}
	}

	trackInterval := 5 * time.Minute
	if iv := os.Getenv("TRACK_INTERVAL"); iv != "" {
		trackInterval, err = time.ParseDuration(iv)
		if err != nil {
			log.Fatal().Err(err).Msg("error parsing TRACK_INTERVAL")
		}
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", dataDir).Msg("error creating data dir")
	}

	var teamNames map[int]string
	if path := os.Getenv("TEAM_NAMES_FILE"); path != "" {
		teamNames, err = gw2.LoadTeamNames(path)
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("error loading team names")
		}
	}

	clock := clock.New()
	client, err := gw2.New(os.Getenv("GW2_API_KEY"), teamNames, clock, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating gw2 client")
	}

	kdrStore := store.NewKDR(dataDir+"/kdr_history.json", client, clock, log)
	activityStore := store.NewActivity(dataDir+"/activity_history.json", client, clock, log)

	trk, err := tracker.New(dataDir, clock, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating match tracker")
	}

	ctrl, err := controller.New(clock, client, kdrStore, activityStore, trk, homeWorld, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating a new controller")
	}

	server, err := web.NewServer(portNum, ctrl, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating new web server")
	}

	shutdown := make(chan bool)
	wg := &sync.WaitGroup{}

	// Setup a handler to catch ctrl-c signals and properly shutdown everything.
	intChannel := make(chan os.Signal, 2)
	signal.Notify(intChannel, os.Interrupt)
	go func() {
		<-intChannel
		close(shutdown)

		if err := waitTimeout(wg, 10*time.Second); err != nil {
			log.Error().Msg("timed out waiting for proper shutdown")
			os.Exit(255)
		}
	}()

	// Setup a job that records WvW snapshots for the home world on a timer.
	if homeWorld != 0 {
		wg.Add(1)
		go ctrl.RunPeriodicTracking(trackInterval, shutdown, wg)
	} else {
		log.Warn().Msg("HOME_WORLD_ID not set, periodic tracking disabled")
	}

	// Start the web server
	wg.Add(1)
	go server.ListenAndServe(shutdown, wg)

	// Wait for everything to stop.
	wg.Wait()
	log.Info().Msg("server shutdown")
}

func waitTimeout(wg *sync.WaitGroup, timeout time.Duration) error {
	c := make(chan any)
	go func() {
		defer close(c)
		wg.Wait()
	}()

	select {
	case <-c:
		return nil // completed normally
	case <-time.After(timeout):
		return errors.New("timed out waiting")
	}
}
