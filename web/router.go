package web

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/unrolled/render"

	"github.com/captainlinky/gw2dash/controller"
)

func getRouter(ctrl controller.C, render *render.Render) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Set a timeout value on the request context (ctx), that will signal
	// through ctx.Done() that the request has timed out and further
	// processing should be stopped.
	r.Use(middleware.Timeout(10 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", statusHandler(ctrl, render))

		r.Route("/wvw", func(r chi.Router) {
			r.Get("/matches", matchesHandler(ctrl, render))
			// World IDs are validated in the handlers so a malformed one
			// gets a 400 envelope instead of a bare 404.
			r.Get("/match/{worldID}", matchHandler(ctrl, render))
			r.Get("/kdr/{worldID}", kdrTimelineHandler(ctrl, render))
			r.Get("/activity/{worldID}", activityTimelineHandler(ctrl, render))
			r.Get("/tracked-guilds/{matchID}", trackedGuildsHandler(ctrl, render))
			r.Get("/active-matches", activeMatchesHandler(ctrl, render))
			r.Get("/objectives", objectivesHandler(ctrl, render))
		})

		r.Route("/account", func(r chi.Router) {
			r.Get("/", accountHandler(ctrl, render))
			r.Get("/wallet", walletHandler(ctrl, render))
		})

		r.Get("/tp/prices", pricesHandler(ctrl, render))
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second)) // Set a longer timeout for /admin actions

		r.Post("/track/{worldID}", forceTrackHandler(ctrl, render))
	})

	return r
}
