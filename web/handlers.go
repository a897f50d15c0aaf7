package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/unrolled/render"

	"github.com/captainlinky/gw2dash/controller"
	"github.com/captainlinky/gw2dash/gw2"
)

type successEnvelope struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

type errorEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func renderSuccess(w http.ResponseWriter, render *render.Render, data any) {
	render.JSON(w, http.StatusOK, successEnvelope{Status: "success", Data: data})
}

func renderError(w http.ResponseWriter, render *render.Render, code int, msg string) {
	render.JSON(w, code, errorEnvelope{Status: "error", Message: msg})
}

// renderUpstreamError maps controller errors to HTTP status codes. Worlds
// without a live match and unknown resources are 404s, anything else is
// treated as an upstream failure.
func renderUpstreamError(w http.ResponseWriter, render *render.Render, err error) {
	if errors.Is(err, gw2.ErrNoMatch) || errors.Is(err, gw2.ErrNotFound) {
		renderError(w, render, http.StatusNotFound, err.Error())
		return
	}
	renderError(w, render, http.StatusBadGateway, err.Error())
}

func worldIDParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "worldID")
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid world id %q", raw)
	}
	return id, nil
}

func statusHandler(ctrl controller.C, render *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderSuccess(w, render, ctrl.Status(r.Context()))
	}
}

func matchesHandler(ctrl controller.C, render *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matches, err := ctrl.Matches(r.Context())
		if err != nil {
			renderUpstreamError(w, render, err)
			return
		}
		renderSuccess(w, render, matches)
	}
}

func matchHandler(ctrl controller.C, render *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		worldID, err := worldIDParam(r)
		if err != nil {
			renderError(w, render, http.StatusBadRequest, err.Error())
			return
		}

		m, err := ctrl.MatchForWorld(r.Context(), worldID)
		if err != nil {
			renderUpstreamError(w, render, err)
			return
		}
		renderSuccess(w, render, m)
	}
}

func kdrTimelineHandler(ctrl controller.C, render *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		worldID, err := worldIDParam(r)
		if err != nil {
			renderError(w, render, http.StatusBadRequest, err.Error())
			return
		}

		window := r.URL.Query().Get("window")
		t, err := ctrl.KDRTimeline(r.Context(), worldID, window)
		if err != nil {
			renderUpstreamError(w, render, err)
			return
		}
		renderSuccess(w, render, t)
	}
}

func activityTimelineHandler(ctrl controller.C, render *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		worldID, err := worldIDParam(r)
		if err != nil {
			renderError(w, render, http.StatusBadRequest, err.Error())
			return
		}

		window := r.URL.Query().Get("window")
		t, err := ctrl.ActivityTimeline(r.Context(), worldID, window)
		if err != nil {
			renderUpstreamError(w, render, err)
			return
		}
		renderSuccess(w, render, t)
	}
}

func trackedGuildsHandler(ctrl controller.C, render *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID := chi.URLParam(r, "matchID")
		renderSuccess(w, render, ctrl.TrackedGuilds(matchID))
	}
}

func activeMatchesHandler(ctrl controller.C, render *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderSuccess(w, render, ctrl.ActiveMatches())
	}
}

func objectivesHandler(ctrl controller.C, render *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		objs, err := ctrl.Objectives(r.Context())
		if err != nil {
			renderUpstreamError(w, render, err)
			return
		}
		renderSuccess(w, render, objs)
	}
}

func accountHandler(ctrl controller.C, render *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := ctrl.Account(r.Context())
		if err != nil {
			renderUpstreamError(w, render, err)
			return
		}
		renderSuccess(w, render, a)
	}
}

func walletHandler(ctrl controller.C, render *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := ctrl.Wallet(r.Context())
		if err != nil {
			renderUpstreamError(w, render, err)
			return
		}
		renderSuccess(w, render, items)
	}
}

func pricesHandler(ctrl controller.C, render *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("ids")
		if raw == "" {
			renderError(w, render, http.StatusBadRequest, "ids parameter is required")
			return
		}

		var ids []int
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				renderError(w, render, http.StatusBadRequest, fmt.Sprintf("invalid item id %q", part))
				return
			}
			ids = append(ids, id)
		}

		prices, err := ctrl.Prices(r.Context(), ids)
		if err != nil {
			renderUpstreamError(w, render, err)
			return
		}
		renderSuccess(w, render, prices)
	}
}

func forceTrackHandler(ctrl controller.C, render *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		worldID, err := worldIDParam(r)
		if err != nil {
			renderError(w, render, http.StatusBadRequest, err.Error())
			return
		}

		if err := ctrl.TrackWorld(r.Context(), worldID); err != nil {
			renderUpstreamError(w, render, err)
			return
		}
		renderSuccess(w, render, map[string]any{"tracked_world": worldID})
	}
}
