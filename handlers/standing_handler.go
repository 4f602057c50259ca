package handlers

import (
	"net/http"

	"github.com/goalline/matchday/services"
)

type StandingHandler struct {
	standingService services.StandingService
}

func NewStandingHandler(standingService services.StandingService) *StandingHandler {
	return &StandingHandler{standingService: standingService}
}

func (h *StandingHandler) ListStandings(w http.ResponseWriter, r *http.Request) {
	standings, err := h.standingService.List(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"standings": standings}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RecomputeStandings пересчитывает таблицу по требованию, не дожидаясь
// фонового планировщика.
func (h *StandingHandler) RecomputeStandings(w http.ResponseWriter, r *http.Request) {
	if err := h.standingService.Recompute(r.Context()); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	standings, err := h.standingService.List(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"standings": standings}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
