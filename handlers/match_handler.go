package handlers

import (
	"net/http"

	"github.com/goalline/matchday/models"
	"github.com/goalline/matchday/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(matchService services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

func (h *MatchHandler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Competition *string `json:"competition"`
		HomeTeamID  *int    `json:"home_team_id"`
		HomeName    string  `json:"home_name"`
		AwayTeamID  *int    `json:"away_team_id"`
		AwayName    string  `json:"away_name"`
		KickoffAt   string  `json:"kickoff_at"`
	}

	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	kickoff, err := parseOptionalTime(input.KickoffAt)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.CreateMatch(r.Context(), services.CreateMatchInput{
		Competition: input.Competition,
		HomeTeamID:  input.HomeTeamID,
		HomeName:    input.HomeName,
		AwayTeamID:  input.AwayTeamID,
		AwayName:    input.AwayName,
		KickoffAt:   kickoff,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"match": match}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetMatchByID(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"match": match}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	var filter services.MatchListFilter

	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		status := models.MatchStatus(statusStr)
		switch status {
		case models.MatchStatusScheduled, models.MatchStatusInPlay,
			models.MatchStatusPaused, models.MatchStatusFinished:
			filter.Status = &status
		default:
			failedValidationResponse(w, r, "unknown status filter value")
			return
		}
	}
	if competition := r.URL.Query().Get("competition"); competition != "" {
		filter.Competition = &competition
	}

	matches, err := h.matchService.ListMatches(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"matches": matches}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) UpdateMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Competition *string `json:"competition"`
		KickoffAt   string  `json:"kickoff_at"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	update := services.UpdateMatchInput{Competition: input.Competition}
	if input.KickoffAt != "" {
		kickoff, err := parseOptionalTime(input.KickoffAt)
		if err != nil {
			badRequestResponse(w, r, err)
			return
		}
		update.KickoffAt = &kickoff
	}

	match, err := h.matchService.UpdateMatch(r.Context(), matchID, update)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"match": match}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) DeleteMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.matchService.DeleteMatch(r.Context(), matchID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
