package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/goalline/matchday/live"
	"github.com/goalline/matchday/middleware"
	"github.com/goalline/matchday/models"
)

// LiveHandler — HTTP-поверхность live-вьюх. Каждая открытая консоль или
// экран зрителя сначала делает Attach и дальше работает со своим view id.
type LiveHandler struct {
	manager *live.Manager
}

func NewLiveHandler(manager *live.Manager) *LiveHandler {
	return &LiveHandler{manager: manager}
}

func (h *LiveHandler) Attach(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	auth := middleware.AuthContextFromRequest(r.Context())

	session, err := h.manager.Attach(r.Context(), matchID, auth)
	if err != nil {
		mapLiveErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"view": session.Snapshot()}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LiveHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	session, err := h.session(r)
	if err != nil {
		mapLiveErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"view": session.Snapshot()}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LiveHandler) Detach(w http.ResponseWriter, r *http.Request) {
	viewID := chi.URLParam(r, "viewID")
	if viewID == "" {
		badRequestResponse(w, r, errors.New("invalid viewID URL parameter"))
		return
	}

	h.manager.Detach(viewID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *LiveHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.clockAction(w, r, func(s *live.Session) error { return s.Pause(r.Context()) })
}

func (h *LiveHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.clockAction(w, r, func(s *live.Session) error { return s.Resume(r.Context()) })
}

func (h *LiveHandler) HalfTime(w http.ResponseWriter, r *http.Request) {
	h.clockAction(w, r, func(s *live.Session) error { return s.HalfTime(r.Context()) })
}

func (h *LiveHandler) FullTime(w http.ResponseWriter, r *http.Request) {
	h.clockAction(w, r, func(s *live.Session) error { return s.FullTime(r.Context()) })
}

func (h *LiveHandler) clockAction(w http.ResponseWriter, r *http.Request, action func(*live.Session) error) {
	session, err := h.session(r)
	if err != nil {
		mapLiveErrorToHTTP(w, r, err)
		return
	}

	if err := action(session); err != nil {
		mapLiveErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"view": session.Snapshot()}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LiveHandler) AddEvent(w http.ResponseWriter, r *http.Request) {
	session, err := h.session(r)
	if err != nil {
		mapLiveErrorToHTTP(w, r, err)
		return
	}

	var draft models.EventDraft
	if err := readJSON(w, r, &draft); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	event, err := session.AddEvent(r.Context(), draft)
	switch {
	case err == nil:
		response := jsonResponse{"event": event, "view": session.Snapshot()}
		if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
			serverErrorResponse(w, r, err)
		}

	case errors.Is(err, live.ErrDraftInvalid),
		errors.Is(err, live.ErrBadRequest),
		errors.Is(err, live.ErrForbidden),
		errors.Is(err, live.ErrMatchFinished),
		errors.Is(err, live.ErrMatchNotFound):
		mapLiveErrorToHTTP(w, r, err)

	default:
		// Транзиентный сбой: запись осталась в таймлайне как pending и
		// выровняется следующей сверкой. Клиенту — предупреждение, не ошибка.
		response := jsonResponse{
			"event":   event,
			"view":    session.Snapshot(),
			"warning": "event not yet confirmed by the match store, will retry on next sync",
		}
		if err := writeJSON(w, http.StatusAccepted, response, nil); err != nil {
			serverErrorResponse(w, r, err)
		}
	}
}

func (h *LiveHandler) RemoveEvent(w http.ResponseWriter, r *http.Request) {
	session, err := h.session(r)
	if err != nil {
		mapLiveErrorToHTTP(w, r, err)
		return
	}

	eventID := chi.URLParam(r, "eventID")
	if eventID == "" {
		badRequestResponse(w, r, errors.New("invalid eventID URL parameter"))
		return
	}

	session.RemoveEvent(r.Context(), eventID)

	response := jsonResponse{"view": session.Snapshot()}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Refresh форсирует немедленную сверку с хранилищем.
func (h *LiveHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	session, err := h.session(r)
	if err != nil {
		mapLiveErrorToHTTP(w, r, err)
		return
	}

	session.Refresh(r.Context())

	response := jsonResponse{"view": session.Snapshot()}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LiveHandler) session(r *http.Request) (*live.Session, error) {
	viewID := chi.URLParam(r, "viewID")
	if viewID == "" {
		return nil, live.ErrViewNotFound
	}
	return h.manager.Get(viewID)
}
