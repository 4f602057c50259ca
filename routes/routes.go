package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/goalline/matchday/handlers"
	"github.com/goalline/matchday/middleware"
	"github.com/goalline/matchday/models"
)

type Handlers struct {
	Auth      *handlers.AuthHandler
	Match     *handlers.MatchHandler
	Team      *handlers.TeamHandler
	Standing  *handlers.StandingHandler
	Live      *handlers.LiveHandler
	WebSocket *handlers.WebSocketHandler
}

func SetupRoutes(h Handlers, jwtSecret string, allowedOrigins []string) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticator([]byte(jwtSecret))
	maybeAuthenticate := middleware.OptionalAuthenticator([]byte(jwtSecret))
	adminOnly := middleware.Authorize(string(models.RoleAdmin))

	router.Post("/auth/register", h.Auth.Register)
	router.Post("/auth/login", h.Auth.Login)

	router.Route("/matches", func(r chi.Router) {
		// Просмотр матчей и счёта открыт всем.
		r.Get("/", h.Match.ListMatches)
		r.Get("/{matchID}", h.Match.GetMatch)

		// Открыть live-вьюху может и аноним, но токен, если прислан,
		// разбирается: права сессии фиксируются в момент attach.
		r.With(maybeAuthenticate).Post("/{matchID}/live", h.Live.Attach)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(adminOnly)

			r.Post("/", h.Match.CreateMatch)
			r.Put("/{matchID}", h.Match.UpdateMatch)
			r.Delete("/{matchID}", h.Match.DeleteMatch)
		})
	})

	router.Route("/live/{viewID}", func(r chi.Router) {
		r.Get("/", h.Live.Snapshot)
		r.Delete("/", h.Live.Detach)
		r.Post("/refresh", h.Live.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(adminOnly)

			r.Post("/pause", h.Live.Pause)
			r.Post("/resume", h.Live.Resume)
			r.Post("/half-time", h.Live.HalfTime)
			r.Post("/full-time", h.Live.FullTime)
			r.Post("/events", h.Live.AddEvent)
			r.Delete("/events/{eventID}", h.Live.RemoveEvent)
		})
	})

	router.Route("/teams", func(r chi.Router) {
		r.Get("/", h.Team.ListTeams)
		r.Get("/{teamID}", h.Team.GetTeam)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(adminOnly)

			r.Post("/", h.Team.CreateTeam)
			r.Put("/{teamID}", h.Team.UpdateTeam)
			r.Delete("/{teamID}", h.Team.DeleteTeam)
			r.Post("/{teamID}/crest", h.Team.UploadCrest)
			r.Post("/{teamID}/players", h.Team.AddPlayer)
			r.Delete("/players/{playerID}", h.Team.RemovePlayer)
		})
	})

	router.Route("/standings", func(r chi.Router) {
		r.Get("/", h.Standing.ListStandings)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(adminOnly)

			r.Post("/recompute", h.Standing.RecomputeStandings)
		})
	})

	router.Get("/ws/matches/{matchID}", h.WebSocket.ServeWs)

	return router
}
