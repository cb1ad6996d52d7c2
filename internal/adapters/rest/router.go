package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

type RouterParams struct {
	Handler        *Handler
	Authenticator  Authenticator
	WebSocket      http.Handler
	AdminKey       string
	AllowedOrigins []string
	Logger         zerolog.Logger
}

// NewRouter wires every HTTP route
func NewRouter(params RouterParams) chi.Router {
	h := params.Handler
	logger := params.Logger.With().Str("component", "http").Logger()

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   params.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", AdminKeyHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)
	if params.WebSocket != nil {
		r.Get("/ws", params.WebSocket.ServeHTTP)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(requestLogger(logger))

		r.Route("/auctions", func(r chi.Router) {
			// Public routes
			r.Get("/active", h.ListActiveAuctions)
			r.Get("/{auctionId}", h.GetAuction)
			r.Get("/{auctionId}/bids", h.GetBidHistory)

			r.With(requireAdminKey(params.AdminKey)).Post("/process-expired", h.ProcessExpiredAuctions)

			r.Group(func(r chi.Router) {
				r.Use(requireUser(params.Authenticator, logger))
				r.Post("/", h.CreateAuction)
				r.Post("/{auctionId}/bid", h.PlaceBid)
				r.Post("/{auctionId}/end", h.EndAuction)
				r.Patch("/{auctionId}/end", h.EndAuction)
				r.Get("/user/my-auctions", h.ListMyAuctions)
				r.Get("/user/my-bids", h.ListMyBids)
			})
		})

		r.Route("/memes", func(r chi.Router) {
			r.Get("/", h.ListMemes)
			r.With(requireUser(params.Authenticator, logger)).Get("/user-memes", h.ListMyMemes)
			r.With(requireUser(params.Authenticator, logger)).Post("/{memeId}/vote", h.VoteMeme)
		})

		r.With(requireUser(params.Authenticator, logger)).Get("/users/profile", h.GetProfile)

		r.Route("/competitions", func(r chi.Router) {
			r.Get("/{roomId}", h.GetCompetition)
			r.With(requireAdminKey(params.AdminKey)).Post("/{roomId}/finalize", h.FinalizeCompetition)
		})
	})

	return r
}
