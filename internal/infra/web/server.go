package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/itzhord/onecard-sub000/internal/usecase"
)

type Server struct {
	verifyUC   usecase.VerificationUseCase
	initiateUC usecase.InitiationUseCase
	auth       *AuthManager
	log        *zerolog.Logger
}

func NewServer(
	verifyUC usecase.VerificationUseCase,
	initiateUC usecase.InitiationUseCase,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		verifyUC:   verifyUC,
		initiateUC: initiateUC,
		auth:       auth,
		log:        logger,
	}
}

// Router builds the chi router: payment routes behind bearer auth, health and
// metrics open.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Use(s.auth.authMiddleware)
		r.Post("/verify", s.handleVerify)
		r.Post("/initiate", s.handleInitiate)
		r.Get("/{reference}", s.handleGetPayment)
	})

	return r
}
