package web

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/avstrong/rentals/internal/logger"
	"github.com/avstrong/rentals/internal/search"
)

type Server struct {
	srv     *http.Server
	router  chi.Router
	l       *logger.Logger
	conf    Conf
	manager *search.Manager
}

type Conf struct {
	L                 *logger.Logger
	ServerLogger      *log.Logger
	Host              string
	Port              string
	ReadHeaderTimeout time.Duration
	LivenessEndpoint  string
	AllowedOrigins    []string
	// NearbyRadiusKm is used by the nearby endpoint when the caller sends no radius.
	NearbyRadiusKm float64
}

func New(ctx context.Context, conf Conf, manager *search.Manager) (*Server, error) {
	if conf.LivenessEndpoint == "" {
		conf.LivenessEndpoint = "/liveness"
	}

	router := chi.NewRouter()

	//nolint:exhaustruct
	srv := &http.Server{
		Addr:              net.JoinHostPort(conf.Host, conf.Port),
		ReadHeaderTimeout: conf.ReadHeaderTimeout,
		ErrorLog:          conf.ServerLogger,
		Handler:           router,
		BaseContext: func(listener net.Listener) context.Context {
			return ctx
		},
	}

	server := &Server{
		srv:     srv,
		router:  router,
		l:       conf.L,
		conf:    conf,
		manager: manager,
	}

	server.addRoutes(router)

	return server, nil
}

func (s *Server) Srv() *http.Server {
	return s.srv
}

// Handler exposes the routed handler without a listener, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
