package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/inkwell-cms/inkwell/pkg/httputil"
	"github.com/inkwell-cms/inkwell/pkg/middleware"
	"github.com/inkwell-cms/inkwell/pkg/observability"
	"github.com/inkwell-cms/inkwell/pkg/service"
)

// maxBodyBytes bounds document payload sizes.
const maxBodyBytes = 1 << 20

// ServerConfig collects the server's collaborators.
type ServerConfig struct {
	Services []*service.Service
	Auth     *middleware.Authenticator
	Logger   *logrus.Logger
	Metrics  *observability.Metrics
}

// Server routes HTTP traffic to the mounted services.
type Server struct {
	router *mux.Router
	log    *logrus.Logger
}

// NewServer builds the router and mounts every configured service.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	s := &Server{
		router: mux.NewRouter(),
		log:    cfg.Logger,
	}

	chain := []mux.MiddlewareFunc{
		httputil.RequestIDMiddleware,
		httputil.RecoveryMiddleware(cfg.Logger),
		httputil.LoggingMiddleware(cfg.Logger, cfg.Metrics),
		httputil.MaxBytesMiddleware(maxBodyBytes),
	}
	if cfg.Auth != nil {
		chain = append(chain, cfg.Auth.Handler)
	}
	s.router.Use(chain...)

	for _, svc := range cfg.Services {
		s.mount(svc)
	}

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFoundError(w, "no such route")
	})

	return s
}

// mount registers the six collection routes for one service.
func (s *Server) mount(svc *service.Service) {
	h := &serviceHandlers{svc: svc}
	base := "/api/" + svc.Name()

	s.router.HandleFunc(base, h.find).Methods(http.MethodGet)
	s.router.HandleFunc(base, h.create).Methods(http.MethodPost)
	s.router.HandleFunc(base+"/{id}", h.get).Methods(http.MethodGet)
	s.router.HandleFunc(base+"/{id}", h.update).Methods(http.MethodPut)
	s.router.HandleFunc(base+"/{id}", h.patch).Methods(http.MethodPatch)
	s.router.HandleFunc(base+"/{id}", h.remove).Methods(http.MethodDelete)

	s.log.WithField("service", svc.Name()).Debug("service mounted")
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
