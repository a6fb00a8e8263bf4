package core

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/akarpenko/backplane/pkg/requestid"
)

// Microservice is one pluggable service mounted on the shared router.
type Microservice interface {
	Name() string
	RoutePrefix() string
	Register(r chi.Router)
}

// App owns the shared HTTP router and mounts microservices under their route
// prefixes. Request id assignment and panic recovery run before any service
// handler.
type App struct {
	router   chi.Router
	log      *slog.Logger
	services []Microservice
}

// NewApp builds the app with its base middleware stack.
func NewApp(log *slog.Logger) *App {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(middleware.Recoverer)

	return &App{router: r, log: log}
}

// Mount registers a microservice's routes under its prefix.
func (a *App) Mount(svc Microservice) {
	a.services = append(a.services, svc)
	a.router.Route(svc.RoutePrefix(), svc.Register)
	a.log.Info("microservice mounted",
		slog.String("name", svc.Name()),
		slog.String("prefix", svc.RoutePrefix()))
}

// Handle registers an app-level route outside any microservice, such as the
// health probe.
func (a *App) Handle(pattern string, h http.HandlerFunc) {
	a.router.Get(pattern, h)
}

// Services returns the mounted microservices.
func (a *App) Services() []Microservice {
	return a.services
}

// Handler returns the composed router.
func (a *App) Handler() http.Handler {
	return a.router
}
