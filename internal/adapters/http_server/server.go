package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

type Server struct {
	mux     *chi.Mux
	writeRL *ipLimiter
}

type Options struct {
	Timeout    time.Duration
	WriteRPS   float64 // per client IP; <= 0 disables write throttling
	WriteBurst int
}

func New(o Options) *Server {
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	m := chi.NewRouter()

	// all middlewares go before any routes are added
	m.Use(chimw.RealIP)
	m.Use(chimw.RequestID)
	m.Use(chimw.Recoverer)
	m.Use(Metrics)
	m.Use(Logger(log.Logger))
	// deadline on the request context; handlers stay on the serving goroutine
	m.Use(chimw.Timeout(o.Timeout))

	s := &Server{mux: m}
	if o.WriteRPS > 0 {
		s.writeRL = newIPLimiter(o.WriteRPS, o.WriteBurst)
	}
	return s
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches any extra handler (e.g., /metrics) to the router.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}
