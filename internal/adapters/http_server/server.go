package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

const defaultTimeout = 15 * time.Second

type Server struct{ mux *chi.Mux }

// New builds the router. timeout must stay above the inbound processing
// deadline plus the write deadline, or the timeout handler would answer 503
// for a message that is still being stored.
func New(timeout time.Duration) *Server {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	r := chi.NewRouter()
	r.Use(
		chimw.RealIP,
		chimw.RequestID,
		chimw.Recoverer,
		Timeout(timeout),
		Metrics,
		Logger(log.Logger),
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeProblem(w, http.StatusNotFound, "Not Found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "")
	})
	return &Server{mux: r}
}

func (s *Server) Mux() http.Handler { return s.mux }
