package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Post("/orchestrate", s.handleOrchestrate)
		r.Post("/suggest", s.handleSuggest)
		r.Get("/title", s.handleTitle)
		r.Get("/models", s.handleModels)
		r.Get("/graphs/{name}", s.handleGraph)

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", s.handleCreateConversation)
			r.Get("/", s.handleListConversations)
			r.Get("/{id}/messages", s.handleMessagePath)
			r.Get("/{id}/messages/{messageID}/branches", s.handleBranches)
			r.Put("/{id}/active", s.handleSwitchBranch)
			r.Get("/{id}/transcript", s.handleTranscript)
			r.Get("/{id}/graph", s.handleConversationGraph)
			r.Post("/{id}/snapshots", s.handleCreateSnapshot)
			r.Get("/{id}/snapshots", s.handleSnapshots)
		})
	})

	return r
}

// requestLogger writes one line per request to the HTTP logger. Server
// errors are logged at warn.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		line := "%s %s %d %dB %s [%s]"
		args := []any{r.Method, r.URL.Path, status, ww.BytesWritten(), time.Since(start), middleware.GetReqID(r.Context())}
		if status >= http.StatusInternalServerError {
			s.httpLogger.Warn(line, args...)
			return
		}
		s.httpLogger.Info(line, args...)
	})
}
