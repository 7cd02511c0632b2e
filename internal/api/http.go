package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// NewRouter serves the same views as the gRPC service over JSON.
func NewRouter(s *Service) http.Handler {
	r := mux.NewRouter()
	r.Use(requestLogging(s.logger()))

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/scaletypes", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/scaletypes/{name}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/drycost", s.handleDryCost).Methods(http.MethodGet)
	return r
}

func (s *Service) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	concluded := s.DryCost != nil && s.DryCost.Concluded()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"scale_types":        len(s.Registry.All()),
		"dry_cost_concluded": concluded,
	})
}

func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	all := s.Registry.All()
	items := make([]any, 0, len(all))
	for _, st := range all {
		items = append(items, scaleTypeView(st, s.Gate))
	}
	writeJSON(w, http.StatusOK, map[string]any{"scale_types": items})
}

func (s *Service) handleGet(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	st, ok := s.Registry.Lookup(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not_found", "name": name})
		return
	}
	writeJSON(w, http.StatusOK, scaleTypeView(st, s.Gate))
}

func (s *Service) handleDryCost(w http.ResponseWriter, r *http.Request) {
	if s.DryCost == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "not_configured"})
		return
	}
	writeJSON(w, http.StatusOK, reportView(s.DryCost))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogging(log *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.Debug("http request", "method", r.Method, "path", r.URL.Path, "status", rec.code, "took", time.Since(start))
		})
	}
}
