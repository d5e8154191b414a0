// Package server exposes a loaded index over HTTP. The index is frozen, so
// the handler serves concurrent queries without any locking; the only shared
// mutable state is the optional Redis query cache.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mkovalev-dev/termindex/internal/index"
	"github.com/mkovalev-dev/termindex/internal/index/tokenizer"
	"github.com/mkovalev-dev/termindex/internal/search"
	"github.com/mkovalev-dev/termindex/pkg/config"
	"github.com/mkovalev-dev/termindex/pkg/errors"
	"github.com/mkovalev-dev/termindex/pkg/metrics"
)

// SearchResult is the serve-mode response body for one query.
type SearchResult struct {
	Query  string            `json:"query"`
	Terms  []string          `json:"terms"`
	Count  int               `json:"count"`
	DocIDs index.PostingList `json:"doc_ids"`
}

// Server answers conjunctive queries against one frozen index.
type Server struct {
	idx           *index.InvertedIndex
	cache         *QueryCache
	metrics       *metrics.Metrics
	maxQueryTerms int
	logger        *slog.Logger
}

// New builds a Server. cache and m may be nil to disable caching and
// metrics.
func New(idx *index.InvertedIndex, cache *QueryCache, m *metrics.Metrics, cfg config.SearchConfig) *Server {
	return &Server{
		idx:           idx,
		cache:         cache,
		metrics:       m,
		maxQueryTerms: cfg.MaxQueryTerms,
		logger:        slog.Default().With("component", "search-server"),
	}
}

// Router returns the HTTP routes: /search, /cache/stats, /healthz, and
// /metrics when metrics are enabled.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Get("/search", s.handleSearch)
	r.Get("/cache/stats", s.handleCacheStats)
	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}
	return r
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeError(w, errors.New(errors.ErrInvalidInput, "query parameter 'q' is required"))
		return
	}
	terms := tokenizer.Tokenize(query)
	if len(terms) > s.maxQueryTerms {
		s.writeError(w, errors.Newf(errors.ErrInvalidInput,
			"query has %d terms, limit is %d", len(terms), s.maxQueryTerms))
		return
	}

	compute := func() (*SearchResult, error) {
		ids := search.Intersect(s.idx, terms)
		if ids == nil {
			ids = index.PostingList{} // encode as [], not null
		}
		return &SearchResult{
			Query:  query,
			Terms:  terms,
			Count:  len(ids),
			DocIDs: ids,
		}, nil
	}

	var result *SearchResult
	var err error
	cacheHit := false
	if s.cache != nil {
		result, cacheHit, err = s.cache.GetOrCompute(r.Context(), terms, compute)
	} else {
		result, err = compute()
	}
	if err != nil {
		s.logger.Error("search failed", "query", query, "error", err)
		s.writeError(w, err)
		return
	}

	s.observe(result, cacheHit, time.Since(start))
	s.logger.Info("search completed",
		"query", query,
		"hits", result.Count,
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := s.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.idx == nil {
		s.writeError(w, errors.New(errors.ErrIndexNotLoaded, "no index loaded"))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"terms":  s.idx.Len(),
		"docs":   s.idx.DocCount(),
	})
}

func (s *Server) observe(result *SearchResult, cacheHit bool, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	resultType := "hit"
	if result.Count == 0 {
		resultType = "zero_result"
	}
	cacheStatus := "miss"
	if cacheHit {
		cacheStatus = "hit"
	}
	if s.cache != nil {
		if cacheHit {
			s.metrics.CacheHitsTotal.Inc()
		} else {
			s.metrics.CacheMissesTotal.Inc()
		}
	}
	s.metrics.QueriesTotal.WithLabelValues(resultType).Inc()
	s.metrics.QueryLatency.WithLabelValues(cacheStatus).Observe(elapsed.Seconds())
	s.metrics.QueryResultsCount.Observe(float64(result.Count))
	s.metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/search", strconv.Itoa(http.StatusOK)).Inc()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, errors.HTTPStatusCode(err), map[string]string{"error": err.Error()})
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then shuts
// down gracefully within the configured timeout.
func (s *Server) ListenAndServe(ctx context.Context, cfg config.ServerConfig) error {
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("search server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
