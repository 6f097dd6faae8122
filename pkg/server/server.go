package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zapwave/zapwave/internal/config"
	"github.com/zapwave/zapwave/internal/store"
	"github.com/zapwave/zapwave/pkg/catalog"
	"github.com/zapwave/zapwave/pkg/feed"
	"github.com/zapwave/zapwave/pkg/ingest"
	"github.com/zapwave/zapwave/pkg/metrics"
	"github.com/zapwave/zapwave/pkg/ranking"
	"github.com/zapwave/zapwave/pkg/splits"
)

// Server provides the HTTP API.
type Server struct {
	store       store.Store
	engine      *ranking.Engine
	sources     []ingest.Source
	metrics     *metrics.Metrics
	site        config.SiteConfig
	recentLimit int
	allLimit    int
	port        int
}

// New creates a new HTTP server.
func New(s store.Store, engine *ranking.Engine, sources []ingest.Source, m *metrics.Metrics, cfg *config.Config) *Server {
	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	recentLimit := cfg.Releases.RecentLimit
	if recentLimit == 0 {
		recentLimit = 10
	}
	allLimit := cfg.Releases.AllLimit
	if allLimit == 0 {
		allLimit = 50
	}
	return &Server{
		store:       s,
		engine:      engine,
		sources:     sources,
		metrics:     m,
		site:        cfg.Site,
		recentLimit: recentLimit,
		allLimit:    allLimit,
		port:        port,
	}
}

// Handler returns the API routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/v1/trending", s.handleTrending)
	mux.HandleFunc("/api/v1/releases", s.handleReleases)
	mux.HandleFunc("/api/v1/releases/recent", s.handleRecentReleases)
	mux.HandleFunc("/api/v1/releases/latest", s.handleLatestRelease)
	mux.HandleFunc("/api/v1/tracks", s.handleTracks)
	mux.HandleFunc("/api/v1/artists", s.handleArtists)
	mux.HandleFunc("/api/v1/splits/", s.handleSplits)
	mux.HandleFunc("/api/v1/ingest", s.handleIngest)
	mux.HandleFunc("/api/v1/chart/rebuild", s.handleChartRebuild)
	mux.HandleFunc("/feed.xml", s.handleFeed)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	return mux
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.port)
	fmt.Printf("zapwave server listening on %s\n", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSON(w, r, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := s.store.ListChart(r.Context(), limit)
	if err != nil {
		s.writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"data":  entries,
		"count": len(entries),
	})
}

// listReleases loads the catalog newest-first for the selection pipeline.
func (s *Server) listReleases(r *http.Request) ([]catalog.Release, error) {
	releases, err := s.store.ListReleases(r.Context(), store.ReleaseListOpts{
		WithTracks: true,
		Limit:      500,
	})
	if err != nil {
		return nil, err
	}
	return catalog.SortReleasesByDate(releases), nil
}

func (s *Server) handleReleases(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSON(w, r, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	releases, err := s.listReleases(r)
	if err != nil {
		s.writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	f := catalog.AllFilter()
	f.Limit = s.allLimit
	f.ArtistID = r.URL.Query().Get("artist")
	out := catalog.SelectReleases(releases, f)

	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"data":  out,
		"count": len(out),
	})
}

func (s *Server) handleRecentReleases(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSON(w, r, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	releases, err := s.listReleases(r)
	if err != nil {
		s.writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	f := catalog.RecentFilter()
	f.Limit = s.recentLimit
	f.ArtistID = r.URL.Query().Get("artist")
	f.Latest = catalog.LatestRelease(releases)
	out := catalog.SelectReleases(releases, f)

	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"data":  out,
		"count": len(out),
	})
}

func (s *Server) handleLatestRelease(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSON(w, r, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	releases, err := s.listReleases(r)
	if err != nil {
		s.writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	var latest *catalog.Release
	if r.URL.Query().Get("with_image") == "true" {
		latest = catalog.LatestReleaseWithImage(releases)
	} else {
		latest = catalog.LatestRelease(releases)
	}
	if latest == nil {
		s.writeJSON(w, r, http.StatusNotFound, map[string]string{"error": "no releases"})
		return
	}

	s.writeJSON(w, r, http.StatusOK, map[string]any{"data": latest})
}

func (s *Server) handleTracks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSON(w, r, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	opts := store.TrackListOpts{Limit: 100}
	opts.ArtistID = r.URL.Query().Get("artist")
	if since := r.URL.Query().Get("since"); since != "" {
		if t, err := time.Parse(time.RFC3339, since); err == nil {
			opts.Since = t
		}
	}

	tracks, err := s.store.ListTracks(r.Context(), opts)
	if err != nil {
		s.writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"data":  tracks,
		"count": len(tracks),
	})
}

func (s *Server) handleArtists(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSON(w, r, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	counts, err := s.store.CountTracksByArtist(r.Context())
	if err != nil {
		s.writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	type artistInfo struct {
		ArtistID string `json:"artist_id"`
		Tracks   int    `json:"tracks"`
	}

	var infos []artistInfo
	for artist, n := range counts {
		infos = append(infos, artistInfo{ArtistID: artist, Tracks: n})
	}

	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"data":  infos,
		"count": len(infos),
	})
}

func (s *Server) handleSplits(w http.ResponseWriter, r *http.Request) {
	artistID := strings.TrimPrefix(r.URL.Path, "/api/v1/splits/")
	if artistID == "" {
		s.writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "missing artist id"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		recipients, err := s.store.GetSplits(r.Context(), artistID)
		if err != nil {
			s.writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		s.writeJSON(w, r, http.StatusOK, map[string]any{
			"data":  recipients,
			"count": len(recipients),
		})

	case http.MethodPut:
		var recipients []splits.Recipient
		if err := json.NewDecoder(r.Body).Decode(&recipients); err != nil {
			s.writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "invalid body: " + err.Error()})
			return
		}
		recipients = splits.Normalize(recipients)
		if err := splits.Validate(recipients); err != nil {
			s.writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if err := s.store.SetSplits(r.Context(), artistID, recipients); err != nil {
			s.writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		s.writeJSON(w, r, http.StatusOK, map[string]any{"data": recipients})

	default:
		s.writeJSON(w, r, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSON(w, r, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	ctx := r.Context()
	results := make(map[string]int)
	var errs []string

	for _, src := range s.sources {
		batch, err := src.Fetch(ctx)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", src.Name(), err))
			continue
		}
		if err := s.store.ApplyBatch(ctx, batch); err != nil {
			errs = append(errs, fmt.Sprintf("%s store: %v", src.Name(), err))
			continue
		}
		results[src.Name()] = batch.Len()
	}

	resp := map[string]any{"ingested": results}
	if len(errs) > 0 {
		resp["errors"] = errs
	}

	s.writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleChartRebuild(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSON(w, r, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	entries, err := s.engine.Rebuild(r.Context())
	if err != nil {
		s.writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"data":  entries,
		"count": len(entries),
	})
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	releases, err := s.store.ListReleases(r.Context(), store.ReleaseListOpts{
		WithTracks: true,
		Limit:      500,
	})
	if err != nil {
		s.writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	out, err := feed.RenderRSS(feed.Site{
		Title:       s.site.Title,
		Link:        s.site.Link,
		Description: s.site.Description,
	}, releases)
	if err != nil {
		s.writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Write(out)
	s.countRequest(r.URL.Path, http.StatusOK)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
	s.countRequest(r.URL.Path, status)
}

func (s *Server) countRequest(path string, status int) {
	if s.metrics != nil {
		s.metrics.HTTPRequests.WithLabelValues(path, strconv.Itoa(status)).Inc()
	}
}
