package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"mediasort/internal/config"
	"mediasort/internal/ics"
	appLog "mediasort/internal/log"
	"mediasort/internal/model"
	"mediasort/internal/sorter"
)

// Runner triggers a sort pass. *sorter.Sorter satisfies it.
type Runner interface {
	Run(ctx context.Context) (sorter.Stats, error)
}

// Server provides the read-only HTTP API over the event table plus a sort
// trigger. There is no configuration endpoint.
type Server struct {
	cfg      *config.Config
	loc      *time.Location
	resolver *sorter.Resolver
	runner   Runner
	mux      *http.ServeMux

	// now is swapped in tests.
	now func() time.Time
}

// NewServer constructs a new Server. runner may be nil, in which case
// POST /api/sort answers 503.
func NewServer(cfg *config.Config, loc *time.Location, resolver *sorter.Resolver, runner Runner) *Server {
	if loc == nil {
		loc = time.Local
	}
	s := &Server{
		cfg:      cfg,
		loc:      loc,
		resolver: resolver,
		runner:   runner,
		mux:      http.NewServeMux(),
		now:      time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials leave the API open.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="mediasort", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Serve runs the API on cfg.Listen until ctx is cancelled, then shuts the
// listener down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		appLog.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/api/match", s.handleMatch)
	s.mux.HandleFunc("/api/calendar.ics", s.handleCalendar)
	s.mux.HandleFunc("/api/sort", s.handleSort)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// eventDTO is a JSON-friendly view of a table entry.
type eventDTO struct {
	Name        string `json:"name"`
	Raw         string `json:"raw"`
	Source      string `json:"source"`
	Kind        string `json:"kind"`
	Tier        int    `json:"tier"`
	Lower       int    `json:"lower,omitempty"`
	Upper       int    `json:"upper,omitempty"`
	CrossesYear bool   `json:"crosses_year"`
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Events      []eventDTO         `json:"events"`
	Year        int                `json:"year"`
	Occurrences []model.Occurrence `json:"occurrences"`
	Truncated   []string           `json:"truncated,omitempty"`
	TimeZone    string             `json:"timezone"`
}

// handleEvents lists the table in priority order plus the occurrences that
// overlap the requested year.
//
// GET /api/events?year=2024 (default: current year)
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	year := parseIntDefault(r.URL.Query().Get("year"), s.now().In(s.loc).Year())
	if year < 1 || year > 9999 {
		writeError(w, http.StatusBadRequest, "year out of range")
		return
	}

	table := s.resolver.Table()
	events := table.Events()
	dtos := make([]eventDTO, 0, len(events))
	for _, ev := range events {
		dtos = append(dtos, eventDTO{
			Name:        ev.Name,
			Raw:         ev.Raw,
			Source:      ev.Source,
			Kind:        ev.Kind.String(),
			Tier:        int(ev.Tier),
			Lower:       ev.Bounds.Lower,
			Upper:       ev.Bounds.Upper,
			CrossesYear: ev.CrossesYear,
		})
	}

	res, err := ics.Expand(table, ics.ExpandConfig{
		Location:   s.loc,
		RangeStart: time.Date(year, time.January, 1, 0, 0, 0, 0, s.loc),
		RangeEnd:   time.Date(year+1, time.January, 1, 0, 0, 0, 0, s.loc).Add(-time.Millisecond),
	})
	if err != nil {
		appLog.Error("api events: expand failed", err)
		writeError(w, http.StatusInternalServerError, "failed to expand events")
		return
	}

	occ := res.Occurrences
	if occ == nil {
		occ = []model.Occurrence{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{
		Events:      dtos,
		Year:        year,
		Occurrences: occ,
		Truncated:   res.Truncated,
		TimeZone:    s.loc.String(),
	})
}

// matchResponse is the JSON response shape for /api/match.
type matchResponse struct {
	Date     string   `json:"date"`
	Bucket   string   `json:"bucket"`
	Matched  bool     `json:"matched"`
	Name     string   `json:"name,omitempty"`
	Year     int      `json:"year,omitempty"`
	Span     []int    `json:"span,omitempty"`
	Segments []string `json:"segments"`
}

// handleMatch resolves a single date.
//
// GET /api/match?date=2024-12-24
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	raw := r.URL.Query().Get("date")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing date")
		return
	}
	date, err := time.ParseInLocation("2006-01-02", raw, s.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	d := s.resolver.ResolveDate(date)
	resp := matchResponse{
		Date:     raw,
		Bucket:   d.Bucket.String(),
		Segments: d.Segments,
	}
	if d.Match != nil {
		resp.Matched = true
		resp.Name = d.Match.Name
		resp.Year = d.Match.Year
		if d.Match.Span != nil {
			resp.Span = []int{d.Match.Span.Start, d.Match.Span.End}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCalendar exports the event table as an iCalendar file.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="mediasort.ics"`)
	if err := ics.WriteCalendar(w, s.resolver.Table(), s.now()); err != nil {
		appLog.Error("api calendar: export failed", err)
	}
}

// handleSort runs one sort pass and returns its stats. The run is bound to
// the request context.
func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "sorting is not available")
		return
	}

	stats, err := s.runner.Run(r.Context())
	if err != nil {
		appLog.Error("api sort: run failed", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

var _ Runner = (*sorter.Sorter)(nil)
