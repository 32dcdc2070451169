package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/joescharf/changelog/internal/changelog"
	"github.com/joescharf/changelog/internal/config"
	"github.com/joescharf/changelog/internal/git"
	"github.com/joescharf/changelog/internal/issues"
	"github.com/joescharf/changelog/internal/render"
)

// Server provides the read-only REST API handlers.
type Server struct {
	settings *config.Settings
	git      git.Client
	trackers issues.Trackers
	logger   *slog.Logger
}

// NewServer creates a new API server.
// The trackers may be nil when no tracker is configured.
func NewServer(s *config.Settings, gc git.Client, trackers issues.Trackers, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		settings: s,
		git:      gc,
		trackers: trackers,
		logger:   logger,
	}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/changelog", s.getChangelog)
	mux.HandleFunc("GET /api/v1/tags", s.listTags)
	mux.HandleFunc("GET /api/v1/tags/{name}", s.getTag)
	mux.HandleFunc("GET /api/v1/issues", s.listIssues)
	mux.HandleFunc("GET /api/v1/diagnostics", s.listDiagnostics)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// generate runs the pipeline with the from/to query overrides. On failure
// it writes the error response and returns nil.
func (s *Server) generate(w http.ResponseWriter, r *http.Request) *changelog.Result {
	q := r.URL.Query()
	res, err := changelog.Generate(r.Context(), s.settings, s.git, s.trackers, s.logger, changelog.Options{
		FromRef: q.Get("from"),
		ToRef:   q.Get("to"),
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, issues.ErrConfiguration) {
			status = http.StatusBadRequest
		}
		s.logger.Warn("changelog generation failed", "path", r.URL.Path, "error", err)
		writeError(w, status, err.Error())
		return nil
	}
	w.Header().Set("X-Changelog-Warnings", strconv.Itoa(len(res.Diagnostics)))
	return res
}

var contentTypes = map[string]string{
	config.FormatMarkdown: "text/markdown; charset=utf-8",
	config.FormatJSON:     "application/json",
	config.FormatYAML:     "application/yaml",
}

func (s *Server) getChangelog(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = config.FormatJSON
	}
	rd, err := render.New(format, s.settings.Template)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := s.generate(w, r)
	if res == nil {
		return
	}

	var buf bytes.Buffer
	if err := rd.Render(&buf, res.Changelog); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", contentTypes[rd.Format()])
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	res := s.generate(w, r)
	if res == nil {
		return
	}
	writeJSON(w, http.StatusOK, changelog.TagSummaries(res.Changelog))
}

func (s *Server) getTag(w http.ResponseWriter, r *http.Request) {
	res := s.generate(w, r)
	if res == nil {
		return
	}
	tag := changelog.FindTag(res.Changelog, r.PathValue("name"))
	if tag == nil {
		writeError(w, http.StatusNotFound, "tag not found")
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

func (s *Server) listIssues(w http.ResponseWriter, r *http.Request) {
	res := s.generate(w, r)
	if res == nil {
		return
	}
	writeJSON(w, http.StatusOK, changelog.IssueSummaries(res.Changelog, r.URL.Query().Get("bucket")))
}

type diagnosticEntry struct {
	Commit  string `json:"commit"`
	Issue   string `json:"issue"`
	Tracker string `json:"tracker"`
	Error   string `json:"error"`
}

func (s *Server) listDiagnostics(w http.ResponseWriter, r *http.Request) {
	res := s.generate(w, r)
	if res == nil {
		return
	}
	out := make([]diagnosticEntry, len(res.Diagnostics))
	for i, d := range res.Diagnostics {
		out[i] = diagnosticEntry{Commit: d.Commit, Issue: d.ID, Tracker: string(d.Kind), Error: d.Err.Error()}
	}
	writeJSON(w, http.StatusOK, out)
}
