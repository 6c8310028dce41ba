package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/jpalmerr/buildwatch/internal/dom"
)

const (
	// sseWriteTimeout bounds a single SSE write so a stalled client cannot
	// pin its handler goroutine past shutdown.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second

	defaultTitle = "Build Status"

	titlePlaceholder     = "{{.Title}}"
	bodyClassPlaceholder = "{{.BodyClass}}"
)

// BindingSource is the element model the server exposes.
// *dom.Document implements it.
type BindingSource interface {
	Snapshot() []dom.Snapshot
	SnapshotEvents() []dom.Event
	Subscribe() <-chan dom.Event
	Unsubscribe(ch <-chan dom.Event)
}

// ThemeController reads and toggles the theme preference.
type ThemeController interface {
	CurrentTheme() string

	// BodyClass is the class the page body carries for the current theme,
	// or "".
	BodyClass() string

	ToggleTheme(ctx context.Context) (string, error)
}

// Server serves the dashboard and its API.
type Server struct {
	bindings   BindingSource
	theme      ThemeController
	port       int
	assets     fs.FS
	title      string
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer creates a [Server]. assets may be nil, in which case "/" is not
// served. The server is not started until [Server.Start] is called.
func NewServer(bindings BindingSource, theme ThemeController, port int, assets fs.FS, title string, logger *slog.Logger) *Server {
	if title == "" {
		title = defaultTitle
	}
	return &Server{
		bindings: bindings,
		theme:    theme,
		port:     port,
		assets:   assets,
		title:    title,
		logger:   logger,
	}
}

// Handler returns the router with every route registered.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/bindings", s.handleBindings).Methods(http.MethodGet)
	r.HandleFunc("/api/sse", s.handleSSE).Methods(http.MethodGet)
	r.HandleFunc("/api/theme", s.handleTheme).Methods(http.MethodGet)
	r.HandleFunc("/api/theme/toggle", s.handleThemeToggle).Methods(http.MethodPost)
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	if s.assets != nil {
		r.HandleFunc("/", s.handleDashboard).Methods(http.MethodGet)
	}

	return r
}

// Start begins serving in a background goroutine and returns once the port
// is bound. Cancelling ctx triggers a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts derive from ctx so SSE handlers end on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// handleDashboard renders index.html with the title and theme body class.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	bodyClass := ""
	if s.theme != nil {
		bodyClass = s.theme.BodyClass()
	}

	rendered := strings.NewReplacer(
		titlePlaceholder, html.EscapeString(s.title),
		bodyClassPlaceholder, bodyClass,
	).Replace(string(content))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

func (s *Server) handleBindings(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.bindings.Snapshot())
}

type themeResponse struct {
	Theme string `json:"theme"`
}

func (s *Server) handleTheme(w http.ResponseWriter, _ *http.Request) {
	if s.theme == nil {
		http.Error(w, "Theme not configured", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, themeResponse{Theme: s.theme.CurrentTheme()})
}

func (s *Server) handleThemeToggle(w http.ResponseWriter, r *http.Request) {
	if s.theme == nil {
		http.Error(w, "Theme not configured", http.StatusNotFound)
		return
	}
	theme, err := s.theme.ToggleTheme(r.Context())
	if err != nil {
		s.logger.Error("failed to toggle theme", "error", err)
		http.Error(w, "Failed to save theme", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, themeResponse{Theme: theme})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// handleSSE streams element events. A snapshot event per element is sent
// first, then every transition as it happens.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)
	deadlinesSupported := true

	writeAndFlush := func(ev dom.Event) error {
		data, err := json.Marshal(ev)
		if err != nil {
			return nil // skip unencodable events
		}
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// subscribe before the snapshot so no transition falls in between
	ch := s.bindings.Subscribe()
	defer s.bindings.Unsubscribe(ch)

	for _, ev := range s.bindings.SnapshotEvents() {
		if err := writeAndFlush(ev); err != nil {
			return
		}
	}

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := writeAndFlush(ev); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
