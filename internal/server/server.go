package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jpalmerr/daystatus"
	"github.com/jpalmerr/daystatus/internal/export"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// This prevents goroutine leaks when clients are slow or disconnected.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	// defaultShutdownTimeout bounds graceful shutdown of in-flight requests.
	defaultShutdownTimeout = 10 * time.Second

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "Training Status"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"

	defaultRecentDays = 7
	defaultExportDays = 30
	maxDays           = 366

	// maxBodyBytes caps PUT bodies. A full record is well under 4 KiB.
	maxBodyBytes = 64 << 10
)

// EventSnapshot is the kind of the first SSE message: today's record as it
// was when the client connected.
const EventSnapshot daystatus.EventKind = "snapshot"

// Store is the part of [daystatus.Store] the server uses.
type Store interface {
	GetByDate(date string) daystatus.Record
	Exists(date string) bool
	Save(ctx context.Context, in daystatus.RecordInput, date string) daystatus.SaveResult
	Delete(ctx context.Context, date string) daystatus.DeleteResult
	ListRecent(n int) []daystatus.Record
	ClearAll(ctx context.Context) error
	Courses() []daystatus.Course
	Today() string
	Subscribe() <-chan daystatus.Event
	Unsubscribe(ch <-chan daystatus.Event)
}

// Server handles HTTP requests for the status dashboard and API.
//
// Routes:
//   - GET /: the embedded dashboard HTML
//   - GET /api/status?date=: one day's record and whether it is stored
//   - PUT /api/status?date=: save a day's record
//   - DELETE /api/status?date=: remove a day's record
//   - GET /api/status/recent?days=: the last days, today first
//   - DELETE /api/status/all: remove every record
//   - GET /api/definitions: display metadata of every status
//   - GET /api/courses: the configured courses
//   - GET /api/export?format=ics|xlsx&days=: download recent days
//   - GET /api/sse: Server-Sent Events stream of store changes
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store           Store
	port            int
	httpServer      *http.Server
	assets          fs.FS
	title           string
	logger          *slog.Logger
	shutdownTimeout time.Duration
	addr            net.Addr
	done            chan struct{}
}

// Option configures a [Server].
type Option func(*Server)

// WithShutdownTimeout sets how long shutdown waits for in-flight requests.
// Non-positive values keep the default of 10 seconds.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - st: the status store
//   - port: TCP port to listen on (0 picks a free port)
//   - assets: Embedded filesystem containing dashboard assets (may be nil)
//   - title: Dashboard title (defaults to "Training Status" if empty)
//   - logger: Logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(st Store, port int, assets fs.FS, title string, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		store:           st,
		port:            port,
		assets:          assets,
		title:           title,
		logger:          logger,
		shutdownTimeout: defaultShutdownTimeout,
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routing handler without starting a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// API routes
	mux.HandleFunc("GET /api/status", s.handleGetStatus)
	mux.HandleFunc("PUT /api/status", s.handlePutStatus)
	mux.HandleFunc("DELETE /api/status", s.handleDeleteStatus)
	mux.HandleFunc("GET /api/status/recent", s.handleRecent)
	mux.HandleFunc("DELETE /api/status/all", s.handleClearAll)
	mux.HandleFunc("GET /api/definitions", s.handleDefinitions)
	mux.HandleFunc("GET /api/courses", s.handleCourses)
	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("GET /api/sse", s.handleSSE)

	// serve dashboard assets
	if s.assets != nil {
		mux.HandleFunc("GET /{$}", s.handleDashboard)
	}

	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown bounded by the
// shutdown timeout. [Server.Wait] blocks until that shutdown has finished.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}
	s.addr = ln.Addr()

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// BaseContext derives all request contexts from the server context.
		// When ctx is cancelled, all request contexts are also cancelled,
		// enabling graceful shutdown of long-running handlers like SSE.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		defer close(s.done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	s.logger.Info("http server listening", "addr", s.addr.String())
	return nil
}

// Addr returns the bound address once [Server.Start] succeeded.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Wait blocks until a started server has shut down. It returns at once if
// the server was never started.
func (s *Server) Wait() {
	if s.httpServer == nil {
		return
	}
	<-s.done
}

// handleDashboard serves the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if s.assets == nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// read index.html from embedded assets
	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// apply title substitution with HTML escaping to prevent XSS
	title := s.title
	if title == "" {
		title = defaultTitle
	}
	safeTitle := html.EscapeString(title)
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, safeTitle)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

// statusResponse is the body of GET /api/status.
type statusResponse struct {
	Record daystatus.Record `json:"record"`
	Exists bool             `json:"exists"`
}

// errorResponse is the body of every failed API request.
type errorResponse struct {
	Error  string   `json:"error"`
	Errors []string `json:"errors,omitempty"`
}

// courseResponse is one entry of GET /api/courses.
type courseResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Time        string `json:"time,omitempty"`
	Description string `json:"description,omitempty"`
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	date, ok := s.dateParam(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, statusResponse{
		Record: s.store.GetByDate(date),
		Exists: s.store.Exists(date),
	})
}

func (s *Server) handlePutStatus(w http.ResponseWriter, r *http.Request) {
	date, ok := s.dateParam(w, r)
	if !ok {
		return
	}

	var in daystatus.RecordInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&in); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error(), nil)
		return
	}

	res := s.store.Save(r.Context(), in, date)
	if res.Success {
		s.writeJSON(w, http.StatusOK, res.Record)
		return
	}

	var verr *daystatus.ValidationError
	switch {
	case errors.As(res.Err, &verr):
		s.writeError(w, http.StatusUnprocessableEntity, "validation failed", verr.Errors)
	case errors.Is(res.Err, daystatus.ErrQuotaExceeded):
		s.writeError(w, http.StatusInsufficientStorage, res.Err.Error(), nil)
	case errors.Is(res.Err, daystatus.ErrNotInitialized):
		s.writeError(w, http.StatusServiceUnavailable, res.Err.Error(), nil)
	default:
		s.writeError(w, http.StatusInternalServerError, errString(res.Err), res.Errors)
	}
}

func (s *Server) handleDeleteStatus(w http.ResponseWriter, r *http.Request) {
	date, ok := s.dateParam(w, r)
	if !ok {
		return
	}

	res := s.store.Delete(r.Context(), date)
	switch {
	case res.Success:
		s.writeJSON(w, http.StatusOK, res.Record)
	case errors.Is(res.Err, daystatus.ErrNotFound):
		s.writeError(w, http.StatusNotFound, res.Err.Error(), nil)
	case errors.Is(res.Err, daystatus.ErrNotInitialized):
		s.writeError(w, http.StatusServiceUnavailable, res.Err.Error(), nil)
	default:
		s.writeError(w, http.StatusInternalServerError, errString(res.Err), nil)
	}
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	days, ok := s.daysParam(w, r, defaultRecentDays)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, s.store.ListRecent(days))
}

func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	err := s.store.ClearAll(r.Context())
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, daystatus.ErrNotInitialized):
		s.writeError(w, http.StatusServiceUnavailable, err.Error(), nil)
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error(), nil)
	}
}

func (s *Server) handleDefinitions(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, daystatus.StatusDefinitions())
}

func (s *Server) handleCourses(w http.ResponseWriter, _ *http.Request) {
	courses := s.store.Courses()
	out := make([]courseResponse, 0, len(courses))
	for _, c := range courses {
		out = append(out, courseResponse{
			ID:          c.ID(),
			Name:        c.Name(),
			Time:        c.Time(),
			Description: c.Description(),
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	days, ok := s.daysParam(w, r, defaultExportDays)
	if !ok {
		return
	}
	records := s.store.ListRecent(days)

	// render into a buffer so a failure can still produce an error status
	var buf bytes.Buffer
	var contentType, filename string
	var err error

	switch format := r.URL.Query().Get("format"); format {
	case "", "ics":
		contentType, filename = "text/calendar; charset=utf-8", "daystatus.ics"
		title := s.title
		if title == "" {
			title = defaultTitle
		}
		err = export.WriteICS(&buf, records, export.ICSOptions{Title: title})
	case "xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		filename = "daystatus.xlsx"
		err = export.WriteXLSX(&buf, records, s.store.Courses())
	default:
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown export format %q", format), nil)
		return
	}

	if err != nil {
		s.logger.Error("export failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "export failed", nil)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Error("failed to write export response", "error", err)
	}
}

// handleSSE streams store events via Server-Sent Events. The first message
// is a snapshot of today's record.
//
// The handler uses write deadlines to prevent goroutine leaks when clients are
// slow or disconnected. Without deadlines, a blocked Fprintf call would prevent
// the handler from detecting context cancellation or channel closure.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	// check if flushing is supported
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	// ResponseController provides deadline-aware write and flush operations.
	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some ResponseWriter impls)
	deadlinesSupported := true

	// writeAndFlush writes SSE data with a deadline to prevent blocking forever.
	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				// deadline not supported by underlying connection, continue without
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}

		// ResponseController.Flush respects the write deadline
		return rc.Flush()
	}

	// set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// subscribe before the snapshot so no change falls in between
	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	today := s.store.Today()
	rec := s.store.GetByDate(today)
	snapshot := daystatus.Event{
		Kind:   EventSnapshot,
		Date:   today,
		Record: &rec,
		At:     time.Now().UTC(),
	}
	if data, err := json.Marshal(snapshot); err == nil {
		if err := writeAndFlush(data); err != nil {
			return
		}
	}

	// stream updates
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// request context is derived from server context via BaseContext,
			// so this fires on both client disconnect AND server shutdown
			return
		}
	}
}

// dateParam reads the optional date query parameter. An absent date means
// today; a malformed one is answered with 400.
func (s *Server) dateParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	date := r.URL.Query().Get("date")
	if date == "" {
		return s.store.Today(), true
	}
	if _, err := time.Parse(daystatus.DateLayout, date); err != nil {
		s.writeError(w, http.StatusBadRequest, "date must be in YYYY-MM-DD form", nil)
		return "", false
	}
	return date, true
}

// daysParam reads the optional days query parameter, 1 to 366.
func (s *Server) daysParam(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return def, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 || days > maxDays {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("days must be between 1 and %d", maxDays), nil)
		return 0, false
	}
	return days, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string, details []string) {
	s.writeJSON(w, status, errorResponse{Error: msg, Errors: details})
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
