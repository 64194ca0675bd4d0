// Package web serves the browser UI. Pages are rendered on the server and
// every piece of data comes from the task API through internal/client.
package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/hiroki-koketsu/go-task-manager/internal/client"
)

//go:embed templates/*.html
var templateFS embed.FS

const requestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// page is the data every template gets.
type page struct {
	Title    string
	LoggedIn bool
	Notices  []Notice
}

// Server is the web UI.
type Server struct {
	apiBaseURL string
	http       *http.Client
	sessions   *sessions.CookieStore
	logger     *slog.Logger
	pages      map[string]*template.Template
}

// NewServer parses the page templates and returns a Server that talks to the
// API at apiBaseURL. sessionKey signs the session cookie.
func NewServer(apiBaseURL, sessionKey string, httpClient *http.Client, logger *slog.Logger) (*Server, error) {
	pages := map[string]*template.Template{}
	for _, name := range []string{"list.html", "form.html", "login.html"} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = t
	}
	return &Server{
		apiBaseURL: apiBaseURL,
		http:       httpClient,
		sessions:   newSessionStore(sessionKey),
		logger:     logger,
		pages:      pages,
	}, nil
}

// Routes returns the UI router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.listTasks)
	r.Get("/login", s.loginPage)
	r.Post("/login", s.login)
	r.Post("/logout", s.logout)

	r.Get("/tasks/add", s.newTaskForm)
	r.Post("/tasks/add", s.submitTaskForm)
	r.Get("/tasks/{id}", s.editTaskForm)
	r.Post("/tasks/{id}", s.submitTaskForm)
	r.Post("/tasks/{id}/delete", s.deleteTask)

	return r
}

// requestID reuses the caller's X-Request-Id or generates one, so API logs
// can be matched to the page request that caused them.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func (s *Server) api(n client.Notifier) *client.Client {
	return client.New(s.http, s.apiBaseURL, n)
}

func (s *Server) headers(r *http.Request, token string) map[string]string {
	h := map[string]string{"Authorization": token}
	if id, ok := r.Context().Value(requestIDKey{}).(string); ok {
		h[requestIDHeader] = id
	}
	return h
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, status int, data any) {
	var buf bytes.Buffer
	if err := s.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.ErrorContext(r.Context(), "failed to render page", slog.String("page", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
