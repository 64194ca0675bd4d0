package web

import (
	"encoding/gob"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"

	"github.com/hiroki-koketsu/go-task-manager/internal/auth"
)

const (
	sessionName = "task-manager"
	tokenKey    = "token"
)

func init() {
	gob.Register(Notice{})
}

// Notice is a toast shown at the top of a page.
type Notice struct {
	Kind string
	Text string
}

// notices collects the toasts of one page request.
type notices struct {
	items []Notice
}

func (n *notices) Success(msg string) {
	n.items = append(n.items, Notice{Kind: "success", Text: msg})
}

func (n *notices) Error(msg string) {
	n.items = append(n.items, Notice{Kind: "error", Text: msg})
}

func newSessionStore(key string) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(key))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// session returns the caller's session. A cookie that fails verification
// yields a fresh, empty session.
func (s *Server) session(r *http.Request) *sessions.Session {
	sess, err := s.sessions.Get(r, sessionName)
	if err != nil {
		s.logger.DebugContext(r.Context(), "discarding unreadable session", slog.Any("error", err))
	}
	return sess
}

// saveSession writes the session cookie. It must run before the body is
// written.
func (s *Server) saveSession(w http.ResponseWriter, r *http.Request, sess *sessions.Session) {
	if err := sess.Save(r, w); err != nil {
		s.logger.ErrorContext(r.Context(), "failed to save session", slog.Any("error", err))
	}
}

func sessionToken(sess *sessions.Session) string {
	token, _ := sess.Values[tokenKey].(string)
	return token
}

// addFlash keeps items for the page shown after a redirect.
func addFlash(sess *sessions.Session, items []Notice) {
	for _, n := range items {
		sess.AddFlash(n)
	}
}

// takeFlash removes and returns the pending flash notices.
func takeFlash(sess *sessions.Session) []Notice {
	var items []Notice
	for _, f := range sess.Flashes() {
		if n, ok := f.(Notice); ok {
			items = append(items, n)
		}
	}
	return items
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	view := page{Title: "Login", LoggedIn: sessionToken(sess) != "", Notices: takeFlash(sess)}
	s.saveSession(w, r, sess)
	s.render(w, r, "login.html", http.StatusOK, &view)
}

// login stores a pasted access token. Tokens are issued elsewhere; the API
// verifies them on every call.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromHeader(r.FormValue("token"))
	if token == "" || strings.ContainsAny(token, " \t\r\n") {
		n := &notices{}
		n.Error("Please paste a valid access token")
		s.render(w, r, "login.html", http.StatusBadRequest, &page{Title: "Login", Notices: n.items})
		return
	}

	sess := s.session(r)
	sess.Values[tokenKey] = token
	addFlash(sess, []Notice{{Kind: "success", Text: "Logged in"}})
	s.saveSession(w, r, sess)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	sess.Options.MaxAge = -1
	s.saveSession(w, r, sess)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
