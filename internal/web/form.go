package web

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hiroki-koketsu/go-task-manager/internal/client"
	"github.com/hiroki-koketsu/go-task-manager/internal/model"
	"github.com/hiroki-koketsu/go-task-manager/internal/validation"
)

const (
	modeAdd    = "add"
	modeUpdate = "update"

	// Hidden inputs carrying the last fetched values, used by Reset.
	initialPrefix = "initial_"
)

type formView struct {
	page
	Mode       string
	Action     string
	Form       validation.TaskForm
	Initial    validation.TaskForm
	Errors     validation.FieldErrors
	Statuses   []string
	Priorities []string
}

func newFormView(id, token string) formView {
	v := formView{
		page:       page{Title: "Add Task", LoggedIn: token != ""},
		Mode:       modeAdd,
		Action:     "/tasks/add",
		Form:       defaultForm(),
		Statuses:   model.Statuses,
		Priorities: model.Priorities,
	}
	if id != "" {
		v.Title = "Update Task"
		v.Mode = modeUpdate
		v.Action = "/tasks/" + url.PathEscape(id)
	}
	v.Initial = v.Form
	return v
}

func defaultForm() validation.TaskForm {
	return validation.TaskForm{Status: model.StatusPending, Priority: model.PriorityLow}
}

func formFromTask(t *model.Task) validation.TaskForm {
	f := validation.TaskForm{
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
	}
	if s, ok := model.ParseStatus(t.Status); ok {
		f.Status = s
	}
	if t.DueDate != nil {
		f.DueDate = t.DueDate.UTC().Format(model.DateLayout)
	}
	return f
}

func formFromValues(v url.Values, prefix string) validation.TaskForm {
	return validation.TaskForm{
		Title:       v.Get(prefix + "title"),
		Description: v.Get(prefix + "description"),
		Status:      v.Get(prefix + "status"),
		DueDate:     v.Get(prefix + "dueDate"),
		Priority:    v.Get(prefix + "priority"),
	}
}

// taskBody builds the API payload for a validated form. An empty due date on
// update is sent as null so a previously set date is cleared.
func taskBody(f validation.TaskForm, update bool) map[string]any {
	status, _ := model.ParseStatus(f.Status)
	priority, _ := model.ParsePriority(f.Priority)
	body := map[string]any{
		"title":       strings.TrimSpace(f.Title),
		"description": strings.TrimSpace(f.Description),
		"status":      status,
		"priority":    priority,
	}
	d := strings.TrimSpace(f.DueDate)
	switch {
	case d != "":
		body["dueDate"] = d
	case update:
		body["dueDate"] = nil
	}
	return body
}

func (s *Server) newTaskForm(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	token := sessionToken(sess)
	if token == "" {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	view := newFormView("", token)
	view.Notices = takeFlash(sess)
	s.saveSession(w, r, sess)
	s.render(w, r, "form.html", http.StatusOK, &view)
}

func (s *Server) editTaskForm(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	token := sessionToken(sess)
	if token == "" {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	id := chi.URLParam(r, "id")
	view := newFormView(id, token)
	n := &notices{items: takeFlash(sess)}
	s.saveSession(w, r, sess)

	resp, err := s.api(n).Do(r.Context(), client.Request{
		URL:     "/tasks/" + url.PathEscape(id),
		Method:  http.MethodGet,
		Headers: s.headers(r, token),
	}, client.Quiet)
	if err != nil {
		s.logger.WarnContext(r.Context(), "failed to fetch task", slog.String("id", id), slog.Any("error", err))
	} else if resp.Task != nil {
		view.Form = formFromTask(resp.Task)
		view.Initial = view.Form
	}

	view.Notices = n.items
	s.render(w, r, "form.html", http.StatusOK, &view)
}

// submitTaskForm handles Save and Reset for both modes. Field errors and API
// failures keep the user on the form; success returns to the list.
func (s *Server) submitTaskForm(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	token := sessionToken(sess)
	if token == "" {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	view := newFormView(id, token)
	view.Form = formFromValues(r.PostForm, "")
	if view.Mode == modeUpdate {
		view.Initial = formFromValues(r.PostForm, initialPrefix)
	}

	if r.PostForm.Get("action") == "reset" {
		if view.Mode == modeUpdate {
			view.Form = view.Initial
		}
		s.render(w, r, "form.html", http.StatusOK, &view)
		return
	}

	if errs := validation.ValidateTaskForm(view.Form); len(errs) > 0 {
		view.Errors = errs
		s.render(w, r, "form.html", http.StatusUnprocessableEntity, &view)
		return
	}

	req := client.Request{
		URL:     "/tasks",
		Method:  http.MethodPost,
		Body:    taskBody(view.Form, view.Mode == modeUpdate),
		Headers: s.headers(r, token),
	}
	if view.Mode == modeUpdate {
		req.URL = "/tasks/" + url.PathEscape(id)
		req.Method = http.MethodPut
	}

	n := &notices{}
	if _, err := s.api(n).Do(r.Context(), req); err != nil {
		s.logger.WarnContext(r.Context(), "failed to save task", slog.String("mode", view.Mode), slog.Any("error", err))
		view.Notices = n.items
		s.render(w, r, "form.html", http.StatusOK, &view)
		return
	}

	addFlash(sess, n.items)
	s.saveSession(w, r, sess)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
