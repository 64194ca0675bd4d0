package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/hiroki-koketsu/go-task-manager/internal/client"
	"github.com/hiroki-koketsu/go-task-manager/internal/model"
)

type listView struct {
	page
	Tasks []taskRow
}

// taskRow is a task prepared for display.
type taskRow struct {
	ID            string
	Title         string
	Description   string
	Status        string
	StatusClass   string
	DueDate       string
	Priority      string
	PriorityClass string
}

func newTaskRow(i int, t *model.Task) taskRow {
	row := taskRow{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		Status:        t.Status,
		StatusClass:   statusClass(t.Status),
		DueDate:       "Not set",
		Priority:      t.Priority,
		PriorityClass: priorityClass(t.Priority),
	}
	if row.Title == "" {
		row.Title = fmt.Sprintf("Task #%d", i+1)
	}
	if row.Description == "" {
		row.Description = "No description provided"
	}
	if t.DueDate != nil {
		row.DueDate = t.DueDate.UTC().Format("Jan 2, 2006")
	}
	if row.Priority == "" {
		row.Priority = "Not specified"
	}
	return row
}

func statusClass(status string) string {
	s, _ := model.ParseStatus(status)
	switch s {
	case model.StatusCompleted:
		return "text-green-600"
	case model.StatusInProgress:
		return "text-blue-600"
	default:
		return "text-red-600"
	}
}

func priorityClass(priority string) string {
	switch priority {
	case model.PriorityHigh:
		return "text-green-600"
	case model.PriorityMedium:
		return "text-blue-600"
	case model.PriorityLow:
		return "text-red-600"
	default:
		return "text-gray-400"
	}
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := s.session(r)
	n := &notices{items: takeFlash(sess)}
	token := sessionToken(sess)
	view := listView{page: page{Title: "Tasks", LoggedIn: token != ""}}

	if token != "" {
		resp, err := s.api(n).Do(ctx, client.Request{
			URL:     "/tasks",
			Method:  http.MethodGet,
			Headers: s.headers(r, token),
		}, client.Quiet)
		switch {
		case err == nil:
			for i, t := range resp.Tasks {
				view.Tasks = append(view.Tasks, newTaskRow(i, t))
			}
		case isUnauthorized(err):
			delete(sess.Values, tokenKey)
			view.LoggedIn = false
		default:
			s.logger.WarnContext(ctx, "failed to fetch tasks", slog.Any("error", err))
		}
	}

	s.saveSession(w, r, sess)
	view.Notices = n.items
	s.render(w, r, "list.html", http.StatusOK, &view)
}

// deleteTask removes a task and sends the browser back to a freshly fetched
// list.
func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	token := sessionToken(sess)
	if token == "" {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	id := chi.URLParam(r, "id")
	n := &notices{}
	_, err := s.api(n).Do(r.Context(), client.Request{
		URL:     "/tasks/" + url.PathEscape(id),
		Method:  http.MethodDelete,
		Headers: s.headers(r, token),
	})
	if err != nil {
		s.logger.WarnContext(r.Context(), "failed to delete task", slog.String("id", id), slog.Any("error", err))
	}

	addFlash(sess, n.items)
	s.saveSession(w, r, sess)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func isUnauthorized(err error) bool {
	var apiErr *client.Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}
