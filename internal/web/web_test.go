package web

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/hiroki-koketsu/go-task-manager/internal/auth"
	"github.com/hiroki-koketsu/go-task-manager/internal/handler"
	"github.com/hiroki-koketsu/go-task-manager/internal/model"
	"github.com/hiroki-koketsu/go-task-manager/internal/repository"
	"github.com/hiroki-koketsu/go-task-manager/internal/service"
	"github.com/hiroki-koketsu/go-task-manager/internal/telemetry"
)

const testSessionKey = "test-session-key"

type testEnv struct {
	ui     http.Handler
	store  *repository.MemoryStore
	tokens *auth.Manager
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repository.NewMemoryStore()
	tokens := auth.NewManager("test-secret", "test", time.Hour)

	metrics, err := telemetry.NewMetrics(noop.NewMeterProvider().Meter("test"), store.Count)
	require.NoError(t, err)
	h := handler.NewTaskHandler(service.NewTaskService(store, logger), logger, metrics)
	api := httptest.NewServer(handler.NewRouter(h, tokens, logger, 5*time.Second))
	t.Cleanup(api.Close)

	srv, err := NewServer(api.URL+"/api", testSessionKey, api.Client(), logger)
	require.NoError(t, err)
	return &testEnv{ui: srv.Routes(), store: store, tokens: tokens}
}

// browser keeps cookies between requests like a real one would.
type browser struct {
	t       *testing.T
	env     *testEnv
	cookies map[string]*http.Cookie
}

func (e *testEnv) browser(t *testing.T, user string) *browser {
	b := &browser{t: t, env: e, cookies: map[string]*http.Cookie{}}
	if user != "" {
		token, err := e.tokens.Issue(user)
		require.NoError(t, err)
		b.login(token)
	}
	return b
}

func (b *browser) login(token string) {
	b.t.Helper()
	rec := b.post("/login", url.Values{"token": {token}})
	require.Equal(b.t, http.StatusSeeOther, rec.Code)
	require.Contains(b.t, b.cookies, sessionName)
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.env.ui.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func taskForm(title, description, status, dueDate, priority string) url.Values {
	return url.Values{
		"title":       {title},
		"description": {description},
		"status":      {status},
		"dueDate":     {dueDate},
		"priority":    {priority},
	}
}

func (e *testEnv) tasksOf(t *testing.T, owner string) []*model.Task {
	t.Helper()
	tasks, err := e.store.FindByOwner(context.Background(), owner)
	require.NoError(t, err)
	return tasks
}

func TestList_LoggedOut(t *testing.T) {
	env := setupEnv(t)

	rec := env.browser(t, "").get("/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please log in to see your tasks.")
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestList_Empty(t *testing.T) {
	env := setupEnv(t)

	rec := env.browser(t, "alice").get("/")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "No tasks found")
	assert.Contains(t, body, "+ Add new task")
}

func TestList_ExpiredSession(t *testing.T) {
	env := setupEnv(t)
	b := env.browser(t, "")
	b.login("garbage")

	rec := b.get("/")

	assert.Contains(t, rec.Body.String(), "Please log in")
	assert.Contains(t, rec.Body.String(), "Unauthorized")

	rec = b.get("/tasks/add")
	assert.Equal(t, http.StatusSeeOther, rec.Code, "the rejected token is dropped from the session")
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestSession_TamperedCookie(t *testing.T) {
	env := setupEnv(t)
	b := env.browser(t, "alice")
	c := b.cookies[sessionName]
	b.cookies[sessionName] = &http.Cookie{Name: c.Name, Value: c.Value[:len(c.Value)-4] + "AAAA"}

	rec := b.get("/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please log in to see your tasks.")
}

func TestCreateFlow(t *testing.T) {
	env := setupEnv(t)
	b := env.browser(t, "alice")

	rec := b.get("/tasks/add")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Add New Task")
	assert.Contains(t, rec.Body.String(), `<option value="Pending" selected>`)
	assert.Contains(t, rec.Body.String(), `<option value="Low" selected>`)

	rec = b.post("/tasks/add", taskForm("", " ", "Pending", "", "Low"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Title is required")
	assert.Contains(t, rec.Body.String(), "Description is required")
	assert.Empty(t, env.tasksOf(t, "alice"), "invalid forms never reach the API")

	rec = b.post("/tasks/add", taskForm("Buy milk", "2%", "Pending", "", "Low"))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = b.get("/")
	body := rec.Body.String()
	assert.Contains(t, body, "Task created successfully..")
	assert.Contains(t, body, "Your tasks (1)")
	assert.Contains(t, body, "Title: Buy milk")
	assert.Contains(t, body, "Not set")
	assert.Contains(t, body, `<span class="text-red-600 font-medium">Low</span>`)

	// The flash is shown once.
	assert.NotContains(t, b.get("/").Body.String(), "Task created successfully..")

	tasks := env.tasksOf(t, "alice")
	require.Len(t, tasks, 1)
	assert.Equal(t, model.StatusPending, tasks[0].Status)
}

func TestEditFlow(t *testing.T) {
	env := setupEnv(t)
	b := env.browser(t, "alice")
	require.Equal(t, http.StatusSeeOther, b.post("/tasks/add", taskForm("Buy milk", "2%", "Pending", "2024-05-01", "Medium")).Code)
	task := env.tasksOf(t, "alice")[0]
	path := "/tasks/" + task.ID

	rec := b.get(path)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Edit Task")
	assert.Contains(t, body, `value="Buy milk"`)
	assert.Contains(t, body, `value="2024-05-01"`)
	assert.Contains(t, body, `<option value="Medium" selected>`)
	assert.Contains(t, body, "Reset")

	t.Run("reset restores fetched values", func(t *testing.T) {
		form := taskForm("Something else", "changed", "Completed", "", "High")
		form.Set("action", "reset")
		form.Set("initial_title", "Buy milk")
		form.Set("initial_description", "2%")
		form.Set("initial_status", "Pending")
		form.Set("initial_dueDate", "2024-05-01")
		form.Set("initial_priority", "Medium")

		rec := b.post(path, form)
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, `name="title" id="title" value="Buy milk"`)
		assert.NotContains(t, body, "Something else")
		assert.Equal(t, "Buy milk", env.tasksOf(t, "alice")[0].Title)
	})

	t.Run("save", func(t *testing.T) {
		rec := b.post(path, taskForm("Buy milk", "2%", "Completed", "", "Medium"))
		require.Equal(t, http.StatusSeeOther, rec.Code)

		got := env.tasksOf(t, "alice")[0]
		assert.Equal(t, model.StatusCompleted, got.Status)
		assert.Nil(t, got.DueDate, "clearing the date input clears the due date")

		body := b.get("/").Body.String()
		assert.Contains(t, body, "Task updated successfully..")
		assert.Contains(t, body, `<span class="text-green-600 font-medium">Completed</span>`)
	})
}

func TestEditForm_OtherUsersTask(t *testing.T) {
	env := setupEnv(t)
	require.Equal(t, http.StatusSeeOther, env.browser(t, "alice").post("/tasks/add", taskForm("Buy milk", "2%", "Pending", "", "Low")).Code)
	task := env.tasksOf(t, "alice")[0]

	mallory := env.browser(t, "mallory")
	rec := mallory.get("/tasks/" + task.ID)
	assert.Contains(t, rec.Body.String(), "No task found..")
	assert.NotContains(t, rec.Body.String(), `value="Buy milk"`)

	rec = mallory.post("/tasks/"+task.ID, taskForm("pwned", "pwned", "Pending", "", "Low"))
	assert.Equal(t, http.StatusOK, rec.Code, "failed saves stay on the form")
	assert.Contains(t, rec.Body.String(), "You can&#39;t update task of another user")
	assert.Equal(t, "Buy milk", env.tasksOf(t, "alice")[0].Title)
}

func TestDeleteFlow(t *testing.T) {
	env := setupEnv(t)
	alice := env.browser(t, "alice")
	require.Equal(t, http.StatusSeeOther, alice.post("/tasks/add", taskForm("Buy milk", "2%", "Pending", "", "Low")).Code)
	task := env.tasksOf(t, "alice")[0]

	mallory := env.browser(t, "mallory")
	rec := mallory.post("/tasks/"+task.ID+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, mallory.get("/").Body.String(), "You can&#39;t delete task of another user")
	assert.Len(t, env.tasksOf(t, "alice"), 1)

	rec = alice.post("/tasks/"+task.ID+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	body := alice.get("/").Body.String()
	assert.Contains(t, body, "Task deleted successfully..")
	assert.Contains(t, body, "No tasks found")
	assert.Empty(t, env.tasksOf(t, "alice"))
}

func TestLogin(t *testing.T) {
	env := setupEnv(t)
	b := env.browser(t, "")

	rec := b.post("/login", url.Values{"token": {""}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please paste a valid access token")

	token, err := env.tokens.Issue("alice")
	require.NoError(t, err)
	rec = b.post("/login", url.Values{"token": {"Bearer " + token}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Contains(t, b.cookies, sessionName)
	assert.NotContains(t, b.cookies[sessionName].Value, token, "the session cookie is encoded")
	assert.True(t, b.cookies[sessionName].HttpOnly)

	body := b.get("/").Body.String()
	assert.Contains(t, body, "Logged in")
	assert.Contains(t, body, "No tasks found")
	assert.NotContains(t, b.get("/").Body.String(), "Logged in", "the flash survives one redirect only")

	rec = b.post("/logout", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.NotContains(t, b.cookies, sessionName)
	assert.Equal(t, "/login", b.get("/tasks/add").Header().Get("Location"))
}

func TestRedirectsWhenLoggedOut(t *testing.T) {
	env := setupEnv(t)
	b := env.browser(t, "")

	for _, path := range []string{"/tasks/add", "/tasks/0123456789abcdef01234567"} {
		rec := b.get(path)
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, "/login", rec.Header().Get("Location"), path)
	}
}

func TestNewTaskRow(t *testing.T) {
	due := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	row := newTaskRow(2, &model.Task{ID: "x", Status: "pending"})
	assert.Equal(t, "Task #3", row.Title)
	assert.Equal(t, "No description provided", row.Description)
	assert.Equal(t, "Not set", row.DueDate)
	assert.Equal(t, "Not specified", row.Priority)
	assert.Equal(t, "text-red-600", row.StatusClass)
	assert.Equal(t, "text-gray-400", row.PriorityClass)

	row = newTaskRow(0, &model.Task{Title: "t", Description: "d", Status: "In Progress", Priority: "High", DueDate: &due})
	assert.Equal(t, "t", row.Title)
	assert.Equal(t, "May 1, 2024", row.DueDate)
	assert.Equal(t, "text-blue-600", row.StatusClass)
	assert.Equal(t, "text-green-600", row.PriorityClass)
}

func TestTaskBody(t *testing.T) {
	form := taskForm("  Buy milk ", "2%", "in progress", "", "high")
	f := formFromValues(form, "")

	create := taskBody(f, false)
	assert.Equal(t, "Buy milk", create["title"])
	assert.Equal(t, model.StatusInProgress, create["status"])
	assert.Equal(t, model.PriorityHigh, create["priority"])
	assert.NotContains(t, create, "dueDate")

	update := taskBody(f, true)
	assert.Contains(t, update, "dueDate")
	assert.Nil(t, update["dueDate"])
}

func TestRequestIDForwarded(t *testing.T) {
	var got string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(requestIDHeader)
		_, _ = io.WriteString(w, `{"tasks":[],"status":true,"msg":"ok"}`)
	}))
	t.Cleanup(api.Close)

	srv, err := NewServer(api.URL, testSessionKey, api.Client(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	b := &browser{t: t, env: &testEnv{ui: srv.Routes()}, cookies: map[string]*http.Cookie{}}
	b.login("t")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec := b.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-42", got)
}
