package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oksasatya/go-task-manager/internal/application"
	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	repo "github.com/oksasatya/go-task-manager/internal/domain/repository"
	handlers "github.com/oksasatya/go-task-manager/internal/interface/http"
	"github.com/oksasatya/go-task-manager/internal/router/modules"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
	"github.com/oksasatya/go-task-manager/pkg/validation"
)

// in-memory repositories honoring the repository contracts

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func (r *memUserRepo) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repo.ErrDuplicateEmail
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *memUserRepo) Update(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return repo.ErrNotFound
	}
	for id, other := range r.users {
		if id != u.ID && strings.EqualFold(other.Email, u.Email) {
			return repo.ErrDuplicateEmail
		}
	}
	u.UpdatedAt = time.Now()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

type memTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]*entity.Task
	seq   int
}

func (r *memTaskRepo) Create(_ context.Context, t *entity.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	t.ID = uuid.NewString()
	t.CreatedAt = time.Unix(0, 0).Add(time.Duration(r.seq) * time.Second)
	t.UpdatedAt = t.CreatedAt
	cp := *t
	r.tasks[t.ID] = &cp
	return nil
}

func (r *memTaskRepo) GetByID(_ context.Context, id string) (*entity.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *memTaskRepo) Exists(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tasks[id]
	return ok, nil
}

func (r *memTaskRepo) UpdateOwned(_ context.Context, id, ownerID string, upd repo.TaskUpdate) (*entity.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok || t.UserID != ownerID {
		return nil, repo.ErrNotFound
	}
	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	t.UpdatedAt = time.Now()
	cp := *t
	return &cp, nil
}

func (r *memTaskRepo) DeleteOwned(_ context.Context, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok || t.UserID != ownerID {
		return repo.ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *memTaskRepo) List(_ context.Context, f repo.TaskFilter) ([]entity.Task, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]entity.Task, 0)
	search := strings.ToLower(f.Search)
	for _, t := range r.tasks {
		if t.UserID != f.OwnerID {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		matched = append(matched, *t)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if f.Offset >= len(matched) {
		return []entity.Task{}, total, nil
	}
	end := f.Offset + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[f.Offset:end], total, nil
}

type testAPI struct {
	engine *gin.Engine
	tasks  *memTaskRepo
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	userRepo := &memUserRepo{users: map[string]*entity.User{}}
	taskRepo := &memTaskRepo{tasks: map[string]*entity.Task{}}
	jwt := helpers.NewJWTManager("test-secret", time.Hour)

	userSvc := application.NewUserService(userRepo, jwt, nil)
	taskSvc := application.NewTaskService(taskRepo, nil)

	r := gin.New()
	api := r.Group("/api")
	modules.NewAuthModule(handlers.NewAuthHandler(userSvc, nil), jwt).Register(api)
	modules.NewProfileModule(handlers.NewProfileHandler(userSvc, nil), jwt).Register(api)
	modules.NewTaskModule(handlers.NewTaskHandler(taskSvc, nil), jwt).Register(api)

	return &testAPI{engine: r, tasks: taskRepo}
}

type envelope struct {
	Success    bool                     `json:"success"`
	Message    string                   `json:"message"`
	Token      string                   `json:"token"`
	User       map[string]interface{}   `json:"user"`
	Data       json.RawMessage          `json:"data"`
	Errors     []map[string]interface{} `json:"errors"`
	Pagination *struct {
		Page  int   `json:"page"`
		Limit int   `json:"limit"`
		Total int64 `json:"total"`
		Pages int   `json:"pages"`
	} `json:"pagination"`
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("unmarshal envelope: %v; body=%s", err, w.Body.String())
		}
	}
	return w.Code, env
}

func (a *testAPI) register(t *testing.T, name, email, password string) (string, string) {
	t.Helper()
	code, env := a.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": password,
	})
	if code != http.StatusCreated {
		t.Fatalf("register %s: status = %d, message = %q", email, code, env.Message)
	}
	uid, _ := env.User["id"].(string)
	return env.Token, uid
}

type taskBody struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	User        string `json:"user"`
}

func decodeTask(t *testing.T, raw json.RawMessage) taskBody {
	t.Helper()
	var tb taskBody
	if err := json.Unmarshal(raw, &tb); err != nil {
		t.Fatalf("unmarshal task: %v; raw=%s", err, string(raw))
	}
	return tb
}

func decodeTasks(t *testing.T, raw json.RawMessage) []taskBody {
	t.Helper()
	var tbs []taskBody
	if err := json.Unmarshal(raw, &tbs); err != nil {
		t.Fatalf("unmarshal tasks: %v; raw=%s", err, string(raw))
	}
	return tbs
}

func TestRegisterLoginFlow(t *testing.T) {
	api := newTestAPI(t)

	token, uid := api.register(t, "Ann", "ann@x.com", "secret1")
	if token == "" || uid == "" {
		t.Fatalf("register returned token=%q uid=%q", token, uid)
	}

	// duplicate email, regardless of case
	code, env := api.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Imposter", "email": "ANN@x.com", "password": "secret2",
	})
	if code != http.StatusBadRequest {
		t.Fatalf("duplicate register: status = %d", code)
	}
	if env.Message != "User already exists" {
		t.Fatalf("duplicate register message = %q", env.Message)
	}

	code, env = api.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ann@x.com", "password": "secret1",
	})
	if code != http.StatusOK || env.Token == "" {
		t.Fatalf("login: status = %d token = %q", code, env.Token)
	}

	code, env = api.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ann@x.com", "password": "wrong-password",
	})
	if code != http.StatusUnauthorized {
		t.Fatalf("bad login: status = %d", code)
	}
	if env.Message != "Invalid credentials" {
		t.Fatalf("bad login message = %q", env.Message)
	}
}

func TestRegisterValidation(t *testing.T) {
	api := newTestAPI(t)

	code, env := api.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "", "email": "not-an-email", "password": "123",
	})
	if code != http.StatusBadRequest {
		t.Fatalf("status = %d", code)
	}
	if env.Success {
		t.Fatal("success = true on validation failure")
	}
	if len(env.Errors) == 0 {
		t.Fatal("expected field-level errors")
	}
}

func TestAuthMe(t *testing.T) {
	api := newTestAPI(t)
	token, uid := api.register(t, "Ann", "ann@x.com", "secret1")

	code, env := api.do(t, http.MethodGet, "/api/auth/me", token, nil)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	var me struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(env.Data, &me); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if me.ID != uid || me.Email != "ann@x.com" {
		t.Fatalf("me = %+v", me)
	}
}

func TestProfileGetAndUpdate(t *testing.T) {
	api := newTestAPI(t)
	token, uid := api.register(t, "Ann", "ann@x.com", "secret1")

	code, env := api.do(t, http.MethodGet, "/api/profile", token, nil)
	if code != http.StatusOK {
		t.Fatalf("get profile: status = %d", code)
	}
	var profile struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Email     string    `json:"email"`
		CreatedAt time.Time `json:"createdAt"`
	}
	if err := json.Unmarshal(env.Data, &profile); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if profile.ID != uid || profile.CreatedAt.IsZero() {
		t.Fatalf("profile = %+v", profile)
	}

	code, env = api.do(t, http.MethodPut, "/api/profile", token, map[string]string{
		"name": "Annie", "email": "annie@x.com",
	})
	if code != http.StatusOK {
		t.Fatalf("update profile: status = %d message = %q", code, env.Message)
	}
	if err := json.Unmarshal(env.Data, &profile); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if profile.Name != "Annie" || profile.Email != "annie@x.com" {
		t.Fatalf("profile after update = %+v", profile)
	}

	// validation re-runs in full
	code, _ = api.do(t, http.MethodPut, "/api/profile", token, map[string]string{
		"name": "", "email": "annie@x.com",
	})
	if code != http.StatusBadRequest {
		t.Fatalf("invalid update: status = %d", code)
	}
}

func TestProtectedEndpointsRequireToken(t *testing.T) {
	api := newTestAPI(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/auth/me"},
		{http.MethodGet, "/api/profile"},
		{http.MethodGet, "/api/tasks"},
		{http.MethodPost, "/api/tasks"},
		{http.MethodGet, "/api/tasks/" + uuid.NewString()},
		{http.MethodPut, "/api/tasks/" + uuid.NewString()},
		{http.MethodDelete, "/api/tasks/" + uuid.NewString()},
	}
	for _, p := range paths {
		code, _ := api.do(t, p.method, p.path, "", nil)
		if code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want 401", p.method, p.path, code)
		}
	}
	if len(api.tasks.tasks) != 0 {
		t.Fatal("unauthenticated request mutated the store")
	}
}

func TestTaskCRUD(t *testing.T) {
	api := newTestAPI(t)
	token, uid := api.register(t, "Ann", "ann@x.com", "secret1")

	code, env := api.do(t, http.MethodPost, "/api/tasks", token, map[string]string{
		"title": "Buy milk", "description": "2% milk",
	})
	if code != http.StatusCreated {
		t.Fatalf("create: status = %d message = %q", code, env.Message)
	}
	created := decodeTask(t, env.Data)
	if created.Status != "pending" {
		t.Fatalf("status = %q, want default pending", created.Status)
	}
	if created.User != uid {
		t.Fatalf("owner = %q, want %q", created.User, uid)
	}

	code, env = api.do(t, http.MethodGet, "/api/tasks/"+created.ID, token, nil)
	if code != http.StatusOK {
		t.Fatalf("get: status = %d", code)
	}

	code, env = api.do(t, http.MethodPut, "/api/tasks/"+created.ID, token, map[string]string{
		"title": "Buy milk", "description": "2% milk", "status": "completed",
	})
	if code != http.StatusOK {
		t.Fatalf("update: status = %d message = %q", code, env.Message)
	}
	if got := decodeTask(t, env.Data); got.Status != "completed" {
		t.Fatalf("status after update = %q", got.Status)
	}

	code, _ = api.do(t, http.MethodDelete, "/api/tasks/"+created.ID, token, nil)
	if code != http.StatusOK {
		t.Fatalf("delete: status = %d", code)
	}

	code, env = api.do(t, http.MethodDelete, "/api/tasks/"+created.ID, token, nil)
	if code != http.StatusNotFound {
		t.Fatalf("second delete: status = %d, want 404", code)
	}
	if env.Message != "Task not found" {
		t.Fatalf("second delete message = %q", env.Message)
	}
}

func TestTaskCreateValidation(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register(t, "Ann", "ann@x.com", "secret1")

	code, env := api.do(t, http.MethodPost, "/api/tasks", token, map[string]string{
		"title": "", "description": "",
	})
	if code != http.StatusBadRequest || len(env.Errors) == 0 {
		t.Fatalf("status = %d errors = %+v", code, env.Errors)
	}

	code, _ = api.do(t, http.MethodPost, "/api/tasks", token, map[string]string{
		"title": "x", "description": "y", "status": "archived",
	})
	if code != http.StatusBadRequest {
		t.Fatalf("bad status: status = %d", code)
	}
}

func TestTaskOwnershipIsolation(t *testing.T) {
	api := newTestAPI(t)
	annToken, _ := api.register(t, "Ann", "ann@x.com", "secret1")
	bobToken, _ := api.register(t, "Bob", "bob@x.com", "secret1")

	code, env := api.do(t, http.MethodPost, "/api/tasks", annToken, map[string]string{
		"title": "Buy milk", "description": "2% milk",
	})
	if code != http.StatusCreated {
		t.Fatalf("create: status = %d", code)
	}
	task := decodeTask(t, env.Data)

	// Bob sees nothing in his list
	code, env = api.do(t, http.MethodGet, "/api/tasks", bobToken, nil)
	if code != http.StatusOK {
		t.Fatalf("bob list: status = %d", code)
	}
	if got := decodeTasks(t, env.Data); len(got) != 0 {
		t.Fatalf("bob sees ann's tasks: %+v", got)
	}

	// existing but foreign task is 401, not 404
	for _, attempt := range []struct {
		method string
		body   interface{}
	}{
		{http.MethodGet, nil},
		{http.MethodPut, map[string]string{"title": "x", "description": "y"}},
		{http.MethodDelete, nil},
	} {
		code, env = api.do(t, attempt.method, "/api/tasks/"+task.ID, bobToken, attempt.body)
		if code != http.StatusUnauthorized {
			t.Errorf("%s foreign task: status = %d, want 401", attempt.method, code)
		}
		if env.Message != "Not authorized" {
			t.Errorf("%s foreign task message = %q", attempt.method, env.Message)
		}
	}

	// a missing task is 404 even for its non-owner
	code, _ = api.do(t, http.MethodGet, "/api/tasks/"+uuid.NewString(), bobToken, nil)
	if code != http.StatusNotFound {
		t.Fatalf("missing task: status = %d, want 404", code)
	}

	// nothing was mutated
	code, env = api.do(t, http.MethodGet, "/api/tasks/"+task.ID, annToken, nil)
	if code != http.StatusOK {
		t.Fatalf("ann get after attacks: status = %d", code)
	}
	if got := decodeTask(t, env.Data); got.Title != "Buy milk" {
		t.Fatalf("task mutated: %+v", got)
	}
}

func TestTaskListSearchFilterPagination(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register(t, "Ann", "ann@x.com", "secret1")

	seed := []map[string]string{
		{"title": "Groceries", "description": "Pick up some Milk today"},
		{"title": "Laundry", "description": "wash and fold", "status": "completed"},
		{"title": "Report", "description": "quarterly numbers"},
	}
	for _, b := range seed {
		if code, env := api.do(t, http.MethodPost, "/api/tasks", token, b); code != http.StatusCreated {
			t.Fatalf("seed %v: status = %d message = %q", b, code, env.Message)
		}
	}

	// case-insensitive description search
	code, env := api.do(t, http.MethodGet, "/api/tasks?search=milk", token, nil)
	if code != http.StatusOK {
		t.Fatalf("search: status = %d", code)
	}
	if got := decodeTasks(t, env.Data); len(got) != 1 || got[0].Title != "Groceries" {
		t.Fatalf("search result: %+v", got)
	}

	// status filter
	code, env = api.do(t, http.MethodGet, "/api/tasks?status=completed", token, nil)
	if code != http.StatusOK {
		t.Fatalf("filter: status = %d", code)
	}
	if got := decodeTasks(t, env.Data); len(got) != 1 || got[0].Title != "Laundry" {
		t.Fatalf("filter result: %+v", got)
	}

	// page 2 of limit 1 over 3 tasks
	code, env = api.do(t, http.MethodGet, "/api/tasks?page=2&limit=1", token, nil)
	if code != http.StatusOK {
		t.Fatalf("paged list: status = %d", code)
	}
	if got := decodeTasks(t, env.Data); len(got) != 1 {
		t.Fatalf("page item count = %d", len(got))
	}
	p := env.Pagination
	if p == nil || p.Page != 2 || p.Limit != 1 || p.Total != 3 || p.Pages != 3 {
		t.Fatalf("pagination = %+v", p)
	}

	// non-positive window values are a validation failure
	for _, q := range []string{"page=0", "limit=0", "page=-1", "limit=-2", "page=abc"} {
		code, _ = api.do(t, http.MethodGet, "/api/tasks?"+q, token, nil)
		if code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, code)
		}
	}
}
