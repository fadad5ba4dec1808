package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskpad/taskpad-go/internal/middleware"
	"github.com/taskpad/taskpad-go/internal/model"
	"github.com/taskpad/taskpad-go/internal/repository"
	"github.com/taskpad/taskpad-go/internal/service"
)

const testSecret = "test-secret"

type memUserStore struct {
	byEmail map[string]*model.User
}

func (s *memUserStore) Create(ctx context.Context, user *model.User) error {
	if _, exists := s.byEmail[user.Email]; exists {
		return repository.ErrDuplicateEmail
	}
	now := time.Now().UTC()
	user.ID = primitive.NewObjectID()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.byEmail[user.Email] = user
	return nil
}

func (s *memUserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (s *memUserStore) GetByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	for _, user := range s.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *memUserStore) ListAll(ctx context.Context) ([]model.User, error) {
	users := make([]model.User, 0, len(s.byEmail))
	for _, u := range s.byEmail {
		users = append(users, *u)
	}
	return users, nil
}

type memTaskStore struct {
	tasks map[primitive.ObjectID]*model.Task
}

func (s *memTaskStore) Create(ctx context.Context, task *model.Task) error {
	now := time.Now().UTC()
	task.ID = primitive.NewObjectID()
	task.CreatedAt = now
	task.UpdatedAt = now
	copied := *task
	s.tasks[task.ID] = &copied
	return nil
}

func (s *memTaskStore) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]model.Task, error) {
	var out []model.Task
	for _, task := range s.tasks {
		if task.UserID == ownerID {
			out = append(out, *task)
		}
	}
	return out, nil
}

func (s *memTaskStore) lookup(id, ownerID primitive.ObjectID) (*model.Task, error) {
	task, ok := s.tasks[id]
	if !ok || task.UserID != ownerID {
		return nil, repository.ErrTaskNotFound
	}
	return task, nil
}

func (s *memTaskStore) GetByIDForOwner(ctx context.Context, id, ownerID primitive.ObjectID) (*model.Task, error) {
	task, err := s.lookup(id, ownerID)
	if err != nil {
		return nil, err
	}
	copied := *task
	return &copied, nil
}

func (s *memTaskStore) UpdateByIDForOwner(ctx context.Context, id, ownerID primitive.ObjectID, patch model.TaskPatch) (*model.Task, error) {
	task, err := s.lookup(id, ownerID)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Completed != nil {
		task.Completed = *patch.Completed
	}
	if patch.DueDate != nil {
		task.DueDate = patch.DueDate
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.Category != nil {
		task.Category = *patch.Category
	}
	task.UpdatedAt = time.Now().UTC()
	copied := *task
	return &copied, nil
}

func (s *memTaskStore) DeleteByIDForOwner(ctx context.Context, id, ownerID primitive.ObjectID) (*model.Task, error) {
	task, err := s.lookup(id, ownerID)
	if err != nil {
		return nil, err
	}
	delete(s.tasks, id)
	return task, nil
}

// newTestRouter wires the real handlers, services and middleware over
// in-memory stores, mirroring the wiring in cmd/api.
func newTestRouter() *chi.Mux {
	users := &memUserStore{byEmail: make(map[string]*model.User)}
	tasks := &memTaskStore{tasks: make(map[primitive.ObjectID]*model.Task)}

	authService := service.NewAuthService(users, testSecret, time.Hour)
	userHandler := NewUserHandler(authService)

	taskService := service.NewTaskService(tasks)
	taskHandler := NewTaskHandler(taskService)

	r := chi.NewRouter()
	r.Route("/users", func(r chi.Router) {
		r.Post("/", userHandler.HandleRegister)
		r.Post("/login", userHandler.HandleLogin)
		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(testSecret))
			r.Get("/", userHandler.HandleList)
		})
	})
	r.Route("/tasks", func(r chi.Router) {
		r.Use(middleware.JWTAuth(testSecret))
		r.Post("/", taskHandler.HandleCreate)
		r.Get("/", taskHandler.HandleList)
		r.Get("/id/{taskID}", taskHandler.HandleGet)
		r.Put("/id/{taskID}", taskHandler.HandleUpdate)
		r.Delete("/id/{taskID}", taskHandler.HandleDelete)
	})
	return r
}

func doJSON(t *testing.T, router *chi.Mux, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func registerAndLogin(t *testing.T, router *chi.Mux, name, email, password string) (string, string) {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/users/", "", map[string]string{
		"name": name, "email": email, "password": password,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want %d (body: %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/users/login", "", map[string]string{
		"email": email, "password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp model.AuthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding login response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("login returned empty token")
	}
	return resp.Token, resp.User.ID
}

func TestRegisterLoginTaskLifecycle(t *testing.T) {
	router := newTestRouter()
	token, _ := registerAndLogin(t, router, "Ana", "ana@x.com", "secret1")

	// Fresh account has no tasks.
	rec := doJSON(t, router, http.MethodGet, "/tasks/", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want %d", rec.Code, http.StatusOK)
	}
	var listed []model.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decoding task list: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("expected empty task list, got %d", len(listed))
	}

	// Create with only the required fields; the rest defaults.
	rec = doJSON(t, router, http.MethodPost, "/tasks/", token, map[string]string{
		"title": "Buy milk", "description": "2%",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want %d (body: %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var created model.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding created task: %v", err)
	}
	if created.Status != model.StatusPending {
		t.Errorf("created status = %q, want %q", created.Status, model.StatusPending)
	}
	if created.Completed {
		t.Error("created completed = true, want false")
	}

	taskPath := "/tasks/id/" + created.ID.Hex()

	// Update and read back.
	rec = doJSON(t, router, http.MethodPut, taskPath, token, map[string]any{
		"completed": true, "status": "completed",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, taskPath, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want %d", rec.Code, http.StatusOK)
	}
	var fetched model.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("decoding fetched task: %v", err)
	}
	if !fetched.Completed || fetched.Status != model.StatusCompleted {
		t.Errorf("fetched task not updated: %+v", fetched)
	}

	// Delete and confirm gone.
	rec = doJSON(t, router, http.MethodDelete, taskPath, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want %d", rec.Code, http.StatusOK)
	}
	rec = doJSON(t, router, http.MethodGet, taskPath, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestTasksRequireToken(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/tasks/", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("list without token status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestTaskInvisibleToOtherUser(t *testing.T) {
	router := newTestRouter()
	tokenA, _ := registerAndLogin(t, router, "Ana", "ana@x.com", "secret1")
	tokenB, _ := registerAndLogin(t, router, "Ben", "ben@x.com", "secret2")

	rec := doJSON(t, router, http.MethodPost, "/tasks/", tokenA, map[string]string{
		"title": "Buy milk", "description": "2%",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want %d", rec.Code, http.StatusCreated)
	}
	var created model.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding created task: %v", err)
	}
	taskPath := "/tasks/id/" + created.ID.Hex()

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec := doJSON(t, router, method, taskPath, tokenB, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s with other user's token status = %d, want %d", method, rec.Code, http.StatusNotFound)
		}
	}

	// The task is still there for its owner.
	rec = doJSON(t, router, http.MethodGet, taskPath, tokenA, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("owner get status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRegisterValidationAndConflict(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/users/", "", map[string]string{
		"name": "Ana", "email": "ana@x.com",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("register without password status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	registerAndLogin(t, router, "Ana", "ana@x.com", "secret1")

	rec = doJSON(t, router, http.MethodPost, "/users/", "", map[string]string{
		"name": "Ana Again", "email": "ana@x.com", "password": "other",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	router := newTestRouter()
	registerAndLogin(t, router, "Ana", "ana@x.com", "secret1")

	rec := doJSON(t, router, http.MethodPost, "/users/login", "", map[string]string{
		"email": "ana@x.com", "password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("login wrong password status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	// Unknown email is the same failure, existence is not revealed.
	rec2 := doJSON(t, router, http.MethodPost, "/users/login", "", map[string]string{
		"email": "ghost@x.com", "password": "wrong",
	})
	if rec2.Code != http.StatusUnauthorized {
		t.Errorf("login unknown email status = %d, want %d", rec2.Code, http.StatusUnauthorized)
	}
	if rec.Body.String() != rec2.Body.String() {
		t.Error("wrong-password and unknown-email responses must match")
	}
}

func TestCreateTaskIgnoresCallerOwner(t *testing.T) {
	router := newTestRouter()
	token, userID := registerAndLogin(t, router, "Ana", "ana@x.com", "secret1")

	// A caller-supplied user_id must be ignored in favor of the token identity.
	rec := doJSON(t, router, http.MethodPost, "/tasks/", token, map[string]any{
		"title": "Buy milk", "description": "2%", "user_id": primitive.NewObjectID().Hex(),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want %d", rec.Code, http.StatusCreated)
	}
	var created model.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding created task: %v", err)
	}
	if created.UserID.Hex() != userID {
		t.Errorf("task owner = %q, want authenticated user %q", created.UserID.Hex(), userID)
	}
}

func TestListUsersRequiresToken(t *testing.T) {
	router := newTestRouter()
	token, _ := registerAndLogin(t, router, "Ana", "ana@x.com", "secret1")

	rec := doJSON(t, router, http.MethodGet, "/users/", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("list users without token status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	rec = doJSON(t, router, http.MethodGet, "/users/", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list users status = %d, want %d", rec.Code, http.StatusOK)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("argon2id")) {
		t.Error("user listing leaked a password hash")
	}
}

func TestUnknownTaskIs404(t *testing.T) {
	router := newTestRouter()
	token, _ := registerAndLogin(t, router, "Ana", "ana@x.com", "secret1")

	for _, path := range []string{
		fmt.Sprintf("/tasks/id/%s", primitive.NewObjectID().Hex()),
		"/tasks/id/not-a-valid-id",
	} {
		rec := doJSON(t, router, http.MethodGet, path, token, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("get %s status = %d, want %d", path, rec.Code, http.StatusNotFound)
		}
	}
}
