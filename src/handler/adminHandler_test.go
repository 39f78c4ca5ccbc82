package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tradeadmin/src/model"
	"tradeadmin/src/repository"
)

type fakeAdminStore struct {
	users   map[uint]*model.User
	updated map[uint]map[string]interface{}
}

func newFakeAdminStore(users ...*model.User) *fakeAdminStore {
	s := &fakeAdminStore{users: map[uint]*model.User{}, updated: map[uint]map[string]interface{}{}}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeAdminStore) FindUserByID(_ context.Context, id uint) (*model.User, error) {
	if u, ok := s.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeAdminStore) List(_ context.Context, opts repository.UserSearchOptions) ([]model.User, int64, error) {
	var out []model.User
	for _, u := range s.users {
		if opts.Status != nil && u.Status != *opts.Status {
			continue
		}
		if opts.Role != nil && u.Role != *opts.Role {
			continue
		}
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (s *fakeAdminStore) UpdateFields(_ context.Context, id uint, fields map[string]interface{}) error {
	s.updated[id] = fields
	return nil
}

func (s *fakeAdminStore) CountAdmins(_ context.Context) (int64, error) {
	var count int64
	for _, u := range s.users {
		if u.Role == model.RoleAdmin && u.Status == model.StatusActive {
			count++
		}
	}
	return count, nil
}

func adminFixture(id uint, role model.UserRole, status model.UserStatus) *model.User {
	u := &model.User{Username: "user", Email: "user@example.com", Role: role, Status: status, APIKey: "enc", SecretKey: "enc"}
	u.ID = id
	return u
}

func TestListUsersHandlerSanitizes(t *testing.T) {
	store := newFakeAdminStore(adminFixture(1, model.RoleAdmin, model.StatusActive))
	handler := ListUsersHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "enc")
	assert.Contains(t, rec.Body.String(), `"has_api_key":true`)
}

func TestApproveUserHandler(t *testing.T) {
	store := newFakeAdminStore(adminFixture(2, model.RoleUser, model.StatusPending))

	router := chi.NewRouter()
	router.Post("/api/admin/users/{id}/approve", ApproveUserHandler(store))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/users/2/approve", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.StatusActive, store.updated[2]["status"])
}

func TestApproveUserHandlerAlreadyActive(t *testing.T) {
	store := newFakeAdminStore(adminFixture(2, model.RoleUser, model.StatusActive))

	router := chi.NewRouter()
	router.Post("/api/admin/users/{id}/approve", ApproveUserHandler(store))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/users/2/approve", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateUserStatusHandlerProtectsLastAdmin(t *testing.T) {
	store := newFakeAdminStore(adminFixture(1, model.RoleAdmin, model.StatusActive))

	router := chi.NewRouter()
	router.Put("/api/admin/users/{id}/status", UpdateUserStatusHandler(store))

	req := authedRequest(t, http.MethodPut, "/api/admin/users/1/status", map[string]string{"status": "disabled"}, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NotContains(t, store.updated, uint(1))
}

func TestUpdateUserStatusHandlerDisablesExtraAdmin(t *testing.T) {
	first := adminFixture(1, model.RoleAdmin, model.StatusActive)
	second := adminFixture(2, model.RoleAdmin, model.StatusActive)
	store := newFakeAdminStore(first, second)

	router := chi.NewRouter()
	router.Put("/api/admin/users/{id}/status", UpdateUserStatusHandler(store))

	req := authedRequest(t, http.MethodPut, "/api/admin/users/2/status", map[string]string{"status": "disabled"}, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.StatusDisabled, store.updated[2]["status"])
}

func TestUpdateUserRoleHandlerProtectsLastAdmin(t *testing.T) {
	store := newFakeAdminStore(adminFixture(1, model.RoleAdmin, model.StatusActive))

	router := chi.NewRouter()
	router.Put("/api/admin/users/{id}/role", UpdateUserRoleHandler(store))

	req := authedRequest(t, http.MethodPut, "/api/admin/users/1/role", map[string]string{"role": "user"}, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateUserRoleHandlerPromotes(t *testing.T) {
	store := newFakeAdminStore(
		adminFixture(1, model.RoleAdmin, model.StatusActive),
		adminFixture(2, model.RoleUser, model.StatusActive),
	)

	router := chi.NewRouter()
	router.Put("/api/admin/users/{id}/role", UpdateUserRoleHandler(store))

	req := authedRequest(t, http.MethodPut, "/api/admin/users/2/role", map[string]string{"role": "admin"}, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.RoleAdmin, store.updated[2]["role"])
}
