package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeadmin/src/model"
	"tradeadmin/src/repository"
	"tradeadmin/src/response"
)

type adminUserStore interface {
	FindUserByID(ctx context.Context, id uint) (*model.User, error)
	List(ctx context.Context, opts repository.UserSearchOptions) ([]model.User, int64, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	CountAdmins(ctx context.Context) (int64, error)
}

// ListUsersHandler returns all accounts, optionally filtered by status
// and role. Secrets are stripped before serialization.
func ListUsersHandler(users adminUserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, limit := pagination(r)
		opts := repository.UserSearchOptions{Page: page, Limit: limit}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status := model.UserStatus(raw)
			opts.Status = &status
		}
		if raw := r.URL.Query().Get("role"); raw != "" {
			role := model.UserRole(raw)
			opts.Role = &role
		}

		list, total, err := users.List(r.Context(), opts)
		if err != nil {
			logger.WithError(err).Error("failed to list users")
			response.Error(w, http.StatusInternalServerError, "unable to list users")
			return
		}

		for i := range list {
			list[i].Sanitize()
		}
		response.Page(w, list, total, page, limit)
	}
}

// ApproveUserHandler moves a pending account to active.
func ApproveUserHandler(users adminUserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			response.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		user, err := users.FindUserByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				response.Error(w, http.StatusNotFound, "user not found")
				return
			}
			logger.WithError(err).Error("failed to load user")
			response.Error(w, http.StatusInternalServerError, "unable to approve user")
			return
		}

		if user.Status != model.StatusPending {
			response.Error(w, http.StatusConflict, "user is not pending approval")
			return
		}

		if err := users.UpdateFields(r.Context(), id, map[string]interface{}{"status": model.StatusActive}); err != nil {
			logger.WithError(err).Error("failed to approve user")
			response.Error(w, http.StatusInternalServerError, "unable to approve user")
			return
		}

		logger.WithField("user_id", id).Info("user approved")
		user.Status = model.StatusActive
		user.Sanitize()
		response.OK(w, user)
	}
}

type userStatusPayload struct {
	Status string `json:"status"`
}

// UpdateUserStatusHandler sets an account's status. The last active
// admin cannot be disabled.
func UpdateUserStatusHandler(users adminUserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			response.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		var payload userStatusPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid payload")
			return
		}

		status := model.UserStatus(payload.Status)
		switch status {
		case model.StatusPending, model.StatusActive, model.StatusDisabled:
		default:
			response.Error(w, http.StatusBadRequest, "invalid status")
			return
		}

		user, err := users.FindUserByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				response.Error(w, http.StatusNotFound, "user not found")
				return
			}
			logger.WithError(err).Error("failed to load user")
			response.Error(w, http.StatusInternalServerError, "unable to update user status")
			return
		}

		if user.IsAdmin() && status != model.StatusActive {
			admins, err := users.CountAdmins(r.Context())
			if err != nil {
				logger.WithError(err).Error("failed to count admins")
				response.Error(w, http.StatusInternalServerError, "unable to update user status")
				return
			}
			if admins <= 1 {
				response.Error(w, http.StatusConflict, "cannot disable the last admin")
				return
			}
		}

		if err := users.UpdateFields(r.Context(), id, map[string]interface{}{"status": status}); err != nil {
			logger.WithError(err).Error("failed to update user status")
			response.Error(w, http.StatusInternalServerError, "unable to update user status")
			return
		}

		logger.WithFields(logger.Fields{
			"user_id": id,
			"status":  status,
		}).Info("user status updated")
		user.Status = status
		user.Sanitize()
		response.OK(w, user)
	}
}

type userRolePayload struct {
	Role string `json:"role"`
}

// UpdateUserRoleHandler changes an account's role. Demoting the last
// admin is rejected.
func UpdateUserRoleHandler(users adminUserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			response.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		var payload userRolePayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid payload")
			return
		}

		role := model.UserRole(payload.Role)
		if role != model.RoleAdmin && role != model.RoleUser {
			response.Error(w, http.StatusBadRequest, "invalid role")
			return
		}

		user, err := users.FindUserByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				response.Error(w, http.StatusNotFound, "user not found")
				return
			}
			logger.WithError(err).Error("failed to load user")
			response.Error(w, http.StatusInternalServerError, "unable to update user role")
			return
		}

		if user.IsAdmin() && role == model.RoleUser {
			admins, err := users.CountAdmins(r.Context())
			if err != nil {
				logger.WithError(err).Error("failed to count admins")
				response.Error(w, http.StatusInternalServerError, "unable to update user role")
				return
			}
			if admins <= 1 {
				response.Error(w, http.StatusConflict, "cannot demote the last admin")
				return
			}
		}

		if err := users.UpdateFields(r.Context(), id, map[string]interface{}{"role": role}); err != nil {
			logger.WithError(err).Error("failed to update user role")
			response.Error(w, http.StatusInternalServerError, "unable to update user role")
			return
		}

		logger.WithFields(logger.Fields{
			"user_id": id,
			"role":    role,
		}).Info("user role updated")
		user.Role = role
		user.Sanitize()
		response.OK(w, user)
	}
}

// DefaultAdminUserStore wires handlers to the production repository.
func DefaultAdminUserStore() adminUserStore {
	return repository.NewUserRepository()
}
