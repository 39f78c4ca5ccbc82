package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeadmin/src/auth"
	"tradeadmin/src/model"
	"tradeadmin/src/repository"
	"tradeadmin/src/response"
	"tradeadmin/src/security"
	"tradeadmin/src/validate"
)

type userStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
}

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginHandler authenticates a user and issues a bearer token. Pending
// and disabled accounts are rejected with the reason, not a generic 401.
func LoginHandler(users userStore, issuer *auth.TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload loginPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid payload")
			return
		}

		user, err := users.FindByUsername(r.Context(), strings.TrimSpace(payload.Username))
		if err != nil {
			logger.WithField("username", payload.Username).Warn("login attempt for unknown user")
			response.Error(w, http.StatusUnauthorized, "invalid username or password")
			return
		}

		if err := user.CheckPassword(payload.Password); err != nil {
			logger.WithField("user_id", user.ID).Warn("login password mismatch")
			response.Error(w, http.StatusUnauthorized, "invalid username or password")
			return
		}

		switch user.Status {
		case model.StatusPending:
			response.Error(w, http.StatusForbidden, "account is pending approval")
			return
		case model.StatusDisabled:
			response.Error(w, http.StatusForbidden, "account is disabled")
			return
		}

		token, err := issuer.Issue(user)
		if err != nil {
			logger.WithError(err).Error("failed to issue token")
			response.Error(w, http.StatusInternalServerError, "unable to login")
			return
		}

		now := time.Now()
		if err := users.UpdateFields(r.Context(), user.ID, map[string]interface{}{"last_login_at": &now}); err != nil {
			logger.WithError(err).Warn("failed to record last login time")
		}
		user.LastLoginAt = &now

		response.OK(w, map[string]interface{}{
			"token": token,
			"user":  user.Sanitize(),
		})
	}
}

type registerPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterHandler creates a pending account. An admin must approve it
// before the user can log in.
func RegisterHandler(users userStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload registerPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid payload")
			return
		}

		payload.Username = strings.TrimSpace(payload.Username)
		payload.Email = strings.TrimSpace(payload.Email)

		if err := validate.Username(payload.Username); err != nil {
			response.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := validate.Email(payload.Email); err != nil {
			response.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := validate.Password(payload.Password); err != nil {
			response.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		if _, err := users.FindByUsername(r.Context(), payload.Username); err == nil {
			response.Error(w, http.StatusConflict, "username already taken")
			return
		}
		if _, err := users.FindByEmail(r.Context(), payload.Email); err == nil {
			response.Error(w, http.StatusConflict, "email already registered")
			return
		}

		user := &model.User{
			Username: payload.Username,
			Email:    payload.Email,
			Role:     model.RoleUser,
			Status:   model.StatusPending,
		}
		if err := user.SetPassword(payload.Password); err != nil {
			logger.WithError(err).Error("failed to hash password")
			response.Error(w, http.StatusInternalServerError, "unable to register")
			return
		}

		if err := users.Create(r.Context(), user); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				response.Error(w, http.StatusConflict, "username or email already registered")
				return
			}
			logger.WithError(err).Error("failed to create user")
			response.Error(w, http.StatusInternalServerError, "unable to register")
			return
		}

		logger.WithField("username", user.Username).Info("new registration pending approval")
		response.Created(w, user.Sanitize())
	}
}

// ProfileHandler returns the authenticated user.
func ProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		response.OK(w, user.Sanitize())
	}
}

type changePasswordPayload struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func ChangePasswordHandler(users userStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var payload changePasswordPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid payload")
			return
		}

		if payload.OldPassword == "" || payload.NewPassword == "" {
			response.Error(w, http.StatusBadRequest, "old and new passwords are required")
			return
		}

		if err := user.CheckPassword(payload.OldPassword); err != nil {
			logger.WithField("user_id", user.ID).Warn("current password mismatch")
			response.Error(w, http.StatusUnauthorized, "invalid current password")
			return
		}

		if err := validate.Password(payload.NewPassword); err != nil {
			response.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := user.SetPassword(payload.NewPassword); err != nil {
			logger.WithError(err).Error("failed to hash new password")
			response.Error(w, http.StatusInternalServerError, "unable to update password")
			return
		}

		if err := users.Update(r.Context(), user); err != nil {
			logger.WithError(err).Error("failed to update password")
			response.Error(w, http.StatusInternalServerError, "unable to update password")
			return
		}

		response.Message(w, "password updated")
	}
}

type apiKeysPayload struct {
	APIKey    string `json:"api_key"`
	SecretKey string `json:"secret_key"`
}

// UpdateAPIKeysHandler stores the user's exchange credentials encrypted
// at rest. The keys are verified against the exchange before saving.
func UpdateAPIKeysHandler(users userStore, cipher *security.Cipher, provider ExchangeProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var payload apiKeysPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid payload")
			return
		}

		if payload.APIKey == "" || payload.SecretKey == "" {
			response.Error(w, http.StatusBadRequest, "api_key and secret_key are required")
			return
		}

		encryptedKey, err := cipher.EncryptString(payload.APIKey)
		if err != nil {
			logger.WithError(err).Error("failed to encrypt api key")
			response.Error(w, http.StatusInternalServerError, "unable to store api keys")
			return
		}
		encryptedSecret, err := cipher.EncryptString(payload.SecretKey)
		if err != nil {
			logger.WithError(err).Error("failed to encrypt secret key")
			response.Error(w, http.StatusInternalServerError, "unable to store api keys")
			return
		}

		user.APIKey = encryptedKey
		user.SecretKey = encryptedSecret

		if provider != nil {
			exchange, err := provider(user)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "unable to build exchange client")
				return
			}
			if err := exchange.TestConnection(); err != nil {
				logger.WithError(err).WithField("user_id", user.ID).Warn("api key verification failed")
				response.Error(w, http.StatusBadRequest, "api keys rejected by exchange")
				return
			}
		}

		if err := users.UpdateFields(r.Context(), user.ID, map[string]interface{}{
			"api_key":    encryptedKey,
			"secret_key": encryptedSecret,
		}); err != nil {
			logger.WithError(err).Error("failed to store api keys")
			response.Error(w, http.StatusInternalServerError, "unable to store api keys")
			return
		}

		response.Message(w, "api keys updated")
	}
}

// DeleteAPIKeysHandler removes the stored exchange credentials.
func DeleteAPIKeysHandler(users userStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		if err := users.UpdateFields(r.Context(), user.ID, map[string]interface{}{
			"api_key":    "",
			"secret_key": "",
		}); err != nil {
			logger.WithError(err).Error("failed to clear api keys")
			response.Error(w, http.StatusInternalServerError, "unable to remove api keys")
			return
		}

		response.Message(w, "api keys removed")
	}
}

// DefaultLoginHandler wires the handler to the production repository.
func DefaultLoginHandler(issuer *auth.TokenIssuer) http.HandlerFunc {
	return LoginHandler(repository.NewUserRepository(), issuer)
}

func DefaultRegisterHandler() http.HandlerFunc {
	return RegisterHandler(repository.NewUserRepository())
}
