package auth

import (
	"context"
	"net/http"
	"strings"

	logger "github.com/sirupsen/logrus"

	"tradeadmin/src/model"
	"tradeadmin/src/response"
)

type userFinder interface {
	FindUserByID(ctx context.Context, id uint) (*model.User, error)
}

// Authenticator resolves the bearer token into an active user and stores it
// on the request context. Disabled and pending accounts are rejected even
// when their token is still valid.
func Authenticator(issuer *TokenIssuer, users userFinder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				response.Error(w, http.StatusUnauthorized, "authorization header required")
				return
			}

			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				response.Error(w, http.StatusUnauthorized, "authorization header must be a bearer token")
				return
			}

			claims, err := issuer.Parse(tokenString)
			if err != nil {
				response.Error(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			user, err := users.FindUserByID(r.Context(), claims.UserID)
			if err != nil {
				logger.WithError(err).WithField("user_id", claims.UserID).Warn("token for unknown user")
				response.Error(w, http.StatusUnauthorized, "user not found")
				return
			}

			if user.Status != model.StatusActive {
				response.Error(w, http.StatusForbidden, "account is not active")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// AdminOnly requires Authenticator earlier in the chain.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUserFromContext(r.Context())
		if !ok {
			response.Error(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !user.IsAdmin() {
			response.Error(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
