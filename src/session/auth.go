package session

import (
	"context"
	"sync"

	logger "github.com/sirupsen/logrus"

	"tradeadmin/src/client"
	"tradeadmin/src/model"
)

// AuthState is the persisted login snapshot.
type AuthState struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Auth keeps the console's login state in sync between the API client
// and the on-disk snapshot.
type Auth struct {
	store *Store
	api   *client.Client

	mu    sync.Mutex
	state AuthState
}

// NewAuth restores any persisted session into the client and wires the
// unauthorized hook so a server-side invalidation clears local state.
func NewAuth(store *Store, api *client.Client) *Auth {
	a := &Auth{store: store, api: api}

	if ok, err := store.Load(authStorageKey, &a.state); err != nil {
		logger.WithError(err).Warn("discarding unreadable auth snapshot")
	} else if ok && a.state.Token != "" {
		api.SetToken(a.state.Token)
	}

	api.OnUnauthorized(func() {
		if err := a.clear(); err != nil {
			logger.WithError(err).Warn("failed to clear auth snapshot")
		}
	})
	return a
}

func (a *Auth) Login(ctx context.Context, username, password string) (*model.User, error) {
	result, err := a.api.Auth.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.state = AuthState{Token: result.Token, User: result.User}
	a.mu.Unlock()
	if err := a.store.Save(authStorageKey, a.snapshot()); err != nil {
		logger.WithError(err).Warn("failed to persist auth snapshot")
	}
	return result.User, nil
}

func (a *Auth) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	return a.api.Auth.Register(ctx, username, email, password)
}

// Logout discards local state only; there is no server-side session to
// revoke.
func (a *Auth) Logout() error {
	return a.clear()
}

// CheckAuth validates the persisted session. With no token it reports
// unauthenticated immediately, without a network call. When the profile
// fetch fails the whole session is dropped, never a partial one.
func (a *Auth) CheckAuth(ctx context.Context) (*model.User, error) {
	if a.Token() == "" {
		return nil, nil
	}

	user, err := a.api.Auth.Profile(ctx)
	if err != nil {
		if clearErr := a.clear(); clearErr != nil {
			logger.WithError(clearErr).Warn("failed to clear auth snapshot")
		}
		return nil, err
	}

	a.mu.Lock()
	a.state.User = user
	a.mu.Unlock()
	if err := a.store.Save(authStorageKey, a.snapshot()); err != nil {
		logger.WithError(err).Warn("failed to persist auth snapshot")
	}
	return user, nil
}

func (a *Auth) Token() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Token
}

func (a *Auth) User() *model.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.User
}

func (a *Auth) snapshot() AuthState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Auth) clear() error {
	a.mu.Lock()
	a.state = AuthState{}
	a.mu.Unlock()
	a.api.SetToken("")
	return a.store.Clear(authStorageKey)
}
