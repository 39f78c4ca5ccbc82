package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeadmin/src/client"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	store := testStore(t)

	require.NoError(t, store.Save("auth-storage", AuthState{Token: "tkn"}))

	var state AuthState
	found, err := store.Load("auth-storage", &state)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "tkn", state.Token)

	require.NoError(t, store.Clear("auth-storage"))
	found, err = store.Load("auth-storage", &state)
	require.NoError(t, err)
	assert.False(t, found)

	// clearing twice is fine
	require.NoError(t, store.Clear("auth-storage"))
}

func TestCheckAuthWithoutTokenSkipsNetwork(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	auth := NewAuth(testStore(t), client.New(srv.URL))

	user, err := auth.CheckAuth(context.Background())
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestCheckAuthClearsSessionOnRejectedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"code": 401, "message": "token expired"})
	}))
	defer srv.Close()

	store := testStore(t)
	require.NoError(t, store.Save("auth-storage", AuthState{Token: "stale"}))

	api := client.New(srv.URL)
	auth := NewAuth(store, api)
	require.Equal(t, "stale", auth.Token())

	user, err := auth.CheckAuth(context.Background())
	require.Error(t, err)
	assert.Nil(t, user)

	// session dropped everywhere, not just in memory
	assert.Empty(t, auth.Token())
	assert.Nil(t, auth.User())
	assert.Empty(t, api.Token())

	var state AuthState
	found, loadErr := store.Load("auth-storage", &state)
	require.NoError(t, loadErr)
	assert.False(t, found)
}

func TestLoginPersistsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 200,
			"data": map[string]interface{}{
				"token": "fresh",
				"user":  map[string]interface{}{"username": "alice"},
			},
		})
	}))
	defer srv.Close()

	store := testStore(t)
	auth := NewAuth(store, client.New(srv.URL))

	user, err := auth.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	var state AuthState
	found, err := store.Load("auth-storage", &state)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "fresh", state.Token)

	require.NoError(t, auth.Logout())
	assert.Empty(t, auth.Token())
}

func TestFavoritesDeduplicates(t *testing.T) {
	store := testStore(t)
	favorites := NewFavorites(store)

	require.NoError(t, favorites.Add("BTCUSDT"))
	require.NoError(t, favorites.Add("ETHUSDT"))
	require.NoError(t, favorites.Add("BTCUSDT"))
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, favorites.List())

	require.NoError(t, favorites.Remove("BTCUSDT"))
	require.NoError(t, favorites.Remove("BTCUSDT"))
	assert.Equal(t, []string{"ETHUSDT"}, favorites.List())

	// reload sees the persisted list
	reloaded := NewFavorites(store)
	assert.Equal(t, []string{"ETHUSDT"}, reloaded.List())
}

func TestThemeToggle(t *testing.T) {
	store := testStore(t)
	theme := NewTheme(store)
	assert.Equal(t, ThemeLight, theme.Current())

	next, err := theme.Toggle()
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, next)

	reloaded := NewTheme(store)
	assert.Equal(t, ThemeDark, reloaded.Current())
}
