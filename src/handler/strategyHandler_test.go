package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tradeadmin/src/auth"
	"tradeadmin/src/model"
	"tradeadmin/src/repository"
)

type fakeStrategyStore struct {
	strategies map[uint]*model.Strategy
	toggled    map[uint]bool
	deleted    []uint
}

func newFakeStrategyStore(strategies ...*model.Strategy) *fakeStrategyStore {
	s := &fakeStrategyStore{strategies: map[uint]*model.Strategy{}, toggled: map[uint]bool{}}
	for _, strategy := range strategies {
		s.strategies[strategy.ID] = strategy
	}
	return s
}

func (s *fakeStrategyStore) Create(_ context.Context, strategy *model.Strategy) error {
	strategy.ID = uint(len(s.strategies) + 1)
	s.strategies[strategy.ID] = strategy
	return nil
}

func (s *fakeStrategyStore) FindByID(_ context.Context, userID, id uint) (*model.Strategy, error) {
	strategy, ok := s.strategies[id]
	if !ok || strategy.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return strategy, nil
}

func (s *fakeStrategyStore) List(_ context.Context, opts repository.StrategySearchOptions) ([]model.Strategy, int64, error) {
	var out []model.Strategy
	for _, strategy := range s.strategies {
		if strategy.UserID == opts.UserID {
			out = append(out, *strategy)
		}
	}
	return out, int64(len(out)), nil
}

func (s *fakeStrategyStore) Update(_ context.Context, strategy *model.Strategy) error {
	s.strategies[strategy.ID] = strategy
	return nil
}

func (s *fakeStrategyStore) Delete(_ context.Context, _, id uint) error {
	delete(s.strategies, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *fakeStrategyStore) SetActive(_ context.Context, _, id uint, active bool) error {
	s.toggled[id] = active
	if strategy, ok := s.strategies[id]; ok {
		strategy.IsActive = active
	}
	return nil
}

func authedRequest(t *testing.T, method, target string, body interface{}, user *model.User) *http.Request {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if user != nil {
		req = req.WithContext(auth.WithUser(req.Context(), user))
	}
	return req
}

func icebergPayload() map[string]interface{} {
	return map[string]interface{}{
		"name":          "btc ladder",
		"symbol":        "BTCUSDT",
		"type":          "iceberg",
		"side":          "buy",
		"quantity":      1.0,
		"trigger_price": 50000.0,
		"config": map[string]interface{}{
			"layers":      float64(10),
			"price_float": float64(10),
		},
	}
}

func TestCreateStrategyHandler(t *testing.T) {
	user := activeUser(t, "trader", "Sup3r$ecret")
	store := newFakeStrategyStore()
	handler := CreateStrategyHandler(store)

	req := authedRequest(t, http.MethodPost, "/api/strategies", icebergPayload(), user)
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, store.strategies, 1)
	for _, strategy := range store.strategies {
		assert.False(t, strategy.IsActive, "new strategies must start stopped")
		assert.Equal(t, user.ID, strategy.UserID)
		assert.Equal(t, model.StrategyIceberg, strategy.Type)
	}
}

func TestCreateStrategyHandlerInvalidConfig(t *testing.T) {
	user := activeUser(t, "trader", "Sup3r$ecret")
	handler := CreateStrategyHandler(newFakeStrategyStore())

	payload := icebergPayload()
	payload["config"] = map[string]interface{}{"layers": float64(3)}
	req := authedRequest(t, http.MethodPost, "/api/strategies", payload, user)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStrategyHandlerRejectsActive(t *testing.T) {
	user := activeUser(t, "trader", "Sup3r$ecret")
	strategy := &model.Strategy{UserID: user.ID, Name: "running", Symbol: "BTCUSDT", Type: model.StrategySimple, Side: model.SideBuy, Quantity: 1, TriggerPrice: 50000, Config: model.JSONMap{}, IsActive: true}
	strategy.ID = 7
	store := newFakeStrategyStore(strategy)

	router := chi.NewRouter()
	router.Put("/api/strategies/{id}", UpdateStrategyHandler(store))

	req := authedRequest(t, http.MethodPut, "/api/strategies/7", icebergPayload(), user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteStrategyHandler(t *testing.T) {
	user := activeUser(t, "trader", "Sup3r$ecret")
	strategy := &model.Strategy{UserID: user.ID, Name: "stopped", Symbol: "BTCUSDT", Type: model.StrategySimple, Side: model.SideBuy, Quantity: 1, TriggerPrice: 50000, Config: model.JSONMap{}}
	strategy.ID = 3
	store := newFakeStrategyStore(strategy)

	router := chi.NewRouter()
	router.Delete("/api/strategies/{id}", DeleteStrategyHandler(store))

	req := authedRequest(t, http.MethodDelete, "/api/strategies/3", nil, user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uint{3}, store.deleted)
}

func TestDeleteStrategyHandlerNotOwned(t *testing.T) {
	user := activeUser(t, "trader", "Sup3r$ecret")
	strategy := &model.Strategy{UserID: 999, Name: "foreign", Symbol: "BTCUSDT", Type: model.StrategySimple, Side: model.SideBuy, Quantity: 1, TriggerPrice: 50000, Config: model.JSONMap{}}
	strategy.ID = 3
	store := newFakeStrategyStore(strategy)

	router := chi.NewRouter()
	router.Delete("/api/strategies/{id}", DeleteStrategyHandler(store))

	req := authedRequest(t, http.MethodDelete, "/api/strategies/3", nil, user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestToggleStrategyHandler(t *testing.T) {
	user := activeUser(t, "trader", "Sup3r$ecret")
	strategy := &model.Strategy{UserID: user.ID, Name: "stopped", Symbol: "BTCUSDT", Type: model.StrategySimple, Side: model.SideBuy, Quantity: 1, TriggerPrice: 50000, Config: model.JSONMap{}}
	strategy.ID = 5
	store := newFakeStrategyStore(strategy)

	router := chi.NewRouter()
	router.Post("/api/strategies/{id}/toggle", ToggleStrategyHandler(store))

	req := authedRequest(t, http.MethodPost, "/api/strategies/5/toggle", nil, user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, store.toggled[5])
}

func TestToggleStrategyHandlerCompleted(t *testing.T) {
	user := activeUser(t, "trader", "Sup3r$ecret")
	strategy := &model.Strategy{UserID: user.ID, Name: "done", Symbol: "BTCUSDT", Type: model.StrategySimple, Side: model.SideBuy, Quantity: 1, TriggerPrice: 50000, Config: model.JSONMap{}, IsCompleted: true}
	strategy.ID = 5
	store := newFakeStrategyStore(strategy)

	router := chi.NewRouter()
	router.Post("/api/strategies/{id}/toggle", ToggleStrategyHandler(store))

	req := authedRequest(t, http.MethodPost, "/api/strategies/5/toggle", nil, user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPreviewStrategyHandler(t *testing.T) {
	handler := PreviewStrategyHandler()

	req := authedRequest(t, http.MethodPost, "/api/strategies/preview", icebergPayload(), nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var envelope struct {
		Data []struct {
			Index    int     `json:"index"`
			Quantity float64 `json:"quantity"`
			Price    float64 `json:"price"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 10)

	total := 0.0
	for _, layer := range envelope.Data {
		total += layer.Quantity
		assert.LessOrEqual(t, layer.Price, 50000.0)
	}
	assert.InDelta(t, 1.0, total, 1e-9)

	// layer zero floats by the configured first layer offset
	assert.InDelta(t, 50000*(1-10.0/10000), envelope.Data[0].Price, 1e-6)
}
