package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeadmin/src/auth"
	"tradeadmin/src/model"
	"tradeadmin/src/preview"
	"tradeadmin/src/repository"
	"tradeadmin/src/response"
	"tradeadmin/src/validate"
)

type strategyStore interface {
	Create(ctx context.Context, strategy *model.Strategy) error
	FindByID(ctx context.Context, userID, id uint) (*model.Strategy, error)
	List(ctx context.Context, opts repository.StrategySearchOptions) ([]model.Strategy, int64, error)
	Update(ctx context.Context, strategy *model.Strategy) error
	Delete(ctx context.Context, userID, id uint) error
	SetActive(ctx context.Context, userID, id uint, active bool) error
}

// icebergConfig unwraps either iceberg sub-type to its shared layer config.
func icebergConfig(cfg validate.StrategyConfig) (*validate.IcebergConfig, bool) {
	switch c := cfg.(type) {
	case *validate.IcebergConfig:
		return c, true
	case *validate.SlowIcebergConfig:
		return &c.IcebergConfig, true
	}
	return nil, false
}

func pathID(r *http.Request) (uint, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

func pagination(r *http.Request) (page, limit int) {
	page, limit = 1, 20
	if raw := r.URL.Query().Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			page = parsed
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	return page, limit
}

// ListStrategiesHandler returns the user's spot strategies, paginated.
func ListStrategiesHandler(repo strategyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		page, limit := pagination(r)
		opts := repository.StrategySearchOptions{UserID: user.ID, Page: page, Limit: limit}
		if symbol := r.URL.Query().Get("symbol"); symbol != "" {
			opts.Symbol = &symbol
		}
		if raw := r.URL.Query().Get("is_active"); raw != "" {
			active := raw == "true"
			opts.IsActive = &active
		}

		strategies, total, err := repo.List(r.Context(), opts)
		if err != nil {
			logger.WithError(err).Error("failed to list strategies")
			response.Error(w, http.StatusInternalServerError, "unable to list strategies")
			return
		}

		response.Page(w, strategies, total, page, limit)
	}
}

type strategyPayload struct {
	Name         string        `json:"name"`
	Symbol       string        `json:"symbol"`
	Type         string        `json:"type"`
	Side         string        `json:"side"`
	Quantity     float64       `json:"quantity"`
	TriggerPrice float64       `json:"trigger_price"`
	Config       model.JSONMap `json:"config"`
	AutoRestart  bool          `json:"auto_restart"`
}

func (p *strategyPayload) toModel(userID uint) *model.Strategy {
	config := p.Config
	if config == nil {
		config = model.JSONMap{}
	}
	return &model.Strategy{
		UserID:       userID,
		Name:         p.Name,
		Symbol:       p.Symbol,
		Type:         model.StrategyType(p.Type),
		Side:         model.OrderSide(p.Side),
		Quantity:     p.Quantity,
		TriggerPrice: p.TriggerPrice,
		Config:       config,
		State:        model.JSONMap{},
		AutoRestart:  p.AutoRestart,
	}
}

// CreateStrategyHandler validates and stores a new spot strategy. New
// strategies start inactive; the user arms them with the toggle.
func CreateStrategyHandler(repo strategyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var payload strategyPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid payload")
			return
		}

		strategy := payload.toModel(user.ID)
		if err := validate.Strategy(strategy); err != nil {
			response.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := repo.Create(r.Context(), strategy); err != nil {
			logger.WithError(err).Error("failed to create strategy")
			response.Error(w, http.StatusInternalServerError, "unable to create strategy")
			return
		}

		logger.WithFields(logger.Fields{
			"user_id":     user.ID,
			"strategy_id": strategy.ID,
			"type":        strategy.Type,
		}).Info("strategy created")
		response.Created(w, strategy)
	}
}

// UpdateStrategyHandler replaces the editable fields of an existing
// strategy. Running strategies must be stopped before editing.
func UpdateStrategyHandler(repo strategyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		id, err := pathID(r)
		if err != nil {
			response.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		strategy, err := repo.FindByID(r.Context(), user.ID, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				response.Error(w, http.StatusNotFound, "strategy not found")
				return
			}
			logger.WithError(err).Error("failed to load strategy")
			response.Error(w, http.StatusInternalServerError, "unable to update strategy")
			return
		}

		if strategy.IsActive {
			response.Error(w, http.StatusConflict, "stop the strategy before editing it")
			return
		}

		var payload strategyPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid payload")
			return
		}

		updated := payload.toModel(user.ID)
		if err := validate.Strategy(updated); err != nil {
			response.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		strategy.Name = updated.Name
		strategy.Symbol = updated.Symbol
		strategy.Type = updated.Type
		strategy.Side = updated.Side
		strategy.Quantity = updated.Quantity
		strategy.TriggerPrice = updated.TriggerPrice
		strategy.Config = updated.Config
		strategy.AutoRestart = updated.AutoRestart

		if err := repo.Update(r.Context(), strategy); err != nil {
			logger.WithError(err).Error("failed to update strategy")
			response.Error(w, http.StatusInternalServerError, "unable to update strategy")
			return
		}

		response.OK(w, strategy)
	}
}

// DeleteStrategyHandler removes a stopped strategy.
func DeleteStrategyHandler(repo strategyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		id, err := pathID(r)
		if err != nil {
			response.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		strategy, err := repo.FindByID(r.Context(), user.ID, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				response.Error(w, http.StatusNotFound, "strategy not found")
				return
			}
			logger.WithError(err).Error("failed to load strategy")
			response.Error(w, http.StatusInternalServerError, "unable to delete strategy")
			return
		}

		if strategy.IsActive {
			response.Error(w, http.StatusConflict, "stop the strategy before deleting it")
			return
		}

		if err := repo.Delete(r.Context(), user.ID, id); err != nil {
			logger.WithError(err).Error("failed to delete strategy")
			response.Error(w, http.StatusInternalServerError, "unable to delete strategy")
			return
		}

		response.Message(w, "strategy deleted")
	}
}

// ToggleStrategyHandler flips a strategy between running and stopped.
func ToggleStrategyHandler(repo strategyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		id, err := pathID(r)
		if err != nil {
			response.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		strategy, err := repo.FindByID(r.Context(), user.ID, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				response.Error(w, http.StatusNotFound, "strategy not found")
				return
			}
			logger.WithError(err).Error("failed to load strategy")
			response.Error(w, http.StatusInternalServerError, "unable to toggle strategy")
			return
		}

		if strategy.IsCompleted && !strategy.IsActive {
			response.Error(w, http.StatusConflict, "completed strategies cannot be restarted")
			return
		}

		next := !strategy.IsActive
		if err := repo.SetActive(r.Context(), user.ID, id, next); err != nil {
			logger.WithError(err).Error("failed to toggle strategy")
			response.Error(w, http.StatusInternalServerError, "unable to toggle strategy")
			return
		}

		strategy.IsActive = next
		logger.WithFields(logger.Fields{
			"strategy_id": strategy.ID,
			"is_active":   next,
		}).Info("strategy toggled")
		response.OK(w, strategy)
	}
}

// PreviewStrategyHandler derives the layer table for an iceberg form
// snapshot without persisting anything.
func PreviewStrategyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload strategyPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid payload")
			return
		}

		cfg, err := validate.ParseStrategyConfig(model.StrategyType(payload.Type), payload.Config)
		if err != nil {
			response.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		input := preview.LayerInput{
			TriggerPrice:  payload.TriggerPrice,
			Side:          model.OrderSide(payload.Side),
			TotalQuantity: payload.Quantity,
		}
		if iceberg, ok := icebergConfig(cfg); ok {
			input.LayerCount = iceberg.Layers
			input.FirstLayerFloatBP = iceberg.FirstLayerFloatBP
			input.FloatStepBP = iceberg.FloatStepBP
			input.LayerQuantities = iceberg.LayerQuantities
			input.LayerFloatBPs = iceberg.LayerPriceFloats
		} else if simple, ok := cfg.(*validate.SimpleConfig); ok {
			input.LayerCount = 1
			input.FirstLayerFloatBP = simple.PriceFloatBP
		}

		layers := preview.BuildLayers(input)
		if layers == nil {
			response.OK(w, []preview.Layer{})
			return
		}
		response.OK(w, layers)
	}
}

// DefaultStrategyStore wires handlers to the production repository.
func DefaultStrategyStore() strategyStore {
	return repository.NewStrategyRepository()
}
