package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeadmin/src/auth"
	"tradeadmin/src/model"
	"tradeadmin/src/preview"
	"tradeadmin/src/repository"
	"tradeadmin/src/response"
	"tradeadmin/src/validate"
)

type futuresStore interface {
	CreateStrategy(ctx context.Context, strategy *model.FuturesStrategy) error
	FindStrategyByID(ctx context.Context, userID, id uint) (*model.FuturesStrategy, error)
	ListStrategies(ctx context.Context, opts repository.StrategySearchOptions) ([]model.FuturesStrategy, int64, error)
	UpdateStrategy(ctx context.Context, strategy *model.FuturesStrategy) error
	DeleteStrategy(ctx context.Context, userID, id uint) error
	SetStrategyActive(ctx context.Context, userID, id uint, active bool) error
	ListOrders(ctx context.Context, opts repository.OrderSearchOptions) ([]model.FuturesOrder, int64, error)
	ListPositions(ctx context.Context, userID uint) ([]model.FuturesPosition, error)
}

// fillEstimates attaches the derived preview numbers to a strategy row.
func fillEstimates(s *model.FuturesStrategy) {
	estimate := preview.EstimateFutures(preview.FuturesInput{
		MarginAmount: s.MarginAmount,
		Leverage:     s.Leverage,
		Price:        s.Price,
		Side:         s.Side,
		TakeProfitBP: s.TakeProfitBP,
		StopLossBP:   s.StopLossBP,
		FloatBP:      s.FloatBP,
	})
	if estimate == nil {
		return
	}
	s.OrderQuantity = estimate.Quantity
	s.EstimatedProfit = estimate.EstimatedProfit
	s.EstimatedLoss = estimate.EstimatedLoss
	s.LiquidationPrice = estimate.LiquidationPrice
}

func ListFuturesStrategiesHandler(repo futuresStore) http.HandlerFunc {
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

		strategies, total, err := repo.ListStrategies(r.Context(), opts)
		if err != nil {
			logger.WithError(err).Error("failed to list futures strategies")
			response.Error(w, http.StatusInternalServerError, "unable to list futures strategies")
			return
		}

		for i := range strategies {
			fillEstimates(&strategies[i])
		}
		response.Page(w, strategies, total, page, limit)
	}
}

type futuresStrategyPayload struct {
	Name         string        `json:"name"`
	Symbol       string        `json:"symbol"`
	Type         string        `json:"type"`
	Side         string        `json:"side"`
	MarginAmount float64       `json:"margin_amount"`
	Price        float64       `json:"price"`
	FloatBP      float64       `json:"float_basis_points"`
	TakeProfitBP int           `json:"take_profit_bp"`
	StopLossBP   int           `json:"stop_loss_bp"`
	Leverage     int           `json:"leverage"`
	MarginType   string        `json:"margin_type"`
	Config       model.JSONMap `json:"config"`
	AutoRestart  bool          `json:"auto_restart"`
}

func (p *futuresStrategyPayload) toModel(userID uint) *model.FuturesStrategy {
	config := p.Config
	if config == nil {
		config = model.JSONMap{}
	}
	strategy := &model.FuturesStrategy{
		UserID:       userID,
		Name:         p.Name,
		Symbol:       p.Symbol,
		Type:         model.StrategyType(p.Type),
		Side:         model.OrderSide(p.Side),
		MarginAmount: p.MarginAmount,
		Price:        p.Price,
		FloatBP:      p.FloatBP,
		TakeProfitBP: p.TakeProfitBP,
		StopLossBP:   p.StopLossBP,
		Leverage:     p.Leverage,
		MarginType:   model.MarginType(p.MarginType),
		Config:       config,
		State:        model.JSONMap{},
		AutoRestart:  p.AutoRestart,
	}
	if strategy.Leverage == 0 {
		strategy.Leverage = 8
	}
	if strategy.MarginType == "" {
		strategy.MarginType = model.MarginIsolated
	}
	return strategy
}

func CreateFuturesStrategyHandler(repo futuresStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var payload futuresStrategyPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid payload")
			return
		}

		strategy := payload.toModel(user.ID)
		if err := validate.FuturesStrategy(strategy); err != nil {
			response.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := repo.CreateStrategy(r.Context(), strategy); err != nil {
			logger.WithError(err).Error("failed to create futures strategy")
			response.Error(w, http.StatusInternalServerError, "unable to create futures strategy")
			return
		}

		fillEstimates(strategy)
		response.Created(w, strategy)
	}
}

func UpdateFuturesStrategyHandler(repo futuresStore) http.HandlerFunc {
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

		strategy, err := repo.FindStrategyByID(r.Context(), user.ID, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				response.Error(w, http.StatusNotFound, "futures strategy not found")
				return
			}
			logger.WithError(err).Error("failed to load futures strategy")
			response.Error(w, http.StatusInternalServerError, "unable to update futures strategy")
			return
		}

		if strategy.IsActive {
			response.Error(w, http.StatusConflict, "stop the strategy before editing it")
			return
		}

		var payload futuresStrategyPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid payload")
			return
		}

		updated := payload.toModel(user.ID)
		if err := validate.FuturesStrategy(updated); err != nil {
			response.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		strategy.Name = updated.Name
		strategy.Symbol = updated.Symbol
		strategy.Type = updated.Type
		strategy.Side = updated.Side
		strategy.MarginAmount = updated.MarginAmount
		strategy.Price = updated.Price
		strategy.FloatBP = updated.FloatBP
		strategy.TakeProfitBP = updated.TakeProfitBP
		strategy.StopLossBP = updated.StopLossBP
		strategy.Leverage = updated.Leverage
		strategy.MarginType = updated.MarginType
		strategy.Config = updated.Config
		strategy.AutoRestart = updated.AutoRestart

		if err := repo.UpdateStrategy(r.Context(), strategy); err != nil {
			logger.WithError(err).Error("failed to update futures strategy")
			response.Error(w, http.StatusInternalServerError, "unable to update futures strategy")
			return
		}

		fillEstimates(strategy)
		response.OK(w, strategy)
	}
}

func DeleteFuturesStrategyHandler(repo futuresStore) http.HandlerFunc {
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

		strategy, err := repo.FindStrategyByID(r.Context(), user.ID, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				response.Error(w, http.StatusNotFound, "futures strategy not found")
				return
			}
			logger.WithError(err).Error("failed to load futures strategy")
			response.Error(w, http.StatusInternalServerError, "unable to delete futures strategy")
			return
		}

		if strategy.IsActive {
			response.Error(w, http.StatusConflict, "stop the strategy before deleting it")
			return
		}

		if err := repo.DeleteStrategy(r.Context(), user.ID, id); err != nil {
			logger.WithError(err).Error("failed to delete futures strategy")
			response.Error(w, http.StatusInternalServerError, "unable to delete futures strategy")
			return
		}

		response.Message(w, "futures strategy deleted")
	}
}

func ToggleFuturesStrategyHandler(repo futuresStore) http.HandlerFunc {
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

		strategy, err := repo.FindStrategyByID(r.Context(), user.ID, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				response.Error(w, http.StatusNotFound, "futures strategy not found")
				return
			}
			logger.WithError(err).Error("failed to load futures strategy")
			response.Error(w, http.StatusInternalServerError, "unable to toggle futures strategy")
			return
		}

		if strategy.IsCompleted && !strategy.IsActive {
			response.Error(w, http.StatusConflict, "completed strategies cannot be restarted")
			return
		}

		next := !strategy.IsActive
		if err := repo.SetStrategyActive(r.Context(), user.ID, id, next); err != nil {
			logger.WithError(err).Error("failed to toggle futures strategy")
			response.Error(w, http.StatusInternalServerError, "unable to toggle futures strategy")
			return
		}

		strategy.IsActive = next
		fillEstimates(strategy)
		response.OK(w, strategy)
	}
}

// ListFuturesOrdersHandler returns the user's futures orders, paginated.
func ListFuturesOrdersHandler(repo futuresStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		page, limit := pagination(r)
		opts := repository.OrderSearchOptions{UserID: user.ID, Page: page, Limit: limit}
		if symbol := r.URL.Query().Get("symbol"); symbol != "" {
			opts.Symbol = &symbol
		}

		orders, total, err := repo.ListOrders(r.Context(), opts)
		if err != nil {
			logger.WithError(err).Error("failed to list futures orders")
			response.Error(w, http.StatusInternalServerError, "unable to list futures orders")
			return
		}

		response.Page(w, orders, total, page, limit)
	}
}

// ListFuturesPositionsHandler reads live positions from the exchange and
// falls back to the cached snapshot when the exchange is unreachable.
func ListFuturesPositionsHandler(repo futuresStore, provider ExchangeProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		exchange, err := provider(user)
		if err == nil {
			live, liveErr := exchange.GetPositionRisk(r.URL.Query().Get("symbol"))
			if liveErr == nil {
				positions := make([]model.FuturesPosition, 0, len(live))
				for _, p := range live {
					positions = append(positions, model.FuturesPosition{
						UserID:           user.ID,
						Symbol:           p.Symbol,
						PositionSide:     model.PositionSide(p.PositionSide),
						PositionAmt:      p.PositionAmt,
						EntryPrice:       p.EntryPrice,
						MarkPrice:        p.MarkPrice,
						UnrealizedProfit: p.UnrealizedProfit,
						LiquidationPrice: p.LiquidationPrice,
						Leverage:         p.Leverage,
						MarginType:       model.MarginType(p.MarginType),
						IsolatedMargin:   p.IsolatedMargin,
					})
				}
				response.OK(w, positions)
				return
			}
			logger.WithError(liveErr).Warn("live position fetch failed, serving cached snapshot")
		} else if !errors.Is(err, ErrNoAPIKeys) {
			logger.WithError(err).Warn("exchange client unavailable, serving cached snapshot")
		}

		cached, err := repo.ListPositions(r.Context(), user.ID)
		if err != nil {
			logger.WithError(err).Error("failed to list cached positions")
			response.Error(w, http.StatusInternalServerError, "unable to list positions")
			return
		}
		response.OK(w, cached)
	}
}

// PreviewFuturesHandler runs the liquidation/PnL estimator for a form
// snapshot, including the per-layer table for iceberg sub-types.
func PreviewFuturesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload futuresStrategyPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid payload")
			return
		}

		leverage := payload.Leverage
		if leverage == 0 {
			leverage = 8
		}

		estimate := preview.EstimateFutures(preview.FuturesInput{
			MarginAmount: payload.MarginAmount,
			Leverage:     leverage,
			Price:        payload.Price,
			Side:         model.OrderSide(payload.Side),
			TakeProfitBP: payload.TakeProfitBP,
			StopLossBP:   payload.StopLossBP,
			FloatBP:      payload.FloatBP,
		})
		if estimate == nil {
			response.Error(w, http.StatusBadRequest, "margin_amount, price and leverage must be positive")
			return
		}

		result := map[string]interface{}{
			"estimate": estimate,
		}

		if cfg, err := validate.ParseStrategyConfig(model.StrategyType(payload.Type), payload.Config); err == nil {
			if iceberg, ok := icebergConfig(cfg); ok {
				result["layers"] = preview.BuildLayers(preview.LayerInput{
					TriggerPrice:      payload.Price,
					Side:              model.OrderSide(payload.Side),
					TotalQuantity:     estimate.Quantity,
					LayerCount:        iceberg.Layers,
					FirstLayerFloatBP: iceberg.FirstLayerFloatBP,
					FloatStepBP:       iceberg.FloatStepBP,
					LayerQuantities:   iceberg.LayerQuantities,
					LayerFloatBPs:     iceberg.LayerPriceFloats,
				})
			}
		}

		response.OK(w, result)
	}
}

// DefaultFuturesStore wires handlers to the production repository.
func DefaultFuturesStore() futuresStore {
	return repository.NewFuturesRepository()
}
