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
	"tradeadmin/src/repository"
	"tradeadmin/src/response"
	"tradeadmin/src/validate"
)

type dualStore interface {
	ListProducts(ctx context.Context, baseAsset string, page, limit int) ([]model.DualInvestmentProduct, int64, error)
	FindProduct(ctx context.Context, productID string) (*model.DualInvestmentProduct, error)
	CreateStrategy(ctx context.Context, strategy *model.DualInvestmentStrategy) error
	FindStrategyByID(ctx context.Context, userID, id uint) (*model.DualInvestmentStrategy, error)
	ListStrategies(ctx context.Context, userID uint, page, limit int) ([]model.DualInvestmentStrategy, int64, error)
	UpdateStrategy(ctx context.Context, strategy *model.DualInvestmentStrategy) error
	DeleteStrategy(ctx context.Context, userID, id uint) error
	SetStrategyActive(ctx context.Context, userID, id uint, active bool) error
	ListOrders(ctx context.Context, userID uint, page, limit int) ([]model.DualInvestmentOrder, int64, error)
}

// ListDualProductsHandler returns the cached product catalog. The catalog
// is refreshed from the exchange by the scheduler, not per request.
func ListDualProductsHandler(repo dualStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, limit := pagination(r)
		products, total, err := repo.ListProducts(r.Context(), r.URL.Query().Get("base_asset"), page, limit)
		if err != nil {
			logger.WithError(err).Error("failed to list dual products")
			response.Error(w, http.StatusInternalServerError, "unable to list products")
			return
		}
		response.Page(w, products, total, page, limit)
	}
}

func ListDualStrategiesHandler(repo dualStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		page, limit := pagination(r)
		strategies, total, err := repo.ListStrategies(r.Context(), user.ID, page, limit)
		if err != nil {
			logger.WithError(err).Error("failed to list dual strategies")
			response.Error(w, http.StatusInternalServerError, "unable to list dual strategies")
			return
		}
		response.Page(w, strategies, total, page, limit)
	}
}

type dualStrategyPayload struct {
	Name           string  `json:"name"`
	ProductID      string  `json:"product_id"`
	InvestmentType string  `json:"investment_type"`
	Amount         float64 `json:"amount"`
	TriggerPrice   float64 `json:"trigger_price"`
	MinYieldRate   float64 `json:"min_yield_rate"`
	AutoReinvest   bool    `json:"auto_reinvest"`
	LadderSteps    int     `json:"ladder_steps"`
	AmountPerStep  float64 `json:"amount_per_step"`
}

func CreateDualStrategyHandler(repo dualStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var payload dualStrategyPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid payload")
			return
		}

		product, err := repo.FindProduct(r.Context(), payload.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				response.Error(w, http.StatusBadRequest, "unknown product")
				return
			}
			logger.WithError(err).Error("failed to load dual product")
			response.Error(w, http.StatusInternalServerError, "unable to create dual strategy")
			return
		}

		strategy := &model.DualInvestmentStrategy{
			UserID:         user.ID,
			Name:           payload.Name,
			ProductID:      payload.ProductID,
			BaseAsset:      product.BaseAsset,
			QuoteAsset:     product.QuoteAsset,
			InvestmentType: payload.InvestmentType,
			Amount:         payload.Amount,
			TriggerPrice:   payload.TriggerPrice,
			MinYieldRate:   payload.MinYieldRate,
			AutoReinvest:   payload.AutoReinvest,
			LadderSteps:    payload.LadderSteps,
			AmountPerStep:  payload.AmountPerStep,
		}
		if err := validate.DualInvestmentStrategy(strategy); err != nil {
			response.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := repo.CreateStrategy(r.Context(), strategy); err != nil {
			logger.WithError(err).Error("failed to create dual strategy")
			response.Error(w, http.StatusInternalServerError, "unable to create dual strategy")
			return
		}

		response.Created(w, strategy)
	}
}

func DeleteDualStrategyHandler(repo dualStore) http.HandlerFunc {
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

		if _, err := repo.FindStrategyByID(r.Context(), user.ID, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				response.Error(w, http.StatusNotFound, "dual strategy not found")
				return
			}
			logger.WithError(err).Error("failed to load dual strategy")
			response.Error(w, http.StatusInternalServerError, "unable to delete dual strategy")
			return
		}

		if err := repo.DeleteStrategy(r.Context(), user.ID, id); err != nil {
			logger.WithError(err).Error("failed to delete dual strategy")
			response.Error(w, http.StatusInternalServerError, "unable to delete dual strategy")
			return
		}

		response.Message(w, "dual strategy deleted")
	}
}

func ToggleDualStrategyHandler(repo dualStore) http.HandlerFunc {
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
				response.Error(w, http.StatusNotFound, "dual strategy not found")
				return
			}
			logger.WithError(err).Error("failed to load dual strategy")
			response.Error(w, http.StatusInternalServerError, "unable to toggle dual strategy")
			return
		}

		next := !strategy.IsActive
		if err := repo.SetStrategyActive(r.Context(), user.ID, id, next); err != nil {
			logger.WithError(err).Error("failed to toggle dual strategy")
			response.Error(w, http.StatusInternalServerError, "unable to toggle dual strategy")
			return
		}

		strategy.IsActive = next
		response.OK(w, strategy)
	}
}

func ListDualOrdersHandler(repo dualStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		page, limit := pagination(r)
		orders, total, err := repo.ListOrders(r.Context(), user.ID, page, limit)
		if err != nil {
			logger.WithError(err).Error("failed to list dual orders")
			response.Error(w, http.StatusInternalServerError, "unable to list dual orders")
			return
		}
		response.Page(w, orders, total, page, limit)
	}
}

// DefaultDualStore wires handlers to the production repository.
func DefaultDualStore() dualStore {
	return repository.NewDualInvestmentRepository()
}
