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

type withdrawalStore interface {
	Create(ctx context.Context, rule *model.Withdrawal) error
	FindByID(ctx context.Context, userID, id uint) (*model.Withdrawal, error)
	List(ctx context.Context, userID uint, page, limit int) ([]model.Withdrawal, int64, error)
	Update(ctx context.Context, rule *model.Withdrawal) error
	Delete(ctx context.Context, userID, id uint) error
	SetActive(ctx context.Context, userID, id uint, active bool) error
	UpsertHistory(ctx context.Context, history *model.WithdrawalHistory) error
	ListHistory(ctx context.Context, userID uint, asset string, page, limit int) ([]model.WithdrawalHistory, int64, error)
	Stats(ctx context.Context, userID uint) ([]repository.WithdrawalStats, error)
}

func ListWithdrawalsHandler(repo withdrawalStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		page, limit := pagination(r)
		rules, total, err := repo.List(r.Context(), user.ID, page, limit)
		if err != nil {
			logger.WithError(err).Error("failed to list withdrawal rules")
			response.Error(w, http.StatusInternalServerError, "unable to list withdrawal rules")
			return
		}
		response.Page(w, rules, total, page, limit)
	}
}

type withdrawalPayload struct {
	Asset        string  `json:"asset"`
	Address      string  `json:"address"`
	Network      string  `json:"network"`
	Amount       float64 `json:"amount"`
	MinBalance   float64 `json:"min_balance"`
	TriggerPrice float64 `json:"trigger_price"`
	AutoWithdraw bool    `json:"auto_withdraw"`
	Description  string  `json:"description"`
}

func CreateWithdrawalHandler(repo withdrawalStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var payload withdrawalPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid payload")
			return
		}

		rule := &model.Withdrawal{
			UserID:       user.ID,
			Asset:        payload.Asset,
			Address:      payload.Address,
			Network:      payload.Network,
			Amount:       payload.Amount,
			MinBalance:   payload.MinBalance,
			TriggerPrice: payload.TriggerPrice,
			AutoWithdraw: payload.AutoWithdraw,
			Description:  payload.Description,
		}
		if err := validate.Withdrawal(rule); err != nil {
			response.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := repo.Create(r.Context(), rule); err != nil {
			logger.WithError(err).Error("failed to create withdrawal rule")
			response.Error(w, http.StatusInternalServerError, "unable to create withdrawal rule")
			return
		}

		response.Created(w, rule)
	}
}

func UpdateWithdrawalHandler(repo withdrawalStore) http.HandlerFunc {
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

		rule, err := repo.FindByID(r.Context(), user.ID, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				response.Error(w, http.StatusNotFound, "withdrawal rule not found")
				return
			}
			logger.WithError(err).Error("failed to load withdrawal rule")
			response.Error(w, http.StatusInternalServerError, "unable to update withdrawal rule")
			return
		}

		var payload withdrawalPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid payload")
			return
		}

		rule.Asset = payload.Asset
		rule.Address = payload.Address
		rule.Network = payload.Network
		rule.Amount = payload.Amount
		rule.MinBalance = payload.MinBalance
		rule.TriggerPrice = payload.TriggerPrice
		rule.AutoWithdraw = payload.AutoWithdraw
		rule.Description = payload.Description

		if err := validate.Withdrawal(rule); err != nil {
			response.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := repo.Update(r.Context(), rule); err != nil {
			logger.WithError(err).Error("failed to update withdrawal rule")
			response.Error(w, http.StatusInternalServerError, "unable to update withdrawal rule")
			return
		}

		response.OK(w, rule)
	}
}

func DeleteWithdrawalHandler(repo withdrawalStore) http.HandlerFunc {
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

		if _, err := repo.FindByID(r.Context(), user.ID, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				response.Error(w, http.StatusNotFound, "withdrawal rule not found")
				return
			}
			logger.WithError(err).Error("failed to load withdrawal rule")
			response.Error(w, http.StatusInternalServerError, "unable to delete withdrawal rule")
			return
		}

		if err := repo.Delete(r.Context(), user.ID, id); err != nil {
			logger.WithError(err).Error("failed to delete withdrawal rule")
			response.Error(w, http.StatusInternalServerError, "unable to delete withdrawal rule")
			return
		}

		response.Message(w, "withdrawal rule deleted")
	}
}

func ToggleWithdrawalHandler(repo withdrawalStore) http.HandlerFunc {
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

		rule, err := repo.FindByID(r.Context(), user.ID, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				response.Error(w, http.StatusNotFound, "withdrawal rule not found")
				return
			}
			logger.WithError(err).Error("failed to load withdrawal rule")
			response.Error(w, http.StatusInternalServerError, "unable to toggle withdrawal rule")
			return
		}

		next := !rule.IsActive
		if err := repo.SetActive(r.Context(), user.ID, id, next); err != nil {
			logger.WithError(err).Error("failed to toggle withdrawal rule")
			response.Error(w, http.StatusInternalServerError, "unable to toggle withdrawal rule")
			return
		}

		rule.IsActive = next
		response.OK(w, rule)
	}
}

func ListWithdrawalHistoryHandler(repo withdrawalStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		page, limit := pagination(r)
		histories, total, err := repo.ListHistory(r.Context(), user.ID, r.URL.Query().Get("asset"), page, limit)
		if err != nil {
			logger.WithError(err).Error("failed to list withdrawal history")
			response.Error(w, http.StatusInternalServerError, "unable to list withdrawal history")
			return
		}
		response.Page(w, histories, total, page, limit)
	}
}

// SyncWithdrawalHistoryHandler pulls the exchange withdrawal records for
// the user and merges them into the local history.
func SyncWithdrawalHistoryHandler(repo withdrawalStore, provider ExchangeProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		exchange, err := provider(user)
		if err != nil {
			if errors.Is(err, ErrNoAPIKeys) {
				response.Error(w, http.StatusBadRequest, "configure api keys before syncing")
				return
			}
			logger.WithError(err).Error("failed to build exchange client")
			response.Error(w, http.StatusInternalServerError, "unable to sync withdrawal history")
			return
		}

		records, err := exchange.GetWithdrawHistory(r.URL.Query().Get("asset"))
		if err != nil {
			logger.WithError(err).Error("failed to fetch withdraw history")
			response.Error(w, http.StatusBadGateway, "exchange history fetch failed")
			return
		}

		synced := 0
		for _, record := range records {
			history := &model.WithdrawalHistory{
				UserID:       user.ID,
				Asset:        record.Asset,
				Amount:       record.Amount,
				Fee:          record.Fee,
				Address:      record.Address,
				Network:      record.Network,
				TxID:         record.TxID,
				Status:       record.Status,
				ApplyTime:    record.ApplyTime,
				CompleteTime: record.CompleteTime,
			}
			if err := repo.UpsertHistory(r.Context(), history); err != nil {
				logger.WithError(err).Warn("failed to upsert withdrawal history record")
				continue
			}
			synced++
		}

		response.OK(w, map[string]int{"synced": synced})
	}
}

func WithdrawalStatsHandler(repo withdrawalStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		stats, err := repo.Stats(r.Context(), user.ID)
		if err != nil {
			logger.WithError(err).Error("failed to compute withdrawal stats")
			response.Error(w, http.StatusInternalServerError, "unable to compute withdrawal stats")
			return
		}
		response.OK(w, stats)
	}
}

// DefaultWithdrawalStore wires handlers to the production repository.
func DefaultWithdrawalStore() withdrawalStore {
	return repository.NewWithdrawalRepository()
}
