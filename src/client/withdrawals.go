package client

import (
	"context"
	"fmt"

	"tradeadmin/src/model"
	"tradeadmin/src/repository"
)

// WithdrawalService manages automatic withdrawal rules and their
// execution history.
type WithdrawalService struct {
	c *Client
}

type WithdrawalRequest struct {
	Asset        string  `json:"asset"`
	Address      string  `json:"address"`
	Network      string  `json:"network"`
	Amount       float64 `json:"amount"`
	MinBalance   float64 `json:"min_balance"`
	TriggerPrice float64 `json:"trigger_price"`
	AutoWithdraw bool    `json:"auto_withdraw"`
	Description  string  `json:"description"`
}

func (s *WithdrawalService) List(ctx context.Context, page, limit int) ([]model.Withdrawal, int64, error) {
	var rules []model.Withdrawal
	total, err := s.c.getPage(ctx, "/api/withdrawals", pageQuery(page, limit), &rules)
	return rules, total, err
}

func (s *WithdrawalService) Create(ctx context.Context, req WithdrawalRequest) (*model.Withdrawal, error) {
	var rule model.Withdrawal
	if err := s.c.post(ctx, "/api/withdrawals", req, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

func (s *WithdrawalService) Update(ctx context.Context, id uint, req WithdrawalRequest) (*model.Withdrawal, error) {
	var rule model.Withdrawal
	if err := s.c.put(ctx, fmt.Sprintf("/api/withdrawals/%d", id), req, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

func (s *WithdrawalService) Delete(ctx context.Context, id uint) error {
	return s.c.delete(ctx, fmt.Sprintf("/api/withdrawals/%d", id))
}

func (s *WithdrawalService) Toggle(ctx context.Context, id uint) (*model.Withdrawal, error) {
	var rule model.Withdrawal
	if err := s.c.post(ctx, fmt.Sprintf("/api/withdrawals/%d/toggle", id), nil, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

func (s *WithdrawalService) History(ctx context.Context, asset string, page, limit int) ([]model.WithdrawalHistory, int64, error) {
	query := pageQuery(page, limit)
	if asset != "" {
		query.Set("asset", asset)
	}
	var history []model.WithdrawalHistory
	total, err := s.c.getPage(ctx, "/api/withdrawals/history", query, &history)
	return history, total, err
}

// SyncHistory pulls the exchange's withdrawal records into the local
// history table and reports how many were stored.
func (s *WithdrawalService) SyncHistory(ctx context.Context) (int, error) {
	var result struct {
		Synced int `json:"synced"`
	}
	if err := s.c.post(ctx, "/api/withdrawals/history/sync", nil, &result); err != nil {
		return 0, err
	}
	return result.Synced, nil
}

func (s *WithdrawalService) Stats(ctx context.Context) ([]repository.WithdrawalStats, error) {
	var stats []repository.WithdrawalStats
	if err := s.c.get(ctx, "/api/withdrawals/stats", nil, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}
