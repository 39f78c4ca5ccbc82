package client

import (
	"context"
	"fmt"

	"tradeadmin/src/model"
)

// DualService manages dual-investment products and subscriptions.
type DualService struct {
	c *Client
}

type DualStrategyRequest struct {
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

func (s *DualService) Products(ctx context.Context, baseAsset string, page, limit int) ([]model.DualInvestmentProduct, int64, error) {
	query := pageQuery(page, limit)
	if baseAsset != "" {
		query.Set("base_asset", baseAsset)
	}
	var products []model.DualInvestmentProduct
	total, err := s.c.getPage(ctx, "/api/dual/products", query, &products)
	return products, total, err
}

func (s *DualService) ListStrategies(ctx context.Context, page, limit int) ([]model.DualInvestmentStrategy, int64, error) {
	var strategies []model.DualInvestmentStrategy
	total, err := s.c.getPage(ctx, "/api/dual/strategies", pageQuery(page, limit), &strategies)
	return strategies, total, err
}

func (s *DualService) CreateStrategy(ctx context.Context, req DualStrategyRequest) (*model.DualInvestmentStrategy, error) {
	var strategy model.DualInvestmentStrategy
	if err := s.c.post(ctx, "/api/dual/strategies", req, &strategy); err != nil {
		return nil, err
	}
	return &strategy, nil
}

func (s *DualService) DeleteStrategy(ctx context.Context, id uint) error {
	return s.c.delete(ctx, fmt.Sprintf("/api/dual/strategies/%d", id))
}

func (s *DualService) ToggleStrategy(ctx context.Context, id uint) (*model.DualInvestmentStrategy, error) {
	var strategy model.DualInvestmentStrategy
	if err := s.c.post(ctx, fmt.Sprintf("/api/dual/strategies/%d/toggle", id), nil, &strategy); err != nil {
		return nil, err
	}
	return &strategy, nil
}

func (s *DualService) Orders(ctx context.Context, page, limit int) ([]model.DualInvestmentOrder, int64, error) {
	var orders []model.DualInvestmentOrder
	total, err := s.c.getPage(ctx, "/api/dual/orders", pageQuery(page, limit), &orders)
	return orders, total, err
}
