package client

import (
	"context"
	"fmt"

	"tradeadmin/src/model"
	"tradeadmin/src/preview"
)

// FuturesService manages leveraged strategies and their positions.
type FuturesService struct {
	c *Client
}

type FuturesStrategyRequest struct {
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

// FuturesPreview is the estimator output plus the layer table for
// iceberg sub-types.
type FuturesPreview struct {
	Estimate *preview.FuturesEstimate `json:"estimate"`
	Layers   []preview.Layer          `json:"layers,omitempty"`
}

func (s *FuturesService) ListStrategies(ctx context.Context, page, limit int) ([]model.FuturesStrategy, int64, error) {
	var strategies []model.FuturesStrategy
	total, err := s.c.getPage(ctx, "/api/futures/strategies", pageQuery(page, limit), &strategies)
	return strategies, total, err
}

func (s *FuturesService) CreateStrategy(ctx context.Context, req FuturesStrategyRequest) (*model.FuturesStrategy, error) {
	var strategy model.FuturesStrategy
	if err := s.c.post(ctx, "/api/futures/strategies", req, &strategy); err != nil {
		return nil, err
	}
	return &strategy, nil
}

func (s *FuturesService) UpdateStrategy(ctx context.Context, id uint, req FuturesStrategyRequest) (*model.FuturesStrategy, error) {
	var strategy model.FuturesStrategy
	if err := s.c.put(ctx, fmt.Sprintf("/api/futures/strategies/%d", id), req, &strategy); err != nil {
		return nil, err
	}
	return &strategy, nil
}

func (s *FuturesService) DeleteStrategy(ctx context.Context, id uint) error {
	return s.c.delete(ctx, fmt.Sprintf("/api/futures/strategies/%d", id))
}

func (s *FuturesService) ToggleStrategy(ctx context.Context, id uint) (*model.FuturesStrategy, error) {
	var strategy model.FuturesStrategy
	if err := s.c.post(ctx, fmt.Sprintf("/api/futures/strategies/%d/toggle", id), nil, &strategy); err != nil {
		return nil, err
	}
	return &strategy, nil
}

func (s *FuturesService) Orders(ctx context.Context, page, limit int) ([]model.FuturesOrder, int64, error) {
	var orders []model.FuturesOrder
	total, err := s.c.getPage(ctx, "/api/futures/orders", pageQuery(page, limit), &orders)
	return orders, total, err
}

func (s *FuturesService) Positions(ctx context.Context) ([]model.FuturesPosition, error) {
	var positions []model.FuturesPosition
	if err := s.c.get(ctx, "/api/futures/positions", nil, &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

// Preview runs the margin/liquidation estimator. Works unauthenticated.
func (s *FuturesService) Preview(ctx context.Context, req FuturesStrategyRequest) (*FuturesPreview, error) {
	var result FuturesPreview
	if err := s.c.post(ctx, "/api/futures/preview", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
