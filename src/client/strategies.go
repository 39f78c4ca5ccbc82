package client

import (
	"context"
	"fmt"

	"tradeadmin/src/model"
	"tradeadmin/src/preview"
)

// StrategyService manages spot iceberg strategies.
type StrategyService struct {
	c *Client
}

// StrategyRequest mirrors the create/update form.
type StrategyRequest struct {
	Name         string        `json:"name"`
	Symbol       string        `json:"symbol"`
	Type         string        `json:"type"`
	Side         string        `json:"side"`
	Quantity     float64       `json:"quantity"`
	TriggerPrice float64       `json:"trigger_price"`
	Config       model.JSONMap `json:"config"`
	AutoRestart  bool          `json:"auto_restart"`
}

func (s *StrategyService) List(ctx context.Context, page, limit int) ([]model.Strategy, int64, error) {
	var strategies []model.Strategy
	total, err := s.c.getPage(ctx, "/api/strategies", pageQuery(page, limit), &strategies)
	return strategies, total, err
}

func (s *StrategyService) Create(ctx context.Context, req StrategyRequest) (*model.Strategy, error) {
	var strategy model.Strategy
	if err := s.c.post(ctx, "/api/strategies", req, &strategy); err != nil {
		return nil, err
	}
	return &strategy, nil
}

func (s *StrategyService) Update(ctx context.Context, id uint, req StrategyRequest) (*model.Strategy, error) {
	var strategy model.Strategy
	if err := s.c.put(ctx, fmt.Sprintf("/api/strategies/%d", id), req, &strategy); err != nil {
		return nil, err
	}
	return &strategy, nil
}

func (s *StrategyService) Delete(ctx context.Context, id uint) error {
	return s.c.delete(ctx, fmt.Sprintf("/api/strategies/%d", id))
}

func (s *StrategyService) Toggle(ctx context.Context, id uint) (*model.Strategy, error) {
	var strategy model.Strategy
	if err := s.c.post(ctx, fmt.Sprintf("/api/strategies/%d/toggle", id), nil, &strategy); err != nil {
		return nil, err
	}
	return &strategy, nil
}

// Preview returns the layer table a strategy form would produce, without
// saving anything. Works unauthenticated.
func (s *StrategyService) Preview(ctx context.Context, req StrategyRequest) ([]preview.Layer, error) {
	var layers []preview.Layer
	if err := s.c.post(ctx, "/api/strategies/preview", req, &layers); err != nil {
		return nil, err
	}
	return layers, nil
}
