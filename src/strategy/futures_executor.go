package strategy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"tradeadmin/src/connectors"
	"tradeadmin/src/model"
	"tradeadmin/src/preview"
)

// FuturesExchange is the futures connector surface the executor drives.
type FuturesExchange interface {
	GetFuturesPrice(symbol string) (float64, error)
	FuturesSymbolFilters(symbol string) (connectors.SymbolInfo, error)
	SetFuturesLeverage(symbol string, leverage int) error
	SetFuturesMarginType(symbol, marginType string) error
	PlaceFuturesOrder(p connectors.PlaceFuturesOrderParams) (*connectors.OrderResult, error)
	GetFuturesOrder(symbol, orderID string) (*connectors.OrderResult, error)
	CancelFuturesOrder(symbol, orderID string) (*connectors.OrderResult, error)
}

type futuresStrategyStore interface {
	SaveStrategyState(ctx context.Context, id uint, state model.JSONMap) error
	MarkStrategyCompleted(ctx context.Context, id uint) error
	CreateOrder(ctx context.Context, order *model.FuturesOrder) error
}

type FuturesExecutor struct {
	logger *logrus.Entry
	store  futuresStrategyStore
	now    func() time.Time
}

func NewFuturesExecutor(logger *logrus.Entry, store futuresStrategyStore) *FuturesExecutor {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &FuturesExecutor{logger: logger, store: store, now: time.Now}
}

// Tick advances one futures strategy. The entry price doubles as the
// trigger: buys arm below it, sells above it.
func (e *FuturesExecutor) Tick(ctx context.Context, strat *model.FuturesStrategy, exch FuturesExchange) error {
	if strat == nil {
		return fmt.Errorf("futures strategy is nil")
	}
	if !strat.IsActive || strat.IsCompleted {
		return nil
	}

	estimate := preview.EstimateFutures(preview.FuturesInput{
		MarginAmount: strat.MarginAmount,
		Leverage:     strat.Leverage,
		Price:        strat.Price,
		Side:         strat.Side,
		TakeProfitBP: strat.TakeProfitBP,
		StopLossBP:   strat.StopLossBP,
		FloatBP:      strat.FloatBP,
	})
	if estimate == nil {
		return fmt.Errorf("futures strategy %d has invalid parameters", strat.ID)
	}

	price, err := exch.GetFuturesPrice(strat.Symbol)
	if err != nil {
		return fmt.Errorf("error fetching futures price for %s: %w", strat.Symbol, err)
	}
	if strat.Side == model.SideBuy && price > strat.Price {
		return nil
	}
	if strat.Side == model.SideSell && price < strat.Price {
		return nil
	}

	if err := exch.SetFuturesLeverage(strat.Symbol, strat.Leverage); err != nil {
		return fmt.Errorf("error setting leverage for %s: %w", strat.Symbol, err)
	}
	if err := exch.SetFuturesMarginType(strat.Symbol, strings.ToUpper(string(strat.MarginType))); err != nil {
		return fmt.Errorf("error setting margin type for %s: %w", strat.Symbol, err)
	}

	params := connectors.PlaceFuturesOrderParams{
		Symbol:   strat.Symbol,
		Side:     strings.ToUpper(string(strat.Side)),
		Type:     "LIMIT",
		Quantity: estimate.Quantity,
		Price:    estimate.ActualPrice,
	}
	// notional/price quantities rarely land on the step grid unrounded
	if filters, err := exch.FuturesSymbolFilters(strat.Symbol); err != nil {
		e.logger.WithError(err).WithField("symbol", strat.Symbol).Warn("futures symbol filters unavailable, sending raw precision")
	} else {
		params.StepSize = filters.StepSize
		params.TickSize = filters.TickSize
	}

	result, err := exch.PlaceFuturesOrder(params)
	if err != nil {
		return fmt.Errorf("error placing futures order for strategy %d: %w", strat.ID, err)
	}

	order := &model.FuturesOrder{
		UserID:        strat.UserID,
		StrategyID:    &strat.ID,
		Symbol:        strat.Symbol,
		OrderID:       result.OrderID,
		ClientOrderID: result.ClientOrderID,
		Side:          strat.Side,
		PositionSide:  model.PositionBoth,
		Type:          model.OrderTypeLimit,
		Quantity:      estimate.Quantity,
		Price:         estimate.ActualPrice,
		Status:        model.OrderStatus(strings.ToLower(result.Status)),
		ExecutedQty:   result.ExecutedQty,
	}
	if err := e.store.CreateOrder(ctx, order); err != nil {
		e.logger.WithError(err).WithFields(logrus.Fields{
			"strategy_id": strat.ID,
			"order_id":    result.OrderID,
		}).Error("futures order placed but not recorded")
	}

	e.logger.WithFields(logrus.Fields{
		"strategy_id": strat.ID,
		"symbol":      strat.Symbol,
		"order_id":    result.OrderID,
		"quantity":    estimate.Quantity,
		"price":       estimate.ActualPrice,
		"leverage":    strat.Leverage,
	}).Info("futures order placed")

	if strat.AutoRestart {
		strat.State = model.JSONMap{}
		return e.store.SaveStrategyState(ctx, strat.ID, model.JSONMap{})
	}
	strat.IsCompleted = true
	return e.store.MarkStrategyCompleted(ctx, strat.ID)
}
