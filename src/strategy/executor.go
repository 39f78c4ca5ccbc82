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
	"tradeadmin/src/validate"
)

// State keys persisted between ticks for slow iceberg progress.
const (
	stateCurrentLayer = "current_layer"
	stateLayerFilled  = "layer_filled_quantity"
	stateTotalFilled  = "total_filled_quantity"
	stateLayerOrderID = "layer_order_id"
	stateLayerPlaced  = "layer_placed_at"
)

// fillEpsilon absorbs float drift when comparing filled against ordered
// quantity.
const fillEpsilon = 0.00000001

// Exchange is the connector surface the executor drives.
type Exchange interface {
	GetPrice(symbol string) (float64, error)
	SymbolFilters(symbol string) (connectors.SymbolInfo, error)
	PlaceOrder(params connectors.PlaceOrderParams) (*connectors.OrderResult, error)
	GetOrder(symbol, orderID string) (*connectors.OrderResult, error)
	CancelOrder(symbol, orderID string) (*connectors.OrderResult, error)
}

type strategyStore interface {
	SaveState(ctx context.Context, id uint, state model.JSONMap) error
	MarkCompleted(ctx context.Context, id uint) error
}

type orderStore interface {
	Create(ctx context.Context, order *model.Order) error
	UpdateExecution(ctx context.Context, orderID string, status model.OrderStatus, executedQty, quoteQty float64) error
}

type Executor struct {
	logger     *logrus.Entry
	strategies strategyStore
	orders     orderStore
	now        func() time.Time
}

func NewExecutor(logger *logrus.Entry, strategies strategyStore, orders orderStore) *Executor {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Executor{logger: logger, strategies: strategies, orders: orders, now: time.Now}
}

// Tick advances one strategy by a single step. The scheduler calls it for
// every active strategy on each pass; all progress survives in the state
// column so a restart resumes where the previous process stopped.
func (e *Executor) Tick(ctx context.Context, strat *model.Strategy, exch Exchange) error {
	if strat == nil {
		return fmt.Errorf("strategy is nil")
	}
	if !strat.IsActive || strat.IsCompleted {
		return nil
	}

	cfg, err := validate.ParseStrategyConfig(strat.Type, strat.Config)
	if err != nil {
		return fmt.Errorf("strategy %d has invalid config: %w", strat.ID, err)
	}

	// A strategy already holding execution state keeps running regardless
	// of where the price moved since the trigger fired.
	if !e.started(strat) {
		price, err := exch.GetPrice(strat.Symbol)
		if err != nil {
			return fmt.Errorf("error fetching price for %s: %w", strat.Symbol, err)
		}
		if !triggered(strat, price) {
			return nil
		}
		e.logger.WithFields(logrus.Fields{
			"strategy_id": strat.ID,
			"symbol":      strat.Symbol,
			"price":       price,
		}).Info("trigger price reached")
	}

	switch c := cfg.(type) {
	case *validate.SimpleConfig:
		return e.runSimple(ctx, strat, c, exch)
	case *validate.IcebergConfig:
		return e.runIceberg(ctx, strat, c, exch)
	case *validate.SlowIcebergConfig:
		return e.runSlowIceberg(ctx, strat, &c.IcebergConfig, exch)
	default:
		return fmt.Errorf("strategy %d has unknown type %q", strat.ID, strat.Type)
	}
}

func (e *Executor) started(strat *model.Strategy) bool {
	if strat.State == nil {
		return false
	}
	_, ok := strat.State[stateCurrentLayer]
	return ok
}

func triggered(strat *model.Strategy, price float64) bool {
	if strat.TriggerPrice <= 0 || price <= 0 {
		return false
	}
	if strat.Side == model.SideBuy {
		return price <= strat.TriggerPrice
	}
	return price >= strat.TriggerPrice
}

// runSimple places the whole quantity as one limit order at the floated
// price and completes.
func (e *Executor) runSimple(ctx context.Context, strat *model.Strategy, cfg *validate.SimpleConfig, exch Exchange) error {
	price := preview.FloatedPrice(strat.TriggerPrice, strat.Side, cfg.PriceFloatBP)
	layer := preview.Layer{Index: 0, Quantity: strat.Quantity, Price: price, FloatBP: cfg.PriceFloatBP}

	if _, err := e.placeLayer(ctx, strat, layer, exch); err != nil {
		return err
	}
	return e.complete(ctx, strat)
}

// runIceberg places every layer in the same pass. The layer index is kept
// in state so a failure mid-way resumes at the unplaced layer instead of
// doubling the placed ones.
func (e *Executor) runIceberg(ctx context.Context, strat *model.Strategy, cfg *validate.IcebergConfig, exch Exchange) error {
	layers := e.buildLayers(strat, cfg)
	if len(layers) == 0 {
		return fmt.Errorf("strategy %d produced no layers", strat.ID)
	}

	state := e.state(strat)
	start := stateInt(state, stateCurrentLayer)
	for i := start; i < len(layers); i++ {
		if _, err := e.placeLayer(ctx, strat, layers[i], exch); err != nil {
			state[stateCurrentLayer] = float64(i)
			if saveErr := e.strategies.SaveState(ctx, strat.ID, state); saveErr != nil {
				e.logger.WithError(saveErr).WithField("strategy_id", strat.ID).Error("failed to save layer progress")
			}
			return err
		}
	}
	return e.complete(ctx, strat)
}

// runSlowIceberg manages one resting layer order at a time: place, wait
// for fill, cancel on timeout, then move to the next layer.
func (e *Executor) runSlowIceberg(ctx context.Context, strat *model.Strategy, cfg *validate.IcebergConfig, exch Exchange) error {
	layers := e.buildLayers(strat, cfg)
	if len(layers) == 0 {
		return fmt.Errorf("strategy %d produced no layers", strat.ID)
	}

	state := e.state(strat)
	current := stateInt(state, stateCurrentLayer)
	if current >= len(layers) {
		return e.complete(ctx, strat)
	}

	orderID := stateString(state, stateLayerOrderID)
	if orderID == "" {
		order, err := e.placeLayer(ctx, strat, layers[current], exch)
		if err != nil {
			return err
		}
		state[stateCurrentLayer] = float64(current)
		state[stateLayerFilled] = 0.0
		state[stateLayerOrderID] = order.OrderID
		state[stateLayerPlaced] = float64(e.now().Unix())
		return e.strategies.SaveState(ctx, strat.ID, state)
	}

	result, err := exch.GetOrder(strat.Symbol, orderID)
	if err != nil {
		return fmt.Errorf("error checking layer order %s: %w", orderID, err)
	}
	if err := e.orders.UpdateExecution(ctx, orderID, model.OrderStatus(strings.ToLower(result.Status)), result.ExecutedQty, result.QuoteQty); err != nil {
		e.logger.WithError(err).WithField("order_id", orderID).Warn("failed to record layer fill")
	}

	remaining := layers[current].Quantity - result.ExecutedQty
	filled := model.OrderStatus(strings.ToLower(result.Status)) == model.OrderStatusFilled || remaining < fillEpsilon

	timedOut := false
	if !filled && cfg.TimeoutMinutes > 0 {
		placedAt := time.Unix(int64(stateFloat(state, stateLayerPlaced)), 0)
		timedOut = e.now().Sub(placedAt) >= time.Duration(cfg.TimeoutMinutes)*time.Minute
	}

	if !filled && !timedOut {
		state[stateLayerFilled] = result.ExecutedQty
		return e.strategies.SaveState(ctx, strat.ID, state)
	}

	if timedOut {
		if _, err := exch.CancelOrder(strat.Symbol, orderID); err != nil {
			return fmt.Errorf("error canceling stale layer order %s: %w", orderID, err)
		}
		e.logger.WithFields(logrus.Fields{
			"strategy_id": strat.ID,
			"layer":       current,
			"order_id":    orderID,
		}).Info("layer order timed out, advancing")
	}

	state[stateTotalFilled] = stateFloat(state, stateTotalFilled) + result.ExecutedQty
	state[stateCurrentLayer] = float64(current + 1)
	state[stateLayerFilled] = 0.0
	delete(state, stateLayerOrderID)
	delete(state, stateLayerPlaced)
	if err := e.strategies.SaveState(ctx, strat.ID, state); err != nil {
		return err
	}

	if current+1 >= len(layers) {
		return e.complete(ctx, strat)
	}
	return nil
}

func (e *Executor) buildLayers(strat *model.Strategy, cfg *validate.IcebergConfig) []preview.Layer {
	return preview.BuildLayers(preview.LayerInput{
		TriggerPrice:      strat.TriggerPrice,
		Side:              strat.Side,
		TotalQuantity:     strat.Quantity,
		LayerCount:        cfg.Layers,
		FirstLayerFloatBP: cfg.FirstLayerFloatBP,
		FloatStepBP:       cfg.FloatStepBP,
		LayerQuantities:   cfg.LayerQuantities,
		LayerFloatBPs:     cfg.LayerPriceFloats,
	})
}

func (e *Executor) placeLayer(ctx context.Context, strat *model.Strategy, layer preview.Layer, exch Exchange) (*model.Order, error) {
	params := connectors.PlaceOrderParams{
		Symbol:   strat.Symbol,
		Side:     strings.ToUpper(string(strat.Side)),
		Type:     "LIMIT",
		Quantity: layer.Quantity,
		Price:    layer.Price,
	}
	// Layer quantities come out of weight math at full float precision;
	// the exchange rejects anything off the symbol's step grid.
	if filters, err := exch.SymbolFilters(strat.Symbol); err != nil {
		e.logger.WithError(err).WithField("symbol", strat.Symbol).Warn("symbol filters unavailable, sending raw precision")
	} else {
		params.StepSize = filters.StepSize
		params.TickSize = filters.TickSize
	}

	result, err := exch.PlaceOrder(params)
	if err != nil {
		return nil, fmt.Errorf("error placing layer %d for strategy %d: %w", layer.Index, strat.ID, err)
	}

	order := &model.Order{
		UserID:        strat.UserID,
		StrategyID:    &strat.ID,
		Symbol:        strat.Symbol,
		OrderID:       result.OrderID,
		ClientOrderID: result.ClientOrderID,
		Side:          strat.Side,
		Type:          model.OrderTypeLimit,
		Quantity:      layer.Quantity,
		Price:         layer.Price,
		Status:        model.OrderStatus(strings.ToLower(result.Status)),
		ExecutedQty:   result.ExecutedQty,
		QuoteQty:      result.QuoteQty,
	}
	if err := e.orders.Create(ctx, order); err != nil {
		e.logger.WithError(err).WithFields(logrus.Fields{
			"strategy_id": strat.ID,
			"order_id":    result.OrderID,
		}).Error("order placed but not recorded")
	}

	e.logger.WithFields(logrus.Fields{
		"strategy_id": strat.ID,
		"layer":       layer.Index,
		"order_id":    result.OrderID,
		"quantity":    layer.Quantity,
		"price":       layer.Price,
	}).Info("layer order placed")
	return order, nil
}

// complete finishes a run. Auto-restarting strategies reset their state
// and stay armed for the next trigger instead of completing.
func (e *Executor) complete(ctx context.Context, strat *model.Strategy) error {
	if strat.AutoRestart {
		strat.State = model.JSONMap{}
		e.logger.WithField("strategy_id", strat.ID).Info("strategy run finished, auto-restarting")
		return e.strategies.SaveState(ctx, strat.ID, model.JSONMap{})
	}
	e.logger.WithField("strategy_id", strat.ID).Info("strategy completed")
	strat.IsCompleted = true
	return e.strategies.MarkCompleted(ctx, strat.ID)
}

func (e *Executor) state(strat *model.Strategy) model.JSONMap {
	if strat.State == nil {
		strat.State = model.JSONMap{}
	}
	return strat.State
}

func stateFloat(state model.JSONMap, key string) float64 {
	f, _ := state.Float(key)
	return f
}

func stateInt(state model.JSONMap, key string) int {
	return int(stateFloat(state, key))
}

func stateString(state model.JSONMap, key string) string {
	s, _ := state[key].(string)
	return s
}
