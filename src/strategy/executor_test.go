package strategy

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeadmin/src/connectors"
	"tradeadmin/src/model"
)

// fakeExchange reports order statuses lowercased, matching what the
// real connector decodes from exchange responses.
type fakeExchange struct {
	price    float64
	filters  connectors.SymbolInfo
	placed   []connectors.PlaceOrderParams
	statuses map[string]*connectors.OrderResult
	canceled []string
	nextID   int
	placeErr error
}

func (f *fakeExchange) GetPrice(string) (float64, error) {
	return f.price, nil
}

func (f *fakeExchange) SymbolFilters(string) (connectors.SymbolInfo, error) {
	return f.filters, nil
}

func (f *fakeExchange) PlaceOrder(p connectors.PlaceOrderParams) (*connectors.OrderResult, error) {
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	f.placed = append(f.placed, p)
	f.nextID++
	return &connectors.OrderResult{
		Symbol:  p.Symbol,
		OrderID: fmt.Sprintf("%d", f.nextID),
		Side:    p.Side,
		Type:    p.Type,
		Status:  "new",
		Price:   p.Price,
		OrigQty: p.Quantity,
	}, nil
}

func (f *fakeExchange) GetOrder(_, orderID string) (*connectors.OrderResult, error) {
	if result, ok := f.statuses[orderID]; ok {
		return result, nil
	}
	return &connectors.OrderResult{OrderID: orderID, Status: "new"}, nil
}

func (f *fakeExchange) CancelOrder(_, orderID string) (*connectors.OrderResult, error) {
	f.canceled = append(f.canceled, orderID)
	return &connectors.OrderResult{OrderID: orderID, Status: "canceled"}, nil
}

type fakeStores struct {
	states    map[uint]model.JSONMap
	completed []uint
	created   []model.Order
}

func newFakeStores() *fakeStores {
	return &fakeStores{states: map[uint]model.JSONMap{}}
}

func (s *fakeStores) SaveState(_ context.Context, id uint, state model.JSONMap) error {
	copied := model.JSONMap{}
	for k, v := range state {
		copied[k] = v
	}
	s.states[id] = copied
	return nil
}

func (s *fakeStores) MarkCompleted(_ context.Context, id uint) error {
	s.completed = append(s.completed, id)
	return nil
}

func (s *fakeStores) Create(_ context.Context, order *model.Order) error {
	s.created = append(s.created, *order)
	return nil
}

func (s *fakeStores) UpdateExecution(_ context.Context, _ string, _ model.OrderStatus, _, _ float64) error {
	return nil
}

func spotStrategy(t model.StrategyType, cfg model.JSONMap) *model.Strategy {
	strat := &model.Strategy{
		UserID:       1,
		Name:         "test",
		Symbol:       "BTCUSDT",
		Type:         t,
		Side:         model.SideBuy,
		Quantity:     1,
		TriggerPrice: 100,
		Config:       cfg,
		State:        model.JSONMap{},
		IsActive:     true,
	}
	strat.ID = 42
	return strat
}

func TestTickWaitsForTrigger(t *testing.T) {
	stores := newFakeStores()
	executor := NewExecutor(nil, stores, stores)
	exch := &fakeExchange{price: 101}

	strat := spotStrategy(model.StrategySimple, model.JSONMap{"price_float": 10.0})
	require.NoError(t, executor.Tick(context.Background(), strat, exch))

	assert.Empty(t, exch.placed)
	assert.Empty(t, stores.completed)
}

func TestTickSkipsInactive(t *testing.T) {
	stores := newFakeStores()
	executor := NewExecutor(nil, stores, stores)
	exch := &fakeExchange{price: 99}

	strat := spotStrategy(model.StrategySimple, model.JSONMap{"price_float": 10.0})
	strat.IsActive = false
	require.NoError(t, executor.Tick(context.Background(), strat, exch))
	assert.Empty(t, exch.placed)
}

func TestSimpleStrategyPlacesFloatedOrder(t *testing.T) {
	stores := newFakeStores()
	executor := NewExecutor(nil, stores, stores)
	exch := &fakeExchange{price: 99.5}

	strat := spotStrategy(model.StrategySimple, model.JSONMap{"price_float": 10.0})
	require.NoError(t, executor.Tick(context.Background(), strat, exch))

	require.Len(t, exch.placed, 1)
	assert.Equal(t, "BUY", exch.placed[0].Side)
	assert.Equal(t, 1.0, exch.placed[0].Quantity)
	assert.InDelta(t, 99.9, exch.placed[0].Price, 1e-9)
	assert.Equal(t, []uint{42}, stores.completed)
	require.Len(t, stores.created, 1)
	assert.Equal(t, uint(42), *stores.created[0].StrategyID)
}

func TestIcebergPlacesAllLayers(t *testing.T) {
	stores := newFakeStores()
	executor := NewExecutor(nil, stores, stores)
	exch := &fakeExchange{price: 99}

	strat := spotStrategy(model.StrategyIceberg, model.JSONMap{"layers": 10.0, "price_float": 10.0})
	require.NoError(t, executor.Tick(context.Background(), strat, exch))

	require.Len(t, exch.placed, 10)
	total := 0.0
	for _, p := range exch.placed {
		total += p.Quantity
		assert.LessOrEqual(t, p.Price, 100.0)
	}
	assert.InDelta(t, 1.0, total, 1e-9)
	assert.Equal(t, []uint{42}, stores.completed)
}

func TestIcebergResumesAfterPlacementFailure(t *testing.T) {
	stores := newFakeStores()
	executor := NewExecutor(nil, stores, stores)
	exch := &fakeExchange{price: 99}

	strat := spotStrategy(model.StrategyIceberg, model.JSONMap{"layers": 5.0, "price_float": 10.0})

	// First pass fails on layer 0, nothing placed.
	exch.placeErr = fmt.Errorf("exchange down")
	require.Error(t, executor.Tick(context.Background(), strat, exch))
	assert.Empty(t, exch.placed)
	assert.Empty(t, stores.completed)

	// Second pass places all five layers.
	exch.placeErr = nil
	require.NoError(t, executor.Tick(context.Background(), strat, exch))
	assert.Len(t, exch.placed, 5)
	assert.Equal(t, []uint{42}, stores.completed)
}

func TestSlowIcebergAdvancesOnFill(t *testing.T) {
	stores := newFakeStores()
	executor := NewExecutor(nil, stores, stores)
	exch := &fakeExchange{price: 99, statuses: map[string]*connectors.OrderResult{}}

	strat := spotStrategy(model.StrategySlowIceberg, model.JSONMap{"layers": 5.0, "price_float": 10.0, "timeout": 30.0})

	// First tick places only the first layer.
	require.NoError(t, executor.Tick(context.Background(), strat, exch))
	require.Len(t, exch.placed, 1)
	assert.Equal(t, "1", strat.State[stateLayerOrderID])

	// Layer still resting, nothing advances.
	require.NoError(t, executor.Tick(context.Background(), strat, exch))
	require.Len(t, exch.placed, 1)

	// Fill the layer; the next tick advances and the one after places layer 1.
	exch.statuses["1"] = &connectors.OrderResult{OrderID: "1", Status: "filled", OrigQty: exch.placed[0].Quantity, ExecutedQty: exch.placed[0].Quantity}
	require.NoError(t, executor.Tick(context.Background(), strat, exch))
	assert.Equal(t, 1, stateInt(strat.State, stateCurrentLayer))
	assert.InDelta(t, exch.placed[0].Quantity, stateFloat(strat.State, stateTotalFilled), 1e-9)

	require.NoError(t, executor.Tick(context.Background(), strat, exch))
	require.Len(t, exch.placed, 2)
}

func TestSlowIcebergCancelsOnTimeout(t *testing.T) {
	stores := newFakeStores()
	executor := NewExecutor(nil, stores, stores)
	exch := &fakeExchange{price: 99, statuses: map[string]*connectors.OrderResult{}}

	now := time.Now()
	executor.now = func() time.Time { return now }

	strat := spotStrategy(model.StrategySlowIceberg, model.JSONMap{"layers": 5.0, "price_float": 10.0, "timeout": 30.0})
	require.NoError(t, executor.Tick(context.Background(), strat, exch))
	require.Len(t, exch.placed, 1)

	// Partially filled, then the timeout passes.
	exch.statuses["1"] = &connectors.OrderResult{OrderID: "1", Status: "partially_filled", OrigQty: exch.placed[0].Quantity, ExecutedQty: exch.placed[0].Quantity / 2}
	executor.now = func() time.Time { return now.Add(31 * time.Minute) }

	require.NoError(t, executor.Tick(context.Background(), strat, exch))
	assert.Equal(t, []string{"1"}, exch.canceled)
	assert.Equal(t, 1, stateInt(strat.State, stateCurrentLayer))
	assert.InDelta(t, exch.placed[0].Quantity/2, stateFloat(strat.State, stateTotalFilled), 1e-9)
}

func TestSlowIcebergCompletesAfterLastLayer(t *testing.T) {
	stores := newFakeStores()
	executor := NewExecutor(nil, stores, stores)
	exch := &fakeExchange{price: 99, statuses: map[string]*connectors.OrderResult{}}

	strat := spotStrategy(model.StrategySlowIceberg, model.JSONMap{"layers": 5.0, "price_float": 10.0, "timeout": 30.0})

	for layer := 0; layer < 5; layer++ {
		require.NoError(t, executor.Tick(context.Background(), strat, exch))
		last := exch.placed[len(exch.placed)-1]
		id := fmt.Sprintf("%d", len(exch.placed))
		exch.statuses[id] = &connectors.OrderResult{OrderID: id, Status: "filled", OrigQty: last.Quantity, ExecutedQty: last.Quantity}
		require.NoError(t, executor.Tick(context.Background(), strat, exch))
	}

	assert.Len(t, exch.placed, 5)
	assert.Equal(t, []uint{42}, stores.completed)
	assert.InDelta(t, 1.0, stateFloat(strat.State, stateTotalFilled), 1e-9)
}

func TestLayersCarrySymbolFilters(t *testing.T) {
	stores := newFakeStores()
	executor := NewExecutor(nil, stores, stores)
	exch := &fakeExchange{
		price:   99,
		filters: connectors.SymbolInfo{Symbol: "BTCUSDT", StepSize: 0.001, TickSize: 0.01},
	}

	strat := spotStrategy(model.StrategyIceberg, model.JSONMap{"layers": 5.0, "price_float": 10.0})
	require.NoError(t, executor.Tick(context.Background(), strat, exch))

	require.Len(t, exch.placed, 5)
	for _, p := range exch.placed {
		assert.Equal(t, 0.001, p.StepSize)
		assert.Equal(t, 0.01, p.TickSize)
	}
}

func TestSlowIcebergAdvancesOnFilledStatus(t *testing.T) {
	stores := newFakeStores()
	executor := NewExecutor(nil, stores, stores)
	exch := &fakeExchange{price: 99, statuses: map[string]*connectors.OrderResult{}}

	strat := spotStrategy(model.StrategySlowIceberg, model.JSONMap{"layers": 5.0, "price_float": 10.0, "timeout": 30.0})
	require.NoError(t, executor.Tick(context.Background(), strat, exch))
	require.Len(t, exch.placed, 1)

	// Step rounding can leave the executed quantity visibly short of the
	// requested one; the reported status still settles the layer.
	short := exch.placed[0].Quantity * 0.99
	exch.statuses["1"] = &connectors.OrderResult{OrderID: "1", Status: "filled", OrigQty: exch.placed[0].Quantity, ExecutedQty: short}

	require.NoError(t, executor.Tick(context.Background(), strat, exch))
	assert.Empty(t, exch.canceled)
	assert.Equal(t, 1, stateInt(strat.State, stateCurrentLayer))
	assert.InDelta(t, short, stateFloat(strat.State, stateTotalFilled), 1e-9)
}

func TestAutoRestartResetsState(t *testing.T) {
	stores := newFakeStores()
	executor := NewExecutor(nil, stores, stores)
	exch := &fakeExchange{price: 99}

	strat := spotStrategy(model.StrategySimple, model.JSONMap{"price_float": 10.0})
	strat.AutoRestart = true
	require.NoError(t, executor.Tick(context.Background(), strat, exch))

	assert.Empty(t, stores.completed)
	assert.Empty(t, strat.State)
}
