package strategy

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeadmin/src/connectors"
	"tradeadmin/src/model"
)

type fakeFuturesExchange struct {
	price      float64
	filters    connectors.SymbolInfo
	leverage   map[string]int
	marginType map[string]string
	placed     []connectors.PlaceFuturesOrderParams
	nextID     int
}

func newFakeFuturesExchange(price float64) *fakeFuturesExchange {
	return &fakeFuturesExchange{price: price, leverage: map[string]int{}, marginType: map[string]string{}}
}

func (f *fakeFuturesExchange) GetFuturesPrice(string) (float64, error) {
	return f.price, nil
}

func (f *fakeFuturesExchange) FuturesSymbolFilters(string) (connectors.SymbolInfo, error) {
	return f.filters, nil
}

func (f *fakeFuturesExchange) SetFuturesLeverage(symbol string, leverage int) error {
	f.leverage[symbol] = leverage
	return nil
}

func (f *fakeFuturesExchange) SetFuturesMarginType(symbol, marginType string) error {
	f.marginType[symbol] = marginType
	return nil
}

func (f *fakeFuturesExchange) PlaceFuturesOrder(p connectors.PlaceFuturesOrderParams) (*connectors.OrderResult, error) {
	f.placed = append(f.placed, p)
	f.nextID++
	return &connectors.OrderResult{OrderID: fmt.Sprintf("%d", f.nextID), Status: "new", Price: p.Price, OrigQty: p.Quantity}, nil
}

func (f *fakeFuturesExchange) GetFuturesOrder(_, orderID string) (*connectors.OrderResult, error) {
	return &connectors.OrderResult{OrderID: orderID, Status: "new"}, nil
}

func (f *fakeFuturesExchange) CancelFuturesOrder(_, orderID string) (*connectors.OrderResult, error) {
	return &connectors.OrderResult{OrderID: orderID, Status: "canceled"}, nil
}

type fakeFuturesStore struct {
	states    map[uint]model.JSONMap
	completed []uint
	orders    []model.FuturesOrder
}

func (s *fakeFuturesStore) SaveStrategyState(_ context.Context, id uint, state model.JSONMap) error {
	if s.states == nil {
		s.states = map[uint]model.JSONMap{}
	}
	s.states[id] = state
	return nil
}

func (s *fakeFuturesStore) MarkStrategyCompleted(_ context.Context, id uint) error {
	s.completed = append(s.completed, id)
	return nil
}

func (s *fakeFuturesStore) CreateOrder(_ context.Context, order *model.FuturesOrder) error {
	s.orders = append(s.orders, *order)
	return nil
}

func futuresFixture() *model.FuturesStrategy {
	strat := &model.FuturesStrategy{
		UserID:       1,
		Name:         "btc long",
		Symbol:       "BTCUSDT",
		Type:         model.StrategySimple,
		Side:         model.SideBuy,
		MarginAmount: 1000,
		Price:        100,
		FloatBP:      0,
		Leverage:     10,
		MarginType:   model.MarginIsolated,
		Config:       model.JSONMap{},
		State:        model.JSONMap{},
		IsActive:     true,
	}
	strat.ID = 9
	return strat
}

func TestFuturesTickWaitsForEntryPrice(t *testing.T) {
	store := &fakeFuturesStore{}
	executor := NewFuturesExecutor(nil, store)
	exch := newFakeFuturesExchange(101)

	require.NoError(t, executor.Tick(context.Background(), futuresFixture(), exch))
	assert.Empty(t, exch.placed)
}

func TestFuturesTickPlacesLeveragedOrder(t *testing.T) {
	store := &fakeFuturesStore{}
	executor := NewFuturesExecutor(nil, store)
	exch := newFakeFuturesExchange(99.8)

	strat := futuresFixture()
	require.NoError(t, executor.Tick(context.Background(), strat, exch))

	assert.Equal(t, 10, exch.leverage["BTCUSDT"])
	assert.Equal(t, "ISOLATED", exch.marginType["BTCUSDT"])

	require.Len(t, exch.placed, 1)
	// 1000 margin at 10x on a 100 entry buys 100 contracts
	assert.InDelta(t, 100.0, exch.placed[0].Quantity, 1e-9)
	assert.InDelta(t, 100.0, exch.placed[0].Price, 1e-9)

	assert.Equal(t, []uint{9}, store.completed)
	require.Len(t, store.orders, 1)
	assert.Equal(t, uint(9), *store.orders[0].StrategyID)
}

func TestFuturesOrderCarriesSymbolFilters(t *testing.T) {
	store := &fakeFuturesStore{}
	executor := NewFuturesExecutor(nil, store)
	exch := newFakeFuturesExchange(99.8)
	exch.filters = connectors.SymbolInfo{Symbol: "BTCUSDT", StepSize: 0.001, TickSize: 0.1}

	require.NoError(t, executor.Tick(context.Background(), futuresFixture(), exch))

	require.Len(t, exch.placed, 1)
	assert.Equal(t, 0.001, exch.placed[0].StepSize)
	assert.Equal(t, 0.1, exch.placed[0].TickSize)
}

func TestFuturesTickAutoRestart(t *testing.T) {
	store := &fakeFuturesStore{}
	executor := NewFuturesExecutor(nil, store)
	exch := newFakeFuturesExchange(99.8)

	strat := futuresFixture()
	strat.AutoRestart = true
	require.NoError(t, executor.Tick(context.Background(), strat, exch))

	assert.Empty(t, store.completed)
	assert.Contains(t, store.states, uint(9))
}
