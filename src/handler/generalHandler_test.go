package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tradeadmin/src/connectors"
	"tradeadmin/src/model"
	"tradeadmin/src/repository"
)

type fakeOrderStore struct {
	created  []model.Order
	open     []model.Order
	byID     map[string]*model.Order
	updated  map[string]model.OrderStatus
	searched []model.Order
}

func (s *fakeOrderStore) Create(_ context.Context, order *model.Order) error {
	s.created = append(s.created, *order)
	return nil
}

func (s *fakeOrderStore) Search(_ context.Context, _ repository.OrderSearchOptions) ([]model.Order, int64, error) {
	return s.searched, int64(len(s.searched)), nil
}

func (s *fakeOrderStore) FindByExchangeID(_ context.Context, orderID string) (*model.Order, error) {
	order, ok := s.byID[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (s *fakeOrderStore) UpdateExecution(_ context.Context, orderID string, status model.OrderStatus, _, _ float64) error {
	if s.updated == nil {
		s.updated = map[string]model.OrderStatus{}
	}
	s.updated[orderID] = status
	return nil
}

func (s *fakeOrderStore) FindOpen(_ context.Context, _ uint) ([]model.Order, error) {
	return s.open, nil
}

// fakeExchangeClient stubs the connector surface the general handlers use.
type fakeExchangeClient struct {
	price              float64
	placed             []connectors.PlaceOrderParams
	cancelErr          map[string]error
	canceled           []string
	placeErr           error
	nextID             int
	symbolList         []connectors.SymbolInfo
	spotSymbolCalls    int
	futuresSymbolCalls int
}

func (f *fakeExchangeClient) TestConnection() error                             { return nil }
func (f *fakeExchangeClient) GetAccountBalances() ([]connectors.Balance, error) { return nil, nil }
func (f *fakeExchangeClient) GetFuturesBalances() ([]connectors.Balance, error) { return nil, nil }
func (f *fakeExchangeClient) GetPrice(string) (float64, error) {
	if f.price == 0 {
		return 0, fmt.Errorf("no price")
	}
	return f.price, nil
}
func (f *fakeExchangeClient) GetTradingSymbols() ([]connectors.SymbolInfo, error) {
	f.spotSymbolCalls++
	return f.symbolList, nil
}
func (f *fakeExchangeClient) GetFuturesTradingSymbols() ([]connectors.SymbolInfo, error) {
	f.futuresSymbolCalls++
	return f.symbolList, nil
}
func (f *fakeExchangeClient) SymbolFilters(symbol string) (connectors.SymbolInfo, error) {
	for _, s := range f.symbolList {
		if s.Symbol == symbol {
			return s, nil
		}
	}
	return connectors.SymbolInfo{}, fmt.Errorf("symbol %s not in exchange info", symbol)
}
func (f *fakeExchangeClient) PlaceOrder(p connectors.PlaceOrderParams) (*connectors.OrderResult, error) {
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	f.placed = append(f.placed, p)
	f.nextID++
	return &connectors.OrderResult{
		Symbol:  p.Symbol,
		OrderID: fmt.Sprintf("%d", f.nextID),
		Status:  "new",
		Price:   p.Price,
		OrigQty: p.Quantity,
	}, nil
}
func (f *fakeExchangeClient) GetOrder(_, orderID string) (*connectors.OrderResult, error) {
	return &connectors.OrderResult{OrderID: orderID, Status: "new"}, nil
}
func (f *fakeExchangeClient) CancelOrder(_, orderID string) (*connectors.OrderResult, error) {
	if err, ok := f.cancelErr[orderID]; ok {
		return nil, err
	}
	f.canceled = append(f.canceled, orderID)
	return &connectors.OrderResult{OrderID: orderID, Status: "canceled"}, nil
}
func (f *fakeExchangeClient) GetOpenOrders(string) ([]connectors.OrderResult, error) {
	return nil, nil
}
func (f *fakeExchangeClient) GetPositionRisk(string) ([]connectors.PositionRisk, error) {
	return nil, nil
}
func (f *fakeExchangeClient) GetDualInvestmentProducts(_, _, _ string) ([]connectors.DualProduct, error) {
	return nil, nil
}
func (f *fakeExchangeClient) GetWithdrawHistory(string) ([]connectors.WithdrawRecord, error) {
	return nil, nil
}

func fakeProvider(exch Exchange) ExchangeProvider {
	return func(*model.User) (Exchange, error) { return exch, nil }
}

func generalUser() *model.User {
	user := &model.User{Username: "alice", Status: model.StatusActive, Role: model.RoleUser}
	user.ID = 7
	return user
}

func TestPlaceOrderHandler(t *testing.T) {
	store := &fakeOrderStore{}
	exch := &fakeExchangeClient{}
	handler := PlaceOrderHandler(store, fakeProvider(exch))

	body := map[string]interface{}{
		"symbol": "BTCUSDT", "side": "buy", "type": "limit",
		"quantity": 0.5, "price": 50000.0,
	}
	req := authedRequest(t, http.MethodPost, "/api/orders", body, generalUser())
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, exch.placed, 1)
	assert.Equal(t, "BUY", exch.placed[0].Side)
	assert.Equal(t, "LIMIT", exch.placed[0].Type)

	require.Len(t, store.created, 1)
	assert.Equal(t, uint(7), store.created[0].UserID)
	assert.Equal(t, model.OrderStatusNew, store.created[0].Status)
	assert.Nil(t, store.created[0].StrategyID)
}

func TestPlaceOrderHandlerAppliesSymbolFilters(t *testing.T) {
	store := &fakeOrderStore{}
	exch := &fakeExchangeClient{symbolList: []connectors.SymbolInfo{
		{Symbol: "BTCUSDT", Status: "TRADING", StepSize: 0.001, TickSize: 0.01},
	}}
	handler := PlaceOrderHandler(store, fakeProvider(exch))

	body := map[string]interface{}{
		"symbol": "BTCUSDT", "side": "buy", "type": "limit",
		"quantity": 0.123456789, "price": 50000.123,
	}
	req := authedRequest(t, http.MethodPost, "/api/orders", body, generalUser())
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, exch.placed, 1)
	assert.Equal(t, 0.001, exch.placed[0].StepSize)
	assert.Equal(t, 0.01, exch.placed[0].TickSize)
}

func TestFuturesSymbolsHandlerSkipsSpotFetch(t *testing.T) {
	exch := &fakeExchangeClient{symbolList: []connectors.SymbolInfo{
		{Symbol: "BTCUSDT", Status: "TRADING"},
	}}
	handler := FuturesTradingSymbolsHandler(fakeProvider(exch))

	req := authedRequest(t, http.MethodGet, "/api/futures/trading-symbols", nil, generalUser())
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, exch.spotSymbolCalls)
	assert.Equal(t, 1, exch.futuresSymbolCalls)
}

func TestPlaceOrderHandlerRejectsLimitWithoutPrice(t *testing.T) {
	handler := PlaceOrderHandler(&fakeOrderStore{}, fakeProvider(&fakeExchangeClient{}))

	body := map[string]interface{}{
		"symbol": "BTCUSDT", "side": "buy", "type": "limit", "quantity": 0.5,
	}
	req := authedRequest(t, http.MethodPost, "/api/orders", body, generalUser())
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "price is required")
}

func TestCancelOrderHandlerChecksOwnership(t *testing.T) {
	other := model.Order{UserID: 99, Symbol: "BTCUSDT", OrderID: "55"}
	store := &fakeOrderStore{byID: map[string]*model.Order{"55": &other}}
	handler := CancelOrderHandler(store, fakeProvider(&fakeExchangeClient{}))

	body := map[string]string{"symbol": "BTCUSDT", "order_id": "55"}
	req := authedRequest(t, http.MethodPost, "/api/orders/cancel", body, generalUser())
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBatchCancelOrdersHandlerReportsPartialFailure(t *testing.T) {
	store := &fakeOrderStore{open: []model.Order{
		{UserID: 7, Symbol: "BTCUSDT", OrderID: "1", Status: model.OrderStatusNew},
		{UserID: 7, Symbol: "BTCUSDT", OrderID: "2", Status: model.OrderStatusNew},
		{UserID: 7, Symbol: "ETHUSDT", OrderID: "3", Status: model.OrderStatusNew},
	}}
	exch := &fakeExchangeClient{cancelErr: map[string]error{"2": fmt.Errorf("unknown order")}}
	handler := BatchCancelOrdersHandler(store, fakeProvider(exch))

	req := authedRequest(t, http.MethodPost, "/api/orders/batch-cancel?symbol=BTCUSDT", nil, generalUser())
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"1"}, exch.canceled)
	assert.Contains(t, rec.Body.String(), `"failed":{"2":"unknown order"}`)
	// the ETH order was filtered out, not canceled
	assert.NotContains(t, rec.Body.String(), `"3"`)
}

type fakePriceCache struct {
	prices map[string]*model.Price
}

func (c *fakePriceCache) Get(_ context.Context, symbol string) (*model.Price, error) {
	price, ok := c.prices[symbol]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return price, nil
}

func TestPriceHandlerFallsBackToCache(t *testing.T) {
	cache := &fakePriceCache{prices: map[string]*model.Price{
		"BTCUSDT": {Symbol: "BTCUSDT", Price: 61000},
	}}
	// live price unavailable, cached one serves
	handler := PriceHandler(fakeProvider(&fakeExchangeClient{}), cache)

	req := authedRequest(t, http.MethodGet, "/api/price?symbol=BTCUSDT", nil, generalUser())
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "61000")
}
