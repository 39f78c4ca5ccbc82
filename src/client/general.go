package client

import (
	"context"
	"net/http"
	"net/url"

	"tradeadmin/src/connectors"
	"tradeadmin/src/model"
)

// GeneralService covers account and market data endpoints that are not
// tied to a strategy type.
type GeneralService struct {
	c *Client
}

// AccountBalance groups spot and futures wallets; futures is nil when
// the account has no futures access.
type AccountBalance struct {
	Spot    []connectors.Balance `json:"spot"`
	Futures []connectors.Balance `json:"futures"`
}

type PriceQuote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// OrderFilter narrows the order search; zero values are ignored.
type OrderFilter struct {
	Symbol      string
	Status      string
	CreatedFrom string
	CreatedTo   string
	Page        int
	Limit       int
}

func (s *GeneralService) Balance(ctx context.Context) (*AccountBalance, error) {
	var balance AccountBalance
	if err := s.c.get(ctx, "/api/account/balance", nil, &balance); err != nil {
		return nil, err
	}
	return &balance, nil
}

func (s *GeneralService) Price(ctx context.Context, symbol string) (*PriceQuote, error) {
	query := url.Values{"symbol": {symbol}}
	var quote PriceQuote
	if err := s.c.get(ctx, "/api/price", query, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

func (s *GeneralService) TradingSymbols(ctx context.Context) ([]connectors.SymbolInfo, error) {
	var symbols []connectors.SymbolInfo
	if err := s.c.get(ctx, "/api/trading-symbols", nil, &symbols); err != nil {
		return nil, err
	}
	return symbols, nil
}

func (s *GeneralService) FuturesTradingSymbols(ctx context.Context) ([]connectors.SymbolInfo, error) {
	var symbols []connectors.SymbolInfo
	if err := s.c.get(ctx, "/api/futures/trading-symbols", nil, &symbols); err != nil {
		return nil, err
	}
	return symbols, nil
}

func (s *GeneralService) Orders(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error) {
	query := pageQuery(filter.Page, filter.Limit)
	if filter.Symbol != "" {
		query.Set("symbol", filter.Symbol)
	}
	if filter.Status != "" {
		query.Set("status", filter.Status)
	}
	if filter.CreatedFrom != "" {
		query.Set("createdFrom", filter.CreatedFrom)
	}
	if filter.CreatedTo != "" {
		query.Set("createdTo", filter.CreatedTo)
	}
	var orders []model.Order
	total, err := s.c.getPage(ctx, "/api/orders", query, &orders)
	return orders, total, err
}

// OrderRequest is the manual order form; Price is ignored for market
// orders.
type OrderRequest struct {
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Type     string  `json:"type"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

func (s *GeneralService) PlaceOrder(ctx context.Context, req OrderRequest) (*model.Order, error) {
	var order model.Order
	if err := s.c.post(ctx, "/api/orders", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *GeneralService) CancelOrder(ctx context.Context, symbol, orderID string) error {
	body := map[string]string{"symbol": symbol, "order_id": orderID}
	return s.c.post(ctx, "/api/orders/cancel", body, nil)
}

// BatchCancelResult reports which open orders were canceled and which
// failed with the exchange's error message.
type BatchCancelResult struct {
	Canceled []string          `json:"canceled"`
	Failed   map[string]string `json:"failed"`
}

func (s *GeneralService) BatchCancelOrders(ctx context.Context, symbol string) (*BatchCancelResult, error) {
	query := url.Values{}
	if symbol != "" {
		query.Set("symbol", symbol)
	}
	env, err := s.c.do(ctx, http.MethodPost, "/api/orders/batch-cancel", query, nil)
	if err != nil {
		return nil, err
	}
	var result BatchCancelResult
	if err := decodeData(env, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
