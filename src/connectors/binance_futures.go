package connectors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	logger "github.com/sirupsen/logrus"
)

// GetFuturesPrice returns the latest mark price for a futures symbol.
func (b *BinanceConnector) GetFuturesPrice(symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	resp, err := b.futuresClient.doRequest(http.MethodGet, "/fapi/v1/ticker/price", params, false)
	if err != nil {
		return 0, fmt.Errorf("fetch futures ticker: %w", err)
	}

	var ticker struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(resp, &ticker); err != nil {
		return 0, fmt.Errorf("unmarshal futures ticker: %w", err)
	}
	price := parseFloat(ticker.Price)
	if price <= 0 {
		return 0, fmt.Errorf("invalid futures price for %s", symbol)
	}
	return price, nil
}

// GetFuturesBalances returns non-zero USDT-margined futures balances.
func (b *BinanceConnector) GetFuturesBalances() ([]Balance, error) {
	resp, err := b.futuresClient.doRequest(http.MethodGet, "/fapi/v2/balance", nil, true)
	if err != nil {
		return nil, fmt.Errorf("fetch futures balances: %w", err)
	}

	var raw []struct {
		Asset            string `json:"asset"`
		Balance          string `json:"balance"`
		AvailableBalance string `json:"availableBalance"`
	}
	if err := json.Unmarshal(resp, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal futures balances: %w", err)
	}

	balances := make([]Balance, 0, len(raw))
	for _, r := range raw {
		total := parseFloat(r.Balance)
		if total == 0 {
			continue
		}
		avail := parseFloat(r.AvailableBalance)
		balances = append(balances, Balance{Asset: r.Asset, Free: avail, Locked: total - avail})
	}
	return balances, nil
}

// SetFuturesLeverage sets the leverage for a futures symbol.
func (b *BinanceConnector) SetFuturesLeverage(symbol string, leverage int) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("leverage", strconv.Itoa(leverage))

	if _, err := b.futuresClient.doRequest(http.MethodPost, "/fapi/v1/leverage", params, true); err != nil {
		return fmt.Errorf("set leverage: %w", err)
	}
	return nil
}

// SetFuturesMarginType switches a symbol between isolated and cross
// margin. The exchange answers with an error when the type is already
// set, which callers treat as success.
func (b *BinanceConnector) SetFuturesMarginType(symbol, marginType string) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("marginType", strings.ToUpper(marginType))

	if _, err := b.futuresClient.doRequest(http.MethodPost, "/fapi/v1/marginType", params, true); err != nil {
		if strings.Contains(err.Error(), "code=-4046") {
			// No need to change margin type.
			return nil
		}
		return fmt.Errorf("set margin type: %w", err)
	}
	return nil
}

type PlaceFuturesOrderParams struct {
	Symbol       string
	Side         string // BUY / SELL
	PositionSide string // LONG / SHORT, empty for one-way mode
	Type         string // LIMIT / MARKET
	Quantity     float64
	Price        float64
	StepSize     float64
	TickSize     float64
	ReduceOnly   bool
}

// PlaceFuturesOrder submits a USDT-margined futures order.
func (b *BinanceConnector) PlaceFuturesOrder(p PlaceFuturesOrderParams) (*OrderResult, error) {
	if p.Symbol == "" || p.Side == "" {
		return nil, fmt.Errorf("symbol and side are required")
	}
	if p.Quantity <= 0 {
		return nil, fmt.Errorf("order quantity must be greater than zero")
	}

	params := url.Values{}
	params.Set("symbol", p.Symbol)
	params.Set("side", strings.ToUpper(p.Side))
	params.Set("type", strings.ToUpper(p.Type))
	params.Set("quantity", FormatQuantity(p.Quantity, p.StepSize))
	params.Set("newClientOrderId", newClientOrderID())
	if p.PositionSide != "" {
		params.Set("positionSide", strings.ToUpper(p.PositionSide))
	}
	if p.ReduceOnly {
		params.Set("reduceOnly", "true")
	}
	if strings.EqualFold(p.Type, "limit") {
		params.Set("timeInForce", "GTC")
		params.Set("price", FormatQuantity(p.Price, p.TickSize))
	}

	logger.WithFields(logger.Fields{
		"symbol": p.Symbol,
		"side":   p.Side,
		"type":   p.Type,
	}).Info("Placing Binance futures order")

	resp, err := b.futuresClient.doRequest(http.MethodPost, "/fapi/v1/order", params, true)
	if err != nil {
		return nil, fmt.Errorf("place futures order: %w", err)
	}
	return decodeOrderResult(resp)
}

// GetFuturesOrder fetches the current state of one futures order.
func (b *BinanceConnector) GetFuturesOrder(symbol, orderID string) (*OrderResult, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)
	resp, err := b.futuresClient.doRequest(http.MethodGet, "/fapi/v1/order", params, true)
	if err != nil {
		return nil, fmt.Errorf("fetch futures order: %w", err)
	}
	return decodeOrderResult(resp)
}

// CancelFuturesOrder cancels one futures order.
func (b *BinanceConnector) CancelFuturesOrder(symbol, orderID string) (*OrderResult, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)
	resp, err := b.futuresClient.doRequest(http.MethodDelete, "/fapi/v1/order", params, true)
	if err != nil {
		return nil, fmt.Errorf("cancel futures order: %w", err)
	}
	return decodeOrderResult(resp)
}

// GetPositionRisk returns open futures positions, optionally for one symbol.
func (b *BinanceConnector) GetPositionRisk(symbol string) ([]PositionRisk, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", symbol)
	}
	resp, err := b.futuresClient.doRequest(http.MethodGet, "/fapi/v2/positionRisk", params, true)
	if err != nil {
		return nil, fmt.Errorf("fetch position risk: %w", err)
	}

	var raw []struct {
		Symbol           string `json:"symbol"`
		PositionSide     string `json:"positionSide"`
		PositionAmt      string `json:"positionAmt"`
		EntryPrice       string `json:"entryPrice"`
		MarkPrice        string `json:"markPrice"`
		UnRealizedProfit string `json:"unRealizedProfit"`
		LiquidationPrice string `json:"liquidationPrice"`
		Leverage         string `json:"leverage"`
		MarginType       string `json:"marginType"`
		IsolatedMargin   string `json:"isolatedMargin"`
	}
	if err := json.Unmarshal(resp, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal position risk: %w", err)
	}

	positions := make([]PositionRisk, 0, len(raw))
	for _, r := range raw {
		amt := parseFloat(r.PositionAmt)
		if amt == 0 {
			continue
		}
		leverage, _ := strconv.Atoi(r.Leverage)
		positions = append(positions, PositionRisk{
			Symbol:           r.Symbol,
			PositionSide:     strings.ToLower(r.PositionSide),
			PositionAmt:      amt,
			EntryPrice:       parseFloat(r.EntryPrice),
			MarkPrice:        parseFloat(r.MarkPrice),
			UnrealizedProfit: parseFloat(r.UnRealizedProfit),
			LiquidationPrice: parseFloat(r.LiquidationPrice),
			Leverage:         leverage,
			MarginType:       strings.ToLower(r.MarginType),
			IsolatedMargin:   parseFloat(r.IsolatedMargin),
		})
	}
	return positions, nil
}
