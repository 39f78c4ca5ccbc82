package connectors

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

const httpTimeout = 10 * time.Second

// binanceAPIError is the body Binance returns alongside non-2xx statuses.
type binanceAPIError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// signature = hex( HMAC_SHA256(apiSecret, queryString) )
func binanceSignQuery(secret, query string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

type binanceRESTClient struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	recvWindow int64
	httpClient *http.Client
}

func newBinanceRESTClient(apiKey, apiSecret, baseURL string, recvWindow int64) *binanceRESTClient {
	return &binanceRESTClient{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		baseURL:    baseURL,
		recvWindow: recvWindow,
		httpClient: &http.Client{
			Timeout: httpTimeout,
		},
	}
}

// doRequest performs an HTTP call to Binance. Signed endpoints get the
// timestamp, recvWindow and signature appended to the query string.
func (c *binanceRESTClient) doRequest(method, endpoint string, params url.Values, signed bool) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}

	if signed {
		params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
		if c.recvWindow > 0 {
			params.Set("recvWindow", strconv.FormatInt(c.recvWindow, 10))
		}
	}

	// The signature must trail the rest of the query string.
	encoded := params.Encode()
	if signed {
		signature := binanceSignQuery(c.apiSecret, encoded)
		if encoded != "" {
			encoded += "&"
		}
		encoded += "signature=" + signature
	}

	fullURL := c.baseURL + endpoint
	if encoded != "" {
		fullURL += "?" + encoded
	}

	logger.WithFields(logger.Fields{
		"method": method,
		"url":    c.baseURL + endpoint,
	}).Debug("Binance HTTP request")

	req, err := http.NewRequest(method, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-MBX-APIKEY", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.WithError(err).Error("Binance HTTP request failed")
		return nil, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr binanceAPIError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Msg != "" {
			logger.WithFields(logger.Fields{
				"status": resp.StatusCode,
				"code":   apiErr.Code,
				"msg":    apiErr.Msg,
			}).Error("Binance API returned error code")
			return nil, fmt.Errorf("binance error code=%d msg=%s", apiErr.Code, apiErr.Msg)
		}
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// ---------------------------------------------------------------------
// result types
// ---------------------------------------------------------------------

type Balance struct {
	Asset  string  `json:"asset"`
	Free   float64 `json:"free"`
	Locked float64 `json:"locked"`
}

type SymbolInfo struct {
	Symbol      string  `json:"symbol"`
	BaseAsset   string  `json:"base_asset"`
	QuoteAsset  string  `json:"quote_asset"`
	Status      string  `json:"status"`
	StepSize    float64 `json:"step_size"`
	TickSize    float64 `json:"tick_size"`
	MinNotional float64 `json:"min_notional"`
}

type OrderResult struct {
	Symbol        string  `json:"symbol"`
	OrderID       string  `json:"order_id"`
	ClientOrderID string  `json:"client_order_id"`
	Side          string  `json:"side"`
	Type          string  `json:"type"`
	Status        string  `json:"status"`
	Price         float64 `json:"price"`
	OrigQty       float64 `json:"orig_qty"`
	ExecutedQty   float64 `json:"executed_qty"`
	QuoteQty      float64 `json:"cumulative_quote_qty"`
}

type PositionRisk struct {
	Symbol           string  `json:"symbol"`
	PositionSide     string  `json:"position_side"`
	PositionAmt      float64 `json:"position_amt"`
	EntryPrice       float64 `json:"entry_price"`
	MarkPrice        float64 `json:"mark_price"`
	UnrealizedProfit float64 `json:"unrealized_profit"`
	LiquidationPrice float64 `json:"liquidation_price"`
	Leverage         int     `json:"leverage"`
	MarginType       string  `json:"margin_type"`
	IsolatedMargin   float64 `json:"isolated_margin"`
}

type DualProduct struct {
	ProductID      string  `json:"product_id"`
	ProductName    string  `json:"product_name"`
	BaseAsset      string  `json:"base_asset"`
	QuoteAsset     string  `json:"quote_asset"`
	MinAmount      float64 `json:"min_amount"`
	MaxAmount      float64 `json:"max_amount"`
	Duration       int     `json:"duration"`
	SettlementDate string  `json:"settlement_date"`
	DeliveryPrice  float64 `json:"delivery_price"`
	YieldRate      float64 `json:"yield_rate"`
}

type WithdrawRecord struct {
	ID           string  `json:"id"`
	Asset        string  `json:"asset"`
	Amount       float64 `json:"amount"`
	Fee          float64 `json:"fee"`
	Address      string  `json:"address"`
	Network      string  `json:"network"`
	TxID         string  `json:"tx_id"`
	Status       string  `json:"status"`
	ApplyTime    int64   `json:"apply_time"`
	CompleteTime int64   `json:"complete_time"`
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// RoundToStep floors a value to the symbol's step size so the exchange
// does not reject the order with a LOT_SIZE filter failure.
func RoundToStep(value, step float64) float64 {
	if step <= 0 {
		return value
	}
	v := decimal.NewFromFloat(value)
	s := decimal.NewFromFloat(step)
	rounded, _ := v.Div(s).Floor().Mul(s).Float64()
	return rounded
}

// FormatQuantity renders a step-rounded value without float artifacts.
func FormatQuantity(value, step float64) string {
	if step <= 0 {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
	v := decimal.NewFromFloat(value)
	s := decimal.NewFromFloat(step)
	return v.Div(s).Floor().Mul(s).String()
}

func newClientOrderID() string {
	return "ta-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
}

// ---------------------------------------------------------------------
// high level connector (spot + futures)
// ---------------------------------------------------------------------

type BinanceConnector struct {
	spotClient    *binanceRESTClient
	futuresClient *binanceRESTClient

	spotFilters    symbolFilterCache
	futuresFilters symbolFilterCache
}

func NewBinanceConnector(apiKey, apiSecret string) *BinanceConnector {
	config := GetConfig()
	return &BinanceConnector{
		spotClient:    newBinanceRESTClient(apiKey, apiSecret, config.BinanceSpotBaseURL, config.RecvWindowMS),
		futuresClient: newBinanceRESTClient(apiKey, apiSecret, config.BinanceFuturesBaseURL, config.RecvWindowMS),
	}
}

// TestConnection verifies the credentials against the account endpoint.
func (b *BinanceConnector) TestConnection() error {
	if _, err := b.spotClient.doRequest(http.MethodGet, "/api/v3/account", nil, true); err != nil {
		return fmt.Errorf("spot account ping failed: %w", err)
	}
	return nil
}

// GetAccountBalances returns non-zero spot balances.
func (b *BinanceConnector) GetAccountBalances() ([]Balance, error) {
	resp, err := b.spotClient.doRequest(http.MethodGet, "/api/v3/account", nil, true)
	if err != nil {
		return nil, fmt.Errorf("fetch spot account: %w", err)
	}

	var account struct {
		Balances []struct {
			Asset  string `json:"asset"`
			Free   string `json:"free"`
			Locked string `json:"locked"`
		} `json:"balances"`
	}
	if err := json.Unmarshal(resp, &account); err != nil {
		return nil, fmt.Errorf("unmarshal spot account: %w", err)
	}

	balances := make([]Balance, 0, len(account.Balances))
	for _, raw := range account.Balances {
		free, locked := parseFloat(raw.Free), parseFloat(raw.Locked)
		if free == 0 && locked == 0 {
			continue
		}
		balances = append(balances, Balance{Asset: raw.Asset, Free: free, Locked: locked})
	}
	return balances, nil
}

// GetPrice returns the latest spot price for one symbol.
func (b *BinanceConnector) GetPrice(symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	resp, err := b.spotClient.doRequest(http.MethodGet, "/api/v3/ticker/price", params, false)
	if err != nil {
		return 0, fmt.Errorf("fetch ticker: %w", err)
	}

	var ticker struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(resp, &ticker); err != nil {
		return 0, fmt.Errorf("unmarshal ticker: %w", err)
	}
	price := parseFloat(ticker.Price)
	if price <= 0 {
		return 0, fmt.Errorf("invalid price for %s", symbol)
	}
	return price, nil
}

// GetPrices returns the latest price for every spot symbol.
func (b *BinanceConnector) GetPrices() (map[string]float64, error) {
	resp, err := b.spotClient.doRequest(http.MethodGet, "/api/v3/ticker/price", nil, false)
	if err != nil {
		return nil, fmt.Errorf("fetch tickers: %w", err)
	}

	var tickers []struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.Unmarshal(resp, &tickers); err != nil {
		return nil, fmt.Errorf("unmarshal tickers: %w", err)
	}

	prices := make(map[string]float64, len(tickers))
	for _, t := range tickers {
		prices[t.Symbol] = parseFloat(t.Price)
	}
	return prices, nil
}

func parseExchangeInfo(resp []byte) ([]SymbolInfo, error) {
	var info struct {
		Symbols []struct {
			Symbol     string `json:"symbol"`
			BaseAsset  string `json:"baseAsset"`
			QuoteAsset string `json:"quoteAsset"`
			Status     string `json:"status"`
			Filters    []struct {
				FilterType  string `json:"filterType"`
				StepSize    string `json:"stepSize"`
				TickSize    string `json:"tickSize"`
				MinNotional string `json:"minNotional"`
			} `json:"filters"`
		} `json:"symbols"`
	}
	if err := json.Unmarshal(resp, &info); err != nil {
		return nil, fmt.Errorf("unmarshal exchange info: %w", err)
	}

	symbols := make([]SymbolInfo, 0, len(info.Symbols))
	for _, raw := range info.Symbols {
		s := SymbolInfo{
			Symbol:     raw.Symbol,
			BaseAsset:  raw.BaseAsset,
			QuoteAsset: raw.QuoteAsset,
			Status:     raw.Status,
		}
		for _, f := range raw.Filters {
			switch f.FilterType {
			case "LOT_SIZE":
				s.StepSize = parseFloat(f.StepSize)
			case "PRICE_FILTER":
				s.TickSize = parseFloat(f.TickSize)
			case "MIN_NOTIONAL", "NOTIONAL":
				s.MinNotional = parseFloat(f.MinNotional)
			}
		}
		symbols = append(symbols, s)
	}
	return symbols, nil
}

// GetTradingSymbols lists tradable spot symbols with their filters.
func (b *BinanceConnector) GetTradingSymbols() ([]SymbolInfo, error) {
	resp, err := b.spotClient.doRequest(http.MethodGet, "/api/v3/exchangeInfo", nil, false)
	if err != nil {
		return nil, fmt.Errorf("fetch exchange info: %w", err)
	}
	return parseExchangeInfo(resp)
}

// GetFuturesTradingSymbols lists tradable USDT-margined futures symbols.
func (b *BinanceConnector) GetFuturesTradingSymbols() ([]SymbolInfo, error) {
	resp, err := b.futuresClient.doRequest(http.MethodGet, "/fapi/v1/exchangeInfo", nil, false)
	if err != nil {
		return nil, fmt.Errorf("fetch futures exchange info: %w", err)
	}
	return parseExchangeInfo(resp)
}

// filterCacheTTL bounds how long a cached exchange info snapshot serves
// filter lookups before it is refreshed.
const filterCacheTTL = time.Hour

// symbolFilterCache memoizes one exchange info payload. The payload
// covers every symbol and changes rarely, so order placement must not
// refetch it per order.
type symbolFilterCache struct {
	mu        sync.Mutex
	filters   map[string]SymbolInfo
	fetchedAt time.Time
}

func (c *symbolFilterCache) lookup(symbol string, fetch func() ([]SymbolInfo, error)) (SymbolInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.filters == nil || time.Since(c.fetchedAt) > filterCacheTTL {
		symbols, err := fetch()
		if err != nil {
			return SymbolInfo{}, err
		}
		c.filters = make(map[string]SymbolInfo, len(symbols))
		for _, s := range symbols {
			c.filters[s.Symbol] = s
		}
		c.fetchedAt = time.Now()
	}

	info, ok := c.filters[symbol]
	if !ok {
		return SymbolInfo{}, fmt.Errorf("symbol %s not in exchange info", symbol)
	}
	return info, nil
}

// SymbolFilters returns the LOT_SIZE and PRICE_FILTER constraints for
// one spot symbol.
func (b *BinanceConnector) SymbolFilters(symbol string) (SymbolInfo, error) {
	return b.spotFilters.lookup(symbol, b.GetTradingSymbols)
}

// FuturesSymbolFilters returns the filter constraints for one futures
// symbol.
func (b *BinanceConnector) FuturesSymbolFilters(symbol string) (SymbolInfo, error) {
	return b.futuresFilters.lookup(symbol, b.GetFuturesTradingSymbols)
}

type PlaceOrderParams struct {
	Symbol   string
	Side     string // BUY / SELL
	Type     string // LIMIT / MARKET
	Quantity float64
	Price    float64
	StepSize float64
	TickSize float64
}

func decodeOrderResult(resp []byte) (*OrderResult, error) {
	var raw struct {
		Symbol        string      `json:"symbol"`
		OrderID       json.Number `json:"orderId"`
		ClientOrderID string      `json:"clientOrderId"`
		Side          string      `json:"side"`
		Type          string      `json:"type"`
		Status        string      `json:"status"`
		Price         string      `json:"price"`
		OrigQty       string      `json:"origQty"`
		ExecutedQty   string      `json:"executedQty"`
		QuoteQty      string      `json:"cummulativeQuoteQty"`
		CumQuote      string      `json:"cumQuote"`
	}
	if err := json.Unmarshal(resp, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal order response: %w", err)
	}

	quote := raw.QuoteQty
	if quote == "" {
		quote = raw.CumQuote
	}
	return &OrderResult{
		Symbol:        raw.Symbol,
		OrderID:       raw.OrderID.String(),
		ClientOrderID: raw.ClientOrderID,
		Side:          strings.ToLower(raw.Side),
		Type:          strings.ToLower(raw.Type),
		Status:        strings.ToLower(raw.Status),
		Price:         parseFloat(raw.Price),
		OrigQty:       parseFloat(raw.OrigQty),
		ExecutedQty:   parseFloat(raw.ExecutedQty),
		QuoteQty:      parseFloat(quote),
	}, nil
}

// PlaceOrder submits a spot order, flooring quantity and price to the
// symbol's exchange filters first.
func (b *BinanceConnector) PlaceOrder(p PlaceOrderParams) (*OrderResult, error) {
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
	if strings.EqualFold(p.Type, "limit") {
		params.Set("timeInForce", "GTC")
		params.Set("price", FormatQuantity(p.Price, p.TickSize))
	}

	logger.WithFields(logger.Fields{
		"symbol": p.Symbol,
		"side":   p.Side,
		"type":   p.Type,
	}).Info("Placing Binance spot order")

	resp, err := b.spotClient.doRequest(http.MethodPost, "/api/v3/order", params, true)
	if err != nil {
		return nil, fmt.Errorf("place spot order: %w", err)
	}
	return decodeOrderResult(resp)
}

// GetOrder fetches the current state of one spot order.
func (b *BinanceConnector) GetOrder(symbol, orderID string) (*OrderResult, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)
	resp, err := b.spotClient.doRequest(http.MethodGet, "/api/v3/order", params, true)
	if err != nil {
		return nil, fmt.Errorf("fetch order: %w", err)
	}
	return decodeOrderResult(resp)
}

// CancelOrder cancels one spot order.
func (b *BinanceConnector) CancelOrder(symbol, orderID string) (*OrderResult, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)
	resp, err := b.spotClient.doRequest(http.MethodDelete, "/api/v3/order", params, true)
	if err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}
	return decodeOrderResult(resp)
}

// GetOpenOrders lists open spot orders, optionally scoped to one symbol.
func (b *BinanceConnector) GetOpenOrders(symbol string) ([]OrderResult, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", symbol)
	}
	resp, err := b.spotClient.doRequest(http.MethodGet, "/api/v3/openOrders", params, true)
	if err != nil {
		return nil, fmt.Errorf("fetch open orders: %w", err)
	}

	var rawOrders []json.RawMessage
	if err := json.Unmarshal(resp, &rawOrders); err != nil {
		return nil, fmt.Errorf("unmarshal open orders: %w", err)
	}
	orders := make([]OrderResult, 0, len(rawOrders))
	for _, raw := range rawOrders {
		order, err := decodeOrderResult(raw)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, nil
}

// Withdraw submits an on-chain withdrawal and returns the exchange id.
func (b *BinanceConnector) Withdraw(asset, address, network string, amount float64) (string, error) {
	params := url.Values{}
	params.Set("coin", asset)
	params.Set("address", address)
	params.Set("amount", strconv.FormatFloat(amount, 'f', -1, 64))
	if network != "" {
		params.Set("network", network)
	}

	logger.WithFields(logger.Fields{
		"asset":   asset,
		"network": network,
	}).Info("Submitting Binance withdrawal")

	resp, err := b.spotClient.doRequest(http.MethodPost, "/sapi/v1/capital/withdraw/apply", params, true)
	if err != nil {
		return "", fmt.Errorf("submit withdrawal: %w", err)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return "", fmt.Errorf("unmarshal withdrawal response: %w", err)
	}
	return result.ID, nil
}

// withdrawal status codes documented by Binance.
var withdrawStatusNames = map[int]string{
	0: "email_sent",
	1: "cancelled",
	2: "awaiting_approval",
	3: "rejected",
	4: "processing",
	5: "failure",
	6: "completed",
}

// GetWithdrawHistory lists recent withdrawals, optionally for one asset.
func (b *BinanceConnector) GetWithdrawHistory(asset string) ([]WithdrawRecord, error) {
	params := url.Values{}
	if asset != "" {
		params.Set("coin", asset)
	}
	resp, err := b.spotClient.doRequest(http.MethodGet, "/sapi/v1/capital/withdraw/history", params, true)
	if err != nil {
		return nil, fmt.Errorf("fetch withdraw history: %w", err)
	}

	var raw []struct {
		ID             string `json:"id"`
		Coin           string `json:"coin"`
		Amount         string `json:"amount"`
		TransactionFee string `json:"transactionFee"`
		Address        string `json:"address"`
		Network        string `json:"network"`
		TxID           string `json:"txId"`
		Status         int    `json:"status"`
		ApplyTime      string `json:"applyTime"`
		CompleteTime   string `json:"completeTime"`
	}
	if err := json.Unmarshal(resp, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal withdraw history: %w", err)
	}

	parseTime := func(s string) int64 {
		if s == "" {
			return 0
		}
		t, err := time.Parse("2006-01-02 15:04:05", s)
		if err != nil {
			return 0
		}
		return t.UnixMilli()
	}

	records := make([]WithdrawRecord, 0, len(raw))
	for _, r := range raw {
		status, ok := withdrawStatusNames[r.Status]
		if !ok {
			status = strconv.Itoa(r.Status)
		}
		records = append(records, WithdrawRecord{
			ID:           r.ID,
			Asset:        r.Coin,
			Amount:       parseFloat(r.Amount),
			Fee:          parseFloat(r.TransactionFee),
			Address:      r.Address,
			Network:      r.Network,
			TxID:         r.TxID,
			Status:       status,
			ApplyTime:    parseTime(r.ApplyTime),
			CompleteTime: parseTime(r.CompleteTime),
		})
	}
	return records, nil
}

// GetDualInvestmentProducts lists open dual-investment products.
func (b *BinanceConnector) GetDualInvestmentProducts(optionType, exercisedCoin, investCoin string) ([]DualProduct, error) {
	params := url.Values{}
	params.Set("optionType", optionType)
	params.Set("exercisedCoin", exercisedCoin)
	params.Set("investCoin", investCoin)
	resp, err := b.spotClient.doRequest(http.MethodGet, "/sapi/v1/dci/product/list", params, true)
	if err != nil {
		return nil, fmt.Errorf("fetch dual products: %w", err)
	}

	var result struct {
		List []struct {
			ID            string `json:"id"`
			InvestCoin    string `json:"investCoin"`
			ExercisedCoin string `json:"exercisedCoin"`
			StrikePrice   string `json:"strikePrice"`
			Duration      int    `json:"duration"`
			SettleDate    int64  `json:"settleDate"`
			Apr           string `json:"apr"`
			MinAmount     string `json:"minAmount"`
			MaxAmount     string `json:"maxAmount"`
			OptionType    string `json:"optionType"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("unmarshal dual products: %w", err)
	}

	products := make([]DualProduct, 0, len(result.List))
	for _, p := range result.List {
		products = append(products, DualProduct{
			ProductID:      p.ID,
			ProductName:    fmt.Sprintf("%s %s-%s %dd", p.OptionType, p.InvestCoin, p.ExercisedCoin, p.Duration),
			BaseAsset:      p.ExercisedCoin,
			QuoteAsset:     p.InvestCoin,
			MinAmount:      parseFloat(p.MinAmount),
			MaxAmount:      parseFloat(p.MaxAmount),
			Duration:       p.Duration,
			SettlementDate: time.UnixMilli(p.SettleDate).UTC().Format("2006-01-02"),
			DeliveryPrice:  parseFloat(p.StrikePrice),
			YieldRate:      parseFloat(p.Apr),
		})
	}
	return products, nil
}

// SubscribeDualInvestmentProduct subscribes to a product and returns the
// exchange position id.
func (b *BinanceConnector) SubscribeDualInvestmentProduct(productID string, amount float64, autoCompound bool) (string, error) {
	params := url.Values{}
	params.Set("id", productID)
	params.Set("depositAmount", strconv.FormatFloat(amount, 'f', -1, 64))
	if autoCompound {
		params.Set("autoCompoundPlan", "STANDARD")
	} else {
		params.Set("autoCompoundPlan", "NONE")
	}

	resp, err := b.spotClient.doRequest(http.MethodPost, "/sapi/v1/dci/product/subscribe", params, true)
	if err != nil {
		return "", fmt.Errorf("subscribe dual product: %w", err)
	}

	var result struct {
		PositionID json.Number `json:"positionId"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return "", fmt.Errorf("unmarshal subscribe response: %w", err)
	}
	return result.PositionID.String(), nil
}
