package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradeadmin/src/auth"
	"tradeadmin/src/connectors"
	"tradeadmin/src/model"
	"tradeadmin/src/repository"
	"tradeadmin/src/response"
)

type orderSearcher interface {
	Create(ctx context.Context, order *model.Order) error
	Search(ctx context.Context, opts repository.OrderSearchOptions) ([]model.Order, int64, error)
	FindByExchangeID(ctx context.Context, orderID string) (*model.Order, error)
	UpdateExecution(ctx context.Context, orderID string, status model.OrderStatus, executedQty, quoteQty float64) error
	FindOpen(ctx context.Context, userID uint) ([]model.Order, error)
}

type priceReader interface {
	Get(ctx context.Context, symbol string) (*model.Price, error)
}

// BalanceHandler aggregates spot and futures balances from the exchange.
func BalanceHandler(provider ExchangeProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		exchange, err := provider(user)
		if err != nil {
			if errors.Is(err, ErrNoAPIKeys) {
				response.Error(w, http.StatusBadRequest, "configure api keys first")
				return
			}
			logger.WithError(err).Error("failed to build exchange client")
			response.Error(w, http.StatusInternalServerError, "unable to fetch balance")
			return
		}

		spot, err := exchange.GetAccountBalances()
		if err != nil {
			logger.WithError(err).Error("failed to fetch spot balances")
			response.Error(w, http.StatusBadGateway, "exchange balance fetch failed")
			return
		}

		futures, err := exchange.GetFuturesBalances()
		if err != nil {
			// Futures may be disabled on the account; spot still renders.
			logger.WithError(err).Warn("failed to fetch futures balances")
			futures = nil
		}

		response.OK(w, map[string]interface{}{
			"spot":    spot,
			"futures": futures,
		})
	}
}

// PriceHandler serves the latest price, falling back to the local cache
// kept warm by the price monitor when the exchange call fails.
func PriceHandler(provider ExchangeProvider, prices priceReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		symbol := r.URL.Query().Get("symbol")
		if symbol == "" {
			response.Error(w, http.StatusBadRequest, "symbol is required")
			return
		}

		if exchange, err := provider(user); err == nil {
			if price, err := exchange.GetPrice(symbol); err == nil {
				response.OK(w, map[string]interface{}{"symbol": symbol, "price": price})
				return
			}
		}

		cached, err := prices.Get(r.Context(), symbol)
		if err != nil {
			response.Error(w, http.StatusNotFound, "price unavailable")
			return
		}
		response.OK(w, map[string]interface{}{
			"symbol":     cached.Symbol,
			"price":      cached.Price,
			"updated_at": cached.UpdatedAt,
		})
	}
}

// TradingSymbolsHandler lists tradable spot symbols.
func TradingSymbolsHandler(provider ExchangeProvider) http.HandlerFunc {
	return symbolsHandler(provider, false)
}

// FuturesTradingSymbolsHandler lists tradable futures symbols.
func FuturesTradingSymbolsHandler(provider ExchangeProvider) http.HandlerFunc {
	return symbolsHandler(provider, true)
}

func symbolsHandler(provider ExchangeProvider, futures bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		exchange, err := provider(user)
		if err != nil {
			if errors.Is(err, ErrNoAPIKeys) {
				response.Error(w, http.StatusBadRequest, "configure api keys first")
				return
			}
			logger.WithError(err).Error("failed to build exchange client")
			response.Error(w, http.StatusInternalServerError, "unable to list symbols")
			return
		}

		var symbols []connectors.SymbolInfo
		if futures {
			symbols, err = exchange.GetFuturesTradingSymbols()
		} else {
			symbols, err = exchange.GetTradingSymbols()
		}
		if err != nil {
			logger.WithError(err).Error("failed to fetch trading symbols")
			response.Error(w, http.StatusBadGateway, "exchange symbol fetch failed")
			return
		}

		tradable := symbols[:0]
		for _, s := range symbols {
			if s.Status == "TRADING" {
				tradable = append(tradable, s)
			}
		}
		response.OK(w, tradable)
	}
}

// SearchOrdersHandler lists orders for the authenticated user with
// pagination and filters (symbol, status, createdFrom, createdTo).
func SearchOrdersHandler(repo orderSearcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		page, limit := pagination(r)
		opts := repository.OrderSearchOptions{UserID: user.ID, Page: page, Limit: limit}

		if symbol := r.URL.Query().Get("symbol"); symbol != "" {
			opts.Symbol = &symbol
		}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status := model.OrderStatus(raw)
			opts.Status = &status
		}
		if raw := r.URL.Query().Get("createdFrom"); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "invalid createdFrom")
				return
			}
			opts.CreatedAfter = &parsed
		}
		if raw := r.URL.Query().Get("createdTo"); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "invalid createdTo")
				return
			}
			opts.CreatedBefore = &parsed
		}

		orders, total, err := repo.Search(r.Context(), opts)
		if err != nil {
			logger.WithError(err).Error("failed to search orders")
			response.Error(w, http.StatusInternalServerError, "unable to search orders")
			return
		}

		response.Page(w, orders, total, page, limit)
	}
}

type placeOrderPayload struct {
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Type     string  `json:"type"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

// PlaceOrderHandler submits a manual spot order and records it locally.
func PlaceOrderHandler(repo orderSearcher, provider ExchangeProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var payload placeOrderPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid payload")
			return
		}

		side := model.OrderSide(strings.ToLower(payload.Side))
		orderType := model.OrderType(strings.ToLower(payload.Type))
		switch {
		case payload.Symbol == "":
			response.Error(w, http.StatusBadRequest, "symbol is required")
			return
		case side != model.SideBuy && side != model.SideSell:
			response.Error(w, http.StatusBadRequest, "side must be buy or sell")
			return
		case orderType != model.OrderTypeLimit && orderType != model.OrderTypeMarket:
			response.Error(w, http.StatusBadRequest, "type must be limit or market")
			return
		case payload.Quantity <= 0:
			response.Error(w, http.StatusBadRequest, "quantity must be positive")
			return
		case orderType == model.OrderTypeLimit && payload.Price <= 0:
			response.Error(w, http.StatusBadRequest, "price is required for limit orders")
			return
		}

		exchange, err := provider(user)
		if err != nil {
			if errors.Is(err, ErrNoAPIKeys) {
				response.Error(w, http.StatusBadRequest, "configure api keys first")
				return
			}
			logger.WithError(err).Error("failed to build exchange client")
			response.Error(w, http.StatusInternalServerError, "unable to place order")
			return
		}

		params := connectors.PlaceOrderParams{
			Symbol:   payload.Symbol,
			Side:     strings.ToUpper(string(side)),
			Type:     strings.ToUpper(string(orderType)),
			Quantity: payload.Quantity,
			Price:    payload.Price,
		}
		// step and tick filters keep hand-typed quantities on the grid
		if filters, err := exchange.SymbolFilters(payload.Symbol); err != nil {
			logger.WithError(err).WithField("symbol", payload.Symbol).Warn("symbol filters unavailable, sending raw precision")
		} else {
			params.StepSize = filters.StepSize
			params.TickSize = filters.TickSize
		}

		result, err := exchange.PlaceOrder(params)
		if err != nil {
			logger.WithError(err).WithField("symbol", payload.Symbol).Error("order placement failed")
			response.Error(w, http.StatusBadGateway, "exchange rejected the order")
			return
		}

		order := &model.Order{
			UserID:        user.ID,
			Symbol:        payload.Symbol,
			OrderID:       result.OrderID,
			ClientOrderID: result.ClientOrderID,
			Side:          side,
			Type:          orderType,
			Quantity:      payload.Quantity,
			Price:         payload.Price,
			Status:        model.OrderStatus(strings.ToLower(result.Status)),
			ExecutedQty:   result.ExecutedQty,
			QuoteQty:      result.QuoteQty,
		}
		if err := repo.Create(r.Context(), order); err != nil {
			logger.WithError(err).WithField("order_id", result.OrderID).Error("order placed but not recorded")
		}

		logger.WithFields(logger.Fields{
			"user_id":  user.ID,
			"symbol":   payload.Symbol,
			"order_id": result.OrderID,
		}).Info("manual order placed")
		response.Created(w, order)
	}
}

type cancelOrderPayload struct {
	Symbol  string `json:"symbol"`
	OrderID string `json:"order_id"`
}

// CancelOrderHandler cancels one order on the exchange and records the
// terminal state locally.
func CancelOrderHandler(repo orderSearcher, provider ExchangeProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var payload cancelOrderPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid payload")
			return
		}
		if payload.Symbol == "" || payload.OrderID == "" {
			response.Error(w, http.StatusBadRequest, "symbol and order_id are required")
			return
		}

		order, err := repo.FindByExchangeID(r.Context(), payload.OrderID)
		if err != nil {
			logger.WithError(err).Error("failed to load order")
			response.Error(w, http.StatusInternalServerError, "unable to cancel order")
			return
		}
		if order == nil || order.UserID != user.ID {
			response.Error(w, http.StatusNotFound, "order not found")
			return
		}

		exchange, err := provider(user)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "configure api keys first")
			return
		}

		result, err := exchange.CancelOrder(payload.Symbol, payload.OrderID)
		if err != nil {
			logger.WithError(err).Error("failed to cancel order on exchange")
			response.Error(w, http.StatusBadGateway, "exchange cancel failed")
			return
		}

		if err := repo.UpdateExecution(r.Context(), payload.OrderID, model.OrderStatus(strings.ToLower(result.Status)), result.ExecutedQty, result.QuoteQty); err != nil {
			logger.WithError(err).Warn("failed to record cancellation")
		}

		response.OK(w, result)
	}
}

// BatchCancelOrdersHandler cancels every open order for a symbol. Partial
// failures are reported per order, not as an all-or-nothing error.
func BatchCancelOrdersHandler(repo orderSearcher, provider ExchangeProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		symbol := r.URL.Query().Get("symbol")

		open, err := repo.FindOpen(r.Context(), user.ID)
		if err != nil {
			logger.WithError(err).Error("failed to list open orders")
			response.Error(w, http.StatusInternalServerError, "unable to cancel orders")
			return
		}

		exchange, err := provider(user)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "configure api keys first")
			return
		}

		canceled := make([]string, 0, len(open))
		failed := make(map[string]string)
		for _, order := range open {
			if symbol != "" && order.Symbol != symbol {
				continue
			}
			result, err := exchange.CancelOrder(order.Symbol, order.OrderID)
			if err != nil {
				failed[order.OrderID] = err.Error()
				continue
			}
			if err := repo.UpdateExecution(r.Context(), order.OrderID, model.OrderStatus(strings.ToLower(result.Status)), result.ExecutedQty, result.QuoteQty); err != nil {
				logger.WithError(err).Warn("failed to record cancellation")
			}
			canceled = append(canceled, order.OrderID)
		}

		response.OK(w, map[string]interface{}{
			"canceled": canceled,
			"failed":   failed,
		})
	}
}

// DefaultOrderStore wires handlers to the production repository.
func DefaultOrderStore() orderSearcher {
	return repository.NewOrderRepository()
}

// DefaultPriceReader wires handlers to the production repository.
func DefaultPriceReader() priceReader {
	return repository.NewPriceRepository()
}
