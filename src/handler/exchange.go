package handler

import (
	"errors"

	"tradeadmin/src/connectors"
	"tradeadmin/src/model"
	"tradeadmin/src/security"
)

// ErrNoAPIKeys is returned when a user has not stored exchange credentials.
var ErrNoAPIKeys = errors.New("no api keys configured")

// Exchange is the slice of the connector surface the handlers call.
type Exchange interface {
	TestConnection() error
	GetAccountBalances() ([]connectors.Balance, error)
	GetFuturesBalances() ([]connectors.Balance, error)
	GetPrice(symbol string) (float64, error)
	GetTradingSymbols() ([]connectors.SymbolInfo, error)
	GetFuturesTradingSymbols() ([]connectors.SymbolInfo, error)
	SymbolFilters(symbol string) (connectors.SymbolInfo, error)
	PlaceOrder(params connectors.PlaceOrderParams) (*connectors.OrderResult, error)
	GetOrder(symbol, orderID string) (*connectors.OrderResult, error)
	CancelOrder(symbol, orderID string) (*connectors.OrderResult, error)
	GetOpenOrders(symbol string) ([]connectors.OrderResult, error)
	GetPositionRisk(symbol string) ([]connectors.PositionRisk, error)
	GetDualInvestmentProducts(optionType, exercisedCoin, investCoin string) ([]connectors.DualProduct, error)
	GetWithdrawHistory(asset string) ([]connectors.WithdrawRecord, error)
}

// ExchangeProvider builds an exchange client for the requesting user.
type ExchangeProvider func(user *model.User) (Exchange, error)

// DefaultExchangeProvider decrypts the user's stored credentials and
// returns a live Binance connector.
func DefaultExchangeProvider(cipher *security.Cipher) ExchangeProvider {
	return func(user *model.User) (Exchange, error) {
		if user.APIKey == "" || user.SecretKey == "" {
			return nil, ErrNoAPIKeys
		}
		apiKey, err := cipher.DecryptString(user.APIKey)
		if err != nil {
			return nil, err
		}
		secretKey, err := cipher.DecryptString(user.SecretKey)
		if err != nil {
			return nil, err
		}
		return connectors.NewBinanceConnector(apiKey, secretKey), nil
	}
}
