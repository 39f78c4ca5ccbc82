package preview

import (
	"tradeadmin/src/model"
)

// FeeRate is the taker fee charged on both entry and exit.
const FeeRate = 0.0004

type FuturesInput struct {
	MarginAmount float64
	Leverage     int
	Price        float64
	Side         model.OrderSide
	TakeProfitBP int
	StopLossBP   int
	FloatBP      float64
}

type FuturesEstimate struct {
	Notional         float64 `json:"notional"`
	Quantity         float64 `json:"quantity"`
	ActualPrice      float64 `json:"actual_price"`
	EstimatedProfit  float64 `json:"estimated_profit"`
	EstimatedLoss    float64 `json:"estimated_loss"`
	LiquidationPrice float64 `json:"liquidation_price"`
}

// EstimateFutures derives notional, fill quantity, round-trip PnL targets
// and an isolated-margin liquidation price. The liquidation formula is a
// first-order approximation that ignores maintenance margin tiers.
func EstimateFutures(in FuturesInput) *FuturesEstimate {
	if in.MarginAmount <= 0 || in.Price <= 0 || in.Leverage < 1 {
		return nil
	}

	leverage := float64(in.Leverage)
	notional := in.MarginAmount * leverage
	quantity := notional / in.Price
	actual := FloatedPrice(in.Price, in.Side, in.FloatBP)

	fees := notional * FeeRate * 2
	profit := notional*(float64(in.TakeProfitBP)/10000) - fees
	loss := notional*(float64(in.StopLossBP)/10000) + fees

	var liquidation float64
	if in.Side == model.SideSell {
		liquidation = actual * (1 + 1/leverage - FeeRate)
	} else {
		liquidation = actual * (1 - 1/leverage + FeeRate)
	}

	return &FuturesEstimate{
		Notional:         notional,
		Quantity:         quantity,
		ActualPrice:      actual,
		EstimatedProfit:  profit,
		EstimatedLoss:    loss,
		LiquidationPrice: liquidation,
	}
}
