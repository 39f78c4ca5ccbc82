// Package preview holds the pure order estimators shown before a strategy
// is submitted. Everything here is deterministic and side-effect free so
// the same derivation runs in the API, the executor and the console.
package preview

import (
	"tradeadmin/src/model"
)

// fixed decreasing split used when exactly ten layers are requested.
var tenLayerWeights = []float64{0.19, 0.17, 0.15, 0.13, 0.11, 0.09, 0.07, 0.05, 0.03, 0.01}

// QuantityWeights returns the per-layer quantity fractions, summing to 1.
// Ten layers reproduce the fixed product table; every other count falls
// back to a normalized decreasing arithmetic sequence. The two shapes are
// an intentional product decision, not interchangeable approximations.
func QuantityWeights(layerCount int) []float64 {
	if layerCount <= 0 {
		return nil
	}
	if layerCount == len(tenLayerWeights) {
		weights := make([]float64, len(tenLayerWeights))
		copy(weights, tenLayerWeights)
		return weights
	}
	total := float64(layerCount*(layerCount+1)) / 2
	weights := make([]float64, layerCount)
	for i := range weights {
		weights[i] = float64(layerCount-i) / total
	}
	return weights
}

type LayerInput struct {
	TriggerPrice      float64
	Side              model.OrderSide
	TotalQuantity     float64
	LayerCount        int
	FirstLayerFloatBP float64
	FloatStepBP       float64

	// Optional per-layer overrides. When present they win over the
	// derived weights and default float progression.
	LayerQuantities []float64
	LayerFloatBPs   []float64
}

type Layer struct {
	Index    int     `json:"index"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	FloatBP  float64 `json:"float_bp"`
	Value    float64 `json:"value"`
}

// FloatedPrice applies a basis-point float in the direction that works in
// the order's favor: buys float below the trigger, sells above it.
func FloatedPrice(trigger float64, side model.OrderSide, floatBP float64) float64 {
	rate := floatBP / 10000
	if side == model.SideSell {
		return trigger * (1 + rate)
	}
	return trigger * (1 - rate)
}

// BuildLayers derives the full layer table for an iceberg order. A zero or
// missing trigger price or quantity suppresses the preview entirely.
func BuildLayers(in LayerInput) []Layer {
	if in.TriggerPrice <= 0 || in.TotalQuantity <= 0 || in.LayerCount <= 0 {
		return nil
	}

	weights := QuantityWeights(in.LayerCount)
	layers := make([]Layer, in.LayerCount)
	for i := range layers {
		quantity := in.TotalQuantity * weights[i]
		if i < len(in.LayerQuantities) && in.LayerQuantities[i] > 0 {
			quantity = in.LayerQuantities[i]
		}

		floatBP := in.FirstLayerFloatBP
		if i > 0 {
			floatBP = float64(i) * in.FloatStepBP
		}
		if i < len(in.LayerFloatBPs) && in.LayerFloatBPs[i] > 0 {
			floatBP = in.LayerFloatBPs[i]
		}

		price := FloatedPrice(in.TriggerPrice, in.Side, floatBP)
		layers[i] = Layer{
			Index:    i,
			Quantity: quantity,
			Price:    price,
			FloatBP:  floatBP,
			Value:    quantity * price,
		}
	}
	return layers
}
