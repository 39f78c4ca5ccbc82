package preview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeadmin/src/model"
)

func TestQuantityWeightsSumToOne(t *testing.T) {
	for layerCount := 5; layerCount <= 10; layerCount++ {
		weights := QuantityWeights(layerCount)
		require.Len(t, weights, layerCount)

		sum := 0.0
		for _, w := range weights {
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "layer count %d", layerCount)
	}
}

func TestQuantityWeightsTenLayerTable(t *testing.T) {
	expected := []float64{0.19, 0.17, 0.15, 0.13, 0.11, 0.09, 0.07, 0.05, 0.03, 0.01}
	assert.Equal(t, expected, QuantityWeights(10))
}

func TestQuantityWeightsDecreasing(t *testing.T) {
	for layerCount := 5; layerCount <= 10; layerCount++ {
		weights := QuantityWeights(layerCount)
		for i := 1; i < len(weights); i++ {
			assert.Less(t, weights[i], weights[i-1])
		}
	}
}

func TestBuildLayersFirstLayerPrice(t *testing.T) {
	layers := BuildLayers(LayerInput{
		TriggerPrice:      100,
		Side:              model.SideBuy,
		TotalQuantity:     10,
		LayerCount:        10,
		FirstLayerFloatBP: 10,
		FloatStepBP:       8,
	})
	require.Len(t, layers, 10)
	assert.InDelta(t, 99.9, layers[0].Price, 1e-9)
}

func TestBuildLayersBuySideStaysBelowTrigger(t *testing.T) {
	layers := BuildLayers(LayerInput{
		TriggerPrice:      60000,
		Side:              model.SideBuy,
		TotalQuantity:     2,
		LayerCount:        8,
		FirstLayerFloatBP: 5,
		FloatStepBP:       8,
	})
	require.Len(t, layers, 8)
	for i, layer := range layers {
		assert.LessOrEqual(t, layer.Price, 60000.0, "layer %d", i)
		if i > 1 {
			assert.LessOrEqual(t, layer.Price, layers[i-1].Price)
		}
	}
}

func TestBuildLayersSellSideStaysAboveTrigger(t *testing.T) {
	layers := BuildLayers(LayerInput{
		TriggerPrice:      60000,
		Side:              model.SideSell,
		TotalQuantity:     2,
		LayerCount:        7,
		FirstLayerFloatBP: 5,
		FloatStepBP:       8,
	})
	require.Len(t, layers, 7)
	for i, layer := range layers {
		assert.GreaterOrEqual(t, layer.Price, 60000.0, "layer %d", i)
		if i > 1 {
			assert.GreaterOrEqual(t, layer.Price, layers[i-1].Price)
		}
	}
}

func TestBuildLayersQuantitiesAndValues(t *testing.T) {
	layers := BuildLayers(LayerInput{
		TriggerPrice:  100,
		Side:          model.SideBuy,
		TotalQuantity: 10,
		LayerCount:    10,
		FloatStepBP:   8,
	})
	require.Len(t, layers, 10)

	totalQty := 0.0
	for _, layer := range layers {
		totalQty += layer.Quantity
		assert.InDelta(t, layer.Quantity*layer.Price, layer.Value, 1e-9)
	}
	assert.InDelta(t, 10.0, totalQty, 1e-9)
	assert.InDelta(t, 1.9, layers[0].Quantity, 1e-9)
	assert.InDelta(t, 0.1, layers[9].Quantity, 1e-9)
}

func TestBuildLayersOverrides(t *testing.T) {
	quantities := []float64{5, 3, 2, 1, 1}
	floats := []float64{2, 4, 6, 8, 10}
	layers := BuildLayers(LayerInput{
		TriggerPrice:    100,
		Side:            model.SideSell,
		TotalQuantity:   12,
		LayerCount:      5,
		LayerQuantities: quantities,
		LayerFloatBPs:   floats,
	})
	require.Len(t, layers, 5)
	for i, layer := range layers {
		assert.Equal(t, quantities[i], layer.Quantity)
		assert.InDelta(t, 100*(1+floats[i]/10000), layer.Price, 1e-9)
	}
}

func TestBuildLayersSuppressedOnInvalidInput(t *testing.T) {
	assert.Nil(t, BuildLayers(LayerInput{TriggerPrice: 0, TotalQuantity: 10, LayerCount: 10}))
	assert.Nil(t, BuildLayers(LayerInput{TriggerPrice: 100, TotalQuantity: 0, LayerCount: 10}))
	assert.Nil(t, BuildLayers(LayerInput{TriggerPrice: 100, TotalQuantity: 10, LayerCount: 0}))
}
