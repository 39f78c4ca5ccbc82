package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeadmin/src/model"
)

func validIcebergStrategy() *model.Strategy {
	return &model.Strategy{
		Name:         "btc accumulation",
		Symbol:       "BTCUSDT",
		Type:         model.StrategyIceberg,
		Side:         model.SideBuy,
		Quantity:     1.5,
		TriggerPrice: 60000,
		Config: model.JSONMap{
			"layers":      float64(8),
			"price_float": float64(5),
		},
	}
}

func TestStrategyValid(t *testing.T) {
	assert.NoError(t, Strategy(validIcebergStrategy()))
}

func TestStrategyRejectsBadFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Strategy)
		field  string
	}{
		{"empty name", func(s *model.Strategy) { s.Name = "" }, "name"},
		{"empty symbol", func(s *model.Strategy) { s.Symbol = "" }, "symbol"},
		{"bad side", func(s *model.Strategy) { s.Side = "hold" }, "side"},
		{"zero quantity", func(s *model.Strategy) { s.Quantity = 0 }, "quantity"},
		{"zero trigger", func(s *model.Strategy) { s.TriggerPrice = 0 }, "trigger_price"},
		{"unknown type", func(s *model.Strategy) { s.Type = "grid" }, "type"},
		{"too few layers", func(s *model.Strategy) { s.Config["layers"] = float64(4) }, "config.layers"},
		{"too many layers", func(s *model.Strategy) { s.Config["layers"] = float64(11) }, "config.layers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validIcebergStrategy()
			tt.mutate(s)
			err := Strategy(s)
			require.Error(t, err)
			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestParseStrategyConfigDefaults(t *testing.T) {
	cfg, err := ParseStrategyConfig(model.StrategyIceberg, model.JSONMap{})
	require.NoError(t, err)

	iceberg, ok := cfg.(*IcebergConfig)
	require.True(t, ok)
	assert.Equal(t, DefaultLayers, iceberg.Layers)
	assert.Equal(t, float64(DefaultFloatStepBP), iceberg.FloatStepBP)
}

func TestParseStrategyConfigDispatch(t *testing.T) {
	simple, err := ParseStrategyConfig(model.StrategySimple, model.JSONMap{"price_float": float64(12)})
	require.NoError(t, err)
	assert.IsType(t, &SimpleConfig{}, simple)
	assert.Equal(t, float64(12), simple.(*SimpleConfig).PriceFloatBP)

	slow, err := ParseStrategyConfig(model.StrategySlowIceberg, model.JSONMap{"timeout": float64(30)})
	require.NoError(t, err)
	assert.IsType(t, &SlowIcebergConfig{}, slow)
	assert.NoError(t, slow.Validate())

	_, err = ParseStrategyConfig("martingale", model.JSONMap{})
	assert.Error(t, err)
}

func TestSlowIcebergRequiresTimeout(t *testing.T) {
	cfg, err := ParseStrategyConfig(model.StrategySlowIceberg, model.JSONMap{})
	require.NoError(t, err)
	err = cfg.Validate()
	require.Error(t, err)
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "config.timeout", fe.Field)
}

func TestIcebergLayerArraysMustMatchLayerCount(t *testing.T) {
	cfg := &IcebergConfig{
		Layers:          6,
		LayerQuantities: []float64{1, 2, 3},
	}
	err := cfg.Validate()
	require.Error(t, err)
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "config.layer_quantities", fe.Field)
}

func TestFuturesStrategyLeverageBounds(t *testing.T) {
	base := func() *model.FuturesStrategy {
		return &model.FuturesStrategy{
			Name:         "eth long",
			Symbol:       "ETHUSDT",
			Type:         model.StrategySimple,
			Side:         model.SideBuy,
			MarginAmount: 1000,
			Price:        3000,
			Leverage:     8,
			MarginType:   model.MarginIsolated,
		}
	}

	assert.NoError(t, FuturesStrategy(base()))

	s := base()
	s.Leverage = 0
	assert.Error(t, FuturesStrategy(s))

	s = base()
	s.Leverage = 21
	assert.Error(t, FuturesStrategy(s))

	s = base()
	s.MarginType = "portfolio"
	assert.Error(t, FuturesStrategy(s))
}

func TestWithdrawalRule(t *testing.T) {
	valid := &model.Withdrawal{Asset: "USDT", Address: "0xabc", Amount: 100}
	assert.NoError(t, Withdrawal(valid))

	assert.Error(t, Withdrawal(&model.Withdrawal{Address: "0xabc", Amount: 100}))
	assert.Error(t, Withdrawal(&model.Withdrawal{Asset: "USDT", Amount: 100}))
	assert.Error(t, Withdrawal(&model.Withdrawal{Asset: "USDT", Address: "0xabc"}))
	assert.Error(t, Withdrawal(&model.Withdrawal{Asset: "USDT", Address: "0xabc", Amount: 10, MinBalance: -1}))
}

func TestPasswordPolicy(t *testing.T) {
	assert.NoError(t, Password("Str0ng!pass"))
	assert.Error(t, Password("short1!"))
	assert.Error(t, Password("alllowercase1!"))
	assert.Error(t, Password("ALLUPPERCASE1!"))
	assert.Error(t, Password("NoDigitsHere!"))
	assert.Error(t, Password("NoSpecials123"))
}

func TestUsernameAndEmail(t *testing.T) {
	assert.NoError(t, Username("trader_42"))
	assert.Error(t, Username("ab"))
	assert.Error(t, Username("bad name"))

	assert.NoError(t, Email("ops@example.com"))
	assert.Error(t, Email("not-an-email"))
}
