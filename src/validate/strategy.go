package validate

import (
	"tradeadmin/src/model"
)

const (
	MinLayers = 5
	MaxLayers = 10

	DefaultLayers      = 10
	DefaultFloatStepBP = 8
)

// StrategyConfig is the tagged union behind the free-form config column.
// The concrete shape is selected by the strategy type, so switching the
// sub-type always re-validates against the matching schema.
type StrategyConfig interface {
	Validate() error
}

type SimpleConfig struct {
	PriceFloatBP   float64
	TimeoutMinutes int
}

func (c *SimpleConfig) Validate() error {
	if c.PriceFloatBP < 0 || c.PriceFloatBP > 10000 {
		return fieldErr("config.price_float", "must be between 0 and 10000 basis points")
	}
	if c.TimeoutMinutes < 0 {
		return fieldErr("config.timeout", "must not be negative")
	}
	return nil
}

type IcebergConfig struct {
	Layers            int
	FirstLayerFloatBP float64
	FloatStepBP       float64
	LayerQuantities   []float64
	LayerPriceFloats  []float64
	TimeoutMinutes    int
}

func (c *IcebergConfig) Validate() error {
	if c.Layers < MinLayers || c.Layers > MaxLayers {
		return fieldErr("config.layers", "must be between 5 and 10")
	}
	if c.FirstLayerFloatBP < 0 || c.FirstLayerFloatBP > 10000 {
		return fieldErr("config.price_float", "must be between 0 and 10000 basis points")
	}
	if c.FloatStepBP < 0 || c.FloatStepBP > 10000 {
		return fieldErr("config.price_float_step", "must be between 0 and 10000 basis points")
	}
	if len(c.LayerQuantities) != 0 && len(c.LayerQuantities) != c.Layers {
		return fieldErr("config.layer_quantities", "must list one quantity per layer")
	}
	for _, q := range c.LayerQuantities {
		if q <= 0 {
			return fieldErr("config.layer_quantities", "quantities must be greater than 0")
		}
	}
	if len(c.LayerPriceFloats) != 0 && len(c.LayerPriceFloats) != c.Layers {
		return fieldErr("config.layer_price_floats", "must list one float per layer")
	}
	for _, bp := range c.LayerPriceFloats {
		if bp < 0 || bp > 10000 {
			return fieldErr("config.layer_price_floats", "floats must be between 0 and 10000 basis points")
		}
	}
	if c.TimeoutMinutes < 0 {
		return fieldErr("config.timeout", "must not be negative")
	}
	return nil
}

// SlowIcebergConfig places one layer at a time, so a timeout is mandatory
// to keep a stuck layer from blocking the sequence forever.
type SlowIcebergConfig struct {
	IcebergConfig
}

func (c *SlowIcebergConfig) Validate() error {
	if err := c.IcebergConfig.Validate(); err != nil {
		return err
	}
	if c.TimeoutMinutes < 1 {
		return fieldErr("config.timeout", "must be at least 1 minute")
	}
	return nil
}

func parseIcebergConfig(cfg model.JSONMap) IcebergConfig {
	parsed := IcebergConfig{
		Layers:      DefaultLayers,
		FloatStepBP: DefaultFloatStepBP,
	}
	if v, ok := cfg.Float("layers"); ok {
		parsed.Layers = int(v)
	}
	if v, ok := cfg.Float("price_float"); ok {
		parsed.FirstLayerFloatBP = v
	}
	if v, ok := cfg.Float("price_float_step"); ok {
		parsed.FloatStepBP = v
	}
	if v, ok := cfg.Floats("layer_quantities"); ok {
		parsed.LayerQuantities = v
	}
	if v, ok := cfg.Floats("layer_price_floats"); ok {
		parsed.LayerPriceFloats = v
	}
	if v, ok := cfg.Float("timeout"); ok {
		parsed.TimeoutMinutes = int(v)
	}
	return parsed
}

// ParseStrategyConfig decodes the config map into the sub-type schema.
func ParseStrategyConfig(strategyType model.StrategyType, cfg model.JSONMap) (StrategyConfig, error) {
	switch strategyType {
	case model.StrategySimple:
		parsed := &SimpleConfig{}
		if v, ok := cfg.Float("price_float"); ok {
			parsed.PriceFloatBP = v
		}
		if v, ok := cfg.Float("timeout"); ok {
			parsed.TimeoutMinutes = int(v)
		}
		return parsed, nil
	case model.StrategyIceberg:
		parsed := &IcebergConfig{}
		*parsed = parseIcebergConfig(cfg)
		return parsed, nil
	case model.StrategySlowIceberg:
		return &SlowIcebergConfig{IcebergConfig: parseIcebergConfig(cfg)}, nil
	default:
		return nil, fieldErr("type", "must be simple, iceberg or slow_iceberg")
	}
}

// Strategy validates a spot strategy together with its sub-type config.
func Strategy(s *model.Strategy) error {
	if err := Name(s.Name); err != nil {
		return err
	}
	if err := Symbol(s.Symbol); err != nil {
		return err
	}
	if s.Side != model.SideBuy && s.Side != model.SideSell {
		return fieldErr("side", "must be buy or sell")
	}
	if s.Quantity <= 0 {
		return fieldErr("quantity", "must be greater than 0")
	}
	if s.TriggerPrice <= 0 {
		return fieldErr("trigger_price", "must be greater than 0")
	}
	cfg, err := ParseStrategyConfig(s.Type, s.Config)
	if err != nil {
		return err
	}
	return cfg.Validate()
}

// FuturesStrategy validates a futures strategy request.
func FuturesStrategy(s *model.FuturesStrategy) error {
	if err := Name(s.Name); err != nil {
		return err
	}
	if err := Symbol(s.Symbol); err != nil {
		return err
	}
	if s.Side != model.SideBuy && s.Side != model.SideSell {
		return fieldErr("side", "must be buy or sell")
	}
	if s.MarginAmount <= 0 {
		return fieldErr("margin_amount", "must be greater than 0")
	}
	if s.Price <= 0 {
		return fieldErr("price", "must be greater than 0")
	}
	if s.FloatBP < 0 || s.FloatBP > 10000 {
		return fieldErr("float_basis_points", "must be between 0 and 10000")
	}
	if s.TakeProfitBP < 0 {
		return fieldErr("take_profit_bp", "must not be negative")
	}
	if s.StopLossBP < 0 {
		return fieldErr("stop_loss_bp", "must not be negative")
	}
	if s.Leverage < 1 || s.Leverage > 20 {
		return fieldErr("leverage", "must be between 1 and 20")
	}
	if s.MarginType != model.MarginIsolated && s.MarginType != model.MarginCross {
		return fieldErr("margin_type", "must be isolated or cross")
	}
	if _, err := ParseStrategyConfig(s.Type, s.Config); err != nil {
		return err
	}
	return nil
}

// DualInvestmentStrategy validates a dual-investment subscription request.
func DualInvestmentStrategy(s *model.DualInvestmentStrategy) error {
	if err := Name(s.Name); err != nil {
		return err
	}
	if s.ProductID == "" {
		return fieldErr("product_id", "is required")
	}
	switch s.InvestmentType {
	case model.DualInvestSingle, model.DualInvestAutoReinvest:
		if s.Amount <= 0 {
			return fieldErr("amount", "must be greater than 0")
		}
	case model.DualInvestLadder:
		if s.LadderSteps < 1 {
			return fieldErr("ladder_steps", "must be at least 1")
		}
		if s.AmountPerStep <= 0 {
			return fieldErr("amount_per_step", "must be greater than 0")
		}
	case model.DualInvestPriceTrigger:
		if s.Amount <= 0 {
			return fieldErr("amount", "must be greater than 0")
		}
		if s.TriggerPrice <= 0 {
			return fieldErr("trigger_price", "must be greater than 0")
		}
	default:
		return fieldErr("investment_type", "must be single, auto_reinvest, ladder or price_trigger")
	}
	if s.MinYieldRate < 0 {
		return fieldErr("min_yield_rate", "must not be negative")
	}
	return nil
}

// Withdrawal validates an automatic withdrawal rule.
func Withdrawal(w *model.Withdrawal) error {
	if w.Asset == "" {
		return fieldErr("asset", "is required")
	}
	if len(w.Asset) > 10 {
		return fieldErr("asset", "must be at most 10 characters")
	}
	if w.Address == "" {
		return fieldErr("address", "is required")
	}
	if w.Amount <= 0 {
		return fieldErr("amount", "must be greater than 0")
	}
	if w.MinBalance < 0 {
		return fieldErr("min_balance", "must not be negative")
	}
	if w.TriggerPrice < 0 {
		return fieldErr("trigger_price", "must not be negative")
	}
	return nil
}
