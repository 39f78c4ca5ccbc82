package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSONMap backs the free-form config and state columns. Strategy sub-types
// keep their layer tables, float steps and timeouts here so the schema does
// not change every time a sub-type grows a knob.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = make(JSONMap)
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return errors.New("unsupported column type for JSONMap")
	}
}

func (m JSONMap) Float(key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

func (m JSONMap) Floats(key string) ([]float64, bool) {
	raw, ok := m[key].([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]float64, 0, len(raw))
	for _, v := range raw {
		f, ok := v.(float64)
		if !ok {
			return nil, false
		}
		out = append(out, f)
	}
	return out, true
}

type Strategy struct {
	Base
	UserID       uint         `gorm:"not null;index" json:"user_id"`
	Name         string       `gorm:"size:100;not null" json:"name"`
	Symbol       string       `gorm:"size:20;not null;index" json:"symbol"`
	Type         StrategyType `gorm:"size:20;not null" json:"type"`
	Side         OrderSide    `gorm:"size:10;not null" json:"side"`
	Quantity     float64      `gorm:"type:decimal(20,8)" json:"quantity"`
	TriggerPrice float64      `gorm:"type:decimal(20,8)" json:"trigger_price"`
	Config       JSONMap      `gorm:"type:json" json:"config"`
	State        JSONMap      `gorm:"type:json" json:"state"`
	IsActive     bool         `gorm:"default:false" json:"is_active"`
	IsCompleted  bool         `gorm:"default:false" json:"is_completed"`
	AutoRestart  bool         `gorm:"default:false" json:"auto_restart"`

	User   *User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Orders []Order `gorm:"foreignKey:StrategyID" json:"orders,omitempty"`
}

func (s *Strategy) TableName() string {
	return "strategies"
}

type Order struct {
	Base
	UserID        uint        `gorm:"not null;index" json:"user_id"`
	StrategyID    *uint       `gorm:"index" json:"strategy_id"`
	Symbol        string      `gorm:"size:20;not null;index" json:"symbol"`
	OrderID       string      `gorm:"size:50;uniqueIndex" json:"order_id"`
	ClientOrderID string      `gorm:"size:50" json:"client_order_id"`
	Side          OrderSide   `gorm:"size:10;not null" json:"side"`
	Type          OrderType   `gorm:"size:20;not null" json:"type"`
	Quantity      float64     `gorm:"type:decimal(20,8)" json:"quantity"`
	Price         float64     `gorm:"type:decimal(20,8)" json:"price"`
	Status        OrderStatus `gorm:"size:20;default:'pending'" json:"status"`
	ExecutedQty   float64     `gorm:"type:decimal(20,8);default:0" json:"executed_qty"`
	QuoteQty      float64     `gorm:"type:decimal(20,8);default:0" json:"cumulative_quote_qty"`
	TimeInForce   string      `gorm:"size:10" json:"time_in_force"`

	User     *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Strategy *Strategy `gorm:"foreignKey:StrategyID" json:"strategy,omitempty"`
}

func (o *Order) TableName() string {
	return "orders"
}

// Open reports whether the exchange may still fill this order.
func (o *Order) Open() bool {
	return o.Status == OrderStatusNew || o.Status == OrderStatusPartiallyFilled || o.Status == OrderStatusPending
}

type Price struct {
	Base
	Symbol string  `gorm:"size:20;uniqueIndex;not null" json:"symbol"`
	Price  float64 `gorm:"type:decimal(20,8)" json:"price"`
}

func (p *Price) TableName() string {
	return "prices"
}
