package model

type FuturesStrategy struct {
	Base
	UserID       uint         `gorm:"not null;index" json:"user_id"`
	Name         string       `gorm:"size:100;not null" json:"name"`
	Symbol       string       `gorm:"size:20;not null;index" json:"symbol"`
	Type         StrategyType `gorm:"size:20;not null" json:"type"`
	Side         OrderSide    `gorm:"size:10;not null" json:"side"`
	MarginAmount float64      `gorm:"type:decimal(20,8)" json:"margin_amount"`
	Price        float64      `gorm:"type:decimal(20,8)" json:"price"`
	FloatBP      float64      `gorm:"type:decimal(10,4);default:0.1" json:"float_basis_points"`
	TakeProfitBP int          `gorm:"default:0" json:"take_profit_bp"`
	StopLossBP   int          `gorm:"default:0" json:"stop_loss_bp"`
	Leverage     int          `gorm:"default:8" json:"leverage"`
	MarginType   MarginType   `gorm:"size:10;default:'isolated'" json:"margin_type"`
	Config       JSONMap      `gorm:"type:json" json:"config"`
	State        JSONMap      `gorm:"type:json" json:"state"`
	IsActive     bool         `gorm:"default:false" json:"is_active"`
	IsCompleted  bool         `gorm:"default:false" json:"is_completed"`
	AutoRestart  bool         `gorm:"default:false" json:"auto_restart"`

	// Derived preview fields, filled from the estimator for responses.
	OrderQuantity    float64 `gorm:"-" json:"order_quantity"`
	EstimatedProfit  float64 `gorm:"-" json:"estimated_profit"`
	EstimatedLoss    float64 `gorm:"-" json:"estimated_loss"`
	LiquidationPrice float64 `gorm:"-" json:"liquidation_price"`

	User   *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Orders []FuturesOrder `gorm:"foreignKey:StrategyID" json:"futures_orders,omitempty"`
}

func (s *FuturesStrategy) TableName() string {
	return "futures_strategies"
}

type FuturesOrder struct {
	Base
	UserID        uint         `gorm:"not null;index" json:"user_id"`
	StrategyID    *uint        `gorm:"index" json:"strategy_id"`
	Symbol        string       `gorm:"size:20;not null;index" json:"symbol"`
	OrderID       string       `gorm:"size:50;uniqueIndex" json:"order_id"`
	ClientOrderID string       `gorm:"size:50" json:"client_order_id"`
	Side          OrderSide    `gorm:"size:10;not null" json:"side"`
	PositionSide  PositionSide `gorm:"size:10;not null" json:"position_side"`
	Type          OrderType    `gorm:"size:20;not null" json:"type"`
	Quantity      float64      `gorm:"type:decimal(20,8)" json:"quantity"`
	Price         float64      `gorm:"type:decimal(20,8)" json:"price"`
	Status        OrderStatus  `gorm:"size:20;default:'pending'" json:"status"`
	ExecutedQty   float64      `gorm:"type:decimal(20,8);default:0" json:"executed_qty"`
	ReduceOnly    bool         `gorm:"default:false" json:"reduce_only"`

	User     *User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Strategy *FuturesStrategy `gorm:"foreignKey:StrategyID" json:"strategy,omitempty"`
}

func (o *FuturesOrder) TableName() string {
	return "futures_orders"
}

type FuturesPosition struct {
	Base
	UserID           uint         `gorm:"not null;index" json:"user_id"`
	Symbol           string       `gorm:"size:20;not null;index" json:"symbol"`
	PositionSide     PositionSide `gorm:"size:10;not null" json:"position_side"`
	PositionAmt      float64      `gorm:"type:decimal(20,8)" json:"position_amt"`
	EntryPrice       float64      `gorm:"type:decimal(20,8)" json:"entry_price"`
	MarkPrice        float64      `gorm:"type:decimal(20,8)" json:"mark_price"`
	UnrealizedProfit float64      `gorm:"type:decimal(20,8)" json:"unrealized_profit"`
	LiquidationPrice float64      `gorm:"type:decimal(20,8)" json:"liquidation_price"`
	Leverage         int          `json:"leverage"`
	MarginType       MarginType   `gorm:"size:10" json:"margin_type"`
	IsolatedMargin   float64      `gorm:"type:decimal(20,8)" json:"isolated_margin"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (p *FuturesPosition) TableName() string {
	return "futures_positions"
}
