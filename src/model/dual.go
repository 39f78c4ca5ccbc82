package model

type DualInvestmentProduct struct {
	Base
	ProductID      string  `gorm:"size:50;uniqueIndex;not null" json:"product_id"`
	ProductName    string  `gorm:"size:200" json:"product_name"`
	BaseAsset      string  `gorm:"size:10;not null" json:"base_asset"`
	QuoteAsset     string  `gorm:"size:10;not null" json:"quote_asset"`
	MinAmount      float64 `gorm:"type:decimal(20,8)" json:"min_amount"`
	MaxAmount      float64 `gorm:"type:decimal(20,8)" json:"max_amount"`
	Duration       int     `json:"duration"`
	SettlementDate string  `gorm:"size:20" json:"settlement_date"`
	DeliveryPrice  float64 `gorm:"type:decimal(20,8)" json:"delivery_price"`
	YieldRate      float64 `gorm:"type:decimal(10,4)" json:"yield_rate"`
	IsActive       bool    `gorm:"default:true" json:"is_active"`
}

func (p *DualInvestmentProduct) TableName() string {
	return "dual_investment_products"
}

// Dual-investment subscription styles.
const (
	DualInvestSingle       = "single"
	DualInvestAutoReinvest = "auto_reinvest"
	DualInvestLadder       = "ladder"
	DualInvestPriceTrigger = "price_trigger"
)

type DualInvestmentStrategy struct {
	Base
	UserID         uint    `gorm:"not null;index" json:"user_id"`
	Name           string  `gorm:"size:100;not null" json:"name"`
	ProductID      string  `gorm:"size:50;not null" json:"product_id"`
	BaseAsset      string  `gorm:"size:10;not null" json:"base_asset"`
	QuoteAsset     string  `gorm:"size:10;not null" json:"quote_asset"`
	InvestmentType string  `gorm:"size:20;not null" json:"investment_type"`
	Amount         float64 `gorm:"type:decimal(20,8)" json:"amount"`
	TriggerPrice   float64 `gorm:"type:decimal(20,8)" json:"trigger_price"`
	MinYieldRate   float64 `gorm:"type:decimal(10,4)" json:"min_yield_rate"`
	AutoReinvest   bool    `gorm:"default:false" json:"auto_reinvest"`
	LadderSteps    int     `gorm:"default:1" json:"ladder_steps"`
	AmountPerStep  float64 `gorm:"type:decimal(20,8)" json:"amount_per_step"`
	IsActive       bool    `gorm:"default:false" json:"is_active"`

	User   *User                 `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Orders []DualInvestmentOrder `gorm:"foreignKey:StrategyID" json:"dual_investment_orders,omitempty"`
}

func (s *DualInvestmentStrategy) TableName() string {
	return "dual_investment_strategies"
}

type DualInvestmentOrder struct {
	Base
	UserID         uint    `gorm:"not null;index" json:"user_id"`
	StrategyID     *uint   `gorm:"index" json:"strategy_id"`
	ProductID      string  `gorm:"size:50;not null" json:"product_id"`
	OrderID        string  `gorm:"size:50;uniqueIndex" json:"order_id"`
	Amount         float64 `gorm:"type:decimal(20,8)" json:"amount"`
	Currency       string  `gorm:"size:10" json:"currency"`
	YieldRate      float64 `gorm:"type:decimal(10,4)" json:"yield_rate"`
	Duration       int     `json:"duration"`
	SettlementDate string  `gorm:"size:20" json:"settlement_date"`
	Status         string  `gorm:"size:20" json:"status"`
	PurchaseTime   int64   `json:"purchase_time"`
	SettlementTime int64   `json:"settlement_time"`

	User     *User                   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Strategy *DualInvestmentStrategy `gorm:"foreignKey:StrategyID" json:"strategy,omitempty"`
}

func (o *DualInvestmentOrder) TableName() string {
	return "dual_investment_orders"
}
