package model

type Withdrawal struct {
	Base
	UserID       uint    `gorm:"not null;index" json:"user_id"`
	Asset        string  `gorm:"size:10;not null" json:"asset"`
	Address      string  `gorm:"size:255;not null" json:"address"`
	Network      string  `gorm:"size:20" json:"network"`
	Amount       float64 `gorm:"type:decimal(20,8)" json:"amount"`
	MinBalance   float64 `gorm:"type:decimal(20,8)" json:"min_balance"`
	TriggerPrice float64 `gorm:"type:decimal(20,8)" json:"trigger_price"`
	IsActive     bool    `gorm:"default:false" json:"is_active"`
	AutoWithdraw bool    `gorm:"default:false" json:"auto_withdraw"`
	Description  string  `gorm:"size:255" json:"description"`

	User      *User               `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Histories []WithdrawalHistory `gorm:"foreignKey:WithdrawalID" json:"withdrawal_histories,omitempty"`
}

func (w *Withdrawal) TableName() string {
	return "withdrawals"
}

type WithdrawalHistory struct {
	Base
	UserID       uint    `gorm:"not null;index" json:"user_id"`
	WithdrawalID *uint   `gorm:"index" json:"withdrawal_id"`
	Asset        string  `gorm:"size:10;not null" json:"asset"`
	Amount       float64 `gorm:"type:decimal(20,8)" json:"amount"`
	Fee          float64 `gorm:"type:decimal(20,8)" json:"fee"`
	Address      string  `gorm:"size:255" json:"address"`
	Network      string  `gorm:"size:20" json:"network"`
	TxID         string  `gorm:"size:255" json:"tx_id"`
	Status       string  `gorm:"size:20" json:"status"`
	ApplyTime    int64   `json:"apply_time"`
	CompleteTime int64   `json:"complete_time"`

	User       *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Withdrawal *Withdrawal `gorm:"foreignKey:WithdrawalID" json:"withdrawal,omitempty"`
}

func (h *WithdrawalHistory) TableName() string {
	return "withdrawal_histories"
}
