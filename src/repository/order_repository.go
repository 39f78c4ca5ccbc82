package repository

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeadmin/src/database"
	"tradeadmin/src/model"
)

// OrderRepository handles read/write operations for spot orders.
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new repository instance using the main read/write database.
func NewOrderRepository() *OrderRepository {
	logger.WithField("component", "OrderRepository").
		Info("Creating new OrderRepository with MainDB")

	return &OrderRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *OrderRepository) WithDB(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts a new order into the database.
// The given order will be updated with the generated ID and timestamps.
func (r *OrderRepository) Create(ctx context.Context, order *model.Order) error {
	logger.WithFields(map[string]interface{}{
		"repo":   "OrderRepository",
		"op":     "Create",
		"symbol": order.Symbol,
		"side":   order.Side,
		"qty":    order.Quantity,
	}).Debug("Creating new order")

	err := r.db.WithContext(ctx).Create(order).Error
	if err != nil {
		logger.WithField("repo", "OrderRepository").
			WithError(err).Error("Failed to create order")
		return err
	}
	return nil
}

// FindByExchangeID fetches an order by the exchange-assigned order id.
// Returns (nil, nil) if the order is not found.
func (r *OrderRepository) FindByExchangeID(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// UpdateExecution syncs fill progress reported by the exchange.
func (r *OrderRepository) UpdateExecution(ctx context.Context, orderID string, status model.OrderStatus, executedQty, quoteQty float64) error {
	return r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("order_id = ?", orderID).
		Updates(map[string]interface{}{
			"status":               status,
			"executed_qty":         executedQty,
			"cumulative_quote_qty": quoteQty,
		}).Error
}

type OrderSearchOptions struct {
	UserID        uint
	Symbol        *string
	Status        *model.OrderStatus
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Page          int
	Limit         int
}

// Search returns a page of orders matching the filters plus the total count.
func (r *OrderRepository) Search(ctx context.Context, opts OrderSearchOptions) ([]model.Order, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("user_id = ?", opts.UserID)
	if opts.Symbol != nil {
		query = query.Where("symbol = ?", *opts.Symbol)
	}
	if opts.Status != nil {
		query = query.Where("status = ?", *opts.Status)
	}
	if opts.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *opts.CreatedAfter)
	}
	if opts.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *opts.CreatedBefore)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if opts.Limit > 0 {
		offset := 0
		if opts.Page > 1 {
			offset = (opts.Page - 1) * opts.Limit
		}
		query = query.Limit(opts.Limit).Offset(offset)
	}

	var orders []model.Order
	if err := query.Order("created_at DESC, id DESC").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// FindOpen returns orders the exchange may still fill, across all users
// when userID is zero.
func (r *OrderRepository) FindOpen(ctx context.Context, userID uint) ([]model.Order, error) {
	query := r.db.WithContext(ctx).
		Where("status IN ?", []model.OrderStatus{
			model.OrderStatusPending,
			model.OrderStatusNew,
			model.OrderStatusPartiallyFilled,
		})
	if userID != 0 {
		query = query.Where("user_id = ?", userID)
	}

	var orders []model.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// FindByStrategy lists the orders a strategy has placed, oldest first.
func (r *OrderRepository) FindByStrategy(ctx context.Context, strategyID uint) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Where("strategy_id = ?", strategyID).
		Order("created_at ASC, id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
