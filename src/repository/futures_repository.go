package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeadmin/src/database"
	"tradeadmin/src/model"
)

// FuturesRepository handles futures strategies, orders and cached positions.
type FuturesRepository struct {
	db *gorm.DB
}

func NewFuturesRepository() *FuturesRepository {
	logger.WithField("component", "FuturesRepository").
		Info("Creating new FuturesRepository with MainDB")

	return &FuturesRepository{
		db: database.MainDB,
	}
}

func (r *FuturesRepository) WithDB(db *gorm.DB) *FuturesRepository {
	return &FuturesRepository{db: db}
}

func (r *FuturesRepository) CreateStrategy(ctx context.Context, strategy *model.FuturesStrategy) error {
	return r.db.WithContext(ctx).Create(strategy).Error
}

func (r *FuturesRepository) FindStrategyByID(ctx context.Context, userID, id uint) (*model.FuturesStrategy, error) {
	var strategy model.FuturesStrategy
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&strategy, id).Error
	if err != nil {
		return nil, err
	}
	return &strategy, nil
}

func (r *FuturesRepository) ListStrategies(ctx context.Context, opts StrategySearchOptions) ([]model.FuturesStrategy, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&model.FuturesStrategy{}).
		Where("user_id = ?", opts.UserID)
	if opts.Symbol != nil {
		query = query.Where("symbol = ?", *opts.Symbol)
	}
	if opts.IsActive != nil {
		query = query.Where("is_active = ?", *opts.IsActive)
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

	var strategies []model.FuturesStrategy
	if err := query.Order("created_at DESC, id DESC").Find(&strategies).Error; err != nil {
		return nil, 0, err
	}
	return strategies, total, nil
}

func (r *FuturesRepository) UpdateStrategy(ctx context.Context, strategy *model.FuturesStrategy) error {
	return r.db.WithContext(ctx).Save(strategy).Error
}

func (r *FuturesRepository) DeleteStrategy(ctx context.Context, userID, id uint) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.FuturesStrategy{}, id).Error
}

func (r *FuturesRepository) SetStrategyActive(ctx context.Context, userID, id uint, active bool) error {
	return r.db.WithContext(ctx).
		Model(&model.FuturesStrategy{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_active", active).Error
}

func (r *FuturesRepository) FindActiveStrategies(ctx context.Context) ([]model.FuturesStrategy, error) {
	var strategies []model.FuturesStrategy
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND is_completed = ?", true, false).
		Find(&strategies).Error
	if err != nil {
		return nil, err
	}
	return strategies, nil
}

func (r *FuturesRepository) SaveStrategyState(ctx context.Context, id uint, state model.JSONMap) error {
	return r.db.WithContext(ctx).
		Model(&model.FuturesStrategy{}).
		Where("id = ?", id).
		Update("state", state).Error
}

func (r *FuturesRepository) MarkStrategyCompleted(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&model.FuturesStrategy{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_completed": true, "is_active": false}).Error
}

func (r *FuturesRepository) CreateOrder(ctx context.Context, order *model.FuturesOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *FuturesRepository) FindOrderByExchangeID(ctx context.Context, orderID string) (*model.FuturesOrder, error) {
	var order model.FuturesOrder
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

func (r *FuturesRepository) UpdateOrderExecution(ctx context.Context, orderID string, status model.OrderStatus, executedQty float64) error {
	return r.db.WithContext(ctx).
		Model(&model.FuturesOrder{}).
		Where("order_id = ?", orderID).
		Updates(map[string]interface{}{
			"status":       status,
			"executed_qty": executedQty,
		}).Error
}

func (r *FuturesRepository) FindOpenOrders(ctx context.Context) ([]model.FuturesOrder, error) {
	var orders []model.FuturesOrder
	err := r.db.WithContext(ctx).
		Where("status IN ?", []model.OrderStatus{
			model.OrderStatusPending,
			model.OrderStatusNew,
			model.OrderStatusPartiallyFilled,
		}).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *FuturesRepository) ListOrders(ctx context.Context, opts OrderSearchOptions) ([]model.FuturesOrder, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&model.FuturesOrder{}).
		Where("user_id = ?", opts.UserID)
	if opts.Symbol != nil {
		query = query.Where("symbol = ?", *opts.Symbol)
	}
	if opts.Status != nil {
		query = query.Where("status = ?", *opts.Status)
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

	var orders []model.FuturesOrder
	if err := query.Order("created_at DESC, id DESC").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ReplacePositions swaps the cached position snapshot for one user.
func (r *FuturesRepository) ReplacePositions(ctx context.Context, userID uint, positions []model.FuturesPosition) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().
			Where("user_id = ?", userID).
			Delete(&model.FuturesPosition{}).Error; err != nil {
			return err
		}
		if len(positions) == 0 {
			return nil
		}
		return tx.Create(&positions).Error
	})
}

func (r *FuturesRepository) ListPositions(ctx context.Context, userID uint) ([]model.FuturesPosition, error) {
	var positions []model.FuturesPosition
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("symbol ASC").
		Find(&positions).Error
	if err != nil {
		return nil, err
	}
	return positions, nil
}
