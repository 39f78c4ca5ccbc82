package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tradeadmin/src/database"
	"tradeadmin/src/model"
)

// DualInvestmentRepository handles dual-investment products, strategies
// and subscription orders.
type DualInvestmentRepository struct {
	db *gorm.DB
}

func NewDualInvestmentRepository() *DualInvestmentRepository {
	logger.WithField("component", "DualInvestmentRepository").
		Info("Creating new DualInvestmentRepository with MainDB")

	return &DualInvestmentRepository{
		db: database.MainDB,
	}
}

func (r *DualInvestmentRepository) WithDB(db *gorm.DB) *DualInvestmentRepository {
	return &DualInvestmentRepository{db: db}
}

// UpsertProduct refreshes one product from the exchange listing.
func (r *DualInvestmentRepository) UpsertProduct(ctx context.Context, product *model.DualInvestmentProduct) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"product_name", "min_amount", "max_amount", "duration",
				"settlement_date", "delivery_price", "yield_rate", "is_active", "updated_at",
			}),
		}).
		Create(product).Error
}

func (r *DualInvestmentRepository) ListProducts(ctx context.Context, baseAsset string, page, limit int) ([]model.DualInvestmentProduct, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&model.DualInvestmentProduct{}).
		Where("is_active = ?", true)
	if baseAsset != "" {
		query = query.Where("base_asset = ?", baseAsset)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit > 0 {
		offset := 0
		if page > 1 {
			offset = (page - 1) * limit
		}
		query = query.Limit(limit).Offset(offset)
	}

	var products []model.DualInvestmentProduct
	if err := query.Order("yield_rate DESC").Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *DualInvestmentRepository) FindProduct(ctx context.Context, productID string) (*model.DualInvestmentProduct, error) {
	var product model.DualInvestmentProduct
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *DualInvestmentRepository) CreateStrategy(ctx context.Context, strategy *model.DualInvestmentStrategy) error {
	return r.db.WithContext(ctx).Create(strategy).Error
}

func (r *DualInvestmentRepository) FindStrategyByID(ctx context.Context, userID, id uint) (*model.DualInvestmentStrategy, error) {
	var strategy model.DualInvestmentStrategy
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&strategy, id).Error
	if err != nil {
		return nil, err
	}
	return &strategy, nil
}

func (r *DualInvestmentRepository) ListStrategies(ctx context.Context, userID uint, page, limit int) ([]model.DualInvestmentStrategy, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&model.DualInvestmentStrategy{}).
		Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit > 0 {
		offset := 0
		if page > 1 {
			offset = (page - 1) * limit
		}
		query = query.Limit(limit).Offset(offset)
	}

	var strategies []model.DualInvestmentStrategy
	if err := query.Order("created_at DESC, id DESC").Find(&strategies).Error; err != nil {
		return nil, 0, err
	}
	return strategies, total, nil
}

func (r *DualInvestmentRepository) UpdateStrategy(ctx context.Context, strategy *model.DualInvestmentStrategy) error {
	return r.db.WithContext(ctx).Save(strategy).Error
}

func (r *DualInvestmentRepository) DeleteStrategy(ctx context.Context, userID, id uint) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.DualInvestmentStrategy{}, id).Error
}

func (r *DualInvestmentRepository) SetStrategyActive(ctx context.Context, userID, id uint, active bool) error {
	return r.db.WithContext(ctx).
		Model(&model.DualInvestmentStrategy{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_active", active).Error
}

func (r *DualInvestmentRepository) FindActiveStrategies(ctx context.Context) ([]model.DualInvestmentStrategy, error) {
	var strategies []model.DualInvestmentStrategy
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Find(&strategies).Error
	if err != nil {
		return nil, err
	}
	return strategies, nil
}

func (r *DualInvestmentRepository) CreateOrder(ctx context.Context, order *model.DualInvestmentOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *DualInvestmentRepository) ListOrders(ctx context.Context, userID uint, page, limit int) ([]model.DualInvestmentOrder, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&model.DualInvestmentOrder{}).
		Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit > 0 {
		offset := 0
		if page > 1 {
			offset = (page - 1) * limit
		}
		query = query.Limit(limit).Offset(offset)
	}

	var orders []model.DualInvestmentOrder
	if err := query.Order("created_at DESC, id DESC").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}
