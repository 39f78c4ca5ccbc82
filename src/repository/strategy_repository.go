package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeadmin/src/database"
	"tradeadmin/src/model"
)

// StrategyRepository handles read/write operations for spot strategies.
type StrategyRepository struct {
	db *gorm.DB
}

func NewStrategyRepository() *StrategyRepository {
	logger.WithField("component", "StrategyRepository").
		Info("Creating new StrategyRepository with MainDB")

	return &StrategyRepository{
		db: database.MainDB,
	}
}

func (r *StrategyRepository) WithDB(db *gorm.DB) *StrategyRepository {
	return &StrategyRepository{db: db}
}

func (r *StrategyRepository) Create(ctx context.Context, strategy *model.Strategy) error {
	return r.db.WithContext(ctx).Create(strategy).Error
}

// FindByID scopes the lookup to the owning user so one user can never
// read or mutate another user's strategy.
func (r *StrategyRepository) FindByID(ctx context.Context, userID, id uint) (*model.Strategy, error) {
	var strategy model.Strategy
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&strategy, id).Error
	if err != nil {
		return nil, err
	}
	return &strategy, nil
}

type StrategySearchOptions struct {
	UserID   uint
	Symbol   *string
	IsActive *bool
	Page     int
	Limit    int
}

func (r *StrategyRepository) List(ctx context.Context, opts StrategySearchOptions) ([]model.Strategy, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&model.Strategy{}).
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

	var strategies []model.Strategy
	if err := query.Order("created_at DESC, id DESC").Find(&strategies).Error; err != nil {
		return nil, 0, err
	}
	return strategies, total, nil
}

func (r *StrategyRepository) Update(ctx context.Context, strategy *model.Strategy) error {
	return r.db.WithContext(ctx).Save(strategy).Error
}

func (r *StrategyRepository) Delete(ctx context.Context, userID, id uint) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.Strategy{}, id).Error
}

func (r *StrategyRepository) SetActive(ctx context.Context, userID, id uint, active bool) error {
	return r.db.WithContext(ctx).
		Model(&model.Strategy{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_active", active).Error
}

// FindActive returns every running, incomplete strategy across all users.
// Used by the scheduler, which operates outside any request scope.
func (r *StrategyRepository) FindActive(ctx context.Context) ([]model.Strategy, error) {
	var strategies []model.Strategy
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND is_completed = ?", true, false).
		Find(&strategies).Error
	if err != nil {
		return nil, err
	}
	return strategies, nil
}

// SaveState persists only the execution state column.
func (r *StrategyRepository) SaveState(ctx context.Context, id uint, state model.JSONMap) error {
	return r.db.WithContext(ctx).
		Model(&model.Strategy{}).
		Where("id = ?", id).
		Update("state", state).Error
}

// MarkCompleted flips a strategy to completed and stops it in one update.
func (r *StrategyRepository) MarkCompleted(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&model.Strategy{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_completed": true, "is_active": false}).Error
}
