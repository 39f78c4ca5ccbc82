package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeadmin/src/database"
	"tradeadmin/src/model"
)

// WithdrawalRepository handles withdrawal rules and execution history.
type WithdrawalRepository struct {
	db *gorm.DB
}

func NewWithdrawalRepository() *WithdrawalRepository {
	logger.WithField("component", "WithdrawalRepository").
		Info("Creating new WithdrawalRepository with MainDB")

	return &WithdrawalRepository{
		db: database.MainDB,
	}
}

func (r *WithdrawalRepository) WithDB(db *gorm.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

func (r *WithdrawalRepository) Create(ctx context.Context, rule *model.Withdrawal) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *WithdrawalRepository) FindByID(ctx context.Context, userID, id uint) (*model.Withdrawal, error) {
	var rule model.Withdrawal
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&rule, id).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *WithdrawalRepository) List(ctx context.Context, userID uint, page, limit int) ([]model.Withdrawal, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&model.Withdrawal{}).
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

	var rules []model.Withdrawal
	if err := query.Order("created_at DESC, id DESC").Find(&rules).Error; err != nil {
		return nil, 0, err
	}
	return rules, total, nil
}

func (r *WithdrawalRepository) Update(ctx context.Context, rule *model.Withdrawal) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

func (r *WithdrawalRepository) Delete(ctx context.Context, userID, id uint) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.Withdrawal{}, id).Error
}

func (r *WithdrawalRepository) SetActive(ctx context.Context, userID, id uint, active bool) error {
	return r.db.WithContext(ctx).
		Model(&model.Withdrawal{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_active", active).Error
}

// FindActiveAutoRules returns every rule the scheduler should evaluate.
func (r *WithdrawalRepository) FindActiveAutoRules(ctx context.Context) ([]model.Withdrawal, error) {
	var rules []model.Withdrawal
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND auto_withdraw = ?", true, true).
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// UpsertHistory syncs one exchange history record, keyed by tx id so
// repeated syncs never duplicate rows.
func (r *WithdrawalRepository) UpsertHistory(ctx context.Context, history *model.WithdrawalHistory) error {
	if history.TxID == "" {
		return r.db.WithContext(ctx).Create(history).Error
	}

	var existing model.WithdrawalHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND tx_id = ?", history.UserID, history.TxID).
		First(&existing).Error
	if err == nil {
		history.ID = existing.ID
		history.CreatedAt = existing.CreatedAt
		return r.db.WithContext(ctx).Save(history).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return r.db.WithContext(ctx).Create(history).Error
}

func (r *WithdrawalRepository) ListHistory(ctx context.Context, userID uint, asset string, page, limit int) ([]model.WithdrawalHistory, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&model.WithdrawalHistory{}).
		Where("user_id = ?", userID)
	if asset != "" {
		query = query.Where("asset = ?", asset)
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

	var histories []model.WithdrawalHistory
	if err := query.Order("apply_time DESC, id DESC").Find(&histories).Error; err != nil {
		return nil, 0, err
	}
	return histories, total, nil
}

// WithdrawalStats aggregates per-asset totals for the stats endpoint.
type WithdrawalStats struct {
	Asset       string  `json:"asset"`
	Count       int64   `json:"count"`
	TotalAmount float64 `json:"total_amount"`
	TotalFee    float64 `json:"total_fee"`
}

func (r *WithdrawalRepository) Stats(ctx context.Context, userID uint) ([]WithdrawalStats, error) {
	var stats []WithdrawalStats
	err := r.db.WithContext(ctx).
		Model(&model.WithdrawalHistory{}).
		Select("asset, COUNT(*) AS count, SUM(amount) AS total_amount, SUM(fee) AS total_fee").
		Where("user_id = ? AND status = ?", userID, "completed").
		Group("asset").
		Order("asset ASC").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}
