package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tradeadmin/src/database"
	"tradeadmin/src/model"
)

// PriceRepository caches the latest observed price per symbol.
type PriceRepository struct {
	db *gorm.DB
}

func NewPriceRepository() *PriceRepository {
	logger.WithField("component", "PriceRepository").
		Info("Creating new PriceRepository with MainDB")

	return &PriceRepository{
		db: database.MainDB,
	}
}

func (r *PriceRepository) WithDB(db *gorm.DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// Upsert writes the latest price, replacing any previous row for the symbol.
func (r *PriceRepository) Upsert(ctx context.Context, symbol string, price float64) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}},
			DoUpdates: clause.AssignmentColumns([]string{"price", "updated_at"}),
		}).
		Create(&model.Price{Symbol: symbol, Price: price}).Error
}

func (r *PriceRepository) Get(ctx context.Context, symbol string) (*model.Price, error) {
	var price model.Price
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		First(&price).Error
	if err != nil {
		return nil, err
	}
	return &price, nil
}
