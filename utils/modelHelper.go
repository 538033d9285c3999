package utils

import (
	"context"
	"errors"

	"github.com/mmdatafocus/invoice_backend/config"
	"gorm.io/gorm"
)

// FetchModel loads one row of T owned by companyId.
// It returns ErrorRecordNotFound when no such row exists.
func FetchModel[T any](ctx context.Context, companyId int, id int, associations ...string) (*T, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("company_id = ?", companyId)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// FetchAllModels loads every row of T owned by companyId, ordered by order
// when it is not empty.
func FetchAllModels[T any](ctx context.Context, companyId int, order string) ([]*T, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("company_id = ?", companyId)
	if order != "" {
		dbCtx = dbCtx.Order(order)
	}
	var results []*T
	if err := dbCtx.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
