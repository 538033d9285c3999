package models

import (
	"time"

	"github.com/mmdatafocus/invoice_backend/utils"
	"gorm.io/gorm"
)

// updateIfCurrent writes values to row id of T only while its updated_on
// still equals token. Otherwise nothing is written and the result is
// ErrorRecordNotFound when the row is gone or ErrorConflict when another
// writer got there first.
func updateIfCurrent[T any](tx *gorm.DB, companyId int, id int, token time.Time, values map[string]interface{}) error {
	var model T
	res := tx.Model(&model).
		Where("id = ? AND company_id = ? AND updated_on = ?", id, companyId, token).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := tx.Model(&model).Where("id = ? AND company_id = ?", id, companyId).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return utils.ErrorRecordNotFound
	}
	return utils.ErrorConflict
}
