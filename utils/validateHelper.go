package utils

import (
	"context"
	"errors"
	"reflect"

	"github.com/go-sql-driver/mysql"
	"github.com/mmdatafocus/invoice_backend/config"
)

// ValidateResourceId checks that id exists for companyId.
func ValidateResourceId[T any](ctx context.Context, companyId int, id interface{}) error {
	count, err := ResourceCountWhere[T](ctx, companyId, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}
	return nil
}

// ValidateUnique reports whether another row of T in the company already
// holds value in column. exceptId is the row being edited, zero for none.
func ValidateUnique[T any](ctx context.Context, companyId int, column string, value interface{}, exceptId interface{}) (bool, error) {
	var count int64
	var err error
	if reflect.ValueOf(exceptId).IsZero() {
		count, err = ResourceCountWhere[T](ctx, companyId, column+" = ?", value)
	} else {
		count, err = ResourceCountWhere[T](ctx, companyId, column+" = ? AND NOT id = ?", value, exceptId)
	}
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// ResourceCountWhere counts rows using WHERE company_id = ? AND condition.
// companyId 0 drops the company filter.
func ResourceCountWhere[T any](ctx context.Context, companyId int, condition string, value ...interface{}) (int64, error) {
	var model T
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&model)
	if companyId > 0 {
		dbCtx = dbCtx.Where("company_id = ?", companyId)
	}
	var count int64
	if err := dbCtx.Where(condition, value...).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// IsDuplicateKey reports a MySQL unique index violation (error 1062).
func IsDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// IsForeignKeyViolation reports a MySQL foreign key failure: a parent row
// still referenced (1451) or a child pointing at a missing parent (1452).
func IsForeignKeyViolation(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && (me.Number == 1451 || me.Number == 1452)
}
