package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mmdatafocus/invoice_backend/config"
	"github.com/mmdatafocus/invoice_backend/invoicing"
	"github.com/mmdatafocus/invoice_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Item struct {
	ID            int             `gorm:"primary_key"`
	CompanyId     int             `gorm:"not null;uniqueIndex:idx_items_company_name,priority:1"`
	ItemName      string          `gorm:"size:50;not null;uniqueIndex:idx_items_company_name,priority:2"`
	Description   string          `gorm:"size:500"`
	SalesRate     decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	DiscountPct   decimal.Decimal `gorm:"type:decimal(7,4);default:0"`
	PictureKey    string          `gorm:"size:255"`
	ThumbnailKey  string          `gorm:"size:255"`
	CreatedById   int
	CreatedByName string    `gorm:"size:100"`
	CreatedOn     time.Time `gorm:"type:datetime(6);not null"`
	UpdatedById   int
	UpdatedByName string    `gorm:"size:100"`
	UpdatedOn     time.Time `gorm:"type:datetime(6);not null"`
}

var (
	errItemNotFound  = utils.WithMessage(utils.ErrorRecordNotFound, "Item not found")
	errItemConflict  = utils.WithMessage(utils.ErrorConflict, "Item was modified by another user. Please reload.")
	errItemNameTaken = utils.NewInputError("Item name already exists")
	errItemInUse     = utils.NewInputError("Item is used in invoices and cannot be deleted")
)

func (item Item) toWire() invoicing.Item {
	return invoicing.Item{
		ItemID:            item.ID,
		ItemName:          item.ItemName,
		Description:       item.Description,
		SalesRate:         item.SalesRate,
		DiscountPct:       item.DiscountPct,
		CreatedByUserName: item.CreatedByName,
		CreatedOn:         formatTime(item.CreatedOn),
		UpdatedByUserName: item.UpdatedByName,
		UpdatedOn:         formatToken(item.UpdatedOn),
	}
}

func normalizeItem(input *invoicing.Item) {
	input.ItemName = strings.TrimSpace(input.ItemName)
	input.Description = strings.TrimSpace(input.Description)
}

// validateItem checks the field rules and name uniqueness within the company.
func validateItem(ctx context.Context, companyId int, input *invoicing.Item, id int) error {
	normalizeItem(input)
	if err := invoicing.ValidateItem(ctx, *input); err != nil {
		return err
	}
	free, err := utils.ValidateUnique[Item](ctx, companyId, "item_name", input.ItemName, id)
	if err != nil {
		return err
	}
	if !free {
		return errItemNameTaken
	}
	return nil
}

func clearItemCache(ctx context.Context, companyId int) {
	if err := utils.RemoveRedisList[invoicing.Item](ctx, companyId); err != nil {
		config.LogError(config.GetLogger(), "models", "clearItemCache", "remove item lookup list", companyId, err)
	}
}

// GetItems lists the company's items by name, optionally filtered by a
// search over name and description.
func GetItems(ctx context.Context, search string) ([]invoicing.Item, error) {
	a, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("company_id = ?", a.companyId)
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + search + "%"
		dbCtx = dbCtx.Where("item_name LIKE ? OR description LIKE ?", like, like)
	}
	var rows []Item
	if err := dbCtx.Order("item_name").Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]invoicing.Item, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toWire())
	}
	return out, nil
}

// GetItemLookupList returns the catalog used when editing invoices. The list
// is cached in Redis per company and dropped on every item write.
func GetItemLookupList(ctx context.Context) ([]invoicing.Item, error) {
	a, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	cached, err := utils.RetrieveRedisList[invoicing.Item](ctx, a.companyId)
	if err != nil {
		config.LogError(config.GetLogger(), "models", "GetItemLookupList", "read cache", a.companyId, err)
	}
	if cached != nil {
		out := make([]invoicing.Item, 0, len(cached))
		for _, it := range cached {
			out = append(out, *it)
		}
		return out, nil
	}

	rows, err := utils.FetchAllModels[Item](ctx, a.companyId, "item_name")
	if err != nil {
		return nil, err
	}
	out := make([]invoicing.Item, 0, len(rows))
	list := make([]*invoicing.Item, 0, len(rows))
	for _, r := range rows {
		it := invoicing.Item{
			ItemID:      r.ID,
			ItemName:    r.ItemName,
			Description: r.Description,
			SalesRate:   r.SalesRate,
			DiscountPct: r.DiscountPct,
		}
		out = append(out, it)
		list = append(list, &it)
	}
	if err := utils.StoreRedisList(ctx, list, a.companyId); err != nil {
		config.LogError(config.GetLogger(), "models", "GetItemLookupList", "write cache", a.companyId, err)
	}
	return out, nil
}

func getItemRow(ctx context.Context, id int) (*Item, error) {
	a, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	row, err := utils.FetchModel[Item](ctx, a.companyId, id)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, errItemNotFound
	}
	return row, err
}

func GetItem(ctx context.Context, id int) (*invoicing.Item, error) {
	row, err := getItemRow(ctx, id)
	if err != nil {
		return nil, err
	}
	it := row.toWire()
	return &it, nil
}

// IsItemNameTaken reports whether another item of the company uses name.
func IsItemNameTaken(ctx context.Context, name string, excludeId int) (bool, error) {
	a, err := actorFromContext(ctx)
	if err != nil {
		return false, err
	}
	free, err := utils.ValidateUnique[Item](ctx, a.companyId, "item_name", strings.TrimSpace(name), excludeId)
	if err != nil {
		return false, err
	}
	return !free, nil
}

func CreateItem(ctx context.Context, input *invoicing.Item) (*invoicing.SaveResult, error) {
	a, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	release, err := utils.CompanyLock(ctx, a.companyId, "item_name", "models", "CreateItem")
	if err != nil {
		return nil, err
	}
	defer release()

	if err := validateItem(ctx, a.companyId, input, 0); err != nil {
		return nil, err
	}

	ts := now()
	row := Item{
		CompanyId:     a.companyId,
		ItemName:      input.ItemName,
		Description:   input.Description,
		SalesRate:     input.SalesRate,
		DiscountPct:   input.DiscountPct,
		CreatedById:   a.userId,
		CreatedByName: a.userName,
		CreatedOn:     ts,
		UpdatedById:   a.userId,
		UpdatedByName: a.userName,
		UpdatedOn:     ts,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&row).Error; err != nil {
		if utils.IsDuplicateKey(err) {
			return nil, errItemNameTaken
		}
		return nil, err
	}
	clearItemCache(ctx, a.companyId)
	return &invoicing.SaveResult{PrimaryKeyID: row.ID, UpdatedOn: formatToken(ts), NofRecordsEffected: 1}, nil
}

// UpdateItem writes input only if input.UpdatedOn is still the item's
// current token.
func UpdateItem(ctx context.Context, input *invoicing.Item) (*invoicing.SaveResult, error) {
	a, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if input.ItemID <= 0 {
		return nil, utils.NewInputError("itemID is required")
	}
	token, err := parseToken(input.UpdatedOn)
	if errors.Is(err, utils.ErrorConflict) {
		return nil, errItemConflict
	}
	if err != nil {
		return nil, err
	}

	release, err := utils.CompanyLock(ctx, a.companyId, "item_name", "models", "UpdateItem")
	if err != nil {
		return nil, err
	}
	defer release()

	if err := validateItem(ctx, a.companyId, input, input.ItemID); err != nil {
		return nil, err
	}

	ts := now()
	db := config.GetDB()
	err = updateIfCurrent[Item](db.WithContext(ctx), a.companyId, input.ItemID, token, map[string]interface{}{
		"item_name":       input.ItemName,
		"description":     input.Description,
		"sales_rate":      input.SalesRate,
		"discount_pct":    input.DiscountPct,
		"updated_by_id":   a.userId,
		"updated_by_name": a.userName,
		"updated_on":      ts,
	})
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		return nil, errItemNotFound
	case errors.Is(err, utils.ErrorConflict):
		return nil, errItemConflict
	case utils.IsDuplicateKey(err):
		return nil, errItemNameTaken
	case err != nil:
		return nil, err
	}
	clearItemCache(ctx, a.companyId)
	return &invoicing.SaveResult{PrimaryKeyID: input.ItemID, UpdatedOn: formatToken(ts), NofRecordsEffected: 1}, nil
}

// DeleteItem removes an item no invoice refers to. The deleted row is
// returned so the caller can drop its stored pictures. A line saved between
// the usage check and the delete is caught by the invoice_lines foreign key.
func DeleteItem(ctx context.Context, id int) (*Item, error) {
	row, err := getItemRow(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := utils.ResourceCountWhere[InvoiceLine](ctx, 0, "item_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errItemInUse
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Where("id = ? AND company_id = ?", id, row.CompanyId).Delete(&Item{}).Error
	if utils.IsForeignKeyViolation(err) {
		return nil, errItemInUse
	}
	if err != nil {
		return nil, err
	}
	clearItemCache(ctx, row.CompanyId)
	return row, nil
}

// SetItemPicture stores the object keys of a new picture and returns the
// previous row so replaced objects can be removed. The item's updatedOn
// token is left alone.
func SetItemPicture(ctx context.Context, id int, pictureKey string, thumbnailKey string) (*Item, error) {
	row, err := getItemRow(ctx, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	err = db.WithContext(ctx).Model(&Item{}).
		Where("id = ? AND company_id = ?", id, row.CompanyId).
		Updates(map[string]interface{}{"picture_key": pictureKey, "thumbnail_key": thumbnailKey}).Error
	if err != nil {
		return nil, err
	}
	return row, nil
}

// GetItemPicture returns the stored object keys of an item's picture.
func GetItemPicture(ctx context.Context, id int) (pictureKey string, thumbnailKey string, err error) {
	row, err := getItemRow(ctx, id)
	if err != nil {
		return "", "", err
	}
	return row.PictureKey, row.ThumbnailKey, nil
}

// itemCatalog builds a catalog of the company's items among ids.
func itemCatalog(ctx context.Context, tx *gorm.DB, companyId int, ids []int) (*invoicing.Catalog, error) {
	ids = utils.UniqueSlice(ids)
	if len(ids) == 0 {
		return invoicing.NewCatalog(nil), nil
	}
	var rows []Item
	if err := tx.WithContext(ctx).Where("company_id = ? AND id IN ?", companyId, ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]invoicing.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, invoicing.Item{ItemID: r.ID, ItemName: r.ItemName, SalesRate: r.SalesRate, DiscountPct: r.DiscountPct})
	}
	return invoicing.NewCatalog(items), nil
}
