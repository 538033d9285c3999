package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/invoice_backend/config"
	"github.com/mmdatafocus/invoice_backend/utils"
	"gorm.io/gorm"
)

type Company struct {
	ID               int       `gorm:"primary_key" json:"companyID"`
	CompanyName      string    `gorm:"size:100;not null" json:"companyName"`
	Address          string    `gorm:"size:200" json:"address"`
	City             string    `gorm:"size:50" json:"city"`
	Zip              string    `gorm:"size:6" json:"zip"`
	Industry         string    `gorm:"size:50" json:"industry"`
	CurrencySymbol   string    `gorm:"size:5;not null" json:"currencySymbol"`
	LogoKey          string    `gorm:"size:255" json:"-"`
	LogoThumbnailKey string    `gorm:"size:255" json:"-"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"-"`
}

var errCompanyNotFound = utils.WithMessage(utils.ErrorRecordNotFound, "Company not found")

func getCompanyRow(ctx context.Context, companyId int) (*Company, error) {
	if companyId <= 0 {
		return nil, errCompanyNotFound
	}
	var row Company
	err := config.GetDB().WithContext(ctx).Take(&row, companyId).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errCompanyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// SetCompanyLogo stores the object keys of a new logo and returns the
// previous row so the replaced objects can be removed.
func SetCompanyLogo(ctx context.Context, companyId int, logoKey string, thumbnailKey string) (*Company, error) {
	row, err := getCompanyRow(ctx, companyId)
	if err != nil {
		return nil, err
	}
	err = config.GetDB().WithContext(ctx).Model(&Company{}).
		Where("id = ?", companyId).
		Updates(map[string]interface{}{"logo_key": logoKey, "logo_thumbnail_key": thumbnailKey}).Error
	if err != nil {
		return nil, err
	}
	return row, nil
}

// GetCompanyLogo returns the stored object keys of a company's logo.
func GetCompanyLogo(ctx context.Context, companyId int) (logoKey string, thumbnailKey string, err error) {
	row, err := getCompanyRow(ctx, companyId)
	if err != nil {
		return "", "", err
	}
	return row.LogoKey, row.LogoThumbnailKey, nil
}
