package models

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/shopledger_backend/utils"
	"gorm.io/gorm"
)

// DocumentNumberSeries hands out per-business sequential document numbers
// (INV-000001 style). NextNumber is advanced with an atomic increment so two
// concurrent postings never share a number.
type DocumentNumberSeries struct {
	ID         int    `gorm:"primary_key" json:"id"`
	BusinessId string `gorm:"uniqueIndex:idx_series_business_module;not null" json:"business_id"`
	ModuleName string `gorm:"uniqueIndex:idx_series_business_module;size:50;not null" json:"module_name"`
	Prefix     string `gorm:"size:10;not null" json:"prefix"`
	NextNumber int    `gorm:"not null;default:1" json:"next_number"`
}

// seedNumberSeries runs inside the business bootstrap transaction.
func seedNumberSeries(tx *gorm.DB, ctx context.Context, businessId string) error {
	series := []DocumentNumberSeries{
		{BusinessId: businessId, ModuleName: NumberModuleInvoice, Prefix: "INV", NextNumber: 1},
		{BusinessId: businessId, ModuleName: NumberModulePurchase, Prefix: "PUR", NextNumber: 1},
	}
	return tx.WithContext(ctx).Create(&series).Error
}

// NextDocumentNumber runs inside the caller's posting transaction.
func NextDocumentNumber(tx *gorm.DB, ctx context.Context, businessId string, moduleName string) (string, error) {
	res := tx.WithContext(ctx).Model(&DocumentNumberSeries{}).
		Where("business_id = ? AND module_name = ?", businessId, moduleName).
		UpdateColumn("next_number", gorm.Expr("next_number + 1"))
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", utils.NewNotFoundError("number series %s not found", moduleName)
	}

	var series DocumentNumberSeries
	if err := tx.WithContext(ctx).
		Where("business_id = ? AND module_name = ?", businessId, moduleName).
		First(&series).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s-%06d", series.Prefix, series.NextNumber-1), nil
}
