package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/shopledger_backend/config"
	"bitbucket.org/mmdatafocus/shopledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockHistory is the append-only movement log behind Product.StockRemain.
// ClosingQty snapshots the remaining stock after the movement was applied.
type StockHistory struct {
	ID            int                `gorm:"primary_key" json:"id"`
	BusinessId    string             `gorm:"index;not null" json:"business_id"`
	ProductId     int                `gorm:"index;not null" json:"product_id"`
	Qty           decimal.Decimal    `gorm:"type:decimal(20,4);not null" json:"qty"`
	ClosingQty    decimal.Decimal    `gorm:"type:decimal(20,4);not null" json:"closing_qty"`
	ReferenceType StockReferenceType `gorm:"type:enum('SALE','PUR','ADJ','REV');not null" json:"reference_type"`
	ReferenceID   int                `json:"reference_id"`
	Description   string             `gorm:"size:255" json:"description"`
	StockDate     time.Time          `gorm:"index;not null" json:"stock_date"`
	CreatedAt     time.Time          `gorm:"autoCreateTime" json:"created_at"`
}

// AdjustProductStock applies a signed stock delta as one conditional UPDATE:
// for consumption the WHERE clause requires stock_remain >= qty, so two
// concurrent sales can never both pass a stale check and oversell. Runs inside
// the caller's transaction and appends the movement row on success.
func AdjustProductStock(tx *gorm.DB, ctx context.Context, businessId string, productId int, delta decimal.Decimal, refType StockReferenceType, refId int, description string) (decimal.Decimal, error) {
	if delta.IsZero() {
		return decimal.Zero, utils.NewValidationError("stock delta must not be zero")
	}

	query := tx.WithContext(ctx).Model(&Product{}).
		Where("business_id = ? AND id = ?", businessId, productId)
	if delta.IsNegative() {
		query = query.Where("stock_remain >= ?", delta.Neg())
	}
	res := query.UpdateColumn("stock_remain", gorm.Expr("stock_remain + ?", delta))
	if res.Error != nil {
		return decimal.Zero, res.Error
	}

	var product Product
	if err := tx.WithContext(ctx).Where("business_id = ?", businessId).First(&product, productId).Error; err != nil {
		return decimal.Zero, utils.NewNotFoundError("product not found")
	}
	if res.RowsAffected == 0 {
		// Product exists, so the conditional guard is what rejected the write.
		return decimal.Zero, utils.NewInsufficientStockError(product.Name, product.StockRemain.String(), delta.Neg().String())
	}

	history := StockHistory{
		BusinessId:    businessId,
		ProductId:     productId,
		Qty:           delta,
		ClosingQty:    product.StockRemain,
		ReferenceType: refType,
		ReferenceID:   refId,
		Description:   description,
		StockDate:     time.Now(),
	}
	if err := tx.WithContext(ctx).Create(&history).Error; err != nil {
		return decimal.Zero, err
	}

	return product.StockRemain, nil
}

// AdjustProductStockManual is the standalone add-stock / remove-stock
// endpoint path: one short transaction around AdjustProductStock.
func AdjustProductStockManual(ctx context.Context, productId int, delta decimal.Decimal, description string) (decimal.Decimal, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return decimal.Zero, utils.NewUnauthorizedError("business id is required")
	}

	db := config.GetDB()
	tx := db.Begin()
	defer func() { _ = tx.Rollback().Error }()

	remain, err := AdjustProductStock(tx, ctx, businessId, productId, delta, StockReferenceTypeAdjustment, 0, description)
	if err != nil {
		return decimal.Zero, err
	}
	if err := tx.Commit().Error; err != nil {
		return decimal.Zero, err
	}
	return remain, nil
}

func GetStockHistory(ctx context.Context, productId int) ([]*StockHistory, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}

	db := config.GetDB()
	var movements []*StockHistory
	err := db.WithContext(ctx).
		Where("business_id = ? AND product_id = ?", businessId, productId).
		Order("id").
		Find(&movements).Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}
