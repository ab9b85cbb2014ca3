package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/shopledger_backend/config"
	"bitbucket.org/mmdatafocus/shopledger_backend/utils"
	"github.com/shopspring/decimal"
)

// Product is one inventory item. StockRemain is never written directly by
// callers; all mutation goes through AdjustProductStock (models/stock.go) so
// the non-negativity guard and the movement log stay authoritative.
type Product struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"index;not null" json:"business_id"`
	Name        string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Category    string          `gorm:"size:100" json:"category"`
	Warehouse   string          `gorm:"size:100" json:"warehouse"`
	UnitCost    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_cost"`
	SalePrice   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"sale_price"`
	TaxRate     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_rate"`
	SupplierId  *int            `gorm:"index" json:"supplier_id"`
	StockRemain decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"stock_remain"`
	ProductDate time.Time       `json:"product_date"`
	IsActive    *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	Name         string          `json:"name" binding:"required"`
	Category     string          `json:"category"`
	Warehouse    string          `json:"warehouse"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	SalePrice    decimal.Decimal `json:"sale_price"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	SupplierId   *int            `json:"supplier_id"`
	OpeningStock decimal.Decimal `json:"opening_stock"`
	ProductDate  time.Time       `json:"product_date"`
}

func (input *NewProduct) validate(ctx context.Context, businessId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Product](ctx, businessId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[Product](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	if input.UnitCost.IsNegative() || input.SalePrice.IsNegative() {
		return utils.NewValidationError("unit cost and sale price must not be negative")
	}
	if input.TaxRate.IsNegative() {
		return utils.NewValidationError("tax rate must not be negative")
	}
	if input.OpeningStock.IsNegative() {
		return utils.NewValidationError("opening stock must not be negative")
	}
	if input.SupplierId != nil && *input.SupplierId > 0 {
		if err := utils.ValidateResourceId[Supplier](ctx, businessId, *input.SupplierId); err != nil {
			return utils.NewNotFoundError("supplier not found")
		}
	}
	return nil
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	productDate := input.ProductDate
	if productDate.IsZero() {
		productDate = time.Now()
	}

	product := Product{
		BusinessId:  businessId,
		Name:        strings.TrimSpace(input.Name),
		Category:    input.Category,
		Warehouse:   input.Warehouse,
		UnitCost:    input.UnitCost,
		SalePrice:   input.SalePrice,
		TaxRate:     input.TaxRate,
		SupplierId:  input.SupplierId,
		ProductDate: productDate,
		IsActive:    utils.NewTrue(),
	}

	tx := db.Begin()
	defer func() { _ = tx.Rollback().Error }()

	if err := tx.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}
	if input.OpeningStock.IsPositive() {
		if _, err := AdjustProductStock(tx, ctx, businessId, product.ID, input.OpeningStock, StockReferenceTypeAdjustment, 0, "opening stock"); err != nil {
			return nil, err
		}
		product.StockRemain = input.OpeningStock
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func UpdateProduct(ctx context.Context, id int, input *NewProduct) (*Product, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}
	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	db := config.GetDB()
	product, err := utils.FetchModel[Product](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	// StockRemain is excluded on purpose: stock moves only through
	// AdjustProductStock.
	err = db.WithContext(ctx).Model(product).Updates(map[string]interface{}{
		"Name":       strings.TrimSpace(input.Name),
		"Category":   input.Category,
		"Warehouse":  input.Warehouse,
		"UnitCost":   input.UnitCost,
		"SalePrice":  input.SalePrice,
		"TaxRate":    input.TaxRate,
		"SupplierId": input.SupplierId,
	}).Error
	if err != nil {
		return nil, err
	}
	return product, nil
}

func DeleteProduct(ctx context.Context, id int) (*Product, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}

	product, err := utils.FetchModel[Product](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[Sale](ctx, businessId, "product_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.NewValidationError("product has sales and cannot be deleted")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}
	return utils.FetchModel[Product](ctx, businessId, id)
}

func GetProducts(ctx context.Context, name *string) ([]*Product, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if name != nil && *name != "" {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	var products []*Product
	if err := dbCtx.Order("name").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}
