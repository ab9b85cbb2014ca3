package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/shopledger_backend/config"
	"bitbucket.org/mmdatafocus/shopledger_backend/utils"
	"github.com/shopspring/decimal"
)

// Sale is one priced, costed line produced from a cart submission.
// Invariant: Sale = Cost + Profit exactly at currency precision.
// Rows are created and deleted only by the sale workflow so stock and ledger
// effects stay paired with them.
type Sale struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BusinessId    string          `gorm:"index;not null" json:"business_id"`
	ProductId     int             `gorm:"index;not null" json:"product_id"`
	ProductName   string          `gorm:"size:100;not null" json:"product_name"`
	Qty           decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
	UnitCost      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_cost"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	Sale          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"sale"`
	Cost          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"cost"`
	Profit        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"profit"`
	ProfitPercent decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"profit_percent"`
	TaxRate       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_rate"`
	TaxAmount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
	Paid          *bool           `gorm:"not null;default:false" json:"paid"`
	CustomerId    *int            `gorm:"index" json:"customer_id"`
	InvoiceId     *int            `gorm:"index" json:"invoice_id"`
	SaleDate      time.Time       `gorm:"index;not null" json:"sale_date"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetSale(ctx context.Context, id int) (*Sale, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}
	return utils.FetchModel[Sale](ctx, businessId, id)
}

func GetSales(ctx context.Context, fromDate, toDate *time.Time) ([]*Sale, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}

	db := config.GetDB()
	query := db.WithContext(ctx).Where("business_id = ?", businessId)
	if fromDate != nil {
		query = query.Where("sale_date >= ?", fromDate)
	}
	if toDate != nil {
		query = query.Where("sale_date <= ?", toDate)
	}

	var sales []*Sale
	if err := query.Order("sale_date DESC, id DESC").Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}
