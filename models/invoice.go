package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/shopledger_backend/config"
	"bitbucket.org/mmdatafocus/shopledger_backend/utils"
	"github.com/shopspring/decimal"
)

// Invoice is the billing projection over a sale submission's lines. Totals
// are recomputed from the details at creation time; profit/cost live on the
// Sale rows, not here.
type Invoice struct {
	ID            int              `gorm:"primary_key" json:"id"`
	BusinessId    string           `gorm:"index;not null" json:"business_id"`
	InvoiceNumber string           `gorm:"index;size:50;not null" json:"invoice_number"`
	CustomerId    *int             `gorm:"index" json:"customer_id"`
	CustomerName  string           `gorm:"size:100" json:"customer_name"`
	SubTotal      decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"sub_total"`
	TaxAmount     decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
	GrandTotal    decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"grand_total"`
	Paid          *bool            `gorm:"not null;default:false" json:"paid"`
	InvoiceDate   time.Time        `gorm:"index;not null" json:"invoice_date"`
	Details       []InvoiceDetail  `gorm:"foreignKey:InvoiceId" json:"details"`
	CreatedAt     time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type InvoiceDetail struct {
	ID        int             `gorm:"primary_key" json:"id"`
	InvoiceId int             `gorm:"index;not null" json:"invoice_id"`
	SaleId    int             `gorm:"index" json:"sale_id"`
	Name      string          `gorm:"size:100;not null" json:"name"`
	Qty       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
	Rate      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"rate"`
	TaxRate   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_rate"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
}

func GetInvoice(ctx context.Context, id int) (*Invoice, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}
	return utils.FetchModel[Invoice](ctx, businessId, id, "Details")
}

func GetInvoices(ctx context.Context, customerId *int) ([]*Invoice, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}

	db := config.GetDB()
	query := db.WithContext(ctx).Preload("Details").Where("business_id = ?", businessId)
	if customerId != nil && *customerId > 0 {
		query = query.Where("customer_id = ?", *customerId)
	}

	var invoices []*Invoice
	if err := query.Order("invoice_date DESC, id DESC").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func ToggleInvoicePaid(ctx context.Context, id int) (*Invoice, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}

	invoice, err := utils.FetchModel[Invoice](ctx, businessId, id, "Details")
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	paid := invoice.Paid == nil || !*invoice.Paid
	if err := db.WithContext(ctx).Model(invoice).UpdateColumn("paid", paid).Error; err != nil {
		return nil, err
	}
	invoice.Paid = &paid
	return invoice, nil
}
