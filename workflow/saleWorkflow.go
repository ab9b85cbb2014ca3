package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/shopledger_backend/config"
	"bitbucket.org/mmdatafocus/shopledger_backend/models"
	"bitbucket.org/mmdatafocus/shopledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type NewSaleItem struct {
	ProductId int             `json:"product" binding:"required"`
	Qty       decimal.Decimal `json:"qty" binding:"required"`
	UnitPrice *decimal.Decimal `json:"unitPrice"`
}

type NewSaleCustomer struct {
	Id   *int   `json:"id"`
	Name string `json:"name"`
}

type NewSale struct {
	Items    []NewSaleItem    `json:"items" binding:"required,min=1,dive"`
	Date     time.Time        `json:"date"`
	Paid     *bool            `json:"paid"`
	Customer *NewSaleCustomer `json:"customer"`
}

type SaleResult struct {
	Sales   []*models.Sale  `json:"sale"`
	Invoice *models.Invoice `json:"invoice"`
}

// CreateSale decomposes one sale submission into its ledger effects: a sale
// row per item, a stock decrement per item, one invoice covering all items,
// and a customer ledger entry for the invoice grand total. A paid sale posts
// a matching payment entry in the same transaction so the balance nets to
// zero. Any failing item aborts the whole submission.
func CreateSale(ctx context.Context, input *NewSale) (*SaleResult, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	var result *SaleResult
	err := withConflictRetry(func() error {
		var err error
		result, err = createSale(ctx, input)
		return err
	})
	return result, err
}

func createSale(ctx context.Context, input *NewSale) (*SaleResult, error) {
	ctx, span := tracer.Start(ctx, "createSale")
	defer span.End()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}
	if len(input.Items) == 0 {
		return nil, utils.NewValidationError("sale must have at least one item")
	}

	saleDate := input.Date
	if saleDate.IsZero() {
		saleDate = time.Now()
	}
	paid := input.Paid != nil && *input.Paid

	// Customer resolution happens before the posting section. Creating a
	// walk-in customer by name is not part of the all-or-nothing posting,
	// so a later stock failure leaves the new customer in place.
	var customer *models.Customer
	if input.Customer != nil && (input.Customer.Id != nil || input.Customer.Name != "") {
		var err error
		customer, err = models.GetOrCreateCustomer(ctx, input.Customer.Id, input.Customer.Name)
		if err != nil {
			return nil, err
		}
	}

	var result *SaleResult
	err := utils.BusinessLock(ctx, businessId, "posting", "saleWorkflow.go", "createSale", func() error {
		db := config.GetDB()
		tx := db.Begin()
		defer func() { _ = tx.Rollback().Error }()

		if err := AcquireBusinessPostingLock(tx, businessId); err != nil {
			return utils.NewConflictError("%s", err.Error())
		}
		defer ReleaseBusinessPostingLock(tx, businessId)

		// Price every line before touching stock so a bad line rejects
		// the submission without side effects.
		type pricedLine struct {
			product *models.Product
			input   NewSaleItem
			pricing *utils.Pricing
			price   decimal.Decimal
		}
		productIds := make([]int, 0, len(input.Items))
		for _, item := range input.Items {
			productIds = append(productIds, item.ProductId)
		}
		var products []*models.Product
		err := tx.WithContext(ctx).
			Where("business_id = ? AND id IN ?", businessId, utils.UniqueSlice(productIds)).
			Find(&products).Error
		if err != nil {
			return err
		}
		productById := make(map[int]*models.Product, len(products))
		for _, p := range products {
			productById[p.ID] = p
		}

		lines := make([]pricedLine, 0, len(input.Items))
		subTotal, taxTotal, profitTotal := decimal.Zero, decimal.Zero, decimal.Zero
		for _, item := range input.Items {
			product, found := productById[item.ProductId]
			if !found {
				return utils.NewNotFoundError("product %d not found", item.ProductId)
			}
			price := product.SalePrice
			if item.UnitPrice != nil {
				price = *item.UnitPrice
			}
			var taxRates []decimal.Decimal
			if product.TaxRate.IsPositive() {
				taxRates = append(taxRates, product.TaxRate)
			}
			pricing, err := utils.ComputePricing(product.UnitCost, price, item.Qty, taxRates)
			if err != nil {
				return err
			}
			subTotal = subTotal.Add(pricing.Sale)
			taxTotal = taxTotal.Add(pricing.TaxAmount)
			profitTotal = profitTotal.Add(pricing.Profit)
			lines = append(lines, pricedLine{product: product, input: item, pricing: pricing, price: price})
		}
		grandTotal := subTotal.Add(taxTotal)

		invoiceNumber, err := models.NextDocumentNumber(tx, ctx, businessId, models.NumberModuleInvoice)
		if err != nil {
			return err
		}
		invoice := models.Invoice{
			BusinessId:    businessId,
			InvoiceNumber: invoiceNumber,
			SubTotal:      subTotal,
			TaxAmount:     taxTotal,
			GrandTotal:    grandTotal,
			Paid:          &paid,
			InvoiceDate:   saleDate,
		}
		if customer != nil {
			invoice.CustomerId = &customer.ID
			invoice.CustomerName = customer.Name
		}
		if err := tx.WithContext(ctx).Create(&invoice).Error; err != nil {
			return err
		}

		sales := make([]*models.Sale, 0, len(lines))
		for _, line := range lines {
			_, err := models.AdjustProductStock(tx, ctx, businessId, line.product.ID, line.input.Qty.Neg(),
				models.StockReferenceTypeSale, invoice.ID, fmt.Sprintf("sale %s", invoice.InvoiceNumber))
			if err != nil {
				return err
			}

			sale := models.Sale{
				BusinessId:    businessId,
				ProductId:     line.product.ID,
				ProductName:   line.product.Name,
				Qty:           line.input.Qty,
				UnitCost:      line.product.UnitCost,
				UnitPrice:     line.price,
				Sale:          line.pricing.Sale,
				Cost:          line.pricing.Cost,
				Profit:        line.pricing.Profit,
				ProfitPercent: line.pricing.ProfitPercent,
				TaxRate:       line.product.TaxRate,
				TaxAmount:     line.pricing.TaxAmount,
				Paid:          &paid,
				InvoiceId:     &invoice.ID,
				SaleDate:      saleDate,
			}
			if customer != nil {
				sale.CustomerId = &customer.ID
			}
			if err := tx.WithContext(ctx).Create(&sale).Error; err != nil {
				return err
			}

			detail := models.InvoiceDetail{
				InvoiceId: invoice.ID,
				SaleId:    sale.ID,
				Name:      sale.ProductName,
				Qty:       sale.Qty,
				Rate:      sale.UnitPrice,
				TaxRate:   sale.TaxRate,
				Amount:    line.pricing.Sale.Add(line.pricing.TaxAmount),
			}
			if err := tx.WithContext(ctx).Create(&detail).Error; err != nil {
				return err
			}
			sales = append(sales, &sale)
		}

		if customer != nil {
			_, err := RecordContactTransaction(tx, ctx, businessId, LedgerEntryInput{
				ContactType: models.ContactTypeCustomer,
				ContactId:   customer.ID,
				Type:        models.TransactionTypeSale,
				Amount:      grandTotal,
				Description: fmt.Sprintf("sale %s", invoice.InvoiceNumber),
				InvoiceId:   &invoice.ID,
				Date:        saleDate,
			})
			if err != nil {
				return err
			}
			if paid {
				_, err := RecordContactTransaction(tx, ctx, businessId, LedgerEntryInput{
					ContactType: models.ContactTypeCustomer,
					ContactId:   customer.ID,
					Type:        models.TransactionTypePayment,
					Amount:      grandTotal.Neg(),
					Description: fmt.Sprintf("payment for sale %s", invoice.InvoiceNumber),
					InvoiceId:   &invoice.ID,
					Date:        saleDate,
				})
				if err != nil {
					return err
				}
			}
			if err := tx.WithContext(ctx).Model(&models.Customer{}).
				Where("business_id = ? AND id = ?", businessId, customer.ID).
				UpdateColumns(map[string]interface{}{
					"total_sales":  gorm.Expr("total_sales + ?", subTotal),
					"total_profit": gorm.Expr("total_profit + ?", profitTotal),
				}).Error; err != nil {
				return err
			}
		}

		if err := tx.Commit().Error; err != nil {
			return err
		}

		invoice.Details = nil
		result = &SaleResult{Sales: sales, Invoice: &invoice}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteSale removes a single sale line and compensates all of its effects:
// stock comes back as a reversal movement, the customer balance is restored
// through an appended compensating ledger entry, and the invoice loses the
// matching detail line. The original ledger rows are never edited. A second
// delete of the same sale finds no row and reports not found.
func DeleteSale(ctx context.Context, id int) error {
	return withConflictRetry(func() error {
		return deleteSale(ctx, id)
	})
}

func deleteSale(ctx context.Context, id int) error {
	ctx, span := tracer.Start(ctx, "deleteSale")
	defer span.End()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return utils.NewUnauthorizedError("business id is required")
	}

	return utils.BusinessLock(ctx, businessId, "posting", "saleWorkflow.go", "deleteSale", func() error {
		db := config.GetDB()
		tx := db.Begin()
		defer func() { _ = tx.Rollback().Error }()

		if err := AcquireBusinessPostingLock(tx, businessId); err != nil {
			return utils.NewConflictError("%s", err.Error())
		}
		defer ReleaseBusinessPostingLock(tx, businessId)

		var sale models.Sale
		err := tx.WithContext(ctx).
			Where("business_id = ? AND id = ?", businessId, id).
			First(&sale).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NewNotFoundError("sale not found")
		}
		if err != nil {
			return err
		}

		_, err = models.AdjustProductStock(tx, ctx, businessId, sale.ProductId, sale.Qty,
			models.StockReferenceTypeReversal, sale.ID, fmt.Sprintf("reversal of sale %d", sale.ID))
		if err != nil {
			return err
		}

		lineTotal := sale.Sale.Add(sale.TaxAmount)
		paid := sale.Paid != nil && *sale.Paid
		if sale.CustomerId != nil && !paid {
			// A paid sale already netted to zero on the ledger, so only
			// unpaid sales need a balance-restoring entry.
			input := LedgerEntryInput{
				ContactType: models.ContactTypeCustomer,
				ContactId:   *sale.CustomerId,
				Type:        models.TransactionTypeCredit,
				Amount:      lineTotal.Neg(),
				Description: fmt.Sprintf("reversal of sale %d", sale.ID),
				SaleId:      &sale.ID,
				InvoiceId:   sale.InvoiceId,
				Date:        time.Now(),
			}
			if sale.InvoiceId != nil {
				var original models.ContactTransaction
				err := tx.WithContext(ctx).
					Where("business_id = ? AND invoice_id = ? AND type = ? AND reverses_transaction_id IS NULL",
						businessId, *sale.InvoiceId, models.TransactionTypeSale).
					First(&original).Error
				if err == nil {
					input.ReversesTransactionId = &original.ID
				} else if !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}
			}
			if _, err := RecordContactTransaction(tx, ctx, businessId, input); err != nil {
				return err
			}
		}
		if sale.CustomerId != nil {
			if err := tx.WithContext(ctx).Model(&models.Customer{}).
				Where("business_id = ? AND id = ?", businessId, *sale.CustomerId).
				UpdateColumns(map[string]interface{}{
					"total_sales":  gorm.Expr("total_sales - ?", sale.Sale),
					"total_profit": gorm.Expr("total_profit - ?", sale.Profit),
				}).Error; err != nil {
				return err
			}
		}

		if sale.InvoiceId != nil {
			if err := tx.WithContext(ctx).
				Where("invoice_id = ? AND sale_id = ?", *sale.InvoiceId, sale.ID).
				Delete(&models.InvoiceDetail{}).Error; err != nil {
				return err
			}
			var remaining int64
			if err := tx.WithContext(ctx).Model(&models.InvoiceDetail{}).
				Where("invoice_id = ?", *sale.InvoiceId).
				Count(&remaining).Error; err != nil {
				return err
			}
			if remaining == 0 {
				if err := tx.WithContext(ctx).
					Where("business_id = ? AND id = ?", businessId, *sale.InvoiceId).
					Delete(&models.Invoice{}).Error; err != nil {
					return err
				}
			} else {
				if err := tx.WithContext(ctx).Model(&models.Invoice{}).
					Where("business_id = ? AND id = ?", businessId, *sale.InvoiceId).
					UpdateColumns(map[string]interface{}{
						"sub_total":   gorm.Expr("sub_total - ?", sale.Sale),
						"tax_amount":  gorm.Expr("tax_amount - ?", sale.TaxAmount),
						"grand_total": gorm.Expr("grand_total - ?", lineTotal),
					}).Error; err != nil {
					return err
				}
			}
		}

		if err := tx.WithContext(ctx).
			Where("business_id = ? AND id = ?", businessId, sale.ID).
			Delete(&models.Sale{}).Error; err != nil {
			return err
		}

		return tx.Commit().Error
	})
}
