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

type NewPurchaseItem struct {
	ProductId int              `json:"product" binding:"required"`
	Qty       decimal.Decimal  `json:"qty" binding:"required"`
	UnitCost  *decimal.Decimal `json:"unitCost"`
}

type NewPurchaseSupplier struct {
	Id   *int   `json:"id"`
	Name string `json:"name"`
}

type NewPurchase struct {
	Items    []NewPurchaseItem    `json:"items" binding:"required,min=1,dive"`
	Date     time.Time            `json:"date"`
	Paid     *bool                `json:"paid"`
	Supplier *NewPurchaseSupplier `json:"supplier"`
}

type PurchaseResult struct {
	PurchaseNumber string                     `json:"purchase_number"`
	Total          decimal.Decimal            `json:"total"`
	Transaction    *models.ContactTransaction `json:"transaction,omitempty"`
}

// CreatePurchase mirrors the sale workflow on the supply side: stock goes up
// per item, a new unit cost replaces the product's stored cost when given,
// and the supplier owes one ledger entry for the received total. Paid
// purchases post the settling payment entry in the same transaction.
func CreatePurchase(ctx context.Context, input *NewPurchase) (*PurchaseResult, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	var result *PurchaseResult
	err := withConflictRetry(func() error {
		var err error
		result, err = createPurchase(ctx, input)
		return err
	})
	return result, err
}

func createPurchase(ctx context.Context, input *NewPurchase) (*PurchaseResult, error) {
	ctx, span := tracer.Start(ctx, "createPurchase")
	defer span.End()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}
	if len(input.Items) == 0 {
		return nil, utils.NewValidationError("purchase must have at least one item")
	}

	purchaseDate := input.Date
	if purchaseDate.IsZero() {
		purchaseDate = time.Now()
	}
	paid := input.Paid != nil && *input.Paid

	var supplier *models.Supplier
	if input.Supplier != nil && (input.Supplier.Id != nil || input.Supplier.Name != "") {
		var err error
		supplier, err = models.GetOrCreateSupplier(ctx, input.Supplier.Id, input.Supplier.Name)
		if err != nil {
			return nil, err
		}
	}

	var result *PurchaseResult
	err := utils.BusinessLock(ctx, businessId, "posting", "purchaseWorkflow.go", "createPurchase", func() error {
		db := config.GetDB()
		tx := db.Begin()
		defer func() { _ = tx.Rollback().Error }()

		if err := AcquireBusinessPostingLock(tx, businessId); err != nil {
			return utils.NewConflictError("%s", err.Error())
		}
		defer ReleaseBusinessPostingLock(tx, businessId)

		purchaseNumber, err := models.NextDocumentNumber(tx, ctx, businessId, models.NumberModulePurchase)
		if err != nil {
			return err
		}

		total := decimal.Zero
		for _, item := range input.Items {
			if !item.Qty.IsPositive() {
				return utils.NewValidationError("purchase quantity must be positive")
			}

			var product models.Product
			err := tx.WithContext(ctx).
				Where("business_id = ? AND id = ?", businessId, item.ProductId).
				First(&product).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewNotFoundError("product %d not found", item.ProductId)
			}
			if err != nil {
				return err
			}

			unitCost := product.UnitCost
			if item.UnitCost != nil {
				if item.UnitCost.IsNegative() {
					return utils.NewValidationError("unit cost must not be negative")
				}
				unitCost = *item.UnitCost
				if err := tx.WithContext(ctx).Model(&models.Product{}).
					Where("business_id = ? AND id = ?", businessId, product.ID).
					UpdateColumn("unit_cost", unitCost).Error; err != nil {
					return err
				}
			}

			_, err = models.AdjustProductStock(tx, ctx, businessId, product.ID, item.Qty,
				models.StockReferenceTypePurchase, 0, fmt.Sprintf("purchase %s", purchaseNumber))
			if err != nil {
				return err
			}

			total = total.Add(unitCost.Mul(item.Qty).Round(2))
		}

		var transaction *models.ContactTransaction
		if supplier != nil {
			transaction, err = RecordContactTransaction(tx, ctx, businessId, LedgerEntryInput{
				ContactType: models.ContactTypeSupplier,
				ContactId:   supplier.ID,
				Type:        models.TransactionTypePurchase,
				Amount:      total,
				Description: fmt.Sprintf("purchase %s", purchaseNumber),
				Date:        purchaseDate,
			})
			if err != nil {
				return err
			}
			if paid {
				_, err := RecordContactTransaction(tx, ctx, businessId, LedgerEntryInput{
					ContactType: models.ContactTypeSupplier,
					ContactId:   supplier.ID,
					Type:        models.TransactionTypePayment,
					Amount:      total.Neg(),
					Description: fmt.Sprintf("payment for purchase %s", purchaseNumber),
					Date:        purchaseDate,
				})
				if err != nil {
					return err
				}
			}
			updates := map[string]interface{}{
				"total_purchases": gorm.Expr("total_purchases + ?", total),
			}
			if paid {
				updates["total_paid"] = gorm.Expr("total_paid + ?", total)
			}
			if err := tx.WithContext(ctx).Model(&models.Supplier{}).
				Where("business_id = ? AND id = ?", businessId, supplier.ID).
				UpdateColumns(updates).Error; err != nil {
				return err
			}
		}

		if err := tx.Commit().Error; err != nil {
			return err
		}
		result = &PurchaseResult{PurchaseNumber: purchaseNumber, Total: total, Transaction: transaction}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
