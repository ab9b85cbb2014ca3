package workflow

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/shopledger_backend/config"
	"bitbucket.org/mmdatafocus/shopledger_backend/models"
	"bitbucket.org/mmdatafocus/shopledger_backend/utils"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var tracer trace.Tracer = otel.Tracer("shopledger-posting")

// maxPostingAttempts bounds the internal retry on posting-lock contention.
// Only conflicts are retried; domain errors surface immediately.
const maxPostingAttempts = 3

func withConflictRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < maxPostingAttempts; attempt++ {
		err = fn()
		if err == nil || !utils.IsKind(err, utils.ErrorKindConflict) {
			return err
		}
		// Give the current lock holder time to finish posting.
		time.Sleep(time.Duration(attempt+1) * 150 * time.Millisecond)
	}
	return err
}

type LedgerEntryInput struct {
	ContactType           models.ContactType
	ContactId             int
	Type                  models.TransactionType
	Amount                decimal.Decimal
	Description           string
	SaleId                *int
	InvoiceId             *int
	ReversesTransactionId *int
	Date                  time.Time
}

// RecordContactTransaction is the only writer of contact balances. It runs
// inside the caller's posting transaction (held under the business posting
// lock) and pairs an atomic balance increment with one append-only ledger row
// whose BalanceAfter snapshots the post-increment balance.
func RecordContactTransaction(tx *gorm.DB, ctx context.Context, businessId string, input LedgerEntryInput) (*models.ContactTransaction, error) {
	var res *gorm.DB
	switch input.ContactType {
	case models.ContactTypeCustomer:
		res = tx.WithContext(ctx).Model(&models.Customer{}).
			Where("business_id = ? AND id = ?", businessId, input.ContactId).
			UpdateColumn("balance", gorm.Expr("balance + ?", input.Amount))
	case models.ContactTypeSupplier:
		res = tx.WithContext(ctx).Model(&models.Supplier{}).
			Where("business_id = ? AND id = ?", businessId, input.ContactId).
			UpdateColumn("balance", gorm.Expr("balance + ?", input.Amount))
	default:
		return nil, utils.NewValidationError("unknown contact type %q", input.ContactType)
	}
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, utils.NewNotFoundError("%s not found", input.ContactType)
	}

	var balanceAfter decimal.Decimal
	table := "customers"
	if input.ContactType == models.ContactTypeSupplier {
		table = "suppliers"
	}
	err := tx.WithContext(ctx).Table(table).
		Where("business_id = ? AND id = ?", businessId, input.ContactId).
		Select("balance").
		Scan(&balanceAfter).Error
	if err != nil {
		return nil, err
	}

	transactionDate := input.Date
	if transactionDate.IsZero() {
		transactionDate = time.Now()
	}

	transaction := models.ContactTransaction{
		BusinessId:            businessId,
		ContactType:           input.ContactType,
		ContactId:             input.ContactId,
		Type:                  input.Type,
		Amount:                input.Amount,
		BalanceAfter:          balanceAfter,
		Description:           input.Description,
		SaleId:                input.SaleId,
		InvoiceId:             input.InvoiceId,
		ReversesTransactionId: input.ReversesTransactionId,
		TransactionDate:       transactionDate,
	}
	if err := tx.WithContext(ctx).Create(&transaction).Error; err != nil {
		return nil, err
	}

	return &transaction, nil
}

type NewContactPayment struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
}

// RecordCustomerPayment posts a payment against what the customer owes.
// A payment larger than the current balance is a caller error, checked under
// the posting lock so the balance cannot move between check and write.
func RecordCustomerPayment(ctx context.Context, customerId int, input *NewContactPayment) (*models.ContactTransaction, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	var result *models.ContactTransaction
	err := withConflictRetry(func() error {
		var err error
		result, err = recordContactPayment(ctx, models.ContactTypeCustomer, customerId, input)
		return err
	})
	return result, err
}

func RecordSupplierPayment(ctx context.Context, supplierId int, input *NewContactPayment) (*models.ContactTransaction, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	var result *models.ContactTransaction
	err := withConflictRetry(func() error {
		var err error
		result, err = recordContactPayment(ctx, models.ContactTypeSupplier, supplierId, input)
		return err
	})
	return result, err
}

func recordContactPayment(ctx context.Context, contactType models.ContactType, contactId int, input *NewContactPayment) (*models.ContactTransaction, error) {
	ctx, span := tracer.Start(ctx, "recordContactPayment")
	defer span.End()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}
	if !input.Amount.IsPositive() {
		return nil, utils.NewValidationError("payment amount must be positive")
	}

	var result *models.ContactTransaction
	err := utils.BusinessLock(ctx, businessId, "posting", "ledgerWorkflow.go", "recordContactPayment", func() error {
		db := config.GetDB()
		tx := db.Begin()
		defer func() { _ = tx.Rollback().Error }()

		if err := AcquireBusinessPostingLock(tx, businessId); err != nil {
			return utils.NewConflictError("%s", err.Error())
		}
		defer ReleaseBusinessPostingLock(tx, businessId)

		var balance decimal.Decimal
		table := "customers"
		if contactType == models.ContactTypeSupplier {
			table = "suppliers"
		}
		res := tx.WithContext(ctx).Table(table).
			Where("business_id = ? AND id = ?", businessId, contactId).
			Select("balance").
			Scan(&balance)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.NewNotFoundError("%s not found", contactType)
		}
		if input.Amount.GreaterThan(balance) {
			return utils.NewValidationError("payment amount %s exceeds current balance %s", input.Amount.String(), balance.String())
		}

		transaction, err := RecordContactTransaction(tx, ctx, businessId, LedgerEntryInput{
			ContactType: contactType,
			ContactId:   contactId,
			Type:        models.TransactionTypePayment,
			Amount:      input.Amount.Neg(),
			Description: input.Description,
			Date:        input.Date,
		})
		if err != nil {
			return err
		}

		if contactType == models.ContactTypeSupplier {
			if err := tx.WithContext(ctx).Model(&models.Supplier{}).
				Where("business_id = ? AND id = ?", businessId, contactId).
				UpdateColumn("total_paid", gorm.Expr("total_paid + ?", input.Amount)).Error; err != nil {
				return err
			}
		}

		if err := tx.Commit().Error; err != nil {
			return err
		}
		result = transaction
		return nil
	})
	return result, err
}
