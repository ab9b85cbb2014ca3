package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/shopledger_backend/config"
	"bitbucket.org/mmdatafocus/shopledger_backend/utils"
	"github.com/shopspring/decimal"
)

// ContactTransaction is one row of the append-only contact ledger. Rows are
// never edited after creation; corrections are compensating rows linked via
// ReversesTransactionId. BalanceAfter snapshots the contact's cached balance
// immediately after this row was applied, in posting order.
type ContactTransaction struct {
	ID                    int             `gorm:"primary_key" json:"id"`
	BusinessId            string          `gorm:"index;not null" json:"business_id"`
	ContactType           ContactType     `gorm:"index;type:enum('customer','supplier');not null" json:"contact_type"`
	ContactId             int             `gorm:"index;not null" json:"contact_id"`
	Type                  TransactionType `gorm:"type:enum('sale','purchase','payment','credit','debit');not null" json:"type"`
	Amount                decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	BalanceAfter          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"balance_after"`
	Description           string          `gorm:"size:255" json:"description"`
	SaleId                *int            `gorm:"index" json:"sale_id"`
	InvoiceId             *int            `gorm:"index" json:"invoice_id"`
	ReversesTransactionId *int            `gorm:"index" json:"reverses_transaction_id"`
	TransactionDate       time.Time       `gorm:"index;not null" json:"transaction_date"`
	CreatedAt             time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func GetContactTransactions(ctx context.Context, contactType ContactType, contactId int, fromDate, toDate *time.Time) ([]*ContactTransaction, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}

	db := config.GetDB()
	query := db.WithContext(ctx).
		Where("business_id = ? AND contact_type = ? AND contact_id = ?", businessId, contactType, contactId)
	if fromDate != nil {
		query = query.Where("transaction_date >= ?", fromDate)
	}
	if toDate != nil {
		query = query.Where("transaction_date <= ?", toDate)
	}

	var transactions []*ContactTransaction
	if err := query.Order("transaction_date, id").Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

// SumContactTransactions replays the log for one contact: the returned sum is
// what the cached balance must equal. Used by the drift check and the
// ledger-rebuild command.
func SumContactTransactions(ctx context.Context, businessId string, contactType ContactType, contactId int) (decimal.Decimal, error) {
	db := config.GetDB()
	var sum decimal.NullDecimal
	err := db.WithContext(ctx).Model(&ContactTransaction{}).
		Where("business_id = ? AND contact_type = ? AND contact_id = ?", businessId, contactType, contactId).
		Select("SUM(amount)").
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}
