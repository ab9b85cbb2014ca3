package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/shopledger_backend/config"
	"bitbucket.org/mmdatafocus/shopledger_backend/utils"
	"github.com/shopspring/decimal"
)

type Expense struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"index;not null" json:"business_id"`
	Category    string          `gorm:"size:100;not null" json:"category"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Description string          `gorm:"size:255" json:"description"`
	ExpenseDate time.Time       `gorm:"index;not null" json:"expense_date"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewExpense struct {
	Category    string          `json:"category" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Description string          `json:"description"`
	ExpenseDate time.Time       `json:"expense_date"`
}

func CreateExpense(ctx context.Context, input *NewExpense) (*Expense, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}
	if !input.Amount.IsPositive() {
		return nil, utils.NewValidationError("amount must be positive")
	}

	expenseDate := input.ExpenseDate
	if expenseDate.IsZero() {
		expenseDate = time.Now()
	}

	expense := Expense{
		BusinessId:  businessId,
		Category:    input.Category,
		Amount:      input.Amount,
		Description: input.Description,
		ExpenseDate: expenseDate,
	}
	if err := db.WithContext(ctx).Create(&expense).Error; err != nil {
		return nil, err
	}
	return &expense, nil
}

func GetExpenses(ctx context.Context, fromDate, toDate *time.Time) ([]*Expense, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}

	db := config.GetDB()
	query := db.WithContext(ctx).Where("business_id = ?", businessId)
	if fromDate != nil {
		query = query.Where("expense_date >= ?", fromDate)
	}
	if toDate != nil {
		query = query.Where("expense_date <= ?", toDate)
	}

	var expenses []*Expense
	if err := query.Order("expense_date DESC, id DESC").Find(&expenses).Error; err != nil {
		return nil, err
	}
	return expenses, nil
}

func DeleteExpense(ctx context.Context, id int) (*Expense, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}

	expense, err := utils.FetchModel[Expense](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(expense).Error; err != nil {
		return nil, err
	}
	return expense, nil
}
