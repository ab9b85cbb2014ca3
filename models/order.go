package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/shopledger_backend/config"
	"bitbucket.org/mmdatafocus/shopledger_backend/utils"
	"github.com/shopspring/decimal"
)

// Order is a forward-looking procurement/delivery commitment. Unlike a Sale
// it never touches inventory stock or the contact ledger; its money figures
// are projections derived from price and the expected profit margin.
type Order struct {
	ID              int             `gorm:"primary_key" json:"id"`
	BusinessId      string          `gorm:"index;not null" json:"business_id"`
	Item            string          `gorm:"size:100;not null" json:"item"`
	Qty             decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
	Price           decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"price"`
	ProfitInPercent decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"profit_in_percent"`
	Sale            decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"sale"`
	Profit          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"profit"`
	Cost            decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"cost"`
	DateToDelivery  time.Time       `gorm:"index" json:"date_to_delivery"`
	Done            *bool           `gorm:"not null;default:false;index" json:"done"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewOrder keys follow the dashboard's wire contract (including its historic
// "dateToDilivery" spelling).
type NewOrder struct {
	Item            string          `json:"item" binding:"required"`
	Qty             decimal.Decimal `json:"qty" binding:"required"`
	Price           decimal.Decimal `json:"price" binding:"required"`
	ProfitInPercent decimal.Decimal `json:"profitInPercent"`
	DateToDelivery  time.Time       `json:"dateToDilivery"`
}

func (input *NewOrder) validate() error {
	if !input.Qty.IsPositive() {
		return utils.NewValidationError("qty must be positive")
	}
	if input.Price.IsNegative() {
		return utils.NewValidationError("price must not be negative")
	}
	if input.ProfitInPercent.IsNegative() {
		return utils.NewValidationError("profitInPercent must not be negative")
	}
	return nil
}

func CreateOrder(ctx context.Context, input *NewOrder) (*Order, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	// Same formula family as Sale: sale = price * qty, profit% over cost.
	sale := input.Price.Mul(input.Qty).Round(2)
	oneHundred := decimal.NewFromInt(100)
	cost := sale.Mul(oneHundred).DivRound(oneHundred.Add(input.ProfitInPercent), 2)
	profit := sale.Sub(cost)

	order := Order{
		BusinessId:      businessId,
		Item:            input.Item,
		Qty:             input.Qty,
		Price:           input.Price,
		ProfitInPercent: input.ProfitInPercent,
		Sale:            sale,
		Profit:          profit,
		Cost:            cost,
		DateToDelivery:  input.DateToDelivery,
		Done:            utils.NewFalse(),
	}
	if err := db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func GetOrders(ctx context.Context) ([]*Order, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}

	db := config.GetDB()
	var orders []*Order
	err := db.WithContext(ctx).
		Where("business_id = ?", businessId).
		Order("date_to_delivery, id").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func ToggleOrderDone(ctx context.Context, id int) (*Order, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}

	order, err := utils.FetchModel[Order](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	done := order.Done == nil || !*order.Done
	if err := db.WithContext(ctx).Model(order).UpdateColumn("done", done).Error; err != nil {
		return nil, err
	}
	order.Done = &done
	return order, nil
}

func DeleteOrder(ctx context.Context, id int) (*Order, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}

	order, err := utils.FetchModel[Order](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func CountOrders(ctx context.Context) (int64, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return 0, utils.NewUnauthorizedError("business id is required")
	}
	return utils.ResourceCountWhere[Order](ctx, businessId, "1 = 1")
}

func CountPendingOrders(ctx context.Context) (int64, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return 0, utils.NewUnauthorizedError("business id is required")
	}
	return utils.ResourceCountWhere[Order](ctx, businessId, "done = ?", false)
}
