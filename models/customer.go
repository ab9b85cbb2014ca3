package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/shopledger_backend/config"
	"bitbucket.org/mmdatafocus/shopledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Customer carries a cached Balance: the signed amount the customer owes.
// The contact transaction log is the source of truth; Balance is a
// materialized view maintained exclusively by the ledger writer and
// rebuildable by replaying the log (cmd/ledger-rebuild).
type Customer struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"index;not null" json:"business_id"`
	Name        string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Email       string          `gorm:"size:100" json:"email"`
	Phone       string          `gorm:"size:20" json:"phone"`
	Address     string          `gorm:"type:text" json:"address"`
	Balance     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"balance"`
	TotalSales  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_sales"`
	TotalProfit decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_profit"`
	IsActive    *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCustomer struct {
	Name             string `json:"name" binding:"required"`
	Email            string `json:"email" binding:"omitempty,email"`
	Phone            string `json:"phone"`
	PhoneCountryCode string `json:"phone_country_code"`
	Address          string `json:"address"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewCustomer) validate(ctx context.Context, businessId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Customer](ctx, businessId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[Customer](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	if input.Phone != "" {
		countryCode := input.PhoneCountryCode
		if countryCode == "" {
			countryCode = "IN"
		}
		if err := utils.ValidatePhoneNumber(input.Phone, countryCode); err != nil {
			return utils.NewValidationError("invalid phone number")
		}
	}
	return nil
}

func CreateCustomer(ctx context.Context, input *NewCustomer) (*Customer, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	customer := Customer{
		BusinessId: businessId,
		Name:       strings.TrimSpace(input.Name),
		Email:      input.Email,
		Phone:      input.Phone,
		Address:    input.Address,
		IsActive:   utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func UpdateCustomer(ctx context.Context, id int, input *NewCustomer) (*Customer, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}
	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	db := config.GetDB()
	customer, err := utils.FetchModel[Customer](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	// Balance and totals are ledger-maintained; updates never touch them.
	err = db.WithContext(ctx).Model(customer).Updates(map[string]interface{}{
		"Name":    strings.TrimSpace(input.Name),
		"Email":   input.Email,
		"Phone":   input.Phone,
		"Address": input.Address,
	}).Error
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func DeleteCustomer(ctx context.Context, id int) (*Customer, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}

	customer, err := utils.FetchModel[Customer](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[ContactTransaction](ctx, businessId, "contact_type = ? AND contact_id = ?", ContactTypeCustomer, id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.NewValidationError("customer has ledger transactions and cannot be deleted")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(customer).Error; err != nil {
		return nil, err
	}
	return customer, nil
}

func GetCustomer(ctx context.Context, id int) (*Customer, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}
	return utils.FetchModel[Customer](ctx, businessId, id)
}

func GetCustomers(ctx context.Context, name *string) ([]*Customer, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if name != nil && *name != "" {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	var customers []*Customer
	if err := dbCtx.Order("name").Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

// GetOrCreateCustomer resolves a sale's customer reference: an explicit id, or
// a free-text name that is matched case-insensitively and created when new.
// Entity creation lives here, at the contact boundary, so the sale path stays
// free of creation side effects it doesn't own.
func GetOrCreateCustomer(ctx context.Context, id *int, name string) (*Customer, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}

	if id != nil && *id > 0 {
		return utils.FetchModel[Customer](ctx, businessId, *id)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, utils.NewValidationError("customer id or name is required")
	}

	db := config.GetDB()
	var customer Customer
	err := db.WithContext(ctx).Where("business_id = ? AND LOWER(name) = LOWER(?)", businessId, name).First(&customer).Error
	if err == nil {
		return &customer, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return CreateCustomer(ctx, &NewCustomer{Name: name})
}
