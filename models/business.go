package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/shopledger_backend/config"
	"bitbucket.org/mmdatafocus/shopledger_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Business is the tenant. Every other entity carries a
// business_id and every query is scoped by it; the tenant guard plugin
// enforces the scoping for gorm-built queries.
type Business struct {
	ID                uuid.UUID `gorm:"primary_key" json:"id"`
	Name              string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Email             string    `gorm:"size:100" json:"email"`
	Phone             string    `gorm:"size:20" json:"phone"`
	Address           string    `gorm:"type:text" json:"address"`
	ReportingTimeZone string    `gorm:"size:64;not null;default:'UTC'" json:"reporting_time_zone"`
	IsActive          *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBusiness struct {
	Name              string `json:"name" binding:"required"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	Address           string `json:"address"`
	ReportingTimeZone string `json:"reporting_time_zone"`
}

func CreateBusiness(ctx context.Context, input *NewBusiness) (*Business, error) {
	db := config.GetDB()
	var business *Business
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		business, err = createBusiness(tx, ctx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return business, nil
}

// RegisterBusiness creates the tenant, its document number series, and its
// first user in one transaction. A failing user (duplicate username) rolls
// the whole bootstrap back so no orphaned tenant rows survive.
func RegisterBusiness(ctx context.Context, businessInput *NewBusiness, userInput *NewUser) (*Business, *User, error) {
	db := config.GetDB()
	var business *Business
	var user *User
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		business, err = createBusiness(tx, ctx, businessInput)
		if err != nil {
			return err
		}
		user, err = createUser(tx, ctx, business.ID.String(), userInput)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return business, user, nil
}

func createBusiness(tx *gorm.DB, ctx context.Context, input *NewBusiness) (*Business, error) {
	tz := input.ReportingTimeZone
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, utils.NewValidationError("unknown reporting time zone %q", tz)
	}

	business := Business{
		ID:                uuid.New(),
		Name:              input.Name,
		Email:             input.Email,
		Phone:             input.Phone,
		Address:           input.Address,
		ReportingTimeZone: tz,
		IsActive:          utils.NewTrue(),
	}
	if err := tx.WithContext(ctx).Create(&business).Error; err != nil {
		return nil, err
	}

	// Each business gets its own document number sequences.
	if err := seedNumberSeries(tx, ctx, business.ID.String()); err != nil {
		return nil, err
	}

	return &business, nil
}

func GetBusinessById(ctx context.Context, id string) (*Business, error) {
	db := config.GetDB()
	var business Business
	err := db.WithContext(ctx).Where("id = ?", id).First(&business).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &business, nil
}

// ReportingLocation resolves the business's reporting timezone, falling back
// to UTC if the stored name no longer resolves.
func (b *Business) ReportingLocation() *time.Location {
	loc, err := time.LoadLocation(b.ReportingTimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
