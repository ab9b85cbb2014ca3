package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/shopledger_backend/config"
	"bitbucket.org/mmdatafocus/shopledger_backend/utils"
	"gorm.io/gorm"
)

type User struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id"`
	Name       string    `gorm:"size:100;not null" json:"name"`
	Username   string    `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Password   string    `gorm:"size:100;not null" json:"-"`
	IsActive   *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Name     string `json:"name" binding:"required"`
	Username string `json:"username" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

func CreateUser(ctx context.Context, businessId string, input *NewUser) (*User, error) {
	return createUser(config.GetDB(), ctx, businessId, input)
}

func createUser(tx *gorm.DB, ctx context.Context, businessId string, input *NewUser) (*User, error) {
	// Usernames are unique across all tenants, so the duplicate check must
	// not be narrowed to the caller's business scope.
	lookupCtx := utils.SetSkipTenantScopeInContext(ctx, true)
	var count int64
	if err := tx.WithContext(lookupCtx).Model(&User{}).Where("username = ?", input.Username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.NewValidationError("duplicate username")
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := User{
		BusinessId: businessId,
		Name:       input.Name,
		Username:   input.Username,
		Password:   string(hashed),
		IsActive:   utils.NewTrue(),
	}
	if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername is used by login, before any business scope exists.
func GetUserByUsername(ctx context.Context, username string) (*User, error) {
	db := config.GetDB()
	var user User
	err := db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &user, nil
}
