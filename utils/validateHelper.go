package utils

import (
	"context"
	"reflect"

	"bitbucket.org/mmdatafocus/shopledger_backend/config"
	"github.com/go-playground/validator/v10"
)

// Shared validator instance for callers outside the gin binding path
// (workflow inputs, cmd tools). Gin handlers get the same rules via
// `binding` tags.
var validate = func() *validator.Validate {
	v := validator.New()
	// Reuse the same rule set gin enforces on bound request bodies.
	v.SetTagName("binding")
	return v
}()

func ValidateStruct(input any) error {
	if err := validate.Struct(input); err != nil {
		return NewValidationError("%s", err.Error())
	}
	return nil
}

// check if id exists, using business_id in WHERE, returns ErrorRecordNotFound
func ValidateResourceId[T any](ctx context.Context, businessId string, id interface{}) error {

	count, err := ResourceCountWhere[T](ctx, businessId, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}

	return nil
}

func ValidateUnique[T any](ctx context.Context, businessId string, column string, value interface{}, exceptId interface{}) error {
	var count int64
	var err error
	if reflect.ValueOf(exceptId).IsZero() {
		count, err = ResourceCountWhere[T](ctx, businessId, column+" = ?", value)
	} else {
		count, err = ResourceCountWhere[T](ctx, businessId, column+" = ? AND NOT id = ?", value, exceptId)
	}

	if err != nil {
		return err
	}
	if count > 0 {
		return NewValidationError("duplicate %s", column)
	}
	return nil
}

// count records, using WHERE business_id = ? AND $condition
func ResourceCountWhere[T any](ctx context.Context, businessId string, condition string, value ...interface{}) (int64, error) {
	var model T

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&model)
	var count int64
	if businessId != "" {
		dbCtx.Where("business_id = ?", businessId)
	}
	dbCtx.Where(condition, value...)
	if err := dbCtx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
