package workflow_test

import (
	"context"
	"testing"

	"bitbucket.org/mmdatafocus/shopledger_backend/config"
	"bitbucket.org/mmdatafocus/shopledger_backend/models"
	"bitbucket.org/mmdatafocus/shopledger_backend/utils"
)

func TestRegisterBusiness_DuplicateUsernameLeavesNoOrphanTenant(t *testing.T) {
	ctx := setupLedgerTest(t)
	db := config.GetDB()

	owner := models.NewUser{Name: "Owner", Username: "owner@shopledger.test", Password: "password123"}
	if _, _, err := models.RegisterBusiness(ctx, &models.NewBusiness{Name: "First Shop"}, &owner); err != nil {
		t.Fatalf("RegisterBusiness: %v", err)
	}

	unscoped := utils.SetSkipTenantScopeInContext(ctx, true)
	var seriesBefore int64
	if err := db.WithContext(unscoped).Model(&models.DocumentNumberSeries{}).Count(&seriesBefore).Error; err != nil {
		t.Fatalf("count number series: %v", err)
	}

	taken := models.NewUser{Name: "Owner Two", Username: "owner@shopledger.test", Password: "password123"}
	_, _, err := models.RegisterBusiness(ctx, &models.NewBusiness{Name: "Second Shop"}, &taken)
	if utils.KindOf(err) != utils.ErrorKindValidation {
		t.Fatalf("duplicate username: got %v, want validation error", err)
	}

	var businesses int64
	if err := db.WithContext(ctx).Model(&models.Business{}).Where("name = ?", "Second Shop").Count(&businesses).Error; err != nil {
		t.Fatalf("count businesses: %v", err)
	}
	if businesses != 0 {
		t.Errorf("business rows named %q = %d, want 0", "Second Shop", businesses)
	}

	var seriesAfter int64
	if err := db.WithContext(unscoped).Model(&models.DocumentNumberSeries{}).Count(&seriesAfter).Error; err != nil {
		t.Fatalf("count number series: %v", err)
	}
	if seriesAfter != seriesBefore {
		t.Errorf("number series rows = %d, want %d (failed bootstrap must roll back its series)", seriesAfter, seriesBefore)
	}

	var users int64
	if err := db.WithContext(unscoped).Model(&models.User{}).Where("username = ?", owner.Username).Count(&users).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if users != 1 {
		t.Errorf("users with username %q = %d, want 1", owner.Username, users)
	}
}

func TestGetOrCreateCustomer_LookupFailureDoesNotCreate(t *testing.T) {
	ctx := setupLedgerTest(t)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	if _, err := models.GetOrCreateCustomer(cancelled, nil, "Phantom Trading"); err == nil {
		t.Fatal("expected error when the name lookup cannot run")
	}

	customers, err := models.GetCustomers(ctx, nil)
	if err != nil {
		t.Fatalf("GetCustomers: %v", err)
	}
	for _, customer := range customers {
		if customer.Name == "Phantom Trading" {
			t.Errorf("customer %q was created even though the lookup failed", customer.Name)
		}
	}
}
