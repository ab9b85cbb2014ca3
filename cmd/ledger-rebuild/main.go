package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/shopledger_backend/config"
	"bitbucket.org/mmdatafocus/shopledger_backend/models"
	"bitbucket.org/mmdatafocus/shopledger_backend/utils"
	"github.com/shopspring/decimal"
)

// ledger-rebuild replays every contact's transaction log in order and
// recomputes running balances. Default is a dry run that reports drift
// between the replayed balance and the stored cached balance; -fix rewrites
// the cached balance and each row's balance_after from the replay.
func main() {
	businessID := flag.String("business-id", "", "Optional: rebuild only one business (uuid string). If empty, rebuilds all businesses.")
	fix := flag.Bool("fix", false, "Apply corrections instead of reporting drift only.")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	// The tenant guard scopes queries by the context business id; this tool
	// iterates businesses itself.
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)

	var businesses []models.Business
	bizQuery := db.WithContext(ctx).Model(&models.Business{})
	if strings.TrimSpace(*businessID) != "" {
		bizQuery = bizQuery.Where("id = ?", strings.TrimSpace(*businessID))
	}
	if err := bizQuery.Find(&businesses).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to list businesses: %v\n", err)
		os.Exit(1)
	}
	if len(businesses) == 0 {
		fmt.Fprintln(os.Stderr, "no businesses found")
		return
	}

	driftCount := 0
	for _, business := range businesses {
		bid := business.ID.String()
		driftCount += rebuildContacts(ctx, bid, models.ContactTypeCustomer, "customers", *fix)
		driftCount += rebuildContacts(ctx, bid, models.ContactTypeSupplier, "suppliers", *fix)
	}

	if driftCount == 0 {
		fmt.Println("ledger consistent: no drift found")
		return
	}
	if *fix {
		fmt.Printf("corrected %d drifted contact(s)\n", driftCount)
		return
	}
	fmt.Printf("found %d drifted contact(s); rerun with -fix to correct\n", driftCount)
	os.Exit(1)
}

func rebuildContacts(ctx context.Context, businessId string, contactType models.ContactType, table string, fix bool) int {
	db := config.GetDB()

	type contactRow struct {
		ID      int
		Balance decimal.Decimal
	}
	var contacts []contactRow
	err := db.WithContext(ctx).Table(table).
		Where("business_id = ?", businessId).
		Select("id, balance").
		Scan(&contacts).Error
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list %s for business %s: %v\n", table, businessId, err)
		os.Exit(1)
	}

	drifted := 0
	for _, contact := range contacts {
		var transactions []models.ContactTransaction
		err := db.WithContext(ctx).
			Where("business_id = ? AND contact_type = ? AND contact_id = ?", businessId, contactType, contact.ID).
			Order("transaction_date, id").
			Find(&transactions).Error
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load transactions for %s %d: %v\n", contactType, contact.ID, err)
			os.Exit(1)
		}

		running := decimal.Zero
		rowDrift := false
		for _, transaction := range transactions {
			running = running.Add(transaction.Amount)
			if !transaction.BalanceAfter.Equal(running) {
				rowDrift = true
				if fix {
					if err := db.WithContext(ctx).Model(&models.ContactTransaction{}).
						Where("id = ?", transaction.ID).
						UpdateColumn("balance_after", running).Error; err != nil {
						fmt.Fprintf(os.Stderr, "failed to fix balance_after for transaction %d: %v\n", transaction.ID, err)
						os.Exit(1)
					}
				}
			}
		}

		if !rowDrift && contact.Balance.Equal(running) {
			continue
		}
		drifted++
		fmt.Printf("business=%s %s=%d stored_balance=%s replayed_balance=%s rows=%d row_drift=%v\n",
			businessId, contactType, contact.ID, contact.Balance.String(), running.String(), len(transactions), rowDrift)

		if fix && !contact.Balance.Equal(running) {
			if err := db.WithContext(ctx).Table(table).
				Where("business_id = ? AND id = ?", businessId, contact.ID).
				UpdateColumn("balance", running).Error; err != nil {
				fmt.Fprintf(os.Stderr, "failed to fix balance for %s %d: %v\n", contactType, contact.ID, err)
				os.Exit(1)
			}
		}
	}
	return drifted
}
