package workflow_test

import (
	"context"
	"sync"
	"testing"

	"bitbucket.org/mmdatafocus/shopledger_backend/models"
	"bitbucket.org/mmdatafocus/shopledger_backend/utils"
	"bitbucket.org/mmdatafocus/shopledger_backend/workflow"
	"github.com/shopspring/decimal"
)

func mustCreateProduct(t *testing.T, ctx context.Context, name string, cost, price, tax, stock string) *models.Product {
	t.Helper()
	product, err := models.CreateProduct(ctx, &models.NewProduct{
		Name:         name,
		UnitCost:     dec(cost),
		SalePrice:    dec(price),
		TaxRate:      dec(tax),
		OpeningStock: dec(stock),
	})
	if err != nil {
		t.Fatalf("CreateProduct(%s): %v", name, err)
	}
	return product
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// assertLedgerConsistent replays a customer's transactions in order and
// checks each balance_after is the prefix sum and the cached balance matches
// the final one.
func assertLedgerConsistent(t *testing.T, ctx context.Context, customerId int) {
	t.Helper()
	transactions, err := models.GetContactTransactions(ctx, models.ContactTypeCustomer, customerId, nil, nil)
	if err != nil {
		t.Fatalf("GetContactTransactions: %v", err)
	}
	running := decimal.Zero
	for i, transaction := range transactions {
		running = running.Add(transaction.Amount)
		if !transaction.BalanceAfter.Equal(running) {
			t.Errorf("transaction[%d] balance_after = %s, want prefix sum %s", i, transaction.BalanceAfter, running)
		}
	}
	customer, err := models.GetCustomer(ctx, customerId)
	if err != nil {
		t.Fatalf("GetCustomer: %v", err)
	}
	if !customer.Balance.Equal(running) {
		t.Errorf("cached balance = %s, want replayed %s", customer.Balance, running)
	}

	businessId, _ := utils.GetBusinessIdFromContext(ctx)
	sum, err := models.SumContactTransactions(ctx, businessId, models.ContactTypeCustomer, customerId)
	if err != nil {
		t.Fatalf("SumContactTransactions: %v", err)
	}
	if !sum.Equal(running) {
		t.Errorf("SUM(amount) = %s, want %s", sum, running)
	}
}

func TestCreateSale_UnpaidPostsLedgerEntryAndDecrementsStock(t *testing.T) {
	ctx := setupLedgerTest(t)

	product := mustCreateProduct(t, ctx, "Widget", "5", "8", "10", "10")
	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Aye Aye"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	result, err := workflow.CreateSale(ctx, &workflow.NewSale{
		Items:    []workflow.NewSaleItem{{ProductId: product.ID, Qty: dec("3")}},
		Customer: &workflow.NewSaleCustomer{Id: &customer.ID},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if len(result.Sales) != 1 {
		t.Fatalf("len(sales) = %d, want 1", len(result.Sales))
	}

	sale := result.Sales[0]
	if !sale.Sale.Equal(dec("24")) || !sale.Cost.Equal(dec("15")) || !sale.Profit.Equal(dec("9")) {
		t.Errorf("sale line = sale %s cost %s profit %s, want 24/15/9", sale.Sale, sale.Cost, sale.Profit)
	}
	if !sale.ProfitPercent.Equal(dec("60")) {
		t.Errorf("profitPercent = %s, want 60", sale.ProfitPercent)
	}
	if !sale.TaxAmount.Equal(dec("2.4")) {
		t.Errorf("taxAmount = %s, want 2.4", sale.TaxAmount)
	}
	if !result.Invoice.GrandTotal.Equal(dec("26.4")) {
		t.Errorf("invoice grand total = %s, want 26.4", result.Invoice.GrandTotal)
	}

	refreshed, err := models.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if !refreshed.StockRemain.Equal(dec("7")) {
		t.Errorf("stock_remain = %s, want 7", refreshed.StockRemain)
	}

	owed, err := models.GetCustomer(ctx, customer.ID)
	if err != nil {
		t.Fatalf("GetCustomer: %v", err)
	}
	if !owed.Balance.Equal(dec("26.4")) {
		t.Errorf("customer balance = %s, want 26.4", owed.Balance)
	}
	assertLedgerConsistent(t, ctx, customer.ID)
}

func TestCreateSale_PaidSaleNetsBalanceToZero(t *testing.T) {
	ctx := setupLedgerTest(t)

	product := mustCreateProduct(t, ctx, "Gadget", "10", "20", "0", "5")
	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Mya"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	_, err = workflow.CreateSale(ctx, &workflow.NewSale{
		Items:    []workflow.NewSaleItem{{ProductId: product.ID, Qty: dec("2")}},
		Paid:     utils.NewTrue(),
		Customer: &workflow.NewSaleCustomer{Id: &customer.ID},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	transactions, err := models.GetContactTransactions(ctx, models.ContactTypeCustomer, customer.ID, nil, nil)
	if err != nil {
		t.Fatalf("GetContactTransactions: %v", err)
	}
	if len(transactions) != 2 {
		t.Fatalf("len(transactions) = %d, want sale + payment pair", len(transactions))
	}
	if transactions[0].Type != models.TransactionTypeSale || transactions[1].Type != models.TransactionTypePayment {
		t.Errorf("transaction types = %s, %s; want sale, payment", transactions[0].Type, transactions[1].Type)
	}

	paid, err := models.GetCustomer(ctx, customer.ID)
	if err != nil {
		t.Fatalf("GetCustomer: %v", err)
	}
	if !paid.Balance.IsZero() {
		t.Errorf("customer balance = %s, want 0 for paid sale", paid.Balance)
	}
	assertLedgerConsistent(t, ctx, customer.ID)
}

func TestCreateSale_InsufficientStockAbortsWholeSubmission(t *testing.T) {
	ctx := setupLedgerTest(t)

	plenty := mustCreateProduct(t, ctx, "Plenty", "2", "4", "0", "100")
	scarce := mustCreateProduct(t, ctx, "Scarce", "2", "4", "0", "1")
	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Walk In"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	_, err = workflow.CreateSale(ctx, &workflow.NewSale{
		Items: []workflow.NewSaleItem{
			{ProductId: plenty.ID, Qty: dec("5")},
			{ProductId: scarce.ID, Qty: dec("2")},
		},
		Customer: &workflow.NewSaleCustomer{Id: &customer.ID},
	})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	if utils.KindOf(err) != utils.ErrorKindInsufficientStock {
		t.Fatalf("kind = %s, want insufficient_stock", utils.KindOf(err))
	}

	// Nothing from the submission may persist, including the first line.
	refreshed, err := models.GetProduct(ctx, plenty.ID)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if !refreshed.StockRemain.Equal(dec("100")) {
		t.Errorf("plenty stock_remain = %s, want untouched 100", refreshed.StockRemain)
	}
	sales, err := models.GetSales(ctx, nil, nil)
	if err != nil {
		t.Fatalf("GetSales: %v", err)
	}
	if len(sales) != 0 {
		t.Errorf("len(sales) = %d, want 0 after aborted submission", len(sales))
	}
	unchanged, err := models.GetCustomer(ctx, customer.ID)
	if err != nil {
		t.Fatalf("GetCustomer: %v", err)
	}
	if !unchanged.Balance.IsZero() {
		t.Errorf("customer balance = %s, want 0", unchanged.Balance)
	}
}

func TestDeleteSale_ReversesStockBalanceAndInvoice(t *testing.T) {
	ctx := setupLedgerTest(t)

	product := mustCreateProduct(t, ctx, "Widget", "5", "8", "0", "10")
	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Su Su"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	result, err := workflow.CreateSale(ctx, &workflow.NewSale{
		Items:    []workflow.NewSaleItem{{ProductId: product.ID, Qty: dec("4")}},
		Customer: &workflow.NewSaleCustomer{Id: &customer.ID},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	saleId := result.Sales[0].ID

	if err := workflow.DeleteSale(ctx, saleId); err != nil {
		t.Fatalf("DeleteSale: %v", err)
	}

	refreshed, err := models.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if !refreshed.StockRemain.Equal(dec("10")) {
		t.Errorf("stock_remain = %s, want restored 10", refreshed.StockRemain)
	}

	restored, err := models.GetCustomer(ctx, customer.ID)
	if err != nil {
		t.Fatalf("GetCustomer: %v", err)
	}
	if !restored.Balance.IsZero() {
		t.Errorf("customer balance = %s, want restored 0", restored.Balance)
	}

	// Compensation appends rows; the originals stay.
	transactions, err := models.GetContactTransactions(ctx, models.ContactTypeCustomer, customer.ID, nil, nil)
	if err != nil {
		t.Fatalf("GetContactTransactions: %v", err)
	}
	if len(transactions) != 2 {
		t.Fatalf("len(transactions) = %d, want original + compensating", len(transactions))
	}
	if transactions[1].ReversesTransactionId == nil || *transactions[1].ReversesTransactionId != transactions[0].ID {
		t.Errorf("compensating row does not reference the original")
	}
	assertLedgerConsistent(t, ctx, customer.ID)

	// The single-line invoice must be gone with its last detail.
	if _, err := models.GetInvoice(ctx, result.Invoice.ID); utils.KindOf(err) != utils.ErrorKindNotFound {
		t.Errorf("invoice still present after last line deleted")
	}

	// Reversal is not repeatable: the sale row is gone.
	err = workflow.DeleteSale(ctx, saleId)
	if utils.KindOf(err) != utils.ErrorKindNotFound {
		t.Errorf("second delete kind = %s, want not_found", utils.KindOf(err))
	}
}

func TestRecordCustomerPayment_RejectsOverpayment(t *testing.T) {
	ctx := setupLedgerTest(t)

	product := mustCreateProduct(t, ctx, "Widget", "100", "250", "0", "10")
	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Ko Ko"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	_, err = workflow.CreateSale(ctx, &workflow.NewSale{
		Items:    []workflow.NewSaleItem{{ProductId: product.ID, Qty: dec("2")}},
		Customer: &workflow.NewSaleCustomer{Id: &customer.ID},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	// Balance is 500; 600 must be rejected without a ledger write.
	_, err = workflow.RecordCustomerPayment(ctx, customer.ID, &workflow.NewContactPayment{Amount: dec("600")})
	if utils.KindOf(err) != utils.ErrorKindValidation {
		t.Fatalf("overpayment kind = %s, want validation", utils.KindOf(err))
	}

	transaction, err := workflow.RecordCustomerPayment(ctx, customer.ID, &workflow.NewContactPayment{Amount: dec("500")})
	if err != nil {
		t.Fatalf("RecordCustomerPayment: %v", err)
	}
	if transaction.Type != models.TransactionTypePayment {
		t.Errorf("type = %s, want payment", transaction.Type)
	}
	if !transaction.Amount.Equal(dec("-500")) {
		t.Errorf("amount = %s, want -500", transaction.Amount)
	}
	if !transaction.BalanceAfter.IsZero() {
		t.Errorf("balance_after = %s, want 0", transaction.BalanceAfter)
	}

	// Balance is now zero; any further payment must be rejected.
	_, err = workflow.RecordCustomerPayment(ctx, customer.ID, &workflow.NewContactPayment{Amount: dec("100")})
	if utils.KindOf(err) != utils.ErrorKindValidation {
		t.Errorf("payment on settled balance kind = %s, want validation", utils.KindOf(err))
	}
	assertLedgerConsistent(t, ctx, customer.ID)
}

func TestCreateSale_TwoBuyersOneUnitBatch(t *testing.T) {
	ctx := setupLedgerTest(t)

	product := mustCreateProduct(t, ctx, "Last Batch", "5", "8", "0", "5")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = workflow.CreateSale(ctx, &workflow.NewSale{
				Items: []workflow.NewSaleItem{{ProductId: product.ID, Qty: dec("5")}},
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for i, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		kind := utils.KindOf(err)
		if kind != utils.ErrorKindInsufficientStock && kind != utils.ErrorKindConflict {
			t.Errorf("buyer %d unexpected error kind %s: %v", i, kind, err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d sales succeeded for stock 5 with qty 5 each, want exactly 1", succeeded)
	}

	refreshed, err := models.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if !refreshed.StockRemain.IsZero() {
		t.Errorf("stock_remain = %s, want 0", refreshed.StockRemain)
	}
}

func TestCreateSale_ConcurrentSalesNeverOversell(t *testing.T) {
	ctx := setupLedgerTest(t)

	product := mustCreateProduct(t, ctx, "Limited", "5", "8", "0", "10")
	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Racer"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	// 8 workers each try to sell 3; at most 3 can succeed against stock 10.
	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = workflow.CreateSale(ctx, &workflow.NewSale{
				Items:    []workflow.NewSaleItem{{ProductId: product.ID, Qty: dec("3")}},
				Customer: &workflow.NewSaleCustomer{Id: &customer.ID},
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for i, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		kind := utils.KindOf(err)
		if kind != utils.ErrorKindInsufficientStock && kind != utils.ErrorKindConflict {
			t.Errorf("worker %d unexpected error kind %s: %v", i, kind, err)
		}
	}
	if succeeded > 3 {
		t.Errorf("%d sales succeeded, stock 10 allows at most 3 of qty 3", succeeded)
	}

	refreshed, err := models.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if refreshed.StockRemain.IsNegative() {
		t.Errorf("stock_remain = %s, must never be negative", refreshed.StockRemain)
	}
	want := dec("10").Sub(dec("3").Mul(decimal.NewFromInt(int64(succeeded))))
	if !refreshed.StockRemain.Equal(want) {
		t.Errorf("stock_remain = %s, want %s for %d successful sales", refreshed.StockRemain, want, succeeded)
	}
	assertLedgerConsistent(t, ctx, customer.ID)
}

func TestCreatePurchase_IncreasesStockAndSupplierBalance(t *testing.T) {
	ctx := setupLedgerTest(t)

	product := mustCreateProduct(t, ctx, "Restock Me", "5", "8", "0", "0")
	supplier, err := models.CreateSupplier(ctx, &models.NewSupplier{Name: "Acme Wholesale"})
	if err != nil {
		t.Fatalf("CreateSupplier: %v", err)
	}

	newCost := dec("6")
	result, err := workflow.CreatePurchase(ctx, &workflow.NewPurchase{
		Items:    []workflow.NewPurchaseItem{{ProductId: product.ID, Qty: dec("20"), UnitCost: &newCost}},
		Supplier: &workflow.NewPurchaseSupplier{Id: &supplier.ID},
	})
	if err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}
	if !result.Total.Equal(dec("120")) {
		t.Errorf("total = %s, want 120", result.Total)
	}

	refreshed, err := models.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if !refreshed.StockRemain.Equal(dec("20")) {
		t.Errorf("stock_remain = %s, want 20", refreshed.StockRemain)
	}
	if !refreshed.UnitCost.Equal(newCost) {
		t.Errorf("unit_cost = %s, want updated 6", refreshed.UnitCost)
	}

	owing, err := models.GetSupplier(ctx, supplier.ID)
	if err != nil {
		t.Fatalf("GetSupplier: %v", err)
	}
	if !owing.Balance.Equal(dec("120")) {
		t.Errorf("supplier balance = %s, want 120", owing.Balance)
	}

	// Settle it and watch the balance return to zero.
	transaction, err := workflow.RecordSupplierPayment(ctx, supplier.ID, &workflow.NewContactPayment{Amount: dec("120")})
	if err != nil {
		t.Fatalf("RecordSupplierPayment: %v", err)
	}
	if !transaction.BalanceAfter.IsZero() {
		t.Errorf("balance_after = %s, want 0", transaction.BalanceAfter)
	}
}
