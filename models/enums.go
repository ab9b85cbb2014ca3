package models

// ContactType distinguishes the two ledger-bearing parties. Customers and
// suppliers share the transaction log shape with opposite sign conventions:
// a sale/purchase increases what the contact owes (or is owed), a payment
// decreases it.
type ContactType string

const (
	ContactTypeCustomer ContactType = "customer"
	ContactTypeSupplier ContactType = "supplier"
)

type TransactionType string

const (
	TransactionTypeSale     TransactionType = "sale"
	TransactionTypePurchase TransactionType = "purchase"
	TransactionTypePayment  TransactionType = "payment"
	TransactionTypeCredit   TransactionType = "credit"
	TransactionTypeDebit    TransactionType = "debit"
)

// StockReferenceType tags stock movement rows with their originating document.
type StockReferenceType string

const (
	StockReferenceTypeSale       StockReferenceType = "SALE"
	StockReferenceTypePurchase   StockReferenceType = "PUR"
	StockReferenceTypeAdjustment StockReferenceType = "ADJ"
	StockReferenceTypeReversal   StockReferenceType = "REV"
)

// Document number series module names.
const (
	NumberModuleInvoice  = "invoice"
	NumberModulePurchase = "purchase"
)
