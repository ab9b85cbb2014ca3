package models

import (
	"bitbucket.org/mmdatafocus/shopledger_backend/config"
)

func MigrateTable() error {
	db := config.GetDB()

	return db.AutoMigrate(
		&Business{}, &User{},
		&Customer{}, &Supplier{}, &ContactTransaction{},
		&Product{}, &StockHistory{},
		&Sale{}, &Invoice{}, &InvoiceDetail{},
		&Order{}, &Expense{},
		&DocumentNumberSeries{},
	)
}
