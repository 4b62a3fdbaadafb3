package models

import (
	"log"

	"github.com/stocklane/inventory_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&User{},
		&Product{}, &ProductVariant{},
		&Supplier{},
		&StockLedgerEntry{},
		&SalesOrder{}, &SalesOrderItem{},
		&PurchaseOrder{}, &PurchaseOrderItem{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
