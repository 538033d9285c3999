package models

import (
	"log"

	"github.com/mmdatafocus/invoice_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Company{}, &User{},
		&Item{},
		&Invoice{}, &InvoiceLine{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
