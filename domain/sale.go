package domain

import "github.com/shopspring/decimal"

type Sale struct {
	ID         int64  `db:"id" json:"id"`
	MedicineID int64  `db:"medicine_id" json:"medicine_id"`
	Quantity   int64  `db:"quantity" json:"quantity"`
	Date       string `db:"date" json:"date"`
	CustomerID *int64 `db:"customer_id" json:"customer_id,omitempty"`
}

type Purchase struct {
	ID         int64               `db:"id" json:"id"`
	MedicineID int64               `db:"medicine_id" json:"medicine_id"`
	Quantity   int64               `db:"quantity" json:"quantity"`
	Date       string              `db:"date" json:"date"`
	SupplierID *int64              `db:"supplier_id" json:"supplier_id,omitempty"`
	UnitPrice  decimal.NullDecimal `db:"unit_price" json:"unit_price"`
}

// SaleEntry is a sale joined with the names it references. Names are empty
// when the referenced row no longer exists.
type SaleEntry struct {
	Sale
	MedicineName string  `db:"medicine_name" json:"medicine_name"`
	CustomerName *string `db:"customer_name" json:"customer_name,omitempty"`
}

type PurchaseEntry struct {
	Purchase
	MedicineName string  `db:"medicine_name" json:"medicine_name"`
	SupplierName *string `db:"supplier_name" json:"supplier_name,omitempty"`
}
