package domain

import "github.com/shopspring/decimal"

type Medicine struct {
	ID          int64           `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Strength    string          `db:"strength" json:"strength"`
	BatchNo     string          `db:"batch_no" json:"batch_no"`
	ExpiryDate  string          `db:"expiry_date" json:"expiry_date"`
	Quantity    int64           `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	LastUpdated string          `db:"last_updated" json:"last_updated"`
}

// ArchivedMedicine is a depleted medicine moved out of the active set. It keeps
// the id it had while active.
type ArchivedMedicine struct {
	Medicine
	ArchiveDate string `db:"archive_date" json:"archive_date"`
}
