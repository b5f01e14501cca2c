package domain

type MedicineSales struct {
	MedicineID    int64  `db:"medicine_id" json:"medicine_id"`
	MedicineName  string `db:"medicine_name" json:"medicine_name"`
	TotalQuantity int64  `db:"total_quantity" json:"total_quantity"`
	SaleCount     int64  `db:"sale_count" json:"sale_count"`
}

type DailySales struct {
	Date          string `db:"day" json:"date"`
	SaleCount     int64  `db:"sale_count" json:"sale_count"`
	TotalQuantity int64  `db:"total_quantity" json:"total_quantity"`
}

type SalesSummary struct {
	SaleCount     int64 `db:"sale_count" json:"sale_count"`
	TotalQuantity int64 `db:"total_quantity" json:"total_quantity"`
}

// SalesReport aggregates sales between From and To. Empty bounds mean the
// range is open on that side.
type SalesReport struct {
	From       string          `json:"from,omitempty"`
	To         string          `json:"to,omitempty"`
	ByMedicine []MedicineSales `json:"by_medicine"`
	Daily      []DailySales    `json:"daily"`
	Summary    SalesSummary    `json:"summary"`
}

type Dashboard struct {
	ActiveMedicines int64 `db:"active_medicines" json:"active_medicines"`
	LowStock        int64 `db:"low_stock" json:"low_stock"`
	ExpiringSoon    int64 `db:"expiring_soon" json:"expiring_soon"`
	SalesToday      int64 `db:"sales_today" json:"sales_today"`
}
