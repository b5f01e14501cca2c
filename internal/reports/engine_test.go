package reports

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medledger/m/domain"
	"medledger/m/internal/testutil"
)

func day(s string) *time.Time {
	t, err := time.ParseInLocation(domain.DateLayout, s, time.Local)
	if err != nil {
		panic(err)
	}
	return &t
}

func insertMedicine(t *testing.T, db *sqlx.DB, name string, qty int64, expiry string) int64 {
	t.Helper()
	var id int64
	require.NoError(t, db.Get(&id,
		`INSERT INTO medicines (name, batch_no, expiry_date, quantity, unit_price, last_updated)
		 VALUES (?, ?, ?, ?, 1.5, '2024-01-01 00:00:00') RETURNING id`, name, name+"-1", expiry, qty))
	return id
}

func insertSale(t *testing.T, db *sqlx.DB, medicineID, qty int64, date string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO sales (medicine_id, quantity, date) VALUES (?, ?, ?)`, medicineID, qty, date)
	require.NoError(t, err)
}

func seedSales(t *testing.T) *sqlx.DB {
	db := testutil.NewDB(t)
	para := insertMedicine(t, db, "Paracetamol", 50, "")
	ibu := insertMedicine(t, db, "Ibuprofen", 50, "")
	zinc := insertMedicine(t, db, "Zinc", 50, "")

	insertSale(t, db, para, 5, "2024-01-31 23:59:59")
	insertSale(t, db, para, 4, "2024-02-01 00:00:00")
	insertSale(t, db, para, 3, "2024-02-01 12:00:00")
	insertSale(t, db, ibu, 7, "2024-02-02 08:30:00")
	insertSale(t, db, zinc, 2, "2024-02-03 23:59:59")
	insertSale(t, db, zinc, 5, "2024-02-03 18:00:00")
	insertSale(t, db, ibu, 9, "2024-02-04 00:00:00")
	return db
}

func TestSalesReportInRange(t *testing.T) {
	e := NewEngine(seedSales(t))

	report, err := e.SalesReport(context.Background(), Range{Start: day("2024-02-01"), End: day("2024-02-03")})
	require.NoError(t, err)

	assert.Equal(t, "2024-02-01", report.From)
	assert.Equal(t, "2024-02-03", report.To)
	require.Len(t, report.ByMedicine, 3)
	// Ties on quantity rank by name.
	assert.Equal(t, "Ibuprofen", report.ByMedicine[0].MedicineName)
	assert.Equal(t, int64(7), report.ByMedicine[0].TotalQuantity)
	assert.Equal(t, int64(1), report.ByMedicine[0].SaleCount)
	assert.Equal(t, "Paracetamol", report.ByMedicine[1].MedicineName)
	assert.Equal(t, int64(7), report.ByMedicine[1].TotalQuantity)
	assert.Equal(t, int64(2), report.ByMedicine[1].SaleCount)
	assert.Equal(t, "Zinc", report.ByMedicine[2].MedicineName)
	assert.Equal(t, int64(7), report.ByMedicine[2].TotalQuantity)

	assert.Equal(t, domain.SalesSummary{SaleCount: 5, TotalQuantity: 21}, report.Summary)
	assert.Equal(t, []domain.DailySales{
		{Date: "2024-02-01", SaleCount: 2, TotalQuantity: 7},
		{Date: "2024-02-02", SaleCount: 1, TotalQuantity: 7},
		{Date: "2024-02-03", SaleCount: 2, TotalQuantity: 7},
	}, report.Daily)
}

func TestSalesReportOpenBounds(t *testing.T) {
	e := NewEngine(seedSales(t))
	ctx := context.Background()

	all, err := e.SalesReport(ctx, Range{})
	require.NoError(t, err)
	assert.Equal(t, domain.SalesSummary{SaleCount: 7, TotalQuantity: 35}, all.Summary)
	assert.Equal(t, "Ibuprofen", all.ByMedicine[0].MedicineName)
	assert.Equal(t, int64(16), all.ByMedicine[0].TotalQuantity)
	assert.Empty(t, all.From)

	from, err := e.SalesReport(ctx, Range{Start: day("2024-02-03")})
	require.NoError(t, err)
	assert.Equal(t, domain.SalesSummary{SaleCount: 3, TotalQuantity: 16}, from.Summary)

	until, err := e.SalesReport(ctx, Range{End: day("2024-01-31")})
	require.NoError(t, err)
	assert.Equal(t, domain.SalesSummary{SaleCount: 1, TotalQuantity: 5}, until.Summary)
}

func TestSalesReportEmptyAndInvalid(t *testing.T) {
	e := NewEngine(seedSales(t))
	ctx := context.Background()

	empty, err := e.SalesReport(ctx, Range{Start: day("2023-01-01"), End: day("2023-01-02")})
	require.NoError(t, err)
	assert.Empty(t, empty.ByMedicine)
	assert.NotNil(t, empty.ByMedicine)
	assert.Equal(t, domain.SalesSummary{}, empty.Summary)

	_, err = e.SalesReport(ctx, Range{Start: day("2024-02-05"), End: day("2024-02-01")})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSalesReportIncludesArchivedMedicines(t *testing.T) {
	db := seedSales(t)
	_, err := db.Exec(`INSERT INTO archived_medicines (id, name, batch_no, quantity, unit_price, last_updated, archive_date)
		VALUES (500, 'Cough Syrup', 'C1', 0, 3, '2024-01-01 00:00:00', '2024-02-02 00:00:00')`)
	require.NoError(t, err)
	insertSale(t, db, 500, 30, "2024-02-01 10:00:00")

	report, err := NewEngine(db).SalesReport(context.Background(), Range{Start: day("2024-02-01"), End: day("2024-02-01")})
	require.NoError(t, err)
	require.Len(t, report.ByMedicine, 2)
	assert.Equal(t, "Cough Syrup", report.ByMedicine[0].MedicineName)
	assert.Equal(t, int64(30), report.ByMedicine[0].TotalQuantity)
}

func TestDashboard(t *testing.T) {
	db := testutil.NewDB(t)
	e := NewEngine(db)
	e.now = func() time.Time { return time.Date(2024, 3, 10, 15, 0, 0, 0, time.Local) }

	low := insertMedicine(t, db, "Aspirin", 4, "2024-03-20")
	insertMedicine(t, db, "Zinc", 40, "2024-09-01")
	insertMedicine(t, db, "Iron", 2, "")
	insertSale(t, db, low, 1, "2024-03-10 09:00:00")
	insertSale(t, db, low, 1, "2024-03-09 09:00:00")

	d, err := e.Dashboard(context.Background(), 10, 30)
	require.NoError(t, err)
	assert.Equal(t, domain.Dashboard{ActiveMedicines: 3, LowStock: 2, ExpiringSoon: 1, SalesToday: 1}, d)
}

func TestParseDay(t *testing.T) {
	for _, in := range []string{"2024-02-01", "2024/02/01", "Feb 1, 2024", " 2024-02-01 13:45:00 "} {
		got, err := ParseDay(in)
		require.NoError(t, err, in)
		assert.True(t, day("2024-02-01").Equal(got), in)
	}

	_, err := ParseDay("not a date")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
