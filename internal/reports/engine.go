// Package reports aggregates recorded sales. It only reads.
package reports

import (
	"context"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/jmoiron/sqlx"

	"medledger/m/domain"
)

// Range bounds a report by calendar day. A nil bound leaves that side open.
type Range struct {
	Start *time.Time
	End   *time.Time
}

type Engine struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewEngine(db *sqlx.DB) *Engine {
	return &Engine{db: db, now: time.Now}
}

// ParseDay reads a caller supplied date in any common layout and returns the
// start of that day in local time.
func ParseDay(s string) (time.Time, error) {
	t, err := dateparse.ParseLocal(strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, domain.Validation("parse day", "unrecognised date %q", s)
	}
	return domain.StartOfDay(t), nil
}

// where builds the date filter for r, expanding the bounds to whole days.
func (r Range) where(column string) (string, []any, error) {
	var (
		clauses []string
		args    []any
	)
	if r.Start != nil && r.End != nil && domain.StartOfDay(*r.Start).After(domain.StartOfDay(*r.End)) {
		return "", nil, domain.Validation("sales report", "start date is after end date")
	}
	if r.Start != nil {
		clauses = append(clauses, column+" >= ?")
		args = append(args, domain.Stamp(domain.StartOfDay(*r.Start)))
	}
	if r.End != nil {
		clauses = append(clauses, column+" <= ?")
		args = append(args, domain.Stamp(domain.EndOfDay(*r.End)))
	}
	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// SalesReport aggregates the sales in r per medicine, per day and overall.
// Medicines are ranked by quantity sold, ties by name.
func (e *Engine) SalesReport(ctx context.Context, r Range) (domain.SalesReport, error) {
	const op = "sales report"
	where, args, err := r.where("s.date")
	if err != nil {
		return domain.SalesReport{}, err
	}

	report := domain.SalesReport{
		ByMedicine: []domain.MedicineSales{},
		Daily:      []domain.DailySales{},
	}
	if r.Start != nil {
		report.From = r.Start.Format(domain.DateLayout)
	}
	if r.End != nil {
		report.To = r.End.Format(domain.DateLayout)
	}

	err = e.db.SelectContext(ctx, &report.ByMedicine, `
		SELECT s.medicine_id,
		       COALESCE(m.name, a.name, '') AS medicine_name,
		       SUM(s.quantity) AS total_quantity,
		       COUNT(*) AS sale_count
		FROM sales s
		LEFT JOIN medicines m ON m.id = s.medicine_id
		LEFT JOIN archived_medicines a ON a.id = s.medicine_id`+where+`
		GROUP BY s.medicine_id
		ORDER BY total_quantity DESC, medicine_name ASC, s.medicine_id ASC`, args...)
	if err != nil {
		return domain.SalesReport{}, domain.Storage(op, err)
	}

	err = e.db.SelectContext(ctx, &report.Daily, `
		SELECT substr(s.date, 1, 10) AS day,
		       COUNT(*) AS sale_count,
		       SUM(s.quantity) AS total_quantity
		FROM sales s`+where+`
		GROUP BY day
		ORDER BY day ASC`, args...)
	if err != nil {
		return domain.SalesReport{}, domain.Storage(op, err)
	}

	err = e.db.GetContext(ctx, &report.Summary, `
		SELECT COUNT(*) AS sale_count, COALESCE(SUM(s.quantity), 0) AS total_quantity
		FROM sales s`+where, args...)
	if err != nil {
		return domain.SalesReport{}, domain.Storage(op, err)
	}
	return report, nil
}

// Dashboard counts active medicines, those under threshold units, those
// expiring within days and the sales recorded today.
func (e *Engine) Dashboard(ctx context.Context, threshold int64, days int) (domain.Dashboard, error) {
	now := e.now()
	today := domain.StartOfDay(now)
	var d domain.Dashboard
	err := e.db.GetContext(ctx, &d, `
		SELECT
		  (SELECT COUNT(*) FROM medicines WHERE quantity > 0) AS active_medicines,
		  (SELECT COUNT(*) FROM medicines WHERE quantity > 0 AND quantity < ?) AS low_stock,
		  (SELECT COUNT(*) FROM medicines
		    WHERE quantity > 0 AND expiry_date != '' AND expiry_date > ? AND expiry_date <= ?) AS expiring_soon,
		  (SELECT COUNT(*) FROM sales WHERE date >= ? AND date <= ?) AS sales_today`,
		threshold,
		today.Format(domain.DateLayout), today.AddDate(0, 0, days).Format(domain.DateLayout),
		domain.Stamp(today), domain.Stamp(domain.EndOfDay(now)))
	if err != nil {
		return domain.Dashboard{}, domain.Storage("dashboard", err)
	}
	return d, nil
}
