// Package transactions records sales and purchases together with the stock
// change they cause.
package transactions

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"medledger/m/domain"
	"medledger/m/internal/catalog"
	"medledger/m/internal/database"
	"medledger/m/internal/logging"
	"medledger/m/internal/notify"
	"medledger/m/internal/stock"
)

type SaleInput struct {
	MedicineID int64  `json:"medicine_id"`
	Quantity   int64  `json:"quantity"`
	CustomerID *int64 `json:"customer_id,omitempty"`
}

type PurchaseInput struct {
	MedicineID int64            `json:"medicine_id"`
	Quantity   int64            `json:"quantity"`
	SupplierID *int64           `json:"supplier_id,omitempty"`
	UnitPrice  *decimal.Decimal `json:"unit_price,omitempty"`
}

type Recorder struct {
	db     *sqlx.DB
	ledger *stock.Ledger
	events notify.Publisher
	log    *zap.Logger
	now    func() time.Time
}

func NewRecorder(db *sqlx.DB, ledger *stock.Ledger, events notify.Publisher, log *zap.Logger) *Recorder {
	if events == nil {
		events = notify.Discard
	}
	return &Recorder{db: db, ledger: ledger, events: events, log: logging.OrNop(log), now: time.Now}
}

// RecordSale decrements stock and writes the sale row in one transaction. A
// sale that empties the stock archives the medicine.
func (r *Recorder) RecordSale(ctx context.Context, in SaleInput) (domain.Sale, error) {
	const op = "record sale"
	if in.Quantity <= 0 {
		return domain.Sale{}, domain.Validation(op, "quantity must be greater than zero")
	}

	now := r.now()
	sale := domain.Sale{MedicineID: in.MedicineID, Quantity: in.Quantity, CustomerID: in.CustomerID}
	var adj stock.Adjustment
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if in.CustomerID != nil {
			ok, err := catalog.CustomerExists(ctx, tx, *in.CustomerID)
			if err != nil {
				return domain.Storage(op, err)
			}
			if !ok {
				return domain.NotFound(op, "customer", *in.CustomerID)
			}
		}

		var err error
		if adj, err = r.ledger.AdjustTx(ctx, tx, in.MedicineID, -in.Quantity, now); err != nil {
			return err
		}

		sale.Date = domain.Stamp(now)
		return tx.GetContext(ctx, &sale.ID,
			`INSERT INTO sales (medicine_id, quantity, date, customer_id) VALUES (?, ?, ?, ?) RETURNING id`,
			sale.MedicineID, sale.Quantity, sale.Date, sale.CustomerID)
	})
	if err != nil {
		return domain.Sale{}, err
	}

	r.log.Info("sale recorded",
		zap.Int64("sale_id", sale.ID),
		zap.Int64("medicine_id", sale.MedicineID),
		zap.Int64("quantity", sale.Quantity),
		zap.Int64("remaining", adj.Quantity),
		zap.Bool("archived", adj.Archived))
	r.events.Publish(notify.NewEvent(notify.SaleRecorded, sale.ID, now))
	r.events.Publish(notify.NewEvent(notify.MedicineChanged, sale.MedicineID, now))
	return sale, nil
}

// RecordPurchase increments stock, optionally replaces the unit price and
// writes the purchase row in one transaction.
func (r *Recorder) RecordPurchase(ctx context.Context, in PurchaseInput) (domain.Purchase, error) {
	const op = "record purchase"
	if in.Quantity <= 0 {
		return domain.Purchase{}, domain.Validation(op, "quantity must be greater than zero")
	}
	if in.UnitPrice != nil && !in.UnitPrice.IsPositive() {
		return domain.Purchase{}, domain.Validation(op, "unit price must be positive")
	}

	now := r.now()
	purchase := domain.Purchase{MedicineID: in.MedicineID, Quantity: in.Quantity, SupplierID: in.SupplierID}
	if in.UnitPrice != nil {
		purchase.UnitPrice = decimal.NewNullDecimal(*in.UnitPrice)
	}
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if in.SupplierID != nil {
			ok, err := catalog.SupplierExists(ctx, tx, *in.SupplierID)
			if err != nil {
				return domain.Storage(op, err)
			}
			if !ok {
				return domain.NotFound(op, "supplier", *in.SupplierID)
			}
		}

		if _, err := r.ledger.AdjustTx(ctx, tx, in.MedicineID, in.Quantity, now); err != nil {
			return err
		}
		if in.UnitPrice != nil {
			if err := r.ledger.SetUnitPriceTx(ctx, tx, in.MedicineID, *in.UnitPrice, now); err != nil {
				return err
			}
		}

		purchase.Date = domain.Stamp(now)
		return tx.GetContext(ctx, &purchase.ID,
			`INSERT INTO purchases (medicine_id, quantity, date, supplier_id, unit_price) VALUES (?, ?, ?, ?, ?) RETURNING id`,
			purchase.MedicineID, purchase.Quantity, purchase.Date, purchase.SupplierID, purchase.UnitPrice)
	})
	if err != nil {
		return domain.Purchase{}, err
	}

	r.log.Info("purchase recorded",
		zap.Int64("purchase_id", purchase.ID),
		zap.Int64("medicine_id", purchase.MedicineID),
		zap.Int64("quantity", purchase.Quantity))
	r.events.Publish(notify.NewEvent(notify.MedicineChanged, purchase.MedicineID, now))
	return purchase, nil
}

// SalesHistory lists every sale, newest first, with the medicine name taken
// from the active set or the archive.
func (r *Recorder) SalesHistory(ctx context.Context) ([]domain.SaleEntry, error) {
	entries := []domain.SaleEntry{}
	err := r.db.SelectContext(ctx, &entries, `
		SELECT s.id, s.medicine_id, s.quantity, s.date, s.customer_id,
		       COALESCE(m.name, a.name, '') AS medicine_name,
		       c.name AS customer_name
		FROM sales s
		LEFT JOIN medicines m ON m.id = s.medicine_id
		LEFT JOIN archived_medicines a ON a.id = s.medicine_id
		LEFT JOIN customers c ON c.id = s.customer_id
		ORDER BY s.date DESC, s.id DESC`)
	if err != nil {
		return nil, domain.Storage("list sales", err)
	}
	return entries, nil
}

func (r *Recorder) PurchaseHistory(ctx context.Context) ([]domain.PurchaseEntry, error) {
	entries := []domain.PurchaseEntry{}
	err := r.db.SelectContext(ctx, &entries, `
		SELECT p.id, p.medicine_id, p.quantity, p.date, p.supplier_id, p.unit_price,
		       COALESCE(m.name, a.name, '') AS medicine_name,
		       s.name AS supplier_name
		FROM purchases p
		LEFT JOIN medicines m ON m.id = p.medicine_id
		LEFT JOIN archived_medicines a ON a.id = p.medicine_id
		LEFT JOIN suppliers s ON s.id = p.supplier_id
		ORDER BY p.date DESC, p.id DESC`)
	if err != nil {
		return nil, domain.Storage("list purchases", err)
	}
	return entries, nil
}
