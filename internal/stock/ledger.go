package stock

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"medledger/m/domain"
	"medledger/m/internal/database"
	"medledger/m/internal/logging"
	"medledger/m/internal/notify"
)

// MedicineInput carries the editable fields of a medicine.
type MedicineInput struct {
	Name       string          `json:"name"`
	Strength   string          `json:"strength"`
	BatchNo    string          `json:"batch_no"`
	ExpiryDate string          `json:"expiry_date"`
	Quantity   int64           `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// Adjustment is the state of a medicine after a quantity change.
type Adjustment struct {
	MedicineID int64 `json:"medicine_id"`
	Quantity   int64 `json:"quantity"`
	Archived   bool  `json:"archived"`
}

// Ledger owns the active medicine stock.
type Ledger struct {
	db      *sqlx.DB
	archive *Archiver
	events  notify.Publisher
	log     *zap.Logger
	now     func() time.Time
}

func NewLedger(db *sqlx.DB, archive *Archiver, events notify.Publisher, log *zap.Logger) *Ledger {
	if events == nil {
		events = notify.Discard
	}
	return &Ledger{db: db, archive: archive, events: events, log: logging.OrNop(log), now: time.Now}
}

func (l *Ledger) Get(ctx context.Context, id int64) (domain.Medicine, error) {
	const op = "get medicine"
	var m domain.Medicine
	err := l.db.GetContext(ctx, &m, `SELECT `+medicineColumns+` FROM medicines WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return m, domain.NotFound(op, "medicine", id)
	}
	if err != nil {
		return m, domain.Storage(op, err)
	}
	return m, nil
}

// ListActive returns medicines in stock ordered by name.
func (l *Ledger) ListActive(ctx context.Context) ([]domain.Medicine, error) {
	medicines := []domain.Medicine{}
	err := l.db.SelectContext(ctx, &medicines,
		`SELECT `+medicineColumns+` FROM medicines WHERE quantity > 0 ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, domain.Storage("list medicines", err)
	}
	return medicines, nil
}

// LowStock returns active medicines with fewer than threshold units, lowest first.
func (l *Ledger) LowStock(ctx context.Context, threshold int64) ([]domain.Medicine, error) {
	medicines := []domain.Medicine{}
	err := l.db.SelectContext(ctx, &medicines,
		`SELECT `+medicineColumns+` FROM medicines WHERE quantity > 0 AND quantity < ? ORDER BY quantity ASC, name ASC`, threshold)
	if err != nil {
		return nil, domain.Storage("list low stock", err)
	}
	return medicines, nil
}

// ExpiringWithin returns active medicines expiring after today and no later
// than days from today, soonest first.
func (l *Ledger) ExpiringWithin(ctx context.Context, days int) ([]domain.Medicine, error) {
	today := domain.StartOfDay(l.now())
	medicines := []domain.Medicine{}
	err := l.db.SelectContext(ctx, &medicines,
		`SELECT `+medicineColumns+` FROM medicines
		 WHERE quantity > 0 AND expiry_date != '' AND expiry_date > ? AND expiry_date <= ?
		 ORDER BY expiry_date ASC, name ASC`,
		today.Format(domain.DateLayout), today.AddDate(0, 0, days).Format(domain.DateLayout))
	if err != nil {
		return nil, domain.Storage("list expiring medicines", err)
	}
	return medicines, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search returns active medicines whose name, batch number, strength or expiry
// date contains query, ignoring ASCII case. A blank query lists every active
// medicine.
func (l *Ledger) Search(ctx context.Context, query string) ([]domain.Medicine, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return l.ListActive(ctx)
	}

	pattern := "%" + likeEscaper.Replace(query) + "%"
	medicines := []domain.Medicine{}
	err := l.db.SelectContext(ctx, &medicines,
		`SELECT `+medicineColumns+` FROM medicines
		 WHERE quantity > 0 AND (name LIKE ? ESCAPE '\' OR batch_no LIKE ? ESCAPE '\'
		       OR strength LIKE ? ESCAPE '\' OR expiry_date LIKE ? ESCAPE '\')
		 ORDER BY name ASC, id ASC`,
		pattern, pattern, pattern, pattern)
	if err != nil {
		return nil, domain.Storage("search medicines", err)
	}
	return medicines, nil
}

// IsBatchDuplicate reports whether another active medicine already uses the
// name and batch. excludeID skips the record being edited; 0 skips nothing.
func (l *Ledger) IsBatchDuplicate(ctx context.Context, name, batchNo string, excludeID int64) (bool, error) {
	dup, err := batchExists(ctx, l.db, strings.TrimSpace(name), strings.TrimSpace(batchNo), excludeID)
	if err != nil {
		return false, domain.Storage("check batch", err)
	}
	return dup, nil
}

func batchExists(ctx context.Context, q sqlx.QueryerContext, name, batchNo string, excludeID int64) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, q, &exists,
		`SELECT EXISTS(SELECT 1 FROM medicines WHERE name = ? AND batch_no = ? AND id != ?)`, name, batchNo, excludeID)
	return exists, err
}

func (l *Ledger) AddMedicine(ctx context.Context, in MedicineInput) (domain.Medicine, error) {
	const op = "add medicine"
	now := l.now()
	in = in.trimmed()
	if err := in.validate(op, now, true); err != nil {
		return domain.Medicine{}, err
	}

	var m domain.Medicine
	err := database.WithTx(ctx, l.db, func(tx *sqlx.Tx) error {
		dup, err := batchExists(ctx, tx, in.Name, in.BatchNo, 0)
		if err != nil {
			return domain.Storage(op, err)
		}
		if dup {
			return domain.Duplicate(op, "medicine %q batch %q already exists", in.Name, in.BatchNo)
		}
		err = tx.GetContext(ctx, &m,
			`INSERT INTO medicines (name, strength, batch_no, expiry_date, quantity, unit_price, last_updated)
			 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING `+medicineColumns,
			in.Name, in.Strength, in.BatchNo, in.ExpiryDate, in.Quantity, in.UnitPrice, domain.Stamp(now))
		if database.IsUniqueViolation(err) {
			return domain.Duplicate(op, "medicine %q batch %q already exists", in.Name, in.BatchNo)
		}
		return err
	})
	if err != nil {
		return domain.Medicine{}, err
	}

	l.log.Info("medicine added", zap.Int64("medicine_id", m.ID), zap.String("name", m.Name), zap.String("batch_no", m.BatchNo))
	l.events.Publish(notify.NewEvent(notify.MedicineChanged, m.ID, now))
	return m, nil
}

// UpdateMedicine replaces the editable fields of an active medicine. Setting
// the quantity to zero archives the record in the same transaction; the
// returned medicine then has a zero quantity.
func (l *Ledger) UpdateMedicine(ctx context.Context, id int64, in MedicineInput) (domain.Medicine, error) {
	const op = "update medicine"
	now := l.now()
	in = in.trimmed()
	if err := in.validate(op, now, false); err != nil {
		return domain.Medicine{}, err
	}

	var m domain.Medicine
	err := database.WithTx(ctx, l.db, func(tx *sqlx.Tx) error {
		dup, err := batchExists(ctx, tx, in.Name, in.BatchNo, id)
		if err != nil {
			return domain.Storage(op, err)
		}
		if dup {
			return domain.Duplicate(op, "medicine %q batch %q already exists", in.Name, in.BatchNo)
		}
		err = tx.GetContext(ctx, &m,
			`UPDATE medicines SET name = ?, strength = ?, batch_no = ?, expiry_date = ?, quantity = ?, unit_price = ?, last_updated = ?
			 WHERE id = ? RETURNING `+medicineColumns,
			in.Name, in.Strength, in.BatchNo, in.ExpiryDate, in.Quantity, in.UnitPrice, domain.Stamp(now), id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return domain.NotFound(op, "medicine", id)
		case database.IsUniqueViolation(err):
			return domain.Duplicate(op, "medicine %q batch %q already exists", in.Name, in.BatchNo)
		case err != nil:
			return err
		}
		if m.Quantity == 0 {
			_, err = l.archive.ArchiveTx(ctx, tx, id, now)
		}
		return err
	})
	if err != nil {
		return domain.Medicine{}, err
	}

	l.log.Info("medicine updated", zap.Int64("medicine_id", id), zap.Int64("quantity", m.Quantity))
	l.events.Publish(notify.NewEvent(notify.MedicineChanged, id, now))
	return m, nil
}

// DeleteMedicine removes an active medicine permanently. No archive row is
// written.
func (l *Ledger) DeleteMedicine(ctx context.Context, id int64) error {
	const op = "delete medicine"
	res, err := l.db.ExecContext(ctx, `DELETE FROM medicines WHERE id = ?`, id)
	if err != nil {
		return domain.Storage(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Storage(op, err)
	}
	if n == 0 {
		return domain.NotFound(op, "medicine", id)
	}

	l.log.Warn("medicine deleted", zap.Int64("medicine_id", id))
	l.events.Publish(notify.NewEvent(notify.MedicineChanged, id, l.now()))
	return nil
}

// AdjustQuantity applies delta to the medicine's stock. A change that would
// leave the stock negative is rejected; one that leaves it at zero archives
// the medicine.
func (l *Ledger) AdjustQuantity(ctx context.Context, id, delta int64) (Adjustment, error) {
	var adj Adjustment
	now := l.now()
	err := database.WithTx(ctx, l.db, func(tx *sqlx.Tx) error {
		var err error
		adj, err = l.AdjustTx(ctx, tx, id, delta, now)
		return err
	})
	if err != nil {
		return Adjustment{}, err
	}

	l.log.Info("stock adjusted",
		zap.Int64("medicine_id", id),
		zap.Int64("delta", delta),
		zap.Int64("quantity", adj.Quantity),
		zap.Bool("archived", adj.Archived))
	l.events.Publish(notify.NewEvent(notify.MedicineChanged, id, now))
	return adj, nil
}

// AdjustTx is AdjustQuantity within a transaction owned by the caller, stamping
// the row with at. The check and the write are one conditional statement, so
// concurrent callers cannot drive the stock below zero.
func (l *Ledger) AdjustTx(ctx context.Context, tx *sqlx.Tx, id, delta int64, at time.Time) (Adjustment, error) {
	const op = "adjust quantity"
	adj := Adjustment{MedicineID: id}
	if delta == 0 {
		return adj, domain.Validation(op, "quantity change must not be zero")
	}

	err := tx.GetContext(ctx, &adj.Quantity,
		`UPDATE medicines SET quantity = quantity + ?, last_updated = ?
		 WHERE id = ? AND quantity + ? >= 0 RETURNING quantity`,
		delta, domain.Stamp(at), id, delta)
	if errors.Is(err, sql.ErrNoRows) {
		var available int64
		err = tx.GetContext(ctx, &available, `SELECT quantity FROM medicines WHERE id = ?`, id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return adj, domain.NotFound(op, "medicine", id)
		case err != nil:
			return adj, domain.Storage(op, err)
		}
		return adj, domain.InsufficientStock(op, id, available, -delta)
	}
	if err != nil {
		return adj, domain.Storage(op, err)
	}

	if adj.Quantity <= 0 {
		if _, err := l.archive.ArchiveTx(ctx, tx, id, at); err != nil {
			return adj, err
		}
		adj.Archived = true
	}
	return adj, nil
}

// SetUnitPriceTx replaces the stored unit price inside the caller's transaction.
func (l *Ledger) SetUnitPriceTx(ctx context.Context, tx *sqlx.Tx, id int64, price decimal.Decimal, at time.Time) error {
	const op = "set unit price"
	if !price.IsPositive() {
		return domain.Validation(op, "unit price must be positive")
	}
	res, err := tx.ExecContext(ctx, `UPDATE medicines SET unit_price = ?, last_updated = ? WHERE id = ?`,
		price, domain.Stamp(at), id)
	if err != nil {
		return domain.Storage(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Storage(op, err)
	}
	if n == 0 {
		return domain.NotFound(op, "medicine", id)
	}
	return nil
}

func (in MedicineInput) trimmed() MedicineInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Strength = strings.TrimSpace(in.Strength)
	in.BatchNo = strings.TrimSpace(in.BatchNo)
	in.ExpiryDate = strings.TrimSpace(in.ExpiryDate)
	return in
}

func (in MedicineInput) validate(op string, now time.Time, adding bool) error {
	switch {
	case in.Name == "":
		return domain.Validation(op, "name is required")
	case in.BatchNo == "":
		return domain.Validation(op, "batch number is required")
	case in.Quantity < 0:
		return domain.Validation(op, "quantity cannot be negative")
	case adding && in.Quantity == 0:
		return domain.Validation(op, "quantity must be greater than zero")
	case !in.UnitPrice.IsPositive():
		return domain.Validation(op, "unit price must be positive")
	}
	if in.ExpiryDate == "" {
		return nil
	}
	expiry, err := time.ParseInLocation(domain.DateLayout, in.ExpiryDate, now.Location())
	if err != nil {
		return domain.Validation(op, "expiry date must be in YYYY-MM-DD format")
	}
	if adding && expiry.Before(domain.StartOfDay(now)) {
		return domain.Validation(op, "expiry date cannot be in the past")
	}
	return nil
}
