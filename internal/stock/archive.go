package stock

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"medledger/m/domain"
	"medledger/m/internal/database"
	"medledger/m/internal/logging"
	"medledger/m/internal/notify"
)

const medicineColumns = `id, name, strength, batch_no, expiry_date, quantity, unit_price, last_updated`

// Archiver moves depleted medicines out of the active set while keeping
// their full record.
type Archiver struct {
	db     *sqlx.DB
	events notify.Publisher
	log    *zap.Logger
	now    func() time.Time
}

func NewArchiver(db *sqlx.DB, events notify.Publisher, log *zap.Logger) *Archiver {
	if events == nil {
		events = notify.Discard
	}
	return &Archiver{db: db, events: events, log: logging.OrNop(log), now: time.Now}
}

// Archive copies the medicine into the archive and removes it from the active
// set. It reports false, without error, when the id is not active.
func (a *Archiver) Archive(ctx context.Context, id int64) (bool, error) {
	var archived bool
	now := a.now()
	err := database.WithTx(ctx, a.db, func(tx *sqlx.Tx) error {
		var err error
		archived, err = a.ArchiveTx(ctx, tx, id, now)
		return err
	})
	if err != nil {
		return false, err
	}
	if archived {
		a.log.Info("medicine archived", zap.Int64("medicine_id", id))
		a.events.Publish(notify.NewEvent(notify.MedicineChanged, id, now))
	}
	return archived, nil
}

// ArchiveTx is Archive within a transaction owned by the caller. at becomes
// the archive date.
func (a *Archiver) ArchiveTx(ctx context.Context, tx *sqlx.Tx, id int64, at time.Time) (bool, error) {
	const op = "archive medicine"
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO archived_medicines (`+medicineColumns+`, archive_date)
		 SELECT `+medicineColumns+`, ? FROM medicines WHERE id = ?`,
		domain.Stamp(at), id); err != nil {
		return false, domain.Storage(op, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM medicines WHERE id = ?`, id)
	if err != nil {
		return false, domain.Storage(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, domain.Storage(op, err)
	}
	return n > 0, nil
}

// SweepZeroStock archives every active row whose quantity is zero or below and
// returns how many were moved.
func (a *Archiver) SweepZeroStock(ctx context.Context) (int, error) {
	const op = "sweep zero stock"
	var ids []int64
	now := a.now()
	err := database.WithTx(ctx, a.db, func(tx *sqlx.Tx) error {
		if err := tx.SelectContext(ctx, &ids, `SELECT id FROM medicines WHERE quantity <= 0 ORDER BY id`); err != nil {
			return domain.Storage(op, err)
		}
		for _, id := range ids {
			if _, err := a.ArchiveTx(ctx, tx, id, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		a.events.Publish(notify.NewEvent(notify.MedicineChanged, id, now))
	}
	if len(ids) > 0 {
		a.log.Info("zero stock swept", zap.Int("archived", len(ids)))
	}
	return len(ids), nil
}

func (a *Archiver) ListArchived(ctx context.Context) ([]domain.ArchivedMedicine, error) {
	archived := []domain.ArchivedMedicine{}
	err := a.db.SelectContext(ctx, &archived,
		`SELECT `+medicineColumns+`, archive_date FROM archived_medicines ORDER BY archive_date DESC, id DESC`)
	if err != nil {
		return nil, domain.Storage("list archived medicines", err)
	}
	return archived, nil
}

func (a *Archiver) GetArchived(ctx context.Context, id int64) (domain.ArchivedMedicine, error) {
	const op = "get archived medicine"
	var m domain.ArchivedMedicine
	err := a.db.GetContext(ctx, &m, `SELECT `+medicineColumns+`, archive_date FROM archived_medicines WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return m, domain.NotFound(op, "archived medicine", id)
	}
	if err != nil {
		return m, domain.Storage(op, err)
	}
	return m, nil
}
