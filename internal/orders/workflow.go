// Package orders tracks reorder requests. Orders name a medicine by free text
// and never touch stock.
package orders

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"medledger/m/domain"
	"medledger/m/internal/database"
	"medledger/m/internal/logging"
	"medledger/m/internal/notify"
)

const orderColumns = `id, medicine_name, quantity_ordered, status, order_date`

type Workflow struct {
	db     *sqlx.DB
	events notify.Publisher
	log    *zap.Logger
	now    func() time.Time
}

func NewWorkflow(db *sqlx.DB, events notify.Publisher, log *zap.Logger) *Workflow {
	if events == nil {
		events = notify.Discard
	}
	return &Workflow{db: db, events: events, log: logging.OrNop(log), now: time.Now}
}

func (w *Workflow) CreateOrder(ctx context.Context, medicineName string, quantity int64) (domain.Order, error) {
	const op = "create order"
	medicineName = strings.TrimSpace(medicineName)
	if medicineName == "" {
		return domain.Order{}, domain.Validation(op, "medicine name is required")
	}
	if quantity <= 0 {
		return domain.Order{}, domain.Validation(op, "quantity must be greater than zero")
	}

	now := w.now()
	var o domain.Order
	err := w.db.GetContext(ctx, &o,
		`INSERT INTO orders (medicine_name, quantity_ordered, status, order_date) VALUES (?, ?, ?, ?) RETURNING `+orderColumns,
		medicineName, quantity, domain.OrderPending, domain.Stamp(now))
	if err != nil {
		return domain.Order{}, domain.Storage(op, err)
	}

	w.log.Info("order created", zap.Int64("order_id", o.ID), zap.String("medicine", o.MedicineName), zap.Int64("quantity", o.QuantityOrdered))
	w.events.Publish(notify.NewEvent(notify.OrderChanged, o.ID, now))
	return o, nil
}

// SetStatus moves a pending order to Approved or Rejected. Orders that already
// reached either state cannot move again.
func (w *Workflow) SetStatus(ctx context.Context, id int64, status domain.OrderStatus) (domain.Order, error) {
	const op = "set order status"
	if !status.Terminal() {
		return domain.Order{}, domain.Validation(op, "status must be %s or %s", domain.OrderApproved, domain.OrderRejected)
	}

	var o domain.Order
	err := database.WithTx(ctx, w.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &o,
			`UPDATE orders SET status = ? WHERE id = ? AND status = ? RETURNING `+orderColumns,
			status, id, domain.OrderPending)
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		var current domain.OrderStatus
		err = tx.GetContext(ctx, &current, `SELECT status FROM orders WHERE id = ?`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "order", id)
		}
		if err != nil {
			return err
		}
		return domain.InvalidTransition(op, current, status)
	})
	if err != nil {
		return domain.Order{}, err
	}

	w.log.Info("order status changed", zap.Int64("order_id", id), zap.String("status", string(status)))
	w.events.Publish(notify.NewEvent(notify.OrderChanged, id, w.now()))
	return o, nil
}

// ListOrders returns every order, newest first.
func (w *Workflow) ListOrders(ctx context.Context) ([]domain.Order, error) {
	orders := []domain.Order{}
	err := w.db.SelectContext(ctx, &orders, `SELECT `+orderColumns+` FROM orders ORDER BY order_date DESC, id DESC`)
	if err != nil {
		return nil, domain.Storage("list orders", err)
	}
	return orders, nil
}

func (w *Workflow) GetOrder(ctx context.Context, id int64) (domain.Order, error) {
	const op = "get order"
	var o domain.Order
	err := w.db.GetContext(ctx, &o, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return o, domain.NotFound(op, "order", id)
	}
	if err != nil {
		return o, domain.Storage(op, err)
	}
	return o, nil
}
