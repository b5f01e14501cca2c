// Package catalog keeps the supplier and customer registries. Removing an
// entry never touches the sales or purchases that reference it.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"medledger/m/domain"
	"medledger/m/internal/logging"
	"medledger/m/internal/notify"
)

// Party holds the editable fields shared by suppliers and customers.
type Party struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Address string `json:"address"`
}

func (p Party) normalized(op string) (Party, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Contact = strings.TrimSpace(p.Contact)
	p.Address = strings.TrimSpace(p.Address)
	if p.Name == "" {
		return p, domain.Validation(op, "name is required")
	}
	return p, nil
}

type table struct {
	name   string
	entity string
}

var (
	suppliers = table{name: "suppliers", entity: "supplier"}
	customers = table{name: "customers", entity: "customer"}
)

type Registry struct {
	db     *sqlx.DB
	events notify.Publisher
	log    *zap.Logger
	now    func() time.Time
}

func NewRegistry(db *sqlx.DB, events notify.Publisher, log *zap.Logger) *Registry {
	if events == nil {
		events = notify.Discard
	}
	return &Registry{db: db, events: events, log: logging.OrNop(log), now: time.Now}
}

func (r *Registry) AddSupplier(ctx context.Context, p Party) (int64, error) {
	return r.add(ctx, suppliers, p)
}

func (r *Registry) UpdateSupplier(ctx context.Context, id int64, p Party) error {
	return r.update(ctx, suppliers, id, p)
}

func (r *Registry) DeleteSupplier(ctx context.Context, id int64) error {
	return r.delete(ctx, suppliers, id)
}

func (r *Registry) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	out := []domain.Supplier{}
	if err := r.list(ctx, suppliers, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Registry) GetSupplier(ctx context.Context, id int64) (domain.Supplier, error) {
	var s domain.Supplier
	err := r.get(ctx, suppliers, id, &s)
	return s, err
}

func (r *Registry) AddCustomer(ctx context.Context, p Party) (int64, error) {
	return r.add(ctx, customers, p)
}

func (r *Registry) UpdateCustomer(ctx context.Context, id int64, p Party) error {
	return r.update(ctx, customers, id, p)
}

func (r *Registry) DeleteCustomer(ctx context.Context, id int64) error {
	return r.delete(ctx, customers, id)
}

func (r *Registry) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	out := []domain.Customer{}
	if err := r.list(ctx, customers, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Registry) GetCustomer(ctx context.Context, id int64) (domain.Customer, error) {
	var c domain.Customer
	err := r.get(ctx, customers, id, &c)
	return c, err
}

// CustomerExists reports whether id names a registered customer. q may be a
// transaction.
func CustomerExists(ctx context.Context, q sqlx.QueryerContext, id int64) (bool, error) {
	return exists(ctx, q, customers, id)
}

// SupplierExists reports whether id names a registered supplier.
func SupplierExists(ctx context.Context, q sqlx.QueryerContext, id int64) (bool, error) {
	return exists(ctx, q, suppliers, id)
}

func exists(ctx context.Context, q sqlx.QueryerContext, t table, id int64) (bool, error) {
	var ok bool
	err := sqlx.GetContext(ctx, q, &ok, `SELECT EXISTS(SELECT 1 FROM `+t.name+` WHERE id = ?)`, id)
	return ok, err
}

func (r *Registry) add(ctx context.Context, t table, p Party) (int64, error) {
	op := "add " + t.entity
	p, err := p.normalized(op)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.db.GetContext(ctx, &id,
		`INSERT INTO `+t.name+` (name, contact, address) VALUES (?, ?, ?) RETURNING id`,
		p.Name, p.Contact, p.Address)
	if err != nil {
		return 0, domain.Storage(op, err)
	}
	r.log.Info(t.entity+" added", zap.Int64("id", id), zap.String("name", p.Name))
	r.events.Publish(notify.NewEvent(notify.CatalogChanged, id, r.now()))
	return id, nil
}

func (r *Registry) update(ctx context.Context, t table, id int64, p Party) error {
	op := "update " + t.entity
	p, err := p.normalized(op)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE `+t.name+` SET name = ?, contact = ?, address = ? WHERE id = ?`,
		p.Name, p.Contact, p.Address, id)
	if err := affectedOne(op, t, id, res, err); err != nil {
		return err
	}
	r.log.Info(t.entity+" updated", zap.Int64("id", id))
	r.events.Publish(notify.NewEvent(notify.CatalogChanged, id, r.now()))
	return nil
}

func (r *Registry) delete(ctx context.Context, t table, id int64) error {
	op := "delete " + t.entity
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+t.name+` WHERE id = ?`, id)
	if err := affectedOne(op, t, id, res, err); err != nil {
		return err
	}
	r.log.Info(t.entity+" deleted", zap.Int64("id", id))
	r.events.Publish(notify.NewEvent(notify.CatalogChanged, id, r.now()))
	return nil
}

func (r *Registry) list(ctx context.Context, t table, dest any) error {
	err := r.db.SelectContext(ctx, dest, `SELECT id, name, contact, address FROM `+t.name+` ORDER BY name ASC, id ASC`)
	if err != nil {
		return domain.Storage("list "+t.name, err)
	}
	return nil
}

func (r *Registry) get(ctx context.Context, t table, id int64, dest any) error {
	op := "get " + t.entity
	err := r.db.GetContext(ctx, dest, `SELECT id, name, contact, address FROM `+t.name+` WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound(op, t.entity, id)
	}
	if err != nil {
		return domain.Storage(op, err)
	}
	return nil
}

func affectedOne(op string, t table, id int64, res sql.Result, err error) error {
	if err != nil {
		return domain.Storage(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Storage(op, err)
	}
	if n == 0 {
		return domain.NotFound(op, t.entity, id)
	}
	return nil
}
