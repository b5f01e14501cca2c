package app

import (
	"context"

	"medledger/m/domain"
	"medledger/m/internal/auth"
	"medledger/m/internal/catalog"
	"medledger/m/internal/reports"
	"medledger/m/internal/stock"
	"medledger/m/internal/transactions"
)

// Medicines

func (a *App) AddMedicine(ctx context.Context, actor domain.Actor, in stock.MedicineInput) (domain.Medicine, error) {
	if err := requireRole(actor, "add medicine", domain.RoleAdmin); err != nil {
		return domain.Medicine{}, err
	}
	return a.Ledger.AddMedicine(ctx, in)
}

func (a *App) UpdateMedicine(ctx context.Context, actor domain.Actor, id int64, in stock.MedicineInput) (domain.Medicine, error) {
	if err := requireRole(actor, "update medicine", domain.RoleAdmin); err != nil {
		return domain.Medicine{}, err
	}
	return a.Ledger.UpdateMedicine(ctx, id, in)
}

func (a *App) DeleteMedicine(ctx context.Context, actor domain.Actor, id int64) error {
	if err := requireRole(actor, "delete medicine", domain.RoleAdmin); err != nil {
		return err
	}
	return a.Ledger.DeleteMedicine(ctx, id)
}

func (a *App) SweepZeroStock(ctx context.Context, actor domain.Actor) (int, error) {
	if err := requireRole(actor, "sweep zero stock", domain.RoleAdmin); err != nil {
		return 0, err
	}
	return a.Archive.SweepZeroStock(ctx)
}

func (a *App) ListMedicines(ctx context.Context, actor domain.Actor) ([]domain.Medicine, error) {
	if err := requireRole(actor, "list medicines"); err != nil {
		return nil, err
	}
	return a.Ledger.ListActive(ctx)
}

func (a *App) SearchMedicines(ctx context.Context, actor domain.Actor, query string) ([]domain.Medicine, error) {
	if err := requireRole(actor, "search medicines"); err != nil {
		return nil, err
	}
	return a.Ledger.Search(ctx, query)
}

func (a *App) ListArchived(ctx context.Context, actor domain.Actor) ([]domain.ArchivedMedicine, error) {
	if err := requireRole(actor, "list archived medicines"); err != nil {
		return nil, err
	}
	return a.Archive.ListArchived(ctx)
}

// Transactions

func (a *App) RecordSale(ctx context.Context, actor domain.Actor, in transactions.SaleInput) (domain.Sale, error) {
	if err := requireRole(actor, "record sale"); err != nil {
		return domain.Sale{}, err
	}
	return a.Recorder.RecordSale(ctx, in)
}

func (a *App) RecordPurchase(ctx context.Context, actor domain.Actor, in transactions.PurchaseInput) (domain.Purchase, error) {
	if err := requireRole(actor, "record purchase", domain.RoleAdmin); err != nil {
		return domain.Purchase{}, err
	}
	return a.Recorder.RecordPurchase(ctx, in)
}

func (a *App) SalesHistory(ctx context.Context, actor domain.Actor) ([]domain.SaleEntry, error) {
	if err := requireRole(actor, "list sales"); err != nil {
		return nil, err
	}
	return a.Recorder.SalesHistory(ctx)
}

func (a *App) PurchaseHistory(ctx context.Context, actor domain.Actor) ([]domain.PurchaseEntry, error) {
	if err := requireRole(actor, "list purchases"); err != nil {
		return nil, err
	}
	return a.Recorder.PurchaseHistory(ctx)
}

// Catalog

func (a *App) AddSupplier(ctx context.Context, actor domain.Actor, p catalog.Party) (int64, error) {
	if err := requireRole(actor, "add supplier", domain.RoleAdmin); err != nil {
		return 0, err
	}
	return a.Catalog.AddSupplier(ctx, p)
}

func (a *App) UpdateSupplier(ctx context.Context, actor domain.Actor, id int64, p catalog.Party) error {
	if err := requireRole(actor, "update supplier", domain.RoleAdmin); err != nil {
		return err
	}
	return a.Catalog.UpdateSupplier(ctx, id, p)
}

func (a *App) DeleteSupplier(ctx context.Context, actor domain.Actor, id int64) error {
	if err := requireRole(actor, "delete supplier", domain.RoleAdmin); err != nil {
		return err
	}
	return a.Catalog.DeleteSupplier(ctx, id)
}

func (a *App) ListSuppliers(ctx context.Context, actor domain.Actor) ([]domain.Supplier, error) {
	if err := requireRole(actor, "list suppliers"); err != nil {
		return nil, err
	}
	return a.Catalog.ListSuppliers(ctx)
}

// AddCustomer is open to every role so a clerk can register a walk-in
// customer while recording a sale.
func (a *App) AddCustomer(ctx context.Context, actor domain.Actor, p catalog.Party) (int64, error) {
	if err := requireRole(actor, "add customer"); err != nil {
		return 0, err
	}
	return a.Catalog.AddCustomer(ctx, p)
}

func (a *App) UpdateCustomer(ctx context.Context, actor domain.Actor, id int64, p catalog.Party) error {
	if err := requireRole(actor, "update customer", domain.RoleAdmin); err != nil {
		return err
	}
	return a.Catalog.UpdateCustomer(ctx, id, p)
}

func (a *App) DeleteCustomer(ctx context.Context, actor domain.Actor, id int64) error {
	if err := requireRole(actor, "delete customer", domain.RoleAdmin); err != nil {
		return err
	}
	return a.Catalog.DeleteCustomer(ctx, id)
}

func (a *App) ListCustomers(ctx context.Context, actor domain.Actor) ([]domain.Customer, error) {
	if err := requireRole(actor, "list customers"); err != nil {
		return nil, err
	}
	return a.Catalog.ListCustomers(ctx)
}

// Orders

func (a *App) CreateOrder(ctx context.Context, actor domain.Actor, medicineName string, quantity int64) (domain.Order, error) {
	if err := requireRole(actor, "create order"); err != nil {
		return domain.Order{}, err
	}
	return a.Orders.CreateOrder(ctx, medicineName, quantity)
}

func (a *App) SetOrderStatus(ctx context.Context, actor domain.Actor, id int64, status domain.OrderStatus) (domain.Order, error) {
	if err := requireRole(actor, "set order status", domain.RoleAdmin); err != nil {
		return domain.Order{}, err
	}
	return a.Orders.SetStatus(ctx, id, status)
}

func (a *App) ListOrders(ctx context.Context, actor domain.Actor) ([]domain.Order, error) {
	if err := requireRole(actor, "list orders"); err != nil {
		return nil, err
	}
	return a.Orders.ListOrders(ctx)
}

// Reports

func (a *App) SalesReport(ctx context.Context, actor domain.Actor, r reports.Range) (domain.SalesReport, error) {
	if err := requireRole(actor, "sales report"); err != nil {
		return domain.SalesReport{}, err
	}
	return a.Reports.SalesReport(ctx, r)
}

// Dashboard uses the configured low stock threshold and expiry window.
func (a *App) Dashboard(ctx context.Context, actor domain.Actor) (domain.Dashboard, error) {
	if err := requireRole(actor, "dashboard"); err != nil {
		return domain.Dashboard{}, err
	}
	return a.Reports.Dashboard(ctx, a.cfg.LowStockThreshold, a.cfg.ExpiryWindowDays)
}

func (a *App) LowStock(ctx context.Context, actor domain.Actor) ([]domain.Medicine, error) {
	if err := requireRole(actor, "list low stock"); err != nil {
		return nil, err
	}
	return a.Ledger.LowStock(ctx, a.cfg.LowStockThreshold)
}

func (a *App) ExpiringSoon(ctx context.Context, actor domain.Actor) ([]domain.Medicine, error) {
	if err := requireRole(actor, "list expiring medicines"); err != nil {
		return nil, err
	}
	return a.Ledger.ExpiringWithin(ctx, a.cfg.ExpiryWindowDays)
}

// Users

func (a *App) CreateUser(ctx context.Context, actor domain.Actor, in auth.NewUser) (domain.User, error) {
	if err := requireRole(actor, "create user", domain.RoleAdmin); err != nil {
		return domain.User{}, err
	}
	return a.Credentials.CreateUser(ctx, in)
}

func (a *App) ListUsers(ctx context.Context, actor domain.Actor) ([]domain.User, error) {
	if err := requireRole(actor, "list users", domain.RoleAdmin); err != nil {
		return nil, err
	}
	return a.Credentials.ListUsers(ctx)
}
