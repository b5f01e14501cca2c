package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medledger/m/domain"
	"medledger/m/internal/auth"
	"medledger/m/internal/catalog"
	"medledger/m/internal/config"
	"medledger/m/internal/notify"
	"medledger/m/internal/reports"
	"medledger/m/internal/stock"
	"medledger/m/internal/testutil"
	"medledger/m/internal/transactions"
)

var (
	admin = domain.Actor{UserID: 1, Role: domain.RoleAdmin}
	clerk = domain.Actor{UserID: 2, Role: domain.RoleUser}
)

func testConfig() config.Config {
	return config.Config{
		Secret:            "test-secret",
		LowStockThreshold: 10,
		ExpiryWindowDays:  30,
		AdminPassword:     "admin123",
		SessionTTL:        time.Hour,
	}
}

func newApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	a := New(cfg, testutil.NewDB(t), nil)
	a.Credentials.Cost = 4
	return a
}

func medicine(name string, qty int64) stock.MedicineInput {
	return stock.MedicineInput{Name: name, BatchNo: name + "-B", Quantity: qty, UnitPrice: decimal.NewFromInt(5)}
}

func TestClerkCannotMutateStock(t *testing.T) {
	a := newApp(t, testConfig())
	ctx := context.Background()

	_, err := a.AddMedicine(ctx, clerk, medicine("Paracetamol", 10))
	assert.ErrorIs(t, err, domain.ErrForbidden)

	m, err := a.AddMedicine(ctx, admin, medicine("Paracetamol", 10))
	require.NoError(t, err)

	_, err = a.UpdateMedicine(ctx, clerk, m.ID, medicine("Paracetamol", 1))
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.ErrorIs(t, a.DeleteMedicine(ctx, clerk, m.ID), domain.ErrForbidden)
	_, err = a.RecordPurchase(ctx, clerk, transactions.PurchaseInput{MedicineID: m.ID, Quantity: 5})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = a.SweepZeroStock(ctx, clerk)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	got, err := a.Ledger.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.Quantity)
}

func TestClerkSellsToNewCustomer(t *testing.T) {
	a := newApp(t, testConfig())
	ctx := context.Background()
	m, err := a.AddMedicine(ctx, admin, medicine("Paracetamol", 10))
	require.NoError(t, err)

	cid, err := a.AddCustomer(ctx, clerk, catalog.Party{Name: "Walk-in"})
	require.NoError(t, err)
	_, err = a.RecordSale(ctx, clerk, transactions.SaleInput{MedicineID: m.ID, Quantity: 3, CustomerID: &cid})
	require.NoError(t, err)

	history, err := a.SalesHistory(ctx, clerk)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Walk-in", *history[0].CustomerName)

	assert.ErrorIs(t, a.DeleteCustomer(ctx, clerk, cid), domain.ErrForbidden)
	assert.ErrorIs(t, a.UpdateCustomer(ctx, clerk, cid, catalog.Party{Name: "x"}), domain.ErrForbidden)
	_, err = a.AddSupplier(ctx, clerk, catalog.Party{Name: "MedSupply"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestOrderApprovalNeedsAdmin(t *testing.T) {
	a := newApp(t, testConfig())
	ctx := context.Background()

	o, err := a.CreateOrder(ctx, clerk, "Amoxicillin", 20)
	require.NoError(t, err)

	_, err = a.SetOrderStatus(ctx, clerk, o.ID, domain.OrderApproved)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	o, err = a.SetOrderStatus(ctx, admin, o.ID, domain.OrderApproved)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderApproved, o.Status)

	list, err := a.ListOrders(ctx, clerk)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUnauthenticatedActorIsRejected(t *testing.T) {
	a := newApp(t, testConfig())
	ctx := context.Background()

	_, err := a.ListMedicines(ctx, domain.Actor{})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = a.SearchMedicines(ctx, domain.Actor{}, "ibu")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = a.SalesReport(ctx, domain.Actor{Role: "guest"}, reports.Range{})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestLoginAndAuthenticate(t *testing.T) {
	a := newApp(t, testConfig())
	ctx := context.Background()
	require.NoError(t, a.Bootstrap(ctx))

	_, _, err := a.Login(ctx, auth.DefaultAdmin, "wrong")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	token, user, err := a.Login(ctx, auth.DefaultAdmin, "admin123")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)

	actor, err := a.Authenticate(token)
	require.NoError(t, err)
	assert.True(t, actor.IsAdmin())

	u, err := a.CreateUser(ctx, actor, auth.NewUser{Username: "clerk", Password: "pw", Role: domain.RoleUser})
	require.NoError(t, err)

	token, _, err = a.Login(ctx, "clerk", "pw")
	require.NoError(t, err)
	clerkActor, err := a.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, domain.Actor{UserID: u.ID, Role: domain.RoleUser}, clerkActor)

	_, err = a.ListUsers(ctx, clerkActor)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = a.CreateUser(ctx, clerkActor, auth.NewUser{Username: "x", Password: "y", Role: domain.RoleAdmin})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestBootstrapSeedsAndSweeps(t *testing.T) {
	cfg := testConfig()
	cfg.SeedCSV = filepath.Join(t.TempDir(), "medicines.csv")
	require.NoError(t, os.WriteFile(cfg.SeedCSV, []byte(
		"name,strength,batch_no,expiry_date,quantity,unit_price\n"+
			"Paracetamol,500mg,P-1,2099-01-01,50,2.5\n"+
			"Ibuprofen,200mg,I-1,2099-01-01,5,1.5\n"), 0o600))

	a := newApp(t, cfg)
	ctx := context.Background()
	require.NoError(t, a.Bootstrap(ctx))

	active, err := a.ListMedicines(ctx, clerk)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	low, err := a.LowStock(ctx, clerk)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "Ibuprofen", low[0].Name)

	found, err := a.SearchMedicines(ctx, clerk, "ibu")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Ibuprofen", found[0].Name)

	// A second bootstrap neither re-seeds nor recreates the admin.
	require.NoError(t, a.Bootstrap(ctx))
	active, err = a.ListMedicines(ctx, clerk)
	require.NoError(t, err)
	assert.Len(t, active, 2)
	users, err := a.ListUsers(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	dash, err := a.Dashboard(ctx, clerk)
	require.NoError(t, err)
	assert.Equal(t, int64(2), dash.ActiveMedicines)
	assert.Equal(t, int64(1), dash.LowStock)
}

func TestEventsReachSubscribers(t *testing.T) {
	a := newApp(t, testConfig())
	ctx := context.Background()

	var (
		mu   sync.Mutex
		seen []notify.Kind
	)
	record := func(ev notify.Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, ev.Kind)
	}
	for _, kind := range []notify.Kind{notify.MedicineChanged, notify.SaleRecorded, notify.OrderChanged} {
		require.NoError(t, a.Events.Subscribe(kind, record))
	}
	require.NoError(t, a.Events.Subscribe(notify.SaleRecorded, func(notify.Event) { panic("boom") }))

	m, err := a.AddMedicine(ctx, admin, medicine("Paracetamol", 2))
	require.NoError(t, err)
	_, err = a.RecordSale(ctx, clerk, transactions.SaleInput{MedicineID: m.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = a.CreateOrder(ctx, clerk, "Paracetamol", 10)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []notify.Kind{notify.MedicineChanged, notify.SaleRecorded, notify.MedicineChanged, notify.OrderChanged}, seen)

	archived, err := a.ListArchived(ctx, clerk)
	require.NoError(t, err)
	assert.Len(t, archived, 1)
}
