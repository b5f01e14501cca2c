// Package app wires the ledger components together and is the only place that
// checks what an actor may do.
package app

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"medledger/m/domain"
	"medledger/m/internal/auth"
	"medledger/m/internal/catalog"
	"medledger/m/internal/config"
	"medledger/m/internal/logging"
	"medledger/m/internal/notify"
	"medledger/m/internal/orders"
	"medledger/m/internal/reports"
	"medledger/m/internal/seed"
	"medledger/m/internal/stock"
	"medledger/m/internal/transactions"
)

type App struct {
	cfg config.Config
	log *zap.Logger

	Events      *notify.Bus
	Ledger      *stock.Ledger
	Archive     *stock.Archiver
	Catalog     *catalog.Registry
	Recorder    *transactions.Recorder
	Orders      *orders.Workflow
	Reports     *reports.Engine
	Credentials *auth.Credentials
	Sessions    *auth.Sessions
}

func New(cfg config.Config, db *sqlx.DB, log *zap.Logger) *App {
	log = logging.OrNop(log)
	events := notify.NewBus(log.Named("events"))
	archive := stock.NewArchiver(db, events, log.Named("archive"))
	ledger := stock.NewLedger(db, archive, events, log.Named("ledger"))
	return &App{
		cfg:         cfg,
		log:         log,
		Events:      events,
		Ledger:      ledger,
		Archive:     archive,
		Catalog:     catalog.NewRegistry(db, events, log.Named("catalog")),
		Recorder:    transactions.NewRecorder(db, ledger, events, log.Named("transactions")),
		Orders:      orders.NewWorkflow(db, events, log.Named("orders")),
		Reports:     reports.NewEngine(db),
		Credentials: auth.NewCredentials(db, log.Named("auth")),
		Sessions:    auth.NewSessions(cfg.Secret, cfg.SessionTTL),
	}
}

// Bootstrap prepares a freshly migrated store: it creates the default admin
// when there are no users, imports the seed list when one is configured and
// the ledger is empty, then archives any row left at zero stock.
func (a *App) Bootstrap(ctx context.Context) error {
	created, err := a.Credentials.EnsureAdmin(ctx, a.cfg.AdminPassword)
	if err != nil {
		return err
	}
	if created {
		a.log.Warn("default admin created, change its password", zap.String("username", auth.DefaultAdmin))
	}

	if a.cfg.SeedCSV != "" {
		active, err := a.Ledger.ListActive(ctx)
		if err != nil {
			return err
		}
		if len(active) == 0 {
			if _, err := seed.LoadMedicines(ctx, a.Ledger, a.cfg.SeedCSV, a.log.Named("seed")); err != nil {
				a.log.Error("medicine seed failed", zap.String("path", a.cfg.SeedCSV), zap.Error(err))
			}
		}
	}

	swept, err := a.Archive.SweepZeroStock(ctx)
	if err != nil {
		return err
	}
	if swept > 0 {
		a.log.Info("archived zero stock at startup", zap.Int("count", swept))
	}
	return nil
}

// Login checks the credentials and returns a session token for the user.
func (a *App) Login(ctx context.Context, username, password string) (string, domain.User, error) {
	const op = "login"
	user, err := a.Credentials.ValidateLogin(ctx, username, password)
	if err != nil {
		return "", domain.User{}, err
	}
	if user == nil {
		return "", domain.User{}, domain.Forbidden(op, "invalid credentials")
	}
	token, err := a.Sessions.Issue(*user)
	if err != nil {
		return "", domain.User{}, err
	}
	a.log.Info("user logged in", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))
	return token, *user, nil
}

// Authenticate turns a session token back into the actor it was issued for.
func (a *App) Authenticate(token string) (domain.Actor, error) {
	return a.Sessions.Parse(token)
}

func requireRole(actor domain.Actor, op string, allowed ...domain.Role) error {
	if !actor.Role.Valid() {
		return domain.Forbidden(op, "not authenticated")
	}
	if len(allowed) == 0 {
		return nil
	}
	for _, role := range allowed {
		if actor.Role == role {
			return nil
		}
	}
	return domain.Forbidden(op, "role %s may not %s", actor.Role, op)
}
