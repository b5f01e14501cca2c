// Package auth hashes and checks passwords and issues session tokens. The
// ledger itself only sees the resulting domain.Actor.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"medledger/m/domain"
	"medledger/m/internal/database"
	"medledger/m/internal/logging"
)

const userColumns = `id, username, password_hash, role, full_name, email`

// DefaultAdmin is the username created on an empty user table.
const DefaultAdmin = "admin"

type NewUser struct {
	Username string
	Password string
	Role     domain.Role
	FullName string
	Email    string
}

type Credentials struct {
	db   *sqlx.DB
	log  *zap.Logger
	Cost int
}

func NewCredentials(db *sqlx.DB, log *zap.Logger) *Credentials {
	return &Credentials{db: db, log: logging.OrNop(log), Cost: bcrypt.DefaultCost}
}

func (c *Credentials) HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), c.Cost)
	if err != nil {
		return "", domain.Validation("hash password", "unable to secure password: %v", err)
	}
	return string(hashed), nil
}

func (c *Credentials) CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidateLogin returns the user when the password matches and nil when the
// username is unknown or the password is wrong.
func (c *Credentials) ValidateLogin(ctx context.Context, username, password string) (*domain.User, error) {
	var user domain.User
	err := c.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE username = ?`, strings.TrimSpace(username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Storage("validate login", err)
	}
	if !c.CheckPassword(user.PasswordHash, password) {
		c.log.Warn("login rejected", zap.String("username", user.Username))
		return nil, nil
	}
	return &user, nil
}

func (c *Credentials) CreateUser(ctx context.Context, in NewUser) (domain.User, error) {
	const op = "create user"
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	switch {
	case in.Username == "":
		return domain.User{}, domain.Validation(op, "username is required")
	case in.Password == "":
		return domain.User{}, domain.Validation(op, "password is required")
	case !in.Role.Valid():
		return domain.User{}, domain.Validation(op, "role must be %s or %s", domain.RoleAdmin, domain.RoleUser)
	}

	hashed, err := c.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, err
	}
	var user domain.User
	err = c.db.GetContext(ctx, &user,
		`INSERT INTO users (username, password_hash, role, full_name, email) VALUES (?, ?, ?, ?, ?) RETURNING `+userColumns,
		in.Username, hashed, in.Role, strings.TrimSpace(in.FullName), in.Email)
	if database.IsUniqueViolation(err) {
		return domain.User{}, domain.Duplicate(op, "username %q is taken", in.Username)
	}
	if err != nil {
		return domain.User{}, domain.Storage(op, err)
	}
	c.log.Info("user created", zap.Int64("user_id", user.ID), zap.String("username", user.Username), zap.String("role", string(user.Role)))
	return user, nil
}

// EnsureAdmin creates the default admin account when no user exists yet and
// reports whether it did.
func (c *Credentials) EnsureAdmin(ctx context.Context, password string) (bool, error) {
	var n int
	if err := c.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return false, domain.Storage("ensure admin", err)
	}
	if n > 0 {
		return false, nil
	}
	if _, err := c.CreateUser(ctx, NewUser{Username: DefaultAdmin, Password: password, Role: domain.RoleAdmin, FullName: "Administrator"}); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Credentials) ListUsers(ctx context.Context) ([]domain.User, error) {
	users := []domain.User{}
	if err := c.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY username`); err != nil {
		return nil, domain.Storage("list users", err)
	}
	return users, nil
}
