package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"medledger/m/domain"
)

type claims struct {
	UserID int64       `json:"user_id"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Sessions issues and verifies HS256 tokens naming a user and role.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessions(secret string, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *Sessions) Issue(user domain.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", domain.Storage("issue session", err)
	}
	return signed, nil
}

// Parse verifies the token and returns the actor it was issued for.
func (s *Sessions) Parse(tokenString string) (domain.Actor, error) {
	const op = "parse session"
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return domain.Actor{}, domain.Forbidden(op, "invalid session token")
	}
	if !c.Role.Valid() {
		return domain.Actor{}, domain.Forbidden(op, "unknown role %q", c.Role)
	}
	return domain.Actor{UserID: c.UserID, Role: c.Role}, nil
}
