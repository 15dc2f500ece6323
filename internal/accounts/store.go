// Package accounts keeps player credentials and the win table.
package accounts

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"

	"github.com/DoyleJ11/seabattle-server/internal/engine"
)

var (
	ErrInvalidCredentials = engine.NewError(engine.KindValidation, "name and password are required")
	ErrWrongPassword      = engine.NewError(engine.KindValidation, "incorrect password")
	ErrUnknownAccount     = engine.NewError(engine.KindLookup, "account not found")
)

type Account struct {
	Identity string `json:"index"`
	Name     string `json:"name"`
	Wins     int    `json:"wins"`
}

type Winner struct {
	Name string `json:"name"`
	Wins int    `json:"wins"`
}

// Store registers players and records their wins. Register is
// register-or-login: an unknown name creates an account, a known one checks
// the password.
type Store interface {
	Register(ctx context.Context, name, password string) (Account, error)
	DisplayName(identity string) string
	RecordWin(ctx context.Context, identity string) error
	// Winners is ordered by wins, most first, then by name.
	Winners(ctx context.Context) ([]Winner, error)
	Close() error
}

// NormalizeName trims a player name and puts it in NFC so visually equal
// names map to the same account.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

type Option func(*options)

type options struct {
	cost int
}

// WithBcryptCost sets the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(o *options) { o.cost = cost }
}

func buildOptions(opts []Option) options {
	o := options{cost: bcrypt.DefaultCost}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

func checkCredentials(name, password string) (string, error) {
	name = NormalizeName(name)
	if name == "" || password == "" {
		return "", ErrInvalidCredentials
	}
	return name, nil
}

func checkPassword(hash []byte, password string) error {
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrWrongPassword
	}
	return nil
}
