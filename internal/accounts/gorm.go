package accounts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const identityPrefix = "player-"

type accountRow struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"uniqueIndex;not null"`
	PasswordHash []byte `gorm:"not null"`
	Wins         int    `gorm:"not null;default:0"`
	CreatedAt    time.Time
}

func (accountRow) TableName() string { return "accounts" }

func (r accountRow) account() Account {
	return Account{Identity: identityPrefix + strconv.FormatUint(uint64(r.ID), 10), Name: r.Name, Wins: r.Wins}
}

func parseIdentity(identity string) (uint, bool) {
	raw, ok := strings.CutPrefix(identity, identityPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// GormStore keeps accounts in Postgres. Display names are cached in memory
// since log labels ask for them on hot paths.
type GormStore struct {
	db   *gorm.DB
	log  *zap.Logger
	opts options

	mu    sync.RWMutex
	names map[string]string
}

// OpenGorm connects to dsn and migrates the accounts table.
func OpenGorm(dsn string, log *zap.Logger, opts ...Option) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("accounts: open postgres: %w", err)
	}
	if err := db.AutoMigrate(&accountRow{}); err != nil {
		return nil, fmt.Errorf("accounts: migrate: %w", err)
	}
	return &GormStore{
		db:    db,
		log:   log,
		opts:  buildOptions(opts),
		names: make(map[string]string),
	}, nil
}

func (s *GormStore) Register(ctx context.Context, name, password string) (Account, error) {
	name, err := checkCredentials(name, password)
	if err != nil {
		return Account{}, err
	}

	row, found, err := s.byName(ctx, name)
	if err != nil {
		return Account{}, err
	}
	if !found {
		row, err = s.create(ctx, name, password)
		if isUniqueViolation(err) {
			// Lost a race with a concurrent register of the same name.
			row, found, err = s.byName(ctx, name)
			if err != nil {
				return Account{}, err
			}
			return s.login(row, found, name, password)
		}
		if err != nil {
			return Account{}, err
		}
		return s.remember(row.account()), nil
	}
	return s.login(row, found, name, password)
}

// login checks password against a row read back by name. A row that
// vanished between the insert conflict and the re-read is a lookup failure.
func (s *GormStore) login(row accountRow, found bool, name, password string) (Account, error) {
	if !found {
		return Account{}, fmt.Errorf("%w: %s", ErrUnknownAccount, name)
	}
	if err := checkPassword(row.PasswordHash, password); err != nil {
		return Account{}, err
	}
	return s.remember(row.account()), nil
}

func (s *GormStore) remember(acc Account) Account {
	s.mu.Lock()
	s.names[acc.Identity] = acc.Name
	s.mu.Unlock()
	return acc
}

func (s *GormStore) byName(ctx context.Context, name string) (accountRow, bool, error) {
	var row accountRow
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&row).Error
	switch {
	case err == nil:
		return row, true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return accountRow{}, false, nil
	default:
		return accountRow{}, false, fmt.Errorf("accounts: find %q: %w", name, err)
	}
}

func (s *GormStore) create(ctx context.Context, name, password string) (accountRow, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.cost)
	if err != nil {
		return accountRow{}, fmt.Errorf("accounts: hash password: %w", err)
	}
	row := accountRow{Name: name, PasswordHash: hash}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return accountRow{}, err
	}
	s.log.Info("account registered", zap.String("name", name), zap.Uint("id", row.ID))
	return row, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *GormStore) DisplayName(identity string) string {
	s.mu.RLock()
	name, ok := s.names[identity]
	s.mu.RUnlock()
	if ok {
		return name
	}

	id, ok := parseIdentity(identity)
	if !ok {
		return identity
	}
	var row accountRow
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.db.WithContext(ctx).Select("id", "name").First(&row, id).Error; err != nil {
		return identity
	}
	s.mu.Lock()
	s.names[identity] = row.Name
	s.mu.Unlock()
	return row.Name
}

func (s *GormStore) RecordWin(ctx context.Context, identity string) error {
	id, ok := parseIdentity(identity)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, identity)
	}
	res := s.db.WithContext(ctx).Model(&accountRow{}).
		Where("id = ?", id).
		UpdateColumn("wins", gorm.Expr("wins + ?", 1))
	if res.Error != nil {
		return fmt.Errorf("accounts: record win for %s: %w", identity, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, identity)
	}
	return nil
}

func (s *GormStore) Winners(ctx context.Context) ([]Winner, error) {
	var rows []accountRow
	err := s.db.WithContext(ctx).
		Select("name", "wins").
		Order("wins DESC").Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("accounts: list winners: %w", err)
	}
	out := make([]Winner, len(rows))
	for i, r := range rows {
		out[i] = Winner{Name: r.Name, Wins: r.Wins}
	}
	return out, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
