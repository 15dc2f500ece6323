package accounts

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

type memRecord struct {
	Account
	hash []byte
}

// MemoryStore keeps accounts for the life of the process.
type MemoryStore struct {
	mu     sync.Mutex
	byName map[string]*memRecord
	byID   map[string]*memRecord
	next   int
	opts   options
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		byName: make(map[string]*memRecord),
		byID:   make(map[string]*memRecord),
		opts:   buildOptions(opts),
	}
}

func (s *MemoryStore) Register(_ context.Context, name, password string) (Account, error) {
	name, err := checkCredentials(name, password)
	if err != nil {
		return Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.byName[name]; ok {
		if err := checkPassword(rec.hash, password); err != nil {
			return Account{}, err
		}
		return rec.Account, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.cost)
	if err != nil {
		return Account{}, fmt.Errorf("accounts: hash password: %w", err)
	}
	s.next++
	rec := &memRecord{
		Account: Account{Identity: fmt.Sprintf("player-%d", s.next), Name: name},
		hash:    hash,
	}
	s.byName[name] = rec
	s.byID[rec.Identity] = rec
	return rec.Account, nil
}

func (s *MemoryStore) DisplayName(identity string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.byID[identity]; ok {
		return rec.Name
	}
	return identity
}

func (s *MemoryStore) RecordWin(_ context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[identity]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, identity)
	}
	rec.Wins++
	return nil
}

func (s *MemoryStore) Winners(context.Context) ([]Winner, error) {
	s.mu.Lock()
	out := make([]Winner, 0, len(s.byName))
	for _, rec := range s.byName {
		out = append(out, Winner{Name: rec.Name, Wins: rec.Wins})
	}
	s.mu.Unlock()

	sortWinners(out)
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

func sortWinners(ws []Winner) {
	slices.SortFunc(ws, func(a, b Winner) int {
		if c := cmp.Compare(b.Wins, a.Wins); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
}
