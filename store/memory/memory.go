// Package memory is a process-local store for development and tests.
package memory

import (
	"context"
	"sync"

	"nutripal/nutrition"
	"nutripal/store"

	"github.com/google/uuid"
)

type logKey struct {
	user uuid.UUID
	date string
}

type Store struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]nutrition.Profile
	logs     map[logKey]nutrition.Log
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		profiles: make(map[uuid.UUID]nutrition.Profile),
		logs:     make(map[logKey]nutrition.Log),
	}
}

func (s *Store) GetProfile(ctx context.Context, userID uuid.UUID) (nutrition.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nutrition.Profile{}, store.ErrNotFound
	}
	return copyProfile(p), nil
}

func (s *Store) PutProfile(ctx context.Context, userID uuid.UUID, p nutrition.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[userID] = copyProfile(p)
	return nil
}

func (s *Store) GetLog(ctx context.Context, userID uuid.UUID, date string) (nutrition.Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.logs[logKey{userID, date}]
	if !ok {
		return nutrition.Log{}, store.ErrNotFound
	}
	return l.Clone(), nil
}

// MutateLog holds the store lock for the whole read-modify-write.
func (s *Store) MutateLog(ctx context.Context, userID uuid.UUID, date string, create bool, fn store.MutateFunc) (nutrition.Log, error) {
	if err := ctx.Err(); err != nil {
		return nutrition.Log{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := logKey{userID, date}
	current, ok := s.logs[key]
	if !ok {
		if !create {
			return nutrition.Log{}, store.ErrNotFound
		}
		current = nutrition.NewLog(userID.String(), date)
	}

	next := current.Clone()
	if err := fn(&next); err != nil {
		return nutrition.Log{}, err
	}
	next.Version = current.Version + 1
	s.logs[key] = next
	return next.Clone(), nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close() {}

func copyProfile(p nutrition.Profile) nutrition.Profile {
	if p.TargetWeightKg != nil {
		t := *p.TargetWeightKg
		p.TargetWeightKg = &t
	}
	return p
}
