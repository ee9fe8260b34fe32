// Package store defines persistence for profiles and daily logs.
package store

import (
	"context"
	"errors"

	"nutripal/nutrition"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

type ProfileStore interface {
	// GetProfile returns ErrNotFound when the user has no profile.
	GetProfile(ctx context.Context, userID uuid.UUID) (nutrition.Profile, error)
	// PutProfile replaces the user's profile.
	PutProfile(ctx context.Context, userID uuid.UUID, p nutrition.Profile) error
}

// MutateFunc edits a log in place. Returning an error discards the edit.
type MutateFunc func(l *nutrition.Log) error

type LogStore interface {
	// GetLog returns ErrNotFound when nothing was logged on date.
	GetLog(ctx context.Context, userID uuid.UUID, date string) (nutrition.Log, error)

	// MutateLog runs fn on the current log for (userID, date) and persists the
	// result, with no other mutation of the same log in between. When the
	// log does not exist it is created empty if create is set, otherwise
	// ErrNotFound is returned. The persisted log is returned.
	MutateLog(ctx context.Context, userID uuid.UUID, date string, create bool, fn MutateFunc) (nutrition.Log, error)
}

type Store interface {
	ProfileStore
	LogStore
	Ping(ctx context.Context) error
	Close()
}
