// Package postgres persists profiles and logs with pgx.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"nutripal/nutrition"
	"nutripal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// Open connects a pool to databaseURL and verifies it with a ping.
func Open(ctx context.Context, databaseURL string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("STORE: Connected to database", "max_conns", cfg.MaxConns)
	return &Store{pool: pool}, nil
}

// Migrate creates the tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() { s.pool.Close() }

func (s *Store) GetProfile(ctx context.Context, userID uuid.UUID) (nutrition.Profile, error) {
	var (
		p        nutrition.Profile
		target   *float64
		sex      string
		activity string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT height_cm, weight_kg, target_weight_kg, age, sex, activity_level
		FROM profiles WHERE user_id = $1`, userID,
	).Scan(&p.HeightCm, &p.WeightKg, &target, &p.Age, &sex, &activity)
	if errors.Is(err, pgx.ErrNoRows) {
		return nutrition.Profile{}, store.ErrNotFound
	}
	if err != nil {
		return nutrition.Profile{}, fmt.Errorf("failed to get profile: %w", err)
	}
	p.TargetWeightKg = target
	p.Sex = nutrition.Sex(sex)
	p.ActivityLevel = nutrition.ActivityLevel(activity)
	return p, nil
}

func (s *Store) PutProfile(ctx context.Context, userID uuid.UUID, p nutrition.Profile) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO profiles (user_id, height_cm, weight_kg, target_weight_kg, age, sex, activity_level, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (user_id) DO UPDATE SET
			height_cm = EXCLUDED.height_cm,
			weight_kg = EXCLUDED.weight_kg,
			target_weight_kg = EXCLUDED.target_weight_kg,
			age = EXCLUDED.age,
			sex = EXCLUDED.sex,
			activity_level = EXCLUDED.activity_level,
			updated_at = now()`,
		userID, p.HeightCm, p.WeightKg, p.TargetWeightKg, p.Age, string(p.Sex), string(p.ActivityLevel),
	)
	if err != nil {
		return fmt.Errorf("failed to put profile: %w", err)
	}
	return nil
}

func (s *Store) GetLog(ctx context.Context, userID uuid.UUID, date string) (nutrition.Log, error) {
	return scanLog(s.pool.QueryRow(ctx, `
		SELECT items, version FROM daily_logs
		WHERE user_id = $1 AND log_date = $2::date`, userID, date), userID, date)
}

// MutateLog locks the row with SELECT ... FOR UPDATE inside a transaction so
// concurrent mutations of the same log queue behind each other.
func (s *Store) MutateLog(ctx context.Context, userID uuid.UUID, date string, create bool, fn store.MutateFunc) (nutrition.Log, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nutrition.Log{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if create {
		if _, err := tx.Exec(ctx, `
			INSERT INTO daily_logs (user_id, log_date) VALUES ($1, $2::date)
			ON CONFLICT (user_id, log_date) DO NOTHING`, userID, date); err != nil {
			return nutrition.Log{}, fmt.Errorf("failed to create log: %w", err)
		}
	}

	l, err := scanLog(tx.QueryRow(ctx, `
		SELECT items, version FROM daily_logs
		WHERE user_id = $1 AND log_date = $2::date
		FOR UPDATE`, userID, date), userID, date)
	if err != nil {
		return nutrition.Log{}, err
	}

	if err := fn(&l); err != nil {
		return nutrition.Log{}, err
	}

	items, err := json.Marshal(l.Items)
	if err != nil {
		return nutrition.Log{}, fmt.Errorf("failed to encode log items: %w", err)
	}
	if err := tx.QueryRow(ctx, `
		UPDATE daily_logs SET items = $3::jsonb, version = version + 1, updated_at = now()
		WHERE user_id = $1 AND log_date = $2::date
		RETURNING version`, userID, date, string(items),
	).Scan(&l.Version); err != nil {
		return nutrition.Log{}, fmt.Errorf("failed to update log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nutrition.Log{}, fmt.Errorf("failed to commit log: %w", err)
	}
	return l, nil
}

func scanLog(row pgx.Row, userID uuid.UUID, date string) (nutrition.Log, error) {
	var (
		raw     []byte
		version int64
	)
	if err := row.Scan(&raw, &version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nutrition.Log{}, store.ErrNotFound
		}
		return nutrition.Log{}, fmt.Errorf("failed to get log: %w", err)
	}

	l := nutrition.NewLog(userID.String(), date)
	l.Version = version
	if err := json.Unmarshal(raw, &l.Items); err != nil {
		return nutrition.Log{}, fmt.Errorf("failed to decode log items: %w", err)
	}
	if l.Items == nil {
		l.Items = []nutrition.LogItem{}
	}
	return l, nil
}
