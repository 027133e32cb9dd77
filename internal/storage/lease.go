package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"salvadanaio/internal/core"
)

// Acquire claims the lease called name for owner until ttl from now. The
// current owner may renew it; anyone else gets core.ErrLeaseHeld until it
// expires.
func (s *SQLiteStore) Acquire(ctx context.Context, name, owner string, ttl time.Duration) error {
	now := s.now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO leases (name, owner, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET owner = excluded.owner, expires_at = excluded.expires_at
		WHERE leases.owner = excluded.owner OR leases.expires_at <= ?`,
		name, owner, now.Add(ttl).UnixMilli(), now.UnixMilli())
	if err != nil {
		return fmt.Errorf("acquire lease %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("acquire lease %q: %w", name, err)
	}
	if n > 0 {
		return nil
	}

	var (
		holder  string
		expires int64
	)
	err = s.db.QueryRowContext(ctx, `SELECT owner, expires_at FROM leases WHERE name = ?`, name).Scan(&holder, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lease %q: %w", name, core.ErrLeaseHeld)
	}
	if err != nil {
		return fmt.Errorf("read lease %q: %w", name, err)
	}
	return leaseHeld(name, holder, time.UnixMilli(expires))
}

// Release gives the lease up if owner still holds it.
func (s *SQLiteStore) Release(ctx context.Context, name, owner string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM leases WHERE name = ? AND owner = ?`, name, owner); err != nil {
		return fmt.Errorf("release lease %q: %w", name, err)
	}
	return nil
}

func (m *MemoryStore) Acquire(_ context.Context, name, owner string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if l, ok := m.leases[name]; ok && l.owner != owner && now.Before(l.expires) {
		return leaseHeld(name, l.owner, l.expires)
	}
	m.leases[name] = lease{owner: owner, expires: now.Add(ttl)}
	return nil
}

func (m *MemoryStore) Release(_ context.Context, name, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.leases[name]; ok && l.owner == owner {
		delete(m.leases, name)
	}
	return nil
}

type lease struct {
	owner   string
	expires time.Time
}

func leaseHeld(name, holder string, until time.Time) error {
	return fmt.Errorf("lease %q held by %s until %s: %w",
		name, holder, until.Local().Format(time.RFC3339), core.ErrLeaseHeld)
}
