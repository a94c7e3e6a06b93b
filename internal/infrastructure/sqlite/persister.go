package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/zjrosen/taskdeck/internal/kv"
	"github.com/zjrosen/taskdeck/internal/log"
)

const sessionTable = "session_kv"

// Persister implements kv.Persister on the session_kv table.
type Persister struct {
	db  *sql.DB
	qb  sq.StatementBuilderType
	now func() time.Time
}

var (
	_ kv.Persister   = (*Persister)(nil)
	_ kv.BatchSetter = (*Persister)(nil)
)

func newPersister(db *sql.DB) *Persister {
	return &Persister{
		db:  db,
		qb:  sq.StatementBuilder.PlaceholderFormat(sq.Question),
		now: time.Now,
	}
}

// Get returns the value stored under key.
func (p *Persister) Get(ctx context.Context, key string) (string, bool, error) {
	query, args, err := p.qb.
		Select("value").
		From(sessionTable).
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return "", false, fmt.Errorf("building query: %w", err)
	}

	var value string
	err = p.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts a single key.
func (p *Persister) Set(ctx context.Context, key, value string) error {
	query, args, err := p.upsert(key, value)
	if err != nil {
		return err
	}
	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// SetMany upserts all values in one transaction.
func (p *Persister) SetMany(ctx context.Context, values map[string]string) (err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for key, value := range values {
		query, args, buildErr := p.upsert(key, value)
		if buildErr != nil {
			return buildErr
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("writing %s: %w", key, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing session: %w", err)
	}
	log.Debug(log.CatStore, "persisted session keys", "backend", "sqlite", "count", len(values))
	return nil
}

// Clear removes every stored key.
func (p *Persister) Clear(ctx context.Context) error {
	query, args, err := p.qb.Delete(sessionTable).ToSql()
	if err != nil {
		return fmt.Errorf("building delete: %w", err)
	}
	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	log.Debug(log.CatStore, "cleared session", "backend", "sqlite")
	return nil
}

func (p *Persister) upsert(key, value string) (string, []any, error) {
	query, args, err := p.qb.
		Insert(sessionTable).
		Columns("key", "value", "updated_at").
		Values(key, value, p.now().Unix()).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("building upsert: %w", err)
	}
	return query, args, nil
}
