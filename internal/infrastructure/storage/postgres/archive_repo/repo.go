// Package archive_repo provides PostgreSQL persistence for deleted
// record tombstones.
package archive_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/domain/archive"
	"stockbook/internal/infrastructure/storage/postgres"
)

const tombstoneTable = "deleted_records"

// Repo implements archive.Repository.
type Repo struct {
	txm *postgres.TxManager
}

// NewRepo creates a new tombstone repository.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{txm: txm}
}

func (r *Repo) querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

func (r *Repo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Insert stores a tombstone.
func (r *Repo) Insert(ctx context.Context, t *archive.Tombstone) error {
	q := r.builder().
		Insert(tombstoneTable).
		SetMap(postgres.StructToMap(t))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert tombstone: %w", err)
	}
	return nil
}

// Get retrieves one tombstone.
func (r *Repo) Get(ctx context.Context, tombstoneID id.ID) (*archive.Tombstone, error) {
	q := r.builder().
		Select(postgres.ExtractDBColumns[archive.Tombstone]()...).
		From(tombstoneTable).
		Where(squirrel.Eq{"id": tombstoneID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	t := &archive.Tombstone{}
	if err := pgxscan.Get(ctx, r.querier(ctx), t, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(tombstoneTable, tombstoneID.String())
		}
		return nil, fmt.Errorf("get tombstone: %w", err)
	}
	return t, nil
}

// Delete removes one tombstone.
func (r *Repo) Delete(ctx context.Context, tombstoneID id.ID) error {
	q := r.builder().
		Delete(tombstoneTable).
		Where(squirrel.Eq{"id": tombstoneID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete tombstone: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(tombstoneTable, tombstoneID.String())
	}
	return nil
}

// DeleteAll empties the trash and reports how many rows went.
func (r *Repo) DeleteAll(ctx context.Context) (int, error) {
	result, err := r.querier(ctx).Exec(ctx, `DELETE FROM deleted_records`)
	if err != nil {
		return 0, fmt.Errorf("clear trash: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// List returns tombstones newest first, optionally filtered by entity
// type.
func (r *Repo) List(ctx context.Context, entityType string, limit, offset int) ([]*archive.Tombstone, int, error) {
	where := func(q squirrel.SelectBuilder) squirrel.SelectBuilder {
		if entityType != "" {
			q = q.Where(squirrel.Eq{"entity_type": entityType})
		}
		return q
	}

	countQ := where(r.builder().Select("COUNT(*)").From(tombstoneTable))
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}
	var total int
	if err := r.querier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tombstones: %w", err)
	}

	q := where(r.builder().
		Select(postgres.ExtractDBColumns[archive.Tombstone]()...).
		From(tombstoneTable)).
		OrderBy("deleted_at DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	var out []*archive.Tombstone
	if err := pgxscan.Select(ctx, r.querier(ctx), &out, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("list tombstones: %w", err)
	}
	return out, total, nil
}
