// Package tx defines the transaction boundary the domain services
// program against. The concrete implementation lives in
// infrastructure/storage/postgres.
package tx

import (
	"context"
)

// Manager runs a function inside a database transaction: commit when fn
// returns nil, rollback otherwise. Nested calls join the transaction
// already carried by the context, so a service can compose repository
// calls and other services into one atomic unit.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager adds read-only transactions for multi-query reads
// that need a consistent snapshot without taking write locks.
type ReadOnlyManager interface {
	Manager

	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
