// Package numerator provides document auto-numbering.
//
// Numbers are sequential per key (e.g. "INV", "PO"), formatted as
// PREFIX-NNNNNN with zero padding, and are never recycled: the backing
// sequence row only moves forward, and callers may pass the highest
// number already present in their table as a floor so a restored or
// migrated database continues after the last issued number.
package numerator

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

// DefaultPadWidth is the numeric width of formatted numbers (INV-000042).
const DefaultPadWidth = 6

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Service issues document numbers backed by the sys_sequences table.
// Calls participate in the caller's transaction when the querier is
// transaction-bound, so a rolled-back document releases no number gaps
// beyond the rollback itself.
type Service struct {
	querier Querier
}

// New creates a numerator service.
func New(querier Querier) *Service {
	return &Service{querier: querier}
}

// Next returns the next sequence value for key.
func (s *Service) Next(ctx context.Context, key string) (int64, error) {
	return s.NextAtLeast(ctx, key, 0)
}

// NextAtLeast returns the next sequence value for key, guaranteed to be
// strictly greater than floor. Pass the highest number already stored in
// the document table so numbering resumes after manual imports.
func (s *Service) NextAtLeast(ctx context.Context, key string, floor int64) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("numerator service is not initialized")
	}

	var num int64
	err := s.querier.QueryRow(ctx, `
        INSERT INTO sys_sequences (key, current_val)
        VALUES ($1, $2 + 1)
        ON CONFLICT (key) DO UPDATE
            SET current_val = GREATEST(sys_sequences.current_val, $2) + 1
        RETURNING current_val
	`, key, floor).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("next number for %s: %w", key, err)
	}
	return num, nil
}

// SetCurrent forces the sequence for key to value (migration support).
// The next issued number will be value+1.
func (s *Service) SetCurrent(ctx context.Context, key string, value int64) error {
	var result int64
	err := s.querier.QueryRow(ctx, `
        INSERT INTO sys_sequences (key, current_val)
        VALUES ($1, $2)
        ON CONFLICT (key) DO UPDATE SET current_val = $2
        RETURNING current_val
	`, key, value).Scan(&result)
	if err != nil {
		return fmt.Errorf("set current for %s: %w", key, err)
	}
	return nil
}

// Format renders a number as PREFIX-NNNNNN.
func Format(prefix string, num int64) string {
	return fmt.Sprintf("%s-%0*d", prefix, DefaultPadWidth, num)
}

// Parse extracts the numeric part from a formatted number.
// Returns -1 when the string does not end in a numeric segment.
func Parse(formatted string) int64 {
	idx := strings.LastIndex(formatted, "-")
	if idx < 0 || idx == len(formatted)-1 {
		return -1
	}
	num, err := strconv.ParseInt(formatted[idx+1:], 10, 64)
	if err != nil {
		return -1
	}
	return num
}
