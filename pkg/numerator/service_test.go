package numerator

import (
	"context"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
)

// Mock objects
type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates the sys_sequences UPSERT:
// current_val = GREATEST(current, floor) + 1 per key.
type mockQuerier struct {
	mu     sync.Mutex
	values map[string]int64
	calls  int
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.values == nil {
		m.values = make(map[string]int64)
	}

	key, _ := args[0].(string)
	arg, _ := args[1].(int64)

	// SetCurrent query carries no GREATEST clause; detect by shape.
	if len(sql) > 0 && !containsGreatest(sql) {
		m.values[key] = arg
		return &mockRow{val: arg}
	}

	cur := m.values[key]
	if arg > cur {
		cur = arg
	}
	cur++
	m.values[key] = cur
	return &mockRow{val: cur}
}

func containsGreatest(sql string) bool {
	for i := 0; i+8 <= len(sql); i++ {
		if sql[i:i+8] == "GREATEST" {
			return true
		}
	}
	return false
}

func TestNext_Sequential(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		num, err := svc.Next(ctx, "PO")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if num != want {
			t.Errorf("expected %d, got %d", want, num)
		}
	}
}

func TestNextAtLeast_Floor(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()

	// Floor from physical data: next must be floor+1.
	num, err := svc.NextAtLeast(ctx, "INV", 41)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != 42 {
		t.Errorf("expected 42, got %d", num)
	}

	// A lower floor later must not rewind the sequence.
	num, err = svc.NextAtLeast(ctx, "INV", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != 43 {
		t.Errorf("expected 43, got %d", num)
	}
}

func TestNextAtLeast_IndependentKeys(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()

	if num, _ := svc.Next(ctx, "INV"); num != 1 {
		t.Errorf("INV: expected 1, got %d", num)
	}
	if num, _ := svc.Next(ctx, "PO"); num != 1 {
		t.Errorf("PO: expected 1, got %d", num)
	}
	if num, _ := svc.Next(ctx, "INV"); num != 2 {
		t.Errorf("INV: expected 2, got %d", num)
	}
}

func TestSetCurrent(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()

	if err := svc.SetCurrent(ctx, "INV", 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	num, err := svc.Next(ctx, "INV")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != 101 {
		t.Errorf("expected 101, got %d", num)
	}
}

func TestFormatParse(t *testing.T) {
	cases := []struct {
		prefix string
		num    int64
		want   string
	}{
		{"INV", 1, "INV-000001"},
		{"INV", 123456, "INV-123456"},
		{"PO", 42, "PO-000042"},
		{"INV", 1234567, "INV-1234567"}, // width grows past padding
	}
	for _, c := range cases {
		got := Format(c.prefix, c.num)
		if got != c.want {
			t.Errorf("Format(%s, %d) = %s, want %s", c.prefix, c.num, got, c.want)
		}
		if back := Parse(got); back != c.num {
			t.Errorf("Parse(%s) = %d, want %d", got, back, c.num)
		}
	}

	if Parse("garbage") != -1 {
		t.Error("expected -1 for unparseable input")
	}
	if Parse("INV-") != -1 {
		t.Error("expected -1 for empty numeric part")
	}
	if Parse("PO-MIGRATED-000007") != 7 {
		t.Error("expected migrated numbers to parse by last segment")
	}
}
