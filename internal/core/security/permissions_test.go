package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_RequireExpr(t *testing.T) {
	g, err := NewGuard()
	require.NoError(t, err)
	expr := RequireExpr(PermInvoicesWrite)

	tests := []struct {
		name        string
		role        string
		permissions []string
		want        bool
	}{
		{"admin bypasses", "admin", nil, true},
		{"cashier with permission", "cashier", []string{PermInvoicesWrite}, true},
		{"cashier without permission", "cashier", []string{PermProductsRead}, false},
		{"cashier with nil permissions", "cashier", nil, false},
		{"empty role", "", []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.Allow(expr, tt.role, tt.permissions)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGuard_CompileRejectsBadExpression(t *testing.T) {
	g, err := NewGuard()
	require.NoError(t, err)

	assert.Error(t, g.Compile(`role ==`))
	assert.Error(t, g.Compile(`unknown_var == "x"`))
	assert.NoError(t, g.Compile(RequireExpr(PermTrashManage)))
}

func TestGuard_NonBooleanDenied(t *testing.T) {
	g, err := NewGuard()
	require.NoError(t, err)

	allowed, err := g.Allow(`role`, "admin", nil)
	assert.Error(t, err)
	assert.False(t, allowed)
}

func TestGuard_CachesPrograms(t *testing.T) {
	g, err := NewGuard()
	require.NoError(t, err)
	expr := RequireExpr(PermProductsWrite)

	require.NoError(t, g.Compile(expr))
	require.NoError(t, g.Compile(expr))
	assert.Len(t, g.programs, 1)
}

func TestGuard_CompoundExpression(t *testing.T) {
	g, err := NewGuard()
	require.NoError(t, err)
	expr := `role == "admin" || ("products:read" in permissions && "inventory:read" in permissions)`

	ok, err := g.Allow(expr, "cashier", []string{PermProductsRead, PermInventoryRead})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Allow(expr, "cashier", []string{PermProductsRead})
	require.NoError(t, err)
	assert.False(t, ok)
}
