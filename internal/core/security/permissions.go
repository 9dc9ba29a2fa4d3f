// Package security provides authorization and access control.
//
// Route guards are expressed as CEL programs evaluated against the
// authenticated user's role and permission list, e.g.:
//
//	role == "admin" || "inventory:write" in permissions
//
// Expressions are compiled once and cached; evaluation is allocation-light
// and safe for per-request use.
package security

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"stockbook/internal/core/apperror"
)

// Permission names stored in users.permissions.
const (
	PermProductsRead   = "products:read"
	PermProductsWrite  = "products:write"
	PermInventoryRead  = "inventory:read"
	PermInventoryWrite = "inventory:write"
	PermInvoicesRead   = "invoices:read"
	PermInvoicesWrite  = "invoices:write"
	PermPurchasesRead  = "purchases:read"
	PermPurchasesWrite = "purchases:write"
	PermPaymentsWrite  = "payments:write"
	PermTrashManage    = "trash:manage"
	PermSettingsWrite  = "settings:write"
	PermUsersManage    = "users:manage"
)

// Guard compiles and evaluates permission expressions.
type Guard struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewGuard creates a Guard with the standard evaluation environment.
func NewGuard() (*Guard, error) {
	env, err := cel.NewEnv(
		cel.Variable("role", cel.StringType),
		cel.Variable("permissions", cel.ListType(cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}
	return &Guard{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Compile validates an expression and caches its program.
// Call at startup for static route guards to fail fast on typos.
func (g *Guard) Compile(expr string) error {
	_, err := g.program(expr)
	return err
}

// Allow evaluates expr against the user's role and permissions.
// A non-boolean result or evaluation error denies access.
func (g *Guard) Allow(expr, role string, permissions []string) (bool, error) {
	prg, err := g.program(expr)
	if err != nil {
		return false, err
	}
	if permissions == nil {
		permissions = []string{}
	}
	out, _, err := prg.Eval(map[string]any{
		"role":        role,
		"permissions": permissions,
	})
	if err != nil {
		return false, apperror.NewInternal(fmt.Errorf("evaluate permission expression: %w", err))
	}
	allowed, ok := out.Value().(bool)
	if !ok {
		return false, apperror.NewInternal(fmt.Errorf("permission expression %q is not boolean", expr))
	}
	return allowed, nil
}

func (g *Guard) program(expr string) (cel.Program, error) {
	g.mu.RLock()
	prg, ok := g.programs[expr]
	g.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, iss := g.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, apperror.NewInternal(fmt.Errorf("compile permission expression %q: %w", expr, iss.Err()))
	}
	prg, err := g.env.Program(ast)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("build permission program %q: %w", expr, err))
	}

	g.mu.Lock()
	g.programs[expr] = prg
	g.mu.Unlock()
	return prg, nil
}

// RequireExpr builds the common guard expression for a single permission:
// admins pass unconditionally, everyone else needs the named permission.
func RequireExpr(perm string) string {
	return fmt.Sprintf(`role == "admin" || %q in permissions`, perm)
}
