package context

import (
	"context"
	"strings"
)

// Operator identifies who performs a request. The service has no authentication;
// the name comes from the X-Operator header and is recorded in audit entries only.
type Operator struct {
	Name string
}

type operatorContextKey struct{}

// WithOperator adds Operator to context.
func WithOperator(ctx context.Context, op *Operator) context.Context {
	return context.WithValue(ctx, operatorContextKey{}, op)
}

// GetOperator returns Operator from context.
func GetOperator(ctx context.Context) *Operator {
	if v, ok := ctx.Value(operatorContextKey{}).(*Operator); ok {
		return v
	}
	return nil
}

// GetOperatorName returns the operator name or "system" when none was supplied.
func GetOperatorName(ctx context.Context) string {
	if op := GetOperator(ctx); op != nil && strings.TrimSpace(op.Name) != "" {
		return op.Name
	}
	return "system"
}
