// Package eectx carries per-call flags for bus adapters in a context.
package eectx

import "context"

type key int

const (
	keyVerbose key = iota
	keyOperation
)

// WithVerbose marks ctx so adapters dump raw bus reports.
func WithVerbose(parent context.Context, verbose bool) context.Context {
	return context.WithValue(parent, keyVerbose, verbose)
}

func IsVerbose(ctx context.Context) bool {
	v, ok := ctx.Value(keyVerbose).(bool)
	return ok && v
}

// WithOperation names the logical operation (e.g. a CLI command) that the
// following bus traffic belongs to.
func WithOperation(parent context.Context, name string) context.Context {
	return context.WithValue(parent, keyOperation, name)
}

// Operation returns the name set by WithOperation or "" if none.
func Operation(ctx context.Context) string {
	name, _ := ctx.Value(keyOperation).(string)
	return name
}
