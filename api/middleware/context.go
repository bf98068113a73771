package middleware

import "context"

type contextKey string

const (
	terminalIDKey   contextKey = "terminal_id"
	terminalNameKey contextKey = "terminal_name"
)

// WithTerminalID stores the authenticated terminal id on the context.
func WithTerminalID(ctx context.Context, terminalID string) context.Context {
	return context.WithValue(ctx, terminalIDKey, terminalID)
}

// TerminalIDFromContext returns the authenticated terminal id, if any.
func TerminalIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(terminalIDKey).(string); ok {
		return v
	}
	return ""
}

// WithTerminalName stores the terminal display name on the context.
func WithTerminalName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, terminalNameKey, name)
}

// TerminalNameFromContext returns the terminal display name, if any.
func TerminalNameFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(terminalNameKey).(string); ok {
		return v
	}
	return ""
}
