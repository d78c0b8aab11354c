package log

import "context"

// ContextWithCorrelationID stores id, generating one when id is empty.
func ContextWithCorrelationID(ctx context.Context, id string) (context.Context, string) {
	if id == "" {
		id = GenerateCorrelationID()
	}
	return context.WithValue(ctx, CorrelatedIDKey, id), id
}

// ContextWithLogger stores a logger already bound to the request's correlation id.
func ContextWithLogger(ctx context.Context, base *Logger) context.Context {
	return context.WithValue(ctx, LoggerKeyForContext, base.WithCorrelationID(ctx))
}
