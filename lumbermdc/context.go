package lumbermdc

import (
	"context"

	"github.com/google/uuid"
)

// ContextKey is a type for context keys to avoid conflicts.
type ContextKey string

const (
	// CorrelationIDKey is the context key for correlation IDs.
	CorrelationIDKey ContextKey = "correlation_id"

	// RequestIDKey is the context key for request IDs.
	RequestIDKey ContextKey = "request_id"

	// UserIDKey is the context key for user IDs.
	UserIDKey ContextKey = "user_id"

	// valuesKey holds the map built by WithValue.
	valuesKey ContextKey = "mdc_values"
)

// WithCorrelationID adds a correlation ID to the context.
// If no correlation ID is provided, one will be generated.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	if correlationID == "" {
		correlationID = GenerateCorrelationID()
	}
	return context.WithValue(ctx, CorrelationIDKey, correlationID)
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithUserID adds a user ID to the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithValue returns a context carrying key=value in addition to the values
// already present. The parent's map is never modified.
func WithValue(ctx context.Context, key, value string) context.Context {
	parent, _ := ctx.Value(valuesKey).(map[string]string)
	values := make(map[string]string, len(parent)+1)
	for k, v := range parent {
		values[k] = v
	}
	values[key] = value
	return context.WithValue(ctx, valuesKey, values)
}

// CorrelationID retrieves the correlation ID from the context.
func CorrelationID(ctx context.Context) string {
	return stringValue(ctx, CorrelationIDKey)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// UserID retrieves the user ID from the context.
func UserID(ctx context.Context) string {
	return stringValue(ctx, UserIDKey)
}

// Values returns every diagnostic value carried by ctx: those added with
// WithValue plus the well-known IDs. It returns nil when there are none.
func Values(ctx context.Context) map[string]string {
	if ctx == nil {
		return nil
	}

	var out map[string]string
	set := func(k, v string) {
		if out == nil {
			out = make(map[string]string)
		}
		out[k] = v
	}

	if values, ok := ctx.Value(valuesKey).(map[string]string); ok {
		for k, v := range values {
			set(k, v)
		}
	}
	for _, key := range []ContextKey{CorrelationIDKey, RequestIDKey, UserIDKey} {
		if v := stringValue(ctx, key); v != "" {
			set(string(key), v)
		}
	}
	return out
}

// GenerateCorrelationID generates a random correlation ID.
func GenerateCorrelationID() string {
	return uuid.NewString()
}

func stringValue(ctx context.Context, key ContextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
