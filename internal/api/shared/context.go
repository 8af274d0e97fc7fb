package shared

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/access"
)

// Key type for context values
type ContextKey string

// Context keys for various values
const (
	// ActorContextKey is the context key for the authenticated access.Actor
	ActorContextKey ContextKey = "actor"

	// TraceIDKey is the key for the trace ID in the request context
	TraceIDKey ContextKey = "traceID"

	// TraceIDLength is the number of bytes used to generate the trace ID
	TraceIDLength = 16 // 32 hex characters
)

// traceIDPattern bounds what an upstream proxy may hand us as a trace ID.
var traceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// SetTraceID adds a freshly generated trace ID to the context.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, generateTraceID())
}

// WithTraceID stores id as the trace ID when it is well formed and generates
// a new one otherwise.
func WithTraceID(ctx context.Context, id string) context.Context {
	if !traceIDPattern.MatchString(id) {
		return SetTraceID(ctx)
	}
	return context.WithValue(ctx, TraceIDKey, id)
}

// GetTraceID retrieves the trace ID from the context.
// If no trace ID exists, it returns an empty string.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// WithActor stores the authenticated actor in ctx.
func WithActor(ctx context.Context, actor access.Actor) context.Context {
	return context.WithValue(ctx, ActorContextKey, actor)
}

// ActorFromContext returns the authenticated actor. The second result is
// false when no usable actor is present.
func ActorFromContext(ctx context.Context) (access.Actor, bool) {
	actor, ok := ctx.Value(ActorContextKey).(access.Actor)
	if !ok || actor.ID == uuid.Nil || !actor.Role.IsValid() {
		return access.Actor{}, false
	}
	return actor, true
}

// generateTraceID returns a random 32-character hex string. If the random
// source fails it falls back to a time-derived ID, never a static value.
func generateTraceID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		slog.Error("failed to generate random trace ID",
			"error", err,
			"fallback", "time-based generation")
		return generateFallbackTraceID()
	}
	return hex.EncodeToString(id[:])
}

func generateFallbackTraceID() string {
	b := make([]byte, TraceIDLength)
	now := time.Now()
	binary.BigEndian.PutUint64(b[:8], uint64(now.UnixNano()))
	binary.BigEndian.PutUint32(b[8:12], uint32(now.Nanosecond()))
	binary.BigEndian.PutUint32(b[12:16], uint32(now.Unix()))
	return hex.EncodeToString(b)
}
