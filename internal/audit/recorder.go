// Package audit is the append-only log of mutating actions, keyed by store.
// The recorder is strictly best-effort: a failed write is logged server-side
// and never surfaces to the caller, so audit trouble can never abort the
// business operation that triggered it.
package audit

import (
	"context"
	"strings"
	"time"

	"daftari.app/internal/auth"
	"daftari.app/internal/obs"
)

// Entry is one immutable audit record. Snapshots are opaque structured blobs;
// the recorder does not interpret their shape.
type Entry struct {
	ID         string
	StoreID    string
	UserID     string
	Action     string
	EntityType string
	EntityID   string
	OldData    any
	NewData    any
	IPAddress  string
	OccurredAt time.Time
}

// Sink persists entries. Implementations must be safe for concurrent use.
type Sink interface {
	Append(ctx context.Context, entry *Entry) error
}

// Recorder writes audit entries through a Sink, fire and forget.
type Recorder struct {
	sink Sink
	now  func() time.Time
}

// Option configures Recorder behavior.
type Option func(*Recorder)

// WithClock overrides the time source. Useful for tests.
func WithClock(fn func() time.Time) Option {
	return func(r *Recorder) {
		if fn != nil {
			r.now = fn
		}
	}
}

func NewRecorder(sink Sink, opts ...Option) *Recorder {
	r := &Recorder{sink: sink, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends one entry for an action performed by identity. Write
// failures are swallowed after logging; there is nothing the caller could or
// should do about them.
func (r *Recorder) Record(ctx context.Context, identity auth.Identity, action, entityType, entityID string, oldData, newData any) {
	if r == nil || r.sink == nil {
		return
	}
	entry := &Entry{
		StoreID:    identity.StoreID,
		UserID:     identity.UserID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		OldData:    oldData,
		NewData:    newData,
		IPAddress:  clientIPFromContext(ctx),
		OccurredAt: r.now().UTC(),
	}
	if err := r.sink.Append(ctx, entry); err != nil {
		obs.LogError("audit append failed", map[string]any{
			"action":      action,
			"entity_type": entityType,
			"entity_id":   entityID,
			"store_id":    identity.StoreID,
			"error":       err.Error(),
		})
	}
}

type ctxKey string

const clientIPKey ctxKey = "audit_client_ip"

// WithClientIP attaches the request's source address to the context so
// entries recorded further down the call chain carry it.
func WithClientIP(ctx context.Context, ip string) context.Context {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey, ip)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(clientIPKey).(string); ok {
		return v
	}
	return ""
}
