package sessionbridge

import "context"

// Repository persists the per-visitor bridge records that survive redirects.
// Values are opaque byte payloads; callers marshal the typed records from
// records.go.
type Repository interface {
	Get(ctx context.Context, sid, key string) ([]byte, bool, error)
	Set(ctx context.Context, sid, key string, value []byte) error
	Delete(ctx context.Context, sid, key string) error
	// DeleteAll drops every record for sid, used on logout.
	DeleteAll(ctx context.Context, sid string) error
}
