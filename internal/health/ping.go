package health

import "context"

// HealthPinger is optionally implemented by dependencies to expose a
// specialized health probe. Returns nil when healthy.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}
