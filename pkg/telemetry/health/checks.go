package health

import (
	"context"
	"fmt"

	breaker "github.com/igamenovoer/my-litellm-proxy/pkg/health"
)

// SnapshotSource reports per-deployment breaker state.
type SnapshotSource interface {
	Snapshot() []breaker.Snapshot
}

// Pinger is satisfied by *sql.DB and the audit store.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// DeploymentsCheck passes while at least one deployment can take traffic,
// that is one whose circuit is not open.
func DeploymentsCheck(src SnapshotSource) CheckFunc {
	return func(ctx context.Context) error {
		snaps := src.Snapshot()
		if len(snaps) == 0 {
			return fmt.Errorf("no deployments configured")
		}
		for _, s := range snaps {
			if s.State != breaker.StateOpen.String() {
				return nil
			}
		}
		return fmt.Errorf("all %d deployment(s) have an open circuit", len(snaps))
	}
}

// PingCheck passes while p answers a ping.
func PingCheck(p Pinger) CheckFunc {
	return p.PingContext
}
