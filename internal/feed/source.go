// Package feed pulls indicator snapshots from the external indicator
// service, over plain HTTP for polled cycles and over a websocket for
// streaming updates.
package feed

import (
	"context"

	"github.com/equityrun/equityrun/internal/domain/snapshot"
)

// Source delivers the current snapshot batch for a set of symbols.
type Source interface {
	Fetch(ctx context.Context, symbols []string) (snapshot.Batch, error)
}
