// Package storage persists session snapshots. One logical save slot
// exists per session; the adapter only ever exchanges serialized
// snapshots and never holds live session state.
package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/storyweave/adventure/pkg/state"
)

// SaveStore defines the persistence contract for session snapshots.
// Load returns (nil, nil) when no save exists; a corrupt save is
// cleared and reported the same way.
type SaveStore interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error
	WaitForConnection(ctx context.Context) error

	SaveSnapshot(ctx context.Context, id uuid.UUID, snap *state.Snapshot) error
	LoadSnapshot(ctx context.Context, id uuid.UUID) (*state.Snapshot, error)
	DeleteSnapshot(ctx context.Context, id uuid.UUID) error
}
