// Package snapshot persists serialized simulation states so a world can be restored or replayed
// from any stored tick.
package snapshot

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/TheBitDrifter/rewind"
)

var (
	ErrSnapshotNotFound = eris.New("snapshot not found")
	ErrHashMismatch     = eris.New("restored state does not match the stored hash")
)

// Meta describes one stored state.
type Meta struct {
	World    uuid.UUID `json:"world"`
	Tick     uint64    `json:"tick"`
	Hash     uint64    `json:"hash"`
	Bytes    int       `json:"bytes"`
	Entities int       `json:"entities"`
	SavedAt  time.Time `json:"savedAt"`
}

// Store keeps serialized states keyed by world and tick.
type Store interface {
	// Save stores s under its world id and tick, replacing an earlier save of the same tick.
	Save(ctx context.Context, s *rewind.State) (Meta, error)
	// Load restores the state stored for tick into dst and verifies its hash.
	Load(ctx context.Context, world uuid.UUID, tick uint64, dst *rewind.State) (Meta, error)
	// Latest returns the meta of the newest stored tick.
	Latest(ctx context.Context, world uuid.UUID) (Meta, error)
	// Ticks lists the stored ticks in ascending order.
	Ticks(ctx context.Context, world uuid.UUID) ([]uint64, error)
	// Prune deletes all but the newest keep ticks and returns how many were deleted.
	Prune(ctx context.Context, world uuid.UUID, keep int) (int, error)
}

func newMeta(s *rewind.State, size int) Meta {
	return Meta{
		World:    s.WorldID(),
		Tick:     s.Tick(),
		Hash:     s.GetHash(),
		Bytes:    size,
		Entities: s.EntityCount(),
		SavedAt:  time.Now().UTC(),
	}
}
