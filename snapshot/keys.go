package snapshot

import (
	"fmt"

	"github.com/google/uuid"
)

// redisStateKey maps a world and a tick to the serialized state buffer.
func redisStateKey(prefix string, world uuid.UUID, tick uint64) string {
	return fmt.Sprintf("%s:STATE:WORLD-%s:TICK-%d", prefix, world, tick)
}

// redisMetaKey maps a world and a tick to the JSON encoded Meta of the stored state.
func redisMetaKey(prefix string, world uuid.UUID, tick uint64) string {
	return fmt.Sprintf("%s:META:WORLD-%s:TICK-%d", prefix, world, tick)
}

// redisTickIndexKey is the sorted set of stored ticks of a world, scored by tick.
func redisTickIndexKey(prefix string, world uuid.UUID) string {
	return fmt.Sprintf("%s:TICKS:WORLD-%s", prefix, world)
}
