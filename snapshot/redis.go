package snapshot

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/TheBitDrifter/rewind"
)

const defaultPrefix = "REWIND"

var _ Store = &RedisStore{}

// RedisStore keeps snapshots in Redis: one key for the buffer and one for its meta per tick, and
// a sorted set indexing the ticks of each world.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	log    zerolog.Logger
}

type Option func(*RedisStore)

// WithKeyPrefix namespaces every key. The default is "REWIND".
func WithKeyPrefix(prefix string) Option {
	return func(r *RedisStore) {
		r.prefix = prefix
	}
}

// WithTTL expires stored buffers after ttl. The tick index itself never expires, so Load of an
// expired tick reports ErrSnapshotNotFound.
func WithTTL(ttl time.Duration) Option {
	return func(r *RedisStore) {
		r.ttl = ttl
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(r *RedisStore) {
		r.log = log
	}
}

func NewRedisStore(client redis.Cmdable, opts ...Option) *RedisStore {
	r := &RedisStore{
		client: client,
		prefix: defaultPrefix,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisStore) Save(ctx context.Context, s *rewind.State) (Meta, error) {
	data, err := s.Serialize()
	if err != nil {
		return Meta{}, eris.Wrap(err, "failed to serialize state")
	}
	meta := newMeta(s, len(data))
	bz, err := json.Marshal(meta)
	if err != nil {
		return Meta{}, eris.Wrap(err, "failed to encode snapshot meta")
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, redisStateKey(r.prefix, meta.World, meta.Tick), data, r.ttl)
	pipe.Set(ctx, redisMetaKey(r.prefix, meta.World, meta.Tick), bz, r.ttl)
	pipe.ZAdd(ctx, redisTickIndexKey(r.prefix, meta.World), redis.Z{
		Score:  float64(meta.Tick),
		Member: strconv.FormatUint(meta.Tick, 10),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return Meta{}, eris.Wrapf(err, "failed to save tick %d", meta.Tick)
	}

	r.log.Debug().
		Str("world", meta.World.String()).
		Uint64("tick", meta.Tick).
		Int("bytes", meta.Bytes).
		Msg("snapshot saved")
	return meta, nil
}

func (r *RedisStore) Load(ctx context.Context, world uuid.UUID, tick uint64, dst *rewind.State) (Meta, error) {
	meta, err := r.meta(ctx, world, tick)
	if err != nil {
		return Meta{}, err
	}
	data, err := r.client.Get(ctx, redisStateKey(r.prefix, world, tick)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Meta{}, eris.Wrapf(ErrSnapshotNotFound, "tick %d", tick)
	}
	if err != nil {
		return Meta{}, eris.Wrapf(err, "failed to read tick %d", tick)
	}
	if err := dst.Deserialize(data); err != nil {
		return Meta{}, eris.Wrapf(err, "failed to restore tick %d", tick)
	}
	if got := dst.GetHash(); got != meta.Hash {
		return Meta{}, eris.Wrapf(ErrHashMismatch, "tick %d: stored %x, restored %x", tick, meta.Hash, got)
	}

	r.log.Debug().
		Str("world", world.String()).
		Uint64("tick", tick).
		Msg("snapshot loaded")
	return meta, nil
}

func (r *RedisStore) meta(ctx context.Context, world uuid.UUID, tick uint64) (Meta, error) {
	bz, err := r.client.Get(ctx, redisMetaKey(r.prefix, world, tick)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Meta{}, eris.Wrapf(ErrSnapshotNotFound, "tick %d", tick)
	}
	if err != nil {
		return Meta{}, eris.Wrapf(err, "failed to read meta of tick %d", tick)
	}
	var meta Meta
	if err := json.Unmarshal(bz, &meta); err != nil {
		return Meta{}, eris.Wrapf(err, "failed to decode meta of tick %d", tick)
	}
	return meta, nil
}

func (r *RedisStore) Latest(ctx context.Context, world uuid.UUID) (Meta, error) {
	newest, err := r.client.ZRevRange(ctx, redisTickIndexKey(r.prefix, world), 0, 0).Result()
	if err != nil {
		return Meta{}, eris.Wrap(err, "failed to read tick index")
	}
	if len(newest) == 0 {
		return Meta{}, eris.Wrapf(ErrSnapshotNotFound, "world %s has no snapshots", world)
	}
	tick, err := strconv.ParseUint(newest[0], 10, 64)
	if err != nil {
		return Meta{}, eris.Wrapf(err, "invalid tick index member %q", newest[0])
	}
	return r.meta(ctx, world, tick)
}

func (r *RedisStore) Ticks(ctx context.Context, world uuid.UUID) ([]uint64, error) {
	members, err := r.client.ZRange(ctx, redisTickIndexKey(r.prefix, world), 0, -1).Result()
	if err != nil {
		return nil, eris.Wrap(err, "failed to read tick index")
	}
	return parseTicks(members)
}

func (r *RedisStore) Prune(ctx context.Context, world uuid.UUID, keep int) (int, error) {
	keep = max(keep, 0)
	index := redisTickIndexKey(r.prefix, world)
	members, err := r.client.ZRange(ctx, index, 0, int64(-keep-1)).Result()
	if err != nil {
		return 0, eris.Wrap(err, "failed to read tick index")
	}
	if len(members) == 0 {
		return 0, nil
	}
	ticks, err := parseTicks(members)
	if err != nil {
		return 0, err
	}

	keys := make([]string, 0, 2*len(ticks))
	for _, tick := range ticks {
		keys = append(keys, redisStateKey(r.prefix, world, tick), redisMetaKey(r.prefix, world, tick))
	}
	removed := make([]interface{}, len(members))
	for i, m := range members {
		removed[i] = m
	}
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.ZRem(ctx, index, removed...)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, eris.Wrap(err, "failed to prune snapshots")
	}

	r.log.Debug().
		Str("world", world.String()).
		Int("pruned", len(ticks)).
		Int("kept", keep).
		Msg("snapshots pruned")
	return len(ticks), nil
}

func parseTicks(members []string) ([]uint64, error) {
	ticks := make([]uint64, len(members))
	for i, m := range members {
		tick, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid tick index member %q", m)
		}
		ticks[i] = tick
	}
	return ticks, nil
}
