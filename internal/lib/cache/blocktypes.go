// Package cache keeps the grouped block types of a scope in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/deppfellow/spoon/internal/model"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "spoon:block_types"
	genPrefix = "spoon:block_types:gen"
)

// setIfGeneration writes KEYS[1] only while the generation counter in KEYS[2]
// still reads ARGV[1]. A missing counter reads as "0".
var setIfGeneration = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// BlockTypeCache stores ListBlockTypes results per scope.
//
// Every scope has a generation counter that Invalidate bumps. A listing read
// from the store is only cached if the generation it was read under is still
// current, so a listing that raced a write never overwrites the invalidation.
type BlockTypeCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewBlockTypeCache(client redis.Cmdable, ttl time.Duration) *BlockTypeCache {
	return &BlockTypeCache{client: client, ttl: ttl}
}

// Key is the Redis key holding scope's groups.
func Key(scope model.Scope) string {
	return fmt.Sprintf("%s:%s:%d", keyPrefix, scope.Context, scope.FieldID)
}

// GenerationKey is the Redis key holding scope's generation counter.
func GenerationKey(scope model.Scope) string {
	return fmt.Sprintf("%s:%s:%d", genPrefix, scope.Context, scope.FieldID)
}

// Get returns the cached groups of scope. ok is false on a miss.
func (c *BlockTypeCache) Get(ctx context.Context, scope model.Scope) (groups []model.BlockTypeGroup, ok bool, err error) {
	raw, err := c.client.Get(ctx, Key(scope)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", scope, err)
	}

	if err := json.Unmarshal(raw, &groups); err != nil {
		return nil, false, fmt.Errorf("cache decode %s: %w", scope, err)
	}
	return groups, true, nil
}

// Generation returns scope's current generation. Read it before loading the
// rows that will be passed to Set.
func (c *BlockTypeCache) Generation(ctx context.Context, scope model.Scope) (int64, error) {
	gen, err := c.client.Get(ctx, GenerationKey(scope)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache generation %s: %w", scope, err)
	}
	return gen, nil
}

// Set caches groups unless scope was invalidated after gen was read. stored
// reports whether the entry was written.
func (c *BlockTypeCache) Set(ctx context.Context, scope model.Scope, gen int64, groups []model.BlockTypeGroup) (stored bool, err error) {
	raw, err := json.Marshal(groups)
	if err != nil {
		return false, fmt.Errorf("cache encode %s: %w", scope, err)
	}

	n, err := setIfGeneration.Run(ctx, c.client,
		[]string{Key(scope), GenerationKey(scope)},
		strconv.FormatInt(gen, 10), raw, c.ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("cache set %s: %w", scope, err)
	}
	return n == 1, nil
}

// Invalidate drops scope's entry. Called after every write to the scope.
//
// The generation is bumped before the delete: a concurrent Set that read the
// old generation either fails its compare or lands before the delete.
func (c *BlockTypeCache) Invalidate(ctx context.Context, scope model.Scope) error {
	if err := c.client.Incr(ctx, GenerationKey(scope)).Err(); err != nil {
		return fmt.Errorf("cache invalidate %s: %w", scope, err)
	}
	if err := c.client.Del(ctx, Key(scope)).Err(); err != nil {
		return fmt.Errorf("cache invalidate %s: %w", scope, err)
	}
	return nil
}
