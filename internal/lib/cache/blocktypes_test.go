package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/deppfellow/spoon/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis implements the commands the cache uses over a map. Scripts are
// run as the compare-and-set the cache loads.
type fakeRedis struct {
	redis.Cmdable
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	n, _ := strconv.ParseInt(f.data[key], 10, 64)
	n++
	f.data[key] = strconv.FormatInt(n, 10)
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, key := range keys {
		if _, ok := f.data[key]; ok {
			delete(f.data, key)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) EvalSha(ctx context.Context, sha1 string, keys []string, args ...any) *redis.Cmd {
	return f.setIfGeneration(keys, args)
}

func (f *fakeRedis) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	return f.setIfGeneration(keys, args)
}

func (f *fakeRedis) setIfGeneration(keys []string, args []any) *redis.Cmd {
	gen, ok := f.data[keys[1]]
	if !ok {
		gen = "0"
	}
	if gen != args[0].(string) {
		return redis.NewCmdResult(int64(0), nil)
	}
	f.data[keys[0]] = string(args[1].([]byte))
	f.ttls[keys[0]] = time.Duration(args[2].(int64)) * time.Millisecond
	return redis.NewCmdResult(int64(1), nil)
}

func TestKeys(t *testing.T) {
	scope := model.Scope{Context: "field-5", FieldID: 5}
	assert.Equal(t, "spoon:block_types:field-5:5", Key(scope))
	assert.Equal(t, "spoon:block_types:gen:field-5:5", GenerationKey(scope))
}

func TestBlockTypeCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	c := NewBlockTypeCache(client, time.Minute)
	scope := model.Scope{Context: "global", FieldID: 2}

	_, ok, err := c.Get(ctx, scope)
	require.NoError(t, err)
	assert.False(t, ok)

	gen, err := c.Generation(ctx, scope)
	require.NoError(t, err)
	assert.Zero(t, gen)

	groups := []model.BlockTypeGroup{
		{Name: "groupB Name", BlockTypes: []model.BlockType{{ID: 1, MatrixBlockTypeID: 12}}},
		{Name: "groupA", BlockTypes: []model.BlockType{{ID: 2, MatrixBlockTypeID: 10}}},
	}
	stored, err := c.Set(ctx, scope, gen, groups)
	require.NoError(t, err)
	assert.True(t, stored)
	assert.Equal(t, time.Minute, client.ttls[Key(scope)])

	cached, ok, err := c.Get(ctx, scope)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, cached, 2)
	assert.Equal(t, "groupB Name", cached[0].Name)
	assert.Equal(t, int64(10), cached[1].BlockTypes[0].MatrixBlockTypeID)

	require.NoError(t, c.Invalidate(ctx, scope))
	_, ok, err = c.Get(ctx, scope)
	require.NoError(t, err)
	assert.False(t, ok)

	gen, err = c.Generation(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
}

func TestBlockTypeCacheSetAfterInvalidateIsDropped(t *testing.T) {
	ctx := context.Background()
	c := NewBlockTypeCache(newFakeRedis(), time.Minute)
	scope := model.Scope{Context: "global", FieldID: 2}

	gen, err := c.Generation(ctx, scope)
	require.NoError(t, err)

	// A write lands between reading the rows and caching them.
	require.NoError(t, c.Invalidate(ctx, scope))

	stored, err := c.Set(ctx, scope, gen, []model.BlockTypeGroup{{Name: "old"}})
	require.NoError(t, err)
	assert.False(t, stored)

	_, ok, err := c.Get(ctx, scope)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBlockTypeCacheCorruptEntry(t *testing.T) {
	client := newFakeRedis()
	scope := model.Scope{Context: "global", FieldID: 2}
	client.data[Key(scope)] = "{not json"

	_, ok, err := NewBlockTypeCache(client, time.Minute).Get(context.Background(), scope)

	assert.Error(t, err)
	assert.False(t, ok)
}
