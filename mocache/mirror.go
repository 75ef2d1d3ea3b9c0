package mocache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Mirror is a read-through copy of the SQL cache.
type Mirror interface {
	Put(ctx context.Context, e Entry) error
	Get(ctx context.Context, moNumber string) (*Entry, error) // nil, nil on miss
	Delete(ctx context.Context, moNumbers ...string) error
	Reset(ctx context.Context) error
}

type nopMirror struct{}

func (nopMirror) Put(context.Context, Entry) error { return nil }
func (nopMirror) Get(context.Context, string) (*Entry, error) { return nil, nil }
func (nopMirror) Delete(context.Context, ...string) error { return nil }
func (nopMirror) Reset(context.Context) error { return nil }

const (
	keyPrefix = "mosync:mo:"
	keySet    = "mosync:mo:keys"
)

// RedisMirror stores each entry as JSON under mosync:mo:<mo_number> and
// tracks the keys in the set mosync:mo:keys.
type RedisMirror struct {
	rdb *redis.Client
}

func NewRedisMirror(rdb *redis.Client) *RedisMirror {
	return &RedisMirror{rdb: rdb}
}

func (m *RedisMirror) Put(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	pipe := m.rdb.TxPipeline()
	pipe.Set(ctx, keyPrefix+e.MONumber, data, 0)
	pipe.SAdd(ctx, keySet, e.MONumber)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("redis put %s: %w", e.MONumber, err)
	}
	return nil
}

func (m *RedisMirror) Get(ctx context.Context, moNumber string) (*Entry, error) {
	data, err := m.rdb.Get(ctx, keyPrefix+moNumber).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (m *RedisMirror) Delete(ctx context.Context, moNumbers ...string) error {
	if len(moNumbers) == 0 {
		return nil
	}
	keys := make([]string, len(moNumbers))
	members := make([]any, len(moNumbers))
	for i, mo := range moNumbers {
		keys[i] = keyPrefix + mo
		members[i] = mo
	}
	pipe := m.rdb.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.SRem(ctx, keySet, members...)
	_, err := pipe.Exec(ctx)
	return err
}

// Reset removes every mirrored entry.
func (m *RedisMirror) Reset(ctx context.Context) error {
	members, err := m.rdb.SMembers(ctx, keySet).Result()
	if err != nil {
		return err
	}
	if err := m.Delete(ctx, members...); err != nil {
		return err
	}
	return m.rdb.Del(ctx, keySet).Err()
}
