package recorder

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"

	"vlan-traffic-simulator/internal/model"
)

const DefaultRedisKey = "vlan-sim:decisions"

type redisRecorderOptions struct {
	db       int
	username string
	password string
	key      string
	capacity int
}

type RedisRecorderOption func(opts *redisRecorderOptions)

func DBRedisRecorderOption(db int) RedisRecorderOption {
	return func(opts *redisRecorderOptions) {
		opts.db = db
	}
}

func UsernameRedisRecorderOption(username string) RedisRecorderOption {
	return func(opts *redisRecorderOptions) {
		opts.username = username
	}
}

func PasswordRedisRecorderOption(password string) RedisRecorderOption {
	return func(opts *redisRecorderOptions) {
		opts.password = password
	}
}

func KeyRedisRecorderOption(key string) RedisRecorderOption {
	return func(opts *redisRecorderOptions) {
		opts.key = key
	}
}

// CapacityRedisRecorderOption trims the list to the newest n entries. Zero
// keeps everything.
func CapacityRedisRecorderOption(n int) RedisRecorderOption {
	return func(opts *redisRecorderOptions) {
		opts.capacity = n
	}
}

type redisListRecorder struct {
	client   *redis.Client
	key      string
	capacity int
}

// RedisListRecorder records decisions as JSON onto a redis list, newest at
// the head.
func RedisListRecorder(addr string, opts ...RedisRecorderOption) Recorder {
	options := redisRecorderOptions{key: DefaultRedisKey}
	for _, opt := range opts {
		opt(&options)
	}

	return &redisListRecorder{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Username: options.username,
			Password: options.password,
			DB:       options.db,
		}),
		key:      options.key,
		capacity: options.capacity,
	}
}

func (r *redisListRecorder) Record(ctx context.Context, rec *model.DecisionRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, r.key, b)
	if r.capacity > 0 {
		pipe.LTrim(ctx, r.key, 0, int64(r.capacity-1))
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (r *redisListRecorder) Page(ctx context.Context, page, size int) ([]model.DecisionRecord, int64, error) {
	total, err := r.client.LLen(ctx, r.key).Result()
	if err != nil {
		return nil, 0, err
	}
	start, end := bounds(page, size, total)
	if start == end {
		return []model.DecisionRecord{}, total, nil
	}

	items, err := r.client.LRange(ctx, r.key, start, end-1).Result()
	if err != nil {
		return nil, 0, err
	}
	out := make([]model.DecisionRecord, 0, len(items))
	for _, item := range items {
		var rec model.DecisionRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, 0, fmt.Errorf("failed to decode decision in %s: %w", r.key, err)
		}
		out = append(out, rec)
	}
	return out, total, nil
}

func (r *redisListRecorder) Close() error {
	return r.client.Close()
}
