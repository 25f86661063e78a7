package extension

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/justapithecus/panelrt/value"
)

// KVExtension exposes a Redis-backed key-value store as ext:kv.
// Adapted from adapter/redis/redis.go's client construction and
// connection-option plumbing, but reshaped from that adapter's
// fire-and-forget pub/sub contract into a request/response contract:
// a handler suspending on ext:kv needs the value back, not just a
// delivery acknowledgement.
type KVExtension struct {
	client *goredis.Client
}

// NewKVExtension builds a KVExtension from a Redis connection URL
// (format: redis://[:password@]host:port[/db]).
func NewKVExtension(url string) (*KVExtension, error) {
	if url == "" {
		return nil, errors.New("ext:kv requires a Redis URL")
	}
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("ext:kv: invalid URL: %w", err)
	}
	return &KVExtension{client: goredis.NewClient(opts)}, nil
}

// Methods implements Extension.
func (k *KVExtension) Methods() []string {
	return []string{"get", "set", "incr"}
}

// Call implements Extension. Arguments are positional: get(key),
// set(key, value), incr(key).
func (k *KVExtension) Call(ctx context.Context, method string, args []value.Value) (value.Value, error) {
	switch method {
	case "get":
		return k.get(ctx, args)
	case "set":
		return k.set(ctx, args)
	case "incr":
		return k.incr(ctx, args)
	default:
		return value.Null, fmt.Errorf("%w: kv.%s", ErrMethodNotFound, method)
	}
}

func (k *KVExtension) get(ctx context.Context, args []value.Value) (value.Value, error) {
	key, err := requireStringArg(args, 0, "kv.get")
	if err != nil {
		return value.Null, err
	}
	result, err := k.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return value.Null, nil
	}
	if err != nil {
		return value.Null, fmt.Errorf("ext:kv get: %w", err)
	}
	return value.String(result), nil
}

func (k *KVExtension) set(ctx context.Context, args []value.Value) (value.Value, error) {
	key, err := requireStringArg(args, 0, "kv.set")
	if err != nil {
		return value.Null, err
	}
	if len(args) < 2 {
		return value.Null, fmt.Errorf("ext:kv set requires a value argument")
	}
	if err := k.client.Set(ctx, key, args[1].GoValue(), 0).Err(); err != nil {
		return value.Null, fmt.Errorf("ext:kv set: %w", err)
	}
	return value.Bool(true), nil
}

func (k *KVExtension) incr(ctx context.Context, args []value.Value) (value.Value, error) {
	key, err := requireStringArg(args, 0, "kv.incr")
	if err != nil {
		return value.Null, err
	}
	n, err := k.client.Incr(ctx, key).Result()
	if err != nil {
		return value.Null, fmt.Errorf("ext:kv incr: %w", err)
	}
	return value.Number(float64(n)), nil
}

// Close releases the underlying Redis client.
func (k *KVExtension) Close() error {
	return k.client.Close()
}

func requireStringArg(args []value.Value, idx int, op string) (string, error) {
	if idx >= len(args) {
		return "", fmt.Errorf("ext:%s requires a key argument", op)
	}
	s, ok := args[idx].AsString()
	if !ok {
		return "", fmt.Errorf("ext:%s key argument must be a string", op)
	}
	return s, nil
}
