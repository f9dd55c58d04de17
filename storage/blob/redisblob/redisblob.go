package redisblob

import (
	"context"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/acevedod1974/gradebook/core"
)

const keyPrefix = "gradebook:backup:"

// Store keeps backup blobs in Redis, one key per blob.
type Store struct {
	client *redis.Client
}

func New(conf *core.Config) *Store {
	return &Store{
		client: redis.NewClient(&redis.Options{
			Addr:     conf.Redis.Addr,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		}),
	}
}

// NewWithClient wraps an existing client; used by tests.
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Ping(ctx context.Context) error {
	return errors.Wrap(s.client.Ping(ctx).Err(), "pinging redis")
}

func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	// backups are kept until explicitly deleted; no expiry
	return errors.Wrapf(s.client.Set(ctx, keyPrefix+name, data, 0).Err(), "storing %s", name)
}

func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	data, err := s.client.Get(ctx, keyPrefix+name).Bytes()
	if err == redis.Nil {
		return nil, core.NewNotFoundError("backup")
	}
	return data, errors.Wrapf(err, "fetching %s", name)
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	keys, err := s.client.Keys(ctx, keyPrefix+"*").Result()
	if err != nil {
		return nil, errors.Wrap(err, "listing backups")
	}
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		names = append(names, strings.TrimPrefix(key, keyPrefix))
	}
	return names, nil
}
