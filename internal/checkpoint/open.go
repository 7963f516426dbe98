package checkpoint

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"
)

// OpenOptions carries backend settings that are not part of a location.
type OpenOptions struct {
	GCSClientOptions []option.ClientOption
	RedisPassword    string
	RedisDB          int
}

// Open resolves a checkpoint location to a store. Supported forms are
// a filesystem path (optionally file://), gs://bucket/object and
// redis://host:port/key. The returned close function releases any
// client the store owns.
func Open(ctx context.Context, location string, opts OpenOptions) (Store, func() error, error) {
	location = strings.TrimSpace(location)
	noop := func() error { return nil }
	if location == "" {
		return nil, noop, fmt.Errorf("checkpoint location is required")
	}

	scheme, rest, found := strings.Cut(location, "://")
	if !found {
		store, err := NewFileStore(location)
		return store, noop, err
	}

	switch scheme {
	case "file":
		store, err := NewFileStore(rest)
		return store, noop, err
	case "gs":
		bucket, object, _ := strings.Cut(rest, "/")
		client, err := storage.NewClient(ctx, opts.GCSClientOptions...)
		if err != nil {
			return nil, noop, fmt.Errorf("create storage client: %w", err)
		}
		store, err := NewGCSStore(client, bucket, object)
		if err != nil {
			_ = client.Close()
			return nil, noop, err
		}
		return store, client.Close, nil
	case "redis":
		u, err := url.Parse(location)
		if err != nil {
			return nil, noop, fmt.Errorf("parse redis location: %w", err)
		}
		key := strings.TrimPrefix(u.Path, "/")
		client := redis.NewClient(&redis.Options{
			Addr:     u.Host,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		store, err := NewRedisStore(client, u.Host, key)
		if err != nil {
			_ = client.Close()
			return nil, noop, err
		}
		return store, client.Close, nil
	default:
		return nil, noop, fmt.Errorf("unsupported checkpoint scheme %q", scheme)
	}
}
