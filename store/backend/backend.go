// Package backend opens a checkpoint store from a DSN.
package backend

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/codex-mohan/autonix/store"
	"github.com/codex-mohan/autonix/store/file"
	"github.com/codex-mohan/autonix/store/memory"
	"github.com/codex-mohan/autonix/store/postgres"
	"github.com/codex-mohan/autonix/store/redis"
	"github.com/codex-mohan/autonix/store/sqlite"
)

// CloseFunc releases the resources of an opened store.
type CloseFunc func() error

func noClose() error { return nil }

// Open returns the store selected by the DSN scheme:
//
//	memory://                       in-process
//	file:///var/lib/autonix         one JSON file per thread
//	sqlite:///var/lib/autonix.db    SQLite
//	postgres://user:pw@host/db      PostgreSQL, schema created on open
//	redis://host:6379/0?ttl=24h     Redis, optional prefix and ttl query parameters
//
// An empty DSN selects memory.
func Open(ctx context.Context, dsn string) (store.CheckpointStore, CloseFunc, error) {
	if dsn == "" {
		return memory.New(), noClose, nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid checkpoint dsn: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "memory":
		return memory.New(), noClose, nil

	case "file":
		s, err := file.New(pathOf(u))
		if err != nil {
			return nil, nil, err
		}
		return s, noClose, nil

	case "sqlite", "sqlite3":
		s, err := sqlite.Open(pathOf(u), sqlite.WithTable(u.Query().Get("table")))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case "postgres", "postgresql":
		s, err := postgres.New(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := s.InitSchema(ctx); err != nil {
			s.Close()
			return nil, nil, err
		}
		return s, func() error { s.Close(); return nil }, nil

	case "redis", "rediss":
		q := u.Query()
		var ttl time.Duration
		if v := q.Get("ttl"); v != "" {
			if ttl, err = time.ParseDuration(v); err != nil {
				return nil, nil, fmt.Errorf("invalid redis ttl: %w", err)
			}
		}
		prefix := q.Get("prefix")
		q.Del("ttl")
		q.Del("prefix")
		u.RawQuery = q.Encode()

		opts, err := goredis.ParseURL(u.String())
		if err != nil {
			return nil, nil, fmt.Errorf("invalid redis dsn: %w", err)
		}
		s := redis.New(goredis.NewClient(opts), redis.WithPrefix(prefix), redis.WithTTL(ttl))
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unsupported checkpoint store scheme %q", u.Scheme)
}

// pathOf accepts both "scheme:///abs/path" and "scheme://relative/path".
func pathOf(u *url.URL) string {
	if u.Opaque != "" {
		return u.Opaque
	}
	return u.Host + u.Path
}
