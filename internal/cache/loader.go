package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/park285/chesswatch/internal/obslog"
)

// Observer receives one call per lookup.
type Observer interface {
	ObserveCache(kind string, hit bool)
}

// Loader is a read-through JSON cache in front of a Store. Concurrent misses
// for the same key share one fetch.
type Loader struct {
	store Store
	group singleflight.Group
	obs   Observer
	log   *zap.Logger
}

func NewLoader(store Store, obs Observer) *Loader {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Loader{store: store, obs: obs, log: obslog.Named("cache")}
}

func (l *Loader) observe(kind string, hit bool) {
	if l.obs != nil {
		l.obs.ObserveCache(kind, hit)
	}
}

// Load returns the cached value for key or calls fetch and stores the result
// for ttl. Store failures degrade to a direct fetch. A ttl <= 0 bypasses the
// cache entirely.
func Load[T any](ctx context.Context, l *Loader, kind, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	if ttl <= 0 {
		return fetch(ctx)
	}

	if raw, ok, err := l.store.Get(ctx, key); err != nil {
		l.log.Warn("cache_get_failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			l.observe(kind, true)
			return v, nil
		}
		l.log.Warn("cache_decode_failed", zap.String("key", key))
	}
	l.observe(kind, false)

	ch := l.group.DoChan(key, func() (any, error) {
		// Detached so one cancelled caller does not fail the others.
		fctx := context.WithoutCancel(ctx)
		v, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(v); err == nil {
			if err := l.store.Set(fctx, key, raw, ttl); err != nil {
				l.log.Warn("cache_set_failed", zap.String("key", key), zap.Error(err))
			}
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
