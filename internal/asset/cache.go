package asset

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// Cached memoizes successful resolutions of another resolver. Concurrent
// resolutions of the same reference share one upstream call. Failures are
// not cached, so a failed reference can be retried.
type Cached struct {
	next  Resolver
	cache *expirable.LRU[string, Resource]
	group singleflight.Group
}

// NewCached wraps next with an LRU of size entries expiring after ttl.
func NewCached(next Resolver, size int, ttl time.Duration) *Cached {
	if size <= 0 {
		size = 128
	}
	return &Cached{
		next:  next,
		cache: expirable.NewLRU[string, Resource](size, nil, ttl),
	}
}

func (c *Cached) Resolve(ctx context.Context, ref string) (Resource, error) {
	if res, ok := c.cache.Get(ref); ok {
		return res, nil
	}
	v, err, _ := c.group.Do(ref, func() (any, error) {
		res, err := c.next.Resolve(ctx, ref)
		if err != nil {
			return Resource{}, err
		}
		c.cache.Add(ref, res)
		return res, nil
	})
	if err != nil {
		return Resource{}, err
	}
	return v.(Resource), nil
}

func (c *Cached) Fetch(ctx context.Context, res Resource) ([]byte, error) {
	return c.next.Fetch(ctx, res)
}

// Len returns the number of cached resolutions.
func (c *Cached) Len() int {
	return c.cache.Len()
}

// Chain tries resolvers in order, moving on while a resolver reports the
// reference as unknown or not its kind.
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context, ref string) (Resource, error) {
	err := error(ErrNotFound)
	for _, r := range c {
		var res Resource
		res, err = r.Resolve(ctx, ref)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrInvalidRef) {
			return Resource{}, err
		}
	}
	return Resource{}, err
}

func (c Chain) Fetch(ctx context.Context, res Resource) ([]byte, error) {
	err := error(ErrNotFound)
	for _, r := range c {
		var data []byte
		data, err = r.Fetch(ctx, res)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, ErrInvalidRef) {
			return nil, err
		}
	}
	return nil, err
}

var (
	_ Resolver = (*Cached)(nil)
	_ Resolver = Chain(nil)
)
