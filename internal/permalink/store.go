// Package permalink encodes the shareable viewer state (camera pose and
// visible layers with their opacities) to and from a flat key-value query.
package permalink

import (
	"net/url"
	"strings"
	"sync"
)

// Store is the key-value representation a permalink lives in.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// Query is a Store over URL query parameters. It is safe for concurrent use.
type Query struct {
	mu     sync.RWMutex
	values url.Values
}

// NewQuery returns an empty query.
func NewQuery() *Query {
	return &Query{values: url.Values{}}
}

// ParseQuery parses a raw query string; a leading '?' is ignored. Malformed
// pairs are dropped rather than reported.
func ParseQuery(raw string) *Query {
	values, _ := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if values == nil {
		values = url.Values{}
	}
	return &Query{values: values}
}

func (q *Query) Get(key string) (string, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	v, ok := q.values[key]
	if !ok || len(v) == 0 {
		return "", false
	}
	return v[0], true
}

func (q *Query) Set(key, value string) {
	q.mu.Lock()
	q.values.Set(key, value)
	q.mu.Unlock()
}

func (q *Query) Delete(key string) {
	q.mu.Lock()
	q.values.Del(key)
	q.mu.Unlock()
}

// String returns the canonical encoding, keys sorted, without leading '?'.
func (q *Query) String() string {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.values.Encode()
}

// Keys lists every key a permalink uses.
var Keys = []string{KeyLon, KeyLat, KeyElevation, KeyHeading, KeyPitch, KeyLayers, KeyOpacities}

// Copy replaces the permalink keys of dst with those of src. Keys absent
// from src are deleted from dst; other keys of dst are left alone.
func Copy(dst, src Store) {
	for _, k := range Keys {
		if v, ok := src.Get(k); ok {
			dst.Set(k, v)
		} else {
			dst.Delete(k)
		}
	}
}

// Format returns the canonical query encoding of the permalink keys of s.
func Format(s Store) string {
	values := url.Values{}
	for _, k := range Keys {
		if v, ok := s.Get(k); ok {
			values.Set(k, v)
		}
	}
	return values.Encode()
}
