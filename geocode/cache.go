// Copyright 2026 The FriendMap Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"sync"

	"github.com/friendmap/friendmap/utils/textutils"
)

// CachingGeocoder memoizes answers for the lifetime of one run.
//
// Queries are keyed by textutils.LocationKey, so "São Paulo" and
// "  SÃO paulo" share an entry while "Sao Paulo" does not. Matches and misses are cached; errors are not, so a
// transient failure can be retried by a later record with the same text.
type CachingGeocoder struct {
	geocoder Geocoder

	mu      sync.Mutex
	entries map[string]*Result
	hits    int
}

// NewCachingGeocoder wraps g.
func NewCachingGeocoder(g Geocoder) *CachingGeocoder {
	return &CachingGeocoder{
		geocoder: g,
		entries:  make(map[string]*Result),
	}
}

// Geocode implements Geocoder.
func (c *CachingGeocoder) Geocode(ctx context.Context, query string) (*Result, error) {
	key := textutils.LocationKey(query)

	c.mu.Lock()
	if res, ok := c.entries[key]; ok {
		c.hits++
		c.mu.Unlock()

		return copyResult(res), nil
	}
	c.mu.Unlock()

	res, err := c.geocoder.Geocode(ctx, query)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = copyResult(res)
	c.mu.Unlock()

	return res, nil
}

// Hits returns how many queries were answered from the cache.
func (c *CachingGeocoder) Hits() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.hits
}

func copyResult(r *Result) *Result {
	if r == nil {
		return nil
	}

	cp := *r

	return &cp
}
