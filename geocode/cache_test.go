// Copyright 2026 The FriendMap Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"testing"

	"github.com/friendmap/friendmap/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachingGeocoder(t *testing.T) {
	var queries []string

	backend := GeocoderFunc(func(_ context.Context, query string) (*Result, error) {
		queries = append(queries, query)

		switch query {
		case "São Paulo":
			return &Result{Point: spatial.Point{Lat: -23.55, Lng: -46.63}}, nil
		case "Nowhere":
			return nil, nil
		default:
			return nil, &ResolveError{Type: ErrorTypeNetworkError, Query: query, Message: "request failed"}
		}
	})

	c := NewCachingGeocoder(backend)
	ctx := context.Background()

	res, err := c.Geocode(ctx, "São Paulo")
	require.NoError(t, err)
	require.NotNil(t, res)

	res2, err := c.Geocode(ctx, "  são paulo ")
	require.NoError(t, err)
	require.NotNil(t, res2)
	assert.Equal(t, res.Point, res2.Point)

	// callers get their own copy
	res2.Point.Lat = 0
	res3, err := c.Geocode(ctx, "SÃO PAULO")
	require.NoError(t, err)
	assert.InDelta(t, -23.55, res3.Point.Lat, 1e-9)

	miss, err := c.Geocode(ctx, "Nowhere")
	require.NoError(t, err)
	assert.Nil(t, miss)

	miss, err = c.Geocode(ctx, "nowhere")
	require.NoError(t, err)
	assert.Nil(t, miss)

	// errors are not cached
	_, err = c.Geocode(ctx, "Atlantis")
	require.Error(t, err)
	_, err = c.Geocode(ctx, "Atlantis")

	var resolveErr *ResolveError
	require.True(t, errors.As(err, &resolveErr))

	assert.Equal(t, []string{"São Paulo", "Nowhere", "Atlantis", "Atlantis"}, queries)
	assert.Equal(t, 3, c.Hits())
}

func TestCachingGeocoderKeepsMarks(t *testing.T) {
	points := map[string]spatial.Point{
		"ガザ":        {Lat: 31.5, Lng: 34.47},
		"カサ":        {Lat: 35.68, Lng: 139.69},
		"São Paulo": {Lat: -23.55, Lng: -46.63},
		"Sao Paulo": {Lat: -23.5, Lng: -46.6},
	}

	var queries []string

	c := NewCachingGeocoder(GeocoderFunc(func(_ context.Context, query string) (*Result, error) {
		queries = append(queries, query)
		p := points[query]

		return &Result{Point: p}, nil
	}))

	for _, q := range []string{"ガザ", "カサ", "São Paulo", "Sao Paulo"} {
		res, err := c.Geocode(context.Background(), q)
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Equal(t, points[q], res.Point, q)
	}

	assert.Equal(t, []string{"ガザ", "カサ", "São Paulo", "Sao Paulo"}, queries)
	assert.Zero(t, c.Hits())
}
