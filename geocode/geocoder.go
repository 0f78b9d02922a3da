// Copyright 2026 The FriendMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocode resolves free-text place descriptions to coordinates.
//
// Backends implement the narrow Geocoder interface. Pacing and per-run
// caching are layered on top as Geocoder decorators, so the Mapper only ever
// sees a single Geocoder value.
package geocode

import (
	"context"

	"github.com/friendmap/friendmap/spatial"
)

// Result represents a geocoding result from any provider.
type Result struct {
	Point       spatial.Point
	Provider    string
	DisplayName string
}

// Geocoder resolves one place description.
//
// A nil Result with a nil error means the provider found no match. Errors
// are scoped to the single query and should be *ResolveError values.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*Result, error)
}

// GeocoderFunc adapts a function to the Geocoder interface.
type GeocoderFunc func(ctx context.Context, query string) (*Result, error)

// Geocode implements Geocoder.
func (f GeocoderFunc) Geocode(ctx context.Context, query string) (*Result, error) {
	return f(ctx, query)
}
