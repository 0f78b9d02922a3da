// Copyright 2026 The FriendMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package mapper turns friend records into geocoded friends.
package mapper

import (
	"context"
	"errors"

	"github.com/friendmap/friendmap/geocode"
	"github.com/friendmap/friendmap/social"
	"github.com/friendmap/friendmap/spatial"
	"go.uber.org/zap"
)

// GeocodedFriend is a friend whose location resolved to a point.
type GeocodedFriend struct {
	Name  string        `json:"name"`
	Point spatial.Point `json:"point"`
}

// Metrics tracks the outcome of a Map call.
type Metrics struct {
	Resolved int `json:"resolved"`
	NoMatch  int `json:"no_match"`
	Failed   int `json:"failed"`
}

// Total number of records processed.
func (m Metrics) Total() int {
	return m.Resolved + m.NoMatch + m.Failed
}

// Dropped number of records that produced no GeocodedFriend.
func (m Metrics) Dropped() int {
	return m.NoMatch + m.Failed
}

// Merge combines two Metrics.
func (m *Metrics) Merge(o *Metrics) *Metrics {
	m.Resolved += o.Resolved
	m.NoMatch += o.NoMatch
	m.Failed += o.Failed

	return m
}

// Mapper drives a Geocoder over friend records, one at a time.
type Mapper struct {
	geocoder geocode.Geocoder
	logger   *zap.Logger

	// OnProgress, when set, is called after every record.
	OnProgress func()

	Metrics Metrics
}

// New creates a Mapper. The geocoder is expected to do its own pacing.
func New(g geocode.Geocoder, logger *zap.Logger) *Mapper {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Mapper{geocoder: g, logger: logger}
}

// Map resolves every record strictly in order and returns the ones that
// resolved, order preserved. Records with no match or a failed lookup are
// dropped; a failure never stops the loop. Calls are never issued
// concurrently, the geocoder's pacing depends on it.
//
// Cancellation of ctx only shortens the remaining lookups into failures; the
// caller is expected to abandon the run.
func (m *Mapper) Map(ctx context.Context, records []social.FriendRecord) []GeocodedFriend {
	var metrics Metrics

	friends := make([]GeocodedFriend, 0, len(records))
	n := len(records)

	for i, record := range records {
		res, err := m.geocoder.Geocode(ctx, record.Location)

		switch {
		case err != nil:
			metrics.Failed++

			fields := []zap.Field{
				zap.Int("index", i+1),
				zap.Int("total", n),
				zap.String("location", record.Location),
				zap.Error(err),
			}

			var resolveErr *geocode.ResolveError
			if errors.As(err, &resolveErr) {
				fields = append(fields, zap.Stringer("reason", resolveErr.Type))
			}

			m.logger.Debug("geocoding failed, dropping friend", fields...)
		case res == nil:
			metrics.NoMatch++

			m.logger.Debug("no match, dropping friend",
				zap.Int("index", i+1),
				zap.Int("total", n),
				zap.String("location", record.Location),
			)
		case res.Point.Validate() != nil:
			metrics.Failed++

			m.logger.Debug("geocoder returned an invalid point, dropping friend",
				zap.Int("index", i+1),
				zap.Int("total", n),
				zap.String("location", record.Location),
				zap.Stringer("point", res.Point),
			)
		default:
			metrics.Resolved++

			friends = append(friends, GeocodedFriend{Name: record.Name, Point: res.Point})
		}

		if m.OnProgress != nil {
			m.OnProgress()
		}
	}

	m.Metrics.Merge(&metrics)

	m.logger.Info("geocoding completed",
		zap.Int("records", n),
		zap.Int("resolved", metrics.Resolved),
		zap.Int("no_match", metrics.NoMatch),
		zap.Int("failed", metrics.Failed),
	)

	return friends
}
