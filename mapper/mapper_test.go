// Copyright 2026 The FriendMap Authors
// SPDX-License-Identifier: Apache-2.0

package mapper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/friendmap/friendmap/geocode"
	"github.com/friendmap/friendmap/social"
	"github.com/friendmap/friendmap/spatial"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// fakeGeocoder answers from a fixed table; entries missing from both tables
// are no-matches.
type fakeGeocoder struct {
	points   map[string]spatial.Point
	failures map[string]error
	queries  []string

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (f *fakeGeocoder) Geocode(_ context.Context, query string) (*geocode.Result, error) {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)

	if cur > f.maxInFlight.Load() {
		f.maxInFlight.Store(cur)
	}

	f.queries = append(f.queries, query)

	if err, ok := f.failures[query]; ok {
		return nil, err
	}

	if p, ok := f.points[query]; ok {
		return &geocode.Result{Point: p, Provider: "fake"}, nil
	}

	return nil, nil
}

func records(locations ...string) []social.FriendRecord {
	out := make([]social.FriendRecord, 0, len(locations))
	for i, loc := range locations {
		out = append(out, social.FriendRecord{Name: string(rune('A' + i)), Location: loc})
	}

	return out
}

func TestMap(t *testing.T) {
	g := &fakeGeocoder{
		points: map[string]spatial.Point{
			"London": {Lat: 51.5, Lng: -0.1},
			"Paris":  {Lat: 48.8, Lng: 2.3},
			"Lviv":   {Lat: 49.84, Lng: 24.03},
		},
	}

	m := New(g, nil)
	got := m.Map(context.Background(), records("London", "Narnia", "Paris", "Lviv"))

	expected := []GeocodedFriend{
		{Name: "A", Point: spatial.Point{Lat: 51.5, Lng: -0.1}},
		{Name: "C", Point: spatial.Point{Lat: 48.8, Lng: 2.3}},
		{Name: "D", Point: spatial.Point{Lat: 49.84, Lng: 24.03}},
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("Map() mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []string{"London", "Narnia", "Paris", "Lviv"}, g.queries)
	assert.Equal(t, Metrics{Resolved: 3, NoMatch: 1}, m.Metrics)
}

func TestMapFailureDoesNotBlockLaterItems(t *testing.T) {
	for k := range 4 {
		t.Run(string(rune('A'+k)), func(t *testing.T) {
			locations := []string{"L0", "L1", "L2", "L3"}
			g := &fakeGeocoder{
				points: map[string]spatial.Point{
					"L0": {Lat: 0, Lng: 0},
					"L1": {Lat: 1, Lng: 1},
					"L2": {Lat: 2, Lng: 2},
					"L3": {Lat: 3, Lng: 3},
				},
				failures: map[string]error{
					locations[k]: &geocode.ResolveError{Type: geocode.ErrorTypeTimeout, Query: locations[k], Message: "request timed out"},
				},
			}

			m := New(g, nil)
			got := m.Map(context.Background(), records(locations...))

			require.Len(t, got, 3)
			assert.Equal(t, locations, g.queries, "every item must be attempted")

			for _, f := range got {
				assert.NotEqual(t, string(rune('A'+k)), f.Name)
			}

			assert.Equal(t, Metrics{Resolved: 3, Failed: 1}, m.Metrics)
		})
	}
}

func TestMapKeepsOrderAndCardinality(t *testing.T) {
	points := map[string]spatial.Point{}
	locations := make([]string, 0, 30)

	for i := range 30 {
		loc := "city-" + string(rune('a'+i%26)) + string(rune('0'+i/26))
		locations = append(locations, loc)

		if i%3 != 0 {
			points[loc] = spatial.Point{Lat: float64(i), Lng: float64(-i)}
		}
	}

	g := &fakeGeocoder{
		points:   points,
		failures: map[string]error{locations[4]: errors.New("boom")},
	}

	recs := records(locations...)
	got := New(g, nil).Map(context.Background(), recs)

	// 20 resolvable entries, one of which fails
	require.Len(t, got, 19)

	last := -1
	for _, f := range got {
		idx := int(f.Point.Lat)
		assert.Greater(t, idx, last, "order must follow the input")
		assert.Equal(t, recs[idx].Name, f.Name)
		last = idx
	}

	assert.EqualValues(t, 1, g.maxInFlight.Load(), "lookups must be sequential")
}

func TestMapDropsInvalidPoints(t *testing.T) {
	g := &fakeGeocoder{
		points: map[string]spatial.Point{
			"Bad":  {Lat: 120, Lng: 0},
			"Good": {Lat: 10, Lng: 10},
		},
	}

	m := New(g, nil)
	got := m.Map(context.Background(), records("Bad", "Good"))

	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].Name)
	assert.Equal(t, 1, m.Metrics.Failed)
}

func TestMapEmpty(t *testing.T) {
	var progress int

	m := New(&fakeGeocoder{}, nil)
	m.OnProgress = func() { progress++ }

	got := m.Map(context.Background(), nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, progress)
	assert.Zero(t, m.Metrics.Total())
}

func TestMapProgressAndLogging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	g := &fakeGeocoder{
		points:   map[string]spatial.Point{"Paris": {Lat: 48.8, Lng: 2.3}},
		failures: map[string]error{"Kyiv": &geocode.ResolveError{Type: geocode.ErrorTypeRateLimit, Message: "rate limit reached"}},
	}

	var progress int

	m := New(g, zap.New(core))
	m.OnProgress = func() { progress++ }

	m.Map(context.Background(), records("Paris", "Kyiv", "Narnia"))

	assert.Equal(t, 3, progress)
	assert.Equal(t, 1, logs.FilterMessage("geocoding failed, dropping friend").Len())
	assert.Equal(t, 1, logs.FilterMessage("no match, dropping friend").Len())

	summary := logs.FilterMessage("geocoding completed").All()
	require.Len(t, summary, 1)
	assert.EqualValues(t, 1, summary[0].ContextMap()["resolved"])
	assert.EqualValues(t, 3, summary[0].ContextMap()["records"])

	failed := logs.FilterMessage("geocoding failed, dropping friend").All()[0]
	assert.Equal(t, "rate_limit", failed.ContextMap()["reason"])
}

func TestMapWithPacedGeocoder(t *testing.T) {
	const delay = 15 * time.Millisecond

	g := &fakeGeocoder{points: map[string]spatial.Point{"Paris": {Lat: 48.8, Lng: 2.3}}}
	paced := geocode.NewPacedGeocoder(g, geocode.NewPacer(delay))

	begin := time.Now()
	got := New(paced, nil).Map(context.Background(), records("Paris", "Paris", "Paris"))

	assert.Len(t, got, 3)
	assert.GreaterOrEqual(t, time.Since(begin), 2*delay)
}

func TestMetrics(t *testing.T) {
	m := Metrics{Resolved: 2, NoMatch: 1}
	m.Merge(&Metrics{Resolved: 1, Failed: 3})

	assert.Equal(t, Metrics{Resolved: 3, NoMatch: 1, Failed: 3}, m)
	assert.Equal(t, 7, m.Total())
	assert.Equal(t, 4, m.Dropped())
}
