// Copyright 2026 The FriendMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package pipeline is the entry point collaborators call: fetch a friend
// list, geocode it, and build the map.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/friendmap/friendmap/geocode"
	"github.com/friendmap/friendmap/leaflet"
	"github.com/friendmap/friendmap/mapper"
	"github.com/friendmap/friendmap/social"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Fetcher retrieves the friend records of a handle.
type Fetcher interface {
	Friends(ctx context.Context, credential, handle string, count int) ([]social.FriendRecord, error)
}

// Progress receives geocoding progress of a run.
type Progress interface {
	Start(total int)
	Advance()
	Finish()
}

// Options configuration for Pipeline.
type Options struct {
	// Social configures the friend list client.
	Social social.ClientOptions

	// Nominatim configures the default geocoding backend.
	Nominatim geocode.NominatimOptions

	// MinDelay between the starts of two geocode calls. Zero means
	// geocode.DefaultMinDelay, a negative value disables pacing.
	MinDelay time.Duration

	// SharedPacer, when set, is used by every run instead of a private
	// pacer, so the spacing holds across concurrent runs.
	SharedPacer *geocode.Pacer

	// DisableCache resolves repeated locations again instead of reusing
	// the first answer of the run.
	DisableCache bool

	// Map configures the rendered document.
	Map leaflet.Options

	// Fetcher overrides the friend list client.
	Fetcher Fetcher

	// Geocoder overrides the geocoding backend. Pacing and caching are
	// still applied on top of it.
	Geocoder geocode.Geocoder
}

// Request is one invocation of the pipeline.
type Request struct {
	Credential string
	Handle     string
	// Count of friends to fetch; non-positive means social.DefaultCount.
	Count int

	Mode leaflet.Mode
	// Path of the artifact in leaflet.ModeWrite, leaflet.DefaultPath when empty.
	Path string

	Progress Progress
}

// Stats summarizes what happened to the friends of a run.
type Stats struct {
	// Friends with a non-empty location.
	Friends int `json:"friends"`
	mapper.Metrics
	CacheHits int `json:"cache_hits"`
}

// Artifact is the result of a successful run.
type Artifact struct {
	RunID string
	Mode  leaflet.Mode
	// Path the document was written to, ModeWrite only.
	Path string
	// HTML document, ModeRender only.
	HTML string
	// Markers on the map.
	Markers int
	Stats   Stats
}

// Pipeline runs Fetcher → Mapper → Builder. It holds no per-run state and
// may serve concurrent runs; every run gets its own Mapper, cache and,
// unless SharedPacer is set, its own pacer.
type Pipeline struct {
	fetcher  Fetcher
	geocoder geocode.Geocoder
	builder  *leaflet.Builder
	minDelay time.Duration
	shared   *geocode.Pacer
	noCache  bool
	logger   *zap.Logger
}

// New creates a Pipeline.
func New(opts *Options, logger *zap.Logger) *Pipeline {
	if opts == nil {
		opts = &Options{}
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = social.NewClient(&opts.Social, logger)
	}

	backend := opts.Geocoder
	if backend == nil {
		backend = geocode.NewNominatimGeocoder(&opts.Nominatim)
	}

	minDelay := opts.MinDelay
	if minDelay == 0 {
		minDelay = geocode.DefaultMinDelay
	}

	return &Pipeline{
		fetcher:  fetcher,
		geocoder: backend,
		builder:  leaflet.NewBuilder(&opts.Map),
		minDelay: minDelay,
		shared:   opts.SharedPacer,
		noCache:  opts.DisableCache,
		logger:   logger,
	}
}

// Run executes one pipeline invocation. Only *social.FetchError and
// *leaflet.WriteError are expected to escape; geocoding failures just mean
// fewer markers. A cancelled context yields an error and no artifact, and an
// unknown Request.Mode fails with leaflet.ErrUnknownMode before any fetch.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Artifact, error) {
	if req.Mode != leaflet.ModeWrite && req.Mode != leaflet.ModeRender {
		return nil, fmt.Errorf("%w %s", leaflet.ErrUnknownMode, req.Mode)
	}

	runID := uuid.NewString()
	logger := p.logger.With(zap.String("run", runID), zap.String("handle", req.Handle))

	start := time.Now()

	records, err := p.fetcher.Friends(ctx, req.Credential, req.Handle, req.Count)
	if err != nil {
		logger.Error("fetching friend list failed", zap.Error(err))

		return nil, err
	}

	pacer := p.shared
	if pacer == nil {
		pacer = geocode.NewPacer(p.minDelay)
	}

	var geocoder geocode.Geocoder = geocode.NewPacedGeocoder(p.geocoder, pacer)

	var cache *geocode.CachingGeocoder
	if !p.noCache {
		cache = geocode.NewCachingGeocoder(geocoder)
		geocoder = cache
	}

	m := mapper.New(geocoder, logger)

	if req.Progress != nil {
		req.Progress.Start(len(records))
		m.OnProgress = req.Progress.Advance
	}

	friends := m.Map(ctx, records)

	if req.Progress != nil {
		req.Progress.Finish()
	}

	if err := ctx.Err(); err != nil {
		logger.Warn("run abandoned", zap.Error(err))

		return nil, fmt.Errorf("run %s abandoned: %w", runID, err)
	}

	out, err := p.builder.Build(req.Mode, req.Path, friends)
	if err != nil {
		logger.Error("building map failed", zap.Error(err))

		return nil, err
	}

	artifact := &Artifact{
		RunID:   runID,
		Mode:    req.Mode,
		Markers: len(friends),
		Stats: Stats{
			Friends: len(records),
			Metrics: m.Metrics,
		},
	}

	if cache != nil {
		artifact.Stats.CacheHits = cache.Hits()
	}

	if req.Mode == leaflet.ModeWrite {
		artifact.Path = out
	} else {
		artifact.HTML = out
	}

	logger.Info("map built",
		zap.Stringer("mode", req.Mode),
		zap.String("path", artifact.Path),
		zap.Int("friends", artifact.Stats.Friends),
		zap.Int("markers", artifact.Markers),
		zap.Int("dropped", artifact.Stats.Dropped()),
		zap.Int("cache_hits", artifact.Stats.CacheHits),
		zap.Duration("elapsed", time.Since(start)),
	)

	return artifact, nil
}
