// Copyright 2026 The FriendMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/friendmap/friendmap/geocode"
	"github.com/friendmap/friendmap/pipeline"
	"github.com/friendmap/friendmap/social"
	"github.com/spf13/cobra"
)

// Environment variables consulted when the matching flag is not set.
const (
	envBearerToken = "FRIENDMAP_BEARER_TOKEN"
	envAPIURL      = "FRIENDMAP_API_URL"
	envGeocoderURL = "FRIENDMAP_GEOCODER_URL"
	envUserAgent   = "FRIENDMAP_USER_AGENT"
	envPort        = "PORT"
)

// pipelineFlags are shared by every command that runs the pipeline.
type pipelineFlags struct {
	APIURL        string
	GeocoderURL   string
	UserAgent     string
	MinDelay      time.Duration
	NoCache       bool
	TraceHTTP     bool
	TraceHTTPBody bool
}

func (f *pipelineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(
		&f.APIURL,
		"api-url",
		"",
		fmt.Sprintf("Base URL of the friend list API (default %s, env %s)", social.DefaultBaseURL, envAPIURL),
	)
	cmd.Flags().StringVar(
		&f.GeocoderURL,
		"geocoder-url",
		"",
		fmt.Sprintf("Base URL of the Nominatim instance (default %s, env %s)", geocode.DefaultNominatimURL, envGeocoderURL),
	)
	cmd.Flags().StringVar(
		&f.UserAgent,
		"user-agent",
		"",
		fmt.Sprintf("User-Agent sent to the geocoder (default %q, env %s)", geocode.DefaultUserAgent, envUserAgent),
	)
	cmd.Flags().DurationVar(
		&f.MinDelay,
		"min-delay",
		geocode.DefaultMinDelay,
		"Minimum time between the start of two geocoding requests",
	)
	cmd.Flags().BoolVar(
		&f.NoCache,
		"no-cache",
		false,
		"Geocode repeated locations again instead of reusing the first answer",
	)
	cmd.Flags().BoolVar(
		&f.TraceHTTP,
		"trace-http",
		false,
		"Display HTTP requests-responses",
	)
	cmd.Flags().BoolVar(
		&f.TraceHTTPBody,
		"trace-http-body",
		false,
		"Display HTTP requests-responses bodies",
	)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}

// options turns the flags into pipeline options, falling back to the
// environment for unset values.
func (f *pipelineFlags) options() *pipeline.Options {
	var trace io.Writer
	if f.TraceHTTP || f.TraceHTTPBody {
		trace = os.Stderr
	}

	minDelay := f.MinDelay
	if minDelay == 0 {
		// an explicit zero turns pacing off
		minDelay = -1
	}

	return &pipeline.Options{
		Social: social.ClientOptions{
			BaseURL:     firstNonEmpty(f.APIURL, os.Getenv(envAPIURL)),
			UserAgent:   fmt.Sprintf("friendmap/%s", Version),
			TraceWriter: trace,
			TraceBody:   f.TraceHTTPBody,
		},
		Nominatim: geocode.NominatimOptions{
			BaseURL:     firstNonEmpty(f.GeocoderURL, os.Getenv(envGeocoderURL)),
			UserAgent:   firstNonEmpty(f.UserAgent, os.Getenv(envUserAgent)),
			TraceWriter: trace,
			TraceBody:   f.TraceHTTPBody,
		},
		MinDelay:     minDelay,
		DisableCache: f.NoCache,
	}
}
