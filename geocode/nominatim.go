// Copyright 2026 The FriendMap Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/friendmap/friendmap/spatial"
	"github.com/friendmap/friendmap/utils/httputils"
)

// Defaults for the public OpenStreetMap Nominatim instance.
const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org/"
	DefaultUserAgent    = "Twitter friends locator."
)

// NominatimOptions configuration for NominatimGeocoder.
type NominatimOptions struct {
	// BaseURL of the Nominatim instance; the search endpoint is resolved against it.
	BaseURL string

	// UserAgent is mandatory per the Nominatim usage policy.
	UserAgent string

	// Timeout of a single search request.
	Timeout time.Duration

	// TraceWriter receives request/response dumps when set.
	TraceWriter io.Writer

	// TraceBody includes bodies in the dumps.
	TraceBody bool

	// Transport overrides the base transport, mostly for tests.
	Transport http.RoundTripper
}

// NominatimGeocoder uses the Nominatim search API.
type NominatimGeocoder struct {
	searchURL  string
	httpClient *http.Client
}

// NewNominatimGeocoder creates a new Nominatim geocoder.
func NewNominatimGeocoder(opts *NominatimOptions) *NominatimGeocoder {
	if opts == nil {
		opts = &NominatimOptions{}
	}

	base := DefaultNominatimURL
	if opts.BaseURL != "" {
		base = opts.BaseURL
	}

	userAgent := DefaultUserAgent
	if opts.UserAgent != "" {
		userAgent = opts.UserAgent
	}

	timeout := 10 * time.Second
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	return &NominatimGeocoder{
		searchURL: resolveEndpoint(base, "search"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: httputils.NewTransport(httputils.TransportOptions{
				Base: opts.Transport,
				Headers: map[string]string{
					"User-Agent": userAgent,
					"Accept":     "application/json",
				},
				TraceWriter: opts.TraceWriter,
				TraceBody:   opts.TraceBody,
			}),
		},
	}
}

func resolveEndpoint(base, path string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + path
	}

	return u.ResolveReference(&url.URL{Path: path}).String()
}

type nominatimResponse []struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode implements Geocoder. It asks for a single best match.
func (g *NominatimGeocoder) Geocode(ctx context.Context, query string) (*Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &ResolveError{
			Type:    ErrorTypeInvalidRequest,
			Query:   query,
			Message: "building request",
			Err:     err,
		}
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(query, err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		resolveErr := ClassifyHTTPError(resp.StatusCode)
		resolveErr.Query = query

		return nil, resolveErr
	}

	var results nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		if IsTimeoutError(err) {
			return nil, classifyTransportError(query, err)
		}

		return nil, &ResolveError{
			Type:    ErrorTypeMalformedResponse,
			Query:   query,
			Message: "decoding response",
			Err:     err,
		}
	}

	if len(results) == 0 {
		return nil, nil
	}

	first := results[0]

	lat, latErr := strconv.ParseFloat(first.Lat, 64)
	lng, lngErr := strconv.ParseFloat(first.Lon, 64)

	if latErr != nil || lngErr != nil {
		return nil, &ResolveError{
			Type:    ErrorTypeMalformedResponse,
			Query:   query,
			Message: "parsing coordinates " + strconv.Quote(first.Lat) + ", " + strconv.Quote(first.Lon),
		}
	}

	point := spatial.Point{Lat: lat, Lng: lng}
	if err := point.Validate(); err != nil {
		return nil, &ResolveError{
			Type:    ErrorTypeMalformedResponse,
			Query:   query,
			Message: "coordinates out of range",
			Err:     err,
		}
	}

	return &Result{
		Point:       point,
		Provider:    "nominatim",
		DisplayName: first.DisplayName,
	}, nil
}
