// Copyright 2026 The FriendMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptHandle(t *testing.T) {
	var out bytes.Buffer

	handle, err := promptHandle(bufio.NewReader(strings.NewReader("\n  \n@liverpooloneluv\n")), &out)
	require.NoError(t, err)

	assert.Equal(t, "liverpooloneluv", handle)
	assert.Equal(t, 3, strings.Count(out.String(), "Please enter user's @tag: @"))
}

func TestPromptHandleWithoutTrailingNewline(t *testing.T) {
	handle, err := promptHandle(bufio.NewReader(strings.NewReader("someone")), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "someone", handle)
}

func TestPromptHandleEOF(t *testing.T) {
	_, err := promptHandle(bufio.NewReader(strings.NewReader("")), &bytes.Buffer{})
	require.Error(t, err)
}

func TestPromptCount(t *testing.T) {
	var out bytes.Buffer

	count, err := promptCount(bufio.NewReader(strings.NewReader("many\n-2\n0\n 25 \r\n")), &out)
	require.NoError(t, err)

	assert.Equal(t, 25, count)
	assert.Equal(t, 4, strings.Count(out.String(), "Please enter the number of friends: "))
}

func TestPromptCountEOF(t *testing.T) {
	_, err := promptCount(bufio.NewReader(strings.NewReader("ten\n")), &bytes.Buffer{})
	require.Error(t, err)
}

func TestPipelineFlagsOptions(t *testing.T) {
	t.Setenv(envAPIURL, "http://api.example")
	t.Setenv(envGeocoderURL, "http://geo.example")
	t.Setenv(envUserAgent, "")

	f := &pipelineFlags{GeocoderURL: "http://flag.example", MinDelay: 2 * time.Second}
	opts := f.options()

	assert.Equal(t, "http://api.example", opts.Social.BaseURL)
	assert.Equal(t, "http://flag.example", opts.Nominatim.BaseURL)
	assert.Empty(t, opts.Nominatim.UserAgent)
	assert.Equal(t, 2*time.Second, opts.MinDelay)
	assert.Nil(t, opts.Social.TraceWriter)

	f = &pipelineFlags{TraceHTTP: true}
	opts = f.options()

	assert.Equal(t, os.Stderr, opts.Social.TraceWriter)
	assert.Negative(t, int64(opts.MinDelay), "an explicit zero disables pacing")
}

func TestMapCommand(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer t0k3n", r.Header.Get("Authorization"))
		assert.Equal(t, "someone", r.URL.Query().Get("screen_name"))
		assert.Equal(t, "3", r.URL.Query().Get("count"))

		_, _ = w.Write([]byte(`{"users":[{"name":"Bob","location":"Paris"},{"name":"Ann","location":""}]}`))
	}))
	defer api.Close()

	nominatim := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"lat":"48.85","lon":"2.35"}]`))
	}))
	defer nominatim.Close()

	out := filepath.Join(t.TempDir(), "friends.html")

	var stderr bytes.Buffer

	rootCmd.SetIn(strings.NewReader("@someone\n3\n"))
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{
		"map", "t0k3n",
		"--api-url", api.URL,
		"--geocoder-url", nominatim.URL,
		"--min-delay", "1ms",
		"--out", out,
	})

	t.Cleanup(func() {
		rootCmd.SetIn(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())

	doc, err := os.ReadFile(out)
	require.NoError(t, err)

	assert.Contains(t, string(doc), `"Bob"`)
	assert.NotContains(t, string(doc), `"Ann"`)
	assert.Contains(t, stderr.String(), "Please enter user's @tag: @")
	assert.Contains(t, stderr.String(), "Map with 1 markers written to "+out)
}
