// Copyright 2026 The FriendMap Authors
// SPDX-License-Identifier: Apache-2.0

package textutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocationKey(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"São Paulo", "são paulo"},
		{"  SÃO   paulo ", "são paulo"},
		{"Sa\u0303o Paulo", "são paulo"},
		{"London,\tUK", "london, uk"},
		{"Zürich", "zürich"},
		{"ガザ", "ガザ"},
		{"カ\u3099サ", "ガサ"},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, LocationKey(tc.input))
		})
	}

	assert.NotEqual(t, LocationKey("ガザ"), LocationKey("カサ"))
	assert.NotEqual(t, LocationKey("Pará"), LocationKey("Para"))
}

func TestFormatInt(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0"},
		{7, "7"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-1234, "-1,234"},
		{-100, "-100"},
	}

	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, FormatInt(tc.input))
		})
	}
}
