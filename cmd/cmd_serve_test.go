// Copyright 2026 The FriendMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenAddr(t *testing.T) {
	newCmd := func() *cobra.Command {
		c := &cobra.Command{Use: "serve"}
		c.Flags().StringVar(&serveOpts.Addr, "addr", "localhost:8080", "")

		return c
	}

	t.Setenv(envPort, "")
	assert.Equal(t, "localhost:8080", listenAddr(newCmd()))

	t.Setenv(envPort, "9090")
	assert.Equal(t, ":9090", listenAddr(newCmd()))

	c := newCmd()
	require.NoError(t, c.Flags().Set("addr", "127.0.0.1:7000"))
	assert.Equal(t, "127.0.0.1:7000", listenAddr(c))

	serveOpts.Addr = "localhost:8080"
}
