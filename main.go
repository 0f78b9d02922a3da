// Copyright 2026 The FriendMap Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/friendmap/friendmap/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
