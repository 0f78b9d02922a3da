// Copyright 2026 The FriendMap Authors
// SPDX-License-Identifier: Apache-2.0

package social

import (
	"fmt"
)

// FetchError is a failure to retrieve or interpret the friend list. It is
// fatal to a run.
type FetchError struct {
	Handle string
	// StatusCode of the upstream response, zero when none was received.
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetching friends of @%s: %s", e.Handle, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}

	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}

	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
