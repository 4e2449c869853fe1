// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package hashutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abcdef012345", Normalize("  ABCDEF012345 "))
	assert.Equal(t, "", Normalize("   "))
	assert.Equal(t, "deadbeef", Normalize("deadbeef"))
}
