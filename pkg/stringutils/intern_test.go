// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package stringutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternNormalized(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", InternNormalized("  ABC "))
	assert.Equal(t, "", InternNormalized("   "))
	assert.Equal(t, "abc", InternNormalized("abc"))
}
