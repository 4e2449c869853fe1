// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package crossseed

import (
	"regexp"
	"strings"
)

var (
	bracketedTagRe = regexp.MustCompile(`\[[^\]]*\]`)
	parenTagRe     = regexp.MustCompile(`\([^)]*\)`)
	trailingExtRe  = regexp.MustCompile(`\.\w{2,4}$`)
	separatorRe    = regexp.MustCompile(`[._-]`)
)

// BuildSearchQuery turns a torrent name into an indexer query: bracketed and
// parenthesized tags go, a trailing extension-like suffix goes, and scene
// separators become spaces.
func BuildSearchQuery(torrentName string) string {
	query := bracketedTagRe.ReplaceAllString(torrentName, "")
	query = parenTagRe.ReplaceAllString(query, "")
	query = trailingExtRe.ReplaceAllString(query, "")
	query = separatorRe.ReplaceAllString(query, " ")
	return strings.Join(strings.Fields(query), " ")
}
