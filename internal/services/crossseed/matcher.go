// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package crossseed

import (
	"fmt"
	"math"
)

// DefaultSizeTolerance is the fractional size difference PreFilterCandidate
// accepts before a candidate is rejected without downloading its metadata.
const DefaultSizeTolerance = 0.02

// MatchBySizes compares the payload of a searchee and a candidate as
// multisets of file sizes and classifies the relationship.
//
// Candidate files are consumed in their given order; each one claims an
// unconsumed source file of identical size, preferring an exact name match
// when several source files tie on size (multi-episode packs routinely
// contain same-size files). A full assignment is a MATCH when every source
// (name, size) pair also appears in the candidate, and MATCH_SIZE_ONLY when
// only the byte layout agrees, which is what cross-tracker renames look
// like. Two empty lists match vacuously.
func MatchBySizes(sourceFiles, candidateFiles []FileInfo) MatchResult {
	if len(candidateFiles) == 0 {
		if len(sourceFiles) == 0 {
			return MatchResult{
				Decision:   DecisionMatch,
				Matched:    true,
				Confidence: 1,
				Details:    "both file lists empty",
			}
		}
		return MatchResult{
			Decision: DecisionSizeMismatch,
			Details:  "candidate has no files",
		}
	}

	if len(sourceFiles) != len(candidateFiles) {
		return MatchResult{
			Decision:   DecisionFileCountMismatch,
			TotalFiles: len(candidateFiles),
			Details:    fmt.Sprintf("file count mismatch: source=%d, candidate=%d", len(sourceFiles), len(candidateFiles)),
		}
	}

	available := make([]FileInfo, len(sourceFiles))
	copy(available, sourceFiles)
	consumed := make([]bool, len(available))

	matched := 0
	for _, cf := range candidateFiles {
		pick := -1
		for i, sf := range available {
			if consumed[i] || sf.Size != cf.Size {
				continue
			}
			if pick < 0 {
				pick = i
			}
			if sf.Name == cf.Name {
				pick = i
				break
			}
		}
		if pick < 0 {
			continue
		}
		consumed[pick] = true
		matched++
	}

	if matched == len(candidateFiles) {
		namesMatch := true
		for _, sf := range sourceFiles {
			found := false
			for _, cf := range candidateFiles {
				if cf.Name == sf.Name && cf.Size == sf.Size {
					found = true
					break
				}
			}
			if !found {
				namesMatch = false
				break
			}
		}

		decision := DecisionMatchSizeOnly
		details := "size-only match (names differ)"
		if namesMatch {
			decision = DecisionMatch
			details = "perfect match (names + sizes)"
		}
		return MatchResult{
			Decision:     decision,
			Matched:      true,
			Confidence:   1,
			MatchedFiles: matched,
			TotalFiles:   len(candidateFiles),
			Details:      details,
		}
	}

	return MatchResult{
		Decision:     DecisionSizeMismatch,
		Confidence:   float64(matched) / float64(len(candidateFiles)),
		MatchedFiles: matched,
		TotalFiles:   len(candidateFiles),
		Details:      fmt.Sprintf("only %d/%d files matched", matched, len(candidateFiles)),
	}
}

// PreFilterCandidate cheaply rejects candidates whose advertised total size
// is outside tolerance of the searchee's size. A candidate with an unknown
// size passes: it cannot be rejected before its metadata is downloaded.
func PreFilterCandidate(sourceName string, sourceSize int64, candidateName string, candidateSize *int64, tolerance float64) PreFilterResult {
	if candidateSize == nil {
		return PreFilterResult{Pass: true}
	}
	if sourceSize == 0 {
		// Degenerate searchee; nothing meaningful to compare against.
		return PreFilterResult{Pass: true}
	}

	lower := float64(sourceSize) * (1 - tolerance)
	upper := float64(sourceSize) * (1 + tolerance)
	cand := float64(*candidateSize)
	if cand >= lower && cand <= upper {
		return PreFilterResult{Pass: true}
	}

	diff := math.Abs(cand-float64(sourceSize)) / float64(sourceSize)
	return PreFilterResult{
		Pass:   false,
		Reason: fmt.Sprintf("size mismatch: %.1f%% difference (tolerance: %g%%)", diff*100, tolerance*100),
	}
}
