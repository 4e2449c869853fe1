// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package crossseed

import "time"

// DecisionKind classifies the outcome of comparing a candidate release
// against a searchee. The set is closed; every consumer switches over all
// four values.
type DecisionKind string

const (
	DecisionMatch             DecisionKind = "MATCH"
	DecisionMatchSizeOnly     DecisionKind = "MATCH_SIZE_ONLY"
	DecisionSizeMismatch      DecisionKind = "SIZE_MISMATCH"
	DecisionFileCountMismatch DecisionKind = "FILE_COUNT_MISMATCH"
)

// Matched reports whether the kind represents an actionable match.
func (k DecisionKind) Matched() bool {
	switch k {
	case DecisionMatch, DecisionMatchSizeOnly:
		return true
	case DecisionSizeMismatch, DecisionFileCountMismatch:
		return false
	default:
		return false
	}
}

// FileInfo is a single payload file as reported by the client or decoded
// from candidate metadata.
type FileInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// MatchResult is the outcome of MatchBySizes.
type MatchResult struct {
	Decision     DecisionKind `json:"decision"`
	Matched      bool         `json:"matched"`
	Confidence   float64      `json:"confidence"`
	MatchedFiles int          `json:"matchedFiles"`
	TotalFiles   int          `json:"totalFiles"`
	Details      string       `json:"details,omitempty"`
}

// PreFilterResult is the outcome of PreFilterCandidate.
type PreFilterResult struct {
	Pass   bool   `json:"pass"`
	Reason string `json:"reason,omitempty"`
}

// ScanOptions selects what a scan run operates on.
type ScanOptions struct {
	InstanceID     int
	UserID         int
	Force          bool
	DryRunOverride *bool
}

// ScanResult aggregates one scan invocation. Errors is the only diagnostic
// channel surfaced to callers; a scan never returns a Go error for per-item
// failures.
type ScanResult struct {
	InstanceID    int       `json:"instanceId"`
	TorrentsTotal int       `json:"torrentsTotal"`
	Scanned       int       `json:"torrentsScanned"`
	Skipped       int       `json:"torrentsSkipped"`
	MatchesFound  int       `json:"matchesFound"`
	Added         int       `json:"torrentsAdded"`
	Errors        []string  `json:"errors"`
	DryRun        bool      `json:"dryRun"`
	StartedAt     time.Time `json:"startedAt"`
	CompletedAt   time.Time `json:"completedAt"`
}
