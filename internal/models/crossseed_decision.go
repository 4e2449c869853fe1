// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/autobrr/seedcross/internal/dbinterface"
)

var ErrDecisionNotFound = errors.New("decision not found")

// Decision records the outcome for one (searchee, candidate guid) pair so a
// candidate is never re-evaluated from scratch on later scans.
type Decision struct {
	ID            int          `json:"id"`
	SearcheeID    int          `json:"searcheeId"`
	GUID          string       `json:"guid"`
	InfoHash      *string      `json:"infoHash"`
	CandidateName string       `json:"candidateName"`
	CandidateSize *int64       `json:"candidateSize"`
	Decision      string       `json:"decision"`
	FirstSeen     time.Time    `json:"firstSeen"`
	LastSeen      time.Time    `json:"lastSeen"`
}

type DecisionStore struct {
	db dbinterface.Querier
}

func NewDecisionStore(db dbinterface.Querier) *DecisionStore {
	return &DecisionStore{db: db}
}

// Get looks up the decision for (searcheeID, guid).
func (s *DecisionStore) Get(ctx context.Context, searcheeID int, guid string) (*Decision, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, searchee_id, guid, info_hash, candidate_name, candidate_size,
		       decision, first_seen, last_seen
		FROM cross_seed_decision
		WHERE searchee_id = ? AND guid = ?
	`, searcheeID, guid)

	var d Decision
	err := row.Scan(&d.ID, &d.SearcheeID, &d.GUID, &d.InfoHash, &d.CandidateName,
		&d.CandidateSize, &d.Decision, &d.FirstSeen, &d.LastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDecisionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Upsert inserts the decision or, when the (searchee, guid) pair exists,
// overwrites the decision kind and info-hash and refreshes last_seen. The
// atomic ON CONFLICT keeps concurrent re-entry from duplicating rows.
func (s *DecisionStore) Upsert(ctx context.Context, d *Decision) error {
	if d == nil {
		return errors.New("decision is nil")
	}
	if d.SearcheeID <= 0 {
		return errors.New("searcheeID must be positive")
	}
	if strings.TrimSpace(d.GUID) == "" {
		return errors.New("guid is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cross_seed_decision
			(searchee_id, guid, info_hash, candidate_name, candidate_size, decision)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(searchee_id, guid) DO UPDATE SET
			info_hash = excluded.info_hash,
			candidate_name = excluded.candidate_name,
			candidate_size = excluded.candidate_size,
			decision = excluded.decision,
			last_seen = CURRENT_TIMESTAMP
	`, d.SearcheeID, d.GUID, d.InfoHash, d.CandidateName, d.CandidateSize, d.Decision)
	return err
}

// TouchLastSeen refreshes last_seen for an already-recorded candidate.
func (s *DecisionStore) TouchLastSeen(ctx context.Context, searcheeID int, guid string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE cross_seed_decision SET last_seen = CURRENT_TIMESTAMP
		WHERE searchee_id = ? AND guid = ?
	`, searcheeID, guid)
	return err
}

// ListBySearchee returns the searchee's decisions, most recently seen first.
func (s *DecisionStore) ListBySearchee(ctx context.Context, searcheeID int) ([]*Decision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, searchee_id, guid, info_hash, candidate_name, candidate_size,
		       decision, first_seen, last_seen
		FROM cross_seed_decision
		WHERE searchee_id = ?
		ORDER BY last_seen DESC
	`, searcheeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []*Decision
	for rows.Next() {
		var d Decision
		if err := rows.Scan(&d.ID, &d.SearcheeID, &d.GUID, &d.InfoHash, &d.CandidateName,
			&d.CandidateSize, &d.Decision, &d.FirstSeen, &d.LastSeen); err != nil {
			return nil, err
		}
		decisions = append(decisions, &d)
	}
	return decisions, rows.Err()
}
