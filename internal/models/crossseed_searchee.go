// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/autobrr/seedcross/internal/dbinterface"
	"github.com/autobrr/seedcross/pkg/hashutil"
)

var ErrSearcheeNotFound = errors.New("searchee not found")

// Searchee is a source torrent that has been scanned for cross-seed
// candidates, keyed by (instance, torrent hash). FileSizes holds the sorted
// size multiset serialized as JSON.
type Searchee struct {
	ID            int       `json:"id"`
	InstanceID    int       `json:"instanceId"`
	TorrentHash   string    `json:"torrentHash"`
	TorrentName   string    `json:"torrentName"`
	TotalSize     int64     `json:"totalSize"`
	FileCount     int       `json:"fileCount"`
	FileSizes     string    `json:"fileSizes"`
	FirstSearched time.Time `json:"firstSearched"`
	LastSearched  time.Time `json:"lastSearched"`

	// DecisionCount is populated by history queries only.
	DecisionCount int `json:"decisionCount,omitempty"`
}

// SerializeFileSizes produces the canonical sorted-JSON form stored in
// FileSizes.
func SerializeFileSizes(sizes []int64) string {
	sorted := make([]int64, len(sizes))
	copy(sorted, sizes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	data, _ := json.Marshal(sorted)
	return string(data)
}

type SearcheeStore struct {
	db dbinterface.Querier
}

func NewSearcheeStore(db dbinterface.Querier) *SearcheeStore {
	return &SearcheeStore{db: db}
}

// Upsert inserts the searchee or, when the (instance, hash) row already
// exists, refreshes its metadata and last_searched. The row ID is returned
// either way.
func (s *SearcheeStore) Upsert(ctx context.Context, searchee *Searchee) (int, error) {
	if searchee == nil {
		return 0, errors.New("searchee is nil")
	}
	hash := hashutil.Normalize(searchee.TorrentHash)
	if hash == "" {
		return 0, errors.New("torrent hash is required")
	}

	var id int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO cross_seed_searchee
			(instance_id, torrent_hash, torrent_name, total_size, file_count, file_sizes)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(instance_id, torrent_hash) DO UPDATE SET
			torrent_name = excluded.torrent_name,
			total_size = excluded.total_size,
			file_count = excluded.file_count,
			file_sizes = excluded.file_sizes,
			last_searched = CURRENT_TIMESTAMP
		RETURNING id
	`, searchee.InstanceID, hash, searchee.TorrentName, searchee.TotalSize,
		searchee.FileCount, searchee.FileSizes).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Touch refreshes last_searched without changing anything else.
func (s *SearcheeStore) Touch(ctx context.Context, id int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE cross_seed_searchee SET last_searched = CURRENT_TIMESTAMP WHERE id = ?
	`, id)
	return err
}

func (s *SearcheeStore) Get(ctx context.Context, id int) (*Searchee, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, instance_id, torrent_hash, torrent_name, total_size, file_count,
		       file_sizes, first_searched, last_searched
		FROM cross_seed_searchee
		WHERE id = ?
	`, id)

	var se Searchee
	err := row.Scan(&se.ID, &se.InstanceID, &se.TorrentHash, &se.TorrentName,
		&se.TotalSize, &se.FileCount, &se.FileSizes, &se.FirstSearched, &se.LastSearched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSearcheeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &se, nil
}

// GetByHash looks up the searchee row for (instance, torrent hash).
func (s *SearcheeStore) GetByHash(ctx context.Context, instanceID int, torrentHash string) (*Searchee, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, instance_id, torrent_hash, torrent_name, total_size, file_count,
		       file_sizes, first_searched, last_searched
		FROM cross_seed_searchee
		WHERE instance_id = ? AND torrent_hash = ?
	`, instanceID, hashutil.Normalize(torrentHash))

	var se Searchee
	err := row.Scan(&se.ID, &se.InstanceID, &se.TorrentHash, &se.TorrentName,
		&se.TotalSize, &se.FileCount, &se.FileSizes, &se.FirstSearched, &se.LastSearched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSearcheeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &se, nil
}

// ListByInstance returns every searchee for the instance, keyed use: the
// orchestrator loads them all up front to decide skips.
func (s *SearcheeStore) ListByInstance(ctx context.Context, instanceID int) ([]*Searchee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, instance_id, torrent_hash, torrent_name, total_size, file_count,
		       file_sizes, first_searched, last_searched
		FROM cross_seed_searchee
		WHERE instance_id = ?
	`, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var searchees []*Searchee
	for rows.Next() {
		var se Searchee
		if err := rows.Scan(&se.ID, &se.InstanceID, &se.TorrentHash, &se.TorrentName,
			&se.TotalSize, &se.FileCount, &se.FileSizes, &se.FirstSearched, &se.LastSearched); err != nil {
			return nil, err
		}
		searchees = append(searchees, &se)
	}
	return searchees, rows.Err()
}

// History returns searchees for the instance ordered by most recently
// searched, each with its decision count, plus the total row count.
func (s *SearcheeStore) History(ctx context.Context, instanceID, limit, offset int) ([]*Searchee, int, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT se.id, se.instance_id, se.torrent_hash, se.torrent_name, se.total_size,
		       se.file_count, se.file_sizes, se.first_searched, se.last_searched,
		       COUNT(d.id) AS decision_count
		FROM cross_seed_searchee se
		LEFT JOIN cross_seed_decision d ON d.searchee_id = se.id
		WHERE se.instance_id = ?
		GROUP BY se.id
		ORDER BY se.last_searched DESC
		LIMIT ? OFFSET ?
	`, instanceID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var searchees []*Searchee
	for rows.Next() {
		var se Searchee
		if err := rows.Scan(&se.ID, &se.InstanceID, &se.TorrentHash, &se.TorrentName,
			&se.TotalSize, &se.FileCount, &se.FileSizes, &se.FirstSearched, &se.LastSearched,
			&se.DecisionCount); err != nil {
			return nil, 0, err
		}
		searchees = append(searchees, &se)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM cross_seed_searchee WHERE instance_id = ?", instanceID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	return searchees, total, nil
}

// DeleteByInstance clears scan history for the instance. Decisions cascade.
func (s *SearcheeStore) DeleteByInstance(ctx context.Context, instanceID int) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM cross_seed_searchee WHERE instance_id = ?", instanceID)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	return int(affected), err
}
