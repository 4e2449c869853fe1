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

var ErrIntegrationNotFound = errors.New("integration not found")

// Integration is an indexer aggregator connection (Prowlarr) owned by a user.
type Integration struct {
	ID        int       `json:"id"`
	UserID    int       `json:"userId"`
	Name      string    `json:"name"`
	Host      string    `json:"host"`
	APIKey    string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

type IntegrationStore struct {
	db dbinterface.Querier
}

func NewIntegrationStore(db dbinterface.Querier) *IntegrationStore {
	return &IntegrationStore{db: db}
}

func (s *IntegrationStore) Create(ctx context.Context, integration *Integration) (*Integration, error) {
	if integration == nil {
		return nil, errors.New("integration is nil")
	}
	if strings.TrimSpace(integration.Host) == "" {
		return nil, errors.New("host is required")
	}
	if strings.TrimSpace(integration.APIKey) == "" {
		return nil, errors.New("api key is required")
	}
	userID := integration.UserID
	if userID <= 0 {
		userID = 1
	}

	var id int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO integrations (user_id, name, host, api_key)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`, userID, integration.Name, integration.Host, integration.APIKey).Scan(&id)
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

func (s *IntegrationStore) Get(ctx context.Context, id int) (*Integration, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, host, api_key, created_at
		FROM integrations
		WHERE id = ?
	`, id)
	return scanIntegration(row)
}

// GetForUser returns the integration only when it is owned by userID.
func (s *IntegrationStore) GetForUser(ctx context.Context, id, userID int) (*Integration, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, host, api_key, created_at
		FROM integrations
		WHERE id = ? AND user_id = ?
	`, id, userID)
	return scanIntegration(row)
}

func (s *IntegrationStore) List(ctx context.Context) ([]*Integration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, host, api_key, created_at
		FROM integrations
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var integrations []*Integration
	for rows.Next() {
		var in Integration
		if err := rows.Scan(&in.ID, &in.UserID, &in.Name, &in.Host, &in.APIKey, &in.CreatedAt); err != nil {
			return nil, err
		}
		integrations = append(integrations, &in)
	}
	return integrations, rows.Err()
}

func scanIntegration(row *sql.Row) (*Integration, error) {
	var in Integration
	err := row.Scan(&in.ID, &in.UserID, &in.Name, &in.Host, &in.APIKey, &in.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrIntegrationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &in, nil
}
