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

var ErrInstanceNotFound = errors.New("instance not found")

// DefaultUserID is the single admin account; rows created without an
// explicit owner belong to it.
const DefaultUserID = 1

// Instance is a qBittorrent instance owned by a user.
type Instance struct {
	ID        int       `json:"id"`
	UserID    int       `json:"userId"`
	Label     string    `json:"label"`
	Host      string    `json:"host"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type InstanceStore struct {
	db dbinterface.Querier
}

func NewInstanceStore(db dbinterface.Querier) *InstanceStore {
	return &InstanceStore{db: db}
}

func (s *InstanceStore) Create(ctx context.Context, instance *Instance) (*Instance, error) {
	if instance == nil {
		return nil, errors.New("instance is nil")
	}
	if strings.TrimSpace(instance.Label) == "" {
		return nil, errors.New("label is required")
	}
	if strings.TrimSpace(instance.Host) == "" {
		return nil, errors.New("host is required")
	}
	userID := instance.UserID
	if userID <= 0 {
		userID = DefaultUserID
	}

	var id int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO instances (user_id, label, host, username, password)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`, userID, instance.Label, instance.Host, instance.Username, instance.Password).Scan(&id)
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

func (s *InstanceStore) Get(ctx context.Context, id int) (*Instance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, label, host, username, password, created_at, updated_at
		FROM instances
		WHERE id = ?
	`, id)
	return scanInstance(row)
}

// GetForUser returns the instance only when it is owned by userID.
func (s *InstanceStore) GetForUser(ctx context.Context, id, userID int) (*Instance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, label, host, username, password, created_at, updated_at
		FROM instances
		WHERE id = ? AND user_id = ?
	`, id, userID)
	return scanInstance(row)
}

func (s *InstanceStore) List(ctx context.Context) ([]*Instance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, label, host, username, password, created_at, updated_at
		FROM instances
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instances []*Instance
	for rows.Next() {
		var inst Instance
		if err := rows.Scan(&inst.ID, &inst.UserID, &inst.Label, &inst.Host, &inst.Username, &inst.Password, &inst.CreatedAt, &inst.UpdatedAt); err != nil {
			return nil, err
		}
		instances = append(instances, &inst)
	}
	return instances, rows.Err()
}

func (s *InstanceStore) Delete(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM instances WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInstanceNotFound
	}
	return nil
}

func scanInstance(row *sql.Row) (*Instance, error) {
	var inst Instance
	err := row.Scan(&inst.ID, &inst.UserID, &inst.Label, &inst.Host, &inst.Username, &inst.Password, &inst.CreatedAt, &inst.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInstanceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}
