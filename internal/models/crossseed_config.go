// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/autobrr/seedcross/internal/dbinterface"
)

var ErrConfigNotFound = errors.New("cross-seed config not found")

// Default cross-seed settings applied when an instance has no stored config.
const (
	DefaultIntervalHours  = 24
	DefaultCategorySuffix = "_cross-seed"
	DefaultTag            = "cross-seed"
)

// CrossSeedConfig holds the per-instance cross-seed automation settings.
type CrossSeedConfig struct {
	InstanceID     int          `json:"instanceId"`
	Enabled        bool         `json:"enabled"`
	IntervalHours  int          `json:"intervalHours"`
	DryRun         bool         `json:"dryRun"`
	CategorySuffix string       `json:"categorySuffix"`
	Tag            string       `json:"tag"`
	SkipRecheck    bool         `json:"skipRecheck"`
	IntegrationID  *int         `json:"integrationId"`
	LastRun        sql.NullTime `json:"-"`
	NextRun        sql.NullTime `json:"-"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// DefaultCrossSeedConfig returns the settings presented for an instance that
// has never been configured.
func DefaultCrossSeedConfig(instanceID int) *CrossSeedConfig {
	return &CrossSeedConfig{
		InstanceID:     instanceID,
		IntervalHours:  DefaultIntervalHours,
		DryRun:         true,
		CategorySuffix: DefaultCategorySuffix,
		Tag:            DefaultTag,
	}
}

type CrossSeedConfigStore struct {
	db dbinterface.Querier
}

func NewCrossSeedConfigStore(db dbinterface.Querier) *CrossSeedConfigStore {
	return &CrossSeedConfigStore{db: db}
}

func (s *CrossSeedConfigStore) Get(ctx context.Context, instanceID int) (*CrossSeedConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT instance_id, enabled, interval_hours, dry_run, category_suffix,
		       tag, skip_recheck, integration_id, last_run, next_run, created_at, updated_at
		FROM cross_seed_config
		WHERE instance_id = ?
	`, instanceID)

	var cfg CrossSeedConfig
	err := row.Scan(&cfg.InstanceID, &cfg.Enabled, &cfg.IntervalHours, &cfg.DryRun,
		&cfg.CategorySuffix, &cfg.Tag, &cfg.SkipRecheck, &cfg.IntegrationID,
		&cfg.LastRun, &cfg.NextRun, &cfg.CreatedAt, &cfg.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConfigNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Upsert inserts or replaces the instance's settings. The interval invariant
// is enforced here as well as by the schema check constraint.
func (s *CrossSeedConfigStore) Upsert(ctx context.Context, cfg *CrossSeedConfig) (*CrossSeedConfig, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if cfg.InstanceID <= 0 {
		return nil, errors.New("instanceID must be positive")
	}
	if cfg.IntervalHours < 1 {
		return nil, fmt.Errorf("intervalHours must be >= 1, got %d", cfg.IntervalHours)
	}
	if cfg.CategorySuffix == "" {
		cfg.CategorySuffix = DefaultCategorySuffix
	}
	if cfg.Tag == "" {
		cfg.Tag = DefaultTag
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cross_seed_config
			(instance_id, enabled, interval_hours, dry_run, category_suffix, tag, skip_recheck, integration_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(instance_id) DO UPDATE SET
			enabled = excluded.enabled,
			interval_hours = excluded.interval_hours,
			dry_run = excluded.dry_run,
			category_suffix = excluded.category_suffix,
			tag = excluded.tag,
			skip_recheck = excluded.skip_recheck,
			integration_id = excluded.integration_id,
			updated_at = CURRENT_TIMESTAMP
	`, cfg.InstanceID, cfg.Enabled, cfg.IntervalHours, cfg.DryRun,
		cfg.CategorySuffix, cfg.Tag, cfg.SkipRecheck, cfg.IntegrationID)
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, cfg.InstanceID)
}

// ListEnabled returns the configs whose periodic schedule should be armed.
func (s *CrossSeedConfigStore) ListEnabled(ctx context.Context) ([]*CrossSeedConfig, error) {
	return s.list(ctx, "WHERE enabled = 1")
}

// List returns every stored config row.
func (s *CrossSeedConfigStore) List(ctx context.Context) ([]*CrossSeedConfig, error) {
	return s.list(ctx, "")
}

func (s *CrossSeedConfigStore) list(ctx context.Context, where string) ([]*CrossSeedConfig, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT instance_id, enabled, interval_hours, dry_run, category_suffix,
		       tag, skip_recheck, integration_id, last_run, next_run, created_at, updated_at
		FROM cross_seed_config
	`+where+` ORDER BY instance_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*CrossSeedConfig
	for rows.Next() {
		var cfg CrossSeedConfig
		if err := rows.Scan(&cfg.InstanceID, &cfg.Enabled, &cfg.IntervalHours, &cfg.DryRun,
			&cfg.CategorySuffix, &cfg.Tag, &cfg.SkipRecheck, &cfg.IntegrationID,
			&cfg.LastRun, &cfg.NextRun, &cfg.CreatedAt, &cfg.UpdatedAt); err != nil {
			return nil, err
		}
		configs = append(configs, &cfg)
	}
	return configs, rows.Err()
}

// SetLastRun records the completion time of a scan.
func (s *CrossSeedConfigStore) SetLastRun(ctx context.Context, instanceID int, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE cross_seed_config SET last_run = ?, updated_at = CURRENT_TIMESTAMP
		WHERE instance_id = ?
	`, at.UTC(), instanceID)
	return err
}

// SetNextRun records when the scheduler will fire next; nil clears it.
func (s *CrossSeedConfigStore) SetNextRun(ctx context.Context, instanceID int, at *time.Time) error {
	var value any
	if at != nil {
		value = at.UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE cross_seed_config SET next_run = ?, updated_at = CURRENT_TIMESTAMP
		WHERE instance_id = ?
	`, value, instanceID)
	return err
}
