// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/seedcross/internal/config"
	"github.com/autobrr/seedcross/internal/database"
	"github.com/autobrr/seedcross/internal/logger"
	"github.com/autobrr/seedcross/internal/models"
	"github.com/autobrr/seedcross/internal/qbittorrent"
	"github.com/autobrr/seedcross/internal/services/crossseed"
)

// app is the composition root shared by the serve and scan commands.
type app struct {
	cfg *config.AppConfig
	db  *database.DB

	instanceStore    *models.InstanceStore
	integrationStore *models.IntegrationStore
	configStore      *models.CrossSeedConfigStore
	searcheeStore    *models.SearcheeStore
	decisionStore    *models.DecisionStore

	pool      *qbittorrent.Pool
	cache     *crossseed.Cache
	service   *crossseed.Service
	scheduler *crossseed.Scheduler
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.New(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Config.Version = version

	logger.Init(cfg.Config)

	db, err := database.New(cfg.GetDatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	instanceStore := models.NewInstanceStore(db)
	integrationStore := models.NewIntegrationStore(db)
	configStore := models.NewCrossSeedConfigStore(db)
	searcheeStore := models.NewSearcheeStore(db)
	decisionStore := models.NewDecisionStore(db)

	pool := qbittorrent.NewPool(instanceStore)

	cache, err := crossseed.NewCache(cfg.GetDataDir())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	service := crossseed.NewService(
		instanceStore, integrationStore, configStore, searcheeStore, decisionStore,
		pool, cache,
	)
	scheduler := crossseed.NewScheduler(service, configStore)

	return &app{
		cfg:              cfg,
		db:               db,
		instanceStore:    instanceStore,
		integrationStore: integrationStore,
		configStore:      configStore,
		searcheeStore:    searcheeStore,
		decisionStore:    decisionStore,
		pool:             pool,
		cache:            cache,
		service:          service,
		scheduler:        scheduler,
	}, nil
}

func (a *app) Close() {
	a.scheduler.Stop()
	if err := a.db.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}
}
