// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/seedcross/internal/models"
	"github.com/autobrr/seedcross/internal/services/crossseed"
)

// CrossSeedHandler handles cross-seed API endpoints
type CrossSeedHandler struct {
	instanceStore *models.InstanceStore
	configStore   *models.CrossSeedConfigStore
	searcheeStore *models.SearcheeStore
	decisionStore *models.DecisionStore
	scheduler     *crossseed.Scheduler
	cache         *crossseed.Cache
}

func NewCrossSeedHandler(
	instanceStore *models.InstanceStore,
	configStore *models.CrossSeedConfigStore,
	searcheeStore *models.SearcheeStore,
	decisionStore *models.DecisionStore,
	scheduler *crossseed.Scheduler,
	cache *crossseed.Cache,
) *CrossSeedHandler {
	return &CrossSeedHandler{
		instanceStore: instanceStore,
		configStore:   configStore,
		searcheeStore: searcheeStore,
		decisionStore: decisionStore,
		scheduler:     scheduler,
		cache:         cache,
	}
}

// Routes registers the cross-seed routes under an instance.
func (h *CrossSeedHandler) Routes(r chi.Router) {
	r.Route("/cross-seed", func(r chi.Router) {
		r.Get("/config", h.GetConfig)
		r.Put("/config", h.UpdateConfig)
		r.Post("/scan", h.TriggerScan)
		r.Get("/status", h.GetStatus)
		r.Get("/cache", h.GetCacheStats)
		r.Delete("/cache", h.ClearCache)
		r.Get("/history", h.ListHistory)
		r.Get("/history/{searcheeID}/decisions", h.ListDecisions)
		r.Delete("/history", h.ClearHistory)
	})
}

// GetStatusAll returns the scheduler state across all instances.
func (h *CrossSeedHandler) GetStatusAll(w http.ResponseWriter, _ *http.Request) {
	RespondJSON(w, http.StatusOK, h.scheduler.StatusAll())
}

// resolveInstance loads the instance or responds 404.
func (h *CrossSeedHandler) resolveInstance(w http.ResponseWriter, r *http.Request) (*models.Instance, bool) {
	instanceID, ok := ParseInstanceID(w, r)
	if !ok {
		return nil, false
	}

	instance, err := h.instanceStore.GetForUser(r.Context(), instanceID, models.DefaultUserID)
	if err != nil {
		RespondError(w, http.StatusNotFound, "Instance not found")
		return nil, false
	}
	return instance, true
}

// GetConfig returns the instance's cross-seed config, falling back to
// defaults when none has been saved yet.
func (h *CrossSeedHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	instance, ok := h.resolveInstance(w, r)
	if !ok {
		return
	}

	cfg, err := h.configStore.Get(r.Context(), instance.ID)
	if errors.Is(err, models.ErrConfigNotFound) {
		RespondJSON(w, http.StatusOK, models.DefaultCrossSeedConfig(instance.ID))
		return
	}
	if err != nil {
		log.Error().Err(err).Int("instanceID", instance.ID).Msg("Failed to load cross-seed config")
		RespondError(w, http.StatusInternalServerError, "Failed to load config")
		return
	}

	RespondJSON(w, http.StatusOK, cfg)
}

type updateConfigRequest struct {
	Enabled        bool   `json:"enabled"`
	IntervalHours  int    `json:"intervalHours"`
	DryRun         bool   `json:"dryRun"`
	CategorySuffix string `json:"categorySuffix"`
	Tag            string `json:"tag"`
	SkipRecheck    bool   `json:"skipRecheck"`
	IntegrationID  *int   `json:"integrationId"`
}

// UpdateConfig saves the config and re-arms the periodic schedule to match.
func (h *CrossSeedHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	instance, ok := h.resolveInstance(w, r)
	if !ok {
		return
	}

	var req updateConfigRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	cfg, err := h.configStore.Upsert(r.Context(), &models.CrossSeedConfig{
		InstanceID:     instance.ID,
		Enabled:        req.Enabled,
		IntervalHours:  req.IntervalHours,
		DryRun:         req.DryRun,
		CategorySuffix: req.CategorySuffix,
		Tag:            req.Tag,
		SkipRecheck:    req.SkipRecheck,
		IntegrationID:  req.IntegrationID,
	})
	if err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.scheduler.SetSchedule(cfg.InstanceID, cfg.Enabled, cfg.IntervalHours)

	log.Info().
		Int("instanceID", cfg.InstanceID).
		Bool("enabled", cfg.Enabled).
		Int("intervalHours", cfg.IntervalHours).
		Msg("Cross-seed config updated")

	RespondJSON(w, http.StatusOK, cfg)
}

type triggerScanRequest struct {
	Force  bool  `json:"force"`
	DryRun *bool `json:"dryRun"`
}

// TriggerScan runs a manual scan and returns its result. Responds 409 when
// the instance already has one running.
func (h *CrossSeedHandler) TriggerScan(w http.ResponseWriter, r *http.Request) {
	instance, ok := h.resolveInstance(w, r)
	if !ok {
		return
	}

	var req triggerScanRequest
	if r.ContentLength > 0 && !DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.scheduler.TriggerManualScan(r.Context(), crossseed.ScanOptions{
		InstanceID:     instance.ID,
		UserID:         models.DefaultUserID,
		Force:          req.Force,
		DryRunOverride: req.DryRun,
	})
	if errors.Is(err, crossseed.ErrScanInProgress) {
		RespondError(w, http.StatusConflict, "A scan is already running for this instance")
		return
	}
	if err != nil {
		log.Error().Err(err).Int("instanceID", instance.ID).Msg("Failed to run cross-seed scan")
		RespondError(w, http.StatusInternalServerError, "Failed to run scan")
		return
	}

	RespondJSON(w, http.StatusOK, result)
}

// GetStatus returns the scheduler slot state plus persisted run times.
func (h *CrossSeedHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	instance, ok := h.resolveInstance(w, r)
	if !ok {
		return
	}

	status := h.scheduler.Status(instance.ID)

	var lastRun any
	if cfg, err := h.configStore.Get(r.Context(), instance.ID); err == nil && cfg.LastRun.Valid {
		lastRun = cfg.LastRun.Time
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"instanceId": status.InstanceID,
		"running":    status.Running,
		"nextRun":    status.NextRun,
		"lastRun":    lastRun,
		"lastResult": status.LastResult,
	})
}

// GetCacheStats returns metadata cache and staged-output statistics.
func (h *CrossSeedHandler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	instance, ok := h.resolveInstance(w, r)
	if !ok {
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"cache":  h.cache.Stats(instance.ID),
		"output": h.cache.OutputStats(instance.ID),
	})
}

// ClearCache removes cached metadata and staged output for the instance.
func (h *CrossSeedHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	instance, ok := h.resolveInstance(w, r)
	if !ok {
		return
	}

	removed := h.cache.Clear(instance.ID) + h.cache.ClearOutput(instance.ID)
	log.Info().Int("instanceID", instance.ID).Int("removed", removed).Msg("Cross-seed cache cleared")

	RespondJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// ListHistory returns the instance's searchees with decision counts.
func (h *CrossSeedHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	instance, ok := h.resolveInstance(w, r)
	if !ok {
		return
	}

	limit := QueryInt(r, "limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}
	offset := QueryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	history, total, err := h.searcheeStore.History(r.Context(), instance.ID, limit, offset)
	if err != nil {
		log.Error().Err(err).Int("instanceID", instance.ID).Msg("Failed to load cross-seed history")
		RespondError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"entries": history,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// ListDecisions returns the decision ledger for one searchee.
func (h *CrossSeedHandler) ListDecisions(w http.ResponseWriter, r *http.Request) {
	instance, ok := h.resolveInstance(w, r)
	if !ok {
		return
	}

	searcheeID, ok := ParseIntParam(w, r, "searcheeID", "searchee ID")
	if !ok {
		return
	}

	searchee, err := h.searcheeStore.Get(r.Context(), searcheeID)
	if err != nil || searchee.InstanceID != instance.ID {
		RespondError(w, http.StatusNotFound, "Searchee not found")
		return
	}

	decisions, err := h.decisionStore.ListBySearchee(r.Context(), searcheeID)
	if err != nil {
		log.Error().Err(err).Int("searcheeID", searcheeID).Msg("Failed to load decisions")
		RespondError(w, http.StatusInternalServerError, "Failed to load decisions")
		return
	}

	RespondJSON(w, http.StatusOK, decisions)
}

// ClearHistory deletes the instance's searchees; decisions cascade.
func (h *CrossSeedHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	instance, ok := h.resolveInstance(w, r)
	if !ok {
		return
	}

	deleted, err := h.searcheeStore.DeleteByInstance(r.Context(), instance.ID)
	if err != nil {
		log.Error().Err(err).Int("instanceID", instance.ID).Msg("Failed to clear cross-seed history")
		RespondError(w, http.StatusInternalServerError, "Failed to clear history")
		return
	}

	log.Info().Int("instanceID", instance.ID).Int("deleted", deleted).Msg("Cross-seed history cleared")
	RespondJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}
