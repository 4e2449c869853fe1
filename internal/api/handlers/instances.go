// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/seedcross/internal/models"
	"github.com/autobrr/seedcross/internal/qbittorrent"
)

// InstancesHandler handles qBittorrent instance management.
type InstancesHandler struct {
	instanceStore *models.InstanceStore
	pool          *qbittorrent.Pool
}

func NewInstancesHandler(instanceStore *models.InstanceStore, pool *qbittorrent.Pool) *InstancesHandler {
	return &InstancesHandler{
		instanceStore: instanceStore,
		pool:          pool,
	}
}

func (h *InstancesHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
}

func (h *InstancesHandler) List(w http.ResponseWriter, r *http.Request) {
	instances, err := h.instanceStore.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list instances")
		RespondError(w, http.StatusInternalServerError, "Failed to list instances")
		return
	}
	RespondJSON(w, http.StatusOK, instances)
}

type createInstanceRequest struct {
	Label    string `json:"label"`
	Host     string `json:"host"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *InstancesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createInstanceRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	instance, err := h.instanceStore.Create(r.Context(), &models.Instance{
		UserID:   models.DefaultUserID,
		Label:    req.Label,
		Host:     req.Host,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	log.Info().Int("instanceID", instance.ID).Str("label", instance.Label).Msg("Instance created")
	RespondJSON(w, http.StatusCreated, instance)
}

func (h *InstancesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := ParseInstanceID(w, r)
	if !ok {
		return
	}

	if _, err := h.instanceStore.GetForUser(r.Context(), instanceID, models.DefaultUserID); err != nil {
		RespondError(w, http.StatusNotFound, "Instance not found")
		return
	}

	if err := h.instanceStore.Delete(r.Context(), instanceID); err != nil {
		log.Error().Err(err).Int("instanceID", instanceID).Msg("Failed to delete instance")
		RespondError(w, http.StatusInternalServerError, "Failed to delete instance")
		return
	}

	h.pool.Remove(instanceID)
	RespondJSON(w, http.StatusOK, map[string]int{"deleted": instanceID})
}
