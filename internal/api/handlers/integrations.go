// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/seedcross/internal/models"
)

// IntegrationsHandler handles indexer integration management.
type IntegrationsHandler struct {
	integrationStore *models.IntegrationStore
}

func NewIntegrationsHandler(integrationStore *models.IntegrationStore) *IntegrationsHandler {
	return &IntegrationsHandler{integrationStore: integrationStore}
}

func (h *IntegrationsHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
}

func (h *IntegrationsHandler) List(w http.ResponseWriter, r *http.Request) {
	integrations, err := h.integrationStore.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list integrations")
		RespondError(w, http.StatusInternalServerError, "Failed to list integrations")
		return
	}
	RespondJSON(w, http.StatusOK, integrations)
}

type createIntegrationRequest struct {
	Name   string `json:"name"`
	Host   string `json:"host"`
	APIKey string `json:"apiKey"`
}

func (h *IntegrationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createIntegrationRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	integration, err := h.integrationStore.Create(r.Context(), &models.Integration{
		UserID: models.DefaultUserID,
		Name:   req.Name,
		Host:   req.Host,
		APIKey: req.APIKey,
	})
	if err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	log.Info().Int("integrationID", integration.ID).Str("name", integration.Name).Msg("Integration created")
	RespondJSON(w, http.StatusCreated, integration)
}
