// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package api exposes the HTTP surface: instance and integration
// management, cross-seed configuration, scans, history and metrics.
package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/seedcross/internal/api/handlers"
	"github.com/autobrr/seedcross/internal/domain"
	"github.com/autobrr/seedcross/internal/metrics"
	"github.com/autobrr/seedcross/internal/models"
	"github.com/autobrr/seedcross/internal/qbittorrent"
	"github.com/autobrr/seedcross/internal/services/crossseed"
)

// Server hosts the REST API.
type Server struct {
	cfg  *domain.Config
	http *http.Server

	instancesHandler    *handlers.InstancesHandler
	integrationsHandler *handlers.IntegrationsHandler
	crossSeedHandler    *handlers.CrossSeedHandler
}

func NewServer(
	cfg *domain.Config,
	instanceStore *models.InstanceStore,
	integrationStore *models.IntegrationStore,
	configStore *models.CrossSeedConfigStore,
	searcheeStore *models.SearcheeStore,
	decisionStore *models.DecisionStore,
	pool *qbittorrent.Pool,
	scheduler *crossseed.Scheduler,
	cache *crossseed.Cache,
) *Server {
	return &Server{
		cfg:                 cfg,
		instancesHandler:    handlers.NewInstancesHandler(instanceStore, pool),
		integrationsHandler: handlers.NewIntegrationsHandler(integrationStore),
		crossSeedHandler: handlers.NewCrossSeedHandler(
			instanceStore, configStore, searcheeStore, decisionStore, scheduler, cache,
		),
	}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if s.cfg.MetricsEnabled {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(apiKeyAuth(s.cfg.APIKey))

		r.Route("/instances", func(r chi.Router) {
			s.instancesHandler.Routes(r)
			r.Route("/{instanceID}", func(r chi.Router) {
				r.Delete("/", s.instancesHandler.Delete)
				s.crossSeedHandler.Routes(r)
			})
		})

		r.Route("/integrations", func(r chi.Router) {
			s.integrationsHandler.Routes(r)
		})

		r.Get("/cross-seed/status", s.crossSeedHandler.GetStatusAll)
	})

	return r
}

// ListenAndServe starts the HTTP server and blocks until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

// apiKeyAuth guards the API with a static key. An empty configured key
// disables authentication, for use behind a trusted reverse proxy.
func apiKeyAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get("X-API-Key")
			if provided == "" {
				provided = r.URL.Query().Get("apikey")
			}

			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				log.Warn().Str("path", r.URL.Path).Msg("Rejected request with invalid API key")
				handlers.RespondError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
