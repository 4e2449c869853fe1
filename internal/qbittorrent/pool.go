// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package qbittorrent

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/seedcross/internal/models"
)

const healthCheckInterval = 60 * time.Second

// Pool caches one authenticated client per instance and re-authenticates
// when a cached session goes stale.
type Pool struct {
	instanceStore *models.InstanceStore

	mu          sync.Mutex
	clients     map[int]*Client
	lastHealthy map[int]time.Time
}

func NewPool(instanceStore *models.InstanceStore) *Pool {
	return &Pool{
		instanceStore: instanceStore,
		clients:       make(map[int]*Client),
		lastHealthy:   make(map[int]time.Time),
	}
}

// GetClient returns a logged-in client for the instance, creating or
// re-creating one as needed. An error here is an authentication or
// connectivity failure.
func (p *Pool) GetClient(ctx context.Context, instanceID int) (*Client, error) {
	p.mu.Lock()
	client, cached := p.clients[instanceID]
	healthyAt := p.lastHealthy[instanceID]
	p.mu.Unlock()

	if cached && time.Since(healthyAt) < healthCheckInterval {
		return client, nil
	}

	if cached {
		// Cheap liveness probe; qBittorrent sessions expire quietly.
		if _, err := client.GetWebAPIVersionCtx(ctx); err == nil {
			p.markHealthy(instanceID, client)
			return client, nil
		}
		log.Debug().Int("instanceID", instanceID).Msg("Cached qBittorrent session stale, reconnecting")
	}

	instance, err := p.instanceStore.Get(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	client, err = NewClient(ctx, instance)
	if err != nil {
		return nil, err
	}

	p.markHealthy(instanceID, client)
	return client, nil
}

func (p *Pool) markHealthy(instanceID int, client *Client) {
	p.mu.Lock()
	p.clients[instanceID] = client
	p.lastHealthy[instanceID] = time.Now()
	p.mu.Unlock()
}

// Remove drops a cached client, e.g. after its instance is deleted.
func (p *Pool) Remove(instanceID int) {
	p.mu.Lock()
	delete(p.clients, instanceID)
	delete(p.lastHealthy, instanceID)
	p.mu.Unlock()
}
