// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package qbittorrent wraps the go-qbittorrent client with per-instance
// pooling. The pool owns authentication: a client handed out by GetClient
// has a live session.
package qbittorrent

import (
	"context"
	"fmt"
	"time"

	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/seedcross/internal/models"
)

const loginTimeout = 30 * time.Second

// Client is an authenticated connection to one qBittorrent instance.
type Client struct {
	*qbt.Client
	instanceID int
}

// NewClient connects and logs in to the instance.
func NewClient(ctx context.Context, instance *models.Instance) (*Client, error) {
	qbtClient := qbt.NewClient(qbt.Config{
		Host:     instance.Host,
		Username: instance.Username,
		Password: instance.Password,
		Timeout:  30,
	})

	loginCtx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	if err := qbtClient.LoginCtx(loginCtx); err != nil {
		return nil, fmt.Errorf("qBittorrent login failed: %w", err)
	}

	log.Debug().Int("instanceID", instance.ID).Str("host", instance.Host).Msg("Connected to qBittorrent instance")

	return &Client{Client: qbtClient, instanceID: instance.ID}, nil
}

// InstanceID returns the instance this client is bound to.
func (c *Client) InstanceID() int { return c.instanceID }

// GetTorrents lists every torrent in the client.
func (c *Client) GetTorrents(ctx context.Context) ([]qbt.Torrent, error) {
	torrents, err := c.GetTorrentsCtx(ctx, qbt.TorrentFilterOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch torrents: %w", err)
	}
	return torrents, nil
}

// GetTorrentFiles returns the payload files of one torrent as name/size
// pairs.
func (c *Client) GetTorrentFiles(ctx context.Context, hash string) ([]FilePair, error) {
	files, err := c.GetFilesInformationCtx(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch files for %s: %w", hash, err)
	}
	if files == nil {
		return nil, nil
	}

	pairs := make([]FilePair, 0, len(*files))
	for _, f := range *files {
		pairs = append(pairs, FilePair{Name: f.Name, Size: f.Size})
	}
	return pairs, nil
}

// AddTorrent injects torrent metadata into the client. Options use the
// qBittorrent form field names (savepath, category, tags, skip_checking,
// paused).
func (c *Client) AddTorrent(ctx context.Context, torrent []byte, options map[string]string) error {
	if err := c.AddTorrentFromMemoryCtx(ctx, torrent, options); err != nil {
		return fmt.Errorf("failed to add torrent: %w", err)
	}
	return nil
}

// FilePair is a payload file as reported by qBittorrent.
type FilePair struct {
	Name string
	Size int64
}
