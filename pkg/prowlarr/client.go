// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package prowlarr provides a minimal Prowlarr API wrapper for release
// search and torrent download.
package prowlarr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go"
)

// ErrNoDownloadURL is returned when a search result carries no downloadable
// torrent link (magnet-only results cannot be file-matched).
var ErrNoDownloadURL = errors.New("prowlarr: result has no download url")

// maxTorrentSize caps candidate metadata downloads; real torrent files are
// a few hundred KB at most.
const maxTorrentSize = 10 << 20

// Config holds the options for constructing a Client.
type Config struct {
	Host       string
	APIKey     string
	Timeout    int
	HTTPClient *http.Client
	UserAgent  string
}

// Client provides access to Prowlarr's aggregated search and download
// endpoints.
type Client struct {
	host       string
	apiKey     string
	httpClient *http.Client
	userAgent  string
}

// NewClient constructs a new Client using the provided configuration.
func NewClient(cfg Config) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = "seedcross"
	}

	return &Client{
		host:       strings.TrimRight(cfg.Host, "/"),
		apiKey:     cfg.APIKey,
		httpClient: client,
		userAgent:  ua,
	}
}

// SearchResult is one release returned by Prowlarr's aggregated search.
type SearchResult struct {
	GUID        string `json:"guid"`
	IndexerID   int    `json:"indexerId"`
	Indexer     string `json:"indexer"`
	Title       string `json:"title"`
	Size        *int64 `json:"size"`
	PublishDate string `json:"publishDate"`
	DownloadURL string `json:"downloadUrl"`
	MagnetURL   string `json:"magnetUrl"`
	InfoHash    string `json:"infoHash"`
	Seeders     *int   `json:"seeders"`
	Leechers    *int   `json:"leechers"`
}

// Search queries every indexer Prowlarr aggregates for the given term.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	if c.httpClient == nil {
		return nil, fmt.Errorf("prowlarr HTTP client is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	endpoint, err := url.JoinPath(c.host, "api", "v1", "search")
	if err != nil {
		return nil, fmt.Errorf("failed to build prowlarr endpoint: %w", err)
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("type", "search")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build prowlarr request: %w", err)
	}
	req.URL.RawQuery = params.Encode()
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prowlarr search failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// continue
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("prowlarr returned %d (unauthorized)", resp.StatusCode)
	default:
		return nil, fmt.Errorf("prowlarr search failed: HTTP %d", resp.StatusCode)
	}

	var results []SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode prowlarr response: %w", err)
	}

	return results, nil
}

// Download fetches the torrent metadata blob for a search result. Links
// pointing at foreign trackers are routed through Prowlarr's per-indexer
// download proxy so indexer credentials stay with Prowlarr. Transient
// failures are retried.
func (c *Client) Download(ctx context.Context, result SearchResult) ([]byte, error) {
	if strings.TrimSpace(result.DownloadURL) == "" {
		return nil, ErrNoDownloadURL
	}
	if ctx == nil {
		ctx = context.Background()
	}

	fetchURL := result.DownloadURL
	if host := c.hostName(); host == "" || !strings.Contains(result.DownloadURL, host) {
		endpoint, err := url.JoinPath(c.host, "api", "v1", "indexer", fmt.Sprintf("%d", result.IndexerID), "download")
		if err != nil {
			return nil, fmt.Errorf("failed to build prowlarr download endpoint: %w", err)
		}
		fetchURL = endpoint + "?link=" + url.QueryEscape(result.DownloadURL)
	}

	var blob []byte
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
			if err != nil {
				return err
			}
			c.setHeaders(req)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("prowlarr download failed: HTTP %d", resp.StatusCode)
			}

			blob, err = io.ReadAll(io.LimitReader(resp.Body, maxTorrentSize))
			return err
		},
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}

	return blob, nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	req.Header.Set("User-Agent", c.userAgent)
}

func (c *Client) hostName() string {
	u, err := url.Parse(c.host)
	if err != nil {
		return ""
	}
	return u.Host
}
