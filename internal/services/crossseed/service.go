// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package crossseed finds alternate releases of torrents an instance
// already seeds and injects them so they seed on additional trackers
// without re-downloading data.
//
// Matching is file-level: candidate metadata is downloaded, decoded and
// compared against the source torrent's file-size multiset, never by title
// similarity alone. Every candidate considered is recorded in a decision
// ledger so later scans do not repeat downloads or injections.
package crossseed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/seedcross/internal/metrics"
	"github.com/autobrr/seedcross/internal/models"
	"github.com/autobrr/seedcross/internal/qbittorrent"
	"github.com/autobrr/seedcross/pkg/bencode"
	"github.com/autobrr/seedcross/pkg/hashutil"
	"github.com/autobrr/seedcross/pkg/prowlarr"
)

// TorrentClient is the slice of the qBittorrent API a scan needs.
type TorrentClient interface {
	GetTorrents(ctx context.Context) ([]qbt.Torrent, error)
	GetTorrentFiles(ctx context.Context, hash string) ([]FileInfo, error)
	AddTorrent(ctx context.Context, torrent []byte, options map[string]string) error
}

// ClientPool hands out authenticated torrent clients per instance. An error
// from GetClient is an authentication or connectivity failure and is fatal
// to the scan.
type ClientPool interface {
	GetClient(ctx context.Context, instanceID int) (TorrentClient, error)
}

// IndexerClient is the slice of the Prowlarr API a scan needs.
type IndexerClient interface {
	Search(ctx context.Context, query string) ([]prowlarr.SearchResult, error)
	Download(ctx context.Context, result prowlarr.SearchResult) ([]byte, error)
}

// IndexerFactory builds an IndexerClient for a resolved integration.
type IndexerFactory func(integration *models.Integration) IndexerClient

// Service runs cross-seed scans for qBittorrent instances.
type Service struct {
	instanceStore    *models.InstanceStore
	integrationStore *models.IntegrationStore
	configStore      *models.CrossSeedConfigStore
	searcheeStore    *models.SearcheeStore
	decisionStore    *models.DecisionStore
	cache            *Cache

	clients    ClientPool
	newIndexer IndexerFactory
	tolerance  float64
}

// NewService wires the scan orchestrator to its collaborators.
func NewService(
	instanceStore *models.InstanceStore,
	integrationStore *models.IntegrationStore,
	configStore *models.CrossSeedConfigStore,
	searcheeStore *models.SearcheeStore,
	decisionStore *models.DecisionStore,
	pool *qbittorrent.Pool,
	cache *Cache,
) *Service {
	return &Service{
		instanceStore:    instanceStore,
		integrationStore: integrationStore,
		configStore:      configStore,
		searcheeStore:    searcheeStore,
		decisionStore:    decisionStore,
		cache:            cache,
		clients:          &poolAdapter{pool: pool},
		newIndexer: func(integration *models.Integration) IndexerClient {
			return prowlarr.NewClient(prowlarr.Config{
				Host:   integration.Host,
				APIKey: integration.APIKey,
			})
		},
		tolerance: DefaultSizeTolerance,
	}
}

// Scan runs one end-to-end cross-seed scan for an instance. It always
// returns a result object; failures surface through ScanResult.Errors.
// Setup failures abort with a single error and zero progress, per-torrent
// failures are appended and processing continues.
func (s *Service) Scan(ctx context.Context, opts ScanOptions) *ScanResult {
	result := &ScanResult{
		InstanceID: opts.InstanceID,
		Errors:     []string{},
		DryRun:     true,
		StartedAt:  time.Now(),
	}

	fail := func(msg string) *ScanResult {
		result.Errors = append(result.Errors, msg)
		result.CompletedAt = time.Now()
		metrics.RecordScan(result.MatchesFound, result.Added, false)
		return result
	}

	cfg, err := s.configStore.Get(ctx, opts.InstanceID)
	if err != nil {
		if errors.Is(err, models.ErrConfigNotFound) {
			return fail("cross-seed not configured for this instance")
		}
		return fail(fmt.Sprintf("failed to load cross-seed config: %v", err))
	}

	dryRun := cfg.DryRun
	if opts.DryRunOverride != nil {
		dryRun = *opts.DryRunOverride
	}
	result.DryRun = dryRun

	if cfg.IntegrationID == nil {
		return fail("no indexer integration configured")
	}

	integration, err := s.integrationStore.GetForUser(ctx, *cfg.IntegrationID, opts.UserID)
	if err != nil {
		return fail("indexer integration not found or access denied")
	}

	client, err := s.clients.GetClient(ctx, opts.InstanceID)
	if err != nil {
		return fail(fmt.Sprintf("qBittorrent login failed: %v", err))
	}

	torrents, err := client.GetTorrents(ctx)
	if err != nil {
		return fail(fmt.Sprintf("failed to fetch torrents: %v", err))
	}
	result.TorrentsTotal = len(torrents)

	var completed []qbt.Torrent
	for _, t := range torrents {
		if t.Progress == 1 {
			completed = append(completed, t)
		}
	}

	log.Info().
		Int("instanceID", opts.InstanceID).
		Int("completed", len(completed)).
		Int("total", len(torrents)).
		Bool("dryRun", dryRun).
		Bool("force", opts.Force).
		Msg("Starting cross-seed scan")

	// Loaded even on forced scans: force bypasses the skip below, but prior
	// decisions still short-circuit candidates already evaluated.
	existingSearchees := make(map[string]*models.Searchee)
	searchees, err := s.searcheeStore.ListByInstance(ctx, opts.InstanceID)
	if err != nil {
		return fail(fmt.Sprintf("failed to load scan history: %v", err))
	}
	for _, se := range searchees {
		existingSearchees[se.TorrentHash] = se
	}

	// Every hash currently held by the client, extended during the scan as
	// injections succeed.
	heldHashes := make(map[string]bool, len(torrents))
	for _, t := range torrents {
		heldHashes[hashutil.Normalize(t.Hash)] = true
	}

	indexer := s.newIndexer(integration)

	for _, torrent := range completed {
		hash := hashutil.Normalize(torrent.Hash)
		existing := existingSearchees[hash]
		if existing != nil && !opts.Force {
			result.Skipped++
			continue
		}

		result.Scanned++

		if err := s.processTorrent(ctx, client, indexer, cfg, torrent, existing, heldHashes, dryRun, result); err != nil {
			msg := fmt.Sprintf("error processing %s: %v", torrent.Name, err)
			log.Error().Err(err).Str("torrent", torrent.Name).Msg("Cross-seed torrent processing failed")
			result.Errors = append(result.Errors, msg)
		}
	}

	if err := s.configStore.SetLastRun(ctx, opts.InstanceID, time.Now()); err != nil {
		log.Warn().Err(err).Int("instanceID", opts.InstanceID).Msg("Failed to persist last run time")
	}

	result.CompletedAt = time.Now()
	metrics.RecordScan(result.MatchesFound, result.Added, true)

	log.Info().
		Int("instanceID", opts.InstanceID).
		Int("scanned", result.Scanned).
		Int("skipped", result.Skipped).
		Int("matches", result.MatchesFound).
		Int("added", result.Added).
		Dur("duration", result.CompletedAt.Sub(result.StartedAt)).
		Msg("Cross-seed scan complete")

	return result
}

// processTorrent evaluates every pre-filtered candidate for one source
// torrent, stopping at the first actionable match. A returned error counts
// against the torrent, not the scan.
func (s *Service) processTorrent(
	ctx context.Context,
	client TorrentClient,
	indexer IndexerClient,
	cfg *models.CrossSeedConfig,
	torrent qbt.Torrent,
	existing *models.Searchee,
	heldHashes map[string]bool,
	dryRun bool,
	result *ScanResult,
) error {
	files, err := client.GetTorrentFiles(ctx, torrent.Hash)
	if err != nil {
		log.Warn().Err(err).Str("torrent", torrent.Name).Msg("Failed to list torrent files")
		return nil
	}
	if len(files) == 0 {
		log.Warn().Str("torrent", torrent.Name).Msg("No files found for torrent")
		return nil
	}

	sizes := make([]int64, len(files))
	for i, f := range files {
		sizes[i] = f.Size
	}

	query := BuildSearchQuery(torrent.Name)
	log.Debug().Str("torrent", torrent.Name).Str("query", query).Msg("Searching indexer")

	searchResults, err := indexer.Search(ctx, query)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("search failed for %s: %v", torrent.Name, err))
		return nil
	}

	var candidates []prowlarr.SearchResult
	for _, r := range searchResults {
		check := PreFilterCandidate(torrent.Name, torrent.Size, r.Title, r.Size, s.tolerance)
		if check.Pass {
			candidates = append(candidates, r)
		}
	}

	log.Debug().
		Str("torrent", torrent.Name).
		Int("results", len(searchResults)).
		Int("passedPreFilter", len(candidates)).
		Msg("Indexer search done")

	searcheeID := 0
	if existing != nil {
		searcheeID = existing.ID
	}

	upsertSearchee := func() error {
		id, err := s.searcheeStore.Upsert(ctx, &models.Searchee{
			InstanceID:  result.InstanceID,
			TorrentHash: torrent.Hash,
			TorrentName: torrent.Name,
			TotalSize:   torrent.Size,
			FileCount:   len(files),
			FileSizes:   models.SerializeFileSizes(sizes),
		})
		if err != nil {
			return err
		}
		searcheeID = id
		return nil
	}

	for _, candidate := range candidates {
		// Fast pre-check on the advertised hash; the authoritative dedup
		// happens below on the recomputed hash.
		if candidate.InfoHash != "" && heldHashes[hashutil.Normalize(candidate.InfoHash)] {
			log.Debug().Str("candidate", candidate.Title).Msg("Skipping candidate already in client")
			continue
		}

		if searcheeID != 0 {
			prior, err := s.decisionStore.Get(ctx, searcheeID, candidate.GUID)
			if err == nil {
				if touchErr := s.decisionStore.TouchLastSeen(ctx, searcheeID, candidate.GUID); touchErr != nil {
					log.Warn().Err(touchErr).Msg("Failed to touch decision")
				}
				if DecisionKind(prior.Decision).Matched() {
					// Already matched on an earlier scan; never reconsidered.
					continue
				}
			} else if !errors.Is(err, models.ErrDecisionNotFound) {
				return err
			}
		}

		blob, err := indexer.Download(ctx, candidate)
		if err != nil || len(blob) == 0 {
			log.Warn().Err(err).Str("candidate", candidate.Title).Msg("Failed to download candidate torrent")
			continue
		}

		infoHash, hashKnown := bencode.InfoHash(blob)
		if hashKnown && heldHashes[infoHash] {
			log.Debug().Str("candidate", candidate.Title).Msg("Skipping candidate already in client (by recomputed infohash)")
			continue
		}

		candidateEntries, ok := bencode.ExtractFiles(blob)
		if !ok {
			log.Warn().Str("candidate", candidate.Title).Msg("Failed to parse candidate torrent metadata")
			continue
		}
		candidateFiles := make([]FileInfo, len(candidateEntries))
		for i, e := range candidateEntries {
			candidateFiles[i] = FileInfo{Name: e.Name, Size: e.Size}
		}

		matchResult := MatchBySizes(files, candidateFiles)

		if hashKnown {
			if err := s.cache.Put(result.InstanceID, infoHash, blob); err != nil {
				log.Warn().Err(err).Msg("Failed to cache candidate torrent")
			}
		}

		if searcheeID == 0 {
			if err := upsertSearchee(); err != nil {
				return err
			}
		}

		var infoHashPtr *string
		if hashKnown {
			infoHashPtr = &infoHash
		}
		if err := s.decisionStore.Upsert(ctx, &models.Decision{
			SearcheeID:    searcheeID,
			GUID:          candidate.GUID,
			InfoHash:      infoHashPtr,
			CandidateName: candidate.Title,
			CandidateSize: candidate.Size,
			Decision:      string(matchResult.Decision),
		}); err != nil {
			return err
		}

		if !matchResult.Matched {
			continue
		}

		result.MatchesFound++
		log.Info().
			Str("torrent", torrent.Name).
			Str("candidate", candidate.Title).
			Str("decision", string(matchResult.Decision)).
			Msg("Cross-seed match found")

		if dryRun {
			if hashKnown {
				if _, err := s.cache.PutOutput(result.InstanceID, candidate.Title, infoHash, blob); err != nil {
					log.Warn().Err(err).Msg("Failed to stage torrent to output")
				}
			}
		} else {
			if err := s.injectTorrent(ctx, client, cfg, torrent, blob); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("failed to add torrent: %s", candidate.Title))
			} else {
				result.Added++
				if hashKnown {
					heldHashes[infoHash] = true
				}
				log.Info().Str("candidate", candidate.Title).Msg("Added cross-seed torrent")
			}
		}

		// First match wins; remaining candidates are not evaluated.
		break
	}

	if searcheeID == 0 {
		return upsertSearchee()
	}
	if existing != nil {
		return s.searcheeStore.Touch(ctx, searcheeID)
	}
	return nil
}

// injectTorrent adds the matched metadata to the client against the source
// torrent's save path. With skip-recheck the torrent starts immediately;
// without it the torrent starts paused so the recheck can be observed.
func (s *Service) injectTorrent(ctx context.Context, client TorrentClient, cfg *models.CrossSeedConfig, source qbt.Torrent, blob []byte) error {
	category := strings.TrimPrefix(cfg.CategorySuffix, "_")
	if source.Category != "" {
		category = source.Category + cfg.CategorySuffix
	}

	tag := cfg.Tag
	if tag == "" {
		tag = models.DefaultTag
	}

	options := map[string]string{
		"savepath":      source.SavePath,
		"category":      category,
		"tags":          tag,
		"skip_checking": boolField(cfg.SkipRecheck),
		"paused":        boolField(!cfg.SkipRecheck),
	}

	return client.AddTorrent(ctx, blob, options)
}

func boolField(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// poolAdapter narrows *qbittorrent.Pool to the ClientPool interface.
type poolAdapter struct {
	pool *qbittorrent.Pool
}

func (a *poolAdapter) GetClient(ctx context.Context, instanceID int) (TorrentClient, error) {
	client, err := a.pool.GetClient(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	return &clientAdapter{client: client}, nil
}

// clientAdapter converts the wrapper client's file pairs to FileInfo.
type clientAdapter struct {
	client *qbittorrent.Client
}

func (a *clientAdapter) GetTorrents(ctx context.Context) ([]qbt.Torrent, error) {
	return a.client.GetTorrents(ctx)
}

func (a *clientAdapter) GetTorrentFiles(ctx context.Context, hash string) ([]FileInfo, error) {
	pairs, err := a.client.GetTorrentFiles(ctx, hash)
	if err != nil {
		return nil, err
	}
	files := make([]FileInfo, len(pairs))
	for i, p := range pairs {
		files[i] = FileInfo{Name: p.Name, Size: p.Size}
	}
	return files, nil
}

func (a *clientAdapter) AddTorrent(ctx context.Context, torrent []byte, options map[string]string) error {
	return a.client.AddTorrent(ctx, torrent, options)
}
