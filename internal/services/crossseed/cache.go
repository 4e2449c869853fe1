// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package crossseed

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	cacheDirName  = "cross-seed-cache"
	outputDirName = "cross-seeds"

	torrentExt  = ".torrent"
	maxNameLen  = 200
	hashPrefix  = 8
	invalidSet  = `<>:"/\|?*`
	defaultMode = 0o755
)

// Cache stores downloaded candidate torrent blobs content-addressed by
// info-hash, scoped per client instance, plus a separate output folder for
// dry-run staging. Identical blobs across scans collapse to one file.
type Cache struct {
	cacheDir  string
	outputDir string
}

// CacheStats summarizes one instance's cache scope.
type CacheStats struct {
	Count     int   `json:"count"`
	TotalSize int64 `json:"totalSizeBytes"`
}

// OutputStats summarizes one instance's dry-run output scope.
type OutputStats struct {
	Count int      `json:"count"`
	Files []string `json:"files"`
}

// NewCache creates the cache and output roots under dataDir.
func NewCache(dataDir string) (*Cache, error) {
	c := &Cache{
		cacheDir:  filepath.Join(dataDir, cacheDirName),
		outputDir: filepath.Join(dataDir, outputDirName),
	}
	for _, dir := range []string{c.cacheDir, c.outputDir} {
		if err := os.MkdirAll(dir, defaultMode); err != nil {
			return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
		}
	}
	return c, nil
}

func (c *Cache) instanceCacheDir(instanceID int) string {
	return filepath.Join(c.cacheDir, strconv.Itoa(instanceID))
}

func (c *Cache) instanceOutputDir(instanceID int) string {
	return filepath.Join(c.outputDir, strconv.Itoa(instanceID))
}

func (c *Cache) entryPath(instanceID int, infoHash string) string {
	return filepath.Join(c.instanceCacheDir(instanceID), infoHash+torrentExt)
}

// sanitizeName makes a release title safe as a file name component.
func sanitizeName(name string) string {
	sanitized := strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidSet, r) {
			return '_'
		}
		return r
	}, name)
	if len(sanitized) > maxNameLen {
		sanitized = sanitized[:maxNameLen]
	}
	return sanitized
}

// Put stores a candidate blob under (instanceID, infoHash).
func (c *Cache) Put(instanceID int, infoHash string, blob []byte) error {
	if err := os.MkdirAll(c.instanceCacheDir(instanceID), defaultMode); err != nil {
		return err
	}
	if err := os.WriteFile(c.entryPath(instanceID, infoHash), blob, 0o644); err != nil {
		return err
	}
	log.Debug().Int("instanceID", instanceID).Str("infoHash", infoHash).Msg("Cached torrent")
	return nil
}

// Get returns the cached blob, or nil when the entry does not exist.
func (c *Cache) Get(instanceID int, infoHash string) []byte {
	blob, err := os.ReadFile(c.entryPath(instanceID, infoHash))
	if err != nil {
		return nil
	}
	return blob
}

// Has reports whether an entry exists for (instanceID, infoHash).
func (c *Cache) Has(instanceID int, infoHash string) bool {
	_, err := os.Stat(c.entryPath(instanceID, infoHash))
	return err == nil
}

// Clear removes every cache entry for the instance and returns how many
// were deleted.
func (c *Cache) Clear(instanceID int) int {
	return removeTorrentFiles(c.instanceCacheDir(instanceID))
}

// Stats returns the entry count and total size for the instance's cache.
func (c *Cache) Stats(instanceID int) CacheStats {
	stats := CacheStats{}
	for _, entry := range listTorrentFiles(c.instanceCacheDir(instanceID)) {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stats.Count++
		stats.TotalSize += info.Size()
	}
	return stats
}

// PutOutput stages a blob in the dry-run output scope and returns its path.
// The name is sanitized and suffixed with the first 8 hex characters of the
// info-hash so distinct releases with the same title cannot collide.
func (c *Cache) PutOutput(instanceID int, name, infoHash string, blob []byte) (string, error) {
	dir := c.instanceOutputDir(instanceID)
	if err := os.MkdirAll(dir, defaultMode); err != nil {
		return "", err
	}

	short := infoHash
	if len(short) > hashPrefix {
		short = short[:hashPrefix]
	}
	path := filepath.Join(dir, fmt.Sprintf("%s[%s]%s", sanitizeName(name), short, torrentExt))
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		return "", err
	}
	log.Info().Int("instanceID", instanceID).Str("path", path).Msg("Staged torrent to output")
	return path, nil
}

// ClearOutput removes every staged output file for the instance.
func (c *Cache) ClearOutput(instanceID int) int {
	return removeTorrentFiles(c.instanceOutputDir(instanceID))
}

// OutputStats lists the instance's staged output files.
func (c *Cache) OutputStats(instanceID int) OutputStats {
	stats := OutputStats{Files: []string{}}
	for _, entry := range listTorrentFiles(c.instanceOutputDir(instanceID)) {
		stats.Count++
		stats.Files = append(stats.Files, entry.Name())
	}
	return stats
}

// Expire deletes cache entries whose last-modified time is older than
// maxAgeDays. Housekeeping only; the scan path never calls it.
func (c *Cache) Expire(instanceID int, maxAgeDays int) int {
	cutoff := time.Now().AddDate(0, 0, -maxAgeDays)
	dir := c.instanceCacheDir(instanceID)

	deleted := 0
	for _, entry := range listTorrentFiles(dir) {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, entry.Name())); err == nil {
				deleted++
			}
		}
	}
	if deleted > 0 {
		log.Info().Int("instanceID", instanceID).Int("deleted", deleted).Msg("Expired cached torrents")
	}
	return deleted
}

func listTorrentFiles(dir string) []os.DirEntry {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	files := entries[:0]
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), torrentExt) {
			files = append(files, entry)
		}
	}
	return files
}

func removeTorrentFiles(dir string) int {
	removed := 0
	for _, entry := range listTorrentFiles(dir) {
		if err := os.Remove(filepath.Join(dir, entry.Name())); err == nil {
			removed++
		}
	}
	return removed
}
