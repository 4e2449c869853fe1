// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package crossseed

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/seedcross/internal/models"
)

// ErrScanInProgress is returned when a scan is requested for an instance
// that already has one running.
var ErrScanInProgress = errors.New("a scan is already running for this instance")

// instanceSlot holds the scheduling state for one instance. At most one
// timer and one running scan exist per instance at any time.
type instanceSlot struct {
	timer         *time.Timer
	running       bool
	intervalHours int
	nextRun       *time.Time
	lastResult    *ScanResult
}

// Scheduler runs periodic and manual cross-seed scans, one instance at a
// time per instance. Instances are independent: scans for different
// instances may overlap freely.
type Scheduler struct {
	service     *Service
	configStore *models.CrossSeedConfigStore

	mu    sync.Mutex
	slots map[int]*instanceSlot
}

// SchedulerStatus is the externally visible state of one instance's slot.
type SchedulerStatus struct {
	InstanceID int         `json:"instanceId"`
	Running    bool        `json:"running"`
	NextRun    *time.Time  `json:"nextRun"`
	LastResult *ScanResult `json:"lastResult"`
}

func NewScheduler(service *Service, configStore *models.CrossSeedConfigStore) *Scheduler {
	return &Scheduler{
		service:     service,
		configStore: configStore,
		slots:       make(map[int]*instanceSlot),
	}
}

// Start arms timers for every enabled config. Called once at boot.
func (s *Scheduler) Start(ctx context.Context) error {
	configs, err := s.configStore.ListEnabled(ctx)
	if err != nil {
		return err
	}

	for _, cfg := range configs {
		s.SetSchedule(cfg.InstanceID, cfg.Enabled, cfg.IntervalHours)
	}

	log.Info().Int("instances", len(configs)).Msg("Cross-seed scheduler started")
	return nil
}

// SetSchedule arms or disarms the periodic timer for an instance. Arming
// replaces any previously armed timer; it never interrupts a scan that is
// already running.
func (s *Scheduler) SetSchedule(instanceID int, enabled bool, intervalHours int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := s.slot(instanceID)
	if slot.timer != nil {
		slot.timer.Stop()
		slot.timer = nil
		slot.nextRun = nil
	}

	if !enabled || intervalHours < 1 {
		s.persistNextRun(instanceID, nil)
		log.Debug().Int("instanceID", instanceID).Msg("Cross-seed schedule disarmed")
		return
	}

	interval := time.Duration(intervalHours) * time.Hour
	next := time.Now().Add(interval)
	slot.intervalHours = intervalHours
	slot.nextRun = &next
	slot.timer = time.AfterFunc(interval, func() { s.fire(instanceID) })
	s.persistNextRun(instanceID, &next)

	log.Debug().
		Int("instanceID", instanceID).
		Time("nextRun", next).
		Msg("Cross-seed schedule armed")
}

// fire runs a scheduled scan and re-arms the timer from the current config
// so interval changes made while the scan ran take effect. A failed config
// read re-arms with the previous interval; one bad read must not disarm
// the instance for good.
func (s *Scheduler) fire(instanceID int) {
	ctx := context.Background()

	cfg, err := s.configStore.Get(ctx, instanceID)
	if err != nil {
		log.Error().Err(err).Int("instanceID", instanceID).Msg("Scheduled scan skipped, config unavailable")
		s.mu.Lock()
		interval := s.slot(instanceID).intervalHours
		s.mu.Unlock()
		s.SetSchedule(instanceID, true, interval)
		return
	}
	if !cfg.Enabled {
		return
	}

	if err := s.runScanAsync(ScanOptions{InstanceID: instanceID, UserID: models.DefaultUserID}); err != nil {
		// A manual scan got in first; the work is being done regardless.
		log.Debug().Int("instanceID", instanceID).Msg("Scheduled scan skipped, scan already running")
	}

	s.SetSchedule(instanceID, cfg.Enabled, cfg.IntervalHours)
}

// TriggerManualScan runs a scan immediately and returns its result. It
// returns ErrScanInProgress when the instance already has a scan running;
// the periodic timer is left untouched.
func (s *Scheduler) TriggerManualScan(ctx context.Context, opts ScanOptions) (*ScanResult, error) {
	slot, err := s.claim(opts.InstanceID)
	if err != nil {
		return nil, err
	}

	result := s.service.Scan(ctx, opts)
	s.finish(slot, result)
	return result, nil
}

// runScanAsync executes a timer-driven scan in the background. Nothing
// waits on a periodic scan, so its context never carries a caller.
func (s *Scheduler) runScanAsync(opts ScanOptions) error {
	slot, err := s.claim(opts.InstanceID)
	if err != nil {
		return err
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Int("instanceID", opts.InstanceID).Msg("Cross-seed scan panicked")
				s.finish(slot, nil)
			}
		}()

		s.finish(slot, s.service.Scan(context.Background(), opts))
	}()

	return nil
}

// claim is the single-flight gate: it marks the instance as running or
// fails with ErrScanInProgress.
func (s *Scheduler) claim(instanceID int) (*instanceSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := s.slot(instanceID)
	if slot.running {
		return nil, ErrScanInProgress
	}
	slot.running = true
	return slot, nil
}

// finish releases the running flag and records the scan result.
func (s *Scheduler) finish(slot *instanceSlot, result *ScanResult) {
	s.mu.Lock()
	slot.running = false
	if result != nil {
		slot.lastResult = result
	}
	s.mu.Unlock()
}

// IsRunning reports whether a scan is in flight for the instance.
func (s *Scheduler) IsRunning(instanceID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slot(instanceID).running
}

// Status returns the slot state for one instance.
func (s *Scheduler) Status(instanceID int) SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot := s.slot(instanceID)
	return SchedulerStatus{
		InstanceID: instanceID,
		Running:    slot.running,
		NextRun:    slot.nextRun,
		LastResult: slot.lastResult,
	}
}

// StatusAll returns the slot state for every instance the scheduler has
// seen, ordered by instance ID.
func (s *Scheduler) StatusAll() []SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int, 0, len(s.slots))
	for id := range s.slots {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	statuses := make([]SchedulerStatus, 0, len(ids))
	for _, id := range ids {
		slot := s.slots[id]
		statuses = append(statuses, SchedulerStatus{
			InstanceID: id,
			Running:    slot.running,
			NextRun:    slot.nextRun,
			LastResult: slot.lastResult,
		})
	}
	return statuses
}

// Stop disarms every timer. Running scans finish on their own.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, slot := range s.slots {
		if slot.timer != nil {
			slot.timer.Stop()
			slot.timer = nil
			slot.nextRun = nil
		}
		log.Debug().Int("instanceID", id).Msg("Cross-seed schedule stopped")
	}
}

// slot returns the slot for an instance, creating it if needed. Callers
// must hold s.mu.
func (s *Scheduler) slot(instanceID int) *instanceSlot {
	slot, ok := s.slots[instanceID]
	if !ok {
		slot = &instanceSlot{}
		s.slots[instanceID] = slot
	}
	return slot
}

func (s *Scheduler) persistNextRun(instanceID int, next *time.Time) {
	if err := s.configStore.SetNextRun(context.Background(), instanceID, next); err != nil {
		log.Warn().Err(err).Int("instanceID", instanceID).Msg("Failed to persist next run time")
	}
}
