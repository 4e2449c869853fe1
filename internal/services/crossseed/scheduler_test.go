package crossseed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/seedcross/internal/models"
)

// gatedPool blocks GetClient until released, holding any scan open so
// single-flight behavior can be observed.
type gatedPool struct {
	inner   ClientPool
	release chan struct{}
}

func (p *gatedPool) GetClient(ctx context.Context, instanceID int) (TorrentClient, error) {
	<-p.release
	return p.inner.GetClient(ctx, instanceID)
}

func TestSchedulerSingleFlightPerInstance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	gate := &gatedPool{inner: env.service.clients, release: make(chan struct{})}
	env.service.clients = gate

	sched := NewScheduler(env.service, models.NewCrossSeedConfigStore(env.db))
	opts := ScanOptions{InstanceID: env.instance.ID, UserID: models.DefaultUserID}

	done := make(chan *ScanResult, 1)
	go func() {
		result, err := sched.TriggerManualScan(ctx, opts)
		assert.NoError(t, err)
		done <- result
	}()

	require.Eventually(t, func() bool {
		return sched.IsRunning(env.instance.ID)
	}, 5*time.Second, 10*time.Millisecond)

	// Second request while the first is in flight is rejected.
	_, err := sched.TriggerManualScan(ctx, opts)
	assert.ErrorIs(t, err, ErrScanInProgress)

	close(gate.release)
	first := <-done
	require.NotNil(t, first)
	assert.Equal(t, env.instance.ID, first.InstanceID)
	assert.False(t, sched.IsRunning(env.instance.ID))

	// Once the first scan finished the instance accepts scans again, and
	// the caller gets the result back directly.
	second, err := sched.TriggerManualScan(ctx, opts)
	require.NoError(t, err)
	require.NotNil(t, second)

	status := sched.Status(env.instance.ID)
	require.NotNil(t, status.LastResult)
	assert.Equal(t, env.instance.ID, status.LastResult.InstanceID)
}

func TestSchedulerInstancesAreIndependent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	other, err := models.NewInstanceStore(env.db).Create(ctx, &models.Instance{
		Label: "second",
		Host:  "http://localhost:8081",
	})
	require.NoError(t, err)

	_, err = models.NewCrossSeedConfigStore(env.db).Upsert(ctx, &models.CrossSeedConfig{
		InstanceID:    other.ID,
		Enabled:       true,
		IntervalHours: 24,
		IntegrationID: env.config.IntegrationID,
	})
	require.NoError(t, err)

	gate := &gatedPool{inner: env.service.clients, release: make(chan struct{})}
	env.service.clients = gate

	sched := NewScheduler(env.service, models.NewCrossSeedConfigStore(env.db))

	var wg sync.WaitGroup
	for _, id := range []int{env.instance.ID, other.ID} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sched.TriggerManualScan(ctx, ScanOptions{InstanceID: id, UserID: models.DefaultUserID})
			assert.NoError(t, err)
		}()
	}

	// A running scan on one instance does not block another instance.
	require.Eventually(t, func() bool {
		return sched.IsRunning(env.instance.ID) && sched.IsRunning(other.ID)
	}, 5*time.Second, 10*time.Millisecond)

	close(gate.release)
	wg.Wait()
	assert.False(t, sched.IsRunning(env.instance.ID))
	assert.False(t, sched.IsRunning(other.ID))
}

func TestSchedulerFireRearmsWhenConfigUnavailable(t *testing.T) {
	env := newTestEnv(t)

	sched := NewScheduler(env.service, models.NewCrossSeedConfigStore(env.db))
	defer sched.Stop()

	// No config row exists for this instance, so fire cannot load one.
	id := env.instance.ID + 7
	sched.SetSchedule(id, true, 24)
	before := *sched.Status(id).NextRun

	time.Sleep(5 * time.Millisecond)
	sched.fire(id)

	after := sched.Status(id).NextRun
	require.NotNil(t, after)
	assert.True(t, after.After(before))
}

func TestSchedulerSetSchedule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	configStore := models.NewCrossSeedConfigStore(env.db)

	sched := NewScheduler(env.service, configStore)
	defer sched.Stop()

	sched.SetSchedule(env.instance.ID, true, 24)

	status := sched.Status(env.instance.ID)
	require.NotNil(t, status.NextRun)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), *status.NextRun, time.Minute)

	cfg, err := configStore.Get(ctx, env.instance.ID)
	require.NoError(t, err)
	require.True(t, cfg.NextRun.Valid)

	// Disarming clears both the slot and the persisted next run.
	sched.SetSchedule(env.instance.ID, false, 24)
	status = sched.Status(env.instance.ID)
	assert.Nil(t, status.NextRun)

	cfg, err = configStore.Get(ctx, env.instance.ID)
	require.NoError(t, err)
	assert.False(t, cfg.NextRun.Valid)
}

func TestSchedulerStatusAll(t *testing.T) {
	env := newTestEnv(t)
	configStore := models.NewCrossSeedConfigStore(env.db)

	sched := NewScheduler(env.service, configStore)
	defer sched.Stop()

	assert.Empty(t, sched.StatusAll())

	sched.SetSchedule(env.instance.ID, true, 24)
	sched.SetSchedule(env.instance.ID+1, true, 12)

	statuses := sched.StatusAll()
	require.Len(t, statuses, 2)
	assert.Equal(t, env.instance.ID, statuses[0].InstanceID)
	assert.Equal(t, env.instance.ID+1, statuses[1].InstanceID)
	require.NotNil(t, statuses[0].NextRun)
}

func TestSchedulerStartArmsEnabledConfigs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sched := NewScheduler(env.service, models.NewCrossSeedConfigStore(env.db))
	defer sched.Stop()

	require.NoError(t, sched.Start(ctx))

	status := sched.Status(env.instance.ID)
	require.NotNil(t, status.NextRun)
	assert.False(t, status.Running)
}
