package scheduler

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratalpha/stratalpha/internal/events"
	"github.com/stratalpha/stratalpha/internal/reliability"
)

type countingJob struct {
	runs int32
	err  error
}

func (j *countingJob) Run() error {
	atomic.AddInt32(&j.runs, 1)
	return j.err
}

func (j *countingJob) Name() string { return "counting" }

func TestSchedulerRunsJob(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{}

	require.NoError(t, s.AddJob("@every 10ms", job))
	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&job.runs) >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	assert.Error(t, s.AddJob("not a schedule", &countingJob{}))
}

func TestRunNowPropagatesError(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{err: errors.New("boom")}

	err := s.RunNow(job)
	assert.Error(t, err)
	assert.Equal(t, int32(1), job.runs)
}

type emptyStore struct{}

func (emptyStore) Upload(ctx context.Context, key string, body io.Reader) error {
	_, err := io.Copy(io.Discard, body)
	return err
}

func (emptyStore) List(ctx context.Context, prefix string) ([]reliability.ObjectInfo, error) {
	return nil, nil
}

func (emptyStore) Delete(ctx context.Context, key string) error { return nil }

func TestBackupJobEmitsEvent(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	var seen []events.EventType
	bus.SubscribeAll(func(e *events.Event) {
		seen = append(seen, e.Type)
	})

	backups := reliability.NewBackupService(emptyStore{}, "", nil, zerolog.Nop())
	job := NewBackupJob(backups, 30, bus)

	require.Equal(t, "artifact_backup", job.Name())
	require.NoError(t, job.Run())
	assert.Equal(t, []events.EventType{events.BackupCompleted}, seen)
}

func TestJobNames(t *testing.T) {
	assert.True(t, strings.HasPrefix((&RefreshJob{}).Name(), "analysis"))
	assert.Equal(t, "cache_cleanup", (&CleanupJob{}).Name())
}
