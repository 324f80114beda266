package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/streamify-app/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryLedger struct {
	mu     sync.Mutex
	events []models.ChatSyncEvent
	err    error
}

func (l *memoryLedger) Record(_ context.Context, event *models.ChatSyncEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.events = append(l.events, *event)
	return nil
}

func TestBestEffortSuccessRecordsNothing(t *testing.T) {
	log, hook := test.NewNullLogger()
	ledger := &memoryLedger{}
	s := NewSyncer(log, ledger)

	called := false
	s.BestEffort(context.Background(), models.SyncOpUpsertUser, "u1", "", func(ctx context.Context) error {
		called = true
		return nil
	})

	assert.True(t, called)
	assert.Empty(t, ledger.events)
	assert.Empty(t, hook.AllEntries())
}

func TestBestEffortFailureIsLoggedAndRecorded(t *testing.T) {
	log, hook := test.NewNullLogger()
	ledger := &memoryLedger{}
	s := NewSyncer(log, ledger)

	s.BestEffort(context.Background(), models.SyncOpAddMember, "u1", "group_g1", func(ctx context.Context) error {
		return errors.New("stream unavailable")
	})

	require.Len(t, ledger.events, 1)
	assert.Equal(t, models.SyncOpAddMember, ledger.events[0].Op)
	assert.Equal(t, "group_g1", ledger.events[0].ChannelID)
	assert.Equal(t, "stream unavailable", ledger.events[0].Error)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "u1", entry.Data["subject_id"])
}

func TestBestEffortSurvivesCanceledCallerAndLedgerFailure(t *testing.T) {
	log, hook := test.NewNullLogger()
	s := NewSyncer(log, &memoryLedger{err: errors.New("db down")})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sawCanceled bool
	s.BestEffort(ctx, models.SyncOpCreateChannel, "g1", "group_g1", func(ctx context.Context) error {
		sawCanceled = ctx.Err() != nil
		return errors.New("boom")
	})

	assert.False(t, sawCanceled)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestBestEffortWithoutLedger(t *testing.T) {
	log, _ := test.NewNullLogger()
	s := NewSyncer(log, nil)
	assert.NotPanics(t, func() {
		s.BestEffort(context.Background(), models.SyncOpUpsertUser, "u1", "", func(context.Context) error {
			return errors.New("boom")
		})
	})
}

func TestAttemptLogsWithoutRecording(t *testing.T) {
	log, hook := test.NewNullLogger()
	ledger := &memoryLedger{}
	s := NewSyncer(log, ledger)

	s.Attempt(context.Background(), models.SyncOpCreateChannel, "g1", "group_g1", func(context.Context) error {
		return errors.New("stream unavailable")
	})

	assert.Empty(t, ledger.events)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "g1", entry.Data["subject_id"])
}
