package chat

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streamify-app/backend/internal/metrics"
	"github.com/streamify-app/backend/internal/models"
)

// Ledger stores failed sync calls for later replay.
type Ledger interface {
	Record(ctx context.Context, event *models.ChatSyncEvent) error
}

// Syncer runs chat side effects whose failure must not fail the caller.
type Syncer struct {
	log     logrus.FieldLogger
	ledger  Ledger
	timeout time.Duration
}

// NewSyncer returns a Syncer. ledger may be nil.
func NewSyncer(log logrus.FieldLogger, ledger Ledger) *Syncer {
	return &Syncer{
		log:     log.WithField("component", "chat_sync"),
		ledger:  ledger,
		timeout: 10 * time.Second,
	}
}

// BestEffort runs fn and swallows its error. Failures are logged, counted
// and recorded in the ledger with the subject and channel for replay.
func (s *Syncer) BestEffort(ctx context.Context, op, subjectID, channelID string, fn func(ctx context.Context) error) {
	err := s.run(ctx, op, subjectID, channelID, fn)
	if err == nil || s.ledger == nil {
		return
	}
	event := &models.ChatSyncEvent{
		Op:        op,
		SubjectID: subjectID,
		ChannelID: channelID,
		Error:     err.Error(),
	}
	if lerr := s.ledger.Record(context.WithoutCancel(ctx), event); lerr != nil {
		s.log.WithError(lerr).WithField("op", op).Error("failed to record chat sync event")
	}
}

// Attempt is BestEffort without a ledger record, for drift the reconciler
// finds by scanning the primary store.
func (s *Syncer) Attempt(ctx context.Context, op, subjectID, channelID string, fn func(ctx context.Context) error) {
	_ = s.run(ctx, op, subjectID, channelID, fn)
}

func (s *Syncer) run(ctx context.Context, op, subjectID, channelID string, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	err := fn(callCtx)
	metrics.RecordChatSync(op, err == nil)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"op":         op,
			"subject_id": subjectID,
			"channel_id": channelID,
		}).Warn("chat sync failed")
	}
	return err
}
