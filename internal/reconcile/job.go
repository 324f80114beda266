package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/streamify-app/backend/internal/chat"
	"github.com/streamify-app/backend/internal/metrics"
	"github.com/streamify-app/backend/internal/models"
	"github.com/streamify-app/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	batchSize  = 100
	runTimeout = 2 * time.Minute
)

// ChannelRepairer creates the chat channel of a stored group if missing.
type ChannelRepairer interface {
	RepairChannel(ctx context.Context, groupID primitive.ObjectID) error
}

// Job brings the chat platform back in line with the primary store.
type Job struct {
	groups   repositories.GroupRepository
	users    repositories.UserRepository
	ledger   repositories.SyncEventRepository
	platform chat.Platform
	repairer ChannelRepairer
	log      logrus.FieldLogger
}

// NewJob builds a Job. ledger may be nil, in which case only missing
// channels are repaired.
func NewJob(
	groups repositories.GroupRepository,
	users repositories.UserRepository,
	ledger repositories.SyncEventRepository,
	platform chat.Platform,
	repairer ChannelRepairer,
	log logrus.FieldLogger,
) *Job {
	return &Job{
		groups:   groups,
		users:    users,
		ledger:   ledger,
		platform: platform,
		repairer: repairer,
		log:      log.WithField("component", "reconcile"),
	}
}

// Schedule registers Run on a cron scheduler. The caller starts and stops it.
func (j *Job) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(
		cron.Recover(cron.PrintfLogger(j.log)),
		cron.SkipIfStillRunning(cron.PrintfLogger(j.log)),
	))
	if _, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		j.Run(ctx)
	}); err != nil {
		return nil, fmt.Errorf("invalid reconcile schedule %q: %w", spec, err)
	}
	return c, nil
}

// Run executes one reconciliation pass.
func (j *Job) Run(ctx context.Context) {
	repaired := j.repairChannels(ctx)
	replayed, failed := j.replayLedger(ctx)
	if repaired+replayed+failed > 0 {
		j.log.WithFields(logrus.Fields{
			"channels_repaired": repaired,
			"events_replayed":   replayed,
			"events_failed":     failed,
		}).Info("reconcile pass finished")
	}
}

func (j *Job) repairChannels(ctx context.Context) int {
	groups, err := j.groups.GetGroupsWithoutChannel(ctx, batchSize)
	if err != nil {
		j.log.WithError(err).Error("failed to list groups without channel")
		return 0
	}

	repaired := 0
	for _, g := range groups {
		err := j.repairer.RepairChannel(ctx, g.ID)
		metrics.RecordRepair("channel", err == nil)
		if err != nil {
			j.log.WithError(err).WithField("group_id", g.ID.Hex()).Warn("channel repair failed")
			continue
		}
		repaired++
	}
	return repaired
}

func (j *Job) replayLedger(ctx context.Context) (replayed, failed int) {
	if j.ledger == nil {
		return 0, 0
	}
	events, err := j.ledger.GetUnresolved(ctx, batchSize)
	if err != nil {
		j.log.WithError(err).Error("failed to load sync ledger")
		return 0, 0
	}

	for _, ev := range events {
		err := j.replay(ctx, ev)
		metrics.RecordRepair(ev.Op, err == nil)

		entry := j.log.WithFields(logrus.Fields{
			"event_id":   ev.ID,
			"op":         ev.Op,
			"subject_id": ev.SubjectID,
		})
		if err != nil {
			failed++
			entry.WithError(err).Warn("sync replay failed")
			if merr := j.ledger.MarkFailed(ctx, ev.ID, err.Error()); merr != nil {
				entry.WithError(merr).Error("failed to mark sync event failed")
			}
			continue
		}
		replayed++
		if merr := j.ledger.MarkResolved(ctx, ev.ID); merr != nil {
			entry.WithError(merr).Error("failed to mark sync event resolved")
		}
	}
	return replayed, failed
}

func (j *Job) replay(ctx context.Context, ev models.ChatSyncEvent) error {
	switch ev.Op {
	case models.SyncOpUpsertUser:
		id, err := primitive.ObjectIDFromHex(ev.SubjectID)
		if err != nil {
			return nil
		}
		user, err := j.users.GetUserByID(ctx, id)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return j.platform.UpsertUser(ctx, chat.UserFromModel(user))

	case models.SyncOpCreateChannel:
		id, err := primitive.ObjectIDFromHex(ev.SubjectID)
		if err != nil {
			return nil
		}
		err = j.repairer.RepairChannel(ctx, id)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil
		}
		return err

	case models.SyncOpAddMember:
		if ev.ChannelID == "" || ev.SubjectID == "" {
			return nil
		}
		return j.platform.AddMembers(ctx, ev.ChannelID, []string{ev.SubjectID})
	}

	j.log.WithField("op", ev.Op).Warn("unknown sync op, dropping")
	return nil
}
