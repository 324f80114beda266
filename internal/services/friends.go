package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/streamify-app/backend/internal/apperror"
	"github.com/streamify-app/backend/internal/metrics"
	"github.com/streamify-app/backend/internal/models"
	"github.com/streamify-app/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const recommendationLimit = 50

// FriendService owns the friend request lifecycle.
type FriendService struct {
	users    repositories.UserRepository
	requests repositories.FriendshipRepository
	log      logrus.FieldLogger
}

func NewFriendService(users repositories.UserRepository, requests repositories.FriendshipRepository, log logrus.FieldLogger) *FriendService {
	return &FriendService{
		users:    users,
		requests: requests,
		log:      log.WithField("component", "friends"),
	}
}

// SendFriendRequest creates a pending request from sender to recipient.
func (s *FriendService) SendFriendRequest(ctx context.Context, senderID, recipientID primitive.ObjectID) (*models.FriendRequest, error) {
	if senderID == recipientID {
		return nil, apperror.Validation("You can't send friend request to yourself")
	}

	recipient, err := s.users.GetUserByID(ctx, recipientID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperror.NotFound("Recipient not found")
		}
		return nil, apperror.Unknown("failed to load recipient", err)
	}
	if recipient.IsFriend(senderID) {
		return nil, apperror.Conflict("You are already friends with this user")
	}

	req := &models.FriendRequest{Sender: senderID, Recipient: recipientID}
	if err := s.requests.CreateFriendRequest(ctx, req); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperror.Conflict("A friend request already exists between you and this user")
		}
		return nil, apperror.Unknown("failed to create friend request", err)
	}
	metrics.RecordTransition("friend", string(models.StatusPending))
	return req, nil
}

// ListIncoming returns pending requests addressed to userID.
func (s *FriendService) ListIncoming(ctx context.Context, userID primitive.ObjectID) ([]models.FriendRequestView, error) {
	requests, err := s.requests.GetPendingByRecipient(ctx, userID)
	if err != nil {
		return nil, apperror.Unknown("failed to list incoming requests", err)
	}
	return s.resolve(ctx, requests)
}

// ListOutgoing returns pending requests sent by userID.
func (s *FriendService) ListOutgoing(ctx context.Context, userID primitive.ObjectID) ([]models.FriendRequestView, error) {
	requests, err := s.requests.GetPendingBySender(ctx, userID)
	if err != nil {
		return nil, apperror.Unknown("failed to list outgoing requests", err)
	}
	return s.resolve(ctx, requests)
}

// AcceptFriendRequest marks the request accepted and links both users.
// Accepting an already accepted request re-applies the links without
// duplicating them.
func (s *FriendService) AcceptFriendRequest(ctx context.Context, requestID, actorID primitive.ObjectID) (*models.FriendRequest, error) {
	req, err := s.authorize(ctx, requestID, actorID, "accept")
	if err != nil {
		return nil, err
	}

	switch req.Status {
	case models.StatusDeclined:
		return nil, apperror.Conflict("Friend request was already declined")
	case models.StatusPending:
		ok, err := s.requests.TransitionStatus(ctx, req.ID, models.StatusPending, models.StatusAccepted)
		if err != nil {
			return nil, apperror.Unknown("failed to accept friend request", err)
		}
		if !ok {
			// lost a race; only a concurrent accept may proceed
			if req, err = s.reload(ctx, requestID); err != nil {
				return nil, err
			}
			if req.Status != models.StatusAccepted {
				return nil, apperror.Conflict("Friend request was already declined")
			}
		} else {
			metrics.RecordTransition("friend", string(models.StatusAccepted))
		}
	}

	if err := s.users.AddFriend(ctx, req.Sender, req.Recipient); err != nil {
		return nil, s.linkError(err)
	}
	if err := s.users.AddFriend(ctx, req.Recipient, req.Sender); err != nil {
		return nil, s.linkError(err)
	}

	req.Status = models.StatusAccepted
	s.log.WithFields(logrus.Fields{
		"request_id": req.ID.Hex(),
		"sender":     req.Sender.Hex(),
		"recipient":  req.Recipient.Hex(),
	}).Info("friend request accepted")
	return req, nil
}

// DeclineFriendRequest marks a pending request declined.
func (s *FriendService) DeclineFriendRequest(ctx context.Context, requestID, actorID primitive.ObjectID) (*models.FriendRequest, error) {
	req, err := s.authorize(ctx, requestID, actorID, "decline")
	if err != nil {
		return nil, err
	}
	ok, err := s.requests.TransitionStatus(ctx, req.ID, models.StatusPending, models.StatusDeclined)
	if err != nil {
		return nil, apperror.Unknown("failed to decline friend request", err)
	}
	if !ok {
		return nil, apperror.Conflict("Friend request is no longer pending")
	}
	metrics.RecordTransition("friend", string(models.StatusDeclined))
	req.Status = models.StatusDeclined
	return req, nil
}

// ListFriends resolves userID's friend list to summaries.
func (s *FriendService) ListFriends(ctx context.Context, userID primitive.ObjectID) ([]models.UserCompact, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperror.NotFound("User not found")
		}
		return nil, apperror.Unknown("failed to load user", err)
	}
	friends, err := s.users.GetUsersByIDs(ctx, user.Friends)
	if err != nil {
		return nil, apperror.Unknown("failed to load friends", err)
	}
	out := make([]models.UserCompact, 0, len(friends))
	for i := range friends {
		out = append(out, friends[i].ToCompact())
	}
	return out, nil
}

// RecommendedUsers lists onboarded users who are neither userID nor its friends.
func (s *FriendService) RecommendedUsers(ctx context.Context, userID primitive.ObjectID) ([]models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperror.NotFound("User not found")
		}
		return nil, apperror.Unknown("failed to load user", err)
	}
	exclude := append([]primitive.ObjectID{user.ID}, user.Friends...)
	users, err := s.users.GetRecommendedUsers(ctx, exclude, recommendationLimit)
	if err != nil {
		return nil, apperror.Unknown("failed to load recommendations", err)
	}
	return users, nil
}

func (s *FriendService) authorize(ctx context.Context, requestID, actorID primitive.ObjectID, action string) (*models.FriendRequest, error) {
	req, err := s.reload(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Recipient != actorID {
		return nil, apperror.Authorization("You are not authorized to " + action + " this request")
	}
	return req, nil
}

func (s *FriendService) reload(ctx context.Context, requestID primitive.ObjectID) (*models.FriendRequest, error) {
	req, err := s.requests.GetFriendRequestByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperror.NotFound("Friend request not found")
		}
		return nil, apperror.Unknown("failed to load friend request", err)
	}
	return req, nil
}

func (s *FriendService) linkError(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperror.NotFound("User not found")
	}
	return apperror.Unknown("failed to update friend lists", err)
}

func (s *FriendService) resolve(ctx context.Context, requests []models.FriendRequest) ([]models.FriendRequestView, error) {
	ids := make([]primitive.ObjectID, 0, len(requests)*2)
	for _, r := range requests {
		ids = append(ids, r.Sender, r.Recipient)
	}
	people, err := lookupUsers(ctx, s.users, ids)
	if err != nil {
		return nil, err
	}

	views := make([]models.FriendRequestView, 0, len(requests))
	for _, r := range requests {
		views = append(views, models.FriendRequestView{
			ID:        r.ID,
			Sender:    people.compact(r.Sender),
			Recipient: people.compact(r.Recipient),
			Status:    r.Status,
			CreatedAt: r.CreatedAt,
		})
	}
	return views, nil
}
