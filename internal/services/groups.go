package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/streamify-app/backend/internal/apperror"
	"github.com/streamify-app/backend/internal/chat"
	"github.com/streamify-app/backend/internal/metrics"
	"github.com/streamify-app/backend/internal/models"
	"github.com/streamify-app/backend/internal/repositories"
	"github.com/streamify-app/backend/validators"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RecipientPolicy decides who receives a group join request.
type RecipientPolicy string

const (
	// PolicyExplicit lets the sender name any current member.
	PolicyExplicit RecipientPolicy = "explicit"
	// PolicyCreator always routes requests to the group creator.
	PolicyCreator RecipientPolicy = "creator"
)

// ParseRecipientPolicy accepts "explicit" or "creator"; empty means explicit.
func ParseRecipientPolicy(v string) (RecipientPolicy, error) {
	switch RecipientPolicy(strings.ToLower(strings.TrimSpace(v))) {
	case "", PolicyExplicit:
		return PolicyExplicit, nil
	case PolicyCreator:
		return PolicyCreator, nil
	default:
		return "", fmt.Errorf("unknown group request policy %q", v)
	}
}

// GroupService owns groups, join requests and their chat channels.
type GroupService struct {
	groups    repositories.GroupRepository
	requests  repositories.GroupRequestRepository
	users     repositories.UserRepository
	platform  chat.Platform
	syncer    *chat.Syncer
	validator *validators.Validator
	policy    RecipientPolicy
	log       logrus.FieldLogger
}

func NewGroupService(
	groups repositories.GroupRepository,
	requests repositories.GroupRequestRepository,
	users repositories.UserRepository,
	platform chat.Platform,
	syncer *chat.Syncer,
	policy RecipientPolicy,
	log logrus.FieldLogger,
) *GroupService {
	if policy == "" {
		policy = PolicyExplicit
	}
	return &GroupService{
		groups:    groups,
		requests:  requests,
		users:     users,
		platform:  platform,
		syncer:    syncer,
		validator: validators.NewValidator(),
		policy:    policy,
		log:       log.WithField("component", "groups"),
	}
}

func (s *GroupService) Policy() RecipientPolicy { return s.policy }

// CreateGroup stores the group with the creator as sole member and then
// creates its chat channel best-effort.
func (s *GroupService) CreateGroup(ctx context.Context, creatorID primitive.ObjectID, req models.CreateGroupRequest) (*models.Group, error) {
	req.GroupName = strings.TrimSpace(req.GroupName)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	group := &models.Group{
		Name:             req.GroupName,
		Desc:             req.Desc,
		ProfilePic:       req.ProfilePic,
		LearningLanguage: req.LearningLanguage,
		CreatedBy:        creatorID,
		Members:          []primitive.ObjectID{creatorID},
		IsPublic:         true,
	}
	if err := s.groups.CreateGroup(ctx, group); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperror.Conflict("Group name already taken")
		}
		return nil, apperror.Unknown("failed to create group", err)
	}

	s.EnsureChannel(ctx, group)
	s.log.WithField("group_id", group.ID.Hex()).Info("group created")
	return group, nil
}

// EnsureChannel creates the missing chat channel for group and records its
// id. Failures are swallowed; the reconciler picks up every group still
// lacking a channel, so nothing is written to the ledger.
func (s *GroupService) EnsureChannel(ctx context.Context, group *models.Group) {
	if group.StreamChannelID != "" {
		return
	}
	s.syncer.Attempt(ctx, models.SyncOpCreateChannel, group.ID.Hex(), group.ChannelID(), func(ctx context.Context) error {
		return s.attachChannel(ctx, group)
	})
}

// RepairChannel is EnsureChannel for a stored group, surfacing the error.
func (s *GroupService) RepairChannel(ctx context.Context, groupID primitive.ObjectID) error {
	group, err := s.groups.GetGroupByID(ctx, groupID)
	if err != nil {
		return err
	}
	if group.StreamChannelID != "" {
		return nil
	}
	return s.attachChannel(ctx, group)
}

func (s *GroupService) attachChannel(ctx context.Context, group *models.Group) error {
	members := make([]string, 0, len(group.Members))
	for _, id := range group.Members {
		members = append(members, id.Hex())
	}
	channelID := group.ChannelID()
	if err := s.platform.CreateChannel(ctx, chat.Channel{
		ID:        channelID,
		Name:      group.Name,
		Image:     group.ProfilePic,
		CreatedBy: group.CreatedBy.Hex(),
		Members:   members,
	}); err != nil {
		return err
	}
	if err := s.groups.SetChannelID(ctx, group.ID, channelID); err != nil {
		return err
	}
	group.StreamChannelID = channelID
	return nil
}

// ListMyGroups returns every group userID belongs to.
func (s *GroupService) ListMyGroups(ctx context.Context, userID primitive.ObjectID) ([]models.GroupView, error) {
	groups, err := s.groups.GetGroupsByMember(ctx, userID)
	if err != nil {
		return nil, apperror.Unknown("failed to list groups", err)
	}

	var ids []primitive.ObjectID
	for _, g := range groups {
		ids = append(ids, g.CreatedBy)
		ids = append(ids, g.Members...)
	}
	people, err := lookupUsers(ctx, s.users, ids)
	if err != nil {
		return nil, err
	}

	views := make([]models.GroupView, 0, len(groups))
	for i := range groups {
		views = append(views, groupView(&groups[i], people))
	}
	return views, nil
}

// GetGroup returns one group, repairing a missing channel on the way.
func (s *GroupService) GetGroup(ctx context.Context, groupID primitive.ObjectID) (*models.GroupView, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	s.EnsureChannel(ctx, group)

	people, err := lookupUsers(ctx, s.users, append([]primitive.ObjectID{group.CreatedBy}, group.Members...))
	if err != nil {
		return nil, err
	}
	view := groupView(group, people)
	return &view, nil
}

// SendGroupRequest asks to admit sender into groupID. recipientHex is the
// optional explicit recipient; its meaning depends on the configured policy.
func (s *GroupService) SendGroupRequest(ctx context.Context, senderID, groupID primitive.ObjectID, recipientHex string) (*models.GroupRequest, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	recipientID, err := s.resolveRecipient(group, strings.TrimSpace(recipientHex))
	if err != nil {
		return nil, err
	}
	if recipientID == senderID {
		return nil, apperror.Validation("You cannot send request to yourself")
	}
	if group.HasMember(senderID) {
		return nil, apperror.Conflict("You are already a member of this group")
	}

	req := &models.GroupRequest{Group: group.ID, Sender: senderID, Recipient: recipientID}
	if err := s.requests.CreateGroupRequest(ctx, req); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperror.Conflict("Request already sent to this user")
		}
		return nil, apperror.Unknown("failed to create group request", err)
	}
	metrics.RecordTransition("group", string(models.StatusPending))
	return req, nil
}

func (s *GroupService) resolveRecipient(group *models.Group, recipientHex string) (primitive.ObjectID, error) {
	if s.policy == PolicyCreator {
		if recipientHex != "" && recipientHex != group.CreatedBy.Hex() {
			return primitive.NilObjectID, apperror.Validation("Group requests are sent to the group creator", "recipientId")
		}
		return group.CreatedBy, nil
	}

	if recipientHex == "" {
		return primitive.NilObjectID, apperror.Validation("All fields are required", "recipientId")
	}
	recipientID, err := primitive.ObjectIDFromHex(recipientHex)
	if err != nil {
		return primitive.NilObjectID, apperror.Validation("Invalid recipient id", "recipientId")
	}
	if !group.HasMember(recipientID) {
		return primitive.NilObjectID, apperror.Validation("Recipient must be a member of this group", "recipientId")
	}
	return recipientID, nil
}

// AcceptGroupRequest admits the sender and mirrors the membership to chat.
// Repeated acceptance re-applies the idempotent membership writes.
func (s *GroupService) AcceptGroupRequest(ctx context.Context, requestID, actorID primitive.ObjectID) (*models.Group, error) {
	req, err := s.authorize(ctx, requestID, actorID)
	if err != nil {
		return nil, err
	}

	switch req.Status {
	case models.StatusDeclined:
		return nil, apperror.Conflict("Group request was already declined")
	case models.StatusPending:
		ok, err := s.requests.TransitionStatus(ctx, req.ID, models.StatusPending, models.StatusAccepted)
		if err != nil {
			return nil, apperror.Unknown("failed to accept group request", err)
		}
		if !ok {
			if req, err = s.loadRequest(ctx, requestID); err != nil {
				return nil, err
			}
			if req.Status != models.StatusAccepted {
				return nil, apperror.Conflict("Group request was already declined")
			}
		} else {
			metrics.RecordTransition("group", string(models.StatusAccepted))
		}
	}

	group, err := s.groups.AddMember(ctx, req.Group, req.Sender)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperror.NotFound("Group not found")
		}
		return nil, apperror.Unknown("failed to add member", err)
	}

	if group.StreamChannelID == "" {
		s.EnsureChannel(ctx, group)
	} else {
		s.syncer.BestEffort(ctx, models.SyncOpAddMember, req.Sender.Hex(), group.StreamChannelID, func(ctx context.Context) error {
			return s.platform.AddMembers(ctx, group.StreamChannelID, []string{req.Sender.Hex()})
		})
	}

	s.log.WithFields(logrus.Fields{
		"group_id": group.ID.Hex(),
		"user_id":  req.Sender.Hex(),
	}).Info("member added to group")
	return group, nil
}

// DeclineGroupRequest marks a pending request declined.
func (s *GroupService) DeclineGroupRequest(ctx context.Context, requestID, actorID primitive.ObjectID) (*models.GroupRequest, error) {
	req, err := s.authorize(ctx, requestID, actorID)
	if err != nil {
		return nil, err
	}
	ok, err := s.requests.TransitionStatus(ctx, req.ID, models.StatusPending, models.StatusDeclined)
	if err != nil {
		return nil, apperror.Unknown("failed to decline group request", err)
	}
	if !ok {
		return nil, apperror.Conflict("Group request is no longer pending")
	}
	metrics.RecordTransition("group", string(models.StatusDeclined))
	req.Status = models.StatusDeclined
	return req, nil
}

// ListGroupRequests returns pending requests addressed to userID.
func (s *GroupService) ListGroupRequests(ctx context.Context, userID primitive.ObjectID) ([]models.GroupRequestView, error) {
	requests, err := s.requests.GetPendingByRecipient(ctx, userID)
	if err != nil {
		return nil, apperror.Unknown("failed to list group requests", err)
	}
	return s.resolve(ctx, requests)
}

// ListOutgoingGroupRequests returns pending requests sent by userID.
func (s *GroupService) ListOutgoingGroupRequests(ctx context.Context, userID primitive.ObjectID) ([]models.GroupRequestView, error) {
	requests, err := s.requests.GetPendingBySender(ctx, userID)
	if err != nil {
		return nil, apperror.Unknown("failed to list outgoing group requests", err)
	}
	return s.resolve(ctx, requests)
}

func (s *GroupService) authorize(ctx context.Context, requestID, actorID primitive.ObjectID) (*models.GroupRequest, error) {
	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Recipient != actorID {
		return nil, apperror.Authorization("Not authorized")
	}
	return req, nil
}

func (s *GroupService) loadRequest(ctx context.Context, requestID primitive.ObjectID) (*models.GroupRequest, error) {
	req, err := s.requests.GetGroupRequestByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperror.NotFound("Request not found")
		}
		return nil, apperror.Unknown("failed to load group request", err)
	}
	return req, nil
}

func (s *GroupService) loadGroup(ctx context.Context, groupID primitive.ObjectID) (*models.Group, error) {
	group, err := s.groups.GetGroupByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperror.NotFound("Group not found")
		}
		return nil, apperror.Unknown("failed to load group", err)
	}
	return group, nil
}

func (s *GroupService) resolve(ctx context.Context, requests []models.GroupRequest) ([]models.GroupRequestView, error) {
	ids := make([]primitive.ObjectID, 0, len(requests)*2)
	groups := make(map[primitive.ObjectID]models.GroupSummary)
	for _, r := range requests {
		ids = append(ids, r.Sender, r.Recipient)
		if _, ok := groups[r.Group]; ok {
			continue
		}
		group, err := s.groups.GetGroupByID(ctx, r.Group)
		switch {
		case err == nil:
			groups[r.Group] = group.ToSummary()
		case errors.Is(err, repositories.ErrNotFound):
			groups[r.Group] = models.GroupSummary{ID: r.Group}
		default:
			return nil, apperror.Unknown("failed to resolve group", err)
		}
	}
	people, err := lookupUsers(ctx, s.users, ids)
	if err != nil {
		return nil, err
	}

	views := make([]models.GroupRequestView, 0, len(requests))
	for _, r := range requests {
		views = append(views, models.GroupRequestView{
			ID:        r.ID,
			Group:     groups[r.Group],
			Sender:    people.compact(r.Sender),
			Recipient: people.compact(r.Recipient),
			Status:    r.Status,
			CreatedAt: r.CreatedAt,
		})
	}
	return views, nil
}

func groupView(g *models.Group, people userIndex) models.GroupView {
	members := make([]models.UserCompact, 0, len(g.Members))
	for _, id := range g.Members {
		members = append(members, people.compact(id))
	}
	return models.GroupView{
		ID:               g.ID,
		Name:             g.Name,
		Desc:             g.Desc,
		ProfilePic:       g.ProfilePic,
		LearningLanguage: g.LearningLanguage,
		CreatedBy:        people.compact(g.CreatedBy),
		Members:          members,
		StreamChannelID:  g.StreamChannelID,
		IsPublic:         g.IsPublic,
		CreatedAt:        g.CreatedAt,
	}
}
