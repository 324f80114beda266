// Package testutil provides in-memory stores and a fake chat platform for
// service and handler tests.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/streamify-app/backend/internal/models"
	"github.com/streamify-app/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserStore is an in-memory repositories.UserRepository.
type UserStore struct {
	mu    sync.Mutex
	users []*models.User
}

func NewUserStore() *UserStore {
	return &UserStore{}
}

func (s *UserStore) find(pred func(*models.User) bool) *models.User {
	for _, u := range s.users {
		if pred(u) {
			return u
		}
	}
	return nil
}

func copyUser(u *models.User, withPassword bool) *models.User {
	c := *u
	c.Friends = append([]primitive.ObjectID{}, u.Friends...)
	if !withPassword {
		c.Password = ""
	}
	return &c
}

func (s *UserStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.find(func(u *models.User) bool { return u.Email == user.Email }) != nil {
		return repositories.ErrDuplicate
	}
	if user.FirebaseUID != "" && s.find(func(u *models.User) bool { return u.FirebaseUID == user.FirebaseUID }) != nil {
		return repositories.ErrDuplicate
	}
	now := time.Now().UTC()
	user.ID = primitive.NewObjectID()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Friends == nil {
		user.Friends = []primitive.ObjectID{}
	}
	s.users = append(s.users, copyUser(user, true))
	return nil
}

func (s *UserStore) GetUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.find(func(u *models.User) bool { return u.ID == id }); u != nil {
		return copyUser(u, false), nil
	}
	return nil, repositories.ErrNotFound
}

func (s *UserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.find(func(u *models.User) bool { return u.Email == email }); u != nil {
		return copyUser(u, true), nil
	}
	return nil, repositories.ErrNotFound
}

func (s *UserStore) GetUserByFirebaseUID(_ context.Context, uid string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.find(func(u *models.User) bool { return u.FirebaseUID != "" && u.FirebaseUID == uid }); u != nil {
		return copyUser(u, false), nil
	}
	return nil, repositories.ErrNotFound
}

func (s *UserStore) GetUsersByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.User{}
	for _, id := range ids {
		if u := s.find(func(u *models.User) bool { return u.ID == id }); u != nil {
			out = append(out, *copyUser(u, false))
		}
	}
	return out, nil
}

func (s *UserStore) UpdateProfile(_ context.Context, id primitive.ObjectID, p models.Profile) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.find(func(u *models.User) bool { return u.ID == id })
	if u == nil {
		return nil, repositories.ErrNotFound
	}
	u.FullName = p.FullName
	u.Bio = p.Bio
	u.NativeLanguage = p.NativeLanguage
	u.LearningLanguage = p.LearningLanguage
	u.Location = p.Location
	if p.ProfilePic != "" {
		u.ProfilePic = p.ProfilePic
	}
	u.IsOnboarded = true
	u.UpdatedAt = time.Now().UTC()
	return copyUser(u, false), nil
}

func (s *UserStore) LinkFirebaseUID(_ context.Context, id primitive.ObjectID, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.find(func(u *models.User) bool { return u.ID == id })
	if u == nil {
		return repositories.ErrNotFound
	}
	u.FirebaseUID = uid
	return nil
}

func (s *UserStore) AddFriend(_ context.Context, userID, friendID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.find(func(u *models.User) bool { return u.ID == userID })
	if u == nil {
		return repositories.ErrNotFound
	}
	if !u.IsFriend(friendID) {
		u.Friends = append(u.Friends, friendID)
	}
	return nil
}

func (s *UserStore) GetRecommendedUsers(_ context.Context, exclude []primitive.ObjectID, limit int64) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	skip := make(map[primitive.ObjectID]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	out := []models.User{}
	for i := len(s.users) - 1; i >= 0; i-- {
		u := s.users[i]
		if skip[u.ID] || !u.IsOnboarded {
			continue
		}
		out = append(out, *copyUser(u, false))
		if limit > 0 && int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

// FriendRequestStore is an in-memory repositories.FriendshipRepository that
// enforces one pending request per unordered pair.
type FriendRequestStore struct {
	mu       sync.Mutex
	requests []*models.FriendRequest
}

func NewFriendRequestStore() *FriendRequestStore {
	return &FriendRequestStore{}
}

func (s *FriendRequestStore) CreateFriendRequest(_ context.Context, req *models.FriendRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := models.PairKey(req.Sender, req.Recipient)
	for _, r := range s.requests {
		if r.PairKey == key && r.Status == models.StatusPending {
			return repositories.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	req.ID = primitive.NewObjectID()
	req.Status = models.StatusPending
	req.PairKey = key
	req.CreatedAt = now
	req.UpdatedAt = now
	c := *req
	s.requests = append(s.requests, &c)
	return nil
}

func (s *FriendRequestStore) GetFriendRequestByID(_ context.Context, id primitive.ObjectID) (*models.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.requests {
		if r.ID == id {
			c := *r
			return &c, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *FriendRequestStore) GetPendingByRecipient(_ context.Context, userID primitive.ObjectID) ([]models.FriendRequest, error) {
	return s.filter(func(r *models.FriendRequest) bool {
		return r.Recipient == userID && r.Status == models.StatusPending
	}), nil
}

func (s *FriendRequestStore) GetPendingBySender(_ context.Context, userID primitive.ObjectID) ([]models.FriendRequest, error) {
	return s.filter(func(r *models.FriendRequest) bool {
		return r.Sender == userID && r.Status == models.StatusPending
	}), nil
}

// All returns every stored request regardless of status.
func (s *FriendRequestStore) All() []models.FriendRequest {
	return s.filter(func(*models.FriendRequest) bool { return true })
}

func (s *FriendRequestStore) filter(pred func(*models.FriendRequest) bool) []models.FriendRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.FriendRequest{}
	for i := len(s.requests) - 1; i >= 0; i-- {
		if pred(s.requests[i]) {
			out = append(out, *s.requests[i])
		}
	}
	return out
}

func (s *FriendRequestStore) TransitionStatus(_ context.Context, id primitive.ObjectID, from, to models.RequestStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.requests {
		if r.ID == id && r.Status == from {
			r.Status = to
			r.UpdatedAt = time.Now().UTC()
			return true, nil
		}
	}
	return false, nil
}

// GroupStore is an in-memory repositories.GroupRepository.
type GroupStore struct {
	mu     sync.Mutex
	groups []*models.Group
}

func NewGroupStore() *GroupStore {
	return &GroupStore{}
}

func copyGroup(g *models.Group) *models.Group {
	c := *g
	c.Members = append([]primitive.ObjectID{}, g.Members...)
	return &c
}

func (s *GroupStore) CreateGroup(_ context.Context, group *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.groups {
		if g.Name == group.Name {
			return repositories.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	group.ID = primitive.NewObjectID()
	group.CreatedAt = now
	group.UpdatedAt = now
	s.groups = append(s.groups, copyGroup(group))
	return nil
}

func (s *GroupStore) get(id primitive.ObjectID) *models.Group {
	for _, g := range s.groups {
		if g.ID == id {
			return g
		}
	}
	return nil
}

func (s *GroupStore) GetGroupByID(_ context.Context, id primitive.ObjectID) (*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g := s.get(id); g != nil {
		return copyGroup(g), nil
	}
	return nil, repositories.ErrNotFound
}

func (s *GroupStore) GetGroupsByMember(_ context.Context, userID primitive.ObjectID) ([]models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Group{}
	for i := len(s.groups) - 1; i >= 0; i-- {
		if s.groups[i].HasMember(userID) {
			out = append(out, *copyGroup(s.groups[i]))
		}
	}
	return out, nil
}

func (s *GroupStore) GetGroupsWithoutChannel(_ context.Context, limit int64) ([]models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Group{}
	for _, g := range s.groups {
		if g.StreamChannelID == "" {
			out = append(out, *copyGroup(g))
		}
		if limit > 0 && int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (s *GroupStore) SetChannelID(_ context.Context, id primitive.ObjectID, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.get(id)
	if g == nil {
		return repositories.ErrNotFound
	}
	g.StreamChannelID = channelID
	return nil
}

func (s *GroupStore) AddMember(_ context.Context, id, userID primitive.ObjectID) (*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.get(id)
	if g == nil {
		return nil, repositories.ErrNotFound
	}
	if !g.HasMember(userID) {
		g.Members = append(g.Members, userID)
	}
	return copyGroup(g), nil
}

// GroupRequestStore is an in-memory repositories.GroupRequestRepository that
// enforces one pending request per (group, sender, recipient).
type GroupRequestStore struct {
	mu       sync.Mutex
	requests []*models.GroupRequest
}

func NewGroupRequestStore() *GroupRequestStore {
	return &GroupRequestStore{}
}

func (s *GroupRequestStore) CreateGroupRequest(_ context.Context, req *models.GroupRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.requests {
		if r.Status == models.StatusPending && r.Group == req.Group &&
			r.Sender == req.Sender && r.Recipient == req.Recipient {
			return repositories.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	req.ID = primitive.NewObjectID()
	req.Status = models.StatusPending
	req.CreatedAt = now
	req.UpdatedAt = now
	c := *req
	s.requests = append(s.requests, &c)
	return nil
}

func (s *GroupRequestStore) GetGroupRequestByID(_ context.Context, id primitive.ObjectID) (*models.GroupRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.requests {
		if r.ID == id {
			c := *r
			return &c, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *GroupRequestStore) GetPendingByRecipient(_ context.Context, userID primitive.ObjectID) ([]models.GroupRequest, error) {
	return s.filter(func(r *models.GroupRequest) bool {
		return r.Recipient == userID && r.Status == models.StatusPending
	}), nil
}

func (s *GroupRequestStore) GetPendingBySender(_ context.Context, userID primitive.ObjectID) ([]models.GroupRequest, error) {
	return s.filter(func(r *models.GroupRequest) bool {
		return r.Sender == userID && r.Status == models.StatusPending
	}), nil
}

func (s *GroupRequestStore) filter(pred func(*models.GroupRequest) bool) []models.GroupRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.GroupRequest{}
	for i := len(s.requests) - 1; i >= 0; i-- {
		if pred(s.requests[i]) {
			out = append(out, *s.requests[i])
		}
	}
	return out
}

func (s *GroupRequestStore) TransitionStatus(_ context.Context, id primitive.ObjectID, from, to models.RequestStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.requests {
		if r.ID == id && r.Status == from {
			r.Status = to
			r.UpdatedAt = time.Now().UTC()
			return true, nil
		}
	}
	return false, nil
}

// Ledger is an in-memory repositories.SyncEventRepository.
type Ledger struct {
	mu     sync.Mutex
	nextID uint
	events []*models.ChatSyncEvent
}

func NewLedger() *Ledger {
	return &Ledger{}
}

func (l *Ledger) Record(_ context.Context, event *models.ChatSyncEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	event.ID = l.nextID
	if event.Attempts == 0 {
		event.Attempts = 1
	}
	event.CreatedAt = time.Now().UTC()
	c := *event
	l.events = append(l.events, &c)
	return nil
}

func (l *Ledger) GetUnresolved(_ context.Context, limit int) ([]models.ChatSyncEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []models.ChatSyncEvent{}
	for _, e := range l.events {
		if e.ResolvedAt == nil {
			out = append(out, *e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (l *Ledger) MarkResolved(_ context.Context, id uint) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e.ID == id {
			now := time.Now().UTC()
			e.ResolvedAt = &now
		}
	}
	return nil
}

func (l *Ledger) MarkFailed(_ context.Context, id uint, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e.ID == id {
			e.Attempts++
			e.Error = reason
		}
	}
	return nil
}

// Events returns a snapshot of every recorded event.
func (l *Ledger) Events() []models.ChatSyncEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.ChatSyncEvent, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, *e)
	}
	return out
}

var (
	_ repositories.UserRepository         = (*UserStore)(nil)
	_ repositories.FriendshipRepository   = (*FriendRequestStore)(nil)
	_ repositories.GroupRepository        = (*GroupStore)(nil)
	_ repositories.GroupRequestRepository = (*GroupRequestStore)(nil)
	_ repositories.SyncEventRepository    = (*Ledger)(nil)
)
