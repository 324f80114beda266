package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/streamify-app/backend/internal/chat"
)

// ErrChatDown is returned by FakeChat while failing.
var ErrChatDown = errors.New("chat platform unavailable")

// FakeChat is an in-memory chat.Platform. SetFailing makes every call fail.
type FakeChat struct {
	failing atomic.Bool
	calls   atomic.Int64

	mu       sync.Mutex
	users    map[string]chat.User
	channels map[string]map[string]bool
}

func NewFakeChat() *FakeChat {
	return &FakeChat{
		users:    map[string]chat.User{},
		channels: map[string]map[string]bool{},
	}
}

func (f *FakeChat) SetFailing(v bool) { f.failing.Store(v) }

// Calls counts every platform call, failed or not.
func (f *FakeChat) Calls() int64 { return f.calls.Load() }

func (f *FakeChat) begin() error {
	f.calls.Add(1)
	if f.failing.Load() {
		return ErrChatDown
	}
	return nil
}

func (f *FakeChat) UpsertUser(_ context.Context, user chat.User) error {
	if err := f.begin(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	return nil
}

func (f *FakeChat) CreateChannel(_ context.Context, channel chat.Channel) error {
	if err := f.begin(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	members := f.channels[channel.ID]
	if members == nil {
		members = map[string]bool{}
		f.channels[channel.ID] = members
	}
	for _, id := range channel.Members {
		members[id] = true
	}
	return nil
}

func (f *FakeChat) AddMembers(_ context.Context, channelID string, userIDs []string) error {
	if err := f.begin(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	members, ok := f.channels[channelID]
	if !ok {
		return errors.New("channel not found")
	}
	for _, id := range userIDs {
		members[id] = true
	}
	return nil
}

func (f *FakeChat) CreateToken(userID string, _ time.Duration) (string, error) {
	if err := f.begin(); err != nil {
		return "", err
	}
	return "token-" + userID, nil
}

// User returns the mirrored user with id, if any.
func (f *FakeChat) User(id string) (chat.User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	return u, ok
}

// Members returns the member ids of a channel and whether it exists.
func (f *FakeChat) Members(channelID string) (map[string]bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	members, ok := f.channels[channelID]
	if !ok {
		return nil, false
	}
	out := make(map[string]bool, len(members))
	for id := range members {
		out[id] = true
	}
	return out, true
}

var _ chat.Platform = (*FakeChat)(nil)
