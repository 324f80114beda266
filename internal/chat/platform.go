// Package chat mirrors users and groups into the external chat platform.
package chat

import (
	"context"
	"time"

	"github.com/streamify-app/backend/internal/models"
)

// ChannelType is the channel type used for group channels.
const ChannelType = "messaging"

// User is the identity mirrored to the chat platform.
type User struct {
	ID    string
	Name  string
	Image string
}

// Channel describes a group channel to create.
type Channel struct {
	ID        string
	Name      string
	Image     string
	CreatedBy string
	Members   []string
}

// Platform is the external chat service. Implementations must be safe for
// concurrent use; every call may fail independently.
type Platform interface {
	UpsertUser(ctx context.Context, user User) error
	CreateChannel(ctx context.Context, channel Channel) error
	AddMembers(ctx context.Context, channelID string, userIDs []string) error
	CreateToken(userID string, expire time.Duration) (string, error)
}

// UserFromModel maps a stored user to its chat identity.
func UserFromModel(u *models.User) User {
	return User{ID: u.ID.Hex(), Name: u.FullName, Image: u.ProfilePic}
}
