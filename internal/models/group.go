package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group is a named collection of members mirrored into a chat channel.
type Group struct {
	ID               primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	Name             string               `json:"groupName" bson:"group_name"`
	Desc             string               `json:"desc" bson:"desc"`
	ProfilePic       string               `json:"profilePic" bson:"profile_pic"`
	LearningLanguage string               `json:"learningLanguage" bson:"learning_language"`
	CreatedBy        primitive.ObjectID   `json:"createdBy" bson:"created_by"`
	Members          []primitive.ObjectID `json:"members" bson:"members"`
	StreamChannelID  string               `json:"streamChannelId" bson:"stream_channel_id"`
	IsPublic         bool                 `json:"isPublic" bson:"is_public"`
	CreatedAt        time.Time            `json:"createdAt" bson:"created_at"`
	UpdatedAt        time.Time            `json:"updatedAt" bson:"updated_at"`
}

// HasMember reports whether userID is in the member list.
func (g *Group) HasMember(userID primitive.ObjectID) bool {
	for _, id := range g.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// ChannelID is the chat channel id derived from the group id.
func (g *Group) ChannelID() string {
	return "group_" + g.ID.Hex()
}

type CreateGroupRequest struct {
	GroupName        string `json:"groupName" validate:"required,max=100"`
	Desc             string `json:"desc" validate:"max=500"`
	ProfilePic       string `json:"profilePic" validate:"omitempty,url"`
	LearningLanguage string `json:"learningLanguage"`
}

// GroupView is a group with creator and members resolved to summaries.
type GroupView struct {
	ID               primitive.ObjectID `json:"_id"`
	Name             string             `json:"groupName"`
	Desc             string             `json:"desc"`
	ProfilePic       string             `json:"profilePic"`
	LearningLanguage string             `json:"learningLanguage"`
	CreatedBy        UserCompact        `json:"createdBy"`
	Members          []UserCompact      `json:"members"`
	StreamChannelID  string             `json:"streamChannelId"`
	IsPublic         bool               `json:"isPublic"`
	CreatedAt        time.Time          `json:"createdAt"`
}

// GroupSummary is the short group reference embedded in request views.
type GroupSummary struct {
	ID         primitive.ObjectID `json:"_id"`
	Name       string             `json:"groupName"`
	ProfilePic string             `json:"profilePic"`
}

func (g *Group) ToSummary() GroupSummary {
	return GroupSummary{ID: g.ID, Name: g.Name, ProfilePic: g.ProfilePic}
}
