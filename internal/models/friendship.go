package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RequestStatus is the lifecycle state shared by friend and group requests.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusAccepted RequestStatus = "accepted"
	StatusDeclined RequestStatus = "declined"
)

// FriendRequest is a directed proposal from Sender to Recipient.
type FriendRequest struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Sender    primitive.ObjectID `json:"sender" bson:"sender"`
	Recipient primitive.ObjectID `json:"recipient" bson:"recipient"`
	Status    RequestStatus      `json:"status" bson:"status"`
	// PairKey identifies the unordered pair; unique while pending.
	PairKey   string    `json:"-" bson:"pair_key"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

// PairKey returns the same key for (a, b) and (b, a).
func PairKey(a, b primitive.ObjectID) string {
	x, y := a.Hex(), b.Hex()
	if x > y {
		x, y = y, x
	}
	return x + ":" + y
}

// FriendRequestView is a friend request with both parties resolved.
type FriendRequestView struct {
	ID        primitive.ObjectID `json:"_id"`
	Sender    UserCompact        `json:"sender"`
	Recipient UserCompact        `json:"recipient"`
	Status    RequestStatus      `json:"status"`
	CreatedAt time.Time          `json:"createdAt"`
}
