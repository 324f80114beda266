package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GroupRequest asks Recipient to admit Sender into Group.
type GroupRequest struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Group     primitive.ObjectID `json:"group" bson:"group"`
	Sender    primitive.ObjectID `json:"sender" bson:"sender"`
	Recipient primitive.ObjectID `json:"recipient" bson:"recipient"`
	Status    RequestStatus      `json:"status" bson:"status"`
	CreatedAt time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updated_at"`
}

type SendGroupRequestBody struct {
	RecipientID string `json:"recipientId"`
}

type GroupRequestView struct {
	ID        primitive.ObjectID `json:"_id"`
	Group     GroupSummary       `json:"group"`
	Sender    UserCompact        `json:"sender"`
	Recipient UserCompact        `json:"recipient"`
	Status    RequestStatus      `json:"status"`
	CreatedAt time.Time          `json:"createdAt"`
}
