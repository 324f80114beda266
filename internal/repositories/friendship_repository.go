package repositories

import (
	"context"
	"time"

	"github.com/streamify-app/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FriendshipRepository defines the interface for friend request data operations
type FriendshipRepository interface {
	CreateFriendRequest(ctx context.Context, req *models.FriendRequest) error
	GetFriendRequestByID(ctx context.Context, id primitive.ObjectID) (*models.FriendRequest, error)
	GetPendingByRecipient(ctx context.Context, userID primitive.ObjectID) ([]models.FriendRequest, error)
	GetPendingBySender(ctx context.Context, userID primitive.ObjectID) ([]models.FriendRequest, error)
	TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.RequestStatus) (bool, error)
}

// MongoFriendshipRepository implements FriendshipRepository for MongoDB
type MongoFriendshipRepository struct {
	collection *mongo.Collection
}

// NewMongoFriendshipRepository creates a new MongoFriendshipRepository
func NewMongoFriendshipRepository(db *mongo.Database) *MongoFriendshipRepository {
	return &MongoFriendshipRepository{collection: db.Collection("friend_requests")}
}

// EnsureIndexes creates the pending-pair uniqueness constraint and lookup indexes
func (r *MongoFriendshipRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "pair_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_pending_pair").
				SetPartialFilterExpression(bson.M{"status": models.StatusPending}),
		},
		{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "sender", Value: 1}, {Key: "status", Value: 1}}},
	})
	return err
}

// CreateFriendRequest inserts a pending request. A pending request for the same
// unordered pair yields ErrDuplicate.
func (r *MongoFriendshipRepository) CreateFriendRequest(ctx context.Context, req *models.FriendRequest) error {
	now := time.Now().UTC()
	req.ID = primitive.NewObjectID()
	req.Status = models.StatusPending
	req.PairKey = models.PairKey(req.Sender, req.Recipient)
	req.CreatedAt = now
	req.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, req)
	return translate(err)
}

func (r *MongoFriendshipRepository) GetFriendRequestByID(ctx context.Context, id primitive.ObjectID) (*models.FriendRequest, error) {
	var req models.FriendRequest
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&req); err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (r *MongoFriendshipRepository) GetPendingByRecipient(ctx context.Context, userID primitive.ObjectID) ([]models.FriendRequest, error) {
	return r.findPending(ctx, bson.M{"recipient": userID, "status": models.StatusPending})
}

func (r *MongoFriendshipRepository) GetPendingBySender(ctx context.Context, userID primitive.ObjectID) ([]models.FriendRequest, error) {
	return r.findPending(ctx, bson.M{"sender": userID, "status": models.StatusPending})
}

func (r *MongoFriendshipRepository) findPending(ctx context.Context, filter bson.M) ([]models.FriendRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	requests := []models.FriendRequest{}
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// TransitionStatus moves a request from one status to another. It reports
// false when the request was not in the expected status.
func (r *MongoFriendshipRepository) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.RequestStatus) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}
