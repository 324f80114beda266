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

// GroupRequestRepository defines the interface for group join request operations
type GroupRequestRepository interface {
	CreateGroupRequest(ctx context.Context, req *models.GroupRequest) error
	GetGroupRequestByID(ctx context.Context, id primitive.ObjectID) (*models.GroupRequest, error)
	GetPendingByRecipient(ctx context.Context, userID primitive.ObjectID) ([]models.GroupRequest, error)
	GetPendingBySender(ctx context.Context, userID primitive.ObjectID) ([]models.GroupRequest, error)
	TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.RequestStatus) (bool, error)
}

// MongoGroupRequestRepository implements GroupRequestRepository for MongoDB
type MongoGroupRequestRepository struct {
	collection *mongo.Collection
}

// NewMongoGroupRequestRepository creates a new MongoGroupRequestRepository
func NewMongoGroupRequestRepository(db *mongo.Database) *MongoGroupRequestRepository {
	return &MongoGroupRequestRepository{collection: db.Collection("group_requests")}
}

// EnsureIndexes creates the partial unique index on pending (group, sender, recipient)
func (r *MongoGroupRequestRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "group", Value: 1},
				{Key: "sender", Value: 1},
				{Key: "recipient", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_pending_group_request").
				SetPartialFilterExpression(bson.M{"status": models.StatusPending}),
		},
		{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "sender", Value: 1}, {Key: "status", Value: 1}}},
	})
	return err
}

func (r *MongoGroupRequestRepository) CreateGroupRequest(ctx context.Context, req *models.GroupRequest) error {
	now := time.Now().UTC()
	req.ID = primitive.NewObjectID()
	req.Status = models.StatusPending
	req.CreatedAt = now
	req.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, req)
	return translate(err)
}

func (r *MongoGroupRequestRepository) GetGroupRequestByID(ctx context.Context, id primitive.ObjectID) (*models.GroupRequest, error) {
	var req models.GroupRequest
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&req); err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (r *MongoGroupRequestRepository) GetPendingByRecipient(ctx context.Context, userID primitive.ObjectID) ([]models.GroupRequest, error) {
	return r.findPending(ctx, bson.M{"recipient": userID, "status": models.StatusPending})
}

func (r *MongoGroupRequestRepository) GetPendingBySender(ctx context.Context, userID primitive.ObjectID) ([]models.GroupRequest, error) {
	return r.findPending(ctx, bson.M{"sender": userID, "status": models.StatusPending})
}

func (r *MongoGroupRequestRepository) findPending(ctx context.Context, filter bson.M) ([]models.GroupRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	requests := []models.GroupRequest{}
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *MongoGroupRequestRepository) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.RequestStatus) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}
