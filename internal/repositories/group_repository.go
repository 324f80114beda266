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

// GroupRepository defines the interface for group data operations
type GroupRepository interface {
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroupByID(ctx context.Context, id primitive.ObjectID) (*models.Group, error)
	GetGroupsByMember(ctx context.Context, userID primitive.ObjectID) ([]models.Group, error)
	GetGroupsWithoutChannel(ctx context.Context, limit int64) ([]models.Group, error)
	SetChannelID(ctx context.Context, id primitive.ObjectID, channelID string) error
	AddMember(ctx context.Context, id, userID primitive.ObjectID) (*models.Group, error)
}

// MongoGroupRepository implements GroupRepository for MongoDB
type MongoGroupRepository struct {
	collection *mongo.Collection
}

// NewMongoGroupRepository creates a new MongoGroupRepository
func NewMongoGroupRepository(db *mongo.Database) *MongoGroupRepository {
	return &MongoGroupRepository{collection: db.Collection("groups")}
}

func (r *MongoGroupRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "group_name", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_group_name"),
		},
		{Keys: bson.D{{Key: "members", Value: 1}}},
	})
	return err
}

// CreateGroup inserts a group; a taken name yields ErrDuplicate
func (r *MongoGroupRepository) CreateGroup(ctx context.Context, group *models.Group) error {
	now := time.Now().UTC()
	group.ID = primitive.NewObjectID()
	group.CreatedAt = now
	group.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, group)
	return translate(err)
}

func (r *MongoGroupRepository) GetGroupByID(ctx context.Context, id primitive.ObjectID) (*models.Group, error) {
	var group models.Group
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&group); err != nil {
		return nil, translate(err)
	}
	return &group, nil
}

func (r *MongoGroupRepository) GetGroupsByMember(ctx context.Context, userID primitive.ObjectID) ([]models.Group, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{"members": userID}, opts)
}

// GetGroupsWithoutChannel lists groups whose chat channel was never attached
func (r *MongoGroupRepository) GetGroupsWithoutChannel(ctx context.Context, limit int64) ([]models.Group, error) {
	opts := options.Find().SetLimit(limit).SetSort(bson.D{{Key: "created_at", Value: 1}})
	return r.find(ctx, bson.M{"stream_channel_id": ""}, opts)
}

func (r *MongoGroupRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Group, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	groups := []models.Group{}
	if err = cursor.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *MongoGroupRepository) SetChannelID(ctx context.Context, id primitive.ObjectID, channelID string) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"stream_channel_id": channelID, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddMember appends userID to the member list at most once and returns the updated group
func (r *MongoGroupRepository) AddMember(ctx context.Context, id, userID primitive.ObjectID) (*models.Group, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var group models.Group
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{
		"$addToSet": bson.M{"members": userID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}, opts).Decode(&group)
	if err != nil {
		return nil, translate(err)
	}
	return &group, nil
}
