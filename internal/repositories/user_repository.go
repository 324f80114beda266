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

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByFirebaseUID(ctx context.Context, uid string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, profile models.Profile) (*models.User, error)
	LinkFirebaseUID(ctx context.Context, id primitive.ObjectID, uid string) error
	AddFriend(ctx context.Context, userID, friendID primitive.ObjectID) error
	GetRecommendedUsers(ctx context.Context, exclude []primitive.ObjectID, limit int64) ([]models.User, error)
}

// MongoUserRepository implements UserRepository for MongoDB
type MongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new MongoUserRepository
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{collection: db.Collection("users")}
}

var withoutPassword = bson.M{"password": 0}

// EnsureIndexes creates the unique email and firebase uid indexes
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email"),
		},
		{
			Keys: bson.D{{Key: "firebase_uid", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_firebase_uid").
				SetPartialFilterExpression(bson.M{"firebase_uid": bson.M{"$type": "string"}}),
		},
	})
	return err
}

// CreateUser inserts a new user; a taken email yields ErrDuplicate
func (r *MongoUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.ID = primitive.NewObjectID()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Friends == nil {
		user.Friends = []primitive.ObjectID{}
	}
	_, err := r.collection.InsertOne(ctx, user)
	return translate(err)
}

// GetUserByID retrieves a user without the password hash
func (r *MongoUserRepository) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	opts := options.FindOne().SetProjection(withoutPassword)
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user including the password hash
func (r *MongoUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *MongoUserRepository) GetUserByFirebaseUID(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	opts := options.FindOne().SetProjection(withoutPassword)
	if err := r.collection.FindOne(ctx, bson.M{"firebase_uid": uid}, opts).Decode(&user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetUsersByIDs resolves a set of references in one query
func (r *MongoUserRepository) GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	users := []models.User{}
	if len(ids) == 0 {
		return users, nil
	}
	opts := options.Find().SetProjection(withoutPassword)
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateProfile writes the onboarding fields and marks the user onboarded
func (r *MongoUserRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, profile models.Profile) (*models.User, error) {
	set := bson.M{
		"full_name":         profile.FullName,
		"bio":               profile.Bio,
		"native_language":   profile.NativeLanguage,
		"learning_language": profile.LearningLanguage,
		"location":          profile.Location,
		"is_onboarded":      true,
		"updated_at":        time.Now().UTC(),
	}
	if profile.ProfilePic != "" {
		set["profile_pic"] = profile.ProfilePic
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutPassword)

	var user models.User
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *MongoUserRepository) LinkFirebaseUID(ctx context.Context, id primitive.ObjectID, uid string) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"firebase_uid": uid, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddFriend appends friendID to userID's friend list; repeated calls are no-ops
func (r *MongoUserRepository) AddFriend(ctx context.Context, userID, friendID primitive.ObjectID) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$addToSet": bson.M{"friends": friendID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// GetRecommendedUsers lists onboarded users outside the excluded set
func (r *MongoUserRepository) GetRecommendedUsers(ctx context.Context, exclude []primitive.ObjectID, limit int64) ([]models.User, error) {
	filter := bson.M{
		"_id":          bson.M{"$nin": exclude},
		"is_onboarded": true,
	}
	opts := options.Find().
		SetProjection(withoutPassword).
		SetLimit(limit).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}
