package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the identity record stored in the users collection.
type User struct {
	ID               primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	FullName         string               `json:"fullName" bson:"full_name"`
	Email            string               `json:"email" bson:"email"`
	Password         string               `json:"-" bson:"password,omitempty"` // bcrypt hash, never serialised
	Bio              string               `json:"bio" bson:"bio"`
	ProfilePic       string               `json:"profilePic" bson:"profile_pic"`
	NativeLanguage   string               `json:"nativeLanguage" bson:"native_language"`
	LearningLanguage string               `json:"learningLanguage" bson:"learning_language"`
	Location         string               `json:"location" bson:"location"`
	IsOnboarded      bool                 `json:"isOnboarded" bson:"is_onboarded"`
	Friends          []primitive.ObjectID `json:"friends" bson:"friends"`
	FirebaseUID      string               `json:"-" bson:"firebase_uid,omitempty"`
	CreatedAt        time.Time            `json:"createdAt" bson:"created_at"`
	UpdatedAt        time.Time            `json:"updatedAt" bson:"updated_at"`
}

// UserCompact is the public summary used when resolving references.
type UserCompact struct {
	ID               primitive.ObjectID `json:"_id"`
	FullName         string             `json:"fullName"`
	ProfilePic       string             `json:"profilePic"`
	NativeLanguage   string             `json:"nativeLanguage,omitempty"`
	LearningLanguage string             `json:"learningLanguage,omitempty"`
	Location         string             `json:"location,omitempty"`
}

func (u *User) ToCompact() UserCompact {
	return UserCompact{
		ID:               u.ID,
		FullName:         u.FullName,
		ProfilePic:       u.ProfilePic,
		NativeLanguage:   u.NativeLanguage,
		LearningLanguage: u.LearningLanguage,
		Location:         u.Location,
	}
}

// IsFriend reports whether other is in u's friend list.
func (u *User) IsFriend(other primitive.ObjectID) bool {
	for _, id := range u.Friends {
		if id == other {
			return true
		}
	}
	return false
}

// Profile holds the fields written at onboarding.
type Profile struct {
	FullName         string `bson:"full_name"`
	Bio              string `bson:"bio"`
	NativeLanguage   string `bson:"native_language"`
	LearningLanguage string `bson:"learning_language"`
	Location         string `bson:"location"`
	ProfilePic       string `bson:"profile_pic,omitempty"`
}

type SignupRequest struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type OnboardingRequest struct {
	FullName         string `json:"fullName" validate:"required"`
	Bio              string `json:"bio" validate:"required"`
	NativeLanguage   string `json:"nativeLanguage" validate:"required"`
	LearningLanguage string `json:"learningLanguage" validate:"required"`
	Location         string `json:"location" validate:"required"`
	ProfilePic       string `json:"profilePic" validate:"omitempty,url"`
}

type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// JwtCustomClaims are the session token claims.
type JwtCustomClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// FederatedIdentity is the verified identity behind an external ID token.
type FederatedIdentity struct {
	UID     string
	Email   string
	Name    string
	Picture string
}
