package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
	"github.com/streamify-app/backend/internal/apperror"
	"github.com/streamify-app/backend/internal/chat"
	"github.com/streamify-app/backend/internal/models"
	"github.com/streamify-app/backend/internal/repositories"
	"github.com/streamify-app/backend/validators"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// DefaultSessionTTL is the lifetime of a session token.
const DefaultSessionTTL = 7 * 24 * time.Hour

const invalidCredentials = "Invalid email or password"

// IDTokenVerifier verifies an external identity provider token.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*models.FederatedIdentity, error)
}

// AuthService owns account creation, credential checks and session tokens.
type AuthService struct {
	users     repositories.UserRepository
	platform  chat.Platform
	syncer    *chat.Syncer
	validator *validators.Validator
	verifier  IDTokenVerifier
	log       logrus.FieldLogger

	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type AuthOptions struct {
	JWTSecret  string
	SessionTTL time.Duration
	// Verifier enables federated login when set.
	Verifier IDTokenVerifier
}

func NewAuthService(users repositories.UserRepository, platform chat.Platform, syncer *chat.Syncer, log logrus.FieldLogger, opts AuthOptions) *AuthService {
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &AuthService{
		users:     users,
		platform:  platform,
		syncer:    syncer,
		validator: validators.NewValidator(),
		verifier:  opts.Verifier,
		log:       log.WithField("component", "auth"),
		secret:    []byte(opts.JWTSecret),
		ttl:       ttl,
		now:       time.Now,
	}
}

// SessionTTL is the lifetime of issued tokens.
func (s *AuthService) SessionTTL() time.Duration { return s.ttl }

// FederatedLoginEnabled reports whether an ID token verifier is configured.
func (s *AuthService) FederatedLoginEnabled() bool { return s.verifier != nil }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func randomAvatar() string {
	return fmt.Sprintf("https://avatar.iran.liara.run/public/%d.png", rand.IntN(100)+1)
}

// Register creates an account and mirrors it to chat best-effort.
func (s *AuthService) Register(ctx context.Context, req models.SignupRequest) (*models.User, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if _, err := s.users.GetUserByEmail(ctx, req.Email); err == nil {
		return nil, apperror.Conflict("Email already exists, please use a different one")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, apperror.Unknown("failed to look up email", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.Unknown("failed to hash password", err)
	}

	user := &models.User{
		FullName:   req.FullName,
		Email:      req.Email,
		Password:   string(hash),
		ProfilePic: randomAvatar(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperror.Conflict("Email already exists, please use a different one")
		}
		return nil, apperror.Unknown("failed to create user", err)
	}
	user.Password = ""

	s.mirrorUser(ctx, user)
	s.log.WithField("user_id", user.ID.Hex()).Info("user registered")
	return user, nil
}

// Authenticate checks credentials. Unknown email and wrong password fail identically.
func (s *AuthService) Authenticate(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperror.Auth(invalidCredentials)
		}
		return nil, apperror.Unknown("failed to look up user", err)
	}
	if user.Password == "" {
		return nil, apperror.Auth(invalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperror.Auth(invalidCredentials)
	}
	user.Password = ""
	return user, nil
}

// IssueSession signs a token for userID and returns it with its expiry.
func (s *AuthService) IssueSession(userID primitive.ObjectID) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	claims := &models.JwtCustomClaims{
		UserID: userID.Hex(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, apperror.Unknown("failed to sign session", err)
	}
	return token, expires, nil
}

// ValidateSession verifies signature and expiry and resolves the user.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperror.Auth("Unauthorized - No token provided")
	}

	claims := &models.JwtCustomClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}); err != nil {
		return nil, apperror.Auth("Unauthorized - Invalid token")
	}
	if !claims.VerifyExpiresAt(s.now(), true) {
		return nil, apperror.Auth("Unauthorized - Invalid token")
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, apperror.Auth("Unauthorized - Invalid token")
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperror.Auth("Unauthorized - User not found")
		}
		return nil, apperror.Unknown("failed to load session user", err)
	}
	return user, nil
}

// CompleteOnboarding stores the profile and marks the user onboarded.
func (s *AuthService) CompleteOnboarding(ctx context.Context, userID primitive.ObjectID, req models.OnboardingRequest) (*models.User, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Bio = strings.TrimSpace(req.Bio)
	req.NativeLanguage = strings.TrimSpace(req.NativeLanguage)
	req.LearningLanguage = strings.TrimSpace(req.LearningLanguage)
	req.Location = strings.TrimSpace(req.Location)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.users.UpdateProfile(ctx, userID, models.Profile{
		FullName:         req.FullName,
		Bio:              req.Bio,
		NativeLanguage:   req.NativeLanguage,
		LearningLanguage: req.LearningLanguage,
		Location:         req.Location,
		ProfilePic:       req.ProfilePic,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperror.NotFound("User not found")
		}
		return nil, apperror.Unknown("failed to update profile", err)
	}

	s.mirrorUser(ctx, user)
	return user, nil
}

// FederatedLogin signs in with an external ID token, linking by email or
// creating a new account on first use.
func (s *AuthService) FederatedLogin(ctx context.Context, idToken string) (*models.User, error) {
	if s.verifier == nil {
		return nil, apperror.NotFound("Federated login is not enabled")
	}
	if strings.TrimSpace(idToken) == "" {
		return nil, apperror.Validation("All fields are required", "idToken")
	}

	identity, err := s.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		s.log.WithError(err).Debug("id token rejected")
		return nil, apperror.Auth("Invalid identity token")
	}
	email := normalizeEmail(identity.Email)

	user, err := s.users.GetUserByFirebaseUID(ctx, identity.UID)
	switch {
	case err == nil:
		return user, nil
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, apperror.Unknown("failed to look up federated user", err)
	}

	// accounts are keyed by a unique email
	if email == "" {
		return nil, apperror.Validation("Identity token has no email address", "email")
	}

	user, err = s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.users.LinkFirebaseUID(ctx, user.ID, identity.UID); err != nil {
			return nil, apperror.Unknown("failed to link federated identity", err)
		}
		user.Password = ""
		user.FirebaseUID = identity.UID
		return user, nil
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, apperror.Unknown("failed to look up email", err)
	}

	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	picture := identity.Picture
	if picture == "" {
		picture = randomAvatar()
	}
	user = &models.User{
		FullName:    name,
		Email:       email,
		ProfilePic:  picture,
		FirebaseUID: identity.UID,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperror.Conflict("Account already exists")
		}
		return nil, apperror.Unknown("failed to create user", err)
	}

	s.mirrorUser(ctx, user)
	s.log.WithField("user_id", user.ID.Hex()).Info("federated user created")
	return user, nil
}

// ChatToken issues a chat client token for userID.
func (s *AuthService) ChatToken(userID primitive.ObjectID) (string, error) {
	token, err := s.platform.CreateToken(userID.Hex(), s.ttl)
	if err != nil {
		return "", apperror.External("Failed to create chat token", err)
	}
	return token, nil
}

func (s *AuthService) mirrorUser(ctx context.Context, user *models.User) {
	s.syncer.BestEffort(ctx, models.SyncOpUpsertUser, user.ID.Hex(), "", func(ctx context.Context) error {
		return s.platform.UpsertUser(ctx, chat.UserFromModel(user))
	})
}
