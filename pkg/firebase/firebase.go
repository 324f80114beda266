package firebase

import (
	"context"
	"errors"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/sirupsen/logrus"
	"github.com/streamify-app/backend/internal/models"
	"google.golang.org/api/option"
)

var ErrMissingEmail = errors.New("firebase token has no email claim")

// tokenVerifier is the subset of the Firebase auth client used for sign-in.
type tokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// App verifies Firebase ID tokens for federated sign-in
type App struct {
	FirebaseApp *firebase.App
	verifier    tokenVerifier
}

// InitFirebase initializes the Firebase application and authentication client
func InitFirebase(ctx context.Context, credentialsPath string, log logrus.FieldLogger) (*App, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("firebase credentials path not provided")
	}

	if _, err := os.Stat(credentialsPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("firebase credentials file not found at %s", credentialsPath)
	}

	opt := option.WithCredentialsFile(credentialsPath)

	firebaseApp, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase auth client: %w", err)
	}

	log.WithField("component", "firebase").Info("firebase auth client initialized")
	return &App{FirebaseApp: firebaseApp, verifier: authClient}, nil
}

// VerifyIDToken checks the token signature and maps its claims to an identity.
func (a *App) VerifyIDToken(ctx context.Context, idToken string) (*models.FederatedIdentity, error) {
	token, err := a.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}
	return identityFromToken(token)
}

func identityFromToken(token *auth.Token) (*models.FederatedIdentity, error) {
	email := stringClaim(token.Claims, "email")
	if email == "" {
		return nil, ErrMissingEmail
	}
	return &models.FederatedIdentity{
		UID:     token.UID,
		Email:   email,
		Name:    stringClaim(token.Claims, "name"),
		Picture: stringClaim(token.Claims, "picture"),
	}, nil
}

func stringClaim(claims map[string]interface{}, key string) string {
	v, _ := claims[key].(string)
	return v
}
