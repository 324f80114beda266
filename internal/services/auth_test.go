package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/streamify-app/backend/internal/apperror"
	"github.com/streamify-app/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stubVerifier struct {
	identity *models.FederatedIdentity
	err      error
}

func (v stubVerifier) VerifyIDToken(context.Context, string) (*models.FederatedIdentity, error) {
	return v.identity, v.err
}

// tokenIdentities maps each ID token to the identity it verifies as.
type tokenIdentities map[string]*models.FederatedIdentity

func (m tokenIdentities) VerifyIDToken(_ context.Context, token string) (*models.FederatedIdentity, error) {
	if id, ok := m[token]; ok {
		return id, nil
	}
	return nil, errors.New("unknown token")
}

func TestRegisterHashesPasswordAndMirrorsUser(t *testing.T) {
	env := newTestEnv(t, PolicyExplicit, nil)
	ctx := context.Background()

	user, err := env.auth.Register(ctx, models.SignupRequest{
		FullName: "Alice", Email: " Alice@X.com ", Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", user.Email)
	assert.False(t, user.IsOnboarded)
	assert.Empty(t, user.Password)
	assert.NotEmpty(t, user.ProfilePic)

	stored, err := env.users.GetUserByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.Password)
	assert.NotEmpty(t, stored.Password)

	mirrored, ok := env.chat.User(user.ID.Hex())
	require.True(t, ok)
	assert.Equal(t, "Alice", mirrored.Name)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	env := newTestEnv(t, PolicyExplicit, nil)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, models.SignupRequest{FullName: "Alice", Email: "alice@x.com", Password: "secret1"})
	require.NoError(t, err)

	for _, email := range []string{"alice@x.com", "ALICE@x.com"} {
		_, err = env.auth.Register(ctx, models.SignupRequest{FullName: "Other", Email: email, Password: "another"})
		assert.True(t, apperror.Is(err, apperror.KindConflict), email)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t, PolicyExplicit, nil)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, models.SignupRequest{Email: "a@x.com"})
	require.True(t, apperror.Is(err, apperror.KindValidation))
	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.ElementsMatch(t, []string{"fullName", "password"}, appErr.Fields)

	_, err = env.auth.Register(ctx, models.SignupRequest{FullName: "A", Email: "not-an-email", Password: "secret1"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = env.auth.Register(ctx, models.SignupRequest{FullName: "A", Email: "a@x.com", Password: "12345"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestRegisterSucceedsWhenChatIsDown(t *testing.T) {
	env := newTestEnv(t, PolicyExplicit, nil)
	env.chat.SetFailing(true)

	user, err := env.auth.Register(context.Background(), models.SignupRequest{
		FullName: "Alice", Email: "alice@x.com", Password: "secret1",
	})
	require.NoError(t, err)

	events := env.ledger.Events()
	require.Len(t, events, 1)
	assert.Equal(t, models.SyncOpUpsertUser, events[0].Op)
	assert.Equal(t, user.ID.Hex(), events[0].SubjectID)
}

func TestAuthenticateDoesNotDistinguishUnknownEmail(t *testing.T) {
	env := newTestEnv(t, PolicyExplicit, nil)
	ctx := context.Background()
	_, err := env.auth.Register(ctx, models.SignupRequest{FullName: "Alice", Email: "alice@x.com", Password: "secret1"})
	require.NoError(t, err)

	_, unknownErr := env.auth.Authenticate(ctx, models.LoginRequest{Email: "nobody@x.com", Password: "secret1"})
	_, wrongErr := env.auth.Authenticate(ctx, models.LoginRequest{Email: "alice@x.com", Password: "wrong-pw"})

	require.Error(t, unknownErr)
	require.Error(t, wrongErr)
	assert.Equal(t, apperror.KindAuth, apperror.KindOf(unknownErr))
	assert.Equal(t, apperror.KindOf(unknownErr), apperror.KindOf(wrongErr))
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())

	user, err := env.auth.Authenticate(ctx, models.LoginRequest{Email: "ALICE@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Empty(t, user.Password)
}

func TestSessionRoundTrip(t *testing.T) {
	env := newTestEnv(t, PolicyExplicit, nil)
	alice := env.seedUser(t, "alice")

	token, expires, err := env.auth.IssueSession(alice.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(DefaultSessionTTL), expires, time.Minute)

	user, err := env.auth.ValidateSession(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, user.ID)
}

func TestValidateSessionRejectsExpiredTokens(t *testing.T) {
	env := newTestEnv(t, PolicyExplicit, nil)
	alice := env.seedUser(t, "alice")

	for _, age := range []time.Duration{DefaultSessionTTL + time.Second, 30 * 24 * time.Hour} {
		env.auth.now = func() time.Time { return time.Now().Add(-age) }
		token, _, err := env.auth.IssueSession(alice.ID)
		require.NoError(t, err)

		env.auth.now = time.Now
		_, err = env.auth.ValidateSession(context.Background(), token)
		assert.True(t, apperror.Is(err, apperror.KindAuth), age.String())
	}
}

func TestValidateSessionRejectsBadTokens(t *testing.T) {
	env := newTestEnv(t, PolicyExplicit, nil)
	ctx := context.Background()

	_, err := env.auth.ValidateSession(ctx, "")
	assert.True(t, apperror.Is(err, apperror.KindAuth))

	_, err = env.auth.ValidateSession(ctx, "not.a.token")
	assert.True(t, apperror.Is(err, apperror.KindAuth))

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JwtCustomClaims{
		UserID: env.seedUser(t, "alice").ID.Hex(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = env.auth.ValidateSession(ctx, forged)
	assert.True(t, apperror.Is(err, apperror.KindAuth))

	ghost, _, err := env.auth.IssueSession(primitive.NewObjectID())
	require.NoError(t, err)
	_, err = env.auth.ValidateSession(ctx, ghost)
	assert.True(t, apperror.Is(err, apperror.KindAuth))
}

func TestCompleteOnboarding(t *testing.T) {
	env := newTestEnv(t, PolicyExplicit, nil)
	ctx := context.Background()
	alice, err := env.auth.Register(ctx, models.SignupRequest{FullName: "Alice", Email: "alice@x.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = env.auth.CompleteOnboarding(ctx, alice.ID, models.OnboardingRequest{FullName: "Alice", Bio: "  "})
	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.KindValidation, appErr.Kind)
	assert.ElementsMatch(t, []string{"bio", "nativeLanguage", "learningLanguage", "location"}, appErr.Fields)

	user, err := env.auth.CompleteOnboarding(ctx, alice.ID, models.OnboardingRequest{
		FullName: "Alice L", Bio: "hola", NativeLanguage: "english", LearningLanguage: "spanish", Location: "Lisbon",
	})
	require.NoError(t, err)
	assert.True(t, user.IsOnboarded)
	assert.Equal(t, "spanish", user.LearningLanguage)

	mirrored, ok := env.chat.User(alice.ID.Hex())
	require.True(t, ok)
	assert.Equal(t, "Alice L", mirrored.Name)

	_, err = env.auth.CompleteOnboarding(ctx, primitive.NewObjectID(), models.OnboardingRequest{
		FullName: "x", Bio: "x", NativeLanguage: "x", LearningLanguage: "x", Location: "x",
	})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestFederatedLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled without verifier", func(t *testing.T) {
		env := newTestEnv(t, PolicyExplicit, nil)
		assert.False(t, env.auth.FederatedLoginEnabled())
		_, err := env.auth.FederatedLogin(ctx, "token")
		assert.True(t, apperror.Is(err, apperror.KindNotFound))
	})

	t.Run("rejected token", func(t *testing.T) {
		env := newTestEnv(t, PolicyExplicit, stubVerifier{err: errors.New("expired")})
		_, err := env.auth.FederatedLogin(ctx, "token")
		assert.True(t, apperror.Is(err, apperror.KindAuth))
	})

	t.Run("creates then reuses account", func(t *testing.T) {
		env := newTestEnv(t, PolicyExplicit, stubVerifier{identity: &models.FederatedIdentity{
			UID: "fb-1", Email: "Carol@x.com", Name: "Carol",
		}})
		first, err := env.auth.FederatedLogin(ctx, "token")
		require.NoError(t, err)
		assert.Equal(t, "carol@x.com", first.Email)
		assert.False(t, first.IsOnboarded)

		second, err := env.auth.FederatedLogin(ctx, "token")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("links existing email account", func(t *testing.T) {
		env := newTestEnv(t, PolicyExplicit, stubVerifier{identity: &models.FederatedIdentity{
			UID: "fb-2", Email: "dave@x.com",
		}})
		dave := env.seedUser(t, "dave")

		user, err := env.auth.FederatedLogin(ctx, "token")
		require.NoError(t, err)
		assert.Equal(t, dave.ID, user.ID)

		linked, err := env.users.GetUserByFirebaseUID(ctx, "fb-2")
		require.NoError(t, err)
		assert.Equal(t, dave.ID, linked.ID)
	})

	t.Run("identity without email is rejected", func(t *testing.T) {
		env := newTestEnv(t, PolicyExplicit, tokenIdentities{
			"token-a": {UID: "uid-a"},
			"token-b": {UID: "uid-b", Name: "No Mail"},
		})

		for _, token := range []string{"token-a", "token-b"} {
			user, err := env.auth.FederatedLogin(ctx, token)
			assert.Nil(t, user)
			require.True(t, apperror.Is(err, apperror.KindValidation), "%s: %v", token, err)

			var appErr *apperror.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, []string{"email"}, appErr.Fields)
		}

		_, err := env.users.GetUserByFirebaseUID(ctx, "uid-a")
		assert.Error(t, err)
		assert.Zero(t, env.chat.Calls())
	})
}

func TestChatToken(t *testing.T) {
	env := newTestEnv(t, PolicyExplicit, nil)
	id := primitive.NewObjectID()

	token, err := env.auth.ChatToken(id)
	require.NoError(t, err)
	assert.Equal(t, "token-"+id.Hex(), token)

	env.chat.SetFailing(true)
	_, err = env.auth.ChatToken(id)
	assert.True(t, apperror.Is(err, apperror.KindExternal))
}
