package firebase

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	token *auth.Token
	err   error
}

func (s stubVerifier) VerifyIDToken(context.Context, string) (*auth.Token, error) {
	return s.token, s.err
}

func TestVerifyIDToken(t *testing.T) {
	app := &App{verifier: stubVerifier{token: &auth.Token{
		UID: "fb-1",
		Claims: map[string]interface{}{
			"email":   "ana@example.com",
			"name":    "Ana",
			"picture": "https://img.example/ana.png",
		},
	}}}

	id, err := app.VerifyIDToken(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "fb-1", id.UID)
	assert.Equal(t, "ana@example.com", id.Email)
	assert.Equal(t, "Ana", id.Name)
	assert.Equal(t, "https://img.example/ana.png", id.Picture)
}

func TestVerifyIDTokenWithoutEmail(t *testing.T) {
	app := &App{verifier: stubVerifier{token: &auth.Token{UID: "fb-2", Claims: map[string]interface{}{}}}}

	_, err := app.VerifyIDToken(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrMissingEmail)
}

func TestVerifyIDTokenRejected(t *testing.T) {
	boom := errors.New("expired")
	app := &App{verifier: stubVerifier{err: boom}}

	_, err := app.VerifyIDToken(context.Background(), "tok")
	assert.ErrorIs(t, err, boom)
}

func TestInitFirebaseMissingCredentials(t *testing.T) {
	log, _ := test.NewNullLogger()

	_, err := InitFirebase(context.Background(), "", log)
	assert.Error(t, err)

	_, err = InitFirebase(context.Background(), "/nonexistent/creds.json", log)
	assert.Error(t, err)
}
