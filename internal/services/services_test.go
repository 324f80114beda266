package services

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/streamify-app/backend/internal/chat"
	"github.com/streamify-app/backend/internal/models"
	"github.com/streamify-app/backend/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "test-secret"

type testEnv struct {
	users     *testutil.UserStore
	friendReq *testutil.FriendRequestStore
	groups    *testutil.GroupStore
	groupReq  *testutil.GroupRequestStore
	ledger    *testutil.Ledger
	chat      *testutil.FakeChat

	auth    *AuthService
	friends *FriendService
	group   *GroupService
}

func newTestEnv(t *testing.T, policy RecipientPolicy, verifier IDTokenVerifier) *testEnv {
	t.Helper()
	log, _ := test.NewNullLogger()
	env := &testEnv{
		users:     testutil.NewUserStore(),
		friendReq: testutil.NewFriendRequestStore(),
		groups:    testutil.NewGroupStore(),
		groupReq:  testutil.NewGroupRequestStore(),
		ledger:    testutil.NewLedger(),
		chat:      testutil.NewFakeChat(),
	}
	syncer := chat.NewSyncer(log, env.ledger)
	env.auth = NewAuthService(env.users, env.chat, syncer, log, AuthOptions{
		JWTSecret: testSecret,
		Verifier:  verifier,
	})
	env.friends = NewFriendService(env.users, env.friendReq, log)
	env.group = NewGroupService(env.groups, env.groupReq, env.users, env.chat, syncer, policy, log)
	return env
}

// seedUser stores an onboarded user without going through bcrypt.
func (e *testEnv) seedUser(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{
		FullName:    name,
		Email:       name + "@x.com",
		IsOnboarded: true,
	}
	require.NoError(t, e.users.CreateUser(context.Background(), u))
	return u
}

func (e *testEnv) user(t *testing.T, id primitive.ObjectID) *models.User {
	t.Helper()
	u, err := e.users.GetUserByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func countID(ids []primitive.ObjectID, id primitive.ObjectID) int {
	n := 0
	for _, x := range ids {
		if x == id {
			n++
		}
	}
	return n
}
