package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/streamify-app/backend/internal/chat"
	"github.com/streamify-app/backend/internal/handlers"
	"github.com/streamify-app/backend/internal/middleware"
	"github.com/streamify-app/backend/internal/services"
	"github.com/streamify-app/backend/internal/testutil"
	"github.com/streamify-app/backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type app struct {
	e    *echo.Echo
	chat *testutil.FakeChat
}

func newApp(t *testing.T, opts Options) *app {
	t.Helper()
	log := logger.Discard()
	users := testutil.NewUserStore()
	fake := testutil.NewFakeChat()
	syncer := chat.NewSyncer(log, testutil.NewLedger())

	svc := Services{
		Auth:    services.NewAuthService(users, fake, syncer, log, services.AuthOptions{JWTSecret: "router-secret"}),
		Friends: services.NewFriendService(users, testutil.NewFriendRequestStore(), log),
		Groups: services.NewGroupService(testutil.NewGroupStore(), testutil.NewGroupRequestStore(), users,
			fake, syncer, services.PolicyExplicit, log),
	}

	e := echo.New()
	e.HTTPErrorHandler = handlers.ErrorHandler(log)
	SetupRoutes(e, svc, opts, log)
	return &app{e: e, chat: fake}
}

func (a *app) do(t *testing.T, method, path, body string, session *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if session != nil {
		req.AddCookie(session)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", middleware.CookieName)
	return nil
}

// signup registers and onboards a user, returning its session and id.
func (a *app) signup(t *testing.T, name string) (*http.Cookie, string) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/v1/auth/signup",
		`{"fullName":"`+name+`","email":"`+name+`@example.com","password":"secret123"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookie := sessionCookie(t, rec)
	user := decode(t, rec)["user"].(map[string]interface{})

	rec = a.do(t, http.MethodPost, "/api/v1/auth/onboarding",
		`{"fullName":"`+name+`","bio":"hi","nativeLanguage":"english","learningLanguage":"spanish","location":"Lisbon"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return cookie, user["_id"].(string)
}

func TestSignupSetsSessionCookie(t *testing.T) {
	a := newApp(t, Options{})

	rec := a.do(t, http.MethodPost, "/api/v1/auth/signup",
		`{"fullName":"Ana","email":"Ana@Example.com","password":"secret123"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cookie := sessionCookie(t, rec)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	body := decode(t, rec)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "ana@example.com", user["email"])
	assert.Equal(t, false, user["isOnboarded"])
	assert.NotContains(t, user, "password")

	_, mirrored := a.chat.User(user["_id"].(string))
	assert.True(t, mirrored)

	rec = a.do(t, http.MethodGet, "/api/v1/auth/me", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ana@example.com", decode(t, rec)["user"].(map[string]interface{})["email"])
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	a := newApp(t, Options{})

	for _, path := range []string{"/api/v1/auth/me", "/api/v1/user/friends", "/api/v1/group", "/api/v1/chat/token"} {
		rec := a.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		body := decode(t, rec)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Unauthorized - No token provided", body["message"])
	}

	rec := a.do(t, http.MethodGet, "/api/v1/auth/me", "", &http.Cookie{Name: middleware.CookieName, Value: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized - Invalid token", decode(t, rec)["message"])
}

func TestLogoutClearsCookie(t *testing.T) {
	a := newApp(t, Options{})

	rec := a.do(t, http.MethodPost, "/api/v1/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(t, rec)
	assert.Empty(t, cookie.Value)
	assert.Less(t, cookie.MaxAge, 0)
}

func TestValidationErrorShape(t *testing.T) {
	a := newApp(t, Options{})

	rec := a.do(t, http.MethodPost, "/api/v1/auth/signup", `{"email":"nope"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["message"])

	rec = a.do(t, http.MethodPost, "/api/v1/auth/signup", `{not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request payload", decode(t, rec)["message"])

	cookie, _ := a.signup(t, "ana")
	rec = a.do(t, http.MethodPost, "/api/v1/user/friend-request/not-an-id", "", cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid id", decode(t, rec)["message"])
}

func TestFriendAndGroupFlow(t *testing.T) {
	a := newApp(t, Options{})
	ana, anaID := a.signup(t, "ana")
	bob, bobID := a.signup(t, "bob")

	// recommendations
	rec := a.do(t, http.MethodGet, "/api/v1/user", "", ana)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["users"], 1)

	// friend request lifecycle
	rec = a.do(t, http.MethodPost, "/api/v1/user/friend-request/"+bobID, "", ana)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/v1/user/friend-request/"+anaID, "", bob)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/user/outgoing-friend-requests", "", ana)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["requests"], 1)

	rec = a.do(t, http.MethodGet, "/api/v1/user/friend-requests", "", bob)
	require.Equal(t, http.StatusOK, rec.Code)
	incoming := decode(t, rec)["requests"].([]interface{})
	require.Len(t, incoming, 1)
	requestID := incoming[0].(map[string]interface{})["_id"].(string)

	rec = a.do(t, http.MethodPut, "/api/v1/user/friend-request/"+requestID+"/accept", "", ana)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodPut, "/api/v1/user/friend-request/"+requestID+"/accept", "", bob)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/api/v1/user/friends", "", ana)
	require.Equal(t, http.StatusOK, rec.Code)
	friends := decode(t, rec)["friends"].([]interface{})
	require.Len(t, friends, 1)
	assert.Equal(t, bobID, friends[0].(map[string]interface{})["_id"])

	// group and join request
	rec = a.do(t, http.MethodPost, "/api/v1/group/create", `{"groupName":"Spanish club"}`, ana)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	group := decode(t, rec)["group"].(map[string]interface{})
	groupID := group["_id"].(string)
	assert.Equal(t, "group_"+groupID, group["streamChannelId"])

	rec = a.do(t, http.MethodPost, "/api/v1/group/create", `{"groupName":"Spanish club"}`, bob)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/v1/group/group-request/"+groupID, `{"recipientId":"`+anaID+`"}`, bob)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/api/v1/group/outgoing-group-requests", "", bob)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["requests"], 1)

	rec = a.do(t, http.MethodGet, "/api/v1/group/group-requests", "", ana)
	require.Equal(t, http.StatusOK, rec.Code)
	pending := decode(t, rec)["requests"].([]interface{})
	require.Len(t, pending, 1)
	groupRequestID := pending[0].(map[string]interface{})["_id"].(string)

	rec = a.do(t, http.MethodPut, "/api/v1/group/group-request/"+groupRequestID+"/accept", "", ana)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode(t, rec)["group"].(map[string]interface{})["members"], 2)

	members, ok := a.chat.Members("group_" + groupID)
	require.True(t, ok)
	assert.True(t, members[bobID])

	rec = a.do(t, http.MethodGet, "/api/v1/group", "", bob)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["groups"], 1)

	rec = a.do(t, http.MethodGet, "/api/v1/group/"+groupID, "", bob)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Spanish club", decode(t, rec)["group"].(map[string]interface{})["groupName"])

	// chat token
	rec = a.do(t, http.MethodGet, "/api/v1/chat/token", "", bob)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "token-"+bobID, decode(t, rec)["token"])
}

func TestChatTokenFailureIsBadGateway(t *testing.T) {
	a := newApp(t, Options{})
	cookie, _ := a.signup(t, "ana")

	a.chat.SetFailing(true)
	rec := a.do(t, http.MethodGet, "/api/v1/chat/token", "", cookie)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])
}

func TestAuthRateLimit(t *testing.T) {
	a := newApp(t, Options{AuthRateLimit: 1, AuthRateBurst: 1})

	rec := a.do(t, http.MethodPost, "/api/v1/auth/login", `{"email":"x@example.com","password":"nope"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/v1/auth/login", `{"email":"x@example.com","password":"nope"}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many requests, please try again later", decode(t, rec)["message"])
}

func TestHealth(t *testing.T) {
	a := newApp(t, Options{})

	rec := a.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
