package accessgate

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordovik/eshop/internal/tokens"
)

var (
	testSecret  = []byte("test-access-secret")
	otherSecret = []byte("test-refresh-secret")
)

func newTestServer(t *testing.T) (*echo.Echo, *Gate) {
	t.Helper()

	e := echo.New()
	gate := &Gate{AccessSecret: testSecret}

	e.GET("/public", okHandler, gate.Require(Policy{Public: true}))
	e.GET("/private", okHandler, gate.Require(Policy{}))
	e.GET("/admin", okHandler, gate.Require(Policy{Roles: []string{"admin"}}))
	e.GET("/owned/:userId", okHandler, gate.Require(Policy{OwnerParam: "userId"}))
	e.GET("/admin-owned/:userId", okHandler, gate.Require(Policy{Roles: []string{"admin", "user"}, OwnerParam: "userId"}))

	return e, gate
}

func okHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"user_id": asString(c.Get(ContextUserID)),
		"role":    asString(c.Get(ContextRole)),
	})
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func signToken(t *testing.T, secret []byte, ttl time.Duration, userID uuid.UUID, role string) string {
	t.Helper()

	iss := tokens.Issuer{Secret: secret, TTL: ttl}
	token, err := iss.Sign(userID, "user@example.com", "User", role)
	require.NoError(t, err)
	return token
}

func doRequest(e *echo.Echo, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGate_PublicBypass(t *testing.T) {
	t.Parallel()

	e, _ := newTestServer(t)
	rec := doRequest(e, "/public", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGate_MissingToken(t *testing.T) {
	t.Parallel()

	e, _ := newTestServer(t)
	rec := doRequest(e, "/private", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGate_MalformedAuthorizationHeader(t *testing.T) {
	t.Parallel()

	e, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set(echo.HeaderAuthorization, "Basic dXNlcjpwdw==")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGate_InvalidToken(t *testing.T) {
	t.Parallel()

	e, _ := newTestServer(t)
	rec := doRequest(e, "/private", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGate_ForeignKeyToken(t *testing.T) {
	t.Parallel()

	e, _ := newTestServer(t)
	// signed with the refresh secret: never accepted by the gate
	token := signToken(t, otherSecret, time.Minute, uuid.New(), "admin")
	rec := doRequest(e, "/private", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGate_ExpiredTokenAlwaysUnauthenticated(t *testing.T) {
	t.Parallel()

	e, _ := newTestServer(t)
	token := signToken(t, testSecret, -time.Minute, uuid.New(), "admin")

	// expiry fails authentication before any role/ownership is considered
	for _, path := range []string{"/private", "/admin", "/owned/" + uuid.NewString()} {
		rec := doRequest(e, path, token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestGate_ValidTokenAttachesIdentity(t *testing.T) {
	t.Parallel()

	e, _ := newTestServer(t)
	userID := uuid.New()
	token := signToken(t, testSecret, time.Minute, userID, "user")

	rec := doRequest(e, "/private", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), userID.String())
	assert.Contains(t, rec.Body.String(), `"role":"user"`)
}

func TestGate_RoleRequirement(t *testing.T) {
	t.Parallel()

	e, _ := newTestServer(t)

	userToken := signToken(t, testSecret, time.Minute, uuid.New(), "user")
	rec := doRequest(e, "/admin", userToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	adminToken := signToken(t, testSecret, time.Minute, uuid.New(), "admin")
	rec = doRequest(e, "/admin", adminToken)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGate_Ownership(t *testing.T) {
	t.Parallel()

	e, _ := newTestServer(t)
	u1 := uuid.New()
	u2 := uuid.New()

	u1Token := signToken(t, testSecret, time.Minute, u1, "user")

	// own resource passes
	rec := doRequest(e, "/owned/"+u1.String(), u1Token)
	assert.Equal(t, http.StatusOK, rec.Code)

	// someone else's resource is forbidden
	rec = doRequest(e, "/owned/"+u2.String(), u1Token)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// admin override works against any owner
	adminToken := signToken(t, testSecret, time.Minute, uuid.New(), "admin")
	rec = doRequest(e, "/owned/"+u2.String(), adminToken)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGate_RoleAndOwnershipAreConjoined(t *testing.T) {
	t.Parallel()

	e, _ := newTestServer(t)
	u1 := uuid.New()
	u2 := uuid.New()

	// role check passes ("user" is in the set) but ownership still fails
	token := signToken(t, testSecret, time.Minute, u1, "user")
	rec := doRequest(e, "/admin-owned/"+u2.String(), token)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(e, "/admin-owned/"+u1.String(), token)
	assert.Equal(t, http.StatusOK, rec.Code)
}
