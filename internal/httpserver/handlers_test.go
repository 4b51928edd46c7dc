package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ordovik/eshop/internal/hash"
	"github.com/ordovik/eshop/internal/middleware/accessgate"
	"github.com/ordovik/eshop/internal/models"
	"github.com/ordovik/eshop/internal/service"
	"github.com/ordovik/eshop/internal/tokens"
)

type testEnv struct {
	T  *testing.T
	E  *echo.Echo
	DB *gorm.DB

	AccessSecret []byte
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Product{}, &models.Order{}, &models.OrderItem{}))

	accessSecret := []byte("test-jwt-secret")
	authSvc := &service.AuthService{
		DB:      db,
		Hasher:  hash.Hasher{Cost: 4},
		Access:  tokens.Issuer{Secret: accessSecret, TTL: 15 * time.Minute},
		Refresh: tokens.Issuer{Secret: []byte("test-refresh-secret"), TTL: 24 * time.Hour},
	}
	orderSvc := &service.OrderService{DB: db}

	e := echo.New()
	Register(e, &Deps{
		Gate:     &accessgate.Gate{AccessSecret: accessSecret},
		Auth:     &AuthHandler{Svc: authSvc},
		Orders:   &OrderHandler{Svc: orderSvc},
		Items:    &OrderItemHandler{Svc: orderSvc},
		Products: &ProductHandler{DB: db},
		Users:    &UserHandler{DB: db},
	})

	return &testEnv{T: t, E: e, DB: db, AccessSecret: accessSecret}
}

func (env *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	env.T.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) decode(rec *httptest.ResponseRecorder, out interface{}) {
	env.T.Helper()
	require.NoError(env.T, json.Unmarshal(rec.Body.Bytes(), out))
}

// registerAndLogin runs the public endpoints and returns the user plus tokens.
func (env *testEnv) registerAndLogin(name, email, password string) (models.User, service.TokenPair) {
	env.T.Helper()

	rec := env.do(http.MethodPost, "/auth/register", "", RegisterRequest{Name: name, Email: email, Password: password})
	require.Equal(env.T, http.StatusCreated, rec.Code, rec.Body.String())
	var user models.User
	env.decode(rec, &user)

	rec = env.do(http.MethodPost, "/auth/login", "", LoginRequest{Email: email, Password: password})
	require.Equal(env.T, http.StatusOK, rec.Code, rec.Body.String())
	var pair service.TokenPair
	env.decode(rec, &pair)

	return user, pair
}

func (env *testEnv) promoteToAdmin(userID string) {
	env.T.Helper()
	require.NoError(env.T, env.DB.Model(&models.User{}).Where("id = ?", userID).Update("role", "admin").Error)
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/auth/register", "", RegisterRequest{
		Name: "Alice", Email: "alice@example.com", Password: "Secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var user models.User
	env.decode(rec, &user)
	assert.Equal(t, "Alice", user.Name)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "user", user.Role)
	assert.NotEmpty(t, user.ID)
	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, rec.Body.String(), "hash")

	// duplicate email: opaque failure, no storage detail
	rec = env.do(http.MethodPost, "/auth/register", "", RegisterRequest{
		Name: "Alice2", Email: "alice@example.com", Password: "Secret123",
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "UNIQUE")
	assert.NotContains(t, rec.Body.String(), "constraint")
}

func TestLoginAndRefresh(t *testing.T) {
	env := newTestEnv(t)

	user, pair := env.registerAndLogin("Alice", "alice@example.com", "Secret123")
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	claims, err := tokens.Parse(pair.AccessToken, env.AccessSecret)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)

	rec := env.do(http.MethodPost, "/auth/refresh", "", RefreshRequest{RefreshToken: pair.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)
	var refreshed service.TokenPair
	env.decode(rec, &refreshed)
	require.NotEmpty(t, refreshed.AccessToken)

	newClaims, err := tokens.Parse(refreshed.AccessToken, env.AccessSecret)
	require.NoError(t, err)
	assert.Equal(t, claims.Subject, newClaims.Subject)
	assert.Equal(t, claims.Email, newClaims.Email)

	// a refresh attempt with the access token fails: disjoint key material
	rec = env.do(http.MethodPost, "/auth/refresh", "", RefreshRequest{RefreshToken: pair.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_BadCredentialsAreUniform(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndLogin("Alice", "alice@example.com", "Secret123")

	recWrongPass := env.do(http.MethodPost, "/auth/login", "", LoginRequest{Email: "alice@example.com", Password: "nope"})
	recNoUser := env.do(http.MethodPost, "/auth/login", "", LoginRequest{Email: "ghost@example.com", Password: "Secret123"})

	assert.Equal(t, http.StatusUnauthorized, recWrongPass.Code)
	assert.Equal(t, http.StatusUnauthorized, recNoUser.Code)
	assert.Equal(t, recWrongPass.Body.String(), recNoUser.Body.String())
}

func TestOrderFlowOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	alice, alicePair := env.registerAndLogin("Alice", "alice@example.com", "Secret123")
	_, bobPair := env.registerAndLogin("Bob", "bob@example.com", "Secret456")

	admin, _ := env.registerAndLogin("Root", "root@example.com", "Secret789")
	env.promoteToAdmin(admin.ID.String())
	rec := env.do(http.MethodPost, "/auth/login", "", LoginRequest{Email: "root@example.com", Password: "Secret789"})
	require.Equal(t, http.StatusOK, rec.Code)
	var adminPair service.TokenPair
	env.decode(rec, &adminPair)

	// admin creates a product
	rec = env.do(http.MethodPost, "/products", adminPair.AccessToken, CreateProductRequest{
		Name: "widget", Price: 50, Count: 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var product models.Product
	env.decode(rec, &product)

	// a non-admin cannot
	rec = env.do(http.MethodPost, "/products", alicePair.AccessToken, CreateProductRequest{Name: "x", Price: 1})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// alice opens an order
	rec = env.do(http.MethodPost, "/orders/user/"+alice.ID.String(), alicePair.AccessToken, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var order models.Order
	env.decode(rec, &order)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, int64(0), order.Total)

	// bob cannot touch alice's order scope
	rec = env.do(http.MethodGet, "/orders/user/"+alice.ID.String(), bobPair.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// but the admin can
	rec = env.do(http.MethodGet, "/orders/user/"+alice.ID.String(), adminPair.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// no token at all
	rec = env.do(http.MethodGet, "/orders/user/"+alice.ID.String(), "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// item added through the order-item layer bumps the total
	rec = env.do(http.MethodPost, "/order-items/user/"+alice.ID.String(), alicePair.AccessToken, CreateOrderItemRequest{
		OrderID: order.ID, ProductID: product.ID, Quantity: 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(http.MethodGet, "/orders/"+order.ID.String()+"/user/"+alice.ID.String(), alicePair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.Order
	env.decode(rec, &got)
	assert.Equal(t, int64(100), got.Total)
	require.Len(t, got.Items, 1)

	// legal transition
	rec = env.do(http.MethodPatch, "/orders/"+order.ID.String()+"/status/user/"+alice.ID.String(),
		alicePair.AccessToken, PatchStatusRequest{Status: models.OrderStatusPaid})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var upd UpdatedResponse
	env.decode(rec, &upd)
	assert.Equal(t, int64(1), upd.Updated)

	// illegal transition
	rec = env.do(http.MethodPatch, "/orders/"+order.ID.String()+"/status/user/"+alice.ID.String(),
		alicePair.AccessToken, PatchStatusRequest{Status: models.OrderStatusPending})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUser_OwnershipAndIdentityView(t *testing.T) {
	env := newTestEnv(t)

	alice, alicePair := env.registerAndLogin("Alice", "alice@example.com", "Secret123")
	_, bobPair := env.registerAndLogin("Bob", "bob@example.com", "Secret456")

	rec := env.do(http.MethodGet, "/users/"+alice.ID.String(), alicePair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hash")

	rec = env.do(http.MethodGet, "/users/"+alice.ID.String(), bobPair.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
