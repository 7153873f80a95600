package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"food-ordering-api/events"
	"food-ordering-api/handlers"
	"food-ordering-api/models"
	"food-ordering-api/services"
	"food-ordering-api/store"
	"food-ordering-api/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type api struct {
	t      *testing.T
	router *gin.Engine
	store  *store.Store
	auth   services.AuthService
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := store.OpenSQLite(":memory:")
	require.NoError(t, err)
	st := store.NewGormStore(db)
	t.Cleanup(func() { _ = st.Close(context.Background()) })

	tokens, err := token.NewService(token.Options{
		Secret: "routes-secret", Issuer: "test", AccessTTL: 30 * time.Minute, RefreshTTL: time.Hour,
	})
	require.NoError(t, err)

	log := zap.NewNop()
	authSvc := services.NewAuthService(st.Users, st.Catalog, tokens, services.AuthOptions{
		InitialAdminEmail: "admin@example.com", RevalidateRefresh: true, StoreTimeout: 5 * time.Second,
	}, log)
	orderSvc := services.NewOrderService(st.Orders, st.Catalog, events.Nop{}, 5*time.Second, log)

	router := NewRouter(log, tokens, Handlers{
		Auth:   handlers.NewAuthHandler(authSvc),
		Orders: handlers.NewOrderHandler(orderSvc),
		Owner:  handlers.NewOwnerHandler(orderSvc),
		Admin:  handlers.NewAdminHandler(authSvc),
		Public: handlers.NewPublicHandler(st.Catalog, st, "food-ordering-api", 5*time.Second),
	})

	require.NoError(t, st.Catalog.SaveRestaurant(context.Background(), &models.Restaurant{
		ID: "rest-a", Name: "Burger Haven", IsOpen: true,
		MenuItems: []models.MenuItem{
			{ID: "burger", Name: "Classic Burger", PriceCents: 500, IsAvailable: true, Category: "Burgers"},
			{ID: "fries", Name: "Fries", PriceCents: 300, IsAvailable: true, Category: "Sides", IsVeg: true},
		},
	}))
	return &api{t: t, router: router, store: st, auth: authSvc}
}

func (a *api) do(method, path, bearer string, body any) (int, map[string]any) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

// signup registers and logs in, returning the access and refresh tokens.
func (a *api) signup(email string) (string, string) {
	a.t.Helper()
	code, _ := a.do(http.MethodPost, "/auth/register", "", gin.H{"name": "U", "email": email, "password": "password123"})
	require.Equal(a.t, http.StatusCreated, code)
	code, body := a.do(http.MethodPost, "/auth/login", "", gin.H{"email": email, "password": "password123"})
	require.Equal(a.t, http.StatusOK, code)
	assert.Equal(a.t, "bearer", body["token_type"])
	return body["access_token"].(string), body["refresh_token"].(string)
}

func TestAuthFlow(t *testing.T) {
	a := newAPI(t)
	access, refresh := a.signup("jane@example.com")

	code, body := a.do(http.MethodGet, "/auth/me", access, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "jane@example.com", body["email"])
	assert.Equal(t, "customer", body["role"])
	assert.NotContains(t, body, "password_hash")

	code, body = a.do(http.MethodPost, "/auth/refresh", "", gin.H{"refresh_token": refresh})
	assert.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, body["access_token"])

	code, body = a.do(http.MethodPost, "/auth/refresh", "", gin.H{"refresh_token": access})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid_token", body["error_kind"])

	code, body = a.do(http.MethodGet, "/auth/me", refresh, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid_token", body["error_kind"])

	code, body = a.do(http.MethodPost, "/auth/register", "", gin.H{"name": "J", "email": "JANE@example.com", "password": "password123"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "email_taken", body["error_kind"])

	code, body = a.do(http.MethodPost, "/auth/login", "", gin.H{"email": "jane@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid_credentials", body["error_kind"])

	code, _ = a.do(http.MethodPut, "/auth/password", access, gin.H{"old_password": "password123", "new_password": "newpassword"})
	assert.Equal(t, http.StatusOK, code)
}

func TestUpdateOwnProfile(t *testing.T) {
	a := newAPI(t)
	access, _ := a.signup("jane@example.com")

	code, body := a.do(http.MethodPut, "/auth/me", access, gin.H{"name": "Jane Doe", "address": "1 Main St"})
	require.Equal(t, http.StatusOK, code, body)
	user := body["user"].(map[string]any)
	assert.Equal(t, "Jane Doe", user["name"])
	assert.Equal(t, "1 Main St", user["address"])
	assert.Equal(t, "customer", user["role"])

	code, body = a.do(http.MethodGet, "/auth/me", access, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Jane Doe", body["name"])

	// role is not a profile field
	code, body = a.do(http.MethodPut, "/auth/me", access, gin.H{"role": "admin"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_input", body["error_kind"])

	code, _ = a.do(http.MethodPut, "/auth/me", "", gin.H{"name": "Nobody"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestMultibytePasswordOverLimitIsRejected(t *testing.T) {
	a := newAPI(t)

	code, body := a.do(http.MethodPost, "/auth/register", "", gin.H{
		"name": "Zoé", "email": "zoe@example.com", "password": strings.Repeat("é", 40),
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_input", body["error_kind"])
}

func TestValidationErrorsListFields(t *testing.T) {
	a := newAPI(t)

	code, body := a.do(http.MethodPost, "/auth/register", "", gin.H{"email": "not-an-email", "password": "1"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_input", body["error_kind"])
	fields, ok := body["fields"].(map[string]any)
	require.True(t, ok, body)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	a := newAPI(t)
	ctx := context.Background()
	customer, _ := a.signup("cust@example.com")
	adminTok, _ := a.signup("admin@example.com")
	ownerTok, _ := a.signup("owner@example.com")
	otherOwnerTok, _ := a.signup("other@example.com")

	owner, err := a.store.Users.FindByEmail(ctx, "owner@example.com")
	require.NoError(t, err)
	code, _ := a.do(http.MethodPut, "/admin/users/"+owner.ID+"/role", adminTok, gin.H{"role": "owner", "restaurant_id": "rest-a"})
	require.Equal(t, http.StatusOK, code)
	other, err := a.store.Users.FindByEmail(ctx, "other@example.com")
	require.NoError(t, err)
	code, _ = a.do(http.MethodPut, "/admin/users/"+other.ID+"/role", adminTok, gin.H{"role": "owner"})
	require.Equal(t, http.StatusOK, code)

	// owners need a token carrying the new role
	ownerTok = a.relogin("owner@example.com")
	otherOwnerTok = a.relogin("other@example.com")

	code, body := a.do(http.MethodPost, "/orders", customer, gin.H{
		"restaurant_id":    "rest-a",
		"delivery_address": "1 Main St",
		"items": []gin.H{
			{"menu_item_id": "burger", "quantity": 2},
			{"menu_item_id": "fries", "quantity": 1},
		},
	})
	require.Equal(t, http.StatusCreated, code, body)
	order := body["order"].(map[string]any)
	orderID := order["id"].(string)
	assert.Equal(t, float64(1300), order["total_cents"])
	assert.Equal(t, "placed", order["status"])

	code, body = a.do(http.MethodPost, "/orders", ownerTok, gin.H{
		"restaurant_id": "rest-a", "delivery_address": "x",
		"items": []gin.H{{"menu_item_id": "burger", "quantity": 1}},
	})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", body["error_kind"])

	code, body = a.do(http.MethodPatch, "/orders/"+orderID+"/status", customer, gin.H{"status": "delivered"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "invalid_transition", body["error_kind"])

	code, body = a.do(http.MethodPatch, "/orders/"+orderID+"/status", otherOwnerTok, gin.H{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", body["error_kind"])

	code, body = a.do(http.MethodPatch, "/orders/"+orderID+"/status", ownerTok, gin.H{"status": "bogus"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_input", body["error_kind"])

	code, body = a.do(http.MethodPatch, "/orders/"+orderID+"/status", ownerTok, gin.H{"status": "confirmed"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "confirmed", body["order"].(map[string]any)["status"])
	assert.ElementsMatch(t, []any{"preparing", "cancelled"}, body["valid_transitions"])

	code, body = a.do(http.MethodGet, "/orders/"+orderID, customer, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["order"].(map[string]any)["history"], 2)

	code, body = a.do(http.MethodGet, "/orders", ownerTok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["count"])

	code, body = a.do(http.MethodGet, "/orders?status=nope", ownerTok, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_input", body["error_kind"])

	code, body = a.do(http.MethodGet, "/owner/summary", ownerTok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["total_orders"])

	code, _ = a.do(http.MethodGet, "/owner/summary", customer, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = a.do(http.MethodPut, "/admin/users/"+owner.ID+"/role", ownerTok, gin.H{"role": "admin"})
	assert.Equal(t, http.StatusForbidden, code)

	code, body = a.do(http.MethodGet, "/orders/missing", adminTok, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", body["error_kind"])
}

func (a *api) relogin(email string) string {
	a.t.Helper()
	code, body := a.do(http.MethodPost, "/auth/login", "", gin.H{"email": email, "password": "password123"})
	require.Equal(a.t, http.StatusOK, code)
	return body["access_token"].(string)
}

func TestPublicRoutes(t *testing.T) {
	a := newAPI(t)

	code, body := a.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])

	code, body = a.do(http.MethodGet, "/state-machine", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["state_machine"], 6)
	assert.ElementsMatch(t, []any{"delivered", "cancelled"}, body["terminal_states"])

	code, body = a.do(http.MethodGet, "/restaurants/rest-a/menu?is_veg=true", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["count"])

	code, body = a.do(http.MethodGet, "/restaurants/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", body["error_kind"])

	code, _ = a.do(http.MethodGet, "/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}
