package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/classbank/backend/internal/models"
	"github.com/classbank/backend/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountService_ListAccounts(t *testing.T) {
	setTestConfig(t)
	store := storage.NewMemoryStore()
	ctx := context.Background()

	admin := &models.Account{Username: "Panda43", Role: models.RoleAdministrator, Balance: 1000000, CreditScore: 850}
	student := &models.Account{Username: "Lion12", Role: models.RoleStandard, Balance: 100000, CreditScore: 650}
	require.NoError(t, store.CreateAccount(ctx, admin))
	require.NoError(t, store.CreateAccount(ctx, student))

	service := NewAccountService(store)

	t.Run("students get the directory without balances", func(t *testing.T) {
		r := asUser(httptest.NewRequest("GET", "/api/v1/accounts", nil), student.ID)
		w := httptest.NewRecorder()
		service.ListAccounts(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.NotContains(t, body, "balance")
		assert.NotContains(t, body, "creditScore")

		var resp struct {
			Accounts []AccountSummary `json:"accounts"`
			Count    int              `json:"count"`
		}
		require.NoError(t, json.Unmarshal([]byte(body), &resp))
		assert.Equal(t, 2, resp.Count)
	})

	t.Run("administrators get full records", func(t *testing.T) {
		r := asUser(httptest.NewRequest("GET", "/api/v1/accounts", nil), admin.ID)
		w := httptest.NewRecorder()
		service.ListAccounts(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "balance")
	})
}

func TestAccountService_GetAccount(t *testing.T) {
	setTestConfig(t)
	store := storage.NewMemoryStore()
	ctx := context.Background()

	admin := &models.Account{Username: "Panda43", Role: models.RoleAdministrator, Balance: 1000000, CreditScore: 850}
	student := &models.Account{Username: "Lion12", Role: models.RoleStandard, Balance: 100000, CreditScore: 650}
	other := &models.Account{Username: "Zebra34", Role: models.RoleStandard, Balance: 100000, CreditScore: 650}
	require.NoError(t, store.CreateAccount(ctx, admin))
	require.NoError(t, store.CreateAccount(ctx, student))
	require.NoError(t, store.CreateAccount(ctx, other))

	service := NewAccountService(store)
	router := chi.NewRouter()
	router.Get("/accounts/{id}", service.GetAccount)

	get := func(callerID, targetID int64) *httptest.ResponseRecorder {
		r := asUser(httptest.NewRequest("GET", fmt.Sprintf("/accounts/%d", targetID), nil), callerID)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)
		return w
	}

	t.Run("own account is a full record", func(t *testing.T) {
		w := get(student.ID, student.ID)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "balance")
	})

	t.Run("someone else's account is a summary", func(t *testing.T) {
		w := get(student.ID, other.ID)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "balance")
	})

	t.Run("administrators see any full record", func(t *testing.T) {
		w := get(admin.ID, student.ID)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "balance")
	})

	t.Run("missing account", func(t *testing.T) {
		w := get(student.ID, 9999)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAccountService_ProvisionAccount(t *testing.T) {
	setTestConfig(t)
	store := storage.NewMemoryStore()
	ctx := context.Background()

	admin := &models.Account{Username: "Panda43", Role: models.RoleAdministrator, Balance: 1000000, CreditScore: 850}
	student := &models.Account{Username: "Lion12", Role: models.RoleStandard, Balance: 100000, CreditScore: 650}
	require.NoError(t, store.CreateAccount(ctx, admin))
	require.NoError(t, store.CreateAccount(ctx, student))

	service := NewAccountService(store)

	t.Run("administrator provisions a student", func(t *testing.T) {
		body := `{"username": "Koala88", "password": "Leaf88"}`
		r := asUser(httptest.NewRequest("POST", "/api/v1/accounts", strings.NewReader(body)), admin.ID)
		w := httptest.NewRecorder()
		service.ProvisionAccount(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)
		var created models.Account
		require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
		assert.Equal(t, models.RoleStandard, created.Role)
		assert.Equal(t, int64(100000), created.Balance)
		assert.Equal(t, 650, created.CreditScore)
	})

	t.Run("administrator provisions an administrator", func(t *testing.T) {
		body := `{"username": "Eagle31", "password": "Sky31", "admin": true}`
		r := asUser(httptest.NewRequest("POST", "/api/v1/accounts", strings.NewReader(body)), admin.ID)
		w := httptest.NewRecorder()
		service.ProvisionAccount(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)
		var created models.Account
		require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
		assert.Equal(t, models.RoleAdministrator, created.Role)
		assert.Equal(t, int64(1000000), created.Balance)
		assert.Equal(t, 850, created.CreditScore)
	})

	t.Run("student cannot provision", func(t *testing.T) {
		body := `{"username": "Shark55", "password": "Fin55"}`
		r := asUser(httptest.NewRequest("POST", "/api/v1/accounts", strings.NewReader(body)), student.ID)
		w := httptest.NewRecorder()
		service.ProvisionAccount(w, r)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		body := `{"username": "Lion12", "password": "Cat12"}`
		r := asUser(httptest.NewRequest("POST", "/api/v1/accounts", strings.NewReader(body)), admin.ID)
		w := httptest.NewRecorder()
		service.ProvisionAccount(w, r)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestSeedClassroom(t *testing.T) {
	setTestConfig(t)
	store := storage.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, SeedClassroom(ctx, store))

	accounts, err := store.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, len(seedAdmins)+len(seedStudents))

	admin, err := store.GetAccountByUsername(ctx, "Panda43")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
	assert.Equal(t, int64(1000000), admin.Balance)
	assert.Equal(t, 850, admin.CreditScore)

	student, err := store.GetAccountByUsername(ctx, "Lion12")
	require.NoError(t, err)
	assert.False(t, student.IsAdmin())
	assert.Equal(t, int64(100000), student.Balance)
	assert.Equal(t, 650, student.CreditScore)

	// Second boot is a no-op.
	require.NoError(t, SeedClassroom(ctx, store))
	again, err := store.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, again, len(seedAdmins)+len(seedStudents))
}
