package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"accrual_system/internal/accrual"
	"accrual_system/internal/admin"
	"accrual_system/internal/domain"
	"accrual_system/internal/i18n"
	"accrual_system/internal/ledger"
	"accrual_system/internal/service"
	"accrual_system/internal/session"
	"accrual_system/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret"
	walletA    = "1BoatSLRHtKNngkdXEeobR76b53LETtpyT"
)

type idleTicker struct{ c chan time.Time }

func (t idleTicker) C() <-chan time.Time { return t.c }
func (t idleTicker) Stop()               {}

type testServer struct {
	router *gin.Engine
	store  *ledger.Store
	tr     *i18n.Translator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	store := ledger.NewStore(storage.NewMemoryBlob(), ledger.Options{Retries: 3})
	hash, err := session.HashPassword("Alperen1")
	require.NoError(t, err)
	_, err = store.Init(ctx, domain.User{Email: "superadmin@example.com", Username: "superadmin", Password: hash}, "en")
	require.NoError(t, err)

	tr := i18n.New(i18n.Locales(), store)
	_, err = tr.Restore(ctx)
	require.NoError(t, err)

	sched := accrual.New(store, accrual.Config{
		Rate:      decimal.RequireFromString("0.00000001"),
		Interval:  time.Second,
		NewTicker: func(time.Duration) accrual.Ticker { return idleTicker{c: make(chan time.Time)} },
	})
	svc := service.New(store, session.NewManager(store), sched,
		admin.NewMutator(store, func() int64 { return time.Now().UnixMilli() }),
		nil,
		service.Config{MinWithdrawal: decimal.RequireFromString("0.0001")},
	)
	t.Cleanup(svc.Close)

	r := gin.New()
	RegisterRoutes(r, svc, store, tr, testSecret)
	return &testServer{router: r, store: store, tr: tr}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func (s *testServer) register(t *testing.T, email string) string {
	t.Helper()
	code, body := s.do(t, http.MethodPost, "/user", "", gin.H{"username": "alice", "email": email, "password": "password1"})
	require.Equal(t, http.StatusCreated, code, body)
	token, ok := body["token"].(string)
	require.True(t, ok)
	return token
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	code, body := s.do(t, http.MethodPost, "/session", "", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, code, body)
	return body["token"].(string)
}

func TestRegisterAndWalletFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "alice@example.com")

	code, body := s.do(t, http.MethodGet, "/wallet", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice", body["username"])
	assert.Empty(t, body["wallets"])

	code, body = s.do(t, http.MethodPost, "/wallet", token, gin.H{"address": "not-a-wallet"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalidBtcAddress", body["code"])

	code, body = s.do(t, http.MethodPost, "/wallet", token, gin.H{"address": walletA})
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, s.tr.Translate("addressAdded"), body["message"])

	code, body = s.do(t, http.MethodPost, "/wallet", token, gin.H{"address": walletA})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "duplicateAddress", body["code"])

	code, body = s.do(t, http.MethodPost, "/wallet/"+walletA+"/withdraw", token, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "withdrawalMinWarning", body["code"])

	code, _ = s.do(t, http.MethodDelete, "/wallet/"+walletA, token, nil)
	assert.Equal(t, http.StatusOK, code)

	code, body = s.do(t, http.MethodDelete, "/wallet/"+walletA, token, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "notFound", body["code"])
}

func TestRegisterDuplicateAndEmpty(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice@example.com")

	code, body := s.do(t, http.MethodPost, "/user", "", gin.H{"email": "ALICE@example.com", "password": "x"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "emailExists", body["code"])

	code, body = s.do(t, http.MethodPost, "/user", "", gin.H{"email": "", "password": ""})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "aborted", body["code"])

	c, err := s.store.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, c.Users, 2)
}

func TestLoginFailures(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodPost, "/session", "", gin.H{"email": "superadmin@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalidCredentials", body["code"])

	code, _ = s.do(t, http.MethodPost, "/session", "", gin.H{"email": "superadmin@example.com"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestTokenMustMatchSession(t *testing.T) {
	s := newTestServer(t)
	aliceToken := s.register(t, "alice@example.com")
	adminToken := s.login(t, "superadmin@example.com", "Alperen1")

	code, _ := s.do(t, http.MethodGet, "/wallet", aliceToken, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodGet, "/wallet", adminToken, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodGet, "/wallet", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodDelete, "/session", adminToken, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodGet, "/wallet", adminToken, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	userToken := s.register(t, "alice@example.com")
	alice, err := s.store.FindByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)

	code, _ := s.do(t, http.MethodGet, "/admin/users", userToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	token := s.login(t, "superadmin@example.com", "Alperen1")

	code, body := s.do(t, http.MethodGet, "/admin/users?page=1&page_size=1", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["total"])
	assert.EqualValues(t, 2, body["total_pages"])
	assert.Len(t, body["users"], 1)

	code, body = s.do(t, http.MethodPost, "/admin/users/1/suspend", token, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "adminImmune", body["code"])

	path := "/admin/users/" + jsonID(alice.ID)
	code, body = s.do(t, http.MethodPost, path+"/suspend", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["suspended"])

	code, body = s.do(t, http.MethodPut, path+"/balance", token, gin.H{"amount": "abc"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalidBalance", body["code"])

	code, body = s.do(t, http.MethodPut, path+"/balance", token, gin.H{"amount": "0.5"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "0.5", body["totalBalance"])

	code, _ = s.do(t, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusOK, code)

	code, body = s.do(t, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "notFound", body["code"])
}

func TestLanguageSwitch(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodGet, "/lang", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "en", body["lang"])
	english := s.tr.Translate("invalidCredentials")

	code, body = s.do(t, http.MethodPut, "/lang/tr-TR", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "tr", body["lang"])

	_, body = s.do(t, http.MethodPost, "/session", "", gin.H{"email": "nobody@example.com", "password": "x"})
	assert.NotEqual(t, english, body["error"])
	assert.Equal(t, s.tr.Translate("invalidCredentials"), body["error"])

	lang, err := s.store.Lang(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tr", lang)

	code, body = s.do(t, http.MethodPut, "/lang/xx", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "en", body["lang"])
}

func jsonID(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
