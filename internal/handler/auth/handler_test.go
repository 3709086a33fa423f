package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sehatsathi/sehatsathi-api/internal/middleware"
	"github.com/sehatsathi/sehatsathi-api/internal/model"
	"github.com/sehatsathi/sehatsathi-api/internal/service/session"
	jwtauth "github.com/sehatsathi/sehatsathi-api/pkg/auth"
	"github.com/sehatsathi/sehatsathi-api/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setup() *gin.Engine {
	svc := session.NewService(jwtauth.NewJWTService("test-secret", "sehatsathi"), 0, logger.Nop())
	h := NewHandler(svc)

	r := gin.New()
	api := r.Group("/api/v1")
	h.RegisterPublicRoutes(api)
	protected := api.Group("")
	protected.Use(middleware.NewAuthMiddleware(svc).Authenticate())
	h.RegisterRoutes(protected)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
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
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func login(t *testing.T, r *gin.Engine, path string, req model.LoginRequest) (int, model.LoginResponse, string) {
	t.Helper()
	w, env := do(t, r, http.MethodPost, path, "", req)
	var resp model.LoginResponse
	if w.Code < 300 {
		require.NoError(t, json.Unmarshal(env.Data, &resp))
	}
	return w.Code, resp, env.Message
}

func TestLogin(t *testing.T) {
	r := setup()

	code, resp, msg := login(t, r, "/api/v1/auth/login", model.LoginRequest{Role: model.RoleDoctor, Password: "ignored"})
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "Welcome to SehatSathi! Logged in as Doctor", msg)
	assert.Equal(t, session.DefaultName, resp.Session.User.Name)
	assert.Equal(t, "doctor@sehatsathi.in", resp.Session.User.Email)
	assert.Equal(t, model.ViewDoctor, resp.Session.View)
}

func TestRegister(t *testing.T) {
	r := setup()

	code, resp, msg := login(t, r, "/api/v1/auth/register", model.LoginRequest{Role: model.RoleAsha, Name: "Sunita Devi", Village: "Rampur"})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Welcome to SehatSathi! Account created as ASHA Worker", msg)
	assert.Equal(t, "Sunita Devi", resp.Session.User.Name)
	assert.Equal(t, model.ViewAsha, resp.Session.View)
}

func TestLogin_InvalidRole(t *testing.T) {
	r := setup()
	w, env := do(t, r, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"role": "pharmacist"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Message, "role")
}

func TestSessionLifecycle(t *testing.T) {
	r := setup()
	_, resp, _ := login(t, r, "/api/v1/auth/login", model.LoginRequest{Role: model.RolePatient, Name: "Ramesh"})

	w, env := do(t, r, http.MethodGet, "/api/v1/session", resp.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sess model.Session
	require.NoError(t, json.Unmarshal(env.Data, &sess))
	assert.Equal(t, "Ramesh", sess.User.Name)
	assert.Equal(t, model.ViewHome, sess.View)

	w, env = do(t, r, http.MethodPut, "/api/v1/session/view", resp.Token, model.NavigateRequest{View: model.ViewRewards})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &sess))
	assert.Equal(t, model.ViewRewards, sess.View)
	assert.Equal(t, model.ViewRewards, sess.Tab)

	w, _ = do(t, r, http.MethodPut, "/api/v1/session/view", resp.Token, model.NavigateRequest{View: model.ViewAdmin})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = do(t, r, http.MethodPost, "/api/v1/auth/logout", resp.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &sess))
	assert.Equal(t, model.ViewLogin, sess.View)
	assert.Equal(t, model.ViewHome, sess.Tab)

	w, _ = do(t, r, http.MethodGet, "/api/v1/session", resp.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(t, r, http.MethodPost, "/api/v1/auth/logout", resp.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogin_ReplacesPreviousSession(t *testing.T) {
	r := setup()
	_, first, _ := login(t, r, "/api/v1/auth/login", model.LoginRequest{Role: model.RolePatient})

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(model.LoginRequest{Role: model.RoleAdmin}))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+first.Token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/v1/session", first.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
