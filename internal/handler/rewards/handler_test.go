package rewards

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sehatsathi/sehatsathi-api/internal/middleware"
	"github.com/sehatsathi/sehatsathi-api/internal/model"
	"github.com/sehatsathi/sehatsathi-api/internal/service/rewards"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setup(t *testing.T) *gin.Engine {
	t.Helper()
	svc, err := rewards.NewService(time.Hour)
	require.NoError(t, err)

	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Set(middleware.ContextSession, &model.Session{ID: c.GetHeader("X-Session"), User: model.User{Role: model.RolePatient}})
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(api)
	return r
}

func do(t *testing.T, r *gin.Engine, session, method, path string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("X-Session", session)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w.Code, env
}

func TestOverview(t *testing.T) {
	code, env := do(t, setup(t), "a", http.MethodGet, "/api/v1/rewards")
	require.Equal(t, http.StatusOK, code)

	var o model.RewardsOverview
	require.NoError(t, json.Unmarshal(env.Data, &o))
	assert.Equal(t, 1850, o.Ledger.Points)
	assert.Equal(t, "Silver", o.Ledger.Tier)
	assert.Equal(t, 650, o.Ledger.PointsToNext)
	assert.Len(t, o.Tasks, 5)
}

func TestRedeem(t *testing.T) {
	r := setup(t)

	code, env := do(t, r, "a", http.MethodPost, "/api/v1/rewards/4/redeem")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Redeemed: Family Health Package", env.Message)
	var res model.RedeemResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 350, res.Remaining)
	assert.Equal(t, "1500 points used. Remaining: 350 points", res.Description)

	code, env = do(t, r, "a", http.MethodPost, "/api/v1/rewards/5/redeem")
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "You need 50 more points to redeem this reward.", env.Message)

	code, _ = do(t, r, "b", http.MethodPost, "/api/v1/rewards/5/redeem")
	assert.Equal(t, http.StatusOK, code, "ledgers are per session")

	code, _ = do(t, r, "a", http.MethodPost, "/api/v1/rewards/77/redeem")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, r, "a", http.MethodPost, "/api/v1/rewards/x/redeem")
	assert.Equal(t, http.StatusBadRequest, code)
}
